// File: internal/optimizer/risk.go
// ============================================
package optimizer

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

const (
	riskParityMaxIterations = 200
	riskParityTolerance     = 1e-6
)

// riskParityWeights finds the weight vector whose per-asset risk
// contributions w_i·(Σw)_i are equal, via the naive fixed-point
// iteration: nudge each weight by the ratio of the average risk
// contribution to its own, then renormalize. This converges quickly
// for well-conditioned covariance matrices and is the simplified
// variant most practitioner write-ups use in place of the full
// Newton/SQP solution.
func riskParityWeights(cov *mat.SymDense) ([]float64, error) {
	n, _ := cov.Dims()
	if n == 0 {
		return nil, errors.New("empty covariance matrix")
	}
	w := equalWeights(n)

	for iter := 0; iter < riskParityMaxIterations; iter++ {
		wVec := mat.NewVecDense(n, w)
		var sigmaW mat.VecDense
		sigmaW.MulVec(cov, wVec)

		contrib := make([]float64, n)
		avg := 0.0
		for i := 0; i < n; i++ {
			contrib[i] = w[i] * sigmaW.AtVec(i)
			avg += contrib[i]
		}
		avg /= float64(n)

		maxDev := 0.0
		for i := 0; i < n; i++ {
			dev := contrib[i] - avg
			if dev < 0 {
				dev = -dev
			}
			if dev > maxDev {
				maxDev = dev
			}
		}
		if maxDev < riskParityTolerance {
			return w, nil
		}

		next := make([]float64, n)
		sum := 0.0
		for i := 0; i < n; i++ {
			if contrib[i] <= 0 {
				next[i] = w[i]
			} else {
				next[i] = w[i] * avg / contrib[i]
			}
			if next[i] < 0 {
				next[i] = 0
			}
			sum += next[i]
		}
		if sum <= 0 {
			return nil, errors.New("risk parity iteration collapsed to zero weight")
		}
		for i := range next {
			next[i] /= sum
		}
		w = next
	}
	return w, nil // best effort after max iterations, still normalized
}
