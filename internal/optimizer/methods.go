// File: internal/optimizer/methods.go
// ============================================
package optimizer

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func equalWeights(n int) []float64 {
	w := make([]float64, n)
	if n == 0 {
		return w
	}
	share := 1.0 / float64(n)
	for i := range w {
		w[i] = share
	}
	return w
}

func weightsFromStrengths(symbols []string, strengths map[string]float64) []float64 {
	w := make([]float64, len(symbols))
	for i, s := range symbols {
		w[i] = strengths[s]
	}
	sum := floats.Sum(w)
	if sum <= 0 {
		return equalWeights(len(symbols))
	}
	floats.Scale(1/sum, w)
	return w
}

func inverseVolatilityWeights(stdevs []float64) []float64 {
	w := make([]float64, len(stdevs))
	for i, sd := range stdevs {
		if sd <= 0 {
			sd = 1e-9
		}
		w[i] = 1.0 / sd
	}
	sum := floats.Sum(w)
	if sum <= 0 {
		return equalWeights(len(stdevs))
	}
	floats.Scale(1/sum, w)
	return w
}

// minimumVarianceWeights solves the unconstrained analytic minimum
// variance portfolio w ∝ Σ⁻¹·1, then lets clampAndRenormalize enforce
// the configured weight bounds.
func minimumVarianceWeights(cov *mat.SymDense) ([]float64, error) {
	n, _ := cov.Dims()
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	return invSigmaTimes(cov, ones)
}

// maximumSharpeWeights solves the analytic tangency portfolio
// w ∝ Σ⁻¹·(μ - rf), the closed-form maximizer of the Sharpe ratio for
// a given covariance structure.
func maximumSharpeWeights(cov *mat.SymDense, means []float64, dailyRiskFree float64) ([]float64, error) {
	excess := make([]float64, len(means))
	for i, m := range means {
		excess[i] = m - dailyRiskFree/252
	}
	return invSigmaTimes(cov, excess)
}

// maximumDiversificationWeights solves w ∝ Σ⁻¹·σ, the closed-form
// maximizer of the diversification ratio (wᵀσ)/√(wᵀΣw).
func maximumDiversificationWeights(cov *mat.SymDense, stdevs []float64) ([]float64, error) {
	return invSigmaTimes(cov, stdevs)
}

func invSigmaTimes(cov *mat.SymDense, target []float64) ([]float64, error) {
	n, _ := cov.Dims()
	inv, err := invertSym(cov)
	if err != nil {
		return nil, err
	}
	tVec := mat.NewVecDense(n, target)
	var raw mat.VecDense
	raw.MulVec(inv, tVec)

	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = raw.AtVec(i)
	}
	sum := floats.Sum(w)
	if sum <= 0 {
		return nil, errors.New("unconstrained solution has non-positive weight sum")
	}
	floats.Scale(1/sum, w)
	return w, nil
}

// invertSym inverts a symmetric positive-(semi)definite matrix via its
// Cholesky factorization, falling back to general LU inversion when the
// matrix is not PD even after regularization.
func invertSym(a *mat.SymDense) (*mat.SymDense, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(a); ok {
		var inv mat.SymDense
		if err := chol.InverseTo(&inv); err != nil {
			return nil, err
		}
		return &inv, nil
	}

	n, _ := a.Dims()
	dense := mat.DenseCopyOf(a)
	var invDense mat.Dense
	if err := invDense.Inverse(dense); err != nil {
		return nil, err
	}
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, invDense.At(i, j))
		}
	}
	return sym, nil
}

// clampAndRenormalize enforces [min, max] per-asset bounds on a weight
// vector that must sum to target, using iterative water-filling:
// weights outside the bounds are clipped and the remaining slack is
// redistributed proportionally among the still-free weights.
func clampAndRenormalize(w []float64, min, max, target float64) []float64 {
	n := len(w)
	if n == 0 {
		return w
	}
	if max <= 0 {
		max = 1
	}
	fixed := make([]bool, n)
	out := make([]float64, n)
	copy(out, w)

	free := make([]int, 0, n)
	for iter := 0; iter < n+1; iter++ {
		free = free[:0]
		fixedSum := 0.0
		for i := range out {
			if fixed[i] {
				fixedSum += out[i]
			} else {
				free = append(free, i)
			}
		}
		if len(free) == 0 {
			break
		}
		freeVals := make([]float64, len(free))
		for j, i := range free {
			freeVals[j] = out[i]
		}
		freeSum := floats.Sum(freeVals)
		remaining := target - fixedSum
		changed := false
		if freeSum != 0 {
			floats.Scale(remaining/freeSum, freeVals)
			for j, i := range free {
				out[i] = freeVals[j]
				if out[i] > max {
					out[i] = max
					fixed[i] = true
					changed = true
				}
			}
			// Lower bounds are only fixed once no weight exceeds max, so
			// that slack from clipped maxima is redistributed first.
			if !changed {
				for _, i := range free {
					if out[i] < min {
						out[i] = min
						fixed[i] = true
						changed = true
					}
				}
			}
		}
		if !changed {
			break
		}
	}
	return out
}
