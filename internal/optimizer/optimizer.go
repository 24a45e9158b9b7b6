// File: internal/optimizer/optimizer.go
// ============================================
package optimizer

import (
	"log"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"momentum-backtest/pkg/types"
)

// Result is what one call to Optimize exposes: the derived weights plus
// the diagnostics the spec requires (§4.3).
type Result struct {
	Weights               map[string]float64
	ExpectedReturn        float64
	ExpectedVolatility    float64
	SharpeRatio           float64
	DiversificationRatio  float64
	RiskContributions     map[string]float64
	FellBackToEqualWeight bool
}

// Optimizer maps selected signals and trailing return history to a
// target weight vector, using one of the eight §4.3 methods.
type Optimizer struct {
	Method       types.OptimizationMethod
	Lookback     int
	WeightMin    float64
	WeightMax    float64
	RiskFreeRate float64
}

// New builds an Optimizer from a strategy configuration.
func New(cfg types.StrategyConfig) *Optimizer {
	return &Optimizer{
		Method:       cfg.OptimizationMethod,
		Lookback:     cfg.OptimizationLookback,
		WeightMin:    cfg.WeightMin,
		WeightMax:    cfg.WeightMax,
		RiskFreeRate: cfg.RiskFreeRate,
	}
}

// Optimize derives weights for the selected symbols such that
// Σ weights == riskShare. `returns` holds each symbol's trailing daily
// return series (at least Lookback observations, most-recent last); a
// shorter series for any selected symbol triggers the §4.3
// equal-weight fallback with a logged warning.
func (o *Optimizer) Optimize(selected []types.Signal, returns map[string][]float64, riskShare float64) (Result, error) {
	symbols := make([]string, len(selected))
	strengthBySymbol := make(map[string]float64, len(selected))
	for i, s := range selected {
		symbols[i] = s.Symbol
		strengthBySymbol[s.Symbol] = s.Strength
	}

	if len(symbols) == 1 {
		// A single selected asset always takes the full risk share,
		// regardless of method.
		w := map[string]float64{symbols[0]: riskShare}
		return Result{
			Weights:           w,
			RiskContributions: map[string]float64{symbols[0]: 0},
		}, nil
	}

	data, ok := buildReturnsMatrix(symbols, returns, o.Lookback)
	if !ok {
		log.Printf("optimizer: trailing returns window incomplete for one or more of %v, falling back to equal_weight", symbols)
		return o.equalWeightResult(symbols, riskShare, true), nil
	}

	cov, means, stdevs := covarianceAndMoments(data)
	regularizeIfSingular(cov)

	var w []float64
	var err error

	switch o.Method {
	case types.OptimizationMomentumBased:
		w = weightsFromStrengths(symbols, strengthBySymbol)
	case types.OptimizationEqualWeight, "":
		w = equalWeights(len(symbols))
	case types.OptimizationInverseVolatility:
		w = inverseVolatilityWeights(stdevs)
	case types.OptimizationMinimumVariance:
		w, err = minimumVarianceWeights(cov)
	case types.OptimizationMaximumSharpe:
		w, err = maximumSharpeWeights(cov, means, o.RiskFreeRate)
	case types.OptimizationRiskParity:
		w, err = riskParityWeights(cov)
	case types.OptimizationMaximumDiversification:
		w, err = maximumDiversificationWeights(cov, stdevs)
	case types.OptimizationHRP:
		w, err = hrpWeights(symbols, data)
	default:
		return Result{}, &types.OptimizationFailedError{Method: string(o.Method), Reason: "unknown optimization method"}
	}

	if err != nil {
		log.Printf("optimizer: %s did not converge (%v), falling back to equal_weight", o.Method, err)
		return o.equalWeightResult(symbols, riskShare, true), nil
	}

	w = clampAndRenormalize(w, o.WeightMin, o.WeightMax, riskShare)

	return o.buildResult(symbols, w, cov, means, stdevs), nil
}

func (o *Optimizer) equalWeightResult(symbols []string, riskShare float64, fellBack bool) Result {
	w := equalWeights(len(symbols))
	for i := range w {
		w[i] *= riskShare
	}
	weights := make(map[string]float64, len(symbols))
	contrib := make(map[string]float64, len(symbols))
	for i, s := range symbols {
		weights[s] = w[i]
		contrib[s] = 0
	}
	return Result{Weights: weights, RiskContributions: contrib, FellBackToEqualWeight: fellBack}
}

func (o *Optimizer) buildResult(symbols []string, w []float64, cov *mat.SymDense, means, stdevs []float64) Result {
	n := len(symbols)
	wVec := mat.NewVecDense(n, w)

	var sigmaW mat.VecDense
	sigmaW.MulVec(cov, wVec)

	portVariance := mat.Dot(wVec, &sigmaW)
	portVol := 0.0
	if portVariance > 0 {
		portVol = math.Sqrt(portVariance)
	}

	expectedReturn := 0.0
	for i, m := range means {
		expectedReturn += w[i] * m
	}
	// annualize: daily mean -> 252 trading days, daily vol -> sqrt(252)
	annualReturn := expectedReturn * 252
	annualVol := portVol * math.Sqrt(252)

	sharpe := 0.0
	if annualVol > 0 {
		sharpe = (annualReturn - o.RiskFreeRate) / annualVol
	}

	weightedStdev := 0.0
	for i, sd := range stdevs {
		weightedStdev += w[i] * sd
	}
	diversification := 0.0
	if portVol > 0 {
		diversification = weightedStdev / portVol
	}

	weights := make(map[string]float64, n)
	contrib := make(map[string]float64, n)
	for i, s := range symbols {
		weights[s] = w[i]
		contrib[s] = w[i] * sigmaW.AtVec(i)
	}

	return Result{
		Weights:              weights,
		ExpectedReturn:       annualReturn,
		ExpectedVolatility:   annualVol,
		SharpeRatio:          sharpe,
		DiversificationRatio: diversification,
		RiskContributions:    contrib,
	}
}

// buildReturnsMatrix assembles an (lookback x len(symbols)) observation
// matrix, most-recent observation last. ok is false if any symbol's
// return history is shorter than lookback.
func buildReturnsMatrix(symbols []string, returns map[string][]float64, lookback int) (*mat.Dense, bool) {
	if lookback < 2 {
		lookback = 2
	}
	n := len(symbols)
	data := make([]float64, lookback*n)
	for j, sym := range symbols {
		series := returns[sym]
		if len(series) < lookback {
			return nil, false
		}
		window := series[len(series)-lookback:]
		for i := 0; i < lookback; i++ {
			data[i*n+j] = window[i]
		}
	}
	return mat.NewDense(lookback, n, data), true
}

func covarianceAndMoments(data *mat.Dense) (*mat.SymDense, []float64, []float64) {
	_, n := data.Dims()
	cov := stat.CovarianceMatrix(nil, data, nil)

	means := make([]float64, n)
	stdevs := make([]float64, n)
	for j := 0; j < n; j++ {
		col := mat.Col(nil, j, data)
		means[j] = stat.Mean(col, nil)
		stdevs[j] = stat.StdDev(col, nil)
	}
	return cov, means, stdevs
}

// regularizeIfSingular ridge-regularizes cov in place when its condition
// number exceeds 1e10, per §9.
func regularizeIfSingular(cov *mat.SymDense) {
	n, _ := cov.Dims()
	cond := mat.Cond(cov, 2)
	if cond <= 1e10 || n == 0 {
		return
	}
	trace := mat.Trace(cov)
	epsilon := 1e-8 * trace / float64(n)
	for i := 0; i < n; i++ {
		cov.SetSym(i, i, cov.At(i, i)+epsilon)
	}
	log.Printf("optimizer: covariance matrix ill-conditioned (cond=%.3g), ridge-regularized by %.3g", cond, epsilon)
}

