// File: internal/tuner/tuner.go
// ============================================
package tuner

import (
	"context"
	"log"
	"math"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"momentum-backtest/pkg/types"
)

// Method selects how the parameter space is explored (§4.6).
type Method string

const (
	MethodGrid     Method = "grid"
	MethodRandom   Method = "random"
	MethodBayesian Method = "bayesian"
)

// Objective is the metric a sweep optimizes for. max_drawdown is
// minimized in magnitude (i.e. the tuner maximizes -|drawdown|); every
// other objective is maximized directly.
type Objective string

const (
	ObjectiveSharpe           Objective = "sharpe_ratio"
	ObjectiveTotalReturn      Objective = "total_return"
	ObjectiveAnnualizedReturn Objective = "annualized_return"
	ObjectiveSortino          Objective = "sortino_ratio"
	ObjectiveCalmar           Objective = "calmar_ratio"
	ObjectiveMaxDrawdown      Objective = "max_drawdown"
)

// BayesianOptimizer is the external collaborator a Bayesian search
// would delegate to. No implementation ships in this module — no real
// Bayesian-optimization library was available to wire it to — so
// Tuner.Run always falls back to random search when Method is
// MethodBayesian and this is nil.
type BayesianOptimizer interface {
	Suggest(space types.ParameterSpace, history []TrialResult) (map[string]interface{}, error)
}

// RunFunc builds a configuration from a trial's parameters and runs one
// full backtest, returning its result. Supplied by the caller, since
// only the caller knows how to fold trial parameters into a
// types.StrategyConfig.
type RunFunc func(parameters map[string]interface{}) (types.BacktestResult, error)

// TrialResult is one parameter combination's outcome.
type TrialResult struct {
	Index      int
	Parameters map[string]interface{}
	Score      float64
	Metrics    map[string]float64
	Backtest   types.BacktestResult
	Err        error
}

// Result is a completed sweep.
type Result struct {
	Trials       []TrialResult
	BestParams   map[string]interface{}
	BestScore    float64
	BestBacktest types.BacktestResult
	WallClock    time.Duration
	Method       Method
	Seed         int64
}

// Tuner explores a ParameterSpace by running one full backtest per
// trial via RunFunc.
type Tuner struct {
	Space             types.ParameterSpace
	Method            Method
	Objective         Objective
	Seed              int64
	NTrials           int // random search sample count
	MaxParallel       int
	BayesianOptimizer BayesianOptimizer
}

const gridSearchWarnThreshold = 1000

// Run explores the parameter space and returns the aggregate result.
// Trial order in Result.Trials always matches submission order,
// regardless of completion order under parallel execution (§5, §9).
func (t *Tuner) Run(ctx context.Context, run RunFunc) (Result, error) {
	start := time.Now()

	if issues := t.Space.Validate(); len(issues) > 0 {
		return Result{}, &types.ConfigurationError{
			Field:   "parameter_space",
			Message: issues[0].String(),
			Remedy:  "fix every reported parameter issue before running a sweep",
		}
	}

	method := t.Method
	var combos []map[string]interface{}
	var err error

	switch method {
	case MethodGrid:
		combos, err = gridCombinations(t.Space.Parameters)
		if err != nil {
			return Result{}, err
		}
		if len(combos) > gridSearchWarnThreshold {
			log.Printf("tuner: grid search has %d combinations, exceeding the %d warning threshold", len(combos), gridSearchWarnThreshold)
		}
	case MethodBayesian:
		if t.BayesianOptimizer == nil {
			log.Printf("tuner: no Bayesian optimizer configured, falling back to random search")
			method = MethodRandom
			combos = randomCombinations(t.Space.Parameters, t.trialCount(), t.Seed)
		} else {
			combos, err = t.runBayesian(run)
			if err != nil {
				return Result{}, err
			}
		}
	case MethodRandom, "":
		method = MethodRandom
		combos = randomCombinations(t.Space.Parameters, t.trialCount(), t.Seed)
	default:
		return Result{}, &types.ConfigurationError{Field: "method", Message: "unknown tuner method " + string(method), Remedy: "use grid, random, or bayesian"}
	}

	trials := t.runTrials(ctx, combos, run)

	result := Result{Trials: trials, Method: method, Seed: t.Seed, WallClock: time.Since(start)}
	t.selectBest(&result)
	return result, nil
}

func (t *Tuner) trialCount() int {
	if t.NTrials > 0 {
		return t.NTrials
	}
	return 20
}

// runBayesian is intentionally unreachable in practice: BayesianOptimizer
// is never populated by this module, only by a caller supplying its own.
// It exists so the method dispatch above compiles against a real
// collaborator contract rather than a stub left for "someday".
func (t *Tuner) runBayesian(run RunFunc) ([]map[string]interface{}, error) {
	var combos []map[string]interface{}
	var history []TrialResult
	for i := 0; i < t.trialCount(); i++ {
		params, err := t.BayesianOptimizer.Suggest(t.Space, history)
		if err != nil {
			return nil, err
		}
		combos = append(combos, params)
		bt, runErr := run(params)
		tr := TrialResult{Index: i, Parameters: params, Backtest: bt, Err: runErr}
		if runErr == nil {
			tr.Metrics = bt.Metrics
			tr.Score = t.score(bt.Metrics)
		}
		history = append(history, tr)
	}
	return combos, nil
}

// runTrials executes every combination, in parallel up to MaxParallel,
// and returns results ordered by submission index regardless of
// completion order.
func (t *Tuner) runTrials(ctx context.Context, combos []map[string]interface{}, run RunFunc) []TrialResult {
	results := make([]TrialResult, len(combos))
	maxParallel := t.MaxParallel
	if maxParallel <= 0 {
		maxParallel = 4
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxParallel)

	for i, params := range combos {
		i, params := i, params
		group.Go(func() error {
			if groupCtx.Err() != nil {
				results[i] = TrialResult{Index: i, Parameters: params, Err: groupCtx.Err(), Score: t.worstPossibleScore()}
				return nil
			}
			bt, err := run(params)
			tr := TrialResult{Index: i, Parameters: params, Backtest: bt}
			if err != nil {
				tr.Err = err
				tr.Score = t.worstPossibleScore()
			} else {
				tr.Metrics = bt.Metrics
				tr.Score = t.score(bt.Metrics)
			}
			results[i] = tr
			return nil // a failed trial never aborts the sweep (§4.6 Failure)
		})
	}
	_ = group.Wait()
	return results
}

func (t *Tuner) worstPossibleScore() float64 {
	return math.Inf(-1)
}

func (t *Tuner) score(metrics map[string]float64) float64 {
	key := string(t.Objective)
	if key == "" {
		key = string(ObjectiveSharpe)
	}
	v, ok := metrics[key]
	if !ok {
		return math.Inf(-1)
	}
	if t.Objective == ObjectiveMaxDrawdown {
		return -math.Abs(v)
	}
	return v
}

func (t *Tuner) selectBest(result *Result) {
	best := math.Inf(-1)
	bestIdx := -1
	for i, tr := range result.Trials {
		if tr.Err != nil {
			continue
		}
		if tr.Score > best {
			best = tr.Score
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return
	}
	result.BestScore = best
	result.BestParams = result.Trials[bestIdx].Parameters
	result.BestBacktest = result.Trials[bestIdx].Backtest
}

// gridCombinations computes the Cartesian product of every parameter's
// discrete value list. A parameter without a value list cannot
// participate in a grid search.
func gridCombinations(params []types.Parameter) ([]map[string]interface{}, error) {
	combos := []map[string]interface{}{{}}
	for _, p := range params {
		if len(p.Values) == 0 {
			return nil, &types.ConfigurationError{
				Field:   p.Name,
				Message: "grid search requires a discrete value list",
				Remedy:  "set Parameter.Values, or switch to random search for range parameters",
			}
		}
		var next []map[string]interface{}
		for _, combo := range combos {
			for _, v := range p.Values {
				extended := make(map[string]interface{}, len(combo)+1)
				for k, cv := range combo {
					extended[k] = cv
				}
				extended[p.Name] = v
				next = append(next, extended)
			}
		}
		combos = next
	}
	return combos, nil
}

// randomCombinations draws n uniform samples per dimension from a
// seeded source, deterministic for a fixed seed.
func randomCombinations(params []types.Parameter, n int, seed int64) []map[string]interface{} {
	rng := rand.New(rand.NewSource(seed))
	out := make([]map[string]interface{}, n)
	for i := 0; i < n; i++ {
		combo := make(map[string]interface{}, len(params))
		for _, p := range params {
			combo[p.Name] = sampleParameter(p, rng)
		}
		out[i] = combo
	}
	return out
}

func sampleParameter(p types.Parameter, rng *rand.Rand) interface{} {
	if len(p.Values) > 0 {
		return p.Values[rng.Intn(len(p.Values))]
	}
	span := p.Max - p.Min
	switch p.Type {
	case types.ParamInt:
		if span <= 0 {
			return int(p.Min)
		}
		return p.Min + math.Floor(rng.Float64()*(span+1))
	default:
		return p.Min + rng.Float64()*span
	}
}
