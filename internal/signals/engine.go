// File: internal/signals/engine.go
// ============================================
package signals

import (
	"fmt"
	"sort"
	"time"

	"momentum-backtest/internal/momentum"
	"momentum-backtest/pkg/types"
)

// Engine decides, at each rebalance timestamp, which assets to hold and
// with what signal strength (§4.2). It is long-only: Direction is
// always +1 or unused (the core never emits -1).
type Engine struct {
	Config     types.StrategyConfig
	Calculator *momentum.Calculator
}

// NewEngine builds a signal Engine from a strategy configuration.
func NewEngine(cfg types.StrategyConfig) *Engine {
	return &Engine{
		Config:     cfg,
		Calculator: momentum.NewCalculator(cfg.LookbackPeriod, cfg.UseVolatilityAdjustment),
	}
}

// riskyScore is an intermediate per-symbol momentum reading carried
// through the filter → rank → select pipeline.
type riskyScore struct {
	symbol     string
	momentum   float64
	volatility float64
}

// Generate runs the binary filter → rank → select → defensive-rotation
// algorithm over the risky universe (every symbol in universe except
// the configured safe asset) as of asOf, and returns the signals for
// this rebalance. A nil slice with no error means "hold cash": no risky
// asset passed and no safe asset is configured. A *NoViableAssetsError
// is returned when no risky asset passed and the configured safe asset
// has no price data; the backtest engine logs any Generate error as a
// warning and skips that rebalance rather than failing the run.
func (e *Engine) Generate(universe map[string]types.PriceData, asOf time.Time) ([]types.Signal, error) {
	riskySymbols := make([]string, 0, len(universe))
	for sym := range universe {
		if sym == e.Config.SafeAsset {
			continue
		}
		riskySymbols = append(riskySymbols, sym)
	}
	sort.Strings(riskySymbols) // deterministic iteration before momentum ranking

	var scores []riskyScore
	for _, sym := range riskySymbols {
		pd := universe[sym]
		res, err := e.Calculator.Compute(pd, asOf)
		if err != nil {
			// A symbol missing history at this rebalance simply does
			// not participate; it is not a fatal condition.
			continue
		}
		scores = append(scores, riskyScore{symbol: sym, momentum: res.Score, volatility: res.Volatility})
	}

	// Absolute filter: retain assets with momentum > threshold.
	var passed []riskyScore
	for _, s := range scores {
		if s.momentum > e.Config.AbsoluteThreshold {
			passed = append(passed, s)
		}
	}

	if len(passed) == 0 {
		return e.defensiveRotation(universe, asOf)
	}

	// Rank descending, take top position_count.
	sort.Slice(passed, func(i, j int) bool { return passed[i].momentum > passed[j].momentum })
	n := e.Config.PositionCount
	if n > len(passed) {
		n = len(passed)
	}
	selected := passed[:n]

	strengths, err := strengthFor(e.Config.StrengthMethod, selected, e.Config.AbsoluteThreshold, e.Config.StrengthScaleRange)
	if err != nil {
		return nil, err
	}

	out := make([]types.Signal, 0, len(selected))
	for i, s := range selected {
		out = append(out, types.Signal{
			Symbol:     s.symbol,
			Direction:  1,
			Strength:   strengths[i],
			Reason:     types.ReasonRelativeTop,
			Timestamp:  asOf,
			Momentum:   s.momentum,
			Volatility: s.volatility,
		})
	}
	return out, nil
}

func (e *Engine) defensiveRotation(universe map[string]types.PriceData, asOf time.Time) ([]types.Signal, error) {
	if e.Config.SafeAsset == "" {
		// Resolves to 100% cash; not treated as a fatal error by the engine.
		return nil, nil
	}
	if _, ok := universe[e.Config.SafeAsset]; !ok {
		return nil, &types.NoViableAssetsError{Timestamp: asOf.Format(time.RFC3339)}
	}
	return []types.Signal{{
		Symbol:    e.Config.SafeAsset,
		Direction: 1,
		Strength:  1.0,
		Reason:    types.ReasonDefensiveRotation,
		Timestamp: asOf,
	}}, nil
}

// strengthFor computes the §4.2.1 strength for each selected asset.
// linear is threshold-independent by construction: it only ever looks
// at (momentum - threshold), never at threshold itself.
func strengthFor(method types.StrengthMethod, selected []riskyScore, threshold, scaleRange float64) ([]float64, error) {
	out := make([]float64, len(selected))
	switch method {
	case types.StrengthBinary, "":
		for i := range out {
			out[i] = 1.0
		}

	case types.StrengthLinear:
		if scaleRange <= 0 {
			return nil, fmt.Errorf("strength_scale_range must be > 0 for the linear method")
		}
		for i, s := range selected {
			excess := s.momentum - threshold
			out[i] = clip(excess/scaleRange, 0, 1)
		}

	case types.StrengthProportional:
		sum := 0.0
		for _, s := range selected {
			sum += s.momentum
		}
		for i, s := range selected {
			if sum == 0 {
				out[i] = 1.0 / float64(len(selected))
				continue
			}
			out[i] = s.momentum / sum
		}

	case types.StrengthMomentumRatio:
		max := selected[0].momentum
		for _, s := range selected {
			if s.momentum > max {
				max = s.momentum
			}
		}
		for i, s := range selected {
			if max == 0 {
				out[i] = 1.0
				continue
			}
			out[i] = s.momentum / max
		}

	default:
		return nil, fmt.Errorf("unknown strength method %q", method)
	}
	return out, nil
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
