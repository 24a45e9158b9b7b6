// File: internal/momentum/momentum.go
// ============================================
package momentum

import (
	"momentum-backtest/pkg/types"
	"time"
)

// Mode selects which momentum formula Calculator.Compute uses (§4.1).
type Mode string

const (
	// ModeSimple is m = (P_t / P_{t-L}) - 1.
	ModeSimple Mode = "simple"
	// ModeCrossover is m = (MA_fast - MA_slow) / MA_slow.
	ModeCrossover Mode = "crossover"
)

// Result is one symbol's momentum score at a rebalance timestamp, plus
// its realized volatility over the same lookback when requested.
type Result struct {
	Symbol     string
	Score      float64
	Volatility float64 // annualized stdev of daily returns, 0 if not requested
}

// Calculator computes lookback returns, with optional volatility
// adjustment, over a unified trading calendar.
type Calculator struct {
	LookbackPeriod       int
	Mode                 Mode
	FastPeriod           int // used only when Mode == ModeCrossover
	SlowPeriod           int // used only when Mode == ModeCrossover
	UseVolatilityAdjust  bool
	ForwardFillMaxGapDays int
}

// NewCalculator builds a Calculator in simple-momentum mode, the
// default used by the signal engine's absolute/relative filters.
func NewCalculator(lookback int, useVolAdjust bool) *Calculator {
	return &Calculator{
		LookbackPeriod:        lookback,
		Mode:                  ModeSimple,
		UseVolatilityAdjust:   useVolAdjust,
		ForwardFillMaxGapDays: 5,
	}
}

// Compute returns the momentum score for one symbol's price series,
// ending at asOf. It fails with *types.InsufficientHistoryError when
// the lookback window is not fully covered by data up to asOf, and
// with *types.DataUnavailableError if the leading edge of the window
// itself is missing (forward-fill only covers interior gaps).
func (c *Calculator) Compute(pd types.PriceData, asOf time.Time) (Result, error) {
	required := c.LookbackPeriod + 1
	if c.Mode == ModeCrossover && c.SlowPeriod > required {
		required = c.SlowPeriod
	}

	closes, ok := pd.TrailingCloses(asOf, required)
	if !ok {
		return Result{}, &types.InsufficientHistoryError{
			Symbol:   pd.Symbol,
			Required: required,
			Have:     countUpTo(pd, asOf),
		}
	}
	if _, exact := pd.At(asOf); !exact {
		if _, filled, ok := pd.CloseAsOf(asOf, c.ForwardFillMaxGapDays); !ok || !filled {
			return Result{}, &types.DataUnavailableError{
				Symbol: pd.Symbol,
				Reason: "no observation at or forward-fillable to the rebalance timestamp",
			}
		}
	}
	if closes[0] <= 0 {
		return Result{}, &types.DataUnavailableError{Symbol: pd.Symbol, Reason: "leading edge of lookback window is missing"}
	}

	var score float64
	switch c.Mode {
	case ModeCrossover:
		fast := sma(closes, c.FastPeriod)
		slow := sma(closes, c.SlowPeriod)
		if slow == 0 {
			return Result{}, &types.DataUnavailableError{Symbol: pd.Symbol, Reason: "zero slow moving average"}
		}
		score = (fast - slow) / slow
	default:
		last := closes[len(closes)-1]
		first := closes[len(closes)-1-c.LookbackPeriod]
		score = last/first - 1
	}

	vol := 0.0
	if c.UseVolatilityAdjust {
		vol = annualizedVolatility(closes)
		if vol > 0 {
			score = score / vol
		}
	}

	return Result{Symbol: pd.Symbol, Score: score, Volatility: vol}, nil
}

func countUpTo(pd types.PriceData, asOf time.Time) int {
	n := 0
	for _, b := range pd.Bars {
		if b.Timestamp.After(asOf) {
			break
		}
		n++
	}
	return n
}
