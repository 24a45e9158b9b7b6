// File: pkg/types/models.go
// ============================================
package types

import (
	"fmt"
	"sort"
	"time"
)

// OHLCVBar is a single trading-day observation for one symbol.
type OHLCVBar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// PriceData is a strictly increasing, unique-timestamp sequence of bars
// for one symbol, plus identifying metadata.
type PriceData struct {
	Symbol     string
	AssetClass string
	Timezone   string

	Bars []OHLCVBar

	index map[time.Time]int
}

// NewPriceData builds a PriceData from bars, sorting by timestamp and
// building the lookup index. It does not validate invariants; call
// Validate for that.
func NewPriceData(symbol, assetClass, timezone string, bars []OHLCVBar) PriceData {
	sorted := make([]OHLCVBar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	pd := PriceData{
		Symbol:     symbol,
		AssetClass: assetClass,
		Timezone:   timezone,
		Bars:       sorted,
	}
	pd.buildIndex()
	return pd
}

func (p *PriceData) buildIndex() {
	p.index = make(map[time.Time]int, len(p.Bars))
	for i, b := range p.Bars {
		p.index[b.Timestamp] = i
	}
}

// Validate checks the data-model invariants: monotonic unique
// timestamps and close > 0 for every bar.
func (p PriceData) Validate() error {
	if len(p.Bars) == 0 {
		return nil
	}
	prev := p.Bars[0].Timestamp
	if p.Bars[0].Close <= 0 {
		return fmt.Errorf("%s: non-positive close at %s", p.Symbol, prev)
	}
	for i := 1; i < len(p.Bars); i++ {
		cur := p.Bars[i]
		if !cur.Timestamp.After(prev) {
			return fmt.Errorf("%s: timestamps not strictly increasing at %s", p.Symbol, cur.Timestamp)
		}
		if cur.Close <= 0 {
			return fmt.Errorf("%s: non-positive close at %s", p.Symbol, cur.Timestamp)
		}
		prev = cur.Timestamp
	}
	return nil
}

// Inception returns the earliest timestamp held, and Latest the most
// recent. Both are zero if the series is empty.
func (p PriceData) Inception() time.Time {
	if len(p.Bars) == 0 {
		return time.Time{}
	}
	return p.Bars[0].Timestamp
}

func (p PriceData) Latest() time.Time {
	if len(p.Bars) == 0 {
		return time.Time{}
	}
	return p.Bars[len(p.Bars)-1].Timestamp
}

// At returns the bar at exactly t and whether it exists.
func (p PriceData) At(t time.Time) (OHLCVBar, bool) {
	if p.index == nil {
		for _, b := range p.Bars {
			if b.Timestamp.Equal(t) {
				return b, true
			}
		}
		return OHLCVBar{}, false
	}
	i, ok := p.index[t]
	if !ok {
		return OHLCVBar{}, false
	}
	return p.Bars[i], true
}

// CloseAsOf returns the close at exactly t, forward-filled from the most
// recent prior bar if t itself is missing and the gap is within
// maxGapDays. ok is false if t precedes the series' first bar, or the
// forward-fill gap exceeds maxGapDays.
func (p PriceData) CloseAsOf(t time.Time, maxGapDays int) (price float64, filled bool, ok bool) {
	if len(p.Bars) == 0 {
		return 0, false, false
	}
	if bar, exact := p.At(t); exact {
		return bar.Close, false, true
	}
	if t.Before(p.Bars[0].Timestamp) {
		return 0, false, false
	}
	lo, hi := 0, len(p.Bars)-1
	best := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		if !p.Bars[mid].Timestamp.After(t) {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if best < 0 {
		return 0, false, false
	}
	gapDays := int(t.Sub(p.Bars[best].Timestamp).Hours() / 24)
	if gapDays > maxGapDays {
		return 0, false, false
	}
	return p.Bars[best].Close, true, true
}

// TrailingCloses returns the n closes ending at (and including) the bar
// at or before `end`, oldest first. ok is false when fewer than n bars
// are available up to that point.
func (p PriceData) TrailingCloses(end time.Time, n int) (closes []float64, ok bool) {
	idx := -1
	for i, b := range p.Bars {
		if b.Timestamp.After(end) {
			break
		}
		idx = i
	}
	if idx+1 < n {
		return nil, false
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = p.Bars[idx-n+1+i].Close
	}
	return out, true
}

// Position is an open holding in one symbol. Fractional quantities are
// allowed; there is no share-lot rounding in the core.
type Position struct {
	Symbol         string
	Quantity       float64
	EntryPrice     float64
	EntryTimestamp time.Time
	CurrentPrice   float64
}

func (p Position) MarketValue() float64 {
	return p.Quantity * p.CurrentPrice
}

// Trade is an immutable closed (or partially closed) round-trip record:
// a full close and a partial reduction each emit one, with Quantity the
// amount sold.
type Trade struct {
	Symbol         string
	EntryTimestamp time.Time
	ExitTimestamp  time.Time
	Quantity       float64
	EntryPrice     float64
	ExitPrice      float64
	PnL            float64
	PnLPercent     float64
	Commission     float64
	Slippage       float64
}

// SignalReason enumerates why a signal was emitted.
type SignalReason string

const (
	ReasonRelativeTop       SignalReason = "RELATIVE_TOP"
	ReasonDefensiveRotation SignalReason = "DEFENSIVE_ROTATION"
	ReasonHoldCash          SignalReason = "HOLD_CASH"
)

// Signal is one asset's allocation decision for a single rebalance.
type Signal struct {
	Symbol    string
	Direction int // +1, 0, -1; the core is long-only so -1 is unused.
	Strength  float64
	Reason    SignalReason
	Timestamp time.Time

	// Diagnostic fields, not consulted by downstream weighting logic.
	Momentum   float64
	Volatility float64
}

// HoldingSnapshot is one open symbol's contribution to a PositionSnapshot.
type HoldingSnapshot struct {
	Quantity float64
	Price    float64
	Value    float64
	Pct      float64
}

// PositionSnapshot is recorded every time-step for allocation history.
type PositionSnapshot struct {
	Timestamp      time.Time
	PortfolioValue float64
	Cash           float64
	Holdings       map[string]HoldingSnapshot
}

// TimestampedValue pairs a timestamp with a scalar, used for both the
// equity curve and the period-return series.
type TimestampedValue struct {
	Timestamp time.Time
	Value     float64
}

// BacktestResult is the terminal aggregate of one backtest run. Once
// produced it is read-only; the engine never aliases its internal
// mutable state (cash, positions map) into it.
type BacktestResult struct {
	RunID          string
	StrategyName   string
	Start          time.Time
	End            time.Time
	InitialCapital float64
	FinalCapital   float64

	Returns   []TimestampedValue
	Equity    []TimestampedValue
	Positions []PositionSnapshot
	Trades    []Trade

	Metrics  map[string]float64
	Metadata map[string]interface{}
	Warnings []string
}

func (r BacktestResult) TotalReturn() float64 {
	if r.InitialCapital == 0 {
		return 0
	}
	return r.FinalCapital/r.InitialCapital - 1
}
