// File: internal/engine/engine.go
// ============================================
package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"momentum-backtest/internal/metrics"
	"momentum-backtest/internal/optimizer"
	"momentum-backtest/internal/signals"
	"momentum-backtest/pkg/types"
)

const defaultForwardFillMaxGapDays = 5

// Engine owns the single-threaded time loop described in §4.4: mark to
// market, snapshot, gate, signal, optimize, execute, in that order,
// once per trading day in the unified calendar. One Engine instance is
// one backtest run; nothing about it is safe for concurrent use, by
// design — the tuner gets concurrency by running one Engine per trial.
type Engine struct {
	Config   types.StrategyConfig
	Universe map[string]types.PriceData

	signalEngine *signals.Engine
	optimizer    *optimizer.Optimizer
	calendar     []time.Time

	Cash            float64
	Positions       map[string]types.Position
	PositionHistory []types.PositionSnapshot
	Trades          []types.Trade
	EquityCurve     []types.TimestampedValue
	LastRebalance   time.Time
	hasRebalanced   bool
	Warnings        []string
}

// New validates the configuration against the universe (§4.4.6) and
// builds the unified trading calendar as the sorted union of every
// symbol's observation timestamps.
func New(cfg types.StrategyConfig, universe map[string]types.PriceData) (*Engine, error) {
	if err := cfg.Validate(universe); err != nil {
		return nil, err
	}

	e := &Engine{
		Config:       cfg,
		Universe:     universe,
		signalEngine: signals.NewEngine(cfg),
		optimizer:    optimizer.New(cfg),
		Cash:         cfg.InitialCapital,
		Positions:    make(map[string]types.Position),
	}
	e.calendar = unifiedCalendar(universe)
	return e, nil
}

func unifiedCalendar(universe map[string]types.PriceData) []time.Time {
	seen := make(map[time.Time]bool)
	for _, pd := range universe {
		for _, b := range pd.Bars {
			seen[b.Timestamp] = true
		}
	}
	out := make([]time.Time, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Run steps through the unified calendar from first to last timestamp
// and returns the terminal result (§4.4.2). It never returns a non-nil
// error for ordinary in-loop failures (missing data, a failed
// rebalance, an unviable signal set) — those are appended to Warnings
// and the run continues, per §7's "partial failure is not fatal"
// posture for anything short of a configuration error.
func (e *Engine) Run(ctx context.Context) (types.BacktestResult, error) {
	if len(e.calendar) == 0 {
		return types.BacktestResult{}, &types.ConfigurationError{
			Field:   "price_data",
			Message: "universe has no observations",
			Remedy:  "provide at least one symbol with bars",
		}
	}

	for _, day := range e.calendar {
		value := e.markToMarket(day)
		e.recordSnapshot(day, value)
		e.EquityCurve = append(e.EquityCurve, types.TimestampedValue{Timestamp: day, Value: value})

		if ctx.Err() != nil {
			e.warn("backtest canceled at %s before rebalance", day.Format("2006-01-02"))
			break
		}

		if !e.shouldRebalance(day) {
			continue
		}

		sigs, err := e.signalEngine.Generate(e.Universe, day)
		if err != nil {
			e.warn("signal generation failed at %s: %v", day.Format("2006-01-02"), err)
			continue
		}

		weights, err := e.computeWeights(sigs, day)
		if err != nil {
			e.warn("optimization failed at %s: %v", day.Format("2006-01-02"), err)
			continue
		}

		value = e.markToMarket(day) // prices are unchanged; re-derive post any forward-fill updates
		if err := e.executeRebalance(day, weights, value); err != nil {
			e.warn("rebalance failed at %s: %v", day.Format("2006-01-02"), err)
			continue
		}
		e.LastRebalance = day
		e.hasRebalanced = true
	}

	return e.buildResult(), nil
}

func (e *Engine) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("engine: %s", msg)
	e.Warnings = append(e.Warnings, msg)
}

// markToMarket refreshes every open position's current price from the
// day's close (forward-filled within the tolerance) and returns the
// resulting portfolio value.
func (e *Engine) markToMarket(day time.Time) float64 {
	value := e.Cash
	for sym, pos := range e.Positions {
		if pd, ok := e.Universe[sym]; ok {
			if price, _, ok := pd.CloseAsOf(day, defaultForwardFillMaxGapDays); ok {
				pos.CurrentPrice = price
				e.Positions[sym] = pos
			}
		}
		value += e.Positions[sym].MarketValue()
	}
	return value
}

func (e *Engine) recordSnapshot(day time.Time, value float64) {
	holdings := make(map[string]types.HoldingSnapshot, len(e.Positions))
	for sym, pos := range e.Positions {
		mv := pos.MarketValue()
		pct := 0.0
		if value != 0 {
			pct = mv / value
		}
		holdings[sym] = types.HoldingSnapshot{Quantity: pos.Quantity, Price: pos.CurrentPrice, Value: mv, Pct: pct}
	}
	e.PositionHistory = append(e.PositionHistory, types.PositionSnapshot{
		Timestamp:      day,
		PortfolioValue: value,
		Cash:           e.Cash,
		Holdings:       holdings,
	})
}

func (e *Engine) hasRequiredHistory(day time.Time) bool {
	required := e.Config.RequiredHistory() + 1
	for sym, pd := range e.Universe {
		if sym == e.Config.SafeAsset {
			continue
		}
		if _, ok := pd.TrailingCloses(day, required); !ok {
			return false
		}
	}
	if e.Config.SafeAsset != "" {
		if pd, ok := e.Universe[e.Config.SafeAsset]; ok {
			if _, ok := pd.TrailingCloses(day, required); !ok {
				return false
			}
		}
	}
	return true
}

// computeWeights turns the signal engine's output into a full target
// weight map, folding in the §4.3 risky/safe split when fewer than
// position_count risky assets passed the filter.
func (e *Engine) computeWeights(sigs []types.Signal, day time.Time) (map[string]float64, error) {
	if len(sigs) == 0 {
		return map[string]float64{}, nil
	}
	if sigs[0].Reason == types.ReasonDefensiveRotation {
		return map[string]float64{sigs[0].Symbol: 1.0}, nil
	}

	k := len(sigs)
	riskShare := 1.0
	safeShare := 0.0
	if k < e.Config.PositionCount && e.Config.SafeAsset != "" {
		riskShare = float64(k) / float64(e.Config.PositionCount)
		safeShare = 1 - riskShare
	}

	returnsBySymbol := e.trailingReturns(sigs, day)
	result, err := e.optimizer.Optimize(sigs, returnsBySymbol, riskShare)
	if err != nil {
		return nil, err
	}

	weights := make(map[string]float64, len(result.Weights)+1)
	for sym, w := range result.Weights {
		weights[sym] = w
	}
	if safeShare > 0 {
		weights[e.Config.SafeAsset] += safeShare
	}
	return weights, nil
}

func (e *Engine) trailingReturns(sigs []types.Signal, day time.Time) map[string][]float64 {
	lookback := e.Config.OptimizationLookback
	if lookback < 2 {
		lookback = 2
	}
	out := make(map[string][]float64, len(sigs))
	for _, s := range sigs {
		pd, ok := e.Universe[s.Symbol]
		if !ok {
			continue
		}
		closes, ok := pd.TrailingCloses(day, lookback+1)
		if !ok {
			continue
		}
		rets := make([]float64, len(closes)-1)
		for i := 1; i < len(closes); i++ {
			if closes[i-1] == 0 {
				continue
			}
			rets[i-1] = closes[i]/closes[i-1] - 1
		}
		out[s.Symbol] = rets
	}
	return out
}

func (e *Engine) buildResult() types.BacktestResult {
	start, end := time.Time{}, time.Time{}
	if len(e.calendar) > 0 {
		start = e.calendar[0]
		end = e.calendar[len(e.calendar)-1]
	}

	finalCapital := e.Config.InitialCapital
	if len(e.EquityCurve) > 0 {
		finalCapital = e.EquityCurve[len(e.EquityCurve)-1].Value
	}

	var benchmarkSeries []types.TimestampedValue
	if e.Config.Benchmark != "" {
		series, err := e.computeBenchmark()
		if err != nil {
			e.warn("benchmark unavailable: %v", err)
		} else {
			benchmarkSeries = series
		}
	}

	periodReturns := metrics.PeriodReturns(e.EquityCurve)
	m := metrics.Calculate(e.EquityCurve, periodReturns, e.Trades, benchmarkSeries, e.Config)

	return types.BacktestResult{
		RunID:          uuid.NewString(),
		StrategyName:   e.Config.StrategyName,
		Start:          start,
		End:            end,
		InitialCapital: e.Config.InitialCapital,
		FinalCapital:   finalCapital,
		Returns:        periodReturns,
		Equity:         e.EquityCurve,
		Positions:      e.PositionHistory,
		Trades:         e.Trades,
		Metrics:        m,
		Metadata: map[string]interface{}{
			"benchmark_mode": string(e.Config.BenchmarkMode),
			"optimization":   string(e.Config.OptimizationMethod),
		},
		Warnings: e.Warnings,
	}
}
