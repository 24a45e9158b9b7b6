// File: internal/engine/benchmark.go
// ============================================
package engine

import (
	"fmt"

	"momentum-backtest/pkg/types"
)

// computeBenchmark indexes the configured benchmark symbol to
// initial_capital on the first calendar date (§4.4.5). In realistic
// mode it applies a one-time entry cost on day one and a one-time exit
// cost on the last day; passive mode applies neither.
func (e *Engine) computeBenchmark() ([]types.TimestampedValue, error) {
	pd, ok := e.Universe[e.Config.Benchmark]
	if !ok {
		return nil, &types.DataUnavailableError{Symbol: e.Config.Benchmark, Reason: "benchmark symbol not present in price data"}
	}

	var series []types.TimestampedValue
	var basePrice float64
	oneTimeCost := 0.0
	if e.Config.BenchmarkMode == types.BenchmarkRealistic {
		oneTimeCost = e.Config.Commission + e.Config.Slippage
	}

	for i, day := range e.calendar {
		price, _, ok := pd.CloseAsOf(day, defaultForwardFillMaxGapDays)
		if !ok {
			continue
		}
		if basePrice == 0 {
			basePrice = price
		}
		// The entry cost is paid once, but it shrinks the holding bought on
		// day one, so it scales every later value too.
		value := e.Config.InitialCapital * (price / basePrice) * (1 - oneTimeCost)
		if e.Config.BenchmarkMode == types.BenchmarkRealistic && i == len(e.calendar)-1 {
			value *= 1 - oneTimeCost
		}
		series = append(series, types.TimestampedValue{Timestamp: day, Value: value})
	}
	if basePrice == 0 {
		return nil, fmt.Errorf("no usable observations for benchmark %q", e.Config.Benchmark)
	}
	return series, nil
}
