// File: internal/datasource/memory.go
// ============================================
package datasource

import (
	"context"
	"time"

	"momentum-backtest/pkg/types"
)

// MemorySource wraps a universe already resident in memory. It is the
// "pinned in memory, no I/O in the time loop" collaborator the engine
// assumes (§5). The engine's own tests build their price-data map
// directly, and cmd/backtest uses CSVSource.
type MemorySource struct {
	data map[string]types.PriceData
}

// NewMemorySource builds a MemorySource over a fixed symbol -> price
// history map. Callers should not mutate the maps or slices handed in
// afterward; MemorySource keeps the reference, not a copy.
func NewMemorySource(data map[string]types.PriceData) *MemorySource {
	return &MemorySource{data: data}
}

func (s *MemorySource) Fetch(ctx context.Context, symbol string, start, end time.Time, timeframe types.Timeframe) (types.PriceData, error) {
	pd, ok := s.data[symbol]
	if !ok {
		return types.PriceData{}, &types.DataUnavailableError{Symbol: symbol, Reason: "symbol not found in memory source"}
	}
	return sliceRange(pd, start, end), nil
}

func (s *MemorySource) FetchMultiple(ctx context.Context, symbols []string, start, end time.Time, timeframe types.Timeframe) (map[string]types.PriceData, error) {
	out := make(map[string]types.PriceData, len(symbols))
	for _, sym := range symbols {
		if pd, ok := s.data[sym]; ok {
			out[sym] = sliceRange(pd, start, end)
		}
	}
	return out, nil
}

func (s *MemorySource) GetDataRange(ctx context.Context, symbol string) (time.Time, time.Time, error) {
	pd, ok := s.data[symbol]
	if !ok {
		return time.Time{}, time.Time{}, &types.DataUnavailableError{Symbol: symbol, Reason: "symbol not found in memory source"}
	}
	return pd.Inception(), pd.Latest(), nil
}

func sliceRange(pd types.PriceData, start, end time.Time) types.PriceData {
	var bars []types.OHLCVBar
	for _, b := range pd.Bars {
		if !start.IsZero() && b.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && b.Timestamp.After(end) {
			continue
		}
		bars = append(bars, b)
	}
	return types.NewPriceData(pd.Symbol, pd.AssetClass, pd.Timezone, bars)
}
