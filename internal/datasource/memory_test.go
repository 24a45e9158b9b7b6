// File: internal/datasource/memory_test.go
// ============================================
package datasource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momentum-backtest/pkg/types"
)

func sampleBars(t0 time.Time, days int) []types.OHLCVBar {
	bars := make([]types.OHLCVBar, days)
	for i := 0; i < days; i++ {
		price := 100 + float64(i)
		bars[i] = types.OHLCVBar{Timestamp: t0.AddDate(0, 0, i), Open: price, High: price, Low: price, Close: price, Volume: 1000}
	}
	return bars
}

func TestMemorySourceFetchSlicesToRange(t *testing.T) {
	t.Parallel()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	src := NewMemorySource(map[string]types.PriceData{
		"A": types.NewPriceData("A", "equity", "UTC", sampleBars(t0, 30)),
	})

	pd, err := src.Fetch(context.Background(), "A", t0.AddDate(0, 0, 10), t0.AddDate(0, 0, 15), types.TimeframeDaily)
	require.NoError(t, err)
	assert.Len(t, pd.Bars, 6)
	assert.Equal(t, t0.AddDate(0, 0, 10), pd.Bars[0].Timestamp)
}

func TestMemorySourceFetchUnknownSymbolErrors(t *testing.T) {
	t.Parallel()
	src := NewMemorySource(map[string]types.PriceData{})
	_, err := src.Fetch(context.Background(), "ZZZ", time.Time{}, time.Time{}, types.TimeframeDaily)
	require.Error(t, err)
	var dataErr *types.DataUnavailableError
	assert.ErrorAs(t, err, &dataErr)
}

func TestMemorySourceFetchMultipleSkipsMissingSymbols(t *testing.T) {
	t.Parallel()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	src := NewMemorySource(map[string]types.PriceData{
		"A": types.NewPriceData("A", "equity", "UTC", sampleBars(t0, 10)),
	})

	out, err := src.FetchMultiple(context.Background(), []string{"A", "MISSING"}, time.Time{}, time.Time{}, types.TimeframeDaily)
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Contains(t, out, "A")
}

func TestMemorySourceGetDataRange(t *testing.T) {
	t.Parallel()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	src := NewMemorySource(map[string]types.PriceData{
		"A": types.NewPriceData("A", "equity", "UTC", sampleBars(t0, 10)),
	})

	start, end, err := src.GetDataRange(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, t0, start)
	assert.Equal(t, t0.AddDate(0, 0, 9), end)
}
