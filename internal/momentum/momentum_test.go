// File: internal/momentum/momentum_test.go
// ============================================
package momentum

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momentum-backtest/pkg/types"
)

func barsFromCloses(closes []float64, start time.Time) []types.OHLCVBar {
	bars := make([]types.OHLCVBar, len(closes))
	for i, c := range closes {
		ts := start.AddDate(0, 0, i)
		bars[i] = types.OHLCVBar{Timestamp: ts, Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return bars
}

func TestComputeSimpleMomentum(t *testing.T) {
	t.Parallel()
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	closes := []float64{100, 105, 110, 115, 121}
	pd := types.NewPriceData("A", "equity", "UTC", barsFromCloses(closes, start))

	c := NewCalculator(1, false)
	result, err := c.Compute(pd, start.AddDate(0, 0, 4))
	require.NoError(t, err)
	assert.InDelta(t, 121.0/115.0-1, result.Score, 1e-9)
}

func TestComputeInsufficientHistory(t *testing.T) {
	t.Parallel()
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	closes := []float64{100, 105}
	pd := types.NewPriceData("A", "equity", "UTC", barsFromCloses(closes, start))

	c := NewCalculator(10, false)
	_, err := c.Compute(pd, start.AddDate(0, 0, 1))
	require.Error(t, err)
	var insufficient *types.InsufficientHistoryError
	assert.ErrorAs(t, err, &insufficient)
}

func TestComputeVolatilityAdjusted(t *testing.T) {
	t.Parallel()
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	closes := []float64{100, 101, 99, 103, 97, 108, 95, 112, 93, 118, 100}
	pd := types.NewPriceData("A", "equity", "UTC", barsFromCloses(closes, start))

	plain := NewCalculator(10, false)
	plainResult, err := plain.Compute(pd, start.AddDate(0, 0, 10))
	require.NoError(t, err)

	adjusted := NewCalculator(10, true)
	adjResult, err := adjusted.Compute(pd, start.AddDate(0, 0, 10))
	require.NoError(t, err)

	assert.Greater(t, adjResult.Volatility, 0.0)
	assert.NotEqual(t, plainResult.Score, adjResult.Score)
}

func TestComputeLeadingEdgeMissingFails(t *testing.T) {
	t.Parallel()
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := barsFromCloses([]float64{100, 101, 102, 103, 104}, start)
	bars[0].Close = 0 // leading edge unusable
	pd := types.NewPriceData("A", "equity", "UTC", bars)

	c := NewCalculator(4, false)
	_, err := c.Compute(pd, start.AddDate(0, 0, 4))
	require.Error(t, err)
}
