// File: internal/signals/engine_test.go
// ============================================
package signals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momentum-backtest/pkg/types"
)

func flatSeries(symbol string, closes []float64, start time.Time) types.PriceData {
	bars := make([]types.OHLCVBar, len(closes))
	for i, c := range closes {
		ts := start.AddDate(0, 0, i)
		bars[i] = types.OHLCVBar{Timestamp: ts, Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return types.NewPriceData(symbol, "equity", "UTC", bars)
}

func risingSeries(symbol string, start float64, days int, dailyPct float64, t0 time.Time) types.PriceData {
	closes := make([]float64, days)
	price := start
	for i := 0; i < days; i++ {
		closes[i] = price
		price *= 1 + dailyPct
	}
	return flatSeries(symbol, closes, t0)
}

func TestDefensiveRotationWhenAllAssetsFail(t *testing.T) {
	t.Parallel()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	universe := map[string]types.PriceData{
		"A": risingSeries("A", 100, 30, -0.002, t0),
		"B": risingSeries("B", 100, 30, -0.003, t0),
		"S": risingSeries("S", 50, 30, 0.0001, t0),
	}

	cfg := types.StrategyConfig{
		LookbackPeriod:    10,
		PositionCount:     2,
		AbsoluteThreshold: 0,
		StrengthMethod:    types.StrengthBinary,
		SafeAsset:         "S",
	}
	eng := NewEngine(cfg)
	signals, err := eng.Generate(universe, t0.AddDate(0, 0, 29))
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, "S", signals[0].Symbol)
	assert.Equal(t, 1.0, signals[0].Strength)
	assert.Equal(t, types.ReasonDefensiveRotation, signals[0].Reason)
}

func TestHoldCashWhenNoSafeAsset(t *testing.T) {
	t.Parallel()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	universe := map[string]types.PriceData{
		"A": risingSeries("A", 100, 30, -0.002, t0),
	}
	cfg := types.StrategyConfig{LookbackPeriod: 10, PositionCount: 1, AbsoluteThreshold: 0, StrengthMethod: types.StrengthBinary}
	eng := NewEngine(cfg)
	signals, err := eng.Generate(universe, t0.AddDate(0, 0, 29))
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestRelativeTopSelectsTopPositionCount(t *testing.T) {
	t.Parallel()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	universe := map[string]types.PriceData{
		"A": risingSeries("A", 100, 30, 0.01, t0),
		"B": risingSeries("B", 100, 30, 0.02, t0),
		"C": risingSeries("C", 100, 30, 0.005, t0),
	}
	cfg := types.StrategyConfig{LookbackPeriod: 10, PositionCount: 2, AbsoluteThreshold: 0, StrengthMethod: types.StrengthBinary}
	eng := NewEngine(cfg)
	signals, err := eng.Generate(universe, t0.AddDate(0, 0, 29))
	require.NoError(t, err)
	require.Len(t, signals, 2)
	symbols := []string{signals[0].Symbol, signals[1].Symbol}
	assert.Contains(t, symbols, "B")
	assert.Contains(t, symbols, "A")
	assert.NotContains(t, symbols, "C")
}

func TestLinearStrengthThresholdIndependence(t *testing.T) {
	t.Parallel()
	excess := 0.05
	scaleRange := 0.1

	selectedA := []riskyScore{{symbol: "X", momentum: 0.2 + excess}}
	strengthsA, err := strengthFor(types.StrengthLinear, selectedA, 0.2, scaleRange)
	require.NoError(t, err)

	selectedB := []riskyScore{{symbol: "Y", momentum: 0 + excess}}
	strengthsB, err := strengthFor(types.StrengthLinear, selectedB, 0, scaleRange)
	require.NoError(t, err)

	assert.InDelta(t, strengthsA[0], strengthsB[0], 1e-12)
}

func TestProportionalStrengthSumsToOne(t *testing.T) {
	t.Parallel()
	selected := []riskyScore{
		{symbol: "A", momentum: 0.1},
		{symbol: "B", momentum: 0.3},
		{symbol: "C", momentum: 0.05},
	}
	strengths, err := strengthFor(types.StrengthProportional, selected, 0, 0)
	require.NoError(t, err)
	sum := 0.0
	for _, s := range strengths {
		sum += s
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestMomentumRatioStrengthLeaderIsOne(t *testing.T) {
	t.Parallel()
	selected := []riskyScore{
		{symbol: "A", momentum: 0.1},
		{symbol: "B", momentum: 0.3},
	}
	strengths, err := strengthFor(types.StrengthMomentumRatio, selected, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, strengths[1], 1e-9)
	assert.InDelta(t, 1.0/3.0, strengths[0], 1e-9)
}
