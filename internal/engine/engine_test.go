// File: internal/engine/engine_test.go
// ============================================
package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momentum-backtest/pkg/types"
)

func barsRising(start float64, days int, dailyPct float64, t0 time.Time) []types.OHLCVBar {
	bars := make([]types.OHLCVBar, days)
	price := start
	for i := 0; i < days; i++ {
		bars[i] = types.OHLCVBar{Timestamp: t0.AddDate(0, 0, i), Open: price, High: price, Low: price, Close: price, Volume: 1000}
		price *= 1 + dailyPct
	}
	return bars
}

func testUniverse(t0 time.Time, days int) map[string]types.PriceData {
	return map[string]types.PriceData{
		"A": types.NewPriceData("A", "equity", "UTC", barsRising(100, days, 0.001, t0)),
		"B": types.NewPriceData("B", "equity", "UTC", barsRising(100, days, 0.0005, t0)),
		"S": types.NewPriceData("S", "equity", "UTC", barsRising(50, days, 0.0001, t0)),
	}
}

func baseConfig() types.StrategyConfig {
	return types.StrategyConfig{
		StrategyName:         "test-strategy",
		LookbackPeriod:       20,
		RebalanceFrequency:   types.FrequencyMonthly,
		PositionCount:        2,
		AbsoluteThreshold:    0,
		StrengthMethod:       types.StrengthBinary,
		SafeAsset:            "S",
		OptimizationMethod:   types.OptimizationEqualWeight,
		OptimizationLookback: 20,
		WeightMin:            0,
		WeightMax:            1,
		InitialCapital:       100000,
		Commission:           0.001,
		Slippage:             0.0005,
	}
}

func TestEngineRunProducesPositiveFinalCapitalAndNoNegativeCash(t *testing.T) {
	t.Parallel()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	universe := testUniverse(t0, 250)

	eng, err := New(baseConfig(), universe)
	require.NoError(t, err)

	result, err := eng.Run(context.Background())
	require.NoError(t, err)

	assert.Greater(t, result.FinalCapital, 0.0)
	assert.GreaterOrEqual(t, eng.Cash, -1e-6)
	assert.NotEmpty(t, result.Equity)
	assert.Equal(t, result.InitialCapital, 100000.0)
}

func TestEngineRejectsMissingSafeAsset(t *testing.T) {
	t.Parallel()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	universe := testUniverse(t0, 60)
	delete(universe, "S")

	cfg := baseConfig()
	_, err := New(cfg, universe)
	require.Error(t, err)
	var configErr *types.ConfigurationError
	assert.ErrorAs(t, err, &configErr)
}

func TestEngineFirstRebalanceWaitsForRequiredHistory(t *testing.T) {
	t.Parallel()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	universe := testUniverse(t0, 100)

	cfg := baseConfig()
	eng, err := New(cfg, universe)
	require.NoError(t, err)

	_, err = eng.Run(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, eng.PositionHistory)
	firstDaysWithoutPositions := 0
	for _, snap := range eng.PositionHistory {
		if len(snap.Holdings) == 0 {
			firstDaysWithoutPositions++
			continue
		}
		break
	}
	assert.GreaterOrEqual(t, firstDaysWithoutPositions, cfg.LookbackPeriod)
}

func TestEngineWithoutSafeAssetHoldsCashWhenAllFail(t *testing.T) {
	t.Parallel()
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	universe := map[string]types.PriceData{
		"A": types.NewPriceData("A", "equity", "UTC", barsRising(100, 100, -0.002, t0)),
		"B": types.NewPriceData("B", "equity", "UTC", barsRising(100, 100, -0.001, t0)),
	}
	cfg := baseConfig()
	cfg.SafeAsset = ""
	eng, err := New(cfg, universe)
	require.NoError(t, err)

	result, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 100000, result.FinalCapital, 1e-6)
}
