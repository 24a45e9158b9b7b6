// File: internal/engine/execution_test.go
// ============================================
package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momentum-backtest/pkg/types"
)

func flatPriceData(symbol string, price float64, day time.Time) types.PriceData {
	return types.NewPriceData(symbol, "equity", "UTC", []types.OHLCVBar{
		{Timestamp: day, Open: price, High: price, Low: price, Close: price, Volume: 1000},
	})
}

// TestExecuteRebalanceSellsBeforeBuysWithCashShortfall mirrors spec.md §8
// Scenario 2: holdings {X:30%,Y:30%,Z:40%} on a 100,000 portfolio rebalance
// into {W:30%,X:30%,Y:40%}. Z must be fully closed, the sale proceeds must
// fund the new buys before any buy is attempted, and a buy that still can't
// be fully funded must be scaled down rather than driving cash negative.
func TestExecuteRebalanceSellsBeforeBuysWithCashShortfall(t *testing.T) {
	t.Parallel()
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	entry := day.AddDate(0, 0, -30)

	eng := &Engine{
		Config: types.StrategyConfig{Commission: 0.001, Slippage: 0},
		Universe: map[string]types.PriceData{
			"W": flatPriceData("W", 100, day),
			"X": flatPriceData("X", 100, day),
			"Y": flatPriceData("Y", 100, day),
			"Z": flatPriceData("Z", 100, day),
		},
		Cash: 0,
		Positions: map[string]types.Position{
			"X": {Symbol: "X", Quantity: 300, EntryPrice: 100, EntryTimestamp: entry, CurrentPrice: 100},
			"Y": {Symbol: "Y", Quantity: 300, EntryPrice: 100, EntryTimestamp: entry, CurrentPrice: 100},
			"Z": {Symbol: "Z", Quantity: 400, EntryPrice: 100, EntryTimestamp: entry, CurrentPrice: 100},
		},
	}

	weights := map[string]float64{"W": 0.3, "X": 0.3, "Y": 0.4}
	err := eng.executeRebalance(day, weights, 100000)
	require.NoError(t, err)

	_, stillHeld := eng.Positions["Z"]
	assert.False(t, stillHeld, "Z should be fully closed, not held")
	require.Len(t, eng.Trades, 1, "Z is the only position sold, so only Z emits a trade record")
	assert.Equal(t, "Z", eng.Trades[0].Symbol)

	// W is bought in full only because Z's sale proceeds were already in
	// cash by the time buys ran — proof sells executed before buys.
	wPos, ok := eng.Positions["W"]
	require.True(t, ok)
	assert.InDelta(t, 300.0, wPos.Quantity, 1e-6)

	// X needed no trade: it was already at its target weight.
	xPos, ok := eng.Positions["X"]
	require.True(t, ok)
	assert.InDelta(t, 300.0, xPos.Quantity, 1e-6)

	// Y's increase is scaled down by the remaining cash shortfall rather
	// than left unfilled or driving cash negative.
	yPos, ok := eng.Positions["Y"]
	require.True(t, ok)
	assert.Less(t, yPos.Quantity, 400.0)
	assert.GreaterOrEqual(t, yPos.Quantity, 300.0)

	assert.GreaterOrEqual(t, eng.Cash, -1e-6)
	assert.Less(t, eng.Cash, 1000.0, "final cash should be under 1% of the 100,000 portfolio")
}
