// File: internal/engine/execution.go
// ============================================
package engine

import (
	"sort"
	"time"

	"momentum-backtest/pkg/types"
)

type rebalanceAction struct {
	symbol    string
	targetQty float64
	price     float64
}

// executeRebalance classifies every symbol touched by this rebalance
// (signaled, currently held, or both) into a sell or a buy, then runs
// all sells before any buy (§4.4.4) so that proceeds from closed
// positions are available to fund new ones.
func (e *Engine) executeRebalance(day time.Time, weights map[string]float64, portfolioValue float64) error {
	prices := e.resolvePrices(day, weights)

	symbols := make(map[string]bool, len(weights)+len(e.Positions))
	for sym := range weights {
		symbols[sym] = true
	}
	for sym := range e.Positions {
		symbols[sym] = true
	}

	var sells, buys []rebalanceAction
	for sym := range symbols {
		price, ok := prices[sym]
		if !ok || price <= 0 {
			continue
		}
		targetWeight := weights[sym] // zero value if absent -> full close
		targetQty := portfolioValue * targetWeight / price

		currentQty := 0.0
		if pos, ok := e.Positions[sym]; ok {
			currentQty = pos.Quantity
		}

		switch {
		case targetQty < currentQty-1e-12:
			sells = append(sells, rebalanceAction{sym, targetQty, price})
		case targetQty > currentQty+1e-12:
			buys = append(buys, rebalanceAction{sym, targetQty, price})
		}
	}

	sort.Slice(sells, func(i, j int) bool { return sells[i].symbol < sells[j].symbol })
	sort.Slice(buys, func(i, j int) bool { return buys[i].symbol < buys[j].symbol })

	for _, a := range sells {
		e.executeSell(day, a)
	}
	for _, a := range buys {
		e.executeBuy(day, a)
	}

	if e.Cash < -1e-6 {
		return &types.RebalanceFailedError{Timestamp: day.Format(time.RFC3339), Reason: "cash balance went negative during execution"}
	}
	return nil
}

func (e *Engine) resolvePrices(day time.Time, weights map[string]float64) map[string]float64 {
	prices := make(map[string]float64, len(weights)+len(e.Positions))
	lookup := func(sym string) {
		if _, have := prices[sym]; have {
			return
		}
		pd, ok := e.Universe[sym]
		if !ok {
			return
		}
		if price, _, ok := pd.CloseAsOf(day, defaultForwardFillMaxGapDays); ok {
			prices[sym] = price
		}
	}
	for sym := range weights {
		lookup(sym)
	}
	for sym := range e.Positions {
		lookup(sym)
	}
	return prices
}

// executeSell reduces or closes a position. Every sell emits a Trade
// record for the quantity sold; a full close (target quantity
// effectively zero) also removes the position.
func (e *Engine) executeSell(day time.Time, a rebalanceAction) {
	pos, ok := e.Positions[a.symbol]
	if !ok {
		return
	}
	deltaQty := pos.Quantity - a.targetQty
	if deltaQty <= 0 {
		return
	}

	execPrice := a.price * (1 - e.Config.Slippage)
	notional := deltaQty * execPrice
	commission := notional * e.Config.Commission
	e.Cash += notional - commission

	e.Trades = append(e.Trades, types.Trade{
		Symbol:         a.symbol,
		EntryTimestamp: pos.EntryTimestamp,
		ExitTimestamp:  day,
		Quantity:       deltaQty,
		EntryPrice:     pos.EntryPrice,
		ExitPrice:      execPrice,
		PnL:            (execPrice-pos.EntryPrice)*deltaQty - commission,
		PnLPercent:     execPrice/pos.EntryPrice - 1,
		Commission:     commission,
		Slippage:       deltaQty * a.price * e.Config.Slippage,
	})

	if a.targetQty <= 1e-9 {
		delete(e.Positions, a.symbol)
		return
	}

	pos.Quantity = a.targetQty
	pos.CurrentPrice = a.price
	e.Positions[a.symbol] = pos
}

// executeBuy opens or increases a position. If cash is insufficient for
// the full target quantity, it buys as much as cash allows rather than
// going negative (§4.4.4 step 4).
func (e *Engine) executeBuy(day time.Time, a rebalanceAction) {
	pos, existed := e.Positions[a.symbol]
	currentQty := 0.0
	if existed {
		currentQty = pos.Quantity
	}
	deltaQty := a.targetQty - currentQty
	if deltaQty <= 0 {
		return
	}

	execPrice := a.price * (1 + e.Config.Slippage)
	notional := deltaQty * execPrice
	commission := notional * e.Config.Commission
	required := notional + commission

	if required > e.Cash {
		if e.Cash <= 0 {
			return
		}
		affordableNotional := e.Cash / (1 + e.Config.Commission)
		deltaQty = affordableNotional / execPrice
		notional = deltaQty * execPrice
		commission = notional * e.Config.Commission
		required = notional + commission
	}
	if deltaQty <= 0 {
		return
	}

	e.Cash -= required
	newQty := currentQty + deltaQty

	if existed {
		totalCost := pos.EntryPrice*pos.Quantity + notional
		pos.EntryPrice = totalCost / newQty
		pos.Quantity = newQty
		pos.CurrentPrice = a.price
		e.Positions[a.symbol] = pos
		return
	}
	e.Positions[a.symbol] = types.Position{
		Symbol:         a.symbol,
		Quantity:       newQty,
		EntryPrice:     execPrice,
		EntryTimestamp: day,
		CurrentPrice:   a.price,
	}
}
