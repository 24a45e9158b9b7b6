// File: internal/engine/gate.go
// ============================================
package engine

import (
	"time"

	"momentum-backtest/pkg/types"
)

// shouldRebalance implements the §4.4.3 gate table. The very first
// rebalance is forced once every symbol in the universe has at least
// required_history + 1 closes (enough for required_history returns);
// every later rebalance follows the configured frequency.
func (e *Engine) shouldRebalance(day time.Time) bool {
	if !e.hasRebalanced {
		return e.hasRequiredHistory(day)
	}
	return meetsFrequency(e.Config, day, e.LastRebalance)
}

func meetsFrequency(cfg types.StrategyConfig, current, last time.Time) bool {
	switch cfg.RebalanceFrequency {
	case "", types.FrequencyDaily:
		return true
	case types.FrequencyWeekly:
		return daysBetween(current, last) >= 7
	case types.FrequencyMonthly:
		return current.Year() != last.Year() || current.Month() != last.Month()
	case types.FrequencyQuarterly:
		return current.Year() != last.Year() || quarterOf(current) != quarterOf(last)
	case types.FrequencyYearly:
		return current.Year() != last.Year()
	case types.FrequencyCustom:
		offset, err := types.ParseCustomOffset(cfg.CustomRebalanceOffset)
		if err != nil {
			return false
		}
		return meetsCustomOffset(current, last, offset)
	}
	return false
}

func meetsCustomOffset(current, last time.Time, offset types.CustomOffset) bool {
	switch offset.Unit {
	case types.CustomUnitDays:
		return daysBetween(current, last) >= offset.N
	case types.CustomUnitWeeks:
		return daysBetween(current, last) >= offset.N*7
	case types.CustomUnitMonths:
		months := (current.Year()-last.Year())*12 + int(current.Month()) - int(last.Month())
		return months >= offset.N
	}
	return false
}

func quarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

func daysBetween(current, last time.Time) int {
	return int(current.Sub(last).Hours() / 24)
}
