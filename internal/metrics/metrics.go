// File: internal/metrics/metrics.go
// ============================================
package metrics

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"momentum-backtest/pkg/types"
)

const tradingDaysPerYear = 252

// PeriodReturns reduces an equity curve to its period-over-period
// percentage returns, indexed by the later timestamp of each pair.
// Accepts the engine's own equity series directly; a caller handed a
// one-column matrix instead of a sequence reduces it to this shape
// before calling Calculate (§4.5's "accept both" requirement lives at
// that boundary, not inside this package).
func PeriodReturns(equity []types.TimestampedValue) []types.TimestampedValue {
	if len(equity) < 2 {
		return nil
	}
	out := make([]types.TimestampedValue, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Value
		if prev == 0 {
			continue
		}
		out = append(out, types.TimestampedValue{
			Timestamp: equity[i].Timestamp,
			Value:     equity[i].Value/prev - 1,
		})
	}
	return out
}

// Calculate produces the full §4.5 metrics set. benchmark may be nil,
// in which case the benchmark-relative metrics are omitted.
func Calculate(equity, returns []types.TimestampedValue, trades []types.Trade, benchmark []types.TimestampedValue, cfg types.StrategyConfig) map[string]float64 {
	m := make(map[string]float64)
	if len(equity) == 0 {
		return m
	}

	addReturnMetrics(m, equity)
	addRiskMetrics(m, equity, returns, cfg.RiskFreeRate)
	addTradeStatistics(m, trades)
	if benchmark != nil {
		addBenchmarkMetrics(m, returns, benchmark)
	}
	return m
}

func addReturnMetrics(m map[string]float64, equity []types.TimestampedValue) {
	first, last := equity[0].Value, equity[len(equity)-1].Value
	if first == 0 {
		return
	}
	totalReturn := last/first - 1
	m["total_return"] = totalReturn

	n := len(equity) - 1
	if n > 0 {
		m["annualized_return"] = math.Pow(last/first, float64(tradingDaysPerYear)/float64(n)) - 1
	}

	years := equity[len(equity)-1].Timestamp.Sub(equity[0].Timestamp).Hours() / 24 / 365.25
	if years >= 1.0/365.25 {
		m["cagr"] = math.Pow(last/first, 1/years) - 1
	} else {
		m["cagr"] = 0
	}

	monthly := monthlyReturns(equity)
	if len(monthly) > 0 {
		best, worst := monthly[0], monthly[0]
		positive := 0
		for _, r := range monthly {
			if r > best {
				best = r
			}
			if r < worst {
				worst = r
			}
			if r > 0 {
				positive++
			}
		}
		m["best_month"] = best
		m["worst_month"] = worst
		m["positive_month_ratio"] = 100 * float64(positive) / float64(len(monthly))
	}
}

func addRiskMetrics(m map[string]float64, equity, returns []types.TimestampedValue, riskFreeRate float64) {
	values := valuesOf(returns)
	if len(values) == 0 {
		return
	}

	dailyMean := stat.Mean(values, nil)
	dailyStd := stat.StdDev(values, nil)
	annVol := dailyStd * math.Sqrt(tradingDaysPerYear)
	m["annualized_volatility"] = annVol

	annReturn, hasAnnReturn := m["annualized_return"]
	if hasAnnReturn && annVol > 0 {
		m["sharpe_ratio"] = (annReturn - riskFreeRate) / annVol
	}

	downside := downsideDeviation(values, dailyMean)
	if hasAnnReturn && downside > 0 {
		m["sortino_ratio"] = (annReturn - riskFreeRate) / (downside * math.Sqrt(tradingDaysPerYear))
	}

	maxDD, avgDD := drawdowns(equity)
	m["max_drawdown"] = maxDD
	m["average_drawdown"] = avgDD
	if hasAnnReturn && maxDD != 0 {
		m["calmar_ratio"] = annReturn / math.Abs(maxDD)
	}
}

func addBenchmarkMetrics(m map[string]float64, returns, benchmark []types.TimestampedValue) {
	benchReturns := PeriodReturns(benchmark)
	x, y := alignedSeries(benchReturns, returns)
	if len(x) < 2 {
		return
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	m["alpha"] = alpha * tradingDaysPerYear
	m["beta"] = beta
	m["correlation"] = stat.Correlation(x, y, nil)

	diffs := make([]float64, len(x))
	for i := range x {
		diffs[i] = y[i] - x[i]
	}
	trackingError := stat.StdDev(diffs, nil) * math.Sqrt(tradingDaysPerYear)
	m["tracking_error"] = trackingError
	if trackingError > 0 {
		m["information_ratio"] = stat.Mean(diffs, nil) * tradingDaysPerYear / trackingError
	}
}

func addTradeStatistics(m map[string]float64, trades []types.Trade) {
	if len(trades) == 0 {
		m["trade_count"] = 0
		return
	}
	m["trade_count"] = float64(len(trades))

	wins, totalPnL, grossProfit, grossLoss := 0, 0.0, 0.0, 0.0
	var totalHoldingDays float64
	for _, t := range trades {
		totalPnL += t.PnL
		if t.PnL > 0 {
			wins++
			grossProfit += t.PnL
		} else {
			grossLoss += -t.PnL
		}
		totalHoldingDays += t.ExitTimestamp.Sub(t.EntryTimestamp).Hours() / 24
	}
	m["win_rate"] = float64(wins) / float64(len(trades))
	m["average_pnl"] = totalPnL / float64(len(trades))
	m["average_holding_period_days"] = totalHoldingDays / float64(len(trades))
	if grossLoss > 0 {
		m["profit_factor"] = grossProfit / grossLoss
	} else if grossProfit > 0 {
		m["profit_factor"] = math.Inf(1)
	}
}

func valuesOf(series []types.TimestampedValue) []float64 {
	out := make([]float64, len(series))
	for i, v := range series {
		out[i] = v.Value
	}
	return out
}

func downsideDeviation(returns []float64, mean float64) float64 {
	sumSq, n := 0.0, 0
	for _, r := range returns {
		if r < 0 {
			sumSq += r * r
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sumSq / float64(n))
}

// drawdowns returns the maximum drawdown (most negative) and the
// average across every distinct drawdown episode, both expressed as
// negative fractions of the running peak.
func drawdowns(equity []types.TimestampedValue) (max, avg float64) {
	if len(equity) == 0 {
		return 0, 0
	}
	runningMax := equity[0].Value
	var episodeSum float64
	var episodeCount int
	inDrawdown := false
	episodeTrough := 0.0

	for _, e := range equity {
		if e.Value > runningMax {
			runningMax = e.Value
			if inDrawdown {
				episodeSum += episodeTrough
				episodeCount++
				inDrawdown = false
			}
			continue
		}
		if runningMax == 0 {
			continue
		}
		dd := (e.Value - runningMax) / runningMax
		if dd < max {
			max = dd
		}
		if !inDrawdown || dd < episodeTrough {
			episodeTrough = dd
		}
		inDrawdown = true
	}
	if inDrawdown {
		episodeSum += episodeTrough
		episodeCount++
	}
	if episodeCount > 0 {
		avg = episodeSum / float64(episodeCount)
	}
	return max, avg
}

// monthlyReturns resamples an equity curve to month-end values and
// returns the resulting month-over-month percentage changes.
func monthlyReturns(equity []types.TimestampedValue) []float64 {
	type key struct {
		year  int
		month time.Month
	}
	lastOfMonth := make(map[key]float64)
	var order []key
	for _, e := range equity {
		k := key{e.Timestamp.Year(), e.Timestamp.Month()}
		if _, seen := lastOfMonth[k]; !seen {
			order = append(order, k)
		}
		lastOfMonth[k] = e.Value
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].year != order[j].year {
			return order[i].year < order[j].year
		}
		return order[i].month < order[j].month
	})

	var out []float64
	for i := 1; i < len(order); i++ {
		prev := lastOfMonth[order[i-1]]
		if prev == 0 {
			continue
		}
		out = append(out, lastOfMonth[order[i]]/prev-1)
	}
	return out
}

// alignedSeries inner-joins two timestamped series on exact timestamp
// match, since the benchmark and strategy equity curves may not share
// every observation (a forward-fill gap on one side, for instance).
func alignedSeries(a, b []types.TimestampedValue) (x, y []float64) {
	byTime := make(map[time.Time]float64, len(a))
	for _, v := range a {
		byTime[v.Timestamp] = v.Value
	}
	for _, v := range b {
		if av, ok := byTime[v.Timestamp]; ok {
			x = append(x, av)
			y = append(y, v.Value)
		}
	}
	return x, y
}
