// File: internal/report/printer.go
// ============================================
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"momentum-backtest/internal/tuner"
	"momentum-backtest/pkg/types"
)

// Printer renders BacktestResult and tuner.Result summaries as
// human-readable text, the role the teacher's Notifier filled for
// trade alerts — but writing to an io.Writer instead of calling out to
// a chat API, since result delivery is this module's own business.
type Printer struct {
	out io.Writer
}

// NewPrinter builds a Printer writing to out (typically os.Stdout).
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// PrintBacktest writes a one-screen summary of a completed run.
func (p *Printer) PrintBacktest(result types.BacktestResult) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>BACKTEST SUMMARY</b> — %s\n", result.StrategyName))
	b.WriteString(strings.Repeat("━", 48) + "\n\n")

	b.WriteString(fmt.Sprintf("🗓  Period: %s → %s\n", result.Start.Format("2006-01-02"), result.End.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("💰 Initial Capital: $%.2f\n", result.InitialCapital))
	b.WriteString(fmt.Sprintf("💵 Final Capital:   $%.2f\n", result.FinalCapital))
	b.WriteString(fmt.Sprintf("📈 Total Return:    %.2f%%\n\n", result.TotalReturn()*100))

	b.WriteString("<b>📋 RISK & RETURN METRICS</b>\n")
	for _, key := range orderedMetricKeys(result.Metrics) {
		b.WriteString(fmt.Sprintf("  %-28s %10.4f\n", key, result.Metrics[key]))
	}

	if len(result.Trades) > 0 {
		b.WriteString(fmt.Sprintf("\n🔁 Trades: %d\n", len(result.Trades)))
	}

	if len(result.Warnings) > 0 {
		b.WriteString("\n⚠️ <b>WARNINGS</b>\n")
		for _, w := range result.Warnings {
			b.WriteString(fmt.Sprintf("  - %s\n", w))
		}
	}

	b.WriteString("\n" + strings.Repeat("━", 48) + "\n")
	fmt.Fprint(p.out, b.String())
}

// PrintTuning writes a summary of a completed hyperparameter sweep.
func (p *Printer) PrintTuning(result tuner.Result) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔬 <b>TUNING SUMMARY</b> — %s search, %d trials\n", result.Method, len(result.Trials)))
	b.WriteString(strings.Repeat("━", 48) + "\n\n")

	failed := 0
	for _, tr := range result.Trials {
		if tr.Err != nil {
			failed++
		}
	}
	b.WriteString(fmt.Sprintf("✅ Completed: %d   ❌ Failed: %d\n", len(result.Trials)-failed, failed))
	b.WriteString(fmt.Sprintf("⏱  Wall clock: %s\n\n", result.WallClock.Round(1000000)))

	b.WriteString("<b>🏆 BEST PARAMETERS</b>\n")
	for _, k := range sortedKeys(result.BestParams) {
		b.WriteString(fmt.Sprintf("  %-24s %v\n", k, result.BestParams[k]))
	}
	b.WriteString(fmt.Sprintf("\n🎯 Best score: %.6f\n", result.BestScore))
	b.WriteString(strings.Repeat("━", 48) + "\n")
	fmt.Fprint(p.out, b.String())
}

func orderedMetricKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
