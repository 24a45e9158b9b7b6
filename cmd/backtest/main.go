// File: cmd/backtest/main.go
// ============================================
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"momentum-backtest/internal/datasource"
	"momentum-backtest/internal/engine"
	"momentum-backtest/internal/report"
	"momentum-backtest/pkg/types"
)

// appConfig is the demo binary's own wiring config — which symbols to
// load and from where — kept separate from types.StrategyConfig, which
// is the reusable library's own tunable surface.
type appConfig struct {
	Strategy types.StrategyConfig `yaml:"strategy"`
	DataDir  string               `yaml:"data_dir"`
	Symbols  []string             `yaml:"symbols"`
	Start    string               `yaml:"start"`
	End      string               `yaml:"end"`
}

// Runner owns the wiring for one demo backtest invocation: load config,
// build a data source, run the engine, print the report. Mirrors the
// teacher's Bot in shape — a constructor that loads config and builds
// collaborators, plus a Run method — generalized from "poll an exchange
// forever" to "run once over historical data".
type Runner struct {
	config  appConfig
	source  types.DataSource
	printer *report.Printer
}

// NewRunner loads configPath, applies any .env overrides the teacher's
// convention expects, and builds the CSV-backed data source.
func NewRunner(configPath string) (*Runner, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: .env file not found, using config values")
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg appConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if dir := os.Getenv("BACKTEST_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	if cfg.Strategy.BenchmarkIncludeCosts {
		cfg.Strategy.BenchmarkMode = types.BenchmarkRealistic
	} else {
		cfg.Strategy.BenchmarkMode = types.BenchmarkPassive
	}

	src, err := datasource.NewCSVSource(cfg.DataDir, cfg.Symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to load price data: %w", err)
	}

	return &Runner{config: cfg, source: src, printer: report.NewPrinter(os.Stdout)}, nil
}

// Run fetches the configured universe, runs one backtest, and prints
// the result.
func (r *Runner) Run(ctx context.Context) error {
	start, end, err := r.dateRange()
	if err != nil {
		return err
	}

	universe, err := r.source.FetchMultiple(ctx, r.config.Symbols, start, end, types.TimeframeDaily)
	if err != nil {
		return fmt.Errorf("failed to fetch universe: %w", err)
	}
	for _, sym := range r.config.Symbols {
		if _, ok := universe[sym]; !ok {
			log.Printf("warning: %s missing from loaded universe, proceeding without it", sym)
		}
	}

	log.Printf("running backtest %q over %d symbols from %s to %s",
		r.config.Strategy.StrategyName, len(universe), start.Format("2006-01-02"), end.Format("2006-01-02"))

	bt, err := engine.New(r.config.Strategy, universe)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	result, err := bt.Run(ctx)
	if err != nil {
		return fmt.Errorf("backtest run failed: %w", err)
	}

	r.printer.PrintBacktest(result)
	return nil
}

func (r *Runner) dateRange() (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", r.config.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", r.config.Start, err)
	}
	end, err := time.Parse("2006-01-02", r.config.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", r.config.End, err)
	}
	return start, end, nil
}

func main() {
	runner, err := NewRunner("config/config.yaml")
	if err != nil {
		log.Fatalf("failed to start backtest runner: %v", err)
	}

	if err := runner.Run(context.Background()); err != nil {
		log.Fatalf("backtest failed: %v", err)
	}
}
