// File: internal/datasource/csv.go
// ============================================
package datasource

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"momentum-backtest/pkg/types"
)

// CSVSource loads each symbol's OHLCV history from "<dir>/<symbol>.csv"
// at construction time, then serves reads out of memory exactly like
// MemorySource. Grounded on the teacher's Client in structure — a
// constructor plus typed read methods — but reads from disk instead of
// a REST API, since live market data fetch is out of scope.
//
// Expected CSV columns, no header: timestamp (RFC3339), open, high,
// low, close, volume.
type CSVSource struct {
	dir    string
	loaded map[string]types.PriceData
}

// NewCSVSource eagerly loads every "<symbol>.csv" file named in
// symbols from dir. A missing or malformed file is an error at
// construction time, not a deferred Fetch-time surprise.
func NewCSVSource(dir string, symbols []string) (*CSVSource, error) {
	loaded := make(map[string]types.PriceData, len(symbols))
	for _, sym := range symbols {
		pd, err := loadSymbolCSV(dir, sym)
		if err != nil {
			return nil, err
		}
		loaded[sym] = pd
	}
	return &CSVSource{dir: dir, loaded: loaded}, nil
}

func loadSymbolCSV(dir, symbol string) (types.PriceData, error) {
	path := filepath.Join(dir, symbol+".csv")
	f, err := os.Open(path)
	if err != nil {
		return types.PriceData{}, &types.DataUnavailableError{Symbol: symbol, Reason: fmt.Sprintf("opening %s: %v", path, err)}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 6

	var bars []types.OHLCVBar
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return types.PriceData{}, &types.DataUnavailableError{Symbol: symbol, Reason: err.Error()}
		}
		bar, parseErr := parseBarRecord(record)
		if parseErr != nil {
			return types.PriceData{}, &types.DataUnavailableError{Symbol: symbol, Reason: parseErr.Error()}
		}
		bars = append(bars, bar)
	}

	pd := types.NewPriceData(symbol, "equity", "UTC", bars)
	if err := pd.Validate(); err != nil {
		return types.PriceData{}, &types.DataUnavailableError{Symbol: symbol, Reason: err.Error()}
	}
	return pd, nil
}

func parseBarRecord(record []string) (types.OHLCVBar, error) {
	ts, err := time.Parse(time.RFC3339, record[0])
	if err != nil {
		return types.OHLCVBar{}, fmt.Errorf("invalid timestamp %q: %w", record[0], err)
	}
	values := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return types.OHLCVBar{}, fmt.Errorf("invalid numeric field %q: %w", record[i+1], err)
		}
		values[i] = v
	}
	return types.OHLCVBar{Timestamp: ts, Open: values[0], High: values[1], Low: values[2], Close: values[3], Volume: values[4]}, nil
}

func (s *CSVSource) Fetch(ctx context.Context, symbol string, start, end time.Time, timeframe types.Timeframe) (types.PriceData, error) {
	pd, ok := s.loaded[symbol]
	if !ok {
		return types.PriceData{}, &types.DataUnavailableError{Symbol: symbol, Reason: "not loaded from " + s.dir}
	}
	return sliceRange(pd, start, end), nil
}

func (s *CSVSource) FetchMultiple(ctx context.Context, symbols []string, start, end time.Time, timeframe types.Timeframe) (map[string]types.PriceData, error) {
	out := make(map[string]types.PriceData, len(symbols))
	for _, sym := range symbols {
		if pd, ok := s.loaded[sym]; ok {
			out[sym] = sliceRange(pd, start, end)
		}
	}
	return out, nil
}

func (s *CSVSource) GetDataRange(ctx context.Context, symbol string) (time.Time, time.Time, error) {
	pd, ok := s.loaded[symbol]
	if !ok {
		return time.Time{}, time.Time{}, &types.DataUnavailableError{Symbol: symbol, Reason: "not loaded from " + s.dir}
	}
	return pd.Inception(), pd.Latest(), nil
}
