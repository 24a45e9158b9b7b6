// File: internal/datasource/csv_test.go
// ============================================
package datasource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momentum-backtest/pkg/types"
)

func writeCSV(t *testing.T, dir, symbol string, rows []string) {
	t.Helper()
	path := filepath.Join(dir, symbol+".csv")
	content := ""
	for _, r := range rows {
		content += r + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCSVSourceLoadsAndSlicesBySymbol(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeCSV(t, dir, "AAA", []string{
		"2023-01-01T00:00:00Z,100,101,99,100,1000",
		"2023-01-02T00:00:00Z,100,102,99,101,1100",
		"2023-01-03T00:00:00Z,101,103,100,102,1200",
	})

	src, err := NewCSVSource(dir, []string{"AAA"})
	require.NoError(t, err)

	pd, err := src.Fetch(context.Background(), "AAA", time.Time{}, time.Time{}, types.TimeframeDaily)
	require.NoError(t, err)
	require.Len(t, pd.Bars, 3)
	assert.InDelta(t, 102.0, pd.Bars[2].Close, 1e-9)
}

func TestCSVSourceMissingFileErrorsAtConstruction(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	_, err := NewCSVSource(dir, []string{"NOPE"})
	require.Error(t, err)
	var dataErr *types.DataUnavailableError
	assert.ErrorAs(t, err, &dataErr)
}

func TestCSVSourceMalformedRowErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeCSV(t, dir, "BAD", []string{
		"2023-01-01T00:00:00Z,100,101,99,notanumber,1000",
	})

	_, err := NewCSVSource(dir, []string{"BAD"})
	require.Error(t, err)
}

func TestCSVSourceGetDataRange(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeCSV(t, dir, "CCC", []string{
		"2023-01-01T00:00:00Z,100,101,99,100,1000",
		"2023-01-05T00:00:00Z,101,103,100,102,1200",
	})

	src, err := NewCSVSource(dir, []string{"CCC"})
	require.NoError(t, err)

	start, end, err := src.GetDataRange(context.Background(), "CCC")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), end)
}
