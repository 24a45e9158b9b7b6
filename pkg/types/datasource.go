// File: pkg/types/datasource.go
// ============================================
package types

import (
	"context"
	"time"
)

// Timeframe names a bar size a DataSource fetches at ("1d" is the only
// timeframe the core engine's time loop consumes, but the interface
// does not constrain implementations to it).
type Timeframe string

const TimeframeDaily Timeframe = "1d"

// DataSource is the external collaborator this module consumes rather
// than implements: price-data fetching, caching, and retry are
// explicitly out of scope for the core (§1). Implementations must be
// safe for concurrent reads across tuner trials (§5).
type DataSource interface {
	// Fetch returns one symbol's price history over [start, end]. It
	// may fail with a *DataUnavailableError wrapping NotFound,
	// RateLimited, or NetworkError conditions.
	Fetch(ctx context.Context, symbol string, start, end time.Time, timeframe Timeframe) (PriceData, error)

	// FetchMultiple returns whatever symbols it could retrieve; a
	// partial failure is not itself an error — callers must check which
	// symbols are missing from the returned map.
	FetchMultiple(ctx context.Context, symbols []string, start, end time.Time, timeframe Timeframe) (map[string]PriceData, error)

	// GetDataRange reports the earliest and latest timestamps available
	// for symbol, for "longest available" date-range requests.
	GetDataRange(ctx context.Context, symbol string) (earliest, latest time.Time, err error)
}
