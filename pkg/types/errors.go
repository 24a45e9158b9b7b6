// File: pkg/types/errors.go
// ============================================
package types

import "fmt"

// ConfigurationError is returned when the engine fails fast at startup
// because a strategy configuration is invalid. Remedy enumerates
// remediation options the way §7 requires.
type ConfigurationError struct {
	Field   string
	Message string
	Remedy  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error (%s): %s — %s", e.Field, e.Message, e.Remedy)
}

// InsufficientHistoryError is raised when a lookback window is not
// fully covered by available data up to the timestamp in question.
type InsufficientHistoryError struct {
	Symbol   string
	Required int
	Have     int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history for %s: need %d observations, have %d", e.Symbol, e.Required, e.Have)
}

// DataUnavailableError covers missing or unusable price data for a
// symbol — including forward-fill gaps wider than tolerated.
type DataUnavailableError struct {
	Symbol string
	Reason string
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("data unavailable for %s: %s", e.Symbol, e.Reason)
}

// OptimizationFailedError is returned by a portfolio optimizer method
// that cannot produce weights (e.g. singular covariance it could not
// regularize, or a non-convergent iterative method).
type OptimizationFailedError struct {
	Method string
	Reason string
}

func (e *OptimizationFailedError) Error() string {
	return fmt.Sprintf("optimization failed (%s): %s", e.Method, e.Reason)
}

// RebalanceFailedError is returned when execution of a rebalance cannot
// satisfy the post-condition invariants (§4.4.4 step 5).
type RebalanceFailedError struct {
	Timestamp string
	Reason    string
}

func (e *RebalanceFailedError) Error() string {
	return fmt.Sprintf("rebalance failed at %s: %s", e.Timestamp, e.Reason)
}

// NoViableAssetsError is returned by the signal engine when no risky
// asset passes the filter and the configured safe asset has no price
// data in the universe. With no safe asset configured, the signal
// engine returns no signals and no error instead, which the backtest
// engine resolves to 100% cash. The backtest engine logs this error as
// a warning and skips that rebalance; it is not fatal.
type NoViableAssetsError struct {
	Timestamp string
}

func (e *NoViableAssetsError) Error() string {
	return fmt.Sprintf("no viable assets at %s and the configured safe asset has no price data", e.Timestamp)
}
