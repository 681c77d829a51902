package errors

import (
	"fmt"
	"time"
)

// Construction-time failures abort the whole build: downstream
// aggregates sum over every tracked ticker, so a silently missing
// ticker would understate capitalization without any signal. Each error
// type carries the ticker it refers to.

// MissingHistoricalDataError reports that a ticker's primary feed
// returned no observations and neither the historical cache nor the
// secondary provider could supply fallback rows.
type MissingHistoricalDataError struct {
	Ticker string
}

// Error implements the error interface.
func (e *MissingHistoricalDataError) Error() string {
	return fmt.Sprintf("no historical price data available for %s from any source", e.Ticker)
}

// MissingSharesOutstandingError reports that no shares-outstanding
// series could be resolved for a ticker: a delisted name without an
// override, or an active one the feed reports nothing for. Its
// capitalization cannot be computed.
type MissingSharesOutstandingError struct {
	Ticker string
}

// Error implements the error interface.
func (e *MissingSharesOutstandingError) Error() string {
	return fmt.Sprintf("no shares outstanding data available for %s", e.Ticker)
}

// DuplicateMembershipError reports that replaying the composition change
// log implies a ticker entered the index twice without an intervening
// exit, which the single-window membership model cannot represent and
// which indicates a malformed change log.
type DuplicateMembershipError struct {
	Ticker string
	Date   time.Time
}

// Error implements the error interface.
func (e *DuplicateMembershipError) Error() string {
	return fmt.Sprintf("ticker %s enters the index twice without an intervening exit (event on %s)",
		e.Ticker, e.Date.Format("2006-01-02"))
}

// ErrVolatilityUnavailable is the soft sentinel returned by volatility
// queries when no benchmark index was configured for the market.
var ErrVolatilityUnavailable = fmt.Errorf("volatility unavailable: no benchmark index configured")
