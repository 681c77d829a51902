package domain

import (
	"time"
)

// Ticker identifies one listed security within a tracked market.
type Ticker = string

// Bar represents one daily price/volume observation for a ticker as
// returned by a price feed or a historical fallback source.
type Bar struct {
	Date   time.Time `json:"date" validate:"required"`
	Close  float64   `json:"close" validate:"min=0"`
	Volume float64   `json:"volume" validate:"min=0"`
}

// IndexBar represents one daily adjusted-close observation of a
// benchmark stock index. Adjusted closes are used for volatility,
// nominal closes for capitalization.
type IndexBar struct {
	Date     time.Time `json:"date" validate:"required"`
	AdjClose float64   `json:"adj_close" validate:"min=0"`
}

// SharesObservation represents a reported shares-outstanding figure on a
// given date. Feeds report these sparsely, not per trading day.
type SharesObservation struct {
	Date   time.Time `json:"date" validate:"required"`
	Shares float64   `json:"shares" validate:"min=0"`
}

// MembershipWindow is the date range during which a ticker counts as part
// of the tracked market. A nil Start means the ticker joined before the
// tracked period began; a nil End means it is still a member.
type MembershipWindow struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Active reports whether the window has no end date, i.e. the ticker is
// still part of the market.
func (w MembershipWindow) Active() bool {
	return w.End == nil
}

// Contains reports whether the given date falls inside the window.
// Open boundaries contain everything on their side.
func (w MembershipWindow) Contains(date time.Time) bool {
	if w.Start != nil && date.Before(*w.Start) {
		return false
	}
	if w.End != nil && date.After(*w.End) {
		return false
	}
	return true
}

// ChangeEvent is one entry of an index composition change log: on Date,
// the listed tickers were added to and removed from the index.
type ChangeEvent struct {
	Date    time.Time `json:"date" validate:"required"`
	Added   []Ticker  `json:"added"`
	Removed []Ticker  `json:"removed"`
}

// TopNEntry is one row of a top-N capitalization table.
type TopNEntry struct {
	Ticker         Ticker  `json:"ticker"`
	Capitalization float64 `json:"capitalization"`
	MarketShare    float64 `json:"market_share"` // fraction of total, 0..1
}

// Day normalizes a timestamp to midnight UTC. All calendar arithmetic in
// the module operates on day-normalized times so that observations from
// different sources compare equal regardless of feed time zones.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// PreviousBusinessDay returns the last weekday strictly before the given
// date. Exchange holidays are not modeled; the tracked calendar is
// derived from observed trading dates, so weekday stepping is only used
// for membership boundary arithmetic.
func PreviousBusinessDay(t time.Time) time.Time {
	d := Day(t).AddDate(0, 0, -1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
