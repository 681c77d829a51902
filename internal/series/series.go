// Package series provides the date-indexed series primitives shared by the
// panel and the metrics engine: a sorted business-day index, labeled value
// series, and downsampling by period averaging.
package series

import (
	"sort"
	"time"

	"indexpulse/pkg/contracts/domain"
)

// Index is an immutable, strictly increasing sequence of trading dates
// shared by every column of a panel. It is built once from observed
// trading dates and never mutated afterwards.
type Index struct {
	dates []time.Time
	pos   map[time.Time]int
}

// NewIndex builds an index from the given dates. Dates are normalized to
// midnight UTC, deduplicated and sorted ascending.
func NewIndex(dates []time.Time) *Index {
	seen := make(map[time.Time]bool, len(dates))
	normalized := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		day := domain.Day(d)
		if !seen[day] {
			seen[day] = true
			normalized = append(normalized, day)
		}
	}
	sort.Slice(normalized, func(i, j int) bool { return normalized[i].Before(normalized[j]) })

	pos := make(map[time.Time]int, len(normalized))
	for i, d := range normalized {
		pos[d] = i
	}
	return &Index{dates: normalized, pos: pos}
}

// Len returns the number of dates in the index.
func (ix *Index) Len() int { return len(ix.dates) }

// At returns the date at position i.
func (ix *Index) At(i int) time.Time { return ix.dates[i] }

// Dates returns a copy of the underlying date slice.
func (ix *Index) Dates() []time.Time {
	out := make([]time.Time, len(ix.dates))
	copy(out, ix.dates)
	return out
}

// First returns the earliest date in the index.
func (ix *Index) First() time.Time { return ix.dates[0] }

// Last returns the latest date in the index.
func (ix *Index) Last() time.Time { return ix.dates[len(ix.dates)-1] }

// Lookup returns the position of an exact date in the index.
func (ix *Index) Lookup(date time.Time) (int, bool) {
	i, ok := ix.pos[domain.Day(date)]
	return i, ok
}

// NearestBefore returns the position of the latest index date that is on
// or before the given date. It reports false when the date precedes the
// whole index, which callers treat as an empty result rather than an
// error.
func (ix *Index) NearestBefore(date time.Time) (int, bool) {
	day := domain.Day(date)
	i := sort.Search(len(ix.dates), func(i int) bool { return ix.dates[i].After(day) })
	if i == 0 {
		return 0, false
	}
	return i - 1, true
}

// RangePositions returns the half-open position range [lo, hi) of index
// dates falling inside the given membership window. Nil boundaries are
// open on that side.
func (ix *Index) RangePositions(w domain.MembershipWindow) (lo, hi int) {
	lo = 0
	hi = len(ix.dates)
	if w.Start != nil {
		start := domain.Day(*w.Start)
		lo = sort.Search(len(ix.dates), func(i int) bool { return !ix.dates[i].Before(start) })
	}
	if w.End != nil {
		end := domain.Day(*w.End)
		hi = sort.Search(len(ix.dates), func(i int) bool { return ix.dates[i].After(end) })
	}
	if lo > hi {
		lo = hi
	}
	return lo, hi
}

// Series is a labeled sequence of (date, value) observations sorted by
// date. It is the return shape of every engine query.
type Series struct {
	Name   string      `json:"name"`
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Dates) }

// Empty reports whether the series holds no observations.
func (s Series) Empty() bool { return len(s.Dates) == 0 }

// Tail returns the last n observations (or the whole series when it is
// shorter than n).
func (s Series) Tail(n int) Series {
	if n >= len(s.Dates) {
		return s
	}
	return Series{Name: s.Name, Dates: s.Dates[len(s.Dates)-n:], Values: s.Values[len(s.Values)-n:]}
}
