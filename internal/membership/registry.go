// Package membership tracks each ticker's inclusion window within the
// market. The registry is built once, by replaying the index composition
// change log backwards from the current membership list, and is
// immutable afterwards.
package membership

import (
	"fmt"
	"time"

	"indexpulse/internal/errors"
	"indexpulse/pkg/contracts/domain"
)

// Registry holds the membership window of every ticker that was part of
// the market at any point of the tracked period. The current model keeps
// a single window per ticker: re-entry must be modeled by the caller as
// one continuous window per observed name.
type Registry struct {
	order   []domain.Ticker
	windows map[domain.Ticker]domain.MembershipWindow
}

// Build replays a chronological change log backwards, starting from the
// current membership list, and returns the resulting registry.
//
// Walking backward from now to start:
//   - a ticker added on an event date entered the index on that date, so
//     its window start is pinned to it;
//   - a ticker removed on an event date was a member from the tracked
//     period start through the preceding business day, and is tracked as
//     an additional ticker whose data must also be fetched;
//   - events older than start are ignored.
//
// A ticker that would receive two window starts without an intervening
// exit, or that appears in two disjoint windows, yields a
// DuplicateMembershipError: the change log is malformed or needs the
// caller to model re-entry as separate observed names.
func Build(current []domain.Ticker, changeLog []domain.ChangeEvent, start time.Time) (*Registry, error) {
	r := &Registry{
		order:   make([]domain.Ticker, 0, len(current)),
		windows: make(map[domain.Ticker]domain.MembershipWindow, len(current)),
	}
	for _, ticker := range current {
		if _, dup := r.windows[ticker]; dup {
			return nil, fmt.Errorf("current membership lists %s twice", ticker)
		}
		r.order = append(r.order, ticker)
		r.windows[ticker] = domain.MembershipWindow{}
	}

	startDay := domain.Day(start)
	// Tickers that already received an explicit entry date during the
	// backward walk; a second assignment means a malformed log.
	pinned := make(map[domain.Ticker]bool)

	for i := len(changeLog) - 1; i >= 0; i-- {
		event := changeLog[i]
		eventDay := domain.Day(event.Date)
		if eventDay.Before(startDay) {
			break
		}

		for _, ticker := range event.Added {
			w, ok := r.windows[ticker]
			if !ok {
				return nil, fmt.Errorf("change log adds unknown ticker %s on %s: it is neither a current member nor removed later",
					ticker, eventDay.Format("2006-01-02"))
			}
			if pinned[ticker] {
				return nil, &errors.DuplicateMembershipError{Ticker: ticker, Date: eventDay}
			}
			entry := eventDay
			w.Start = &entry
			r.windows[ticker] = w
			pinned[ticker] = true
		}

		for _, ticker := range event.Removed {
			if _, exists := r.windows[ticker]; exists {
				return nil, &errors.DuplicateMembershipError{Ticker: ticker, Date: eventDay}
			}
			exit := domain.PreviousBusinessDay(eventDay)
			r.order = append(r.order, ticker)
			r.windows[ticker] = domain.MembershipWindow{End: &exit}
		}
	}

	return r, nil
}

// NewRegistry builds a registry directly from a window map, preserving
// the given ticker order. Used by tests and by callers that curate
// membership by hand instead of replaying a change log.
func NewRegistry(order []domain.Ticker, windows map[domain.Ticker]domain.MembershipWindow) *Registry {
	r := &Registry{
		order:   make([]domain.Ticker, len(order)),
		windows: make(map[domain.Ticker]domain.MembershipWindow, len(windows)),
	}
	copy(r.order, order)
	for t, w := range windows {
		r.windows[t] = w
	}
	return r
}

// Tickers returns every tracked ticker in encounter order: current
// members first, then tickers discovered through removal events.
func (r *Registry) Tickers() []domain.Ticker {
	out := make([]domain.Ticker, len(r.order))
	copy(out, r.order)
	return out
}

// CurrentMembers returns the tickers whose window has no end date.
func (r *Registry) CurrentMembers() []domain.Ticker {
	var out []domain.Ticker
	for _, ticker := range r.order {
		if r.windows[ticker].Active() {
			out = append(out, ticker)
		}
	}
	return out
}

// WindowOf returns the membership window of a ticker.
func (r *Registry) WindowOf(ticker domain.Ticker) (domain.MembershipWindow, bool) {
	w, ok := r.windows[ticker]
	return w, ok
}

// Len returns the number of tracked tickers.
func (r *Registry) Len() int { return len(r.order) }
