// Package shares resolves a per-trading-day shares-outstanding series
// for every tracked ticker, combining manually curated overrides, the
// feed's reported history, and a correction for multi-class listings.
package shares

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	domerrors "indexpulse/internal/errors"
	"indexpulse/internal/feed"
	"indexpulse/internal/infrastructure"
	"indexpulse/internal/membership"
	"indexpulse/internal/series"
	"indexpulse/pkg/contracts/domain"
)

// Resolver produces calendar-aligned shares-outstanding columns.
type Resolver struct {
	metadata  feed.MetadataFeed
	overrides map[domain.Ticker][]domain.SharesObservation
	// tolerance is the relative excess of the latest historical figure
	// over the current reported one that triggers the multi-class
	// correction. 0.2 matches feeds that report per-class history but a
	// single-class current figure.
	tolerance float64
}

// New creates a resolver. overrides may be nil.
func New(metadata feed.MetadataFeed, overrides map[domain.Ticker][]domain.SharesObservation, tolerance float64) *Resolver {
	if overrides == nil {
		overrides = map[domain.Ticker][]domain.SharesObservation{}
	}
	return &Resolver{metadata: metadata, overrides: overrides, tolerance: tolerance}
}

// Resolve returns one shares column per tracked ticker, aligned to the
// panel calendar.
//
// Source precedence per ticker: the override series when one exists;
// otherwise the feed history for active members; a delisted ticker
// without an override is a MissingSharesOutstandingError since the feed
// no longer reports it.
//
// Feed histories are deduplicated keeping the figure reported last per
// date, then checked against the current reported figure: when the
// latest historical exceeds it by more than the tolerance, the whole
// series is rescaled by current over implied (or over the latest when
// no implied figure exists) and rounded to whole shares.
//
// The resulting sparse series is forward-filled onto the calendar, with
// dates before the first observation taking the first value.
func (r *Resolver) Resolve(ctx context.Context, ix *series.Index, registry *membership.Registry) (map[domain.Ticker][]float64, error) {
	out := make(map[domain.Ticker][]float64, registry.Len())

	for _, ticker := range registry.Tickers() {
		window, _ := registry.WindowOf(ticker)

		observations, err := r.observationsFor(ctx, ticker, window, ix.First())
		if err != nil {
			return nil, err
		}
		if len(observations) == 0 {
			return nil, &domerrors.MissingSharesOutstandingError{Ticker: ticker}
		}

		out[ticker] = align(observations, ix)
	}

	return out, nil
}

func (r *Resolver) observationsFor(ctx context.Context, ticker domain.Ticker, window domain.MembershipWindow, start time.Time) ([]domain.SharesObservation, error) {
	if override, ok := r.overrides[ticker]; ok {
		return dedupKeepLast(override), nil
	}

	if !window.Active() {
		return nil, &domerrors.MissingSharesOutstandingError{Ticker: ticker}
	}

	history, err := r.metadata.SharesHistory(ctx, ticker, start)
	if err != nil {
		return nil, fmt.Errorf("shares history fetch failed for %s: %w", ticker, err)
	}
	history = dedupKeepLast(history)
	if len(history) == 0 {
		return nil, &domerrors.MissingSharesOutstandingError{Ticker: ticker}
	}

	corrected, err := r.correctMultiClass(ctx, ticker, history)
	if err != nil {
		return nil, err
	}
	return corrected, nil
}

// correctMultiClass rescales a history that covers all share classes
// down to the class the current figure reports.
func (r *Resolver) correctMultiClass(ctx context.Context, ticker domain.Ticker, history []domain.SharesObservation) ([]domain.SharesObservation, error) {
	current, ok, err := r.metadata.CurrentShares(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("current shares fetch failed for %s: %w", ticker, err)
	}
	if !ok || current <= 0 {
		return history, nil
	}

	latest := history[len(history)-1].Shares
	if latest <= current*(1+r.tolerance) {
		return history, nil
	}

	reference := latest
	implied, ok, err := r.metadata.ImpliedShares(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("implied shares fetch failed for %s: %w", ticker, err)
	}
	if ok && implied > 0 {
		reference = implied
	}

	factor := current / reference
	infrastructure.LoggerWithContext(ctx).WarnContext(ctx, "rescaling multi-class shares history",
		"ticker", ticker,
		"latest_historical", latest,
		"current", current,
		"factor", factor)

	corrected := make([]domain.SharesObservation, len(history))
	for i, obs := range history {
		corrected[i] = domain.SharesObservation{
			Date:   obs.Date,
			Shares: math.Round(obs.Shares * factor),
		}
	}
	return corrected, nil
}

// dedupKeepLast collapses duplicate dates keeping the value reported
// last, and returns the observations sorted by date.
func dedupKeepLast(observations []domain.SharesObservation) []domain.SharesObservation {
	byDate := make(map[time.Time]float64, len(observations))
	for _, obs := range observations {
		byDate[domain.Day(obs.Date)] = obs.Shares
	}

	out := make([]domain.SharesObservation, 0, len(byDate))
	for date, shares := range byDate {
		out = append(out, domain.SharesObservation{Date: date, Shares: shares})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// align forward-fills sparse observations onto the calendar; positions
// before the first observation take the first value.
func align(observations []domain.SharesObservation, ix *series.Index) []float64 {
	out := make([]float64, ix.Len())
	j := -1
	for i := 0; i < ix.Len(); i++ {
		date := ix.At(i)
		for j+1 < len(observations) && !observations[j+1].Date.After(date) {
			j++
		}
		if j < 0 {
			out[i] = observations[0].Shares
		} else {
			out[i] = observations[j].Shares
		}
	}
	return out
}
