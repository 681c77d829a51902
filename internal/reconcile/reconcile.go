// Package reconcile fills the gaps the primary feed leaves in the
// observation panel. Tickers with no primary data fall back to the
// local historical cache, then to the rate-limited secondary provider
// (persisting the result to the cache), and failing both abort the
// build. Delisted tickers then get their last close replicated forward
// with zero volume through their membership end date.
package reconcile

import (
	"context"
	"fmt"

	domerrors "indexpulse/internal/errors"
	"indexpulse/internal/feed"
	"indexpulse/internal/infrastructure"
	"indexpulse/internal/membership"
	"indexpulse/internal/panel"
	"indexpulse/pkg/contracts/domain"
)

// Reconciler merges fallback data into the panel.
type Reconciler struct {
	cache     feed.HistoryCache
	secondary feed.SecondaryHistory
}

// New creates a reconciler. secondary may be nil, in which case cache
// misses fail immediately.
func New(cache feed.HistoryCache, secondary feed.SecondaryHistory) *Reconciler {
	return &Reconciler{cache: cache, secondary: secondary}
}

// Run reconciles every ticker the registry tracks.
//
// For each ticker with an empty panel column it loads the cache, falls
// back to the secondary provider on a miss, and returns a
// MissingHistoricalDataError when neither yields rows inside the panel
// calendar. Rows are re-indexed onto the calendar by the panel itself,
// which also slices extracts that reach further back than the tracked
// period.
//
// After the fallback pass, every ticker whose membership window is
// closed has its last observed close carried forward with zero volume
// through the window end. The feed stops covering delisted names early;
// the market treats them as frozen and untraded until exit.
func (r *Reconciler) Run(ctx context.Context, p *panel.Panel, registry *membership.Registry) error {
	logger := infrastructure.LoggerWithContext(ctx)

	for _, ticker := range registry.Tickers() {
		if p.IsEmpty(ticker) {
			if err := r.fillFromFallback(ctx, p, ticker); err != nil {
				return err
			}
		}

		window, ok := registry.WindowOf(ticker)
		if !ok || window.Active() {
			continue
		}
		if err := replicateThroughExit(p, ticker, window); err != nil {
			return err
		}
		logger.InfoContext(ctx, "replicated delisted ticker forward",
			"ticker", ticker,
			"exit", window.End.Format("2006-01-02"))
	}

	return nil
}

func (r *Reconciler) fillFromFallback(ctx context.Context, p *panel.Panel, ticker domain.Ticker) error {
	logger := infrastructure.LoggerWithContext(ctx)

	bars, hit, err := r.cache.Load(ctx, ticker)
	if err != nil {
		return fmt.Errorf("cache load failed for %s: %w", ticker, err)
	}

	if hit {
		infrastructure.CacheHits.Inc()
		infrastructure.ReconciledTickers.WithLabelValues("cache").Inc()
		logger.InfoContext(ctx, "reconciled ticker from cache", "ticker", ticker, "rows", len(bars))
	} else {
		infrastructure.CacheMisses.Inc()
		if r.secondary == nil {
			return &domerrors.MissingHistoricalDataError{Ticker: ticker}
		}

		bars, err = r.secondary.Daily(ctx, ticker, p.Index().First())
		if err != nil {
			return fmt.Errorf("secondary fetch failed for %s: %w", ticker, err)
		}
		if len(bars) == 0 {
			return &domerrors.MissingHistoricalDataError{Ticker: ticker}
		}

		if err := r.cache.Store(ctx, ticker, bars); err != nil {
			return fmt.Errorf("cache store failed for %s: %w", ticker, err)
		}
		infrastructure.ReconciledTickers.WithLabelValues("secondary").Inc()
		logger.InfoContext(ctx, "reconciled ticker from secondary provider", "ticker", ticker, "rows", len(bars))
	}

	if err := p.SetRows(ticker, bars); err != nil {
		return fmt.Errorf("failed to write fallback rows for %s: %w", ticker, err)
	}
	if p.IsEmpty(ticker) {
		// Rows existed but none fell inside the tracked calendar.
		return &domerrors.MissingHistoricalDataError{Ticker: ticker}
	}
	return nil
}

// replicateThroughExit carries the last observed close forward to the
// membership end date with zero volume.
func replicateThroughExit(p *panel.Panel, ticker domain.Ticker, window domain.MembershipWindow) error {
	last, ok := p.LastObserved(ticker)
	if !ok {
		return &domerrors.MissingHistoricalDataError{Ticker: ticker}
	}

	end, ok := p.Index().NearestBefore(*window.End)
	if !ok || end <= last {
		return nil
	}

	if err := p.ReplicateForward(ticker, last, end); err != nil {
		return fmt.Errorf("forward replication failed for %s: %w", ticker, err)
	}
	infrastructure.ReplicatedDays.Add(float64(end - last))
	return nil
}
