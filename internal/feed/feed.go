// Package feed declares the data-source contracts the market builder
// consumes: the primary price feed, per-ticker metadata, the historical
// fallback cache, the secondary history provider, and the index
// composition source. Implementations live in subpackages and in
// internal/histcache; the builder only depends on these interfaces.
package feed

import (
	"context"
	"time"

	"indexpulse/pkg/contracts/domain"
)

// PriceFeed is the primary market-data feed.
type PriceFeed interface {
	// BulkDaily fetches daily close/volume bars for every ticker from
	// start through today. Tickers the feed has no data for map to an
	// empty slice; the reconciler handles those.
	BulkDaily(ctx context.Context, tickers []domain.Ticker, start time.Time) (map[domain.Ticker][]domain.Bar, error)

	// IndexDaily fetches the adjusted-close series of a benchmark stock
	// index, used for volatility.
	IndexDaily(ctx context.Context, indexTicker domain.Ticker, start time.Time) ([]domain.IndexBar, error)
}

// MetadataFeed supplies per-ticker reference data reported by the feed.
type MetadataFeed interface {
	// SharesHistory returns the feed's reported shares-outstanding
	// history. Duplicate dates may occur; the resolver keeps the value
	// reported last.
	SharesHistory(ctx context.Context, ticker domain.Ticker, start time.Time) ([]domain.SharesObservation, error)

	// CurrentShares returns the feed's current shares-outstanding scalar.
	// ok is false when the feed does not report one.
	CurrentShares(ctx context.Context, ticker domain.Ticker) (float64, bool, error)

	// ImpliedShares returns the feed's implied shares-outstanding scalar
	// covering all share classes. ok is false when unreported.
	ImpliedShares(ctx context.Context, ticker domain.Ticker) (float64, bool, error)

	// DividendYield returns the most recent forward dividend yield.
	// ok is false when the feed does not report one; callers treat that
	// as a zero yield.
	DividendYield(ctx context.Context, ticker domain.Ticker) (float64, bool, error)
}

// HistoryCache is the locally persisted fallback extract for tickers the
// primary feed no longer covers.
type HistoryCache interface {
	// Load returns the cached rows for a ticker. ok is false on a miss.
	Load(ctx context.Context, ticker domain.Ticker) (bars []domain.Bar, ok bool, err error)

	// Store persists rows fetched from the secondary provider so later
	// runs hit the cache.
	Store(ctx context.Context, ticker domain.Ticker, bars []domain.Bar) error
}

// SecondaryHistory is the secondary data provider consulted only on a
// cache miss.
type SecondaryHistory interface {
	Daily(ctx context.Context, ticker domain.Ticker, start time.Time) ([]domain.Bar, error)
}

// MembershipSource supplies the index composition: the current member
// list and the chronological change log of additions and removals.
type MembershipSource interface {
	Current(ctx context.Context) ([]domain.Ticker, error)
	ChangeLog(ctx context.Context) ([]domain.ChangeEvent, error)
}

// OverrideSource supplies manually curated shares-outstanding series,
// typically hand-collected from quarterly reports for delisted names.
type OverrideSource interface {
	SharesOverrides(ctx context.Context) (map[domain.Ticker][]domain.SharesObservation, error)
}
