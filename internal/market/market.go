// Package market orchestrates the construction of a fully reconciled
// market from its data sources and exposes the metrics engine over it.
// Construction is all-or-nothing: any fatal error aborts the build and
// no partially populated market is returned.
package market

import (
	"context"
	"fmt"
	"sort"
	"time"

	"indexpulse/internal/feed"
	"indexpulse/internal/infrastructure"
	"indexpulse/internal/membership"
	"indexpulse/internal/metrics"
	"indexpulse/internal/panel"
	"indexpulse/internal/reconcile"
	"indexpulse/internal/shares"
	"indexpulse/internal/series"
	"indexpulse/pkg/contracts/domain"
)

// Sources bundles the data sources a build consumes. Overrides and
// Secondary may be nil; Cache must not be when the primary feed can
// miss tickers.
type Sources struct {
	Prices     feed.PriceFeed
	Metadata   feed.MetadataFeed
	Membership feed.MembershipSource
	Overrides  feed.OverrideSource
	Cache      feed.HistoryCache
	Secondary  feed.SecondaryHistory
}

// Options holds the build parameters.
type Options struct {
	Start               time.Time
	BenchmarkTicker     domain.Ticker
	MultiClassTolerance float64
	Params              metrics.Params
}

// Market is a fully built, immutable market snapshot.
type Market struct {
	engine   *metrics.Engine
	registry *membership.Registry
}

// Engine returns the metrics engine over the built market.
func (m *Market) Engine() *metrics.Engine { return m.engine }

// Registry returns the membership registry the market was built with.
func (m *Market) Registry() *membership.Registry { return m.registry }

// New builds a market: membership replay, bulk price fetch, fallback
// reconciliation, gap filling, shares resolution, dividend yields and
// the optional benchmark series for volatility.
func New(ctx context.Context, sources Sources, opts Options) (*Market, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	logger := infrastructure.WithComponent(infrastructure.LoggerWithContext(ctx), "market")
	start := domain.Day(opts.Start)

	current, err := sources.Membership.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load current membership: %w", err)
	}
	changeLog, err := sources.Membership.ChangeLog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load membership change log: %w", err)
	}

	registry, err := membership.Build(current, changeLog, start)
	if err != nil {
		return nil, fmt.Errorf("failed to build membership registry: %w", err)
	}
	logger.InfoContext(ctx, "membership registry built",
		"tracked", registry.Len(),
		"current", len(registry.CurrentMembers()))

	tickers := registry.Tickers()
	bulk, err := sources.Prices.BulkDaily(ctx, tickers, start)
	if err != nil {
		return nil, fmt.Errorf("bulk price fetch failed: %w", err)
	}

	ix, err := calendarFrom(bulk, start)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "trading calendar derived",
		"days", ix.Len(),
		"first", ix.First().Format("2006-01-02"),
		"last", ix.Last().Format("2006-01-02"))

	p := panel.New(ix, tickers)
	for _, ticker := range tickers {
		if err := p.SetRows(ticker, bulk[ticker]); err != nil {
			return nil, fmt.Errorf("failed to write primary rows for %s: %w", ticker, err)
		}
	}

	if err := reconcile.New(sources.Cache, sources.Secondary).Run(ctx, p, registry); err != nil {
		return nil, fmt.Errorf("reconciliation failed: %w", err)
	}
	if err := p.Fill(); err != nil {
		return nil, fmt.Errorf("gap filling failed: %w", err)
	}

	overrides, err := loadOverrides(ctx, sources.Overrides)
	if err != nil {
		return nil, err
	}

	sharesCols, err := shares.New(sources.Metadata, overrides, opts.MultiClassTolerance).
		Resolve(ctx, ix, registry)
	if err != nil {
		return nil, fmt.Errorf("shares resolution failed: %w", err)
	}

	yields := fetchYields(ctx, sources.Metadata, registry.CurrentMembers())

	benchmark := fetchBenchmark(ctx, sources.Prices, opts.BenchmarkTicker, start)

	engine, err := metrics.NewEngine(p, registry, sharesCols, yields, benchmark, opts.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to build metrics engine: %w", err)
	}

	logger.InfoContext(ctx, "market built", "tickers", registry.Len())
	return &Market{engine: engine, registry: registry}, nil
}

// calendarFrom derives the trading calendar from the dates the primary
// feed actually observed, clipped to the tracked period start.
func calendarFrom(bulk map[domain.Ticker][]domain.Bar, start time.Time) (*series.Index, error) {
	var dates []time.Time
	for _, bars := range bulk {
		for _, bar := range bars {
			day := domain.Day(bar.Date)
			if !day.Before(start) {
				dates = append(dates, day)
			}
		}
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("primary feed returned no trading dates on or after %s", start.Format("2006-01-02"))
	}
	return series.NewIndex(dates), nil
}

func loadOverrides(ctx context.Context, source feed.OverrideSource) (map[domain.Ticker][]domain.SharesObservation, error) {
	if source == nil {
		return nil, nil
	}
	overrides, err := source.SharesOverrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load shares overrides: %w", err)
	}
	return overrides, nil
}

// fetchYields collects forward dividend yields for the current members.
// A missing or failed yield counts as zero rather than failing the
// build; yields only feed one snapshot metric.
func fetchYields(ctx context.Context, metadata feed.MetadataFeed, members []domain.Ticker) map[domain.Ticker]float64 {
	logger := infrastructure.LoggerWithContext(ctx)
	yields := make(map[domain.Ticker]float64, len(members))
	for _, ticker := range members {
		yield, ok, err := metadata.DividendYield(ctx, ticker)
		if err != nil {
			logger.WarnContext(ctx, "dividend yield fetch failed, assuming zero",
				"ticker", ticker, "error", err)
			continue
		}
		if ok {
			yields[ticker] = yield
		}
	}
	return yields
}

// fetchBenchmark loads the benchmark index series. Failures degrade to
// an empty series, which makes volatility queries soft-unavailable
// while every other metric stays usable.
func fetchBenchmark(ctx context.Context, prices feed.PriceFeed, ticker domain.Ticker, start time.Time) series.Series {
	if ticker == "" {
		return series.Series{}
	}
	logger := infrastructure.LoggerWithContext(ctx)

	bars, err := prices.IndexDaily(ctx, ticker, start)
	if err != nil {
		logger.WarnContext(ctx, "benchmark fetch failed, volatility will be unavailable",
			"ticker", ticker, "error", err)
		return series.Series{}
	}

	// Feeds commonly return newest first.
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	out := series.Series{Name: string(ticker)}
	for _, bar := range bars {
		out.Dates = append(out.Dates, domain.Day(bar.Date))
		out.Values = append(out.Values, bar.AdjClose)
	}
	return out
}
