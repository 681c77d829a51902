// Command indexpulse builds the market from its configured data
// sources, prints a metrics report, optionally exports CSV and Excel
// reports, and can serve the query API over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"indexpulse/internal/config"
	domerrors "indexpulse/internal/errors"
	"indexpulse/internal/exporter"
	"indexpulse/internal/feed"
	"indexpulse/internal/feed/csvsource"
	"indexpulse/internal/feed/httpfeed"
	"indexpulse/internal/histcache"
	"indexpulse/internal/infrastructure"
	"indexpulse/internal/market"
	"indexpulse/internal/metrics"
	"indexpulse/internal/series"
	transporthttp "indexpulse/internal/transport/http"
	"indexpulse/pkg/contracts/domain"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	serve := flag.Bool("serve", false, "serve the query API over HTTP after building the market")
	export := flag.Bool("export", false, "write CSV and Excel reports to the reports directory")
	flag.Parse()

	if err := run(*configPath, *serve, *export); err != nil {
		slog.Error("indexpulse failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, serve, export bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = infrastructure.ContextWithTraceID(ctx)

	sources, closeSources, err := buildSources(cfg)
	if err != nil {
		return err
	}
	defer closeSources()

	start, err := cfg.Market.StartDate()
	if err != nil {
		return err
	}

	m, err := market.New(ctx, sources, market.Options{
		Start:               start,
		BenchmarkTicker:     cfg.Market.BenchmarkTicker,
		MultiClassTolerance: cfg.Market.MultiClassTolerance,
		Params: metrics.Params{
			TradingDaysPerYear: cfg.Market.TradingDaysPerYear,
			VolatilityAlpha:    cfg.Market.VolatilityAlpha,
		},
	})
	if err != nil {
		return fmt.Errorf("market build failed: %w", err)
	}

	if err := printReport(m.Engine(), cfg.Market.TopN); err != nil {
		return err
	}

	if export {
		if err := exportReports(m.Engine(), cfg.Paths.ReportsDir, cfg.Market.TopN); err != nil {
			return fmt.Errorf("report export failed: %w", err)
		}
		logger.InfoContext(ctx, "reports exported", "dir", cfg.Paths.ReportsDir)
	}

	if serve {
		return serveAPI(ctx, cfg, m.Engine(), logger)
	}
	return nil
}

// buildSources wires the configured feed client, composition files and
// cache backend into the builder's source bundle.
func buildSources(cfg *config.Config) (market.Sources, func(), error) {
	client := httpfeed.NewClient(cfg.Feed.BaseURL, cfg.Feed.APIKey, cfg.Feed.Timeout)

	var secondary feed.SecondaryHistory
	if cfg.Feed.SecondaryBaseURL != "" {
		secondary = httpfeed.NewSecondaryClient(
			cfg.Feed.SecondaryBaseURL, cfg.Feed.SecondaryAPIKey, cfg.Feed.Timeout,
			cfg.Feed.SecondaryRPS, cfg.Feed.SecondaryBurst)
	}

	var (
		cache     feed.HistoryCache
		closeFunc = func() {}
	)
	switch cfg.Cache.Backend {
	case "sqlite":
		sqliteCache, err := histcache.NewSQLiteCache(cfg.Cache.SQLitePath)
		if err != nil {
			return market.Sources{}, nil, err
		}
		cache = sqliteCache
		closeFunc = func() { sqliteCache.Close() }
	default:
		csvCache, err := histcache.NewCSVCache(cfg.Cache.Dir)
		if err != nil {
			return market.Sources{}, nil, err
		}
		cache = csvCache
	}

	return market.Sources{
		Prices:     client,
		Metadata:   client,
		Membership: csvsource.NewMembershipFiles(cfg.Paths.MembershipFile, cfg.Paths.ChangeLogFile),
		Overrides:  csvsource.NewOverrideFiles(cfg.Paths.OverridesDir),
		Cache:      cache,
		Secondary:  secondary,
	}, closeFunc, nil
}

// printReport writes the headline metrics to stdout.
func printReport(engine *metrics.Engine, topN int) error {
	for _, anchor := range []metrics.Anchor{metrics.AnchorDay, metrics.AnchorMonth} {
		entries, err := engine.TopN(topN, anchor, time.Time{})
		if err != nil {
			return err
		}
		fmt.Printf("Top %d by capitalization (%s anchor)\n", topN, anchor)
		if len(entries) == 0 {
			fmt.Println("  no data at this anchor")
		}
		for i, entry := range entries {
			fmt.Printf("  %2d. %-8s %18.2f  %6.2f%%\n",
				i+1, entry.Ticker, entry.Capitalization, entry.MarketShare*100)
		}
		fmt.Println()
	}

	caps, err := engine.Capitalization(nil, series.Monthly)
	if err != nil {
		return err
	}
	printTail("Monthly capitalization", caps, 6)

	turnover, err := engine.AnnualTurnover(nil, series.Annual)
	if err != nil {
		return err
	}
	printTail("Annualized turnover", turnover, 5)

	vol, err := engine.Volatility(series.Daily)
	switch {
	case errors.Is(err, domerrors.ErrVolatilityUnavailable):
		fmt.Println("Volatility: unavailable (no benchmark index series)")
		fmt.Println()
	case err != nil:
		return err
	default:
		printTail("Annualized volatility", vol, 5)
	}

	fmt.Printf("Forward dividend yield: %.4f\n", engine.ForwardDividendYield())
	return nil
}

func printTail(title string, s series.Series, n int) {
	fmt.Println(title)
	tail := s.Tail(n)
	for i := range tail.Dates {
		fmt.Printf("  %s  %18.6f\n", tail.Dates[i].Format("2006-01-02"), tail.Values[i])
	}
	fmt.Println()
}

// exportReports writes the CSV series files and the Excel workbook.
func exportReports(engine *metrics.Engine, dir string, topN int) error {
	e := exporter.New(dir)

	caps, err := engine.Capitalization(nil, series.Daily)
	if err != nil {
		return err
	}
	turnover, err := engine.Turnover(nil, series.Daily)
	if err != nil {
		return err
	}

	if _, err := e.WriteSeriesCSV("capitalization.csv", caps); err != nil {
		return err
	}
	if _, err := e.WriteSeriesCSV("turnover.csv", turnover); err != nil {
		return err
	}

	report := exporter.Report{
		ForwardDividendYield: engine.ForwardDividendYield(),
		TopN:                 make(map[string][]domain.TopNEntry, 2),
		Series:               []series.Series{caps, turnover},
	}
	for _, anchor := range []metrics.Anchor{metrics.AnchorDay, metrics.AnchorMonth} {
		entries, err := engine.TopN(topN, anchor, time.Time{})
		if err != nil {
			return err
		}
		report.TopN[string(anchor)] = entries
		if _, err := e.WriteTopNCSV("top_"+string(anchor)+".csv", entries); err != nil {
			return err
		}
	}

	vol, err := engine.Volatility(series.Daily)
	if err == nil {
		report.Series = append(report.Series, vol)
		if _, err := e.WriteSeriesCSV("volatility.csv", vol); err != nil {
			return err
		}
	} else if !errors.Is(err, domerrors.ErrVolatilityUnavailable) {
		return err
	}

	_, err = e.WriteExcel("market_report.xlsx", report)
	return err
}

// serveAPI runs the HTTP server until the context is canceled, then
// shuts it down within the configured grace period.
func serveAPI(ctx context.Context, cfg *config.Config, engine *metrics.Engine, logger *slog.Logger) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      transporthttp.NewRouter(engine, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(ctx, "serving query API", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down query API")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
