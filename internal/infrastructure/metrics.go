package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline counters exposed on /metrics. Construction runs once per
// process, so these mostly matter when the binary serves repeated
// rebuilds or long sessions, but they also make one-shot runs
// scrape-able by batch monitoring.
var (
	// FeedRequests counts outbound requests per feed endpoint.
	FeedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexpulse",
		Subsystem: "feed",
		Name:      "requests_total",
		Help:      "Number of outbound data feed requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	// CacheHits counts historical fallback cache hits.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "indexpulse",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Number of historical cache hits during reconciliation.",
	})

	// CacheMisses counts historical fallback cache misses.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "indexpulse",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Number of historical cache misses during reconciliation.",
	})

	// ReconciledTickers counts tickers filled from fallback sources.
	ReconciledTickers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexpulse",
		Subsystem: "reconcile",
		Name:      "tickers_total",
		Help:      "Number of tickers reconciled from fallback sources, by source.",
	}, []string{"source"})

	// ReplicatedDays counts panel cells filled by delisting replication.
	ReplicatedDays = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "indexpulse",
		Subsystem: "reconcile",
		Name:      "replicated_days_total",
		Help:      "Number of trading days filled by forward price replication for delisted tickers.",
	})
)
