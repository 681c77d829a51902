package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"indexpulse/internal/metrics"
	custommw "indexpulse/internal/middleware"
)

// NewRouter assembles the API router: request-ID and logging
// middleware, health and Prometheus endpoints, and the metric query
// routes under /api.
func NewRouter(engine *metrics.Engine, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.StructuredLogger(logger))
	r.Use(custommw.Recoverer(logger))
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/healthz", healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		NewMetricsHandler(engine, logger).RegisterRoutes(r)
	})

	return r
}

// healthz reports liveness. The market is built before the server
// starts, so a serving process is a healthy one.
func healthz(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
