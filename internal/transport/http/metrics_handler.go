// Package http exposes the metrics engine's queries over a read-only
// JSON API.
package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "indexpulse/internal/errors"
	"indexpulse/internal/metrics"
	"indexpulse/internal/series"
	"indexpulse/pkg/contracts/domain"
)

// MetricsHandler serves the engine's query endpoints.
type MetricsHandler struct {
	engine *metrics.Engine
	logger *slog.Logger
}

// NewMetricsHandler creates a metrics handler over a built engine.
func NewMetricsHandler(engine *metrics.Engine, logger *slog.Logger) *MetricsHandler {
	return &MetricsHandler{engine: engine, logger: logger}
}

// RegisterRoutes registers the metric query routes.
func (h *MetricsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/metrics", func(r chi.Router) {
		r.Get("/capitalization", h.GetCapitalization)
		r.Get("/trading-value", h.GetTradingValue)
		r.Get("/turnover", h.GetTurnover)
		r.Get("/volatility", h.GetVolatility)
		r.Get("/top", h.GetTopN)
		r.Get("/dividend-yield", h.GetDividendYield)
	})
}

// GetCapitalization returns total capitalization at the requested
// frequency, optionally restricted to a ticker subset.
func (h *MetricsHandler) GetCapitalization(w http.ResponseWriter, r *http.Request) {
	h.serveSeries(w, r, h.engine.Capitalization)
}

// GetTradingValue returns total traded value. With annual=true the
// yearly averages are scaled to annualized totals.
func (h *MetricsHandler) GetTradingValue(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("annual") == "true" {
		h.serveAnnual(w, r, h.engine.AnnualTradingValue)
		return
	}
	h.serveSeries(w, r, h.engine.TradingValue)
}

// GetTurnover returns the turnover ratio. With annual=true the yearly
// averages are scaled to annualized ratios.
func (h *MetricsHandler) GetTurnover(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("annual") == "true" {
		h.serveAnnual(w, r, h.engine.AnnualTurnover)
		return
	}
	h.serveSeries(w, r, h.engine.Turnover)
}

// GetVolatility returns the annualized benchmark volatility series at
// the requested frequency.
func (h *MetricsHandler) GetVolatility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	freq := series.Daily
	if raw := r.URL.Query().Get("freq"); raw != "" {
		parsed, err := series.ParseFrequency(raw)
		if err != nil {
			h.renderError(w, r, apierrors.InvalidParameterError("freq", err))
			return
		}
		freq = parsed
	}

	vol, err := h.engine.Volatility(freq)
	if err != nil {
		h.logger.WarnContext(ctx, "volatility unavailable", "error", err)
		h.renderError(w, r, apierrors.New(
			http.StatusServiceUnavailable,
			"VOLATILITY_UNAVAILABLE",
			"Volatility requires a benchmark index series",
		))
		return
	}

	render.JSON(w, r, vol)
}

// GetTopN returns the n largest tickers by capitalization at the
// requested anchor date.
func (h *MetricsHandler) GetTopN(w http.ResponseWriter, r *http.Request) {
	n := 10
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.renderError(w, r, apierrors.InvalidParameterError("n", err))
			return
		}
		if parsed <= 0 {
			h.renderError(w, r, apierrors.New(http.StatusBadRequest, "INVALID_PARAMETER",
				"Parameter n must be positive"))
			return
		}
		n = parsed
	}

	anchor := metrics.AnchorDay
	if raw := r.URL.Query().Get("anchor"); raw != "" {
		parsed, err := metrics.ParseAnchor(raw)
		if err != nil {
			h.renderError(w, r, apierrors.InvalidParameterError("anchor", err))
			return
		}
		anchor = parsed
	}

	var asOf time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			h.renderError(w, r, apierrors.InvalidParameterError("date", err))
			return
		}
		asOf = parsed
	}

	entries, err := h.engine.TopN(n, anchor, asOf)
	if err != nil {
		h.renderError(w, r, apierrors.ErrInternalServer)
		return
	}
	render.JSON(w, r, entries)
}

// GetDividendYield returns the capitalization-weighted forward dividend
// yield snapshot.
func (h *MetricsHandler) GetDividendYield(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]float64{
		"forward_dividend_yield": h.engine.ForwardDividendYield(),
	})
}

func (h *MetricsHandler) serveSeries(w http.ResponseWriter, r *http.Request, query func([]domain.Ticker, series.Frequency) (series.Series, error)) {
	freq := series.Daily
	if raw := r.URL.Query().Get("freq"); raw != "" {
		parsed, err := series.ParseFrequency(raw)
		if err != nil {
			h.renderError(w, r, apierrors.InvalidParameterError("freq", err))
			return
		}
		freq = parsed
	}

	result, err := query(parseTickers(r), freq)
	if err != nil {
		h.renderError(w, r, apierrors.InvalidParameterError("tickers", err))
		return
	}
	render.JSON(w, r, result)
}

func (h *MetricsHandler) serveAnnual(w http.ResponseWriter, r *http.Request, query func([]domain.Ticker, series.Frequency) (series.Series, error)) {
	freq := series.Annual
	if raw := r.URL.Query().Get("freq"); raw != "" {
		parsed, err := series.ParseFrequency(raw)
		if err != nil {
			h.renderError(w, r, apierrors.InvalidParameterError("freq", err))
			return
		}
		freq = parsed
	}

	result, err := query(parseTickers(r), freq)
	if err != nil {
		h.renderError(w, r, apierrors.InvalidParameterError("tickers", err))
		return
	}
	render.JSON(w, r, result)
}

func (h *MetricsHandler) renderError(w http.ResponseWriter, r *http.Request, apiErr *apierrors.APIError) {
	if err := render.Render(w, r, apierrors.NewErrorResponse(apiErr)); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render error response", "error", err)
	}
}

func parseTickers(r *http.Request) []domain.Ticker {
	raw := r.URL.Query().Get("tickers")
	if raw == "" {
		return nil
	}
	var tickers []domain.Ticker
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			tickers = append(tickers, domain.Ticker(part))
		}
	}
	return tickers
}
