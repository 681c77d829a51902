// Package metrics implements the read-only query engine over a fully
// reconciled market: capitalization, top-N tables, trading value,
// turnover, benchmark volatility and the forward dividend yield.
package metrics

import (
	"fmt"
	"math"
	"sort"
	"time"

	domerrors "indexpulse/internal/errors"
	"indexpulse/internal/membership"
	"indexpulse/internal/panel"
	"indexpulse/internal/series"
	"indexpulse/pkg/contracts/domain"
)

// Anchor selects the evaluation date of a top-N query.
type Anchor string

const (
	// AnchorDay evaluates at the latest trading day.
	AnchorDay Anchor = "day"
	// AnchorMonth evaluates at the start of the latest month, rolled
	// back to the nearest preceding trading day.
	AnchorMonth Anchor = "month"
	// AnchorYear evaluates at the start of the latest year, rolled back
	// to the nearest preceding trading day.
	AnchorYear Anchor = "year"
)

// ParseAnchor converts an anchor designator string to an Anchor.
func ParseAnchor(s string) (Anchor, error) {
	switch Anchor(s) {
	case AnchorDay, AnchorMonth, AnchorYear:
		return Anchor(s), nil
	default:
		return "", fmt.Errorf("unknown anchor designator %q", s)
	}
}

// Params holds the engine's numeric conventions.
type Params struct {
	// TradingDaysPerYear annualizes daily averages. 252 by convention.
	TradingDaysPerYear int
	// VolatilityAlpha is the EWM smoothing factor of the benchmark
	// volatility model.
	VolatilityAlpha float64
}

// Engine answers metric queries. It is immutable once built and safe
// for concurrent readers.
type Engine struct {
	index  *series.Index
	order  []domain.Ticker
	params Params

	// Per-ticker daily columns, zero outside the membership window so
	// every aggregate automatically respects membership.
	capCols   map[domain.Ticker][]float64
	valueCols map[domain.Ticker][]float64

	yields map[domain.Ticker]float64

	benchmark series.Series
}

// NewEngine precomputes per-ticker capitalization and trading-value
// columns from the reconciled panel, the resolved shares columns and
// the membership registry. benchmark may be empty, which makes
// volatility queries soft-fail with ErrVolatilityUnavailable.
func NewEngine(p *panel.Panel, registry *membership.Registry, sharesCols map[domain.Ticker][]float64, yields map[domain.Ticker]float64, benchmark series.Series, params Params) (*Engine, error) {
	ix := p.Index()
	e := &Engine{
		index:     ix,
		order:     registry.Tickers(),
		params:    params,
		capCols:   make(map[domain.Ticker][]float64, registry.Len()),
		valueCols: make(map[domain.Ticker][]float64, registry.Len()),
		yields:    yields,
		benchmark: benchmark,
	}

	for _, ticker := range e.order {
		shares, ok := sharesCols[ticker]
		if !ok {
			return nil, fmt.Errorf("no shares column for ticker %s", ticker)
		}
		if len(shares) != ix.Len() {
			return nil, fmt.Errorf("shares column for %s has %d values, calendar has %d", ticker, len(shares), ix.Len())
		}

		window, _ := registry.WindowOf(ticker)
		lo, hi := ix.RangePositions(window)

		capCol := make([]float64, ix.Len())
		valueCol := make([]float64, ix.Len())
		for i := lo; i < hi; i++ {
			capCol[i] = p.CloseAt(ticker, i) * shares[i]
			valueCol[i] = p.CloseAt(ticker, i) * p.VolumeAt(ticker, i)
		}
		e.capCols[ticker] = capCol
		e.valueCols[ticker] = valueCol
	}

	return e, nil
}

// Index returns the trading calendar the engine operates on.
func (e *Engine) Index() *series.Index { return e.index }

// Tickers returns every tracked ticker in registry order.
func (e *Engine) Tickers() []domain.Ticker {
	out := make([]domain.Ticker, len(e.order))
	copy(out, e.order)
	return out
}

// subset resolves a requested ticker subset. Empty means all tracked
// tickers; unknown tickers are an error rather than silently ignored.
func (e *Engine) subset(tickers []domain.Ticker) ([]domain.Ticker, error) {
	if len(tickers) == 0 {
		return e.order, nil
	}
	for _, ticker := range tickers {
		if _, ok := e.capCols[ticker]; !ok {
			return nil, fmt.Errorf("ticker %s is not tracked", ticker)
		}
	}
	return tickers, nil
}

// sumColumns adds the selected tickers' columns into one daily series.
func (e *Engine) sumColumns(cols map[domain.Ticker][]float64, tickers []domain.Ticker, name string) series.Series {
	values := make([]float64, e.index.Len())
	for _, ticker := range tickers {
		for i, v := range cols[ticker] {
			values[i] += v
		}
	}
	return series.Series{Name: name, Dates: e.index.Dates(), Values: values}
}

// Capitalization returns the total market capitalization of the subset,
// downsampled by period averaging.
func (e *Engine) Capitalization(tickers []domain.Ticker, freq series.Frequency) (series.Series, error) {
	subset, err := e.subset(tickers)
	if err != nil {
		return series.Series{}, err
	}
	return e.sumColumns(e.capCols, subset, "capitalization").Resample(freq), nil
}

// TradingValue returns the total daily traded value of the subset,
// downsampled by period averaging.
func (e *Engine) TradingValue(tickers []domain.Ticker, freq series.Frequency) (series.Series, error) {
	subset, err := e.subset(tickers)
	if err != nil {
		return series.Series{}, err
	}
	return e.sumColumns(e.valueCols, subset, "trading_value").Resample(freq), nil
}

// AnnualTradingValue returns the annualized traded value at the given
// frequency: the average daily traded value of each period times the
// trading-day count per year.
func (e *Engine) AnnualTradingValue(tickers []domain.Ticker, freq series.Frequency) (series.Series, error) {
	avg, err := e.TradingValue(tickers, freq)
	if err != nil {
		return series.Series{}, err
	}
	out := avg.Scale(float64(e.params.TradingDaysPerYear))
	out.Name = "annual_trading_value"
	return out, nil
}

// Turnover returns the subset's turnover ratio, computed per date as
// traded value over capitalization and then averaged per period. The
// ratio is taken before averaging; averaging value and capitalization
// separately and dividing would weight days unequally.
func (e *Engine) Turnover(tickers []domain.Ticker, freq series.Frequency) (series.Series, error) {
	subset, err := e.subset(tickers)
	if err != nil {
		return series.Series{}, err
	}

	caps := e.sumColumns(e.capCols, subset, "")
	values := e.sumColumns(e.valueCols, subset, "")

	ratios := series.Series{Name: "turnover", Dates: e.index.Dates(), Values: make([]float64, e.index.Len())}
	for i := range ratios.Values {
		if caps.Values[i] > 0 {
			ratios.Values[i] = values.Values[i] / caps.Values[i]
		}
	}
	return ratios.Resample(freq), nil
}

// AnnualTurnover returns the annualized turnover at the given
// frequency: the average daily ratio of each period times the
// trading-day count per year.
func (e *Engine) AnnualTurnover(tickers []domain.Ticker, freq series.Frequency) (series.Series, error) {
	avg, err := e.Turnover(tickers, freq)
	if err != nil {
		return series.Series{}, err
	}
	out := avg.Scale(float64(e.params.TradingDaysPerYear))
	out.Name = "annual_turnover"
	return out, nil
}

// TopN returns the n largest tickers by capitalization at the anchor
// date, with each entry's share of the full total. asOf picks the
// reference date; the zero time means the latest trading day. Anchors
// that fall before a trading day roll back to the nearest preceding
// one; an anchor before the whole calendar yields an empty table.
func (e *Engine) TopN(n int, anchor Anchor, asOf time.Time) ([]domain.TopNEntry, error) {
	if n <= 0 {
		return nil, fmt.Errorf("top-N size must be positive, got %d", n)
	}

	pos, ok := e.anchorPosition(anchor, asOf)
	if !ok {
		return []domain.TopNEntry{}, nil
	}

	entries := make([]domain.TopNEntry, 0, len(e.order))
	total := 0.0
	for _, ticker := range e.order {
		capitalization := e.capCols[ticker][pos]
		if capitalization <= 0 {
			continue
		}
		total += capitalization
		entries = append(entries, domain.TopNEntry{Ticker: ticker, Capitalization: capitalization})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Capitalization > entries[j].Capitalization
	})
	if n < len(entries) {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].MarketShare = entries[i].Capitalization / total
	}
	return entries, nil
}

func (e *Engine) anchorPosition(anchor Anchor, asOf time.Time) (int, bool) {
	ref := e.index.Last()
	if !asOf.IsZero() {
		ref = domain.Day(asOf)
	}
	var target time.Time
	switch anchor {
	case AnchorMonth:
		target = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	case AnchorYear:
		target = time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		target = ref
	}
	return e.index.NearestBefore(target)
}

// Volatility returns the annualized exponentially weighted volatility
// of the benchmark index's daily percentage changes, averaged per
// period. Without a benchmark series the query soft-fails with
// ErrVolatilityUnavailable; every other metric stays usable.
func (e *Engine) Volatility(freq series.Frequency) (series.Series, error) {
	if e.benchmark.Len() < 3 {
		return series.Series{}, domerrors.ErrVolatilityUnavailable
	}

	changes := pctChange(e.benchmark.Values)
	stds := ewmStd(changes, e.params.VolatilityAlpha)
	annualize := math.Sqrt(float64(e.params.TradingDaysPerYear))

	out := series.Series{Name: "volatility"}
	for i, std := range stds {
		if math.IsNaN(std) {
			continue
		}
		// Change i is dated at benchmark date i+1.
		out.Dates = append(out.Dates, e.benchmark.Dates[i+1])
		out.Values = append(out.Values, std*annualize)
	}
	if out.Empty() {
		return series.Series{}, domerrors.ErrVolatilityUnavailable
	}
	return out.Resample(freq), nil
}

// ForwardDividendYield returns the capitalization-weighted forward
// dividend yield at the latest trading day, normalized by the total
// last-date capitalization. A ticker whose membership window closes on
// the final date still carries weight in the denominator; tickers
// without a reported yield contribute zero to the numerator. The
// result is a snapshot convention rather than a time series.
func (e *Engine) ForwardDividendYield() float64 {
	last := e.index.Len() - 1
	if last < 0 {
		return 0
	}

	var weighted, total float64
	for _, ticker := range e.order {
		capitalization := e.capCols[ticker][last]
		if capitalization <= 0 {
			continue
		}
		total += capitalization
		weighted += capitalization * e.yields[ticker]
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}
