// Package panel holds the calendar-aligned table of daily close prices
// and traded volumes for every tracked ticker. The panel is one array
// per field per ticker over a shared date index, with NaN marking dates
// not yet covered by any source.
package panel

import (
	"fmt"
	"math"

	"indexpulse/internal/series"
	"indexpulse/pkg/contracts/domain"
)

type column struct {
	close  []float64
	volume []float64
}

// Panel is the in-memory observation table. It is mutated only while the
// market is under construction (feed writes, reconciliation, gap
// filling) and read-only afterwards.
type Panel struct {
	index   *series.Index
	tickers []domain.Ticker
	cols    map[domain.Ticker]*column
}

// New creates a panel over the given date index with one all-missing
// column pair per ticker.
func New(index *series.Index, tickers []domain.Ticker) *Panel {
	p := &Panel{
		index:   index,
		tickers: make([]domain.Ticker, len(tickers)),
		cols:    make(map[domain.Ticker]*column, len(tickers)),
	}
	copy(p.tickers, tickers)
	for _, ticker := range tickers {
		c := &column{
			close:  make([]float64, index.Len()),
			volume: make([]float64, index.Len()),
		}
		for i := range c.close {
			c.close[i] = math.NaN()
			c.volume[i] = math.NaN()
		}
		p.cols[ticker] = c
	}
	return p
}

// Index returns the shared date index.
func (p *Panel) Index() *series.Index { return p.index }

// Tickers returns the panel's tickers in construction order.
func (p *Panel) Tickers() []domain.Ticker {
	out := make([]domain.Ticker, len(p.tickers))
	copy(out, p.tickers)
	return out
}

// SetRows re-indexes raw bars onto the panel calendar and writes them
// into the ticker's column block. Bars dated outside the calendar are
// dropped, which also slices fallback extracts to start at the panel's
// first date.
func (p *Panel) SetRows(ticker domain.Ticker, bars []domain.Bar) error {
	c, ok := p.cols[ticker]
	if !ok {
		return fmt.Errorf("ticker %s is not part of the panel", ticker)
	}
	for _, bar := range bars {
		if i, ok := p.index.Lookup(bar.Date); ok {
			c.close[i] = bar.Close
			c.volume[i] = bar.Volume
		}
	}
	return nil
}

// CloseAt returns the close price of a ticker at index position i.
func (p *Panel) CloseAt(ticker domain.Ticker, i int) float64 {
	return p.cols[ticker].close[i]
}

// VolumeAt returns the traded volume of a ticker at index position i.
func (p *Panel) VolumeAt(ticker domain.Ticker, i int) float64 {
	return p.cols[ticker].volume[i]
}

// IsEmpty reports whether a ticker has no observation at all, which is
// how the reconciler detects tickers absent from the primary feed.
func (p *Panel) IsEmpty(ticker domain.Ticker) bool {
	c, ok := p.cols[ticker]
	if !ok {
		return true
	}
	for _, v := range c.close {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

// LastObserved returns the position of the ticker's last non-missing
// close.
func (p *Panel) LastObserved(ticker domain.Ticker) (int, bool) {
	c, ok := p.cols[ticker]
	if !ok {
		return 0, false
	}
	for i := len(c.close) - 1; i >= 0; i-- {
		if !math.IsNaN(c.close[i]) {
			return i, true
		}
	}
	return 0, false
}

// ReplicateForward copies the close at position from into every position
// of (from, through] with volume forced to zero. It models a delisted
// name whose feed coverage ended early: still nominally listed, price
// frozen, no trading.
func (p *Panel) ReplicateForward(ticker domain.Ticker, from, through int) error {
	c, ok := p.cols[ticker]
	if !ok {
		return fmt.Errorf("ticker %s is not part of the panel", ticker)
	}
	if from < 0 || from >= p.index.Len() || math.IsNaN(c.close[from]) {
		return fmt.Errorf("no observation to replicate for %s at position %d", ticker, from)
	}
	if through >= p.index.Len() {
		through = p.index.Len() - 1
	}
	for i := from + 1; i <= through; i++ {
		c.close[i] = c.close[from]
		c.volume[i] = 0
	}
	return nil
}

// Fill applies the panel gap policy so that every calendar date has an
// entry for every ticker:
//
//   - dates before a ticker's first observation take its first available
//     close with zero volume (the ticker is assumed flat and untraded
//     before its first observation, not missing at random);
//   - interior gaps take the next available close with zero volume;
//   - dates after the last observation take the last close with zero
//     volume.
//
// A column with no observation at all is an error: the reconciler must
// have failed it earlier, and silently keeping it would corrupt
// aggregates.
func (p *Panel) Fill() error {
	for _, ticker := range p.tickers {
		c := p.cols[ticker]

		// Backward pass: leading and interior gaps take the next close.
		nextClose := math.NaN()
		for i := len(c.close) - 1; i >= 0; i-- {
			if math.IsNaN(c.close[i]) {
				c.close[i] = nextClose
				c.volume[i] = 0
			} else {
				nextClose = c.close[i]
			}
		}

		// Forward pass: trailing gaps take the last close.
		lastClose := math.NaN()
		for i := range c.close {
			if math.IsNaN(c.close[i]) {
				c.close[i] = lastClose
				c.volume[i] = 0
			} else {
				lastClose = c.close[i]
			}
		}

		if math.IsNaN(c.close[0]) {
			return fmt.Errorf("ticker %s has no observations after reconciliation", ticker)
		}
	}
	return nil
}
