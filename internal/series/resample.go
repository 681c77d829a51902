package series

import (
	"fmt"
	"time"

	"indexpulse/pkg/contracts/domain"
)

// Frequency designates the downsampling period of an engine query.
type Frequency string

const (
	// Daily keeps the series at its native daily resolution.
	Daily Frequency = "D"
	// Monthly averages observations within each calendar month,
	// anchored at the first of the month.
	Monthly Frequency = "M"
	// Quarterly averages observations within each calendar quarter.
	Quarterly Frequency = "Q"
	// Annual averages observations within each calendar year.
	Annual Frequency = "A"
)

// ParseFrequency converts a frequency designator string to a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case Daily, Monthly, Quarterly, Annual:
		return Frequency(s), nil
	default:
		return "", fmt.Errorf("unknown frequency designator %q", s)
	}
}

// Anchor returns the period anchor date a given date belongs to: the
// date itself for daily, the month start for monthly, the quarter start
// for quarterly and January 1st for annual.
func (f Frequency) Anchor(date time.Time) time.Time {
	day := domain.Day(date)
	switch f {
	case Monthly:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	case Quarterly:
		q := (int(day.Month()) - 1) / 3
		return time.Date(day.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
	case Annual:
		return time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

// Resample downsamples the series by taking the arithmetic mean of all
// observations within each period. Periods without observations are
// dropped, never interpolated. Resampling an already period-aligned
// series at the same frequency returns the same values.
func (s Series) Resample(f Frequency) Series {
	if f == Daily || s.Empty() {
		return s
	}

	out := Series{Name: s.Name}
	var (
		anchor time.Time
		sum    float64
		count  int
	)
	flush := func() {
		if count > 0 {
			out.Dates = append(out.Dates, anchor)
			out.Values = append(out.Values, sum/float64(count))
		}
		sum, count = 0, 0
	}
	for i, d := range s.Dates {
		a := f.Anchor(d)
		if count > 0 && !a.Equal(anchor) {
			flush()
		}
		anchor = a
		sum += s.Values[i]
		count++
	}
	flush()
	return out
}

// Scale returns a copy of the series with every value multiplied by the
// given factor.
func (s Series) Scale(factor float64) Series {
	out := Series{Name: s.Name, Dates: s.Dates, Values: make([]float64, len(s.Values))}
	for i, v := range s.Values {
		out.Values[i] = v * factor
	}
	return out
}
