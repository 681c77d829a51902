package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indexpulse/pkg/contracts/domain"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestNewIndex(t *testing.T) {
	t.Run("sorts, deduplicates and normalizes", func(t *testing.T) {
		ix := NewIndex([]time.Time{
			time.Date(2024, 1, 3, 15, 30, 0, 0, time.FixedZone("EST", -5*3600)),
			d(2024, 1, 2),
			d(2024, 1, 3),
			d(2024, 1, 1),
		})

		require.Equal(t, 3, ix.Len())
		assert.Equal(t, d(2024, 1, 1), ix.First())
		assert.Equal(t, d(2024, 1, 3), ix.Last())
	})

	t.Run("lookup finds exact dates only", func(t *testing.T) {
		ix := NewIndex([]time.Time{d(2024, 1, 2), d(2024, 1, 4)})

		i, ok := ix.Lookup(d(2024, 1, 4))
		require.True(t, ok)
		assert.Equal(t, 1, i)

		_, ok = ix.Lookup(d(2024, 1, 3))
		assert.False(t, ok)
	})
}

func TestIndexNearestBefore(t *testing.T) {
	ix := NewIndex([]time.Time{d(2024, 1, 2), d(2024, 1, 5), d(2024, 1, 9)})

	tests := []struct {
		name    string
		date    time.Time
		wantPos int
		wantOK  bool
	}{
		{"exact match", d(2024, 1, 5), 1, true},
		{"between dates rolls back", d(2024, 1, 7), 1, true},
		{"after last", d(2024, 2, 1), 2, true},
		{"before first", d(2023, 12, 29), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, ok := ix.NearestBefore(tt.date)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantPos, pos)
			}
		})
	}
}

func TestIndexRangePositions(t *testing.T) {
	ix := NewIndex([]time.Time{d(2024, 1, 2), d(2024, 1, 3), d(2024, 1, 4), d(2024, 1, 5)})
	start := d(2024, 1, 3)
	end := d(2024, 1, 4)

	t.Run("both boundaries", func(t *testing.T) {
		lo, hi := ix.RangePositions(domain.MembershipWindow{Start: &start, End: &end})
		assert.Equal(t, 1, lo)
		assert.Equal(t, 3, hi)
	})

	t.Run("open window covers everything", func(t *testing.T) {
		lo, hi := ix.RangePositions(domain.MembershipWindow{})
		assert.Equal(t, 0, lo)
		assert.Equal(t, 4, hi)
	})

	t.Run("window before index is empty", func(t *testing.T) {
		e := d(2023, 12, 1)
		lo, hi := ix.RangePositions(domain.MembershipWindow{End: &e})
		assert.Equal(t, lo, hi)
	})
}

func TestResample(t *testing.T) {
	t.Run("monthly mean drops empty periods", func(t *testing.T) {
		s := Series{
			Name:   "cap",
			Dates:  []time.Time{d(2024, 1, 2), d(2024, 1, 3), d(2024, 3, 1)},
			Values: []float64{10, 20, 40},
		}

		got := s.Resample(Monthly)

		require.Equal(t, 2, got.Len())
		assert.Equal(t, d(2024, 1, 1), got.Dates[0])
		assert.InDelta(t, 15.0, got.Values[0], 1e-12)
		// February has no observations and must be absent.
		assert.Equal(t, d(2024, 3, 1), got.Dates[1])
		assert.InDelta(t, 40.0, got.Values[1], 1e-12)
	})

	t.Run("idempotent on an already aligned series", func(t *testing.T) {
		s := Series{
			Dates:  []time.Time{d(2024, 1, 1), d(2024, 2, 1), d(2024, 3, 1)},
			Values: []float64{1, 2, 3},
		}

		got := s.Resample(Monthly)

		require.Equal(t, s.Len(), got.Len())
		for i := range s.Dates {
			assert.Equal(t, s.Dates[i], got.Dates[i])
			assert.Equal(t, s.Values[i], got.Values[i])
		}
	})

	t.Run("daily is identity", func(t *testing.T) {
		s := Series{Dates: []time.Time{d(2024, 1, 2)}, Values: []float64{5}}
		assert.Equal(t, s, s.Resample(Daily))
	})

	t.Run("annual anchors at year start", func(t *testing.T) {
		s := Series{
			Dates:  []time.Time{d(2023, 6, 1), d(2023, 7, 1), d(2024, 2, 1)},
			Values: []float64{2, 4, 9},
		}

		got := s.Resample(Annual)

		require.Equal(t, 2, got.Len())
		assert.Equal(t, d(2023, 1, 1), got.Dates[0])
		assert.InDelta(t, 3.0, got.Values[0], 1e-12)
		assert.Equal(t, d(2024, 1, 1), got.Dates[1])
	})
}

func TestParseFrequency(t *testing.T) {
	for _, valid := range []string{"D", "M", "Q", "A"} {
		f, err := ParseFrequency(valid)
		require.NoError(t, err)
		assert.Equal(t, Frequency(valid), f)
	}

	_, err := ParseFrequency("W")
	assert.Error(t, err)
}

func TestSeriesTail(t *testing.T) {
	s := Series{
		Dates:  []time.Time{d(2024, 1, 1), d(2024, 1, 2), d(2024, 1, 3)},
		Values: []float64{1, 2, 3},
	}

	tail := s.Tail(2)
	require.Equal(t, 2, tail.Len())
	assert.Equal(t, 2.0, tail.Values[0])

	assert.Equal(t, 3, s.Tail(10).Len())
}
