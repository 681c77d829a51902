package panel

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"indexpulse/internal/series"
	"indexpulse/pkg/contracts/domain"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func newTestIndex() *series.Index {
	return series.NewIndex([]time.Time{
		d(2024, 1, 2), d(2024, 1, 3), d(2024, 1, 4), d(2024, 1, 5),
	})
}

func TestSetRows(t *testing.T) {
	ix := newTestIndex()
	p := New(ix, []domain.Ticker{"A"})

	t.Run("writes aligned bars", func(t *testing.T) {
		err := p.SetRows("A", []domain.Bar{
			{Date: d(2024, 1, 3), Close: 101, Volume: 500},
			{Date: d(2024, 1, 4), Close: 102, Volume: 600},
		})
		require.NoError(t, err)

		assert.Equal(t, 101.0, p.CloseAt("A", 1))
		assert.Equal(t, 600.0, p.VolumeAt("A", 2))
		assert.True(t, math.IsNaN(p.CloseAt("A", 0)))
	})

	t.Run("drops bars outside the calendar", func(t *testing.T) {
		err := p.SetRows("A", []domain.Bar{
			{Date: d(2023, 12, 29), Close: 90, Volume: 100},
			{Date: d(2024, 1, 6), Close: 110, Volume: 100},
		})
		require.NoError(t, err)
		assert.True(t, math.IsNaN(p.CloseAt("A", 0)))
	})

	t.Run("unknown ticker fails", func(t *testing.T) {
		assert.Error(t, p.SetRows("B", nil))
	})
}

func TestIsEmptyAndLastObserved(t *testing.T) {
	p := New(newTestIndex(), []domain.Ticker{"A", "B"})
	require.NoError(t, p.SetRows("A", []domain.Bar{{Date: d(2024, 1, 3), Close: 50, Volume: 10}}))

	assert.False(t, p.IsEmpty("A"))
	assert.True(t, p.IsEmpty("B"))

	pos, ok := p.LastObserved("A")
	require.True(t, ok)
	assert.Equal(t, 1, pos)

	_, ok = p.LastObserved("B")
	assert.False(t, ok)
}

func TestReplicateForward(t *testing.T) {
	p := New(newTestIndex(), []domain.Ticker{"A"})
	require.NoError(t, p.SetRows("A", []domain.Bar{{Date: d(2024, 1, 3), Close: 75, Volume: 900}}))

	require.NoError(t, p.ReplicateForward("A", 1, 3))

	for i := 2; i <= 3; i++ {
		assert.Equal(t, 75.0, p.CloseAt("A", i))
		assert.Equal(t, 0.0, p.VolumeAt("A", i))
	}
	// The source observation keeps its real volume.
	assert.Equal(t, 900.0, p.VolumeAt("A", 1))

	t.Run("replicating from a missing observation fails", func(t *testing.T) {
		assert.Error(t, p.ReplicateForward("A", 0, 3))
	})
}

func TestFill(t *testing.T) {
	t.Run("backfills entry with first close and zero volume", func(t *testing.T) {
		p := New(newTestIndex(), []domain.Ticker{"A"})
		require.NoError(t, p.SetRows("A", []domain.Bar{
			{Date: d(2024, 1, 4), Close: 20, Volume: 300},
			{Date: d(2024, 1, 5), Close: 21, Volume: 400},
		}))

		require.NoError(t, p.Fill())

		assert.Equal(t, 20.0, p.CloseAt("A", 0))
		assert.Equal(t, 0.0, p.VolumeAt("A", 0))
		assert.Equal(t, 20.0, p.CloseAt("A", 1))
		assert.Equal(t, 0.0, p.VolumeAt("A", 1))
		// Real observations are untouched.
		assert.Equal(t, 300.0, p.VolumeAt("A", 2))
	})

	t.Run("interior gap takes the next close", func(t *testing.T) {
		p := New(newTestIndex(), []domain.Ticker{"A"})
		require.NoError(t, p.SetRows("A", []domain.Bar{
			{Date: d(2024, 1, 2), Close: 10, Volume: 100},
			{Date: d(2024, 1, 5), Close: 13, Volume: 150},
		}))

		require.NoError(t, p.Fill())

		assert.Equal(t, 13.0, p.CloseAt("A", 1))
		assert.Equal(t, 0.0, p.VolumeAt("A", 1))
	})

	t.Run("trailing gap carries the last close", func(t *testing.T) {
		p := New(newTestIndex(), []domain.Ticker{"A"})
		require.NoError(t, p.SetRows("A", []domain.Bar{
			{Date: d(2024, 1, 2), Close: 10, Volume: 100},
		}))

		require.NoError(t, p.Fill())

		assert.Equal(t, 10.0, p.CloseAt("A", 3))
		assert.Equal(t, 0.0, p.VolumeAt("A", 3))
	})

	t.Run("empty column is an error", func(t *testing.T) {
		p := New(newTestIndex(), []domain.Ticker{"A"})
		err := p.Fill()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "A")
	})
}
