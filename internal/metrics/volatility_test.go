package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEwmStd(t *testing.T) {
	t.Run("two observations", func(t *testing.T) {
		// alpha=0.5: weights 0.5 and 1, weighted mean 2, bias-corrected
		// variance 4.5.
		got := ewmStd([]float64{0, 3}, 0.5)
		require.Len(t, got, 2)
		assert.True(t, math.IsNaN(got[0]))
		assert.InDelta(t, math.Sqrt(4.5), got[1], 1e-12)
	})

	t.Run("constant series has zero deviation", func(t *testing.T) {
		got := ewmStd([]float64{5, 5, 5, 5}, 0.1)
		for _, v := range got[1:] {
			assert.InDelta(t, 0, v, 1e-12)
		}
	})

	t.Run("matches direct weighted computation", func(t *testing.T) {
		values := []float64{1.2, -0.4, 0.9, 2.1, -1.5}
		alpha := 0.05547
		got := ewmStd(values, alpha)

		// Direct computation at the last position: weights (1-a)^k.
		n := len(values)
		var sumW, sumW2, mean float64
		for i, x := range values {
			w := math.Pow(1-alpha, float64(n-1-i))
			sumW += w
			sumW2 += w * w
			mean += w * x
		}
		mean /= sumW
		var s float64
		for i, x := range values {
			w := math.Pow(1-alpha, float64(n-1-i))
			s += w * (x - mean) * (x - mean)
		}
		want := math.Sqrt(s * sumW / (sumW*sumW - sumW2))

		assert.InDelta(t, want, got[n-1], 1e-12)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, ewmStd(nil, 0.5))
	})
}

func TestPctChange(t *testing.T) {
	got := pctChange([]float64{100, 110, 99})
	require.Len(t, got, 2)
	assert.InDelta(t, 0.10, got[0], 1e-12)
	assert.InDelta(t, -0.10, got[1], 1e-12)

	assert.Nil(t, pctChange([]float64{100}))
}
