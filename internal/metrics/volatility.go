package metrics

import "math"

// ewmStd computes the exponentially weighted moving standard deviation
// of values with smoothing factor alpha, weighting past observations by
// (1-alpha)^k and applying the bias correction for weighted samples.
//
// Implemented incrementally (West 1979): per observation the weight
// sums, weighted mean and weighted sum of squared deviations decay by
// (1-alpha) and absorb the new point, so the whole series is one pass.
// The first output is NaN since a single observation has no deviation.
func ewmStd(values []float64, alpha float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	decay := 1 - alpha
	var (
		sumW  float64 // sum of weights
		sumW2 float64 // sum of squared weights
		mean  float64
		s     float64 // weighted sum of squared deviations from mean
	)

	for i, x := range values {
		if i == 0 {
			sumW, sumW2, mean, s = 1, 1, x, 0
			out[0] = math.NaN()
			continue
		}

		sumW = sumW*decay + 1
		sumW2 = sumW2*decay*decay + 1
		delta := x - mean
		mean += delta / sumW
		s = s*decay + delta*(x-mean)

		denominator := sumW*sumW - sumW2
		if denominator <= 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Sqrt(s * sumW / denominator)
	}

	return out
}

// pctChange returns v[i]/v[i-1] - 1 for i >= 1. The result is one
// element shorter than the input.
func pctChange(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = values[i]/values[i-1] - 1
	}
	return out
}
