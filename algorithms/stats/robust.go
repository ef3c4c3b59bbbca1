package stats

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Robust location estimates for short pitch tracks.
//
// Every function takes a caller-owned scratch slice so per-frame callers stay
// allocation free. scratch must be at least len(values) long; values is never
// modified.

// Median returns the median of values, averaging the two middle elements for
// even lengths. Returns NaN for empty input.
func Median(values, scratch []float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sorted := scratch[:n]
	copy(sorted, values)
	slices.Sort(sorted)
	return sortedMedian(sorted)
}

func sortedMedian(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2.0
	}
	return sorted[n/2]
}

// InterquartileMean averages the middle half of values: after sorting, the
// elements with index in [ceil(n/4), floor(3n/4)) are kept. That range is
// empty for n < 3, in which case the median is returned.
func InterquartileMean(values, scratch []float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sorted := scratch[:n]
	copy(sorted, values)
	slices.Sort(sorted)

	lo := (n + 3) / 4
	hi := (3 * n) / 4
	if hi <= lo {
		return sortedMedian(sorted)
	}
	return stat.Mean(sorted[lo:hi], nil)
}

// MeanStdDev returns the mean and the unbiased sample standard deviation.
// A single value has zero deviation.
func MeanStdDev(values []float64) (mean, std float64) {
	switch len(values) {
	case 0:
		return math.NaN(), math.NaN()
	case 1:
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

// IsOutlier reports whether v deviates from the mean of values by more than
// k standard deviations.
func IsOutlier(v float64, values []float64, k float64) bool {
	if len(values) == 0 {
		return false
	}
	mean, std := MeanStdDev(values)
	return math.Abs(v-mean) > k*std
}
