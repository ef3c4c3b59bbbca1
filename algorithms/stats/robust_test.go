package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMedian(t *testing.T) {
	scratch := make([]float64, 16)
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"odd", []float64{3, 1, 2}, 2},
		{"even", []float64{200, 202, 198, 201}, 200.5},
		{"single", []float64{7}, 7},
		{"spike", []float64{200, 201, 199, 900, 200}, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := append([]float64(nil), tt.values...)
			assert.Equal(t, tt.want, Median(in, scratch))
			assert.Equal(t, tt.values, in, "input must not be reordered")
		})
	}
	assert.True(t, math.IsNaN(Median(nil, scratch)))
}

func TestInterquartileMean(t *testing.T) {
	scratch := make([]float64, 16)
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"single falls back to median", []float64{5}, 5},
		{"pair falls back to median", []float64{4, 6}, 5},
		{"three keeps middle", []float64{1, 100, 10}, 10},
		{"four trims ends", []float64{1, 2, 3, 1000}, 2.5},
		{"eight trims quarter each side", []float64{0, 1, 2, 3, 4, 5, 6, 100}, 3.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, InterquartileMean(tt.values, scratch), 1e-12)
		})
	}
}

func TestMeanStdDev(t *testing.T) {
	mean, std := MeanStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mean, 1e-12)
	assert.InDelta(t, math.Sqrt(32.0/7.0), std, 1e-12)

	mean, std = MeanStdDev([]float64{3})
	assert.Equal(t, 3.0, mean)
	assert.Equal(t, 0.0, std)
}

func TestIsOutlier(t *testing.T) {
	recent := []float64{200, 202, 198, 201}
	assert.True(t, IsOutlier(400, recent, 2.5))
	assert.False(t, IsOutlier(201.5, recent, 2.5))
	assert.False(t, IsOutlier(400, nil, 2.5))
}
