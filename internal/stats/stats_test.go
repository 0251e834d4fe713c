package stats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/climaqc/station-quality-service/internal/stats"
)

func TestMean(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{3.5}, 3.5},
		{"several", []float64{1, 2, 3, 4}, 2.5},
		{"negative", []float64{-2, 2}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, stats.Mean(tt.xs), 1e-9)
		})
	}
}

func TestStd(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	// Known dataset: population std 2, sample std ~2.138.
	assert.InDelta(t, 2.0, stats.PopStd(xs), 1e-9)
	assert.InDelta(t, 2.13809, stats.SampleStd(xs), 1e-4)

	t.Run("degenerate inputs", func(t *testing.T) {
		assert.Zero(t, stats.PopStd(nil))
		assert.Zero(t, stats.SampleStd(nil))
		assert.Zero(t, stats.SampleStd([]float64{42}))
		assert.Zero(t, stats.PopStd([]float64{5, 5, 5}))
	})
}

func TestQuantile(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		p    float64
		want float64
	}{
		{"empty", nil, 0.5, 0},
		{"single", []float64{7}, 0.25, 7},
		{"median odd", []float64{3, 1, 2}, 0.5, 2},
		{"median even interpolates", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"q1 interpolates", []float64{10, 12, 11, 13, 1000, 12}, 0.25, 11.25},
		{"q3 interpolates", []float64{10, 12, 11, 13, 1000, 12}, 0.75, 12.75},
		{"p0 is min", []float64{9, 4, 6}, 0, 4},
		{"p1 is max", []float64{9, 4, 6}, 1, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, stats.Quantile(tt.xs, tt.p), 1e-9)
		})
	}
}

func TestQuantileDoesNotMutateInput(t *testing.T) {
	xs := []float64{5, 1, 3}
	stats.Quantile(xs, 0.5)
	assert.Equal(t, []float64{5, 1, 3}, xs)
}

func TestMinMax(t *testing.T) {
	xs := []float64{4, -1, 9, 0}
	assert.Equal(t, -1.0, stats.Min(xs))
	assert.Equal(t, 9.0, stats.Max(xs))
	assert.Zero(t, stats.Min(nil))
	assert.Zero(t, stats.Max(nil))
}

func TestMedian(t *testing.T) {
	assert.InDelta(t, 25.0, stats.Median([]float64{25.4, 24.8, 25.0}), 1e-9)
}
