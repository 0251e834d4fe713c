package validate

import (
	"math"

	"github.com/climaqc/station-quality-service/internal/domain"
	"github.com/climaqc/station-quality-service/internal/stats"
)

// flagChangePoints marks abrupt deviations from the local trend: a
// value is a change point when it lies more than changePointSigma
// rolling standard deviations from the centered rolling mean of its
// neighborhood. The window spans changePointWindow observations of the
// non-missing series and shrinks at the boundaries, down to a minimum
// of two samples. A zero rolling deviation flags nothing.
//
// Returns the record indices of the flagged points in series order.
func flagChangePoints(flags []domain.Flag, col column) []int {
	n := len(col.series)
	if n < minZSamples {
		return nil
	}

	half := changePointWindow / 2
	var points []int
	for k, v := range col.series {
		lo := k - half
		if lo < 0 {
			lo = 0
		}
		hi := k + half
		if hi >= n {
			hi = n - 1
		}
		window := col.series[lo : hi+1]
		if len(window) < 2 {
			continue
		}

		mean := stats.Mean(window)
		std := stats.SampleStd(window)
		if std == 0 {
			continue
		}
		if math.Abs(v-mean) > changePointSigma*std {
			flags[col.seriesIx[k]] |= domain.FlagChangePoint
			points = append(points, col.seriesIx[k])
		}
	}
	return points
}
