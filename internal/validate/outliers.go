package validate

import (
	"math"

	"github.com/climaqc/station-quality-service/internal/domain"
	"github.com/climaqc/station-quality-service/internal/stats"
)

// flagIQROutliers marks values outside the Tukey fences
// [Q1 - 1.5*IQR, Q3 + 1.5*IQR] computed over the variable's non-missing
// series. A degenerate spread (IQR == 0, e.g. a constant series) yields
// no outliers, and series shorter than minIQRSamples are skipped.
func flagIQROutliers(flags []domain.Flag, col column) {
	if len(col.series) < minIQRSamples {
		return
	}
	q1 := stats.Quantile(col.series, 0.25)
	q3 := stats.Quantile(col.series, 0.75)
	iqr := q3 - q1
	if iqr == 0 {
		return
	}

	lower := q1 - iqrMultiplier*iqr
	upper := q3 + iqrMultiplier*iqr
	for k, v := range col.series {
		if v < lower || v > upper {
			flags[col.seriesIx[k]] |= domain.FlagOutlierIQR
		}
	}
}

// flagZScoreOutliers marks values more than zScoreThreshold population
// standard deviations from the series mean. A zero deviation flags
// nothing (constant series, no division by zero).
func flagZScoreOutliers(flags []domain.Flag, col column) {
	if len(col.series) < minZSamples {
		return
	}
	mean := stats.Mean(col.series)
	std := stats.PopStd(col.series)
	if std == 0 {
		return
	}

	for k, v := range col.series {
		if math.Abs(v-mean)/std > zScoreThreshold {
			flags[col.seriesIx[k]] |= domain.FlagOutlierZScore
		}
	}
}
