// Package quality computes the per-variable and overall quality metrics
// from validation flags: completeness, validity, consistency, the
// weighted quality index, and the usability recommendation.
//
// Everything here is a pure function of its inputs; flags are read,
// never mutated.
package quality

import (
	"github.com/climaqc/station-quality-service/internal/domain"
	"github.com/climaqc/station-quality-service/internal/stats"
)

// Weights is the completeness/validity/consistency weighting triple of
// the quality index.
type Weights struct {
	Completeness float64 `yaml:"completeness"`
	Validity     float64 `yaml:"validity"`
	Consistency  float64 `yaml:"consistency"`
}

// DefaultWeights returns the standard 0.4/0.4/0.2 triple.
func DefaultWeights() Weights {
	return Weights{Completeness: 0.4, Validity: 0.4, Consistency: 0.2}
}

// Bands holds the quality-index thresholds of the recommendation bands.
// Lower edges are inclusive.
type Bands struct {
	Adequate  float64 `yaml:"adequate"`
	Partially float64 `yaml:"partially_adequate"`
}

// DefaultBands returns the standard 80/60 thresholds.
func DefaultBands() Bands {
	return Bands{Adequate: 80, Partially: 60}
}

// Aggregator computes quality reports from validation output.
type Aggregator struct {
	weights Weights
	bands   Bands
	defs    map[string]domain.VariableDefinition
}

// NewAggregator validates the weighting triple and band thresholds.
// defs supplies display labels per variable and may be nil.
func NewAggregator(weights Weights, bands Bands, defs map[string]domain.VariableDefinition) (*Aggregator, error) {
	if weights.Completeness < 0 || weights.Validity < 0 || weights.Consistency < 0 {
		return nil, &domain.ConfigurationError{Field: "weights", Reason: "weights must be non-negative"}
	}
	sum := weights.Completeness + weights.Validity + weights.Consistency
	if sum < 0.999 || sum > 1.001 {
		return nil, &domain.ConfigurationError{Field: "weights", Reason: "weights must sum to 1.0"}
	}
	if bands.Partially < 0 || bands.Adequate > 100 || bands.Partially >= bands.Adequate {
		return nil, &domain.ConfigurationError{Field: "bands", Reason: "thresholds must satisfy 0 <= partially < adequate <= 100"}
	}
	return &Aggregator{weights: weights, bands: bands, defs: defs}, nil
}

// Aggregate builds the per-variable reports and the overall report.
// Variables with zero non-missing values score 0 on validity and
// consistency, are marked insufficient, and are excluded from the
// overall index mean. The overall index does not depend on variable
// order.
func (a *Aggregator) Aggregate(records []domain.ObservationRecord, result *domain.ValidationResult) domain.QualitySummary {
	variables := make(map[string]domain.VariableQualityReport, len(result.Variables))

	var (
		indexSum    float64
		compSum     float64
		validSum    float64
		consSum     float64
		scored      int
		totalCells  int
		validCells  int
		invalidCells int
		missingCells int
	)

	for _, variable := range result.Variables {
		report := a.variableReport(variable, records, result)
		variables[variable] = report

		totalCells += report.RecordCount
		missingCells += report.RecordCount - report.PresentCount
		invalidCells += report.OutOfLimitsCount
		validCells += report.PresentCount - report.OutOfLimitsCount

		if report.InsufficientData {
			continue
		}
		indexSum += report.QualityIndex
		compSum += report.Completeness
		validSum += report.Validity
		consSum += report.Consistency
		scored++
	}

	overall := domain.OverallQualityReport{
		VariableCount:   len(result.Variables),
		ScoredVariables: scored,
	}
	if scored > 0 {
		overall.QualityIndex = indexSum / float64(scored)
		overall.AvgCompleteness = compSum / float64(scored)
		overall.AvgValidity = validSum / float64(scored)
		overall.AvgConsistency = consSum / float64(scored)
	}
	if totalCells > 0 {
		overall.ValidProportion = float64(validCells) / float64(totalCells)
		overall.InvalidProportion = float64(invalidCells) / float64(totalCells)
		overall.MissingProportion = float64(missingCells) / float64(totalCells)
	}
	overall.Recommendation = a.Recommend(overall.QualityIndex)
	overall.Description = overall.Recommendation.Description()

	return domain.QualitySummary{Overall: overall, Variables: variables}
}

// Recommend maps a quality index onto the usability bands. Lower edges
// are inclusive: 80 is Adequate, 60 is Partially Adequate.
func (a *Aggregator) Recommend(index float64) domain.Recommendation {
	switch {
	case index >= a.bands.Adequate:
		return domain.RecommendationAdequate
	case index >= a.bands.Partially:
		return domain.RecommendationPartially
	default:
		return domain.RecommendationInadequate
	}
}

func (a *Aggregator) variableReport(variable string, records []domain.ObservationRecord, result *domain.ValidationResult) domain.VariableQualityReport {
	flags := result.FlagsFor(variable)

	report := domain.VariableQualityReport{
		Variable:     variable,
		RecordCount:  len(records),
		MissingSpans: result.MissingSpans[variable],
	}
	if def, ok := a.defs[variable]; ok {
		report.ShortName = def.ShortName
		report.Unit = def.Unit
	}

	var series []float64
	for i, rec := range records {
		v, present := rec.Value(variable)
		if !present {
			continue
		}
		series = append(series, v)
		report.PresentCount++

		f := flags[i]
		if f.Has(domain.FlagOutOfLimits) {
			report.OutOfLimitsCount++
		}
		if f.Has(domain.FlagOutlierIQR) || f.Has(domain.FlagOutlierZScore) {
			report.OutlierCount++
		}
		if f.Has(domain.FlagChangePoint) {
			report.ChangePointCount++
		}
	}

	if report.RecordCount > 0 {
		report.Completeness = float64(report.PresentCount) / float64(report.RecordCount)
	}
	if report.PresentCount == 0 {
		// Validity and consistency are undefined on an empty series;
		// report 0 by policy and mark the variable, never divide by zero.
		report.InsufficientData = true
		report.QualityIndex = a.index(report.Completeness, 0, 0)
		return report
	}

	var consistent int
	for i := range records {
		f := flags[i]
		if !f.Has(domain.FlagMissing) && !f.IsAnomaly() {
			consistent++
		}
	}
	report.Validity = float64(report.PresentCount-report.OutOfLimitsCount) / float64(report.PresentCount)
	report.Consistency = float64(consistent) / float64(report.PresentCount)
	report.QualityIndex = a.index(report.Completeness, report.Validity, report.Consistency)
	report.Stats = describe(series)
	return report
}

// index applies the weighted formula on ratio inputs, yielding 0-100.
func (a *Aggregator) index(completeness, validity, consistency float64) float64 {
	return (completeness*a.weights.Completeness +
		validity*a.weights.Validity +
		consistency*a.weights.Consistency) * 100
}

func describe(series []float64) domain.DescriptiveStats {
	q1 := stats.Quantile(series, 0.25)
	q3 := stats.Quantile(series, 0.75)
	return domain.DescriptiveStats{
		Count:  len(series),
		Mean:   stats.Mean(series),
		Median: stats.Median(series),
		Std:    stats.SampleStd(series),
		Min:    stats.Min(series),
		Max:    stats.Max(series),
		Q1:     q1,
		Q3:     q3,
		IQR:    q3 - q1,
	}
}
