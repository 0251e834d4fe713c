package domain

import "time"

// Recommendation is the usability verdict derived from the overall
// quality index.
type Recommendation string

const (
	RecommendationAdequate  Recommendation = "Adequate"
	RecommendationPartially Recommendation = "Partially Adequate"
	RecommendationInadequate Recommendation = "Inadequate"
)

// Description returns the human-readable guidance for a recommendation.
func (r Recommendation) Description() string {
	switch r {
	case RecommendationAdequate:
		return "data quality is adequate for scientific use"
	case RecommendationPartially:
		return "moderate data quality; review before use"
	default:
		return "data quality is insufficient for scientific use"
	}
}

// DescriptiveStats are the classical summary statistics of the
// non-missing values of one variable.
type DescriptiveStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
	IQR    float64 `json:"iqr"`
}

// VariableQualityReport aggregates the quality of one variable.
// Ratios are in [0, 1]; the quality index is in [0, 100].
type VariableQualityReport struct {
	Variable    string `json:"variable"`
	ShortName   string `json:"short_name,omitempty"`
	Unit        string `json:"unit,omitempty"`
	RecordCount int    `json:"record_count"`
	PresentCount int   `json:"present_count"`

	Completeness float64 `json:"completeness"`
	Validity     float64 `json:"validity"`
	Consistency  float64 `json:"consistency"`
	QualityIndex float64 `json:"quality_index"`

	// InsufficientData marks variables with zero non-missing values:
	// validity and consistency are reported as 0 by policy rather than
	// dividing by zero, and the variable is excluded from the overall
	// index.
	InsufficientData bool `json:"insufficient_data,omitempty"`

	OutOfLimitsCount int              `json:"out_of_limits_count"`
	OutlierCount     int              `json:"outlier_count"`
	ChangePointCount int              `json:"change_point_count"`
	Stats            DescriptiveStats `json:"stats"`
	MissingSpans     []MissingSpan    `json:"missing_spans,omitempty"`
}

// OverallQualityReport is the dataset-level verdict.
type OverallQualityReport struct {
	QualityIndex   float64        `json:"quality_index"`
	Recommendation Recommendation `json:"recommendation"`
	Description    string         `json:"description"`

	VariableCount      int     `json:"variable_count"`
	ScoredVariables    int     `json:"scored_variables"`
	AvgCompleteness    float64 `json:"avg_completeness"`
	AvgValidity        float64 `json:"avg_validity"`
	AvgConsistency     float64 `json:"avg_consistency"`
	ValidProportion    float64 `json:"valid_proportion"`
	InvalidProportion  float64 `json:"invalid_proportion"`
	MissingProportion  float64 `json:"missing_proportion"`
}

// QualitySummary bundles the aggregator output for all variables.
type QualitySummary struct {
	Overall   OverallQualityReport             `json:"overall"`
	Variables map[string]VariableQualityReport `json:"variables"`
}

// FieldError records one non-fatal field-level parse failure. The value
// is treated as missing and the run continues.
type FieldError struct {
	Line     int    `json:"line"`
	Variable string `json:"variable"`
	Token    string `json:"token"`
	Reason   string `json:"reason"`
}

// AnalysisReport is the complete output of one pipeline run: everything
// the reporting and dashboard layers are allowed to depend on.
type AnalysisReport struct {
	Station     StationMetadata     `json:"station"`
	Records     []ObservationRecord `json:"records"`
	Validation  *ValidationResult   `json:"validation"`
	Quality     QualitySummary      `json:"quality"`
	FieldErrors []FieldError        `json:"field_errors,omitempty"`
	GeneratedAt time.Time           `json:"generated_at"`
}
