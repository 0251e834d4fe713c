package domain

import (
	"strings"
	"time"
)

// Flag classifies one (record, variable) observation. A value may carry
// several flags at once (e.g. out-of-limits and outlier), so Flag is a
// bitmask.
type Flag uint8

const (
	FlagValid         Flag = 0
	FlagMissing       Flag = 1 << iota
	FlagOutOfLimits        // outside the variable's physical bounds
	FlagOutlierIQR         // beyond the 1.5×IQR fences
	FlagOutlierZScore      // |z| > 3 against the series mean
	FlagChangePoint        // abrupt deviation from the rolling trend
	FlagDuplicateDate      // record repeats an earlier record's date
)

// Has reports whether all bits of q are set on f.
func (f Flag) Has(q Flag) bool { return f&q == q }

// IsAnomaly reports whether any statistical anomaly bit is set.
// Anomalies count against consistency; out-of-limits counts against
// validity, with independent denominators.
func (f Flag) IsAnomaly() bool {
	return f&(FlagOutlierIQR|FlagOutlierZScore|FlagChangePoint) != 0
}

func (f Flag) String() string {
	if f == FlagValid {
		return "valid"
	}
	var parts []string
	for _, n := range []struct {
		bit  Flag
		name string
	}{
		{FlagMissing, "missing"},
		{FlagOutOfLimits, "out-of-limits"},
		{FlagOutlierIQR, "outlier-iqr"},
		{FlagOutlierZScore, "outlier-zscore"},
		{FlagChangePoint, "change-point"},
		{FlagDuplicateDate, "duplicate-date"},
	} {
		if f.Has(n.bit) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// DateGap is an expected calendar day (or run of days) with no record.
// Gaps are structural: they belong to the series, not to any variable.
type DateGap struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// MissingSpan is a maximal contiguous run of missing values for one
// variable, as a closed date range. A single missing day is a span of
// one day.
type MissingSpan struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// DateSequenceSummary describes the integrity of the date axis.
type DateSequenceSummary struct {
	Sorted         bool        `json:"sorted"`
	FirstDate      time.Time   `json:"first_date"`
	LastDate       time.Time   `json:"last_date"`
	ExpectedDays   int         `json:"expected_days"`
	ActualDays     int         `json:"actual_days"`
	DuplicateDates []time.Time `json:"duplicate_dates,omitempty"`
	Gaps           []DateGap   `json:"gaps,omitempty"`
}

// ValidationResult is the read-only output of one Validation Engine
// run: per-record per-variable flags (indexed by variable, aligned to
// the record order) plus the structural summaries.
type ValidationResult struct {
	Variables    []string                 `json:"variables"`
	Flags        map[string][]Flag        `json:"flags"`
	MissingSpans map[string][]MissingSpan `json:"missing_spans"`
	ChangePoints map[string][]int         `json:"change_points"`
	DateSequence DateSequenceSummary      `json:"date_sequence"`
}

// FlagsFor returns the flag slice for a variable, aligned to the record
// order the engine ran over. Unknown variables return nil.
func (r *ValidationResult) FlagsFor(variable string) []Flag {
	return r.Flags[variable]
}
