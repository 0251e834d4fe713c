package domain

import "time"

// Periodicity is the declared measurement interval of a station series.
type Periodicity string

const (
	PeriodicityDaily   Periodicity = "daily"
	PeriodicityHourly  Periodicity = "hourly"
	PeriodicityMonthly Periodicity = "monthly"
	PeriodicityUnknown Periodicity = ""
)

// StationMetadata describes the station a file was exported from.
// It is parsed once from the file's leading metadata block and never
// mutated afterwards.
type StationMetadata struct {
	StationCode string      `json:"station_code"`
	Latitude    float64     `json:"latitude"`
	Longitude   float64     `json:"longitude"`
	Altitude    float64     `json:"altitude"`
	Status      string      `json:"status"`
	StartDate   time.Time   `json:"start_date"`
	EndDate     time.Time   `json:"end_date"`
	Periodicity Periodicity `json:"periodicity"`
}

// ObservationRecord is one row of the normalized series: a calendar day
// and the observed value per variable. Absent map entries mean the
// value was missing (the "null" token or an unrecoverable field).
type ObservationRecord struct {
	Date   time.Time          `json:"date"`
	Values map[string]float64 `json:"values"`
}

// Value returns the observation for a variable and whether it is present.
func (r ObservationRecord) Value(variable string) (float64, bool) {
	v, ok := r.Values[variable]
	return v, ok
}

// VariableDefinition is the static configuration for one measured
// variable: the exact header text it appears under, its physical
// bounds (closed interval), and display labels. Variables observed in
// a file but absent from the definition table are exempt from the
// physical-limit check only.
type VariableDefinition struct {
	Name       string   `json:"name" yaml:"name"`
	ShortName  string   `json:"short_name" yaml:"short_name"`
	Unit       string   `json:"unit" yaml:"unit"`
	LowerBound float64  `json:"lower_bound" yaml:"lower_bound"`
	UpperBound float64  `json:"upper_bound" yaml:"upper_bound"`
	Aliases    []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}
