// Package validate implements the statistical validation engine: physical
// limit checks, two independent outlier detectors, rolling change-point
// detection, date-sequence integrity, and missing-data span analysis.
//
// Each variable is an independent unit of work over a columnar view of
// the record set, so per-variable checks fan out across workers and
// merge by variable key. Nothing here mutates the input records.
package validate

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/climaqc/station-quality-service/internal/domain"
)

const (
	// iqrMultiplier is the fence multiplier of the IQR outlier test.
	iqrMultiplier = 1.5
	// zScoreThreshold flags values more than this many population
	// standard deviations from the series mean.
	zScoreThreshold = 3.0
	// changePointWindow is the centered rolling window size.
	changePointWindow = 30
	// changePointSigma is the rolling-deviation multiplier.
	changePointSigma = 2.0

	// minIQRSamples and minZSamples are the smallest series the
	// respective detectors run on; shorter series yield no flags.
	minIQRSamples = 4
	minZSamples   = 2
)

// Engine runs all validation checks over a normalized record set.
type Engine struct {
	defs   map[string]domain.VariableDefinition
	logger *slog.Logger
}

// NewEngine builds an Engine from the variable definition table.
// Malformed definitions (lower bound above upper, duplicate header
// bindings) are a fatal ConfigurationError, raised before any row
// processing.
func NewEngine(defs []domain.VariableDefinition, logger *slog.Logger) (*Engine, error) {
	byHeader := make(map[string]domain.VariableDefinition, len(defs))
	for _, def := range defs {
		if def.Name == "" {
			return nil, &domain.ConfigurationError{Field: "variables", Reason: "definition with empty name"}
		}
		if def.LowerBound > def.UpperBound {
			return nil, &domain.ConfigurationError{
				Field:  def.Name,
				Reason: "lower bound exceeds upper bound",
			}
		}
		for _, header := range append([]string{def.Name}, def.Aliases...) {
			if _, dup := byHeader[header]; dup {
				return nil, &domain.ConfigurationError{Field: header, Reason: "header bound to more than one variable"}
			}
			byHeader[header] = def
		}
	}
	return &Engine{defs: byHeader, logger: logger}, nil
}

// Definition returns the definition bound to a header, if any.
func (e *Engine) Definition(variable string) (domain.VariableDefinition, bool) {
	def, ok := e.defs[variable]
	return def, ok
}

// variableResult is one worker's output, merged by variable key after
// all workers finish.
type variableResult struct {
	flags        []domain.Flag
	missingSpans []domain.MissingSpan
	changePoints []int
}

// Run validates the record sequence and produces per-(record, variable)
// flags plus the structural summaries. It is a pure function of its
// inputs: running it twice over the same records yields identical
// results.
//
// Per-variable work runs on parallel workers; the date-sequence check
// needs the complete ordered set and runs once up front so duplicate
// flags can be folded into every variable's column.
func (e *Engine) Run(ctx context.Context, variables []string, records []domain.ObservationRecord, meta domain.StationMetadata) (*domain.ValidationResult, error) {
	seq, duplicates := validateDateSequence(records, meta)

	results := make([]variableResult, len(variables))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, variable := range variables {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = e.validateVariable(variable, records, duplicates)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &domain.ValidationResult{
		Variables:    append([]string(nil), variables...),
		Flags:        make(map[string][]domain.Flag, len(variables)),
		MissingSpans: make(map[string][]domain.MissingSpan, len(variables)),
		ChangePoints: make(map[string][]int, len(variables)),
		DateSequence: seq,
	}
	for i, variable := range variables {
		out.Flags[variable] = results[i].flags
		out.MissingSpans[variable] = results[i].missingSpans
		out.ChangePoints[variable] = results[i].changePoints
	}
	return out, nil
}

// validateVariable runs every per-variable check over a columnar view
// of one variable.
func (e *Engine) validateVariable(variable string, records []domain.ObservationRecord, duplicates map[int]bool) variableResult {
	col := newColumn(variable, records)
	flags := make([]domain.Flag, len(records))

	for i := range records {
		if !col.present[i] {
			flags[i] |= domain.FlagMissing
		}
		if duplicates[i] {
			flags[i] |= domain.FlagDuplicateDate
		}
	}

	if def, ok := e.defs[variable]; ok {
		flagOutOfLimits(flags, col, def)
	}
	flagIQROutliers(flags, col)
	flagZScoreOutliers(flags, col)
	changePoints := flagChangePoints(flags, col)

	return variableResult{
		flags:        flags,
		missingSpans: missingSpans(col, records),
		changePoints: changePoints,
	}
}

// flagOutOfLimits marks present values outside the closed physical
// interval. Boundary values are valid.
func flagOutOfLimits(flags []domain.Flag, col column, def domain.VariableDefinition) {
	for i, present := range col.present {
		if !present {
			continue
		}
		if v := col.values[i]; v < def.LowerBound || v > def.UpperBound {
			flags[i] |= domain.FlagOutOfLimits
		}
	}
}

// column is the per-variable columnar view: values aligned to the
// record order with a presence mask, plus the compacted non-missing
// series for the statistical detectors.
type column struct {
	variable string
	values   []float64 // aligned to records; zero where absent
	present  []bool
	series   []float64 // non-missing values in record order
	seriesIx []int     // record index of each series element
}

func newColumn(variable string, records []domain.ObservationRecord) column {
	col := column{
		variable: variable,
		values:   make([]float64, len(records)),
		present:  make([]bool, len(records)),
	}
	for i, rec := range records {
		if v, ok := rec.Value(variable); ok {
			col.values[i] = v
			col.present[i] = true
			col.series = append(col.series, v)
			col.seriesIx = append(col.seriesIx, i)
		}
	}
	return col
}

// missingSpans coalesces contiguous runs of missing values into closed
// date ranges. A run of length one is a span of one day.
func missingSpans(col column, records []domain.ObservationRecord) []domain.MissingSpan {
	var spans []domain.MissingSpan
	start := -1
	for i := range records {
		if !col.present[i] {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			spans = append(spans, newSpan(records, start, i-1))
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, newSpan(records, start, len(records)-1))
	}
	return spans
}

func newSpan(records []domain.ObservationRecord, start, end int) domain.MissingSpan {
	s, e := records[start].Date, records[end].Date
	return domain.MissingSpan{
		Start: s,
		End:   e,
		Days:  int(e.Sub(s)/(24*time.Hour)) + 1,
	}
}
