package validate

import (
	"time"

	"github.com/climaqc/station-quality-service/internal/domain"
)

const day = 24 * time.Hour

// validateDateSequence checks the date axis: exactly one record per
// calendar day at the declared periodicity between the series bounds.
// Records repeating an earlier date are duplicates (the first
// occurrence stays canonical); expected days with no record are gaps.
//
// The expected range comes from the station metadata when declared,
// otherwise from the observed first and last dates. Returns the summary
// and the set of duplicate record indices for flag folding.
func validateDateSequence(records []domain.ObservationRecord, meta domain.StationMetadata) (domain.DateSequenceSummary, map[int]bool) {
	duplicates := make(map[int]bool)
	if len(records) == 0 {
		return domain.DateSequenceSummary{Sorted: true}, duplicates
	}

	seen := make(map[time.Time]bool, len(records))
	var dupDates []time.Time
	sorted := true
	first, last := records[0].Date, records[0].Date

	for i, rec := range records {
		d := rec.Date
		if i > 0 && d.Before(records[i-1].Date) {
			sorted = false
		}
		if seen[d] {
			duplicates[i] = true
			dupDates = append(dupDates, d)
			continue
		}
		seen[d] = true
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}

	start, end := first, last
	if !meta.StartDate.IsZero() {
		start = meta.StartDate
	}
	if !meta.EndDate.IsZero() {
		end = meta.EndDate
	}

	summary := domain.DateSequenceSummary{
		Sorted:         sorted,
		FirstDate:      first,
		LastDate:       last,
		ExpectedDays:   int(end.Sub(start)/day) + 1,
		ActualDays:     len(seen),
		DuplicateDates: dupDates,
		Gaps:           findGaps(seen, start, end),
	}
	return summary, duplicates
}

// findGaps walks the expected daily range and coalesces consecutive
// absent days into closed ranges.
func findGaps(seen map[time.Time]bool, start, end time.Time) []domain.DateGap {
	if end.Before(start) {
		return nil
	}
	var gaps []domain.DateGap
	var open *domain.DateGap
	for d := start; !d.After(end); d = d.Add(day) {
		if seen[d] {
			if open != nil {
				gaps = append(gaps, *open)
				open = nil
			}
			continue
		}
		if open == nil {
			open = &domain.DateGap{Start: d, End: d, Days: 1}
			continue
		}
		open.End = d
		open.Days++
	}
	if open != nil {
		gaps = append(gaps, *open)
	}
	return gaps
}
