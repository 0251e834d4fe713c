package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/climaqc/station-quality-service/internal/domain"
)

// metadataWindow bounds how many leading lines are scanned for the
// metadata block and the header. INMET exports put the header on line
// 11 at the latest; the margin covers older export layouts.
const metadataWindow = 20

// dateLayout is the fixed calendar format used throughout INMET exports.
const dateLayout = "2006-01-02"

// Metadata keys as they appear in BDMEP exports.
const (
	keyStationCode = "Codigo Estacao"
	keyLatitude    = "Latitude"
	keyLongitude   = "Longitude"
	keyAltitude    = "Altitude"
	keyStatus      = "Situacao"
	keyStartDate   = "Data Inicial"
	keyEndDate     = "Data Final"
	keyPeriodicity = "Periodicidade da Medicao"
)

// ExtractMetadata scans the leading window of lines for "Key: value"
// station metadata and locates the header row. It returns the parsed
// metadata, the header line index, and the index of the first data
// line. The scan is pure: it never reads beyond the window and has no
// side effects.
//
// Header detection: the first line below the metadata block with more
// than one field separator and no parseable leading numeric token.
func ExtractMetadata(lines []string, fieldSep byte, decimalSep byte) (domain.StationMetadata, int, int, error) {
	window := len(lines)
	if window > metadataWindow {
		window = metadataWindow
	}

	meta := domain.StationMetadata{}
	sawStationCode := false
	headerIdx := -1

	for i := 0; i < window; i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		if key, value, ok := splitMetadataLine(line); ok {
			applyMetadataKey(&meta, key, value, decimalSep)
			if key == keyStationCode && value != "" {
				sawStationCode = true
			}
			continue
		}

		if isHeaderLine(line, fieldSep, decimalSep) {
			headerIdx = i
			break
		}
	}

	if headerIdx < 0 {
		return domain.StationMetadata{}, 0, 0, &domain.MalformedFileError{
			Line:   window,
			Reason: "no header line found in leading window",
		}
	}
	if !sawStationCode {
		return domain.StationMetadata{}, 0, 0, &domain.MalformedFileError{
			Line:   headerIdx + 1,
			Reason: "required metadata key \"" + keyStationCode + "\" not found",
		}
	}

	return meta, headerIdx, headerIdx + 1, nil
}

// splitMetadataLine splits "Key: value" pairs. Lines whose key contains
// the field separator are data/header lines, not metadata.
func splitMetadataLine(line string) (string, string, bool) {
	idx := strings.IndexByte(line, ':')
	if idx <= 0 {
		return "", "", false
	}
	key := strings.TrimSpace(line[:idx])
	if strings.ContainsRune(key, ';') {
		return "", "", false
	}
	return key, strings.TrimSpace(line[idx+1:]), true
}

// applyMetadataKey parses a recognized key into the metadata struct.
// Unrecognized keys are ignored; unparseable values leave the zero
// value in place (the metadata block is advisory except StationCode).
func applyMetadataKey(meta *domain.StationMetadata, key, value string, decimalSep byte) {
	switch key {
	case keyStationCode:
		meta.StationCode = value
	case keyLatitude:
		if f, err := parseLocalizedFloat(value, decimalSep); err == nil {
			meta.Latitude = f
		}
	case keyLongitude:
		if f, err := parseLocalizedFloat(value, decimalSep); err == nil {
			meta.Longitude = f
		}
	case keyAltitude:
		if f, err := parseLocalizedFloat(value, decimalSep); err == nil {
			meta.Altitude = f
		}
	case keyStatus:
		meta.Status = value
	case keyStartDate:
		if d, err := time.Parse(dateLayout, value); err == nil {
			meta.StartDate = d
		}
	case keyEndDate:
		if d, err := time.Parse(dateLayout, value); err == nil {
			meta.EndDate = d
		}
	case keyPeriodicity:
		meta.Periodicity = parsePeriodicity(value)
	}
}

// parsePeriodicity maps the Portuguese export labels onto the enum.
func parsePeriodicity(value string) domain.Periodicity {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "diaria", "diária", "daily":
		return domain.PeriodicityDaily
	case "horaria", "horária", "hourly":
		return domain.PeriodicityHourly
	case "mensal", "monthly":
		return domain.PeriodicityMonthly
	default:
		return domain.PeriodicityUnknown
	}
}

// isHeaderLine reports whether a line looks like the column header:
// more than one field separator and a non-numeric leading token.
func isHeaderLine(line string, fieldSep byte, decimalSep byte) bool {
	if strings.Count(line, string(fieldSep)) < 2 {
		return false
	}
	first := strings.TrimSpace(line[:strings.IndexByte(line, fieldSep)])
	if first == "" {
		return false
	}
	if _, err := parseLocalizedFloat(first, decimalSep); err == nil {
		return false
	}
	if _, err := time.Parse(dateLayout, first); err == nil {
		return false
	}
	return true
}

// parseLocalizedFloat parses a numeric token that may use a non-dot
// decimal marker.
func parseLocalizedFloat(token string, decimalSep byte) (float64, error) {
	token = strings.TrimSpace(token)
	if decimalSep != '.' {
		token = strings.ReplaceAll(token, string(decimalSep), ".")
	}
	return strconv.ParseFloat(token, 64)
}
