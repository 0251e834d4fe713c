// Package domain models daily time-series data from INMET automated
// weather stations and the quality assessment computed over it.
//
// # Data Source
//
// Station files are semicolon-separated CSV exports from the INMET
// (Instituto Nacional de Meteorologia) BDMEP portal. Each file starts
// with a small metadata block of "Key: value" lines describing the
// station, followed by a blank separator line, a header line, and one
// data row per calendar day.
//
// # File Conventions
//
// Metadata keys (Portuguese, as exported):
//
//	Codigo Estacao:             station code, e.g. "A701"
//	Latitude: / Longitude:      decimal degrees, comma as decimal marker
//	Altitude:                   meters
//	Situacao:                   operational status, e.g. "Operante"
//	Data Inicial: / Data Final: nominal series bounds, YYYY-MM-DD
//	Periodicidade da Medicao:   "Diaria" for daily series
//
// Data rows:
//
//	Field separator ";", decimal separator ",", missing values encoded
//	as the literal token "null". A known export defect renders small
//	fractions without the integer part (",9" instead of "0,9"); the
//	parser repairs exactly that shape and records any other malformed
//	token as a field-level parse error.
//
// Dates use the fixed calendar format YYYY-MM-DD with no time component.
//
// # Quality Model
//
// Per variable: completeness (fraction of non-missing observations),
// validity (fraction of non-missing observations inside physical
// limits), and consistency (fraction of non-missing observations free
// of detected anomalies), combined into a weighted 0-100 quality index
// with a usability recommendation.
package domain
