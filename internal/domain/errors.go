package domain

import "fmt"

// ConfigurationError reports invalid static configuration (variable
// bounds, index weights, band thresholds). It is fatal and raised
// before any row processing.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// MalformedFileError reports a file whose metadata block or header
// could not be located. It is fatal for the whole file.
type MalformedFileError struct {
	Line   int
	Reason string
}

func (e *MalformedFileError) Error() string {
	return fmt.Sprintf("malformed file (line %d): %s", e.Line, e.Reason)
}

// OversizeInputError reports input rejected before parsing because it
// exceeds the configured maximum size.
type OversizeInputError struct {
	Size int64
	Max  int64
}

func (e *OversizeInputError) Error() string {
	return fmt.Sprintf("input size %d exceeds maximum %d bytes", e.Size, e.Max)
}
