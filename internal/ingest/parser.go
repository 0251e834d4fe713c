package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/climaqc/station-quality-service/internal/domain"
)

// Options control parsing of a station file. The zero value is not
// usable; call DefaultOptions and override as needed.
type Options struct {
	FieldSep    byte  // field separator, ';' in BDMEP exports
	DecimalSep  byte  // decimal marker, ',' in BDMEP exports
	NullToken   string // literal encoding of a missing value
	SegmentSize int   // data rows processed per segment
	MaxBytes    int64 // maximum accepted input size
}

// DefaultOptions returns the BDMEP export dialect with a 200 MB size cap.
func DefaultOptions() Options {
	return Options{
		FieldSep:    ';',
		DecimalSep:  ',',
		NullToken:   "null",
		SegmentSize: 4096,
		MaxBytes:    200 << 20,
	}
}

func (o Options) validate() error {
	if o.FieldSep == o.DecimalSep {
		return &domain.ConfigurationError{Field: "decimal_separator", Reason: "must differ from the field separator"}
	}
	if o.NullToken == "" {
		return &domain.ConfigurationError{Field: "null_token", Reason: "must not be empty"}
	}
	if o.SegmentSize < 1 {
		return &domain.ConfigurationError{Field: "segment_size", Reason: "must be positive"}
	}
	if o.MaxBytes < 1 {
		return &domain.ConfigurationError{Field: "max_bytes", Reason: "must be positive"}
	}
	return nil
}

// ParseResult is the parser output: station metadata, the variable
// names in header order (date column excluded), the normalized records
// in input order, and the accumulated non-fatal field errors.
type ParseResult struct {
	Metadata    domain.StationMetadata
	Variables   []string
	Records     []domain.ObservationRecord
	FieldErrors []domain.FieldError
}

// RecordBatch is one parsed segment, delivered in input order.
type RecordBatch struct {
	Records     []domain.ObservationRecord
	FieldErrors []domain.FieldError
}

// Parser turns a raw station file into normalized observation records.
// It reads the input sequentially in bounded segments, so peak memory
// for the raw text is independent of file size.
type Parser struct {
	opts   Options
	logger *slog.Logger
}

// NewParser creates a Parser, validating the dialect options up front.
func NewParser(opts Options, logger *slog.Logger) (*Parser, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Parser{opts: opts, logger: logger}, nil
}

// Parse reads the whole input and collects every segment. declaredSize
// is the input size when known in advance (file stat, Content-Length);
// pass a negative value when unknown. Oversize input is rejected before
// any parsing work.
func (p *Parser) Parse(ctx context.Context, r io.Reader, declaredSize int64) (*ParseResult, error) {
	result := &ParseResult{}
	meta, vars, err := p.ParseSegments(ctx, r, declaredSize, func(batch RecordBatch) error {
		result.Records = append(result.Records, batch.Records...)
		result.FieldErrors = append(result.FieldErrors, batch.FieldErrors...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Metadata = meta
	result.Variables = vars
	return result, nil
}

// ParseSegments streams the input: the metadata block and header are
// read first, then data rows are parsed and handed to emit in segments
// of at most SegmentSize records. Segment boundaries never split a row.
// A non-nil error from emit aborts the run.
func (p *Parser) ParseSegments(ctx context.Context, r io.Reader, declaredSize int64, emit func(RecordBatch) error) (domain.StationMetadata, []string, error) {
	if declaredSize > p.opts.MaxBytes {
		return domain.StationMetadata{}, nil, &domain.OversizeInputError{Size: declaredSize, Max: p.opts.MaxBytes}
	}
	// Backstop for callers that cannot know the size up front: one byte
	// past the cap makes the limit breach detectable mid-scan.
	scanner := bufio.NewScanner(io.LimitReader(r, p.opts.MaxBytes+1))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var read int64
	lineNo := 0
	nextLine := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		lineNo++
		read += int64(len(scanner.Bytes())) + 1
		return scanner.Text(), true
	}

	meta, header, err := p.readHead(nextLine)
	if err != nil {
		return domain.StationMetadata{}, nil, err
	}
	vars := header[1:]

	batch := RecordBatch{Records: make([]domain.ObservationRecord, 0, p.opts.SegmentSize)}
	flush := func() error {
		if len(batch.Records) == 0 && len(batch.FieldErrors) == 0 {
			return nil
		}
		if err := emit(batch); err != nil {
			return err
		}
		batch = RecordBatch{Records: make([]domain.ObservationRecord, 0, p.opts.SegmentSize)}
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return domain.StationMetadata{}, nil, err
		}
		line, ok := nextLine()
		if !ok {
			break
		}
		if read > p.opts.MaxBytes {
			return domain.StationMetadata{}, nil, &domain.OversizeInputError{Size: read, Max: p.opts.MaxBytes}
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec, fieldErrs, ok := p.parseRow(line, lineNo, vars)
		batch.FieldErrors = append(batch.FieldErrors, fieldErrs...)
		if ok {
			batch.Records = append(batch.Records, rec)
		}
		if len(batch.Records) >= p.opts.SegmentSize {
			if err := flush(); err != nil {
				return domain.StationMetadata{}, nil, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return domain.StationMetadata{}, nil, fmt.Errorf("read input: %w", err)
	}
	if err := flush(); err != nil {
		return domain.StationMetadata{}, nil, err
	}

	return meta, vars, nil
}

// readHead consumes the metadata window and returns the parsed metadata
// plus the header fields.
func (p *Parser) readHead(nextLine func() (string, bool)) (domain.StationMetadata, []string, error) {
	var head []string
	for len(head) < metadataWindow {
		line, ok := nextLine()
		if !ok {
			break
		}
		head = append(head, line)
		if isHeaderLine(strings.TrimSpace(line), p.opts.FieldSep, p.opts.DecimalSep) {
			break
		}
	}

	meta, headerIdx, _, err := ExtractMetadata(head, p.opts.FieldSep, p.opts.DecimalSep)
	if err != nil {
		return domain.StationMetadata{}, nil, err
	}

	header := splitFields(head[headerIdx], p.opts.FieldSep)
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	// Exports terminate rows with the separator; drop the empty tail.
	for len(header) > 0 && header[len(header)-1] == "" {
		header = header[:len(header)-1]
	}
	if len(header) < 2 {
		return domain.StationMetadata{}, nil, &domain.MalformedFileError{Line: headerIdx + 1, Reason: "header has no variable columns"}
	}
	if !strings.HasPrefix(strings.TrimSpace(header[0]), "Data") {
		return domain.StationMetadata{}, nil, &domain.MalformedFileError{Line: headerIdx + 1, Reason: "header does not start with a date column"}
	}
	return meta, header, nil
}

// parseRow normalizes one data row. An unparseable date aborts the
// record (recorded as a field error); unparseable values become missing.
func (p *Parser) parseRow(line string, lineNo int, vars []string) (domain.ObservationRecord, []domain.FieldError, bool) {
	fields := splitFields(line, p.opts.FieldSep)

	date, err := time.Parse(dateLayout, strings.TrimSpace(fields[0]))
	if err != nil {
		return domain.ObservationRecord{}, []domain.FieldError{{
			Line:     lineNo,
			Variable: "Data",
			Token:    fields[0],
			Reason:   "unparseable date",
		}}, false
	}

	rec := domain.ObservationRecord{Date: date, Values: make(map[string]float64, len(vars))}
	var fieldErrs []domain.FieldError

	for i, name := range vars {
		if i+1 >= len(fields) {
			break // short row: trailing fields are missing
		}
		token := strings.TrimSpace(fields[i+1])
		if token == "" || token == p.opts.NullToken {
			continue
		}

		repaired, repairErr := p.repairToken(token)
		if repairErr != "" {
			fieldErrs = append(fieldErrs, domain.FieldError{Line: lineNo, Variable: name, Token: token, Reason: repairErr})
			continue
		}
		value, err := parseLocalizedFloat(repaired, p.opts.DecimalSep)
		if err != nil {
			fieldErrs = append(fieldErrs, domain.FieldError{Line: lineNo, Variable: name, Token: token, Reason: "unparseable number"})
			continue
		}
		rec.Values[name] = value
	}

	return rec, fieldErrs, true
}

// repairToken fixes the known export defect where a fraction is
// rendered without its integer part (",9" for "0,9"). The repair
// applies only when the remainder is all digits; any other malformed
// shape is reported, not guessed at.
func (p *Parser) repairToken(token string) (string, string) {
	if token[0] != p.opts.DecimalSep {
		return token, ""
	}
	rest := token[1:]
	if rest == "" || !allDigits(rest) {
		return "", "malformed numeric token"
	}
	return "0" + token, ""
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func splitFields(line string, sep byte) []string {
	return strings.Split(line, string(sep))
}
