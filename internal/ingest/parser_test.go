package ingest_test

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/climaqc/station-quality-service/internal/domain"
	"github.com/climaqc/station-quality-service/internal/ingest"
)

const (
	tempVar     = "TEMPERATURA MEDIA, DIARIA (AUT)(°C)"
	humidityVar = "UMIDADE RELATIVA DO AR, MEDIA DIARIA (AUT)(%)"
)

// sampleFile exercises the known export quirks: the "null" token, a
// fraction missing its integer part, a garbage token, a duplicated
// date, and a calendar gap (2003-01-21).
const sampleFile = `Nome: ESTACAO TESTE
Codigo Estacao: A001
Latitude: -10,5
Longitude: -45,25
Altitude: 520,0
Situacao: Operante
Data Inicial: 2003-01-18
Data Final: 2003-01-24
Periodicidade da Medicao: Diaria

Data Medicao;TEMPERATURA MEDIA, DIARIA (AUT)(°C);UMIDADE RELATIVA DO AR, MEDIA DIARIA (AUT)(%);
2003-01-18;25,4;80,0;
2003-01-19;,9;null;
2003-01-20;26,1;75,5;
2003-01-20;26,2;75,0;
2003-01-22;150,0;xx;
2003-01-23;24,8;81,2;
2003-01-24;25,0;79,9;
`

func newParser(t *testing.T, opts ingest.Options) *ingest.Parser {
	t.Helper()
	p, err := ingest.NewParser(opts, slog.Default())
	require.NoError(t, err)
	return p
}

func day(d int) time.Time {
	return time.Date(2003, time.January, d, 0, 0, 0, 0, time.UTC)
}

func TestParser_Parse(t *testing.T) {
	p := newParser(t, ingest.DefaultOptions())

	result, err := p.Parse(context.Background(), strings.NewReader(sampleFile), int64(len(sampleFile)))
	require.NoError(t, err)

	assert.Equal(t, "A001", result.Metadata.StationCode)
	assert.Equal(t, []string{tempVar, humidityVar}, result.Variables)
	require.Len(t, result.Records, 7)

	// Input row order is preserved, including the duplicated date.
	assert.Equal(t, day(18), result.Records[0].Date)
	assert.Equal(t, day(20), result.Records[2].Date)
	assert.Equal(t, day(20), result.Records[3].Date)

	// ",9" is the known defect for "0,9" and is repaired.
	v, ok := result.Records[1].Value(tempVar)
	require.True(t, ok)
	assert.InDelta(t, 0.9, v, 1e-9)

	// The "null" token is missing, not zero.
	_, ok = result.Records[1].Value(humidityVar)
	assert.False(t, ok)

	// A garbage token becomes a field error and a missing value.
	require.Len(t, result.FieldErrors, 1)
	fe := result.FieldErrors[0]
	assert.Equal(t, humidityVar, fe.Variable)
	assert.Equal(t, "xx", fe.Token)
	assert.Equal(t, 16, fe.Line)
	_, ok = result.Records[4].Value(humidityVar)
	assert.False(t, ok)

	// Out-of-range values parse fine; range policing is the engine's job.
	v, ok = result.Records[4].Value(tempVar)
	require.True(t, ok)
	assert.InDelta(t, 150.0, v, 1e-9)
}

func TestParser_ParseSegments_BoundedBatches(t *testing.T) {
	opts := ingest.DefaultOptions()
	opts.SegmentSize = 2
	p := newParser(t, opts)

	var batches [][]domain.ObservationRecord
	meta, vars, err := p.ParseSegments(context.Background(), strings.NewReader(sampleFile), -1,
		func(batch ingest.RecordBatch) error {
			batches = append(batches, batch.Records)
			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, "A001", meta.StationCode)
	assert.Len(t, vars, 2)

	var total int
	for _, b := range batches {
		assert.LessOrEqual(t, len(b), 2)
		total += len(b)
	}
	assert.Equal(t, 7, total)
}

func TestParser_UnparseableDateAbortsRecord(t *testing.T) {
	file := strings.Replace(sampleFile, "2003-01-23", "23/01/2003", 1)
	p := newParser(t, ingest.DefaultOptions())

	result, err := p.Parse(context.Background(), strings.NewReader(file), -1)
	require.NoError(t, err)

	assert.Len(t, result.Records, 6)
	var dateErrs int
	for _, fe := range result.FieldErrors {
		if fe.Variable == "Data" {
			dateErrs++
			assert.Equal(t, "23/01/2003", fe.Token)
		}
	}
	assert.Equal(t, 1, dateErrs)
}

func TestParser_ShortRowTrailingMissing(t *testing.T) {
	file := strings.Replace(sampleFile, "2003-01-24;25,0;79,9;", "2003-01-24;25,0", 1)
	p := newParser(t, ingest.DefaultOptions())

	result, err := p.Parse(context.Background(), strings.NewReader(file), -1)
	require.NoError(t, err)
	require.Len(t, result.Records, 7)

	last := result.Records[6]
	_, ok := last.Value(tempVar)
	assert.True(t, ok)
	_, ok = last.Value(humidityVar)
	assert.False(t, ok)
}

func TestParser_OversizeRejection(t *testing.T) {
	// Cap just past the header so the metadata block parses but the data
	// rows breach the limit.
	headEnd := strings.Index(sampleFile, "2003-01-18;")
	require.Positive(t, headEnd)

	opts := ingest.DefaultOptions()
	opts.MaxBytes = int64(headEnd + 30)
	p := newParser(t, opts)

	t.Run("declared size up front", func(t *testing.T) {
		_, err := p.Parse(context.Background(), strings.NewReader(sampleFile), int64(len(sampleFile)))
		var oversize *domain.OversizeInputError
		require.ErrorAs(t, err, &oversize)
		assert.Equal(t, opts.MaxBytes, oversize.Max)
	})

	t.Run("unknown size detected mid-scan", func(t *testing.T) {
		_, err := p.Parse(context.Background(), strings.NewReader(sampleFile), -1)
		var oversize *domain.OversizeInputError
		require.ErrorAs(t, err, &oversize)
	})
}

func TestParser_MalformedFile(t *testing.T) {
	p := newParser(t, ingest.DefaultOptions())

	_, err := p.Parse(context.Background(), strings.NewReader("not a station file\nat all\n"), -1)

	var malformed *domain.MalformedFileError
	require.ErrorAs(t, err, &malformed)
}

func TestParser_CancelledContext(t *testing.T) {
	p := newParser(t, ingest.DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Parse(ctx, strings.NewReader(sampleFile), -1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewParser_InvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ingest.Options)
	}{
		{"same separators", func(o *ingest.Options) { o.DecimalSep = o.FieldSep }},
		{"empty null token", func(o *ingest.Options) { o.NullToken = "" }},
		{"zero segment size", func(o *ingest.Options) { o.SegmentSize = 0 }},
		{"zero max bytes", func(o *ingest.Options) { o.MaxBytes = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := ingest.DefaultOptions()
			tt.mutate(&opts)
			_, err := ingest.NewParser(opts, slog.Default())
			var cfgErr *domain.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
		})
	}
}
