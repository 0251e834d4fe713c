package pipeline_test

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/climaqc/station-quality-service/internal/config"
	"github.com/climaqc/station-quality-service/internal/domain"
	"github.com/climaqc/station-quality-service/internal/ingest"
	"github.com/climaqc/station-quality-service/internal/observability"
	"github.com/climaqc/station-quality-service/internal/pipeline"
	"github.com/climaqc/station-quality-service/internal/quality"
	"github.com/climaqc/station-quality-service/internal/validate"
)

const (
	tempVar     = "TEMPERATURA MEDIA, DIARIA (AUT)(°C)"
	humidityVar = "UMIDADE RELATIVA DO AR, MEDIA DIARIA (AUT)(%)"
)

// sampleFile carries one of every defect the pipeline must absorb: a
// repaired fraction, a null, a garbage token, a duplicated date, an
// out-of-limits temperature, and a calendar gap (2003-01-21).
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

func day(d int) time.Time {
	return time.Date(2003, time.January, d, 0, 0, 0, 0, time.UTC)
}

func newAnalyzer(t *testing.T, opts ingest.Options) *pipeline.Analyzer {
	t.Helper()
	logger := slog.Default()

	parser, err := ingest.NewParser(opts, logger)
	require.NoError(t, err)

	defs := config.DefaultVariableTable()
	engine, err := validate.NewEngine(defs, logger)
	require.NoError(t, err)

	aggregator, err := quality.NewAggregator(quality.DefaultWeights(), quality.DefaultBands(), config.TableByName(defs))
	require.NoError(t, err)

	return pipeline.New(parser, engine, aggregator, logger, observability.NewMetricsForTesting())
}

func TestAnalyzer_Analyze(t *testing.T) {
	generated := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(generated))
	t.Cleanup(func() { domain.SetClock(nil) })

	a := newAnalyzer(t, ingest.DefaultOptions())
	report, err := a.Analyze(context.Background(), strings.NewReader(sampleFile), int64(len(sampleFile)))
	require.NoError(t, err)

	assert.Equal(t, "A001", report.Station.StationCode)
	assert.Equal(t, generated, report.GeneratedAt)
	require.Len(t, report.Records, 7)
	require.Len(t, report.FieldErrors, 1)

	// Records come out ordered by date, first occurrence of the
	// duplicated day first.
	assert.Equal(t, day(20), report.Records[2].Date)
	assert.Equal(t, day(20), report.Records[3].Date)
	v, _ := report.Records[2].Value(tempVar)
	assert.InDelta(t, 26.1, v, 1e-9)

	seq := report.Validation.DateSequence
	assert.Equal(t, []time.Time{day(20)}, seq.DuplicateDates)
	require.Len(t, seq.Gaps, 1)
	assert.Equal(t, domain.DateGap{Start: day(21), End: day(21), Days: 1}, seq.Gaps[0])
	assert.Equal(t, 7, seq.ExpectedDays)
	assert.Equal(t, 6, seq.ActualDays)

	tempFlags := report.Validation.FlagsFor(tempVar)
	require.Len(t, tempFlags, 7)
	assert.True(t, tempFlags[4].Has(domain.FlagOutOfLimits), "150°C is outside physical limits")
	assert.True(t, tempFlags[4].Has(domain.FlagOutlierIQR))
	assert.True(t, tempFlags[1].Has(domain.FlagOutlierIQR), "repaired 0.9°C is a statistical outlier")
	assert.True(t, tempFlags[3].Has(domain.FlagDuplicateDate))

	humFlags := report.Validation.FlagsFor(humidityVar)
	assert.True(t, humFlags[1].Has(domain.FlagMissing), "null token")
	assert.True(t, humFlags[4].Has(domain.FlagMissing), "unparseable token")

	overall := report.Quality.Overall
	assert.InDelta(t, 88.571, overall.QualityIndex, 1e-2)
	assert.Equal(t, domain.RecommendationAdequate, overall.Recommendation)
	assert.Equal(t, 2, overall.VariableCount)
	assert.Equal(t, 2, overall.ScoredVariables)
}

func TestAnalyzer_AnalyzeBytes_MatchesAnalyze(t *testing.T) {
	a := newAnalyzer(t, ingest.DefaultOptions())

	fromReader, err := a.Analyze(context.Background(), strings.NewReader(sampleFile), int64(len(sampleFile)))
	require.NoError(t, err)
	fromBytes, err := a.AnalyzeBytes(context.Background(), []byte(sampleFile))
	require.NoError(t, err)

	assert.Equal(t, fromReader.Station, fromBytes.Station)
	assert.Equal(t, fromReader.Quality.Overall.QualityIndex, fromBytes.Quality.Overall.QualityIndex)
	assert.Len(t, fromBytes.Records, len(fromReader.Records))
}

func TestAnalyzer_SortsUnsortedInput(t *testing.T) {
	// Swap two data rows so the file arrives out of order.
	shuffled := strings.Replace(sampleFile,
		"2003-01-18;25,4;80,0;\n2003-01-19;,9;null;",
		"2003-01-19;,9;null;\n2003-01-18;25,4;80,0;", 1)

	a := newAnalyzer(t, ingest.DefaultOptions())
	report, err := a.Analyze(context.Background(), strings.NewReader(shuffled), -1)
	require.NoError(t, err)

	for i := 1; i < len(report.Records); i++ {
		assert.False(t, report.Records[i].Date.Before(report.Records[i-1].Date),
			"records must be date-ascending")
	}
}

func TestAnalyzer_OversizeInput(t *testing.T) {
	opts := ingest.DefaultOptions()
	opts.MaxBytes = 16
	a := newAnalyzer(t, opts)

	_, err := a.Analyze(context.Background(), strings.NewReader(sampleFile), int64(len(sampleFile)))

	var oversize *domain.OversizeInputError
	require.ErrorAs(t, err, &oversize)
}

func TestAnalyzer_MalformedInput(t *testing.T) {
	a := newAnalyzer(t, ingest.DefaultOptions())

	_, err := a.Analyze(context.Background(), strings.NewReader("garbage\nwithout\nheader\n"), -1)

	var malformed *domain.MalformedFileError
	require.ErrorAs(t, err, &malformed)
}

func TestAnalyzer_CheckReadiness(t *testing.T) {
	a := newAnalyzer(t, ingest.DefaultOptions())
	assert.NoError(t, a.CheckReadiness(context.Background()))
}
