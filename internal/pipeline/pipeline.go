// Package pipeline wires the analysis stages together: parse, validate,
// aggregate. Data flows strictly forward; every stage hands an
// immutable result to the next, and a run holds no state beyond its
// inputs, so identical input always produces an identical report.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/climaqc/station-quality-service/internal/domain"
	"github.com/climaqc/station-quality-service/internal/ingest"
	"github.com/climaqc/station-quality-service/internal/observability"
	"github.com/climaqc/station-quality-service/internal/quality"
	"github.com/climaqc/station-quality-service/internal/validate"
)

// Analyzer runs the full quality-assessment pipeline over one station file.
type Analyzer struct {
	parser     *ingest.Parser
	engine     *validate.Engine
	aggregator *quality.Aggregator
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New assembles an Analyzer from pre-validated stages.
func New(parser *ingest.Parser, engine *validate.Engine, aggregator *quality.Aggregator, logger *slog.Logger, metrics *observability.Metrics) *Analyzer {
	return &Analyzer{
		parser:     parser,
		engine:     engine,
		aggregator: aggregator,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once the analyzer's configuration has been
// validated, which happens at construction.
func (a *Analyzer) CheckReadiness(_ context.Context) error {
	if a.parser == nil || a.engine == nil || a.aggregator == nil {
		return errors.New("analyzer is not fully configured")
	}
	return nil
}

// Analyze runs the pipeline over a raw station file. declaredSize is
// the input size when known up front (file stat, Content-Length); pass
// a negative value when unknown. Oversize input is rejected before any
// parsing work.
//
// Parsing and collection are pipelined: the parser produces bounded
// segments on one goroutine while the consumer accumulates them. The
// whole-series checks (outliers, change points, date gaps) run only
// after end-of-stream, per-variable in parallel.
func (a *Analyzer) Analyze(ctx context.Context, r io.Reader, declaredSize int64) (*domain.AnalysisReport, error) {
	start := time.Now()

	var (
		meta    domain.StationMetadata
		vars    []string
		records []domain.ObservationRecord
		ferrs   []domain.FieldError
	)

	batches := make(chan ingest.RecordBatch, 4)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(batches)
		m, v, err := a.parser.ParseSegments(gctx, r, declaredSize, func(batch ingest.RecordBatch) error {
			select {
			case batches <- batch:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
		if err != nil {
			return err
		}
		meta, vars = m, v
		return nil
	})
	g.Go(func() error {
		for batch := range batches {
			records = append(records, batch.Records...)
			ferrs = append(ferrs, batch.FieldErrors...)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		a.countRejection(err)
		return nil, err
	}

	// The parser preserves input row order; the validators expect the
	// series ordered by date. Stable, so the first occurrence of a
	// duplicated date stays canonical.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	result, err := a.engine.Run(ctx, vars, records, meta)
	if err != nil {
		a.countRejection(err)
		return nil, err
	}
	summary := a.aggregator.Aggregate(records, result)

	report := &domain.AnalysisReport{
		Station:     meta,
		Records:     records,
		Validation:  result,
		Quality:     summary,
		FieldErrors: ferrs,
		GeneratedAt: domain.Clock().Now().UTC(),
	}

	a.metrics.AnalysesTotal.Inc()
	a.metrics.RecordsParsed.Add(float64(len(records)))
	a.metrics.FieldErrors.Add(float64(len(ferrs)))
	a.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	if declaredSize >= 0 {
		a.metrics.InputBytes.Observe(float64(declaredSize))
	}
	a.logger.Info("analysis complete",
		"station", meta.StationCode,
		"records", len(records),
		"variables", len(vars),
		"field_errors", len(ferrs),
		"quality_index", summary.Overall.QualityIndex,
		"recommendation", summary.Overall.Recommendation,
		"duration", time.Since(start),
	)

	return report, nil
}

// AnalyzeBytes runs the pipeline over an in-memory file, the entry
// point used by the HTTP adapter after it has read (and fingerprinted)
// the upload.
func (a *Analyzer) AnalyzeBytes(ctx context.Context, data []byte) (*domain.AnalysisReport, error) {
	return a.Analyze(ctx, bytes.NewReader(data), int64(len(data)))
}

// countRejection classifies a fatal pipeline error for the rejection metric.
func (a *Analyzer) countRejection(err error) {
	var (
		oversize  *domain.OversizeInputError
		malformed *domain.MalformedFileError
	)
	switch {
	case errors.As(err, &oversize):
		a.metrics.AnalysesRejected.WithLabelValues("oversize").Inc()
	case errors.As(err, &malformed):
		a.metrics.AnalysesRejected.WithLabelValues("malformed").Inc()
	default:
		a.metrics.AnalysesRejected.WithLabelValues("internal").Inc()
	}
	a.logger.Error("analysis failed", "error", err)
}
