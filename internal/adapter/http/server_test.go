package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/climaqc/station-quality-service/internal/adapter/http"
	"github.com/climaqc/station-quality-service/internal/domain"
)

// --- mocks ---

type mockAnalyzer struct {
	report *domain.AnalysisReport
	err    error
	calls  int
}

func (m *mockAnalyzer) AnalyzeBytes(_ context.Context, _ []byte) (*domain.AnalysisReport, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

type mockReady struct {
	err error
}

func (m *mockReady) CheckReadiness(_ context.Context) error { return m.err }

type mockPublisher struct {
	published []*domain.AnalysisReport
	err       error
}

func (m *mockPublisher) PublishReport(_ context.Context, report *domain.AnalysisReport) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, report)
	return nil
}

func sampleReport() *domain.AnalysisReport {
	return &domain.AnalysisReport{
		Station: domain.StationMetadata{StationCode: "A001"},
		FieldErrors: []domain.FieldError{
			{Line: 16, Variable: "X", Token: "xx", Reason: "unparseable number"},
		},
		Quality: domain.QualitySummary{
			Overall: domain.OverallQualityReport{
				QualityIndex:   88.5,
				Recommendation: domain.RecommendationAdequate,
			},
		},
	}
}

func newServer(analyzer httpadapter.Analyzer, ready httpadapter.ReadinessChecker, publisher httpadapter.ReportPublisher, maxBytes int64) *httpadapter.Server {
	return httpadapter.NewServer(":0", analyzer, ready, publisher, maxBytes, slog.Default())
}

// --- tests ---

func TestServer_Health(t *testing.T) {
	srv := newServer(&mockAnalyzer{}, &mockReady{}, nil, 1<<20)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestServer_Ready(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		srv := newServer(&mockAnalyzer{}, &mockReady{}, nil, 1<<20)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready", func(t *testing.T) {
		srv := newServer(&mockAnalyzer{}, &mockReady{err: errors.New("engine not configured")}, nil, 1<<20)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestServer_Metrics(t *testing.T) {
	srv := newServer(&mockAnalyzer{}, &mockReady{}, nil, 1<<20)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Analyze(t *testing.T) {
	analyzer := &mockAnalyzer{report: sampleReport()}
	srv := newServer(analyzer, &mockReady{}, nil, 1<<20)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/analyses", strings.NewReader("station csv body")))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, analyzer.calls)

	var resp struct {
		Report          *domain.AnalysisReport `json:"report"`
		FieldErrorCount int                    `json:"field_error_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "A001", resp.Report.Station.StationCode)
	assert.Equal(t, 1, resp.FieldErrorCount)
}

func TestServer_Analyze_OversizeBody(t *testing.T) {
	srv := newServer(&mockAnalyzer{report: sampleReport()}, &mockReady{}, nil, 8)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/analyses", strings.NewReader("this body is longer than eight bytes")))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestServer_Analyze_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"oversize", &domain.OversizeInputError{Size: 100, Max: 10}, http.StatusRequestEntityTooLarge},
		{"malformed", &domain.MalformedFileError{Line: 1, Reason: "no header line found"}, http.StatusUnprocessableEntity},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(&mockAnalyzer{err: tt.err}, &mockReady{}, nil, 1<<20)
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/analyses", strings.NewReader("body")))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestServer_Analyze_PublishesReport(t *testing.T) {
	publisher := &mockPublisher{}
	srv := newServer(&mockAnalyzer{report: sampleReport()}, &mockReady{}, publisher, 1<<20)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/analyses", strings.NewReader("body")))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, publisher.published, 1)
	assert.Equal(t, "A001", publisher.published[0].Station.StationCode)
}

func TestServer_Analyze_PublishFailureStillSucceeds(t *testing.T) {
	publisher := &mockPublisher{err: errors.New("broker unavailable")}
	srv := newServer(&mockAnalyzer{report: sampleReport()}, &mockReady{}, publisher, 1<<20)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/analyses", strings.NewReader("body")))

	assert.Equal(t, http.StatusOK, rec.Code)
}
