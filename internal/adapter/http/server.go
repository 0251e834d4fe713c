// Package http exposes the analysis pipeline over HTTP: health,
// readiness, and metrics endpoints plus the file-analysis route. It is
// a consumer of the core's contract surfaces, not part of the core.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/climaqc/station-quality-service/internal/domain"
)

// Analyzer runs the quality pipeline over an uploaded station file.
type Analyzer interface {
	AnalyzeBytes(ctx context.Context, data []byte) (*domain.AnalysisReport, error)
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ReportPublisher forwards completed reports to downstream consumers.
// A nil publisher disables forwarding.
type ReportPublisher interface {
	PublishReport(ctx context.Context, report *domain.AnalysisReport) error
}

// Server exposes the analysis API plus health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	analyzer   Analyzer
	publisher  ReportPublisher
	logger     *slog.Logger
	maxBytes   int64
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// and POST /v1/analyses routes. maxBytes bounds the accepted upload size.
func NewServer(addr string, analyzer Analyzer, ready ReadinessChecker, publisher ReportPublisher, maxBytes int64, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		analyzer:  analyzer,
		publisher: publisher,
		logger:    logger,
		maxBytes:  maxBytes,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /v1/analyses", s.handleAnalyze)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleAnalyze accepts a raw station CSV body and returns the analysis
// report as JSON. The response distinguishes rejected files (4xx) from
// files accepted with field-level anomalies (200 plus field_error_count).
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.maxBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": "input exceeds maximum accepted size",
		})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": "input exceeds maximum accepted size",
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read request body: " + err.Error()})
		return
	}

	report, err := s.analyzer.AnalyzeBytes(r.Context(), body)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}

	if s.publisher != nil {
		if err := s.publisher.PublishReport(r.Context(), report); err != nil {
			// Publishing is a side channel; the caller still gets the report.
			s.logger.Warn("publish report failed", "station", report.Station.StationCode, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"report":            report,
		"field_error_count": len(report.FieldErrors),
	})
}

func (s *Server) writeAnalysisError(w http.ResponseWriter, err error) {
	var (
		oversize  *domain.OversizeInputError
		malformed *domain.MalformedFileError
		badConfig *domain.ConfigurationError
	)
	switch {
	case errors.As(err, &oversize):
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
	case errors.As(err, &malformed):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.As(err, &badConfig):
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
