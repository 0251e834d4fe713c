package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// analysis service.
type Metrics struct {
	AnalysesTotal   prometheus.Counter
	AnalysesRejected *prometheus.CounterVec // labels: reason={oversize,malformed,internal}
	FieldErrors     prometheus.Counter
	RecordsParsed   prometheus.Counter

	AnalysisDuration prometheus.Histogram
	InputBytes       prometheus.Histogram

	CacheLookups     *prometheus.CounterVec // labels: result={hit,miss}
	ReportsPublished prometheus.Counter
	PublishErrors    prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		AnalysesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "station_quality",
			Name:      "analyses_total",
			Help:      "Total station files analyzed successfully.",
		}),
		AnalysesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "station_quality",
			Name:      "analyses_rejected_total",
			Help:      "Files rejected before or during parsing, by reason.",
		}, []string{"reason"}),
		FieldErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "station_quality",
			Name:      "field_errors_total",
			Help:      "Non-fatal field-level parse errors across accepted files.",
		}),
		RecordsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "station_quality",
			Name:      "records_parsed_total",
			Help:      "Observation records parsed across accepted files.",
		}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "station_quality",
			Name:      "analysis_duration_seconds",
			Help:      "Duration of a complete parse-validate-aggregate run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		InputBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "station_quality",
			Name:      "input_bytes",
			Help:      "Size of analyzed station files in bytes.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "station_quality",
			Name:      "result_cache_total",
			Help:      "Result cache lookups by fingerprint, by result.",
		}, []string{"result"}),
		ReportsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "station_quality",
			Name:      "reports_published_total",
			Help:      "Quality reports published to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "station_quality",
			Name:      "publish_errors_total",
			Help:      "Failed report publish attempts.",
		}),
	}

	prometheus.MustRegister(
		m.AnalysesTotal,
		m.AnalysesRejected,
		m.FieldErrors,
		m.RecordsParsed,
		m.AnalysisDuration,
		m.InputBytes,
		m.CacheLookups,
		m.ReportsPublished,
		m.PublishErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		AnalysesTotal:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "station_quality", Name: "analyses_total"}),
		AnalysesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "station_quality", Name: "analyses_rejected_total"}, []string{"reason"}),
		FieldErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "station_quality", Name: "field_errors_total"}),
		RecordsParsed:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "station_quality", Name: "records_parsed_total"}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "station_quality", Name: "analysis_duration_seconds"}),
		InputBytes:       prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "station_quality", Name: "input_bytes"}),
		CacheLookups:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "station_quality", Name: "result_cache_total"}, []string{"result"}),
		ReportsPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "station_quality", Name: "reports_published_total"}),
		PublishErrors:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "station_quality", Name: "publish_errors_total"}),
	}
}
