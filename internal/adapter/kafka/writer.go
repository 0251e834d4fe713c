// Package kafka publishes completed quality reports to a Kafka topic
// for downstream reporting consumers. Publishing is feature-flagged;
// the core pipeline never depends on it.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/climaqc/station-quality-service/internal/config"
	"github.com/climaqc/station-quality-service/internal/domain"
	"github.com/climaqc/station-quality-service/internal/observability"
)

// Writer produces quality reports to the configured report topic.
type Writer struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured report topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaReportTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// PublishReport serializes and publishes one analysis report, keyed by
// station code so reports for the same station land on one partition.
func (w *Writer) PublishReport(ctx context.Context, report *domain.AnalysisReport) error {
	msg, err := serializeToMessage(report)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		w.metrics.PublishErrors.Inc()
		return fmt.Errorf("publish quality report: %w", err)
	}
	w.metrics.ReportsPublished.Inc()
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an AnalysisReport into a Kafka message.
// Headers carry the routing-relevant fields so consumers can filter
// without deserializing the body.
func serializeToMessage(report *domain.AnalysisReport) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize quality report: %w", err)
	}

	var key []byte
	if report.Station.StationCode != "" {
		key = []byte(report.Station.StationCode)
	}
	return kafkago.Message{
		Key:   key,
		Value: data,
		Headers: []kafkago.Header{
			{Key: "station", Value: []byte(report.Station.StationCode)},
			{Key: "recommendation", Value: []byte(report.Quality.Overall.Recommendation)},
			{Key: "generated_at", Value: []byte(report.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
