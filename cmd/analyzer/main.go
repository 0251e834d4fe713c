package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/climaqc/station-quality-service/internal/adapter/http"
	kafkaadapter "github.com/climaqc/station-quality-service/internal/adapter/kafka"
	"github.com/climaqc/station-quality-service/internal/config"
	"github.com/climaqc/station-quality-service/internal/ingest"
	"github.com/climaqc/station-quality-service/internal/observability"
	"github.com/climaqc/station-quality-service/internal/pipeline"
	"github.com/climaqc/station-quality-service/internal/quality"
	"github.com/climaqc/station-quality-service/internal/validate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	defs, err := config.LoadVariableTable(cfg.LimitsFile)
	if err != nil {
		logger.Error("failed to load variable limits", "error", err)
		os.Exit(1)
	}

	parserOpts := ingest.DefaultOptions()
	parserOpts.SegmentSize = cfg.SegmentSize
	parserOpts.MaxBytes = cfg.MaxInputBytes

	parser, err := ingest.NewParser(parserOpts, logger)
	if err != nil {
		logger.Error("failed to configure parser", "error", err)
		os.Exit(1)
	}
	engine, err := validate.NewEngine(defs, logger)
	if err != nil {
		logger.Error("failed to configure validation engine", "error", err)
		os.Exit(1)
	}
	aggregator, err := quality.NewAggregator(cfg.Weights, cfg.Bands, config.TableByName(defs))
	if err != nil {
		logger.Error("failed to configure aggregator", "error", err)
		os.Exit(1)
	}

	analyzer := pipeline.New(parser, engine, aggregator, logger, metrics)
	cached := httpadapter.NewCachedAnalyzer(analyzer, cfg.CacheSize, metrics)

	// Report publishing is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var publisher httpadapter.ReportPublisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger, metrics)
		publisher = writer
		logger.Info("report publishing enabled", "topic", cfg.KafkaReportTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("report publishing disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, cached, analyzer, publisher, cfg.MaxInputBytes, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
