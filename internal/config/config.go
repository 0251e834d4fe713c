package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/climaqc/station-quality-service/internal/quality"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Parsing limits.
	MaxInputBytes int64
	SegmentSize   int

	// Quality index parameters.
	Weights quality.Weights
	Bands   quality.Bands

	// Variable-limits table; empty means the built-in INMET defaults.
	LimitsFile string

	// Result cache (content-fingerprint memoization).
	CacheSize int

	// Optional Kafka report publishing.
	KafkaBrokers     []string
	KafkaReportTopic string
	KafkaEnabled     bool
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	maxBytes, err := parseInt64("MAX_INPUT_BYTES", 200<<20)
	if err != nil {
		return nil, err
	}

	segmentSize, err := parseInt("SEGMENT_SIZE", 4096)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseInt("RESULT_CACHE_SIZE", 64)
	if err != nil {
		return nil, err
	}

	weights, err := parseWeights()
	if err != nil {
		return nil, err
	}

	bands, err := parseBands()
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		MaxInputBytes:   maxBytes,
		SegmentSize:     segmentSize,
		Weights:         weights,
		Bands:           bands,
		LimitsFile:      os.Getenv("LIMITS_FILE"),
		CacheSize:       cacheSize,

		KafkaBrokers:     brokers,
		KafkaReportTopic: envOrDefault("KAFKA_REPORT_TOPIC", "station-quality-reports"),
		KafkaEnabled:     kafkaEnabled,
	}

	if cfg.MaxInputBytes <= 0 {
		return nil, errors.New("MAX_INPUT_BYTES must be positive")
	}
	if cfg.SegmentSize <= 0 {
		return nil, errors.New("SEGMENT_SIZE must be positive")
	}
	if cfg.CacheSize <= 0 {
		return nil, errors.New("RESULT_CACHE_SIZE must be positive")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseInt64(key string, def int64) (int64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}

func parseWeights() (quality.Weights, error) {
	w := quality.DefaultWeights()
	var err error
	if w.Completeness, err = parseFloat("WEIGHT_COMPLETENESS", w.Completeness); err != nil {
		return w, err
	}
	if w.Validity, err = parseFloat("WEIGHT_VALIDITY", w.Validity); err != nil {
		return w, err
	}
	if w.Consistency, err = parseFloat("WEIGHT_CONSISTENCY", w.Consistency); err != nil {
		return w, err
	}
	return w, nil
}

func parseBands() (quality.Bands, error) {
	b := quality.DefaultBands()
	var err error
	if b.Adequate, err = parseFloat("BAND_ADEQUATE", b.Adequate); err != nil {
		return b, err
	}
	if b.Partially, err = parseFloat("BAND_PARTIALLY_ADEQUATE", b.Partially); err != nil {
		return b, err
	}
	return b, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
