// Command qualityreport runs the full quality assessment over one
// station file and prints a human-readable report to stdout. It is a
// thin consumer of the core pipeline, useful for spot checks without
// running the service.
//
// Usage:
//
//	go run ./cmd/qualityreport -file data/A701_2003.csv
//	go run ./cmd/qualityreport -file data/A701_2003.csv -limits limits.yaml -json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/climaqc/station-quality-service/internal/config"
	"github.com/climaqc/station-quality-service/internal/domain"
	"github.com/climaqc/station-quality-service/internal/ingest"
	"github.com/climaqc/station-quality-service/internal/observability"
	"github.com/climaqc/station-quality-service/internal/pipeline"
	"github.com/climaqc/station-quality-service/internal/quality"
	"github.com/climaqc/station-quality-service/internal/validate"
)

func main() {
	file := flag.String("file", "", "path to the station CSV file")
	limitsFile := flag.String("limits", "", "optional YAML variable-limits table")
	asJSON := flag.Bool("json", false, "emit the full report as JSON instead of a summary")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*file, *limitsFile, *asJSON); code != 0 {
		os.Exit(code)
	}
}

func run(path, limitsPath string, asJSON bool) int {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	metrics := observability.NewMetricsForTesting()

	defs, err := config.LoadVariableTable(limitsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load limits: %v\n", err)
		return 1
	}

	parser, err := ingest.NewParser(ingest.DefaultOptions(), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	engine, err := validate.NewEngine(defs, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	aggregator, err := quality.NewAggregator(quality.DefaultWeights(), quality.DefaultBands(), config.TableByName(defs))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	analyzer := pipeline.New(parser, engine, aggregator, logger, metrics)
	report, err := analyzer.Analyze(context.Background(), f, info.Size())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: analyze %s: %v\n", path, err)
		return 1
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: encode report: %v\n", err)
			return 1
		}
		return 0
	}

	printSummary(report)
	return 0
}

func printSummary(report *domain.AnalysisReport) {
	st := report.Station
	fmt.Printf("=== Station Quality Report ===\n\n")
	fmt.Printf("Station:  %s (%.4f, %.4f) alt %.0fm  [%s]\n",
		st.StationCode, st.Latitude, st.Longitude, st.Altitude, st.Status)
	seq := report.Validation.DateSequence
	fmt.Printf("Series:   %s .. %s  (%d records, %d expected days, %d gaps, %d duplicates)\n",
		seq.FirstDate.Format("2006-01-02"), seq.LastDate.Format("2006-01-02"),
		len(report.Records), seq.ExpectedDays, len(seq.Gaps), len(seq.DuplicateDates))
	fmt.Printf("Parsing:  %d field-level anomalies\n\n", len(report.FieldErrors))

	fmt.Printf("%-28s %7s %7s %7s %7s  %s\n", "VARIABLE", "COMPL", "VALID", "CONSIS", "QI", "NOTES")
	for _, name := range report.Validation.Variables {
		v := report.Quality.Variables[name]
		label := v.ShortName
		if label == "" {
			label = name
		}
		if len(label) > 28 {
			label = label[:25] + "..."
		}
		notes := ""
		if v.InsufficientData {
			notes = "insufficient data"
		} else if v.OutlierCount > 0 || v.ChangePointCount > 0 {
			notes = fmt.Sprintf("%d outliers, %d change points", v.OutlierCount, v.ChangePointCount)
		}
		fmt.Printf("%-28s %6.1f%% %6.1f%% %6.1f%% %7.1f  %s\n",
			label, v.Completeness*100, v.Validity*100, v.Consistency*100, v.QualityIndex, notes)
	}

	overall := report.Quality.Overall
	fmt.Printf("\nOverall quality index: %.1f / 100\n", overall.QualityIndex)
	fmt.Printf("Recommendation:        %s (%s)\n", overall.Recommendation, overall.Description)
}
