// Command grader grades an ANC workbook from the command line and writes
// the results as CSV, xlsx or JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"icahtcli/internal/config"
	"icahtcli/internal/exporter"
	"icahtcli/internal/infrastructure"
	"icahtcli/internal/services"
	"icahtcli/pkg/contracts/domain"
)

func main() {
	in := flag.String("in", "", "input .xlsx workbook with ANC observations (required)")
	out := flag.String("out", "", "output file; format from extension .csv/.xlsx/.json (default: <input>_grades.csv)")
	configFile := flag.String("config", "", "path to YAML config file (optional)")
	maxGap := flag.Int("max-gap-days", 0, "override maximum interpolation gap")
	recovery := flag.Int("recovery-days", 0, "override recovery gap for merging exceedances")
	summaryOnly := flag.Bool("summary", false, "print the cohort summary to stdout instead of writing a file")
	flag.Parse()

	if *in == "" {
		fmt.Fprintln(os.Stderr, "usage: grader -in cohort.xlsx [-out grades.csv]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := infrastructure.InitializeLogger(cfg.Logging)

	overrides := &domain.GradingSettings{
		MaxGapDays:   *maxGap,
		RecoveryDays: *recovery,
	}

	store := services.NewMemoryJobStore()
	svc := services.NewGradingService(store, cfg.Grading, cfg.Limits.MaxConcurrency, logger, nil)

	result, err := svc.GradeFile(context.Background(), *in, overrides)
	if err != nil {
		logger.Error("grading failed", "error", err)
		os.Exit(1)
	}

	if *summaryOnly {
		if err := json.NewEncoder(os.Stdout).Encode(result.Summary); err != nil {
			logger.Error("failed to encode summary", "error", err)
			os.Exit(1)
		}
		return
	}

	outPath := *out
	if outPath == "" {
		base := strings.TrimSuffix(*in, filepath.Ext(*in))
		outPath = base + "_grades.csv"
	}

	if err := writeOutput(outPath, result, logger); err != nil {
		logger.Error("failed to write output", "error", err)
		os.Exit(1)
	}

	logger.Info("grading complete",
		"patients", result.Summary.TotalPatients,
		"failed", result.Summary.FailedPatients,
		"output", outPath)
}

func writeOutput(path string, result domain.BatchResult, logger *slog.Logger) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return exporter.NewCSVWriter(logger).WriteResultsFile(path, result.Results)
	case ".xlsx":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		if err := exporter.NewWorkbookWriter(logger).WriteBatch(f, result); err != nil {
			return err
		}
		return f.Close()
	case ".json":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
		return f.Close()
	default:
		return fmt.Errorf("unsupported output extension %q, use .csv, .xlsx or .json", filepath.Ext(path))
	}
}
