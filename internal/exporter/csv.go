// Package exporter renders grading results for download: CSV for analysis
// pipelines and a styled xlsx workbook for clinicians. Both exports order
// rows by patient identifier so repeated runs produce identical files.
package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"icahtcli/pkg/contracts/domain"
)

// resultHeaders is the column order shared by the CSV and xlsx exports.
var resultHeaders = []string{
	"patient_id",
	"early_icaht_grade",
	"duration_below_500_max",
	"duration_below_100_max",
	"grade4_special",
	"late_icaht_grade",
	"anc_1",
	"anc_2",
	"anc_count",
	"compute_failed",
}

// CSVWriter exports grading results as CSV.
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a CSV writer. A nil logger falls back to
// slog.Default.
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger.With(slog.String("component", "csv_exporter"))}
}

// WriteResults streams the per-patient result table to w. A UTF-8 BOM is
// written first so Excel opens the file correctly.
func (c *CSVWriter) WriteResults(w io.Writer, results []domain.CombinedResult) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(resultHeaders); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	for i, r := range results {
		if err := writer.Write(resultRecord(r)); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteResultsFile writes the result table to a file on disk, creating
// parent directories as needed.
func (c *CSVWriter) WriteResultsFile(path string, results []domain.CombinedResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	c.logger.Info("writing results CSV",
		slog.String("path", path),
		slog.Int("record_count", len(results)))

	if err := c.WriteResults(f, results); err != nil {
		return err
	}
	return f.Close()
}

func resultRecord(r domain.CombinedResult) []string {
	return []string{
		r.PatientID,
		strconv.Itoa(int(r.EarlyGrade)),
		strconv.Itoa(r.DurationBelow500),
		strconv.Itoa(r.DurationBelow100),
		formatBool(r.Grade4Special),
		strconv.Itoa(int(r.LateGrade)),
		formatANC(r.ANC1),
		formatANC(r.ANC2),
		strconv.Itoa(r.ANCCount),
		formatBool(r.ComputeFailed),
	}
}
