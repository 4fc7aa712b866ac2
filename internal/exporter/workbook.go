package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/xuri/excelize/v2"

	"icahtcli/pkg/contracts/domain"
)

const (
	gradesSheet  = "Grades"
	summarySheet = "Summary"
)

// WorkbookWriter exports grading results as a styled xlsx workbook with a
// per-patient Grades sheet and a cohort Summary sheet.
type WorkbookWriter struct {
	logger *slog.Logger
}

// NewWorkbookWriter creates a workbook writer. A nil logger falls back to
// slog.Default.
func NewWorkbookWriter(logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{logger: logger.With(slog.String("component", "workbook_exporter"))}
}

// WriteBatch writes the full batch result to w as an xlsx workbook.
func (b *WorkbookWriter) WriteBatch(w io.Writer, batch domain.BatchResult) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"2F5496"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := b.writeGradesSheet(f, headerStyle, batch.Results); err != nil {
		return err
	}
	if err := b.writeSummarySheet(f, headerStyle, batch.Summary); err != nil {
		return err
	}

	// Drop the default sheet and land the reader on the grades.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("remove default sheet: %w", err)
	}
	idx, err := f.GetSheetIndex(gradesSheet)
	if err != nil {
		return fmt.Errorf("locate grades sheet: %w", err)
	}
	f.SetActiveSheet(idx)

	b.logger.Info("writing results workbook",
		slog.Int("record_count", len(batch.Results)))

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (b *WorkbookWriter) writeGradesSheet(f *excelize.File, headerStyle int, results []domain.CombinedResult) error {
	if _, err := f.NewSheet(gradesSheet); err != nil {
		return fmt.Errorf("create grades sheet: %w", err)
	}
	for col, header := range resultHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(gradesSheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(gradesSheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(gradesSheet, "A", "J", 18); err != nil {
		return err
	}

	for rowIdx, r := range results {
		record := resultRecord(r)
		for col, value := range record {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(gradesSheet, cell, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *WorkbookWriter) writeSummarySheet(f *excelize.File, headerStyle int, summary domain.SummaryReport) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Total patients", summary.TotalPatients},
		{"Grade 4 special cases", summary.Grade4SpecialCases},
		{"Failed patients", summary.FailedPatients},
		{"Early phase patients with data", summary.EarlyQuality.PatientsWithData},
		{"Early phase missing rate (%)", formatRate(summary.EarlyQuality.MissingRate)},
		{"Late phase patients with data", summary.LateQuality.PatientsWithData},
		{"Late phase missing rate (%)", formatRate(summary.LateQuality.MissingRate)},
	}
	rows = append(rows, distributionRows("Early ICAHT", summary.EarlyDistribution)...)
	rows = append(rows, distributionRows("Late ICAHT", summary.LateDistribution)...)

	for rowIdx, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(summarySheet, cell, value); err != nil {
				return err
			}
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", "B1", headerStyle); err != nil {
		return err
	}
	return f.SetColWidth(summarySheet, "A", "A", 34)
}

// distributionRows flattens a grade distribution into labeled rows, sorted
// by grade label for stable output.
func distributionRows(prefix string, distribution map[string]int) [][]interface{} {
	labels := make([]string, 0, len(distribution))
	for label := range distribution {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	rows := make([][]interface{}, 0, len(labels))
	for _, label := range labels {
		rows = append(rows, []interface{}{
			fmt.Sprintf("%s %s", prefix, label),
			distribution[label],
		})
	}
	return rows
}
