// Package ingest reads patient ANC workbooks and turns them into
// observation rows for the grading pipeline. Schema problems (missing
// columns, empty file) are hard failures; cell-level problems (bad dates,
// non-numeric counts) degrade the single value to absent so one messy row
// never aborts a batch.
package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"icahtcli/pkg/contracts/domain"
)

// Required column headers, matched case-insensitively after trimming.
var requiredColumns = []string{
	"patient_id",
	"cart_date",
	"date",
	"anc",
	"last_fu_date",
	"subsequent_therapy_date",
	"progression_date",
}

// ParseStats describes what happened to the source rows during ingestion.
type ParseStats struct {
	TotalRows      int `json:"total_rows"`
	ParsedRows     int `json:"parsed_rows"`
	DroppedRows    int `json:"dropped_rows"`
	DegradedValues int `json:"degraded_values"`
	Patients       int `json:"patients"`
}

// Parser reads ANC observation workbooks.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a parser. A nil logger falls back to slog.Default.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger.With(slog.String("component", "ingest_parser"))}
}

// ParseFile reads an .xlsx file from disk.
func (p *Parser) ParseFile(path string) ([]domain.Observation, *ParseStats, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return p.parse(f)
}

// ParseReader reads an .xlsx workbook from a stream, e.g. an HTTP upload.
func (p *Parser) ParseReader(r io.Reader) ([]domain.Observation, *ParseStats, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return p.parse(f)
}

func (p *Parser) parse(f *excelize.File) ([]domain.Observation, *ParseStats, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}

	// The observation table lives on the first sheet that carries the
	// required headers; fall back to a clear schema error otherwise.
	var rows [][]string
	var columnMap map[string]int
	var headerRow int
	var sheetName string

	for _, name := range sheets {
		sheetRows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		if cm, hr, ok := findHeader(sheetRows); ok {
			rows = sheetRows
			columnMap = cm
			headerRow = hr
			sheetName = name
			break
		}
	}
	if columnMap == nil {
		firstRows, err := f.GetRows(sheets[0])
		if err != nil || len(firstRows) == 0 {
			return nil, nil, fmt.Errorf("workbook is empty")
		}
		return nil, nil, fmt.Errorf("missing required columns: %s", strings.Join(missingColumns(firstRows), ", "))
	}

	p.logger.Info("found observation table",
		slog.String("sheet", sheetName),
		slog.Int("header_row", headerRow),
		slog.Int("total_rows", len(rows)))

	stats := &ParseStats{}
	patients := make(map[string]struct{})
	var observations []domain.Observation

	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}
		stats.TotalRows++

		obs, degraded, ok := p.parseRow(row, columnMap)
		stats.DegradedValues += degraded
		if !ok {
			stats.DroppedRows++
			p.logger.Debug("dropped row without patient identifier or baseline date",
				slog.Int("row", i+1))
			continue
		}
		stats.ParsedRows++
		patients[obs.PatientID] = struct{}{}
		observations = append(observations, obs)
	}
	stats.Patients = len(patients)

	if stats.ParsedRows == 0 {
		return nil, nil, fmt.Errorf("no valid observation rows found")
	}

	p.logger.Info("workbook parsed",
		slog.Int("rows", stats.ParsedRows),
		slog.Int("dropped", stats.DroppedRows),
		slog.Int("degraded_values", stats.DegradedValues),
		slog.Int("patients", stats.Patients))

	return observations, stats, nil
}

// parseRow converts one data row. Rows without a patient identifier or a
// parseable baseline date are unusable (day offsets are undefined) and are
// dropped; every other problem degrades the single cell to absent.
func (p *Parser) parseRow(row []string, columnMap map[string]int) (domain.Observation, int, bool) {
	cell := func(column string) string {
		idx := columnMap[column]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	degraded := 0
	parseDateCell := func(column string) *time.Time {
		raw := cell(column)
		if raw == "" {
			return nil
		}
		t, err := parseDate(raw)
		if err != nil {
			degraded++
			return nil
		}
		return &t
	}

	obs := domain.Observation{PatientID: cell("patient_id")}
	obs.BaselineDate = parseDateCell("cart_date")
	if obs.PatientID == "" || obs.BaselineDate == nil {
		return domain.Observation{}, degraded, false
	}

	obs.Date = parseDateCell("date")
	obs.LastFollowUpDate = parseDateCell("last_fu_date")
	obs.SubsequentTherapy = parseDateCell("subsequent_therapy_date")
	obs.ProgressionDate = parseDateCell("progression_date")

	if raw := cell("anc"); raw != "" {
		if v, err := parseNumber(raw); err == nil {
			obs.ANC = &v
		} else {
			degraded++
		}
	}
	return obs, degraded, true
}

// findHeader locates the header row and maps column positions.
func findHeader(rows [][]string) (map[string]int, int, bool) {
	for i, row := range rows {
		if len(row) < len(requiredColumns) {
			continue
		}
		columnMap := make(map[string]int, len(requiredColumns))
		for j, header := range row {
			normalized := strings.ToLower(strings.TrimSpace(header))
			for _, required := range requiredColumns {
				if normalized == required {
					columnMap[required] = j
					break
				}
			}
		}
		if len(columnMap) == len(requiredColumns) {
			return columnMap, i, true
		}
	}
	return nil, 0, false
}

// missingColumns lists the required headers absent from the best candidate
// header row, for the schema error message.
func missingColumns(rows [][]string) []string {
	found := make(map[string]bool)
	for _, row := range rows {
		for _, header := range row {
			normalized := strings.ToLower(strings.TrimSpace(header))
			for _, required := range requiredColumns {
				if normalized == required {
					found[required] = true
				}
			}
		}
	}
	var missing []string
	for _, required := range requiredColumns {
		if !found[required] {
			missing = append(missing, required)
		}
	}
	return missing
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// excelEpoch is the zero day of Excel's 1900 date system.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// parseDate accepts the common spreadsheet date renderings plus raw Excel
// serial numbers (workbooks exported without date formatting).
func parseDate(raw string) (time.Time, error) {
	layouts := []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
		"01/02/2006",
		"1/2/2006",
		"01-02-06",
		"2006/01/02",
		"02-01-2006",
		"Jan 2, 2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Truncate(24 * time.Hour), nil
		}
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial > 0 && serial < 200000 {
		days := int(math.Floor(serial))
		return excelEpoch.AddDate(0, 0, days), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date: %q", raw)
}

// parseNumber parses an ANC cell, tolerating thousands separators.
func parseNumber(raw string) (float64, error) {
	cleaned := strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", raw, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite number %q", raw)
	}
	return v, nil
}
