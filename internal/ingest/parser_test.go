package ingest

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var testHeaders = []string{
	"patient_id", "cart_date", "date", "anc",
	"last_fu_date", "subsequent_therapy_date", "progression_date",
}

// buildWorkbook returns an in-memory xlsx with the given rows under the
// standard header.
func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, h := range testHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Sheet1", cell, h))
	}
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, v))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseReader(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"P1", "2024-01-10", "2024-01-10", "1200", "2024-06-01", nil, nil},
		{"P1", "2024-01-10", "2024-01-15", "450", "2024-06-01", nil, nil},
		{"P2", "2024-02-01", "2024-02-05", nil, nil, "2024-04-01", nil},
	})

	p := NewParser(nil)
	observations, stats, err := p.ParseReader(buf)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalRows)
	assert.Equal(t, 3, stats.ParsedRows)
	assert.Equal(t, 0, stats.DroppedRows)
	assert.Equal(t, 2, stats.Patients)
	require.Len(t, observations, 3)

	first := observations[0]
	assert.Equal(t, "P1", first.PatientID)
	require.NotNil(t, first.BaselineDate)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), *first.BaselineDate)
	require.NotNil(t, first.ANC)
	assert.Equal(t, 1200.0, *first.ANC)

	third := observations[2]
	assert.Nil(t, third.ANC)
	require.NotNil(t, third.SubsequentTherapy)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), *third.SubsequentTherapy)
}

func TestParseReaderDropsUnusableRows(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"P1", "2024-01-10", "2024-01-12", "900", nil, nil, nil},
		{"", "2024-01-10", "2024-01-13", "800", nil, nil, nil},         // no patient id
		{"P3", "not-a-date", "2024-01-14", "700", nil, nil, nil},       // unusable baseline
		{"P1", "2024-01-10", "garbage", "also-garbage", nil, nil, nil}, // degraded cells
	})

	p := NewParser(nil)
	observations, stats, err := p.ParseReader(buf)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalRows)
	assert.Equal(t, 2, stats.ParsedRows)
	assert.Equal(t, 2, stats.DroppedRows)
	// bad baseline on P3 + bad date and bad anc on the last P1 row
	assert.Equal(t, 3, stats.DegradedValues)
	require.Len(t, observations, 2)

	degraded := observations[1]
	assert.Equal(t, "P1", degraded.PatientID)
	assert.Nil(t, degraded.Date)
	assert.Nil(t, degraded.ANC)
}

func TestParseReaderMissingColumns(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "patient_id"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "anc"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "P1"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	p := NewParser(nil)
	_, _, err = p.ParseReader(buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns")
	assert.Contains(t, err.Error(), "cart_date")
	assert.NotContains(t, err.Error(), "patient_id")
}

func TestParseReaderNoDataRows(t *testing.T) {
	buf := buildWorkbook(t, nil)

	p := NewParser(nil)
	_, _, err := p.ParseReader(buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid observation rows")
}

func TestParseReaderNumericANCWithSeparator(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"P1", "2024-01-10", "2024-01-11", "1,250", nil, nil, nil},
	})

	p := NewParser(nil)
	observations, _, err := p.ParseReader(buf)
	require.NoError(t, err)
	require.Len(t, observations, 1)
	require.NotNil(t, observations[0].ANC)
	assert.Equal(t, 1250.0, *observations[0].ANC)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
		ok   bool
	}{
		{"iso", "2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"us slash", "03/05/2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"iso datetime", "2024-03-05 00:00:00", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"excel serial", "45356", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"garbage", "soon", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDate(tt.raw)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
