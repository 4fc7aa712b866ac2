package exporter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"icahtcli/pkg/contracts/domain"
)

func TestWriteBatch(t *testing.T) {
	batch := domain.BatchResult{
		Results: sampleResults(),
		Summary: domain.SummaryReport{
			TotalPatients: 2,
			EarlyDistribution: map[string]int{
				"Grade 2": 1,
				"Grade 4": 1,
			},
			LateDistribution: map[string]int{
				"Grade 0": 1,
				"Grade 3": 1,
			},
			Grade4SpecialCases: 1,
			EarlyQuality:       domain.PhaseQuality{PatientsWithData: 2, MissingRate: 12.9},
			LateQuality:        domain.PhaseQuality{PatientsWithData: 1, MissingRate: 40},
		},
	}

	var buf bytes.Buffer
	w := NewWorkbookWriter(nil)
	require.NoError(t, w.WriteBatch(&buf, batch))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{gradesSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(gradesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, resultHeaders, rows[0])
	assert.Equal(t, "P1", rows[1][0])
	assert.Equal(t, "2", rows[1][1])
	assert.Equal(t, "true", rows[2][4])

	summaryRows, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.NotEmpty(t, summaryRows)
	assert.Equal(t, []string{"Metric", "Value"}, summaryRows[0][:2])

	metrics := make(map[string]string)
	for _, row := range summaryRows[1:] {
		if len(row) >= 2 {
			metrics[row[0]] = row[1]
		}
	}
	assert.Equal(t, "2", metrics["Total patients"])
	assert.Equal(t, "1", metrics["Grade 4 special cases"])
	assert.Equal(t, "12.90", metrics["Early phase missing rate (%)"])
	assert.Equal(t, "1", metrics["Early ICAHT Grade 2"])
	assert.Equal(t, "1", metrics["Late ICAHT Grade 3"])
}

func TestWriteBatchEmpty(t *testing.T) {
	var buf bytes.Buffer
	w := NewWorkbookWriter(nil)
	require.NoError(t, w.WriteBatch(&buf, domain.BatchResult{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(gradesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
}
