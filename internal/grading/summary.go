package grading

import (
	"math"

	"icahtcli/pkg/contracts/domain"
)

// Summarize aggregates grade distributions and data-quality metrics across
// a batch of combined results and the phase series they were derived from.
func Summarize(results []domain.CombinedResult, earlySeries, lateSeries map[string][]TimePoint) domain.SummaryReport {
	report := domain.SummaryReport{
		TotalPatients:     len(results),
		EarlyDistribution: make(map[string]int),
		LateDistribution:  make(map[string]int),
	}

	for _, r := range results {
		report.EarlyDistribution[r.EarlyGrade.String()]++
		report.LateDistribution[r.LateGrade.String()]++
		if r.Grade4Special {
			report.Grade4SpecialCases++
		}
		if r.ComputeFailed {
			report.FailedPatients++
		}
	}

	report.EarlyQuality = assessQuality(earlySeries)
	report.LateQuality = assessQuality(lateSeries)
	return report
}

// assessQuality computes the data-quality metrics for one phase: the number
// of patients with any series rows and the percentage of rows whose final
// ANC is absent, rounded to two decimals.
func assessQuality(series map[string][]TimePoint) domain.PhaseQuality {
	var quality domain.PhaseQuality
	totalRows := 0
	missingRows := 0
	for _, points := range series {
		if len(points) == 0 {
			continue
		}
		quality.PatientsWithData++
		totalRows += len(points)
		for _, tp := range points {
			if !tp.HasFinal() {
				missingRows++
			}
		}
	}
	if totalRows > 0 {
		quality.MissingRate = roundTwo(float64(missingRows) / float64(totalRows) * 100)
	}
	return quality
}

func roundTwo(v float64) float64 {
	return math.Round(v*100) / 100
}
