package grading

import (
	"sort"

	"icahtcli/pkg/contracts/domain"
)

// LateGrade applies the late ICAHT rule table to the window's nadir. The
// band of the lowest value (anc1) determines the grade; the second-lowest
// value is reported alongside but does not alter the band outcome. Absent
// anc1 (no valid observations in the window) grades 0.
func LateGrade(anc1 *float64) domain.Grade {
	if anc1 == nil {
		return domain.Grade0
	}
	v := *anc1
	switch {
	case v <= 100:
		return domain.Grade4
	case v <= 500:
		return domain.Grade3
	case v <= 1000:
		return domain.Grade2
	case v <= 1500:
		return domain.Grade1
	default:
		return domain.Grade0
	}
}

// GradeLateSeries runs the late-phase analysis for one patient: it selects
// the two lowest observed final ANC values in the window and assigns the
// grade. A patient with no valid observations grades 0 with both nadir
// values absent.
func GradeLateSeries(patientID string, series []TimePoint) LateResult {
	values := make([]float64, 0, len(series))
	for _, tp := range series {
		if tp.HasFinal() {
			values = append(values, *tp.FinalANC)
		}
	}
	sort.Float64s(values)

	result := LateResult{
		PatientID: patientID,
		ANCCount:  len(values),
	}
	if len(values) > 0 {
		v := values[0]
		result.ANC1 = &v
	}
	if len(values) > 1 {
		v := values[1]
		result.ANC2 = &v
	}
	result.Grade = LateGrade(result.ANC1)
	return result
}
