package grading

import (
	"icahtcli/pkg/contracts/domain"
)

// EarlyGrade applies the early ICAHT rule table to the maximum exceedance
// durations. The never-recovered special case takes precedence over every
// duration band; any combination outside the listed bands grades 0,
// matching the reference behavior.
func EarlyGrade(duration500, duration100 int, grade4Special bool) domain.Grade {
	switch {
	case grade4Special:
		return domain.Grade4
	case duration500 == 0 && duration100 == 0:
		return domain.Grade0
	case duration500 >= 1 && duration500 <= 6 && duration100 < 7:
		return domain.Grade1
	case duration500 >= 7 && duration500 <= 13 && duration100 < 7:
		return domain.Grade2
	case (duration500 >= 14 && duration500 <= 30 && duration100 < 7) ||
		(duration500 < 31 && duration100 >= 7 && duration100 <= 13):
		return domain.Grade3
	case duration500 >= 31 || duration100 >= 14:
		return domain.Grade4
	default:
		return domain.Grade0
	}
}

// GradeEarlySeries runs the full early-phase analysis for one patient's
// finished (interpolated) series: exceedance detection at both thresholds,
// recovery-gap merging, the never-recovered check, and grade assignment.
func GradeEarlySeries(patientID string, series []TimePoint, settings domain.GradingSettings) EarlyResult {
	merged500 := MergeExceedances(
		DetectExceedances(patientID, series, settings.Threshold500),
		settings.RecoveryDays,
	)
	merged100 := MergeExceedances(
		DetectExceedances(patientID, series, settings.Threshold100),
		settings.RecoveryDays,
	)

	duration500 := maxDuration(merged500)
	duration100 := maxDuration(merged100)
	special := neverRecovered(series, merged500)

	return EarlyResult{
		PatientID:        patientID,
		DurationBelow500: duration500,
		DurationBelow100: duration100,
		Grade4Special:    special,
		Grade:            EarlyGrade(duration500, duration100, special),
		Exceedances500:   len(merged500),
		Exceedances100:   len(merged100),
	}
}
