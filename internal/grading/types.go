package grading

import (
	"time"

	"icahtcli/pkg/contracts/domain"
)

// earlyOnsetMaxDay is the latest start day for the never-recovered grade 4
// special case: aplasia beginning within the first four days post-infusion.
const earlyOnsetMaxDay = 3

// TimePoint is one day of a patient's constructed ANC series.
// In the early window the series is daily-complete: exactly one TimePoint
// per day offset, with absent values represented by nil fields rather than
// missing rows. In the late window only observed days are present.
type TimePoint struct {
	PatientID string    `json:"patient_id"`
	Day       int       `json:"time_post_inf"`
	Date      time.Time `json:"date"`
	// RawANC is the measured value for the day, worst-case (minimum) when
	// the source held several same-day measurements.
	RawANC *float64 `json:"anc,omitempty"`
	// InterpolatedANC is the gap-filled value, rounded to the nearest
	// multiple of 10 to match instrument resolution.
	InterpolatedANC *int `json:"anc_interpolated,omitempty"`
	// FinalANC is RawANC when present, else the interpolated value.
	FinalANC *float64 `json:"anc_final,omitempty"`
}

// HasFinal reports whether the day carries a usable ANC value.
func (tp TimePoint) HasFinal() bool {
	return tp.FinalANC != nil
}

// Exceedance is a maximal run of days with final ANC at or below a
// threshold, after recovery-gap merging.
type Exceedance struct {
	PatientID string  `json:"patient_id"`
	Threshold float64 `json:"threshold"`
	StartDay  int     `json:"start_day"`
	EndDay    int     `json:"end_day"`
	Duration  int     `json:"duration"`
}

// spanDuration recomputes the inclusive day span of the interval.
func (e Exceedance) spanDuration() int {
	return e.EndDay - e.StartDay + 1
}

// EarlyResult is the early-phase grading outcome for one patient.
type EarlyResult struct {
	PatientID        string       `json:"patient_id"`
	DurationBelow500 int          `json:"duration_below_500_max"`
	DurationBelow100 int          `json:"duration_below_100_max"`
	Grade4Special    bool         `json:"grade_4_special"`
	Grade            domain.Grade `json:"early_icaht_grade"`
	// Exceedances500 and Exceedances100 count the merged intervals per
	// threshold, kept for reporting.
	Exceedances500 int `json:"exceedances_500"`
	Exceedances100 int `json:"exceedances_100"`
}

// LateResult is the late-phase grading outcome for one patient. ANC1 is the
// lowest observed value in the window, ANC2 the second lowest; either may be
// absent when the window holds fewer than one or two valid observations.
type LateResult struct {
	PatientID string       `json:"patient_id"`
	ANC1      *float64     `json:"anc_1,omitempty"`
	ANC2      *float64     `json:"anc_2,omitempty"`
	ANCCount  int          `json:"anc_count"`
	Grade     domain.Grade `json:"late_icaht_grade"`
}
