package domain

import (
	"time"
)

// Observation represents a single ANC measurement row for one patient.
// This is the primary input structure for the grading pipeline. Any of the
// date fields and the ANC value may be absent; absent values propagate as
// missing data rather than errors.
type Observation struct {
	PatientID         string     `json:"patient_id" validate:"required"`
	BaselineDate      *time.Time `json:"cart_date,omitempty"`
	Date              *time.Time `json:"date,omitempty"`
	ANC               *float64   `json:"anc,omitempty" validate:"omitempty,min=0"`
	LastFollowUpDate  *time.Time `json:"last_fu_date,omitempty"`
	SubsequentTherapy *time.Time `json:"subsequent_therapy_date,omitempty"`
	ProgressionDate   *time.Time `json:"progression_date,omitempty"`
}

// DayOffset returns the observation day relative to the baseline date.
// The second return value is false when either date is absent.
func (o Observation) DayOffset() (int, bool) {
	if o.BaselineDate == nil || o.Date == nil {
		return 0, false
	}
	return DaysBetween(*o.BaselineDate, *o.Date), true
}

// HasANC reports whether the row carries a measured ANC value.
func (o Observation) HasANC() bool {
	return o.ANC != nil
}

// DaysBetween returns the whole-day difference to - from, ignoring the
// time-of-day component of both dates.
func DaysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f) / (24 * time.Hour))
}
