package domain

import "time"

// CombinedResult is the per-patient output record: the union of the early
// and late phase results. A patient missing from one phase carries that
// phase's defaults (grade 0, zero durations, absent nadir values).
type CombinedResult struct {
	PatientID string `json:"patient_id" validate:"required"`

	// Early phase (days 0 through the configured early window).
	EarlyGrade       Grade `json:"early_icaht_grade"`
	DurationBelow500 int   `json:"duration_below_500_max" validate:"min=0"`
	DurationBelow100 int   `json:"duration_below_100_max" validate:"min=0"`
	Grade4Special    bool  `json:"grade_4_special"`

	// Late phase (day 31 through the censoring date).
	LateGrade Grade    `json:"late_icaht_grade"`
	ANC1      *float64 `json:"anc_1,omitempty"`
	ANC2      *float64 `json:"anc_2,omitempty"`
	ANCCount  int      `json:"anc_count" validate:"min=0"`

	// ComputeFailed marks a patient whose computation was isolated after an
	// unexpected failure; the record carries phase defaults.
	ComputeFailed bool `json:"compute_failed,omitempty"`
}

// PhaseQuality summarizes data completeness for one phase's series.
type PhaseQuality struct {
	PatientsWithData int `json:"patients_with_data" validate:"min=0"`
	// MissingRate is the percentage of series rows whose final ANC is
	// absent, rounded to two decimals.
	MissingRate float64 `json:"interpolation_rate" validate:"min=0,max=100"`
}

// SummaryReport aggregates grade distributions and data-quality metrics
// across all patients in one batch.
type SummaryReport struct {
	TotalPatients      int            `json:"total_patients" validate:"min=0"`
	EarlyDistribution  map[string]int `json:"early_icaht_distribution"`
	LateDistribution   map[string]int `json:"late_icaht_distribution"`
	Grade4SpecialCases int            `json:"grade_4_special_cases" validate:"min=0"`
	FailedPatients     int            `json:"failed_patients" validate:"min=0"`
	EarlyQuality       PhaseQuality   `json:"early_data_quality"`
	LateQuality        PhaseQuality   `json:"late_data_quality"`
	GeneratedAt        time.Time      `json:"generated_at"`
}

// BatchResult is the complete output of one pipeline invocation.
type BatchResult struct {
	Results []CombinedResult `json:"results" validate:"dive"`
	Summary SummaryReport    `json:"summary"`
}
