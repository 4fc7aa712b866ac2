package domain

import "fmt"

// Default grading parameters per the ICAHT consensus scheme.
const (
	DefaultEarlyDays    = 30
	DefaultLateDays     = 100
	DefaultMaxGapDays   = 7
	DefaultRecoveryDays = 3
	DefaultThreshold500 = 500
	DefaultThreshold100 = 100

	// LateWindowStartDay is the first day offset of the late phase.
	LateWindowStartDay = 31
)

// GradingSettings carries the recognized tuning options for one batch run.
// A zero field means "use the default"; Normalize resolves defaults so the
// engine always sees concrete values.
type GradingSettings struct {
	// EarlyDays is the length of the early window in days post-baseline.
	EarlyDays int `json:"early_days,omitempty" yaml:"early_days" validate:"omitempty,min=1,max=365"`
	// LateDays is the default late-window horizon from baseline when no
	// censoring date is present.
	LateDays int `json:"late_days,omitempty" yaml:"late_days" validate:"omitempty,min=31,max=3650"`
	// MaxGapDays bounds the length of gaps filled by linear interpolation.
	// Zero means "use the default" like every other field here, so
	// interpolation cannot be disabled through this option.
	MaxGapDays int `json:"max_gap_days,omitempty" yaml:"max_gap_days" validate:"omitempty,min=1,max=30"`
	// RecoveryDays is the minimum number of consecutive good days required
	// to treat two exceedances as clinically separate.
	RecoveryDays int `json:"recovery_days,omitempty" yaml:"recovery_days" validate:"omitempty,min=1,max=30"`
	// Threshold500 and Threshold100 are the ANC cutoffs (cells/uL) for the
	// two exceedance analyses.
	Threshold500 float64 `json:"anc_threshold_500,omitempty" yaml:"anc_threshold_500" validate:"omitempty,gt=0"`
	Threshold100 float64 `json:"anc_threshold_100,omitempty" yaml:"anc_threshold_100" validate:"omitempty,gt=0"`
}

// DefaultGradingSettings returns the consensus defaults.
func DefaultGradingSettings() GradingSettings {
	return GradingSettings{
		EarlyDays:    DefaultEarlyDays,
		LateDays:     DefaultLateDays,
		MaxGapDays:   DefaultMaxGapDays,
		RecoveryDays: DefaultRecoveryDays,
		Threshold500: DefaultThreshold500,
		Threshold100: DefaultThreshold100,
	}
}

// Normalize returns a copy with zero fields replaced by defaults.
func (s GradingSettings) Normalize() GradingSettings {
	d := DefaultGradingSettings()
	if s.EarlyDays <= 0 {
		s.EarlyDays = d.EarlyDays
	}
	if s.LateDays <= 0 {
		s.LateDays = d.LateDays
	}
	if s.MaxGapDays <= 0 {
		s.MaxGapDays = d.MaxGapDays
	}
	if s.RecoveryDays <= 0 {
		s.RecoveryDays = d.RecoveryDays
	}
	if s.Threshold500 <= 0 {
		s.Threshold500 = d.Threshold500
	}
	if s.Threshold100 <= 0 {
		s.Threshold100 = d.Threshold100
	}
	return s
}

// Validate checks cross-field consistency after normalization.
func (s GradingSettings) Validate() error {
	n := s.Normalize()
	if n.Threshold100 >= n.Threshold500 {
		return fmt.Errorf("anc_threshold_100 (%.0f) must be below anc_threshold_500 (%.0f)", n.Threshold100, n.Threshold500)
	}
	if n.MaxGapDays > n.EarlyDays {
		return fmt.Errorf("max_gap_days (%d) exceeds early window (%d days)", n.MaxGapDays, n.EarlyDays)
	}
	if n.LateDays < LateWindowStartDay {
		return fmt.Errorf("late_days (%d) precedes the late window start (day %d)", n.LateDays, LateWindowStartDay)
	}
	return nil
}
