// Package grading implements ICAHT (Immune effector Cell-Associated
// HematoToxicity) grading of post-infusion neutrophil counts.
//
// The pipeline turns sparse, irregular per-patient ANC observations into
// standardized toxicity grades for two fixed clinical windows:
//
//  1. Early phase (days 0-30): a daily-complete series is built per
//     patient, bounded gaps are filled by linear interpolation, runs of
//     days at or below the 500 and 100 cells/uL thresholds are detected
//     and merged across short recovery gaps, and a duration-based rule
//     table assigns the grade.
//  2. Late phase (day 31 onward): the two lowest observed values before
//     the censoring date determine the grade by nadir band.
//
// # Architecture
//
//   - types.go: series, exceedance and phase-result structures
//   - timeseries.go: early daily-series construction and late selection
//   - interpolate.go: bounded linear interpolation
//   - exceedance.go: threshold run detection, recovery-gap merging and the
//     never-recovered special case
//   - early.go, late.go: rule-table graders
//   - combine.go: per-patient union of the two phases
//   - summary.go: batch-level distributions and data-quality metrics
//   - engine.go: orchestration with per-patient fan-out and isolation
//
// # Usage
//
//	engine := grading.NewEngine(domain.DefaultGradingSettings(), slog.Default())
//	batch, err := engine.Run(ctx, observations)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, result := range batch.Results {
//	    fmt.Println(result.PatientID, result.EarlyGrade, result.LateGrade)
//	}
//
// # Determinism
//
// The transform is reproducible by construction: patients are computed
// independently, joined, and ordered by patient identifier, so identical
// observations and settings always produce identical output. This is a
// hard requirement for clinical reporting.
package grading
