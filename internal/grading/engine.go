package grading

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"icahtcli/pkg/contracts/domain"
)

// DefaultMaxConcurrency bounds the number of patients graded in parallel.
const DefaultMaxConcurrency = 4

// Engine runs the full grading pipeline for one batch of observations.
// Every patient is computed independently with no shared mutable state, so
// patients fan out onto a bounded worker group and join before the
// combination and summary reductions. The transform is deterministic:
// results are ordered by patient identifier regardless of scheduling.
type Engine struct {
	settings       domain.GradingSettings
	logger         *slog.Logger
	maxConcurrency int
	stages         stageFunc
}

// stageFunc runs the per-patient pipeline stages inside the recover barrier.
type stageFunc func(ctx context.Context, patientID string, observations []domain.Observation) patientOutcome

// NewEngine creates an engine with normalized settings. A nil logger falls
// back to slog.Default.
func NewEngine(settings domain.GradingSettings, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		settings:       settings.Normalize(),
		logger:         logger.With(slog.String("component", "grading_engine")),
		maxConcurrency: DefaultMaxConcurrency,
	}
	e.stages = e.gradePatient
	return e
}

// SetMaxConcurrency overrides the per-patient worker limit.
func (e *Engine) SetMaxConcurrency(n int) {
	if n > 0 {
		e.maxConcurrency = n
	}
}

// Settings returns the engine's normalized settings.
func (e *Engine) Settings() domain.GradingSettings {
	return e.settings
}

// patientOutcome is the joined result of one patient's isolated computation.
type patientOutcome struct {
	early       EarlyResult
	late        LateResult
	earlySeries []TimePoint
	lateSeries  []TimePoint
	failed      bool
}

// Run executes the pipeline: series construction, interpolation, exceedance
// analysis and grading per patient, then combination and summary across the
// batch. A failure inside one patient's computation degrades that patient
// to phase defaults with ComputeFailed set; it never aborts the batch.
func (e *Engine) Run(ctx context.Context, observations []domain.Observation) (domain.BatchResult, error) {
	if err := e.settings.Validate(); err != nil {
		return domain.BatchResult{}, fmt.Errorf("validate settings: %w", err)
	}

	grouped := GroupByPatient(observations)
	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	e.logger.InfoContext(ctx, "starting grading batch",
		slog.Int("observations", len(observations)),
		slog.Int("patients", len(ids)),
		slog.Int("early_days", e.settings.EarlyDays),
		slog.Int("max_gap_days", e.settings.MaxGapDays),
		slog.Int("recovery_days", e.settings.RecoveryDays),
	)

	outcomes := make(map[string]patientOutcome, len(ids))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrency)
	for _, id := range ids {
		patientID := id
		patientObs := grouped[id]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome := e.computePatient(gctx, patientID, patientObs)
			mu.Lock()
			outcomes[patientID] = outcome
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.BatchResult{}, fmt.Errorf("grading batch cancelled: %w", err)
	}

	early := make(map[string]EarlyResult, len(outcomes))
	late := make(map[string]LateResult, len(outcomes))
	earlySeries := make(map[string][]TimePoint, len(outcomes))
	lateSeries := make(map[string][]TimePoint, len(outcomes))
	failed := make(map[string]bool)
	for id, outcome := range outcomes {
		early[id] = outcome.early
		late[id] = outcome.late
		earlySeries[id] = outcome.earlySeries
		lateSeries[id] = outcome.lateSeries
		if outcome.failed {
			failed[id] = true
		}
	}

	results := Combine(early, late)
	for i := range results {
		if failed[results[i].PatientID] {
			results[i].ComputeFailed = true
		}
	}

	summary := Summarize(results, earlySeries, lateSeries)

	e.logger.InfoContext(ctx, "grading batch complete",
		slog.Int("patients", summary.TotalPatients),
		slog.Int("grade_4_special_cases", summary.Grade4SpecialCases),
		slog.Int("failed_patients", summary.FailedPatients),
	)

	return domain.BatchResult{Results: results, Summary: summary}, nil
}

// computePatient runs the per-patient stages inside a recover barrier so a
// malformed record cannot poison the rest of the batch.
func (e *Engine) computePatient(ctx context.Context, patientID string, observations []domain.Observation) (outcome patientOutcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "patient computation failed, substituting defaults",
				slog.String("patient_id", patientID),
				slog.Any("panic", r),
			)
			outcome = patientOutcome{
				early:  EarlyResult{PatientID: patientID},
				late:   LateResult{PatientID: patientID},
				failed: true,
			}
		}
	}()

	return e.stages(ctx, patientID, observations)
}

// gradePatient runs the per-patient stages: series construction,
// interpolation, exceedance analysis and grading for both phases.
func (e *Engine) gradePatient(_ context.Context, patientID string, observations []domain.Observation) patientOutcome {
	earlySeries := InterpolateSeries(
		BuildEarlySeries(patientID, observations, e.settings),
		e.settings.MaxGapDays,
	)
	lateSeries := BuildLateSeries(patientID, observations, e.settings)

	return patientOutcome{
		early:       GradeEarlySeries(patientID, earlySeries, e.settings),
		late:        GradeLateSeries(patientID, lateSeries),
		earlySeries: earlySeries,
		lateSeries:  lateSeries,
	}
}
