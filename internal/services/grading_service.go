package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"icahtcli/internal/exporter"
	"icahtcli/internal/grading"
	"icahtcli/internal/infrastructure"
	"icahtcli/internal/ingest"
	"icahtcli/pkg/contracts/domain"
)

// ExportFormat selects the download rendering for a completed job.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

// GradingService coordinates ingestion, grading and export of ANC
// workbooks. Jobs are created from uploads and processed asynchronously;
// callers poll the job store for completion.
type GradingService struct {
	store     JobStore
	parser    *ingest.Parser
	validator *ingest.FileValidator
	csv       *exporter.CSVWriter
	workbook  *exporter.WorkbookWriter
	logger    *slog.Logger
	metrics   *infrastructure.GradingMetrics

	defaults       domain.GradingSettings
	maxConcurrency int
}

// NewGradingService creates the service with the given batch defaults.
// A nil logger falls back to slog.Default; metrics may be nil.
func NewGradingService(store JobStore, defaults domain.GradingSettings, maxConcurrency int, logger *slog.Logger, metrics *infrastructure.GradingMetrics) *GradingService {
	if logger == nil {
		logger = slog.Default()
	}
	if maxConcurrency <= 0 {
		maxConcurrency = grading.DefaultMaxConcurrency
	}
	return &GradingService{
		store:          store,
		parser:         ingest.NewParser(logger),
		validator:      ingest.NewFileValidator(logger),
		csv:            exporter.NewCSVWriter(logger),
		workbook:       exporter.NewWorkbookWriter(logger),
		logger:         logger.With(slog.String("component", "grading_service")),
		metrics:        metrics,
		defaults:       defaults.Normalize(),
		maxConcurrency: maxConcurrency,
	}
}

// CreateJobFromUpload validates and parses an uploaded workbook and stores
// a pending job holding its observations.
func (s *GradingService) CreateJobFromUpload(ctx context.Context, filename string, data []byte) (*Job, error) {
	if err := s.validator.ValidateUpload(filename, data); err != nil {
		return nil, fmt.Errorf("validate upload: %w", err)
	}

	observations, stats, err := s.parser.ParseReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse workbook: %w", err)
	}

	if s.metrics != nil && stats.DegradedValues > 0 {
		s.metrics.RowsDegraded.Add(ctx, int64(stats.DegradedValues))
	}

	job := &Job{
		ID:           uuid.NewString(),
		Status:       JobStatusPending,
		Filename:     filename,
		Settings:     s.defaults,
		Stats:        stats,
		CreatedAt:    time.Now().UTC(),
		observations: observations,
	}
	if err := s.store.CreateJob(job); err != nil {
		return nil, fmt.Errorf("store job: %w", err)
	}

	s.logger.InfoContext(ctx, "job created",
		slog.String("job_id", job.ID),
		slog.String("filename", filename),
		slog.Int("patients", stats.Patients),
		slog.Int("rows", stats.ParsedRows))

	return job, nil
}

// Process grades a pending job, optionally overriding the batch defaults.
// It runs synchronously; callers wanting async behavior run it in a
// goroutine and poll the store.
func (s *GradingService) Process(ctx context.Context, jobID string, overrides *domain.GradingSettings) (*Job, error) {
	job, err := s.store.GetJob(jobID)
	if err != nil {
		return nil, err
	}
	if job.Status == JobStatusRunning {
		return nil, fmt.Errorf("job %s is already running", jobID)
	}

	settings := s.defaults
	if overrides != nil {
		settings = mergeSettings(s.defaults, *overrides)
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	now := time.Now().UTC()
	job.Status = JobStatusRunning
	job.Settings = settings
	job.StartedAt = &now
	job.Result = nil
	job.Error = ""
	if err := s.store.UpdateJob(job); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ActiveBatches.Add(ctx, 1)
		defer s.metrics.ActiveBatches.Add(ctx, -1)
	}

	engine := grading.NewEngine(settings, s.logger)
	engine.SetMaxConcurrency(s.maxConcurrency)

	start := time.Now()
	result, runErr := engine.Run(ctx, job.observations)
	duration := time.Since(start)

	finished := time.Now().UTC()
	job.CompletedAt = &finished

	if runErr != nil {
		job.Status = JobStatusFailed
		job.Error = runErr.Error()
		if err := s.store.UpdateJob(job); err != nil {
			return nil, err
		}
		infrastructure.RecordBatchMetrics(ctx, s.metrics, 0, 0, duration, runErr)
		return job, runErr
	}

	result.Summary.GeneratedAt = finished
	job.Status = JobStatusCompleted
	job.Result = &result
	if err := s.store.UpdateJob(job); err != nil {
		return nil, err
	}

	infrastructure.RecordBatchMetrics(ctx, s.metrics,
		result.Summary.TotalPatients, result.Summary.FailedPatients, duration, nil)

	s.logger.InfoContext(ctx, "job completed",
		slog.String("job_id", job.ID),
		slog.Int("patients", result.Summary.TotalPatients),
		slog.Duration("duration", duration))

	return job, nil
}

// GetJob returns one job by ID.
func (s *GradingService) GetJob(id string) (*Job, error) {
	return s.store.GetJob(id)
}

// ListJobs returns jobs matching the filter, newest first.
func (s *GradingService) ListJobs(filter JobFilter) ([]*Job, error) {
	return s.store.ListJobs(filter)
}

// Export renders a completed job's results in the requested format.
func (s *GradingService) Export(jobID string, format ExportFormat, w io.Writer) error {
	job, err := s.store.GetJob(jobID)
	if err != nil {
		return err
	}
	if job.Status != JobStatusCompleted || job.Result == nil {
		return fmt.Errorf("job %s has no results to export", jobID)
	}

	switch format {
	case ExportCSV:
		return s.csv.WriteResults(w, job.Result.Results)
	case ExportXLSX:
		return s.workbook.WriteBatch(w, *job.Result)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// GradeFile grades a workbook from disk in one step, for CLI use.
func (s *GradingService) GradeFile(ctx context.Context, path string, overrides *domain.GradingSettings) (domain.BatchResult, error) {
	if err := s.validator.ValidateFile(path); err != nil {
		return domain.BatchResult{}, err
	}
	observations, stats, err := s.parser.ParseFile(path)
	if err != nil {
		return domain.BatchResult{}, err
	}

	settings := s.defaults
	if overrides != nil {
		settings = mergeSettings(s.defaults, *overrides)
	}

	engine := grading.NewEngine(settings, s.logger)
	engine.SetMaxConcurrency(s.maxConcurrency)

	start := time.Now()
	result, err := engine.Run(ctx, observations)
	infrastructure.RecordBatchMetrics(ctx, s.metrics,
		result.Summary.TotalPatients, result.Summary.FailedPatients, time.Since(start), err)
	if err != nil {
		return domain.BatchResult{}, err
	}
	result.Summary.GeneratedAt = time.Now().UTC()

	s.logger.InfoContext(ctx, "file graded",
		slog.String("path", path),
		slog.Int("patients", stats.Patients))

	return result, nil
}

// mergeSettings layers non-zero override fields over the defaults.
func mergeSettings(defaults, overrides domain.GradingSettings) domain.GradingSettings {
	merged := defaults
	if overrides.EarlyDays > 0 {
		merged.EarlyDays = overrides.EarlyDays
	}
	if overrides.LateDays > 0 {
		merged.LateDays = overrides.LateDays
	}
	if overrides.MaxGapDays > 0 {
		merged.MaxGapDays = overrides.MaxGapDays
	}
	if overrides.RecoveryDays > 0 {
		merged.RecoveryDays = overrides.RecoveryDays
	}
	if overrides.Threshold500 > 0 {
		merged.Threshold500 = overrides.Threshold500
	}
	if overrides.Threshold100 > 0 {
		merged.Threshold100 = overrides.Threshold100
	}
	return merged
}
