// Package http contains the chi HTTP handlers for the grading API.
package http

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "icahtcli/internal/errors"
	"icahtcli/internal/ingest"
	"icahtcli/internal/services"
	v1 "icahtcli/pkg/contracts/api/v1"
)

// GradingHandler handles workbook upload, batch processing and job queries.
type GradingHandler struct {
	service      *services.GradingService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewGradingHandler creates a grading handler.
func NewGradingHandler(service *services.GradingService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *GradingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GradingHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "grading_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the grading routes.
func (h *GradingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/upload", h.Upload)
	r.Post("/process", h.Process)
	r.Get("/jobs", h.ListJobs)
	r.Route("/jobs/{jobID}", func(r chi.Router) {
		r.Use(h.JobCtx)
		r.Get("/", h.GetJob)
		r.Get("/export", h.Export)
	})

	return r
}

// JobCtx validates the jobID parameter.
func (h *GradingHandler) JobCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "jobID") == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("jobID", "Job ID is required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Upload accepts a multipart workbook upload and creates a pending job.
func (h *GradingHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(ingest.MaxUploadBytes); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(fmt.Errorf("parse multipart form: %w", err)))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "A workbook file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, ingest.MaxUploadBytes+1))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if len(data) > ingest.MaxUploadBytes {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(fmt.Errorf("payload too large")))
		return
	}

	job, err := h.service.CreateJobFromUpload(r.Context(), header.Filename, data)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.IngestError(err))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, v1.UploadResponse{
		JobID:    job.ID,
		Filename: job.Filename,
		Status:   string(job.Status),
		Stats:    job.Stats,
	})
}

// Process runs grading for a job, with optional settings overrides.
func (h *GradingHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req v1.ProcessRequest
	if err := render.Bind(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	job, err := h.service.Process(r.Context(), req.JobID, req.Settings)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "not found"):
			h.errorHandler.HandleError(w, r, apierrors.ErrJobNotFound)
		case strings.Contains(err.Error(), "validate settings"):
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("settings", err.Error()))
		default:
			h.errorHandler.HandleError(w, r, apierrors.GradingError(err))
		}
		return
	}

	render.JSON(w, r, job)
}

// ListJobs returns all jobs, newest first.
func (h *GradingHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := services.JobFilter{}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = services.JobStatus(status)
	}

	jobs, err := h.service.ListJobs(filter)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, v1.JobListResponse{Jobs: jobs, Count: len(jobs)})
}

// GetJob returns one job including its results when completed.
func (h *GradingHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.GetJob(chi.URLParam(r, "jobID"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrJobNotFound)
		return
	}
	render.JSON(w, r, job)
}

// Export streams a completed job's results as CSV or xlsx.
func (h *GradingHandler) Export(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := h.service.GetJob(jobID)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrJobNotFound)
		return
	}
	if job.Status != services.JobStatusCompleted {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("jobID", "Job has not completed"))
		return
	}

	format := services.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = services.ExportCSV
	}

	switch format {
	case services.ExportCSV:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="icaht_grades_%s.csv"`, jobID))
	case services.ExportXLSX:
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="icaht_grades_%s.xlsx"`, jobID))
	default:
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", "Supported formats: csv, xlsx"))
		return
	}

	if err := h.service.Export(jobID, format, w); err != nil {
		// Headers may already be written; log and fall back to the error
		// handler for the not-found case before any bytes went out.
		h.logger.ErrorContext(r.Context(), "export failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
	}
}
