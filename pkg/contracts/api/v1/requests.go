// Package v1 defines the HTTP API request and response contracts.
package v1

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"icahtcli/pkg/contracts/domain"
)

var validate = validator.New()

// ProcessRequest starts grading for an uploaded job. Settings override the
// server defaults for this run only; omitted fields keep the defaults.
type ProcessRequest struct {
	JobID    string                  `json:"job_id" validate:"required,uuid4"`
	Settings *domain.GradingSettings `json:"settings,omitempty"`
}

// Bind implements render.Binder.
func (p *ProcessRequest) Bind(r *http.Request) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid process request: %w", err)
	}
	if p.Settings != nil {
		if err := validate.Struct(p.Settings); err != nil {
			return fmt.Errorf("invalid settings: %w", err)
		}
	}
	return nil
}

// UploadResponse acknowledges a stored upload.
type UploadResponse struct {
	JobID    string      `json:"job_id"`
	Filename string      `json:"filename"`
	Status   string      `json:"status"`
	Stats    interface{} `json:"ingest_stats,omitempty"`
}

// JobListResponse wraps the job listing.
type JobListResponse struct {
	Jobs  interface{} `json:"jobs"`
	Count int         `json:"count"`
}
