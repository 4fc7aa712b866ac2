package services

import (
	"time"

	"icahtcli/pkg/contracts/domain"
)

// HealthStatus is the payload of the health endpoint.
type HealthStatus struct {
	Status        string                 `json:"status"`
	Version       string                 `json:"version"`
	UptimeSeconds float64                `json:"uptime_seconds"`
	Jobs          map[string]int         `json:"jobs"`
	Settings      domain.GradingSettings `json:"settings"`
}

// HealthService reports liveness and basic runtime state.
type HealthService struct {
	version   string
	startTime time.Time
	store     JobStore
	settings  domain.GradingSettings
}

// NewHealthService creates a health service.
func NewHealthService(version string, store JobStore, settings domain.GradingSettings) *HealthService {
	return &HealthService{
		version:   version,
		startTime: time.Now(),
		store:     store,
		settings:  settings.Normalize(),
	}
}

// Check returns the current health snapshot.
func (h *HealthService) Check() HealthStatus {
	counts := map[string]int{
		string(JobStatusPending):   0,
		string(JobStatusRunning):   0,
		string(JobStatusCompleted): 0,
		string(JobStatusFailed):    0,
	}
	if jobs, err := h.store.ListJobs(JobFilter{}); err == nil {
		for _, job := range jobs {
			counts[string(job.Status)]++
		}
	}

	return HealthStatus{
		Status:        "healthy",
		Version:       h.version,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Jobs:          counts,
		Settings:      h.settings,
	}
}
