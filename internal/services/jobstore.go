// Package services holds the application layer: the grading service that
// drives ingest, the engine and export, plus the job store that tracks
// batch runs for the HTTP API.
package services

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"icahtcli/internal/ingest"
	"icahtcli/pkg/contracts/domain"
)

// JobStatus enumerates the lifecycle of a grading job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job tracks one uploaded workbook through grading.
type Job struct {
	ID          string                 `json:"id"`
	Status      JobStatus              `json:"status"`
	Filename    string                 `json:"filename"`
	Settings    domain.GradingSettings `json:"settings"`
	Stats       *ingest.ParseStats     `json:"ingest_stats,omitempty"`
	Result      *domain.BatchResult    `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`

	// observations are held for processing and never serialized.
	observations []domain.Observation
}

// JobFilter selects jobs in ListJobs.
type JobFilter struct {
	Status JobStatus
	Since  time.Time
	Limit  int
}

// JobStore persists grading jobs.
type JobStore interface {
	CreateJob(job *Job) error
	GetJob(id string) (*Job, error)
	UpdateJob(job *Job) error
	ListJobs(filter JobFilter) ([]*Job, error)
	DeleteJob(id string) error
	CleanupOldJobs(olderThan time.Duration) (int, error)
}

// MemoryJobStore is an in-memory JobStore.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewMemoryJobStore creates an empty in-memory job store.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]*Job)}
}

// CreateJob stores a new job.
func (s *MemoryJobStore) CreateJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job
	return nil
}

// GetJob retrieves a job by ID.
func (s *MemoryJobStore) GetJob(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil, fmt.Errorf("job %s not found", id)
	}
	// Copy to prevent external modification.
	jobCopy := *job
	return &jobCopy, nil
}

// UpdateJob replaces an existing job.
func (s *MemoryJobStore) UpdateJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; !exists {
		return fmt.Errorf("job %s not found", job.ID)
	}
	s.jobs[job.ID] = job
	return nil
}

// ListJobs returns jobs matching the filter, newest first.
func (s *MemoryJobStore) ListJobs(filter JobFilter) ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Job
	for _, job := range s.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if !filter.Since.IsZero() && job.CreatedAt.Before(filter.Since) {
			continue
		}
		jobCopy := *job
		result = append(result, &jobCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// DeleteJob removes a job.
func (s *MemoryJobStore) DeleteJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; !exists {
		return fmt.Errorf("job %s not found", id)
	}
	delete(s.jobs, id)
	return nil
}

// CleanupOldJobs removes finished jobs older than the given age.
func (s *MemoryJobStore) CleanupOldJobs(olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	deleted := 0
	for id, job := range s.jobs {
		if job.Status != JobStatusCompleted && job.Status != JobStatusFailed {
			continue
		}
		if job.CreatedAt.Before(cutoff) {
			delete(s.jobs, id)
			deleted++
		}
	}
	return deleted, nil
}
