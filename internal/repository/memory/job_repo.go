// Package memory keeps conversion jobs in process memory. It backs the
// service when no database is configured and the CLI, which has no use for
// durable job history.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rohit/sheetconv/internal/domain/models"
	"github.com/rohit/sheetconv/internal/repository"
)

// JobRepository implements repository.JobRepository in memory
type JobRepository struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*models.Job
}

// NewJobRepository creates an empty JobRepository
func NewJobRepository() *JobRepository {
	return &JobRepository{jobs: make(map[uuid.UUID]*models.Job)}
}

// Create stores a new job
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	job.UpdatedAt = time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.ID]; exists {
		return fmt.Errorf("%w: id %s", repository.ErrDuplicateJob, job.ID)
	}
	if job.IdempotencyKey != nil {
		for _, other := range r.jobs {
			if other.IdempotencyKey != nil && *other.IdempotencyKey == *job.IdempotencyKey {
				return fmt.Errorf("%w: idempotency key %s", repository.ErrDuplicateJob, *job.IdempotencyKey)
			}
		}
	}
	r.jobs[job.ID] = clone(job)
	return nil
}

// GetByID retrieves a job by ID
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	return clone(job), nil
}

// GetByIdempotencyKey retrieves a job by idempotency key
func (r *JobRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, job := range r.jobs {
		if job.IdempotencyKey != nil && *job.IdempotencyKey == key {
			return clone(job), nil
		}
	}
	return nil, nil
}

// SetStarted marks the job as processing
func (r *JobRepository) SetStarted(ctx context.Context, id uuid.UUID) error {
	return r.modify(id, func(job *models.Job, now time.Time) {
		job.Status = models.JobStatusProcessing
		job.StartedAt = &now
	})
}

// SetCompleted marks the job as completed with its outcome
func (r *JobRepository) SetCompleted(ctx context.Context, id uuid.UUID, outcome models.ConversionOutcome) error {
	return r.modify(id, func(job *models.Job, now time.Time) {
		job.Status = models.JobStatusCompleted
		job.Apply(outcome)
		job.CompletedAt = &now
	})
}

// SetFailed marks the job as failed
func (r *JobRepository) SetFailed(ctx context.Context, id uuid.UUID, errorCode, errorMessage string) error {
	return r.modify(id, func(job *models.Job, now time.Time) {
		job.Status = models.JobStatusFailed
		job.ErrorCode = &errorCode
		job.ErrorMessage = &errorMessage
		job.CompletedAt = &now
	})
}

// List returns the most recently created jobs first
func (r *JobRepository) List(ctx context.Context, limit int) ([]*models.Job, error) {
	if limit < 1 {
		limit = 50
	}

	r.mu.RLock()
	jobs := make([]*models.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, clone(job))
	}
	r.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (r *JobRepository) modify(id uuid.UUID, fn func(job *models.Job, now time.Time)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", repository.ErrJobNotFound, id)
	}
	now := time.Now().UTC()
	fn(job, now)
	job.UpdatedAt = now
	return nil
}

// clone copies the job so callers never share memory with the store
func clone(job *models.Job) *models.Job {
	c := *job
	return &c
}
