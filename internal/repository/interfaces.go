package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rohit/sheetconv/internal/domain/models"
)

var (
	// ErrDuplicateJob is returned by Create when the id or idempotency key
	// is already stored
	ErrDuplicateJob = errors.New("job already exists")
	// ErrJobNotFound is returned when updating a job that is not stored
	ErrJobNotFound = errors.New("job not found")
)

// JobRepository defines operations for conversion job data access.
// Lookups that find nothing return a nil job and a nil error.
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Job, error)
	SetStarted(ctx context.Context, id uuid.UUID) error
	SetCompleted(ctx context.Context, id uuid.UUID, outcome models.ConversionOutcome) error
	SetFailed(ctx context.Context, id uuid.UUID, errorCode, errorMessage string) error
	List(ctx context.Context, limit int) ([]*models.Job, error)
}
