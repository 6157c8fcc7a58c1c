package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rohit/sheetconv/internal/domain/models"
	"github.com/rohit/sheetconv/internal/repository"
)

// uniqueViolation is the SQLSTATE of a unique constraint failure
const uniqueViolation = "23505"

const insertJobQuery = `
	INSERT INTO conversion_jobs (
		id, status, source_name, source_path, output_path, delimiter,
		delimiter_override, charset, total_rows, skipped_rows, error_code,
		error_message, idempotency_key, started_at, completed_at, created_at, updated_at
	) VALUES (
		:id, :status, :source_name, :source_path, :output_path, :delimiter,
		:delimiter_override, :charset, :total_rows, :skipped_rows, :error_code,
		:error_message, :idempotency_key, :started_at, :completed_at, :created_at, :updated_at
	)
`

// JobRepository implements repository.JobRepository for PostgreSQL
type JobRepository struct {
	db *DB
}

// NewJobRepository creates a new JobRepository
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	job.UpdatedAt = time.Now().UTC()

	_, err := r.db.NamedExecContext(ctx, insertJobQuery, job)
	return translateError(err)
}

// GetByID retrieves a job by ID
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := r.db.GetContext(ctx, &job, "SELECT * FROM conversion_jobs WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetByIdempotencyKey retrieves a job by idempotency key
func (r *JobRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Job, error) {
	var job models.Job
	err := r.db.GetContext(ctx, &job, "SELECT * FROM conversion_jobs WHERE idempotency_key = $1", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// SetStarted sets the job as started
func (r *JobRepository) SetStarted(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	query := `
		UPDATE conversion_jobs SET status = $2, started_at = $3, updated_at = $3
		WHERE id = $1
	`
	return r.update(ctx, query, id, models.JobStatusProcessing, now)
}

// SetCompleted sets the job as completed
func (r *JobRepository) SetCompleted(ctx context.Context, id uuid.UUID, outcome models.ConversionOutcome) error {
	now := time.Now().UTC()
	query := `
		UPDATE conversion_jobs SET
			status = $2, output_path = $3, delimiter = $4, charset = NULLIF($5, ''),
			total_rows = $6, skipped_rows = $7, completed_at = $8, updated_at = $8
		WHERE id = $1
	`
	return r.update(ctx, query, id, models.JobStatusCompleted,
		outcome.OutputPath, outcome.Delimiter, outcome.Charset,
		outcome.TotalRows, outcome.SkippedRows, now)
}

// SetFailed sets the job as failed
func (r *JobRepository) SetFailed(ctx context.Context, id uuid.UUID, errorCode, errorMessage string) error {
	now := time.Now().UTC()
	query := `
		UPDATE conversion_jobs SET
			status = $2, error_code = $3, error_message = $4, completed_at = $5, updated_at = $5
		WHERE id = $1
	`
	return r.update(ctx, query, id, models.JobStatusFailed, errorCode, errorMessage, now)
}

// List retrieves the most recent jobs
func (r *JobRepository) List(ctx context.Context, limit int) ([]*models.Job, error) {
	if limit < 1 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}

	var jobs []*models.Job
	query := `SELECT * FROM conversion_jobs ORDER BY created_at DESC LIMIT $1`
	err := r.db.SelectContext(ctx, &jobs, query, limit)
	return jobs, err
}

// update runs a single-row UPDATE whose first argument is the job id
func (r *JobRepository) update(ctx context.Context, query string, id uuid.UUID, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, append([]interface{}{id}, args...)...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", repository.ErrJobNotFound, id)
	}
	return nil
}

// translateError maps driver errors onto repository errors
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", repository.ErrDuplicateJob, pqErr.Constraint)
	}
	return err
}
