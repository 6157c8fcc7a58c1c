package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rohit/sheetconv/internal/domain/models"
	"github.com/rohit/sheetconv/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository()

	job := models.NewJob("users.csv", "/tmp/users.csv")
	require.NoError(t, repo.Create(ctx, job))
	assert.Error(t, repo.Create(ctx, job), "duplicate id must be rejected")

	require.NoError(t, repo.SetStarted(ctx, job.ID))
	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusProcessing, got.Status)
	assert.NotNil(t, got.StartedAt)

	require.NoError(t, repo.SetCompleted(ctx, job.ID, models.ConversionOutcome{
		OutputPath:  "/tmp/out/users.xlsx",
		Delimiter:   ";",
		Charset:     "UTF-8",
		TotalRows:   10,
		SkippedRows: 1,
	}))
	got, err = repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, ";", *got.Delimiter)
	assert.Equal(t, "/tmp/out/users.xlsx", *got.OutputPath)
	assert.Equal(t, 10, got.TotalRows)
	assert.Equal(t, 1, got.SkippedRows)
	assert.True(t, got.Status.IsTerminal())
}

func TestJobRepository_SetFailed(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository()

	job := models.NewJob("notes.txt", "/tmp/notes.txt")
	require.NoError(t, repo.Create(ctx, job))
	require.NoError(t, repo.SetFailed(ctx, job.ID, "DELIMITER_NOT_FOUND", "no delimiter"))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Equal(t, "DELIMITER_NOT_FOUND", *got.ErrorCode)
	assert.NotNil(t, got.CompletedAt)
}

func TestJobRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository()

	got, err := repo.GetByID(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.GetByIdempotencyKey(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, repo.SetStarted(ctx, uuid.New()), repository.ErrJobNotFound)
	assert.ErrorIs(t, repo.SetFailed(ctx, uuid.New(), "X", "y"), repository.ErrJobNotFound)
}

func TestJobRepository_IdempotencyKey(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository()

	key := uuid.NewString()
	job := models.NewJob("a.csv", "a.csv")
	job.IdempotencyKey = &key
	require.NoError(t, repo.Create(ctx, job))

	got, err := repo.GetByIdempotencyKey(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.ID, got.ID)

	again := models.NewJob("b.csv", "b.csv")
	again.IdempotencyKey = &key
	assert.ErrorIs(t, repo.Create(ctx, again), repository.ErrDuplicateJob)
	assert.ErrorIs(t, repo.Create(ctx, job), repository.ErrDuplicateJob, "same id")
}

func TestJobRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		job := models.NewJob("f.csv", "f.csv")
		job.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, job))
	}

	jobs, err := repo.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.True(t, jobs[0].CreatedAt.After(jobs[1].CreatedAt))
	assert.True(t, jobs[1].CreatedAt.After(jobs[2].CreatedAt))
}

func TestJobRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository()

	job := models.NewJob("a.csv", "a.csv")
	require.NoError(t, repo.Create(ctx, job))

	got, _ := repo.GetByID(ctx, job.ID)
	got.Status = models.JobStatusFailed

	again, _ := repo.GetByID(ctx, job.ID)
	assert.Equal(t, models.JobStatusPending, again.Status)
}
