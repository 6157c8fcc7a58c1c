package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the status of a conversion job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the job will not change status again
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job represents the conversion of one delimited file into a workbook
type Job struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	Status            JobStatus  `json:"status" db:"status"`
	SourceName        string     `json:"source_name" db:"source_name"`
	SourcePath        string     `json:"-" db:"source_path"`
	OutputPath        *string    `json:"-" db:"output_path"`
	Delimiter         *string    `json:"delimiter,omitempty" db:"delimiter"`
	DelimiterOverride *string    `json:"delimiter_override,omitempty" db:"delimiter_override"`
	Charset           *string    `json:"charset,omitempty" db:"charset"`
	TotalRows         int        `json:"total_rows" db:"total_rows"`
	SkippedRows       int        `json:"skipped_rows" db:"skipped_rows"`
	ErrorCode         *string    `json:"error_code,omitempty" db:"error_code"`
	ErrorMessage      *string    `json:"error_message,omitempty" db:"error_message"`
	IdempotencyKey    *string    `json:"idempotency_key,omitempty" db:"idempotency_key"`
	StartedAt         *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// NewJob creates a pending job for the file at path
func NewJob(sourceName, sourcePath string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:         uuid.New(),
		Status:     JobStatusPending,
		SourceName: sourceName,
		SourcePath: sourcePath,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Duration returns how long the job ran, or zero if it has not finished
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}

// ConversionOutcome is what a finished conversion reports back to the job
type ConversionOutcome struct {
	OutputPath  string
	Delimiter   string
	Charset     string
	TotalRows   int
	SkippedRows int
}

// Apply copies a successful outcome into the job
func (j *Job) Apply(o ConversionOutcome) {
	j.OutputPath = &o.OutputPath
	j.Delimiter = &o.Delimiter
	if o.Charset != "" {
		j.Charset = &o.Charset
	}
	j.TotalRows = o.TotalRows
	j.SkippedRows = o.SkippedRows
}
