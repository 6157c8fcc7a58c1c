package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rohit/sheetconv/internal/api/middleware"
	"github.com/rohit/sheetconv/internal/config"
	apperrors "github.com/rohit/sheetconv/internal/domain/errors"
	"github.com/rohit/sheetconv/internal/domain/models"
	convertservice "github.com/rohit/sheetconv/internal/service/convert"
	"github.com/rohit/sheetconv/internal/service/convert/parsers"
	"github.com/rohit/sheetconv/internal/sniff"
	"github.com/rohit/sheetconv/internal/spreadsheet"
	"github.com/rohit/sheetconv/internal/worker"
	"github.com/rs/zerolog"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	defaultPreviewRows = 20
	maxPreviewRows     = 1000
)

// ConversionHandler handles conversion-related HTTP requests
type ConversionHandler struct {
	convertSvc *convertservice.Service
	workerPool *worker.Pool
	logger     zerolog.Logger
	config     config.ConvertConfig
}

// NewConversionHandler creates a new conversion handler
func NewConversionHandler(
	convertSvc *convertservice.Service,
	workerPool *worker.Pool,
	logger zerolog.Logger,
	cfg config.ConvertConfig,
) *ConversionHandler {
	return &ConversionHandler{
		convertSvc: convertSvc,
		workerPool: workerPool,
		logger:     logger,
		config:     cfg,
	}
}

// Links represents HATEOAS links
type Links struct {
	Self     string `json:"self"`
	Download string `json:"download,omitempty"`
	Preview  string `json:"preview,omitempty"`
}

// ConversionResponse is returned when a conversion is accepted
type ConversionResponse struct {
	JobID      string `json:"job_id"`
	Status     string `json:"status"`
	SourceName string `json:"source_name"`
	CreatedAt  string `json:"created_at"`
	Links      Links  `json:"links"`
}

// JobStatusResponse describes a conversion job
type JobStatusResponse struct {
	JobID           string  `json:"job_id"`
	Status          string  `json:"status"`
	SourceName      string  `json:"source_name"`
	Delimiter       *string `json:"delimiter,omitempty"`
	DelimiterName   string  `json:"delimiter_name,omitempty"`
	Charset         *string `json:"charset,omitempty"`
	TotalRows       int     `json:"total_rows"`
	SkippedRows     int     `json:"skipped_rows"`
	ErrorCode       *string `json:"error_code,omitempty"`
	ErrorMessage    *string `json:"error_message,omitempty"`
	CreatedAt       string  `json:"created_at"`
	StartedAt       *string `json:"started_at,omitempty"`
	CompletedAt     *string `json:"completed_at,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	RowsPerSecond   float64 `json:"rows_per_second,omitempty"`
	Links           Links   `json:"links"`
}

// JobListResponse lists recent conversion jobs
type JobListResponse struct {
	Jobs  []JobStatusResponse `json:"jobs"`
	Count int                 `json:"count"`
}

// CandidateResponse is one candidate delimiter of a sniffed sample
type CandidateResponse struct {
	Char  string `json:"char"`
	Name  string `json:"name"`
	Count int    `json:"count"`
	First int    `json:"first_offset"`
}

// PreviewResponse holds the first rows of a converted workbook
type PreviewResponse struct {
	JobID     string     `json:"job_id"`
	Rows      [][]string `json:"rows"`
	Count     int        `json:"count"`
	TotalRows int        `json:"total_rows"`
	Truncated bool       `json:"truncated"`
}

// SniffResponse reports the delimiter inferred from a sample
type SniffResponse struct {
	Found         bool                `json:"found"`
	Delimiter     string              `json:"delimiter,omitempty"`
	DelimiterName string              `json:"delimiter_name,omitempty"`
	Usable        bool                `json:"usable"`
	Charset       string              `json:"charset"`
	SampleLines   int                 `json:"sample_lines"`
	Candidates    []CandidateResponse `json:"candidates"`
}

func links(job *models.Job) Links {
	l := Links{Self: fmt.Sprintf("/v1/conversions/%s", job.ID.String())}
	if job.Status == models.JobStatusCompleted {
		l.Download = fmt.Sprintf("/v1/conversions/%s/download", job.ID.String())
		l.Preview = fmt.Sprintf("/v1/conversions/%s/preview", job.ID.String())
	}
	return l
}

func toConversionResponse(job *models.Job) ConversionResponse {
	return ConversionResponse{
		JobID:      job.ID.String(),
		Status:     string(job.Status),
		SourceName: job.SourceName,
		CreatedAt:  job.CreatedAt.Format(time.RFC3339),
		Links:      links(job),
	}
}

func toJobStatusResponse(job *models.Job) JobStatusResponse {
	response := JobStatusResponse{
		JobID:        job.ID.String(),
		Status:       string(job.Status),
		SourceName:   job.SourceName,
		Delimiter:    job.Delimiter,
		Charset:      job.Charset,
		TotalRows:    job.TotalRows,
		SkippedRows:  job.SkippedRows,
		ErrorCode:    job.ErrorCode,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt.Format(time.RFC3339),
		Links:        links(job),
	}

	if job.Delimiter != nil {
		if r := []rune(*job.Delimiter); len(r) == 1 {
			response.DelimiterName = sniff.Name(r[0])
		}
	}

	if job.StartedAt != nil {
		startedAt := job.StartedAt.Format(time.RFC3339)
		response.StartedAt = &startedAt

		if job.CompletedAt != nil {
			completedAt := job.CompletedAt.Format(time.RFC3339)
			response.CompletedAt = &completedAt
			response.DurationSeconds = job.Duration().Seconds()
		} else {
			response.DurationSeconds = job.UpdatedAt.Sub(*job.StartedAt).Seconds()
		}

		if response.DurationSeconds > 0 {
			response.RowsPerSecond = float64(job.TotalRows) / response.DurationSeconds
		}
	}

	return response
}

// CreateConversion handles POST /v1/conversions
func (h *ConversionHandler) CreateConversion(c *gin.Context) {
	ctx := c.Request.Context()

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, h.logger, apperrors.NewAppErrorWithField(apperrors.ErrCodeInvalidRequest, "file is required", "file", http.StatusBadRequest))
		return
	}
	defer file.Close()

	if limit := h.config.MaxFileSize(); limit > 0 && header.Size > limit {
		respondError(c, h.logger, apperrors.NewAppError(apperrors.ErrCodeFileTooLarge,
			fmt.Sprintf("file too large, max %dMB", h.config.MaxFileSizeMB), http.StatusRequestEntityTooLarge))
		return
	}

	var delimiter *string
	if d := c.PostForm("delimiter"); d != "" {
		if _, ok := parsers.ParseDelimiter(d); !ok {
			respondError(c, h.logger, apperrors.NewAppErrorWithField(apperrors.ErrCodeInvalidDelimiter,
				fmt.Sprintf("unusable delimiter %q", d), "delimiter", http.StatusBadRequest))
			return
		}
		delimiter = &d
	}

	var idempotencyKey *string
	if key := c.GetString(middleware.IdempotencyKeyContextKey); key != "" {
		idempotencyKey = &key
	}

	filePath, err := h.convertSvc.SaveUpload(file, header.Filename)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	job, err := h.convertSvc.CreateJob(ctx, header.Filename, filePath, delimiter, idempotencyKey)
	if err != nil {
		os.Remove(filePath)
		respondError(c, h.logger, err)
		return
	}

	// The worker owns job once it is queued
	response := toConversionResponse(job)

	cleanup := func() {
		os.Remove(filePath)
	}
	if err := h.workerPool.Submit(job, cleanup); err != nil {
		cleanup()
		h.logger.Warn().Err(err).Str("job_id", job.ID.String()).Msg("Failed to queue conversion job")
		// FailJob hands back the cause it was given and logs store errors itself
		_ = h.convertSvc.FailJob(ctx, job, apperrors.NewAppError(apperrors.ErrCodeInternalError, err.Error(), http.StatusServiceUnavailable))
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: err.Error(),
			Code:  apperrors.ErrCodeInternalError,
		})
		return
	}

	c.JSON(http.StatusAccepted, response)
}

// ListConversions handles GET /v1/conversions
func (h *ConversionHandler) ListConversions(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}

	jobs, err := h.convertSvc.ListJobs(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	response := JobListResponse{Jobs: make([]JobStatusResponse, 0, len(jobs))}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, toJobStatusResponse(job))
	}
	response.Count = len(response.Jobs)

	c.JSON(http.StatusOK, response)
}

func (h *ConversionHandler) lookupJob(c *gin.Context) (*models.Job, bool) {
	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		respondError(c, h.logger, apperrors.NewAppErrorWithField(apperrors.ErrCodeInvalidRequest, "invalid job_id", "job_id", http.StatusBadRequest))
		return nil, false
	}

	job, err := h.convertSvc.GetJob(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, h.logger, err)
		return nil, false
	}
	return job, true
}

// GetConversion handles GET /v1/conversions/:job_id
func (h *ConversionHandler) GetConversion(c *gin.Context) {
	job, ok := h.lookupJob(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toJobStatusResponse(job))
}

// DownloadConversion handles GET /v1/conversions/:job_id/download
func (h *ConversionHandler) DownloadConversion(c *gin.Context) {
	job, ok := h.lookupJob(c)
	if !ok {
		return
	}

	output, ok := h.completedOutput(c, job)
	if !ok {
		return
	}

	c.Header("Content-Type", xlsxContentType)
	c.FileAttachment(output, parsers.OutputName(job.SourceName))
}

// PreviewConversion handles GET /v1/conversions/:job_id/preview
func (h *ConversionHandler) PreviewConversion(c *gin.Context) {
	job, ok := h.lookupJob(c)
	if !ok {
		return
	}

	limit := defaultPreviewRows
	if v := c.Query("rows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(c, h.logger, apperrors.NewAppErrorWithField(apperrors.ErrCodeInvalidRequest, "rows must be a positive integer", "rows", http.StatusBadRequest))
			return
		}
		limit = min(n, maxPreviewRows)
	}

	output, ok := h.completedOutput(c, job)
	if !ok {
		return
	}

	rows, more, err := spreadsheet.ReadRowsLimit(output, limit)
	if err != nil {
		respondError(c, h.logger, apperrors.Wrap(err, apperrors.ErrCodeSpreadsheetWrite, "failed to read converted file", http.StatusInternalServerError))
		return
	}
	if rows == nil {
		rows = [][]string{}
	}

	c.JSON(http.StatusOK, PreviewResponse{
		JobID:     job.ID.String(),
		Rows:      rows,
		Count:     len(rows),
		TotalRows: job.TotalRows,
		Truncated: more,
	})
}

// completedOutput returns the workbook of a completed job. Otherwise it
// writes the error response and returns false.
func (h *ConversionHandler) completedOutput(c *gin.Context, job *models.Job) (string, bool) {
	if !job.Status.IsTerminal() {
		respondError(c, h.logger, apperrors.ErrJobNotReady(string(job.Status)))
		return "", false
	}
	if job.Status != models.JobStatusCompleted || job.OutputPath == nil {
		msg := "conversion failed, no workbook was written"
		if job.ErrorMessage != nil {
			msg = fmt.Sprintf("conversion failed: %s", *job.ErrorMessage)
		}
		respondError(c, h.logger, apperrors.ErrConflict(msg))
		return "", false
	}

	if _, err := os.Stat(*job.OutputPath); os.IsNotExist(err) {
		respondError(c, h.logger, apperrors.ErrNotFound("converted file"))
		return "", false
	}
	return *job.OutputPath, true
}

// Sniff handles POST /v1/sniff. The sample is taken from the multipart field
// "file" when present, otherwise from the raw request body.
func (h *ConversionHandler) Sniff(c *gin.Context) {
	lines := h.config.SampleLines
	if v := c.Query("lines"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(c, h.logger, apperrors.NewAppErrorWithField(apperrors.ErrCodeInvalidRequest, "lines must be a positive integer", "lines", http.StatusBadRequest))
			return
		}
		lines = n
	}

	var body io.Reader = c.Request.Body
	if c.ContentType() == "multipart/form-data" {
		file, _, err := c.Request.FormFile("file")
		if errors.Is(err, http.ErrMissingFile) {
			respondError(c, h.logger, apperrors.NewAppErrorWithField(apperrors.ErrCodeInvalidRequest, "file is required", "file", http.StatusBadRequest))
			return
		}
		if err != nil {
			respondError(c, h.logger, apperrors.Wrap(err, apperrors.ErrCodeInvalidRequest, "invalid multipart body", http.StatusBadRequest))
			return
		}
		defer file.Close()
		body = file
	}
	if limit := h.config.MaxFileSize(); limit > 0 {
		body = io.LimitReader(body, limit)
	}

	report, err := h.convertSvc.Sniff(body, lines)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	response := SniffResponse{
		Found:       report.Found,
		Charset:     report.Charset,
		SampleLines: lines,
		Candidates:  make([]CandidateResponse, 0, len(report.Candidates)),
	}
	if report.Found {
		response.Delimiter = string(report.Delimiter)
		response.DelimiterName = sniff.Name(report.Delimiter)
		response.Usable = parsers.ValidDelimiter(report.Delimiter)
	}
	for _, cand := range report.Candidates {
		response.Candidates = append(response.Candidates, CandidateResponse{
			Char:  string(cand.Char),
			Name:  sniff.Name(cand.Char),
			Count: cand.Count,
			First: cand.First,
		})
	}

	c.JSON(http.StatusOK, response)
}
