package convertservice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rohit/sheetconv/internal/config"
	apperrors "github.com/rohit/sheetconv/internal/domain/errors"
	"github.com/rohit/sheetconv/internal/domain/models"
	"github.com/rohit/sheetconv/internal/metrics"
	"github.com/rohit/sheetconv/internal/repository"
	"github.com/rohit/sheetconv/internal/service/convert/parsers"
	"github.com/rohit/sheetconv/internal/sniff"
	"github.com/rohit/sheetconv/internal/spreadsheet"
	"github.com/rohit/sheetconv/pkg/logger"
	"github.com/rs/zerolog"
)

// ContextCheckInterval is how often (in rows) a conversion checks for
// cancellation.
var ContextCheckInterval = 1000

// Options controls a single conversion
type Options struct {
	// OutputDir receives the workbook; defaults to the configured output path
	OutputDir string
	// SampleLines is how many leading lines are sniffed; defaults to config
	SampleLines int
	// SheetName overrides the sheet name derived from the file name
	SheetName string
	// Delimiter skips sniffing when non-zero
	Delimiter rune
	// OutputName is the workbook file name inside OutputDir; defaults to the
	// source name with an .xlsx extension
	OutputName string
}

// Result describes a finished conversion
type Result struct {
	Source    string
	Output    string
	Sheet     string
	Delimiter rune
	Sniffed   bool
	Charset   string
	Rows      int
	Skipped   int
	Duration  time.Duration
}

// SniffReport is the outcome of sniffing a sample without converting
type SniffReport struct {
	Sample  string
	Charset string
	sniff.Result
}

// Service handles conversion operations
type Service struct {
	jobRepo repository.JobRepository
	metrics *metrics.Collector
	logger  zerolog.Logger
	config  config.ConvertConfig
}

// NewService creates a new conversion service. metricsCollector may be nil.
func NewService(
	jobRepo repository.JobRepository,
	metricsCollector *metrics.Collector,
	logger zerolog.Logger,
	cfg config.ConvertConfig,
) *Service {
	return &Service{
		jobRepo: jobRepo,
		metrics: metricsCollector,
		logger:  logger,
		config:  cfg,
	}
}

// ConvertFile converts the delimited text file at path into a workbook
func (s *Service) ConvertFile(ctx context.Context, path string, opts Options) (result *Result, err error) {
	startTime := time.Now()
	log := logger.WithFile(s.logger, filepath.Base(path))

	if s.metrics != nil {
		s.metrics.RecordConversionStarted()
		defer func() {
			rows, skipped := 0, 0
			if result != nil {
				rows, skipped = result.Rows, result.Skipped
			}
			s.metrics.RecordConversionCompleted(apperrors.CodeOf(err), rows, skipped, time.Since(startTime).Seconds())
		}()
	}

	if err := validateSource(path); err != nil {
		log.Warn().Err(err).Msg("Skipping file")
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeFileReadError, "failed to open file", http.StatusInternalServerError)
	}
	defer file.Close()

	decoded, charset, err := parsers.NewDecodingReader(file)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeFileReadError, "failed to read file", http.StatusInternalServerError)
	}
	br := bufio.NewReader(decoded)

	sampleLines := opts.SampleLines
	if sampleLines < 1 {
		sampleLines = s.config.SampleLines
	}
	sample, err := parsers.ReadSample(br, sampleLines)
	if errors.Is(err, parsers.ErrEmptySample) {
		appErr := apperrors.NewAppErrorWithField(apperrors.ErrCodeEmptyFile, "file is empty", filepath.Base(path), http.StatusUnprocessableEntity)
		log.Warn().Msg("File is empty, nothing to convert")
		return nil, appErr
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeFileReadError, "failed to read sample", http.StatusInternalServerError)
	}

	delim, sniffed, err := s.resolveDelimiter(sample, opts.Delimiter, filepath.Base(path))
	if err != nil {
		log.Warn().Err(err).Msg("Cannot determine delimiter, file not converted")
		return nil, err
	}

	outDir := opts.OutputDir
	if outDir == "" {
		outDir = s.config.OutputPath
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSpreadsheetWrite, "failed to create output directory", http.StatusInternalServerError)
	}
	outName := filepath.Base(opts.OutputName)
	if opts.OutputName == "" {
		outName = parsers.OutputName(path)
	}
	outPath := filepath.Join(outDir, outName)

	sheetName := opts.SheetName
	if sheetName == "" {
		sheetName = s.config.SheetName
	}
	if sheetName == "" {
		sheetName = spreadsheet.SheetNameFor(path)
	}

	reader, err := parsers.NewDelimitedReader(io.MultiReader(strings.NewReader(sample), br), delim)
	if err != nil {
		return nil, apperrors.ErrInvalidDelimiter(delim)
	}

	wb, err := spreadsheet.NewWorkbook(outPath, sheetName)
	if err != nil {
		log.Error().Err(err).Msg("Conversion failed")
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSpreadsheetWrite, "failed to create workbook", http.StatusInternalServerError)
	}

	rows, err := s.writeWorkbook(ctx, reader, wb)
	if err != nil {
		log.Error().Err(err).Msg("Conversion failed")
		return nil, err
	}
	sheet, skipped := wb.Sheet(), reader.Skipped()

	result = &Result{
		Source:    path,
		Output:    outPath,
		Sheet:     sheet,
		Delimiter: delim,
		Sniffed:   sniffed,
		Charset:   charset,
		Rows:      rows,
		Skipped:   skipped,
		Duration:  time.Since(startTime),
	}

	log.Info().
		Str("delimiter", sniff.Name(delim)).
		Bool("sniffed", sniffed).
		Str("charset", charset).
		Int("rows", rows).
		Int("skipped", skipped).
		Str("output", outPath).
		Int64("duration_ms", result.Duration.Milliseconds()).
		Msg("File converted")

	return result, nil
}

// resolveDelimiter returns the override when given, otherwise the delimiter
// inferred from sample
func (s *Service) resolveDelimiter(sample string, override rune, name string) (rune, bool, error) {
	if override != 0 {
		if !parsers.ValidDelimiter(override) {
			return 0, false, apperrors.ErrInvalidDelimiter(override)
		}
		return override, false, nil
	}

	delim, ok := sniff.InferDelimiter(sample)
	if !ok {
		return 0, false, apperrors.ErrDelimiterNotFound(name)
	}
	if !parsers.ValidDelimiter(delim) {
		return 0, false, apperrors.ErrInvalidDelimiter(delim)
	}
	if s.metrics != nil {
		s.metrics.RecordDelimiter(delim)
	}
	return delim, true, nil
}

// writeWorkbook copies every record of reader into w and returns the number
// of rows written. w is closed on success and aborted otherwise.
func (s *Service) writeWorkbook(ctx context.Context, reader *parsers.DelimitedReader, w spreadsheet.Writer) (int, error) {
	err := reader.ReadAll(func(row int, record []string) error {
		if row%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("conversion cancelled at row %d: %w", row, err)
			}
		}
		return w.WriteRow(record)
	})
	if err != nil {
		w.Abort()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, err
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return 0, err
		}
		return 0, apperrors.Wrap(err, apperrors.ErrCodeSpreadsheetWrite, "failed to write rows", http.StatusInternalServerError)
	}

	if err := w.Close(); err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeSpreadsheetWrite, "failed to save workbook", http.StatusInternalServerError)
	}

	return w.Rows(), nil
}

// validateSource checks the extension and existence of a candidate file
func validateSource(path string) error {
	name := filepath.Base(path)
	if !parsers.DetectFormat(name).IsSupported() {
		return apperrors.ErrInvalidFileType(name)
	}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return apperrors.ErrFileNotFound(path)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeFileReadError, "failed to stat file", http.StatusInternalServerError)
	}
	if info.IsDir() {
		return apperrors.NewAppErrorWithField(apperrors.ErrCodeInvalidFileType, "path is a directory", name, http.StatusBadRequest)
	}
	return nil
}

// ProcessJob runs the conversion described by job and records its outcome
func (s *Service) ProcessJob(ctx context.Context, job *models.Job) (*Result, error) {
	return s.runJob(ctx, job, Options{})
}

func (s *Service) runJob(ctx context.Context, job *models.Job, opts Options) (*Result, error) {
	log := logger.WithFile(logger.WithJobID(s.logger, job.ID.String()), job.SourceName)

	if err := s.jobRepo.SetStarted(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("failed to update job status: %w", err)
	}
	now := time.Now().UTC()
	job.Status = models.JobStatusProcessing
	job.StartedAt = &now

	if job.DelimiterOverride != nil {
		d, ok := parsers.ParseDelimiter(*job.DelimiterOverride)
		if !ok {
			return nil, s.FailJob(ctx, job, apperrors.ErrInvalidRequest(fmt.Sprintf("invalid delimiter %q", *job.DelimiterOverride)))
		}
		opts.Delimiter = d
	}

	result, err := s.ConvertFile(ctx, job.SourcePath, opts)
	if err != nil {
		return nil, s.FailJob(ctx, job, err)
	}

	outcome := models.ConversionOutcome{
		OutputPath:  result.Output,
		Delimiter:   string(result.Delimiter),
		Charset:     result.Charset,
		TotalRows:   result.Rows,
		SkippedRows: result.Skipped,
	}
	if err := s.jobRepo.SetCompleted(ctx, job.ID, outcome); err != nil {
		log.Error().Err(err).Msg("Failed to mark job completed")
		return result, fmt.Errorf("failed to update job status: %w", err)
	}

	done := time.Now().UTC()
	job.Status = models.JobStatusCompleted
	job.CompletedAt = &done
	job.Apply(outcome)

	return result, nil
}

// FailJob marks job failed with the code and message of cause, which it returns
func (s *Service) FailJob(ctx context.Context, job *models.Job, cause error) error {
	code := apperrors.CodeOf(cause)
	msg := cause.Error()

	// The job outlives a cancelled request context
	if err := s.jobRepo.SetFailed(context.WithoutCancel(ctx), job.ID, code, msg); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID.String()).Msg("Failed to update job status")
	}

	now := time.Now().UTC()
	job.Status = models.JobStatusFailed
	job.ErrorCode = &code
	job.ErrorMessage = &msg
	job.CompletedAt = &now
	return cause
}

// Sniff reports the delimiter of the content read from r without converting
func (s *Service) Sniff(r io.Reader, sampleLines int) (*SniffReport, error) {
	if sampleLines < 1 {
		sampleLines = s.config.SampleLines
	}

	decoded, charset, err := parsers.NewDecodingReader(r)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeFileReadError, "failed to read input", http.StatusBadRequest)
	}

	sample, err := parsers.ReadSample(bufio.NewReader(decoded), sampleLines)
	if errors.Is(err, parsers.ErrEmptySample) {
		return nil, apperrors.NewAppError(apperrors.ErrCodeEmptyFile, "input is empty", http.StatusUnprocessableEntity)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeFileReadError, "failed to read sample", http.StatusBadRequest)
	}

	res := sniff.Sniff(sample)
	if res.Found && s.metrics != nil {
		s.metrics.RecordDelimiter(res.Delimiter)
	}
	return &SniffReport{Sample: sample, Charset: charset, Result: res}, nil
}

// SaveUpload stores an uploaded file under the upload directory and returns
// its path
func (s *Service) SaveUpload(r io.Reader, filename string) (string, error) {
	name := filepath.Base(filepath.Clean("/" + filename))
	if !parsers.DetectFormat(name).IsSupported() {
		return "", apperrors.ErrInvalidFileType(name)
	}

	if err := os.MkdirAll(s.config.UploadPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	ext := filepath.Ext(name)
	unique := fmt.Sprintf("%s_%s%s", strings.TrimSuffix(name, ext), uuid.NewString()[:8], ext)
	path := filepath.Join(s.config.UploadPath, unique)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	var src io.Reader = r
	limit := s.config.MaxFileSize()
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}

	n, err := io.Copy(dst, src)
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if limit > 0 && n > limit {
		os.Remove(path)
		return "", apperrors.NewAppError(apperrors.ErrCodeFileTooLarge,
			fmt.Sprintf("file too large, max %dMB", s.config.MaxFileSizeMB), http.StatusRequestEntityTooLarge)
	}

	return path, nil
}

// CreateJob registers a pending conversion job for a stored file
func (s *Service) CreateJob(ctx context.Context, sourceName, sourcePath string, delimiter, idempotencyKey *string) (*models.Job, error) {
	job := models.NewJob(sourceName, sourcePath)
	job.DelimiterOverride = delimiter
	job.IdempotencyKey = idempotencyKey

	if err := s.jobRepo.Create(ctx, job); err != nil {
		if errors.Is(err, repository.ErrDuplicateJob) {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeConflict, "a conversion with this idempotency key already exists", http.StatusConflict)
		}
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return job, nil
}

// GetJob returns the job with the given id
func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, apperrors.ErrJobNotFound(id.String())
	}
	return job, nil
}

// FindByIdempotencyKey returns the job created with key, or nil
func (s *Service) FindByIdempotencyKey(ctx context.Context, key string) (*models.Job, error) {
	return s.jobRepo.GetByIdempotencyKey(ctx, key)
}

// ListJobs returns the most recent jobs
func (s *Service) ListJobs(ctx context.Context, limit int) ([]*models.Job, error) {
	return s.jobRepo.List(ctx, limit)
}
