package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes for conversion and request errors
const (
	// General errors
	ErrCodeInternalError  = "INTERNAL_ERROR"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeConflict       = "CONFLICT"

	// File errors
	ErrCodeInvalidFileType = "INVALID_FILE_TYPE"
	ErrCodeFileNotFound    = "FILE_NOT_FOUND"
	ErrCodeFileTooLarge    = "FILE_TOO_LARGE"
	ErrCodeFileReadError   = "FILE_READ_ERROR"
	ErrCodeEmptyFile       = "EMPTY_FILE"

	// Delimiter errors
	ErrCodeDelimiterNotFound = "DELIMITER_NOT_FOUND"
	ErrCodeInvalidDelimiter  = "INVALID_DELIMITER"

	// Output errors
	ErrCodeSpreadsheetWrite = "SPREADSHEET_WRITE_ERROR"

	// Job errors
	ErrCodeJobNotFound = "JOB_NOT_FOUND"
	ErrCodeJobNotReady = "JOB_NOT_READY"
)

// AppError represents an application error
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field: %s)", msg, e.Field)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error
func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewAppErrorWithField creates a new application error with a field
func NewAppErrorWithField(code, message, field string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Field:      field,
		StatusCode: statusCode,
	}
}

// Wrap attaches an underlying cause to a new application error
func Wrap(err error, code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or
// INTERNAL_ERROR when there is none.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalError
}

// StatusOf returns the HTTP status that best describes err.
func StatusOf(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// Error factory functions
func ErrInternalError(message string) *AppError {
	return NewAppError(ErrCodeInternalError, message, http.StatusInternalServerError)
}

func ErrNotFound(resource string) *AppError {
	return NewAppError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func ErrInvalidRequest(message string) *AppError {
	return NewAppError(ErrCodeInvalidRequest, message, http.StatusBadRequest)
}

func ErrConflict(message string) *AppError {
	return NewAppError(ErrCodeConflict, message, http.StatusConflict)
}

func ErrInvalidFileType(filename string) *AppError {
	return NewAppErrorWithField(ErrCodeInvalidFileType,
		"unsupported file extension, expected .csv, .tsv, .txt, .psv or .dat", filename, http.StatusBadRequest)
}

func ErrFileNotFound(path string) *AppError {
	return NewAppErrorWithField(ErrCodeFileNotFound, "file does not exist", path, http.StatusNotFound)
}

func ErrDelimiterNotFound(filename string) *AppError {
	return NewAppErrorWithField(ErrCodeDelimiterNotFound,
		"no delimiter candidate found in the first lines of the file", filename, http.StatusUnprocessableEntity)
}

func ErrInvalidDelimiter(delim rune) *AppError {
	return NewAppError(ErrCodeInvalidDelimiter,
		fmt.Sprintf("%q cannot be used as a field separator", delim), http.StatusUnprocessableEntity)
}

func ErrJobNotFound(jobID string) *AppError {
	return NewAppErrorWithField(ErrCodeJobNotFound, "conversion job not found", jobID, http.StatusNotFound)
}

func ErrJobNotReady(status string) *AppError {
	return NewAppError(ErrCodeJobNotReady,
		fmt.Sprintf("conversion is %s, output not available yet", status), http.StatusConflict)
}
