package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/rohit/sheetconv/internal/domain/errors"
	"github.com/rs/zerolog"
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// respondError writes err as JSON. Errors without an application code are
// logged and reported as internal errors.
func respondError(c *gin.Context, logger zerolog.Logger, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  apperrors.ErrCodeInternalError,
		})
		return
	}

	status := apperrors.StatusOf(appErr)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	c.JSON(status, ErrorResponse{
		Error: appErr.Message,
		Code:  appErr.Code,
		Field: appErr.Field,
	})
}
