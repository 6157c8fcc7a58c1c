package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rohit/sheetconv/internal/domain/models"
)

// IdempotencyKeyHeader is the request header carrying the key
const IdempotencyKeyHeader = "Idempotency-Key"

// IdempotencyKeyContextKey is where the validated key is stored on the gin
// context
const IdempotencyKeyContextKey = "idempotency_key"

// JobFinder looks up the job created with an idempotency key
type JobFinder interface {
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Job, error)
}

// Idempotency returns a gin middleware for handling idempotent requests. A
// POST repeating a known key is answered with the original job.
func Idempotency(finder JobFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only check POST requests
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
		if idempotencyKey == "" {
			c.Next()
			return
		}

		if _, err := uuid.Parse(idempotencyKey); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "invalid idempotency key format",
				"code":  "INVALID_REQUEST",
				"field": IdempotencyKeyHeader,
			})
			return
		}

		existing, err := finder.FindByIdempotencyKey(c.Request.Context(), idempotencyKey)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "failed to check idempotency key",
				"code":  "INTERNAL_ERROR",
			})
			return
		}

		if existing != nil {
			self := fmt.Sprintf("/v1/conversions/%s", existing.ID.String())
			c.AbortWithStatusJSON(http.StatusOK, gin.H{
				"job_id":            existing.ID.String(),
				"status":            string(existing.Status),
				"source_name":       existing.SourceName,
				"created_at":        existing.CreatedAt.Format(time.RFC3339),
				"already_submitted": true,
				"links":             gin.H{"self": self},
			})
			return
		}

		c.Set(IdempotencyKeyContextKey, idempotencyKey)
		c.Next()
	}
}
