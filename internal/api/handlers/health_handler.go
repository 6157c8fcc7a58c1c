package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rohit/sheetconv/internal/worker"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db        Pinger
	pool      *worker.Pool
	startTime time.Time
}

// NewHealthHandler creates a new health handler. db is nil when jobs are kept
// in memory.
func NewHealthHandler(db Pinger, pool *worker.Pool) *HealthHandler {
	return &HealthHandler{
		db:        db,
		pool:      pool,
		startTime: time.Now(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string             `json:"status"`
	Timestamp string             `json:"timestamp"`
	Uptime    string             `json:"uptime"`
	Services  ServiceHealth      `json:"services"`
	Queue     *worker.QueueStats `json:"queue,omitempty"`
}

// ServiceHealth represents health of individual services
type ServiceHealth struct {
	Database string `json:"database"`
}

func (h *HealthHandler) databaseStatus(ctx context.Context) string {
	if h.db == nil {
		return "memory"
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		return "down"
	}
	return "up"
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	status := "healthy"
	dbStatus := h.databaseStatus(c.Request.Context())
	if dbStatus == "down" {
		status = "unhealthy"
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).String(),
		Services: ServiceHealth{
			Database: dbStatus,
		},
	}
	if h.pool != nil {
		stats := h.pool.QueueStats()
		response.Queue = &stats
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.databaseStatus(c.Request.Context()) == "down" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Live handles GET /live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}
