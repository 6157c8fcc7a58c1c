package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rohit/sheetconv/internal/api/handlers"
	"github.com/rohit/sheetconv/internal/api/middleware"
	"github.com/rohit/sheetconv/internal/config"
	"github.com/rohit/sheetconv/internal/metrics"
	convertservice "github.com/rohit/sheetconv/internal/service/convert"
	"github.com/rohit/sheetconv/internal/worker"
	"github.com/rs/zerolog"
)

// Router holds all dependencies for the API router
type Router struct {
	engine *gin.Engine
	logger zerolog.Logger
	cfg    *config.Config
}

// NewRouter creates a new API router. db may be nil when jobs are kept in
// memory, and metricsCollector may be nil to disable HTTP metrics.
func NewRouter(
	db handlers.Pinger,
	convertSvc *convertservice.Service,
	workerPool *worker.Pool,
	metricsCollector *metrics.Collector,
	logger zerolog.Logger,
	cfg *config.Config,
) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Global middleware
	engine.Use(middleware.Recovery(logger))
	engine.Use(middleware.Logger(logger))
	engine.Use(middleware.CORS())

	if metricsCollector != nil {
		engine.Use(middleware.Metrics(metricsCollector))
	}

	// Uploads beyond this are spooled to disk by net/http
	engine.MaxMultipartMemory = 8 << 20

	healthHandler := handlers.NewHealthHandler(db, workerPool)
	conversionHandler := handlers.NewConversionHandler(
		convertSvc,
		workerPool,
		logger,
		cfg.Convert,
	)

	// Health routes (no version prefix)
	engine.GET("/health", healthHandler.Health)
	engine.GET("/ready", healthHandler.Ready)
	engine.GET("/live", healthHandler.Live)

	if cfg.Prometheus.Enabled {
		engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := engine.Group("/v1")
	{
		conversions := v1.Group("/conversions")
		conversions.Use(middleware.Idempotency(convertSvc))
		{
			conversions.POST("", conversionHandler.CreateConversion)
			conversions.GET("", conversionHandler.ListConversions)
			conversions.GET("/:job_id", conversionHandler.GetConversion)
			conversions.GET("/:job_id/download", conversionHandler.DownloadConversion)
			conversions.GET("/:job_id/preview", conversionHandler.PreviewConversion)
		}

		v1.POST("/sniff", conversionHandler.Sniff)
	}

	return &Router{
		engine: engine,
		logger: logger,
		cfg:    cfg,
	}
}

// Engine returns the gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	r.logger.Info().Str("addr", addr).Msg("Starting HTTP server")
	return r.engine.Run(addr)
}
