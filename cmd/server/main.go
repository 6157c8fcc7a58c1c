package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rohit/sheetconv/internal/api"
	"github.com/rohit/sheetconv/internal/api/handlers"
	"github.com/rohit/sheetconv/internal/config"
	"github.com/rohit/sheetconv/internal/metrics"
	"github.com/rohit/sheetconv/internal/repository"
	"github.com/rohit/sheetconv/internal/repository/memory"
	"github.com/rohit/sheetconv/internal/repository/postgres"
	convertservice "github.com/rohit/sheetconv/internal/service/convert"
	"github.com/rohit/sheetconv/internal/worker"
	"github.com/rohit/sheetconv/pkg/logger"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.Convert.EnsureDirs(); err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare directories")
	}

	metricsCollector := metrics.NewCollector(prometheus.DefaultRegisterer)

	// Jobs live in postgres when a database is configured, in memory otherwise
	var (
		jobRepo repository.JobRepository
		pinger  handlers.Pinger
	)
	if cfg.Database.Enabled() {
		db, err := postgres.NewConnection(cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()

		jobRepo = postgres.NewJobRepository(db)
		pinger = db
		log.Info().Str("host", cfg.Database.Host).Msg("Using postgres job store")
	} else {
		jobRepo = memory.NewJobRepository()
		log.Warn().Msg("DB_HOST not set, conversion jobs are kept in memory")
	}

	convertSvc := convertservice.NewService(
		jobRepo,
		metricsCollector,
		log,
		cfg.Convert,
	)

	workerPool := worker.NewPool(
		convertSvc,
		metricsCollector,
		log,
		cfg.Worker,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	workerPool.Start(ctx)

	router := api.NewRouter(
		pinger,
		convertSvc,
		workerPool,
		metricsCollector,
		log,
		cfg,
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router.Engine(),
		ReadTimeout:  time.Duration(cfg.App.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.App.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.App.IdleTimeout) * time.Second,
	}

	go func() {
		log.Info().
			Int("port", cfg.App.Port).
			Str("env", cfg.App.Env).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop accepting uploads before the workers go away
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	cancel()
	workerPool.Stop()

	log.Info().Msg("Server exited")
}
