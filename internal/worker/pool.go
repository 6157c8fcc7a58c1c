package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rohit/sheetconv/internal/config"
	"github.com/rohit/sheetconv/internal/domain/models"
	"github.com/rohit/sheetconv/internal/metrics"
	convertservice "github.com/rohit/sheetconv/internal/service/convert"
	"github.com/rs/zerolog"
)

// ErrQueueFull is returned by Submit when no more jobs can be buffered
var ErrQueueFull = errors.New("conversion job queue is full")

// ErrNotRunning is returned by Submit after the pool has been stopped
var ErrNotRunning = errors.New("worker pool is not running")

// Processor runs a single conversion job
type Processor interface {
	ProcessJob(ctx context.Context, job *models.Job) (*convertservice.Result, error)
}

// ConversionJob is a queued conversion
type ConversionJob struct {
	Job     *models.Job
	Cleanup func()
}

// QueueStats describes the state of the queue
type QueueStats struct {
	Queued   int `json:"queued"`
	Capacity int `json:"capacity"`
	Workers  int `json:"workers"`
}

// Pool manages a pool of workers for processing conversion jobs
type Pool struct {
	jobs      chan *ConversionJob
	wg        sync.WaitGroup
	quit      chan struct{}
	logger    zerolog.Logger
	processor Processor
	metrics   *metrics.Collector
	cfg       config.WorkerConfig
	mu        sync.Mutex
	running   bool
	stopped   bool
}

// NewPool creates a new worker pool
func NewPool(
	processor Processor,
	metricsCollector *metrics.Collector,
	logger zerolog.Logger,
	cfg config.WorkerConfig,
) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	return &Pool{
		jobs:      make(chan *ConversionJob, cfg.QueueSize),
		quit:      make(chan struct{}),
		logger:    logger,
		processor: processor,
		metrics:   metricsCollector,
		cfg:       cfg,
	}
}

// Start starts the worker pool
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running || p.stopped {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	p.logger.Info().
		Int("workers", p.cfg.Workers).
		Int("queue_size", p.cfg.QueueSize).
		Msg("Worker pool started")
}

// Stop gracefully stops the worker pool. Jobs still queued are not run.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.stopped = true
	p.mu.Unlock()

	close(p.quit)
	p.wg.Wait()
	p.logger.Info().Msg("Worker pool stopped")
}

// Submit queues a job without blocking. cleanup, if non-nil, runs once the
// job has been processed.
func (p *Pool) Submit(job *models.Job, cleanup func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrNotRunning
	}

	select {
	case p.jobs <- &ConversionJob{Job: job, Cleanup: cleanup}:
		p.updateQueueSize()
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	logger := p.logger.With().Int("worker_id", id).Logger()
	logger.Debug().Msg("Conversion worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("Conversion worker stopping (context cancelled)")
			return
		case <-p.quit:
			logger.Debug().Msg("Conversion worker stopping")
			return
		case job := <-p.jobs:
			p.updateQueueSize()
			p.process(ctx, job, logger)
		}
	}
}

func (p *Pool) process(ctx context.Context, cj *ConversionJob, logger zerolog.Logger) {
	job := cj.Job
	startTime := time.Now()

	if cj.Cleanup != nil {
		defer cj.Cleanup()
	}

	logger = logger.With().Str("job_id", job.ID.String()).Str("file", job.SourceName).Logger()
	logger.Info().Msg("Processing conversion job")

	if _, err := p.processor.ProcessJob(ctx, job); err != nil {
		// Job status is already updated by the service
		logger.Warn().Err(err).Msg("Conversion job failed")
	}

	if !job.Status.IsTerminal() {
		logger.Error().
			Str("status", string(job.Status)).
			Int64("duration_ms", time.Since(startTime).Milliseconds()).
			Msg("Conversion job left unfinished")
		return
	}

	logger.Info().
		Str("status", string(job.Status)).
		Int64("duration_ms", time.Since(startTime).Milliseconds()).
		Msg("Conversion job finished")
}

func (p *Pool) updateQueueSize() {
	if p.metrics != nil {
		p.metrics.SetQueueSize(len(p.jobs))
	}
}

// QueueStats returns current queue statistics
func (p *Pool) QueueStats() QueueStats {
	return QueueStats{
		Queued:   len(p.jobs),
		Capacity: cap(p.jobs),
		Workers:  p.cfg.Workers,
	}
}
