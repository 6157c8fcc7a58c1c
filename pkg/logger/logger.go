package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New creates a new logger instance writing to stdout
func New() zerolog.Logger {
	return NewWithWriter(os.Stdout, os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
}

// NewWithWriter creates a logger for the given environment and level
func NewWithWriter(w io.Writer, env, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if env == "production" {
		// Use JSON format in production
		return zerolog.New(w).
			Level(lvl).
			With().
			Timestamp().
			Caller().
			Logger()
	}

	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// WithRequestID returns a logger with request ID
func WithRequestID(logger zerolog.Logger, requestID string) zerolog.Logger {
	return logger.With().Str("request_id", requestID).Logger()
}

// WithJobID returns a logger with job ID
func WithJobID(logger zerolog.Logger, jobID string) zerolog.Logger {
	return logger.With().Str("job_id", jobID).Logger()
}

// WithFile returns a logger with the source file name
func WithFile(logger zerolog.Logger, file string) zerolog.Logger {
	return logger.With().Str("file", file).Logger()
}
