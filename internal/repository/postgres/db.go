package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rohit/sheetconv/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversion_jobs (
	id                 UUID PRIMARY KEY,
	status             TEXT NOT NULL,
	source_name        TEXT NOT NULL,
	source_path        TEXT NOT NULL,
	output_path        TEXT,
	delimiter          TEXT,
	delimiter_override TEXT,
	charset            TEXT,
	total_rows         INTEGER NOT NULL DEFAULT 0,
	skipped_rows       INTEGER NOT NULL DEFAULT 0,
	error_code         TEXT,
	error_message      TEXT,
	idempotency_key    TEXT UNIQUE,
	started_at         TIMESTAMPTZ,
	completed_at       TIMESTAMPTZ,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS conversion_jobs_created_at_idx ON conversion_jobs (created_at DESC);
`

// DB wraps sqlx.DB with additional functionality
type DB struct {
	*sqlx.DB
}

// NewConnection creates a new database connection and makes sure the
// conversion_jobs table exists
func NewConnection(cfg config.DatabaseConfig) (*DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &DB{DB: db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// Ping checks that the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}
