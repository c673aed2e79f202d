package db

import (
	"context"
	"database/sql"
	"fmt"
)

// DB wraps a database/sql connection pool for PostgreSQL.
type DB struct {
	Pool *sql.DB
}

// New creates a new database connection.
// The caller must import a PostgreSQL driver (e.g., _ "github.com/lib/pq").
func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pool.SetMaxOpenConns(10)
	pool.SetMaxIdleConns(2)

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the connection pool.
func (d *DB) Close() error {
	return d.Pool.Close()
}

// Migrate runs the database schema migrations.
func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.Pool.ExecContext(ctx, migrationSQL)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

const migrationSQL = `
CREATE TABLE IF NOT EXISTS artifacts (
    key         TEXT PRIMARY KEY,
    kind        TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS extracted_text (
    artifact_key TEXT NOT NULL REFERENCES artifacts(key) ON DELETE CASCADE,
    filename     TEXT NOT NULL,
    text         TEXT NOT NULL,
    PRIMARY KEY (artifact_key, filename)
);

CREATE TABLE IF NOT EXISTS pdf_pages (
    artifact_key TEXT NOT NULL REFERENCES artifacts(key) ON DELETE CASCADE,
    filename     TEXT NOT NULL,
    page         INTEGER NOT NULL,
    text         TEXT NOT NULL,
    PRIMARY KEY (artifact_key, filename, page)
);

CREATE TABLE IF NOT EXISTS runs (
    id           TEXT PRIMARY KEY,
    format       TEXT NOT NULL,
    run_date     DATE NOT NULL,
    input_dir    TEXT NOT NULL DEFAULT '',
    successes    INTEGER NOT NULL DEFAULT 0,
    failures     INTEGER NOT NULL DEFAULT 0,
    failed_files JSONB NOT NULL DEFAULT '[]',
    started_at   TIMESTAMPTZ NOT NULL,
    completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_runs_format_date ON runs(format, run_date);
`
