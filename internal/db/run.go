package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/soochol/doctext/internal/doctext"
)

// CreateRun stores a run summary.
func (d *DB) CreateRun(ctx context.Context, r *doctext.RunRecord) error {
	failedJSON, _ := json.Marshal(r.FailedFiles)

	_, err := d.Pool.ExecContext(ctx,
		`INSERT INTO runs (id, format, run_date, input_dir, successes, failures, failed_files, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, string(r.Format), r.RunDate, r.InputDir,
		r.Successes, r.Failures, failedJSON,
		r.StartedAt, r.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun retrieves a run summary by ID.
func (d *DB) GetRun(ctx context.Context, id string) (*doctext.RunRecord, error) {
	row := d.Pool.QueryRowContext(ctx,
		`SELECT id, format, run_date, input_dir, successes, failures, failed_files, started_at, completed_at
		 FROM runs WHERE id = $1`, id,
	)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRunsByFormat returns the most recent runs of a format, newest first.
func (d *DB) ListRunsByFormat(ctx context.Context, format doctext.Format, limit int) ([]*doctext.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT id, format, run_date, input_dir, successes, failures, failed_files, started_at, completed_at
		 FROM runs WHERE format = $1 ORDER BY started_at DESC LIMIT $2`,
		string(format), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var result []*doctext.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*doctext.RunRecord, error) {
	r := &doctext.RunRecord{}
	var format string
	var failedJSON []byte
	if err := s.Scan(&r.ID, &format, &r.RunDate, &r.InputDir,
		&r.Successes, &r.Failures, &failedJSON,
		&r.StartedAt, &r.CompletedAt,
	); err != nil {
		return nil, err
	}
	r.Format = doctext.Format(format)
	json.Unmarshal(failedJSON, &r.FailedFiles)
	return r, nil
}
