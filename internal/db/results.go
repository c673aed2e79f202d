package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/soochol/doctext/internal/doctext"
	"github.com/soochol/doctext/internal/storage"
)

var _ storage.ResultStore = (*DB)(nil)

const (
	kindResults   = "results"
	kindPageIndex = "pages"
)

// resetArtifact registers key and clears any rows a previous save left.
func resetArtifact(ctx context.Context, tx *sql.Tx, key, kind string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM artifacts WHERE key = $1`, key); err != nil {
		return fmt.Errorf("clear artifact: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO artifacts (key, kind) VALUES ($1, $2)`, key, kind); err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

// copyRows bulk loads rows into table with COPY FROM STDIN.
func copyRows(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
	if err != nil {
		return fmt.Errorf("prepare copy %s: %w", table, err)
	}
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			stmt.Close()
			return fmt.Errorf("copy %s: %w", table, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("flush copy %s: %w", table, err)
	}
	return stmt.Close()
}

func (d *DB) save(ctx context.Context, key, kind, table string, columns []string, rows [][]any) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := resetArtifact(ctx, tx, key, kind); err != nil {
		return err
	}
	if len(rows) > 0 {
		if err := copyRows(ctx, tx, table, columns, rows); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) exists(ctx context.Context, key, kind string) error {
	var found string
	err := d.Pool.QueryRowContext(ctx,
		`SELECT key FROM artifacts WHERE key = $1 AND kind = $2`, key, kind,
	).Scan(&found)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get artifact: %w", err)
	}
	return nil
}

// SaveResults replaces the extracted_text rows stored under key.
func (d *DB) SaveResults(ctx context.Context, key string, results map[string]string) error {
	rows := make([][]any, 0, len(results))
	for name, text := range results {
		rows = append(rows, []any{key, name, text})
	}
	if err := d.save(ctx, key, kindResults, "extracted_text", []string{"artifact_key", "filename", "text"}, rows); err != nil {
		return fmt.Errorf("save results %s: %w", key, err)
	}
	return nil
}

func (d *DB) LoadResults(ctx context.Context, key string) (map[string]string, error) {
	if err := d.exists(ctx, key, kindResults); err != nil {
		return nil, err
	}
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT filename, text FROM extracted_text WHERE artifact_key = $1`, key)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, text string
		if err := rows.Scan(&name, &text); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out[name] = text
	}
	return out, rows.Err()
}

// SavePageIndex stores one pdf_pages row per page, failed pages included.
func (d *DB) SavePageIndex(ctx context.Context, key string, pages []doctext.PageIndex) error {
	var rows [][]any
	for _, p := range pages {
		for i, text := range p.Pages {
			rows = append(rows, []any{key, p.File, i, text})
		}
	}
	if err := d.save(ctx, key, kindPageIndex, "pdf_pages", []string{"artifact_key", "filename", "page", "text"}, rows); err != nil {
		return fmt.Errorf("save page index %s: %w", key, err)
	}
	return nil
}

func (d *DB) LoadPageIndex(ctx context.Context, key string) ([]doctext.PageIndex, error) {
	if err := d.exists(ctx, key, kindPageIndex); err != nil {
		return nil, err
	}
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT filename, page, text FROM pdf_pages WHERE artifact_key = $1 ORDER BY filename, page`, key)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var out []doctext.PageIndex
	for rows.Next() {
		var (
			name, text string
			page       int
		)
		if err := rows.Scan(&name, &page, &text); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].File != name {
			out = append(out, doctext.PageIndex{File: name})
		}
		cur := &out[len(out)-1]
		for len(cur.Pages) < page {
			cur.Pages = append(cur.Pages, "")
		}
		cur.Pages = append(cur.Pages, text)
	}
	return out, rows.Err()
}

func (d *DB) List(ctx context.Context) ([]string, error) {
	rows, err := d.Pool.QueryContext(ctx, `SELECT key FROM artifacts ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
