// Package storage persists run results: the filename to text mapping of a
// format run and, for pdf runs, the per-page index.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/soochol/doctext/internal/doctext"
)

// ErrNotFound is returned when no artifact exists under a key.
var ErrNotFound = errors.New("artifact not found")

// ResultStore is the interface for result persistence backends. Keys are
// built with doctext.ResultsKey and doctext.PageIndexKey. Saving under an
// existing key replaces its contents.
type ResultStore interface {
	// SaveResults stores a filename -> normalized text mapping.
	SaveResults(ctx context.Context, key string, results map[string]string) error
	// LoadResults retrieves a mapping stored by SaveResults.
	LoadResults(ctx context.Context, key string) (map[string]string, error)
	// SavePageIndex stores the per-page text of a pdf run.
	SavePageIndex(ctx context.Context, key string, pages []doctext.PageIndex) error
	// LoadPageIndex retrieves page indexes sorted by file.
	LoadPageIndex(ctx context.Context, key string) ([]doctext.PageIndex, error)
	// List returns every stored key, sorted.
	List(ctx context.Context) ([]string, error)
	Close() error
}

// Open returns the backend named by driver. "postgres" lives in package db
// and is not handled here.
func Open(driver, path string) (ResultStore, error) {
	switch driver {
	case "", "bolt":
		return NewBoltStore(path)
	case "local":
		return NewLocalStore(path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
