package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/soochol/doctext/internal/doctext"
)

// LocalStore writes each artifact as <key>.json in a directory on the local
// filesystem, one file per run and format.
type LocalStore struct {
	baseDir string
	mu      sync.RWMutex
}

var _ ResultStore = (*LocalStore)(nil)

func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

func (s *LocalStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.baseDir, key+".json"), nil
}

func (s *LocalStore) write(key string, v any) error {
	fullPath, err := s.path(key)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.baseDir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write file: %w", err)
	}
	return os.Rename(tmp.Name(), fullPath)
}

func (s *LocalStore) read(key string, v any) error {
	fullPath, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.RLock()
	data, err := os.ReadFile(fullPath)
	s.mu.RUnlock()
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) SaveResults(_ context.Context, key string, results map[string]string) error {
	if results == nil {
		results = map[string]string{}
	}
	return s.write(key, results)
}

func (s *LocalStore) LoadResults(_ context.Context, key string) (map[string]string, error) {
	var out map[string]string
	if err := s.read(key, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *LocalStore) SavePageIndex(_ context.Context, key string, pages []doctext.PageIndex) error {
	if pages == nil {
		pages = []doctext.PageIndex{}
	}
	return s.write(key, pages)
}

func (s *LocalStore) LoadPageIndex(_ context.Context, key string) ([]doctext.PageIndex, error) {
	var out []doctext.PageIndex
	if err := s.read(key, &out); err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b doctext.PageIndex) int { return strings.Compare(a.File, b.File) })
	return out, nil
}

func (s *LocalStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("list storage dir: %w", err)
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(e.Name(), ".json"))
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *LocalStore) Close() error { return nil }
