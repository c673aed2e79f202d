// Package session drives one decoder over an enumerated file set for a single
// format run and accumulates the outcome.
//
// Every attempted file ends up either in the result mapping or in the failed
// file list. The one exception is a pdf with some failing pages: its text
// from the good pages is kept as a success and the file is also recorded as
// failed.
package session

import (
	"cmp"
	"context"
	"errors"
	"iter"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/soochol/doctext/internal/doctext"
	"github.com/soochol/doctext/internal/extract"
)

// Session owns the results of one format run.
type Session struct {
	format  doctext.Format
	logger  *slog.Logger
	workers int

	mu        sync.Mutex
	results   map[string]string
	pages     map[string]doctext.PageIndex
	failed    []string
	failedSet map[string]struct{}
	failures  []*doctext.Failure
	successes int
	errors    int
}

// Option configures a Session.
type Option func(*Session)

// WithWorkers sets how many files are decoded at once. Values below 2 keep
// the run sequential.
func WithWorkers(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.workers = n
		}
	}
}

// New creates an empty session for format. A nil logger uses slog.Default.
func New(format doctext.Format, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		format:    format,
		logger:    logger,
		workers:   1,
		results:   make(map[string]string),
		pages:     make(map[string]doctext.PageIndex),
		failedSet: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run decodes every path yielded by files with dec. File level errors are
// accounted and never stop the run; the only error returned is the
// context's, when it is cancelled before the sequence is exhausted.
func (s *Session) Run(ctx context.Context, files iter.Seq[string], dec extract.Decoder) error {
	s.logger.Info("run started", "format", s.format, "workers", s.workers)

	if s.workers <= 1 {
		for path := range files {
			if ctx.Err() != nil {
				break
			}
			s.process(ctx, dec, path)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(s.workers)
		for path := range files {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				s.process(ctx, dec, path)
				return nil
			})
		}
		_ = g.Wait() // failures are accounted, not returned
	}

	if err := ctx.Err(); err != nil {
		s.logger.Warn("run cancelled", "format", s.format, "error", err)
		return err
	}
	s.logger.Info("run completed",
		"format", s.format,
		"successes", s.SuccessCount(),
		"failures", s.ErrorCount(),
	)
	return nil
}

func (s *Session) process(ctx context.Context, dec extract.Decoder, path string) {
	name := filepath.Base(path)
	out, err := dec.Decode(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return
		}
		s.fail(doctext.NewFailure(name, -1, err))
		return
	}
	if out.Filename == "" {
		out.Filename = name
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[out.Filename] = out.Text
	s.successes++
	if out.Pages != nil {
		s.pages[out.Filename] = doctext.PageIndex{File: out.Filename, Pages: out.Pages}
	}
	for _, pe := range out.PageErrors {
		s.failLocked(doctext.NewFailure(out.Filename, pe.Page, pe.Err))
	}
}

func (s *Session) fail(f *doctext.Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLocked(f)
}

// failLocked records f. A file is counted as failed at most once however
// many of its pages fail.
func (s *Session) failLocked(f *doctext.Failure) {
	s.failures = append(s.failures, f)
	if f.Page >= 0 {
		s.logger.Error("page failed", "format", s.format, "file", f.File, "page", f.Page, "kind", f.Kind, "error", f.Err)
	} else {
		s.logger.Error("decode failed", "format", s.format, "file", f.File, "kind", f.Kind, "error", f.Err)
	}
	if _, seen := s.failedSet[f.File]; seen {
		return
	}
	s.failedSet[f.File] = struct{}{}
	s.failed = append(s.failed, f.File)
	s.errors++
}

// Format returns the format this session decodes.
func (s *Session) Format() doctext.Format { return s.format }

// Results returns a copy of the filename to normalized text mapping.
func (s *Session) Results() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.results))
	for k, v := range s.results {
		out[k] = v
	}
	return out
}

// FailedFiles returns failed filenames in the order they first failed.
func (s *Session) FailedFiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.failed)
}

// Failures returns every recorded failure, including one per failed pdf page.
func (s *Session) Failures() []*doctext.Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.failures)
}

// PageIndexes returns the per-page text of every decoded pdf, sorted by file.
func (s *Session) PageIndexes() []doctext.PageIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]doctext.PageIndex, 0, len(s.pages))
	for _, p := range s.pages {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b doctext.PageIndex) int {
		return cmp.Compare(a.File, b.File)
	})
	return out
}

func (s *Session) SuccessCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.successes
}

func (s *Session) ErrorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors
}

// Summary is a point-in-time snapshot of a session's counters.
type Summary struct {
	Format      doctext.Format `json:"format"`
	Successes   int            `json:"successes"`
	Failures    int            `json:"failures"`
	FailedFiles []string       `json:"failed_files"`
}

func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		Format:      s.format,
		Successes:   s.successes,
		Failures:    s.errors,
		FailedFiles: slices.Clone(s.failed),
	}
}
