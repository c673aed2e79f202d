package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/soochol/doctext/internal/convert"
	"github.com/soochol/doctext/internal/doctext"
	"github.com/soochol/doctext/internal/extract"
	"github.com/soochol/doctext/internal/metadata"
	"github.com/soochol/doctext/internal/report"
	"github.com/soochol/doctext/internal/scan"
	"github.com/soochol/doctext/internal/session"
	"github.com/soochol/doctext/internal/storage"
)

const (
	// DefaultArtifactExt is the extension of the converter's text artifacts.
	DefaultArtifactExt = "csv"
	// DefaultReportDir receives reports when Options.ReportDir is empty.
	DefaultReportDir = "data/reports"
)

// ErrConversionFailed aborts a doc run when the external converter fails.
var ErrConversionFailed = errors.New("legacy document conversion failed")

// RunRecorder stores run history. *db.DB implements it.
type RunRecorder interface {
	CreateRun(ctx context.Context, r *doctext.RunRecord) error
}

// Options tunes an ExtractionService. Zero values pick the defaults.
type Options struct {
	Workers        int
	HeaderTrim     int
	ConvertTimeout time.Duration
	ArtifactExt    string
	// ReportDir receives failure reports, merged tables and the workbook.
	// Empty means DefaultReportDir.
	ReportDir string
	// MappingDir holds the optional <Title>MappingFile.csv files.
	MappingDir     string
	PersistResults bool
	Workbook       bool
	// Retry governs store writes. The zero policy means DefaultRetryPolicy.
	Retry RetryPolicy
}

// RunContext is everything one format run produced.
type RunContext struct {
	ID          string
	Format      doctext.Format
	RunDate     time.Time
	InputDir    string
	Session     *session.Session
	StartedAt   time.Time
	CompletedAt time.Time
	// FailureReport is the path of the failed file report, if one was written.
	FailureReport string
}

// Record summarizes the run for history and reports.
func (r *RunContext) Record() doctext.RunRecord {
	rec := doctext.RunRecord{
		ID:          r.ID,
		Format:      r.Format,
		RunDate:     r.RunDate,
		InputDir:    r.InputDir,
		Successes:   r.Session.SuccessCount(),
		Failures:    r.Session.ErrorCount(),
		FailedFiles: r.Session.FailedFiles(),
		StartedAt:   r.StartedAt,
	}
	if !r.CompletedAt.IsZero() {
		done := r.CompletedAt
		rec.CompletedAt = &done
	}
	return rec
}

// ExtractionService maps each format to its decoder and runs whole
// directories through it.
type ExtractionService struct {
	decoders  map[doctext.Format]extract.Decoder
	converter convert.Converter
	store     storage.ResultStore
	runs      RunRecorder
	opts      Options
	logger    *slog.Logger
}

// NewExtractionService creates an ExtractionService. store and converter may
// be nil: without a store nothing is persisted, without a converter doc runs
// fail with ErrConversionFailed.
func NewExtractionService(store storage.ResultStore, converter convert.Converter, logger *slog.Logger, opts Options) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.HeaderTrim <= 0 {
		opts.HeaderTrim = extract.DefaultHeaderTrim
	}
	if opts.ConvertTimeout <= 0 {
		opts.ConvertTimeout = convert.DefaultTimeout
	}
	if opts.ArtifactExt == "" {
		opts.ArtifactExt = DefaultArtifactExt
	}
	if opts.ReportDir == "" {
		opts.ReportDir = DefaultReportDir
	}
	if opts.Retry == (RetryPolicy{}) {
		opts.Retry = DefaultRetryPolicy
	}
	return &ExtractionService{
		decoders:  extract.Decoders(extract.Options{HeaderTrim: opts.HeaderTrim}),
		converter: converter,
		store:     store,
		opts:      opts,
		logger:    logger,
	}
}

// SetRunRecorder configures where run history is written.
func (s *ExtractionService) SetRunRecorder(r RunRecorder) {
	s.runs = r
}

// Supported reports whether ext ("pdf" or ".pdf") names a known format.
func (s *ExtractionService) Supported(ext string) bool {
	f, err := doctext.ParseFormat(ext)
	if err != nil {
		return false
	}
	_, ok := s.decoders[f]
	return ok
}

// Run extracts every file of format ext in inputDir. An unsupported ext is
// a logged no-op returning (nil, nil). For doc the converter runs first and
// its artifacts are decoded instead; a conversion failure aborts the run.
//
// A non-nil RunContext can come back together with an error when the
// session finished but its page index or failure report could not be saved.
func (s *ExtractionService) Run(ctx context.Context, ext, inputDir string) (*RunContext, error) {
	format, err := doctext.ParseFormat(ext)
	if err != nil {
		s.logger.Warn("unsupported format, skipping", "ext", ext)
		return nil, nil
	}
	dec, ok := s.decoders[format]
	if !ok {
		s.logger.Warn("no decoder for format, skipping", "format", format)
		return nil, nil
	}

	now := time.Now()
	id := uuid.NewString()
	logger := s.logger.With("run_id", id)
	run := &RunContext{
		ID:        id,
		Format:    format,
		RunDate:   now,
		InputDir:  inputDir,
		StartedAt: now,
		Session:   session.New(format, logger, session.WithWorkers(s.opts.Workers)),
	}

	scanDir, scanExt := inputDir, string(format)
	if format == doctext.FormatDOC {
		if s.converter == nil {
			return nil, fmt.Errorf("%w: no converter configured", ErrConversionFailed)
		}
		logger.Info("converting legacy documents", "input_dir", inputDir, "timeout", s.opts.ConvertTimeout)
		if err := s.converter.Convert(ctx, inputDir, s.opts.ConvertTimeout); err != nil {
			logger.Error("conversion failed", "input_dir", inputDir, "err", err)
			return nil, fmt.Errorf("%w: %w", ErrConversionFailed, err)
		}
		scanDir, scanExt = s.converter.OutputDir(), s.opts.ArtifactExt
	}

	if err := run.Session.Run(ctx, scan.Files(scanDir, scanExt, logger), dec); err != nil {
		return run, err
	}
	run.CompletedAt = time.Now()

	var errs []error
	if format == doctext.FormatPDF && s.store != nil {
		key := doctext.PageIndexKey(format, run.RunDate)
		err := withRetry(ctx, logger, s.opts.Retry, "save page index", func() error {
			return s.store.SavePageIndex(ctx, key, run.Session.PageIndexes())
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("persist page index: %w", err))
		}
	}

	path, err := report.WriteFile(s.opts.ReportDir, report.FailuresName(format, run.RunDate), func(w io.Writer) error {
		return report.WriteFailures(w, format, run.Session.FailedFiles())
	})
	if err != nil {
		errs = append(errs, err)
	} else {
		run.FailureReport = path
	}

	if s.runs != nil {
		rec := run.Record()
		if err := s.runs.CreateRun(ctx, &rec); err != nil {
			logger.Warn("failed to record run", "err", err)
		}
	}

	logger.Info("run totals",
		"format", format,
		"successes", run.Session.SuccessCount(),
		"failures", run.Session.ErrorCount(),
		"report", run.FailureReport)
	return run, errors.Join(errs...)
}

// Persist saves the run's result mapping under "<Title>_<date>".
func (s *ExtractionService) Persist(ctx context.Context, run *RunContext) error {
	if s.store == nil {
		return fmt.Errorf("no result store configured")
	}
	key := doctext.ResultsKey(run.Format, run.RunDate)
	err := withRetry(ctx, s.logger, s.opts.Retry, "save results", func() error {
		return s.store.SaveResults(ctx, key, run.Session.Results())
	})
	if err != nil {
		return fmt.Errorf("persist %s run: %w", run.Format, err)
	}
	s.logger.Info("results persisted", "run_id", run.ID, "key", key)
	return nil
}

// Merge joins the run's results with the format's mapping file and writes
// the merged table. It returns "" when no mapping file exists.
func (s *ExtractionService) Merge(_ context.Context, run *RunContext) (string, error) {
	if s.opts.MappingDir == "" {
		return "", nil
	}
	mappingPath := filepath.Join(s.opts.MappingDir, metadata.MappingName(run.Format))
	if _, err := os.Stat(mappingPath); errors.Is(err, os.ErrNotExist) {
		s.logger.Debug("no mapping file", "path", mappingPath)
		return "", nil
	}
	m, err := metadata.Load(mappingPath)
	if err != nil {
		return "", err
	}
	merged := m.Merge(run.Session.Results())

	path, err := report.WriteFile(s.opts.ReportDir, metadata.MergedName(run.Format, run.RunDate), func(w io.Writer) error {
		return report.WriteMerged(w, merged)
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("merged table written", "run_id", run.ID, "path", path, "rows", len(merged.Rows))
	return path, nil
}

// Workbook writes one spreadsheet covering runs into the report dir.
func (s *ExtractionService) Workbook(runs []*RunContext) (string, error) {
	if len(runs) == 0 {
		return "", fmt.Errorf("no runs to report")
	}
	wb, err := report.NewWorkbook()
	if err != nil {
		return "", err
	}
	defer wb.Close()

	for _, run := range runs {
		if err := wb.AddRun(run.Record(), run.Session.Results()); err != nil {
			return "", fmt.Errorf("add %s run: %w", run.Format, err)
		}
	}
	if err := os.MkdirAll(s.opts.ReportDir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(s.opts.ReportDir, report.WorkbookName(runs[0].RunDate))
	if err := wb.SaveAs(path); err != nil {
		return "", err
	}
	s.logger.Info("workbook written", "path", path, "runs", len(runs))
	return path, nil
}

// RunAll runs each format in turn and applies the configured follow-up
// steps to every run. A failing format does not stop the others; its
// error is joined into the returned error. Cancellation stops at once; a
// run that came back before the stop is still returned.
func (s *ExtractionService) RunAll(ctx context.Context, exts []string, inputDir string) ([]*RunContext, error) {
	var (
		runs []*RunContext
		errs []error
	)
	for _, ext := range exts {
		run, err := s.Run(ctx, ext, inputDir)
		if run != nil {
			runs = append(runs, run)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return runs, ctxErr
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ext, err))
		}
		if run == nil {
			continue
		}

		if s.opts.PersistResults && s.store != nil {
			if err := s.Persist(ctx, run); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", ext, err))
			}
		}
		if _, err := s.Merge(ctx, run); err != nil {
			errs = append(errs, fmt.Errorf("%s: merge: %w", ext, err))
		}
	}

	if s.opts.Workbook && len(runs) > 0 {
		if _, err := s.Workbook(runs); err != nil {
			errs = append(errs, fmt.Errorf("workbook: %w", err))
		}
	}
	return runs, errors.Join(errs...)
}
