package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// BatchRunner runs a set of formats over one input directory.
// *ExtractionService implements it.
type BatchRunner interface {
	RunAll(ctx context.Context, exts []string, inputDir string) ([]*RunContext, error)
}

// Scheduler triggers batch runs on a cron expression. Runs never overlap: a
// tick that fires while the previous batch is still working is skipped.
type Scheduler struct {
	cron     *cron.Cron
	runner   BatchRunner
	formats  []string
	inputDir string
	logger   *slog.Logger

	mu      sync.Mutex // guards entry, hasJob and ctx
	entry   cron.EntryID
	hasJob  bool
	ctx     context.Context
	running sync.Mutex // held for the duration of a batch
}

// NewScheduler creates a Scheduler that runs formats over inputDir.
func NewScheduler(runner BatchRunner, formats []string, inputDir string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cronLogger{logger}))),
		runner:   runner,
		formats:  formats,
		inputDir: inputDir,
		logger:   logger,
		ctx:      context.Background(),
	}
}

// parseCronExpr tries 6-field (with seconds) then 5-field (standard) parsing.
// If timezone is non-empty and non-UTC, it is applied via the CRON_TZ= prefix.
func parseCronExpr(expr string, timezone string) (cron.Schedule, error) {
	if timezone != "" && timezone != "UTC" {
		expr = "CRON_TZ=" + timezone + " " + expr
	}
	parser6 := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser6.Parse(expr)
	if err == nil {
		return sched, nil
	}
	parser5 := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser5.Parse(expr)
}

// Schedule registers the batch under expr, replacing any earlier schedule.
func (s *Scheduler) Schedule(expr, timezone string) error {
	sched, err := parseCronExpr(expr, timezone)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasJob {
		s.cron.Remove(s.entry)
	}
	s.entry = s.cron.Schedule(sched, cron.FuncJob(func() {
		s.RunOnce(s.runContext())
	}))
	s.hasJob = true

	s.logger.Info("scheduler: registered cron job",
		"cron", expr, "timezone", timezone, "formats", s.formats, "input_dir", s.inputDir)
	return nil
}

// Start begins firing scheduled runs. Runs inherit ctx, so cancelling it
// aborts a batch in flight.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
	s.logger.Info("scheduler: started", "next", s.Next())
}

// Stop halts the scheduler. The returned context is done once a running
// batch has returned.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("scheduler: stopping")
	return s.cron.Stop()
}

// Next reports the next scheduled run, or the zero time when nothing is
// scheduled or the scheduler is not started.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasJob {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// RunOnce runs the batch now unless one is already running, in which case
// it reports false and does nothing.
func (s *Scheduler) RunOnce(ctx context.Context) (bool, error) {
	if !s.running.TryLock() {
		s.logger.Warn("scheduler: previous batch still running, skipping tick")
		return false, nil
	}
	defer s.running.Unlock()

	start := time.Now()
	runs, err := s.runner.RunAll(ctx, s.formats, s.inputDir)
	if err != nil {
		s.logger.Error("scheduler: batch finished with errors",
			"runs", len(runs), "duration", time.Since(start), "err", err)
		return true, err
	}
	s.logger.Info("scheduler: batch completed", "runs", len(runs), "duration", time.Since(start))
	return true, nil
}

func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// cronLogger routes cron's internal messages to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
