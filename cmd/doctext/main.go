package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/soochol/doctext/internal/config"
	"github.com/soochol/doctext/internal/scan"
)

const version = "v0.1.0"

const usage = `Usage:
  doctext run [-config file] [ext...]   run the given (or configured) formats once
  doctext schedule [-config file]       run on the configured cron expression
  doctext types <dir>                   list the file extensions present in dir
  doctext version`

func main() {
	if len(os.Args) < 2 {
		fmt.Println("doctext " + version)
		fmt.Println(usage)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(ctx, os.Args[2:])
	case "schedule":
		err = scheduleCmd(ctx, os.Args[2:])
	case "types":
		err = typesCmd(os.Stdout, os.Args[2:])
	case "version":
		fmt.Println("doctext " + version)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("doctext failed", "cmd", os.Args[1], "err", err)
		stop()
		os.Exit(1)
	}
}

func runCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file (default "+config.DefaultPath+")")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	if fs.NArg() > 0 {
		cfg.Formats = fs.Args()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := newLogger(os.Stderr, cfg.Log)
	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	runs, err := app.extraction.RunAll(ctx, cfg.Formats, cfg.InputDir)
	for _, r := range runs {
		s := r.Session.Summary()
		fmt.Printf("%-5s successes=%d failures=%d run=%s\n", s.Format, s.Successes, s.Failures, r.ID)
	}
	return err
}

func scheduleCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file (default "+config.DefaultPath+")")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := newLogger(os.Stderr, cfg.Log)
	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	sched := app.scheduler(cfg)
	if err := sched.Schedule(cfg.Scheduler.Cron, cfg.Scheduler.Timezone); err != nil {
		return err
	}
	sched.Start(ctx)
	<-ctx.Done()
	<-sched.Stop().Done()
	logger.Info("scheduler: stopped")
	return nil
}

func typesCmd(w io.Writer, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: doctext types <dir>")
	}
	counts, err := scan.Extensions(args[0])
	if err != nil {
		return err
	}
	for _, ext := range scan.SortedExtensions(counts) {
		fmt.Fprintf(w, "%s\t%d\n", ext, counts[ext])
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadDefault()
	}
	if err := config.LoadEnvFile(".env"); err != nil {
		return nil, err
	}
	return config.Load(path)
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var logger *slog.Logger
	if cfg.Format == "json" {
		logger = slog.New(slog.NewJSONHandler(w, opts))
	} else {
		logger = slog.New(slog.NewTextHandler(w, opts))
	}
	slog.SetDefault(logger)
	return logger
}
