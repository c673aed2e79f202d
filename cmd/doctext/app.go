package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soochol/doctext/internal/config"
	"github.com/soochol/doctext/internal/convert"
	"github.com/soochol/doctext/internal/db"
	"github.com/soochol/doctext/internal/services"
	"github.com/soochol/doctext/internal/storage"
)

// app holds the wired services for one command.
type app struct {
	store      storage.ResultStore
	extraction *services.ExtractionService
	logger     *slog.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	var (
		store    storage.ResultStore
		recorder services.RunRecorder
	)
	if cfg.Store.Driver == "postgres" {
		database, err := db.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("using postgres result store")
		store, recorder = database, database
	} else {
		s, err := storage.Open(cfg.Store.Driver, cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("using result store", "driver", cfg.Store.Driver, "path", cfg.Store.Path)
		store = s
	}

	// A nil converter makes doc runs fail cleanly instead of invoking nothing.
	var conv convert.Converter
	if cfg.Converter.Executable != "" {
		conv = &convert.ScriptConverter{
			Executable: cfg.Converter.Executable,
			Args:       cfg.Converter.Args,
			Output:     cfg.Converter.OutputDir,
			Logger:     logger,
		}
	}

	svc := services.NewExtractionService(store, conv, logger, services.Options{
		Workers:        cfg.Workers,
		HeaderTrim:     cfg.HeaderTrim,
		ConvertTimeout: cfg.Converter.Timeout,
		ArtifactExt:    cfg.Converter.ArtifactExt,
		ReportDir:      cfg.Reports.Dir,
		MappingDir:     cfg.Reports.MappingDir,
		PersistResults: cfg.Store.PersistResults,
		Workbook:       cfg.Reports.Workbook,
		Retry: services.RetryPolicy{
			MaxRetries:    cfg.Store.Retry.MaxRetries,
			InitialDelay:  cfg.Store.Retry.InitialDelay,
			MaxDelay:      cfg.Store.Retry.MaxDelay,
			BackoffFactor: cfg.Store.Retry.BackoffFactor,
		},
	})
	if recorder != nil {
		svc.SetRunRecorder(recorder)
	}
	return &app{store: store, extraction: svc, logger: logger}, nil
}

func (a *app) scheduler(cfg *config.Config) *services.Scheduler {
	return services.NewScheduler(a.extraction, cfg.Formats, cfg.InputDir, a.logger)
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing result store", "err", err)
	}
}
