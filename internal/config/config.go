package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/soochol/doctext/internal/doctext"
)

// DefaultPath is the configuration file LoadDefault looks for.
const DefaultPath = "doctext.yaml"

// Config holds the top-level application configuration.
type Config struct {
	InputDir   string          `yaml:"input_dir"`
	Formats    []string        `yaml:"formats"`
	Workers    int             `yaml:"workers"`     // files decoded at once per run (default: 1)
	HeaderTrim int             `yaml:"header_trim"` // runes dropped from converted text (default: 6)
	Converter  ConverterConfig `yaml:"converter"`
	Store      StoreConfig     `yaml:"store"`
	Database   DatabaseConfig  `yaml:"database"`
	Reports    ReportsConfig   `yaml:"reports"`
	Scheduler  SchedulerConfig `yaml:"scheduler"`
	Log        LogConfig       `yaml:"log"`
}

// ConverterConfig holds settings for the external legacy document converter.
type ConverterConfig struct {
	Executable  string        `yaml:"executable"`
	Args        []string      `yaml:"args"`
	OutputDir   string        `yaml:"output_dir"`
	Timeout     time.Duration `yaml:"timeout"`
	ArtifactExt string        `yaml:"artifact_ext"`
}

// StoreConfig selects where results are persisted.
type StoreConfig struct {
	Driver         string      `yaml:"driver"` // bolt, local or postgres
	Path           string      `yaml:"path"`
	PersistResults bool        `yaml:"persist_results"`
	Retry          RetryConfig `yaml:"retry"`
}

// RetryConfig holds backoff settings for store writes.
type RetryConfig struct {
	MaxRetries    int           `yaml:"max_retries"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// ReportsConfig holds output locations for reports.
type ReportsConfig struct {
	Dir        string `yaml:"dir"`
	MappingDir string `yaml:"mapping_dir"`
	Workbook   bool   `yaml:"workbook"`
}

// SchedulerConfig holds settings for scheduled runs.
type SchedulerConfig struct {
	Cron     string `yaml:"cron"`
	Timezone string `yaml:"timezone"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	return &Config{
		InputDir:   "data/in",
		Formats:    []string{"doc", "docx", "eml", "pdf", "rtf", "txt"},
		Workers:    1,
		HeaderTrim: 6,
		Converter: ConverterConfig{
			OutputDir:   "data/converted",
			Timeout:     20 * time.Second,
			ArtifactExt: "csv",
		},
		Store: StoreConfig{
			Driver: "bolt",
			Path:   "data/doctext.db",
			Retry: RetryConfig{
				MaxRetries:    3,
				InitialDelay:  500 * time.Millisecond,
				MaxDelay:      10 * time.Second,
				BackoffFactor: 2.0,
			},
		},
		Reports: ReportsConfig{
			Dir: "data/reports",
		},
		Scheduler: SchedulerConfig{
			Cron: "0 0 2 * * *",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML configuration file at path and returns a Config.
// DOCTEXT_* environment variables override the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads an optional .env file, then tries DefaultPath in the
// current directory. If the file does not exist, it returns defaults with
// environment overrides applied.
// Any other error (e.g. permission denied, malformed YAML) is returned.
func LoadDefault() (*Config, error) {
	if err := LoadEnvFile(".env"); err != nil {
		return nil, err
	}
	cfg, err := Load(DefaultPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = defaults()
			if err := cfg.applyEnv(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile exports the variables in path without overwriting ones already
// set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DOCTEXT_INPUT_DIR"); v != "" {
		c.InputDir = v
	}
	if v := os.Getenv("DOCTEXT_STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("DOCTEXT_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("DOCTEXT_DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("DOCTEXT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("DOCTEXT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DOCTEXT_WORKERS: %w", err)
		}
		c.Workers = n
	}
	return nil
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	var errs []error
	if c.InputDir == "" {
		errs = append(errs, errors.New("input_dir is required"))
	}
	for _, f := range c.Formats {
		if _, err := doctext.ParseFormat(f); err != nil {
			errs = append(errs, fmt.Errorf("formats: %w", err))
		}
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.HeaderTrim < 0 {
		errs = append(errs, fmt.Errorf("header_trim must not be negative, got %d", c.HeaderTrim))
	}
	switch c.Store.Driver {
	case "bolt", "local":
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path is required for driver %q", c.Store.Driver))
		}
	case "postgres":
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for driver \"postgres\""))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
