package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultPath)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
input_dir: /data/in
formats: [pdf, eml]
workers: 4
converter:
  executable: /opt/convert.sh
  args: ["--quiet"]
  output_dir: /data/converted
  timeout: 45s
store:
  driver: postgres
  persist_results: true
  retry:
    max_retries: 5
    initial_delay: 1s
database:
  url: "postgres://localhost/doctext?sslmode=disable"
reports:
  dir: /data/reports
  mapping_dir: /data/mappings
  workbook: true
scheduler:
  cron: "0 30 1 * * *"
  timezone: Asia/Seoul
log:
  level: debug
  format: json
`
	cfg, err := Load(writeConfig(t, t.TempDir(), content))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.InputDir != "/data/in" {
		t.Errorf("InputDir = %q, want %q", cfg.InputDir, "/data/in")
	}
	if len(cfg.Formats) != 2 || cfg.Formats[0] != "pdf" || cfg.Formats[1] != "eml" {
		t.Errorf("Formats = %v, want [pdf eml]", cfg.Formats)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.Converter.Executable != "/opt/convert.sh" || len(cfg.Converter.Args) != 1 {
		t.Errorf("Converter = %+v", cfg.Converter)
	}
	if cfg.Converter.Timeout != 45*time.Second {
		t.Errorf("Converter.Timeout = %v, want 45s", cfg.Converter.Timeout)
	}
	if cfg.Converter.ArtifactExt != "csv" {
		t.Errorf("Converter.ArtifactExt = %q, want default %q", cfg.Converter.ArtifactExt, "csv")
	}
	if cfg.Store.Driver != "postgres" || !cfg.Store.PersistResults {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Store.Retry.MaxRetries != 5 || cfg.Store.Retry.InitialDelay != time.Second {
		t.Errorf("Store.Retry = %+v", cfg.Store.Retry)
	}
	if cfg.Store.Retry.BackoffFactor != 2.0 {
		t.Errorf("Store.Retry.BackoffFactor = %v, want default 2.0", cfg.Store.Retry.BackoffFactor)
	}
	if cfg.Database.URL != "postgres://localhost/doctext?sslmode=disable" {
		t.Errorf("Database.URL = %q", cfg.Database.URL)
	}
	if !cfg.Reports.Workbook || cfg.Reports.MappingDir != "/data/mappings" {
		t.Errorf("Reports = %+v", cfg.Reports)
	}
	if cfg.Scheduler.Cron != "0 30 1 * * *" || cfg.Scheduler.Timezone != "Asia/Seoul" {
		t.Errorf("Scheduler = %+v", cfg.Scheduler)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() returned error: %v", err)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/doctext.yaml")
	if err == nil {
		t.Fatal("Load() should return error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	badYAML := "store:\n\t- not valid\n  driver: oops"
	if _, err := Load(writeConfig(t, t.TempDir(), badYAML)); err == nil {
		t.Fatal("Load() should return error for invalid YAML")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	content := "converter:\n  timeout: soon\n"
	if _, err := Load(writeConfig(t, t.TempDir(), content)); err == nil {
		t.Fatal("Load() should return error for an invalid duration")
	}
}

func TestLoad_PartialConfig(t *testing.T) {
	content := `
workers: 3
`
	cfg, err := Load(writeConfig(t, t.TempDir(), content))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want 3", cfg.Workers)
	}
	// Everything else should retain the defaults since we unmarshal onto defaults.
	if cfg.HeaderTrim != 6 {
		t.Errorf("HeaderTrim = %d, want 6 (default)", cfg.HeaderTrim)
	}
	if cfg.Store.Driver != "bolt" {
		t.Errorf("Store.Driver = %q, want %q (default)", cfg.Store.Driver, "bolt")
	}
	if cfg.Converter.Timeout != 20*time.Second {
		t.Errorf("Converter.Timeout = %v, want 20s (default)", cfg.Converter.Timeout)
	}
	if len(cfg.Formats) != 6 {
		t.Errorf("Formats = %v, want all six formats", cfg.Formats)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DOCTEXT_INPUT_DIR", "/env/in")
	t.Setenv("DOCTEXT_STORE_DRIVER", "local")
	t.Setenv("DOCTEXT_STORE_PATH", "/env/store")
	t.Setenv("DOCTEXT_DATABASE_URL", "postgres://env/db")
	t.Setenv("DOCTEXT_LOG_LEVEL", "warn")
	t.Setenv("DOCTEXT_WORKERS", "8")

	cfg, err := Load(writeConfig(t, t.TempDir(), "input_dir: /file/in\nworkers: 2\n"))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.InputDir != "/env/in" {
		t.Errorf("InputDir = %q, want %q", cfg.InputDir, "/env/in")
	}
	if cfg.Store.Driver != "local" || cfg.Store.Path != "/env/store" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if cfg.Database.URL != "postgres://env/db" {
		t.Errorf("Database.URL = %q", cfg.Database.URL)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "warn")
	}
	if cfg.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Workers)
	}
}

func TestLoad_EnvWorkersInvalid(t *testing.T) {
	t.Setenv("DOCTEXT_WORKERS", "many")
	if _, err := Load(writeConfig(t, t.TempDir(), "workers: 2\n")); err == nil {
		t.Fatal("Load() should reject a non-numeric DOCTEXT_WORKERS")
	}
}

func TestLoadDefault_NoFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() returned error: %v", err)
	}
	if cfg.InputDir != "data/in" {
		t.Errorf("InputDir = %q, want %q", cfg.InputDir, "data/in")
	}
	if cfg.Store.Driver != "bolt" || cfg.Store.Path != "data/doctext.db" {
		t.Errorf("Store = %+v", cfg.Store)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got: %v", err)
	}
}

func TestLoadDefault_WithFileAndEnvFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "input_dir: /yaml/in\n")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DOCTEXT_DATABASE_URL=postgres://dotenv/db\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	// t.Setenv restores the variable after the test; godotenv does not
	// overwrite values that are already set, so clear it first.
	t.Setenv("DOCTEXT_DATABASE_URL", "")
	os.Unsetenv("DOCTEXT_DATABASE_URL")

	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() returned error: %v", err)
	}
	if cfg.InputDir != "/yaml/in" {
		t.Errorf("InputDir = %q, want %q", cfg.InputDir, "/yaml/in")
	}
	if cfg.Database.URL != "postgres://dotenv/db" {
		t.Errorf("Database.URL = %q, want value from .env", cfg.Database.URL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"missing input dir", func(c *Config) { c.InputDir = "" }, "input_dir"},
		{"unknown format", func(c *Config) { c.Formats = []string{"pdf", "xlsx"} }, "xlsx"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"negative header trim", func(c *Config) { c.HeaderTrim = -1 }, "header_trim"},
		{"postgres without url", func(c *Config) { c.Store.Driver = "postgres" }, "database.url"},
		{"bolt without path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "s3" }, "s3"},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() returned error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
