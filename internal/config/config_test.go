package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "etc", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RefreshCron != "0 * * * *" || cfg.Source != SourceSheets {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("perm want=0600 got=%o", perm)
	}
}

func TestLoad_NormalizesPartialFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := "source: xlsx\nworkbook_path: ./festivals.xlsx\nimage:\n  concurrency: 3\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source != SourceWorkbook || cfg.WorkbookPath != "./festivals.xlsx" {
		t.Fatalf("unexpected source: %+v", cfg)
	}
	if cfg.Image.Concurrency != 3 || cfg.Image.TimeoutSeconds != 10 {
		t.Fatalf("unexpected image config: %+v", cfg.Image)
	}
	if cfg.OutputDir != "./public" || cfg.Site.Title == "" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if err := cfg.Validate(); !errors.Is(err, ErrSpreadsheetIDMissing) {
		t.Fatalf("want ErrSpreadsheetIDMissing, got %v", err)
	}

	cfg.SpreadsheetID = "sheet-id"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	bad := *cfg
	bad.RefreshCron = "every hour"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected cron error")
	}

	bad = *cfg
	bad.Timezone = "Mars/Olympus"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected timezone error")
	}

	bad = *cfg
	bad.Source = "csv"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected source error")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		EnvSpreadsheetID: "from-env",
		EnvFacebookToken: "fb-token",
		EnvGoogleAPIKey:  "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	cfg.APIKey = "from-yaml"
	cfg.ApplyEnv(lookup)

	if cfg.SpreadsheetID != "from-env" || cfg.Image.FacebookToken != "fb-token" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.APIKey != "from-yaml" {
		t.Fatalf("empty env value must not override, got %q", cfg.APIKey)
	}
	if cfg.SheetURL() != "https://docs.google.com/spreadsheets/d/from-env" {
		t.Fatalf("unexpected sheet url %q", cfg.SheetURL())
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing .env must be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("IMPROVFEST_TEST_VALUE=hello\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("IMPROVFEST_TEST_VALUE", "")
	os.Unsetenv("IMPROVFEST_TEST_VALUE")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got := os.Getenv("IMPROVFEST_TEST_VALUE"); got != "hello" {
		t.Fatalf("want hello, got %q", got)
	}
}
