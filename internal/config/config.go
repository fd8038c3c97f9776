package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"improvfest/internal/fileutil"
)

// Supported sheet sources.
const (
	SourceSheets   = "sheets"
	SourceWorkbook = "xlsx"
)

// Environment variables that override the YAML file. Secrets normally live
// here (or in a .env file) rather than in config.yaml.
const (
	EnvSpreadsheetID   = "FESTIVALS_GSHEET_ID"
	EnvFacebookToken   = "FACEBOOK_ACCESS_TOKEN"
	EnvGoogleAPIKey    = "GOOGLE_API_KEY"
	EnvCredentialsFile = "GOOGLE_APPLICATION_CREDENTIALS"
)

// ErrSpreadsheetIDMissing is returned by Validate when the sheets source is
// selected without a spreadsheet ID.
var ErrSpreadsheetIDMissing = errors.New("config: spreadsheet_id is not configured (set " + EnvSpreadsheetID + ")")

// ImageConfig controls preview image scraping.
type ImageConfig struct {
	// TimeoutSeconds bounds each webpage / Facebook lookup.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
	// Concurrency is the number of lookups run in parallel.
	Concurrency int `yaml:"concurrency" json:"concurrency"`
	// CacheDir stores conditional-request metadata per festival webpage.
	// Empty disables the cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
	// FacebookToken is the Graph API token for the Facebook picture fallback.
	FacebookToken string `yaml:"facebook_token,omitempty" json:"-"`
}

// PreviewConfig controls the PNG screenshot of the generated page.
type PreviewConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	Width   int  `yaml:"width" json:"width"`
	Height  int  `yaml:"height" json:"height"`
}

// SiteConfig holds the page copy.
type SiteConfig struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	// SheetURL defaults to the public URL of SpreadsheetID.
	SheetURL string `yaml:"sheet_url,omitempty" json:"sheet_url,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials guarding the refresh API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

// Config is the top-level application configuration.
type Config struct {
	// Source selects where continent sheets are read from: "sheets" (Google
	// Sheets API) or "xlsx" (local workbook at WorkbookPath).
	Source string `yaml:"source" json:"source"`

	SpreadsheetID   string `yaml:"spreadsheet_id" json:"spreadsheet_id"`
	CredentialsFile string `yaml:"credentials_file,omitempty" json:"credentials_file,omitempty"`
	APIKey          string `yaml:"api_key,omitempty" json:"-"`
	WorkbookPath    string `yaml:"workbook_path,omitempty" json:"workbook_path,omitempty"`

	// OutputDir receives index.html, festivals.ics, festivals.json and preview.png.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// RefreshCron is a standard 5-field cron schedule for daemon mode.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Timezone is the IANA zone that decides "now" for month classification.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Listen is the HTTP address for the built-in server. Empty disables it.
	Listen string `yaml:"listen" json:"listen"`

	// BasicAuth, if set, protects POST /api/refresh.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	// LogLevel is one of debug, info, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Image   ImageConfig   `yaml:"image" json:"image"`
	Preview PreviewConfig `yaml:"preview" json:"preview"`
	Site    SiteConfig    `yaml:"site" json:"site"`
}

const (
	defaultTitle       = "Improv Festivals Worldwide"
	defaultDescription = "An open-source project that transforms a shared spreadsheet into a live directory of improv festivals around the world."
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Source:      SourceSheets,
		OutputDir:   "./public",
		RefreshCron: "0 * * * *",
		Timezone:    "UTC",
		LogLevel:    "info",
		Image: ImageConfig{
			TimeoutSeconds: 10,
			Concurrency:    8,
			CacheDir:       "./var/page-cache",
		},
		Preview: PreviewConfig{
			Enabled: false,
			Width:   1200,
			Height:  630,
		},
		Site: SiteConfig{
			Title:       defaultTitle,
			Description: defaultDescription,
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Source == "" {
		c.Source = d.Source
	}
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
	if c.RefreshCron == "" {
		c.RefreshCron = d.RefreshCron
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Image.TimeoutSeconds <= 0 {
		c.Image.TimeoutSeconds = d.Image.TimeoutSeconds
	}
	if c.Image.Concurrency <= 0 {
		c.Image.Concurrency = d.Image.Concurrency
	}
	if c.Preview.Width <= 0 {
		c.Preview.Width = d.Preview.Width
	}
	if c.Preview.Height <= 0 {
		c.Preview.Height = d.Preview.Height
	}
	if c.Site.Title == "" {
		c.Site.Title = d.Site.Title
	}
	if c.Site.Description == "" {
		c.Site.Description = d.Site.Description
	}
}

// Validate reports configuration problems that must abort a run.
func (c *Config) Validate() error {
	switch c.Source {
	case SourceSheets:
		if c.SpreadsheetID == "" {
			return ErrSpreadsheetIDMissing
		}
	case SourceWorkbook:
		if c.WorkbookPath == "" {
			return errors.New("config: workbook_path is required for the xlsx source")
		}
	default:
		return fmt.Errorf("config: unknown source %q (want %q or %q)", c.Source, SourceSheets, SourceWorkbook)
	}

	if c.OutputDir == "" {
		return errors.New("config: output_dir is empty")
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		return fmt.Errorf("config: invalid refresh schedule %q: %w", c.RefreshCron, err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SheetURL is the public link to the shared spreadsheet, if known.
func (c *Config) SheetURL() string {
	if c.Site.SheetURL != "" {
		return c.Site.SheetURL
	}
	if c.SpreadsheetID == "" {
		return ""
	}
	return "https://docs.google.com/spreadsheets/d/" + c.SpreadsheetID
}

// ApplyEnv overrides secrets and identifiers from environment variables.
// lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvSpreadsheetID); ok && v != "" {
		c.SpreadsheetID = v
	}
	if v, ok := lookup(EnvFacebookToken); ok && v != "" {
		c.Image.FacebookToken = v
	}
	if v, ok := lookup(EnvGoogleAPIKey); ok && v != "" {
		c.APIKey = v
	}
	if v, ok := lookup(EnvCredentialsFile); ok && v != "" {
		c.CredentialsFile = v
	}
}

// LoadEnvFile loads KEY=VALUE pairs from a .env file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save normalizes cfg and writes it as YAML to path with 0600 permissions,
// creating the parent directory (0700) if needed. The write is atomic.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(path, data, 0o700, 0o600)
}
