// Package config provides configuration loading and validation for the CLI
// and the server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Defaults applied by MergeWithDefaults when neither the file nor a flag set a value.
const (
	DefaultPort            = 8080
	DefaultRenderTimeout   = 30 * time.Second
	DefaultCloneTimeout    = 2 * time.Minute
	DefaultMaxFiles        = 10
	DefaultMaxContentChars = 2000
	DefaultWorkers         = 4
)

// Config represents the configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Analysis target
	ProjectName string `json:"project_name,omitempty"`
	ScrapeURL   string `json:"scrape_url,omitempty"` // Page to render and analyze
	RepoURL     string `json:"repo_url,omitempty"`   // Repository to clone and analyze

	// Limits
	RenderTimeout   string `json:"render_timeout,omitempty"` // Go duration, e.g. "30s"
	CloneTimeout    string `json:"clone_timeout,omitempty"`  // Go duration, e.g. "2m"
	MaxFiles        int    `json:"max_files,omitempty"`      // Repository files sent to the model (at most 10)
	MaxContentChars int    `json:"max_content_chars,omitempty"`
	Workers         int    `json:"workers,omitempty"` // Concurrent per-file generation calls

	// Behavior
	APIKey          string `json:"api_key,omitempty"`           // Gemini API key
	Model           string `json:"model,omitempty"`             // Overrides the lite-tier model name
	UseHTTPRenderer bool   `json:"use_http_renderer,omitempty"` // Fetch pages with a plain GET instead of headless Chrome
	Verbose         bool   `json:"verbose,omitempty"`           // Print detailed debug information
	DatabaseURL     string `json:"database_url,omitempty"`      // PostgreSQL connection URL

	// Server
	Port      int    `json:"port,omitempty"`
	PublicURL string `json:"public_url,omitempty"` // Base URL embedded in served plugin scripts
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required fields are not checked here; the CLI does that after merging flags.
func (c *Config) Validate() error {
	if c.ScrapeURL != "" && c.RepoURL != "" {
		return fmt.Errorf("config error: 'scrape_url' and 'repo_url' are mutually exclusive")
	}

	if c.MaxFiles < 0 || c.MaxFiles > DefaultMaxFiles {
		return fmt.Errorf("config error: 'max_files' must be between 0 and %d", DefaultMaxFiles)
	}
	if c.MaxContentChars < 0 {
		return fmt.Errorf("config error: 'max_content_chars' must be non-negative")
	}
	if c.Workers < 0 {
		return fmt.Errorf("config error: 'workers' must be non-negative")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}

	for name, value := range map[string]string{
		"render_timeout": c.RenderTimeout,
		"clone_timeout":  c.CloneTimeout,
	} {
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("config error: '%s' is not a duration: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("config error: '%s' must be positive", name)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	for _, f := range []struct {
		dst *string
		def string
	}{
		{&result.ProjectName, defaults.ProjectName},
		{&result.ScrapeURL, defaults.ScrapeURL},
		{&result.RepoURL, defaults.RepoURL},
		{&result.RenderTimeout, defaults.RenderTimeout},
		{&result.CloneTimeout, defaults.CloneTimeout},
		{&result.APIKey, defaults.APIKey},
		{&result.Model, defaults.Model},
		{&result.DatabaseURL, defaults.DatabaseURL},
		{&result.PublicURL, defaults.PublicURL},
	} {
		if *f.dst == "" {
			*f.dst = f.def
		}
	}

	// Int fields: use default if zero
	for _, f := range []struct {
		dst *int
		def int
	}{
		{&result.MaxFiles, defaults.MaxFiles},
		{&result.MaxContentChars, defaults.MaxContentChars},
		{&result.Workers, defaults.Workers},
		{&result.Port, defaults.Port},
	} {
		if *f.dst == 0 {
			*f.dst = f.def
		}
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// FromEnv fills empty secrets and connection strings from the environment.
func (c *Config) FromEnv() {
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.PublicURL == "" {
		c.PublicURL = os.Getenv("PUBLIC_URL")
	}
}

// RenderTimeoutDuration returns the parsed render timeout or the default.
func (c *Config) RenderTimeoutDuration() time.Duration {
	return parseDurationOr(c.RenderTimeout, DefaultRenderTimeout)
}

// CloneTimeoutDuration returns the parsed clone timeout or the default.
func (c *Config) CloneTimeoutDuration() time.Duration {
	return parseDurationOr(c.CloneTimeout, DefaultCloneTimeout)
}

func parseDurationOr(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
