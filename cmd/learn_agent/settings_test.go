package main

import (
	"testing"

	"github.com/jonathan/learn-overlay/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FlagsOnly(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("DATABASE_URL", "")

	cfg, err := loadConfig("", config.Config{ProjectName: "Docs", ScrapeURL: "https://example.com", MaxFiles: 4})
	require.NoError(t, err)

	assert.Equal(t, "Docs", cfg.ProjectName)
	assert.Equal(t, 4, cfg.MaxFiles)
	assert.Equal(t, config.DefaultWorkers, cfg.Workers)
	assert.Equal(t, config.DefaultPort, cfg.Port)
	assert.Equal(t, config.DefaultRenderTimeout, cfg.RenderTimeoutDuration())
	assert.Equal(t, "env-key", cfg.APIKey)
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"project_name": "From File",
		"scrape_url": "https://file.example.com",
		"workers": 2,
		"use_http_renderer": true,
		"api_key": "file-key"
	}`)

	cfg, err := loadConfig(path, config.Config{ProjectName: "From Flag"})
	require.NoError(t, err)

	assert.Equal(t, "From Flag", cfg.ProjectName)
	assert.Equal(t, "https://file.example.com", cfg.ScrapeURL)
	assert.Equal(t, 2, cfg.Workers)
	assert.True(t, cfg.UseHTTPRenderer)
	assert.Equal(t, "file-key", cfg.APIKey)
}

func TestLoadConfig_FlagTargetReplacesFileTarget(t *testing.T) {
	path := writeFile(t, "config.json", `{"scrape_url": "https://file.example.com"}`)

	cfg, err := loadConfig(path, config.Config{RepoURL: "https://github.com/acme/widgets"})
	require.NoError(t, err)

	assert.Empty(t, cfg.ScrapeURL)
	assert.Equal(t, "https://github.com/acme/widgets", cfg.RepoURL)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := loadConfig(writeFile(t, "bad.json", `{"max_files": 50}`), config.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_files")

	_, err = loadConfig("", config.Config{ScrapeURL: "https://a.example", RepoURL: "https://b.example"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")

	_, err = loadConfig("/nonexistent/config.json", config.Config{})
	assert.Error(t, err)
}
