package main

import (
	"fmt"

	"github.com/jonathan/learn-overlay/internal/config"
)

// builtinDefaults are the lowest-precedence values.
var builtinDefaults = config.Config{
	RenderTimeout:   config.DefaultRenderTimeout.String(),
	CloneTimeout:    config.DefaultCloneTimeout.String(),
	MaxFiles:        config.DefaultMaxFiles,
	MaxContentChars: config.DefaultMaxContentChars,
	Workers:         config.DefaultWorkers,
	Port:            config.DefaultPort,
}

// loadConfig layers flag values over the optional config file, then
// built-in defaults, then environment fallbacks for secrets.
func loadConfig(path string, flags config.Config) (*config.Config, error) {
	merged := flags
	if path != "" {
		fileCfg, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		if err := fileCfg.Validate(); err != nil {
			return nil, err
		}
		merged = merged.MergeWithDefaults(*fileCfg)
		// bools cannot be merged by zero value; either source may enable them
		merged.UseHTTPRenderer = flags.UseHTTPRenderer || fileCfg.UseHTTPRenderer
		merged.Verbose = flags.Verbose || fileCfg.Verbose
		// a target given on the command line replaces the file's target of the other kind
		if flags.ScrapeURL != "" && flags.RepoURL == "" {
			merged.RepoURL = ""
		}
		if flags.RepoURL != "" && flags.ScrapeURL == "" {
			merged.ScrapeURL = ""
		}
	}
	merged = merged.MergeWithDefaults(builtinDefaults)
	merged.FromEnv()

	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &merged, nil
}
