package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jonathan/learn-overlay/internal/analysis"
	"github.com/jonathan/learn-overlay/internal/config"
	"github.com/jonathan/learn-overlay/internal/llm"
	"github.com/jonathan/learn-overlay/internal/observability"
	"github.com/jonathan/learn-overlay/internal/schemas"
	"github.com/jonathan/learn-overlay/internal/types"
	schemafiles "github.com/jonathan/learn-overlay/schemas"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a page or repository and print its function map",
	Long: `Render a web page (--url) or clone a repository (--repo), ask the model to
explain its parts and print {access_key, project_name, kind, function_map}.
Nothing is stored; use the server to register a project.`,
	RunE: runAnalyze,
}

var (
	analyzeName          string
	analyzeURL           string
	analyzeRepo          string
	analyzeConfigFile    string
	analyzeOutputFile    string
	analyzeAPIKey        string
	analyzeModel         string
	analyzeVerbose       bool
	analyzeNoBrowser     bool
	analyzeMaxFiles      int
	analyzeWorkers       int
	analyzeRenderTimeout string
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeName, "name", "n", "", "Project name (required)")
	analyzeCmd.Flags().StringVar(&analyzeURL, "url", "", "Web page to analyze")
	analyzeCmd.Flags().StringVar(&analyzeRepo, "repo", "", "Git repository to analyze")
	analyzeCmd.Flags().StringVar(&analyzeConfigFile, "config", "", "Path to JSON config file")
	analyzeCmd.Flags().StringVarP(&analyzeOutputFile, "out", "o", "", "Write the result to this file instead of stdout")
	analyzeCmd.Flags().StringVar(&analyzeAPIKey, "api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var)")
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "", "Model used for explanations")
	analyzeCmd.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "Print digests and the map while running")
	analyzeCmd.Flags().BoolVar(&analyzeNoBrowser, "no-browser", false, "Fetch the page with a plain GET instead of headless Chrome")
	analyzeCmd.Flags().IntVar(&analyzeMaxFiles, "max-files", 0, "Repository files to explain (at most 10)")
	analyzeCmd.Flags().IntVar(&analyzeWorkers, "workers", 0, "Concurrent model calls for repositories")
	analyzeCmd.Flags().StringVar(&analyzeRenderTimeout, "render-timeout", "", "Page render timeout, e.g. 30s")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig(analyzeConfigFile, config.Config{
		ProjectName:     analyzeName,
		ScrapeURL:       analyzeURL,
		RepoURL:         analyzeRepo,
		APIKey:          analyzeAPIKey,
		Model:           analyzeModel,
		UseHTTPRenderer: analyzeNoBrowser,
		Verbose:         analyzeVerbose,
		MaxFiles:        analyzeMaxFiles,
		Workers:         analyzeWorkers,
		RenderTimeout:   analyzeRenderTimeout,
	})
	if err != nil {
		return err
	}

	req := analysis.Request{
		ProjectName: cfg.ProjectName,
		ScrapeURL:   cfg.ScrapeURL,
		RepoURL:     cfg.RepoURL,
	}
	if err := analysis.Validate(req); err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("API key is required (set GEMINI_API_KEY environment variable or use --api-key flag)")
	}

	ctx := context.Background()

	llmConfig := llm.DefaultConfig()
	if cfg.Model != "" {
		llmConfig = llmConfig.WithModel(llm.TierLite, cfg.Model)
	}
	client, err := llm.NewClient(ctx, llmConfig, cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer func() { _ = client.Close() }()

	analyzer := analysis.New(client, analysis.Options{
		UseHTTPRenderer: cfg.UseHTTPRenderer,
		RenderTimeout:   cfg.RenderTimeoutDuration(),
		CloneTimeout:    cfg.CloneTimeoutDuration(),
		MaxFiles:        cfg.MaxFiles,
		MaxContentChars: cfg.MaxContentChars,
		Workers:         cfg.Workers,
		Verbose:         cfg.Verbose,
		Out:             os.Stderr,
	})

	result, err := analyzer.Analyze(ctx, req)
	if err != nil {
		return err
	}

	if cfg.Verbose {
		observability.NewPrinter(os.Stderr).PrintAnalysisResult(result)
	}
	return writeAnalysisResult(result, analyzeOutputFile, os.Stdout)
}

// writeAnalysisResult checks the result against its schema and writes it
// to path, or to stdout when path is empty.
func writeAnalysisResult(result *types.AnalysisResult, path string, stdout io.Writer) error {
	if err := schemas.ValidateValue(schemafiles.AnalysisResult, result); err != nil {
		return fmt.Errorf("analysis result failed schema validation: %w", err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if path == "" {
		_, err := fmt.Fprintln(stdout, string(data))
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Wrote analysis result to %s\n", path)
	return nil
}
