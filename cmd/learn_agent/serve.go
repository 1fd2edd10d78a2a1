package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/learn-overlay/internal/analysis"
	"github.com/jonathan/learn-overlay/internal/config"
	"github.com/jonathan/learn-overlay/internal/server"
	"github.com/spf13/cobra"
)

var (
	servePort       int
	serveConfigFile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes the operator project API, the public
key lookup and the plugin script.

Requires DATABASE_URL, GEMINI_API_KEY and JWT_SECRET. Operator login is
enabled by OPERATOR_PASSWORD_HASH (see hash-password).`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default 8080)")
	serveCmd.Flags().StringVar(&serveConfigFile, "config", "", "Path to JSON config file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(serveConfigFile, config.Config{Port: servePort})
	if err != nil {
		return err
	}

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, server.Config{
		Port:        cfg.Port,
		DatabaseURL: cfg.DatabaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		PublicURL:   cfg.PublicURL,
		Analysis: analysis.Options{
			UseHTTPRenderer: cfg.UseHTTPRenderer,
			RenderTimeout:   cfg.RenderTimeoutDuration(),
			CloneTimeout:    cfg.CloneTimeoutDuration(),
			MaxFiles:        cfg.MaxFiles,
			MaxContentChars: cfg.MaxContentChars,
			Workers:         cfg.Workers,
			Verbose:         cfg.Verbose,
			Out:             os.Stderr,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(ctx)
}
