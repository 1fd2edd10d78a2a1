// Package main provides the learn-overlay command line: the HTTP API server
// and offline analysis and plugin tools.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "learn_agent",
	Short: "Learn-mode overlay generator and API server",
	Long:  "learn_agent analyzes a web page or source repository, generates short explanations of its parts, and serves an embeddable script that overlays them on the live page.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
