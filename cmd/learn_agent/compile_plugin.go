package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jonathan/learn-overlay/internal/plugin"
	"github.com/jonathan/learn-overlay/internal/schemas"
	"github.com/jonathan/learn-overlay/internal/types"
	schemafiles "github.com/jonathan/learn-overlay/schemas"
	"github.com/spf13/cobra"
)

var compilePluginCmd = &cobra.Command{
	Use:   "compile-plugin",
	Short: "Compile the overlay script for a function map",
	Long: `Produce the browser script that adds the learn-mode overlay to a page.

With --map the function map is embedded in the script. With --endpoint the
script fetches the map from a lookup endpoint at load time, using --key or
the data-key attribute of its script tag.`,
	RunE: runCompilePlugin,
}

var (
	pluginMapFile    string
	pluginEndpoint   string
	pluginKey        string
	pluginOutputFile string
	pluginMarker     string
	pluginLabel      string
)

func init() {
	compilePluginCmd.Flags().StringVar(&pluginMapFile, "map", "", "Path to a function map JSON file")
	compilePluginCmd.Flags().StringVar(&pluginEndpoint, "endpoint", "", "Lookup endpoint URL, e.g. https://host/lookup")
	compilePluginCmd.Flags().StringVar(&pluginKey, "key", "", "Access key (fetching variant only)")
	compilePluginCmd.Flags().StringVarP(&pluginOutputFile, "out", "o", "", "Write the script to this file instead of stdout")
	compilePluginCmd.Flags().StringVar(&pluginMarker, "marker", plugin.DefaultMarkerAttribute, "Attribute that names elements on the page")
	compilePluginCmd.Flags().StringVar(&pluginLabel, "label", plugin.DefaultButtonLabel, "Toggle button label")
	compilePluginCmd.MarkFlagsMutuallyExclusive("map", "endpoint")
	compilePluginCmd.MarkFlagsOneRequired("map", "endpoint")

	rootCmd.AddCommand(compilePluginCmd)
}

func runCompilePlugin(_ *cobra.Command, _ []string) error {
	opts := plugin.Options{MarkerAttribute: pluginMarker, ButtonLabel: pluginLabel}

	script, err := compileScript(pluginMapFile, pluginEndpoint, pluginKey, opts)
	if err != nil {
		return err
	}
	return writeScript(script, pluginOutputFile, os.Stdout)
}

// compileScript builds the embedded variant from mapPath, or the fetching
// variant when mapPath is empty.
func compileScript(mapPath, endpoint, key string, opts plugin.Options) (string, error) {
	if mapPath == "" {
		return plugin.CompileFetching(endpoint, key, opts)
	}

	fm, err := loadFunctionMap(mapPath)
	if err != nil {
		return "", err
	}
	return plugin.CompileEmbedded(fm, opts)
}

// loadFunctionMap reads and schema-checks a function map file.
func loadFunctionMap(path string) (types.FunctionMap, error) {
	data, err := schemas.ReadFile(schemafiles.FunctionMap, path)
	if err != nil {
		return nil, fmt.Errorf("invalid function map %s: %w", path, err)
	}
	var fm types.FunctionMap
	if err := json.Unmarshal(data, &fm); err != nil {
		return nil, fmt.Errorf("failed to parse function map: %w", err)
	}
	return fm, nil
}

func writeScript(script, path string, stdout io.Writer) error {
	if path == "" {
		_, err := io.WriteString(stdout, script)
		return err
	}
	if err := os.WriteFile(path, []byte(script), 0644); err != nil {
		return fmt.Errorf("failed to write script: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Wrote plugin script to %s\n", path)
	return nil
}
