// Package schemas holds the JSON Schema documents for the artifacts the
// pipeline produces and consumes.
package schemas

import (
	"embed"
	"io/fs"
	"sort"
)

// Schema file names.
const (
	FunctionMap    = "function_map.schema.json"
	AnalysisResult = "analysis_result.schema.json"
)

//go:embed *.schema.json
var files embed.FS

// Read returns the raw schema document for name.
func Read(name string) ([]byte, error) {
	return files.ReadFile(name)
}

// Names lists the embedded schema files in sorted order.
func Names() []string {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}
