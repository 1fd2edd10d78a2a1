package repository

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/learn-overlay/internal/types"
)

const (
	// DefaultMaxFiles caps the number of files handed to the generator.
	DefaultMaxFiles = 10
	// DefaultMaxContentChars is the per-file content budget in characters.
	DefaultMaxContentChars = 2000
)

// excludedDirs are dependency and build output directories never descended into.
var excludedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"out":          true,
	"bin":          true,
	"obj":          true,
	"__pycache__":  true,
	"venv":         true,
	"env":          true,
	"coverage":     true,
}

// allowedExtensions are the source and markup extensions selected for analysis.
var allowedExtensions = map[string]bool{
	".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".py": true, ".go": true, ".java": true, ".rb": true, ".php": true,
	".c": true, ".cpp": true, ".h": true, ".cs": true, ".rs": true,
	".swift": true, ".kt": true,
	".html": true, ".css": true, ".scss": true, ".vue": true, ".svelte": true,
}

// WalkOptions bounds a directory walk.
type WalkOptions struct {
	MaxFiles        int
	MaxContentChars int
}

// DefaultWalkOptions returns the standard caps.
func DefaultWalkOptions() WalkOptions {
	return WalkOptions{MaxFiles: DefaultMaxFiles, MaxContentChars: DefaultMaxContentChars}
}

// IsExcludedDir reports whether a directory name is skipped during the walk.
func IsExcludedDir(name string) bool {
	return excludedDirs[name]
}

// IsAllowedExtension reports whether a file extension (with dot) is selected.
func IsAllowedExtension(ext string) bool {
	return allowedExtensions[strings.ToLower(ext)]
}

// Walk collects up to MaxFiles source files under root in lexical traversal
// order. Hidden entries and excluded directories are skipped at any depth.
func Walk(root string, opts WalkOptions) ([]types.RepoFile, error) {
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = DefaultMaxFiles
	}
	if opts.MaxContentChars <= 0 {
		opts.MaxContentChars = DefaultMaxContentChars
	}

	files := make([]types.RepoFile, 0, opts.MaxFiles)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		name := d.Name()
		if strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if IsExcludedDir(name) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(name))
		if !IsAllowedExtension(ext) {
			return nil
		}

		content, err := readPrefix(path, opts.MaxContentChars)
		if err != nil {
			return err
		}

		rel, _ := filepath.Rel(root, path)
		files = append(files, types.RepoFile{
			Name:      name,
			Path:      filepath.ToSlash(rel),
			Extension: ext,
			Content:   content,
		})

		if len(files) >= opts.MaxFiles {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, &IOError{Path: root, Message: "failed to walk repository", Cause: err}
	}

	return files, nil
}

// readPrefix returns the first maxChars characters of the file at path. At
// most maxChars*utf8.UTFMax bytes are read, which always covers maxChars
// whole runes.
func readPrefix(path string, maxChars int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	return readLimited(f, maxChars)
}

func readLimited(r io.Reader, maxChars int) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, int64(maxChars)*utf8.UTFMax))
	if err != nil {
		return "", err
	}
	return truncate(string(data), maxChars), nil
}

// truncate cuts s to at most limit characters without splitting a rune.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
