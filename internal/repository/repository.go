// Package repository clones a source repository into a scoped temporary
// directory and selects a capped set of source files from it. Cloned code is
// only ever read as text.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonathan/learn-overlay/internal/types"
)

// DefaultCloneTimeout bounds a single clone.
const DefaultCloneTimeout = 2 * time.Minute

// Cloner clones repoURL into dest, which does not yet exist.
type Cloner interface {
	Clone(ctx context.Context, repoURL, dest string) error
}

// GitCloner shells out to the git CLI for a shallow clone.
type GitCloner struct {
	Timeout time.Duration
}

// runGitCommand is injectable in tests.
var runGitCommand = func(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Clone implements Cloner.
func (g *GitCloner) Clone(ctx context.Context, repoURL, dest string) error {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultCloneTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := runGitCommand(ctx, "clone", "--depth", "1", "--single-branch", "--no-tags", repoURL, dest)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("clone timed out after %s: %w", timeout, err)
	}
	return err
}

// Extractor produces a repository digest.
type Extractor struct {
	Cloner  Cloner
	Walk    WalkOptions
	TempDir string // parent for per-call temp dirs; os.TempDir() when empty
	Verbose bool
}

// NewExtractor returns an extractor backed by the git CLI.
func NewExtractor(cloneTimeout time.Duration, verbose bool) *Extractor {
	return &Extractor{
		Cloner:  &GitCloner{Timeout: cloneTimeout},
		Walk:    DefaultWalkOptions(),
		Verbose: verbose,
	}
}

// ValidateRepoURL accepts http(s) and ssh-style git URLs. Local paths and
// file:// URLs are rejected so that a project cannot read the host filesystem.
func ValidateRepoURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return &CloneError{URL: raw, Message: "repository URL is empty"}
	}
	if strings.HasPrefix(raw, "git@") && strings.Contains(raw, ":") {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &CloneError{URL: raw, Message: "invalid repository URL", Cause: err}
	}
	switch u.Scheme {
	case "http", "https", "ssh", "git":
	default:
		return &CloneError{URL: raw, Message: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return &CloneError{URL: raw, Message: "repository URL has no host"}
	}
	return nil
}

// Extract clones repoURL into a fresh temporary directory, walks it and
// removes the directory before returning, whatever the outcome.
func (e *Extractor) Extract(ctx context.Context, repoURL string) (*types.RepoDigest, error) {
	if err := ValidateRepoURL(repoURL); err != nil {
		return nil, err
	}

	tmp, err := os.MkdirTemp(e.TempDir, "learn-repo-*")
	if err != nil {
		return nil, &IOError{Path: e.TempDir, Message: "failed to create temp dir", Cause: err}
	}
	defer func() {
		if rmErr := os.RemoveAll(tmp); rmErr != nil {
			log.Printf("[REPO] Warning: failed to remove %s: %v", tmp, rmErr)
		}
	}()

	dest := filepath.Join(tmp, "repo")
	if e.Verbose {
		log.Printf("[REPO] Cloning %s into %s", repoURL, dest)
	}
	if err := e.Cloner.Clone(ctx, repoURL, dest); err != nil {
		return nil, &CloneError{URL: repoURL, Message: "clone failed", Cause: err}
	}

	files, err := Walk(dest, e.Walk)
	if err != nil {
		return nil, err
	}

	if e.Verbose {
		log.Printf("[REPO] Selected %d files from %s", len(files), repoURL)
	}
	return &types.RepoDigest{URL: repoURL, Files: files}, nil
}
