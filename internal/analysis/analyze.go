// Package analysis is the single entry point that turns a project target
// into an access key and a function map.
package analysis

import (
	"context"
	"io"
	"log"
	"strings"
	"time"

	"github.com/jonathan/learn-overlay/internal/explain"
	"github.com/jonathan/learn-overlay/internal/fetch"
	"github.com/jonathan/learn-overlay/internal/funcmap"
	"github.com/jonathan/learn-overlay/internal/keys"
	"github.com/jonathan/learn-overlay/internal/llm"
	"github.com/jonathan/learn-overlay/internal/observability"
	"github.com/jonathan/learn-overlay/internal/repository"
	"github.com/jonathan/learn-overlay/internal/types"
)

// PageSource extracts a digest from a live page.
type PageSource interface {
	Extract(ctx context.Context, url string) (*types.PageDigest, error)
}

// RepoSource extracts a digest from a source repository.
type RepoSource interface {
	Extract(ctx context.Context, url string) (*types.RepoDigest, error)
}

// Explainer produces raw model responses for a digest.
type Explainer interface {
	Generate(ctx context.Context, digest *types.ContentDigest) ([]string, error)
}

// Request names the project and exactly one target.
type Request struct {
	ProjectName string
	ScrapeURL   string
	RepoURL     string
}

// Analyzer wires the pipeline stages together.
type Analyzer struct {
	Pages     PageSource
	Repos     RepoSource
	Generator Explainer
	IssueKey  func() (string, error)
	Verbose   bool

	// Printer, when set, receives boxed summaries of the digest and the map.
	Printer *observability.Printer
}

// Options configure New.
type Options struct {
	// UseHTTPRenderer replaces headless Chrome with a plain GET.
	UseHTTPRenderer bool
	RenderTimeout   time.Duration
	CloneTimeout    time.Duration
	MaxFiles        int
	MaxContentChars int
	Workers         int
	Tier            llm.ModelTier
	Verbose         bool
	// Out receives verbose summaries; nil disables them.
	Out io.Writer
}

// New builds an Analyzer backed by the real extractors and client.
func New(client llm.Client, opts Options) *Analyzer {
	pages := fetch.NewPageExtractor(opts.UseHTTPRenderer, opts.Verbose)
	if br, ok := pages.Renderer.(*fetch.BrowserRenderer); ok && opts.RenderTimeout > 0 {
		br.Timeout = opts.RenderTimeout
	}

	cloneTimeout := opts.CloneTimeout
	if cloneTimeout <= 0 {
		cloneTimeout = repository.DefaultCloneTimeout
	}
	repos := repository.NewExtractor(cloneTimeout, opts.Verbose)
	if opts.MaxFiles > 0 {
		repos.Walk.MaxFiles = opts.MaxFiles
	}
	if opts.MaxContentChars > 0 {
		repos.Walk.MaxContentChars = opts.MaxContentChars
	}

	gen := explain.NewGenerator(client)
	if opts.Workers > 0 {
		gen.Workers = opts.Workers
	}
	if opts.Tier != "" {
		gen.Tier = opts.Tier
	}
	gen.Verbose = opts.Verbose

	a := &Analyzer{
		Pages:     pages,
		Repos:     repos,
		Generator: gen,
		IssueKey:  keys.Issue,
		Verbose:   opts.Verbose,
	}
	if opts.Verbose && opts.Out != nil {
		a.Printer = observability.NewPrinter(opts.Out)
	}
	return a
}

// Validate checks a request without running anything.
func Validate(req Request) error {
	if strings.TrimSpace(req.ProjectName) == "" {
		return &ValidationError{Field: "project_name", Message: "project name is required"}
	}
	hasPage := strings.TrimSpace(req.ScrapeURL) != ""
	hasRepo := strings.TrimSpace(req.RepoURL) != ""
	if hasPage == hasRepo {
		return &ValidationError{Field: "target", Message: "exactly one of scrapeTarget/repoTarget required"}
	}
	return nil
}

// Analyze runs extract, generate, normalize and key issue in that order.
// Extraction, generation and key issue failures are *AnalysisError; bad
// input is *ValidationError and is reported before any side effect.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*types.AnalysisResult, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.ProjectName)

	digest, err := a.extract(ctx, req)
	if err != nil {
		return nil, &AnalysisError{Stage: StageExtract, Cause: err}
	}
	if a.Printer != nil {
		a.Printer.PrintDigest(digest)
	}

	raw, err := a.Generator.Generate(ctx, digest)
	if err != nil {
		return nil, &AnalysisError{Stage: StageGenerate, Cause: err}
	}

	fm := funcmap.Normalize(raw, digest.Kind)
	if a.Printer != nil {
		a.Printer.PrintFunctionMap(fm)
	}

	issue := a.IssueKey
	if issue == nil {
		issue = keys.Issue
	}
	key, err := issue()
	if err != nil {
		return nil, &AnalysisError{Stage: StageIssueKey, Cause: err}
	}

	if a.Verbose {
		log.Printf("[ANALYZE] %q (%s): %d responses, %d entries", name, digest.Kind, len(raw), len(fm))
	}

	return &types.AnalysisResult{
		AccessKey:   key,
		ProjectName: name,
		Kind:        digest.Kind,
		FunctionMap: fm,
	}, nil
}

func (a *Analyzer) extract(ctx context.Context, req Request) (*types.ContentDigest, error) {
	if url := strings.TrimSpace(req.ScrapeURL); url != "" {
		page, err := a.Pages.Extract(ctx, url)
		if err != nil {
			return nil, err
		}
		return types.NewPageContent(page), nil
	}

	repo, err := a.Repos.Extract(ctx, strings.TrimSpace(req.RepoURL))
	if err != nil {
		return nil, err
	}
	return types.NewRepoContent(repo), nil
}
