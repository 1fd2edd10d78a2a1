// Package explain turns a content digest into raw model responses, one per
// generation call. Responses are opaque text; interpreting them is the
// function-map normalizer's job.
package explain

import (
	"context"
	"log"

	"github.com/jonathan/learn-overlay/internal/llm"
	"github.com/jonathan/learn-overlay/internal/types"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds concurrent per-file generation calls.
const DefaultWorkers = 4

// Generator issues generation calls for a digest.
type Generator struct {
	Client  llm.Client
	Tier    llm.ModelTier
	Workers int
	Verbose bool
}

// NewGenerator creates a Generator with default tier and worker count.
func NewGenerator(client llm.Client) *Generator {
	return &Generator{
		Client:  client,
		Tier:    llm.TierLite,
		Workers: DefaultWorkers,
	}
}

// Generate returns the raw responses for the digest. A page digest produces
// exactly one response and any failure is returned as *GenerationError. A
// repository digest produces one response per file in traversal order;
// files whose call fails are logged and left out.
func (g *Generator) Generate(ctx context.Context, digest *types.ContentDigest) ([]string, error) {
	if g.Client == nil {
		return nil, &GenerationError{Message: "no generation client configured"}
	}
	if digest == nil {
		return nil, &GenerationError{Message: "digest is nil"}
	}

	switch digest.Kind {
	case types.TargetPage:
		if digest.Page == nil {
			return nil, &GenerationError{Message: "page digest missing"}
		}
		return g.generatePage(ctx, digest.Page)
	case types.TargetRepo:
		if digest.Repo == nil {
			return nil, &GenerationError{Message: "repository digest missing"}
		}
		return g.generateRepo(ctx, digest.Repo), nil
	default:
		return nil, &GenerationError{Message: "unknown digest kind " + string(digest.Kind)}
	}
}

func (g *Generator) generatePage(ctx context.Context, page *types.PageDigest) ([]string, error) {
	prompt, err := BuildPagePrompt(page)
	if err != nil {
		return nil, &GenerationError{Message: "failed to build page prompt", Cause: err}
	}

	if g.Verbose {
		log.Printf("[EXPLAIN] page %s: prompt %d chars", page.URL, len(prompt))
	}

	resp, err := g.Client.GenerateJSON(ctx, prompt, g.tier())
	if err != nil {
		return nil, &GenerationError{Message: "page generation call failed", Cause: err}
	}
	return []string{resp}, nil
}

func (g *Generator) generateRepo(ctx context.Context, repo *types.RepoDigest) []string {
	if len(repo.Files) == 0 {
		return nil
	}

	// Each slot is written by exactly one goroutine; empty means skipped.
	results := make([]string, len(repo.Files))
	ok := make([]bool, len(repo.Files))

	var eg errgroup.Group
	eg.SetLimit(g.workers())
	for i, file := range repo.Files {
		eg.Go(func() error {
			prompt, err := BuildFilePrompt(file)
			if err != nil {
				log.Printf("[EXPLAIN] skipping %s: %v", file.Path, err)
				return nil
			}
			resp, err := g.Client.GenerateJSON(ctx, prompt, g.tier())
			if err != nil {
				log.Printf("[EXPLAIN] skipping %s: generation failed: %v", file.Path, err)
				return nil
			}
			if g.Verbose {
				log.Printf("[EXPLAIN] %s: %d chars", file.Path, len(resp))
			}
			results[i] = resp
			ok[i] = true
			return nil
		})
	}
	_ = eg.Wait()

	out := make([]string, 0, len(results))
	for i, r := range results {
		if ok[i] {
			out = append(out, r)
		}
	}
	return out
}

func (g *Generator) tier() llm.ModelTier {
	if g.Tier == "" {
		return llm.TierLite
	}
	return g.Tier
}

func (g *Generator) workers() int {
	if g.Workers <= 0 {
		return DefaultWorkers
	}
	return g.Workers
}
