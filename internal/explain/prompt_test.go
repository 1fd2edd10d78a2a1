package explain

import (
	"fmt"
	"strings"
	"testing"

	"github.com/jonathan/learn-overlay/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPagePrompt_IncludesDigest(t *testing.T) {
	prompt, err := BuildPagePrompt(&types.PageDigest{
		URL:        "https://example.com/docs",
		Title:      "Docs",
		Headings:   []string{"Getting started", "API"},
		Paragraphs: []string{"This paragraph explains the docs site."},
		Links:      []types.Link{{Text: "Home", Href: "https://example.com/"}},
		Forms: []types.Form{{
			Action: "/search",
			Fields: []types.FormField{{Tag: "input", Type: "search", Name: "q", Placeholder: "Search docs"}},
		}},
	})
	require.NoError(t, err)

	assert.Contains(t, prompt, "Page URL: https://example.com/docs")
	assert.Contains(t, prompt, "- Getting started")
	assert.Contains(t, prompt, "- Home -> https://example.com/")
	assert.Contains(t, prompt, "input type=search name=q placeholder=\"Search docs\"")
	assert.Contains(t, prompt, "(action /search)")
	assert.NotContains(t, prompt, "{{.")
}

func TestBuildPagePrompt_EmptyDigest(t *testing.T) {
	prompt, err := BuildPagePrompt(&types.PageDigest{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Contains(t, prompt, "Title: (none)")
	assert.Contains(t, prompt, "Forms:\n(none)")
}

func TestBuildPagePrompt_CapsLinks(t *testing.T) {
	links := make([]types.Link, 0, 30)
	for i := 0; i < 30; i++ {
		links = append(links, types.Link{Text: fmt.Sprintf("link-%02d", i), Href: "https://example.com"})
	}
	prompt, err := BuildPagePrompt(&types.PageDigest{URL: "https://example.com", Links: links})
	require.NoError(t, err)

	assert.Equal(t, MaxPromptLinks, strings.Count(prompt, "-> https://example.com"))
	assert.NotContains(t, prompt, "link-25")
}

func TestBuildFilePrompt(t *testing.T) {
	prompt, err := BuildFilePrompt(types.RepoFile{
		Name: "server.go", Path: "cmd/server.go", Extension: ".go", Content: "package main",
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "File name: server.go")
	assert.Contains(t, prompt, "Extension: .go")
	assert.Contains(t, prompt, "package main")
}
