// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/learn-overlay/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// writeList writes up to limit items under a heading, with a "... and N more" tail.
func writeList(sb *strings.Builder, heading string, items []string, limit int) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(heading + ":\n")
	count := min(len(items), limit)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > limit {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-limit))
	}
	sb.WriteString("\n")
}

// PrintDigest prints whichever digest the content carries.
func (p *Printer) PrintDigest(digest *types.ContentDigest) {
	if digest == nil {
		return
	}
	switch digest.Kind {
	case types.TargetPage:
		p.PrintPageDigest(digest.Page)
	case types.TargetRepo:
		p.PrintRepoDigest(digest.Repo)
	}
}

// PrintPageDigest outputs a summary of the structure extracted from a page.
func (p *Printer) PrintPageDigest(page *types.PageDigest) {
	if page == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("URL:    %s\n", page.URL))
	sb.WriteString(fmt.Sprintf("Title:  %s\n", page.Title))
	sb.WriteString(fmt.Sprintf("Counts: %d headings, %d paragraphs, %d links, %d forms\n\n",
		len(page.Headings), len(page.Paragraphs), len(page.Links), len(page.Forms)))

	writeList(&sb, "Headings", page.Headings, maxItemsToShow)

	links := make([]string, 0, len(page.Links))
	for _, l := range page.Links {
		links = append(links, fmt.Sprintf("%s -> %s", l.Text, l.Href))
	}
	writeList(&sb, "Links", links, 3)

	for i, f := range page.Forms {
		if i >= 2 {
			sb.WriteString(fmt.Sprintf("... and %d more forms\n", len(page.Forms)-2))
			break
		}
		sb.WriteString(fmt.Sprintf("Form %d: %d fields", i+1, len(f.Fields)))
		if f.Action != "" {
			sb.WriteString(fmt.Sprintf(" (action %s)", f.Action))
		}
		sb.WriteString("\n")
	}

	p.printBox("PAGE DIGEST", strings.TrimRight(sb.String(), "\n"))
}

// PrintRepoDigest outputs the files selected from a repository.
func (p *Printer) PrintRepoDigest(repo *types.RepoDigest) {
	if repo == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("URL:   %s\n", repo.URL))
	sb.WriteString(fmt.Sprintf("Files: %d\n\n", len(repo.Files)))

	for _, f := range repo.Files {
		sb.WriteString(fmt.Sprintf("  • %s (%d chars)\n", f.Path, len(f.Content)))
	}

	p.printBox("REPOSITORY DIGEST", strings.TrimRight(sb.String(), "\n"))
}

// PrintFunctionMap outputs the element ids and explanations of a map in key order.
func (p *Printer) PrintFunctionMap(fm types.FunctionMap) {
	if len(fm) == 0 {
		p.printBox("FUNCTION MAP", "(empty)")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d entries:\n\n", len(fm)))
	for _, k := range fm.Keys() {
		sb.WriteString(fmt.Sprintf("%s\n", k))
		sb.WriteString(fmt.Sprintf("  %s\n", fm[k]))
	}

	p.printBox("FUNCTION MAP", strings.TrimRight(sb.String(), "\n"))
}

// PrintAnalysisResult outputs the key and map of a finished analysis.
func (p *Printer) PrintAnalysisResult(result *types.AnalysisResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Project: %s\n", result.ProjectName))
	sb.WriteString(fmt.Sprintf("Kind:    %s\n", result.Kind))
	sb.WriteString(fmt.Sprintf("Key:     %s\n", result.AccessKey))
	sb.WriteString(fmt.Sprintf("Entries: %d", len(result.FunctionMap)))

	p.printBox("ANALYSIS COMPLETE", sb.String())
}
