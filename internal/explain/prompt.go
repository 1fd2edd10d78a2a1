package explain

import (
	"fmt"
	"strings"

	"github.com/jonathan/learn-overlay/internal/prompts"
	"github.com/jonathan/learn-overlay/internal/types"
)

const promptFile = "analysis.json"

// MaxPromptLinks caps how many links of a page digest go into the prompt.
const MaxPromptLinks = 20

// PageVocabulary is the example id vocabulary offered to the model for pages.
var PageVocabulary = []string{
	"main-header",
	"navigation-menu",
	"hero-section",
	"login-form",
	"search-bar",
	"footer",
	"contact-form",
	"cta-button",
}

// BuildPagePrompt renders the page prompt for a digest.
func BuildPagePrompt(p *types.PageDigest) (string, error) {
	return prompts.Render(promptFile, "page", map[string]string{
		"Vocabulary": strings.Join(PageVocabulary, ", "),
		"URL":        p.URL,
		"Title":      orNone(p.Title),
		"Headings":   bulletList(p.Headings),
		"Paragraphs": bulletList(p.Paragraphs),
		"Links":      formatLinks(p.Links),
		"Forms":      formatForms(p.Forms),
	})
}

// BuildFilePrompt renders the per-file prompt for one repository file.
func BuildFilePrompt(f types.RepoFile) (string, error) {
	return prompts.Render(promptFile, "repo_file", map[string]string{
		"Name":      f.Name,
		"Extension": f.Extension,
		"Path":      f.Path,
		"Content":   f.Content,
	})
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString("- ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func formatLinks(links []types.Link) string {
	if len(links) == 0 {
		return "(none)"
	}
	if len(links) > MaxPromptLinks {
		links = links[:MaxPromptLinks]
	}
	lines := make([]string, 0, len(links))
	for _, l := range links {
		text := l.Text
		if text == "" {
			text = "(no text)"
		}
		lines = append(lines, fmt.Sprintf("- %s -> %s", text, l.Href))
	}
	return strings.Join(lines, "\n")
}

func formatForms(forms []types.Form) string {
	if len(forms) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for i, form := range forms {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Form %d", i+1)
		if form.Action != "" {
			fmt.Fprintf(&sb, " (action %s)", form.Action)
		}
		sb.WriteString(":")
		for _, field := range form.Fields {
			sb.WriteString("\n  - ")
			sb.WriteString(field.Tag)
			if field.Type != "" {
				fmt.Fprintf(&sb, " type=%s", field.Type)
			}
			if field.Name != "" {
				fmt.Fprintf(&sb, " name=%s", field.Name)
			}
			if field.Placeholder != "" {
				fmt.Fprintf(&sb, " placeholder=%q", field.Placeholder)
			}
		}
	}
	return sb.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
