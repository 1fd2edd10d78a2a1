// Package fetch - digest.go reduces rendered HTML to a bounded page digest.
package fetch

import (
	"context"
	"log"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/learn-overlay/internal/types"
)

const (
	// MinParagraphLength is the exclusive lower bound, in characters, on kept
	// paragraph length.
	MinParagraphLength = 20
	// MaxParagraphs caps the paragraphs kept in a digest.
	MaxParagraphs = 10
)

// ExtractPageDigest parses rendered HTML and collects title, headings,
// paragraphs, links and form fields. Script and style content is removed first.
func ExtractPageDigest(html string, baseURL string) (*types.PageDigest, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &DigestError{Message: "failed to parse HTML", Cause: err}
	}

	base, _ := url.Parse(baseURL)

	doc.Find("script, style, noscript, template").Remove()

	digest := &types.PageDigest{
		URL:        baseURL,
		Title:      cleanText(doc.Find("title").First().Text()),
		Headings:   []string{},
		Paragraphs: []string{},
		Links:      []types.Link{},
		Forms:      []types.Form{},
	}

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		if text := cleanText(s.Text()); text != "" {
			digest.Headings = append(digest.Headings, text)
		}
	})

	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := cleanText(s.Text())
		if utf8.RuneCountInString(text) > MinParagraphLength {
			digest.Paragraphs = append(digest.Paragraphs, text)
		}
		return len(digest.Paragraphs) < MaxParagraphs
	})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		digest.Links = append(digest.Links, types.Link{
			Text: cleanText(s.Text()),
			Href: resolveHref(base, href),
		})
	})

	doc.Find("form").Each(func(_ int, form *goquery.Selection) {
		action, _ := form.Attr("action")
		f := types.Form{Action: action, Fields: []types.FormField{}}
		form.Find("input, textarea, select").Each(func(_ int, field *goquery.Selection) {
			tag := goquery.NodeName(field)
			fieldType, _ := field.Attr("type")
			if fieldType == "" && tag == "input" {
				fieldType = "text"
			}
			name, _ := field.Attr("name")
			placeholder, _ := field.Attr("placeholder")
			f.Fields = append(f.Fields, types.FormField{
				Tag:         tag,
				Type:        fieldType,
				Name:        name,
				Placeholder: placeholder,
			})
		})
		digest.Forms = append(digest.Forms, f)
	})

	return digest, nil
}

// resolveHref resolves href against base, returning href unchanged when either fails to parse.
func resolveHref(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// cleanText collapses runs of whitespace into single spaces.
func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// PageExtractor renders a page and extracts its digest.
type PageExtractor struct {
	Renderer Renderer
	Verbose  bool
}

// NewPageExtractor returns an extractor rendering in headless Chrome, or over
// plain HTTP when useHTTP is set.
func NewPageExtractor(useHTTP bool, verbose bool) *PageExtractor {
	var r Renderer = NewBrowserRenderer(verbose)
	if useHTTP {
		r = NewHTTPRenderer()
	}
	return &PageExtractor{Renderer: r, Verbose: verbose}
}

// Extract renders urlStr and returns its digest. Failures are *Error,
// *RenderTimeoutError or *DigestError.
func (p *PageExtractor) Extract(ctx context.Context, urlStr string) (*types.PageDigest, error) {
	if _, err := ValidateURL(urlStr); err != nil {
		return nil, err
	}

	html, err := p.Renderer.Render(ctx, urlStr)
	if err != nil {
		return nil, err
	}

	digest, err := ExtractPageDigest(html, urlStr)
	if err != nil {
		return nil, err
	}

	if p.Verbose {
		log.Printf("[PAGE] %s: %d headings, %d paragraphs, %d links, %d forms",
			urlStr, len(digest.Headings), len(digest.Paragraphs), len(digest.Links), len(digest.Forms))
	}
	return digest, nil
}
