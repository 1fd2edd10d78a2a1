// Package fetch loads analysis targets from the web and reduces them to a
// bounded page digest.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (compatible; LearnOverlay/1.0)"
	DefaultRetries   = 1
	DefaultBackoff   = 500 * time.Millisecond

	// maxBodyBytes caps how much of a document is read.
	maxBodyBytes = 5 << 20
)

// Renderer turns a URL into the HTML of the loaded document.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// ValidateURL checks that urlStr is an absolute http(s) URL.
func ValidateURL(urlStr string) (*url.URL, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, &Error{URL: urlStr, Message: "invalid URL", Cause: err}
	}
	return parsed, nil
}

// HTTPRenderer fetches the served document without running scripts. It suits
// static sites and hosts without Chrome. Zero fields take the defaults.
type HTTPRenderer struct {
	Client    *http.Client
	Timeout   time.Duration
	UserAgent string
	Retries   int           // extra attempts after a retryable failure
	Backoff   time.Duration // multiplied by the attempt number
}

// NewHTTPRenderer returns a renderer with the default timeout and one retry.
func NewHTTPRenderer() *HTTPRenderer {
	return &HTTPRenderer{Timeout: DefaultTimeout, Retries: DefaultRetries, Backoff: DefaultBackoff}
}

// Render implements Renderer. Transport errors and 5xx responses are retried;
// anything else fails at once.
func (h *HTTPRenderer) Render(ctx context.Context, urlStr string) (string, error) {
	if _, err := ValidateURL(urlStr); err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt <= h.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", &Error{URL: urlStr, Message: "cancelled", Cause: ctx.Err()}
			case <-time.After(h.backoff() * time.Duration(attempt)):
			}
		}

		html, err := h.get(ctx, urlStr)
		if err == nil {
			return html, nil
		}
		lastErr = err
		if fe, ok := err.(*Error); !ok || !fe.Retryable {
			break
		}
	}
	return "", lastErr
}

func (h *HTTPRenderer) get(ctx context.Context, urlStr string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", &Error{URL: urlStr, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", h.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.1")

	resp, err := h.client().Do(req)
	if err != nil {
		return "", &Error{URL: urlStr, Message: "HTTP request failed", Cause: err, Retryable: ctx.Err() == nil}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{
			URL:       urlStr,
			Message:   fmt.Sprintf("HTTP status %d", resp.StatusCode),
			Retryable: resp.StatusCode >= 500,
		}
	}
	if ct := resp.Header.Get("Content-Type"); !isHTML(ct) {
		return "", &Error{URL: urlStr, Message: fmt.Sprintf("unsupported content type %q", ct)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &Error{URL: urlStr, Message: "failed to read response body", Cause: err, Retryable: true}
	}
	return string(body), nil
}

func (h *HTTPRenderer) client() *http.Client {
	if h.Client != nil {
		return h.Client
	}
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func (h *HTTPRenderer) userAgent() string {
	if h.UserAgent != "" {
		return h.UserAgent
	}
	return DefaultUserAgent
}

func (h *HTTPRenderer) backoff() time.Duration {
	if h.Backoff > 0 {
		return h.Backoff
	}
	return DefaultBackoff
}

// isHTML accepts a missing content type, since many static hosts omit it.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
