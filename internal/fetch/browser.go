// Package fetch - browser.go renders pages in a headless browser.
package fetch

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// DefaultRenderTimeout bounds navigation plus the wait for network idle.
const DefaultRenderTimeout = 30 * time.Second

// BrowserRenderer loads a URL in headless Chrome, waits for the network to go
// idle and returns the rendered document HTML.
// Requires Chrome/Chromium to be installed on the system.
type BrowserRenderer struct {
	Timeout  time.Duration
	ExecPath string // optional; chromedp searches PATH when empty
	Verbose  bool
}

// NewBrowserRenderer returns a renderer with the default timeout.
func NewBrowserRenderer(verbose bool) *BrowserRenderer {
	return &BrowserRenderer{Timeout: DefaultRenderTimeout, Verbose: verbose}
}

// Render implements Renderer. The browser process is torn down on every
// return path, including timeout.
func (b *BrowserRenderer) Render(ctx context.Context, url string) (string, error) {
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	if b.Verbose {
		log.Printf("[BROWSER] Starting headless browser for: %s", url)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if b.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	renderCtx, cancelRender := context.WithTimeout(browserCtx, timeout)
	defer cancelRender()

	idle := make(chan struct{})
	var armed atomic.Bool
	var once sync.Once
	chromedp.ListenTarget(renderCtx, func(ev interface{}) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" && armed.Load() {
			once.Do(func() { close(idle) })
		}
	})

	var html string
	err := chromedp.Run(renderCtx,
		page.SetLifecycleEventsEnabled(true),
		chromedp.ActionFunc(func(context.Context) error {
			armed.Store(true)
			return nil
		}),
		chromedp.Navigate(url),
		waitForIdle(idle),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		if errors.Is(renderCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", &RenderTimeoutError{URL: url, Timeout: timeout}
		}
		return "", &Error{URL: url, Message: "browser rendering failed", Cause: err}
	}

	if b.Verbose {
		log.Printf("[BROWSER] Rendered HTML: %d bytes", len(html))
	}
	return html, nil
}

// waitForIdle blocks until the networkIdle lifecycle event has been observed.
func waitForIdle(idle <-chan struct{}) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		select {
		case <-idle:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
