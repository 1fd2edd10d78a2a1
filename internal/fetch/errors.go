package fetch

import (
	"fmt"
	"time"
)

// Error represents a failure to fetch or render a URL.
type Error struct {
	URL       string
	Message   string
	Cause     error
	Retryable bool
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// RenderTimeoutError indicates the page did not reach network idle in time.
type RenderTimeoutError struct {
	URL     string
	Timeout time.Duration
}

func (e *RenderTimeoutError) Error() string {
	return fmt.Sprintf("render timeout for %s after %s", e.URL, e.Timeout)
}

// DigestError represents a failure to turn rendered HTML into a digest.
type DigestError struct {
	Message string
	Cause   error
}

func (e *DigestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("digest error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("digest error: %s", e.Message)
}

func (e *DigestError) Unwrap() error {
	return e.Cause
}
