// Package funcmap turns raw model responses into a FunctionMap. It never
// fails: unusable responses are discarded and an empty result is replaced by
// a fixed per-kind fallback.
package funcmap

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/jonathan/learn-overlay/internal/llm"
	"github.com/jonathan/learn-overlay/internal/schemas"
	"github.com/jonathan/learn-overlay/internal/types"
	schemafiles "github.com/jonathan/learn-overlay/schemas"
)

var pageFallback = types.FunctionMap{
	"main-header":  "The main header of the page, usually holding the logo and primary navigation.",
	"navigation":   "Navigation links for moving between the main sections of the site.",
	"main-content": "The primary content area of the page.",
	"footer":       "The page footer with secondary links and site information.",
}

var repoFallback = types.FunctionMap{
	"main-component":   "The main component of the application.",
	"api-endpoint":     "An API endpoint that handles requests from the interface.",
	"data-model":       "A data model describing the information the application works with.",
	"utility-function": "A helper function shared across the codebase.",
}

// Fallback returns a fresh copy of the fixed map for kind.
func Fallback(kind types.TargetKind) types.FunctionMap {
	if kind == types.TargetRepo {
		return repoFallback.Clone()
	}
	return pageFallback.Clone()
}

// Normalize merges every response that parses as a JSON object of strings,
// in order, so later responses win on key collisions. Entries with a blank
// key or value are dropped. If nothing survives, the fallback for kind is
// returned.
func Normalize(raw []string, kind types.TargetKind) types.FunctionMap {
	merged := make(types.FunctionMap)
	for i, r := range raw {
		entries, err := Parse(r)
		if err != nil {
			log.Printf("[FUNCMAP] discarding response %d: %v", i, err)
			continue
		}
		for k, v := range entries {
			merged[k] = v
		}
	}

	if len(merged) == 0 {
		log.Printf("[FUNCMAP] no usable entries, using %s fallback", kind)
		return Fallback(kind)
	}
	return merged
}

// Parse decodes one raw response. The result may be empty.
func Parse(raw string) (types.FunctionMap, error) {
	cleaned := strings.TrimSpace(llm.CleanJSONBlock(raw))
	if cleaned == "" {
		return nil, &ParseError{Message: "empty response"}
	}

	if err := schemas.ValidateBytes(schemafiles.FunctionMap, []byte(cleaned)); err != nil {
		return nil, &ParseError{Message: "response is not an object of strings", Cause: err}
	}

	var decoded map[string]string
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return nil, &ParseError{Message: "failed to decode response", Cause: err}
	}

	out := make(types.FunctionMap, len(decoded))
	for k, v := range decoded {
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out, nil
}

// ParseError describes why a response was discarded. It never leaves the
// package through Normalize.
type ParseError struct {
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
