// Package plugin compiles a FunctionMap into a standalone browser script.
//
// The embedded variant carries the map as a literal and makes no network
// calls. The fetching variant requests the map once from a lookup endpoint
// and stays inert if that request fails.
package plugin

import (
	_ "embed"
	"encoding/json"
	"regexp"
	"strings"
	"text/template"

	"github.com/jonathan/learn-overlay/internal/types"
)

// DefaultMarkerAttribute is the attribute host pages put on explainable elements.
const DefaultMarkerAttribute = "data-learn-id"

// DefaultButtonLabel is the toggle control's label.
const DefaultButtonLabel = "Learn mode"

//go:embed runtime.js.tmpl
var runtimeSource string

var runtimeTemplate = template.Must(template.New("runtime").Parse(runtimeSource))

var attributePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.:-]*$`)

// Options tune the generated script.
type Options struct {
	MarkerAttribute string
	ButtonLabel     string
}

// DefaultOptions returns the options used when fields are left empty.
func DefaultOptions() Options {
	return Options{
		MarkerAttribute: DefaultMarkerAttribute,
		ButtonLabel:     DefaultButtonLabel,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if strings.TrimSpace(o.MarkerAttribute) != "" {
		d.MarkerAttribute = strings.TrimSpace(o.MarkerAttribute)
	}
	if strings.TrimSpace(o.ButtonLabel) != "" {
		d.ButtonLabel = strings.TrimSpace(o.ButtonLabel)
	}
	return d
}

type runtimeData struct {
	Marker      string
	ButtonLabel string
	Map         string
	Endpoint    string
	Key         string
}

// CompileEmbedded returns a script with fm embedded as a literal.
func CompileEmbedded(fm types.FunctionMap, opts Options) (string, error) {
	if fm == nil {
		return "", &CompileError{Message: "function map is nil"}
	}
	mapJSON, err := jsLiteral(map[string]string(fm))
	if err != nil {
		return "", err
	}
	return render(opts, mapJSON, "", "")
}

// CompileFetching returns a script that loads its map from endpoint using
// key. An empty key makes the script read the data-key attribute of its own
// script tag instead.
func CompileFetching(endpoint, key string, opts Options) (string, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", &CompileError{Message: "lookup endpoint is required"}
	}
	return render(opts, "null", endpoint, strings.TrimSpace(key))
}

func render(opts Options, mapJSON, endpoint, key string) (string, error) {
	opts = opts.withDefaults()
	if !attributePattern.MatchString(opts.MarkerAttribute) {
		return "", &CompileError{Message: "invalid marker attribute " + opts.MarkerAttribute}
	}

	data := runtimeData{Map: mapJSON}
	for _, f := range []struct {
		dst *string
		val string
	}{
		{&data.Marker, opts.MarkerAttribute},
		{&data.ButtonLabel, opts.ButtonLabel},
		{&data.Endpoint, endpoint},
		{&data.Key, key},
	} {
		lit, err := jsLiteral(f.val)
		if err != nil {
			return "", err
		}
		*f.dst = lit
	}

	var sb strings.Builder
	if err := runtimeTemplate.Execute(&sb, data); err != nil {
		return "", &CompileError{Message: "failed to render runtime", Cause: err}
	}
	return sb.String(), nil
}

// jsLiteral encodes v as JSON, which is also a valid JS expression. The
// encoder escapes <, > and & so the output cannot close a script element.
func jsLiteral(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", &CompileError{Message: "failed to encode value", Cause: err}
	}
	return string(b), nil
}
