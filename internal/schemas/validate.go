// Package schemas checks model responses, function maps and analysis results
// against the embedded JSON Schemas.
package schemas

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	schemafiles "github.com/jonathan/learn-overlay/schemas"
	"github.com/xeipuuv/gojsonschema"
)

// ValidationError lists every violation found in a document.
type ValidationError struct {
	Schema string
	Errors []FieldError
}

// FieldError is one violation. Field is "(root)" for the document itself.
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	parts := make([]string, len(ve.Errors))
	for i, fe := range ve.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return fmt.Sprintf("validation failed against %s: %s", ve.Schema, strings.Join(parts, "; "))
}

// SchemaLoadError means the schema itself is missing or broken.
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// DocumentError means the document could not be read or is not JSON.
type DocumentError struct {
	Message string
	Cause   error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}

var compiled sync.Map // schema name -> *gojsonschema.Schema

// Compile returns the compiled embedded schema, compiling it on first use.
func Compile(name string) (*gojsonschema.Schema, error) {
	if s, ok := compiled.Load(name); ok {
		return s.(*gojsonschema.Schema), nil
	}

	raw, err := schemafiles.Read(name)
	if err != nil {
		return nil, &SchemaLoadError{Path: name, Message: "schema not embedded", Cause: err}
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, &SchemaLoadError{Path: name, Message: "invalid schema", Cause: err}
	}

	actual, _ := compiled.LoadOrStore(name, s)
	return actual.(*gojsonschema.Schema), nil
}

// ValidateBytes validates a JSON document against the named schema.
func ValidateBytes(name string, doc []byte) error {
	return validate(name, gojsonschema.NewBytesLoader(doc))
}

// ValidateValue validates a Go value as it would be encoded to JSON.
func ValidateValue(name string, v any) error {
	return validate(name, gojsonschema.NewGoLoader(v))
}

// ReadFile reads path and validates its contents, returning them on success.
func ReadFile(name, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &DocumentError{Message: "JSON file not found: " + path, Cause: err}
		}
		return nil, &DocumentError{Message: "failed to read " + path, Cause: err}
	}
	if err := ValidateBytes(name, data); err != nil {
		return nil, err
	}
	return data, nil
}

func validate(name string, doc gojsonschema.JSONLoader) error {
	s, err := Compile(name)
	if err != nil {
		return err
	}
	result, err := s.Validate(doc)
	if err != nil {
		return &DocumentError{Message: "document is not valid JSON", Cause: err}
	}
	if result.Valid() {
		return nil
	}

	ve := &ValidationError{Schema: name}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		ve.Errors = append(ve.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return ve
}
