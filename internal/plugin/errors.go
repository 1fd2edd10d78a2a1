package plugin

import "fmt"

// CompileError is returned when the plugin script cannot be produced.
type CompileError struct {
	Message string
	Cause   error
}

func (e *CompileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("plugin compile failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("plugin compile failed: %s", e.Message)
}

func (e *CompileError) Unwrap() error {
	return e.Cause
}
