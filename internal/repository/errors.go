package repository

import "fmt"

// CloneError indicates the repository could not be cloned.
type CloneError struct {
	URL     string
	Message string
	Cause   error
}

func (e *CloneError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("clone error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("clone error for %s: %s", e.URL, e.Message)
}

func (e *CloneError) Unwrap() error {
	return e.Cause
}

// IOError indicates a local filesystem failure while preparing or walking a clone.
type IOError struct {
	Path    string
	Message string
	Cause   error
}

func (e *IOError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("io error at %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("io error at %s: %s", e.Path, e.Message)
}

func (e *IOError) Unwrap() error {
	return e.Cause
}
