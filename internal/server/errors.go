package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/learn-overlay/internal/analysis"
)

// ErrProjectNotFound indicates no project matched an id or access key
type ErrProjectNotFound struct {
	ID  int64
	Key string
}

func (e *ErrProjectNotFound) Error() string {
	if e.Key != "" {
		return "no project for access key"
	}
	return fmt.Sprintf("project not found: %d", e.ID)
}

// ErrInvalidCredentials indicates a failed operator login
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid credentials"
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		notFound    *ErrProjectNotFound
		badCreds    *ErrInvalidCredentials
		badRequest  *ErrValidation
		badAnalysis *analysis.ValidationError
		failed      *analysis.AnalysisError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &badCreds):
		return http.StatusUnauthorized
	case errors.As(err, &badRequest), errors.As(err, &badAnalysis):
		return http.StatusBadRequest
	case errors.As(err, &failed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides internal failures from API clients.
func publicMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
