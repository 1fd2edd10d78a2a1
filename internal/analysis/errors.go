package analysis

import "fmt"

// ValidationError reports bad input. It is returned before any extraction
// or generation call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Stages reported by AnalysisError.
const (
	StageExtract  = "extract"
	StageGenerate = "generate"
	StageIssueKey = "issue_key"
)

// AnalysisError wraps a fatal failure in one pipeline stage.
type AnalysisError struct {
	Stage string
	Cause error
}

func (e *AnalysisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("analysis failed during %s: %v", e.Stage, e.Cause)
	}
	return fmt.Sprintf("analysis failed during %s", e.Stage)
}

func (e *AnalysisError) Unwrap() error {
	return e.Cause
}
