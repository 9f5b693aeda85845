package errors

import (
	"errors"
	"fmt"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrTaskNotFound    = errors.New("task not found")
	ErrNoFields        = errors.New("project has no field definitions")
	ErrNoAIConfig      = errors.New("no AI configuration available")
	ErrBatchNotFound   = errors.New("import batch not found")
	ErrInvalidState    = errors.New("operation not allowed in current task state")
	ErrNoJSONFound     = errors.New("no JSON object found in AI response")
	ErrInvalidWorkbook = errors.New("invalid or unreadable workbook")
)

// AIRequestError is returned when the AI endpoint answers with a non-2xx
// status. The body is kept for diagnosis; user-facing messages only carry
// the status code.
type AIRequestError struct {
	StatusCode int
	Body       string
}

func (e AIRequestError) Error() string {
	return fmt.Sprintf("AI API returned status %d: %s", e.StatusCode, e.Body)
}

// ValidationError describes a single per-row field failure. Rows collect
// these as messages; they classify the row, they never abort the run.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}
