package tools

import (
	"fmt"
)

// ValidationError reports tool input that failed schema validation.
// The tool is never executed when input is invalid.
type ValidationError struct {
	Tool   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input for tool %s: %s", e.Tool, e.Reason)
}
