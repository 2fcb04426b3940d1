package domain

import "strings"

// ValidationError lists every rule an entity or request violated.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// NewValidationError builds a ValidationError from one or more messages.
func NewValidationError(violations ...string) *ValidationError {
	return &ValidationError{Violations: violations}
}
