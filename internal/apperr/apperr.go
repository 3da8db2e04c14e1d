// Package apperr defines the error kinds that cross the service/handler boundary.
// Backend and provider failures are converted into one of these before they reach a caller.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthenticated is returned when no valid session is present.
var ErrUnauthenticated = errors.New("authentication required")

// ErrForbidden is returned when the signed-in user may not act on a resource.
var ErrForbidden = errors.New("forbidden")

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// FieldError describes one field that failed validation.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError lists every field that violated its constraint.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field error.
func (e *ValidationError) Add(field, rule, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Rule: rule, Message: message})
}

// OrNil returns e when it holds at least one field error, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// DuplicateError is a registration rejected by a uniqueness constraint.
// Message is safe to show to the registrant.
type DuplicateError struct {
	Message string
}

func (e *DuplicateError) Error() string { return e.Message }

// ProviderError wraps a failure of an external provider (OAuth, Google Forms, calendar).
// Err carries full detail for logs; Diagnostic is the string returned to callers.
type ProviderError struct {
	Op         string
	Diagnostic string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Diagnostic)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Provider builds a ProviderError.
func Provider(op, diagnostic string, err error) *ProviderError {
	return &ProviderError{Op: op, Diagnostic: diagnostic, Err: err}
}
