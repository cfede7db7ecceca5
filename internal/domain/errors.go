package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers. ErrAlreadyExists and ErrConflict
// classify as validation failures: a taken name, a duplicate proposal, or a
// definition still in use all describe a bad request, so both match
// ErrValidation under errors.Is while staying distinguishable sentinels.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrAlreadyExists = classify("already exists", ErrValidation)
	ErrConflict      = classify("conflict", ErrValidation)
)

// classified is a sentinel error that also matches a broader class.
type classified struct {
	msg   string
	class error
}

func (e *classified) Error() string { return e.msg }
func (e *classified) Unwrap() error { return e.class }

func classify(msg string, class error) error {
	return &classified{msg: msg, class: class}
}

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError contains a list of field-level validation errors.
// Validation failures are accumulated where possible and surfaced as one
// aggregated error; they unwrap to ErrValidation.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
// Returns nil when errs is empty so callers can return it directly.
func NewValidationErrors(errs []FieldError) *ValidationError {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}
