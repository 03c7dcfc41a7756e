package listing

import (
	"errors"

	"github.com/erazemk/dukandaar/internal/validation"
)

// Failure reasons. Every operation that fails returns an error matching
// exactly one of these with errors.Is.
var (
	ErrUnauthorized = errors.New("not allowed")
	ErrNotFound     = errors.New("listing not found")
	ErrInvalidState = errors.New("listing is not in a valid state for this action")
	ErrConflict     = errors.New("listing was modified by someone else")
	ErrValidation   = errors.New("validation failed")
)

// ValidationError carries the per-field details of a rejected input.
type ValidationError struct {
	Details *validation.Error
}

func (e *ValidationError) Error() string {
	return e.Details.Error()
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Unwrap returns the field errors.
func (e *ValidationError) Unwrap() error {
	return e.Details
}

func invalid(v *validation.Error) error {
	if v == nil || len(v.Fields) == 0 {
		return nil
	}
	return &ValidationError{Details: v}
}

func newFieldError(field, tag, message string) *validation.Error {
	e := &validation.Error{}
	e.Add(field, tag, message)
	return e
}
