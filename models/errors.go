package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared across the engine. Callers branch with errors.Is /
// errors.As; stores and services wrap these with context via %w.
var (
	// ErrNoComparables: the comparables gateway returned zero records,
	// pricing cannot proceed. Surfaced to the caller, who may broaden the
	// comparable search.
	ErrNoComparables = errors.New("no comparables available")

	// ErrInvalidTransition: a negotiation step was attempted against a
	// deal already in a terminal state.
	ErrInvalidTransition = errors.New("deal is in a terminal state")

	// ErrNotFound: unknown deal or listing id.
	ErrNotFound = errors.New("not found")

	// ErrConflict: a concurrent write to negotiation state was detected.
	// Safe to retry once with the freshest state.
	ErrConflict = errors.New("concurrent negotiation state update")
)

// ValidationError marks malformed caller input. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Validationf builds a ValidationError for the given field.
func Validationf(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
