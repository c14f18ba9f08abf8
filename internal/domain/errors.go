package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks caller-supplied data that is structurally invalid
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a lookup or deletion of an id that does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a status change breaks the state machine.
	// It is always wrapped together with ErrValidation.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// NewValidationError builds an error of the validation kind
func NewValidationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NewNotFoundError builds an error of the not-found kind
func NewNotFoundError(what string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
}

// NewTransitionError reports a forbidden status transition
func NewTransitionError(from, to DownloadStatus) error {
	return fmt.Errorf("%w: %w: %s -> %s", ErrValidation, ErrInvalidTransition, from, to)
}
