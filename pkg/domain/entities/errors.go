package entities

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks lookups of unknown ids. It is always wrapped in a ValidationError.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict marks a stale optimistic-lock version. It is wrapped in a ConflictError.
	ErrVersionConflict = errors.New("version conflict")
)

// ValidationError reports bad caller input: non-positive quantities, out-of-range values, unknown ids.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a ValidationError for a named field
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError creates a ValidationError wrapping ErrNotFound
func NewNotFoundError(kind, id string) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf("%s %s not found", kind, id), Err: ErrNotFound}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// InvalidStateError reports an illegal state transition. Callers must reload the record before retrying.
type InvalidStateError struct {
	Entity    string
	ID        string
	Current   string
	Requested string
}

// NewInvalidStateError creates an InvalidStateError naming the current and requested states
func NewInvalidStateError(entity, id, current, requested string) *InvalidStateError {
	return &InvalidStateError{Entity: entity, ID: id, Current: current, Requested: requested}
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s: invalid transition from %s to %s", e.Entity, e.ID, e.Current, e.Requested)
}

// ConflictError reports a condition that needs operator intervention: missing or broken
// reference data, zero-division in scaling, collaborator failures, stale versions.
type ConflictError struct {
	Message string
	Err     error
}

// NewConflictError creates a ConflictError with an optional cause
func NewConflictError(cause error, format string, args ...any) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...), Err: cause}
}

func (e *ConflictError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}
