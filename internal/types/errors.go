package types

import (
	"errors"
	"fmt"
)

// NotFoundError indicates that a requested entity does not exist.
type NotFoundError struct {
	Kind string // entity kind, e.g. "defect", "project"
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// ForbiddenError indicates that the actor is not permitted to perform
// an action. The reason is surfaced verbatim to the caller; permission
// failures are never silently downgraded.
type ForbiddenError struct {
	Action string
	Reason string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("%s forbidden: %s", e.Action, e.Reason)
}

// ConflictError indicates a conflicting concurrent or duplicate state:
// duplicate defect number, concurrent-edit version mismatch, or a
// duplicate role grant triple.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Reason
}

// ValidationError indicates an invalid field value in a request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsForbidden reports whether err is or wraps a ForbiddenError.
func IsForbidden(err error) bool {
	var fb *ForbiddenError
	return errors.As(err, &fb)
}

// IsConflict reports whether err is or wraps a ConflictError.
func IsConflict(err error) bool {
	var cf *ConflictError
	return errors.As(err, &cf)
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
