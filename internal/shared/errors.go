package shared

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every domain package. httpx maps these to status codes.
var (
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized indicates a missing or invalid credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the caller lacks a capability.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates the request conflicts with current state.
	ErrConflict = errors.New("conflict")
)

// Invalid wraps a validation message.
func Invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// NotFound wraps a not-found message for the named entity.
func NotFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}
