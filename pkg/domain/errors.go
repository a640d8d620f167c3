// Package domain holds error types shared by every bounded context of the service.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors classify a DomainError.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
)

// DomainError is an error carrying a user-facing message and a classifying sentinel.
type DomainError struct {
	Err     error
	Message string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap exposes the sentinel so errors.Is works.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewNotFoundError returns a not-found error for the given entity.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{Err: ErrNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// NewConflictError returns a conflict error.
func NewConflictError(message string) *DomainError {
	return &DomainError{Err: ErrConflict, Message: message}
}

// NewValidationError returns a validation error.
func NewValidationError(message string) *DomainError {
	return &DomainError{Err: ErrValidation, Message: message}
}

// NewUnauthorizedError returns an authentication error.
func NewUnauthorizedError(message string) *DomainError {
	return &DomainError{Err: ErrUnauthorized, Message: message}
}

// IsNotFound reports whether err is classified as not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
