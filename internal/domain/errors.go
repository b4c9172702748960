package domain

import (
	"fmt"
	"strings"
)

// ValidationError accumulates field-level messages for a 400 response.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

func NewValidationError(errs ...string) *ValidationError {
	return &ValidationError{Errors: errs}
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError signals a transition attempted from a state that does not
// permit it, or a concurrent write that lost the race.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func NewConflictError(format string, args ...any) *ConflictError {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

type AuthorizationError struct {
	Msg string
}

func (e *AuthorizationError) Error() string { return e.Msg }

func NewAuthorizationError(format string, args ...any) *AuthorizationError {
	return &AuthorizationError{Msg: fmt.Sprintf(format, args...)}
}

// UpstreamError wraps a payment provider (or other collaborator) failure.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
