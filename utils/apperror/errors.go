// Package apperror defines the typed failure taxonomy shared by services and
// translated to HTTP responses at the boundary. Services never swallow a
// validation or authorization failure; they return one of these types.
package apperror

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or out-of-range input on a named field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports an absent referenced entity.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Entity)
}

// AuthorizationError reports an authenticated actor with insufficient
// role or scope. Distinct from NotFoundError.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	if e.Reason == "" {
		return "permission denied"
	}
	return e.Reason
}

// ConflictError reports a unique-constraint violation.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// ComputationError should not surface under normal operation; it exists as a
// defensive trap for derived-value computation going wrong.
type ComputationError struct {
	Message string
}

func (e *ComputationError) Error() string {
	return e.Message
}

// Constructors

func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func NotFound(entity string) error {
	return &NotFoundError{Entity: entity}
}

func Forbidden(reason string) error {
	return &AuthorizationError{Reason: reason}
}

func Conflict(message string) error {
	return &ConflictError{Message: message}
}

// Type checks used by the response translator and by tests.

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsAuthorization(err error) bool {
	var e *AuthorizationError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}
