// Package common defines shared constants and sentinel errors used across
// client and server layers of authkeeper. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrConflict   = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrAuthentication = errors.New("authentication failed")
	ErrValidation     = errors.New("validation error")
	ErrRotationFailed = errors.New("refresh token rotation failed")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// ConflictError reports a uniqueness violation on a named field.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return ErrConflict.Error()
	}
	return fmt.Sprintf("%s %s", e.Field, ErrConflict.Error())
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
