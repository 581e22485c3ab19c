// Package apperrors defines the error kinds shared by the services and the
// transport layers. Service errors carry a human-readable message and match
// one kind with errors.Is.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrInvalidOrExpiredToken  = errors.New("invalid or expired token")
)

// Error is a message tagged with one of the kinds above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func New(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap prefixes err with the failing operation, keeping its kind.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Kind returns the kind err matches, or nil for unclassified failures.
func Kind(err error) error {
	for _, kind := range []error{
		ErrInvalidInput,
		ErrNotFound,
		ErrConflict,
		ErrAuthenticationRequired,
		ErrUnauthorized,
		ErrInvalidCredentials,
		ErrInvalidOrExpiredToken,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Code is the stable identifier of a kind used in GraphQL error extensions.
func Code(err error) string {
	switch Kind(err) {
	case ErrInvalidInput:
		return "INVALID_INPUT"
	case ErrNotFound:
		return "NOT_FOUND"
	case ErrConflict:
		return "CONFLICT"
	case ErrAuthenticationRequired:
		return "AUTHENTICATION_REQUIRED"
	case ErrUnauthorized:
		return "UNAUTHORIZED"
	case ErrInvalidCredentials:
		return "INVALID_CREDENTIALS"
	case ErrInvalidOrExpiredToken:
		return "INVALID_OR_EXPIRED_TOKEN"
	default:
		return "INTERNAL"
	}
}
