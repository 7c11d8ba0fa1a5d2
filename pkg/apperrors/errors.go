// Package apperrors defines the domain error taxonomy shared by all services.
//
// Every failure a service can surface to a caller is classified by a Kind.
// Handlers translate kinds into HTTP status codes; services and entities only
// ever deal in kinds. None of these errors are process-fatal.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindAlreadyExists    Kind = "already_exists"
	KindInvalidRole      Kind = "invalid_role"
	KindInvalidPassword  Kind = "invalid_password"
	KindCodeNotGenerated Kind = "code_not_generated"
	KindCodeExpired      Kind = "code_expired"
	KindCodeMismatch     Kind = "code_mismatch"
	KindInvalidToken     Kind = "invalid_token"
	KindUnauthorized     Kind = "unauthorized"
)

// Error is a domain error with a kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error with the given kind and formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or the empty string if err is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// Is reports whether err is a domain error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsNotFound reports whether err is a not-found domain error.
func IsNotFound(err error) bool {
	return Is(err, KindNotFound)
}

// IsAlreadyExists reports whether err is a conflict domain error.
func IsAlreadyExists(err error) bool {
	return Is(err, KindAlreadyExists)
}

// IsUnauthorized reports whether err is an authentication boundary failure.
func IsUnauthorized(err error) bool {
	return Is(err, KindUnauthorized)
}
