package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is a client error: missing or invalid input, unknown references, not enrolled...
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// AuthError means the request carries no valid identity, or an identity with the wrong role.
type AuthError struct {
	Err error
}

func NewAuthError(msg string) error {
	return &AuthError{errors.New(msg)}
}

func (err AuthError) Error() string { return err.Err.Error() }

// PermissionError means the identity is valid but may not touch the requested resource.
type PermissionError struct {
	Err error
}

func NewPermissionError(msg string) error {
	return &PermissionError{errors.New(msg)}
}

func (err PermissionError) Error() string { return err.Err.Error() }

type NotFoundError struct {
	Err error
}

func NewNotFoundError(msg string) error {
	return &NotFoundError{errors.New(msg)}
}

func (err NotFoundError) Error() string { return err.Err.Error() }

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
