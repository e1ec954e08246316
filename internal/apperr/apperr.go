// Package apperr defines the error kinds shared by the scheduling components.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Callers test membership with errors.Is.
var (
	// ErrValidation marks malformed or incomplete input. Recoverable by re-prompting.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a missing entity such as an unknown session or an uninitialized day.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a lost booking race.
	ErrConflict = errors.New("conflict")
	// ErrPersistence marks a storage read or write failure.
	ErrPersistence = errors.New("persistence failure")
	// ErrNotification marks a failed or unconfigured notification channel. Never fatal.
	ErrNotification = errors.New("notification failure")
)

// Error attaches an operation name and cause to an error kind.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New builds an *Error of the given kind.
func New(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Persistence wraps a storage error. A nil err stays nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: ErrPersistence, Op: op, Err: err}
}

// Validation returns a validation error carrying a human-readable reason.
func Validation(op, reason string) error {
	return &Error{Kind: ErrValidation, Op: op, Err: errors.New(reason)}
}

// HTTPStatus maps an error to the status code the HTTP handlers return.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
