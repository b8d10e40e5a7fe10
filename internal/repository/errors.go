// Package repository defines the error taxonomy shared by the storage
// layer and the handlers that translate it into HTTP responses.
package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is the root of every "no such row" error.  Match it with
// errors.Is; ErrPropertyNotFound and ErrRoomNotFound wrap it.
var ErrNotFound = errors.New("not found")

var (
	ErrPropertyNotFound = fmt.Errorf("property %w", ErrNotFound)
	ErrRoomNotFound     = fmt.Errorf("room %w", ErrNotFound)
)

// ErrForbidden is returned when the caller is neither the owner of the
// property nor an administrator, or attempts an admin-only operation.
// Handlers translate it into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ValidationError reports a missing or invalid field.  It is always
// returned before any statement is executed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PersistenceError wraps a storage failure.  The transaction it occurred
// in has been rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }

// isDomainError reports whether err should reach the caller unwrapped.
func isDomainError(err error) bool {
	var ve *ValidationError
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) || errors.As(err, &ve)
}

func persistence(op string, err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
