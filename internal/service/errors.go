package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/weiawesome/vlog-interaction-service/internal/repository"
)

// Error kinds. Match them with errors.Is.
var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidOperation      = errors.New("invalid operation")
	ErrAlreadyExists         = errors.New("already exists")
	ErrForbidden             = errors.New("forbidden")
	ErrValidation            = errors.New("validation error")
	ErrTransactionAborted    = errors.New("transaction aborted")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// Error is the error type returned by the engine. Error() returns only the
// public message; the underlying cause stays reachable through Unwrap for logging.
type Error struct {
	Kind    error
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

// Is matches the error kind. AlreadyExists is a kind of InvalidOperation.
func (e *Error) Is(target error) bool {
	if target == e.Kind {
		return true
	}
	return e.Kind == ErrAlreadyExists && target == ErrInvalidOperation
}

// Retryable reports whether the caller may retry the operation unchanged.
func (e *Error) Retryable() bool {
	return e.Kind == ErrTransactionAborted
}

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFound(what, id string) *Error {
	return newError(ErrNotFound, "%s %s not found", what, id)
}

func validation(format string, args ...interface{}) *Error {
	return newError(ErrValidation, format, args...)
}

// IsRetryable reports whether err is a transient failure safe to retry.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}

// translate maps an error escaping a transaction onto the public taxonomy.
// Errors already typed pass through unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	switch {
	case errors.Is(err, repository.ErrConflict):
		return &Error{Kind: ErrTransactionAborted, Message: "concurrent update, retry the request", cause: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: ErrTransactionAborted, Message: "transaction timed out, retry the request", cause: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: ErrTransactionAborted, Message: "request cancelled", cause: err}
	default:
		return &Error{Kind: ErrTransactionAborted, Message: "storage failure, retry the request", cause: err}
	}
}

// notFoundOr turns repository.ErrNotFound into a typed NotFound for the given
// record and leaves other errors untouched.
func notFoundOr(err error, what, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(what, id)
	}
	return err
}
