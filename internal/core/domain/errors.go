package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSyncInProgress indicates a sync is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrInvalidTransition indicates the requested trigger is not allowed
	// from the current run state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrAuthRequired indicates no credentials are configured.
	ErrAuthRequired = errors.New("authentication required")
)

// ErrorKind classifies failures for status reporting.
type ErrorKind string

const (
	KindTransport  ErrorKind = "transport"
	KindAuth       ErrorKind = "auth"
	KindValidation ErrorKind = "validation"
	KindStorage    ErrorKind = "storage"
	KindCancelled  ErrorKind = "cancelled"
	KindInternal   ErrorKind = "internal"
)

// TransportError is a network, timeout or HTTP status failure talking to the remote API.
type TransportError struct {
	Op         string
	StatusCode int

	// Temporary is true for failures worth retrying (timeouts, 429, 5xx).
	Temporary bool

	// RetryAfter is the server-requested delay, when one was sent.
	RetryAfter time.Duration

	Err error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError means the remote API rejected the credentials.
type AuthError struct {
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("auth: rejected with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("auth: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ValidationError means a page did not have the expected shape.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
	}
	return "validation: " + e.Reason
}

// StorageError wraps a persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err unless it is nil or already a StorageError.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// KindOf classifies an error.
func KindOf(err error) ErrorKind {
	var (
		authErr       *AuthError
		validationErr *ValidationError
		storageErr    *StorageError
		transportErr  *TransportError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &authErr), errors.Is(err, ErrAuthRequired):
		return KindAuth
	case errors.As(err, &validationErr):
		return KindValidation
	case errors.As(err, &storageErr):
		return KindStorage
	case errors.As(err, &transportErr):
		return KindTransport
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindInternal
	}
}

// IsRetryable reports whether err is a temporary transport failure.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Temporary
	}
	return false
}
