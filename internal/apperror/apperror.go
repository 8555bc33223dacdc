// Package apperror defines the application's error taxonomy.
//
// Services return these errors; the HTTP layer maps them to status codes
// and stable machine-readable response codes in one place. Nothing below
// the handler layer knows about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrUpstream        = errors.New("upstream fetch failed")
	ErrConnExhausted   = errors.New("connection pool exhausted")
	ErrSync            = errors.New("sync failed")
)

// AppError carries a sentinel for errors.Is checks, a human-readable
// message, and a stable Code the frontend can switch on (e.g. INVALID_UID).
// Code is deliberately distinct from the HTTP status: statuses are coarse,
// codes are not.
type AppError struct {
	Err     error  // sentinel, reachable via errors.Is
	Code    string // machine-readable code, stable across releases
	Message string // human-readable description
	Field   string // optional: input field causing the error
	cause   error  // optional: underlying failure, kept for logs only
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	return e.Err
}

// Cause returns the wrapped low-level error, if any. Handlers log it but
// never serialize it into responses.
func (e *AppError) Cause() error {
	return e.cause
}

// Is lets errors.Is match the sentinel even when cause is set.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func ValidationFailed(field, code, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Code:    code,
		Message: message,
		Field:   field,
	}
}

func Unauthenticated(code, message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Code:    code,
		Message: message,
	}
}

func NotFound(code, resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Code:    code,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// UpstreamFailed records a failed call to the game-data API. The attempted
// UID goes in the message; the transport error is kept as the cause so it
// reaches logs without leaking to clients.
func UpstreamFailed(uid string, cause error) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Code:    "API_ERROR",
		Message: fmt.Sprintf("failed to fetch player data for uid %s", uid),
		cause:   cause,
	}
}

func ConnExhausted(attempts int, cause error) *AppError {
	return &AppError{
		Err:     ErrConnExhausted,
		Code:    "DB_UNAVAILABLE",
		Message: fmt.Sprintf("could not acquire a database connection after %d attempts", attempts),
		cause:   cause,
	}
}

// SyncFailed wraps any unexpected failure inside the sync workflow.
func SyncFailed(cause error) *AppError {
	return &AppError{
		Err:     ErrSync,
		Code:    "SYNC_ERROR",
		Message: "character sync failed",
		cause:   cause,
	}
}
