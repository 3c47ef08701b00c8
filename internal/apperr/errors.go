// Package apperr holds the error taxonomy shared by storage, session and HTTP layers.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError marks input or persisted data that failed validation.
// Callers recover by discarding the data and falling back to a safe default.
type ValidationError struct {
	What   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.What, e.Reason)
}

// Invalid builds a ValidationError.
func Invalid(what, format string, args ...any) error {
	return &ValidationError{What: what, Reason: fmt.Sprintf(format, args...)}
}

// ExternalServiceError wraps a failure of a collaborator such as the catalog,
// the record store or the plan generator.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// External wraps err as an ExternalServiceError, passing nil through.
func External(service string, err error) error {
	if err == nil {
		return nil
	}
	return &ExternalServiceError{Service: service, Err: err}
}

// RateLimitExceededError is returned when a gated call is over its quota.
type RateLimitExceededError struct {
	Remaining int
	Limit     int
	ResetAt   time.Time
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d/%d remaining, resets at %s",
		e.Remaining, e.Limit, e.ResetAt.Format(time.RFC3339))
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
