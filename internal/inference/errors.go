package inference

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error is an inference failure with a transient/permanent classification.
// Transient errors (timeouts, rate limits, 5xx responses) may be retried;
// permanent errors (bad credentials, malformed requests) may not.
type Error struct {
	// Provider is the name of the backend that produced the error.
	Provider string
	// StatusCode is the HTTP status code, 0 if the call never reached the backend.
	StatusCode int
	// Transient indicates the call may succeed if retried.
	Transient bool
	// Cause is the underlying error.
	Cause error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s inference error (status %d): %v", e.Provider, kind, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("%s: %s inference error: %v", e.Provider, kind, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// IsTransient reports whether err is an inference error that may be retried.
// Context deadline expiry counts as transient (the attempt timed out);
// explicit cancellation does not.
func IsTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var infErr *Error
	if errors.As(err, &infErr) {
		return infErr.Transient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// transientStatus reports whether an HTTP status code indicates a transient
// backend condition.
func transientStatus(code int) bool {
	switch {
	case code == 408 || code == 429:
		return true
	case code >= 500:
		return true
	default:
		return false
	}
}

// wrapAPIError classifies an error from a provider SDK call. Errors without
// a status code (network-level failures) are treated as transient unless the
// context was canceled.
func wrapAPIError(provider string, statusCode int, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	transient := true
	if statusCode != 0 {
		transient = transientStatus(statusCode)
	}
	return &Error{
		Provider:   provider,
		StatusCode: statusCode,
		Transient:  transient,
		Cause:      err,
	}
}
