package gnews

import (
	"context"
	"fmt"
	"time"
)

// ConfigurationError reports an invalid client configuration.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("gnews: invalid configuration %s: %s", e.Field, e.Reason)
}

// ValidationError reports invalid call arguments detected before any request is sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("gnews: %s", e.Reason)
}

// TimeoutError reports that the bounded wait expired before the response completed.
type TimeoutError struct {
	Wait time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("gnews: request timed out after %dms", e.Wait.Milliseconds())
}

// Unwrap lets errors.Is(err, context.DeadlineExceeded) match.
func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// NetworkError wraps a transport failure: DNS, refused connection, TLS, or
// cancellation of the caller's context.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("gnews: network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError reports a non-success HTTP status or a success response whose body
// could not be decoded. Message is the server-provided message when one could
// be extracted.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gnews: api error (status %d): %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("gnews: api error (status %d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }
