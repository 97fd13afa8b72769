package http

import (
	"errors"
	"fmt"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker for a host is open.
var ErrCircuitOpen = errors.New("http: circuit breaker is open")

// RateLimitError records a rate limited response (429 or 503).
type RateLimitError struct {
	// Host is the host that rate limited the request.
	Host string
	// StatusCode is the HTTP status code (429 or 503)
	StatusCode int
	// RetryAfter indicates how long to wait before retrying
	RetryAfter time.Duration
}

// Error returns a string representation of the rate limit error.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("http: %s rate limited (status %d): retry after %v", e.Host, e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("http: %s rate limited (status %d)", e.Host, e.StatusCode)
}

// HTTPError records a server-side failure (5xx).
type HTTPError struct {
	// Host is the host that answered.
	Host string
	// StatusCode is the HTTP status code
	StatusCode int
}

// Error returns a string representation of the HTTP error.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("http: %s status %d", e.Host, e.StatusCode)
}

// IsTransientHTTPError reports whether err should count against a host's
// circuit. Rate limits, 5xx responses and network failures do; other
// errors do not.
func IsTransientHTTPError(err error) bool {
	if err == nil {
		return false
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == 429
	}

	return true
}
