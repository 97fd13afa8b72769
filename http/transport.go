// Package http provides the outbound HTTP stack for YouTube Data API calls:
// per-host rate limiting, rate-limit backoff and a circuit breaker, packaged
// as an http.RoundTripper.
package http

import (
	"net/http"
	"strconv"
	"time"
)

// Config holds HTTP client configuration.
type Config struct {
	// Timeout for individual HTTP requests
	Timeout time.Duration

	// User agent for HTTP requests
	UserAgent string

	// Rate limiter configuration
	RateLimiter RateLimiterConfig

	// Circuit breaker configuration
	CircuitBreaker CircuitBreakerConfig

	// Connection pool configuration
	Transport TransportConfig
}

// TransportConfig configures the underlying connection pool.
type TransportConfig struct {
	// MaxIdleConns is the maximum number of idle connections across all hosts.
	MaxIdleConns int
	// MaxIdleConnsPerHost is the maximum idle connections per host.
	MaxIdleConnsPerHost int
	// MaxConnsPerHost is the maximum concurrent connections per host.
	MaxConnsPerHost int
	// IdleConnTimeout is how long an idle connection may remain open.
	IdleConnTimeout time.Duration
	// ForceAttemptHTTP2 enables HTTP/2 with custom dial settings.
	ForceAttemptHTTP2 bool
}

// DefaultConfig returns sensible defaults for HTTP client configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:        30 * time.Second,
		UserAgent:      "ytinsight/1.0",
		RateLimiter:    DefaultRateLimiterConfig(),
		CircuitBreaker: DefaultCircuitBreakerConfig(),
		Transport:      DefaultTransportConfig(),
	}
}

// DefaultTransportConfig returns sensible defaults for HTTP transport configuration.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
}

// Transport is an http.RoundTripper that paces requests per host and fails
// fast while a host's circuit is open. It does not retry; retries belong to
// the caller.
type Transport struct {
	base           http.RoundTripper
	userAgent      string
	rateLimiter    *RateLimiter
	circuitBreaker *CircuitBreaker
}

// NewTransport wraps base with rate limiting and circuit breaking.
// If base is nil, a pooled http.Transport is built from cfg.Transport.
func NewTransport(cfg *Config, base http.RoundTripper) *Transport {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if base == nil {
		base = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.Transport.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.Transport.MaxIdleConnsPerHost,
			MaxConnsPerHost:     cfg.Transport.MaxConnsPerHost,
			IdleConnTimeout:     cfg.Transport.IdleConnTimeout,
			ForceAttemptHTTP2:   cfg.Transport.ForceAttemptHTTP2,
		}
	}

	return &Transport{
		base:           base,
		userAgent:      cfg.UserAgent,
		rateLimiter:    NewRateLimiter(cfg.RateLimiter),
		circuitBreaker: NewCircuitBreaker(cfg.CircuitBreaker),
	}
}

// NewClient returns an *http.Client using a Transport built from cfg.
func NewClient(cfg *Config) *http.Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: NewTransport(cfg, nil),
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	host := req.URL.Hostname()
	ctx := req.Context()

	if err := t.circuitBreaker.Allow(host); err != nil {
		return nil, err
	}
	if err := t.rateLimiter.WaitForBackoff(ctx, host); err != nil {
		return nil, err
	}
	if err := t.rateLimiter.Wait(ctx, host); err != nil {
		return nil, err
	}

	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(ctx)
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.circuitBreaker.RecordFailure(host, err)
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		retryAfter := parseRetryAfter(resp.Header)
		backoff := t.rateLimiter.RecordRateLimitError(host, retryAfter)
		t.circuitBreaker.RecordFailure(host, &RateLimitError{
			Host:       host,
			StatusCode: resp.StatusCode,
			RetryAfter: backoff,
		})
	case resp.StatusCode >= 500:
		t.circuitBreaker.RecordFailure(host, &HTTPError{Host: host, StatusCode: resp.StatusCode})
	default:
		// 4xx answers such as quota errors still prove the host is reachable.
		t.rateLimiter.RecordSuccess(host)
		t.circuitBreaker.RecordSuccess(host)
	}

	// The response is handed back unchanged; the API client decodes errors.
	return resp, nil
}

// CircuitState reports the circuit state for host.
func (t *Transport) CircuitState(host string) CircuitState {
	return t.circuitBreaker.State(host)
}

// RateLimiter exposes the transport's rate limiter.
func (t *Transport) RateLimiter() *RateLimiter {
	return t.rateLimiter
}

// CloseIdleConnections closes idle connections of the base transport.
func (t *Transport) CloseIdleConnections() {
	type closeIdler interface{ CloseIdleConnections() }
	if c, ok := t.base.(closeIdler); ok {
		c.CloseIdleConnections()
	}
}

// parseRetryAfter extracts the Retry-After header value, in seconds or as
// an HTTP date. Returns 0 if absent or unparseable.
func parseRetryAfter(header http.Header) time.Duration {
	retryAfter := header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(retryAfter); err == nil {
		return max(time.Until(t), 0)
	}
	return 0
}
