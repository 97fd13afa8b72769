package http

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Backoff defaults applied after rate limited responses.
const (
	// InitialRateLimitBackoff is the first backoff after a rate limited response.
	InitialRateLimitBackoff = 1 * time.Second
	// MaxRateLimitBackoff caps the backoff window.
	MaxRateLimitBackoff = 60 * time.Second
	// RateLimitBackoffMultiplier grows the backoff on consecutive rate limits.
	RateLimitBackoffMultiplier = 2.0
	// BackoffCooldownPeriod is how long after last error before resetting backoff
	BackoffCooldownPeriod = 5 * time.Minute
	// MinRPSMultiplier is the minimum rate reduction (0.25 = 25% of original)
	MinRPSMultiplier = 0.25
)

// RateLimiterConfig defines rate limiting behavior.
type RateLimiterConfig struct {
	// DefaultRPS is requests per second for hosts without a custom rate.
	// Zero or negative disables limiting for those hosts.
	DefaultRPS float64
	// Burst is the token bucket size (default 1).
	Burst int
	// CustomRates maps host names to RPS values.
	CustomRates map[string]float64
	// EnableDynamicBackoff reduces a host's rate after rate limited responses.
	EnableDynamicBackoff bool
}

// DefaultRateLimiterConfig returns defaults suited to the YouTube Data API.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		DefaultRPS:           5.0,
		Burst:                1,
		CustomRates:          make(map[string]float64),
		EnableDynamicBackoff: true,
	}
}

// backoffState tracks rate limit backoff for a host.
type backoffState struct {
	currentBackoff    time.Duration
	lastError         time.Time
	consecutiveErrors int
	originalRPS       float64
	reducedRPS        float64
}

// RateLimiter manages per-host request rates using token buckets.
// A nil *RateLimiter never limits.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	backoff  map[string]*backoffState
	config   RateLimiterConfig
}

// NewRateLimiter creates a new rate limiter with the given configuration.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	custom := cfg.CustomRates
	cfg.CustomRates = make(map[string]float64, len(custom))

	rl := &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		backoff:  make(map[string]*backoffState),
		config:   cfg,
	}
	for host, rps := range custom {
		rl.SetCustomRate(host, rps)
	}
	return rl
}

// Wait blocks until the host's token bucket admits a request or ctx ends.
func (rl *RateLimiter) Wait(ctx context.Context, host string) error {
	if rl == nil {
		return nil
	}
	limiter := rl.limiter(host)
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

// limiter returns the token bucket for host, creating it on first use.
// It returns nil for unlimited hosts.
func (rl *RateLimiter) limiter(host string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limiters[host]; ok {
		return limiter
	}
	rps := rl.rps(host)
	if rps <= 0 {
		return nil
	}
	limiter := rate.NewLimiter(rate.Limit(rps), rl.config.Burst)
	rl.limiters[host] = limiter
	return limiter
}

// rps returns the configured rate for host. Must be called with mu held.
func (rl *RateLimiter) rps(host string) float64 {
	if rps, ok := rl.config.CustomRates[host]; ok {
		return rps
	}
	return rl.config.DefaultRPS
}

// SetCustomRate sets a custom rate limit for a specific host, replacing any
// token bucket already built for it.
func (rl *RateLimiter) SetCustomRate(host string, rps float64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.config.CustomRates[host] = rps
	delete(rl.limiters, host)
}

// Limit returns the current rate for host, including any reduction applied
// after rate limited responses.
func (rl *RateLimiter) Limit(host string) float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limiters[host]; ok {
		return float64(limiter.Limit())
	}
	return rl.rps(host)
}

// RecordRateLimitError extends the host's backoff window and, with dynamic
// backoff enabled, lowers its rate. It returns the backoff to honour.
func (rl *RateLimiter) RecordRateLimitError(host string, retryAfter time.Duration) time.Duration {
	if rl == nil || !rl.config.EnableDynamicBackoff {
		if retryAfter > 0 {
			return retryAfter
		}
		return InitialRateLimitBackoff
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, ok := rl.backoff[host]
	if !ok {
		state = &backoffState{
			currentBackoff: InitialRateLimitBackoff,
			originalRPS:    rl.rps(host),
		}
		rl.backoff[host] = state
	}

	state.lastError = time.Now()
	state.consecutiveErrors++

	// 1s -> 2s -> 4s -> ... -> max
	if state.consecutiveErrors > 1 {
		state.currentBackoff = min(time.Duration(float64(state.currentBackoff)*RateLimitBackoffMultiplier), MaxRateLimitBackoff)
	}
	if retryAfter > state.currentBackoff {
		state.currentBackoff = retryAfter
	}

	// 1 error: 75%, 2 errors: 50%, 3+ errors: 25%
	factor := 0.75
	switch {
	case state.consecutiveErrors >= 3:
		factor = MinRPSMultiplier
	case state.consecutiveErrors == 2:
		factor = 0.5
	}
	state.reducedRPS = state.originalRPS * factor
	if limiter, ok := rl.limiters[host]; ok && state.reducedRPS > 0 {
		limiter.SetLimit(rate.Limit(state.reducedRPS))
	}

	return state.currentBackoff
}

// RecordSuccess walks a host back towards its configured rate.
func (rl *RateLimiter) RecordSuccess(host string) {
	if rl == nil || !rl.config.EnableDynamicBackoff {
		return
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, ok := rl.backoff[host]
	if !ok {
		return
	}

	if time.Since(state.lastError) > BackoffCooldownPeriod {
		if limiter, ok := rl.limiters[host]; ok && state.originalRPS > 0 {
			limiter.SetLimit(rate.Limit(state.originalRPS))
		}
		delete(rl.backoff, host)
		return
	}

	if state.consecutiveErrors > 0 {
		state.consecutiveErrors--
		// Recover to 50% of original, then full recovery after cooldown
		if state.consecutiveErrors == 0 && state.reducedRPS < state.originalRPS*0.5 {
			state.reducedRPS = state.originalRPS * 0.5
			if limiter, ok := rl.limiters[host]; ok {
				limiter.SetLimit(rate.Limit(state.reducedRPS))
			}
		}
	}
}

// BackoffRemaining returns how much of the host's backoff window is left.
func (rl *RateLimiter) BackoffRemaining(host string) time.Duration {
	if rl == nil {
		return 0
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, ok := rl.backoff[host]
	if !ok {
		return 0
	}
	return max(state.currentBackoff-time.Since(state.lastError), 0)
}

// WaitForBackoff waits for the host's backoff window to pass.
func (rl *RateLimiter) WaitForBackoff(ctx context.Context, host string) error {
	remaining := rl.BackoffRemaining(host)
	if remaining <= 0 {
		return nil
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
