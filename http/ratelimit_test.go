package http

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiterDefaults(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{DefaultRPS: 2})
	require.NotNil(t, rl)
	assert.Equal(t, 1, rl.config.Burst)
	assert.NotNil(t, rl.config.CustomRates)
}

func TestRateLimiterWaitPaces(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{DefaultRPS: 10})
	ctx := context.Background()

	require.NoError(t, rl.Wait(ctx, "api.example.com"))

	start := time.Now()
	require.NoError(t, rl.Wait(ctx, "api.example.com"))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestRateLimiterHostsAreIndependent(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{DefaultRPS: 1})
	ctx := context.Background()

	require.NoError(t, rl.Wait(ctx, "a.example.com"))

	start := time.Now()
	require.NoError(t, rl.Wait(ctx, "b.example.com"))
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestRateLimiterContextCanceled(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{DefaultRPS: 0.5})
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, rl.Wait(ctx, "api.example.com"))
	cancel()
	assert.Error(t, rl.Wait(ctx, "api.example.com"))
}

func TestRateLimiterUnlimited(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{DefaultRPS: 0})
	ctx := context.Background()

	start := time.Now()
	for range 20 {
		require.NoError(t, rl.Wait(ctx, "api.example.com"))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRateLimiterCustomRate(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	assert.InDelta(t, 5.0, rl.Limit("api.example.com"), 0.001)

	rl.SetCustomRate("api.example.com", 2)
	assert.InDelta(t, 2.0, rl.Limit("api.example.com"), 0.001)
	assert.InDelta(t, 5.0, rl.Limit("other.example.com"), 0.001)
}

func TestRateLimiterCustomRatesFromConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()
	cfg.CustomRates["youtube.googleapis.com"] = 1

	rl := NewRateLimiter(cfg)
	assert.InDelta(t, 1.0, rl.Limit("youtube.googleapis.com"), 0.001)
	assert.InDelta(t, 5.0, rl.Limit("other.example.com"), 0.001)

	rl.SetCustomRate("other.example.com", 3)
	_, leaked := cfg.CustomRates["other.example.com"]
	assert.False(t, leaked, "limiter must not write into the caller's map")
}

func TestRateLimiterDynamicBackoff(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{DefaultRPS: 8, EnableDynamicBackoff: true})
	host := "api.example.com"
	require.NoError(t, rl.Wait(context.Background(), host))

	assert.Equal(t, InitialRateLimitBackoff, rl.RecordRateLimitError(host, 0))
	assert.InDelta(t, 6.0, rl.Limit(host), 0.001)

	assert.Equal(t, 2*InitialRateLimitBackoff, rl.RecordRateLimitError(host, 0))
	assert.InDelta(t, 4.0, rl.Limit(host), 0.001)

	assert.Equal(t, 4*InitialRateLimitBackoff, rl.RecordRateLimitError(host, 0))
	assert.InDelta(t, 2.0, rl.Limit(host), 0.001)

	assert.Greater(t, rl.BackoffRemaining(host), time.Duration(0))
}

func TestRateLimiterRetryAfterExtendsBackoff(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	assert.Equal(t, 10*time.Second, rl.RecordRateLimitError("api.example.com", 10*time.Second))
}

func TestRateLimiterBackoffCapped(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	var last time.Duration
	for range 10 {
		last = rl.RecordRateLimitError("api.example.com", 0)
	}
	assert.Equal(t, MaxRateLimitBackoff, last)
}

func TestRateLimiterRecordSuccessRecovers(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{DefaultRPS: 8, EnableDynamicBackoff: true})
	host := "api.example.com"
	require.NoError(t, rl.Wait(context.Background(), host))

	for range 3 {
		rl.RecordRateLimitError(host, 0)
	}
	assert.InDelta(t, 2.0, rl.Limit(host), 0.001)

	for range 3 {
		rl.RecordSuccess(host)
	}
	assert.InDelta(t, 4.0, rl.Limit(host), 0.001)
}

func TestRateLimiterWithoutDynamicBackoff(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{DefaultRPS: 8})
	assert.Equal(t, InitialRateLimitBackoff, rl.RecordRateLimitError("api.example.com", 0))
	assert.Equal(t, time.Duration(0), rl.BackoffRemaining("api.example.com"))
}

func TestRateLimiterWaitForBackoffCanceled(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	rl.RecordRateLimitError("api.example.com", 30*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rl.WaitForBackoff(ctx, "api.example.com"), context.DeadlineExceeded)
}

func TestNilRateLimiter(t *testing.T) {
	var rl *RateLimiter
	assert.NoError(t, rl.Wait(context.Background(), "api.example.com"))
	assert.NoError(t, rl.WaitForBackoff(context.Background(), "api.example.com"))
	assert.Equal(t, time.Duration(0), rl.BackoffRemaining("api.example.com"))
	assert.Equal(t, InitialRateLimitBackoff, rl.RecordRateLimitError("api.example.com", 0))
	rl.RecordSuccess("api.example.com")
}
