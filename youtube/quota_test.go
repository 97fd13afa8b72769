package youtube

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuotaTracker(t *testing.T) {
	q := newQuotaTracker(1000)

	remaining, exhausted := q.use(costSearch)
	assert.Equal(t, 900, remaining)
	assert.False(t, exhausted)

	remaining, exhausted = q.use(900)
	assert.Equal(t, 0, remaining)
	assert.True(t, exhausted, "the call that spends the last unit reports exhaustion")

	_, exhausted = q.use(costList)
	assert.False(t, exhausted, "exhaustion is reported once")

	_, exhausted = q.estimate()
	assert.True(t, exhausted)
}

func TestQuotaTrackerDailyReset(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	q := newQuotaTracker(0)
	q.now = func() time.Time { return now }
	q.resetAt = now

	q.exhaust()
	remaining, exhausted := q.estimate()
	assert.Equal(t, 0, remaining)
	assert.True(t, exhausted)

	now = now.Add(25 * time.Hour)
	remaining, exhausted = q.use(1)
	assert.Equal(t, DefaultDailyQuota-1, remaining)
	assert.False(t, exhausted)
}
