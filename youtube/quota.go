package youtube

import (
	"sync"
	"time"
)

// DefaultDailyQuota is the Data API's default daily allowance in units.
const DefaultDailyQuota = 10000

// Unit costs of the calls the client makes.
const (
	costSearch = 100
	costList   = 1
)

// quotaTracker keeps a local estimate of the remaining daily quota. The API
// does not report usage, so the estimate resets a day after the last reset.
type quotaTracker struct {
	mu        sync.Mutex
	limit     int
	remaining int
	resetAt   time.Time
	exhausted bool
	now       func() time.Time
}

func newQuotaTracker(limit int) *quotaTracker {
	if limit <= 0 {
		limit = DefaultDailyQuota
	}
	return &quotaTracker{
		limit:     limit,
		remaining: limit,
		resetAt:   time.Now(),
		now:       time.Now,
	}
}

// use subtracts units and returns the new estimate. It reports true when
// this call exhausted the quota.
func (q *quotaTracker) use(units int) (remaining int, exhausted bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.resetIfDue()
	q.remaining -= units
	if q.remaining <= 0 && !q.exhausted {
		q.exhausted = true
		return q.remaining, true
	}
	return q.remaining, false
}

// exhaust marks the quota as spent after the API said so.
func (q *quotaTracker) exhaust() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.resetIfDue()
	q.remaining = 0
	q.exhausted = true
}

func (q *quotaTracker) estimate() (remaining int, exhausted bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.resetIfDue()
	return q.remaining, q.exhausted
}

// resetIfDue must be called with mu held.
func (q *quotaTracker) resetIfDue() {
	if q.now().Sub(q.resetAt) > 24*time.Hour {
		q.remaining = q.limit
		q.exhausted = false
		q.resetAt = q.now()
	}
}
