package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	ythttp "ytinsight/http"
)

func apiErr(code int, reason string) error {
	return &googleapi.Error{Code: code, Errors: []googleapi.ErrorItem{{Reason: reason}}}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), false},
		{"circuit open", &url.Error{Op: "Get", URL: "https://x", Err: ythttp.ErrCircuitOpen}, false},
		{"channel not found", ErrChannelNotFound, false},
		{"bad request", apiErr(400, "badRequest"), false},
		{"key invalid", apiErr(400, reasonKeyInvalid), false},
		{"unauthorized", apiErr(401, "authError"), false},
		{"quota exceeded", apiErr(403, reasonQuotaExceeded), false},
		{"user rate limit", apiErr(403, reasonRateLimitExceeded), true},
		{"not found", apiErr(404, "notFound"), false},
		{"too many requests", apiErr(429, "rateLimitExceeded"), true},
		{"backend error", apiErr(500, "backendError"), true},
		{"unavailable", apiErr(503, ""), true},
		{"network", errors.New("connection reset by peer"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

func TestTranslate(t *testing.T) {
	quota := translate(apiErr(403, reasonDailyLimitExceeded))
	assert.ErrorIs(t, quota, ErrQuotaExceeded)
	var gerr *googleapi.Error
	assert.ErrorAs(t, quota, &gerr)

	assert.ErrorIs(t, translate(apiErr(400, reasonKeyInvalid)), ErrInvalidAPIKey)
	assert.ErrorIs(t, translate(apiErr(401, "")), ErrInvalidAPIKey)

	plain := errors.New("boom")
	assert.Same(t, plain, translate(plain))

	notFound := apiErr(404, "notFound")
	assert.Equal(t, notFound, translate(notFound))
}

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{Op: "search.list", Target: "golang", Err: ErrQuotaExceeded}
	assert.Equal(t, `youtube: search.list "golang": youtube: quota exceeded`, err.Error())
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	err = &APIError{Op: "channels.list", Err: ErrChannelNotFound}
	assert.Equal(t, "youtube: channels.list: youtube: channel not found", err.Error())
}
