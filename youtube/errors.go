package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	ythttp "ytinsight/http"
)

// Sentinel errors for YouTube Data API operations.
var (
	ErrMissingAPIKey   = errors.New("youtube: API key required")
	ErrEmptyKeyword    = errors.New("youtube: search keyword is empty")
	ErrChannelNotFound = errors.New("youtube: channel not found")
	ErrVideoNotFound   = errors.New("youtube: video not found")
	ErrQuotaExceeded   = errors.New("youtube: quota exceeded")
	ErrInvalidAPIKey   = errors.New("youtube: invalid API key")
)

// APIError wraps a failed API operation.
type APIError struct {
	// Op is the API method, e.g. "search.list".
	Op string
	// Target is the keyword or ids the call was made for.
	Target string
	Err    error
}

func (e *APIError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("youtube: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("youtube: %s %q: %v", e.Op, e.Target, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Error reasons reported by the Data API.
const (
	reasonQuotaExceeded      = "quotaExceeded"
	reasonDailyLimitExceeded = "dailyLimitExceeded"
	reasonRateLimitExceeded  = "rateLimitExceeded"
	reasonKeyInvalid         = "keyInvalid"
	reasonKeyExpired         = "keyExpired"
)

// isRetryable classifies API errors for internal/retry. Client errors are
// permanent, except per-user rate limits; 429, 5xx and transport failures
// are retried.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ythttp.ErrCircuitOpen) || errors.Is(err, ErrChannelNotFound) || errors.Is(err, ErrVideoNotFound) {
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
			return true
		case hasReason(apiErr, reasonRateLimitExceeded):
			return true
		default:
			return false
		}
	}

	return true
}

// translate attaches the matching sentinel to known API failures, keeping
// the original error in the chain.
func translate(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case hasReason(apiErr, reasonQuotaExceeded, reasonDailyLimitExceeded):
		return fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
	case hasReason(apiErr, reasonKeyInvalid, reasonKeyExpired):
		return fmt.Errorf("%w: %w", ErrInvalidAPIKey, err)
	case apiErr.Code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", ErrInvalidAPIKey, err)
	}
	return err
}

func hasReason(apiErr *googleapi.Error, reasons ...string) bool {
	for _, item := range apiErr.Errors {
		for _, r := range reasons {
			if item.Reason == r {
				return true
			}
		}
	}
	return false
}

// isAPIResponse reports whether err came back from the API, as opposed to
// failing before a request was answered.
func isAPIResponse(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr)
}

func isQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}
