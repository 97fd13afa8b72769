package ytinsight

import (
	"errors"

	"ytinsight/insight"
	"ytinsight/internal/retry"
	"ytinsight/storage"
	"ytinsight/youtube"
)

// Type aliases for convenient error handling.
type (
	// APIError wraps a failed YouTube Data API call.
	APIError = youtube.APIError
	// RetryableError wraps errors that occurred after retries were exhausted.
	RetryableError = retry.RetryableError
	// StorageError wraps errors during storage operations.
	StorageError = storage.StorageError
)

// ErrNoSource is returned by an Analyzer without a Source.
var ErrNoSource = errors.New("ytinsight: analyzer has no source")

// Sentinel errors exported from sub-packages.
var (
	// ErrMissingAPIKey indicates no API key was configured or saved.
	ErrMissingAPIKey = youtube.ErrMissingAPIKey
	// ErrEmptyKeyword indicates a blank search keyword.
	ErrEmptyKeyword = youtube.ErrEmptyKeyword
	// ErrChannelNotFound indicates the YouTube channel does not exist.
	ErrChannelNotFound = youtube.ErrChannelNotFound
	// ErrVideoNotFound indicates the YouTube video does not exist.
	ErrVideoNotFound = youtube.ErrVideoNotFound
	// ErrQuotaExceeded indicates the daily API quota is spent.
	ErrQuotaExceeded = youtube.ErrQuotaExceeded
	// ErrInvalidAPIKey indicates the API rejected the key.
	ErrInvalidAPIKey = youtube.ErrInvalidAPIKey
	// ErrInvalidDuration indicates a malformed ISO 8601 duration.
	ErrInvalidDuration = insight.ErrInvalidDuration

	// Storage errors
	// ErrNotFound indicates an entity was not found in storage.
	ErrNotFound = storage.ErrNotFound
	// ErrAlreadyExists indicates an entity already exists in storage.
	ErrAlreadyExists = storage.ErrAlreadyExists
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = storage.ErrInvalidInput
	// ErrStorageCorrupt indicates data corruption was detected.
	ErrStorageCorrupt = storage.ErrStorageCorrupt
	// ErrLockTimeout indicates a timeout acquiring a file lock.
	ErrLockTimeout = storage.ErrLockTimeout
)

// IsRetryable determines if an error should be retried.
// It returns false for context errors and errors marked permanent.
func IsRetryable(err error) bool {
	return retry.IsRetryable(err)
}
