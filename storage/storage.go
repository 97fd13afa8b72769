// Package storage persists the saved API key and the search history.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for common storage conditions.
var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("storage: not found")
	// ErrAlreadyExists indicates the entity already exists in storage.
	ErrAlreadyExists = errors.New("storage: already exists")
	// ErrInvalidInput indicates invalid or malformed input was provided.
	ErrInvalidInput = errors.New("storage: invalid input")
	// ErrStorageCorrupt indicates data corruption was detected.
	ErrStorageCorrupt = errors.New("storage: data corruption detected")
	// ErrLockTimeout indicates a timeout acquiring a file lock.
	ErrLockTimeout = errors.New("storage: lock acquisition timeout")
)

// StorageError wraps storage errors with operation and entity context.
// Use errors.As() to extract this error type and get operation details:
//
//	var storErr *storage.StorageError
//	if errors.As(err, &storErr) {
//		fmt.Printf("Failed to %s %s %s: %v\n", storErr.Op, storErr.Entity, storErr.ID, storErr.Err)
//	}
type StorageError struct {
	// Op is the operation that failed ("create", "read", "update", "delete").
	Op string
	// Entity is the entity type ("api_key", "search", "store").
	Entity string
	// ID is the entity ID if applicable.
	ID string
	// Err is the underlying error that occurred.
	Err error
}

// Error returns a string representation of the storage error.
func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("storage: %s %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *StorageError) Unwrap() error { return e.Err }

// Store is the storage interface for ytinsight.
// Implementations must be safe for concurrent use.
type Store interface {
	KeyStore
	HistoryStore

	// Close releases any resources held by the store.
	Close() error
}

// KeyStore holds the YouTube Data API key.
type KeyStore interface {
	// SaveAPIKey stores key, replacing any previous one.
	SaveAPIKey(ctx context.Context, key string) error
	// APIKey returns the stored key, or ErrNotFound.
	APIKey(ctx context.Context) (string, error)
	// DeleteAPIKey removes the stored key. Deleting a missing key is not an error.
	DeleteAPIKey(ctx context.Context) error
}

// HistoryStore records past searches.
type HistoryStore interface {
	// AddSearch saves a record, assigning its ID and CreatedAt when empty.
	AddSearch(ctx context.Context, rec *SearchRecord) error
	// GetSearch retrieves a record by ID.
	GetSearch(ctx context.Context, id string) (*SearchRecord, error)
	// ListSearches returns up to limit records, newest first. limit <= 0 means all.
	ListSearches(ctx context.Context, limit int) ([]*SearchRecord, error)
	// DeleteSearch removes a record by ID.
	DeleteSearch(ctx context.Context, id string) error
	// ClearSearches removes every record.
	ClearSearches(ctx context.Context) error
}
