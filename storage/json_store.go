package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	schemaVersion = "1.0"
	lockTimeout   = 5 * time.Second

	// FileName is the store's file name inside the data directory.
	FileName = "ytinsight.json"
	// DefaultMaxHistory caps the number of stored searches.
	DefaultMaxHistory = 100
)

// JSONStore implements Store using a single JSON file. Every write
// re-reads the file under an advisory lock, so a CLI and a server may share
// one store.
type JSONStore struct {
	path       string
	maxHistory int
	mu         sync.Mutex
	now        func() time.Time
}

// storeData is the top-level JSON structure. Searches are kept oldest first.
type storeData struct {
	Version     string          `json:"version"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Credentials *Credentials    `json:"credentials,omitempty"`
	Searches    []*SearchRecord `json:"searches"`
}

// Option configures a JSONStore.
type Option func(*JSONStore)

// WithMaxHistory caps the stored searches at n; older ones are dropped.
func WithMaxHistory(n int) Option {
	return func(s *JSONStore) {
		if n > 0 {
			s.maxHistory = n
		}
	}
}

// Open opens the store file inside dir.
func Open(dir string, opts ...Option) (*JSONStore, error) {
	return NewJSONStore(filepath.Join(dir, FileName), opts...)
}

// NewJSONStore opens the JSON file store at path, creating it when missing.
// A file that does not parse is reported as ErrStorageCorrupt.
func NewJSONStore(path string, opts ...Option) (*JSONStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &StorageError{Op: "open", Entity: "store", Err: ErrInvalidInput}
	}

	s := &JSONStore{
		path:       path,
		maxHistory: DefaultMaxHistory,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		// Create the file now to catch permission errors early.
		if err := s.update(context.Background(), "create", "store", "", func(*storeData) error { return nil }); err != nil {
			return nil, err
		}
		return s, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the store file path.
func (s *JSONStore) Path() string {
	return s.path
}

// Close releases resources held by the store.
func (s *JSONStore) Close() error {
	return nil
}

// load reads the JSON file. A missing file yields empty data.
// Must be called with mu held.
func (s *JSONStore) load() (*storeData, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newStoreData(), nil
		}
		return nil, &StorageError{Op: "read", Entity: "store", Err: err}
	}

	data := &storeData{}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, &StorageError{Op: "read", Entity: "store", Err: ErrStorageCorrupt}
	}
	return data, nil
}

// save persists data atomically. Must be called with mu and the file lock held.
func (s *JSONStore) save(data *storeData) error {
	data.Version = schemaVersion
	data.UpdatedAt = s.now()
	if data.Searches == nil {
		data.Searches = []*SearchRecord{}
	}

	if err := writeJSONAtomic(s.path, data); err != nil {
		return &StorageError{Op: "write", Entity: "store", Err: err}
	}
	return nil
}

// view runs fn against a fresh read of the file.
func (s *JSONStore) view(fn func(*storeData) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	return fn(data)
}

// update runs fn under the file lock and saves the result unless fn fails.
func (s *JSONStore) update(ctx context.Context, op, entity, id string, fn func(*storeData) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return &StorageError{Op: op, Entity: entity, ID: id, Err: err}
	}
	lock, err := acquireLock(ctx, s.path, lockTimeout)
	if err != nil {
		return &StorageError{Op: op, Entity: entity, ID: id, Err: err}
	}
	defer lock.release()

	data, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(data); err != nil {
		return err
	}
	return s.save(data)
}

func newStoreData() *storeData {
	return &storeData{
		Version:  schemaVersion,
		Searches: []*SearchRecord{},
	}
}

// --- KeyStore implementation ---

func (s *JSONStore) SaveAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return &StorageError{Op: "update", Entity: "api_key", Err: ErrInvalidInput}
	}
	return s.update(ctx, "update", "api_key", "", func(data *storeData) error {
		data.Credentials = &Credentials{APIKey: key, SavedAt: s.now()}
		return nil
	})
}

func (s *JSONStore) APIKey(ctx context.Context) (string, error) {
	var key string
	err := s.view(func(data *storeData) error {
		if data.Credentials == nil || data.Credentials.APIKey == "" {
			return &StorageError{Op: "read", Entity: "api_key", Err: ErrNotFound}
		}
		key = data.Credentials.APIKey
		return nil
	})
	return key, err
}

func (s *JSONStore) DeleteAPIKey(ctx context.Context) error {
	return s.update(ctx, "delete", "api_key", "", func(data *storeData) error {
		data.Credentials = nil
		return nil
	})
}

// --- HistoryStore implementation ---

func (s *JSONStore) AddSearch(ctx context.Context, rec *SearchRecord) error {
	if err := rec.Validate(); err != nil {
		return &StorageError{Op: "create", Entity: "search", Err: err}
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}

	return s.update(ctx, "create", "search", rec.ID, func(data *storeData) error {
		for _, existing := range data.Searches {
			if existing.ID == rec.ID {
				return &StorageError{Op: "create", Entity: "search", ID: rec.ID, Err: ErrAlreadyExists}
			}
		}
		data.Searches = append(data.Searches, rec.clone())
		if over := len(data.Searches) - s.maxHistory; over > 0 {
			data.Searches = data.Searches[over:]
		}
		return nil
	})
}

func (s *JSONStore) GetSearch(ctx context.Context, id string) (*SearchRecord, error) {
	var found *SearchRecord
	err := s.view(func(data *storeData) error {
		for _, rec := range data.Searches {
			if rec.ID == id {
				found = rec.clone()
				return nil
			}
		}
		return &StorageError{Op: "read", Entity: "search", ID: id, Err: ErrNotFound}
	})
	return found, err
}

func (s *JSONStore) ListSearches(ctx context.Context, limit int) ([]*SearchRecord, error) {
	var out []*SearchRecord
	err := s.view(func(data *storeData) error {
		n := len(data.Searches)
		if limit > 0 && limit < n {
			n = limit
		}
		out = make([]*SearchRecord, 0, n)
		for i := len(data.Searches) - 1; i >= 0 && len(out) < n; i-- {
			out = append(out, data.Searches[i].clone())
		}
		return nil
	})
	return out, err
}

func (s *JSONStore) DeleteSearch(ctx context.Context, id string) error {
	return s.update(ctx, "delete", "search", id, func(data *storeData) error {
		for i, rec := range data.Searches {
			if rec.ID == id {
				data.Searches = append(data.Searches[:i], data.Searches[i+1:]...)
				return nil
			}
		}
		return &StorageError{Op: "delete", Entity: "search", ID: id, Err: ErrNotFound}
	})
}

func (s *JSONStore) ClearSearches(ctx context.Context) error {
	return s.update(ctx, "delete", "search", "", func(data *storeData) error {
		data.Searches = []*SearchRecord{}
		return nil
	})
}

var _ Store = (*JSONStore)(nil)
