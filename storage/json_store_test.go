package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...Option) *JSONStore {
	t.Helper()
	store, err := Open(t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewJSONStoreCreatesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	store, err := Open(dir)
	require.NoError(t, err)
	defer store.Close()

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestNewJSONStoreEmptyPath(t *testing.T) {
	_, err := NewJSONStore(" ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewJSONStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewJSONStore(path)
	assert.ErrorIs(t, err, ErrStorageCorrupt)
}

func TestAPIKeyLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.APIKey(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SaveAPIKey(ctx, "  AIza-test  "))
	key, err := store.APIKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AIza-test", key)

	require.NoError(t, store.SaveAPIKey(ctx, "AIza-other"))
	key, err = store.APIKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AIza-other", key)

	require.NoError(t, store.DeleteAPIKey(ctx))
	_, err = store.APIKey(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, store.DeleteAPIKey(ctx), "deleting a missing key is fine")
}

func TestSaveAPIKeyRejectsBlank(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveAPIKey(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	var storErr *StorageError
	require.ErrorAs(t, err, &storErr)
	assert.Equal(t, "api_key", storErr.Entity)
}

func TestAPIKeyPersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveAPIKey(ctx, "AIza-persist"))
	require.NoError(t, store.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	key, err := reopened.APIKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AIza-persist", key)
}

func TestSearchHistory(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first := &SearchRecord{Keyword: "golang", Criterion: "quality", ResultCount: 3, VideoIDs: []string{"a", "b", "c"}}
	require.NoError(t, store.AddSearch(ctx, first))
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second := &SearchRecord{Keyword: "rust", Criterion: "views"}
	require.NoError(t, store.AddSearch(ctx, second))

	got, err := store.GetSearch(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "golang", got.Keyword)
	assert.Equal(t, []string{"a", "b", "c"}, got.VideoIDs)

	list, err := store.ListSearches(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, first.ID, list[1].ID)

	limited, err := store.ListSearches(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, second.ID, limited[0].ID)

	require.NoError(t, store.DeleteSearch(ctx, first.ID))
	_, err = store.GetSearch(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.DeleteSearch(ctx, first.ID), ErrNotFound)

	require.NoError(t, store.ClearSearches(ctx))
	list, err = store.ListSearches(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAddSearchValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.AddSearch(ctx, nil), ErrInvalidInput)
	assert.ErrorIs(t, store.AddSearch(ctx, &SearchRecord{Keyword: " "}), ErrInvalidInput)
	assert.ErrorIs(t, store.AddSearch(ctx, &SearchRecord{Keyword: "go", ResultCount: -1}), ErrInvalidInput)
}

func TestAddSearchDuplicateID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddSearch(ctx, &SearchRecord{ID: "fixed", Keyword: "go"}))
	assert.ErrorIs(t, store.AddSearch(ctx, &SearchRecord{ID: "fixed", Keyword: "go"}), ErrAlreadyExists)
}

func TestSearchHistoryCapped(t *testing.T) {
	store := newTestStore(t, WithMaxHistory(3))
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		require.NoError(t, store.AddSearch(ctx, &SearchRecord{
			Keyword:   fmt.Sprintf("kw%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	list, err := store.ListSearches(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "kw4", list[0].Keyword)
	assert.Equal(t, "kw2", list[2].Keyword)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &SearchRecord{Keyword: "go", VideoIDs: []string{"a"}}
	require.NoError(t, store.AddSearch(ctx, rec))
	rec.VideoIDs[0] = "mutated"

	got, err := store.GetSearch(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.VideoIDs)
}

func TestConcurrentAddSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.AddSearch(ctx, &SearchRecord{Keyword: fmt.Sprintf("kw%d", i)}))
		}()
	}
	wg.Wait()

	list, err := store.ListSearches(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 10)
}

func TestTwoStoresShareFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	a, err := Open(dir)
	require.NoError(t, err)
	b, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, a.AddSearch(ctx, &SearchRecord{Keyword: "from-a"}))
	require.NoError(t, b.AddSearch(ctx, &SearchRecord{Keyword: "from-b"}))

	list, err := a.ListSearches(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "from-b", list[0].Keyword)
}

func TestStorageError(t *testing.T) {
	err := &StorageError{Op: "read", Entity: "search", ID: "abc", Err: ErrNotFound}
	assert.Equal(t, "storage: read search abc: storage: not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)

	err = &StorageError{Op: "read", Entity: "api_key", Err: ErrNotFound}
	assert.Equal(t, "storage: read api_key: storage: not found", err.Error())
}

func TestLockTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	held, err := acquireLock(context.Background(), path, time.Second)
	require.NoError(t, err)
	defer held.release()

	_, err = acquireLock(context.Background(), path, 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestLockHonoursContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	held, err := acquireLock(context.Background(), path, time.Second)
	require.NoError(t, err)
	defer held.release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = acquireLock(ctx, path, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLockReleasedAfterWrite(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.SaveAPIKey(context.Background(), "key-1"))

	l, err := acquireLock(context.Background(), store.Path(), 50*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, l.release())
}

func TestWriteJSONAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)

	require.NoError(t, writeJSONAtomic(path, map[string]int{"a": 1}))
	require.NoError(t, writeJSONAtomic(path, map[string]int{"b": 2}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":2}`, string(raw))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	leftovers, err := filepath.Glob(filepath.Join(dir, tempPattern))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestWriteJSONAtomicFailureKeepsOldFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, writeJSONAtomic(path, map[string]int{"a": 1}))

	err := writeJSONAtomic(path, map[string]any{"bad": make(chan int)})
	require.Error(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(raw))

	leftovers, err := filepath.Glob(filepath.Join(dir, tempPattern))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
