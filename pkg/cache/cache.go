package cache

import (
	"context"
	"sync"
	"time"
)

// Store is a shared keyed cache with per-entry TTL. Implementations provide
// per-key atomicity, no further locking discipline is required of callers.
type Store interface {
	// Get returns the cached value and whether a live entry exists.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores the value under the key with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// MemoryStore is an in-process Store, suitable for tests and single-process
// deployments. Multi-process deployments should use SqliteStore so concurrent
// requests against the same configuration share one fetched entry.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

type memEntry struct {
	value   []byte
	expires time.Time
}

// NewMemoryStore creates an empty in-memory cache store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]memEntry{}, now: time.Now}
}

// Get returns the entry for key, dropping it when expired.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if s.now().After(e.expires) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value under key for ttl.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memEntry{value: value, expires: s.now().Add(ttl)}
	return nil
}
