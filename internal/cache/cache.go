// Package cache memoizes enrichment lookups for the duration of one pipeline run.
// Nothing is persisted; the cache is discarded when the process exits.
package cache

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// FetchFunc represents a function that fetches data from an external source
type FetchFunc[T any] func() (T, error)

// Stats reports cache effectiveness for the run log.
type Stats struct {
	Hits   int
	Misses int
}

// Memo is a run-scoped, in-memory cache keyed by natural identifier
// (artist name, album name). It guarantees at most one fetch per distinct key,
// also when several goroutines ask for the same key at once.
type Memo[T any] struct {
	name   string
	mu     sync.RWMutex
	values map[string]T
	group  singleflight.Group
	stats  Stats
}

// New creates an empty Memo. name is used in log output only.
func New[T any](name string) *Memo[T] {
	return &Memo[T]{
		name:   name,
		values: make(map[string]T),
	}
}

// GetOrFetch returns the cached value for key, or calls fetchFunc and stores its result.
// The boolean reports whether the value was served from memory.
// Errors are returned to the caller and not cached, so a later call may retry.
func (m *Memo[T]) GetOrFetch(key string, fetchFunc FetchFunc[T]) (T, bool, error) {
	if v, ok := m.lookup(key); ok {
		return v, true, nil
	}

	var fetched bool
	v, err, _ := m.group.Do(key, func() (any, error) {
		// Another caller may have stored the value between lookup and Do.
		if v, ok := m.peek(key); ok {
			return v, nil
		}

		fetched = true
		slog.Debug("Cache miss, fetching data", "cache", m.name, "key", key)
		data, err := fetchFunc()
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.values[key] = data
		m.stats.Misses++
		m.mu.Unlock()
		return data, nil
	})
	if err != nil {
		var zero T
		return zero, false, fmt.Errorf("failed to fetch %s %q: %w", m.name, key, err)
	}

	if !fetched {
		m.mu.Lock()
		m.stats.Hits++
		m.mu.Unlock()
	}
	return v.(T), !fetched, nil
}

// Len returns the number of cached keys.
func (m *Memo[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

// Stats returns a snapshot of hit and miss counters.
func (m *Memo[T]) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// Name returns the cache name.
func (m *Memo[T]) Name() string {
	return m.name
}

func (m *Memo[T]) lookup(key string) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if ok {
		m.stats.Hits++
		slog.Debug("Cache hit", "cache", m.name, "key", key)
	}
	return v, ok
}

func (m *Memo[T]) peek(key string) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}
