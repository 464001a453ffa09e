// Package cache provides the TTL key-value store backing the data-retrieval
// tools, plus the filter fingerprint used to build cache keys.
//
// Two implementations exist: an in-process map store (default) and a Redis
// store for deployments where multiple engine instances share a cache.
// Writes are not transactional; two concurrent misses for the same key may
// both fetch and both write, and the last write wins.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Store is a TTL-expiring key-value store. Get returns ok=false for both
// missing and expired entries.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key builds a cache key from its discriminating parts. Empty parts are
// kept as empty segments so that, for example, a scoped and an unscoped
// lookup never collide.
func Key(parts ...string) string {
	return "qa:" + strings.Join(parts, ":")
}

// entry is one stored value with its expiry deadline.
type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Store implementation. Expired entries are
// dropped lazily on read and swept opportunistically on write.
//
// Memory is safe for concurrent use by multiple goroutines.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry

	// writes counts Sets since the last sweep.
	writes int
}

// sweepInterval is the number of writes between opportunistic sweeps of
// expired entries.
const sweepInterval = 256

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry)}
}

// Get returns the value stored under key, if present and unexpired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have renewed it.
		if cur, still := m.entries[key]; still && time.Now().After(cur.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value under key for ttl. A non-positive ttl stores nothing.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}

	m.writes++
	if m.writes >= sweepInterval {
		m.writes = 0
		now := time.Now()
		for k, e := range m.entries {
			if now.After(e.expiresAt) {
				delete(m.entries, k)
			}
		}
	}
	return nil
}

// Len reports the number of stored entries, including any not yet swept.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

var _ Store = (*Memory)(nil)
