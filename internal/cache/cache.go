// Package cache provides the TTL store that shields upstream feeds from
// redundant queries.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultMaxEntries is the entry-count ceiling that triggers a sweep.
const DefaultMaxEntries = 1000

// Store is an in-memory key/TTL cache of adapter results.
//
// There is no proactive eviction of live entries: when the entry count
// crosses the ceiling, a sweep drops expired entries only. Under
// sustained miss pressure the map can grow until the next sweep; that
// is a known, tested limitation of this layer.
type Store[T any] struct {
	mu         sync.RWMutex
	entries    map[string]entry[T]
	maxEntries int
	nowFunc    func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
	sweeps atomic.Int64
	swept  atomic.Int64
}

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// Option configures a Store.
type Option[T any] func(*Store[T])

// WithMaxEntries overrides the sweep ceiling.
func WithMaxEntries[T any](n int) Option[T] {
	return func(s *Store[T]) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// New creates an empty Store.
func New[T any](opts ...Option[T]) *Store[T] {
	s := &Store[T]{
		entries:    make(map[string]entry[T]),
		maxEntries: DefaultMaxEntries,
		nowFunc:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the cached value for key. A hit requires now < expiry;
// an expired entry is removed on the miss path.
func (s *Store[T]) Get(key string) (T, bool) {
	var zero T

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		s.misses.Add(1)
		return zero, false
	}

	if !s.nowFunc().Before(e.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// replaced the entry with a fresh one.
		if cur, still := s.entries[key]; still && !s.nowFunc().Before(cur.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		s.misses.Add(1)
		return zero, false
	}

	s.hits.Add(1)
	return e.value, true
}

// Set stores value under key for ttl. Crossing the entry ceiling
// triggers a sweep of expired entries.
func (s *Store[T]) Set(key string, value T, ttl time.Duration) {
	now := s.nowFunc()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry[T]{
		value:     value,
		expiresAt: now.Add(ttl),
	}

	if len(s.entries) > s.maxEntries {
		s.sweepLocked(now)
	}
}

// Clear removes all entries.
func (s *Store[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry[T])
}

// Len returns the current entry count, expired entries included.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep drops expired entries and returns how many were removed.
func (s *Store[T]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.nowFunc())
}

func (s *Store[T]) sweepLocked(now time.Time) int {
	removed := 0
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	s.sweeps.Add(1)
	s.swept.Add(int64(removed))
	return removed
}

// Stats is a point-in-time view of cache activity for ops endpoints.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Sweeps  int64 `json:"sweeps"`
	Swept   int64 `json:"swept"`
}

// Stats returns a snapshot of cache counters.
func (s *Store[T]) Stats() Stats {
	return Stats{
		Entries: s.Len(),
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Sweeps:  s.sweeps.Load(),
		Swept:   s.swept.Load(),
	}
}

// Key derives a deterministic cache key from an adapter identity, a
// query kind, and the query parameters. Coordinates are rounded to
// three decimal places (~111 m) so near-identical GPS fixes share one
// entry; that collapse is intentional.
func Key(source, kind string, coords []float64, limit int) string {
	var b strings.Builder
	b.WriteString(source)
	b.WriteByte(':')
	b.WriteString(kind)
	for _, c := range coords {
		fmt.Fprintf(&b, ":%.3f", c)
	}
	fmt.Fprintf(&b, ":%d", limit)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}
