// Package cache provides the process-local lookup cache: a keyed store of
// values with a fixed time-to-live and lazy expiration on read.
package cache

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ehr/refdata/internal/platform/clock"
)

// DefaultTTL is how long an entry is served before it is treated as stale.
const DefaultTTL = 24 * time.Hour

// Entry holds a cached value and the time it was written.
type Entry struct {
	Key        string
	Value      any
	InsertedAt time.Time
}

// Stats describes the store contents for observability.
type Stats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// Store is a thread-safe in-memory cache. Stale entries are never swept; a
// read past the TTL is a miss and the next Set for the key overwrites it.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	ttl     time.Duration
	clock   clock.Clock
}

// New creates a Store. A nil clock means the wall clock; a non-positive ttl
// means DefaultTTL.
func New(ttl time.Duration, clk clock.Clock) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Store{
		entries: make(map[string]*Entry),
		ttl:     ttl,
		clock:   clk,
	}
}

// Key builds the cache fingerprint for an operation and caller query.
// Queries differing only in case map to the same key.
func Key(operation, query string) string {
	return operation + "_" + strings.ToLower(query)
}

// TTL returns the configured time-to-live.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Get returns the value stored under key, or false if there is none or it
// is older than the TTL.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.clock.Now().Sub(entry.InsertedAt) >= s.ttl {
		return nil, false
	}
	return entry.Value, true
}

// Set stores value under key, stamped with the current time.
func (s *Store) Set(key string, value any) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &Entry{Key: key, Value: value, InsertedAt: now}
}

// Clear removes all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*Entry)
}

// Stats returns the number of stored entries, stale ones included, and
// their keys in sorted order.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return Stats{Size: len(keys), Keys: keys}
}
