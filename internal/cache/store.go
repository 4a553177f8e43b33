// Package cache implements the keyed read-model cache: staleness-gated
// reads, coalesced fetches, optimistic seeding and field-merge patches.
// It replaces framework-side cache machinery with an explicit,
// inspectable object so staleness and invalidation are testable as pure
// state transitions.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the value for a key on miss or staleness.
type FetchFunc[V any] func(ctx context.Context) (V, error)

type entry[V any] struct {
	value     V
	fetchedAt time.Time
}

// Store is a staleness-windowed cache keyed by string. Concurrent Gets
// for the same key share one in-flight fetch and one resulting value.
type Store[V any] struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]entry[V]
	group   singleflight.Group
	nowFunc func() time.Time
}

// New returns a Store whose entries stay fresh for ttl.
func New[V any](ttl time.Duration) *Store[V] {
	return &Store[V]{
		ttl:     ttl,
		entries: map[string]entry[V]{},
		nowFunc: time.Now,
	}
}

func (s *Store[V]) fresh(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || s.nowFunc().Sub(e.fetchedAt) >= s.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Get returns the cached value when fresh, otherwise fetches and
// caches. Overlapping calls for the same key trigger exactly one fetch.
func (s *Store[V]) Get(ctx context.Context, key string, fetch FetchFunc[V]) (V, error) {
	if v, ok := s.fresh(key); ok {
		return v, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		// a coalesced sibling may have just filled the entry
		if v, ok := s.fresh(key); ok {
			return v, nil
		}
		val, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		s.Seed(key, val)
		return val, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Seed stores a value directly, starting a fresh staleness window. Used
// to pre-populate the cache optimistically (e.g. the {id, status} pair a
// submission returns) and by poll ticks.
func (s *Store[V]) Seed(key string, v V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry[V]{value: v, fetchedAt: s.nowFunc()}
}

// Patch merges into an existing entry via merge and reports whether the
// key was present. The staleness window is not restarted: a patch is a
// local overlay, not a server observation.
func (s *Store[V]) Patch(key string, merge func(V) V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	e.value = merge(e.value)
	s.entries[key] = e
	return true
}

// Invalidate drops one entry.
func (s *Store[V]) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// InvalidatePrefix drops every entry whose key starts with prefix.
func (s *Store[V]) InvalidatePrefix(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			delete(s.entries, k)
		}
	}
}

// Peek returns the cached value regardless of freshness, without
// triggering a fetch.
func (s *Store[V]) Peek(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Len reports the number of cached entries, fresh or stale.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
