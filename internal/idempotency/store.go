package idempotency

import (
	"context"
	"sync"
	"time"
)

// KeyStore persists key records. Implementations return (nil, nil) from
// Get when the key is absent; expiry filtering is the Manager's job so
// every backend behaves the same under the 24h window.
type KeyStore interface {
	// Get returns the record for key, or (nil, nil) when absent.
	Get(ctx context.Context, key string) (*Record, error)
	// Put creates or replaces the record.
	Put(ctx context.Context, rec *Record) error
	// Sweep removes records created before cutoff. Backends with native
	// TTL support may make this a no-op.
	Sweep(ctx context.Context, cutoff time.Time) error
}

// MemoryStore is the in-process KeyStore used in tests and as the
// default backend when no durable store is configured.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]*Record{}}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) Put(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[rec.Key] = &cp
	return nil
}

func (s *MemoryStore) Sweep(ctx context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, rec := range s.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(s.records, k)
		}
	}
	return nil
}

// Len reports the number of stored records, swept or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
