// Package idempotency generates and persists the client-side dedup keys
// attached to order creation requests. Persistence is best-effort: the
// server is the source of truth for deduplication, so storage failures
// degrade to logged warnings and never abort a submission.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrKeyReassigned is returned when a caller tries to associate an
// already-associated key with a different order id. This is a
// programming error or a duplicate-submission race, never a transient
// condition, so it fails fast instead of overwriting.
var ErrKeyReassigned = errors.New("idempotency key already associated with a different order")

// IsValidKey reports whether s satisfies the backend's length bounds.
func IsValidKey(s string) bool {
	return len(s) >= MinKeyLength && len(s) <= MaxKeyLength
}

// Manager owns key generation, the key->order association and expiry.
type Manager struct {
	store     KeyStore
	retention time.Duration
	log       *zap.Logger
	nowFunc   func() time.Time
}

// NewManager returns a Manager over the given store. retention <= 0
// selects the 24h default.
func NewManager(store KeyStore, retention time.Duration, log *zap.Logger) *Manager {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		store:     store,
		retention: retention,
		log:       log,
		nowFunc:   time.Now,
	}
}

// Generate returns a fresh key: a UUID v4 string, 36 characters, which
// always satisfies IsValidKey.
func (m *Manager) Generate() string {
	return uuid.NewString()
}

// Store persists or updates the record for key. An empty orderID
// records the key before the submission attempt; a non-empty orderID
// associates the key with the resulting order. Associating an
// already-associated key with a different id returns ErrKeyReassigned.
// Storage-layer failures are logged and swallowed.
func (m *Manager) Store(ctx context.Context, key, orderID string) error {
	existing, err := m.store.Get(ctx, key)
	if err != nil {
		m.log.Warn("idempotency store read failed, skipping persist",
			zap.String("key", key), zap.Error(err))
		return nil
	}

	if existing != nil && existing.OrderID != "" {
		if orderID != "" && orderID != existing.OrderID {
			return ErrKeyReassigned
		}
		// already associated with the same order, nothing to do
		return nil
	}

	now := m.nowFunc()
	rec := &Record{
		Key:       key,
		OrderID:   orderID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.retention).Unix(),
	}
	if existing != nil {
		// keep the original creation time so the retention window does
		// not restart on association
		rec.CreatedAt = existing.CreatedAt
		rec.ExpiresAt = existing.ExpiresAt
	}

	if err := m.store.Put(ctx, rec); err != nil {
		if errors.Is(err, ErrKeyReassigned) {
			return err
		}
		m.log.Warn("idempotency store write failed, skipping persist",
			zap.String("key", key), zap.Error(err))
	}
	return nil
}

// Lookup returns the record for key, or nil when absent or expired.
// Expired records read as absent even if not yet swept.
func (m *Manager) Lookup(ctx context.Context, key string) *Record {
	rec, err := m.store.Get(ctx, key)
	if err != nil {
		m.log.Warn("idempotency store read failed",
			zap.String("key", key), zap.Error(err))
		return nil
	}
	if rec == nil {
		return nil
	}
	if m.nowFunc().Sub(rec.CreatedAt) >= m.retention {
		return nil
	}
	return rec
}

// SweepExpired removes records older than the retention window. The
// store works correctly even if this is never called: Lookup filters
// expired records on read.
func (m *Manager) SweepExpired(ctx context.Context) {
	cutoff := m.nowFunc().Add(-m.retention)
	if err := m.store.Sweep(ctx, cutoff); err != nil {
		m.log.Warn("idempotency sweep failed", zap.Error(err))
	}
}
