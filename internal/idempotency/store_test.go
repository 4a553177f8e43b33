package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGenerate_ValidAndUnique(t *testing.T) {
	m := NewManager(NewMemoryStore(), 0, nil)

	k1 := m.Generate()
	k2 := m.Generate()

	if len(k1) != 36 {
		t.Fatalf("expected 36-char key, got %d chars", len(k1))
	}
	if !IsValidKey(k1) {
		t.Fatalf("generated key %q failed IsValidKey", k1)
	}
	if k1 == k2 {
		t.Fatalf("two generated keys collided: %q", k1)
	}
}

func TestIsValidKey_Bounds(t *testing.T) {
	cases := []struct {
		key  string
		want bool
	}{
		{"", false},
		{"short", false},
		{"12345678", true},
		{string(make([]byte, 128)), true},
		{string(make([]byte, 129)), false},
	}
	for _, c := range cases {
		if got := IsValidKey(c.key); got != c.want {
			t.Errorf("IsValidKey(%d chars) = %v, want %v", len(c.key), got, c.want)
		}
	}
}

func TestStore_Lookup_RoundTrip(t *testing.T) {
	m := NewManager(NewMemoryStore(), 0, nil)
	ctx := context.Background()

	if err := m.Store(ctx, "abcdefgh", "order-1"); err != nil {
		t.Fatalf("Store error: %v", err)
	}

	rec := m.Lookup(ctx, "abcdefgh")
	if rec == nil {
		t.Fatalf("expected record, got nil")
	}
	if rec.Key != "abcdefgh" || rec.OrderID != "order-1" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestStore_NeverReassigns(t *testing.T) {
	m := NewManager(NewMemoryStore(), 0, nil)
	ctx := context.Background()

	if err := m.Store(ctx, "test-key-1", "order-1"); err != nil {
		t.Fatalf("first Store error: %v", err)
	}

	// same order id is an idempotent no-op
	if err := m.Store(ctx, "test-key-1", "order-1"); err != nil {
		t.Fatalf("same-id Store error: %v", err)
	}

	// a different order id must fail fast, never overwrite
	err := m.Store(ctx, "test-key-1", "order-2")
	if !errors.Is(err, ErrKeyReassigned) {
		t.Fatalf("expected ErrKeyReassigned, got %v", err)
	}
	if rec := m.Lookup(ctx, "test-key-1"); rec == nil || rec.OrderID != "order-1" {
		t.Fatalf("association changed after rejected reassign: %+v", rec)
	}
}

func TestStore_AssociateAfterPreRecord(t *testing.T) {
	m := NewManager(NewMemoryStore(), 0, nil)
	ctx := context.Background()

	// key recorded before the submission attempt, associated afterwards
	if err := m.Store(ctx, "test-key-2", ""); err != nil {
		t.Fatalf("pre-record Store error: %v", err)
	}
	if err := m.Store(ctx, "test-key-2", "order-5"); err != nil {
		t.Fatalf("associate Store error: %v", err)
	}
	if rec := m.Lookup(ctx, "test-key-2"); rec == nil || rec.OrderID != "order-5" {
		t.Fatalf("expected association to order-5, got %+v", rec)
	}
}

func TestLookup_ExpiredReadsAsAbsent(t *testing.T) {
	m := NewManager(NewMemoryStore(), 0, nil)
	ctx := context.Background()

	base := time.Now()
	m.nowFunc = func() time.Time { return base }

	if err := m.Store(ctx, "expiring-key", "order-9"); err != nil {
		t.Fatalf("Store error: %v", err)
	}
	if rec := m.Lookup(ctx, "expiring-key"); rec == nil {
		t.Fatalf("expected record within retention window")
	}

	// force the record past the 24h window; it must read as absent
	// even though no sweep ran
	m.nowFunc = func() time.Time { return base.Add(24*time.Hour + time.Minute) }
	if rec := m.Lookup(ctx, "expiring-key"); rec != nil {
		t.Fatalf("expected absent after expiry, got %+v", rec)
	}
}

func TestSweepExpired(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, 0, nil)
	ctx := context.Background()

	base := time.Now()
	m.nowFunc = func() time.Time { return base }
	if err := m.Store(ctx, "old-key-1", "order-1"); err != nil {
		t.Fatalf("Store error: %v", err)
	}

	m.nowFunc = func() time.Time { return base.Add(25 * time.Hour) }
	if err := m.Store(ctx, "new-key-1", "order-2"); err != nil {
		t.Fatalf("Store error: %v", err)
	}

	m.SweepExpired(ctx)
	if store.Len() != 1 {
		t.Fatalf("expected 1 record after sweep, got %d", store.Len())
	}
	if rec := m.Lookup(ctx, "new-key-1"); rec == nil {
		t.Fatalf("unexpired record swept")
	}
}

// failingStore errors on every operation so we can assert the Manager
// degrades instead of propagating.
type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) (*Record, error) {
	return nil, errors.New("storage unavailable")
}
func (failingStore) Put(ctx context.Context, rec *Record) error {
	return errors.New("storage unavailable")
}
func (failingStore) Sweep(ctx context.Context, cutoff time.Time) error {
	return errors.New("storage unavailable")
}

func TestManager_DegradesOnStorageFailure(t *testing.T) {
	m := NewManager(failingStore{}, 0, nil)
	ctx := context.Background()

	// persistence is best-effort: callers never see storage errors
	if err := m.Store(ctx, "any-key-1", "order-1"); err != nil {
		t.Fatalf("Store should swallow storage errors, got %v", err)
	}
	if rec := m.Lookup(ctx, "any-key-1"); rec != nil {
		t.Fatalf("Lookup should report absent on storage failure")
	}
	m.SweepExpired(ctx) // must not panic
}
