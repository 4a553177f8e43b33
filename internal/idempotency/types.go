package idempotency

import "time"

// Key length bounds enforced by the backend.
const (
	MinKeyLength = 8
	MaxKeyLength = 128
)

// DefaultRetention is how long a key record stays resolvable.
const DefaultRetention = 24 * time.Hour

// Record is one persisted idempotency key. OrderID is empty until the
// server acknowledges the creation; once set it never changes.
type Record struct {
	Key       string    `json:"key" dynamodbav:"idempotency_key"`
	OrderID   string    `json:"orderId,omitempty" dynamodbav:"order_id,omitempty"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"created_at"`
	ExpiresAt int64     `json:"expiresAt" dynamodbav:"expires_at"` // TTL epoch seconds
}
