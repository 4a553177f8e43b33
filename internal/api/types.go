package api

import (
	"fmt"
	"strconv"
	"time"
)

// Money is a decimal amount serialized as a string with two fraction
// digits, e.g. "25.90". The backend never sends floats for prices.
type Money string

// Float64 parses the amount. Returns an error for malformed values.
func (m Money) Float64() (float64, error) {
	v, err := strconv.ParseFloat(string(m), 64)
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", string(m), err)
	}
	return v, nil
}

// OrderStatus is the server-side lifecycle state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusCompleted  OrderStatus = "completed"
	StatusFailed     OrderStatus = "failed"
)

// IsTerminal reports whether the status can never change again.
// Orders only move from non-terminal to terminal, never back.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether the status is one of the four known values.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Product is a catalog entry.
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     Money     `json:"price"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Order as returned by the order service. The client never mutates
// orders; it only observes them.
type Order struct {
	ID        string      `json:"id"`
	ProductID string      `json:"productId"`
	Quantity  int         `json:"quantity"`
	UnitPrice Money       `json:"unitPrice"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Total computes quantity * unit price.
func (o Order) Total() (float64, error) {
	price, err := o.UnitPrice.Float64()
	if err != nil {
		return 0, err
	}
	return price * float64(o.Quantity), nil
}

// CartLine is one position of a customer cart. The backend accepts a
// single product per order, so each line becomes its own submission.
type CartLine struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// CreateOrderRequest is the body for POST /orders.
type CreateOrderRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// CreateOrderResponse is the 202 body acknowledging *acceptance* of an
// order, not its completion. Status is always non-terminal here.
type CreateOrderResponse struct {
	OrderID string      `json:"orderId"`
	Status  OrderStatus `json:"status"`
}

// ErrorBody is the error envelope every endpoint uses.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
