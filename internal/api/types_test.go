package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_Float64(t *testing.T) {
	v, err := Money("25.90").Float64()
	require.NoError(t, err)
	assert.InDelta(t, 25.90, v, 1e-9)

	_, err = Money("not-a-price").Float64()
	assert.Error(t, err)
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
}

func TestOrderStatus_Valid(t *testing.T) {
	for _, s := range []OrderStatus{StatusPending, StatusProcessing, StatusCompleted, StatusFailed} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, OrderStatus("shipped").Valid())
}

func TestOrder_Total(t *testing.T) {
	total, err := Order{Quantity: 3, UnitPrice: "12.50"}.Total()
	require.NoError(t, err)
	assert.InDelta(t, 37.50, total, 1e-9)

	_, err = Order{Quantity: 1, UnitPrice: "free"}.Total()
	assert.Error(t, err)
}
