package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tecburger/storefront/internal/api"
	"github.com/tecburger/storefront/internal/apierr"
	"github.com/tecburger/storefront/internal/auth"
)

// newTestClient disables real backoff sleeps so retry tests run fast.
func newTestClient(baseURL string, authState *auth.State) *Client {
	c := New(Options{BaseURL: baseURL, Auth: authState})
	c.sleepFunc = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.ErrorBody{Code: code, Message: msg})
}

func TestGetOrder_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/order/api/v1/orders/o-1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(api.Order{ID: "o-1", Status: api.StatusPending})
	}))
	defer srv.Close()

	order, err := newTestClient(srv.URL, nil).GetOrder(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Equal(t, "o-1", order.ID)
	assert.Equal(t, api.StatusPending, order.Status)
}

func TestDo_RetriesServerErrorsThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			writeError(w, http.StatusInternalServerError, "internal_server_error", "boom")
			return
		}
		_ = json.NewEncoder(w).Encode(api.Order{ID: "o-1", Status: api.StatusCompleted})
	}))
	defer srv.Close()

	order, err := newTestClient(srv.URL, nil).GetOrder(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Equal(t, api.StatusCompleted, order.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDo_ServerErrorAfterRetriesExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeError(w, http.StatusInternalServerError, "internal_server_error", "still down")
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, nil).GetOrder(context.Background(), "o-1")
	require.Error(t, err)
	assert.Equal(t, apierr.KindServer, apierr.KindOf(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "exactly 3 attempts")
}

func TestDo_ClientErrorsAreNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeError(w, http.StatusNotFound, "not_found", "no such order")
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, nil).GetOrder(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apierr.IsNotFound(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_UnauthorizedClearsAuthState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer stale-token", r.Header.Get("Authorization"))
		writeError(w, http.StatusUnauthorized, "unauthorized", "token expired")
	}))
	defer srv.Close()

	authState := &auth.State{}
	authState.SetToken("stale-token")

	_, err := newTestClient(srv.URL, authState).GetOrder(context.Background(), "o-1")
	require.Error(t, err)
	assert.True(t, apierr.IsUnauthorized(err))
	assert.False(t, authState.Authenticated(), "401 must clear local auth state")
}

func TestCreateOrder_SendsIdempotencyKeyAndParses202(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "valid-key-123", r.Header.Get(IdempotencyKeyHeader))

		var req api.CreateOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "p-1", req.ProductID)
		assert.Equal(t, 2, req.Quantity)

		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(api.CreateOrderResponse{OrderID: "o-77", Status: api.StatusPending})
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL, nil).CreateOrder(context.Background(),
		api.CreateOrderRequest{ProductID: "p-1", Quantity: 2}, "valid-key-123")
	require.NoError(t, err)
	assert.Equal(t, "o-77", resp.OrderID)
	assert.False(t, resp.Status.IsTerminal(), "202 acknowledges acceptance, not completion")
}

func TestCreateOrder_ConflictSurfacesAsIdempotencyConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusConflict, "conflict", "idempotency key reused with different payload")
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, nil).CreateOrder(context.Background(),
		api.CreateOrderRequest{ProductID: "p-1", Quantity: 1}, "reused-key-1")
	require.Error(t, err)
	assert.True(t, apierr.IsConflict(err))

	var e *apierr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "conflict", e.Code)
}

func TestCreateOrder_ValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "quantity must be >= 1")
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, nil).CreateOrder(context.Background(),
		api.CreateOrderRequest{ProductID: "p-1", Quantity: 0}, "valid-key-123")
	require.Error(t, err)
	assert.True(t, apierr.IsValidation(err))
}

func TestDo_TransportFailureMapsToNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := newTestClient(srv.URL, nil).GetOrder(context.Background(), "o-1")
	require.Error(t, err)
	assert.Equal(t, apierr.KindNetwork, apierr.KindOf(err))
}

func TestListProducts_QueryDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "20", q.Get("limit"))
		assert.Equal(t, "created_at_desc", q.Get("sort"))
		assert.Empty(t, q.Get("cursor"))
		_ = json.NewEncoder(w).Encode(api.ProductPage{Meta: api.PageMeta{NextCursor: "next-1"}})
	}))
	defer srv.Close()

	page, err := newTestClient(srv.URL, nil).ListProducts(context.Background(), api.ProductListParams{})
	require.NoError(t, err)
	assert.Equal(t, "next-1", page.Meta.NextCursor)
}

func TestBackoff_DoublesAndCaps(t *testing.T) {
	c := New(Options{BaseURL: "http://unused", RetryAttempts: 6})
	assert.Equal(t, time.Second, c.backoff(1))
	assert.Equal(t, 2*time.Second, c.backoff(2))
	assert.Equal(t, 4*time.Second, c.backoff(3))
	assert.Equal(t, 8*time.Second, c.backoff(4))
	assert.Equal(t, 8*time.Second, c.backoff(5), "backoff is capped")
}
