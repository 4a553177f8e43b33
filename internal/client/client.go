// Package client is the HTTP transport toward the Tec Burger backend:
// request building, timeouts, bounded retries with exponential backoff,
// and mapping of response statuses onto the shared error taxonomy.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tecburger/storefront/internal/api"
	"github.com/tecburger/storefront/internal/apierr"
	"github.com/tecburger/storefront/internal/auth"
)

const (
	productsPath = "/api/catalog/api/v1/products"
	ordersPath   = "/api/order/api/v1/orders"

	// IdempotencyKeyHeader carries the client-side dedup key on order
	// creation.
	IdempotencyKeyHeader = "Idempotency-Key"
)

// Options configures a Client. Zero fields select the defaults below.
type Options struct {
	BaseURL       string
	Timeout       time.Duration // per-request, default 10s
	RetryAttempts int           // total attempts, default 3
	RetryBase     time.Duration // first backoff delay, default 1s
	RetryMax      time.Duration // backoff cap, default 8s
	Limiter       *rate.Limiter // optional client-side rate limit
	Auth          *auth.State   // optional; cleared on 401
	Logger        *zap.Logger
	HTTPClient    *http.Client // optional override, timeout applied
}

// Client talks to the catalog and order services.
type Client struct {
	baseURL   string
	http      *http.Client
	attempts  int
	retryBase time.Duration
	retryMax  time.Duration
	limiter   *rate.Limiter
	authState *auth.State
	log       *zap.Logger
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// New returns a configured Client.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = time.Second
	}
	if opts.RetryMax <= 0 {
		opts.RetryMax = 8 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	hc.Timeout = opts.Timeout

	return &Client{
		baseURL:   opts.BaseURL,
		http:      hc,
		attempts:  opts.RetryAttempts,
		retryBase: opts.RetryBase,
		retryMax:  opts.RetryMax,
		limiter:   opts.Limiter,
		authState: opts.Auth,
		log:       opts.Logger,
		sleepFunc: sleepCtx,
	}
}

// ListProducts fetches one page of the catalog.
func (c *Client) ListProducts(ctx context.Context, p api.ProductListParams) (*api.ProductPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(normalizeLimit(p.Limit)))
	if p.Cursor != "" {
		q.Set("cursor", p.Cursor)
	}
	sort := p.Sort
	if sort == "" {
		sort = api.SortCreatedAtDesc
	}
	q.Set("sort", string(sort))

	var page api.ProductPage
	if err := c.do(ctx, http.MethodGet, productsPath, q, nil, nil, http.StatusOK, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetProduct fetches a product by id.
func (c *Client) GetProduct(ctx context.Context, id string) (*api.Product, error) {
	var product api.Product
	if err := c.do(ctx, http.MethodGet, productsPath+"/"+url.PathEscape(id), nil, nil, nil, http.StatusOK, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateOrder submits a single-product order. The server responds 202:
// it acknowledges acceptance, not completion, and the returned status
// is always non-terminal. Retries reuse the same idempotency key; that
// reuse is what makes the retry safe.
func (c *Client) CreateOrder(ctx context.Context, req api.CreateOrderRequest, idempotencyKey string) (*api.CreateOrderResponse, error) {
	hdr := http.Header{}
	hdr.Set(IdempotencyKeyHeader, idempotencyKey)

	var resp api.CreateOrderResponse
	if err := c.do(ctx, http.MethodPost, ordersPath, nil, req, hdr, http.StatusAccepted, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListOrders fetches one page of the caller's orders.
func (c *Client) ListOrders(ctx context.Context, p api.OrderListParams) (*api.OrderPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(normalizeLimit(p.Limit)))
	if p.Cursor != "" {
		q.Set("cursor", p.Cursor)
	}

	var page api.OrderPage
	if err := c.do(ctx, http.MethodGet, ordersPath, q, nil, nil, http.StatusOK, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetOrder fetches an order by id.
func (c *Client) GetOrder(ctx context.Context, id string) (*api.Order, error) {
	var order api.Order
	if err := c.do(ctx, http.MethodGet, ordersPath+"/"+url.PathEscape(id), nil, nil, nil, http.StatusOK, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return api.DefaultPageLimit
	}
	if limit > api.MaxPageLimit {
		return api.MaxPageLimit
	}
	return limit
}

// do runs one logical request with the retry policy: transport errors
// and 5xx responses are retried with exponential backoff; every other
// status resolves the call.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, hdr http.Header, wantStatus int, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return apierr.Wrap(apierr.KindUnknown, "encode request body", err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			if err := c.sleepFunc(ctx, c.backoff(attempt-1)); err != nil {
				return apierr.Wrap(apierr.KindNetwork, "request cancelled during backoff", err)
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return apierr.Wrap(apierr.KindNetwork, "request cancelled by rate limiter", err)
			}
		}

		done, err := c.doOnce(ctx, method, path, query, payload, hdr, wantStatus, out, attempt)
		if done {
			return err
		}
		lastErr = err
	}

	return lastErr
}

// doOnce performs a single attempt. done=false means the attempt failed
// transiently and may be retried.
func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, payload []byte, hdr http.Header, wantStatus int, out any, attempt int) (done bool, err error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return true, apierr.Wrap(apierr.KindUnknown, "build request", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.authState != nil {
		if token := c.authState.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed",
			zap.String("method", method), zap.String("path", path),
			zap.Int("attempt", attempt), zap.Error(err))
		return false, apierr.Wrap(apierr.KindNetwork,
			fmt.Sprintf("%s %s failed after %d attempt(s)", method, path, attempt), err)
	}
	defer resp.Body.Close()

	c.log.Debug("request completed",
		zap.String("method", method), zap.String("path", path),
		zap.Int("status", resp.StatusCode), zap.Int("attempt", attempt),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode >= 500 {
		errBody := decodeErrorBody(resp.Body)
		return false, apierr.FromStatus(resp.StatusCode, errBody)
	}

	if resp.StatusCode != wantStatus {
		errBody := decodeErrorBody(resp.Body)
		apiErr := apierr.FromStatus(resp.StatusCode, errBody)
		if resp.StatusCode == http.StatusUnauthorized && c.authState != nil {
			// token is no longer valid anywhere, drop it
			c.authState.Clear()
		}
		return true, apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return true, apierr.Wrap(apierr.KindUnknown, "decode response body", err)
		}
	}
	return true, nil
}

// backoff returns the delay before the given retry (1-based): base,
// base*2, base*4, ... capped at retryMax.
func (c *Client) backoff(retry int) time.Duration {
	d := c.retryBase << (retry - 1)
	if d > c.retryMax {
		d = c.retryMax
	}
	return d
}

func decodeErrorBody(r io.Reader) *api.ErrorBody {
	var body api.ErrorBody
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil
	}
	if body.Code == "" && body.Message == "" {
		return nil
	}
	return &body
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
