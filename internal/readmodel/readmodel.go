// Package readmodel is the client's cached view of orders and products.
// It layers the staleness-windowed cache over the API fetcher and owns
// the cache key scheme, so callers never touch raw cache keys.
package readmodel

import (
	"context"
	"fmt"
	"time"

	"github.com/tecburger/storefront/internal/api"
	"github.com/tecburger/storefront/internal/cache"
)

// Fetcher is the slice of the API client the read model consumes.
type Fetcher interface {
	GetOrder(ctx context.Context, id string) (*api.Order, error)
	ListOrders(ctx context.Context, p api.OrderListParams) (*api.OrderPage, error)
	GetProduct(ctx context.Context, id string) (*api.Product, error)
	ListProducts(ctx context.Context, p api.ProductListParams) (*api.ProductPage, error)
}

// Staleness configures the per-class cache windows. Zero fields select
// the defaults (10s order, 30s order lists, 2m products).
type Staleness struct {
	Order       time.Duration
	OrderList   time.Duration
	Product     time.Duration
	ProductList time.Duration
}

func (s Staleness) withDefaults() Staleness {
	if s.Order <= 0 {
		s.Order = 10 * time.Second
	}
	if s.OrderList <= 0 {
		s.OrderList = 30 * time.Second
	}
	if s.Product <= 0 {
		s.Product = 2 * time.Minute
	}
	if s.ProductList <= 0 {
		s.ProductList = 2 * time.Minute
	}
	return s
}

// ReadModel caches orders and products per query key.
type ReadModel struct {
	src Fetcher

	orders       *cache.Store[api.Order]
	orderLists   *cache.Store[*api.OrderPage]
	products     *cache.Store[api.Product]
	productLists *cache.Store[*api.ProductPage]
}

// New returns a ReadModel over src with the given staleness windows.
func New(src Fetcher, s Staleness) *ReadModel {
	s = s.withDefaults()
	return &ReadModel{
		src:          src,
		orders:       cache.New[api.Order](s.Order),
		orderLists:   cache.New[*api.OrderPage](s.OrderList),
		products:     cache.New[api.Product](s.Product),
		productLists: cache.New[*api.ProductPage](s.ProductList),
	}
}

func orderKey(id string) string { return "order:" + id }

func orderListKey(p api.OrderListParams) string {
	return fmt.Sprintf("orders:%d:%s", p.Limit, p.Cursor)
}

func productKey(id string) string { return "product:" + id }

func productListKey(p api.ProductListParams) string {
	return fmt.Sprintf("products:%d:%s:%s", p.Limit, p.Cursor, p.Sort)
}

// Order returns the order by id, cached for the order staleness window.
func (r *ReadModel) Order(ctx context.Context, id string) (api.Order, error) {
	return r.orders.Get(ctx, orderKey(id), func(ctx context.Context) (api.Order, error) {
		o, err := r.src.GetOrder(ctx, id)
		if err != nil {
			return api.Order{}, err
		}
		return *o, nil
	})
}

// RefreshOrder bypasses the staleness window and fetches the order
// fresh, updating the cache. Poll ticks use this so a cached value can
// never mask a server-side status transition.
func (r *ReadModel) RefreshOrder(ctx context.Context, id string) (api.Order, error) {
	r.orders.Invalidate(orderKey(id))
	return r.Order(ctx, id)
}

// Orders returns one page of the order listing, cached per full query.
func (r *ReadModel) Orders(ctx context.Context, p api.OrderListParams) (*api.OrderPage, error) {
	return r.orderLists.Get(ctx, orderListKey(p), func(ctx context.Context) (*api.OrderPage, error) {
		return r.src.ListOrders(ctx, p)
	})
}

// Product returns the product by id.
func (r *ReadModel) Product(ctx context.Context, id string) (api.Product, error) {
	return r.products.Get(ctx, productKey(id), func(ctx context.Context) (api.Product, error) {
		p, err := r.src.GetProduct(ctx, id)
		if err != nil {
			return api.Product{}, err
		}
		return *p, nil
	})
}

// Products returns one page of the catalog, cached per full query.
func (r *ReadModel) Products(ctx context.Context, p api.ProductListParams) (*api.ProductPage, error) {
	return r.productLists.Get(ctx, productListKey(p), func(ctx context.Context) (*api.ProductPage, error) {
		return r.src.ListProducts(ctx, p)
	})
}

// SeedOrder pre-populates the per-order cache, e.g. with the initial
// {id, status} pair a submission returns, before the first full fetch.
func (r *ReadModel) SeedOrder(o api.Order) {
	r.orders.Seed(orderKey(o.ID), o)
}

// PatchOrder merges fields into a cached order without a server round
// trip. Orders are never client-editable; this exists for optimistic
// and poll-driven updates only.
func (r *ReadModel) PatchOrder(id string, merge func(api.Order) api.Order) bool {
	return r.orders.Patch(orderKey(id), merge)
}

// PeekOrder returns the cached order regardless of freshness.
func (r *ReadModel) PeekOrder(id string) (api.Order, bool) {
	return r.orders.Peek(orderKey(id))
}

// InvalidateOrder drops the cached order.
func (r *ReadModel) InvalidateOrder(id string) {
	r.orders.Invalidate(orderKey(id))
}

// InvalidateOrderLists drops every cached order list query. Invoked
// after a successful submission: all list queries go stale together.
func (r *ReadModel) InvalidateOrderLists() {
	r.orderLists.InvalidatePrefix("orders:")
}

// InvalidateProductLists drops every cached catalog query.
func (r *ReadModel) InvalidateProductLists() {
	r.productLists.InvalidatePrefix("products:")
}
