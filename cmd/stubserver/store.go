package main

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tecburger/storefront/internal/api"
)

// memoryStore backs the stub with plain maps. It reproduces the two
// backend behaviors the client depends on: idempotency-key replay with
// payload comparison, and conditional status transitions.
type memoryStore struct {
	mu         sync.Mutex
	products   []api.Product
	productIdx map[string]int
	orders     []string // ids in creation order
	ordersByID map[string]*api.Order
	keys       map[string]keyRecord
	nowFunc    func() time.Time
}

// keyRecord remembers the payload and response of the first submission
// under a key so duplicates replay and divergent payloads conflict.
type keyRecord struct {
	req  api.CreateOrderRequest
	resp api.CreateOrderResponse
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		productIdx: map[string]int{},
		ordersByID: map[string]*api.Order{},
		keys:       map[string]keyRecord{},
		nowFunc:    time.Now,
	}
}

func (s *memoryStore) addProduct(name string, price api.Money) api.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFunc().UTC()
	p := api.Product{
		ID:        uuid.NewString(),
		Name:      name,
		Price:     price,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.productIdx[p.ID] = len(s.products)
	s.products = append(s.products, p)
	return p
}

func (s *memoryStore) getProduct(id string) (api.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.productIdx[id]
	if !ok {
		return api.Product{}, false
	}
	return s.products[i], true
}

func (s *memoryStore) listProducts(limit int, cursor string, sortOrder api.ProductSort) ([]api.Product, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]api.Product, len(s.products))
	copy(items, s.products)
	if sortOrder == api.SortCreatedAtDesc {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		})
	}
	return paginate(items, limit, cursor)
}

// createOrder registers the submission under its idempotency key.
// Returns conflict=true when the key was already used with a different
// payload; a matching payload replays the original response.
func (s *memoryStore) createOrder(req api.CreateOrderRequest, key string, unitPrice api.Money) (resp api.CreateOrderResponse, created, conflict bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.keys[key]; ok {
		if prev.req != req {
			return api.CreateOrderResponse{}, false, true
		}
		return prev.resp, false, false
	}

	now := s.nowFunc().UTC()
	order := &api.Order{
		ID:        uuid.NewString(),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		UnitPrice: unitPrice,
		Status:    api.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.ordersByID[order.ID] = order
	s.orders = append(s.orders, order.ID)

	resp = api.CreateOrderResponse{OrderID: order.ID, Status: order.Status}
	s.keys[key] = keyRecord{req: req, resp: resp}
	return resp, true, false
}

func (s *memoryStore) getOrder(id string) (api.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.ordersByID[id]
	if !ok {
		return api.Order{}, false
	}
	return *o, true
}

func (s *memoryStore) listOrders(limit int, cursor string) ([]api.Order, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// newest first
	items := make([]api.Order, 0, len(s.orders))
	for i := len(s.orders) - 1; i >= 0; i-- {
		items = append(items, *s.ordersByID[s.orders[i]])
	}
	return paginate(items, limit, cursor)
}

// advanceOrder moves id from expected to next, compare-and-set style;
// a mismatch (already advanced elsewhere) reports false.
func (s *memoryStore) advanceOrder(id string, expected, next api.OrderStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.ordersByID[id]
	if !ok || o.Status != expected {
		return false
	}
	o.Status = next
	o.UpdatedAt = s.nowFunc().UTC()
	return true
}

// paginate slices items at the offset hidden inside the opaque cursor.
func paginate[T any](items []T, limit int, cursor string) ([]T, string, error) {
	offset := 0
	if cursor != "" {
		var err error
		offset, err = decodeCursor(cursor)
		if err != nil {
			return nil, "", err
		}
	}
	if offset >= len(items) {
		return []T{}, "", nil
	}

	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	page := items[offset:end]

	next := ""
	if end < len(items) {
		next = encodeCursor(end)
	}
	return page, next, nil
}

func encodeCursor(offset int) string {
	return base64.URLEncoding.EncodeToString([]byte("o:" + strconv.Itoa(offset)))
}

func decodeCursor(cursor string) (int, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("invalid cursor")
	}
	rest, ok := strings.CutPrefix(string(raw), "o:")
	if !ok {
		return 0, fmt.Errorf("invalid cursor")
	}
	offset, err := strconv.Atoi(rest)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("invalid cursor")
	}
	return offset, nil
}
