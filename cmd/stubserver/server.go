package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tecburger/storefront/internal/api"
	"github.com/tecburger/storefront/internal/idempotency"
)

// server exposes the REST contract over the in-memory store and walks
// each accepted order through pending -> processing -> completed on a
// background goroutine.
type server struct {
	store    *memoryStore
	validate *validatorv10.Validate
	step     time.Duration // delay between status transitions
	log      *zap.Logger
}

func newServer(store *memoryStore, step time.Duration, log *zap.Logger) *server {
	if log == nil {
		log = zap.NewNop()
	}
	return &server{
		store:    store,
		validate: validatorv10.New(),
		step:     step,
		log:      log,
	}
}

func (s *server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	catalog := r.Group("/api/catalog/api/v1")
	catalog.GET("/products", s.listProducts)
	catalog.GET("/products/:id", s.getProduct)

	order := r.Group("/api/order/api/v1")
	order.POST("/orders", s.createOrder)
	order.GET("/orders", s.listOrders)
	order.GET("/orders/:id", s.getOrder)

	return r
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, api.ErrorBody{Code: code, Message: message})
}

// parseLimit clamps ?limit= into [1, 100], defaulting to 20.
func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return api.DefaultPageLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > api.MaxPageLimit {
		writeError(c, http.StatusUnprocessableEntity, "validation_error", "limit must be an integer between 1 and 100")
		return 0, false
	}
	return limit, true
}

func (s *server) listProducts(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	sortOrder := api.ProductSort(c.DefaultQuery("sort", string(api.SortCreatedAtDesc)))
	if sortOrder != api.SortCreatedAtDesc && sortOrder != api.SortCreatedAtAsc {
		writeError(c, http.StatusUnprocessableEntity, "validation_error", "unknown sort value")
		return
	}

	items, next, err := s.store.listProducts(limit, c.Query("cursor"), sortOrder)
	if err != nil {
		writeError(c, http.StatusUnprocessableEntity, "validation_error", "invalid cursor")
		return
	}
	c.JSON(http.StatusOK, api.ProductPage{Data: items, Meta: api.PageMeta{NextCursor: next}})
}

func (s *server) getProduct(c *gin.Context) {
	p, ok := s.store.getProduct(c.Param("id"))
	if !ok {
		writeError(c, http.StatusNotFound, "not_found", "product not found")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *server) createOrder(c *gin.Context) {
	key := c.GetHeader("Idempotency-Key")
	if !idempotency.IsValidKey(key) {
		writeError(c, http.StatusUnprocessableEntity, "validation_error", "Idempotency-Key header must be 8-128 characters")
		return
	}

	var req api.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusUnprocessableEntity, "validation_error", "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(c, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	product, ok := s.store.getProduct(req.ProductID)
	if !ok {
		writeError(c, http.StatusUnprocessableEntity, "validation_error", "unknown product")
		return
	}

	resp, created, conflict := s.store.createOrder(req, key, product.Price)
	if conflict {
		writeError(c, http.StatusConflict, "conflict", "idempotency key already used with a different payload")
		return
	}
	if created {
		s.log.Info("order accepted",
			zap.String("order_id", resp.OrderID), zap.String("idempotency_key", key))
		go s.process(resp.OrderID)
	}

	// 202: the order is accepted, processing happens asynchronously
	c.JSON(http.StatusAccepted, resp)
}

// process mimics the backend worker: step the order through its
// lifecycle with a delay per transition. CAS transitions keep replays
// and restarts harmless.
func (s *server) process(orderID string) {
	time.Sleep(s.step)
	if !s.store.advanceOrder(orderID, api.StatusPending, api.StatusProcessing) {
		return
	}
	time.Sleep(s.step)
	if s.store.advanceOrder(orderID, api.StatusProcessing, api.StatusCompleted) {
		s.log.Info("order completed", zap.String("order_id", orderID))
	}
}

func (s *server) listOrders(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	items, next, err := s.store.listOrders(limit, c.Query("cursor"))
	if err != nil {
		writeError(c, http.StatusUnprocessableEntity, "validation_error", "invalid cursor")
		return
	}
	c.JSON(http.StatusOK, api.OrderPage{Data: items, Meta: api.PageMeta{NextCursor: next}})
}

func (s *server) getOrder(c *gin.Context) {
	o, ok := s.store.getOrder(c.Param("id"))
	if !ok {
		writeError(c, http.StatusNotFound, "not_found", "order not found")
		return
	}
	c.JSON(http.StatusOK, o)
}
