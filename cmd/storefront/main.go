// Command storefront is a demo run of the full order stack against a
// live backend (cmd/stubserver works): it pages through the catalog,
// submits a small cart with per-line idempotency keys, then polls the
// accepted orders until every one reaches a terminal status.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tecburger/storefront/internal/api"
	"github.com/tecburger/storefront/internal/auth"
	"github.com/tecburger/storefront/internal/checkout"
	"github.com/tecburger/storefront/internal/client"
	"github.com/tecburger/storefront/internal/config"
	"github.com/tecburger/storefront/internal/idempotency"
	"github.com/tecburger/storefront/internal/logger"
	"github.com/tecburger/storefront/internal/pagination"
	"github.com/tecburger/storefront/internal/poller"
	"github.com/tecburger/storefront/internal/readmodel"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("storefront run failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	authState := &auth.State{}
	if tok := os.Getenv("API_AUTH_TOKEN"); tok != "" {
		authState.SetToken(tok)
	}

	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}

	c := client.New(client.Options{
		BaseURL:       cfg.APIBaseURL,
		Timeout:       cfg.HTTPTimeout,
		RetryAttempts: cfg.RetryAttempts,
		RetryBase:     cfg.RetryBaseDelay,
		RetryMax:      cfg.RetryMaxDelay,
		Limiter:       rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		Auth:          authState,
		Logger:        log,
	})

	store, err := newKeyStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("key store: %w", err)
	}
	keys := idempotency.NewManager(store, cfg.KeyRetention, log)

	rm := readmodel.New(c, readmodel.Staleness{
		Order:       cfg.OrderStaleness,
		OrderList:   cfg.OrderListStaleness,
		Product:     cfg.ProductStaleness,
		ProductList: cfg.ProductListStaleness,
	})

	flow := checkout.NewFlow(c, keys, rm, log)

	// 1. page through the catalog
	walker := pagination.NewWalker(func(ctx context.Context, cursor string) ([]api.Product, string, error) {
		page, err := rm.Products(ctx, api.ProductListParams{Cursor: cursor})
		if err != nil {
			return nil, "", err
		}
		return page.Data, page.Meta.NextCursor, nil
	})
	products, err := walker.Collect(ctx, 3)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	if len(products) == 0 {
		return fmt.Errorf("catalog is empty, nothing to order")
	}
	log.Info("catalog loaded",
		zap.Int("products", len(products)), zap.Int("pages", walker.Pages()))
	for _, p := range products {
		fmt.Printf("  %s  %s  %s\n", p.ID, p.Name, p.Price)
	}

	// 2. submit a two-line cart
	lines := []api.CartLine{{ProductID: products[0].ID, Quantity: 2}}
	if len(products) > 1 {
		lines = append(lines, api.CartLine{ProductID: products[1].ID, Quantity: 1})
	} else {
		lines = append(lines, api.CartLine{ProductID: products[0].ID, Quantity: 1})
	}

	res := flow.Submit(ctx, lines)
	for _, e := range res.Errors {
		log.Warn("cart line rejected", zap.Int("line", e.Line), zap.Error(e.Err))
	}
	if len(res.Orders) == 0 {
		return fmt.Errorf("no cart line was accepted")
	}
	log.Info("cart submitted",
		zap.Int("accepted", len(res.Orders)), zap.Int("rejected", len(res.Errors)))

	// 3. poll the accepted orders until each reaches a terminal status
	done := make(chan string, len(res.Orders))
	eng := poller.New(func(ctx context.Context, id string) (api.OrderStatus, error) {
		o, err := rm.RefreshOrder(ctx, id)
		if err != nil {
			return "", err
		}
		if o.Status.IsTerminal() {
			done <- o.ID
		}
		return o.Status, nil
	}, cfg.PollInterval, log)
	defer eng.Stop()

	for _, a := range res.Orders {
		eng.Watch(ctx, a.OrderID)
	}

	deadline := time.NewTimer(2 * time.Minute)
	defer deadline.Stop()
	remaining := len(res.Orders)
	for remaining > 0 {
		select {
		case id := <-done:
			remaining--
			log.Info("order settled", zap.String("order_id", id))
		case <-deadline.C:
			return fmt.Errorf("%d order(s) still pending after 2m", remaining)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// 4. summary
	fmt.Println("orders:")
	for _, a := range res.Orders {
		o, err := rm.Order(ctx, a.OrderID)
		if err != nil {
			return fmt.Errorf("final order read: %w", err)
		}
		total, err := o.Total()
		if err != nil {
			return fmt.Errorf("order total: %w", err)
		}
		fmt.Printf("  %s  %-10s  %d x %s = %.2f\n",
			o.ID, o.Status, o.Quantity, o.UnitPrice, total)
	}
	return nil
}

// newKeyStore picks the idempotency key backend from config. The
// in-memory store is the default and needs no infrastructure.
func newKeyStore(ctx context.Context, cfg *config.Config) (idempotency.KeyStore, error) {
	switch cfg.KeyStore {
	case "", "memory":
		return idempotency.NewMemoryStore(), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return idempotency.NewRedisStore(rdb, cfg.KeyRetention), nil
	case "dynamo":
		dc, err := idempotency.NewDynamoClient(ctx)
		if err != nil {
			return nil, err
		}
		return idempotency.NewDynamoStore(dc, cfg.DynamoTable), nil
	default:
		return nil, fmt.Errorf("unknown IDEMPOTENCY_KEY_STORE %q", cfg.KeyStore)
	}
}
