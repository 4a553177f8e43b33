// stubserver is an in-memory implementation of the Tec Burger REST
// contract for development and manual testing of the client stack. It
// is not a production backend: everything lives in process memory.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/tecburger/storefront/internal/api"
	"github.com/tecburger/storefront/internal/config"
	"github.com/tecburger/storefront/internal/logger"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	step := flag.Duration("step", 3*time.Second, "delay per order status transition")
	flag.Parse()

	cfg := config.Load()
	zl, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	store := newMemoryStore()
	for _, p := range []struct {
		name  string
		price api.Money
	}{
		{"Tec Burger", "25.90"},
		{"Double Tec", "34.90"},
		{"Crispy Fries", "12.00"},
		{"Cheese Bacon", "29.50"},
		{"Milkshake", "18.00"},
	} {
		store.addProduct(p.name, p.price)
	}

	srv := newServer(store, *step, zl)
	zl.Sugar().Infow("stub server listening", "addr", *addr, "step", step.String())
	if err := srv.router().Run(*addr); err != nil {
		zl.Sugar().Fatalw("server exited", "error", err)
	}
}
