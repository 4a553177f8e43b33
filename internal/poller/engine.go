// Package poller re-fetches watched orders on a fixed interval until
// they reach a terminal status. Polling is bounded: terminal orders are
// never re-polled, and at most one timer exists per watched id.
package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tecburger/storefront/internal/api"
)

// DefaultInterval between poll ticks. No backoff: order completion is
// expected within a short bounded window, unlike general retries.
const DefaultInterval = 5 * time.Second

// FetchFunc retrieves the current status of an order. Wiring normally
// points this at the read model's refreshing fetch.
type FetchFunc func(ctx context.Context, id string) (api.OrderStatus, error)

type watchState struct {
	gen  uint64
	stop func() bool // cancels the pending timer, nil while a tick runs
}

// Engine is the per-order polling state machine: Idle -> Polling ->
// Terminal. A generation counter per id keeps a stale in-flight tick
// from rescheduling after Unwatch or a re-Watch.
type Engine struct {
	fetch    FetchFunc
	interval time.Duration
	log      *zap.Logger

	mu      sync.Mutex
	watches map[string]*watchState
	nextGen uint64

	// afterFunc is swapped in tests for deterministic scheduling.
	afterFunc func(d time.Duration, f func()) (stop func() bool)
}

// New returns an Engine. interval <= 0 selects DefaultInterval.
func New(fetch FetchFunc, interval time.Duration, log *zap.Logger) *Engine {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		fetch:    fetch,
		interval: interval,
		log:      log,
		watches:  map[string]*watchState{},
		afterFunc: func(d time.Duration, f func()) func() bool {
			t := time.AfterFunc(d, f)
			return t.Stop
		},
	}
}

// Watch starts polling the order. The first fetch runs immediately.
// Calling Watch for an id that is already polling is a no-op: a second
// timer is never created.
func (e *Engine) Watch(ctx context.Context, id string) {
	e.mu.Lock()
	if _, ok := e.watches[id]; ok {
		e.mu.Unlock()
		return
	}
	e.nextGen++
	gen := e.nextGen
	w := &watchState{gen: gen}
	e.watches[id] = w
	w.stop = e.afterFunc(0, func() { e.tick(ctx, id, gen) })
	e.mu.Unlock()
}

// Unwatch cancels any pending scheduled fetch for id. Safe to call
// repeatedly and for ids that were never watched. An already-dispatched
// fetch may still complete, but its result will not schedule another
// poll.
func (e *Engine) Unwatch(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.watches[id]
	if !ok {
		return
	}
	if w.stop != nil {
		w.stop()
	}
	delete(e.watches, id)
}

// Watching reports whether id is currently being polled.
func (e *Engine) Watching(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.watches[id]
	return ok
}

// Stop unwatches everything.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, w := range e.watches {
		if w.stop != nil {
			w.stop()
		}
		delete(e.watches, id)
	}
}

func (e *Engine) tick(ctx context.Context, id string, gen uint64) {
	status, err := e.fetch(ctx, id)
	if err != nil {
		// one failed tick does not stop polling; only a terminal
		// successful response does
		e.log.Warn("poll tick failed",
			zap.String("order_id", id), zap.Error(err))
		e.schedule(ctx, id, gen)
		return
	}

	if status.IsTerminal() {
		e.mu.Lock()
		if w, ok := e.watches[id]; ok && w.gen == gen {
			delete(e.watches, id)
		}
		e.mu.Unlock()
		e.log.Debug("order reached terminal status, polling stopped",
			zap.String("order_id", id), zap.String("status", string(status)))
		return
	}

	e.schedule(ctx, id, gen)
}

func (e *Engine) schedule(ctx context.Context, id string, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.watches[id]
	if !ok || w.gen != gen {
		// unwatched (or re-watched) while the fetch was in flight
		return
	}
	w.stop = e.afterFunc(e.interval, func() { e.tick(ctx, id, gen) })
}
