// Package checkout turns a multi-line cart into independent
// single-product order submissions, one idempotency key per line, and
// reconciles partial success without rolling anything back.
package checkout

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tecburger/storefront/internal/api"
	"github.com/tecburger/storefront/internal/apierr"
	"github.com/tecburger/storefront/internal/idempotency"
)

// OrderCreator is the slice of the transport the flow needs.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req api.CreateOrderRequest, idempotencyKey string) (*api.CreateOrderResponse, error)
}

// ReadModel receives the optimistic updates a successful submission
// implies. May be nil when no cache is wired.
type ReadModel interface {
	SeedOrder(o api.Order)
	InvalidateOrderLists()
}

// Accepted is one successfully submitted cart line.
type Accepted struct {
	Line    int // 0-based index into the submitted cart
	OrderID string
	Status  api.OrderStatus
}

// LineError is one failed cart line. Err carries the apierr taxonomy.
type LineError struct {
	Line int
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e LineError) Unwrap() error { return e.Err }

// Result reconciles a submission: both slices may be non-empty at once.
// Successes are never retracted when sibling lines fail; the caller
// decides whether partial success counts as success.
type Result struct {
	Orders []Accepted
	Errors []LineError
}

// AllAccepted reports whether every line went through.
func (r Result) AllAccepted() bool { return len(r.Errors) == 0 }

// Flow submits carts. Construct with NewFlow.
type Flow struct {
	creator  OrderCreator
	keys     *idempotency.Manager
	read     ReadModel
	validate *validator.Validate
	log      *zap.Logger
}

// NewFlow wires a submission flow. read may be nil.
func NewFlow(creator OrderCreator, keys *idempotency.Manager, read ReadModel, log *zap.Logger) *Flow {
	if log == nil {
		log = zap.NewNop()
	}
	return &Flow{
		creator:  creator,
		keys:     keys,
		read:     read,
		validate: validator.New(),
		log:      log,
	}
}

// Submit decomposes the cart into one submission per line and runs them
// concurrently; there is no ordering guarantee between lines. Lines
// that fail local validation never reach the server.
func (f *Flow) Submit(ctx context.Context, lines []api.CartLine) Result {
	type slot struct {
		accepted *Accepted
		err      error
	}
	slots := make([]slot, len(lines))

	var wg sync.WaitGroup
	for i, line := range lines {
		if err := f.validate.Struct(line); err != nil {
			slots[i].err = apierr.Wrap(apierr.KindValidation,
				fmt.Sprintf("invalid cart line %d", i), err)
			continue
		}

		wg.Add(1)
		go func(i int, line api.CartLine) {
			defer wg.Done()
			accepted, err := f.submitLine(ctx, i, line)
			if err != nil {
				slots[i].err = err
				return
			}
			slots[i].accepted = accepted
		}(i, line)
	}
	wg.Wait()

	var res Result
	for i, s := range slots {
		switch {
		case s.accepted != nil:
			res.Orders = append(res.Orders, *s.accepted)
		case s.err != nil:
			res.Errors = append(res.Errors, LineError{Line: i, Err: s.err})
		}
	}

	if len(res.Orders) > 0 && f.read != nil {
		// every list query goes stale together once any order exists
		f.read.InvalidateOrderLists()
	}
	return res
}

func (f *Flow) submitLine(ctx context.Context, idx int, line api.CartLine) (*Accepted, error) {
	key := f.keys.Generate()
	// record the key before the attempt so a duplicate submission
	// within the retention window is recognizable
	if err := f.keys.Store(ctx, key, ""); err != nil {
		return nil, err
	}

	resp, err := f.creator.CreateOrder(ctx, api.CreateOrderRequest{
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
	}, key)
	if err != nil {
		if apierr.IsConflict(err) {
			f.log.Warn("idempotency conflict on cart line",
				zap.Int("line", idx), zap.String("key", key))
		}
		return nil, err
	}

	if err := f.keys.Store(ctx, key, resp.OrderID); err != nil {
		// reassignment of a freshly generated key means a bug upstream;
		// the order itself was accepted, so surface loudly but proceed
		f.log.Error("failed to associate idempotency key",
			zap.String("key", key), zap.String("order_id", resp.OrderID), zap.Error(err))
	}

	if f.read != nil {
		// seed the per-order cache with the initial {id, status} pair so
		// the tracker renders before the first full fetch completes
		f.read.SeedOrder(api.Order{
			ID:        resp.OrderID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Status:    resp.Status,
		})
	}

	return &Accepted{Line: idx, OrderID: resp.OrderID, Status: resp.Status}, nil
}
