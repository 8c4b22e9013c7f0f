// Package lifecycle tracks submitted orders through their brokerage
// lifecycle.
//
// The Controller is the single writer for tracked order state: every
// mutation (submit, cancel, replace, inbound status notification) runs
// under one mutex, and readers only ever see immutable snapshot
// copies. Terminal statuses are sticky, so duplicate or late brokerage
// notifications cannot resurrect a finished order.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avollmer/tastygo/internal/api"
	"github.com/avollmer/tastygo/internal/order"
)

// ErrUnknownOrder indicates an operation on an order the controller
// never tracked.
var ErrUnknownOrder = errors.New("lifecycle: unknown order")

// InvalidStateError rejects an operation the tracked order's state
// does not allow. It is raised before any transport call is made.
type InvalidStateError struct {
	ID     api.OrderID
	Status order.Status
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("lifecycle: cannot %s order %d in status %q", e.Op, e.ID, e.Status)
}

// OrderAPI is the slice of the account-scoped REST client the
// controller drives. *api.AccountClient satisfies it.
type OrderAPI interface {
	PlaceOrder(ctx context.Context, o order.Order) (*api.PlacedOrder, error)
	CancelOrder(ctx context.Context, id api.OrderID) (*api.LiveOrderRecord, error)
	ReplaceOrder(ctx context.Context, id api.OrderID, o order.Order) (*api.PlacedOrder, error)
}

// Notification is one brokerage lifecycle event for a tracked order.
// Seq orders notifications within an order's stream; stale sequence
// numbers are ignored.
type Notification struct {
	OrderID     api.OrderID
	Seq         uint64
	Status      order.Status
	Cancellable bool
	Editable    bool
}

// LiveOrder is an immutable snapshot of one tracked order.
type LiveOrder struct {
	ID          api.OrderID
	ClientID    uuid.UUID
	Order       order.Order
	Status      order.Status
	Cancellable bool
	Editable    bool
	ReplacedBy  api.OrderID // set when Status is Replaced
	Seq         uint64
	SubmittedAt time.Time
}

// record is the controller's mutable view of one order.
type record struct {
	LiveOrder
}

// Controller submits orders and applies lifecycle transitions.
type Controller struct {
	api    OrderAPI
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	orders map[api.OrderID]*record
	seq    []api.OrderID // submission order
}

// NewController creates a controller over the given order API.
func NewController(orderAPI OrderAPI, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		api:    orderAPI,
		logger: logger,
		now:    time.Now,
		orders: make(map[api.OrderID]*record),
	}
}

// Submit places the order and begins tracking it under the brokerage
// order ID.
func (c *Controller) Submit(ctx context.Context, o order.Order) (*LiveOrder, error) {
	clientID := uuid.New()

	placed, err := c.api.PlaceOrder(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("submit order: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rec := &record{LiveOrder: LiveOrder{
		ID:          placed.Order.ID,
		ClientID:    clientID,
		Order:       o,
		Status:      placed.Order.Status,
		Cancellable: placed.Order.Cancellable,
		Editable:    placed.Order.Editable,
		SubmittedAt: c.now(),
	}}
	c.orders[rec.ID] = rec
	c.seq = append(c.seq, rec.ID)

	c.logger.Info("order submitted",
		"order_id", rec.ID,
		"client_id", clientID,
		"status", string(rec.Status),
	)

	snap := rec.LiveOrder
	return &snap, nil
}

// Cancel requests cancellation. It fails fast with *InvalidStateError,
// before any network call, when the tracked order is terminal or not
// cancellable.
func (c *Controller) Cancel(ctx context.Context, id api.OrderID) (*LiveOrder, error) {
	c.mu.Lock()
	rec, ok := c.orders[id]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrUnknownOrder, id)
	}
	if rec.Status.IsTerminal() || !rec.Cancellable {
		status := rec.Status
		c.mu.Unlock()
		return nil, &InvalidStateError{ID: id, Status: status, Op: "cancel"}
	}
	c.mu.Unlock()

	result, err := c.api.CancelOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cancel order %d: %w", id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// The mutex was released for the round trip, so a notification may
	// have landed meanwhile. Terminal statuses stay sticky: a fill that
	// raced the cancel wins, and the response is discarded.
	if rec.Status.IsTerminal() {
		c.logger.Info("order reached terminal status during cancel, keeping it",
			"order_id", id,
			"status", string(rec.Status),
		)
		snap := rec.LiveOrder
		return &snap, nil
	}

	rec.Status = result.Status
	rec.Cancellable = result.Cancellable
	rec.Editable = result.Editable

	c.logger.Info("order cancel requested", "order_id", id, "status", string(rec.Status))

	snap := rec.LiveOrder
	return &snap, nil
}

// Replace performs cancel-and-replace: the original order transitions
// to Replaced and the brokerage's replacement is tracked as a new
// order linked through ReplacedBy.
func (c *Controller) Replace(ctx context.Context, id api.OrderID, newOrder order.Order) (*LiveOrder, error) {
	c.mu.Lock()
	rec, ok := c.orders[id]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrUnknownOrder, id)
	}
	if rec.Status.IsTerminal() || !rec.Editable {
		status := rec.Status
		c.mu.Unlock()
		return nil, &InvalidStateError{ID: id, Status: status, Op: "replace"}
	}
	c.mu.Unlock()

	placed, err := c.api.ReplaceOrder(ctx, id, newOrder)
	if err != nil {
		return nil, fmt.Errorf("replace order %d: %w", id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Same race as Cancel: if a terminal notification arrived during
	// the round trip, the original keeps its terminal status. The
	// replacement is still tracked, since the brokerage accepted it.
	if rec.Status.IsTerminal() {
		c.logger.Info("order reached terminal status during replace, keeping it",
			"order_id", id,
			"status", string(rec.Status),
		)
	} else {
		rec.Status = order.StatusReplaced
		rec.Cancellable = false
		rec.Editable = false
		rec.ReplacedBy = placed.Order.ID
	}

	replacement := &record{LiveOrder: LiveOrder{
		ID:          placed.Order.ID,
		ClientID:    uuid.New(),
		Order:       newOrder,
		Status:      placed.Order.Status,
		Cancellable: placed.Order.Cancellable,
		Editable:    placed.Order.Editable,
		SubmittedAt: c.now(),
	}}
	c.orders[replacement.ID] = replacement
	c.seq = append(c.seq, replacement.ID)

	c.logger.Info("order replaced",
		"order_id", id,
		"replacement_id", replacement.ID,
		"status", string(replacement.Status),
	)

	snap := replacement.LiveOrder
	return &snap, nil
}

// Apply folds a brokerage notification into the tracked state and
// reports whether it changed anything. Stale sequence numbers and
// transitions out of a terminal status are ignored, so replays and
// duplicates are harmless.
func (c *Controller) Apply(n Notification) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.orders[n.OrderID]
	if !ok {
		c.logger.Debug("notification for untracked order, ignoring", "order_id", n.OrderID)
		return false
	}

	if n.Seq <= rec.Seq {
		return false
	}
	rec.Seq = n.Seq

	if rec.Status.IsTerminal() {
		// Terminal state is sticky; a duplicate Filled (or any
		// post-terminal update) is a no-op.
		return false
	}

	rec.Status = n.Status
	rec.Cancellable = n.Cancellable
	rec.Editable = n.Editable

	c.logger.Debug("order status updated",
		"order_id", n.OrderID,
		"status", string(n.Status),
		"seq", n.Seq,
	)
	return true
}

// Get returns a snapshot of one tracked order.
func (c *Controller) Get(id api.OrderID) (LiveOrder, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.orders[id]
	if !ok {
		return LiveOrder{}, false
	}
	return rec.LiveOrder, true
}

// LiveOrders returns snapshots of every tracked order in submission
// order.
func (c *Controller) LiveOrders() []LiveOrder {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]LiveOrder, 0, len(c.seq))
	for _, id := range c.seq {
		out = append(out, c.orders[id].LiveOrder)
	}
	return out
}
