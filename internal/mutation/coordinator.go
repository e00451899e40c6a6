// Package mutation serializes user-triggered mutations against the order
// API. Every mutation applies its local effect immediately, then confirms or
// reconciles against the server result; a per-target in-flight set stops
// rapid repeated clicks from double-submitting.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"restaurant-foh/internal/client"
	"restaurant-foh/internal/domain"
)

var ErrBusy = errors.New("mutation already in flight for this target")

// API is the slice of the order API the coordinator needs.
type API interface {
	UpdateOrderItemStatus(ctx context.Context, itemID int64, status domain.OrderItemStatus) (domain.OrderItem, bool, error)
	CancelOrderItem(ctx context.Context, itemID int64, reason string) (domain.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus, reason string) (domain.Order, error)
	OrderByID(ctx context.Context, id int64) (domain.Order, error)
}

// Notifier surfaces transient, dismissable user notices.
type Notifier interface {
	Info(msg string)
	Error(msg string)
}

type nopNotifier struct{}

func (nopNotifier) Info(string)  {}
func (nopNotifier) Error(string) {}

type Coordinator struct {
	api    API
	notify Notifier

	// OnItem receives the optimistic item state immediately and the
	// confirmed state once the server answers. OnOrder receives a full
	// re-fetched order whenever reconciliation was needed.
	OnItem  func(domain.OrderItem)
	OnOrder func(domain.Order)

	mu     sync.Mutex
	items  map[int64]bool
	orders map[int64]bool
}

func New(api API, notify Notifier) *Coordinator {
	if notify == nil {
		notify = nopNotifier{}
	}
	return &Coordinator{
		api:    api,
		notify: notify,
		items:  make(map[int64]bool),
		orders: make(map[int64]bool),
	}
}

// Processing reports whether a mutation for the item is in flight. The board
// presenter consults this (read-only) to grey out the row.
func (c *Coordinator) Processing(itemID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items[itemID]
}

// AdvanceItem moves the item to its next lifecycle status.
func (c *Coordinator) AdvanceItem(ctx context.Context, item domain.OrderItem) error {
	next, ok := domain.NextItemStatus(item.Status)
	if !ok {
		return fmt.Errorf("%w: item %d is %s", domain.ErrInvalidTransition, item.ID, item.Status)
	}
	return c.TransitionItem(ctx, item, next)
}

// TransitionItem requests a specific item status.
func (c *Coordinator) TransitionItem(ctx context.Context, item domain.OrderItem, target domain.OrderItemStatus) error {
	if err := domain.ValidateItemTransition(item.Status, target); err != nil {
		if errors.Is(err, domain.ErrStatusAlreadySet) {
			// racing clients see this constantly; not an error
			c.notify.Info(fmt.Sprintf("item %d already %s", item.ID, target))
			return nil
		}
		return err
	}
	if !c.acquireItem(item.ID) {
		return ErrBusy
	}
	defer c.releaseItem(item.ID)

	// optimistic local apply
	optimistic := item
	optimistic.Status = target
	c.emitItem(optimistic)

	confirmed, already, err := c.api.UpdateOrderItemStatus(ctx, item.ID, target)
	if err != nil {
		return c.reconcileItem(ctx, item, target, err)
	}
	if already {
		c.notify.Info(fmt.Sprintf("item %d was already %s", item.ID, target))
	}
	c.emitItem(confirmed)
	return nil
}

// CancelItem cancels the item with a mandatory reason. Validation failures
// never reach the network.
func (c *Coordinator) CancelItem(ctx context.Context, item domain.OrderItem, reason string) error {
	if err := domain.ValidateCancelReason(reason); err != nil {
		return err
	}
	if err := domain.ValidateItemTransition(item.Status, domain.ItemCanceled); err != nil {
		if errors.Is(err, domain.ErrStatusAlreadySet) {
			c.notify.Info(fmt.Sprintf("item %d already canceled", item.ID))
			return nil
		}
		return err
	}
	if !c.acquireItem(item.ID) {
		return ErrBusy
	}
	defer c.releaseItem(item.ID)

	optimistic := item
	optimistic.Status = domain.ItemCanceled
	optimistic.CancellationReason = &reason
	c.emitItem(optimistic)

	confirmed, err := c.api.CancelOrderItem(ctx, item.ID, reason)
	if err != nil {
		return c.reconcileItem(ctx, item, domain.ItemCanceled, err)
	}
	c.emitItem(confirmed)
	return nil
}

// CloseOrder bulk-transitions an order to SERVED. The precondition (every
// active item currently PREPARING) is checked locally before any call.
func (c *Coordinator) CloseOrder(ctx context.Context, order domain.Order) error {
	if !domain.CanCloseOrder(order.Items) {
		return domain.ErrOrderNotClosable
	}
	return c.transitionOrder(ctx, order, domain.OrderServed, "")
}

// MarkPaid settles a served order.
func (c *Coordinator) MarkPaid(ctx context.Context, order domain.Order) error {
	return c.transitionOrder(ctx, order, domain.OrderPaid, "")
}

// CancelOrder cancels the whole order with a reason.
func (c *Coordinator) CancelOrder(ctx context.Context, order domain.Order, reason string) error {
	if err := domain.ValidateCancelReason(reason); err != nil {
		return err
	}
	return c.transitionOrder(ctx, order, domain.OrderCanceled, reason)
}

func (c *Coordinator) transitionOrder(ctx context.Context, order domain.Order, target domain.OrderStatus, reason string) error {
	if err := domain.ValidateOrderTransition(order.Status, target); err != nil {
		if errors.Is(err, domain.ErrStatusAlreadySet) {
			c.notify.Info(fmt.Sprintf("order %d already %s", order.ID, target))
			return nil
		}
		return err
	}
	c.mu.Lock()
	if c.orders[order.ID] {
		c.mu.Unlock()
		return ErrBusy
	}
	c.orders[order.ID] = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.orders, order.ID)
		c.mu.Unlock()
	}()

	confirmed, err := c.api.UpdateOrderStatus(ctx, order.ID, target, reason)
	if err != nil {
		if errors.Is(err, client.ErrConflict) {
			// the server may have moved first; re-fetch decides
			if fresh, ferr := c.api.OrderByID(ctx, order.ID); ferr == nil {
				c.emitOrder(fresh)
				if fresh.Status == target {
					c.notify.Info(fmt.Sprintf("order %d already %s", order.ID, target))
					return nil
				}
			}
		}
		c.notify.Error(fmt.Sprintf("order %d: %s failed", order.ID, target))
		return fmt.Errorf("mutation: order %d -> %s: %w", order.ID, target, err)
	}
	c.emitOrder(confirmed)
	return nil
}

// reconcileItem handles a failed item mutation. The optimistic change was
// already rendered against shared, remote-derived state, so instead of a
// manual undo the whole affected order is re-fetched; the true state may
// have moved concurrently anyway.
func (c *Coordinator) reconcileItem(ctx context.Context, item domain.OrderItem, target domain.OrderItemStatus, cause error) error {
	if errors.Is(cause, client.ErrConflict) {
		if fresh, err := c.api.OrderByID(ctx, item.OrderID); err == nil {
			c.emitOrder(fresh)
			for _, it := range fresh.Items {
				if it.ID == item.ID && it.Status == target {
					c.notify.Info(fmt.Sprintf("item %d already %s", item.ID, target))
					return nil
				}
			}
		}
	} else if fresh, err := c.api.OrderByID(ctx, item.OrderID); err == nil {
		c.emitOrder(fresh)
	} else {
		log.Warn().Err(err).Int64("order_id", item.OrderID).Msg("mutation: reconcile re-fetch failed")
	}
	c.notify.Error(fmt.Sprintf("item %d: %s failed", item.ID, target))
	return fmt.Errorf("mutation: item %d -> %s: %w", item.ID, target, cause)
}

func (c *Coordinator) acquireItem(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items[id] {
		return false
	}
	c.items[id] = true
	return true
}

func (c *Coordinator) releaseItem(id int64) {
	c.mu.Lock()
	delete(c.items, id)
	c.mu.Unlock()
}

func (c *Coordinator) emitItem(it domain.OrderItem) {
	if c.OnItem != nil {
		c.OnItem(it)
	}
}

func (c *Coordinator) emitOrder(o domain.Order) {
	if c.OnOrder != nil {
		c.OnOrder(o)
	}
}
