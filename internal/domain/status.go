package domain

import "errors"

var (
	ErrStatusAlreadySet  = errors.New("status is already set to the desired value")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrReasonRequired    = errors.New("cancellation reason is required")
	ErrOrderNotClosable  = errors.New("order has active items not yet preparing")
)

// Item statuses move strictly forward: CREATED -> PREPARING -> SERVED.
// CANCELED is reachable from CREATED or PREPARING only.
var itemTransitions = map[OrderItemStatus]map[OrderItemStatus]bool{
	ItemCreated:   {ItemPreparing: true, ItemCanceled: true},
	ItemPreparing: {ItemServed: true, ItemCanceled: true},
	ItemServed:    {},
	ItemCanceled:  {},
}

var orderTransitions = map[OrderStatus]map[OrderStatus]bool{
	OrderCreated:   {OrderPreparing: true, OrderServed: true, OrderCanceled: true},
	OrderPreparing: {OrderServed: true, OrderCanceled: true},
	OrderServed:    {OrderPaid: true},
	OrderPaid:      {},
	OrderCanceled:  {},
}

// NextItemStatus returns the next manual step in an item's lifecycle, or
// false when no further manual transition exists.
func NextItemStatus(cur OrderItemStatus) (OrderItemStatus, bool) {
	switch cur {
	case ItemCreated:
		return ItemPreparing, true
	case ItemPreparing:
		return ItemServed, true
	default:
		return "", false
	}
}

// ValidateItemTransition checks cur -> next. A request for the status the
// item already has yields ErrStatusAlreadySet; callers treat that as success
// because concurrent clients race to apply the same transition.
func ValidateItemTransition(cur, next OrderItemStatus) error {
	if cur == next {
		return ErrStatusAlreadySet
	}
	if !itemTransitions[cur][next] {
		return ErrInvalidTransition
	}
	return nil
}

func ValidateOrderTransition(cur, next OrderStatus) error {
	if cur == next {
		return ErrStatusAlreadySet
	}
	if !orderTransitions[cur][next] {
		return ErrInvalidTransition
	}
	return nil
}

func ValidateCancelReason(reason string) error {
	if reason == "" {
		return ErrReasonRequired
	}
	return nil
}

// ActiveItems filters out canceled items.
func ActiveItems(items []OrderItem) []OrderItem {
	out := make([]OrderItem, 0, len(items))
	for _, it := range items {
		if it.Status != ItemCanceled {
			out = append(out, it)
		}
	}
	return out
}

// CanCloseOrder reports whether the bulk SERVED transition is allowed:
// every active item must currently be PREPARING, and there must be at
// least one of them.
func CanCloseOrder(items []OrderItem) bool {
	active := ActiveItems(items)
	if len(active) == 0 {
		return false
	}
	for _, it := range active {
		if it.Status != ItemPreparing {
			return false
		}
	}
	return true
}

// OccupiesTable reports whether the order keeps its table occupied.
func OccupiesTable(status OrderStatus) bool {
	return status == OrderCreated || status == OrderPreparing
}
