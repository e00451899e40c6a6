// Package session holds the waiter-side state for one table: cart lines not
// yet sent to the server, plus the currently open order. The session is the
// sole owner of both; other components read them through accessors.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"restaurant-foh/internal/domain"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrNoTableSelected = errors.New("no table selected")
	ErrBadCartIndex    = errors.New("cart index out of range")
	ErrSubmitInFlight  = errors.New("a submission is already in flight")
)

// API is the slice of the order API the session needs.
type API interface {
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error)
	AddOrderItem(ctx context.Context, orderID int64, req domain.CreateOrderItemRequest) (domain.OrderItem, error)
	OrderByID(ctx context.Context, id int64) (domain.Order, error)
}

// CartLine is a pending addition. Lines with the same (recipe, notes,
// takeaway) key merge; the cart never holds duplicate keys.
type CartLine struct {
	RecipeID       int64
	RecipeName     string
	Quantity       int
	Notes          string
	IsTakeaway     bool
	UnitPrice      float64
	Total          float64
	ContainerID    *int64
	ContainerPrice float64
}

type Session struct {
	api API

	mu         sync.Mutex
	tableID    int64
	waiter     string
	cart       []CartLine
	order      *domain.Order
	version    uint64
	submitting bool
}

func New(api API, tableID int64, waiterName string) *Session {
	return &Session{api: api, tableID: tableID, waiter: waiterName}
}

// AddToCart adds one unit of the recipe. An existing line with the same
// (recipe, notes, takeaway) key absorbs it; quantity bumps are done by
// re-adding, removal always takes a whole line.
func (s *Session) AddToCart(recipe domain.Recipe, notes string, isTakeaway bool, containerID *int64, containerPrice float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cart {
		l := &s.cart[i]
		if l.RecipeID == recipe.ID && l.Notes == notes && l.IsTakeaway == isTakeaway {
			l.Quantity++
			l.Total = float64(l.Quantity) * l.UnitPrice
			return
		}
	}
	unit := recipe.Price + containerPrice
	s.cart = append(s.cart, CartLine{
		RecipeID:       recipe.ID,
		RecipeName:     recipe.Name,
		Quantity:       1,
		Notes:          notes,
		IsTakeaway:     isTakeaway,
		UnitPrice:      unit,
		Total:          unit,
		ContainerID:    containerID,
		ContainerPrice: containerPrice,
	})
}

// RemoveFromCart drops the line at index entirely.
func (s *Session) RemoveFromCart(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.cart) {
		return ErrBadCartIndex
	}
	s.cart = append(s.cart[:index], s.cart[index+1:]...)
	return nil
}

// Cart returns a copy of the current cart lines.
func (s *Session) Cart() []CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CartLine, len(s.cart))
	copy(out, s.cart)
	return out
}

func (s *Session) CartTotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum float64
	for _, l := range s.cart {
		sum += l.Total
	}
	return sum
}

// Order returns the currently held order, if any.
func (s *Session) Order() (domain.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order == nil {
		return domain.Order{}, false
	}
	return *s.order, true
}

// Version counts real changes to the held order; renderers use it as a
// dirty check instead of comparing references.
func (s *Session) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Submit sends the cart to the server: a new order when the table has none,
// otherwise one append call per line against the open order followed by a
// re-fetch. The cart is cleared only after the whole submission succeeded.
// Only one submission runs at a time; overlapping calls get ErrSubmitInFlight
// so the same cart can never create two orders.
func (s *Session) Submit(ctx context.Context, customerName string, partySize int) (domain.Order, error) {
	s.mu.Lock()
	if s.tableID <= 0 {
		s.mu.Unlock()
		return domain.Order{}, ErrNoTableSelected
	}
	if len(s.cart) == 0 {
		s.mu.Unlock()
		return domain.Order{}, ErrEmptyCart
	}
	if s.submitting {
		s.mu.Unlock()
		return domain.Order{}, ErrSubmitInFlight
	}
	s.submitting = true
	lines := make([]CartLine, len(s.cart))
	copy(lines, s.cart)
	current := s.order
	tableID, waiter := s.tableID, s.waiter
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.submitting = false
		s.mu.Unlock()
	}()

	var fresh domain.Order
	if current == nil {
		req := domain.CreateOrderRequest{
			TableID:      tableID,
			WaiterName:   waiter,
			CustomerName: customerName,
			PartySize:    partySize,
			Items:        make([]domain.CreateOrderItemRequest, 0, len(lines)),
		}
		for _, l := range lines {
			req.Items = append(req.Items, itemRequest(l))
		}
		o, err := s.api.CreateOrder(ctx, req)
		if err != nil {
			return domain.Order{}, fmt.Errorf("session: create order: %w", err)
		}
		fresh = o
	} else {
		for _, l := range lines {
			if _, err := s.api.AddOrderItem(ctx, current.ID, itemRequest(l)); err != nil {
				return domain.Order{}, fmt.Errorf("session: append item %q: %w", l.RecipeName, err)
			}
		}
		o, err := s.api.OrderByID(ctx, current.ID)
		if err != nil {
			return domain.Order{}, fmt.Errorf("session: refresh order: %w", err)
		}
		fresh = o
	}

	s.mu.Lock()
	s.cart = nil
	s.replaceLocked(fresh)
	s.mu.Unlock()
	log.Info().Int64("order_id", fresh.ID).Int("lines", len(lines)).Msg("session: cart submitted")
	return fresh, nil
}

// Replace swaps in a freshly fetched order. A field-identical order (same
// id, same item id/status pairs, same order status) is ignored so downstream
// renders don't churn. Returns true when the order actually changed.
func (s *Session) Replace(o domain.Order) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceLocked(o)
}

// Clear drops the held order, e.g. after it was served or canceled.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order != nil {
		s.order = nil
		s.version++
	}
}

func (s *Session) replaceLocked(o domain.Order) bool {
	if s.order != nil && sameOrder(*s.order, o) {
		return false
	}
	s.order = &o
	s.version++
	return true
}

func sameOrder(a, b domain.Order) bool {
	if a.ID != b.ID || a.Status != b.Status || len(a.Items) != len(b.Items) {
		return false
	}
	statuses := make(map[int64]domain.OrderItemStatus, len(a.Items))
	for _, it := range a.Items {
		statuses[it.ID] = it.Status
	}
	for _, it := range b.Items {
		st, ok := statuses[it.ID]
		if !ok || st != it.Status {
			return false
		}
	}
	return true
}

func itemRequest(l CartLine) domain.CreateOrderItemRequest {
	return domain.CreateOrderItemRequest{
		RecipeID:       l.RecipeID,
		Quantity:       l.Quantity,
		Notes:          l.Notes,
		IsTakeaway:     l.IsTakeaway,
		ContainerID:    l.ContainerID,
		ContainerPrice: l.ContainerPrice,
	}
}
