package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"restaurant-foh/internal/domain"
	"restaurant-foh/internal/server/repository"
)

// memStore is an in-memory stand-in for both repositories, enough to run
// the service end to end without Postgres.
type memStore struct {
	mu      sync.Mutex
	recipes map[int64]domain.Recipe
	tables  map[int64]domain.Table
	orders  map[int64]*domain.Order
	jobs    map[int64]*domain.PrintJob
	nextID  int64
	now     time.Time
}

func newMemStore() *memStore {
	m := &memStore{
		recipes: map[int64]domain.Recipe{},
		tables:  map[int64]domain.Table{},
		orders:  map[int64]*domain.Order{},
		jobs:    map[int64]*domain.PrintJob{},
		now:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	grill := int64(1)
	m.recipes[10] = domain.Recipe{ID: 10, Name: "Arroz con Pollo", Price: 12.50, PreparationTime: 15, GroupID: &grill, GroupName: "Grill"}
	m.recipes[11] = domain.Recipe{ID: 11, Name: "Sopa del Dia", Price: 6.00, PreparationTime: 5}
	m.tables[3] = domain.Table{ID: 3, Zone: "Salon", Name: "T3", Seats: 4}
	return m
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) RecipeByID(_ context.Context, id int64) (domain.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recipes[id]
	if !ok {
		return domain.Recipe{}, fmt.Errorf("recipe %d: %w", id, repository.ErrNotFound)
	}
	return rec, nil
}

func (m *memStore) CreateOrderTx(_ context.Context, req domain.CreateOrderRequest, items []repository.NewItem) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tables[req.TableID]
	o := &domain.Order{
		ID:           m.id(),
		TableID:      req.TableID,
		TableName:    t.Name,
		Zone:         t.Zone,
		WaiterName:   req.WaiterName,
		CustomerName: req.CustomerName,
		PartySize:    req.PartySize,
		Status:       domain.OrderCreated,
		CreatedAt:    m.now,
	}
	for _, ni := range items {
		o.Items = append(o.Items, m.buildItem(o.ID, ni))
	}
	m.orders[o.ID] = o
	return m.snapshot(o), nil
}

func (m *memStore) buildItem(orderID int64, ni repository.NewItem) domain.OrderItem {
	return domain.OrderItem{
		ID:             m.id(),
		OrderID:        orderID,
		RecipeID:       ni.RecipeID,
		RecipeName:     m.recipes[ni.RecipeID].Name,
		Quantity:       ni.Quantity,
		UnitPrice:      ni.UnitPrice,
		TotalPrice:     ni.TotalPrice,
		ContainerPrice: ni.ContainerPrice,
		IsTakeaway:     ni.IsTakeaway,
		Notes:          ni.Notes,
		Status:         domain.ItemCreated,
		CreatedAt:      m.now,
	}
}

func (m *memStore) AddItem(_ context.Context, orderID int64, ni repository.NewItem) (domain.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return domain.OrderItem{}, fmt.Errorf("order %d: %w", orderID, repository.ErrNotFound)
	}
	it := m.buildItem(orderID, ni)
	o.Items = append(o.Items, it)
	return it, nil
}

func (m *memStore) snapshot(o *domain.Order) domain.Order {
	out := *o
	out.Items = append([]domain.OrderItem(nil), o.Items...)
	out.Total = 0
	for _, it := range out.Items {
		if it.Status != domain.ItemCanceled {
			out.Total += it.TotalPrice
		}
	}
	out.GrandTotal = out.Total
	return out
}

func (m *memStore) OrderByID(_ context.Context, id int64) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("order %d: %w", id, repository.ErrNotFound)
	}
	return m.snapshot(o), nil
}

func (m *memStore) ListOrders(_ context.Context, status string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if status == "" || string(o.Status) == status {
			out = append(out, m.snapshot(o))
		}
	}
	return out, nil
}

func (m *memStore) findItem(id int64) (*domain.Order, *domain.OrderItem) {
	for _, o := range m.orders {
		for i := range o.Items {
			if o.Items[i].ID == id {
				return o, &o.Items[i]
			}
		}
	}
	return nil, nil
}

func (m *memStore) ItemByID(_ context.Context, id int64) (domain.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, it := m.findItem(id)
	if it == nil {
		return domain.OrderItem{}, fmt.Errorf("order item %d: %w", id, repository.ErrNotFound)
	}
	return *it, nil
}

func (m *memStore) SetItemStatus(_ context.Context, id int64, status domain.OrderItemStatus) (domain.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, it := m.findItem(id)
	if it == nil {
		return domain.OrderItem{}, fmt.Errorf("order item %d: %w", id, repository.ErrNotFound)
	}
	it.Status = status
	if status == domain.ItemPreparing && it.PreparingAt == nil {
		at := m.now
		it.PreparingAt = &at
	}
	return *it, nil
}

func (m *memStore) CancelItem(_ context.Context, id int64, reason string) (domain.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, it := m.findItem(id)
	if it == nil {
		return domain.OrderItem{}, fmt.Errorf("order item %d: %w", id, repository.ErrNotFound)
	}
	it.Status = domain.ItemCanceled
	it.CancellationReason = &reason
	return *it, nil
}

func (m *memStore) CloseOrderTx(_ context.Context, orderID int64) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return domain.Order{}, fmt.Errorf("order %d: %w", orderID, repository.ErrNotFound)
	}
	if !domain.CanCloseOrder(o.Items) {
		return domain.Order{}, repository.ErrPreconditionFailed
	}
	for i := range o.Items {
		if o.Items[i].Status == domain.ItemPreparing {
			o.Items[i].Status = domain.ItemServed
		}
	}
	o.Status = domain.OrderServed
	return m.snapshot(o), nil
}

func (m *memStore) SetOrderStatus(_ context.Context, orderID int64, status domain.OrderStatus, reason string) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return domain.Order{}, fmt.Errorf("order %d: %w", orderID, repository.ErrNotFound)
	}
	o.Status = status
	if status == domain.OrderCanceled {
		for i := range o.Items {
			s := o.Items[i].Status
			if s == domain.ItemCreated || s == domain.ItemPreparing {
				o.Items[i].Status = domain.ItemCanceled
				r := reason
				o.Items[i].CancellationReason = &r
			}
		}
	}
	return m.snapshot(o), nil
}

func (m *memStore) Board(_ context.Context) ([]domain.BoardRecipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byRecipe := map[int64]*domain.BoardRecipe{}
	var order []int64
	for _, o := range m.orders {
		if !domain.OccupiesTable(o.Status) {
			continue
		}
		for _, it := range o.Items {
			if it.Status != domain.ItemCreated && it.Status != domain.ItemPreparing {
				continue
			}
			br, ok := byRecipe[it.RecipeID]
			if !ok {
				rec := m.recipes[it.RecipeID]
				br = &domain.BoardRecipe{
					RecipeID:        rec.ID,
					RecipeName:      rec.Name,
					RecipeGroupID:   rec.GroupID,
					RecipeGroupName: rec.GroupName,
					PreparationTime: rec.PreparationTime,
				}
				byRecipe[it.RecipeID] = br
				order = append(order, it.RecipeID)
			}
			bi := domain.BoardItem{
				ID:         it.ID,
				OrderID:    o.ID,
				OrderZone:  o.Zone,
				OrderTable: o.TableName,
				WaiterName: o.WaiterName,
				Quantity:   it.Quantity,
				IsTakeaway: it.IsTakeaway,
				Notes:      it.Notes,
				Status:     it.Status,
				CreatedAt:  it.CreatedAt.UTC().Format(time.RFC3339),
			}
			if it.PreparingAt != nil {
				bi.PreparingAt = it.PreparingAt.UTC().Format(time.RFC3339)
			}
			br.Items = append(br.Items, bi)
		}
	}
	out := make([]domain.BoardRecipe, 0, len(order))
	for _, id := range order {
		out = append(out, *byRecipe[id])
	}
	return out, nil
}

func (m *memStore) Tables(_ context.Context) ([]domain.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Table
	for _, t := range m.tables {
		t.Occupied = false
		for _, o := range m.orders {
			if o.TableID == t.ID && domain.OccupiesTable(o.Status) {
				t.Occupied = true
			}
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memStore) ActiveOrdersForTable(_ context.Context, tableID int64) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.TableID == tableID && domain.OccupiesTable(o.Status) {
			out = append(out, m.snapshot(o))
		}
	}
	return out, nil
}

func (m *memStore) CreateJob(_ context.Context, orderItemID int64) (domain.PrintJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := &domain.PrintJob{
		ID:          m.id(),
		OrderItemID: orderItemID,
		Status:      domain.PrintPending,
		Attempts:    1,
		CreatedAt:   m.now,
		UpdatedAt:   m.now,
	}
	m.jobs[j.ID] = j
	return *j, nil
}

func (m *memStore) JobsByItem(_ context.Context, orderItemID int64) ([]domain.PrintJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PrintJob
	for _, j := range m.jobs {
		if j.OrderItemID == orderItemID {
			out = append(out, *j)
		}
	}
	for i := 0; i < len(out); i++ {
		for k := i + 1; k < len(out); k++ {
			if out[k].ID > out[i].ID {
				out[i], out[k] = out[k], out[i]
			}
		}
	}
	return out, nil
}

func (m *memStore) JobByID(_ context.Context, id int64) (domain.PrintJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.PrintJob{}, fmt.Errorf("print job %d: %w", id, repository.ErrNotFound)
	}
	return *j, nil
}

func (m *memStore) SetJobStatus(_ context.Context, id int64, status domain.PrintJobStatus) (domain.PrintJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.PrintJob{}, fmt.Errorf("print job %d: %w", id, repository.ErrNotFound)
	}
	j.Status = status
	return *j, nil
}

func (m *memStore) RetryJob(_ context.Context, id int64) (domain.PrintJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.PrintJob{}, fmt.Errorf("print job %d: %w", id, repository.ErrNotFound)
	}
	j.Status = domain.PrintPending
	j.Attempts++
	return *j, nil
}

func (m *memStore) CancelOpenJobsForItem(_ context.Context, orderItemID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.OrderItemID == orderItemID && !j.Terminal() {
			j.Status = domain.PrintCancelled
		}
	}
	return nil
}

// fakePub records published tickets and can be told to fail.
type fakePub struct {
	mu     sync.Mutex
	sent   []domain.TicketMessage
	broken bool
}

func (p *fakePub) PublishTicket(_ context.Context, msg domain.TicketMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.broken {
		return fmt.Errorf("broker unavailable")
	}
	p.sent = append(p.sent, msg)
	return nil
}

func (p *fakePub) published() []domain.TicketMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.TicketMessage(nil), p.sent...)
}

func newTestService() (*OrderService, *memStore, *fakePub) {
	store := newMemStore()
	pub := &fakePub{}
	return NewOrderService(store, store, pub), store, pub
}
