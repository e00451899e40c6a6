package display

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-foh/internal/domain"
	"restaurant-foh/internal/kitchen/board"
)

type fakeAPI struct {
	board []domain.BoardRecipe
	order domain.Order
}

func (f *fakeAPI) KitchenBoard(context.Context) ([]domain.BoardRecipe, error) {
	return f.board, nil
}

func (f *fakeAPI) OrderByID(context.Context, int64) (domain.Order, error) {
	return f.order, nil
}

func (f *fakeAPI) UpdateOrderItemStatus(_ context.Context, itemID int64, status domain.OrderItemStatus) (domain.OrderItem, bool, error) {
	return domain.OrderItem{ID: itemID, Status: status}, false, nil
}

func (f *fakeAPI) CancelOrderItem(_ context.Context, itemID int64, reason string) (domain.OrderItem, error) {
	return domain.OrderItem{ID: itemID, Status: domain.ItemCanceled, CancellationReason: &reason}, nil
}

func (f *fakeAPI) UpdateOrderStatus(_ context.Context, orderID int64, status domain.OrderStatus, _ string) (domain.Order, error) {
	return domain.Order{ID: orderID, Status: status}, nil
}

func (f *fakeAPI) PrintJobsByOrderItem(context.Context, int64) ([]domain.PrintJob, error) {
	return nil, nil
}

func (f *fakeAPI) RetryPrintJob(context.Context, int64) (domain.PrintJob, error) {
	return domain.PrintJob{}, nil
}

func groupWith(items ...domain.BoardItem) []domain.BoardRecipe {
	return []domain.BoardRecipe{{
		RecipeID:        10,
		RecipeName:      "Arroz con Pollo",
		PreparationTime: 15,
		Items:           items,
	}}
}

func TestSyncWatchersLifecycle(t *testing.T) {
	app := New(&fakeAPI{}, Options{BoardInterval: time.Hour, TickInterval: time.Hour})
	defer app.stopWatchers()

	created := domain.BoardItem{ID: 1, OrderID: 2, Status: domain.ItemCreated, CreatedAt: "2025-06-01T12:00:00Z"}
	preparing := domain.BoardItem{ID: 3, OrderID: 2, Status: domain.ItemPreparing, CreatedAt: "2025-06-01T12:01:00Z"}

	app.syncWatchers(groupWith(created, preparing))
	app.mu.Lock()
	assert.Contains(t, app.watchers, int64(1), "CREATED item gets a watcher")
	assert.NotContains(t, app.watchers, int64(3), "PREPARING item does not")
	app.mu.Unlock()

	// the item advances on a later snapshot
	created.Status = domain.ItemPreparing
	app.syncWatchers(groupWith(created, preparing))
	app.mu.Lock()
	assert.Contains(t, app.watchers, int64(1), "watcher survives until the item leaves")
	app.mu.Unlock()

	// both items leave the board
	app.syncWatchers(nil)
	app.mu.Lock()
	assert.Empty(t, app.watchers)
	assert.Empty(t, app.items)
	app.mu.Unlock()
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want command
		ok   bool
	}{
		{"advance 5", command{verb: "advance", id: 5}, true},
		{"retry 12", command{verb: "retry", id: 12}, true},
		{"cancel 5 dropped the plate", command{verb: "cancel", id: 5, arg: "dropped the plate"}, true},
		{"cancel 5", command{}, false},
		{"cancel-order 7 guest left", command{verb: "cancel-order", id: 7, arg: "guest left"}, true},
		{"close 7", command{verb: "close", id: 7}, true},
		{"paid 7", command{verb: "paid", id: 7}, true},
		{"filter T3", command{verb: "filter", arg: "T3"}, true},
		{"filter", command{verb: "filter"}, true},
		{"advance zero", command{}, false},
		{"advance -1", command{}, false},
		{"", command{}, false},
		{"nonsense 1", command{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			got, ok := parseCommand(tc.line)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestRenderView(t *testing.T) {
	v := board.View{
		Stations: map[domain.StationKey]board.StationView{
			domain.GroupedStation(1): {
				Name: "Grill",
				Items: []board.ItemView{
					{
						BoardItem:  domain.BoardItem{ID: 7, Quantity: 2, OrderTable: "T3", Status: domain.ItemPreparing, Notes: "no onion"},
						RecipeName: "Arroz con Pollo",
						QueuePos:   1,
						Elapsed:    "3m 10s",
						Overdue:    true,
					},
				},
			},
		},
		Tables: []string{"T3"},
		Total:  1,
		Urgent: 1,
		Filter: "T3",
	}

	out := renderView(v)
	assert.Contains(t, out, "items=1 urgent=1")
	assert.Contains(t, out, "[table T3]")
	assert.Contains(t, out, "== Grill ==")
	assert.Contains(t, out, "2x Arroz con Pollo")
	assert.Contains(t, out, "OVERDUE")
	assert.Contains(t, out, "no onion")
	assert.Contains(t, out, "3m 10s")
}

func TestDiffFlagsStatusChanges(t *testing.T) {
	app := New(&fakeAPI{}, Options{BoardInterval: time.Hour, TickInterval: time.Hour})
	defer app.stopWatchers()

	prev := groupWith(domain.BoardItem{ID: 1, Status: domain.ItemCreated})
	next := groupWith(
		domain.BoardItem{ID: 1, Status: domain.ItemPreparing, PreparingAt: "2025-06-01T12:05:00Z"},
		domain.BoardItem{ID: 2, Status: domain.ItemCreated},
	)

	delta := app.poller.Diff(prev, true, next)
	require.Len(t, delta.Added, 1)
	assert.Equal(t, int64(2), delta.Added[0].ID)
	require.Len(t, delta.Changed, 1)
	assert.Equal(t, domain.ItemPreparing, delta.Changed[0].After.Status)
	assert.Empty(t, delta.Removed)

	first := app.poller.Diff(nil, false, next)
	assert.True(t, first.Empty(), "first snapshot produces no delta")
}
