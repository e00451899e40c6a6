package repository

import (
	"context"
	"errors"

	"restaurant-foh/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrPreconditionFailed marks a close-order request racing an item that
	// is not PREPARING yet; the check runs inside the transaction.
	ErrPreconditionFailed = errors.New("order precondition failed")
)

// NewItem carries the computed column values for one order_items insert.
type NewItem struct {
	RecipeID       int64
	Quantity       int
	UnitPrice      float64
	TotalPrice     float64
	ContainerPrice float64
	IsTakeaway     bool
	Notes          string
}

type OrdersRepositoryInterface interface {
	RecipeByID(ctx context.Context, id int64) (domain.Recipe, error)
	CreateOrderTx(ctx context.Context, req domain.CreateOrderRequest, items []NewItem) (domain.Order, error)
	AddItem(ctx context.Context, orderID int64, item NewItem) (domain.OrderItem, error)
	OrderByID(ctx context.Context, id int64) (domain.Order, error)
	ListOrders(ctx context.Context, status string) ([]domain.Order, error)
	ItemByID(ctx context.Context, id int64) (domain.OrderItem, error)
	SetItemStatus(ctx context.Context, id int64, status domain.OrderItemStatus) (domain.OrderItem, error)
	CancelItem(ctx context.Context, id int64, reason string) (domain.OrderItem, error)
	// CloseOrderTx re-checks the all-active-items-PREPARING precondition
	// inside the transaction, serves the items and the order atomically.
	CloseOrderTx(ctx context.Context, orderID int64) (domain.Order, error)
	SetOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus, reason string) (domain.Order, error)
	Board(ctx context.Context) ([]domain.BoardRecipe, error)
	Tables(ctx context.Context) ([]domain.Table, error)
	ActiveOrdersForTable(ctx context.Context, tableID int64) ([]domain.Order, error)
}

type PrintRepositoryInterface interface {
	CreateJob(ctx context.Context, orderItemID int64) (domain.PrintJob, error)
	JobsByItem(ctx context.Context, orderItemID int64) ([]domain.PrintJob, error)
	JobByID(ctx context.Context, id int64) (domain.PrintJob, error)
	SetJobStatus(ctx context.Context, id int64, status domain.PrintJobStatus) (domain.PrintJob, error)
	RetryJob(ctx context.Context, id int64) (domain.PrintJob, error)
	CancelOpenJobsForItem(ctx context.Context, orderItemID int64) error
}
