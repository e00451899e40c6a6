package service

import (
	"context"
	"errors"

	"restaurant-foh/internal/domain"
	"restaurant-foh/internal/server/repository"
)

// ErrValidation marks a request rejected before it touched any state.
var ErrValidation = errors.New("validation failed")

// TicketPublisher pushes kitchen-ticket print requests onto the broker.
type TicketPublisher interface {
	PublishTicket(ctx context.Context, msg domain.TicketMessage) error
}

type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error)
	AddItem(ctx context.Context, orderID int64, req domain.CreateOrderItemRequest) (domain.OrderItem, error)
	OrderByID(ctx context.Context, id int64) (domain.Order, error)
	ListOrders(ctx context.Context, status string) ([]domain.Order, error)
	UpdateItemStatus(ctx context.Context, itemID int64, next domain.OrderItemStatus) (domain.UpdatedOrderItem, error)
	CancelItem(ctx context.Context, itemID int64, reason string) (domain.UpdatedOrderItem, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, req domain.UpdateOrderStatusRequest) (domain.Order, error)
	Board(ctx context.Context) ([]domain.BoardRecipe, error)
	Tables(ctx context.Context) ([]domain.Table, error)
	ActiveOrdersForTable(ctx context.Context, tableID int64) ([]domain.Order, error)
	PrintJobsByItem(ctx context.Context, itemID int64) ([]domain.PrintJob, error)
	RetryPrintJob(ctx context.Context, jobID int64) (domain.PrintJob, error)
}

type OrderService struct {
	orders repository.OrdersRepositoryInterface
	print  repository.PrintRepositoryInterface
	pub    TicketPublisher
}

func NewOrderService(orders repository.OrdersRepositoryInterface, print repository.PrintRepositoryInterface, pub TicketPublisher) *OrderService {
	return &OrderService{orders: orders, print: print, pub: pub}
}
