package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"restaurant-foh/internal/domain"
	"restaurant-foh/internal/server/repository"
)

func (s *OrderService) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	if req.TableID <= 0 {
		return domain.Order{}, fmt.Errorf("%w: table_id is required", ErrValidation)
	}
	if req.WaiterName == "" {
		return domain.Order{}, fmt.Errorf("%w: waiter_name is required", ErrValidation)
	}
	if len(req.Items) == 0 {
		return domain.Order{}, fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	items := make([]repository.NewItem, 0, len(req.Items))
	for _, ir := range req.Items {
		ni, err := s.priceItem(ctx, ir)
		if err != nil {
			return domain.Order{}, err
		}
		items = append(items, ni)
	}

	order, err := s.orders.CreateOrderTx(ctx, req, items)
	if err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}
	for _, it := range order.Items {
		s.spoolTicket(ctx, order, it)
	}
	deriveStatus(&order)
	return order, nil
}

func (s *OrderService) AddItem(ctx context.Context, orderID int64, req domain.CreateOrderItemRequest) (domain.OrderItem, error) {
	order, err := s.orders.OrderByID(ctx, orderID)
	if err != nil {
		return domain.OrderItem{}, err
	}
	if !domain.OccupiesTable(order.Status) {
		return domain.OrderItem{}, fmt.Errorf("order %d is %s: %w", orderID, order.Status, domain.ErrInvalidTransition)
	}
	ni, err := s.priceItem(ctx, req)
	if err != nil {
		return domain.OrderItem{}, err
	}
	item, err := s.orders.AddItem(ctx, orderID, ni)
	if err != nil {
		return domain.OrderItem{}, fmt.Errorf("add item: %w", err)
	}
	s.spoolTicket(ctx, order, item)
	return item, nil
}

func (s *OrderService) priceItem(ctx context.Context, req domain.CreateOrderItemRequest) (repository.NewItem, error) {
	if req.Quantity <= 0 {
		return repository.NewItem{}, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	rec, err := s.orders.RecipeByID(ctx, req.RecipeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.NewItem{}, fmt.Errorf("%w: unknown recipe %d", ErrValidation, req.RecipeID)
		}
		return repository.NewItem{}, err
	}
	unit := rec.Price
	container := 0.0
	if req.IsTakeaway {
		container = req.ContainerPrice
		unit += container
	}
	return repository.NewItem{
		RecipeID:       rec.ID,
		Quantity:       req.Quantity,
		UnitPrice:      unit,
		TotalPrice:     unit * float64(req.Quantity),
		ContainerPrice: container,
		IsTakeaway:     req.IsTakeaway,
		Notes:          req.Notes,
	}, nil
}

// spoolTicket records a print job for the item and hands it to the broker.
// The order is already committed at this point, so a broker hiccup is logged
// and left to the retry endpoint instead of failing the request.
func (s *OrderService) spoolTicket(ctx context.Context, order domain.Order, item domain.OrderItem) {
	job, err := s.print.CreateJob(ctx, item.ID)
	if err != nil {
		log.Error().Err(err).Int64("order_item_id", item.ID).Msg("create print job")
		return
	}
	msg := domain.TicketMessage{
		JobID:       job.ID,
		OrderItemID: item.ID,
		OrderID:     order.ID,
		RecipeName:  item.RecipeName,
		Quantity:    item.Quantity,
		Notes:       item.Notes,
		IsTakeaway:  item.IsTakeaway,
		Zone:        order.Zone,
		Table:       order.TableName,
		WaiterName:  order.WaiterName,
		Attempt:     job.Attempts,
	}
	if err := s.pub.PublishTicket(ctx, msg); err != nil {
		log.Error().Err(err).Int64("job_id", job.ID).Msg("publish ticket")
		if _, err := s.print.SetJobStatus(ctx, job.ID, domain.PrintFailed); err != nil {
			log.Error().Err(err).Int64("job_id", job.ID).Msg("mark job failed")
		}
	}
}

func (s *OrderService) OrderByID(ctx context.Context, id int64) (domain.Order, error) {
	order, err := s.orders.OrderByID(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	deriveStatus(&order)
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, status string) ([]domain.Order, error) {
	orders, err := s.orders.ListOrders(ctx, status)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		deriveStatus(&orders[i])
	}
	return orders, nil
}

func (s *OrderService) UpdateItemStatus(ctx context.Context, itemID int64, next domain.OrderItemStatus) (domain.UpdatedOrderItem, error) {
	item, err := s.orders.ItemByID(ctx, itemID)
	if err != nil {
		return domain.UpdatedOrderItem{}, err
	}
	if err := domain.ValidateItemTransition(item.Status, next); err != nil {
		if errors.Is(err, domain.ErrStatusAlreadySet) {
			return domain.UpdatedOrderItem{OrderItem: item, Already: true}, nil
		}
		return domain.UpdatedOrderItem{}, err
	}
	if next == domain.ItemCanceled {
		return domain.UpdatedOrderItem{}, fmt.Errorf("cancellation needs a reason: %w", domain.ErrReasonRequired)
	}
	updated, err := s.orders.SetItemStatus(ctx, itemID, next)
	if err != nil {
		return domain.UpdatedOrderItem{}, err
	}
	return domain.UpdatedOrderItem{OrderItem: updated}, nil
}

func (s *OrderService) CancelItem(ctx context.Context, itemID int64, reason string) (domain.UpdatedOrderItem, error) {
	if err := domain.ValidateCancelReason(reason); err != nil {
		return domain.UpdatedOrderItem{}, err
	}
	item, err := s.orders.ItemByID(ctx, itemID)
	if err != nil {
		return domain.UpdatedOrderItem{}, err
	}
	if err := domain.ValidateItemTransition(item.Status, domain.ItemCanceled); err != nil {
		if errors.Is(err, domain.ErrStatusAlreadySet) {
			return domain.UpdatedOrderItem{OrderItem: item, Already: true}, nil
		}
		return domain.UpdatedOrderItem{}, err
	}
	updated, err := s.orders.CancelItem(ctx, itemID, reason)
	if err != nil {
		return domain.UpdatedOrderItem{}, err
	}
	if err := s.print.CancelOpenJobsForItem(ctx, itemID); err != nil {
		log.Error().Err(err).Int64("order_item_id", itemID).Msg("cancel print jobs")
	}
	return domain.UpdatedOrderItem{OrderItem: updated}, nil
}

func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID int64, req domain.UpdateOrderStatusRequest) (domain.Order, error) {
	order, err := s.OrderByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if err := domain.ValidateOrderTransition(order.Status, req.Status); err != nil {
		if errors.Is(err, domain.ErrStatusAlreadySet) {
			return order, nil
		}
		return domain.Order{}, err
	}

	switch req.Status {
	case domain.OrderServed:
		closed, err := s.orders.CloseOrderTx(ctx, orderID)
		if err != nil {
			if errors.Is(err, repository.ErrPreconditionFailed) {
				return domain.Order{}, domain.ErrOrderNotClosable
			}
			return domain.Order{}, err
		}
		return closed, nil
	case domain.OrderCanceled:
		if err := domain.ValidateCancelReason(req.Reason); err != nil {
			return domain.Order{}, err
		}
		canceled, err := s.orders.SetOrderStatus(ctx, orderID, domain.OrderCanceled, req.Reason)
		if err != nil {
			return domain.Order{}, err
		}
		for _, it := range canceled.Items {
			if err := s.print.CancelOpenJobsForItem(ctx, it.ID); err != nil {
				log.Error().Err(err).Int64("order_item_id", it.ID).Msg("cancel print jobs")
			}
		}
		return canceled, nil
	default:
		updated, err := s.orders.SetOrderStatus(ctx, orderID, req.Status, "")
		if err != nil {
			return domain.Order{}, err
		}
		deriveStatus(&updated)
		return updated, nil
	}
}

func (s *OrderService) Board(ctx context.Context) ([]domain.BoardRecipe, error) {
	return s.orders.Board(ctx)
}

func (s *OrderService) Tables(ctx context.Context) ([]domain.Table, error) {
	return s.orders.Tables(ctx)
}

func (s *OrderService) ActiveOrdersForTable(ctx context.Context, tableID int64) ([]domain.Order, error) {
	orders, err := s.orders.ActiveOrdersForTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		deriveStatus(&orders[i])
	}
	return orders, nil
}

// deriveStatus lifts a stored CREATED order to PREPARING once the kitchen
// has picked up any of its items. The stored row only moves on explicit
// order-level transitions, so the Board and order reads stay consistent
// without extra writes.
func deriveStatus(o *domain.Order) {
	if o.Status != domain.OrderCreated {
		return
	}
	for _, it := range o.Items {
		if it.Status == domain.ItemPreparing || it.Status == domain.ItemServed {
			o.Status = domain.OrderPreparing
			return
		}
	}
}
