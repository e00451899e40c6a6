package service

import (
	"context"
	"fmt"

	"restaurant-foh/internal/domain"
)

func (s *OrderService) PrintJobsByItem(ctx context.Context, itemID int64) ([]domain.PrintJob, error) {
	if _, err := s.orders.ItemByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.print.JobsByItem(ctx, itemID)
}

// RetryPrintJob requeues a failed ticket. Anything else is either already
// moving through the spooler or done, so the request is a conflict.
func (s *OrderService) RetryPrintJob(ctx context.Context, jobID int64) (domain.PrintJob, error) {
	job, err := s.print.JobByID(ctx, jobID)
	if err != nil {
		return domain.PrintJob{}, err
	}
	if job.Status != domain.PrintFailed {
		return domain.PrintJob{}, fmt.Errorf("print job %d is %s: %w", jobID, job.Status, domain.ErrInvalidTransition)
	}
	item, err := s.orders.ItemByID(ctx, job.OrderItemID)
	if err != nil {
		return domain.PrintJob{}, err
	}
	order, err := s.orders.OrderByID(ctx, item.OrderID)
	if err != nil {
		return domain.PrintJob{}, err
	}

	job, err = s.print.RetryJob(ctx, jobID)
	if err != nil {
		return domain.PrintJob{}, err
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
		if _, serr := s.print.SetJobStatus(ctx, job.ID, domain.PrintFailed); serr != nil {
			return domain.PrintJob{}, fmt.Errorf("republish ticket: %w (and mark failed: %v)", err, serr)
		}
		return domain.PrintJob{}, fmt.Errorf("republish ticket: %w", err)
	}
	return job, nil
}
