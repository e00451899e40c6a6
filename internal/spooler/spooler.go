// Package spooler drains the kitchen-ticket queue and drives the printer.
// Print outcomes land back in the print_jobs table; the watcher on the
// display side reacts to them.
package spooler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"restaurant-foh/internal/domain"
)

var (
	errRequeue = errors.New("requeue")     // nack(requeue=true)
	errDLQ     = errors.New("dead_letter") // nack(requeue=false)
)

// JobStore is the slice of the print repository the spooler needs.
type JobStore interface {
	JobByID(ctx context.Context, id int64) (domain.PrintJob, error)
	SetJobStatus(ctx context.Context, id int64, status domain.PrintJobStatus) (domain.PrintJob, error)
}

type Spooler struct {
	jobs    JobStore
	printer Printer

	processed atomic.Int64
}

func New(jobs JobStore, printer Printer) *Spooler {
	return &Spooler{jobs: jobs, printer: printer}
}

// Run consumes deliveries until ctx is canceled or the channel closes.
func (s *Spooler) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	report := time.NewTicker(30 * time.Second)
	defer report.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-report.C:
			log.Info().Int64("processed", s.processed.Load()).Msg("spooler progress")
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			err := s.processOne(ctx, d)
			switch {
			case err == nil:
				_ = d.Ack(false)
				s.processed.Add(1)
			case errors.Is(err, errDLQ):
				log.Warn().Err(err).Str("message_id", d.MessageId).Msg("ticket dead-lettered")
				_ = d.Nack(false, false)
			default:
				log.Error().Err(err).Str("message_id", d.MessageId).Msg("ticket requeued")
				_ = d.Nack(false, true)
			}
		}
	}
}

func (s *Spooler) processOne(ctx context.Context, d amqp.Delivery) error {
	var msg domain.TicketMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		return fmt.Errorf("%w: bad payload: %v", errDLQ, err)
	}
	if msg.JobID == 0 {
		return fmt.Errorf("%w: missing job id", errDLQ)
	}

	job, err := s.jobs.JobByID(ctx, msg.JobID)
	if err != nil {
		// a job row we cannot find will never become findable
		if d.Redelivered {
			return fmt.Errorf("%w: job %d lookup: %v", errDLQ, msg.JobID, err)
		}
		return fmt.Errorf("%w: job %d lookup: %v", errRequeue, msg.JobID, err)
	}
	if job.Terminal() {
		// canceled while queued, or a duplicate delivery after a print
		log.Debug().Int64("job_id", job.ID).Str("status", job.Status.String()).Msg("ticket skipped")
		return nil
	}

	if _, err := s.jobs.SetJobStatus(ctx, job.ID, domain.PrintInProgress); err != nil {
		return fmt.Errorf("%w: mark in_progress: %v", errRequeue, err)
	}

	if err := s.printer.Print(ctx, msg); err != nil {
		log.Error().Err(err).Int64("job_id", job.ID).Int("attempt", msg.Attempt).Msg("print failed")
		if _, serr := s.jobs.SetJobStatus(ctx, job.ID, domain.PrintFailed); serr != nil {
			return fmt.Errorf("%w: mark failed: %v", errRequeue, serr)
		}
		// the failure is recorded; a retry arrives as a fresh message
		return nil
	}

	if _, err := s.jobs.SetJobStatus(ctx, job.ID, domain.PrintPrinted); err != nil {
		return fmt.Errorf("%w: mark printed: %v", errRequeue, err)
	}
	log.Info().Int64("job_id", job.ID).Int64("order_item_id", msg.OrderItemID).Msg("ticket printed")
	return nil
}
