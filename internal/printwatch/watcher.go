// Package printwatch tracks the kitchen-ticket print job of a single order
// item and advances the item from CREATED to PREPARING once its ticket has
// printed. Jobs are polled at a cadence that adapts to the job's own state;
// watching stops entirely when there is nothing left to act on.
package printwatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"restaurant-foh/internal/domain"
)

// API is the slice of the order API the watcher needs.
type API interface {
	PrintJobsByOrderItem(ctx context.Context, itemID int64) ([]domain.PrintJob, error)
	UpdateOrderItemStatus(ctx context.Context, itemID int64, status domain.OrderItemStatus) (domain.OrderItem, bool, error)
	RetryPrintJob(ctx context.Context, jobID int64) (domain.PrintJob, error)
}

// Intervals controls the adaptive cadence: Fast while the job is actionable
// (pending/in_progress/failed), Slow while no job exists yet or a fetch
// failed.
type Intervals struct {
	Fast time.Duration
	Slow time.Duration
}

func DefaultIntervals() Intervals {
	return Intervals{Fast: 2 * time.Second, Slow: 10 * time.Second}
}

// Watcher follows the latest print job of one order item.
type Watcher struct {
	api       API
	itemID    int64
	intervals Intervals

	// OnAdvanced fires after the automatic CREATED -> PREPARING transition
	// has been confirmed. OnJob fires whenever the latest observed job
	// changes state, so the UI can surface a retry control on failure.
	OnAdvanced func(domain.OrderItem)
	OnJob      func(domain.PrintJob)

	mu         sync.Mutex
	cancel     context.CancelFunc
	done       chan struct{}
	poke       chan struct{}
	lastJob    *domain.PrintJob
	advanced   bool
	inFlight   bool
	retrying   bool
	itemStatus domain.OrderItemStatus
}

func New(api API, itemID int64, itemStatus domain.OrderItemStatus, intervals Intervals) *Watcher {
	if intervals.Fast <= 0 {
		intervals = DefaultIntervals()
	}
	return &Watcher{
		api:        api,
		itemID:     itemID,
		intervals:  intervals,
		itemStatus: itemStatus,
		poke:       make(chan struct{}, 1),
	}
}

// Start begins watching. Idempotent.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	done := make(chan struct{})
	w.done = done
	go w.run(ctx, done)
}

// Stop halts watching. Idempotent.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Poke forces an immediate re-check instead of waiting for the next tick,
// e.g. after another component cancels the item.
func (w *Watcher) Poke() {
	select {
	case w.poke <- struct{}{}:
	default:
	}
}

// SetItemStatus feeds the watcher the item's current status as other
// components learn it. Once the item is past CREATED there is nothing to
// auto-advance anymore.
func (w *Watcher) SetItemStatus(s domain.OrderItemStatus) {
	w.mu.Lock()
	w.itemStatus = s
	w.mu.Unlock()
}

// LastJob returns the most recently observed print job, if any.
func (w *Watcher) LastJob() (domain.PrintJob, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastJob == nil {
		return domain.PrintJob{}, false
	}
	return *w.lastJob, true
}

// Retry re-issues the print request for the last failed job and resumes the
// fast polling loop. Re-entrant: calls while a retry is already in flight
// are ignored.
func (w *Watcher) Retry(ctx context.Context) error {
	w.mu.Lock()
	if w.retrying {
		w.mu.Unlock()
		return nil
	}
	job := w.lastJob
	if job == nil || job.Status != domain.PrintFailed {
		w.mu.Unlock()
		return errors.New("printwatch: no failed print job to retry")
	}
	w.retrying = true
	jobID := job.ID
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.retrying = false
		w.mu.Unlock()
	}()

	fresh, err := w.api.RetryPrintJob(ctx, jobID)
	if err != nil {
		log.Error().Err(err).Int64("item_id", w.itemID).Int64("job_id", jobID).Msg("printwatch: retry failed")
		return err
	}
	w.observe(fresh)
	w.Poke()
	return nil
}

func (w *Watcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		interval, active := w.check(ctx)
		if !active {
			return
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-w.poke:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// check polls the latest job once and acts on it. It returns the interval
// until the next poll and whether watching should continue at all.
func (w *Watcher) check(ctx context.Context) (time.Duration, bool) {
	jobs, err := w.api.PrintJobsByOrderItem(ctx, w.itemID)
	if err != nil {
		if ctx.Err() != nil {
			return 0, false
		}
		log.Warn().Err(err).Int64("item_id", w.itemID).Msg("printwatch: fetch failed")
		return w.intervals.Slow, true
	}
	if len(jobs) == 0 {
		return w.intervals.Slow, true
	}
	latest := jobs[0] // API orders newest-first; only the latest job matters
	w.observe(latest)

	switch latest.Status {
	case domain.PrintPending, domain.PrintInProgress:
		return w.intervals.Fast, true
	case domain.PrintFailed:
		// actionable through manual retry; a fresh job can also appear any
		// moment once someone acts
		return w.intervals.Fast, true
	case domain.PrintCancelled:
		return 0, false
	case domain.PrintPrinted:
		w.maybeAdvance(ctx)
		w.mu.Lock()
		pending := !w.advanced && w.itemStatus == domain.ItemCreated
		w.mu.Unlock()
		if pending {
			// the transition call failed; the printed ticket still owes the
			// item its advance, so keep trying
			return w.intervals.Fast, true
		}
		// printed is terminal: nothing left to watch
		return 0, false
	default:
		return w.intervals.Slow, true
	}
}

func (w *Watcher) observe(job domain.PrintJob) {
	w.mu.Lock()
	changed := w.lastJob == nil || w.lastJob.Status != job.Status || w.lastJob.ID != job.ID
	w.lastJob = &job
	cb := w.OnJob
	w.mu.Unlock()
	if changed && cb != nil {
		cb(job)
	}
}

// maybeAdvance issues CREATED -> PREPARING exactly once. The in-flight flag
// guards against a duplicate call while one is outstanding, and the advanced
// flag against re-observing the printed job on a later poll.
func (w *Watcher) maybeAdvance(ctx context.Context) {
	w.mu.Lock()
	if w.advanced || w.inFlight || w.itemStatus != domain.ItemCreated {
		w.mu.Unlock()
		return
	}
	w.inFlight = true
	w.mu.Unlock()

	item, already, err := w.api.UpdateOrderItemStatus(ctx, w.itemID, domain.ItemPreparing)

	w.mu.Lock()
	w.inFlight = false
	if err != nil {
		w.mu.Unlock()
		log.Error().Err(err).Int64("item_id", w.itemID).Msg("printwatch: auto transition failed")
		return
	}
	w.advanced = true
	w.itemStatus = item.Status
	cb := w.OnAdvanced
	w.mu.Unlock()

	if already {
		log.Debug().Int64("item_id", w.itemID).Msg("printwatch: item already preparing")
	}
	if cb != nil {
		cb(item)
	}
}
