// Package display runs the kitchen display: a polled station board with
// per-item print watchers and optimistic status actions.
package display

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"restaurant-foh/internal/domain"
	"restaurant-foh/internal/kitchen/board"
	"restaurant-foh/internal/mutation"
	"restaurant-foh/internal/poll"
	"restaurant-foh/internal/printwatch"
)

// API is everything the display needs from the order API; *client.Client
// satisfies it.
type API interface {
	KitchenBoard(ctx context.Context) ([]domain.BoardRecipe, error)
	OrderByID(ctx context.Context, id int64) (domain.Order, error)
	UpdateOrderItemStatus(ctx context.Context, itemID int64, status domain.OrderItemStatus) (domain.OrderItem, bool, error)
	CancelOrderItem(ctx context.Context, itemID int64, reason string) (domain.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus, reason string) (domain.Order, error)
	PrintJobsByOrderItem(ctx context.Context, itemID int64) ([]domain.PrintJob, error)
	RetryPrintJob(ctx context.Context, jobID int64) (domain.PrintJob, error)
}

type Options struct {
	BoardInterval time.Duration
	TickInterval  time.Duration
	TableFilter   string
	Out           io.Writer
}

type App struct {
	api       API
	presenter *board.Presenter
	coord     *mutation.Coordinator
	poller    *poll.Poller[[]domain.BoardRecipe, poll.Delta[domain.BoardItem]]
	opts      Options
	out       io.Writer

	mu       sync.Mutex
	watchers map[int64]*printwatch.Watcher
	items    map[int64]domain.BoardItem
	dirty    bool
}

// logNotifier surfaces coordinator notices as log lines; the display has no
// toast widget.
type logNotifier struct{}

func (logNotifier) Info(msg string)  { log.Info().Msg(msg) }
func (logNotifier) Error(msg string) { log.Error().Msg(msg) }

func New(api API, opts Options) *App {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	a := &App{
		api:      api,
		opts:     opts,
		out:      opts.Out,
		watchers: make(map[int64]*printwatch.Watcher),
		items:    make(map[int64]domain.BoardItem),
	}
	a.coord = mutation.New(api, logNotifier{})
	a.coord.OnItem = func(domain.OrderItem) { a.markDirty() }
	a.coord.OnOrder = func(domain.Order) { a.markDirty() }
	a.presenter = board.NewPresenter(time.Now, a.coord.Processing)

	a.poller = &poll.Poller[[]domain.BoardRecipe, poll.Delta[domain.BoardItem]]{
		Fetch:    api.KitchenBoard,
		Interval: opts.BoardInterval,
		Diff: func(prev []domain.BoardRecipe, hasPrev bool, next []domain.BoardRecipe) poll.Delta[domain.BoardItem] {
			if !hasPrev {
				return poll.Delta[domain.BoardItem]{}
			}
			return poll.DiffByID(flatten(prev), flatten(next), itemID, itemEqual)
		},
		OnUpdate: a.onSnapshot,
	}
	return a
}

func flatten(groups []domain.BoardRecipe) []domain.BoardItem {
	var out []domain.BoardItem
	for _, g := range groups {
		out = append(out, g.Items...)
	}
	return out
}

func itemID(it domain.BoardItem) int64 { return it.ID }

func itemEqual(a, b domain.BoardItem) bool {
	return a.Status == b.Status && a.PreparingAt == b.PreparingAt
}

func (a *App) onSnapshot(snap []domain.BoardRecipe, delta poll.Delta[domain.BoardItem]) {
	a.presenter.SetSnapshot(snap)
	for _, it := range delta.Added {
		log.Info().Str("action", "bell").Int64("item_id", it.ID).Str("table", it.OrderTable).Msg("new kitchen item")
	}
	for _, it := range delta.Removed {
		log.Info().Str("action", "bell").Int64("item_id", it.ID).Msg("kitchen item left the board")
	}
	a.syncWatchers(snap)
	a.markDirty()
}

// syncWatchers keeps one print watcher per CREATED item on the board. Items
// that advanced get the status handed to their watcher; items gone from the
// board get their watcher stopped.
func (a *App) syncWatchers(groups []domain.BoardRecipe) {
	a.mu.Lock()
	defer a.mu.Unlock()

	seen := make(map[int64]domain.BoardItem)
	for _, g := range groups {
		for _, it := range g.Items {
			seen[it.ID] = it
		}
	}

	for id, w := range a.watchers {
		it, ok := seen[id]
		if !ok {
			w.Stop()
			delete(a.watchers, id)
			continue
		}
		w.SetItemStatus(it.Status)
	}

	for id, it := range seen {
		a.items[id] = it
		if it.Status != domain.ItemCreated {
			continue
		}
		if _, ok := a.watchers[id]; ok {
			continue
		}
		w := printwatch.New(a.api, id, it.Status, printwatch.DefaultIntervals())
		w.OnAdvanced = func(item domain.OrderItem) {
			log.Info().Int64("item_id", item.ID).Msg("ticket printed, item moved to PREPARING")
			a.markDirty()
		}
		w.OnJob = func(job domain.PrintJob) {
			if job.Status == domain.PrintFailed {
				log.Warn().Int64("item_id", job.OrderItemID).Int64("job_id", job.ID).Msg("ticket print failed, retry available")
			}
			a.markDirty()
		}
		a.watchers[id] = w
		w.Start(context.Background())
	}

	for id := range a.items {
		if _, ok := seen[id]; !ok {
			delete(a.items, id)
		}
	}
}

func (a *App) markDirty() {
	a.mu.Lock()
	a.dirty = true
	a.mu.Unlock()
}

func (a *App) watcherFor(itemID int64) (*printwatch.Watcher, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	w, ok := a.watchers[itemID]
	return w, ok
}

func (a *App) boardItem(itemID int64) (domain.BoardItem, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	it, ok := a.items[itemID]
	return it, ok
}

// Run polls, renders on the clock tick and reacts to commands until ctx is
// canceled.
func (a *App) Run(ctx context.Context, commands <-chan command) error {
	if a.opts.TableFilter != board.FilterAll {
		a.presenter.SetTableFilter(a.opts.TableFilter)
	}
	a.poller.Start(ctx)
	defer a.poller.Stop()
	defer a.stopWatchers()

	tick := time.NewTicker(a.opts.TickInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			a.execute(ctx, cmd)
		case <-tick.C:
			// elapsed times move every second, so render unconditionally
			a.render()
		}
	}
}

func (a *App) stopWatchers() {
	a.mu.Lock()
	ws := make([]*printwatch.Watcher, 0, len(a.watchers))
	for _, w := range a.watchers {
		ws = append(ws, w)
	}
	a.watchers = make(map[int64]*printwatch.Watcher)
	a.mu.Unlock()
	for _, w := range ws {
		w.Stop()
	}
}

func (a *App) render() {
	if a.out == nil {
		return
	}
	v := a.presenter.Render()
	fmt.Fprint(a.out, renderView(v))
}
