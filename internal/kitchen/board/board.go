// Package board turns raw kitchen-board snapshots into station-grouped,
// time-annotated view data. Stations are whatever recipe groups the data
// contains; a station with no current items simply has no column.
package board

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"restaurant-foh/internal/domain"
	"restaurant-foh/internal/kitchen/queue"
)

// FilterAll shows every table.
const FilterAll = ""

type ItemView struct {
	domain.BoardItem
	RecipeName string
	Station    domain.StationKey
	QueuePos   int
	QueueStart time.Duration
	QueueEnd   time.Duration
	Elapsed    string
	Progress   float64
	Overdue    bool
	Processing bool
}

type StationView struct {
	Name  string
	Items []ItemView
}

type View struct {
	Stations map[domain.StationKey]StationView
	// Tables lists the table names present in the snapshot, for the filter UI.
	Tables []string
	Total  int
	Urgent int
	Filter string
}

// Presenter owns the table filter and the timestamp parse cache. Processing
// state is consulted read-only from the mutation coordinator.
type Presenter struct {
	cache      *queue.ParseCache
	now        func() time.Time
	processing func(itemID int64) bool

	mu       sync.Mutex
	snapshot []domain.BoardRecipe
	filter   string
}

func NewPresenter(now func() time.Time, processing func(int64) bool) *Presenter {
	if now == nil {
		now = time.Now
	}
	if processing == nil {
		processing = func(int64) bool { return false }
	}
	return &Presenter{
		cache:      queue.NewParseCache(512),
		now:        now,
		processing: processing,
	}
}

// SetSnapshot installs a freshly polled snapshot. When the active table
// filter no longer matches any item (its order finished or was canceled),
// the filter falls back to show-all on this same refresh.
func (p *Presenter) SetSnapshot(groups []domain.BoardRecipe) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshot = groups
	if p.filter != FilterAll && !hasTable(groups, p.filter) {
		log.Debug().Str("table", p.filter).Msg("board: filtered table emptied, falling back to all")
		p.filter = FilterAll
	}
}

// SetTableFilter narrows the board to one table. Filtering recomputes the
// grouping from the surviving set, since queue position depends on it.
func (p *Presenter) SetTableFilter(table string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if table != FilterAll && !hasTable(p.snapshot, table) {
		p.filter = FilterAll
		return
	}
	p.filter = table
}

func (p *Presenter) Filter() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filter
}

// Render derives the full station-grouped view for the current instant.
// Pure with respect to the held snapshot; called on every clock tick.
func (p *Presenter) Render() View {
	p.mu.Lock()
	groups := p.snapshot
	filter := p.filter
	p.mu.Unlock()
	now := p.now()

	type meta struct {
		item       domain.BoardItem
		recipeName string
		station    domain.StationKey
		stationNm  string
		prep       time.Duration
	}

	tableSet := make(map[string]struct{})
	var flat []meta
	for _, g := range groups {
		st := g.Station()
		prep := time.Duration(g.PreparationTime) * time.Minute
		for _, it := range g.Items {
			tableSet[it.OrderTable] = struct{}{}
			if filter != FilterAll && it.OrderTable != filter {
				continue
			}
			flat = append(flat, meta{item: it, recipeName: g.RecipeName, station: st, stationNm: g.RecipeGroupName, prep: prep})
		}
	}

	qitems := make([]queue.Item, 0, len(flat))
	byID := make(map[int64]meta, len(flat))
	for _, m := range flat {
		createdAt, err := p.cache.Parse(m.item.CreatedAt)
		if err != nil {
			log.Warn().Err(err).Int64("item_id", m.item.ID).Msg("board: bad created_at, skipping item")
			continue
		}
		byID[m.item.ID] = m
		qitems = append(qitems, queue.Item{
			ID:        m.item.ID,
			Station:   m.station,
			CreatedAt: createdAt,
			PrepTime:  m.prep,
		})
	}

	view := View{Stations: make(map[domain.StationKey]StationView), Filter: filter}
	for st, entries := range queue.Calculate(qitems) {
		sv := StationView{Items: make([]ItemView, 0, len(entries))}
		for _, e := range entries {
			m := byID[e.ID]
			if sv.Name == "" {
				sv.Name = m.stationNm
			}
			iv := ItemView{
				BoardItem:  m.item,
				RecipeName: m.recipeName,
				Station:    st,
				QueuePos:   e.Position,
				QueueStart: e.QueueStart,
				QueueEnd:   e.QueueEnd,
				Elapsed:    queue.FormatElapsed(queue.Elapsed(now, e.CreatedAt)),
				Processing: p.processing(e.ID),
			}
			if m.item.Status == domain.ItemPreparing && m.item.PreparingAt != "" {
				if preparingAt, err := p.cache.Parse(m.item.PreparingAt); err == nil {
					iv.Progress = queue.Progress(now, &preparingAt, m.prep)
					iv.Overdue = iv.Progress > 1
				}
			}
			if iv.Overdue {
				view.Urgent++
			}
			view.Total++
			sv.Items = append(sv.Items, iv)
		}
		view.Stations[st] = sv
	}

	for tbl := range tableSet {
		if tbl != "" {
			view.Tables = append(view.Tables, tbl)
		}
	}
	sort.Strings(view.Tables)
	return view
}

func hasTable(groups []domain.BoardRecipe, table string) bool {
	for _, g := range groups {
		for _, it := range g.Items {
			if it.OrderTable == table {
				return true
			}
		}
	}
	return false
}
