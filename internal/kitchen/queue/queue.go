// Package queue derives per-station FIFO queue positions and wait times for
// the kitchen board. The model is one preparer per station working items
// strictly in arrival order: an item's wait equals the summed prep times of
// everything ahead of it at its station.
package queue

import (
	"sort"
	"time"

	"restaurant-foh/internal/domain"
)

type Item struct {
	ID        int64
	Station   domain.StationKey
	CreatedAt time.Time
	PrepTime  time.Duration
}

type Entry struct {
	Item
	QueueStart time.Duration // wait before prep begins
	QueueEnd   time.Duration // wait until prep finishes
	Position   int           // 1-based rank within the station
}

// Calculate partitions items by station, orders each station by creation
// time (stable, so ties keep input order) and walks it accumulating prep
// time. It is pure and meant to be re-run on every board refresh.
func Calculate(items []Item) map[domain.StationKey][]Entry {
	byStation := make(map[domain.StationKey][]Item)
	for _, it := range items {
		byStation[it.Station] = append(byStation[it.Station], it)
	}

	out := make(map[domain.StationKey][]Entry, len(byStation))
	for station, list := range byStation {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		})
		entries := make([]Entry, 0, len(list))
		var accumulated time.Duration
		for i, it := range list {
			e := Entry{
				Item:       it,
				QueueStart: accumulated,
				QueueEnd:   accumulated + it.PrepTime,
				Position:   i + 1,
			}
			accumulated = e.QueueEnd
			entries = append(entries, e)
		}
		out[station] = entries
	}
	return out
}

// Elapsed is wall-clock time since the item was created.
func Elapsed(now, createdAt time.Time) time.Duration {
	return now.Sub(createdAt)
}

// Progress returns how far into its prep window an item in preparation is.
// Values above 1 mean the item is overdue. For items not yet preparing, or
// with no prep time configured, progress is 0.
func Progress(now time.Time, preparingAt *time.Time, prepTime time.Duration) float64 {
	if preparingAt == nil || prepTime <= 0 {
		return 0
	}
	return float64(now.Sub(*preparingAt)) / float64(prepTime)
}

func Overdue(now time.Time, preparingAt *time.Time, prepTime time.Duration) bool {
	return Progress(now, preparingAt, prepTime) > 1
}
