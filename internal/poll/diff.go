package poll

// Delta is the content-level difference between two snapshots of keyed
// items: newly present, newly absent (terminal removal from the active set)
// and items whose mutable fields changed.
type Delta[T any] struct {
	Added   []T
	Removed []T
	Changed []Change[T]
}

type Change[T any] struct {
	Before T
	After  T
}

func (d Delta[T]) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// DiffByID computes a Delta between two item slices. id extracts a stable
// identity; equal compares the mutable fields that count as a change.
// Ordering of the delta slices follows the snapshots' own ordering.
func DiffByID[T any](prev, next []T, id func(T) int64, equal func(a, b T) bool) Delta[T] {
	var d Delta[T]
	prevByID := make(map[int64]T, len(prev))
	for _, it := range prev {
		prevByID[id(it)] = it
	}
	nextIDs := make(map[int64]struct{}, len(next))
	for _, it := range next {
		k := id(it)
		nextIDs[k] = struct{}{}
		before, ok := prevByID[k]
		if !ok {
			d.Added = append(d.Added, it)
			continue
		}
		if !equal(before, it) {
			d.Changed = append(d.Changed, Change[T]{Before: before, After: it})
		}
	}
	for _, it := range prev {
		if _, ok := nextIDs[id(it)]; !ok {
			d.Removed = append(d.Removed, it)
		}
	}
	return d
}
