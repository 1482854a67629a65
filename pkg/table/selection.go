package table

import (
	"fmt"
	"slices"

	"github.com/mesh-intelligence/tabula/internal/intervals"
	"github.com/mesh-intelligence/tabula/pkg/event"
	"github.com/mesh-intelligence/tabula/pkg/types"
)

// SelectionMode restricts how many rows may be selected.
type SelectionMode int

// Selection modes.
const (
	MultipleSelection SelectionMode = iota
	SingleSelection
)

// Selection is a set of indexes into the visible rows. Indexes follow their
// rows through insertions, removals and re-sorts.
type Selection[R, C comparable] struct {
	m         *Model[R, C]
	set       *intervals.Set
	mode      SelectionMode
	adjusting int
	scope     selectionSnapshot[R]

	changed        event.Event[struct{}]
	indexChanged   event.Event[int]
	indexesChanged event.Event[[]int]
	itemChanged    event.Event[R]
	itemsChanged   event.Event[[]R]
	empty          *event.Value[bool]
	single         *event.Value[bool]
	count          *event.Value[int]
}

type selectionSnapshot[R comparable] struct {
	indexes []int
	items   []R
}

func newSelection[R, C comparable](m *Model[R, C]) *Selection[R, C] {
	return &Selection[R, C]{
		m:      m,
		set:    intervals.New(),
		empty:  event.NewValue(true),
		single: event.NewValue(false),
		count:  event.NewValue(0),
	}
}

// Changed fires once per call that changed the selected indexes or rows.
func (s *Selection[R, C]) Changed() event.Observer[struct{}] { return &s.changed }

// IndexChanged fires with the new minimum selected index, -1 when empty.
func (s *Selection[R, C]) IndexChanged() event.Observer[int] { return &s.indexChanged }

// IndexesChanged fires with the new selected indexes.
func (s *Selection[R, C]) IndexesChanged() event.Observer[[]int] { return &s.indexesChanged }

// ItemChanged fires with the row at the new minimum selected index, the
// zero row when empty.
func (s *Selection[R, C]) ItemChanged() event.Observer[R] { return &s.itemChanged }

// ItemsChanged fires with the new selected rows.
func (s *Selection[R, C]) ItemsChanged() event.Observer[[]R] { return &s.itemsChanged }

// Empty observes whether nothing is selected.
func (s *Selection[R, C]) Empty() event.ValueObserver[bool] { return s.empty }

// Single observes whether exactly one row is selected.
func (s *Selection[R, C]) Single() event.ValueObserver[bool] { return s.single }

// Count observes the number of selected rows.
func (s *Selection[R, C]) Count() event.ValueObserver[int] { return s.count }

// SetMode sets the selection mode. Switching to single selection keeps only
// the minimum selected index.
func (s *Selection[R, C]) SetMode(mode SelectionMode) {
	_ = s.m.mutate(func(*notice[R]) error {
		s.mode = mode
		if mode == SingleSelection && s.set.Count() > 1 {
			first := s.set.Min()
			s.set.Clear()
			s.set.Add(first, first)
		}
		return nil
	})
}

// Mode returns the selection mode.
func (s *Selection[R, C]) Mode() SelectionMode {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.mode
}

// SetIndex replaces the selection with index.
func (s *Selection[R, C]) SetIndex(index int) error {
	return s.SetIndexes(index)
}

// SetIndexes replaces the selection with indexes.
func (s *Selection[R, C]) SetIndexes(indexes ...int) error {
	return s.m.mutate(func(*notice[R]) error {
		if err := s.checkLocked(indexes...); err != nil {
			return err
		}
		s.set.Clear()
		s.addLocked(indexes)
		return nil
	})
}

// AddIndex adds index to the selection.
func (s *Selection[R, C]) AddIndex(index int) error {
	return s.AddIndexes(index)
}

// AddIndexes adds indexes to the selection.
func (s *Selection[R, C]) AddIndexes(indexes ...int) error {
	return s.m.mutate(func(*notice[R]) error {
		if err := s.checkLocked(indexes...); err != nil {
			return err
		}
		s.addLocked(indexes)
		return nil
	})
}

// RemoveIndex removes index from the selection.
func (s *Selection[R, C]) RemoveIndex(index int) error {
	return s.RemoveIndexes(index)
}

// RemoveIndexes removes indexes from the selection.
func (s *Selection[R, C]) RemoveIndexes(indexes ...int) error {
	return s.m.mutate(func(*notice[R]) error {
		if err := s.checkLocked(indexes...); err != nil {
			return err
		}
		for _, i := range indexes {
			s.set.Remove(i, i)
		}
		return nil
	})
}

// SetInterval replaces the selection with [from, to].
func (s *Selection[R, C]) SetInterval(from, to int) error {
	return s.m.mutate(func(*notice[R]) error {
		if err := s.checkLocked(from, to); err != nil {
			return err
		}
		s.set.Clear()
		s.addIntervalLocked(from, to)
		return nil
	})
}

// AddInterval adds [from, to] to the selection.
func (s *Selection[R, C]) AddInterval(from, to int) error {
	return s.m.mutate(func(*notice[R]) error {
		if err := s.checkLocked(from, to); err != nil {
			return err
		}
		s.addIntervalLocked(from, to)
		return nil
	})
}

// SetItem replaces the selection with the visible rows sharing row's identity.
func (s *Selection[R, C]) SetItem(row R) {
	s.SetItems(row)
}

// SetItems replaces the selection with the visible rows sharing an identity
// with rows. Rows not visible are ignored.
func (s *Selection[R, C]) SetItems(rows ...R) {
	keys := s.m.keySet(rows)
	_ = s.m.mutate(func(*notice[R]) error {
		s.selectKeysLocked(keys)
		return nil
	})
}

// AddItems adds the visible rows sharing an identity with rows.
func (s *Selection[R, C]) AddItems(rows ...R) {
	keys := s.m.keySet(rows)
	_ = s.m.mutate(func(*notice[R]) error {
		s.addLocked(s.matchingLocked(func(r R) bool {
			_, ok := keys[s.m.key(r)]
			return ok
		}))
		return nil
	})
}

// RemoveItems deselects the rows sharing an identity with rows.
func (s *Selection[R, C]) RemoveItems(rows ...R) {
	keys := s.m.keySet(rows)
	_ = s.m.mutate(func(*notice[R]) error {
		for _, i := range s.set.Indexes() {
			if _, ok := keys[s.m.key(s.m.items.visible[i])]; ok {
				s.set.Remove(i, i)
			}
		}
		return nil
	})
}

// SetWhere replaces the selection with the visible rows matching pred.
func (s *Selection[R, C]) SetWhere(pred func(R) bool) {
	_ = s.m.mutate(func(*notice[R]) error {
		s.set.Clear()
		s.addLocked(s.matchingLocked(pred))
		return nil
	})
}

// SelectAll selects every visible row, or the first one in single mode.
func (s *Selection[R, C]) SelectAll() {
	_ = s.m.mutate(func(*notice[R]) error {
		if n := len(s.m.items.visible); n > 0 {
			s.addIntervalLocked(0, n-1)
		}
		return nil
	})
}

// Clear deselects everything.
func (s *Selection[R, C]) Clear() {
	_ = s.m.mutate(func(*notice[R]) error {
		s.set.Clear()
		return nil
	})
}

// Increment moves every selected index one row down, wrapping to the top.
// An empty selection selects the first row.
func (s *Selection[R, C]) Increment() {
	s.shift(1)
}

// Decrement moves every selected index one row up, wrapping to the bottom.
// An empty selection selects the last row.
func (s *Selection[R, C]) Decrement() {
	s.shift(-1)
}

func (s *Selection[R, C]) shift(delta int) {
	_ = s.m.mutate(func(*notice[R]) error {
		n := len(s.m.items.visible)
		if n == 0 {
			return nil
		}
		if s.set.Empty() {
			i := 0
			if delta < 0 {
				i = n - 1
			}
			s.set.Add(i, i)
			return nil
		}
		indexes := s.set.Indexes()
		s.set.Clear()
		for _, i := range indexes {
			j := ((i+delta)%n + n) % n
			s.set.Add(j, j)
		}
		return nil
	})
}

// SetAdjusting opens or closes an adjusting scope. Selection notifications
// are held back while any scope is open; closing the outermost scope
// publishes the net change once.
func (s *Selection[R, C]) SetAdjusting(adjusting bool) {
	s.m.mu.Lock()
	if adjusting {
		if s.adjusting == 0 {
			s.scope = s.snapshotLocked()
		}
		s.adjusting++
		s.m.mu.Unlock()
		return
	}
	if s.adjusting == 0 {
		s.m.mu.Unlock()
		return
	}
	s.adjusting--
	if s.adjusting > 0 {
		s.m.mu.Unlock()
		return
	}
	before, after := s.scope, s.snapshotLocked()
	s.scope = selectionSnapshot[R]{}
	s.m.mu.Unlock()
	s.publish(before, after)
}

// Adjusting reports whether an adjusting scope is open.
func (s *Selection[R, C]) Adjusting() bool {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.adjusting > 0
}

// Adjust runs fn inside an adjusting scope.
func (s *Selection[R, C]) Adjust(fn func()) {
	s.SetAdjusting(true)
	defer s.SetAdjusting(false)
	fn()
}

// Index returns the minimum selected index, -1 when empty.
func (s *Selection[R, C]) Index() int {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.set.Min()
}

// Indexes returns the selected indexes in ascending order.
func (s *Selection[R, C]) Indexes() []int {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.set.Indexes()
}

// Item returns the row at the minimum selected index.
func (s *Selection[R, C]) Item() (R, bool) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.set.Empty() {
		var zero R
		return zero, false
	}
	return s.m.items.visible[s.set.Min()], true
}

// Items returns the selected rows in index order.
func (s *Selection[R, C]) Items() []R {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.itemsLocked()
}

// Contains reports whether index is selected.
func (s *Selection[R, C]) Contains(index int) bool {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.set.Contains(index)
}

// IsSelected reports whether a selected row shares row's identity.
func (s *Selection[R, C]) IsSelected(row R) bool {
	key := s.m.key(row)
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return slices.ContainsFunc(s.itemsLocked(), func(r R) bool { return s.m.key(r) == key })
}

// IsEmpty reports whether nothing is selected.
func (s *Selection[R, C]) IsEmpty() bool {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.set.Empty()
}

// IsMultiple reports whether more than one row is selected.
func (s *Selection[R, C]) IsMultiple() bool {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.set.Count() > 1
}

func (s *Selection[R, C]) checkLocked(indexes ...int) error {
	n := len(s.m.items.visible)
	for _, i := range indexes {
		if i < 0 || i >= n {
			return fmt.Errorf("%w: %d not in [0, %d)", types.ErrIndexOutOfRange, i, n)
		}
	}
	return nil
}

func (s *Selection[R, C]) addLocked(indexes []int) {
	if len(indexes) == 0 {
		return
	}
	if s.mode == SingleSelection {
		s.set.Clear()
		s.set.Add(indexes[0], indexes[0])
		return
	}
	for _, i := range indexes {
		s.set.Add(i, i)
	}
}

func (s *Selection[R, C]) addIntervalLocked(from, to int) {
	if s.mode == SingleSelection {
		s.set.Clear()
		s.set.Add(min(from, to), min(from, to))
		return
	}
	s.set.Add(from, to)
}

func (s *Selection[R, C]) matchingLocked(pred func(R) bool) []int {
	var out []int
	for i, r := range s.m.items.visible {
		if pred(r) {
			out = append(out, i)
		}
	}
	return out
}

// selectKeysLocked replaces the selection with every visible row whose
// identity is in keys.
func (s *Selection[R, C]) selectKeysLocked(keys map[any]struct{}) {
	s.set.Clear()
	if len(keys) == 0 {
		return
	}
	s.addLocked(s.matchingLocked(func(r R) bool {
		_, ok := keys[s.m.key(r)]
		return ok
	}))
}

// restoreKeysLocked replaces the selection with, per identity, as many
// visible rows as counts holds for it, taken in display order.
func (s *Selection[R, C]) restoreKeysLocked(counts map[any]int) {
	s.set.Clear()
	if len(counts) == 0 {
		return
	}
	s.addLocked(s.matchingLocked(func(r R) bool {
		k := s.m.key(r)
		if counts[k] == 0 {
			return false
		}
		counts[k]--
		return true
	}))
}

// flagsLocked reports, per visible index, whether the row is selected.
func (s *Selection[R, C]) flagsLocked() []bool {
	flags := make([]bool, len(s.m.items.visible))
	for _, i := range s.set.Indexes() {
		flags[i] = true
	}
	return flags
}

// setFlagsLocked replaces the selection with the flagged indexes.
func (s *Selection[R, C]) setFlagsLocked(flags []bool) {
	s.set.Clear()
	start := -1
	for i, ok := range flags {
		switch {
		case ok && start < 0:
			start = i
		case !ok && start >= 0:
			s.set.Add(start, i-1)
			start = -1
		}
	}
	if start >= 0 {
		s.set.Add(start, len(flags)-1)
	}
}

func (s *Selection[R, C]) itemsLocked() []R {
	indexes := s.set.Indexes()
	out := make([]R, len(indexes))
	for i, idx := range indexes {
		out[i] = s.m.items.visible[idx]
	}
	return out
}

func (s *Selection[R, C]) snapshotLocked() selectionSnapshot[R] {
	return selectionSnapshot[R]{indexes: s.set.Indexes(), items: s.itemsLocked()}
}

// publish fires the selection notifications implied by the difference
// between two snapshots.
func (s *Selection[R, C]) publish(before, after selectionSnapshot[R]) {
	indexesChanged := !slices.Equal(before.indexes, after.indexes)
	itemsChanged := !slices.Equal(before.items, after.items)
	if !indexesChanged && !itemsChanged {
		return
	}
	s.changed.Fire(struct{}{})
	if indexesChanged {
		s.indexesChanged.Fire(after.indexes)
		if first(before.indexes, -1) != first(after.indexes, -1) {
			s.indexChanged.Fire(first(after.indexes, -1))
		}
	}
	if itemsChanged {
		s.itemsChanged.Fire(after.items)
		var zero R
		wasEmpty, isEmpty := len(before.items) == 0, len(after.items) == 0
		if wasEmpty != isEmpty || first(before.items, zero) != first(after.items, zero) {
			s.itemChanged.Fire(first(after.items, zero))
		}
	}
	s.empty.Set(len(after.indexes) == 0)
	s.single.Set(len(after.indexes) == 1)
	s.count.Set(len(after.indexes))
}

func first[T any](s []T, fallback T) T {
	if len(s) == 0 {
		return fallback
	}
	return s[0]
}
