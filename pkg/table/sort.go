package table

import (
	"fmt"
	"slices"

	"github.com/mesh-intelligence/tabula/pkg/event"
	"github.com/mesh-intelligence/tabula/pkg/types"
)

// Sort holds the sort keys of a model. Key order is priority order: the
// first key is the primary one.
type Sort[R, C comparable] struct {
	m       *Model[R, C]
	keys    []types.SortKey[C]
	locked  map[C]bool
	changed event.Event[bool]
}

func newSort[R, C comparable](m *Model[R, C]) *Sort[R, C] {
	return &Sort[R, C]{m: m, locked: make(map[C]bool)}
}

// Changed fires with Sorted() after every change to the sort keys.
func (s *Sort[R, C]) Changed() event.Observer[bool] { return &s.changed }

// Set makes column the only sort key. Unsorted clears every key.
func (s *Sort[R, C]) Set(column C, direction types.Direction) error {
	return s.m.mutate(func(n *notice[R]) error {
		if err := s.checkLocked(column); err != nil {
			return err
		}
		if direction == types.Unsorted {
			s.keys = nil
		} else {
			s.keys = []types.SortKey[C]{{Column: column, Direction: direction}}
		}
		s.applyLocked(n)
		return nil
	})
}

// Add appends column as the lowest priority key. A column already sorted
// keeps its priority and takes the new direction; Unsorted removes it.
func (s *Sort[R, C]) Add(column C, direction types.Direction) error {
	return s.m.mutate(func(n *notice[R]) error {
		if err := s.checkLocked(column); err != nil {
			return err
		}
		i := s.indexLocked(column)
		switch {
		case direction == types.Unsorted && i >= 0:
			s.keys = slices.Delete(s.keys, i, i+1)
		case direction == types.Unsorted:
			return nil
		case i >= 0:
			s.keys[i].Direction = direction
		default:
			s.keys = append(s.keys, types.SortKey[C]{Column: column, Direction: direction})
		}
		s.applyLocked(n)
		return nil
	})
}

// SetKeys replaces every key at once. It fails without changes if any key
// names an unknown or locked column.
func (s *Sort[R, C]) SetKeys(keys ...types.SortKey[C]) error {
	return s.m.mutate(func(n *notice[R]) error {
		next := make([]types.SortKey[C], 0, len(keys))
		for _, k := range keys {
			if err := s.checkLocked(k.Column); err != nil {
				return err
			}
			if k.Direction == types.Unsorted || slices.ContainsFunc(next, func(e types.SortKey[C]) bool { return e.Column == k.Column }) {
				continue
			}
			next = append(next, k)
		}
		s.keys = next
		s.applyLocked(n)
		return nil
	})
}

// Clear removes every key with one notification.
func (s *Sort[R, C]) Clear() {
	_ = s.m.mutate(func(n *notice[R]) error {
		s.keys = nil
		s.applyLocked(n)
		return nil
	})
}

// Lock forbids, or permits again, sort changes on column.
func (s *Sort[R, C]) Lock(column C, locked bool) error {
	if !s.m.columns.Contains(column) {
		return fmt.Errorf("%w: %v", types.ErrUnknownColumn, column)
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if locked {
		s.locked[column] = true
	} else {
		delete(s.locked, column)
	}
	return nil
}

// Locked reports whether column is locked.
func (s *Sort[R, C]) Locked(column C) bool {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.locked[column]
}

// Keys returns a copy of the sort keys in priority order.
func (s *Sort[R, C]) Keys() []types.SortKey[C] {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return slices.Clone(s.keys)
}

// Order returns the direction and priority of column, ok false when it is
// not sorted.
func (s *Sort[R, C]) Order(column C) (direction types.Direction, priority int, ok bool) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	i := s.indexLocked(column)
	if i < 0 {
		return types.Unsorted, -1, false
	}
	return s.keys[i].Direction, i, true
}

// Sorted reports whether any key is set.
func (s *Sort[R, C]) Sorted() bool {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.sortedLocked()
}

// Comparator returns a row comparator over the current keys.
func (s *Sort[R, C]) Comparator() func(a, b R) int {
	keys := s.Keys()
	return func(a, b R) int { return compareRows(s.m.columns, keys, a, b) }
}

func (s *Sort[R, C]) checkLocked(column C) error {
	if !s.m.columns.Contains(column) {
		return fmt.Errorf("%w: %v", types.ErrUnknownColumn, column)
	}
	if s.locked[column] {
		return fmt.Errorf("%w: %v", types.ErrSortLocked, column)
	}
	return nil
}

func (s *Sort[R, C]) indexLocked(column C) int {
	return slices.IndexFunc(s.keys, func(k types.SortKey[C]) bool { return k.Column == column })
}

func (s *Sort[R, C]) sortedLocked() bool {
	return len(s.keys) > 0
}

// applyLocked re-sorts the visible rows after a key change.
func (s *Sort[R, C]) applyLocked(n *notice[R]) {
	sorted := s.sortedLocked()
	n.sorted = &sorted
	if sorted && s.m.items.sortLocked() {
		n.visible(types.Change{Kind: types.Updated, From: 0, To: len(s.m.items.visible) - 1})
	}
}

func (s *Sort[R, C]) compareLocked(a, b R) int {
	return compareRows(s.m.columns, s.keys, a, b)
}

// compareRows compares a and b key by key. Nil values sort first in either
// direction.
func compareRows[R any, C comparable](columns types.Columns[R, C], keys []types.SortKey[C], a, b R) int {
	for _, k := range keys {
		va, vb := columns.Value(a, k.Column), columns.Value(b, k.Column)
		aNil, bNil := IsNil(va), IsNil(vb)
		switch {
		case aNil && bNil:
			continue
		case aNil:
			return -1
		case bNil:
			return 1
		}
		cmp := columns.Comparator(k.Column)
		if cmp == nil {
			cmp = CompareValues
		}
		c := cmp(va, vb)
		if k.Direction == types.Descending {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}
