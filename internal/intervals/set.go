// Package intervals implements a set of non-negative integers stored as an
// ordered set of disjoint, non-adjacent closed ranges. Selection uses it to
// hold selected row indexes.
package intervals

import (
	"github.com/tidwall/btree"
)

// Interval is the closed range [From, To].
type Interval struct {
	From int
	To   int
}

// Len returns the number of integers in the interval.
func (iv Interval) Len() int {
	return iv.To - iv.From + 1
}

func lessFrom(a, b Interval) bool {
	return a.From < b.From
}

// Set is an ordered set of intervals. Stored intervals never overlap or touch:
// adding [3,4] to {[0,2]} yields {[0,4]}. A Set is not safe for concurrent use.
type Set struct {
	tree  *btree.BTreeG[Interval]
	count int
}

// New returns an empty Set.
func New() *Set {
	return &Set{tree: btree.NewBTreeGOptions(lessFrom, btree.Options{NoLocks: true})}
}

// Empty reports whether the set holds no indexes.
func (s *Set) Empty() bool {
	return s.count == 0
}

// Count returns the number of indexes in the set.
func (s *Set) Count() int {
	return s.count
}

// Min returns the smallest index, or -1 when the set is empty.
func (s *Set) Min() int {
	iv, ok := s.tree.Min()
	if !ok {
		return -1
	}
	return iv.From
}

// Max returns the largest index, or -1 when the set is empty.
func (s *Set) Max() int {
	iv, ok := s.tree.Max()
	if !ok {
		return -1
	}
	return iv.To
}

// Contains reports whether index is in the set.
func (s *Set) Contains(index int) bool {
	found := false
	s.tree.Descend(Interval{From: index}, func(iv Interval) bool {
		found = index <= iv.To
		return false
	})
	return found
}

// Intervals returns the stored intervals in ascending order.
func (s *Set) Intervals() []Interval {
	return s.tree.Items()
}

// Indexes returns every index in ascending order.
func (s *Set) Indexes() []int {
	out := make([]int, 0, s.count)
	s.tree.Scan(func(iv Interval) bool {
		for i := iv.From; i <= iv.To; i++ {
			out = append(out, i)
		}
		return true
	})
	return out
}

// Clear removes every index.
func (s *Set) Clear() {
	s.tree.Clear()
	s.count = 0
}

// Add inserts every index in [from, to]. from and to may be given in either order.
func (s *Set) Add(from, to int) {
	if from > to {
		from, to = to, from
	}
	merged := Interval{From: from, To: to}
	var absorbed []Interval
	// The interval starting at or before from may overlap or touch.
	s.tree.Descend(Interval{From: from}, func(iv Interval) bool {
		if iv.From < from && iv.To >= from-1 {
			absorbed = append(absorbed, iv)
		}
		return false
	})
	s.tree.Ascend(Interval{From: from}, func(iv Interval) bool {
		if iv.From > to+1 {
			return false
		}
		absorbed = append(absorbed, iv)
		return true
	})
	for _, iv := range absorbed {
		s.tree.Delete(iv)
		s.count -= iv.Len()
		merged.From = min(merged.From, iv.From)
		merged.To = max(merged.To, iv.To)
	}
	s.tree.Set(merged)
	s.count += merged.Len()
}

// Remove deletes every index in [from, to] without shifting other indexes.
func (s *Set) Remove(from, to int) {
	if from > to {
		from, to = to, from
	}
	for _, iv := range s.overlapping(from, to) {
		s.tree.Delete(iv)
		s.count -= iv.Len()
		if iv.From < from {
			s.put(Interval{From: iv.From, To: from - 1})
		}
		if iv.To > to {
			s.put(Interval{From: to + 1, To: iv.To})
		}
	}
}

// InsertGap opens n empty slots at index: every index >= at moves up by n.
// An interval spanning at is split around the gap.
func (s *Set) InsertGap(at, n int) {
	if n <= 0 {
		return
	}
	items := s.tree.Items()
	s.Clear()
	for _, iv := range items {
		switch {
		case iv.To < at:
			s.put(iv)
		case iv.From >= at:
			s.put(Interval{From: iv.From + n, To: iv.To + n})
		default:
			s.put(Interval{From: iv.From, To: at - 1})
			s.put(Interval{From: at + n, To: iv.To + n})
		}
	}
}

// DeleteRange removes the slots [from, to]: their indexes leave the set and
// every index above to moves down by the width of the range.
func (s *Set) DeleteRange(from, to int) {
	if from > to {
		from, to = to, from
	}
	width := to - from + 1
	items := s.tree.Items()
	s.Clear()
	for _, iv := range items {
		switch {
		case iv.To < from:
			s.put(iv)
		case iv.From > to:
			s.add(Interval{From: iv.From - width, To: iv.To - width})
		default:
			if iv.From < from {
				s.add(Interval{From: iv.From, To: from - 1})
			}
			if iv.To > to {
				s.add(Interval{From: from, To: iv.To - width})
			}
		}
	}
}

// Equal reports whether s and other hold the same indexes.
func (s *Set) Equal(other *Set) bool {
	if s.count != other.count {
		return false
	}
	a, b := s.tree.Items(), other.tree.Items()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of s.
func (s *Set) Clone() *Set {
	c := New()
	s.tree.Scan(func(iv Interval) bool {
		c.put(iv)
		return true
	})
	return c
}

// overlapping returns the stored intervals intersecting [from, to].
func (s *Set) overlapping(from, to int) []Interval {
	var out []Interval
	s.tree.Descend(Interval{From: from}, func(iv Interval) bool {
		if iv.To >= from && iv.From < from {
			out = append(out, iv)
		}
		return false
	})
	s.tree.Ascend(Interval{From: from}, func(iv Interval) bool {
		if iv.From > to {
			return false
		}
		out = append(out, iv)
		return true
	})
	return out
}

// put stores an interval known not to overlap or touch any stored one.
func (s *Set) put(iv Interval) {
	s.tree.Set(iv)
	s.count += iv.Len()
}

// add stores an interval that may touch a stored one after a shift.
func (s *Set) add(iv Interval) {
	s.Add(iv.From, iv.To)
}
