package table

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/tabula/pkg/event"
	"github.com/mesh-intelligence/tabula/pkg/types"
)

// Items owns the rows of a model, split into the visible partition (rows
// passing the effective predicate, in display order) and the filtered
// partition (rows excluded by it, in insertion order).
type Items[R, C comparable] struct {
	m         *Model[R, C]
	validator func(R) bool
	predicate func(R) bool
	strategy  types.RefreshStrategy

	visible  []R
	filtered []R

	changes         event.Event[types.Change]
	filteredChanged event.Event[struct{}]
}

func newItems[R, C comparable](m *Model[R, C], validator, predicate func(R) bool, strategy types.RefreshStrategy) *Items[R, C] {
	return &Items[R, C]{m: m, validator: validator, predicate: predicate, strategy: strategy}
}

// Changes fires once per call that changed the visible partition.
func (it *Items[R, C]) Changes() event.Observer[types.Change] { return &it.changes }

// FilteredChanged fires once per call that changed the filtered partition.
func (it *Items[R, C]) FilteredChanged() event.Observer[struct{}] { return &it.filteredChanged }

// Add validates rows and adds them: included rows are appended to the
// visible partition, which is then re-sorted if a sort is active; excluded
// rows go to the filtered partition. Rows repeating an identity within the
// call are added once.
func (it *Items[R, C]) Add(rows ...R) error {
	return it.m.mutate(func(n *notice[R]) error {
		if err := it.validateLocked(rows); err != nil {
			return err
		}
		it.insertLocked(n, len(it.visible), rows)
		return nil
	})
}

// AddAt is Add with the visible rows inserted at index instead of the tail.
func (it *Items[R, C]) AddAt(index int, rows ...R) error {
	return it.m.mutate(func(n *notice[R]) error {
		if index < 0 || index > len(it.visible) {
			return fmt.Errorf("%w: %d", types.ErrIndexOutOfRange, index)
		}
		if err := it.validateLocked(rows); err != nil {
			return err
		}
		it.insertLocked(n, index, rows)
		return nil
	})
}

// Set replaces the contents with rows. With the merge strategy and a
// non-empty rows, the contents are merged by identity instead.
func (it *Items[R, C]) Set(rows []R) error {
	_, err := it.setIf(func() bool { return true }, rows)
	return err
}

// setIf is Set guarded by current, which is evaluated under the model lock.
// It reports whether rows were applied.
func (it *Items[R, C]) setIf(current func() bool, rows []R) (bool, error) {
	applied := false
	err := it.m.mutate(func(n *notice[R]) error {
		if !current() {
			return nil
		}
		if err := it.validateLocked(rows); err != nil {
			return err
		}
		applied = true
		if it.strategy == types.RefreshMerge && len(rows) > 0 {
			it.mergeLocked(n, rows)
			return nil
		}
		it.resetLocked(n, rows)
		return nil
	})
	return applied, err
}

// SetAt replaces the visible row at index with row and re-sorts a sorted
// model. It reports false, and changes nothing, when row does not pass the
// effective predicate.
func (it *Items[R, C]) SetAt(index int, row R) (bool, error) {
	var ok bool
	err := it.m.mutate(func(n *notice[R]) error {
		if index < 0 || index >= len(it.visible) {
			return fmt.Errorf("%w: %d", types.ErrIndexOutOfRange, index)
		}
		if err := it.validateLocked([]R{row}); err != nil {
			return err
		}
		if !it.includeLocked(row) {
			return nil
		}
		ok = true
		if it.visible[index] == row {
			return nil
		}
		it.visible[index] = row
		if it.m.sort.sortedLocked() && it.sortLocked() {
			n.visible(types.DataChanged)
			return nil
		}
		n.visible(types.Change{Kind: types.Updated, From: index, To: index})
		return nil
	})
	return ok, err
}

// Remove removes every row, from either partition, sharing an identity
// with one of rows.
func (it *Items[R, C]) Remove(rows ...R) {
	keys := it.m.keySet(rows)
	it.RemoveIf(func(r R) bool {
		_, ok := keys[it.m.key(r)]
		return ok
	})
}

// RemoveIf removes every row, from either partition, matching pred.
func (it *Items[R, C]) RemoveIf(pred func(R) bool) {
	_ = it.m.mutate(func(n *notice[R]) error {
		it.removeLocked(n, pred)
		return nil
	})
}

// RemoveAt removes the visible row at index and returns it.
func (it *Items[R, C]) RemoveAt(index int) (R, error) {
	var removed R
	err := it.m.mutate(func(n *notice[R]) error {
		if index < 0 || index >= len(it.visible) {
			return fmt.Errorf("%w: %d", types.ErrIndexOutOfRange, index)
		}
		removed = it.visible[index]
		it.removeRangeLocked(n, index, index+1)
		return nil
	})
	return removed, err
}

// RemoveRange removes the visible rows in [from, to).
func (it *Items[R, C]) RemoveRange(from, to int) error {
	return it.m.mutate(func(n *notice[R]) error {
		if from < 0 || to > len(it.visible) || from > to {
			return fmt.Errorf("%w: [%d, %d)", types.ErrIndexOutOfRange, from, to)
		}
		it.removeRangeLocked(n, from, to)
		return nil
	})
}

// Replace substitutes replacement for every row sharing old's identity.
func (it *Items[R, C]) Replace(old, replacement R) error {
	return it.ReplaceAll(map[R]R{old: replacement})
}

// ReplaceAll substitutes each value for every row sharing its key's
// identity. A replacement keeps its position unless the effective predicate
// moves it to the other partition; selected rows stay selected.
func (it *Items[R, C]) ReplaceAll(replacements map[R]R) error {
	return it.m.mutate(func(n *notice[R]) error {
		values := make([]R, 0, len(replacements))
		for _, v := range replacements {
			values = append(values, v)
		}
		if err := it.validateLocked(values); err != nil {
			return err
		}
		byKey := make(map[any]R, len(replacements))
		for old, v := range replacements {
			byKey[it.m.key(old)] = v
		}
		it.replaceLocked(n, byKey)
		return nil
	})
}

// Filter re-evaluates the effective predicate over both partitions and
// re-sorts the visible rows. Selected rows that stay visible stay selected.
func (it *Items[R, C]) Filter() {
	_ = it.m.mutate(func(n *notice[R]) error {
		it.filterLocked(n)
		return nil
	})
}

// SetPredicate replaces the global predicate and re-filters. Nil includes
// every row.
func (it *Items[R, C]) SetPredicate(pred func(R) bool) {
	_ = it.m.mutate(func(n *notice[R]) error {
		it.predicate = pred
		it.filterLocked(n)
		return nil
	})
}

// Clear empties both partitions without consulting the refresh strategy.
func (it *Items[R, C]) Clear() {
	_ = it.m.mutate(func(n *notice[R]) error {
		it.clearLocked(n)
		return nil
	})
}

// SetRefreshStrategy changes how Set applies a non-empty collection.
func (it *Items[R, C]) SetRefreshStrategy(s types.RefreshStrategy) {
	it.m.mu.Lock()
	defer it.m.mu.Unlock()
	it.strategy = s
}

// RefreshStrategy returns the current refresh strategy.
func (it *Items[R, C]) RefreshStrategy() types.RefreshStrategy {
	it.m.mu.Lock()
	defer it.m.mu.Unlock()
	return it.strategy
}

// Visible returns a copy of the visible rows in display order.
func (it *Items[R, C]) Visible() []R {
	it.m.mu.Lock()
	defer it.m.mu.Unlock()
	return slices.Clone(it.visible)
}

// Filtered returns a copy of the filtered rows.
func (it *Items[R, C]) Filtered() []R {
	it.m.mu.Lock()
	defer it.m.mu.Unlock()
	return slices.Clone(it.filtered)
}

// All returns the visible rows followed by the filtered rows.
func (it *Items[R, C]) All() []R {
	it.m.mu.Lock()
	defer it.m.mu.Unlock()
	return it.allLocked()
}

// VisibleCount returns the number of visible rows.
func (it *Items[R, C]) VisibleCount() int {
	it.m.mu.Lock()
	defer it.m.mu.Unlock()
	return len(it.visible)
}

// FilteredCount returns the number of filtered rows.
func (it *Items[R, C]) FilteredCount() int {
	it.m.mu.Lock()
	defer it.m.mu.Unlock()
	return len(it.filtered)
}

// Count returns the number of rows in both partitions.
func (it *Items[R, C]) Count() int {
	it.m.mu.Lock()
	defer it.m.mu.Unlock()
	return len(it.visible) + len(it.filtered)
}

// At returns the visible row at index.
func (it *Items[R, C]) At(index int) (R, error) {
	it.m.mu.Lock()
	defer it.m.mu.Unlock()
	if index < 0 || index >= len(it.visible) {
		var zero R
		return zero, fmt.Errorf("%w: %d", types.ErrIndexOutOfRange, index)
	}
	return it.visible[index], nil
}

// IndexOf returns the visible index of the first row sharing row's
// identity, or -1.
func (it *Items[R, C]) IndexOf(row R) int {
	it.m.mu.Lock()
	defer it.m.mu.Unlock()
	return it.indexOfLocked(it.m.key(row))
}

// Contains reports whether a row sharing row's identity is in either partition.
func (it *Items[R, C]) Contains(row R) bool {
	it.m.mu.Lock()
	defer it.m.mu.Unlock()
	key := it.m.key(row)
	return it.indexOfLocked(key) >= 0 || it.filteredIndexLocked(key) >= 0
}

// IsVisible reports whether a row sharing row's identity is visible.
func (it *Items[R, C]) IsVisible(row R) bool {
	return it.IndexOf(row) >= 0
}

// IsFiltered reports whether a row sharing row's identity is filtered.
func (it *Items[R, C]) IsFiltered(row R) bool {
	it.m.mu.Lock()
	defer it.m.mu.Unlock()
	return it.filteredIndexLocked(it.m.key(row)) >= 0
}

func (it *Items[R, C]) allLocked() []R {
	out := make([]R, 0, len(it.visible)+len(it.filtered))
	out = append(out, it.visible...)
	return append(out, it.filtered...)
}

func (it *Items[R, C]) indexOfLocked(key any) int {
	return slices.IndexFunc(it.visible, func(r R) bool { return it.m.key(r) == key })
}

func (it *Items[R, C]) filteredIndexLocked(key any) int {
	return slices.IndexFunc(it.filtered, func(r R) bool { return it.m.key(r) == key })
}

// validateLocked rejects the whole batch if any row is nil or fails the
// validator.
func (it *Items[R, C]) validateLocked(rows []R) error {
	for _, r := range rows {
		if IsNil(r) {
			return fmt.Errorf("%w: nil row", types.ErrInvalidRow)
		}
		if it.validator != nil && !it.validator(r) {
			return fmt.Errorf("%w: %v", types.ErrInvalidRow, r)
		}
	}
	return nil
}

// includeLocked evaluates the effective predicate.
func (it *Items[R, C]) includeLocked(row R) bool {
	if it.predicate != nil && !it.predicate(row) {
		return false
	}
	return it.m.conditions.accepts(row)
}

// dedupe drops rows repeating an earlier identity.
func (it *Items[R, C]) dedupe(rows []R) []R {
	seen := make(map[any]struct{}, len(rows))
	out := make([]R, 0, len(rows))
	for _, r := range rows {
		k := it.m.key(r)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

func (it *Items[R, C]) insertLocked(n *notice[R], at int, rows []R) {
	var in, out []R
	for _, r := range it.dedupe(rows) {
		if it.includeLocked(r) {
			in = append(in, r)
		} else {
			out = append(out, r)
		}
	}
	if len(out) > 0 {
		it.filtered = append(it.filtered, out...)
		n.filtered = true
	}
	if len(in) == 0 {
		return
	}
	it.visible = slices.Insert(it.visible, at, in...)
	it.m.selection.set.InsertGap(at, len(in))
	if it.m.sort.sortedLocked() && it.sortLocked() {
		n.visible(types.DataChanged)
		return
	}
	n.visible(types.Change{Kind: types.Inserted, From: at, To: at + len(in) - 1})
}

// removeLocked removes matching rows from both partitions. Selection is
// pruned before any notification is published.
func (it *Items[R, C]) removeLocked(n *notice[R], match func(R) bool) {
	before := len(it.filtered)
	it.filtered = slices.DeleteFunc(it.filtered, match)
	if len(it.filtered) != before {
		n.filtered = true
	}
	var removed []int
	for i, r := range it.visible {
		if match(r) {
			removed = append(removed, i)
		}
	}
	it.deleteVisibleLocked(n, removed)
}

func (it *Items[R, C]) removeRangeLocked(n *notice[R], from, to int) {
	if from == to {
		return
	}
	removed := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		removed = append(removed, i)
	}
	it.deleteVisibleLocked(n, removed)
}

// deleteVisibleLocked drops the visible rows at the ascending indexes.
func (it *Items[R, C]) deleteVisibleLocked(n *notice[R], indexes []int) {
	if len(indexes) == 0 {
		return
	}
	for i := len(indexes) - 1; i >= 0; i-- {
		it.m.selection.set.DeleteRange(indexes[i], indexes[i])
	}
	drop := make(map[int]struct{}, len(indexes))
	for _, i := range indexes {
		drop[i] = struct{}{}
	}
	kept := it.visible[:0]
	for i, r := range it.visible {
		if _, ok := drop[i]; !ok {
			kept = append(kept, r)
		}
	}
	clear(it.visible[len(kept):])
	it.visible = kept
	n.visible(removalChange(indexes))
}

func (it *Items[R, C]) clearLocked(n *notice[R]) {
	it.m.selection.set.Clear()
	if len(it.visible) > 0 {
		n.visible(types.Change{Kind: types.Deleted, From: 0, To: len(it.visible) - 1})
		it.visible = nil
	}
	if len(it.filtered) > 0 {
		n.filtered = true
		it.filtered = nil
	}
}

// resetLocked implements the clear-and-add strategy: the selected rows are
// restored by identity once the new rows are in place and sorted, one new
// row per previously selected row.
func (it *Items[R, C]) resetLocked(n *notice[R], rows []R) {
	selected := it.m.keyCounts(it.m.selection.itemsLocked())
	oldVisible, oldFiltered := it.visible, it.filtered

	it.visible, it.filtered = nil, nil
	for _, r := range it.dedupe(rows) {
		if it.includeLocked(r) {
			it.visible = append(it.visible, r)
		} else {
			it.filtered = append(it.filtered, r)
		}
	}
	if it.m.sort.sortedLocked() {
		it.sortLocked()
	}
	it.m.selection.restoreKeysLocked(selected)

	if !sameRows(oldVisible, it.visible) {
		n.visible(types.DataChanged)
	}
	if !sameRows(oldFiltered, it.filtered) {
		n.filtered = true
	}
}

// mergeLocked reconciles rows with the contents by identity: rows no longer
// present are removed, rows still present are updated in place and new rows
// are appended. The visible partition is not re-sorted.
func (it *Items[R, C]) mergeLocked(n *notice[R], rows []R) {
	rows = it.dedupe(rows)
	incoming := make(map[any]R, len(rows))
	for _, r := range rows {
		incoming[it.m.key(r)] = r
	}

	var removed, updated []int
	kept := make([]R, 0, len(it.visible))
	placed := make(map[any]struct{}, len(it.visible))
	for i, v := range it.visible {
		k := it.m.key(v)
		r, ok := incoming[k]
		if !ok || !it.includeLocked(r) {
			removed = append(removed, i)
			continue
		}
		placed[k] = struct{}{}
		if r != v {
			updated = append(updated, len(kept))
		}
		kept = append(kept, r)
	}
	for i := len(removed) - 1; i >= 0; i-- {
		it.m.selection.set.DeleteRange(removed[i], removed[i])
	}

	var filtered []R
	appendFrom := len(kept)
	for _, r := range rows {
		if _, ok := placed[it.m.key(r)]; ok {
			continue
		}
		if it.includeLocked(r) {
			kept = append(kept, r)
		} else {
			filtered = append(filtered, r)
		}
	}
	inserted := len(kept) - appendFrom

	it.visible = kept
	if !sameRows(it.filtered, filtered) {
		n.filtered = true
	}
	it.filtered = filtered

	switch {
	case len(removed) > 0 && len(updated) == 0 && inserted == 0:
		n.visible(removalChange(removed))
	case len(removed) == 0 && len(updated) > 0 && inserted == 0:
		n.visible(types.Change{Kind: types.Updated, From: updated[0], To: updated[len(updated)-1]})
	case len(removed) == 0 && len(updated) == 0 && inserted > 0:
		n.visible(types.Change{Kind: types.Inserted, From: appendFrom, To: len(kept) - 1})
	case len(removed) > 0 || len(updated) > 0 || inserted > 0:
		n.visible(types.DataChanged)
	}
	it.m.log.Debug("merged rows",
		zap.Int("removed", len(removed)),
		zap.Int("updated", len(updated)),
		zap.Int("inserted", inserted),
		zap.Int("filtered", len(filtered)))
}

func (it *Items[R, C]) replaceLocked(n *notice[R], byKey map[any]R) {
	wasSelected := it.m.selection.flagsLocked()

	var updated []int
	moved := false
	visible := make([]R, 0, len(it.visible))
	flags := make([]bool, 0, len(it.visible))
	var filtered []R
	for i, v := range it.visible {
		r, ok := byKey[it.m.key(v)]
		switch {
		case !ok:
			visible = append(visible, v)
			flags = append(flags, wasSelected[i])
		case it.includeLocked(r):
			if r != v {
				updated = append(updated, len(visible))
			}
			visible = append(visible, r)
			flags = append(flags, wasSelected[i])
		default:
			filtered = append(filtered, r)
			moved = true
		}
	}
	filteredChanged := len(filtered) > 0
	for _, f := range it.filtered {
		r, ok := byKey[it.m.key(f)]
		switch {
		case !ok:
			filtered = append(filtered, f)
		case it.includeLocked(r):
			visible = append(visible, r)
			flags = append(flags, false)
			moved, filteredChanged = true, true
		default:
			if r != f {
				filteredChanged = true
			}
			filtered = append(filtered, r)
		}
	}
	if len(updated) == 0 && !moved && !filteredChanged {
		return
	}
	it.visible, it.filtered = visible, filtered
	it.m.selection.setFlagsLocked(flags)
	if filteredChanged {
		n.filtered = true
	}

	resorted := false
	if it.m.sort.sortedLocked() && (len(updated) > 0 || moved) {
		resorted = it.sortLocked()
	}

	switch {
	case moved || resorted:
		n.visible(types.DataChanged)
	case len(updated) > 0:
		n.visible(types.Change{Kind: types.Updated, From: updated[0], To: updated[len(updated)-1]})
	}
}

// filterLocked re-partitions both partitions. Selected rows that stay
// visible stay selected; rows entering the visible partition are appended
// unselected.
func (it *Items[R, C]) filterLocked(n *notice[R]) {
	oldVisible, oldFiltered := it.visible, it.filtered
	wasSelected := it.m.selection.flagsLocked()

	var visible, filtered []R
	var flags []bool
	for i, r := range it.visible {
		if it.includeLocked(r) {
			visible = append(visible, r)
			flags = append(flags, wasSelected[i])
		} else {
			filtered = append(filtered, r)
		}
	}
	for _, r := range it.filtered {
		if it.includeLocked(r) {
			visible = append(visible, r)
			flags = append(flags, false)
		} else {
			filtered = append(filtered, r)
		}
	}
	it.visible, it.filtered = visible, filtered
	it.m.selection.setFlagsLocked(flags)
	if it.m.sort.sortedLocked() {
		it.sortLocked()
	}

	if !sameRows(oldVisible, it.visible) {
		n.visible(types.DataChanged)
	}
	if !sameRows(oldFiltered, it.filtered) {
		n.filtered = true
	}
}

// sortLocked stable-sorts the visible rows with the active sort keys. The
// selection moves with the rows it covers. It reports whether the order
// changed.
func (it *Items[R, C]) sortLocked() bool {
	if len(it.visible) < 2 {
		return false
	}
	type entry struct {
		row      R
		index    int
		selected bool
	}
	flags := it.m.selection.flagsLocked()
	entries := make([]entry, len(it.visible))
	for i, r := range it.visible {
		entries[i] = entry{row: r, index: i, selected: flags[i]}
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		return it.m.sort.compareLocked(a.row, b.row)
	})
	changed := false
	for i, e := range entries {
		if e.index != i {
			changed = true
		}
		it.visible[i] = e.row
		flags[i] = e.selected
	}
	if changed {
		it.m.selection.setFlagsLocked(flags)
	}
	return changed
}
