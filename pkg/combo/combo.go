// Package combo implements a combo-box model: a filtered, optionally sorted
// item list with one selected item and an optional null item standing for
// "no selection". It is built on a single-column table.Model.
package combo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/tabula/pkg/event"
	"github.com/mesh-intelligence/tabula/pkg/table"
	"github.com/mesh-intelligence/tabula/pkg/types"
)

// ErrNotFound is returned when selecting an item the model does not hold.
var ErrNotFound = errors.New("item not in combo model")

// column is the identifier of the single item column.
const column = "item"

// Options configures a Model.
type Options[T comparable] struct {
	// Supplier produces the items applied by Refresh.
	Supplier types.Supplier[T]

	// Validator admits items. Nil admits every non-nil item.
	Validator func(T) bool

	// Identity decides whether two items are the same item. Nil uses the item.
	Identity func(T) any

	// String renders an item. Nil uses fmt.Sprint.
	String func(T) string

	// Comparator sorts the visible items. Nil keeps insertion order.
	Comparator func(a, b T) int

	// NullItem stands for "nothing selected" when IncludeNull is set; it is
	// listed first and selecting it clears the selection.
	NullItem    T
	IncludeNull bool

	// KeepFilteredSelection keeps a selected item selected when it is
	// filtered out. By default filtering it out clears the selection.
	KeepFilteredSelection bool

	Logger *zap.Logger
}

// Model is a combo-box model.
type Model[T comparable] struct {
	table *table.Model[T, string]

	mu             sync.Mutex
	identity       func(T) any
	comparator     func(a, b T) int
	nullItem       T
	includeNull    bool
	filterSelected bool
	selected       T
	hasSelected    bool

	selectionChanged event.Event[T]
}

// New builds a combo model.
func New[T comparable](opts Options[T]) (*Model[T], error) {
	c := &Model[T]{
		identity:       opts.Identity,
		comparator:     opts.Comparator,
		nullItem:       opts.NullItem,
		includeNull:    opts.IncludeNull,
		filterSelected: !opts.KeepFilteredSelection,
	}
	if c.identity == nil {
		c.identity = func(v T) any { return v }
	}
	def := table.Column[T, string]{
		ID:         column,
		Value:      func(v T) any { return v },
		Comparator: c.compare,
	}
	if opts.String != nil {
		def.String = opts.String
	}
	cols, err := table.NewColumns(def)
	if err != nil {
		return nil, err
	}
	tm, err := table.New(table.Options[T, string]{
		Columns:   cols,
		Validator: opts.Validator,
		Identity:  opts.Identity,
		Supplier:  opts.Supplier,
		Logger:    opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("combo: %w", err)
	}
	c.table = tm
	if c.comparator != nil {
		if err := tm.Sort().Set(column, types.Ascending); err != nil {
			return nil, err
		}
	}
	tm.Items().Changes().Subscribe(func(types.Change) { c.validateSelection() })
	tm.Items().FilteredChanged().Subscribe(func(struct{}) { c.validateSelection() })
	return c, nil
}

// Table returns the underlying table model.
func (c *Model[T]) Table() *table.Model[T, string] { return c.table }

// SelectionChanged fires with the new selected item, the null item when the
// selection is cleared.
func (c *Model[T]) SelectionChanged() event.Observer[T] { return &c.selectionChanged }

// SetItems replaces the items.
func (c *Model[T]) SetItems(items []T) error { return c.table.Items().Set(items) }

// Add adds items.
func (c *Model[T]) Add(items ...T) error { return c.table.Items().Add(items...) }

// Remove removes items; removing the selected item clears the selection.
func (c *Model[T]) Remove(items ...T) { c.table.Items().Remove(items...) }

// Replace substitutes replacement for item. A selected item stays selected
// as its replacement.
func (c *Model[T]) Replace(item, replacement T) error {
	c.mu.Lock()
	wasSelected := c.hasSelected && c.identity(c.selected) == c.identity(item)
	c.mu.Unlock()
	if err := c.table.Items().Replace(item, replacement); err != nil {
		return err
	}
	if wasSelected {
		return c.Select(replacement)
	}
	return nil
}

// Items returns the visible items, led by the null item when it is included.
func (c *Model[T]) Items() []T {
	visible := c.table.Items().Visible()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.includeNull {
		return visible
	}
	return append([]T{c.nullItem}, visible...)
}

// Visible returns the visible items without the null item.
func (c *Model[T]) Visible() []T { return c.table.Items().Visible() }

// Filtered returns the filtered items.
func (c *Model[T]) Filtered() []T { return c.table.Items().Filtered() }

// Contains reports whether item is visible or filtered.
func (c *Model[T]) Contains(item T) bool { return c.table.Items().Contains(item) }

// SetPredicate sets the inclusion predicate and re-filters.
func (c *Model[T]) SetPredicate(pred func(T) bool) { c.table.Items().SetPredicate(pred) }

// SetComparator sorts the visible items with cmp. Nil stops sorting and
// keeps the current order.
func (c *Model[T]) SetComparator(cmp func(a, b T) int) {
	c.mu.Lock()
	c.comparator = cmp
	c.mu.Unlock()
	if cmp == nil {
		c.table.Sort().Clear()
		return
	}
	_ = c.table.Sort().Set(column, types.Ascending)
}

// SetIncludeNull lists the null item first.
func (c *Model[T]) SetIncludeNull(include bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.includeNull = include
}

// NullItem returns the null item.
func (c *Model[T]) NullItem() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nullItem
}

// Select selects the visible item sharing item's identity. Selecting the
// included null item, or a nil item, clears the selection.
func (c *Model[T]) Select(item T) error {
	c.mu.Lock()
	isNull := c.includeNull && item == c.nullItem
	c.mu.Unlock()
	if isNull || table.IsNil(item) {
		c.ClearSelection()
		return nil
	}
	i := c.table.Items().IndexOf(item)
	if i < 0 {
		return fmt.Errorf("%w: %v", ErrNotFound, item)
	}
	row, err := c.table.Items().At(i)
	if err != nil {
		return err
	}
	c.setSelected(row, true)
	return nil
}

// ClearSelection clears the selection.
func (c *Model[T]) ClearSelection() {
	var zero T
	c.setSelected(zero, false)
}

// Selected returns the selected item. With nothing selected it returns the
// null item and false.
func (c *Model[T]) Selected() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasSelected {
		return c.nullItem, false
	}
	return c.selected, true
}

// NullSelected reports whether the null item is included and nothing is
// selected.
func (c *Model[T]) NullSelected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.includeNull && !c.hasSelected
}

// Refresh refreshes the items from the supplier.
func (c *Model[T]) Refresh(ctx context.Context) error {
	return c.table.Refresh(ctx)
}

func (c *Model[T]) compare(a, b any) int {
	c.mu.Lock()
	cmp := c.comparator
	c.mu.Unlock()
	x, okA := a.(T)
	y, okB := b.(T)
	if cmp == nil || !okA || !okB {
		return table.CompareValues(a, b)
	}
	return cmp(x, y)
}

func (c *Model[T]) setSelected(item T, has bool) {
	c.mu.Lock()
	if c.hasSelected == has && c.selected == item {
		c.mu.Unlock()
		return
	}
	c.selected, c.hasSelected = item, has
	fired := item
	if !has {
		fired = c.nullItem
	}
	c.mu.Unlock()
	c.selectionChanged.Fire(fired)
}

// validateSelection follows the selected item after the items change: it
// takes the current instance of a visible item and clears a removed one, or
// a filtered one unless filtered selections are kept.
func (c *Model[T]) validateSelection() {
	c.mu.Lock()
	selected, has, filterSelected := c.selected, c.hasSelected, c.filterSelected
	c.mu.Unlock()
	if !has {
		return
	}
	items := c.table.Items()
	if i := items.IndexOf(selected); i >= 0 {
		if row, err := items.At(i); err == nil && row != selected {
			c.setSelected(row, true)
		}
		return
	}
	if filterSelected || !items.Contains(selected) {
		c.ClearSelection()
	}
}
