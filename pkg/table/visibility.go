package table

import (
	"fmt"
	"slices"
	"sync"

	"github.com/mesh-intelligence/tabula/pkg/event"
	"github.com/mesh-intelligence/tabula/pkg/types"
)

// ColumnVisibility tracks which declared columns are shown and in what
// order. Hidden columns remember the columns that were to their right so
// that showing them again restores their place.
type ColumnVisibility[C comparable] struct {
	mu       sync.Mutex
	declared []C
	visible  []C
	hidden   map[C][]C
	locked   bool

	columnHidden event.Event[C]
	columnShown  event.Event[C]
	changed      event.Event[struct{}]
}

// NewColumnVisibility returns a registry with every column visible in the
// given order.
func NewColumnVisibility[C comparable](columns []C) (*ColumnVisibility[C], error) {
	if len(columns) == 0 {
		return nil, types.ErrNoColumns
	}
	seen := make(map[C]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("%w: %v", types.ErrDuplicateColumn, c)
		}
		seen[c] = struct{}{}
	}
	return &ColumnVisibility[C]{
		declared: slices.Clone(columns),
		visible:  slices.Clone(columns),
		hidden:   make(map[C][]C),
	}, nil
}

// ColumnHidden fires with each column that becomes hidden.
func (v *ColumnVisibility[C]) ColumnHidden() event.Observer[C] { return &v.columnHidden }

// ColumnShown fires with each column that becomes visible.
func (v *ColumnVisibility[C]) ColumnShown() event.Observer[C] { return &v.columnShown }

// Changed fires once after any change to the visible columns or their order.
func (v *ColumnVisibility[C]) Changed() event.Observer[struct{}] { return &v.changed }

// Lock forbids showing and hiding columns. Moving columns stays allowed.
func (v *ColumnVisibility[C]) Lock(locked bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.locked = locked
}

// Locked reports whether the registry is locked.
func (v *ColumnVisibility[C]) Locked() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.locked
}

// IsVisible reports whether column is shown.
func (v *ColumnVisibility[C]) IsVisible(column C) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.checkDeclared(column); err != nil {
		return false, err
	}
	return slices.Contains(v.visible, column), nil
}

// SetVisible shows or hides column. Hiding records the columns to its
// right; showing reinserts it before the first of those still visible, or
// at the end.
func (v *ColumnVisibility[C]) SetVisible(column C, visible bool) error {
	v.mu.Lock()
	if err := v.checkDeclared(column); err != nil {
		v.mu.Unlock()
		return err
	}
	i := slices.Index(v.visible, column)
	if (i >= 0) == visible {
		v.mu.Unlock()
		return nil
	}
	if v.locked {
		v.mu.Unlock()
		return types.ErrColumnModelLocked
	}
	if visible {
		v.showLocked(column)
	} else {
		v.hideLocked(i)
	}
	v.mu.Unlock()

	if visible {
		v.columnShown.Fire(column)
	} else {
		v.columnHidden.Fire(column)
	}
	v.changed.Fire(struct{}{})
	return nil
}

// SetVisibleColumns shows exactly columns, in the given order, and hides
// every other declared column.
func (v *ColumnVisibility[C]) SetVisibleColumns(columns ...C) error {
	v.mu.Lock()
	seen := make(map[C]struct{}, len(columns))
	for _, c := range columns {
		if err := v.checkDeclared(c); err != nil {
			v.mu.Unlock()
			return err
		}
		if _, dup := seen[c]; dup {
			v.mu.Unlock()
			return fmt.Errorf("%w: %v", types.ErrDuplicateColumn, c)
		}
		seen[c] = struct{}{}
	}
	var hidden, shown []C
	for _, c := range v.declared {
		_, want := seen[c]
		has := slices.Contains(v.visible, c)
		switch {
		case has && !want:
			hidden = append(hidden, c)
		case want && !has:
			shown = append(shown, c)
		}
	}
	if v.locked && len(hidden)+len(shown) > 0 {
		v.mu.Unlock()
		return types.ErrColumnModelLocked
	}
	reordered := !slices.Equal(v.visible, columns)
	for _, c := range hidden {
		v.hideLocked(slices.Index(v.visible, c))
	}
	for _, c := range shown {
		delete(v.hidden, c)
	}
	v.visible = slices.Clone(columns)
	v.mu.Unlock()

	for _, c := range hidden {
		v.columnHidden.Fire(c)
	}
	for _, c := range shown {
		v.columnShown.Fire(c)
	}
	if reordered {
		v.changed.Fire(struct{}{})
	}
	return nil
}

// Move places the visible column at index of the visible order.
func (v *ColumnVisibility[C]) Move(column C, index int) error {
	v.mu.Lock()
	if err := v.checkDeclared(column); err != nil {
		v.mu.Unlock()
		return err
	}
	from := slices.Index(v.visible, column)
	if from < 0 {
		v.mu.Unlock()
		return fmt.Errorf("%w: %v", types.ErrColumnHidden, column)
	}
	if index < 0 || index >= len(v.visible) {
		v.mu.Unlock()
		return fmt.Errorf("%w: %d", types.ErrIndexOutOfRange, index)
	}
	if from == index {
		v.mu.Unlock()
		return nil
	}
	v.visible = slices.Delete(v.visible, from, from+1)
	v.visible = slices.Insert(v.visible, index, column)
	v.mu.Unlock()

	v.changed.Fire(struct{}{})
	return nil
}

// VisibleColumns returns the visible columns in display order.
func (v *ColumnVisibility[C]) VisibleColumns() []C {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.visible)
}

// HiddenColumns returns the hidden columns in declaration order.
func (v *ColumnVisibility[C]) HiddenColumns() []C {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []C
	for _, c := range v.declared {
		if _, ok := v.hidden[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Declared returns every column in declaration order.
func (v *ColumnVisibility[C]) Declared() []C {
	return slices.Clone(v.declared)
}

func (v *ColumnVisibility[C]) checkDeclared(column C) error {
	if !slices.Contains(v.declared, column) {
		return fmt.Errorf("%w: %v", types.ErrUnknownColumn, column)
	}
	return nil
}

func (v *ColumnVisibility[C]) hideLocked(i int) {
	column := v.visible[i]
	v.hidden[column] = slices.Clone(v.visible[i+1:])
	v.visible = slices.Delete(v.visible, i, i+1)
}

func (v *ColumnVisibility[C]) showLocked(column C) {
	right := v.hidden[column]
	delete(v.hidden, column)
	for _, r := range right {
		if j := slices.Index(v.visible, r); j >= 0 {
			v.visible = slices.Insert(v.visible, j, column)
			return
		}
	}
	v.visible = append(v.visible, column)
}
