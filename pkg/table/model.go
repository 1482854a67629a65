package table

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/tabula/pkg/types"
)

// Options configures a Model. Only Columns is required; every other field has
// the default documented next to it.
type Options[R, C comparable] struct {
	// Columns extracts cell values from rows. Required.
	Columns types.Columns[R, C]

	// Validator admits rows on add, set and replace. Nil admits every non-nil row.
	Validator func(R) bool

	// Predicate is the initial global inclusion predicate. Nil includes every row.
	Predicate func(R) bool

	// Identity maps a row to the key deciding whether two rows are the same
	// row (index lookup, removal, replacement, merge and selection by item).
	// Nil uses the row itself.
	Identity func(R) any

	// Supplier produces the rows applied by Refresh. Nil re-applies the
	// current rows.
	Supplier types.Supplier[R]

	// RefreshStrategy decides how Items.Set applies a non-empty collection.
	// Defaults to types.RefreshClear.
	RefreshStrategy types.RefreshStrategy

	// AsyncRefresh runs the supplier on a separate goroutine.
	AsyncRefresh bool

	// Dispatch runs the apply step of an asynchronous refresh on the owner of
	// the model. Nil applies the result on the refresh goroutine.
	Dispatch func(func())

	// OnRefreshError receives refresh failures. Nil returns them from a
	// synchronous Refresh and logs them for an asynchronous one.
	OnRefreshError func(error)

	// Logger receives debug and warning logs. Nil disables logging.
	Logger *zap.Logger
}

// Model is the filterable, sortable, selectable row engine. One mutex guards
// all row containers and derived state; notifications are delivered after it
// is released, so listeners may call back into the model.
type Model[R, C comparable] struct {
	mu       sync.Mutex
	columns  types.Columns[R, C]
	identity func(R) any
	log      *zap.Logger

	items      *Items[R, C]
	conditions *Conditions[R, C]
	sort       *Sort[R, C]
	selection  *Selection[R, C]
	visibility *ColumnVisibility[C]
	search     *Search[R, C]
	refresher  *Refresher[R, C]
}

// New builds a Model from opts. It returns ErrNoColumns when no columns are
// declared and ErrDuplicateColumn when identifiers repeat.
func New[R, C comparable](opts Options[R, C]) (*Model[R, C], error) {
	if opts.Columns == nil {
		return nil, types.ErrNoColumns
	}
	visibility, err := NewColumnVisibility(opts.Columns.Identifiers())
	if err != nil {
		return nil, err
	}
	m := &Model[R, C]{
		columns:    opts.Columns,
		identity:   opts.Identity,
		log:        opts.Logger,
		visibility: visibility,
	}
	if m.identity == nil {
		m.identity = func(r R) any { return r }
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	m.items = newItems(m, opts.Validator, opts.Predicate, opts.RefreshStrategy)
	m.conditions = newConditions(m)
	m.sort = newSort(m)
	m.selection = newSelection(m)
	m.search = newSearch(m)
	m.refresher = newRefresher(m, opts)

	m.conditions.changed.Subscribe(func(struct{}) { m.items.Filter() })
	m.items.changes.Subscribe(func(types.Change) { m.search.refresh() })
	m.visibility.Changed().Subscribe(func(struct{}) { m.search.invalidate() })
	return m, nil
}

// Items returns the row partition.
func (m *Model[R, C]) Items() *Items[R, C] { return m.items }

// Conditions returns the per-column filter conditions.
func (m *Model[R, C]) Conditions() *Conditions[R, C] { return m.conditions }

// Sort returns the sort engine.
func (m *Model[R, C]) Sort() *Sort[R, C] { return m.sort }

// Selection returns the row selection.
func (m *Model[R, C]) Selection() *Selection[R, C] { return m.selection }

// Columns returns the column visibility registry.
func (m *Model[R, C]) Columns() *ColumnVisibility[C] { return m.visibility }

// Search returns the search engine.
func (m *Model[R, C]) Search() *Search[R, C] { return m.search }

// Refresher returns the refresher.
func (m *Model[R, C]) Refresher() *Refresher[R, C] { return m.refresher }

// Registry returns the column registry the model reads cells through.
func (m *Model[R, C]) Registry() types.Columns[R, C] { return m.columns }

// String returns the display string of the visible row at index for column.
func (m *Model[R, C]) String(index int, column C) (string, error) {
	if !m.columns.Contains(column) {
		return "", fmt.Errorf("%w: %v", types.ErrUnknownColumn, column)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.items.visible) {
		return "", fmt.Errorf("%w: %d", types.ErrIndexOutOfRange, index)
	}
	return m.columns.String(m.items.visible[index], column), nil
}

// notice collects what one public call changed so that each observer fires
// at most once, after the mutex is released.
type notice[R comparable] struct {
	change   *types.Change
	filtered bool
	sorted   *bool
	before   selectionSnapshot[R]
}

// visible records a change to the visible partition. A second change in the
// same call degrades the notification to types.DataChanged.
func (n *notice[R]) visible(c types.Change) {
	if n.change == nil {
		n.change = &c
		return
	}
	dc := types.DataChanged
	n.change = &dc
}

// mutate runs fn under the mutex and publishes what it recorded. fn must not
// modify state when it returns an error.
func (m *Model[R, C]) mutate(fn func(n *notice[R]) error) error {
	m.mu.Lock()
	n := &notice[R]{before: m.selection.snapshotLocked()}
	if err := fn(n); err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()
	m.publish(n)
	return nil
}

// publish delivers notifications in order: items, filtered items, sort,
// selection.
func (m *Model[R, C]) publish(n *notice[R]) {
	if n.change != nil {
		m.items.changes.Fire(*n.change)
	}
	if n.filtered {
		m.items.filteredChanged.Fire(struct{}{})
	}
	if n.sorted != nil {
		m.sort.changed.Fire(*n.sorted)
	}
	m.mu.Lock()
	if m.selection.adjusting > 0 {
		m.mu.Unlock()
		return
	}
	after := m.selection.snapshotLocked()
	m.mu.Unlock()
	m.selection.publish(n.before, after)
}

// key returns the identity of row.
func (m *Model[R, C]) key(row R) any {
	return m.identity(row)
}

// keySet returns the identities of rows.
func (m *Model[R, C]) keySet(rows []R) map[any]struct{} {
	keys := make(map[any]struct{}, len(rows))
	for _, r := range rows {
		keys[m.identity(r)] = struct{}{}
	}
	return keys
}

// keyCounts returns how many of rows carry each identity.
func (m *Model[R, C]) keyCounts(rows []R) map[any]int {
	counts := make(map[any]int, len(rows))
	for _, r := range rows {
		counts[m.identity(r)]++
	}
	return counts
}

// IsNil reports whether v is nil or a nil pointer, map, slice, channel,
// function or interface.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// contiguous reports whether sorted indexes form a single run.
func contiguous(indexes []int) bool {
	return len(indexes) > 0 && indexes[len(indexes)-1]-indexes[0] == len(indexes)-1
}

// removalChange describes the removal of the given ascending indexes.
func removalChange(indexes []int) types.Change {
	if contiguous(indexes) {
		return types.Change{Kind: types.Deleted, From: indexes[0], To: indexes[len(indexes)-1]}
	}
	return types.DataChanged
}

func sameRows[R comparable](a, b []R) bool {
	return slices.Equal(a, b)
}
