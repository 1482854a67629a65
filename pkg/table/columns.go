package table

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/constraints"

	"github.com/mesh-intelligence/tabula/pkg/types"
)

// Column declares one column of a ColumnRegistry.
type Column[R any, C comparable] struct {
	// ID identifies the column. Required and unique within a registry.
	ID C

	// Value extracts the cell value. Nil yields a nil value for every row.
	Value func(R) any

	// String renders the cell. Nil uses fmt.Sprint of the value, "" for nil.
	String func(R) string

	// Comparator orders non-nil values. Nil uses CompareValues.
	Comparator types.Comparator
}

// ColumnRegistry is the in-memory implementation of types.Columns.
type ColumnRegistry[R any, C comparable] struct {
	ids  []C
	byID map[C]Column[R, C]
}

// NewColumns builds a registry from defs; their order is the default display
// order.
func NewColumns[R any, C comparable](defs ...Column[R, C]) (*ColumnRegistry[R, C], error) {
	if len(defs) == 0 {
		return nil, types.ErrNoColumns
	}
	reg := &ColumnRegistry[R, C]{byID: make(map[C]Column[R, C], len(defs))}
	for _, d := range defs {
		if _, dup := reg.byID[d.ID]; dup {
			return nil, fmt.Errorf("%w: %v", types.ErrDuplicateColumn, d.ID)
		}
		reg.ids = append(reg.ids, d.ID)
		reg.byID[d.ID] = d
	}
	return reg, nil
}

// Identifiers implements types.Columns.
func (r *ColumnRegistry[R, C]) Identifiers() []C {
	return append([]C(nil), r.ids...)
}

// Contains implements types.Columns.
func (r *ColumnRegistry[R, C]) Contains(column C) bool {
	_, ok := r.byID[column]
	return ok
}

// Value implements types.Columns.
func (r *ColumnRegistry[R, C]) Value(row R, column C) any {
	c, ok := r.byID[column]
	if !ok || c.Value == nil {
		return nil
	}
	return c.Value(row)
}

// String implements types.Columns.
func (r *ColumnRegistry[R, C]) String(row R, column C) string {
	c, ok := r.byID[column]
	if !ok {
		return ""
	}
	if c.String != nil {
		return c.String(row)
	}
	return FormatValue(r.Value(row, column))
}

// Comparator implements types.Columns.
func (r *ColumnRegistry[R, C]) Comparator(column C) types.Comparator {
	if c, ok := r.byID[column]; ok && c.Comparator != nil {
		return c.Comparator
	}
	return CompareValues
}

// FormatValue renders a cell value, nil as "".
func FormatValue(v any) string {
	if IsNil(v) {
		return ""
	}
	return fmt.Sprint(v)
}

// CompareValues is the default comparator. Values of the same ordered kind
// compare naturally (integers and floats across widths, strings, bools with
// false first, time.Time and time.Duration); anything else compares the
// lexical form of fmt.Sprint.
func CompareValues(a, b any) int {
	if x, ok := asInt(a); ok {
		if y, ok := asInt(b); ok {
			return compareOrdered(x, y)
		}
	}
	if x, ok := asUint(a); ok {
		if y, ok := asUint(b); ok {
			return compareOrdered(x, y)
		}
	}
	if x, ok := asFloat(a); ok {
		if y, ok := asFloat(b); ok {
			return compareOrdered(x, y)
		}
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			return compareBool(x, y)
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case time.Duration:
		if y, ok := b.(time.Duration); ok {
			return compareOrdered(x, y)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func compareOrdered[T constraints.Ordered](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func asInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	}
	return 0, false
}

func asUint(v any) (uint64, bool) {
	switch x := v.(type) {
	case uint:
		return uint64(x), true
	case uint8:
		return uint64(x), true
	case uint16:
		return uint64(x), true
	case uint32:
		return uint64(x), true
	case uint64:
		return x, true
	}
	return 0, false
}

// asFloat converts any numeric value to float64.
func asFloat(v any) (float64, bool) {
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	if u, ok := asUint(v); ok {
		return float64(u), true
	}
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
