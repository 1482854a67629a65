package table

import (
	"fmt"

	"github.com/mesh-intelligence/tabula/pkg/types"
)

// Summary aggregates the numeric values of one column.
type Summary struct {
	// Count is the number of numeric values aggregated.
	Count   int
	Sum     float64
	Average float64
	Min     float64
	Max     float64
	// Subset is true when the summary covers the selected rows only.
	Subset bool
}

// Summary aggregates column over the selected rows when the selection is
// not empty, otherwise over every visible row. Nil and non-numeric values
// are skipped.
func (m *Model[R, C]) Summary(column C) (Summary, error) {
	if !m.columns.Contains(column) {
		return Summary{}, fmt.Errorf("%w: %v", types.ErrUnknownColumn, column)
	}
	m.mu.Lock()
	rows := m.items.visible
	subset := !m.selection.set.Empty()
	if subset {
		rows = m.selection.itemsLocked()
	}
	values := m.valuesLocked(rows, column)
	m.mu.Unlock()

	s := Summary{Subset: subset}
	for _, v := range values {
		f, ok := asFloat(v)
		if !ok {
			continue
		}
		if s.Count == 0 || f < s.Min {
			s.Min = f
		}
		if s.Count == 0 || f > s.Max {
			s.Max = f
		}
		s.Sum += f
		s.Count++
	}
	if s.Count > 0 {
		s.Average = s.Sum / float64(s.Count)
	}
	return s, nil
}

// Values returns the values of column for every visible row.
func (m *Model[R, C]) Values(column C) ([]any, error) {
	if !m.columns.Contains(column) {
		return nil, fmt.Errorf("%w: %v", types.ErrUnknownColumn, column)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valuesLocked(m.items.visible, column), nil
}

// SelectedValues returns the values of column for the selected rows.
func (m *Model[R, C]) SelectedValues(column C) ([]any, error) {
	if !m.columns.Contains(column) {
		return nil, fmt.Errorf("%w: %v", types.ErrUnknownColumn, column)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valuesLocked(m.selection.itemsLocked(), column), nil
}

func (m *Model[R, C]) valuesLocked(rows []R, column C) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = m.columns.Value(r, column)
	}
	return out
}
