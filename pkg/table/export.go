package table

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ExportOptions controls Export.
type ExportOptions struct {
	// Delimiter separates fields. Zero means ','.
	Delimiter rune
	// Header writes the visible column identifiers as the first record.
	Header bool
	// SelectedOnly exports the selected rows instead of every visible row.
	SelectedOnly bool
}

// Export writes the visible columns of the visible (or selected) rows to w
// as delimited text, one record per row, using each cell's string form.
func (m *Model[R, C]) Export(w io.Writer, opts ExportOptions) error {
	columns := m.visibility.VisibleColumns()

	m.mu.Lock()
	rows := m.items.visible
	if opts.SelectedOnly {
		rows = m.selection.itemsLocked()
	}
	records := make([][]string, 0, len(rows)+1)
	if opts.Header {
		header := make([]string, len(columns))
		for i, c := range columns {
			header[i] = fmt.Sprint(c)
		}
		records = append(records, header)
	}
	for _, r := range rows {
		rec := make([]string, len(columns))
		for i, c := range columns {
			rec[i] = m.columns.String(r, c)
		}
		records = append(records, rec)
	}
	m.mu.Unlock()

	cw := csv.NewWriter(w)
	if opts.Delimiter != 0 {
		cw.Comma = opts.Delimiter
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}
