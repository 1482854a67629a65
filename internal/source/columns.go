package source

import (
	"github.com/mesh-intelligence/tabula/pkg/table"
)

// Columns builds a registry over records: IDField first, then every field
// name in sorted order.
func Columns(records []*Record) (*table.ColumnRegistry[*Record, string], error) {
	defs := []table.Column[*Record, string]{column(IDField)}
	for _, name := range fieldNames(records) {
		defs = append(defs, column(name))
	}
	return table.NewColumns(defs...)
}

func column(name string) table.Column[*Record, string] {
	return table.Column[*Record, string]{
		ID:    name,
		Value: func(r *Record) any { return r.Get(name) },
	}
}

// Options returns table options for records: Identity and Valid wired,
// columns from Columns.
func Options(records []*Record) (table.Options[*Record, string], error) {
	cols, err := Columns(records)
	if err != nil {
		return table.Options[*Record, string]{}, err
	}
	return table.Options[*Record, string]{
		Columns:   cols,
		Validator: Valid,
		Identity:  Identity,
	}, nil
}
