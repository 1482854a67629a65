package table

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tabula/pkg/types"
)

type person struct {
	ID   int
	Name string
	Age  any
}

func p(id int, name string) *person {
	return &person{ID: id, Name: name}
}

func personColumns(t testing.TB) *ColumnRegistry[*person, string] {
	t.Helper()
	cols, err := NewColumns(
		Column[*person, string]{ID: "id", Value: func(r *person) any { return r.ID }},
		Column[*person, string]{ID: "name", Value: func(r *person) any { return r.Name }},
		Column[*person, string]{ID: "age", Value: func(r *person) any { return r.Age }},
	)
	require.NoError(t, err)
	return cols
}

// newModel builds a model over personColumns; opts may adjust the options.
func newModel(t testing.TB, opts ...func(*Options[*person, string])) *Model[*person, string] {
	t.Helper()
	o := Options[*person, string]{Columns: personColumns(t)}
	for _, fn := range opts {
		fn(&o)
	}
	m, err := New(o)
	require.NoError(t, err)
	return m
}

func byID(o *Options[*person, string]) {
	o.Identity = func(r *person) any { return r.ID }
}

// recorder captures the notifications a model publishes.
type recorder struct {
	events   []string
	changes  []types.Change
	filtered int
	sorted   []bool
	selected int
}

func record(m *Model[*person, string]) *recorder {
	rec := &recorder{}
	m.Items().Changes().Subscribe(func(c types.Change) {
		rec.changes = append(rec.changes, c)
		rec.events = append(rec.events, "items")
	})
	m.Items().FilteredChanged().Subscribe(func(struct{}) {
		rec.filtered++
		rec.events = append(rec.events, "filtered")
	})
	m.Sort().Changed().Subscribe(func(s bool) {
		rec.sorted = append(rec.sorted, s)
		rec.events = append(rec.events, "sort")
	})
	m.Selection().Changed().Subscribe(func(struct{}) {
		rec.selected++
		rec.events = append(rec.events, "selection")
	})
	return rec
}

func (r *recorder) reset() {
	*r = recorder{}
}

func names(rows []*person) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}

func ids(rows []*person) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}
