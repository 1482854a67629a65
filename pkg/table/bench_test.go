// Model benchmarks over growing row counts.
package table

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/mesh-intelligence/tabula/pkg/types"
)

func seedPeople(n int) []*person {
	r := rand.New(rand.NewPCG(1, 2))
	rows := make([]*person, n)
	for i := range rows {
		rows[i] = &person{ID: i, Name: fmt.Sprintf("person %d", r.IntN(n)), Age: r.IntN(90)}
	}
	return rows
}

func BenchmarkAddSorted(b *testing.B) {
	for _, n := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprint(n), func(b *testing.B) {
			rows := seedPeople(n)
			b.ReportAllocs()
			for b.Loop() {
				m := newModel(b)
				if err := m.Sort().Set("name", types.Ascending); err != nil {
					b.Fatal(err)
				}
				if err := m.Items().Add(rows...); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkFilter(b *testing.B) {
	for _, n := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprint(n), func(b *testing.B) {
			m := newModel(b, byID)
			if err := m.Items().Set(seedPeople(n)); err != nil {
				b.Fatal(err)
			}
			cond, err := m.Conditions().Condition("age")
			if err != nil {
				b.Fatal(err)
			}
			if err := cond.SetOperator(GreaterThan); err != nil {
				b.Fatal(err)
			}
			b.ReportAllocs()
			i := 0
			for b.Loop() {
				cond.SetLower(i % 90)
				i++
			}
		})
	}
}

func BenchmarkMerge(b *testing.B) {
	for _, n := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprint(n), func(b *testing.B) {
			rows := seedPeople(n)
			m := newModel(b, byID, func(o *Options[*person, string]) {
				o.RefreshStrategy = types.RefreshMerge
			})
			if err := m.Items().Set(rows); err != nil {
				b.Fatal(err)
			}
			if err := m.Selection().SetInterval(0, n/2); err != nil {
				b.Fatal(err)
			}
			b.ReportAllocs()
			for b.Loop() {
				if err := m.Items().Set(rows); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSearch(b *testing.B) {
	m := newModel(b)
	if err := m.Items().Set(seedPeople(10000)); err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	i := 0
	for b.Loop() {
		m.Search().SetText(fmt.Sprint(i % 100))
		i++
	}
}
