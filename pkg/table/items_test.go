// Unit tests for the items partition: add, remove, set, merge, replace,
// filter and the notifications each call publishes.
package table

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tabula/pkg/types"
)

func TestAddSplitsByPredicate(t *testing.T) {
	m := newModel(t, func(o *Options[*person, string]) {
		o.Predicate = func(r *person) bool { return r.ID%2 == 1 }
	})
	rec := record(m)

	require.NoError(t, m.Items().Add(p(1, "a"), p(2, "b"), p(3, "c")))

	assert.Equal(t, []int{1, 3}, ids(m.Items().Visible()))
	assert.Equal(t, []int{2}, ids(m.Items().Filtered()))
	assert.Equal(t, 3, m.Items().Count())
	assert.Equal(t, []types.Change{{Kind: types.Inserted, From: 0, To: 1}}, rec.changes)
	assert.Equal(t, 1, rec.filtered)
	assert.Equal(t, []string{"items", "filtered"}, rec.events)
}

func TestAddRejectsInvalidRowsAtomically(t *testing.T) {
	m := newModel(t, func(o *Options[*person, string]) {
		o.Validator = func(r *person) bool { return r.Name != "" }
	})
	rec := record(m)

	err := m.Items().Add(p(1, "a"), p(2, ""))
	require.ErrorIs(t, err, types.ErrInvalidRow)

	err = m.Items().Add(p(3, "c"), nil)
	require.ErrorIs(t, err, types.ErrInvalidRow)

	assert.Zero(t, m.Items().Count())
	assert.Empty(t, rec.events)
}

func TestAddDedupesWithinOneCall(t *testing.T) {
	m := newModel(t, byID)
	a := p(1, "a")

	require.NoError(t, m.Items().Add(a, a, p(1, "again"), p(2, "b")))
	assert.Equal(t, []string{"a", "b"}, names(m.Items().Visible()))

	require.NoError(t, m.Items().Add(p(1, "dup")))
	assert.Equal(t, 3, m.Items().Count(), "separate calls may add equal identities")
}

func TestAddAt(t *testing.T) {
	m := newModel(t)
	rec := record(m)
	require.NoError(t, m.Items().Add(p(1, "a"), p(2, "b")))
	rec.reset()

	require.NoError(t, m.Items().AddAt(1, p(3, "c"), p(4, "d")))
	assert.Equal(t, []int{1, 3, 4, 2}, ids(m.Items().Visible()))
	assert.Equal(t, []types.Change{{Kind: types.Inserted, From: 1, To: 2}}, rec.changes)

	assert.ErrorIs(t, m.Items().AddAt(9, p(5, "e")), types.ErrIndexOutOfRange)
}

func TestAddToSortedAppendsThenSorts(t *testing.T) {
	m := newModel(t)
	require.NoError(t, m.Items().Add(p(1, "b"), p(2, "a")))
	require.NoError(t, m.Sort().Set("name", types.Ascending))
	assert.Equal(t, []int{2, 1}, ids(m.Items().Visible()))

	rec := record(m)
	require.NoError(t, m.Items().Add(p(3, "a")))

	assert.Equal(t, []int{2, 3, 1}, ids(m.Items().Visible()))
	assert.Equal(t, []types.Change{types.DataChanged}, rec.changes)

	rec.reset()
	require.NoError(t, m.Items().Add(p(4, "z")))
	assert.Equal(t, []types.Change{{Kind: types.Inserted, From: 3, To: 3}}, rec.changes,
		"a row already in sorted position is reported as an insertion")
}

func TestRemoveCoalescesNotifications(t *testing.T) {
	tests := []struct {
		name   string
		remove []int
		want   types.Change
		left   []int
	}{
		{
			name:   "contiguous block",
			remove: []int{2, 3},
			want:   types.Change{Kind: types.Deleted, From: 1, To: 2},
			left:   []int{1, 4, 5},
		},
		{
			name:   "scattered rows",
			remove: []int{2, 4},
			want:   types.DataChanged,
			left:   []int{1, 3, 5},
		},
		{
			name:   "single row",
			remove: []int{5},
			want:   types.Change{Kind: types.Deleted, From: 4, To: 4},
			left:   []int{1, 2, 3, 4},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newModel(t, byID)
			require.NoError(t, m.Items().Add(p(1, "a"), p(2, "b"), p(3, "c"), p(4, "d"), p(5, "e")))
			rec := record(m)

			var rows []*person
			for _, id := range tt.remove {
				rows = append(rows, p(id, ""))
			}
			m.Items().Remove(rows...)

			assert.Equal(t, []types.Change{tt.want}, rec.changes)
			assert.Equal(t, tt.left, ids(m.Items().Visible()))
		})
	}
}

func TestRemoveFromBothPartitions(t *testing.T) {
	m := newModel(t, func(o *Options[*person, string]) {
		o.Predicate = func(r *person) bool { return r.Name != "hidden" }
	})
	a, h := p(1, "a"), p(2, "hidden")
	require.NoError(t, m.Items().Add(a, h))
	rec := record(m)

	m.Items().Remove(a, h)
	assert.Zero(t, m.Items().Count())
	assert.Len(t, rec.changes, 1)
	assert.Equal(t, 1, rec.filtered)

	rec.reset()
	m.Items().Remove(a)
	assert.Empty(t, rec.events, "removing absent rows publishes nothing")
}

func TestRemoveIfAndRange(t *testing.T) {
	m := newModel(t)
	require.NoError(t, m.Items().Add(p(1, "a"), p(2, "b"), p(3, "c"), p(4, "d")))

	m.Items().RemoveIf(func(r *person) bool { return r.ID > 3 })
	assert.Equal(t, []int{1, 2, 3}, ids(m.Items().Visible()))

	require.NoError(t, m.Items().RemoveRange(0, 2))
	assert.Equal(t, []int{3}, ids(m.Items().Visible()))

	assert.ErrorIs(t, m.Items().RemoveRange(0, 5), types.ErrIndexOutOfRange)

	removed, err := m.Items().RemoveAt(0)
	require.NoError(t, err)
	assert.Equal(t, 3, removed.ID)

	_, err = m.Items().RemoveAt(0)
	assert.ErrorIs(t, err, types.ErrIndexOutOfRange)
}

func TestSelectionSurvivesInsertBefore(t *testing.T) {
	m := newModel(t)
	target := p(2, "b")
	require.NoError(t, m.Items().Add(p(1, "a"), target))
	require.NoError(t, m.Selection().SetIndex(1))

	require.NoError(t, m.Items().AddAt(0, p(3, "c"), p(4, "d"), p(5, "e")))

	assert.Equal(t, 4, m.Selection().Index())
	item, ok := m.Selection().Item()
	require.True(t, ok)
	assert.Same(t, target, item)
}

func TestSelectionFollowsRemovalBelow(t *testing.T) {
	m := newModel(t)
	require.NoError(t, m.Items().Add(p(0, "a"), p(1, "b"), p(2, "c"), p(3, "d"), p(4, "e")))
	require.NoError(t, m.Selection().SetIndex(2))
	rec := record(m)

	_, err := m.Items().RemoveAt(0)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, m.Selection().Indexes())
	item, _ := m.Selection().Item()
	assert.Equal(t, "c", item.Name)
	assert.Equal(t, []string{"items", "selection"}, rec.events)
}

func TestRemovingSelectedRowPrunesSelection(t *testing.T) {
	m := newModel(t)
	a := p(1, "a")
	require.NoError(t, m.Items().Add(a, p(2, "b")))
	require.NoError(t, m.Selection().SetIndexes(0, 1))

	var seen []int
	m.Items().Changes().Subscribe(func(types.Change) { seen = m.Selection().Indexes() })
	m.Items().Remove(a)

	assert.Equal(t, []int{0}, seen, "selection is pruned before listeners run")
}

func TestSetClearStrategyRestoresSelection(t *testing.T) {
	m := newModel(t, byID)
	require.NoError(t, m.Items().Add(p(1, "a"), p(2, "b"), p(3, "c")))
	require.NoError(t, m.Sort().Set("name", types.Descending))
	m.Selection().SetItems(p(2, ""))
	rec := record(m)

	require.NoError(t, m.Items().Set([]*person{p(4, "d"), p(2, "b2"), p(1, "a2")}))

	assert.Equal(t, []string{"d", "b2", "a2"}, names(m.Items().Visible()))
	assert.Equal(t, []int{1}, m.Selection().Indexes())
	assert.Equal(t, []types.Change{types.DataChanged}, rec.changes)
}

func TestSetEmptyClears(t *testing.T) {
	m := newModel(t, func(o *Options[*person, string]) {
		o.RefreshStrategy = types.RefreshMerge
	})
	require.NoError(t, m.Items().Add(p(1, "a")))
	require.NoError(t, m.Items().Set(nil))
	assert.Zero(t, m.Items().Count())
}

func TestMergeIsIdempotent(t *testing.T) {
	m := newModel(t, byID, func(o *Options[*person, string]) {
		o.RefreshStrategy = types.RefreshMerge
		o.Predicate = func(r *person) bool { return r.Name != "x" }
	})
	rows := []*person{p(1, "a"), p(2, "b"), p(3, "x")}
	require.NoError(t, m.Items().Set(rows))
	assert.Equal(t, []int{1, 2}, ids(m.Items().Visible()))
	assert.Equal(t, []int{3}, ids(m.Items().Filtered()))

	rec := record(m)
	require.NoError(t, m.Items().Set(rows))
	assert.Empty(t, rec.events)
}

func TestMergeUpdatesInPlace(t *testing.T) {
	m := newModel(t, byID, func(o *Options[*person, string]) {
		o.RefreshStrategy = types.RefreshMerge
	})
	a, b, c := p(1, "a"), p(2, "b"), p(3, "c")
	require.NoError(t, m.Items().Set([]*person{a, b, c}))
	require.NoError(t, m.Selection().SetIndex(2))
	rec := record(m)

	require.NoError(t, m.Items().Set([]*person{a, p(2, "B"), c}))
	assert.Equal(t, []string{"a", "B", "c"}, names(m.Items().Visible()))
	assert.Equal(t, []types.Change{{Kind: types.Updated, From: 1, To: 1}}, rec.changes)
	assert.Zero(t, rec.selected)

	rec.reset()
	require.NoError(t, m.Items().Set([]*person{p(4, "d"), c}))
	assert.Equal(t, []string{"c", "d"}, names(m.Items().Visible()), "survivors keep their order, new rows are appended")
	assert.Equal(t, []types.Change{types.DataChanged}, rec.changes)
	assert.Equal(t, []int{0}, m.Selection().Indexes())
}

func TestMergeSkipsSort(t *testing.T) {
	m := newModel(t, byID, func(o *Options[*person, string]) {
		o.RefreshStrategy = types.RefreshMerge
	})
	require.NoError(t, m.Sort().Set("name", types.Ascending))
	require.NoError(t, m.Items().Set([]*person{p(1, "b")}))
	require.NoError(t, m.Items().Set([]*person{p(1, "b"), p(2, "a")}))

	assert.Equal(t, []string{"b", "a"}, names(m.Items().Visible()))
}

func TestReplaceKeepsSelectedItem(t *testing.T) {
	m := newModel(t)
	a, b := p(1, "a"), p(2, "b")
	require.NoError(t, m.Items().Add(a, b))
	require.NoError(t, m.Selection().SetIndex(1))
	rec := record(m)

	b2 := p(2, "b2")
	require.NoError(t, m.Items().Replace(b, b2))

	item, ok := m.Selection().Item()
	require.True(t, ok)
	assert.Same(t, b2, item)
	assert.Equal(t, []types.Change{{Kind: types.Updated, From: 1, To: 1}}, rec.changes)
}

func TestReplaceMovesAcrossPartitions(t *testing.T) {
	m := newModel(t, func(o *Options[*person, string]) {
		o.Predicate = func(r *person) bool { return r.Name != "hidden" }
	})
	a, h := p(1, "a"), p(2, "hidden")
	require.NoError(t, m.Items().Add(a, h))
	rec := record(m)

	a2, h2 := p(1, "hidden"), p(2, "shown")
	require.NoError(t, m.Items().ReplaceAll(map[*person]*person{a: a2, h: h2}))

	assert.Equal(t, []*person{h2}, m.Items().Visible())
	assert.Equal(t, []*person{a2}, m.Items().Filtered())
	assert.Equal(t, []types.Change{types.DataChanged}, rec.changes)
	assert.Equal(t, 1, rec.filtered)

	assert.ErrorIs(t, m.Items().Replace(h2, nil), types.ErrInvalidRow)
}

func TestSetAt(t *testing.T) {
	m := newModel(t, func(o *Options[*person, string]) {
		o.Predicate = func(r *person) bool { return r.Name != "hidden" }
	})
	require.NoError(t, m.Items().Add(p(1, "a")))

	ok, err := m.Items().SetAt(0, p(2, "b"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Items().SetAt(0, p(3, "hidden"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"b"}, names(m.Items().Visible()))

	_, err = m.Items().SetAt(1, p(4, "c"))
	assert.ErrorIs(t, err, types.ErrIndexOutOfRange)
}

func TestSetAtResortsSortedModel(t *testing.T) {
	m := newModel(t)
	require.NoError(t, m.Items().Add(p(1, "a"), p(2, "b"), p(3, "c")))
	require.NoError(t, m.Sort().Set("name", types.Ascending))
	require.NoError(t, m.Selection().SetIndex(0))
	rec := record(m)

	z := p(4, "z")
	ok, err := m.Items().SetAt(0, z)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []string{"b", "c", "z"}, names(m.Items().Visible()))
	assert.Equal(t, []types.Change{types.DataChanged}, rec.changes)
	item, selected := m.Selection().Item()
	require.True(t, selected)
	assert.Same(t, z, item)
}

func TestSetPredicateRefilters(t *testing.T) {
	m := newModel(t)
	rows := []*person{p(1, "a"), p(2, "b"), p(3, "c"), p(4, "d")}
	require.NoError(t, m.Items().Add(rows...))
	m.Selection().SetItems(rows[3])
	rec := record(m)

	m.Items().SetPredicate(func(r *person) bool { return r.ID%2 == 0 })

	assert.Equal(t, []int{2, 4}, ids(m.Items().Visible()))
	assert.Equal(t, []int{1, 3}, ids(m.Items().Filtered()))
	assert.Equal(t, []int{1}, m.Selection().Indexes())
	assert.Equal(t, []string{"items", "filtered", "selection"}, rec.events)

	rec.reset()
	m.Items().Filter()
	assert.Empty(t, rec.events, "re-filtering without a change publishes nothing")

	m.Items().SetPredicate(nil)
	assert.Equal(t, 4, m.Items().VisibleCount())
}

func TestClear(t *testing.T) {
	m := newModel(t, func(o *Options[*person, string]) {
		o.Predicate = func(r *person) bool { return r.ID < 3 }
	})
	require.NoError(t, m.Items().Add(p(1, "a"), p(2, "b"), p(3, "c")))
	m.Selection().SelectAll()
	rec := record(m)

	m.Items().Clear()

	assert.Zero(t, m.Items().Count())
	assert.True(t, m.Selection().IsEmpty())
	assert.Equal(t, []types.Change{{Kind: types.Deleted, From: 0, To: 1}}, rec.changes)
	assert.Equal(t, []string{"items", "filtered", "selection"}, rec.events)
}

func TestQueries(t *testing.T) {
	m := newModel(t, byID, func(o *Options[*person, string]) {
		o.Predicate = func(r *person) bool { return r.ID != 9 }
	})
	require.NoError(t, m.Items().Add(p(1, "a"), p(9, "z")))

	assert.Equal(t, 0, m.Items().IndexOf(p(1, "")))
	assert.Equal(t, -1, m.Items().IndexOf(p(9, "")))
	assert.True(t, m.Items().Contains(p(9, "")))
	assert.True(t, m.Items().IsFiltered(p(9, "")))
	assert.True(t, m.Items().IsVisible(p(1, "")))
	assert.False(t, m.Items().Contains(p(5, "")))
	assert.Equal(t, []int{1, 9}, ids(m.Items().All()))

	got, err := m.Items().At(0)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name)
	_, err = m.Items().At(1)
	assert.ErrorIs(t, err, types.ErrIndexOutOfRange)
}

func TestPartitionInvariantUnderRandomMutation(t *testing.T) {
	limit := 50
	m := newModel(t, byID, func(o *Options[*person, string]) {
		o.Predicate = func(r *person) bool { return r.ID%3 != 0 || r.ID > limit }
	})
	rng := rand.New(rand.NewPCG(7, 11))
	next := 0
	for step := 0; step < 500; step++ {
		switch rng.IntN(5) {
		case 0, 1:
			next++
			require.NoError(t, m.Items().Add(p(next, string(rune('a'+next%26)))))
		case 2:
			m.Items().Remove(p(rng.IntN(next+1), ""))
		case 3:
			limit = rng.IntN(100)
			m.Items().Filter()
		case 4:
			require.NoError(t, m.Sort().Set("name", types.Direction(rng.IntN(3))))
		}

		visible, filtered := m.Items().Visible(), m.Items().Filtered()
		require.Equal(t, m.Items().Count(), len(visible)+len(filtered))
		seen := make(map[*person]bool)
		for _, r := range append(visible, filtered...) {
			require.False(t, seen[r], "row %d in both partitions", r.ID)
			seen[r] = true
		}
		for _, i := range m.Selection().Indexes() {
			require.Less(t, i, len(visible))
		}
	}
}

func TestListenersMayMutateTheModel(t *testing.T) {
	m := newModel(t)
	m.Items().Changes().Subscribe(func(c types.Change) {
		if c.Kind == types.Inserted {
			_ = m.Selection().SetIndex(c.To)
		}
	})

	require.NoError(t, m.Items().Add(p(1, "a"), p(2, "b")))
	assert.Equal(t, []int{1}, m.Selection().Indexes())
}
