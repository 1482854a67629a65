// Unit tests for the search engine.
package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchModel(t *testing.T) *Model[*person, string] {
	t.Helper()
	m := newModel(t)
	require.NoError(t, m.Items().Add(
		&person{ID: 1, Name: "Alice", Age: 31},
		&person{ID: 2, Name: "bob", Age: 12},
		&person{ID: 3, Name: "carol", Age: 41},
	))
	return m
}

func TestSearchScansVisibleCells(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		regex         bool
		caseSensitive bool
		want          []Result[string]
	}{
		{
			name: "substring, case insensitive",
			text: "a",
			want: []Result[string]{{Row: 0, Column: 1, ID: "name"}, {Row: 2, Column: 1, ID: "name"}},
		},
		{
			name:          "case sensitive",
			text:          "A",
			caseSensitive: true,
			want:          []Result[string]{{Row: 0, Column: 1, ID: "name"}},
		},
		{
			name:  "regular expression",
			text:  `^\d1$`,
			regex: true,
			want:  []Result[string]{{Row: 0, Column: 2, ID: "age"}, {Row: 2, Column: 2, ID: "age"}},
		},
		{
			name:  "invalid expression matches nothing",
			text:  "([",
			regex: true,
		},
		{
			name: "empty text",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := searchModel(t)
			s := m.Search()
			s.SetRegularExpression(tt.regex)
			s.SetCaseSensitive(tt.caseSensitive)
			s.SetText(tt.text)
			assert.Equal(t, tt.want, s.Results())
		})
	}
}

func TestSearchWrapsAround(t *testing.T) {
	m := searchModel(t)
	s := m.Search()
	s.SetText("o")
	results := s.Results()
	require.Len(t, results, 2)

	_, ok := s.Current()
	assert.False(t, ok)

	var got []Result[string]
	for range len(results) + 1 {
		r, ok := s.Next()
		require.True(t, ok)
		got = append(got, r)
	}
	assert.Equal(t, results[0], got[0])
	assert.Equal(t, results[0], got[len(got)-1], "k+1 steps return to the first match")

	s.SetText("o")
	first, _ := s.Next()
	last, _ := s.Previous()
	assert.Equal(t, results[0], first)
	assert.Equal(t, results[len(results)-1], last)
}

func TestSearchDrivesSelection(t *testing.T) {
	m := searchModel(t)
	s := m.Search()
	s.SetText("o")

	r, ok := s.SelectNext()
	require.True(t, ok)
	assert.Equal(t, []int{r.Row}, m.Selection().Indexes())

	r2, ok := s.AddNext()
	require.True(t, ok)
	assert.Equal(t, []int{r.Row, r2.Row}, m.Selection().Indexes())

	r3, ok := s.SelectPrevious()
	require.True(t, ok)
	assert.Equal(t, []int{r3.Row}, m.Selection().Indexes())

	s.SetText("")
	_, ok = s.AddPrevious()
	assert.False(t, ok)
}

func TestSearchFollowsData(t *testing.T) {
	m := searchModel(t)
	s := m.Search()
	var fired [][]Result[string]
	s.ResultsChanged().Subscribe(func(r []Result[string]) { fired = append(fired, r) })
	s.SetText("dave")
	assert.Empty(t, s.Results())

	require.NoError(t, m.Items().Add(p(4, "dave")))
	assert.Equal(t, []Result[string]{{Row: 3, Column: 1, ID: "name"}}, s.Results())
	assert.Len(t, fired, 1)
}

func TestSearchClearedByColumnChanges(t *testing.T) {
	m := searchModel(t)
	s := m.Search()
	s.SetText("bob")
	require.NotEmpty(t, s.Results())
	_, _ = s.Next()

	require.NoError(t, m.Columns().Move("name", 0))
	assert.Empty(t, s.Results())
	_, ok := s.Current()
	assert.False(t, ok)

	s.SetText("bob")
	assert.Equal(t, []Result[string]{{Row: 1, Column: 0, ID: "name"}}, s.Results(), "column index follows display order")
}
