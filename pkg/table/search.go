package table

import (
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/tabula/pkg/event"
)

// Result is one search match: a visible row index, the index of the matching
// column among the visible columns, and that column's identifier.
type Result[C comparable] struct {
	Row    int
	Column int
	ID     C
}

// Search scans the visible rows and columns for cells whose string matches
// the search text, and walks the matches with a wrapping cursor.
type Search[R, C comparable] struct {
	m             *Model[R, C]
	text          string
	regex         bool
	caseSensitive bool
	results       []Result[C]
	cursor        int

	resultsChanged event.Event[[]Result[C]]
}

func newSearch[R, C comparable](m *Model[R, C]) *Search[R, C] {
	return &Search[R, C]{m: m, cursor: -1}
}

// ResultsChanged fires with the new results whenever they are recomputed
// or cleared.
func (s *Search[R, C]) ResultsChanged() event.Observer[[]Result[C]] { return &s.resultsChanged }

// SetText sets the search text. An empty text yields no results.
func (s *Search[R, C]) SetText(text string) {
	s.m.mu.Lock()
	s.text = text
	s.m.mu.Unlock()
	s.refresh()
}

// Text returns the search text.
func (s *Search[R, C]) Text() string {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.text
}

// SetRegularExpression makes the text a regular expression. An invalid
// expression matches nothing.
func (s *Search[R, C]) SetRegularExpression(regex bool) {
	s.m.mu.Lock()
	s.regex = regex
	s.m.mu.Unlock()
	s.refresh()
}

// SetCaseSensitive sets whether matching is case sensitive.
func (s *Search[R, C]) SetCaseSensitive(sensitive bool) {
	s.m.mu.Lock()
	s.caseSensitive = sensitive
	s.m.mu.Unlock()
	s.refresh()
}

// Results returns the matches in row then column order.
func (s *Search[R, C]) Results() []Result[C] {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return slices.Clone(s.results)
}

// Current returns the result under the cursor.
func (s *Search[R, C]) Current() (Result[C], bool) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if s.cursor < 0 || s.cursor >= len(s.results) {
		return Result[C]{}, false
	}
	return s.results[s.cursor], true
}

// Next advances the cursor, wrapping from the last result to the first.
func (s *Search[R, C]) Next() (Result[C], bool) {
	return s.move(1)
}

// Previous moves the cursor back, wrapping from the first result to the last.
func (s *Search[R, C]) Previous() (Result[C], bool) {
	return s.move(-1)
}

// SelectNext advances and replaces the selection with the matched row.
func (s *Search[R, C]) SelectNext() (Result[C], bool) {
	return s.selectResult(s.Next, false)
}

// SelectPrevious moves back and replaces the selection with the matched row.
func (s *Search[R, C]) SelectPrevious() (Result[C], bool) {
	return s.selectResult(s.Previous, false)
}

// AddNext advances and adds the matched row to the selection.
func (s *Search[R, C]) AddNext() (Result[C], bool) {
	return s.selectResult(s.Next, true)
}

// AddPrevious moves back and adds the matched row to the selection.
func (s *Search[R, C]) AddPrevious() (Result[C], bool) {
	return s.selectResult(s.Previous, true)
}

func (s *Search[R, C]) selectResult(step func() (Result[C], bool), add bool) (Result[C], bool) {
	r, ok := step()
	if !ok {
		return r, false
	}
	var err error
	if add {
		err = s.m.selection.AddIndex(r.Row)
	} else {
		err = s.m.selection.SetIndex(r.Row)
	}
	return r, err == nil
}

func (s *Search[R, C]) move(delta int) (Result[C], bool) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	n := len(s.results)
	if n == 0 {
		return Result[C]{}, false
	}
	switch {
	case delta > 0:
		s.cursor = (s.cursor + 1) % n
	case s.cursor <= 0:
		s.cursor = n - 1
	default:
		s.cursor--
	}
	return s.results[s.cursor], true
}

// refresh recomputes the results and resets the cursor.
func (s *Search[R, C]) refresh() {
	columns := s.m.visibility.VisibleColumns()
	s.m.mu.Lock()
	match := s.matcherLocked()
	var results []Result[C]
	if match != nil {
		for row, r := range s.m.items.visible {
			for col, id := range columns {
				if match(s.m.columns.String(r, id)) {
					results = append(results, Result[C]{Row: row, Column: col, ID: id})
				}
			}
		}
	}
	unchanged := len(results) == 0 && len(s.results) == 0
	s.results = results
	s.cursor = -1
	s.m.mu.Unlock()
	if !unchanged {
		s.resultsChanged.Fire(slices.Clone(results))
	}
}

// invalidate clears the results after a column structure change.
func (s *Search[R, C]) invalidate() {
	s.m.mu.Lock()
	had := len(s.results) > 0
	s.results = nil
	s.cursor = -1
	s.m.mu.Unlock()
	if had {
		s.resultsChanged.Fire(nil)
	}
}

// matcherLocked returns the cell predicate for the current settings, nil
// when nothing can match.
func (s *Search[R, C]) matcherLocked() func(string) bool {
	if s.text == "" {
		return nil
	}
	if s.regex {
		pattern := s.text
		if !s.caseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			s.m.log.Debug("invalid search expression", zap.String("pattern", s.text), zap.Error(err))
			return nil
		}
		return re.MatchString
	}
	if s.caseSensitive {
		text := s.text
		return func(cell string) bool { return strings.Contains(cell, text) }
	}
	text := strings.ToLower(s.text)
	return func(cell string) bool { return strings.Contains(strings.ToLower(cell), text) }
}
