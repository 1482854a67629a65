package types

// Direction is the sort direction of a single sort key.
type Direction int

// Sort directions.
const (
	Unsorted Direction = iota
	Ascending
	Descending
)

// String returns the lowercase name of the direction.
func (d Direction) String() string {
	switch d {
	case Ascending:
		return "ascending"
	case Descending:
		return "descending"
	default:
		return "unsorted"
	}
}

// ParseDirection accepts "asc", "ascending", "desc", "descending" and
// "none"/"unsorted". The empty string means ascending.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "", "asc", "ascending":
		return Ascending, true
	case "desc", "descending":
		return Descending, true
	case "none", "unsorted":
		return Unsorted, true
	default:
		return Unsorted, false
	}
}

// SortKey is one (column, direction) pair. Its position in a key list is
// its priority; the first key is the primary key.
type SortKey[C comparable] struct {
	Column    C
	Direction Direction
}
