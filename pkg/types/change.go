package types

import "fmt"

// ChangeKind classifies a change to the visible partition.
type ChangeKind int

// Change kinds.
const (
	// Changed means the visible partition may differ arbitrarily; observers
	// should reread it.
	Changed ChangeKind = iota
	Inserted
	Updated
	Deleted
)

func (k ChangeKind) String() string {
	switch k {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	default:
		return "changed"
	}
}

// Change describes one notification about the visible partition. From and To
// are inclusive row indexes; both are -1 for Changed. Deleted ranges refer to
// indexes before the deletion.
type Change struct {
	Kind ChangeKind
	From int
	To   int
}

// DataChanged is the Change fired when the whole visible partition should be reread.
var DataChanged = Change{Kind: Changed, From: -1, To: -1}

func (c Change) String() string {
	if c.Kind == Changed {
		return c.Kind.String()
	}
	return fmt.Sprintf("%s[%d,%d]", c.Kind, c.From, c.To)
}

// RefreshStrategy selects how refreshed rows are applied.
type RefreshStrategy int

// Refresh strategies.
const (
	// RefreshClear clears the model and adds the refreshed rows.
	RefreshClear RefreshStrategy = iota
	// RefreshMerge reconciles the refreshed rows with the current ones by identity.
	RefreshMerge
)

func (s RefreshStrategy) String() string {
	if s == RefreshMerge {
		return "merge"
	}
	return "clear"
}
