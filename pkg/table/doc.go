// Package table implements a filterable, sortable, selectable row model.
//
// A Model splits its rows into a visible partition, the rows passing the
// effective predicate (the global predicate AND every enabled column
// condition), and a filtered partition holding the rest. The visible rows
// are kept in sort order, a selection of visible indexes follows its rows
// through every structural change, and a search engine walks the cells
// matching a text or regular expression.
//
// All state is guarded by one mutex. Each public call publishes at most one
// visible change and one filtered change, followed by sort and selection
// notifications, after the mutex is released; listeners may call back into
// the model.
//
// Newly added visible rows are appended at the tail and the whole visible
// partition is then stable-sorted, so a new row sorts after existing rows it
// ties with.
package table
