package types

import (
	"context"
	"errors"
)

// Columns extracts cell values from rows. It is the column registry the
// table engine reads through; rows and column identifiers are opaque to it.
type Columns[R any, C comparable] interface {
	// Identifiers returns every declared column in default display order.
	Identifiers() []C

	// Contains reports whether column is declared.
	Contains(column C) bool

	// Value returns the cell value of row for column. A nil value sorts
	// before any non-nil value.
	Value(row R, column C) any

	// String returns the display string of the cell, used by search and export.
	String(row R, column C) string

	// Comparator returns the comparator used to order non-nil values of column.
	Comparator(column C) Comparator
}

// Comparator orders two non-nil cell values, returning a negative number,
// zero or a positive number.
type Comparator func(a, b any) int

// Supplier produces the row collection a refresh applies.
type Supplier[R any] func(ctx context.Context) ([]R, error)

// Table engine errors.
var (
	ErrInvalidRow        = errors.New("invalid row")
	ErrUnknownColumn     = errors.New("unknown column")
	ErrSortLocked        = errors.New("sort is locked for column")
	ErrColumnModelLocked = errors.New("column model is locked")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrDuplicateColumn   = errors.New("duplicate column identifier")
	ErrRefreshFailure    = errors.New("refresh failed")
	ErrNoColumns         = errors.New("no columns declared")
	ErrInvalidOperator   = errors.New("invalid condition operator")
	ErrColumnHidden      = errors.New("column is hidden")
)
