// Package source provides the public API for loading table rows from JSONL
// files and SQLite databases while keeping the loaders internal.
//
// Example:
//
//	records, err := source.JSONL(nil, "people.jsonl")(ctx)
//	opts, err := source.Options(records)
//	opts.Supplier = source.JSONL(nil, "people.jsonl")
//	m, err := table.New(opts)
package source

import (
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/tabula/internal/source"
	"github.com/mesh-intelligence/tabula/pkg/table"
	"github.com/mesh-intelligence/tabula/pkg/types"
)

// Record is one loaded row.
type Record = source.Record

// IDField is the field supplying a record's ID.
const IDField = source.IDField

// JSONL returns a supplier reading records from JSONL files.
func JSONL(log *zap.Logger, paths ...string) types.Supplier[*Record] {
	return source.JSONL(log, paths...)
}

// SQLite returns a supplier running query against the database at path.
func SQLite(path, query string) types.Supplier[*Record] {
	return source.SQLite(path, query)
}

// Open picks the supplier for path by extension: .db, .sqlite and .sqlite3
// run query, anything else is read as JSONL.
func Open(log *zap.Logger, path, query string) types.Supplier[*Record] {
	if IsDatabase(path) {
		return SQLite(path, query)
	}
	return JSONL(log, path)
}

// IsDatabase reports whether path names a SQLite database.
func IsDatabase(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// WriteJSONL atomically writes records to path.
func WriteJSONL(path string, records []*Record) error {
	return source.WriteJSONL(path, records)
}

// Import writes records into a SQLite table.
func Import(ctx context.Context, path, tableName string, records []*Record) (int, error) {
	return source.Import(ctx, path, tableName, records)
}

// Columns builds a column registry over records.
func Columns(records []*Record) (*table.ColumnRegistry[*Record, string], error) {
	return source.Columns(records)
}

// Options returns table options for records.
func Options(records []*Record) (table.Options[*Record, string], error) {
	return source.Options(records)
}

// Identity keys records by ID.
func Identity(r *Record) any { return source.Identity(r) }
