package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/tabula/pkg/types"
)

// driver is the database/sql name registered by modernc.org/sqlite.
const driver = "sqlite"

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLite returns a supplier running query against the database at path. Each
// result column becomes a field; an id column becomes the ID.
func SQLite(path, query string) types.Supplier[*Record] {
	return func(ctx context.Context) ([]*Record, error) {
		return Query(ctx, path, query)
	}
}

// Query runs query against the database at path and returns its rows.
func Query(ctx context.Context, path, query string, args ...any) ([]*Record, error) {
	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", path, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var records []*Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		obj := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				values[i] = string(b)
			}
			obj[c] = values[i]
		}
		records = append(records, newRecord(obj))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	return records, nil
}

// Import writes records into table in the database at path, creating the
// table when it does not exist. Loading is transactional: either every record
// is written or the database is left unchanged. It returns the number of
// records written.
func Import(ctx context.Context, path, table string, records []*Record) (int, error) {
	if !identifier.MatchString(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}
	columns := fieldNames(records)
	declared := map[string]string{strings.ToLower(IDField): IDField}
	for _, c := range columns {
		if !identifier.MatchString(c) {
			return 0, fmt.Errorf("invalid column name %q", c)
		}
		// SQLite column names are case-insensitive.
		if prev, ok := declared[strings.ToLower(c)]; ok {
			return 0, fmt.Errorf("column %q clashes with column %q", c, prev)
		}
		declared[strings.ToLower(c)] = c
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning import transaction: %w", err)
	}
	defer tx.Rollback()

	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s TEXT PRIMARY KEY", table, IDField)
	for _, c := range columns {
		create += ", " + c
	}
	create += ")"
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return 0, fmt.Errorf("creating table %s: %w", table, err)
	}

	all := append([]string{IDField}, columns...)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(all)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		table, strings.Join(all, ", "), placeholders,
	))
	if err != nil {
		return 0, fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for _, r := range records {
		args := make([]any, len(all))
		args[0] = r.ID
		for i, c := range columns {
			args[i+1] = sqlValue(r.Fields[c])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("inserting record %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing import transaction: %w", err)
	}
	return len(records), nil
}

// sqlValue stores nested JSON values as their serialized text.
func sqlValue(v any) any {
	switch v.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return string(b)
	default:
		return v
	}
}

// fieldNames returns the sorted union of the records' field names.
func fieldNames(records []*Record) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		for k := range r.Fields {
			seen[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}
