// Package source loads rows for the table engine from JSONL files and SQLite
// databases. Every loader produces *Record rows keyed by ID.
package source

import (
	"fmt"
	"maps"
	"strconv"

	"github.com/google/uuid"
)

// IDField is the field that supplies a record's ID.
const IDField = "id"

// Record is one row: an ID and the remaining named fields.
type Record struct {
	ID     string
	Fields map[string]any
}

// Identity keys records by ID, so a reloaded record replaces its earlier
// instance on merge and keeps its selection.
func Identity(r *Record) any { return r.ID }

// Valid admits non-nil records with an ID.
func Valid(r *Record) bool { return r != nil && r.ID != "" }

// Get returns the named field; IDField returns the ID.
func (r *Record) Get(field string) any {
	if field == IDField {
		return r.ID
	}
	v, ok := r.Fields[field]
	if !ok {
		return nil
	}
	return v
}

// Object returns the record as a flat object with the ID under IDField.
func (r *Record) Object() map[string]any {
	obj := make(map[string]any, len(r.Fields)+1)
	maps.Copy(obj, r.Fields)
	obj[IDField] = r.ID
	return obj
}

// newRecord builds a record from a decoded object. A string or numeric id
// field becomes the ID; otherwise a fresh UUID v7 is assigned.
func newRecord(obj map[string]any) *Record {
	r := &Record{Fields: make(map[string]any, len(obj))}
	for k, v := range obj {
		if k == IDField {
			r.ID = formatID(v)
			continue
		}
		r.Fields[k] = v
	}
	if r.ID == "" {
		r.ID = newID()
	}
	return r
}

func formatID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(id, 10)
	case []byte:
		return string(id)
	default:
		return fmt.Sprint(id)
	}
}

// newID returns a UUID v7, falling back to v4.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
