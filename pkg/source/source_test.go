package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/tabula/pkg/table"
)

func TestIsDatabase(t *testing.T) {
	for path, want := range map[string]bool{
		"a.db":      true,
		"a.SQLite":  true,
		"a.sqlite3": true,
		"a.jsonl":   false,
		"a":         false,
	} {
		assert.Equal(t, want, IsDatabase(path), path)
	}
}

func TestOpenBuildsRefreshableModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"1","n":1}`+"\n"), 0o644))
	ctx := context.Background()

	supplier := Open(nil, path, "")
	records, err := supplier(ctx)
	require.NoError(t, err)
	opts, err := Options(records)
	require.NoError(t, err)
	opts.Supplier = supplier
	m, err := table.New(opts)
	require.NoError(t, err)

	require.NoError(t, m.Refresh(ctx))
	assert.Equal(t, 1, m.Items().VisibleCount())

	require.NoError(t, WriteJSONL(path, append(records, &Record{ID: "2", Fields: map[string]any{"n": 2.0}})))
	require.NoError(t, m.Refresh(ctx))
	assert.Equal(t, 2, m.Items().VisibleCount())
	assert.Equal(t, "2", Identity(m.Items().Visible()[1]))
}
