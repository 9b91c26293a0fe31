package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/datadetective/academy/pkg/adapter"
	"github.com/datadetective/academy/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		verify    func(t *testing.T, path string)
	}{
		{
			name: "in-memory",
			setupPath: func(_ *testing.T) string {
				return adapter.MemoryPath
			},
		},
		{
			name: "file-based",
			setupPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "test.duckdb")
			},
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			dbPath := tt.setupPath(t)
			require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: dbPath}))
			defer func() { _ = adp.Close() }()

			if tt.verify != nil {
				tt.verify(t, dbPath)
			}
		})
	}
}

func TestAdapter_ConnectWithSettings(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{
		Path: adapter.MemoryPath,
		Params: map[string]any{
			"settings": map[string]any{"threads": 1},
		},
	}))
	defer func() { _ = adp.Close() }()

	rows, err := adp.Query(ctx, "SELECT current_setting('threads')")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var threads int64
	require.True(t, rows.Next())
	require.NoError(t, rows.Scan(&threads))
	assert.Equal(t, int64(1), threads)
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	assert.ErrorIs(t, adp.Exec(ctx, "SELECT 1"), adapter.ErrNotConnected)

	_, err := adp.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, adapter.ErrNotConnected)

	assert.NoError(t, adp.Close())
}

func TestAdapter_Metadata(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: adapter.MemoryPath}))
	defer func() { _ = adp.Close() }()

	require.NoError(t, adp.Exec(ctx, `
		CREATE TABLE products (
			product_id INTEGER NOT NULL,
			name VARCHAR,
			price DOUBLE
		);
		INSERT INTO products VALUES (1, 'Widget', 9.99), (2, 'Gadget', 19.99);
	`))

	tables, err := adp.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"products"}, tables)

	meta, err := adp.GetTableMetadata(ctx, "products")
	require.NoError(t, err)
	assert.Equal(t, "products", meta.Name)
	assert.Equal(t, int64(2), meta.RowCount)
	require.Len(t, meta.Columns, 3)
	assert.Equal(t, "product_id", meta.Columns[0].Name)
	assert.Equal(t, "INTEGER", meta.Columns[0].Type)
	assert.False(t, meta.Columns[0].Nullable)
	assert.True(t, meta.Columns[1].Nullable)

	_, err = adp.GetTableMetadata(ctx, "nonexistent_table")
	assert.Error(t, err)
}

func TestAdapter_PrivateInMemoryDatabases(t *testing.T) {
	ctx := context.Background()

	first := New(nil)
	require.NoError(t, first.Connect(ctx, core.AdapterConfig{Path: adapter.MemoryPath}))
	defer func() { _ = first.Close() }()

	second := New(nil)
	require.NoError(t, second.Connect(ctx, core.AdapterConfig{Path: adapter.MemoryPath}))
	defer func() { _ = second.Close() }()

	require.NoError(t, first.Exec(ctx, "CREATE TABLE only_here (id INTEGER)"))

	tables, err := second.ListTables(ctx)
	require.NoError(t, err)
	assert.Empty(t, tables)
}
