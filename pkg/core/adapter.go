package core

import (
	"context"
	"database/sql"
)

// Adapter defines the interface that all embedded engine adapters must implement.
type Adapter interface {
	// Connect opens a fresh database.
	Connect(ctx context.Context, cfg AdapterConfig) error

	// Close closes the database and releases resources.
	Close() error

	// Exec executes a SQL script that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a single SQL statement and returns its rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// ListTables lists the user tables of the database.
	ListTables(ctx context.Context) ([]string, error)

	// GetTableMetadata retrieves metadata for a table.
	GetTableMetadata(ctx context.Context, table string) (*TableMetadata, error)
}

// AdapterConfig holds configuration for opening an embedded database.
type AdapterConfig struct {
	Type    string
	Path    string
	Options map[string]string
	Params  map[string]any
}

// Column represents a column in a database table.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key"`
	Position   int    `json:"position"`
}

// TableMetadata holds metadata about a database table.
type TableMetadata struct {
	Name     string   `json:"name"`
	Columns  []Column `json:"columns"`
	RowCount int64    `json:"row_count"`
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}
