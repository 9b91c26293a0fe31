package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/datadetective/academy/pkg/core"
)

// ErrNotConnected is returned when an operation runs before Connect.
var ErrNotConnected = errors.New("database connection not established")

// QueryError wraps an error reported by the engine itself. The wrapped error
// carries the driver's diagnostic text.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// EngineMessage returns the engine's own diagnostic for err, without any
// wrapping added on the way up.
func EngineMessage(err error) string {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Err.Error()
	}
	return err.Error()
}

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, and Query implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB == nil {
		return nil
	}
	if b.Logger != nil {
		b.Logger.Debug("closing database connection", "type", b.Cfg.Type)
	}
	err := b.DB.Close()
	b.DB = nil
	return err
}

// Exec executes a SQL script that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	if _, err := b.DB.ExecContext(ctx, sqlStr); err != nil {
		return &QueryError{Op: "execute SQL", Err: err}
	}
	return nil
}

// Query executes a SQL statement that returns rows.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string) (*core.Rows, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := b.DB.QueryContext(ctx, sqlStr)
	if err != nil {
		return nil, &QueryError{Op: "execute query", Err: err}
	}
	return &core.Rows{Rows: rows}, nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// ScanColumns runs a metadata query returning (name, type, nullable, position)
// tuples and collects them. Nullable accepts either "YES"/"NO" text or a
// NOT NULL integer flag, depending on the engine.
func (b *BaseSQLAdapter) ScanColumns(ctx context.Context, query string, args ...any) ([]core.Column, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}

	rows, err := b.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var col core.Column
		var nullable any
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		switch v := nullable.(type) {
		case string:
			col.Nullable = v == "YES"
		case []byte:
			col.Nullable = string(v) == "YES"
		case int64:
			col.Nullable = v == 0
		case bool:
			col.Nullable = v
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	return columns, nil
}

// CountRows returns the number of rows in table, or 0 if it cannot be counted.
func (b *BaseSQLAdapter) CountRows(ctx context.Context, table string) int64 {
	if b.DB == nil {
		return 0
	}
	var n int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %q", table) //nolint:gosec // table names come from engine metadata
	if err := b.DB.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0
	}
	return n
}

// ScanStrings runs a query returning a single text column and collects it.
func (b *BaseSQLAdapter) ScanStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	rows, err := b.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
