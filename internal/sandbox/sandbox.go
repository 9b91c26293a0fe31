// Package sandbox runs student SQL against a private embedded database.
//
// A Handle owns one freshly created in-memory database loaded with a fixed
// dataset. Handles are never shared: every practice session initializes its
// own, so destructive statements only affect the student's ephemeral copy.
// Execution is not classified or restricted in any way.
//
// No timeout is enforced unless Config.QueryTimeout is set. Without one a
// pathological query (an unbounded cross join, a runaway recursive CTE)
// blocks the caller until the engine finishes.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/datadetective/academy/pkg/adapter"
	"github.com/datadetective/academy/pkg/core"

	// Register the embedded engines.
	_ "github.com/datadetective/academy/pkg/adapters/duckdb"
	_ "github.com/datadetective/academy/pkg/adapters/sqlite"
)

// DefaultEngine is the engine used when Config.Engine is empty.
const DefaultEngine = "sqlite"

// Initialization stages reported by InitializationError.
const (
	StageLoad   = "load"
	StageSchema = "schema"
	StageSeed   = "seed"
)

// Dataset is the fixed schema and seed data loaded into every handle.
type Dataset struct {
	Name   string `yaml:"name" json:"name"`
	Schema string `yaml:"schema" json:"-"`
	Seed   string `yaml:"seed" json:"-"`
}

// Config holds sandbox configuration.
type Config struct {
	// Engine is the registered engine name (sqlite, duckdb).
	Engine string
	// Params are engine-specific settings.
	Params map[string]any
	// Dataset is applied right after the database is created.
	Dataset Dataset
	// QueryTimeout bounds a single Execute call. Zero disables the limit.
	QueryTimeout time.Duration
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// InitializationError reports that a handle could not be created. It is fatal
// for the session that requested the handle: no query can run.
type InitializationError struct {
	Stage   string
	Dataset string
	Err     error
}

func (e *InitializationError) Error() string {
	switch e.Stage {
	case StageSchema, StageSeed:
		return fmt.Sprintf("sandbox initialization failed: %s of dataset %q could not be applied: %v", e.Stage, e.Dataset, e.Err)
	default:
		return fmt.Sprintf("sandbox initialization failed: engine could not be loaded: %v", e.Err)
	}
}

func (e *InitializationError) Unwrap() error { return e.Err }

// Handle is a private embedded database.
type Handle struct {
	mu      sync.Mutex
	adp     adapter.Adapter
	engine  string
	dataset string
	timeout time.Duration
	logger  *slog.Logger
}

// Initialize creates a fresh in-memory database and applies the dataset.
func Initialize(ctx context.Context, cfg Config) (*Handle, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	engine := cfg.Engine
	if engine == "" {
		engine = DefaultEngine
	}

	fail := func(stage string, err error) (*Handle, error) {
		logger.Error("sandbox initialization failed", "stage", stage, "engine", engine, "dataset", cfg.Dataset.Name, "error", err)
		return nil, &InitializationError{Stage: stage, Dataset: cfg.Dataset.Name, Err: err}
	}

	adpCfg := core.AdapterConfig{Type: engine, Path: adapter.MemoryPath, Params: cfg.Params}
	adp, err := adapter.NewAdapter(adpCfg, logger)
	if err != nil {
		return fail(StageLoad, err)
	}
	if err := adp.Connect(ctx, adpCfg); err != nil {
		return fail(StageLoad, err)
	}

	for _, step := range []struct {
		stage  string
		script string
	}{
		{StageSchema, cfg.Dataset.Schema},
		{StageSeed, cfg.Dataset.Seed},
	} {
		for _, stmt := range SplitStatements(step.script) {
			if err := adp.Exec(ctx, stmt); err != nil {
				_ = adp.Close()
				return fail(step.stage, errors.New(adapter.EngineMessage(err)))
			}
		}
	}

	logger.Debug("sandbox initialized", "engine", engine, "dataset", cfg.Dataset.Name)

	return &Handle{
		adp:     adp,
		engine:  engine,
		dataset: cfg.Dataset.Name,
		timeout: cfg.QueryTimeout,
		logger:  logger,
	}, nil
}

// Engine returns the engine name of the handle.
func (h *Handle) Engine() string { return h.engine }

// Execute runs query, which may hold several statements, and returns the
// result of the last statement that produced a column set. Statements that
// produce none (DDL, DML) leave an empty result. Engine errors are returned
// as an error outcome carrying the engine's message unchanged.
func (h *Handle) Execute(ctx context.Context, query string) core.Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.adp == nil {
		return core.Failed("sandbox is closed")
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	start := time.Now()
	result := core.TabularResult{Columns: []string{}, Rows: [][]core.Value{}}

	for _, stmt := range SplitStatements(query) {
		r, hasColumns, err := h.query(ctx, stmt)
		if err != nil {
			if h.timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				h.logger.Warn("query timed out", "timeout", h.timeout)
				return core.Failed(fmt.Sprintf("query timed out after %s", h.timeout))
			}
			h.logger.Debug("query failed", "error", err)
			return core.Failed(adapter.EngineMessage(err))
		}
		if hasColumns {
			result = r
		}
	}

	elapsed := time.Since(start)
	h.logger.Debug("query executed", "rows", len(result.Rows), "elapsed", elapsed)
	return core.Succeeded(result, elapsed)
}

func (h *Handle) query(ctx context.Context, stmt string) (core.TabularResult, bool, error) {
	rows, err := h.adp.Query(ctx, stmt)
	if err != nil {
		return core.TabularResult{}, false, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return core.TabularResult{}, false, err
	}

	result := core.TabularResult{Columns: cols, Rows: [][]core.Value{}}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return core.TabularResult{}, false, err
		}
		row := make([]core.Value, len(cols))
		for i, v := range values {
			row[i] = normalizeValue(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return core.TabularResult{}, false, err
	}

	return result, len(cols) > 0, nil
}

// Tables lists the tables currently present in the database.
func (h *Handle) Tables(ctx context.Context) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.adp == nil {
		return nil, adapter.ErrNotConnected
	}
	return h.adp.ListTables(ctx)
}

// Describe returns column metadata for table.
func (h *Handle) Describe(ctx context.Context, table string) (*core.TableMetadata, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.adp == nil {
		return nil, adapter.ErrNotConnected
	}
	return h.adp.GetTableMetadata(ctx, table)
}

// Close releases the database. Close is idempotent.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.adp == nil {
		return nil
	}
	err := h.adp.Close()
	h.adp = nil
	return err
}
