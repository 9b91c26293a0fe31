// Package duckdb provides a DuckDB embedded engine.
//
// This file registers the engine with the adapter registry.
// Import this package with a blank identifier to register it:
//
//	import _ "github.com/datadetective/academy/pkg/adapters/duckdb"
package duckdb

import (
	"log/slog"

	"github.com/datadetective/academy/pkg/adapter"
)

// Name is the registry name of this engine.
const Name = "duckdb"

func init() {
	adapter.Register(Name, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
