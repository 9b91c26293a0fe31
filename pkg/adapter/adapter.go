// Package adapter provides the embedded engine adapter contract, a registry of
// engine factories, and a database/sql base shared by the concrete engines.
//
// Concrete engines live in pkg/adapters/ subdirectories and register
// themselves from init().
package adapter

import (
	"github.com/datadetective/academy/pkg/core"
)

// Type aliases so engine packages only need to import adapter.
type (
	// Adapter is an alias for core.Adapter.
	Adapter = core.Adapter

	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.Column.
	Column = core.Column

	// Metadata is an alias for core.TableMetadata.
	Metadata = core.TableMetadata

	// Rows is an alias for core.Rows.
	Rows = core.Rows
)

// MemoryPath is the path that requests a private in-memory database.
const MemoryPath = ":memory:"
