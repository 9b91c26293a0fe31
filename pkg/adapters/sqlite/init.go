// Package sqlite provides the default embedded engine, backed by the pure-Go
// modernc.org/sqlite driver.
//
// Import this package with a blank identifier to register it:
//
//	import _ "github.com/datadetective/academy/pkg/adapters/sqlite"
package sqlite

import (
	"log/slog"

	"github.com/datadetective/academy/pkg/adapter"
)

// Name is the registry name of this engine.
const Name = "sqlite"

func init() {
	adapter.Register(Name, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
