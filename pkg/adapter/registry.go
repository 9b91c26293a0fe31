package adapter

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/datadetective/academy/pkg/core"
)

// Factory builds an unconnected adapter for one engine.
type Factory func(*slog.Logger) Adapter

var (
	enginesMu sync.RWMutex
	engines   = make(map[string]Factory)
)

// Register makes an engine available under name. Engine packages call it
// from init. Registering a name again replaces its factory.
func Register(name string, factory Factory) {
	if factory == nil {
		panic("adapter: Register factory is nil for engine " + name)
	}
	enginesMu.Lock()
	defer enginesMu.Unlock()
	engines[name] = factory
}

// Get returns the factory registered under name.
func Get(name string) (Factory, bool) {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	f, ok := engines[name]
	return f, ok
}

// NewAdapter builds the adapter that will back one sandbox database. The
// adapter is not connected; the caller connects it with the same cfg,
// normally with Path set to MemoryPath so every sandbox is private.
// A nil logger discards.
func NewAdapter(cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, errors.New("engine type not specified")
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	logger.Debug("creating sandbox adapter", "engine", cfg.Type, "path", cfg.Path)
	return factory(logger.With("engine", cfg.Type)), nil
}

// ListAdapters returns the registered engine names, sorted.
func ListAdapters() []string {
	enginesMu.RLock()
	defer enginesMu.RUnlock()
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered reports whether an engine is registered under name.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// UnknownAdapterError is returned when an unknown engine type is requested.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown engine type %q\nAvailable engines: %v\nHint: Check engine.type in detective.yaml", e.Type, e.Available)
}
