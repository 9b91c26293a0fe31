// Package config loads the detective CLI configuration.
//
// Values are layered, highest priority first: changed command-line flags,
// DETECTIVE_ environment variables, detective.yaml, then defaults.
package config

import (
	"time"

	"github.com/datadetective/academy/internal/sandbox"
)

// Default configuration values.
const (
	DefaultEngine      = sandbox.DefaultEngine
	DefaultStateFile   = ".detective/state.db"
	DefaultQuietPeriod = 2 * time.Second
	DefaultAPITimeout  = 10 * time.Second
	DefaultServeAddr   = "127.0.0.1:8080"
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// Config holds all CLI configuration options.
type Config struct {
	Engine       EngineConfig  `koanf:"engine"`
	Catalog      CatalogConfig `koanf:"catalog"`
	StatePath    string        `koanf:"state_path"`
	Drafts       DraftsConfig  `koanf:"drafts"`
	API          APIConfig     `koanf:"api"`
	Serve        ServeConfig   `koanf:"serve"`
	OutputFormat string        `koanf:"output"`
	Verbose      bool          `koanf:"verbose"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// EngineConfig selects the embedded engine students' queries run on.
type EngineConfig struct {
	Type string `koanf:"type"`
	// QueryTimeout bounds one execution. Zero means no limit.
	QueryTimeout time.Duration `koanf:"query_timeout"`
	// Params holds engine-specific settings, such as DuckDB settings and
	// extensions.
	Params map[string]any `koanf:"params"`
}

// CatalogConfig locates the challenge pack.
type CatalogConfig struct {
	// Dir holds pack files. Empty uses the built-in pack.
	Dir string `koanf:"dir"`
}

// DraftsConfig configures draft auto-save.
type DraftsConfig struct {
	QuietPeriod time.Duration `koanf:"quiet_period"`
}

// APIConfig points at the learning platform backend. An empty BaseURL
// records progress locally.
type APIConfig struct {
	BaseURL string        `koanf:"base_url"`
	Token   string        `koanf:"token"`
	Timeout time.Duration `koanf:"timeout"`
}

// Online reports whether a backend is configured.
func (c APIConfig) Online() bool { return c.BaseURL != "" }

// ServeConfig configures the HTTP session API.
type ServeConfig struct {
	Addr          string `koanf:"addr"`
	SessionSecret string `koanf:"session_secret"`
	Watch         bool   `koanf:"watch"`
}
