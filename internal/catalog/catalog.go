// Package catalog provides the challenges students solve: titles, points,
// hints, the reference query of each challenge and the dataset every
// sandbox is loaded with.
//
// A catalog is built from a pack, a YAML document with one dataset and a
// list of units. The default pack is embedded in the binary; packs can also
// be loaded from a directory. Each challenge runs against the dataset of the
// pack that declares it.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/datadetective/academy/internal/sandbox"
	"github.com/datadetective/academy/pkg/core"
)

//go:embed pack.yaml
var defaultPack []byte

// Challenge is one exercise.
type Challenge struct {
	UnitID      int      `yaml:"-" json:"unit_id"`
	ID          int      `yaml:"id" json:"challenge_id"`
	Title       string   `yaml:"title" json:"title"`
	Points      int      `yaml:"points" json:"points"`
	Description string   `yaml:"description" json:"description"`
	Solution    string   `yaml:"solution" json:"-"`
	Hints       []string `yaml:"hints" json:"-"`

	// Dataset is the data the challenge's sessions are loaded with.
	Dataset sandbox.Dataset `yaml:"-" json:"-"`
}

// Key returns the challenge key.
func (c Challenge) Key() core.ChallengeKey {
	return core.ChallengeKey{UnitID: c.UnitID, ChallengeID: c.ID}
}

// HasReference reports whether the challenge has a reference query to
// validate against.
func (c Challenge) HasReference() bool {
	return strings.TrimSpace(c.Solution) != ""
}

// Unit groups challenges under a topic.
type Unit struct {
	ID         int         `yaml:"id" json:"unit_id"`
	Title      string      `yaml:"title" json:"title"`
	Challenges []Challenge `yaml:"challenges" json:"challenges"`
}

// Pack is the YAML document a catalog is built from.
type Pack struct {
	Name    string          `yaml:"name"`
	Dataset sandbox.Dataset `yaml:"dataset"`
	Units   []Unit          `yaml:"units"`
}

// NotFoundError is returned when a challenge does not exist.
type NotFoundError struct {
	Key core.ChallengeKey
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("challenge not found: unit=%d, challenge=%d", e.Key.UnitID, e.Key.ChallengeID)
}

// Parse decodes and validates a pack.
func Parse(data []byte) (*Pack, error) {
	var p Pack
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse pack: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	for i := range p.Units {
		for j := range p.Units[i].Challenges {
			p.Units[i].Challenges[j].UnitID = p.Units[i].ID
			p.Units[i].Challenges[j].Dataset = p.Dataset
		}
	}
	return &p, nil
}

// Validate checks ids and hint counts.
func (p *Pack) Validate() error {
	var errs []error
	units := make(map[int]bool)
	for _, u := range p.Units {
		if u.ID <= 0 {
			errs = append(errs, fmt.Errorf("unit %q: id must be positive", u.Title))
		}
		if units[u.ID] {
			errs = append(errs, fmt.Errorf("unit %d: duplicate id", u.ID))
		}
		units[u.ID] = true

		challenges := make(map[int]bool)
		for _, c := range u.Challenges {
			if c.ID <= 0 {
				errs = append(errs, fmt.Errorf("unit %d, challenge %q: id must be positive", u.ID, c.Title))
			}
			if challenges[c.ID] {
				errs = append(errs, fmt.Errorf("unit %d, challenge %d: duplicate id", u.ID, c.ID))
			}
			challenges[c.ID] = true
			if len(c.Hints) > core.MaxHints {
				errs = append(errs, fmt.Errorf("unit %d, challenge %d: at most %d hints allowed, got %d", u.ID, c.ID, core.MaxHints, len(c.Hints)))
			}
			if c.Points < 0 {
				errs = append(errs, fmt.Errorf("unit %d, challenge %d: points must not be negative", u.ID, c.ID))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid pack: %w", errors.Join(errs...))
	}
	return nil
}

// Catalog is a read-mostly view of a pack. It is safe for concurrent use;
// Reload swaps the pack atomically.
type Catalog struct {
	mu     sync.RWMutex
	pack   *Pack
	index  map[core.ChallengeKey]Challenge
	dir    string
	logger *slog.Logger
}

// Default returns the catalog of the embedded pack.
func Default(logger *slog.Logger) (*Catalog, error) {
	p, err := Parse(defaultPack)
	if err != nil {
		return nil, err
	}
	return newCatalog(p, "", logger), nil
}

// LoadDir builds a catalog from every .yaml/.yml file in dir, in name
// order. Units of all files are merged. Challenges keep the dataset of their
// own file; files without a dataset share the first one declared, which is
// also the catalog's practice dataset.
func LoadDir(dir string, logger *slog.Logger) (*Catalog, error) {
	p, err := readDir(dir)
	if err != nil {
		return nil, err
	}
	return newCatalog(p, dir, logger), nil
}

func newCatalog(p *Pack, dir string, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Catalog{dir: dir, logger: logger}
	c.set(p)
	return c
}

func (c *Catalog) set(p *Pack) {
	index := make(map[core.ChallengeKey]Challenge)
	for _, u := range p.Units {
		for _, ch := range u.Challenges {
			index[ch.Key()] = ch
		}
	}
	c.mu.Lock()
	c.pack = p
	c.index = index
	c.mu.Unlock()
}

func readDir(dir string) (*Pack, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no pack files found in %s", dir)
	}
	sort.Strings(files)

	merged := &Pack{}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
		p, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(f), err)
		}
		if merged.Name == "" {
			merged.Name = p.Name
		}
		if merged.Dataset.Schema == "" && p.Dataset.Schema != "" {
			merged.Dataset = p.Dataset
		}
		merged.Units = append(merged.Units, p.Units...)
	}

	for i := range merged.Units {
		for j := range merged.Units[i].Challenges {
			if ch := &merged.Units[i].Challenges[j]; ch.Dataset.Schema == "" {
				ch.Dataset = merged.Dataset
			}
		}
	}

	sort.SliceStable(merged.Units, func(i, j int) bool { return merged.Units[i].ID < merged.Units[j].ID })
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// Reload re-reads the catalog directory. The current pack is kept when the
// new one fails to load.
func (c *Catalog) Reload() error {
	if c.dir == "" {
		return nil
	}
	p, err := readDir(c.dir)
	if err != nil {
		return err
	}
	c.set(p)
	c.logger.Info("catalog reloaded", "dir", c.dir, "challenges", c.Count())
	return nil
}

// Dir returns the directory the catalog was loaded from, or "" for the
// embedded pack.
func (c *Catalog) Dir() string { return c.dir }

// Name returns the pack name.
func (c *Catalog) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pack.Name
}

// Dataset returns the dataset of practice sessions.
func (c *Catalog) Dataset() sandbox.Dataset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pack.Dataset
}

// Challenge returns the challenge with key.
func (c *Catalog) Challenge(key core.ChallengeKey) (Challenge, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.index[key]
	if !ok {
		return Challenge{}, &NotFoundError{Key: key}
	}
	return ch, nil
}

// Units returns the units in id order.
func (c *Catalog) Units() []Unit {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Unit(nil), c.pack.Units...)
}

// Challenges returns every challenge in unit then challenge order.
func (c *Catalog) Challenges() []Challenge {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Challenge
	for _, u := range c.pack.Units {
		out = append(out, u.Challenges...)
	}
	return out
}

// Count returns the number of challenges.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.index)
}
