// Package drafts auto-saves query drafts behind a quiet period.
//
// Edits are held in memory and written to the store only once no further
// edit arrived for the quiet period, so typing does not hit the store on
// every keystroke. Loads see pending edits before they are written.
package drafts

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/datadetective/academy/pkg/core"
)

// DefaultQuietPeriod is the delay between the last edit and the write.
const DefaultQuietPeriod = 2 * time.Second

// Store persists drafts keyed by challenge.
type Store interface {
	LoadDraft(ctx context.Context, key core.ChallengeKey) (string, bool, error)
	SaveDraft(ctx context.Context, key core.ChallengeKey, text string) error
	DeleteDraft(ctx context.Context, key core.ChallengeKey) error
}

type pending struct {
	text  string
	timer *time.Timer
}

// Cache is a write-behind draft cache.
type Cache struct {
	store  Store
	quiet  time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	pending map[core.ChallengeKey]*pending
	clears  map[core.ChallengeKey]uint64
	writes  sync.WaitGroup
	closed  bool

	// storeMu orders store calls so a write never lands after a Clear
	// that followed it.
	storeMu sync.Mutex
}

// New creates a cache writing to store after quiet of inactivity.
// A non-positive quiet uses DefaultQuietPeriod.
func New(store Store, quiet time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Cache{
		store:   store,
		quiet:   quiet,
		logger:  logger,
		pending: make(map[core.ChallengeKey]*pending),
		clears:  make(map[core.ChallengeKey]uint64),
	}
}

// Load returns the draft for key, preferring an unwritten edit.
func (c *Cache) Load(ctx context.Context, key core.ChallengeKey) (string, bool, error) {
	c.mu.Lock()
	if p, ok := c.pending[key]; ok {
		text := p.text
		c.mu.Unlock()
		return text, true, nil
	}
	c.mu.Unlock()

	if c.store == nil {
		return "", false, nil
	}
	return c.store.LoadDraft(ctx, key)
}

// Put records text as the latest draft of key and restarts its quiet period.
func (c *Cache) Put(key core.ChallengeKey, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.store == nil {
		return
	}

	if p, ok := c.pending[key]; ok {
		p.text = text
		if p.timer.Stop() {
			p.timer.Reset(c.quiet)
			return
		}
	}

	p := &pending{text: text}
	c.writes.Add(1)
	p.timer = time.AfterFunc(c.quiet, func() {
		defer c.writes.Done()
		c.write(key, p)
	})
	c.pending[key] = p
}

// write persists p if it is still the pending entry of key.
func (c *Cache) write(key core.ChallengeKey, p *pending) {
	c.mu.Lock()
	if c.pending[key] != p {
		c.mu.Unlock()
		return
	}
	delete(c.pending, key)
	text := p.text
	gen := c.clears[key]
	c.mu.Unlock()

	saved, err := c.save(context.Background(), key, text, gen)
	if err != nil {
		c.logger.Warn("failed to save draft", "challenge", key, "error", err)
		return
	}
	if saved {
		c.logger.Debug("draft saved", "challenge", key)
	}
}

// save writes text unless key was cleared since gen was read.
func (c *Cache) save(ctx context.Context, key core.ChallengeKey, text string, gen uint64) (bool, error) {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()

	c.mu.Lock()
	stale := c.clears[key] != gen
	c.mu.Unlock()
	if stale {
		return false, nil
	}
	return true, c.store.SaveDraft(ctx, key, text)
}

// Clear drops any pending edit of key and deletes its stored draft. A write
// of an earlier edit that is already under way is discarded or overwritten.
func (c *Cache) Clear(ctx context.Context, key core.ChallengeKey) error {
	c.mu.Lock()
	c.cancel(key)
	c.clears[key]++
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	c.storeMu.Lock()
	defer c.storeMu.Unlock()
	return c.store.DeleteDraft(ctx, key)
}

// cancel stops the pending write of key. c.mu must be held.
func (c *Cache) cancel(key core.ChallengeKey) {
	p, ok := c.pending[key]
	if !ok {
		return
	}
	if p.timer.Stop() {
		c.writes.Done()
	}
	delete(c.pending, key)
}

// Flush writes every pending edit now.
func (c *Cache) Flush(ctx context.Context) error {
	type entry struct {
		text string
		gen  uint64
	}
	c.mu.Lock()
	batch := make(map[core.ChallengeKey]entry, len(c.pending))
	for key, p := range c.pending {
		batch[key] = entry{text: p.text, gen: c.clears[key]}
		c.cancel(key)
	}
	c.mu.Unlock()

	var errs []error
	for key, e := range batch {
		if _, err := c.save(ctx, key, e.text, e.gen); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close flushes pending edits and waits for in-flight writes. Later Puts
// are ignored.
func (c *Cache) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	err := c.Flush(ctx)
	c.writes.Wait()
	return err
}
