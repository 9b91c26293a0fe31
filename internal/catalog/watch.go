package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay is how long the watcher waits for further changes before
// reloading.
const reloadDelay = 100 * time.Millisecond

// Watch reloads the catalog whenever a pack file in its directory changes
// and calls onReload after each successful reload. It blocks until ctx is
// done. Watching the embedded pack is a no-op that waits for ctx.
func (c *Catalog) Watch(ctx context.Context, onReload func()) error {
	if c.dir == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(c.dir); err != nil {
		return err
	}

	// Debounce
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("catalog watcher closed")
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			ext := filepath.Ext(event.Name)
			if ext != ".yaml" && ext != ".yml" {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(reloadDelay, func() {
				c.logger.Debug("pack file changed, reloading", "file", event.Name)
				if err := c.Reload(); err != nil {
					c.logger.Error("catalog reload failed", "error", err)
					return
				}
				if onReload != nil {
					onReload()
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("catalog watcher closed")
			}
			c.logger.Error("watcher error", "error", err)
		}
	}
}
