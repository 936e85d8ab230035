package watcher

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/mvp-joe/stubgen/internal/logger"
)

// WatchCoordinator routes debounced file changes from a FileWatcher to a
// Regenerator. A failed regeneration is logged and the previous stub file
// stays in place; watching continues.
type WatchCoordinator struct {
	files       FileWatcher
	regenerator Regenerator
	log         *zap.SugaredLogger
	ctx         context.Context
}

// NewWatchCoordinator creates a new watch coordinator.
func NewWatchCoordinator(files FileWatcher, regenerator Regenerator) *WatchCoordinator {
	return &WatchCoordinator{
		files:       files,
		regenerator: regenerator,
		log:         logger.ComponentLogger("watch"),
	}
}

// Start begins watching and regenerating. Blocks until ctx is cancelled.
func (c *WatchCoordinator) Start(ctx context.Context) error {
	c.ctx = ctx
	if err := c.files.Start(ctx, c.handleFileChange); err != nil {
		c.cleanup()
		return err
	}

	<-ctx.Done()
	c.cleanup()
	return ctx.Err()
}

// cleanup stops the file watcher.
func (c *WatchCoordinator) cleanup() {
	if err := c.files.Stop(); err != nil {
		c.log.Warnw("file watcher stop failed", logger.FieldError, err)
	}
}

// handleFileChange regenerates with watching paused, so the run's own
// writes and edits made meanwhile are delivered as one batch afterwards.
func (c *WatchCoordinator) handleFileChange(files []string) {
	if len(files) == 0 {
		return
	}
	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}

	sort.Strings(files)
	c.log.Infow("change detected, regenerating", logger.FieldCount, len(files))
	c.log.Debugw("changed files", "files", files)

	c.files.Pause()
	defer c.files.Resume()

	if err := c.regenerator.Regenerate(ctx, files); err != nil {
		c.log.Errorw("regeneration failed, keeping previous stubs", logger.FieldError, err)
	}
}
