// Package watcher re-runs ingest when text files land in a directory.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/permit-assets/internal/logger"
)

// DefaultDebounce coalesces the write bursts of a file being copied in.
const DefaultDebounce = 500 * time.Millisecond

// Config configures a directory watch.
type Config struct {
	// Dir is the directory to watch. Subdirectories are not watched.
	Dir string

	// Filter selects the files to report. Nil reports every file.
	Filter func(path string) bool

	// Debounce is the quiet period before a batch is reported.
	Debounce time.Duration
}

// Handler receives a batch of changed files in name order.
type Handler func(ctx context.Context, paths []string)

// Watch blocks until ctx is done, calling handle with each debounced batch
// of created or written files. It returns nil when ctx is cancelled.
func Watch(ctx context.Context, cfg Config, handle Handler) error {
	if cfg.Dir == "" {
		return errors.New("watch: no directory")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(cfg.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", cfg.Dir, err)
	}
	logger.Debug("watching %s", cfg.Dir)

	pending := make(map[string]struct{})
	timer := time.NewTimer(cfg.Debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !Relevant(e, cfg.Filter) {
				continue
			}
			pending[e.Name] = struct{}{}
			timer.Reset(cfg.Debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error: %v", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			clear(pending)
			sort.Strings(batch)
			handle(ctx, batch)
		}
	}
}

// Relevant reports whether an event names a new or rewritten file to report.
func Relevant(e fsnotify.Event, filter func(string) bool) bool {
	if !e.Has(fsnotify.Create) && !e.Has(fsnotify.Write) {
		return false
	}
	if strings.HasPrefix(filepath.Base(e.Name), ".") {
		return false
	}
	return filter == nil || filter(e.Name)
}
