// Package watch detects modifications of a database file made by other
// processes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/qutils/internal/core/ports/driven"
	"github.com/custodia-labs/qutils/internal/logger"
)

// Ensure Watcher implements the interface.
var _ driven.ChangeWatcher = (*Watcher)(nil)

// Watcher starts a FileWatcher per watched path.
type Watcher struct {
	cfg Config
}

// NewWatcher creates a watcher using cfg for every path.
func NewWatcher(cfg Config) *Watcher {
	return &Watcher{cfg: cfg}
}

// Watch runs a FileWatcher for path until ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context, path string, onChange func(context.Context) error) error {
	return NewFileWatcher(path, w.cfg, onChange).Run(ctx)
}

// Config controls how often a burst of file events triggers the callback.
type Config struct {
	// PollsPerSecond is the sustained callback rate.
	PollsPerSecond float64
	// Burst is how many callbacks may run back to back.
	Burst int
}

// DefaultConfig allows four callbacks per second.
var DefaultConfig = Config{PollsPerSecond: 4, Burst: 1}

// sidecars are the suffixes of files SQLite writes next to a database.
// The shared-memory index is left out because readers touch it too.
var sidecars = []string{"", "-wal", "-journal"}

// FileWatcher calls a function whenever a database file or its journal
// changes on disk. Events arriving while a call is pending are coalesced
// into it.
type FileWatcher struct {
	path     string
	limiter  *rate.Limiter
	onChange func(context.Context) error

	readyOnce sync.Once
	ready     chan struct{}
}

// NewFileWatcher creates a watcher for the database at path.
func NewFileWatcher(path string, cfg Config, onChange func(context.Context) error) *FileWatcher {
	if cfg.PollsPerSecond <= 0 {
		cfg.PollsPerSecond = DefaultConfig.PollsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultConfig.Burst
	}
	return &FileWatcher{
		path:     filepath.Clean(path),
		limiter:  rate.NewLimiter(rate.Limit(cfg.PollsPerSecond), cfg.Burst),
		onChange: onChange,
		ready:    make(chan struct{}),
	}
}

// Ready is closed once the watch is installed.
func (w *FileWatcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is cancelled.
func (w *FileWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.readyOnce.Do(func() { close(w.ready) })
	logger.Debug("watch: watching %s", w.path)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) || pending {
				continue
			}
			pending = true
			timer.Reset(w.limiter.Reserve().Delay())

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)

		case <-timer.C:
			pending = false
			if err := w.onChange(ctx); err != nil {
				logger.Warn("watch: change handler failed: %v", err)
			}
		}
	}
}

// relevant reports whether event modified the database or a journal.
func (w *FileWatcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(event.Name)
	for _, suffix := range sidecars {
		if name == w.path+suffix {
			return true
		}
	}
	return false
}
