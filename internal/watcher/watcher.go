// Package watcher monitors a dropfolder for newly arrived video files.
// Files are reported only after they settle: a file still being copied in
// keeps resetting its timer and is not surfaced until writes stop.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event describes one settled file.
type Event struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Watcher debounces filesystem notifications into settled-file events.
type Watcher struct {
	fsw    *fsnotify.Watcher
	opts   Options
	logger *slog.Logger

	events chan Event
	errors chan error

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

// New creates a watcher. Call Watch to add the dropfolder, then Start.
func New(logger *slog.Logger, opts Options) (*Watcher, error) {
	opts.setDefaults()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsw:     fsw,
		opts:    opts,
		logger:  logger,
		events:  make(chan Event, 64),
		errors:  make(chan error, 8),
		pending: make(map[string]*time.Timer),
	}, nil
}

// Watch adds a directory to be monitored. Not recursive; a dropfolder is
// flat by convention.
func (w *Watcher) Watch(path string) error {
	if err := w.fsw.Add(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	w.logger.Info("watching dropfolder", "path", path)
	return nil
}

// Events returns the channel of settled files.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Start consumes filesystem notifications until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	defer w.shutdown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			select {
			case w.errors <- err:
			default:
				w.logger.Warn("watcher error dropped", "error", err)
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if w.opts.shouldIgnore(event.Name) {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Create), event.Op.Has(fsnotify.Write):
		w.resetTimer(event.Name)
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		w.cancelTimer(event.Name)
	}
}

// resetTimer (re)arms the settle timer for a path. Every write pushes the
// deadline out again.
func (w *Watcher) resetTimer(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.opts.SettleDelay)
		return
	}
	w.pending[path] = time.AfterFunc(w.opts.SettleDelay, func() {
		w.settle(path)
	})
}

func (w *Watcher) cancelTimer(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok {
		timer.Stop()
		delete(w.pending, path)
	}
}

// settle stats the quiet file and emits it.
func (w *Watcher) settle(path string) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	w.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		// Deleted before settling, or a directory; nothing to report.
		return
	}

	select {
	case w.events <- Event{Path: path, Size: info.Size(), ModTime: info.ModTime()}:
	default:
		w.logger.Warn("settled file dropped, event buffer full", "path", path)
	}
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	w.closed = true
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	_ = w.fsw.Close()
	close(w.events)
	close(w.errors)
}
