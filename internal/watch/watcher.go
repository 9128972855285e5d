package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/manyvis/internal/logfields"
)

// DefaultDebounce coalesces the bursts of events editors produce on save.
const DefaultDebounce = 500 * time.Millisecond

// Reloader re-reads a system file.
type Reloader interface {
	Reload(ctx context.Context, path string)
}

// ReloaderFunc adapts a function to Reloader.
type ReloaderFunc func(ctx context.Context, path string)

func (f ReloaderFunc) Reload(ctx context.Context, path string) { f(ctx, path) }

// Watcher follows one system file at a time.
type Watcher struct {
	watcher  *fsnotify.Watcher
	reloader Reloader
	debounce time.Duration

	mu   sync.Mutex
	path string
	dir  string
}

// New creates a watcher. It watches nothing until Follow is called.
func New(reloader Reloader, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{watcher: fw, reloader: reloader, debounce: debounce}, nil
}

// Follow switches the watcher to path. The containing directory is
// watched since editors often replace files instead of writing them.
func (w *Watcher) Follow(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve system path: %w", err)
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if dir != w.dir {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		if w.dir != "" {
			if err := w.watcher.Remove(w.dir); err != nil {
				slog.Debug("Could not stop watching directory", logfields.Path(w.dir), logfields.Error(err))
			}
		}
		w.dir = dir
	}
	w.path = abs
	slog.Info("Watching system file", logfields.Path(abs))
	return nil
}

// Following returns the watched file, or "" before the first Follow.
func (w *Watcher) Following() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.path
}

// Run handles events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.watcher.Close(); err != nil {
			slog.Error("Error closing file watcher", logfields.Error(err))
		}
	}()

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			slog.Debug("System file changed", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			if path := w.Following(); path != "" {
				w.reloader.Reload(ctx, path)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	path := w.Following()
	if path == "" || filepath.Clean(event.Name) != path {
		return false
	}
	if event.Has(fsnotify.Remove) {
		slog.Warn("System file removed", logfields.Path(event.Name))
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
