// Package watcher reports debounced changes to a single file.
package watcher

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when no WithDebounceDuration option is given.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches one file and signals Changed after a quiet period.
//
// It watches the parent directory rather than the file itself, so atomic
// replace-by-rename saves (editors, loader.SaveItems) keep being observed.
type Watcher struct {
	path     string
	name     string
	debounce time.Duration

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	timer   *time.Timer
	started bool
	stopped bool

	changed chan struct{}
	done    chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounceDuration sets the quiet period before Changed fires.
func WithDebounceDuration(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for path. Nothing is observed until Start.
func NewWatcher(path string, opts ...Option) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("watcher: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watcher: resolving %s: %w", path, err)
	}
	w := &Watcher{
		path:     abs,
		name:     filepath.Base(abs),
		debounce: DefaultDebounce,
		changed:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Changed delivers one value per debounced burst of changes. The channel
// has a buffer of one, so bursts that arrive while nobody reads coalesce.
func (w *Watcher) Changed() <-chan struct{} { return w.changed }

// Start begins watching. Calling Start more than once is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	if w.stopped {
		return fmt.Errorf("watcher: already stopped")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("watcher: watching %s: %w", filepath.Dir(w.path), err)
	}
	w.fsw = fsw
	w.started = true
	go w.loop()
	return nil
}

// Stop releases the underlying fsnotify watcher. It is safe to call more
// than once and before Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	fsw := w.fsw
	started := w.started
	w.mu.Unlock()

	if fsw != nil {
		fsw.Close()
	}
	if started {
		<-w.done
	}
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.schedule()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watcher: %v", err)
		}
	}
}

// schedule restarts the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}
	select {
	case w.changed <- struct{}{}:
	default:
	}
}
