// Package ui provides the terminal user interface for navtree.
package ui

import (
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/navtree/pkg/analysis"
	"github.com/vanderheijden86/navtree/pkg/loader"
	"github.com/vanderheijden86/navtree/pkg/model"
	"github.com/vanderheijden86/navtree/pkg/navtree"
	"github.com/vanderheijden86/navtree/pkg/watcher"
)

// WorkerState is the lifecycle phase of a BackgroundWorker.
type WorkerState int

const (
	WorkerIdle       WorkerState = iota // waiting for a change
	WorkerProcessing                    // a reload pass is running
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerProcessing:
		return "processing"
	case WorkerStopped:
		return "stopped"
	}
	return fmt.Sprintf("WorkerState(%d)", int(s))
}

// WorkerError is a failed reload pass.
type WorkerError struct {
	Phase   string // "load" or "build"
	Cause   error
	Time    time.Time
	Retries int // consecutive failed passes, this one included
}

func (e WorkerError) Error() string {
	return fmt.Sprintf("%s failed: %v (retries: %d)", e.Phase, e.Cause, e.Retries)
}

func (e WorkerError) Unwrap() error { return e.Cause }

// Sender delivers messages to the UI. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// DataSnapshot is one fully built generation of the items file. It is never
// modified after it is published.
type DataSnapshot struct {
	Items    []model.NavigationItem
	Tree     *navtree.Tree
	Report   *analysis.Report
	DataHash string
	LoadedAt time.Time
}

// WorkerConfig configures a BackgroundWorker.
type WorkerConfig struct {
	ItemsPath     string        // empty disables reloading
	DebounceDelay time.Duration // zero means watcher.DefaultDebounce
	Program       Sender
}

// BackgroundWorker reloads the items file when it changes, coalescing bursts
// of changes and building snapshots off the UI goroutine.
type BackgroundWorker struct {
	itemsPath string
	program   Sender
	files     *watcher.Watcher

	mu         sync.RWMutex
	state      WorkerState
	dirty      bool // a change arrived during the running pass
	snapshot   *DataSnapshot
	lastHash   string
	lastError  *WorkerError
	errorCount int

	startOnce sync.Once
	startErr  error
	running   chan struct{} // closed when the watch loop exits
	quit      chan struct{}
}

// NewBackgroundWorker prepares a worker. Nothing is watched until Start.
func NewBackgroundWorker(cfg WorkerConfig) (*BackgroundWorker, error) {
	w := &BackgroundWorker{
		itemsPath: cfg.ItemsPath,
		program:   cfg.Program,
		quit:      make(chan struct{}),
	}
	if cfg.ItemsPath == "" {
		return w, nil
	}

	delay := cfg.DebounceDelay
	if delay == 0 {
		delay = watcher.DefaultDebounce
	}
	files, err := watcher.NewWatcher(cfg.ItemsPath, watcher.WithDebounceDuration(delay))
	if err != nil {
		return nil, err
	}
	w.files = files
	return w, nil
}

// Start begins watching the items file. Later calls return the first
// call's result.
func (w *BackgroundWorker) Start() error {
	w.startOnce.Do(func() {
		if w.State() == WorkerStopped || w.files == nil {
			return
		}
		if err := w.files.Start(); err != nil {
			w.startErr = err
			return
		}
		w.running = make(chan struct{})
		go w.watchLoop(w.running)
	})
	return w.startErr
}

// Stop halts the watcher and waits briefly for the watch loop to exit. It
// may be called more than once.
func (w *BackgroundWorker) Stop() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.state = WorkerStopped
	w.mu.Unlock()

	// Blocks a concurrent Start until it has finished.
	w.startOnce.Do(func() {})
	close(w.quit)
	if w.files != nil {
		w.files.Stop()
	}
	if w.running != nil {
		select {
		case <-w.running:
		case <-time.After(2 * time.Second):
		}
	}
}

// TriggerRefresh reloads the file now. While processing, the request is
// coalesced into one more pass.
func (w *BackgroundWorker) TriggerRefresh() {
	w.mu.Lock()
	idle := w.state == WorkerIdle
	if w.state == WorkerProcessing {
		w.dirty = true
	}
	w.mu.Unlock()

	if idle {
		go w.process()
	}
}

// GetSnapshot returns the latest snapshot, or nil before the first one.
func (w *BackgroundWorker) GetSnapshot() *DataSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

// State returns the current worker state.
func (w *BackgroundWorker) State() WorkerState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *BackgroundWorker) watchLoop(running chan struct{}) {
	defer close(running)
	changed := w.files.Changed()
	for {
		select {
		case <-w.quit:
			return
		case <-changed:
			w.process()
		}
	}
}

// process runs reload passes until no change arrived during the last one.
func (w *BackgroundWorker) process() {
	for {
		w.mu.Lock()
		if w.state != WorkerIdle {
			w.dirty = w.dirty || w.state == WorkerProcessing
			w.mu.Unlock()
			return
		}
		w.state, w.dirty = WorkerProcessing, false
		w.mu.Unlock()

		snapshot, werr := w.reload()

		w.mu.Lock()
		if w.state == WorkerStopped {
			w.mu.Unlock()
			return
		}
		w.lastError = werr
		if werr != nil {
			w.errorCount++
			werr.Retries = w.errorCount
		} else {
			w.errorCount = 0
		}
		if snapshot != nil {
			w.snapshot = snapshot
			w.lastHash = snapshot.DataHash
		}
		again := w.dirty
		w.state = WorkerIdle
		w.mu.Unlock()

		w.notify(snapshot, werr)
		if !again {
			return
		}
	}
}

func (w *BackgroundWorker) notify(snapshot *DataSnapshot, werr *WorkerError) {
	if werr != nil {
		log.Printf("reload: %v", werr)
	}
	if w.program == nil {
		return
	}
	switch {
	case werr != nil:
		w.program.Send(SnapshotErrorMsg{Err: werr, Recoverable: true})
	case snapshot != nil:
		w.program.Send(SnapshotReadyMsg{Snapshot: snapshot})
	}
}

// guarded runs one phase of a reload, turning errors and panics into a
// WorkerError for that phase.
func guarded(phase string, fn func() error) (werr *WorkerError) {
	defer func() {
		if r := recover(); r != nil {
			werr = &WorkerError{Phase: phase, Cause: fmt.Errorf("panic: %v\n%s", r, debug.Stack()), Time: time.Now()}
		}
	}()
	if err := fn(); err != nil {
		return &WorkerError{Phase: phase, Cause: err, Time: time.Now()}
	}
	return nil
}

// LastError returns the most recent error (nil if the last pass succeeded).
func (w *BackgroundWorker) LastError() *WorkerError {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastError
}

// reload reads the items file and builds a snapshot. Both results are nil
// when the content hash matches the last one.
func (w *BackgroundWorker) reload() (*DataSnapshot, *WorkerError) {
	if w.itemsPath == "" {
		return nil, nil
	}
	began := time.Now()

	var items []model.NavigationItem
	if werr := guarded("load", func() (err error) {
		items, err = loader.LoadItems(w.itemsPath)
		return err
	}); werr != nil {
		return nil, werr
	}

	hash := analysis.ComputeDataHash(items)
	if prev := w.LastHash(); prev != "" && prev == hash {
		log.Printf("reload: %s unchanged (hash=%s)", w.itemsPath, hashPrefix(hash))
		return nil, nil
	}

	snapshot := &DataSnapshot{Items: items, DataHash: hash}
	if werr := guarded("build", func() error {
		snapshot.Tree = navtree.Build(items)
		snapshot.Report = analysis.Diagnose(items)
		return nil
	}); werr != nil {
		return nil, werr
	}
	snapshot.LoadedAt = time.Now()

	log.Printf("reload: %d items in %v (hash=%s)", len(items), time.Since(began), hashPrefix(hash))
	return snapshot, nil
}

// WatcherChanged returns the watcher's change channel, or nil without a
// watcher.
func (w *BackgroundWorker) WatcherChanged() <-chan struct{} {
	if w.files == nil {
		return nil
	}
	return w.files.Changed()
}

// LastHash returns the content hash of the last built snapshot.
func (w *BackgroundWorker) LastHash() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastHash
}

// SetBaseline records hash as already loaded, so an unchanged file does
// not trigger a redundant snapshot after startup or after a local save.
func (w *BackgroundWorker) SetBaseline(hash string) {
	w.mu.Lock()
	w.lastHash = hash
	w.mu.Unlock()
}

func hashPrefix(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}

// ResetHash clears the stored hash so the next pass always rebuilds.
func (w *BackgroundWorker) ResetHash() {
	w.mu.Lock()
	w.lastHash = ""
	w.mu.Unlock()
}
