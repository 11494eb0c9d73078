package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/navtree/pkg/loader"
	"github.com/vanderheijden86/navtree/pkg/model"
	"github.com/vanderheijden86/navtree/pkg/navtree"
	"github.com/vanderheijden86/navtree/pkg/store"
)

// WriteOperation identifies the mutation a WriteResultMsg reports on.
type WriteOperation int

const (
	WriteMove WriteOperation = iota
	WriteCreate
	WriteUpdate
	WriteDelete
)

func (op WriteOperation) String() string {
	switch op {
	case WriteMove:
		return "move"
	case WriteCreate:
		return "create"
	case WriteUpdate:
		return "update"
	case WriteDelete:
		return "delete"
	}
	return "unknown"
}

// WriteResultMsg is returned after a mutation was persisted (or failed).
// Items is the full collection after the change.
type WriteResultMsg struct {
	Operation WriteOperation
	ItemID    string
	Items     []model.NavigationItem
	Changed   int // Records touched
	Success   bool
	Error     error
}

// ErrNoBackend is reported when neither an items file nor a store is set.
var ErrNoBackend = errors.New("no items file or database configured; changes cannot be saved")

// writeTimeout bounds one store transaction.
const writeTimeout = 10 * time.Second

// ItemWriter persists UI mutations to the items file, the SQLite store, or
// both. Every method computes the new collection first and returns a tea.Cmd
// that writes it off the UI goroutine.
type ItemWriter struct {
	path  string
	store *store.Store
}

// NewItemWriter creates a writer. Either backend may be empty.
func NewItemWriter(path string, st *store.Store) *ItemWriter {
	return &ItemWriter{path: path, store: st}
}

// IsAvailable reports whether at least one backend is configured.
func (w *ItemWriter) IsAvailable() bool {
	return w != nil && (w.path != "" || w.store != nil)
}

// Path returns the items file path, if any.
func (w *ItemWriter) Path() string {
	return w.path
}

// ApplyMove persists the plan for intent.
func (w *ItemWriter) ApplyMove(items []model.NavigationItem, tree *navtree.Tree, intent *navtree.MoveIntent) tea.Cmd {
	if intent == nil || intent.Node == nil {
		return nil
	}
	id := intent.Node.ID
	if !w.IsAvailable() {
		return w.unavailableCmd(WriteMove, id)
	}
	plan := tree.PlanMove(*intent)
	next := navtree.ApplyPatches(items, plan)
	return w.run(WriteMove, id, next, len(plan), func(ctx context.Context, st *store.Store) error {
		return st.ApplyPlan(ctx, plan)
	})
}

// Create appends item.
func (w *ItemWriter) Create(items []model.NavigationItem, item model.NavigationItem) tea.Cmd {
	if !w.IsAvailable() {
		return w.unavailableCmd(WriteCreate, item.ID)
	}
	if err := item.Validate(); err != nil {
		return w.failCmd(WriteCreate, item.ID, err)
	}
	next := append(model.CloneItems(items), item.Clone())
	return w.run(WriteCreate, item.ID, next, 1, func(ctx context.Context, st *store.Store) error {
		return st.Upsert(ctx, item)
	})
}

// Update replaces the item with the same id.
func (w *ItemWriter) Update(items []model.NavigationItem, item model.NavigationItem) tea.Cmd {
	if !w.IsAvailable() {
		return w.unavailableCmd(WriteUpdate, item.ID)
	}
	if err := item.Validate(); err != nil {
		return w.failCmd(WriteUpdate, item.ID, err)
	}
	next := model.CloneItems(items)
	found := false
	for i := range next {
		if next[i].ID == item.ID {
			next[i] = item.Clone()
			found = true
			break
		}
	}
	if !found {
		return w.failCmd(WriteUpdate, item.ID, fmt.Errorf("item %s not found", item.ID))
	}
	return w.run(WriteUpdate, item.ID, next, 1, func(ctx context.Context, st *store.Store) error {
		return st.Upsert(ctx, item)
	})
}

// Delete removes id and its whole subtree.
func (w *ItemWriter) Delete(items []model.NavigationItem, tree *navtree.Tree, id string) tea.Cmd {
	if !w.IsAvailable() {
		return w.unavailableCmd(WriteDelete, id)
	}
	ids := tree.Subtree(id)
	if len(ids) == 0 {
		return w.failCmd(WriteDelete, id, fmt.Errorf("item %s not found", id))
	}
	next := navtree.RemoveItems(items, ids)
	return w.run(WriteDelete, id, next, len(ids), func(ctx context.Context, st *store.Store) error {
		_, err := st.DeleteSubtree(ctx, id)
		return err
	})
}

// run writes next to the file and applies storeFn to the store.
func (w *ItemWriter) run(op WriteOperation, id string, next []model.NavigationItem, changed int,
	storeFn func(context.Context, *store.Store) error) tea.Cmd {
	path, st := w.path, w.store
	return func() tea.Msg {
		if st != nil {
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			defer cancel()
			if err := storeFn(ctx, st); err != nil {
				return WriteResultMsg{Operation: op, ItemID: id, Error: fmt.Errorf("%s %s in database: %w", op, id, err)}
			}
		}
		if path != "" {
			if err := loader.SaveItems(path, next); err != nil {
				return WriteResultMsg{Operation: op, ItemID: id, Error: fmt.Errorf("%s %s: %w", op, id, err)}
			}
		}
		return WriteResultMsg{Operation: op, ItemID: id, Items: next, Changed: changed, Success: true}
	}
}

func (w *ItemWriter) failCmd(op WriteOperation, id string, err error) tea.Cmd {
	return func() tea.Msg {
		return WriteResultMsg{Operation: op, ItemID: id, Error: err}
	}
}

func (w *ItemWriter) unavailableCmd(op WriteOperation, id string) tea.Cmd {
	return w.failCmd(op, id, ErrNoBackend)
}
