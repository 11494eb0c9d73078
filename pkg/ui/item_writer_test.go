package ui

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/navtree/pkg/loader"
	"github.com/vanderheijden86/navtree/pkg/model"
	"github.com/vanderheijden86/navtree/pkg/navtree"
	"github.com/vanderheijden86/navtree/pkg/store"
)

func openWriterStore(t *testing.T, items []model.NavigationItem) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "navtree.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.ReplaceAll(context.Background(), items); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	return st
}

func runWrite(t *testing.T, cmd func() any) WriteResultMsg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg, ok := cmd().(WriteResultMsg)
	if !ok {
		t.Fatalf("expected WriteResultMsg")
	}
	return msg
}

func findItem(items []model.NavigationItem, id string) (model.NavigationItem, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return model.NavigationItem{}, false
}

func TestItemWriterUnavailable(t *testing.T) {
	var nilWriter *ItemWriter
	if nilWriter.IsAvailable() {
		t.Error("nil writer should be unavailable")
	}
	w := NewItemWriter("", nil)
	items := sampleItems()
	tree := navtree.Build(items)

	cmds := map[string]func() any{
		"create": func() any { return w.Create(items, navItem("n1", "New", model.TypePage, "", 4))() },
		"delete": func() any { return w.Delete(items, tree, "p1")() },
		"move": func() any {
			return w.ApplyMove(items, tree, &navtree.MoveIntent{Node: mustNode(t, tree, "p1"), NewParentID: "f1"})()
		},
	}
	for name, cmd := range cmds {
		t.Run(name, func(t *testing.T) {
			msg := runWrite(t, cmd)
			if msg.Success || !errors.Is(msg.Error, ErrNoBackend) {
				t.Errorf("got %+v, want ErrNoBackend", msg)
			}
		})
	}
}

func TestItemWriterApplyMoveFileAndStore(t *testing.T) {
	ctx := context.Background()
	items := sampleItems()
	path := filepath.Join(t.TempDir(), "items.yaml")
	if err := loader.SaveItems(path, items); err != nil {
		t.Fatal(err)
	}
	st := openWriterStore(t, items)
	w := NewItemWriter(path, st)
	tree := navtree.Build(items)

	intent := &navtree.MoveIntent{Node: mustNode(t, tree, "p1"), NewParentID: "f1", NewOrder: 0}
	msg := runWrite(t, func() any { return w.ApplyMove(items, tree, intent)() })
	if !msg.Success || msg.Operation != WriteMove || msg.ItemID != "p1" {
		t.Fatalf("ApplyMove result = %+v", msg)
	}
	if msg.Changed == 0 {
		t.Error("expected patched records")
	}

	fromFile, err := loader.LoadItems(path)
	if err != nil {
		t.Fatal(err)
	}
	fromStore, err := st.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	wantOrders := map[string]struct {
		parent string
		order  int
	}{
		"p1": {"f1", 0}, "c1": {"f1", 1}, "f2": {"f1", 2},
		"f1": {"", 0}, "p2": {"", 1}, "e1": {"", 2},
	}
	for source, got := range map[string][]model.NavigationItem{"file": fromFile, "store": fromStore, "msg": msg.Items} {
		for id, want := range wantOrders {
			it, ok := findItem(got, id)
			if !ok {
				t.Errorf("%s: %s missing", source, id)
				continue
			}
			if it.Parent() != want.parent || it.Order != want.order {
				t.Errorf("%s: %s at (%q, %d), want (%q, %d)", source, id, it.Parent(), it.Order, want.parent, want.order)
			}
		}
	}

	// The input collection is untouched.
	if it, _ := findItem(items, "p1"); it.Parent() != "" || it.Order != 0 {
		t.Errorf("input mutated: %+v", it)
	}
}

func TestItemWriterApplyMoveNilIntent(t *testing.T) {
	w := NewItemWriter("items.json", nil)
	if cmd := w.ApplyMove(sampleItems(), navtree.Build(sampleItems()), nil); cmd != nil {
		t.Error("nil intent should produce no command")
	}
}

func TestItemWriterCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	items := sampleItems()
	st := openWriterStore(t, items)
	w := NewItemWriter(path, st)

	link := navItem("l1", "Docs", model.TypeLink, "f1", 2)
	msg := runWrite(t, func() any { return w.Create(items, link)() })
	if !msg.Success || len(msg.Items) != 8 {
		t.Fatalf("Create = %+v", msg)
	}
	got, err := st.Get(context.Background(), "l1")
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	if got.URL != link.URL || got.Parent() != "f1" {
		t.Errorf("stored link = %+v", got)
	}
	if len(items) != 7 {
		t.Error("input slice must not grow")
	}

	invalid := navItem("l2", "Broken", model.TypeLink, "", 4)
	invalid.URL = ""
	msg = runWrite(t, func() any { return w.Create(items, invalid)() })
	if msg.Success || msg.Error == nil {
		t.Errorf("link without url should fail, got %+v", msg)
	}
}

func TestItemWriterUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	items := sampleItems()
	w := NewItemWriter(path, nil)

	edited := items[2].Clone()
	edited.Title = "Installation"
	msg := runWrite(t, func() any { return w.Update(items, edited)() })
	if !msg.Success {
		t.Fatalf("Update failed: %v", msg.Error)
	}
	loaded, err := loader.LoadItems(path)
	if err != nil {
		t.Fatal(err)
	}
	if it, _ := findItem(loaded, "c1"); it.Title != "Installation" {
		t.Errorf("saved title = %q", it.Title)
	}

	unknown := navItem("zz", "Ghost", model.TypePage, "", 0)
	msg = runWrite(t, func() any { return w.Update(items, unknown)() })
	if msg.Success || msg.Error == nil {
		t.Errorf("updating unknown id should fail, got %+v", msg)
	}
}

func TestItemWriterDeleteSubtree(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "items.jsonl")
	items := sampleItems()
	st := openWriterStore(t, items)
	w := NewItemWriter(path, st)
	tree := navtree.Build(items)

	msg := runWrite(t, func() any { return w.Delete(items, tree, "f1")() })
	if !msg.Success || msg.Changed != 4 {
		t.Fatalf("Delete = %+v", msg)
	}
	if len(msg.Items) != 3 {
		t.Errorf("expected 3 remaining items, got %d", len(msg.Items))
	}
	for _, id := range []string{"f1", "c1", "f2", "g1"} {
		if _, err := st.Get(ctx, id); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("store still has %s (err=%v)", id, err)
		}
	}
	loaded, err := loader.LoadItems(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 3 {
		t.Errorf("file has %d items", len(loaded))
	}

	msg = runWrite(t, func() any { return w.Delete(items, tree, "missing")() })
	if msg.Success {
		t.Error("deleting an unknown id should fail")
	}
}

func TestWriteOperationString(t *testing.T) {
	tests := []struct {
		op   WriteOperation
		want string
	}{
		{WriteMove, "move"},
		{WriteCreate, "create"},
		{WriteUpdate, "update"},
		{WriteDelete, "delete"},
		{WriteOperation(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", int(tt.op), got, tt.want)
		}
	}
}
