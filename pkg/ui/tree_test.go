package ui

import (
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	json "github.com/goccy/go-json"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/navtree/pkg/model"
	"github.com/vanderheijden86/navtree/pkg/navtree"
)

func newTestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(io.Discard))
}

func navItem(id, title string, typ model.ItemType, parent string, order int) model.NavigationItem {
	it := model.NavigationItem{ID: id, Title: title, Type: typ, Order: order, Published: true}
	it.SetParent(parent)
	if typ == model.TypeLink {
		it.URL = "https://example.com/" + id
	}
	return it
}

// sampleItems renders (all expanded) as:
//
//	p1 Welcome
//	f1 Guides
//	├── c1 Install
//	└── f2 Advanced
//	    └── g1 Tuning
//	p2 Changelog (draft)
//	e1 Empty
func sampleItems() []model.NavigationItem {
	p2 := navItem("p2", "Changelog", model.TypePage, "", 2)
	p2.Published = false
	return []model.NavigationItem{
		navItem("p1", "Welcome", model.TypePage, "", 0),
		navItem("f1", "Guides", model.TypeFolder, "", 1),
		navItem("c1", "Install", model.TypePage, "f1", 0),
		navItem("f2", "Advanced", model.TypeFolder, "f1", 1),
		navItem("g1", "Tuning", model.TypePage, "f2", 0),
		p2,
		navItem("e1", "Empty", model.TypeFolder, "", 3),
	}
}

func newSampleTree(t *testing.T) TreeModel {
	t.Helper()
	tree := NewTreeModel(newTestTheme())
	tree.Build(sampleItems())
	return tree
}

func mustNode(t *testing.T, tree *navtree.Tree, id string) *navtree.Node {
	t.Helper()
	n, ok := tree.Node(id)
	if !ok {
		t.Fatalf("node %s not in tree", id)
	}
	return n
}

func rowIDs(rows []navtree.FlatRow) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.Node.ID
	}
	return ids
}

func assertRows(t *testing.T, tree *TreeModel, want ...string) {
	t.Helper()
	if got := rowIDs(tree.Rows()); !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
}

func TestTreeBuildEmpty(t *testing.T) {
	tree := NewTreeModel(newTestTheme())
	tree.Build(nil)

	if !tree.IsBuilt() {
		t.Error("expected tree to be marked as built")
	}
	if tree.RootCount() != 0 || tree.NodeCount() != 0 {
		t.Errorf("expected empty tree, got %d roots %d rows", tree.RootCount(), tree.NodeCount())
	}
	if tree.SelectedNode() != nil {
		t.Error("expected no selection")
	}
	if !strings.Contains(tree.View(), "No items") {
		t.Errorf("expected empty state, got %q", tree.View())
	}
}

func TestTreeBuildRows(t *testing.T) {
	tree := newSampleTree(t)

	assertRows(t, &tree, "p1", "f1", "c1", "f2", "g1", "p2", "e1")
	if tree.RootCount() != 4 {
		t.Errorf("RootCount = %d, want 4", tree.RootCount())
	}
	if tree.SelectedID() != "" {
		t.Errorf("nothing should be selected before a request, got %q", tree.SelectedID())
	}
}

func TestTreeAutoSelectFirst(t *testing.T) {
	tree := newSampleTree(t)

	if !tree.AutoSelectFirst() {
		t.Fatal("expected AutoSelectFirst to select a row")
	}
	if tree.SelectedID() != "p1" {
		t.Errorf("SelectedID = %q, want p1", tree.SelectedID())
	}
	if !tree.Rows()[0].Selected {
		t.Error("first row should carry the Selected flag")
	}

	tree.SelectByID("c1")
	if tree.AutoSelectFirst() {
		t.Error("AutoSelectFirst must not override a resolvable selection")
	}
	if tree.SelectedID() != "c1" {
		t.Errorf("SelectedID = %q, want c1", tree.SelectedID())
	}
}

func TestTreeNavigation(t *testing.T) {
	tree := newSampleTree(t)
	tree.SetSize(80, 4)

	tree.MoveUp()
	if got := tree.SelectedID(); got != "p1" {
		t.Fatalf("MoveUp without selection should select first row, got %q", got)
	}
	tree.MoveDown()
	if got := tree.SelectedID(); got != "f1" {
		t.Errorf("after MoveDown got %q, want f1", got)
	}
	tree.JumpToBottom()
	if got := tree.SelectedID(); got != "e1" {
		t.Errorf("after JumpToBottom got %q, want e1", got)
	}
	tree.MoveDown()
	if got := tree.SelectedID(); got != "e1" {
		t.Errorf("MoveDown at bottom should stay, got %q", got)
	}
	tree.JumpToTop()
	tree.PageDown()
	if got := tree.SelectedID(); got != "c1" {
		t.Errorf("PageDown by 2 from p1 got %q, want c1", got)
	}
	tree.PageUp()
	if got := tree.SelectedID(); got != "p1" {
		t.Errorf("PageUp got %q, want p1", got)
	}
}

func TestTreeExpandCollapse(t *testing.T) {
	tree := newSampleTree(t)

	tree.SelectByID("f1")
	tree.ToggleExpand()
	assertRows(t, &tree, "p1", "f1", "p2", "e1")
	tree.ToggleExpand()
	assertRows(t, &tree, "p1", "f1", "c1", "f2", "g1", "p2", "e1")

	tree.CollapseAll()
	assertRows(t, &tree, "p1", "f1", "p2", "e1")
	tree.ExpandAll()
	assertRows(t, &tree, "p1", "f1", "c1", "f2", "g1", "p2", "e1")

	// Leaves and empty folders do not toggle.
	tree.SelectByID("e1")
	tree.ToggleExpand()
	assertRows(t, &tree, "p1", "f1", "c1", "f2", "g1", "p2", "e1")
}

func TestTreeCollapseMovesHiddenSelectionToAncestor(t *testing.T) {
	tree := newSampleTree(t)
	tree.SelectByID("g1")

	tree.CollapseAll()
	if got := tree.SelectedID(); got != "f1" {
		t.Errorf("selection should move to nearest visible ancestor, got %q", got)
	}
}

func TestTreeExpandOrMoveToChild(t *testing.T) {
	tree := newSampleTree(t)
	tree.SelectByID("f1")

	tree.CollapseOrJumpToParent() // collapse
	assertRows(t, &tree, "p1", "f1", "p2", "e1")

	tree.CollapseOrJumpToParent() // root has no parent row
	if got := tree.SelectedID(); got != "f1" {
		t.Errorf("selection = %q, want f1", got)
	}

	tree.ExpandOrMoveToChild() // expand
	if tree.SelectedID() != "f1" || tree.NodeCount() != 7 {
		t.Errorf("expected f1 expanded in place, got %q with %d rows", tree.SelectedID(), tree.NodeCount())
	}
	tree.ExpandOrMoveToChild() // step in
	if got := tree.SelectedID(); got != "c1" {
		t.Errorf("selection = %q, want c1", got)
	}
	tree.CollapseOrJumpToParent() // leaf jumps to parent
	if got := tree.SelectedID(); got != "f1" {
		t.Errorf("selection = %q, want f1", got)
	}
}

func TestTreeSelectByIDExpandsAncestors(t *testing.T) {
	tree := newSampleTree(t)
	tree.CollapseAll()

	if !tree.SelectByID("g1") {
		t.Fatal("SelectByID(g1) = false")
	}
	if tree.SelectedID() != "g1" {
		t.Errorf("SelectedID = %q", tree.SelectedID())
	}
	assertRows(t, &tree, "p1", "f1", "c1", "f2", "g1", "p2", "e1")

	if tree.SelectByID("missing") {
		t.Error("SelectByID should fail for unknown ids")
	}
}

func TestTreeDefaultExpansion(t *testing.T) {
	tree := newSampleTree(t)

	tree.SetDefaultExpansion(navtree.ExpandNone)
	assertRows(t, &tree, "p1", "f1", "p2", "e1")

	tree.SetDefaultExpansion(navtree.ExpandToDepth(1))
	assertRows(t, &tree, "p1", "f1", "c1", "f2", "p2", "e1")

	tree.SetDefaultExpansion(nil)
	assertRows(t, &tree, "p1", "f1", "c1", "f2", "g1", "p2", "e1")
}

func TestTreeRebuildKeepsSelection(t *testing.T) {
	tree := newSampleTree(t)
	tree.SelectByID("c1")

	items := sampleItems()
	items[2].Title = "Install v2"
	tree.Build(items)
	if n := tree.SelectedNode(); n == nil || n.ID != "c1" || n.Label != "Install v2" {
		t.Errorf("selection after rebuild = %+v", n)
	}

	tree.Build(navtree.RemoveItems(items, []string{"c1"}))
	if tree.SelectedID() != "" {
		t.Errorf("selection of a removed id must clear, got %q", tree.SelectedID())
	}
}

func TestTreeDragToTop(t *testing.T) {
	tree := newSampleTree(t)
	tree.SelectByID("p2")

	if !tree.StartDrag() {
		t.Fatal("StartDrag failed")
	}
	if !tree.IsDragging() || tree.DraggedID() != "p2" {
		t.Fatalf("drag state = %v %q", tree.IsDragging(), tree.DraggedID())
	}
	assertRows(t, &tree, "p1", "f1", "c1", "f2", "g1", "e1")
	if tree.DropGap() != 5 {
		t.Errorf("marker should start where the node was lifted, got gap %d", tree.DropGap())
	}

	tree.MoveGap(-10)
	intent := tree.Drop()
	if intent == nil || intent.Node.ID != "p2" || intent.NewParentID != "" || intent.NewOrder != 0 {
		t.Fatalf("Drop = %+v, want p2 -> root 0", intent)
	}
	if tree.IsDragging() {
		t.Error("drag should end after Drop")
	}
	if tree.NodeCount() != 7 || tree.SelectedID() != "p2" {
		t.Errorf("after drop: %d rows, selected %q", tree.NodeCount(), tree.SelectedID())
	}
}

func TestTreeDragBelowOpenFolder(t *testing.T) {
	tree := newSampleTree(t)
	tree.SelectByID("p1")
	tree.StartDrag()
	tree.MoveGap(1) // between f1 and c1

	intent := tree.Drop()
	if intent == nil || intent.NewParentID != "f1" || intent.NewOrder != 0 {
		t.Fatalf("Drop = %+v, want p1 -> f1 0", intent)
	}
}

func TestTreeDragHidesOwnSubtree(t *testing.T) {
	tree := newSampleTree(t)
	tree.SelectByID("f1")
	tree.StartDrag()

	assertRows(t, &tree, "p1", "p2", "e1")

	tree.CancelDrag()
	if tree.IsDragging() {
		t.Error("CancelDrag should end the gesture")
	}
	assertRows(t, &tree, "p1", "f1", "c1", "f2", "g1", "p2", "e1")
	if tree.SelectedID() != "f1" {
		t.Errorf("selection after cancel = %q", tree.SelectedID())
	}
}

func TestTreeDropNoop(t *testing.T) {
	tree := newSampleTree(t)
	tree.SelectByID("c1")
	tree.StartDrag()

	// Lifted from between f1 and f2: resolves to (f1, 0), where c1 already is.
	if intent := tree.Drop(); intent != nil {
		t.Errorf("expected no-op drop, got %+v", intent)
	}
}

func TestTreeDropInto(t *testing.T) {
	tree := newSampleTree(t)
	tree.SelectByID("p1")
	tree.StartDrag()
	tree.MoveGap(100) // below e1

	intent := tree.DropInto()
	if intent == nil || intent.NewParentID != "e1" || intent.NewOrder != 0 {
		t.Fatalf("DropInto = %+v, want p1 -> e1 0", intent)
	}

	tree.SelectByID("e1")
	tree.StartDrag()
	tree.MoveGap(100) // below p2, a page
	if intent := tree.DropInto(); intent != nil {
		t.Errorf("DropInto a page = %+v, want nil", intent)
	}
	if tree.IsDragging() {
		t.Error("DropInto should end the gesture even when rejected")
	}
}

func TestTreeViewRendering(t *testing.T) {
	tree := newSampleTree(t)
	tree.SetSize(80, 20)
	tree.SelectByID("c1")

	view := tree.View()
	for _, want := range []string{"Welcome", "Guides", "├── ", "    └── ", "(draft)", "▾", "◦"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	tree.StartDrag()
	if !strings.Contains(tree.View(), "drop: Install") {
		t.Errorf("drag view missing marker:\n%s", tree.View())
	}
}

func TestTreeVisibleRange(t *testing.T) {
	tree := newSampleTree(t)
	tree.SetSize(80, 3)

	tree.JumpToBottom()
	start, end := tree.visibleRange()
	if start != 4 || end != 7 {
		t.Errorf("visibleRange = [%d,%d), want [4,7)", start, end)
	}
	tree.JumpToTop()
	start, end = tree.visibleRange()
	if start != 0 || end != 3 {
		t.Errorf("visibleRange = [%d,%d), want [0,3)", start, end)
	}
}

func TestTruncateTitle(t *testing.T) {
	tests := []struct {
		in    string
		width int
	}{
		{"short", 10},
		{"a very long title indeed", 8},
		{"日本語のタイトル", 6},
		{"x", 1},
	}
	for _, tt := range tests {
		got := truncateTitle(tt.in, tt.width)
		if w := runewidth.StringWidth(got); w > tt.width {
			t.Errorf("truncateTitle(%q, %d) = %q (width %d)", tt.in, tt.width, got, w)
		}
		if runewidth.StringWidth(tt.in) <= tt.width && got != tt.in {
			t.Errorf("truncateTitle(%q, %d) changed a fitting title to %q", tt.in, tt.width, got)
		}
	}
}

func TestTreeStatePersistence(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), ".navtree", "tree-state.json")

	tree := NewTreeModel(newTestTheme())
	tree.SetStatePath(statePath)
	tree.Build(sampleItems())
	tree.SelectByID("f2")
	tree.ToggleExpand()

	data, err := os.ReadFile(statePath)
	if err != nil {
		t.Fatalf("state file not written: %v", err)
	}
	var state TreeState
	if err := json.Unmarshal(data, &state); err != nil {
		t.Fatalf("invalid state file: %v", err)
	}
	if state.Version != TreeStateVersion {
		t.Errorf("Version = %d", state.Version)
	}
	if open, ok := state.Expanded["f2"]; !ok || open {
		t.Errorf("expected f2 stored as collapsed, got %v (ok=%v)", open, ok)
	}

	restored := NewTreeModel(newTestTheme())
	restored.SetStatePath(statePath)
	restored.Build(sampleItems())
	assertRows(t, &restored, "p1", "f1", "c1", "f2", "p2", "e1")
}

func TestTreeLoadStateCorrupted(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "tree-state.json")
	if err := os.WriteFile(statePath, []byte("not valid json {"), 0o644); err != nil {
		t.Fatal(err)
	}

	tree := NewTreeModel(newTestTheme())
	tree.SetStatePath(statePath)
	tree.Build(sampleItems())

	if tree.NodeCount() != 7 {
		t.Errorf("corrupted state should fall back to defaults, got %d rows", tree.NodeCount())
	}
}

func TestDefaultTreeState(t *testing.T) {
	s := DefaultTreeState()
	if s.Version != TreeStateVersion || s.Expanded == nil || len(s.Expanded) != 0 {
		t.Errorf("DefaultTreeState = %+v", s)
	}
}
