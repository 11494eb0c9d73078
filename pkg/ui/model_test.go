package ui

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/navtree/pkg/analysis"
	"github.com/vanderheijden86/navtree/pkg/loader"
	"github.com/vanderheijden86/navtree/pkg/model"
)

func keyPress(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// send feeds msg to m and returns the updated model and command.
func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm, cmd
}

// press sends keys in order and returns the command of the last one.
func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		m, cmd = send(t, m, keyPress(k))
	}
	return m, cmd
}

// exec runs cmd and returns its message, failing when there is none.
func exec(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return cmd()
}

func newFileModel(t *testing.T) (Model, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "items.json")
	if err := loader.SaveItems(path, sampleItems()); err != nil {
		t.Fatal(err)
	}
	m := NewModel(sampleItems(), Options{AutoSelect: true, Writer: NewItemWriter(path, nil)})
	return m, path
}

func TestModelInitialSelection(t *testing.T) {
	m := NewModel(sampleItems(), Options{AutoSelect: true})
	if m.SelectedID() != "p1" {
		t.Fatalf("SelectedID = %q, want p1", m.SelectedID())
	}
	msg, ok := exec(t, m.Init()).(NodeSelectedMsg)
	if !ok || msg.Node.ID != "p1" {
		t.Errorf("Init message = %#v", msg)
	}

	bare := NewModel(sampleItems(), Options{})
	if bare.Init() != nil {
		t.Error("no selection means no initial message")
	}
	if bare.DetailMarkdown() != "_Nothing selected._" {
		t.Errorf("detail = %q", bare.DetailMarkdown())
	}
}

func TestModelNavigationEmitsSelection(t *testing.T) {
	m := NewModel(sampleItems(), Options{AutoSelect: true})

	m, cmd := press(t, m, "j")
	msg, ok := exec(t, cmd).(NodeSelectedMsg)
	if !ok || msg.Node.ID != "f1" {
		t.Fatalf("expected selection of f1, got %#v", msg)
	}
	detail := m.DetailMarkdown()
	for _, want := range []string{"# Guides", "**Children:** 2", "**Parent:** _root_", "**Position:** 2 of 4"} {
		if !strings.Contains(detail, want) {
			t.Errorf("detail missing %q:\n%s", want, detail)
		}
	}

	// Toggling a folder keeps the selection, so nothing is emitted.
	m, cmd = press(t, m, "enter")
	if cmd != nil {
		t.Error("toggle should not emit a selection")
	}
	if m.tree.NodeCount() != 4 {
		t.Errorf("expected collapsed f1, got %d rows", m.tree.NodeCount())
	}
}

func TestModelDetailShowsDraftAndLink(t *testing.T) {
	items := append(sampleItems(), navItem("l1", "API", model.TypeLink, "", 4))
	m := NewModel(items, Options{AutoSelect: true})

	m, _ = press(t, m, "G")
	if !strings.Contains(m.DetailMarkdown(), "**URL:** <https://example.com/l1>") {
		t.Errorf("link detail:\n%s", m.DetailMarkdown())
	}
	m, _ = press(t, m, "k", "k")
	if m.SelectedID() != "p2" || !strings.Contains(m.DetailMarkdown(), "no (draft)") {
		t.Errorf("draft detail for %q:\n%s", m.SelectedID(), m.DetailMarkdown())
	}
}

func TestModelDragWithoutBackend(t *testing.T) {
	m := NewModel(sampleItems(), Options{AutoSelect: true})

	m, _ = press(t, m, "m")
	if !m.IsDragging() || m.ActiveContext() != ContextDrag {
		t.Fatal("m should start a move")
	}
	m, cmd := press(t, m, "j", "enter")
	moved, ok := exec(t, cmd).(NodeMovedMsg)
	if !ok || moved.Intent.NewParentID != "f1" || moved.Intent.NewOrder != 0 {
		t.Fatalf("expected move into f1, got %#v", moved)
	}

	m, cmd = send(t, m, moved)
	result, ok := exec(t, cmd).(WriteResultMsg)
	if !ok || !errors.Is(result.Error, ErrNoBackend) {
		t.Fatalf("expected ErrNoBackend, got %#v", result)
	}
	m, _ = send(t, m, result)
	status, isErr := m.Status()
	if !isErr || !strings.Contains(status, "Could not move") {
		t.Errorf("status = %q (error=%v)", status, isErr)
	}
	if len(m.Items()) != 7 {
		t.Error("failed write must not change items")
	}
}

func TestModelDragPersistsMove(t *testing.T) {
	m, path := newFileModel(t)

	m, cmd := press(t, m, "m", "j", "enter")
	m, cmd = send(t, m, exec(t, cmd))
	m, _ = send(t, m, exec(t, cmd))

	status, isErr := m.Status()
	if isErr || !strings.Contains(status, "Moved p1") {
		t.Fatalf("status = %q (error=%v)", status, isErr)
	}
	if m.SelectedID() != "p1" {
		t.Errorf("moved item should stay selected, got %q", m.SelectedID())
	}
	if got := m.tree.Tree().ParentID("p1"); got != "f1" {
		t.Errorf("tree parent = %q", got)
	}

	saved, err := loader.LoadItems(path)
	if err != nil {
		t.Fatal(err)
	}
	if it, _ := findItem(saved, "p1"); it.Parent() != "f1" || it.Order != 0 {
		t.Errorf("saved p1 = %+v", it)
	}
}

func TestModelDragNoopAndCancel(t *testing.T) {
	m := NewModel(sampleItems(), Options{AutoSelect: true})

	m, cmd := press(t, m, "m", "enter")
	if cmd != nil {
		t.Error("dropping in place should not emit a move")
	}
	if status, _ := m.Status(); status != "Nothing moved" {
		t.Errorf("status = %q", status)
	}

	m, _ = press(t, m, "m", "esc")
	if m.IsDragging() {
		t.Error("esc should cancel the move")
	}
	if status, _ := m.Status(); status != "Move cancelled" {
		t.Errorf("status = %q", status)
	}
}

func TestModelDropIntoRejectsPage(t *testing.T) {
	m := NewModel(sampleItems(), Options{AutoSelect: true})

	// Lift f1; the row above the marker is p1, a page.
	m, cmd := press(t, m, "j", "m", ">")
	if cmd != nil {
		t.Error("drop into a page should not emit a move")
	}
	if _, isErr := m.Status(); !isErr {
		t.Error("expected an error status")
	}
}

func TestModelDeleteFlow(t *testing.T) {
	m, path := newFileModel(t)

	m, cmd := press(t, m, "j", "d")
	m, _ = send(t, m, exec(t, cmd))
	if m.ActiveContext() != ContextConfirm {
		t.Fatalf("context = %q, want confirm", m.ActiveContext())
	}

	m, cmd = press(t, m, "y")
	m, _ = send(t, m, exec(t, cmd))
	if status, _ := m.Status(); status != "Deleted 4 items" {
		t.Errorf("status = %q", status)
	}
	if len(m.Items()) != 3 {
		t.Errorf("items = %d", len(m.Items()))
	}
	saved, err := loader.LoadItems(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 3 {
		t.Errorf("saved items = %d", len(saved))
	}
}

func TestModelDeleteDeclined(t *testing.T) {
	m, _ := newFileModel(t)

	m, cmd := press(t, m, "d")
	m, _ = send(t, m, exec(t, cmd))
	m, cmd = press(t, m, "n")
	if cmd != nil || m.ActiveContext() != ContextTree {
		t.Errorf("declining should close the dialog, context %q", m.ActiveContext())
	}
	if len(m.Items()) != 7 {
		t.Error("nothing should be deleted")
	}
}

func TestModelCreateOpensPickerAndForm(t *testing.T) {
	m := NewModel(sampleItems(), Options{AutoSelect: true})

	m, _ = press(t, m, "j", "a")
	if m.ActiveContext() != ContextTypePicker {
		t.Fatalf("context = %q", m.ActiveContext())
	}
	m, cmd := press(t, m, "j", "enter")
	action, ok := exec(t, cmd).(NodeMenuActionMsg)
	if !ok || action.Action != ActionCreate || action.ItemType != model.TypeFolder || action.Node.ID != "f1" {
		t.Fatalf("menu action = %#v", action)
	}

	m, _ = send(t, m, action)
	if m.ActiveContext() != ContextForm {
		t.Fatalf("context = %q, want form", m.ActiveContext())
	}
	m, _ = press(t, m, "esc")
	if m.ActiveContext() != ContextTree {
		t.Errorf("esc should close the form, context %q", m.ActiveContext())
	}
	if status, _ := m.Status(); status != "Cancelled" {
		t.Errorf("status = %q", status)
	}
}

func TestModelWriteResultCreateSelectsItem(t *testing.T) {
	m := NewModel(sampleItems(), Options{AutoSelect: true})
	items := append(sampleItems(), navItem("n1", "Roadmap", model.TypePage, "f2", 1))

	m, cmd := send(t, m, WriteResultMsg{Operation: WriteCreate, ItemID: "n1", Items: items, Changed: 1, Success: true})
	if m.SelectedID() != "n1" {
		t.Errorf("SelectedID = %q", m.SelectedID())
	}
	if msg, ok := exec(t, cmd).(NodeSelectedMsg); !ok || msg.Node.ID != "n1" {
		t.Errorf("expected selection message, got %#v", msg)
	}
	if status, _ := m.Status(); status != "Created n1" {
		t.Errorf("status = %q", status)
	}
}

func TestModelSearch(t *testing.T) {
	m := NewModel(sampleItems(), Options{AutoSelect: true})

	m, _ = press(t, m, "C", "/")
	if m.ActiveContext() != ContextSearch {
		t.Fatalf("context = %q", m.ActiveContext())
	}
	m, _ = press(t, m, "TUN", "enter")
	if m.SelectedID() != "g1" {
		t.Errorf("search should select g1, got %q", m.SelectedID())
	}

	m, _ = press(t, m, "/", "zzz", "enter")
	status, isErr := m.Status()
	if !isErr || !strings.Contains(status, `No match for "zzz"`) {
		t.Errorf("status = %q", status)
	}
	if m.SelectedID() != "g1" {
		t.Errorf("failed search should keep the selection, got %q", m.SelectedID())
	}
}

func TestJumpToMatchWraps(t *testing.T) {
	m := NewModel(sampleItems(), Options{AutoSelect: true})

	// "e" matches Welcome, Guides, Advanced, Changelog and Empty.
	want := []string{"p1", "f1", "f2", "p2", "e1", "p1"}
	m.jumpToMatch("e", false)
	for i, id := range want {
		if m.SelectedID() != id {
			t.Fatalf("step %d: selected %q, want %q", i, m.SelectedID(), id)
		}
		m.jumpToMatch("e", true)
	}
}

func TestModelHelpOverlay(t *testing.T) {
	m := NewModel(sampleItems(), Options{AutoSelect: true})
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	m, _ = press(t, m, "?")
	if !m.HelpVisible() {
		t.Fatal("? should open help")
	}
	if view := m.View(); !strings.Contains(view, "Quick Reference") {
		t.Errorf("help view:\n%s", view)
	}
	m, _ = press(t, m, "?")
	if m.HelpVisible() {
		t.Error("? should close help")
	}
}

func TestModelDetailFocus(t *testing.T) {
	m := NewModel(sampleItems(), Options{AutoSelect: true})

	m, _ = press(t, m, "tab")
	if m.ActiveContext() != ContextDetail {
		t.Fatalf("context = %q", m.ActiveContext())
	}
	m, _ = press(t, m, "j")
	if m.SelectedID() != "p1" {
		t.Error("keys in the detail pane must not move the tree selection")
	}
	m, _ = press(t, m, "esc")
	if m.ActiveContext() != ContextTree {
		t.Errorf("context = %q", m.ActiveContext())
	}
}

func TestModelSnapshotMessages(t *testing.T) {
	m := NewModel(sampleItems(), Options{AutoSelect: true})
	m, _ = press(t, m, "j")

	items := sampleItems()[:2]
	snap := &DataSnapshot{Items: items, Report: analysis.Diagnose(items)}
	m, _ = send(t, m, SnapshotReadyMsg{Snapshot: snap})
	if len(m.Items()) != 2 || m.SelectedID() != "f1" {
		t.Errorf("after reload: %d items, selected %q", len(m.Items()), m.SelectedID())
	}
	if status, _ := m.Status(); !strings.HasPrefix(status, "Reloaded 2 items") {
		t.Errorf("status = %q", status)
	}

	m, _ = send(t, m, SnapshotErrorMsg{Err: errors.New("bad json"), Recoverable: true})
	status, isErr := m.Status()
	if !isErr || status != "Reload failed: bad json" {
		t.Errorf("status = %q (error=%v)", status, isErr)
	}
	if len(m.Items()) != 2 {
		t.Error("a failed reload keeps the last good items")
	}
}

func TestModelView(t *testing.T) {
	m := NewModel(sampleItems(), Options{AutoSelect: true, Title: "docs"})
	if m.View() != "Loading..." {
		t.Errorf("view before size = %q", m.View())
	}

	for _, width := range []int{80, 140} {
		m, _ = send(t, m, tea.WindowSizeMsg{Width: width, Height: 30})
		view := m.View()
		for _, want := range []string{"docs", "7 items", "Guides", "? help"} {
			if !strings.Contains(view, want) {
				t.Errorf("width %d: view missing %q", width, want)
			}
		}
	}

	m, _ = press(t, m, "m")
	if !strings.Contains(m.View(), "MOVE") {
		t.Error("header should show move mode")
	}
}
