// tree.go - Navigation tree pane with expand/collapse and keyboard drag
package ui

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/navtree/pkg/model"
	"github.com/vanderheijden86/navtree/pkg/navtree"
)

// TreeState is the persisted expand/collapse state of the tree pane, saved
// to .navtree/tree-state.json.
//
// File format (JSON):
//
//	{
//	  "version": 1,
//	  "expanded": {
//	    "docs": true,   // explicitly expanded
//	    "api": false    // explicitly collapsed
//	  }
//	}
//
// Only explicit user changes are stored; other folders follow the default
// expansion policy. A missing or corrupted file means defaults.
type TreeState struct {
	Version  int             `json:"version"`
	Expanded map[string]bool `json:"expanded"`
}

// TreeStateVersion is the current schema version for tree persistence.
const TreeStateVersion = 1

// DefaultTreeState returns an empty state at the current version.
func DefaultTreeState() *TreeState {
	return &TreeState{
		Version:  TreeStateVersion,
		Expanded: make(map[string]bool),
	}
}

// dragState tracks a keyboard drag gesture. Gap indexes the gaps of the
// rows currently shown, which exclude the dragged subtree.
type dragState struct {
	active bool
	nodeID string
	gap    int
}

// TreeModel manages the navigation tree pane.
type TreeModel struct {
	tree       *navtree.Tree
	rows       []navtree.FlatRow // Visible rows, pre-order
	cursor     int               // Index into rows, -1 when nothing is selected
	selectedID string

	expanded   map[string]bool // Explicit per-folder overrides
	defaultExp navtree.Expansion

	drag dragState

	theme          Theme
	width          int
	height         int
	viewportOffset int

	built       bool
	statePath   string
	stateLoaded bool
}

// NewTreeModel creates an empty tree model.
func NewTreeModel(theme Theme) TreeModel {
	return TreeModel{
		tree:       navtree.Build(nil),
		cursor:     -1,
		expanded:   make(map[string]bool),
		defaultExp: navtree.ExpandAll,
		theme:      theme,
	}
}

// SetStatePath enables persistence of expand/collapse state. An empty path
// disables it.
func (t *TreeModel) SetStatePath(path string) {
	t.statePath = path
}

// SetDefaultExpansion sets the policy for folders without an explicit state.
func (t *TreeModel) SetDefaultExpansion(exp navtree.Expansion) {
	if exp == nil {
		exp = navtree.ExpandAll
	}
	t.defaultExp = exp
	if t.built {
		t.rebuildRows()
	}
}

// SetSize updates the available dimensions for the tree view.
func (t *TreeModel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.ensureVisible()
}

// Build rebuilds the tree from items, keeping the selection when its id
// still exists. A drag in progress is cancelled if its node disappeared.
func (t *TreeModel) Build(items []model.NavigationItem) {
	t.tree = navtree.Build(items)
	if !t.stateLoaded {
		t.loadState()
		t.stateLoaded = true
	}
	if t.drag.active {
		if _, ok := t.tree.Node(t.drag.nodeID); !ok {
			t.drag = dragState{}
		}
	}
	if _, ok := t.tree.Node(t.selectedID); !ok {
		t.selectedID = ""
	}
	t.built = true
	t.rebuildRows()
}

// Tree returns the current tree.
func (t *TreeModel) Tree() *navtree.Tree {
	return t.tree
}

// Rows returns the rows currently shown.
func (t *TreeModel) Rows() []navtree.FlatRow {
	return t.rows
}

// expansion combines the explicit overrides with the default policy.
func (t *TreeModel) expansion() navtree.Expansion {
	return navtree.ExpandedSet{IDs: t.expanded, Default: t.defaultExp}
}

func (t *TreeModel) isExpanded(n *navtree.Node) bool {
	return t.expansion().IsExpanded(n, t.tree.Depth(n.ID))
}

// rebuildRows reflattens the tree and re-resolves the cursor. A selection
// hidden by a collapsed ancestor moves to the nearest visible ancestor.
func (t *TreeModel) rebuildRows() {
	opts := navtree.FlattenOptions{SelectedID: t.selectedID}
	if t.drag.active {
		opts.HiddenSubtreeRootID = t.drag.nodeID
	}
	t.rows = navtree.Flatten(t.tree.Roots(), t.expansion(), opts)

	t.cursor = navtree.IndexOf(t.rows, t.selectedID)
	if t.cursor < 0 && t.selectedID != "" && !t.drag.active {
		ancestors := t.tree.Ancestors(t.selectedID)
		for i := len(ancestors) - 1; i >= 0; i-- {
			if idx := navtree.IndexOf(t.rows, ancestors[i]); idx >= 0 {
				t.selectIndex(idx)
				break
			}
		}
	}
	if t.drag.active {
		t.drag.gap = clamp(t.drag.gap, 0, len(t.rows))
	}
	t.ensureVisible()
}

// selectIndex moves the cursor to rows[i] and updates the row flags.
func (t *TreeModel) selectIndex(i int) {
	if i < 0 || i >= len(t.rows) {
		return
	}
	t.cursor = i
	t.selectedID = t.rows[i].Node.ID
	for k := range t.rows {
		t.rows[k].Selected = k == i
	}
	t.ensureVisible()
}

// AutoSelectFirst selects the first row when the current selection does not
// resolve. It reports whether the selection changed.
func (t *TreeModel) AutoSelectFirst() bool {
	if t.cursor >= 0 || len(t.rows) == 0 || t.drag.active {
		return false
	}
	t.selectIndex(0)
	return true
}

// SelectedNode returns the selected node, or nil.
func (t *TreeModel) SelectedNode() *navtree.Node {
	if t.cursor >= 0 && t.cursor < len(t.rows) {
		return t.rows[t.cursor].Node
	}
	return nil
}

// SelectedID returns the selected id, or "".
func (t *TreeModel) SelectedID() string {
	if n := t.SelectedNode(); n != nil {
		return n.ID
	}
	return ""
}

// SelectByID selects the node with the given id, expanding its ancestors
// so it becomes visible. Returns false for unknown ids.
func (t *TreeModel) SelectByID(id string) bool {
	if _, ok := t.tree.Node(id); !ok {
		return false
	}
	changed := false
	for _, a := range t.tree.Ancestors(id) {
		n, _ := t.tree.Node(a)
		if !t.isExpanded(n) {
			t.expanded[a] = true
			changed = true
		}
	}
	t.selectedID = id
	t.rebuildRows()
	if changed {
		t.saveState()
	}
	return t.cursor >= 0
}

// MoveDown moves the cursor down.
func (t *TreeModel) MoveDown() {
	if t.cursor < len(t.rows)-1 {
		t.selectIndex(t.cursor + 1)
	}
}

// MoveUp moves the cursor up.
func (t *TreeModel) MoveUp() {
	switch {
	case t.cursor > 0:
		t.selectIndex(t.cursor - 1)
	case t.cursor < 0 && len(t.rows) > 0:
		t.selectIndex(0)
	}
}

// JumpToTop moves the cursor to the first row.
func (t *TreeModel) JumpToTop() {
	t.selectIndex(0)
}

// JumpToBottom moves the cursor to the last row.
func (t *TreeModel) JumpToBottom() {
	t.selectIndex(len(t.rows) - 1)
}

func (t *TreeModel) pageSize() int {
	if p := t.height / 2; p >= 1 {
		return p
	}
	return 5
}

// PageDown moves the cursor down by half a viewport.
func (t *TreeModel) PageDown() {
	if len(t.rows) == 0 {
		return
	}
	t.selectIndex(clamp(t.cursor+t.pageSize(), 0, len(t.rows)-1))
}

// PageUp moves the cursor up by half a viewport.
func (t *TreeModel) PageUp() {
	if len(t.rows) == 0 {
		return
	}
	t.selectIndex(clamp(t.cursor-t.pageSize(), 0, len(t.rows)-1))
}

// ToggleExpand expands or collapses the selected folder.
func (t *TreeModel) ToggleExpand() {
	n := t.SelectedNode()
	if n == nil || len(n.Children()) == 0 {
		return
	}
	t.setExpanded(n, !t.isExpanded(n))
}

func (t *TreeModel) setExpanded(n *navtree.Node, open bool) {
	t.expanded[n.ID] = open
	t.rebuildRows()
	t.saveState()
}

// JumpToParent moves the cursor to the selected node's parent.
func (t *TreeModel) JumpToParent() {
	n := t.SelectedNode()
	if n == nil {
		return
	}
	if idx := navtree.IndexOf(t.rows, t.tree.ParentID(n.ID)); idx >= 0 {
		t.selectIndex(idx)
	}
}

// ExpandOrMoveToChild handles → / l: expand a collapsed folder, or step
// into an expanded one.
func (t *TreeModel) ExpandOrMoveToChild() {
	n := t.SelectedNode()
	if n == nil || len(n.Children()) == 0 {
		return
	}
	if !t.isExpanded(n) {
		t.setExpanded(n, true)
		return
	}
	if idx := navtree.IndexOf(t.rows, n.Children()[0].ID); idx >= 0 {
		t.selectIndex(idx)
	}
}

// CollapseOrJumpToParent handles ← / h: collapse an expanded folder, or
// jump to the parent.
func (t *TreeModel) CollapseOrJumpToParent() {
	n := t.SelectedNode()
	if n == nil {
		return
	}
	if len(n.Children()) > 0 && t.isExpanded(n) {
		t.setExpanded(n, false)
		return
	}
	t.JumpToParent()
}

// ExpandAll expands every folder.
func (t *TreeModel) ExpandAll() {
	t.setAllExpanded(true)
}

// CollapseAll collapses every folder.
func (t *TreeModel) CollapseAll() {
	t.setAllExpanded(false)
}

func (t *TreeModel) setAllExpanded(open bool) {
	t.tree.Walk(func(n *navtree.Node, _ int) bool {
		if n.IsFolder() {
			t.expanded[n.ID] = open
		}
		return true
	})
	t.rebuildRows()
	t.saveState()
}

// StartDrag picks up the selected node. The drop marker starts in the gap
// the node was lifted from.
func (t *TreeModel) StartDrag() bool {
	n := t.SelectedNode()
	if n == nil || t.drag.active {
		return false
	}
	t.drag = dragState{active: true, nodeID: n.ID, gap: t.cursor}
	t.rebuildRows()
	return true
}

// IsDragging reports whether a drag gesture is in progress.
func (t *TreeModel) IsDragging() bool {
	return t.drag.active
}

// DraggedID returns the id being dragged, or "".
func (t *TreeModel) DraggedID() string {
	if !t.drag.active {
		return ""
	}
	return t.drag.nodeID
}

// DropGap returns the gap the drop marker sits in.
func (t *TreeModel) DropGap() int {
	return t.drag.gap
}

// MoveGap shifts the drop marker by delta gaps.
func (t *TreeModel) MoveGap(delta int) {
	if !t.drag.active {
		return
	}
	t.drag.gap = clamp(t.drag.gap+delta, 0, len(t.rows))
	t.ensureVisible()
}

// Drop ends the gesture at the current gap and returns the resolved move,
// or nil when the drop changes nothing or is not allowed.
func (t *TreeModel) Drop() *navtree.MoveIntent {
	if !t.drag.active {
		return nil
	}
	intent := t.tree.ResolveDrop(t.rows, t.drag.nodeID, t.drag.gap)
	t.endDrag()
	return intent
}

// DropInto ends the gesture by appending the node to the folder directly
// above the marker. Returns nil if that row is not a folder.
func (t *TreeModel) DropInto() *navtree.MoveIntent {
	if !t.drag.active {
		return nil
	}
	var intent *navtree.MoveIntent
	if g := t.drag.gap; g > 0 && g <= len(t.rows) {
		intent = t.tree.ResolveDropInto(t.drag.nodeID, t.rows[g-1].Node.ID)
	}
	t.endDrag()
	return intent
}

// CancelDrag abandons the gesture.
func (t *TreeModel) CancelDrag() {
	if t.drag.active {
		t.endDrag()
	}
}

func (t *TreeModel) endDrag() {
	t.drag = dragState{}
	t.rebuildRows()
}

// ensureVisible scrolls so the cursor (or drop marker) stays on screen.
func (t *TreeModel) ensureVisible() {
	h := t.visibleCount()
	focus := t.cursor
	if t.drag.active {
		focus = t.drag.gap
	}
	if focus < 0 {
		focus = 0
	}
	if focus < t.viewportOffset {
		t.viewportOffset = focus
	}
	if focus >= t.viewportOffset+h {
		t.viewportOffset = focus - h + 1
	}
	if maxOff := len(t.rows) - h; t.viewportOffset > maxOff {
		t.viewportOffset = max(maxOff, 0)
	}
}

func (t *TreeModel) visibleCount() int {
	h := t.height
	if t.drag.active {
		h-- // drop marker line
	}
	if h <= 0 {
		return 20
	}
	return h
}

// visibleRange returns the [start, end) slice of rows to render.
func (t *TreeModel) visibleRange() (start, end int) {
	if len(t.rows) == 0 {
		return 0, 0
	}
	start = clamp(t.viewportOffset, 0, len(t.rows))
	end = min(start+t.visibleCount(), len(t.rows))
	return start, end
}

// View renders the tree pane.
func (t *TreeModel) View() string {
	if !t.built || (len(t.rows) == 0 && !t.drag.active) {
		return t.renderEmptyState()
	}

	var sb strings.Builder
	start, end := t.visibleRange()
	for i := start; i < end; i++ {
		if t.drag.active && i == t.drag.gap {
			sb.WriteString(t.renderDropMarker(t.rows[i].Depth))
			sb.WriteString("\n")
		}
		line := t.renderRow(t.rows[i])
		if i == t.cursor {
			line = t.theme.Selected.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	if t.drag.active && t.drag.gap >= end {
		depth := 0
		if n := len(t.rows); n > 0 && t.drag.gap == n {
			depth = t.rows[n-1].Depth
		}
		sb.WriteString(t.renderDropMarker(depth))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (t *TreeModel) renderEmptyState() string {
	r := t.theme.Renderer
	title := r.NewStyle().Foreground(t.theme.Primary).Bold(true)
	muted := r.NewStyle().Foreground(t.theme.Muted)

	var sb strings.Builder
	sb.WriteString(title.Render("Navigation"))
	sb.WriteString("\n\n")
	sb.WriteString(muted.Render("No items to display."))
	sb.WriteString("\n\n")
	sb.WriteString(muted.Render("Press a to add an item."))
	return sb.String()
}

func (t *TreeModel) renderDropMarker(depth int) string {
	label := "── drop: " + t.dragLabel() + " ──"
	return strings.Repeat("    ", depth) + t.theme.DropMarker.Render(label)
}

func (t *TreeModel) dragLabel() string {
	if n, ok := t.tree.Node(t.drag.nodeID); ok {
		return runewidth.Truncate(n.Label, 30, "…")
	}
	return t.drag.nodeID
}

// renderRow renders one row with branch characters, indicator, icon and title.
func (t *TreeModel) renderRow(row navtree.FlatRow) string {
	n := row.Node
	r := t.theme.Renderer
	var sb strings.Builder

	prefix := t.buildTreePrefix(n.ID, row.Depth)
	sb.WriteString(r.NewStyle().Foreground(t.theme.Muted).Render(prefix))

	sb.WriteString(r.NewStyle().Foreground(t.theme.Secondary).Render(t.expandIndicator(n)))
	sb.WriteString(" ")

	icon, color := t.theme.TypeIcon(n.Type())
	sb.WriteString(r.NewStyle().Foreground(color).Render(icon))
	sb.WriteString(" ")

	suffix := ""
	if !n.Data.Published {
		suffix = " (draft)"
	}
	maxTitle := t.width - runewidth.StringWidth(prefix) - 4 - runewidth.StringWidth(suffix)
	if maxTitle < 10 {
		maxTitle = 10
	}
	sb.WriteString(truncateTitle(n.Label, maxTitle))
	if suffix != "" {
		sb.WriteString(r.NewStyle().Foreground(t.theme.Muted).Italic(true).Render(suffix))
	}
	return sb.String()
}

// buildTreePrefix draws the guide lines for a row. Roots get none.
func (t *TreeModel) buildTreePrefix(id string, depth int) string {
	if depth == 0 {
		return ""
	}
	var sb strings.Builder
	ancestors := t.tree.Ancestors(id)
	// ancestors[0] is the root; its column is not drawn.
	for _, a := range ancestors[1:] {
		if t.isLastChild(a) {
			sb.WriteString("    ")
		} else {
			sb.WriteString("│   ")
		}
	}
	if t.isLastChild(id) {
		sb.WriteString("└── ")
	} else {
		sb.WriteString("├── ")
	}
	return sb.String()
}

func (t *TreeModel) isLastChild(id string) bool {
	siblings := t.tree.Siblings(t.tree.ParentID(id))
	return len(siblings) > 0 && siblings[len(siblings)-1].ID == id
}

func (t *TreeModel) expandIndicator(n *navtree.Node) string {
	switch {
	case !n.IsFolder():
		return "•"
	case len(n.Children()) == 0:
		return "◦"
	case t.isExpanded(n):
		return "▾"
	default:
		return "▸"
	}
}

// truncateTitle shortens s to maxWidth display cells.
func truncateTitle(s string, maxWidth int) string {
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 1 {
		return "…"
	}
	return runewidth.Truncate(s, maxWidth, "…")
}

// NodeCount returns the number of rows shown.
func (t *TreeModel) NodeCount() int {
	return len(t.rows)
}

// RootCount returns the number of root nodes.
func (t *TreeModel) RootCount() int {
	return len(t.tree.Roots())
}

// IsBuilt returns whether Build has been called.
func (t *TreeModel) IsBuilt() bool {
	return t.built
}

// saveState persists explicit expand/collapse choices. Errors are logged
// and otherwise ignored.
func (t *TreeModel) saveState() {
	if t.statePath == "" {
		return
	}
	state := DefaultTreeState()
	for id, open := range t.expanded {
		if _, ok := t.tree.Node(id); ok {
			state.Expanded[id] = open
		}
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Printf("warning: failed to marshal tree state: %v", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(t.statePath), 0o755); err != nil {
		log.Printf("warning: failed to create state directory: %v", err)
		return
	}
	if err := os.WriteFile(t.statePath, data, 0o644); err != nil {
		log.Printf("warning: failed to write tree state to %s: %v", t.statePath, err)
	}
}

// loadState restores expand/collapse choices. Stale ids are kept so a
// folder that reappears after a reload gets its state back.
func (t *TreeModel) loadState() {
	if t.statePath == "" {
		return
	}
	data, err := os.ReadFile(t.statePath)
	if err != nil {
		return
	}
	var state TreeState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Printf("warning: invalid tree state file, using defaults: %v", err)
		return
	}
	for id, open := range state.Expanded {
		t.expanded[id] = open
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
