package navtree

import (
	json "github.com/goccy/go-json"
)

// MoveIntent is the outcome of a successful drop: the node that moved and
// its new (parent, order) slot. NewParentID is "" for the root level.
type MoveIntent struct {
	Node        *Node
	NewParentID string
	NewOrder    int
}

type moveIntentJSON struct {
	NodeID      string  `json:"nodeId"`
	NewParentID *string `json:"newParentId"`
	NewOrder    int     `json:"newOrder"`
}

// MarshalJSON emits the intent with a null parent for root moves.
func (m MoveIntent) MarshalJSON() ([]byte, error) {
	out := moveIntentJSON{NewOrder: m.NewOrder}
	if m.Node != nil {
		out.NodeID = m.Node.ID
	}
	if m.NewParentID != "" {
		pid := m.NewParentID
		out.NewParentID = &pid
	}
	return json.Marshal(out)
}

// ResolveDrop translates "draggedID was dropped into gap dropIndex" into a
// MoveIntent, or nil when the drop is a no-op or not allowed.
//
// The rows are the flattened view the user dragged over. The dragged subtree
// and invisible rows are removed first, so dropIndex addresses the gaps of
// what remains: 0 is before the first row, len is after the last. Values
// outside that range are clamped.
func (t *Tree) ResolveDrop(rows []FlatRow, draggedID string, dropIndex int) *MoveIntent {
	dragged, ok := t.index[draggedID]
	if !ok {
		return nil
	}

	reduced := t.reduceRows(rows, draggedID)
	if dropIndex < 0 {
		dropIndex = 0
	}
	if dropIndex > len(reduced) {
		dropIndex = len(reduced)
	}

	var prev, next *FlatRow
	if dropIndex > 0 {
		prev = &reduced[dropIndex-1]
	}
	if dropIndex < len(reduced) {
		next = &reduced[dropIndex]
	}

	var parentID string
	order := 0
	switch {
	case prev == nil:
		// Top of the list
	case prev.Node.IsFolder() && next != nil && t.ParentID(next.Node.ID) == prev.Node.ID:
		// Between an open folder and its first child
		parentID = prev.Node.ID
	default:
		parentID = t.ParentID(prev.Node.ID)
		order = t.positionExcluding(prev.Node.ID, draggedID) + 1
	}
	return t.accept(dragged, parentID, order)
}

// ResolveDropInto handles a drop onto a folder row itself: the node becomes
// the folder's last child. This is the only gesture that can target an empty
// or collapsed folder.
func (t *Tree) ResolveDropInto(draggedID, folderID string) *MoveIntent {
	dragged, ok := t.index[draggedID]
	if !ok {
		return nil
	}
	folder, ok := t.index[folderID]
	if !ok || !folder.node.IsFolder() {
		return nil
	}
	order := 0
	for _, c := range folder.node.Children() {
		if c.ID != draggedID {
			order++
		}
	}
	return t.accept(dragged, folderID, order)
}

// accept applies the shared guards and builds the intent.
func (t *Tree) accept(dragged *entry, parentID string, order int) *MoveIntent {
	id := dragged.node.ID
	if parentID != "" {
		target, ok := t.index[parentID]
		if !ok || !target.node.IsFolder() {
			return nil
		}
		if parentID == id || t.IsDescendant(parentID, id) {
			return nil
		}
	}

	size := 0
	for _, s := range t.Siblings(parentID) {
		if s.ID != id {
			size++
		}
	}
	if order > size {
		order = size
	}
	if order < 0 {
		order = 0
	}

	if parentID == t.ParentID(id) && order == dragged.position {
		return nil
	}
	return &MoveIntent{Node: dragged.node, NewParentID: parentID, NewOrder: order}
}

// reduceRows drops invisible rows, stale rows and the dragged subtree.
func (t *Tree) reduceRows(rows []FlatRow, draggedID string) []FlatRow {
	out := make([]FlatRow, 0, len(rows))
	for _, r := range rows {
		if r.Node == nil || !r.Visible {
			continue
		}
		if _, ok := t.index[r.Node.ID]; !ok {
			continue
		}
		if r.Node.ID == draggedID || t.IsDescendant(r.Node.ID, draggedID) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// positionExcluding returns id's index among its siblings as if excluded
// were not there.
func (t *Tree) positionExcluding(id, excluded string) int {
	pos := 0
	for _, s := range t.Siblings(t.ParentID(id)) {
		if s.ID == id {
			return pos
		}
		if s.ID != excluded {
			pos++
		}
	}
	return pos
}
