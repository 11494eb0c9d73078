package navtree

// FlatRow is one entry of the flattened, pre-order view of the tree.
type FlatRow struct {
	Node     *Node
	Depth    int
	ParentID string // "" for roots
	Index    int    // Position among the emitted siblings
	Visible  bool
	Selected bool
}

// FlattenOptions tunes Flatten.
type FlattenOptions struct {
	// HiddenSubtreeRootID removes that node and its descendants, typically
	// the node being dragged.
	HiddenSubtreeRootID string
	// SelectedID marks the matching row as selected.
	SelectedID string
	// IncludeHidden emits collapsed and hidden rows too, with Visible=false,
	// instead of skipping them.
	IncludeHidden bool
}

// Flatten walks roots in pre-order and returns the rows a list view would
// show. A nil Expansion behaves like ExpandAll.
func Flatten(roots []*Node, exp Expansion, opts FlattenOptions) []FlatRow {
	if exp == nil {
		exp = ExpandAll
	}
	rows := make([]FlatRow, 0, len(roots))

	var walk func(nodes []*Node, parentID string, depth int, visible bool)
	walk = func(nodes []*Node, parentID string, depth int, visible bool) {
		idx := 0
		for _, n := range nodes {
			rowVisible := visible
			if opts.HiddenSubtreeRootID != "" && n.ID == opts.HiddenSubtreeRootID {
				if !opts.IncludeHidden {
					continue
				}
				rowVisible = false
			}
			if !rowVisible && !opts.IncludeHidden {
				continue
			}

			rows = append(rows, FlatRow{
				Node:     n,
				Depth:    depth,
				ParentID: parentID,
				Index:    idx,
				Visible:  rowVisible,
				Selected: opts.SelectedID != "" && n.ID == opts.SelectedID,
			})
			idx++

			children := n.Children()
			if len(children) == 0 {
				continue
			}
			open := exp.IsExpanded(n, depth)
			if !open && !opts.IncludeHidden {
				continue
			}
			walk(children, n.ID, depth+1, rowVisible && open)
		}
	}
	walk(roots, "", 0, true)
	return rows
}

// VisibleRows filters rows down to the visible ones.
func VisibleRows(rows []FlatRow) []FlatRow {
	out := make([]FlatRow, 0, len(rows))
	for _, r := range rows {
		if r.Visible {
			out = append(out, r)
		}
	}
	return out
}

// IndexOf returns the position of id in rows, or -1.
func IndexOf(rows []FlatRow, id string) int {
	for i, r := range rows {
		if r.Node != nil && r.Node.ID == id {
			return i
		}
	}
	return -1
}
