package navtree

import (
	"sort"

	"github.com/vanderheijden86/navtree/pkg/model"
)

// Tree is the built navigation tree plus an id index over its nodes.
// The index holds the construction scaffolding (source position, parent,
// sibling position, depth) so the public Node shape stays minimal.
type Tree struct {
	roots []*Node
	index map[string]*entry
}

type entry struct {
	node     *Node
	parent   *Node // nil for roots
	position int   // index among siblings after sorting
	depth    int
	seq      int // position in the input slice
}

// Build constructs the tree from a flat item list.
//
// Items are copied on entry. Parent references that are missing, point at
// the item itself, or point at a non-folder make the item a root. When ids
// repeat, the first occurrence wins. Members of a parent cycle are not
// reachable from any root; the first such member in input order is promoted
// to root so every distinct item appears exactly once.
func Build(items []model.NavigationItem) *Tree {
	t := &Tree{index: make(map[string]*entry, len(items))}
	if len(items) == 0 {
		return t
	}

	// Step 1: index and wrap
	ordered := make([]*entry, 0, len(items))
	for i := range items {
		item := items[i].Clone()
		if _, dup := t.index[item.ID]; dup {
			continue
		}
		e := &entry{node: newNode(item), seq: i}
		t.index[item.ID] = e
		ordered = append(ordered, e)
	}

	// Step 2: attach each node to its parent, or make it a root
	for _, e := range ordered {
		parent := t.resolveParent(e)
		if parent == nil {
			t.roots = append(t.roots, e.node)
			continue
		}
		e.parent = parent.node
		f := parent.node.Kind.(*Folder)
		f.Children = append(f.Children, e.node)
	}

	// Step 3: break parent cycles
	reached := make(map[string]bool, len(ordered))
	for _, root := range t.roots {
		markReached(root, reached)
	}
	if len(reached) != len(ordered) {
		for _, e := range ordered {
			if reached[e.node.ID] {
				continue
			}
			t.detach(e)
			t.roots = append(t.roots, e.node)
			markReached(e.node, reached)
		}
	}

	// Step 4: sort every sibling group by source order
	t.sortNodes(t.roots)

	// Step 5: record final positions and depths
	t.reindex()
	return t
}

// resolveParent returns the entry e should hang under, or nil for a root.
func (t *Tree) resolveParent(e *entry) *entry {
	pid := e.node.Data.Parent()
	if pid == "" || pid == e.node.ID {
		return nil
	}
	p, ok := t.index[pid]
	if !ok || !p.node.IsFolder() {
		return nil
	}
	return p
}

func (t *Tree) detach(e *entry) {
	if e.parent == nil {
		return
	}
	f := e.parent.Kind.(*Folder)
	for i, c := range f.Children {
		if c == e.node {
			f.Children = append(f.Children[:i], f.Children[i+1:]...)
			break
		}
	}
	e.parent = nil
}

func markReached(n *Node, reached map[string]bool) {
	if reached[n.ID] {
		return
	}
	reached[n.ID] = true
	for _, c := range n.Children() {
		markReached(c, reached)
	}
}

// sortNodes stable-sorts a sibling group by source order, then input
// position, and recurses into folders.
func (t *Tree) sortNodes(nodes []*Node) {
	if len(nodes) > 1 {
		sort.SliceStable(nodes, func(i, j int) bool {
			a, b := nodes[i].Data.Order, nodes[j].Data.Order
			if a != b {
				return a < b
			}
			return t.index[nodes[i].ID].seq < t.index[nodes[j].ID].seq
		})
	}
	for _, n := range nodes {
		if children := n.Children(); len(children) > 0 {
			t.sortNodes(children)
		}
	}
}

func (t *Tree) reindex() {
	var walk func(nodes []*Node, parent *Node, depth int)
	walk = func(nodes []*Node, parent *Node, depth int) {
		for i, n := range nodes {
			e := t.index[n.ID]
			e.parent = parent
			e.position = i
			e.depth = depth
			walk(n.Children(), n, depth+1)
		}
	}
	walk(t.roots, nil, 0)
}

// Roots returns the top-level nodes in order.
func (t *Tree) Roots() []*Node {
	if t == nil {
		return nil
	}
	return t.roots
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.index)
}

// Node looks up a node by id.
func (t *Tree) Node(id string) (*Node, bool) {
	if t == nil {
		return nil, false
	}
	e, ok := t.index[id]
	if !ok {
		return nil, false
	}
	return e.node, true
}

// ParentID returns the id of the node's parent in the built tree, or "" for
// roots and unknown ids. This can differ from Data.ParentID when the source
// reference was promoted to root.
func (t *Tree) ParentID(id string) string {
	e, ok := t.index[id]
	if !ok || e.parent == nil {
		return ""
	}
	return e.parent.ID
}

// Position returns the node's index among its siblings, or -1.
func (t *Tree) Position(id string) int {
	e, ok := t.index[id]
	if !ok {
		return -1
	}
	return e.position
}

// Depth returns the nesting level (0 = root), or -1 for unknown ids.
func (t *Tree) Depth(id string) int {
	e, ok := t.index[id]
	if !ok {
		return -1
	}
	return e.depth
}

// Siblings returns the children of parentID, or the roots for "".
func (t *Tree) Siblings(parentID string) []*Node {
	if parentID == "" {
		return t.roots
	}
	e, ok := t.index[parentID]
	if !ok {
		return nil
	}
	return e.node.Children()
}

// Ancestors returns the ids from the root down to the node's parent.
func (t *Tree) Ancestors(id string) []string {
	var out []string
	for pid := t.ParentID(id); pid != ""; pid = t.ParentID(pid) {
		out = append([]string{pid}, out...)
	}
	return out
}

// IsDescendant reports whether id sits strictly below ancestorID.
func (t *Tree) IsDescendant(id, ancestorID string) bool {
	if ancestorID == "" {
		return false
	}
	for pid := t.ParentID(id); pid != ""; pid = t.ParentID(pid) {
		if pid == ancestorID {
			return true
		}
	}
	return false
}

// Subtree returns id followed by all of its descendants in pre-order, or nil
// for an unknown id.
func (t *Tree) Subtree(id string) []string {
	e, ok := t.index[id]
	if !ok {
		return nil
	}
	out := []string{id}
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			out = append(out, n.ID)
			walk(n.Children())
		}
	}
	walk(e.node.Children())
	return out
}

// Walk visits every node in pre-order. Returning false from fn skips the
// node's children.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	if t == nil {
		return
	}
	var walk func(nodes []*Node, depth int)
	walk = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			if fn(n, depth) {
				walk(n.Children(), depth+1)
			}
		}
	}
	walk(t.roots, 0)
}
