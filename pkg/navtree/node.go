// Package navtree turns a flat list of navigation items into an ordered tree,
// flattens it for display and hit-testing, and resolves drag-and-drop
// gestures into (parent, order) move intents.
//
// Everything in this package is a pure function of its inputs: callers
// rebuild the whole pipeline after every structural change instead of
// mutating earlier results.
package navtree

import "github.com/vanderheijden86/navtree/pkg/model"

// Kind is the closed set of node variants. Only *Folder carries children.
type Kind interface {
	itemType() model.ItemType
}

// Page is a leaf content page.
type Page struct{}

// Link is a leaf pointing elsewhere.
type Link struct {
	URL string
}

// Folder groups child nodes. Children is never nil on a built tree.
type Folder struct {
	Children []*Node
}

func (Page) itemType() model.ItemType    { return model.TypePage }
func (Link) itemType() model.ItemType    { return model.TypeLink }
func (*Folder) itemType() model.ItemType { return model.TypeFolder }

// Node is one element of the built tree.
type Node struct {
	ID    string
	Label string
	Data  model.NavigationItem // Copy of the source record
	Kind  Kind
}

func newNode(item model.NavigationItem) *Node {
	n := &Node{ID: item.ID, Label: item.Title, Data: item}
	switch item.Type {
	case model.TypeFolder:
		n.Kind = &Folder{Children: []*Node{}}
	case model.TypeLink:
		n.Kind = Link{URL: item.URL}
	default:
		// Unknown types render as pages; Validate flags them upstream.
		n.Kind = Page{}
	}
	return n
}

// Type returns the node's item type.
func (n *Node) Type() model.ItemType {
	if n == nil || n.Kind == nil {
		return ""
	}
	return n.Kind.itemType()
}

// IsFolder reports whether the node may hold children.
func (n *Node) IsFolder() bool {
	if n == nil {
		return false
	}
	_, ok := n.Kind.(*Folder)
	return ok
}

// Children returns the folder's children, or nil for pages and links.
func (n *Node) Children() []*Node {
	if f, ok := n.Kind.(*Folder); ok {
		return f.Children
	}
	return nil
}
