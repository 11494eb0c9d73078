package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/navtree/pkg/model"
	"github.com/vanderheijden86/navtree/pkg/navtree"
)

// MenuAction is an item action requested from the tree.
type MenuAction string

const (
	ActionCreate MenuAction = "create"
	ActionEdit   MenuAction = "edit"
	ActionDelete MenuAction = "delete"
)

// NodeSelectedMsg is sent when the selection moves to a different node.
type NodeSelectedMsg struct {
	Node *navtree.Node
}

// NodeMenuActionMsg asks the host to create, edit or delete an item. For
// create, Node is the anchor (nil at the root level) and ItemType the kind
// to create.
type NodeMenuActionMsg struct {
	Node     *navtree.Node
	Action   MenuAction
	ItemType model.ItemType
}

// NodeMovedMsg carries a resolved drop. It is only sent for non-nil intents.
type NodeMovedMsg struct {
	Intent *navtree.MoveIntent
}

func nodeSelectedCmd(n *navtree.Node) tea.Cmd {
	if n == nil {
		return nil
	}
	return func() tea.Msg { return NodeSelectedMsg{Node: n} }
}

func nodeMovedCmd(intent *navtree.MoveIntent) tea.Cmd {
	if intent == nil {
		return nil
	}
	return func() tea.Msg { return NodeMovedMsg{Intent: intent} }
}

func menuActionCmd(n *navtree.Node, action MenuAction, typ model.ItemType) tea.Cmd {
	return func() tea.Msg {
		return NodeMenuActionMsg{Node: n, Action: action, ItemType: typ}
	}
}

// SnapshotReadyMsg carries a freshly reloaded snapshot to the UI.
type SnapshotReadyMsg struct {
	Snapshot *DataSnapshot
}

// SnapshotErrorMsg reports a failed reload.
type SnapshotErrorMsg struct {
	Err         error
	Recoverable bool // the next file change retries
}
