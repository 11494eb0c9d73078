package navtree

import (
	"fmt"
	"strconv"
	"strings"
)

// Expansion decides whether a folder shows its children.
type Expansion interface {
	IsExpanded(n *Node, depth int) bool
}

// ExpansionFunc adapts a plain function to Expansion.
type ExpansionFunc func(n *Node, depth int) bool

// IsExpanded implements Expansion.
func (f ExpansionFunc) IsExpanded(n *Node, depth int) bool { return f(n, depth) }

var (
	// ExpandAll shows every folder's children. It is the policy applied
	// after every rebuild unless the host says otherwise.
	ExpandAll Expansion = ExpansionFunc(func(*Node, int) bool { return true })

	// ExpandNone shows roots only.
	ExpandNone Expansion = ExpansionFunc(func(*Node, int) bool { return false })
)

// ExpandToDepth expands folders whose depth is below level, so level 1
// shows roots and their direct children.
func ExpandToDepth(level int) Expansion {
	return ExpansionFunc(func(_ *Node, depth int) bool { return depth < level })
}

// ExpandedSet is an explicit per-id expansion map. Ids that are absent fall
// back to Default, or to expanded when Default is nil.
type ExpandedSet struct {
	IDs     map[string]bool
	Default Expansion
}

// IsExpanded implements Expansion.
func (s ExpandedSet) IsExpanded(n *Node, depth int) bool {
	if v, ok := s.IDs[n.ID]; ok {
		return v
	}
	if s.Default == nil {
		return true
	}
	return s.Default.IsExpanded(n, depth)
}

// Collapse returns a set that collapses the given ids and expands the rest.
func Collapse(ids ...string) ExpandedSet {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = false
	}
	return ExpandedSet{IDs: m, Default: ExpandAll}
}

// ParseExpansion parses "all", "none" or "depth:N".
func ParseExpansion(s string) (Expansion, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "all":
		return ExpandAll, nil
	case "none":
		return ExpandNone, nil
	}
	if rest, ok := strings.CutPrefix(s, "depth:"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid expansion depth %q", rest)
		}
		return ExpandToDepth(n), nil
	}
	return nil, fmt.Errorf("unknown expansion policy %q (want all, none or depth:N)", s)
}
