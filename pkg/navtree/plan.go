package navtree

import (
	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/navtree/pkg/model"
)

// Patch is one record update in a move plan.
type Patch struct {
	ID       string
	ParentID string // "" for root
	Order    int
}

type patchJSON struct {
	ID       string  `json:"id"`
	ParentID *string `json:"parentId"`
	Order    int     `json:"order"`
}

// MarshalJSON emits a null parent for root-level patches.
func (p Patch) MarshalJSON() ([]byte, error) {
	out := patchJSON{ID: p.ID, Order: p.Order}
	if p.ParentID != "" {
		pid := p.ParentID
		out.ParentID = &pid
	}
	return json.Marshal(out)
}

// PlanMove expands a MoveIntent into the record updates a host must persist:
// the moved node plus every sibling in the source and destination groups
// whose stored (parent, order) no longer matches its contiguous 0..n-1 slot.
// Siblings that already hold the right values are left out.
func (t *Tree) PlanMove(intent MoveIntent) []Patch {
	if intent.Node == nil {
		return nil
	}
	id := intent.Node.ID
	if _, ok := t.index[id]; !ok {
		return nil
	}
	oldParent := t.ParentID(id)

	var plan []Patch
	done := make(map[string]bool)
	emit := func(group []*Node, parentID string) {
		done[parentID] = true
		for i, n := range group {
			if n.ID == id || n.Data.Parent() != parentID || n.Data.Order != i {
				plan = append(plan, Patch{ID: n.ID, ParentID: parentID, Order: i})
			}
		}
	}

	dest := without(t.Siblings(intent.NewParentID), id)
	pos := intent.NewOrder
	if pos < 0 {
		pos = 0
	}
	if pos > len(dest) {
		pos = len(dest)
	}
	dest = append(dest[:pos], append([]*Node{intent.Node}, dest[pos:]...)...)
	emit(dest, intent.NewParentID)

	if !done[oldParent] {
		emit(without(t.Siblings(oldParent), id), oldParent)
	}

	// Pin the destination's ancestor chain when the stored parents disagree
	// with the built tree (promoted orphans or cycle members). Otherwise a
	// rebuild from the patched records could re-promote the moved node.
	if intent.NewParentID != "" {
		chain := append(t.Ancestors(intent.NewParentID), intent.NewParentID)
		for _, aid := range chain {
			a, _ := t.Node(aid)
			parent := t.ParentID(aid)
			if a == nil || done[parent] || a.Data.Parent() == parent {
				continue
			}
			emit(t.Siblings(parent), parent)
		}
	}
	return plan
}

func without(nodes []*Node, id string) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n.ID != id {
			out = append(out, n)
		}
	}
	return out
}

// RemoveItems returns a copy of items without the given ids.
func RemoveItems(items []model.NavigationItem, ids []string) []model.NavigationItem {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	out := make([]model.NavigationItem, 0, len(items))
	for _, it := range items {
		if !drop[it.ID] {
			out = append(out, it.Clone())
		}
	}
	return out
}

// ApplyPatches returns a copy of items with the plan applied. Patches for
// unknown ids are ignored.
func ApplyPatches(items []model.NavigationItem, plan []Patch) []model.NavigationItem {
	out := model.CloneItems(items)
	if len(plan) == 0 {
		return out
	}
	byID := make(map[string]Patch, len(plan))
	for _, p := range plan {
		byID[p.ID] = p
	}
	for i := range out {
		p, ok := byID[out[i].ID]
		if !ok {
			continue
		}
		out[i].SetParent(p.ParentID)
		out[i].Order = p.Order
	}
	return out
}
