package analysis

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/navtree/pkg/model"
	"github.com/vanderheijden86/navtree/pkg/navtree"
)

// FindingKind classifies one diagnostics finding.
type FindingKind string

const (
	KindInvalidItem     FindingKind = "invalid_item"
	KindDuplicateID     FindingKind = "duplicate_id"
	KindMissingParent   FindingKind = "missing_parent"
	KindSelfParent      FindingKind = "self_parent"
	KindNonFolderParent FindingKind = "non_folder_parent"
	KindCycle           FindingKind = "cycle"
	KindOrderGap        FindingKind = "order_gap"
)

// Finding is one inconsistency in the input. The tree builder tolerates all
// of them; they are reported so the data can be repaired. Informational
// findings (non-contiguous sibling orders) describe valid input and do not
// affect Healthy.
type Finding struct {
	Kind   FindingKind `json:"kind"`
	ItemID string      `json:"item_id"`
	Detail string      `json:"detail"`
	Info   bool        `json:"info,omitempty"`
}

// Cycle is a ring of parent references.
type Cycle struct {
	Members      []string `json:"members"`       // Follows parent links from PromotedRoot
	PromotedRoot string   `json:"promoted_root"` // The member Build places at root
}

// Report summarizes the structure of an item collection.
type Report struct {
	ItemCount int       `json:"item_count"`
	NodeCount int       `json:"node_count"` // Distinct ids in the built tree
	RootCount int       `json:"root_count"`
	MaxDepth  int       `json:"max_depth"`
	Folders   int       `json:"folders"`
	Pages     int       `json:"pages"`
	Links     int       `json:"links"`
	Findings  []Finding `json:"findings"`
	Cycles    []Cycle   `json:"cycles"`
	Healthy   bool      `json:"healthy"`
	Advisory  string    `json:"advisory"`
}

// Diagnose builds the tree and reports every input inconsistency the
// builder had to absorb.
func Diagnose(items []model.NavigationItem) *Report {
	tree := navtree.Build(items)
	r := &Report{
		ItemCount: len(items),
		NodeCount: tree.Len(),
		RootCount: len(tree.Roots()),
		Findings:  []Finding{},
		Cycles:    []Cycle{},
	}

	tree.Walk(func(n *navtree.Node, depth int) bool {
		if depth > r.MaxDepth {
			r.MaxDepth = depth
		}
		switch n.Type() {
		case model.TypeFolder:
			r.Folders++
		case model.TypeLink:
			r.Links++
		default:
			r.Pages++
		}
		return true
	})

	// First occurrence of each id, matching the builder.
	first := make(map[string]int, len(items))
	for i := range items {
		it := items[i]
		if err := it.Validate(); err != nil {
			r.add(KindInvalidItem, it.ID, err.Error())
		}
		if prev, dup := first[it.ID]; dup {
			r.add(KindDuplicateID, it.ID, fmt.Sprintf("duplicate of item #%d, ignored", prev))
			continue
		}
		first[it.ID] = i
	}

	for id, idx := range first {
		it := items[idx]
		pid := it.Parent()
		if pid == "" {
			continue
		}
		switch pidx, ok := first[pid]; {
		case pid == id:
			r.add(KindSelfParent, id, "item is its own parent, shown at root")
		case !ok:
			r.add(KindMissingParent, id, fmt.Sprintf("parent %q does not exist, shown at root", pid))
		case items[pidx].Type != model.TypeFolder:
			r.add(KindNonFolderParent, id, fmt.Sprintf("parent %q is a %s, shown at root", pid, items[pidx].Type))
		}
	}

	r.Cycles = findCycles(items, first, tree)
	for _, c := range r.Cycles {
		r.add(KindCycle, c.PromotedRoot, fmt.Sprintf("parent cycle %v, %s shown at root", c.Members, c.PromotedRoot))
	}

	r.findOrderGaps(tree)

	sort.SliceStable(r.Findings, func(i, j int) bool {
		if r.Findings[i].Kind != r.Findings[j].Kind {
			return r.Findings[i].Kind < r.Findings[j].Kind
		}
		return r.Findings[i].ItemID < r.Findings[j].ItemID
	})

	problems := r.ProblemCount()
	r.Healthy = problems == 0
	switch {
	case !r.Healthy:
		r.Advisory = fmt.Sprintf("%d problem(s) found; the tree is displayed with the repairs described in each finding.", problems)
	case len(r.Findings) > 0:
		r.Advisory = "No problems found; sibling orders are renumbered on the next move."
	default:
		r.Advisory = "No problems found."
	}
	return r
}

// ProblemCount is the number of findings that are not informational.
func (r *Report) ProblemCount() int {
	n := 0
	for _, f := range r.Findings {
		if !f.Info {
			n++
		}
	}
	return n
}

func (r *Report) add(kind FindingKind, id, detail string) {
	r.Findings = append(r.Findings, Finding{Kind: kind, ItemID: id, Detail: detail, Info: kind == KindOrderGap})
}

// findCycles runs Tarjan's SCC over the child->parent graph. Every node has
// at most one outgoing edge, so each non-trivial component is one ring.
func findCycles(items []model.NavigationItem, first map[string]int, tree *navtree.Tree) []Cycle {
	g := simple.NewDirectedGraph()
	for _, idx := range first {
		g.AddNode(simple.Node(int64(idx)))
	}
	for id, idx := range first {
		pid := items[idx].Parent()
		pidx, ok := first[pid]
		if !ok || pid == id || items[pidx].Type != model.TypeFolder {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(int64(idx)), simple.Node(int64(pidx))))
	}

	cycles := []Cycle{}
	for _, comp := range topo.TarjanSCC(g) {
		if len(comp) < 2 {
			continue
		}
		start := lowestIndex(comp)
		members := []string{items[start].ID}
		for cur := first[items[start].Parent()]; cur != start; cur = first[items[cur].Parent()] {
			members = append(members, items[cur].ID)
		}

		// The builder promotes one member; report which one it picked.
		promoted := members[0]
		for _, m := range members {
			if tree.ParentID(m) == "" {
				promoted = m
				break
			}
		}
		cycles = append(cycles, Cycle{Members: members, PromotedRoot: promoted})
	}
	sort.Slice(cycles, func(i, j int) bool { return first[cycles[i].Members[0]] < first[cycles[j].Members[0]] })
	return cycles
}

func lowestIndex(nodes []graph.Node) int {
	low := int(nodes[0].ID())
	for _, n := range nodes[1:] {
		if int(n.ID()) < low {
			low = int(n.ID())
		}
	}
	return low
}

// findOrderGaps notes sibling groups whose stored orders are not 0..n-1.
func (r *Report) findOrderGaps(tree *navtree.Tree) {
	check := func(parentID string, group []*navtree.Node) {
		for i, n := range group {
			if n.Data.Order != i {
				label := parentID
				if label == "" {
					label = "root"
				}
				r.add(KindOrderGap, n.ID, fmt.Sprintf("order %d at position %d under %s", n.Data.Order, i, label))
			}
		}
	}
	check("", tree.Roots())
	tree.Walk(func(n *navtree.Node, _ int) bool {
		if n.IsFolder() {
			check(n.ID, n.Children())
		}
		return true
	})
}
