package main

import (
	"io"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/navtree/pkg/analysis"
	"github.com/vanderheijden86/navtree/pkg/config"
	"github.com/vanderheijden86/navtree/pkg/model"
	"github.com/vanderheijden86/navtree/pkg/navtree"
)

// treeNodeJSON is the --robot-tree shape of one node.
type treeNodeJSON struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Type        model.ItemType `json:"type"`
	Order       int            `json:"order"`
	Published   bool           `json:"published"`
	URL         string         `json:"url,omitempty"`
	StoredOrder int            `json:"stored_order"`
	Children    []treeNodeJSON `json:"children,omitempty"`
}

type robotTreeOutput struct {
	GeneratedAt string         `json:"generated_at"`
	DataHash    string         `json:"data_hash"`
	ItemCount   int            `json:"item_count"`
	Roots       []treeNodeJSON `json:"roots"`
}

// flatRowJSON is the --robot-flat shape of one row.
type flatRowJSON struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Type     model.ItemType `json:"type"`
	Depth    int            `json:"depth"`
	ParentID *string        `json:"parent_id"`
	Index    int            `json:"index"`
	Row      int            `json:"row"`
	Expanded bool           `json:"expanded,omitempty"`
}

type robotFlatOutput struct {
	GeneratedAt string        `json:"generated_at"`
	RowCount    int           `json:"row_count"`
	Rows        []flatRowJSON `json:"rows"`
}

type robotResolveOutput struct {
	Drag    string              `json:"drag"`
	Drop    int                 `json:"drop"`
	Intent  *navtree.MoveIntent `json:"intent"`
	Plan    []navtree.Patch     `json:"plan"`
	Applied bool                `json:"applied"`
}

type robotProjectsOutput struct {
	Current  string           `json:"current,omitempty"`
	Projects []config.Project `json:"projects"`
}

type robotDiagnoseOutput struct {
	GeneratedAt string           `json:"generated_at"`
	Report      *analysis.Report `json:"report"`
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// treeJSON converts the built tree. Order is the effective sibling position,
// StoredOrder the value found in the record.
func treeJSON(tree *navtree.Tree) []treeNodeJSON {
	var convert func(nodes []*navtree.Node) []treeNodeJSON
	convert = func(nodes []*navtree.Node) []treeNodeJSON {
		out := make([]treeNodeJSON, 0, len(nodes))
		for i, n := range nodes {
			node := treeNodeJSON{
				ID:          n.ID,
				Title:       n.Label,
				Type:        n.Type(),
				Order:       i,
				Published:   n.Data.Published,
				StoredOrder: n.Data.Order,
			}
			if link, ok := n.Kind.(navtree.Link); ok {
				node.URL = link.URL
			}
			if n.IsFolder() && len(n.Children()) > 0 {
				node.Children = convert(n.Children())
			}
			out = append(out, node)
		}
		return out
	}
	return convert(tree.Roots())
}

func flatJSON(rows []navtree.FlatRow, exp navtree.Expansion) []flatRowJSON {
	out := make([]flatRowJSON, 0, len(rows))
	for i, r := range rows {
		row := flatRowJSON{
			ID:    r.Node.ID,
			Title: r.Node.Label,
			Type:  r.Node.Type(),
			Depth: r.Depth,
			Index: r.Index,
			Row:   i,
		}
		if r.ParentID != "" {
			pid := r.ParentID
			row.ParentID = &pid
		}
		if len(r.Node.Children()) > 0 {
			row.Expanded = exp == nil || exp.IsExpanded(r.Node, r.Depth)
		}
		out = append(out, row)
	}
	return out
}
