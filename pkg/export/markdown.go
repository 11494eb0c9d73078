// Package export renders the navigation tree as Markdown or SVG documents.
package export

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vanderheijden86/navtree/pkg/model"
	"github.com/vanderheijden86/navtree/pkg/navtree"
)

// MarkdownOptions tunes GenerateMarkdown.
type MarkdownOptions struct {
	Title       string
	GeneratedAt time.Time // Zero omits the timestamp line
	Expansion   navtree.Expansion
	// Mermaid adds a folder/child graph block.
	Mermaid bool
}

// GenerateMarkdown creates a Markdown document with a summary, a nested
// outline and one section per item that carries a description.
func GenerateMarkdown(tree *navtree.Tree, opts MarkdownOptions) string {
	var sb strings.Builder
	title := opts.Title
	if title == "" {
		title = "Navigation"
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	if !opts.GeneratedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Generated: %s\n\n", opts.GeneratedAt.Format(time.RFC1123)))
	}

	rows := navtree.Flatten(tree.Roots(), opts.Expansion, navtree.FlattenOptions{})

	// Summary
	var folders, pages, links, published int
	tree.Walk(func(n *navtree.Node, _ int) bool {
		switch n.Type() {
		case model.TypeFolder:
			folders++
		case model.TypeLink:
			links++
		default:
			pages++
		}
		if n.Data.Published {
			published++
		}
		return true
	})
	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Items**: %d\n", tree.Len()))
	sb.WriteString(fmt.Sprintf("- **Folders**: %d\n", folders))
	sb.WriteString(fmt.Sprintf("- **Pages**: %d\n", pages))
	sb.WriteString(fmt.Sprintf("- **Links**: %d\n", links))
	sb.WriteString(fmt.Sprintf("- **Published**: %d\n\n", published))

	// Outline
	sb.WriteString("## Outline\n\n")
	if len(rows) == 0 {
		sb.WriteString("_No items._\n\n")
	}
	for _, r := range rows {
		sb.WriteString(strings.Repeat("  ", r.Depth))
		sb.WriteString("- ")
		sb.WriteString(outlineEntry(r.Node))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if opts.Mermaid {
		writeMermaid(&sb, tree)
	}

	// Details
	wroteHeader := false
	for _, r := range rows {
		desc := strings.TrimSpace(r.Node.Data.Description)
		if desc == "" {
			continue
		}
		if !wroteHeader {
			sb.WriteString("---\n\n")
			wroteHeader = true
		}
		sb.WriteString(fmt.Sprintf("## %s\n\n", r.Node.Label))
		sb.WriteString("| ID | Type | Published |\n")
		sb.WriteString("|---|---|---|\n")
		sb.WriteString(fmt.Sprintf("| %s | %s | %t |\n\n", r.Node.ID, r.Node.Type(), r.Node.Data.Published))
		sb.WriteString(desc + "\n\n")
	}

	return sb.String()
}

func outlineEntry(n *navtree.Node) string {
	label := escapeMarkdown(n.Label)
	var s string
	switch k := n.Kind.(type) {
	case navtree.Link:
		s = fmt.Sprintf("[%s](%s)", label, k.URL)
	case *navtree.Folder:
		s = "**" + label + "**"
	default:
		s = label
	}
	if !n.Data.Published {
		s += " _(draft)_"
	}
	return s
}

func escapeMarkdown(s string) string {
	r := strings.NewReplacer("[", `\[`, "]", `\]`, "*", `\*`, "_", `\_`)
	return r.Replace(s)
}

func writeMermaid(sb *strings.Builder, tree *navtree.Tree) {
	sb.WriteString("## Structure\n\n")
	sb.WriteString("```mermaid\ngraph TD\n")
	ids := make(map[string]string, tree.Len())
	next := 0
	nodeID := func(id string) string {
		if v, ok := ids[id]; ok {
			return v
		}
		v := fmt.Sprintf("n%d", next)
		next++
		ids[id] = v
		return v
	}

	tree.Walk(func(n *navtree.Node, _ int) bool {
		safe := strings.NewReplacer(`"`, "'", "[", "", "]", "", "(", "", ")", "").Replace(n.Label)
		if len([]rune(safe)) > 30 {
			safe = string([]rune(safe)[:27]) + "..."
		}
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", nodeID(n.ID), safe))
		for _, c := range n.Children() {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", nodeID(n.ID), nodeID(c.ID)))
		}
		return true
	})
	if tree.Len() == 0 {
		sb.WriteString("    Empty[No items]\n")
	}
	sb.WriteString("```\n\n")
}

// SaveMarkdownToFile writes the generated markdown to a file.
func SaveMarkdownToFile(tree *navtree.Tree, filename string, opts MarkdownOptions) error {
	content := GenerateMarkdown(tree, opts)
	return os.WriteFile(filename, []byte(content), 0644)
}
