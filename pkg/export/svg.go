package export

import (
	"bytes"
	"fmt"
	"io"
	"os"

	svg "github.com/ajstarks/svgo"

	"github.com/vanderheijden86/navtree/pkg/model"
	"github.com/vanderheijden86/navtree/pkg/navtree"
)

// SVG layout constants, in pixels.
const (
	svgRowHeight = 28
	svgIndent    = 24
	svgMargin    = 16
	svgCharWidth = 8
	svgMinWidth  = 320
)

var svgKindFill = map[model.ItemType]string{
	model.TypeFolder: "#f1fa8c",
	model.TypePage:   "#8be9fd",
	model.TypeLink:   "#ff79c6",
}

// WriteSVG renders the flattened tree as an indented outline with elbow
// connectors.
func WriteSVG(w io.Writer, tree *navtree.Tree, exp navtree.Expansion) error {
	rows := navtree.Flatten(tree.Roots(), exp, navtree.FlattenOptions{})

	width := svgMinWidth
	for _, r := range rows {
		if need := svgMargin*2 + r.Depth*svgIndent + 24 + len([]rune(r.Node.Label))*svgCharWidth; need > width {
			width = need
		}
	}
	height := svgMargin*2 + max(len(rows), 1)*svgRowHeight

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(width, height)
	canvas.Title("Navigation tree")
	canvas.Rect(0, 0, width, height, "fill:#282a36")

	if len(rows) == 0 {
		canvas.Text(svgMargin, svgMargin+svgRowHeight/2, "No items", "fill:#6272a4;font-family:monospace;font-size:13px")
	}

	// Row index of each id, for connectors.
	rowOf := make(map[string]int, len(rows))
	for i, r := range rows {
		rowOf[r.Node.ID] = i
	}

	canvas.Gstyle("stroke:#6272a4;stroke-width:1")
	for i, r := range rows {
		if r.ParentID == "" {
			continue
		}
		p, ok := rowOf[r.ParentID]
		if !ok {
			continue
		}
		px := svgMargin + rows[p].Depth*svgIndent + 6
		py := svgMargin + p*svgRowHeight + svgRowHeight/2 + 6
		cx := svgMargin + r.Depth*svgIndent
		cy := svgMargin + i*svgRowHeight + svgRowHeight/2
		canvas.Line(px, py, px, cy)
		canvas.Line(px, cy, cx, cy)
	}
	canvas.Gend()

	for i, r := range rows {
		x := svgMargin + r.Depth*svgIndent
		y := svgMargin + i*svgRowHeight + svgRowHeight/2
		fill := svgKindFill[r.Node.Type()]
		if fill == "" {
			fill = "#f8f8f2"
		}
		if r.Node.IsFolder() {
			canvas.Rect(x, y-6, 12, 12, "fill:"+fill)
		} else {
			canvas.Circle(x+6, y, 5, "fill:"+fill)
		}
		style := "fill:#f8f8f2;font-family:monospace;font-size:13px"
		if !r.Node.Data.Published {
			style = "fill:#6272a4;font-family:monospace;font-size:13px;font-style:italic"
		}
		canvas.Text(x+20, y+4, r.Node.Label, style)
	}
	canvas.End()

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing svg: %w", err)
	}
	return nil
}

// SaveSVGToFile writes the SVG outline to filename.
func SaveSVGToFile(tree *navtree.Tree, filename string, exp navtree.Expansion) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := WriteSVG(f, tree, exp); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
