package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/flowcraft/pkg/nodetype"
	"github.com/matzehuels/flowcraft/pkg/workflow"
)

// Options configures diagram generation.
type Options struct {
	// Detailed includes the node type and non-empty data fields in node
	// labels. When false, only the node name is shown.
	Detailed bool

	// LeftToRight lays the graph out horizontally instead of top to bottom.
	LeftToRight bool
}

// fill colours per node type, matching the editor's node palette.
var fills = map[nodetype.Kind]string{
	nodetype.KindTask:         "#dbeafe",
	nodetype.KindCondition:    "#fef3c7",
	nodetype.KindNotification: "#ede9fe",
	nodetype.KindCalendar:     "#dcfce7",
	nodetype.KindDocument:     "#f1f5f9",
	nodetype.KindDatabase:     "#ccfbf1",
	nodetype.KindEmail:        "#fee2e2",
}

const defaultFill = "white"

// ToDOT converts a workflow snapshot to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG] or [RenderPNG].
func ToDOT(s workflow.Snapshot, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	if opts.LeftToRight {
		buf.WriteString("  rankdir=LR;\n")
	} else {
		buf.WriteString("  rankdir=TB;\n")
	}
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\", fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=11];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	present := make(map[string]bool, len(s.Nodes))
	for _, n := range s.Nodes {
		present[n.ID] = true
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(nodeAttrs(n, opts.Detailed), ", "))
	}

	buf.WriteString("\n")
	for _, e := range s.Edges {
		if !present[e.Source] || !present[e.Target] {
			continue
		}
		attrs := edgeAttrs(e)
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.Source, e.Target)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.Source, e.Target, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n workflow.Node, detailed bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, detailed))}
	fill, ok := fills[n.Type]
	if !ok {
		fill = defaultFill
		attrs = append(attrs, "style=\"rounded,filled,dashed\"")
	}
	attrs = append(attrs, fmt.Sprintf("fillcolor=%q", fill))
	if n.Type == nodetype.KindCondition {
		attrs = append(attrs, "shape=diamond", "style=\"filled\"")
	}
	if n.Selected {
		attrs = append(attrs, "penwidth=2.5")
	}
	return attrs
}

func fmtLabel(n workflow.Node, detailed bool) string {
	if !detailed || n.Data == nil {
		return n.Label()
	}

	f := n.Data.Fields()
	parts := []string{"type: " + string(n.Type)}
	for _, k := range f.Keys() {
		if k == "name" {
			continue
		}
		if v := f.String(k); v != "" && v != "false" {
			parts = append(parts, fmt.Sprintf("%s: %s", k, truncate(v, 40)))
		}
	}
	return n.Label() + "\n" + strings.Join(parts, "\n")
}

func edgeAttrs(e workflow.Edge) []string {
	var attrs []string
	switch e.SourceHandle {
	case "":
	case "true":
		attrs = append(attrs, "label=\"true\"", "color=\"#16a34a\"", "fontcolor=\"#16a34a\"")
	case "false":
		attrs = append(attrs, "label=\"false\"", "color=\"#dc2626\"", "fontcolor=\"#dc2626\"")
	default:
		attrs = append(attrs, fmt.Sprintf("label=%q", e.SourceHandle))
	}
	if e.Selected {
		attrs = append(attrs, "penwidth=2.5")
	}
	return attrs
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	out, err := renderDOT(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(out), nil
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return renderDOT(ctx, dot, graphviz.PNG)
}

func renderDOT(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the SVG scales with its
// container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
