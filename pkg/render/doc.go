// Package render draws workflow graphs as node-link diagrams.
//
// # Overview
//
// This package is the offline stand-in for the editor canvas: each node is a
// rounded box coloured by its type and labelled with its name, and edges are
// arrows. A condition's outgoing edges are labelled with the handle they
// leave from ("true" or "false").
//
// # Usage
//
// Convert a snapshot to DOT, then render it with Graphviz:
//
//	dot := render.ToDOT(sess.Snapshot(), render.Options{})
//	svg, err := render.RenderSVG(ctx, dot)
//	png, err := render.RenderPNG(ctx, dot)
//
// # DOT Format
//
// The [ToDOT] function produces Graphviz DOT source that can be:
//
//   - Rendered directly via [RenderSVG] or [RenderPNG]
//   - Saved and processed with external Graphviz tools
//
// Nodes are positioned by Graphviz, not by their canvas positions. Edges
// whose source or target is missing, which can happen after an import, are
// left out so that Graphviz does not invent placeholder nodes.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process rendering;
// no Graphviz installation is required.
package render
