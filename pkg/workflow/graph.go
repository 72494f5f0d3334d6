package workflow

import (
	"errors"
	"fmt"
	"slices"

	"github.com/matzehuels/flowcraft/pkg/nodetype"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is
	// empty. All nodes must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with the
	// same ID already exists in the graph. Node IDs must be unique.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrDuplicateEdgeID is returned by [Graph.AddEdge] when an explicit edge
	// ID is already in use.
	ErrDuplicateEdgeID = errors.New("duplicate edge ID")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the source
	// node does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the target
	// node does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrDanglingEdge is reported by [Graph.Validate] for an edge whose
	// source or target is not in the graph. This can only happen after a
	// wholesale [Graph.Replace], typically from an import.
	ErrDanglingEdge = errors.New("edge references a missing node")
)

// Graph is the canonical node and edge collection of a workflow.
//
// Nodes and edges keep insertion order, which is the order the canvas draws
// them in and the order export writes them in. Deleting a node removes every
// edge incident to it in the same call.
//
// The zero value is not usable - use New to create a valid Graph instance.
// Graph is not safe for concurrent use without external synchronization.
type Graph struct {
	nodes []Node
	edges []Edge
	index map[string]int // node ID -> position in nodes
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{index: make(map[string]int)}
}

// FromSnapshot creates a graph holding a copy of s.
func FromSnapshot(s Snapshot) *Graph {
	g := New()
	g.Replace(s.Nodes, s.Edges)
	return g
}

// AddNode appends a node to the graph. The caller supplies the ID, usually
// from [NewNodeID]. Returns ErrInvalidNodeID if the ID is empty, or
// ErrDuplicateNodeID if it is already in use. A nil Data is replaced by the
// empty variant for the node's type.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := g.index[n.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
	}
	if n.Data == nil {
		n.Data = nodetype.Empty(n.Type)
	}
	g.index[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, n)
	return nil
}

// UpdateNode merges patch into the data of node id: supplied keys overwrite,
// unspecified keys are retained. It reports whether the node exists; an
// unknown id is a no-op, not an error.
func (g *Graph) UpdateNode(id string, patch nodetype.Fields) bool {
	i, ok := g.index[id]
	if !ok {
		return false
	}
	g.nodes[i].Data = nodetype.Merge(g.nodes[i].Data, patch)
	return true
}

// SetData replaces the data of node id wholesale. The variant must match
// the node's type; a mismatching variant is re-decoded into the right one.
func (g *Graph) SetData(id string, d nodetype.Data) bool {
	i, ok := g.index[id]
	if !ok {
		return false
	}
	n := &g.nodes[i]
	if d == nil || d.Kind() != nodetype.Empty(n.Type).Kind() {
		var f nodetype.Fields
		if d != nil {
			f = d.Fields()
		}
		d = nodetype.Decode(n.Type, f)
	}
	n.Data = d
	return true
}

// DeleteNode removes the node and every edge whose source or target is id.
// It reports whether the node existed; deleting twice is harmless.
func (g *Graph) DeleteNode(id string) bool {
	i, ok := g.index[id]
	if !ok {
		// Still sweep edges so a graph loaded with dangling edges heals.
		g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool { return e.Touches(id) })
		return false
	}
	g.nodes = slices.Delete(g.nodes, i, i+1)
	g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool { return e.Touches(id) })
	g.reindex()
	return true
}

// AddEdge appends an edge for c and returns it. An empty c.ID is replaced by
// a synthesized one. Self-loops and several edges between the same pair of
// nodes are allowed; a condition node routes its true and false branches
// through separate handles.
//
// Returns ErrUnknownSourceNode or ErrUnknownTargetNode if an endpoint does
// not exist, and ErrDuplicateEdgeID if c.ID is already in use.
func (g *Graph) AddEdge(c Connection) (Edge, error) {
	if _, ok := g.index[c.Source]; !ok {
		return Edge{}, fmt.Errorf("%w: %s", ErrUnknownSourceNode, c.Source)
	}
	if _, ok := g.index[c.Target]; !ok {
		return Edge{}, fmt.Errorf("%w: %s", ErrUnknownTargetNode, c.Target)
	}
	id := c.ID
	if id == "" {
		id = g.freshEdgeID()
	} else if g.hasEdge(id) {
		return Edge{}, fmt.Errorf("%w: %s", ErrDuplicateEdgeID, id)
	}
	e := Edge{
		ID:           id,
		Source:       c.Source,
		Target:       c.Target,
		SourceHandle: c.SourceHandle,
		TargetHandle: c.TargetHandle,
	}
	g.edges = append(g.edges, e)
	return e, nil
}

// DeleteEdge removes the edge with the given id. It reports whether the edge
// existed; deleting twice is harmless.
func (g *Graph) DeleteEdge(id string) bool {
	before := len(g.edges)
	g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool { return e.ID == id })
	return len(g.edges) != before
}

// Replace swaps the whole graph contents for copies of nodes and edges.
// Nothing is validated: this is how imports and history restores land, and
// an import may legitimately carry dangling edges. Later nodes with an ID
// seen before shadow the earlier ones in lookups.
func (g *Graph) Replace(nodes []Node, edges []Edge) {
	g.nodes = make([]Node, len(nodes))
	for i, n := range nodes {
		if n.Data == nil {
			n.Data = nodetype.Empty(n.Type)
		}
		g.nodes[i] = n.Clone()
	}
	g.edges = slices.Clone(edges)
	g.reindex()
}

// =============================================================================
// Cosmetic updates
// =============================================================================

// MoveNode sets the canvas position of node id.
func (g *Graph) MoveNode(id string, p Position) bool {
	i, ok := g.index[id]
	if !ok {
		return false
	}
	g.nodes[i].Position = p
	return true
}

// SelectNode sets the selection flag of node id.
func (g *Graph) SelectNode(id string, selected bool) bool {
	i, ok := g.index[id]
	if !ok {
		return false
	}
	g.nodes[i].Selected = selected
	return true
}

// SelectEdge sets the selection flag of edge id.
func (g *Graph) SelectEdge(id string, selected bool) bool {
	for i := range g.edges {
		if g.edges[i].ID == id {
			g.edges[i].Selected = selected
			return true
		}
	}
	return false
}

// ClearSelection deselects every node and edge, as a click on the empty
// pane does.
func (g *Graph) ClearSelection() {
	for i := range g.nodes {
		g.nodes[i].Selected = false
	}
	for i := range g.edges {
		g.edges[i].Selected = false
	}
}

// SelectedNodeIDs returns the IDs of selected nodes in graph order.
func (g *Graph) SelectedNodeIDs() []string {
	var ids []string
	for _, n := range g.nodes {
		if n.Selected {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// SelectedEdgeIDs returns the IDs of selected edges in graph order.
func (g *Graph) SelectedEdgeIDs() []string {
	var ids []string
	for _, e := range g.edges {
		if e.Selected {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// =============================================================================
// Queries
// =============================================================================

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i].Clone(), true
}

// Edge returns the edge with the given id.
func (g *Graph) Edge(id string) (Edge, bool) {
	for _, e := range g.edges {
		if e.ID == id {
			return e, true
		}
	}
	return Edge{}, false
}

// HasNode reports whether a node with the given id exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Nodes returns copies of all nodes in insertion order. Modifying them does
// not affect the graph.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.Clone()
	}
	return out
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// EdgesOf returns the edges incident to node id, in graph order.
func (g *Graph) EdgesOf(id string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Touches(id) {
			out = append(out, e)
		}
	}
	return out
}

// Snapshot captures the current contents by value.
func (g *Graph) Snapshot() Snapshot {
	return Snapshot{Nodes: g.Nodes(), Edges: g.Edges()}
}

// Validate checks the structural invariants: unique node IDs, unique edge
// IDs, and no edge pointing at a missing node. All violations are joined
// into the returned error.
func (g *Graph) Validate() error {
	var errs []error

	seen := make(map[string]bool, len(g.nodes))
	for _, n := range g.nodes {
		if n.ID == "" {
			errs = append(errs, ErrInvalidNodeID)
			continue
		}
		if seen[n.ID] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID))
		}
		seen[n.ID] = true
	}

	edgeSeen := make(map[string]bool, len(g.edges))
	for _, e := range g.edges {
		if edgeSeen[e.ID] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateEdgeID, e.ID))
		}
		edgeSeen[e.ID] = true
		if !seen[e.Source] || !seen[e.Target] {
			errs = append(errs, fmt.Errorf("%w: %s (%s -> %s)", ErrDanglingEdge, e.ID, e.Source, e.Target))
		}
	}

	return errors.Join(errs...)
}

func (g *Graph) reindex() {
	g.index = make(map[string]int, len(g.nodes))
	for i, n := range g.nodes {
		g.index[n.ID] = i
	}
}

func (g *Graph) hasEdge(id string) bool {
	for _, e := range g.edges {
		if e.ID == id {
			return true
		}
	}
	return false
}

func (g *Graph) freshEdgeID() string {
	for {
		id := SynthesizeID("edge")
		if !g.hasEdge(id) {
			return id
		}
	}
}
