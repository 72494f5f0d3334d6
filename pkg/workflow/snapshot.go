package workflow

import (
	"slices"

	"github.com/matzehuels/flowcraft/pkg/nodetype"
)

// Snapshot is a (nodes, edges) pair captured by value. Taking a snapshot
// copies node data, so later edits to the graph never reach it.
type Snapshot struct {
	Nodes []Node
	Edges []Edge
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Nodes: make([]Node, len(s.Nodes)),
		Edges: slices.Clone(s.Edges),
	}
	for i, n := range s.Nodes {
		out.Nodes[i] = n.Clone()
	}
	return out
}

// NodeIDs returns the sorted IDs of the snapshot's nodes.
func (s Snapshot) NodeIDs() []string {
	ids := make([]string, len(s.Nodes))
	for i, n := range s.Nodes {
		ids[i] = n.ID
	}
	slices.Sort(ids)
	return ids
}

// EdgeIDs returns the sorted IDs of the snapshot's edges.
func (s Snapshot) EdgeIDs() []string {
	ids := make([]string, len(s.Edges))
	for i, e := range s.Edges {
		ids[i] = e.ID
	}
	slices.Sort(ids)
	return ids
}

// SameIdentity reports whether s and o hold the same sets of node and edge
// IDs. Positions, selection flags and data are ignored.
func (s Snapshot) SameIdentity(o Snapshot) bool {
	return slices.Equal(s.NodeIDs(), o.NodeIDs()) && slices.Equal(s.EdgeIDs(), o.EdgeIDs())
}

// Equal reports whether s and o hold the same nodes and edges in the same
// order, including positions, selection and data.
func (s Snapshot) Equal(o Snapshot) bool {
	if len(s.Nodes) != len(o.Nodes) || !slices.Equal(s.Edges, o.Edges) {
		return false
	}
	for i := range s.Nodes {
		a, b := s.Nodes[i], o.Nodes[i]
		if a.ID != b.ID || a.Type != b.Type || a.Position != b.Position || a.Selected != b.Selected {
			return false
		}
		if !nodetype.Equal(a.Data, b.Data) {
			return false
		}
	}
	return true
}
