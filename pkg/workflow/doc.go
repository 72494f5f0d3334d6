// Package workflow provides the graph store for workflow documents.
//
// # Overview
//
// A [Graph] owns an ordered collection of [Node] values and [Edge] values and
// enforces the structural invariants every other package relies on:
//
//   - Node IDs are unique and non-empty
//   - Edge IDs are unique
//   - Every edge's source and target name an existing node
//
// The last invariant is kept by cascade delete: [Graph.DeleteNode] removes
// the node and every incident edge in one call. [Graph.AddEdge] refuses
// unknown endpoints. [Graph.Replace] is the one exception; it installs
// whatever it is given, which is how imports land. [Graph.Validate] reports
// any violations afterwards.
//
// # Mutations
//
//	g := workflow.New()
//	g.AddNode(workflow.Node{ID: "task-1", Type: nodetype.KindTask, Data: reg.Defaults(nodetype.KindTask)})
//	g.UpdateNode("task-1", nodetype.Fields{"status": "completed"}) // merge patch
//	g.AddEdge(workflow.Connection{Source: "cond-1", Target: "task-1", SourceHandle: "true"})
//	g.DeleteNode("task-1") // also removes the edge
//
// Updates and deletes that name an unknown ID are no-ops that report false.
//
// # Snapshots
//
// [Graph.Snapshot] captures nodes and edges by value. Snapshots are what the
// history manager stores and what export serializes.
//
// # Concurrency
//
// Graph is not safe for concurrent use. A session owns one graph and applies
// events to it one at a time.
package workflow
