package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	ferrors "github.com/matzehuels/flowcraft/pkg/errors"
	flowio "github.com/matzehuels/flowcraft/pkg/io"
	"github.com/matzehuels/flowcraft/pkg/nodetype"
	"github.com/matzehuels/flowcraft/pkg/workflow"
)

// =============================================================================
// Graph edits
// =============================================================================

// AddNode creates a node of the given kind at pos with the kind's default
// data and records it in history. The ID is "<kind>-<unix millis>"; if
// that ID is taken a random suffix is appended.
func (s *Session) AddNode(ctx context.Context, kind nodetype.Kind, pos workflow.Position) (workflow.Node, error) {
	if s.closed {
		return workflow.Node{}, ErrClosed
	}
	if !kind.Known() {
		return workflow.Node{}, ferrors.New(ferrors.ErrCodeInvalidKind, "unknown node type %q", kind)
	}

	id := workflow.NewNodeID(kind)
	if s.graph.HasNode(id) {
		id = workflow.SynthesizeID(string(kind))
	}
	n := workflow.Node{
		ID:       id,
		Type:     kind,
		Position: pos,
		Data:     s.registry.Defaults(kind),
	}
	if err := s.graph.AddNode(n); err != nil {
		return workflow.Node{}, ferrors.Wrap(ferrors.ErrCodeConflict, err, "add node %s", id)
	}
	s.record(ctx)
	s.notify.NodeAdded(ctx, n.ID, string(kind))
	return n.Clone(), nil
}

// SubmitConfig applies a config form submission to node id.
//
// The patch is merged over the node's current data and the result is
// checked against the node type's schema. On failure the node is left
// unchanged, the notifier hears about the offending fields, and the
// returned error is a *ferrors.ValidationError. On success the merged data
// is stored and recorded in history.
func (s *Session) SubmitConfig(ctx context.Context, id string, patch nodetype.Fields) error {
	if s.closed {
		return ErrClosed
	}
	n, ok := s.graph.Node(id)
	if !ok {
		return ferrors.New(ferrors.ErrCodeNodeNotFound, "node %s not found", id)
	}

	merged := nodetype.Merge(n.Data, patch)
	if err := s.registry.ValidateData(n.Type, merged); err != nil {
		var ve *ferrors.ValidationError
		if errors.As(err, &ve) {
			s.notify.ValidationFailed(ctx, id, ve.FieldNames())
		}
		return err
	}

	s.graph.SetData(id, merged)
	s.record(ctx)
	return nil
}

// UpdateNode merges patch into node id's data without validation, the way
// inline table edits do. It reports whether the node exists.
func (s *Session) UpdateNode(ctx context.Context, id string, patch nodetype.Fields) bool {
	if s.closed || !s.graph.UpdateNode(id, patch) {
		return false
	}
	s.record(ctx)
	return true
}

// DeleteNode removes node id and its edges. It reports whether the node
// existed.
func (s *Session) DeleteNode(ctx context.Context, id string) bool {
	if s.closed || !s.graph.DeleteNode(id) {
		return false
	}
	s.record(ctx)
	s.notify.NodeDeleted(ctx, id)
	return true
}

// Connect adds an edge for a connection made on the canvas.
func (s *Session) Connect(ctx context.Context, c workflow.Connection) (workflow.Edge, error) {
	if s.closed {
		return workflow.Edge{}, ErrClosed
	}
	e, err := s.graph.AddEdge(c)
	switch {
	case errors.Is(err, workflow.ErrUnknownSourceNode), errors.Is(err, workflow.ErrUnknownTargetNode):
		return workflow.Edge{}, ferrors.Wrap(ferrors.ErrCodeNodeNotFound, err, "connect %s -> %s", c.Source, c.Target)
	case err != nil:
		return workflow.Edge{}, ferrors.Wrap(ferrors.ErrCodeConflict, err, "connect %s -> %s", c.Source, c.Target)
	}
	s.record(ctx)
	s.notify.EdgeAdded(ctx, e.ID, e.Source, e.Target)
	return e, nil
}

// DeleteEdge removes edge id. It reports whether the edge existed.
func (s *Session) DeleteEdge(ctx context.Context, id string) bool {
	if s.closed || !s.graph.DeleteEdge(id) {
		return false
	}
	s.record(ctx)
	return true
}

// DeleteSelected removes every selected edge and every selected node along
// with its edges, as one history entry. It returns how many nodes and edges
// were selected; nothing happens when the selection is empty.
func (s *Session) DeleteSelected(ctx context.Context) (nodes, edges int) {
	if s.closed {
		return 0, 0
	}
	nodeIDs := s.graph.SelectedNodeIDs()
	edgeIDs := s.graph.SelectedEdgeIDs()
	if len(nodeIDs) == 0 && len(edgeIDs) == 0 {
		return 0, 0
	}
	for _, id := range edgeIDs {
		s.graph.DeleteEdge(id)
	}
	for _, id := range nodeIDs {
		s.graph.DeleteNode(id)
	}
	s.record(ctx)
	s.notify.SelectionDeleted(ctx, len(nodeIDs), len(edgeIDs))
	return len(nodeIDs), len(edgeIDs)
}

// =============================================================================
// Cosmetic edits
// =============================================================================

// MoveNode changes node id's position. Moves are not undoable.
func (s *Session) MoveNode(ctx context.Context, id string, pos workflow.Position) bool {
	if s.closed || !s.graph.MoveNode(id, pos) {
		return false
	}
	s.reconcile()
	return true
}

// Select sets the selection flag of the node or edge with the given ID.
// Node IDs are looked up first.
func (s *Session) Select(ctx context.Context, id string, selected bool) bool {
	if s.closed {
		return false
	}
	ok := s.graph.SelectNode(id, selected) || s.graph.SelectEdge(id, selected)
	if ok {
		s.reconcile()
	}
	return ok
}

// ClearSelection deselects everything.
func (s *Session) ClearSelection(ctx context.Context) {
	if s.closed {
		return
	}
	s.graph.ClearSelection()
	s.reconcile()
}

// =============================================================================
// History
// =============================================================================

// Undo restores the previous state. It reports false when there is nothing
// to undo.
func (s *Session) Undo(ctx context.Context) bool {
	if s.closed || !s.history.Undo() {
		return false
	}
	s.restore(ctx)
	return true
}

// Redo re-applies the most recently undone state. It reports false when
// there is nothing to redo.
func (s *Session) Redo(ctx context.Context) bool {
	if s.closed || !s.history.Redo() {
		return false
	}
	s.restore(ctx)
	return true
}

// =============================================================================
// Import and export
// =============================================================================

// Import replaces the graph with the document read from r.
//
// The whole document is read and repaired before anything changes; on any
// failure, including cancellation of ctx, the graph is untouched. The
// imported graph is offered to history.Reconcile, so it becomes the current
// state without touching undo or redo, unless Options.RecordImports is set.
func (s *Session) Import(ctx context.Context, r io.Reader) error {
	if s.closed {
		return ErrClosed
	}
	snap, err := flowio.ReadJSON(r, s.importOpts)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.notify.ImportFailed(ctx, err)
		return fmt.Errorf("import: %w", err)
	}

	s.graph.Replace(snap.Nodes, snap.Edges)
	if s.recordImps {
		s.record(ctx)
	} else {
		s.reconcile()
	}
	s.notify.Imported(ctx, len(snap.Nodes), len(snap.Edges))
	return nil
}

// Export writes the current graph to w as an export document.
func (s *Session) Export(ctx context.Context, w io.Writer) error {
	snap := s.graph.Snapshot()
	if err := flowio.WriteJSON(w, flowio.Export(snap)); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	s.notify.Exported(ctx, len(snap.Nodes), len(snap.Edges))
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// record saves the graph as a new history entry.
func (s *Session) record(ctx context.Context) {
	s.history.Save(s.graph.Snapshot())
	s.touch()
	s.notify.HistoryChanged(ctx, s.history.CanUndo(), s.history.CanRedo())
}

// reconcile offers a cosmetic change to history. The graph stays the
// source of truth for positions and selection either way.
func (s *Session) reconcile() {
	s.history.Reconcile(s.graph.Snapshot())
	s.touch()
}

func (s *Session) restore(ctx context.Context) {
	cur := s.history.Current()
	s.graph.Replace(cur.Nodes, cur.Edges)
	s.touch()
	s.notify.HistoryChanged(ctx, s.history.CanUndo(), s.history.CanRedo())
}

func (s *Session) touch() { s.updatedAt = time.Now().UTC() }
