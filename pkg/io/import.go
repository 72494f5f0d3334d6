package io

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	ferrors "github.com/matzehuels/flowcraft/pkg/errors"
	"github.com/matzehuels/flowcraft/pkg/nodetype"
	"github.com/matzehuels/flowcraft/pkg/workflow"
)

// invalidData is the message carried by every rejected import.
const invalidData = "Invalid workflow data"

// Options controls how strictly imports are checked.
type Options struct {
	// RejectDanglingEdges fails the import when an edge names a source or
	// target that is not among the imported nodes.
	RejectDanglingEdges bool
}

// ReadJSON reads an export document from r and repairs it.
//
// The whole input is read before anything is decoded. ReadJSON does not
// close r.
func ReadJSON(r io.Reader, opts Options) (workflow.Snapshot, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return workflow.Snapshot{}, fmt.Errorf("read: %w", err)
	}
	return Decode(b, opts)
}

// ImportFile reads and repairs the export document at path.
//
// Cancellation of ctx is honored up to the point the snapshot is returned;
// a cancelled import returns ctx.Err() and no snapshot.
func ImportFile(ctx context.Context, path string, opts Options) (workflow.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return workflow.Snapshot{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return workflow.Snapshot{}, fmt.Errorf("open %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return workflow.Snapshot{}, err
	}
	return Decode(b, opts)
}

// Decode parses b as JSON and passes the result to [Repair].
// Unparsable input fails with [ferrors.ErrCodeInvalidFormat].
func Decode(b []byte, opts Options) (workflow.Snapshot, error) {
	var payload any
	if err := json.Unmarshal(b, &payload); err != nil {
		return workflow.Snapshot{}, ferrors.Wrap(ferrors.ErrCodeInvalidFormat, err, invalidData)
	}
	return Repair(payload, opts)
}

// Repair turns a decoded JSON value into a snapshot, filling in missing IDs,
// types, positions and data.
//
// payload must be an object whose "nodes" and "edges" members are arrays;
// otherwise Repair fails with [ferrors.ErrCodeInvalidFormat] and returns no
// partial result. Array entries that are not objects are treated as empty
// objects and repaired like any other.
func Repair(payload any, opts Options) (workflow.Snapshot, error) {
	doc, ok := payload.(map[string]any)
	if !ok {
		return workflow.Snapshot{}, ferrors.New(ferrors.ErrCodeInvalidFormat, invalidData)
	}
	rawNodes, ok := doc["nodes"].([]any)
	if !ok {
		return workflow.Snapshot{}, ferrors.New(ferrors.ErrCodeInvalidFormat, "%s: nodes must be an array", invalidData)
	}
	rawEdges, ok := doc["edges"].([]any)
	if !ok {
		return workflow.Snapshot{}, ferrors.New(ferrors.ErrCodeInvalidFormat, "%s: edges must be an array", invalidData)
	}

	ids := newIDSet()
	s := workflow.Snapshot{
		Nodes: make([]workflow.Node, 0, len(rawNodes)),
		Edges: make([]workflow.Edge, 0, len(rawEdges)),
	}
	for _, raw := range rawNodes {
		s.Nodes = append(s.Nodes, repairNode(object(raw), ids))
	}

	edgeIDs := newIDSet()
	for _, raw := range rawEdges {
		s.Edges = append(s.Edges, repairEdge(object(raw), edgeIDs))
	}

	if opts.RejectDanglingEdges {
		if err := checkDangling(s); err != nil {
			return workflow.Snapshot{}, err
		}
	}
	return s, nil
}

func repairNode(m map[string]any, ids *idSet) workflow.Node {
	kind := nodetype.Kind(text(m["type"]))
	if kind == "" {
		kind = nodetype.KindDefault
	}

	id := text(m["id"])
	if id == "" {
		id = ids.fresh("node")
	}
	ids.add(id)

	data, _ := m["data"].(map[string]any)

	return workflow.Node{
		ID:       id,
		Type:     kind,
		Position: position(m["position"]),
		Data:     nodetype.Decode(kind, nodetype.Fields(data)),
		Selected: m["selected"] == true,
	}
}

func repairEdge(m map[string]any, ids *idSet) workflow.Edge {
	id := text(m["id"])
	if id == "" {
		id = ids.fresh("edge")
	}
	ids.add(id)

	return workflow.Edge{
		ID:           id,
		Source:       text(m["source"]),
		Target:       text(m["target"]),
		SourceHandle: text(m["sourceHandle"]),
		TargetHandle: text(m["targetHandle"]),
		Selected:     m["selected"] == true,
	}
}

func checkDangling(s workflow.Snapshot) error {
	nodes := make(map[string]bool, len(s.Nodes))
	for _, n := range s.Nodes {
		nodes[n.ID] = true
	}
	for _, e := range s.Edges {
		if !nodes[e.Source] || !nodes[e.Target] {
			return ferrors.Wrap(ferrors.ErrCodeInvalidFormat, workflow.ErrDanglingEdge,
				"%s: edge %s (%s -> %s)", invalidData, e.ID, e.Source, e.Target)
		}
	}
	return nil
}

// =============================================================================
// Value coercion
// =============================================================================

func object(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// text returns strings as-is and renders numbers without a fraction, the way
// an ID of 7 would be written. Anything else is empty.
func text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}

func position(v any) workflow.Position {
	m, ok := v.(map[string]any)
	if !ok {
		return workflow.Position{}
	}
	x, _ := m["x"].(float64)
	y, _ := m["y"].(float64)
	return workflow.Position{X: x, Y: y}
}

// idSet hands out synthesized IDs that do not collide with anything seen in
// the same payload.
type idSet struct{ seen map[string]bool }

func newIDSet() *idSet { return &idSet{seen: make(map[string]bool)} }

func (s *idSet) add(id string) { s.seen[id] = true }

func (s *idSet) fresh(prefix string) string {
	for {
		id := workflow.SynthesizeID(prefix)
		if !s.seen[id] {
			return id
		}
	}
}
