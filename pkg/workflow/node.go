package workflow

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/flowcraft/pkg/nodetype"
)

// Position is a node's location on the canvas.
type Position struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Node is a typed unit of the workflow graph.
//
// Data is always the variant matching Type once the node is in a [Graph];
// AddNode fills in an empty variant when Data is nil.
type Node struct {
	ID       string
	Type     nodetype.Kind
	Position Position
	Data     nodetype.Data
	Selected bool // UI-only, never part of history identity
}

// Label returns the node's display name, falling back to its ID.
func (n Node) Label() string {
	if n.Data != nil && n.Data.Label() != "" {
		return n.Data.Label()
	}
	return n.ID
}

// Clone returns a copy of n whose data is independent of the original.
func (n Node) Clone() Node {
	n.Data = nodetype.Clone(n.Data)
	return n
}

type nodeJSON struct {
	ID       string          `json:"id"`
	Type     nodetype.Kind   `json:"type"`
	Position Position        `json:"position"`
	Data     nodetype.Fields `json:"data"`
	Selected bool            `json:"selected,omitempty"`
}

// MarshalJSON encodes the node in the export document shape.
func (n Node) MarshalJSON() ([]byte, error) {
	data := nodetype.Fields{}
	if n.Data != nil {
		data = n.Data.Fields()
	}
	return json.Marshal(nodeJSON{
		ID:       n.ID,
		Type:     n.Type,
		Position: n.Position,
		Data:     data,
		Selected: n.Selected,
	})
}

// UnmarshalJSON decodes a node and picks its data variant from the type tag.
// It performs no repair; see package io for tolerant decoding.
func (n *Node) UnmarshalJSON(b []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*n = Node{
		ID:       raw.ID,
		Type:     raw.Type,
		Position: raw.Position,
		Data:     nodetype.Decode(raw.Type, raw.Data),
		Selected: raw.Selected,
	}
	return nil
}

// Edge is a directed connection between two nodes. Nodes with several
// outputs, such as a condition's true and false branches, tell them apart
// by SourceHandle.
type Edge struct {
	ID           string `json:"id" msgpack:"id"`
	Source       string `json:"source" msgpack:"source"`
	Target       string `json:"target" msgpack:"target"`
	SourceHandle string `json:"sourceHandle,omitempty" msgpack:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty" msgpack:"targetHandle,omitempty"`
	Selected     bool   `json:"selected,omitempty" msgpack:"selected,omitempty"`
}

// Touches reports whether the edge starts or ends at nodeID.
func (e Edge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

// Connection is a request to connect two nodes, as emitted by the canvas.
// ID may be empty, in which case one is synthesized.
type Connection struct {
	ID           string `json:"id,omitempty"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// =============================================================================
// Identifiers
// =============================================================================

// clock is swapped in tests.
var clock = time.Now

// NewNodeID returns the id given to nodes created from the node menu:
// the type tag followed by the current Unix time in milliseconds.
func NewNodeID(kind nodetype.Kind) string {
	return fmt.Sprintf("%s-%d", kind, clock().UnixMilli())
}

// SynthesizeID returns "<prefix>-<unix millis>-<suffix>" where suffix is nine
// random hex characters. It is used for nodes and edges that arrive without
// an id.
func SynthesizeID(prefix string) string {
	return prefix + "-" + strconv.FormatInt(clock().UnixMilli(), 10) + "-" + randomSuffix(9)
}

func randomSuffix(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}
