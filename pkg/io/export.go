package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/matzehuels/flowcraft/pkg/workflow"
)

// FormatVersion is written into every exported document.
const FormatVersion = "1.0.0"

// timestampLayout is ISO 8601 in UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// now is swapped in tests.
var now = time.Now

// Document is the export file format.
type Document struct {
	Nodes    []workflow.Node `json:"nodes"`
	Edges    []workflow.Edge `json:"edges"`
	Metadata Metadata        `json:"metadata"`
}

// Metadata describes when and in which format a document was exported.
type Metadata struct {
	ExportedAt string `json:"exportedAt"`
	Version    string `json:"version"`
}

// Snapshot returns the document's nodes and edges.
func (d Document) Snapshot() workflow.Snapshot {
	return workflow.Snapshot{Nodes: d.Nodes, Edges: d.Edges}.Clone()
}

// Export captures s into a Document stamped with the current time.
// Node and edge slices are never nil, so they always encode as arrays.
func Export(s workflow.Snapshot) Document {
	s = s.Clone()
	if s.Nodes == nil {
		s.Nodes = []workflow.Node{}
	}
	if s.Edges == nil {
		s.Edges = []workflow.Edge{}
	}
	return Document{
		Nodes: s.Nodes,
		Edges: s.Edges,
		Metadata: Metadata{
			ExportedAt: now().UTC().Format(timestampLayout),
			Version:    FormatVersion,
		},
	}
}

// WriteJSON encodes doc as indented JSON and writes it to w.
// The output can be re-imported with [ReadJSON].
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportFile writes s as an export document to path.
// This is a convenience wrapper around [Export] and [WriteJSON].
func ExportFile(path string, s workflow.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(f, Export(s)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
