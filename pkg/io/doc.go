// Package io provides JSON import and export for workflow documents.
//
// # Overview
//
// A workflow is exported as a single JSON object holding every node and
// edge plus a small metadata block:
//
//	{
//	  "nodes": [
//	    {"id": "task-1718000000000", "type": "task",
//	     "position": {"x": 120, "y": 80},
//	     "data": {"name": "Review", "assignee": "ana", "status": "pending"}}
//	  ],
//	  "edges": [
//	    {"id": "edge-1718000000100", "source": "cond-1", "target": "task-1718000000000",
//	     "sourceHandle": "true"}
//	  ],
//	  "metadata": {"exportedAt": "2024-06-10T08:00:00.000Z", "version": "1.0.0"}
//	}
//
// # Import and Repair
//
// Import is tolerant. The payload must be a JSON object with "nodes" and
// "edges" arrays; anything else fails with [errors.ErrCodeInvalidFormat]
// ("Invalid workflow data"). Within those arrays, missing pieces are filled
// in rather than rejected:
//
//   - node without an id: "node-<unix millis>-<9 random chars>"
//   - edge without an id: "edge-<unix millis>-<9 random chars>"
//   - node without a type: "default"
//   - node without a position: {x: 0, y: 0}
//   - node without data: {}
//
// Unknown keys inside data are preserved. Edge endpoints are not checked by
// default, so an imported document may contain edges whose source or target
// is absent; set [Options.RejectDanglingEdges] to refuse such documents.
//
// Use [ReadJSON] to read from any io.Reader, [ImportFile] to read a file, or
// [Decode] and [Repair] when the payload is already in memory. All of them
// return a [workflow.Snapshot]; nothing is applied to a graph here, so a
// failed import leaves the caller's state untouched.
//
// # Export
//
// [Export] captures a snapshot into a [Document] stamped with the current
// time and [FormatVersion]. [WriteJSON] and [ExportFile] encode it with two
// space indentation.
//
// [errors.ErrCodeInvalidFormat]: github.com/matzehuels/flowcraft/pkg/errors.ErrCodeInvalidFormat
package io
