// Package session ties the workflow core together for one editor.
//
// A [Session] owns a graph store, its undo/redo history, the node type
// registry and a notifier. Presentation layers (the CLI, the local API
// server, the terminal table) translate user gestures into Session calls
// and never touch the graph directly:
//
//	sess := session.New(session.Options{Notifier: observability.NewLogNotifier(logger)})
//	defer sess.Close()
//
//	n, err := sess.AddNode(ctx, nodetype.KindTask, workflow.Position{X: 100, Y: 100})
//	err = sess.SubmitConfig(ctx, n.ID, nodetype.Fields{"assignee": "ana"})
//	sess.Undo(ctx)
//
// # History
//
// Structural edits and data edits are recorded as history entries.
// Cosmetic edits (moving, selecting) are offered to the history manager's
// reconciliation, which ignores them because node and edge IDs do not
// change. Undo and redo replace the whole graph with the restored snapshot.
//
// # Persistence
//
// A session's full state, history included, can be written to a [Store].
// [FileStore] keeps one msgpack+zstd file per workspace so that a sequence
// of CLI invocations behaves like one editing session.
//
// # Concurrency
//
// Session is not safe for concurrent use. Callers that share a session
// between goroutines, such as the HTTP server, must serialize access.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/flowcraft/pkg/history"
	flowio "github.com/matzehuels/flowcraft/pkg/io"
	"github.com/matzehuels/flowcraft/pkg/nodetype"
	"github.com/matzehuels/flowcraft/pkg/observability"
	"github.com/matzehuels/flowcraft/pkg/workflow"
)

// Sentinel errors for session operations.
var (
	// ErrClosed is returned by operations on a session after Close.
	ErrClosed = errors.New("session closed")

	// ErrNotFound is returned by stores when a workspace does not exist.
	ErrNotFound = errors.New("not found")
)

// Options configures a new Session. The zero value is usable.
type Options struct {
	// ID names the session; empty generates a UUID.
	ID string

	// Registry supplies node defaults and validation. Nil uses a fresh
	// nodetype.NewRegistry().
	Registry *nodetype.Registry

	// Notifier receives outcomes. Nil discards them.
	Notifier observability.Notifier

	// HistoryLimit caps the number of undo steps; 0 is unlimited.
	HistoryLimit int

	// Import controls how strictly Import checks documents.
	Import flowio.Options

	// RecordImports makes every successful import an undo step. By default
	// an import is reconciled into history like any external replacement:
	// it becomes the current state and past and future are kept.
	RecordImports bool
}

// Session is one editing session over a workflow graph.
type Session struct {
	id         string
	graph      *workflow.Graph
	history    *history.Manager
	registry   *nodetype.Registry
	notify     observability.Notifier
	importOpts flowio.Options
	recordImps bool

	createdAt time.Time
	updatedAt time.Time
	closed    bool
}

// New creates a session holding an empty graph.
func New(opts Options) *Session {
	return newSession(opts, workflow.Snapshot{}, history.State{}, time.Time{})
}

func newSession(opts Options, graph workflow.Snapshot, st history.State, created time.Time) *Session {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Registry == nil {
		opts.Registry = nodetype.NewRegistry()
	}
	if opts.Notifier == nil {
		opts.Notifier = observability.Nop{}
	}
	now := time.Now().UTC()
	if created.IsZero() {
		created = now
	}
	return &Session{
		id:         opts.ID,
		graph:      workflow.FromSnapshot(graph),
		history:    history.Restore(st, history.WithLimit(opts.HistoryLimit)),
		registry:   opts.Registry,
		notify:     opts.Notifier,
		importOpts: opts.Import,
		recordImps: opts.RecordImports,
		createdAt:  created,
		updatedAt:  now,
	}
}

// Close releases the session. Later mutations fail with ErrClosed or report
// false. Close is idempotent.
func (s *Session) Close() error {
	s.closed = true
	return nil
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// Registry returns the node type registry in use.
func (s *Session) Registry() *nodetype.Registry { return s.registry }

// Snapshot returns a copy of the current graph.
func (s *Session) Snapshot() workflow.Snapshot { return s.graph.Snapshot() }

// Node returns a copy of the node with the given ID.
func (s *Session) Node(id string) (workflow.Node, bool) { return s.graph.Node(id) }

// Nodes returns copies of all nodes in insertion order.
func (s *Session) Nodes() []workflow.Node { return s.graph.Nodes() }

// Edges returns copies of all edges in insertion order.
func (s *Session) Edges() []workflow.Edge { return s.graph.Edges() }

// Filter returns the nodes matching q, for table views.
func (s *Session) Filter(q workflow.Query) []workflow.Node { return s.graph.Filter(q) }

// Validate reports structural problems such as dangling edges.
func (s *Session) Validate() error { return s.graph.Validate() }

// CanUndo reports whether Undo would change anything.
func (s *Session) CanUndo() bool { return s.history.CanUndo() }

// CanRedo reports whether Redo would change anything.
func (s *Session) CanRedo() bool { return s.history.CanRedo() }

// History returns the undo and redo stacks, oldest undo step first and next
// redo step first.
func (s *Session) History() (past, future []workflow.Snapshot) {
	return s.history.Past(), s.history.Future()
}

// UpdatedAt returns when the session last changed.
func (s *Session) UpdatedAt() time.Time { return s.updatedAt }
