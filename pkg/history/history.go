// Package history provides linear undo/redo over workflow snapshots.
//
// A [Manager] keeps three sequences: past (oldest first), current, and
// future (next to redo first). Saving a new state discards the redo branch;
// there is no branching or merging.
//
// State that changes outside of [Manager.Save], such as an import or a node
// being dragged, is offered to [Manager.Reconcile]. The manager adopts it
// only when the set of node IDs or edge IDs differs from current, so
// cosmetic changes never create history entries and never clear redo.
package history

import (
	"github.com/matzehuels/flowcraft/pkg/workflow"
)

// Manager holds the undo/redo stacks.
// The zero value is not usable - use New. Manager is not safe for
// concurrent use.
type Manager struct {
	past    []workflow.Snapshot
	current workflow.Snapshot
	future  []workflow.Snapshot

	// limit caps len(past); 0 means unlimited.
	limit int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLimit caps the number of undo steps kept. When the cap is exceeded the
// oldest entries are dropped. A limit <= 0 means unlimited.
func WithLimit(n int) Option {
	return func(m *Manager) {
		if n < 0 {
			n = 0
		}
		m.limit = n
	}
}

// New creates a manager whose current state is initial, with empty past and
// future.
func New(initial workflow.Snapshot, opts ...Option) *Manager {
	m := &Manager{current: initial.Clone()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Save records s as the new current state. The previous current moves to
// the end of past and future is cleared.
func (m *Manager) Save(s workflow.Snapshot) {
	m.past = append(m.past, m.current)
	m.current = s.Clone()
	m.future = nil
	m.trim()
}

// Undo steps back one state. It reports false, changing nothing, when past
// is empty.
func (m *Manager) Undo() bool {
	if len(m.past) == 0 {
		return false
	}
	last := len(m.past) - 1
	previous := m.past[last]
	m.past = m.past[:last]
	m.future = append([]workflow.Snapshot{m.current}, m.future...)
	m.current = previous
	return true
}

// Redo steps forward one state. It reports false, changing nothing, when
// future is empty.
func (m *Manager) Redo() bool {
	if len(m.future) == 0 {
		return false
	}
	next := m.future[0]
	m.future = m.future[1:]
	m.past = append(m.past, m.current)
	m.current = next
	m.trim()
	return true
}

// Reconcile offers an externally produced state. It is adopted as current,
// leaving past and future alone, only if its node-ID set or edge-ID set
// differs from current. Reconcile reports whether the state was adopted.
//
// Edits that change only data, positions or selection are invisible here;
// route data edits through Save.
func (m *Manager) Reconcile(external workflow.Snapshot) bool {
	if m.current.SameIdentity(external) {
		return false
	}
	m.current = external.Clone()
	return true
}

// Current returns a copy of the current state.
func (m *Manager) Current() workflow.Snapshot { return m.current.Clone() }

// CanUndo reports whether Undo would change anything.
func (m *Manager) CanUndo() bool { return len(m.past) > 0 }

// CanRedo reports whether Redo would change anything.
func (m *Manager) CanRedo() bool { return len(m.future) > 0 }

// Depth returns the lengths of past and future.
func (m *Manager) Depth() (past, future int) { return len(m.past), len(m.future) }

// Past returns copies of the past states, oldest first.
func (m *Manager) Past() []workflow.Snapshot { return cloneAll(m.past) }

// Future returns copies of the future states, next to redo first.
func (m *Manager) Future() []workflow.Snapshot { return cloneAll(m.future) }

// State is the complete content of a Manager, for persistence.
type State struct {
	Past    []workflow.Snapshot
	Current workflow.Snapshot
	Future  []workflow.Snapshot
}

// State returns a copy of the manager's stacks.
func (m *Manager) State() State {
	return State{Past: m.Past(), Current: m.Current(), Future: m.Future()}
}

// Restore creates a manager from a saved State.
func Restore(s State, opts ...Option) *Manager {
	m := &Manager{
		past:    cloneAll(s.Past),
		current: s.Current.Clone(),
		future:  cloneAll(s.Future),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.trim()
	return m
}

func (m *Manager) trim() {
	if m.limit > 0 && len(m.past) > m.limit {
		m.past = append([]workflow.Snapshot(nil), m.past[len(m.past)-m.limit:]...)
	}
}

func cloneAll(in []workflow.Snapshot) []workflow.Snapshot {
	if len(in) == 0 {
		return nil
	}
	out := make([]workflow.Snapshot, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}
