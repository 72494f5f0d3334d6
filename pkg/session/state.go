package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matzehuels/flowcraft/pkg/history"
	"github.com/matzehuels/flowcraft/pkg/workflow"
)

// State is everything needed to resume a session.
//
// Graph and History.Current usually agree, but cosmetic edits such as
// moves only reach Graph, so both are kept.
type State struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Graph     workflow.Snapshot
	History   history.State
}

// Store is the interface for workspace storage backends.
type Store interface {
	// Load retrieves a saved state. It returns an error wrapping
	// ErrNotFound if the workspace does not exist.
	Load(ctx context.Context, id string) (*State, error)

	// Save stores a state under its ID, replacing any previous version.
	Save(ctx context.Context, st *State) error

	// Delete removes a workspace. Deleting a missing workspace is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of all stored workspaces, sorted.
	List(ctx context.Context) ([]string, error)
}

// State captures the session for persistence.
func (s *Session) State() *State {
	return &State{
		ID:        s.id,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
		Graph:     s.graph.Snapshot(),
		History:   s.history.State(),
	}
}

// Restore creates a session from a saved state. opts.ID is ignored in
// favour of st.ID.
func Restore(st *State, opts Options) *Session {
	opts.ID = st.ID
	s := newSession(opts, st.Graph, st.History, st.CreatedAt)
	if !st.UpdatedAt.IsZero() {
		s.updatedAt = st.UpdatedAt
	}
	return s
}

// Open loads workspace id from store, or starts an empty session with that
// ID when the store has none.
func Open(ctx context.Context, store Store, id string, opts Options) (*Session, error) {
	st, err := store.Load(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		opts.ID = id
		return New(opts), nil
	case err != nil:
		return nil, fmt.Errorf("open workspace %s: %w", id, err)
	}
	return Restore(st, opts), nil
}

// Persist writes the session's state to store.
func (s *Session) Persist(ctx context.Context, store Store) error {
	if s.closed {
		return ErrClosed
	}
	if err := store.Save(ctx, s.State()); err != nil {
		return fmt.Errorf("save workspace %s: %w", s.id, err)
	}
	return nil
}
