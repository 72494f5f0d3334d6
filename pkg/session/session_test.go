package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/matzehuels/flowcraft/pkg/errors"
	flowio "github.com/matzehuels/flowcraft/pkg/io"
	"github.com/matzehuels/flowcraft/pkg/nodetype"
	"github.com/matzehuels/flowcraft/pkg/observability"
	"github.com/matzehuels/flowcraft/pkg/workflow"
)

// recorder captures notifications for assertions.
type recorder struct {
	observability.Nop
	added      []string
	invalid    [][]string
	imported   int
	failed     int
	exported   int
	selDeleted [2]int
}

func (r *recorder) NodeAdded(_ context.Context, id, _ string) { r.added = append(r.added, id) }
func (r *recorder) ValidationFailed(_ context.Context, _ string, fields []string) {
	r.invalid = append(r.invalid, fields)
}
func (r *recorder) Imported(context.Context, int, int) { r.imported++ }
func (r *recorder) ImportFailed(context.Context, error) { r.failed++ }
func (r *recorder) Exported(context.Context, int, int) { r.exported++ }
func (r *recorder) SelectionDeleted(_ context.Context, n, e int) {
	r.selDeleted = [2]int{n, e}
}

func newTestSession(t *testing.T) (*Session, *recorder) {
	t.Helper()
	rec := &recorder{}
	s := New(Options{Notifier: rec})
	t.Cleanup(func() { s.Close() })
	return s, rec
}

func addNode(t *testing.T, s *Session, kind nodetype.Kind) workflow.Node {
	t.Helper()
	n, err := s.AddNode(context.Background(), kind, workflow.Position{X: 100, Y: 100})
	require.NoError(t, err)
	return n
}

func TestAddNodeUsesDefaults(t *testing.T) {
	s, rec := newTestSession(t)

	n := addNode(t, s, nodetype.KindTask)

	assert.True(t, strings.HasPrefix(n.ID, "task-"))
	task, ok := n.Data.(*nodetype.Task)
	require.True(t, ok)
	assert.Equal(t, "New Task", task.Name)
	assert.Equal(t, nodetype.StatusPending, task.Status)
	assert.Equal(t, []string{n.ID}, rec.added)
	assert.True(t, s.CanUndo())
}

func TestAddNodeSameMillisecondGetsUniqueID(t *testing.T) {
	s, _ := newTestSession(t)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		n := addNode(t, s, nodetype.KindEmail)
		require.False(t, seen[n.ID], "duplicate id %s", n.ID)
		seen[n.ID] = true
	}
	assert.NoError(t, s.Validate())
}

func TestAddNodeRejectsUnknownKind(t *testing.T) {
	s, _ := newTestSession(t)
	_, err := s.AddNode(context.Background(), "webhook", workflow.Position{})
	assert.True(t, ferrors.Is(err, ferrors.ErrCodeInvalidKind))
	assert.Empty(t, s.Nodes())
}

func TestSubmitConfigValidation(t *testing.T) {
	s, rec := newTestSession(t)
	ctx := context.Background()
	n := addNode(t, s, nodetype.KindEmail)
	past, _ := s.History()

	err := s.SubmitConfig(ctx, n.ID, nodetype.Fields{"to": "not-an-email", "subject": "Hi", "body": "Hello"})
	require.Error(t, err)

	var ve *ferrors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.FieldNames(), "to")
	require.Len(t, rec.invalid, 1)

	got, _ := s.Node(n.ID)
	assert.True(t, nodetype.Equal(n.Data, got.Data), "stored data must be unchanged")
	pastAfter, _ := s.History()
	assert.Len(t, pastAfter, len(past))

	require.NoError(t, s.SubmitConfig(ctx, n.ID, nodetype.Fields{"to": "ana@example.com", "subject": "Hi", "body": "Hello"}))
	got, _ = s.Node(n.ID)
	email := got.Data.(*nodetype.Email)
	assert.Equal(t, "ana@example.com", email.To)
	assert.Equal(t, "New Email", email.Name)
}

func TestSubmitConfigUnknownNode(t *testing.T) {
	s, _ := newTestSession(t)
	err := s.SubmitConfig(context.Background(), "ghost", nodetype.Fields{"name": "x"})
	assert.True(t, ferrors.Is(err, ferrors.ErrCodeNodeNotFound))
}

func TestConnectAndCascade(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	cond := addNode(t, s, nodetype.KindCondition)
	task := addNode(t, s, nodetype.KindTask)

	e, err := s.Connect(ctx, workflow.Connection{Source: cond.ID, Target: task.ID, SourceHandle: "true"})
	require.NoError(t, err)
	assert.Equal(t, "true", e.SourceHandle)

	_, err = s.Connect(ctx, workflow.Connection{Source: "ghost", Target: task.ID})
	assert.True(t, ferrors.Is(err, ferrors.ErrCodeNodeNotFound))

	assert.True(t, s.DeleteNode(ctx, task.ID))
	assert.Empty(t, s.Edges())
	assert.False(t, s.DeleteNode(ctx, task.ID))
}

func TestDeleteSelected(t *testing.T) {
	s, rec := newTestSession(t)
	ctx := context.Background()
	a := addNode(t, s, nodetype.KindTask)
	b := addNode(t, s, nodetype.KindTask)
	c := addNode(t, s, nodetype.KindTask)
	ab, err := s.Connect(ctx, workflow.Connection{Source: a.ID, Target: b.ID})
	require.NoError(t, err)
	_, err = s.Connect(ctx, workflow.Connection{Source: b.ID, Target: c.ID})
	require.NoError(t, err)

	n, e := s.DeleteSelected(ctx)
	assert.Zero(t, n)
	assert.Zero(t, e)

	require.True(t, s.Select(ctx, c.ID, true))
	require.True(t, s.Select(ctx, ab.ID, true))

	n, e = s.DeleteSelected(ctx)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, e)
	assert.Equal(t, [2]int{1, 1}, rec.selDeleted)
	assert.Len(t, s.Nodes(), 2)
	assert.Empty(t, s.Edges())

	// One history entry restores everything.
	require.True(t, s.Undo(ctx))
	assert.Len(t, s.Nodes(), 3)
	assert.Len(t, s.Edges(), 2)
}

func TestUndoRedoScenario(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	a := addNode(t, s, nodetype.KindTask)
	b := addNode(t, s, nodetype.KindTask)
	require.Len(t, s.Nodes(), 2)

	require.True(t, s.Undo(ctx))
	require.Len(t, s.Nodes(), 1)
	assert.Equal(t, a.ID, s.Nodes()[0].ID)

	require.True(t, s.Redo(ctx))
	require.Len(t, s.Nodes(), 2)
	assert.Equal(t, b.ID, s.Nodes()[1].ID)

	require.True(t, s.Undo(ctx))
	require.True(t, s.Undo(ctx))
	assert.Empty(t, s.Nodes())
	assert.False(t, s.Undo(ctx))
}

func TestUpdateNodeIsUndoable(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	n := addNode(t, s, nodetype.KindTask)

	require.True(t, s.UpdateNode(ctx, n.ID, nodetype.Fields{"status": "completed"}))
	got, _ := s.Node(n.ID)
	assert.Equal(t, "completed", got.Status())

	require.True(t, s.Undo(ctx))
	got, _ = s.Node(n.ID)
	assert.Equal(t, "pending", got.Status())

	assert.False(t, s.UpdateNode(ctx, "ghost", nodetype.Fields{"name": "x"}))
}

func TestMoveIsNotRecorded(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	n := addNode(t, s, nodetype.KindTask)
	addNode(t, s, nodetype.KindTask)
	require.True(t, s.Undo(ctx))

	past, future := s.History()
	require.True(t, s.MoveNode(ctx, n.ID, workflow.Position{X: 5, Y: 6}))
	require.True(t, s.Select(ctx, n.ID, true))

	got, _ := s.Node(n.ID)
	assert.Equal(t, workflow.Position{X: 5, Y: 6}, got.Position)
	assert.True(t, got.Selected)

	pastAfter, futureAfter := s.History()
	assert.Len(t, pastAfter, len(past))
	assert.Len(t, futureAfter, len(future))
	assert.True(t, s.CanRedo(), "moving must not discard redo")

	assert.False(t, s.MoveNode(ctx, "ghost", workflow.Position{}))
}

func TestImportExport(t *testing.T) {
	s, rec := newTestSession(t)
	ctx := context.Background()
	cond := addNode(t, s, nodetype.KindCondition)
	db := addNode(t, s, nodetype.KindDatabase)
	_, err := s.Connect(ctx, workflow.Connection{Source: cond.ID, Target: db.ID, SourceHandle: "false"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.Export(ctx, &buf))
	assert.Equal(t, 1, rec.exported)

	other, orec := newTestSession(t)
	addNode(t, other, nodetype.KindEmail)
	before := other.Snapshot()

	require.NoError(t, other.Import(ctx, bytes.NewReader(buf.Bytes())))
	assert.Equal(t, 1, orec.imported)
	assert.True(t, s.Snapshot().Equal(other.Snapshot()))

	// An import only replaces the current state.
	past, future := other.History()
	assert.Len(t, past, 1)
	assert.Empty(t, future)
	assert.False(t, before.Equal(other.Snapshot()))
}

func TestImportKeepsUndoAndRedo(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()
	addNode(t, s, nodetype.KindTask)
	require.True(t, s.Undo(ctx))
	require.True(t, s.CanRedo())
	past, future := s.History()

	doc := `{"nodes": [{"id": "imported", "type": "email", "data": {"name": "x"}}], "edges": []}`
	require.NoError(t, s.Import(ctx, strings.NewReader(doc)))

	pastAfter, futureAfter := s.History()
	assert.Len(t, pastAfter, len(past))
	assert.Len(t, futureAfter, len(future))
	assert.True(t, s.CanRedo())
	assert.Equal(t, []string{"imported"}, s.Snapshot().NodeIDs())
}

func TestRecordedImportIsUndoable(t *testing.T) {
	s := New(Options{RecordImports: true})
	ctx := context.Background()
	addNode(t, s, nodetype.KindEmail)
	before := s.Snapshot()

	doc := `{"nodes": [{"id": "a"}, {"id": "b"}], "edges": []}`
	require.NoError(t, s.Import(ctx, strings.NewReader(doc)))
	assert.Len(t, s.Nodes(), 2)

	require.True(t, s.Undo(ctx))
	assert.True(t, before.Equal(s.Snapshot()))
}

func TestImportFailureLeavesGraphUntouched(t *testing.T) {
	s, rec := newTestSession(t)
	ctx := context.Background()
	addNode(t, s, nodetype.KindTask)
	before := s.Snapshot()
	past, _ := s.History()

	for _, input := range []string{`{}`, `{"nodes": []}`, `not json`} {
		err := s.Import(ctx, strings.NewReader(input))
		require.Error(t, err)
		assert.True(t, ferrors.Is(err, ferrors.ErrCodeInvalidFormat))
	}
	assert.Equal(t, 3, rec.failed)
	assert.True(t, before.Equal(s.Snapshot()))
	pastAfter, _ := s.History()
	assert.Len(t, pastAfter, len(past))
}

func TestImportCancelled(t *testing.T) {
	s, _ := newTestSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Import(ctx, strings.NewReader(`{"nodes": [{"id": "a"}], "edges": []}`))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.Nodes())
}

func TestImportRejectDangling(t *testing.T) {
	s := New(Options{Import: flowio.Options{RejectDanglingEdges: true}})
	err := s.Import(context.Background(), strings.NewReader(
		`{"nodes": [{"id": "a"}], "edges": [{"source": "a", "target": "b"}]}`))
	assert.ErrorIs(t, err, workflow.ErrDanglingEdge)
}

func TestClosedSession(t *testing.T) {
	s := New(Options{})
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.AddNode(context.Background(), nodetype.KindTask, workflow.Position{})
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, s.Undo(context.Background()))
}
