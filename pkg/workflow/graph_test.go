package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/flowcraft/pkg/nodetype"
)

func taskNode(id string) Node {
	return Node{
		ID:   id,
		Type: nodetype.KindTask,
		Data: nodetype.Decode(nodetype.KindTask, nodetype.Fields{"name": "New Task", "status": "pending"}),
	}
}

func TestAddNode(t *testing.T) {
	g := New()

	require.NoError(t, g.AddNode(taskNode("task-1")))
	assert.Equal(t, 1, g.NodeCount())

	err := g.AddNode(taskNode("task-1"))
	assert.True(t, errors.Is(err, ErrDuplicateNodeID))

	err = g.AddNode(Node{Type: nodetype.KindTask})
	assert.True(t, errors.Is(err, ErrInvalidNodeID))
	assert.Equal(t, 1, g.NodeCount())
}

func TestAddNodeFillsEmptyData(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(Node{ID: "e", Type: nodetype.KindEmail}))

	n, ok := g.Node("e")
	require.True(t, ok)
	assert.IsType(t, &nodetype.Email{}, n.Data)
}

func TestUpdateNodeMergesData(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(taskNode("task-1")))

	assert.True(t, g.UpdateNode("task-1", nodetype.Fields{"status": "completed"}))

	n, _ := g.Node("task-1")
	task := n.Data.(*nodetype.Task)
	assert.Equal(t, "New Task", task.Name)
	assert.Equal(t, "completed", task.Status)
}

func TestUpdateUnknownNodeIsNoop(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(taskNode("task-1")))
	before := g.Snapshot()

	assert.False(t, g.UpdateNode("missing", nodetype.Fields{"name": "x"}))
	assert.True(t, before.Equal(g.Snapshot()))
}

func TestDeleteNodeCascades(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, g.AddNode(taskNode(id)))
	}
	_, err := g.AddEdge(Connection{Source: "a", Target: "b"})
	require.NoError(t, err)
	_, err = g.AddEdge(Connection{Source: "b", Target: "c"})
	require.NoError(t, err)
	_, err = g.AddEdge(Connection{Source: "a", Target: "c"})
	require.NoError(t, err)

	assert.True(t, g.DeleteNode("b"))
	assert.Equal(t, 2, g.NodeCount())
	require.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, "a", g.Edges()[0].Source)
	assert.Equal(t, "c", g.Edges()[0].Target)

	// Idempotent.
	assert.False(t, g.DeleteNode("b"))
	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())
}

func TestDeleteNodeNeverLeavesIncidentEdges(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	g := New()
	var ids []string

	for step := 0; step < 500; step++ {
		switch op := rng.IntN(3); {
		case op == 0 || len(ids) < 2:
			id := fmt.Sprintf("n%d", step)
			if g.AddNode(taskNode(id)) == nil {
				ids = append(ids, id)
			}
		case op == 1:
			src, dst := ids[rng.IntN(len(ids))], ids[rng.IntN(len(ids))]
			_, err := g.AddEdge(Connection{Source: src, Target: dst})
			require.NoError(t, err)
		default:
			i := rng.IntN(len(ids))
			id := ids[i]
			g.DeleteNode(id)
			ids = append(ids[:i], ids[i+1:]...)
			for _, e := range g.Edges() {
				require.False(t, e.Touches(id), "edge %s still touches %s", e.ID, id)
			}
		}
	}
	assert.NoError(t, g.Validate())
}

func TestAddEdge(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(Node{ID: "cond", Type: nodetype.KindCondition}))
	require.NoError(t, g.AddNode(taskNode("yes")))
	require.NoError(t, g.AddNode(taskNode("no")))

	e1, err := g.AddEdge(Connection{Source: "cond", Target: "yes", SourceHandle: "true"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(e1.ID, "edge-"))

	e2, err := g.AddEdge(Connection{Source: "cond", Target: "no", SourceHandle: "false"})
	require.NoError(t, err)
	assert.NotEqual(t, e1.ID, e2.ID)

	// Parallel edges and self-loops are permitted.
	_, err = g.AddEdge(Connection{Source: "cond", Target: "yes", SourceHandle: "false"})
	require.NoError(t, err)
	_, err = g.AddEdge(Connection{Source: "yes", Target: "yes"})
	require.NoError(t, err)
	assert.Equal(t, 4, g.EdgeCount())

	_, err = g.AddEdge(Connection{ID: e1.ID, Source: "cond", Target: "no"})
	assert.True(t, errors.Is(err, ErrDuplicateEdgeID))

	_, err = g.AddEdge(Connection{Source: "ghost", Target: "no"})
	assert.True(t, errors.Is(err, ErrUnknownSourceNode))

	_, err = g.AddEdge(Connection{Source: "cond", Target: "ghost"})
	assert.True(t, errors.Is(err, ErrUnknownTargetNode))
}

func TestDeleteEdge(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(taskNode("a")))
	require.NoError(t, g.AddNode(taskNode("b")))
	e, err := g.AddEdge(Connection{ID: "e1", Source: "a", Target: "b"})
	require.NoError(t, err)

	assert.True(t, g.DeleteEdge(e.ID))
	assert.False(t, g.DeleteEdge(e.ID))
	assert.Equal(t, 0, g.EdgeCount())
	assert.Equal(t, 2, g.NodeCount())
}

func TestScenarioAddUpdateDelete(t *testing.T) {
	g := New()

	require.NoError(t, g.AddNode(taskNode("task-1")))
	require.NoError(t, g.AddNode(taskNode("task-2")))
	_, err := g.AddEdge(Connection{Source: "task-2", Target: "task-1"})
	require.NoError(t, err)

	g.UpdateNode("task-1", nodetype.Fields{"status": "completed"})
	n, _ := g.Node("task-1")
	assert.Equal(t, nodetype.Fields{"name": "New Task", "status": "completed"}, n.Data.Fields())

	g.DeleteNode("task-1")
	g.DeleteNode("task-2")
	assert.Equal(t, 0, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
}

func TestSelection(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(taskNode("a")))
	require.NoError(t, g.AddNode(taskNode("b")))
	_, err := g.AddEdge(Connection{ID: "e", Source: "a", Target: "b"})
	require.NoError(t, err)

	assert.True(t, g.SelectNode("b", true))
	assert.True(t, g.SelectEdge("e", true))
	assert.False(t, g.SelectNode("zzz", true))
	assert.Equal(t, []string{"b"}, g.SelectedNodeIDs())
	assert.Equal(t, []string{"e"}, g.SelectedEdgeIDs())

	g.ClearSelection()
	assert.Empty(t, g.SelectedNodeIDs())
	assert.Empty(t, g.SelectedEdgeIDs())
}

func TestNodesAreCopies(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(taskNode("a")))

	nodes := g.Nodes()
	nodes[0].Data.(*nodetype.Task).Name = "hijacked"
	nodes[0].Position = Position{X: 99}

	n, _ := g.Node("a")
	assert.Equal(t, "New Task", n.Label())
	assert.Equal(t, Position{}, n.Position)
}

func TestReplaceAndValidate(t *testing.T) {
	g := New()
	g.Replace(
		[]Node{taskNode("a"), {ID: "b", Type: "webhook"}},
		[]Edge{{ID: "e1", Source: "a", Target: "b"}, {ID: "e2", Source: "a", Target: "ghost"}},
	)

	assert.Equal(t, 2, g.NodeCount())
	n, ok := g.Node("b")
	require.True(t, ok)
	assert.IsType(t, &nodetype.Generic{}, n.Data)

	err := g.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDanglingEdge))

	// Deleting the missing endpoint still sweeps its edges.
	g.DeleteNode("ghost")
	assert.NoError(t, g.Validate())
}

func TestFilter(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(Node{ID: "task-2", Type: nodetype.KindTask,
		Data: nodetype.Decode(nodetype.KindTask, nodetype.Fields{"name": "Review", "status": "pending"})}))
	require.NoError(t, g.AddNode(Node{ID: "email-1", Type: nodetype.KindEmail,
		Data: nodetype.Decode(nodetype.KindEmail, nodetype.Fields{"name": "Announce"})}))
	require.NoError(t, g.AddNode(Node{ID: "task-1", Type: nodetype.KindTask,
		Data: nodetype.Decode(nodetype.KindTask, nodetype.Fields{"name": "Approve", "status": "completed"})}))

	got := g.Filter(Query{Search: "TASK", SortBy: ColumnName})
	require.Len(t, got, 2)
	assert.Equal(t, "task-1", got[0].ID)
	assert.Equal(t, "task-2", got[1].ID)

	got = g.Filter(Query{Search: "announce"})
	require.Len(t, got, 1)
	assert.Equal(t, "email-1", got[0].ID)

	got = g.Filter(Query{SortBy: ColumnID, Desc: true})
	assert.Equal(t, []string{"task-2", "task-1", "email-1"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestNodeJSON(t *testing.T) {
	n := Node{
		ID:       "email-1",
		Type:     nodetype.KindEmail,
		Position: Position{X: 10, Y: 20},
		Data:     nodetype.Decode(nodetype.KindEmail, nodetype.Fields{"name": "Hi", "to": "a@b.co", "x-tag": "keep"}),
	}

	b, err := json.Marshal(n)
	require.NoError(t, err)

	var back Node
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, n.ID, back.ID)
	assert.Equal(t, n.Position, back.Position)
	assert.True(t, nodetype.Equal(n.Data, back.Data))
	assert.Equal(t, "keep", back.Data.Fields()["x-tag"])
}

func TestSynthesizeID(t *testing.T) {
	orig := clock
	t.Cleanup(func() { clock = orig })
	clock = func() time.Time { return time.UnixMilli(1718000000000) }

	a := SynthesizeID("node")
	b := SynthesizeID("node")
	assert.True(t, strings.HasPrefix(a, "node-1718000000000-"))
	assert.Len(t, a, len("node-1718000000000-")+9)
	assert.NotEqual(t, a, b)

	assert.Equal(t, "task-1718000000000", NewNodeID(nodetype.KindTask))
}
