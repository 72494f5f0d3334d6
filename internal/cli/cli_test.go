package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/flowcraft/internal/config"
	ferrors "github.com/matzehuels/flowcraft/pkg/errors"
	"github.com/matzehuels/flowcraft/pkg/nodetype"
	"github.com/matzehuels/flowcraft/pkg/session"
	"github.com/matzehuels/flowcraft/pkg/workflow"
)

// env is an isolated config file and workspace directory.
type env struct {
	t   *testing.T
	dir string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	for _, k := range []string{
		config.EnvWorkspaceDir, config.EnvWorkspace, config.EnvHistoryLimit,
		config.EnvRejectDangling, config.EnvAddr, config.EnvLogLevel,
	} {
		t.Setenv(k, "")
	}
	return &env{t: t, dir: dir}
}

func (e *env) wsDir() string { return filepath.Join(e.dir, "ws") }

func (e *env) run(args ...string) error {
	e.t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs(append([]string{"--workspace-dir", e.wsDir()}, args...))
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func (e *env) state(name string) *session.State {
	e.t.Helper()
	store, err := session.NewFileStore(e.wsDir())
	require.NoError(e.t, err)
	st, err := store.Load(context.Background(), name)
	require.NoError(e.t, err)
	return st
}

func nodeOfType(t *testing.T, s workflow.Snapshot, kind nodetype.Kind) workflow.Node {
	t.Helper()
	for _, n := range s.Nodes {
		if n.Type == kind {
			return n
		}
	}
	t.Fatalf("no %s node", kind)
	return workflow.Node{}
}

func TestAddAndSet(t *testing.T) {
	e := newEnv(t)

	require.NoError(t, e.run("add", "task", "name=Review", "assignee=ana", "dueDate=2025-03-01"))
	task := nodeOfType(t, e.state("default").Graph, nodetype.KindTask)
	assert.Equal(t, "Review", task.Label())
	assert.Equal(t, "pending", task.Status())

	// Rejected submit leaves the node as it was.
	err := e.run("set", task.ID, "dueDate=tomorrow")
	require.Error(t, err)
	after := nodeOfType(t, e.state("default").Graph, nodetype.KindTask)
	assert.Equal(t, "2025-03-01", after.Data.Fields().String("dueDate"))

	require.NoError(t, e.run("set", task.ID, "status=completed"))
	after = nodeOfType(t, e.state("default").Graph, nodetype.KindTask)
	assert.Equal(t, "completed", after.Status())
}

func TestAddRejectsUnknownType(t *testing.T) {
	e := newEnv(t)
	err := e.run("add", "spaceship")
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.ErrCodeInvalidKind))
}

func TestAddWithInvalidConfigKeepsDefaults(t *testing.T) {
	e := newEnv(t)

	require.NoError(t, e.run("add", "email", "to=not-an-address"))
	email := nodeOfType(t, e.state("default").Graph, nodetype.KindEmail)
	assert.Equal(t, "New Email", email.Label())
	assert.Empty(t, email.Data.Fields().String("to"))
}

func TestConnectDeleteUndoRedo(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.run("add", "task"))
	require.NoError(t, e.run("add", "email"))

	g := e.state("default").Graph
	task := nodeOfType(t, g, nodetype.KindTask)
	email := nodeOfType(t, g, nodetype.KindEmail)

	require.NoError(t, e.run("connect", task.ID, email.ID))
	require.Len(t, e.state("default").Graph.Edges, 1)

	require.NoError(t, e.run("rm", task.ID))
	g = e.state("default").Graph
	assert.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges, "deleting a node removes its edges")

	require.NoError(t, e.run("undo"))
	g = e.state("default").Graph
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 1)

	require.NoError(t, e.run("redo"))
	assert.Len(t, e.state("default").Graph.Nodes, 1)

	require.NoError(t, e.run("undo", "-n", "10"))
	assert.Empty(t, e.state("default").Graph.Nodes)
}

func TestSelectAndDeleteSelected(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.run("add", "task"))
	require.NoError(t, e.run("add", "calendar"))
	require.NoError(t, e.run("add", "document"))

	g := e.state("default").Graph
	task := nodeOfType(t, g, nodetype.KindTask)
	cal := nodeOfType(t, g, nodetype.KindCalendar)

	require.NoError(t, e.run("select", task.ID, cal.ID))
	st := e.state("default")
	past := len(st.History.Past)

	require.NoError(t, e.run("delete-selected"))
	st = e.state("default")
	require.Len(t, st.Graph.Nodes, 1)
	assert.Equal(t, nodetype.KindDocument, st.Graph.Nodes[0].Type)
	assert.Len(t, st.History.Past, past+1)
}

func TestMoveIsNotAnUndoStep(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.run("add", "task"))
	task := nodeOfType(t, e.state("default").Graph, nodetype.KindTask)
	before := len(e.state("default").History.Past)

	require.NoError(t, e.run("move", task.ID, "120", "40"))
	st := e.state("default")
	assert.Equal(t, workflow.Position{X: 120, Y: 40}, st.Graph.Nodes[0].Position)
	assert.Len(t, st.History.Past, before)

	require.Error(t, e.run("move", task.ID, "left", "0"))
}

func TestExportImportRoundTrip(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.run("add", "condition", "name=Approved?", "condition=amount < 100"))
	require.NoError(t, e.run("add", "task"))
	g := e.state("default").Graph
	require.NoError(t, e.run("connect", nodeOfType(t, g, nodetype.KindCondition).ID,
		nodeOfType(t, g, nodetype.KindTask).ID, "--handle", "true"))

	out := filepath.Join(e.dir, "out", "workflow.json")
	require.NoError(t, e.run("export", out))

	require.NoError(t, e.run("init", "copy", "--from", out))
	orig, copied := e.state("default").Graph, e.state("copy").Graph
	assert.Equal(t, orig.NodeIDs(), copied.NodeIDs())
	require.Len(t, copied.Edges, 1)
	assert.Equal(t, "true", copied.Edges[0].SourceHandle)

	// A plain import leaves history alone; --undoable records it.
	require.NoError(t, e.run("-w", "copy", "add", "email"))
	past := len(e.state("copy").History.Past)
	require.NoError(t, e.run("-w", "copy", "import", out))
	st := e.state("copy")
	assert.Len(t, st.Graph.Nodes, 2)
	assert.Len(t, st.History.Past, past)

	require.NoError(t, e.run("-w", "copy", "add", "email"))
	require.NoError(t, e.run("-w", "copy", "import", "--undoable", out))
	assert.Len(t, e.state("copy").Graph.Nodes, 2)
	require.NoError(t, e.run("-w", "copy", "undo"))
	assert.Len(t, e.state("copy").Graph.Nodes, 3)
}

func TestImportMalformedLeavesWorkspace(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.run("add", "task"))

	bad := filepath.Join(e.dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"nodes": 3}`), 0o600))

	err := e.run("import", bad)
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.ErrCodeInvalidFormat))
	assert.Len(t, e.state("default").Graph.Nodes, 1)
}

func TestInitRefusesExisting(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.run("init"))
	err := e.run("init")
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.ErrCodeConflict))
	require.NoError(t, e.run("init", "--force"))

	require.Error(t, e.run("init", "../escape"))
}

func TestCheck(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.run("check"), "an empty workflow is valid")

	require.NoError(t, e.run("add", "task"))
	require.Error(t, e.run("check"), "default task data misses required fields")
}

func TestRenderDOT(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.run("add", "document", "name=Ship it", "content=release notes"))

	out := filepath.Join(e.dir, "flow.dot")
	require.NoError(t, e.run("render", "-o", out))
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(b), "digraph G")
	assert.Contains(t, string(b), "Ship it")
}

func TestRenderSVGUsesCache(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.run("add", "task", "name=Draft"))

	out := filepath.Join(e.dir, "flow.svg")
	require.NoError(t, e.run("render", "-o", out))
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(b), "<svg")

	entries, err := os.ReadDir(filepath.Join(e.dir, "cache", appName, "renders"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)

	again := filepath.Join(e.dir, "again.svg")
	require.NoError(t, e.run("render", "-o", again))
	b2, err := os.ReadFile(again)
	require.NoError(t, err)
	assert.Equal(t, b, b2)
}

func TestWorkspaceFlagSelectsFile(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.run("-w", "alpha", "add", "task"))
	assert.FileExists(t, filepath.Join(e.wsDir(), "alpha.flow"))
	assert.NoFileExists(t, filepath.Join(e.wsDir(), "default.flow"))
}

func TestConfigFileSetsDefaults(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(e.dir, "flowcraft.toml")
	cfg := config.Default()
	cfg.Workspace.Default = "fromfile"
	require.NoError(t, config.Write(path, cfg))

	require.NoError(t, e.run("--config", path, "add", "task"))
	assert.FileExists(t, filepath.Join(e.wsDir(), "fromfile.flow"))
}

func TestVerboseOverridesConfigLevel(t *testing.T) {
	e := newEnv(t)
	t.Setenv(config.EnvLogLevel, "warn")

	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs([]string{"--workspace-dir", e.wsDir(), "-v", "types"})
	root.SetOut(io.Discard)
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Equal(t, LogDebug, c.Logger.GetLevel())
}

func TestCompleteWorkspaces(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.run("-w", "beta", "add", "task"))
	require.NoError(t, e.run("-w", "alpha", "add", "task"))

	c := New(io.Discard, LogInfo)
	c.workspaceDir = e.wsDir()
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	names, directive := c.completeWorkspaces(cmd, nil, "")
	assert.Equal(t, []string{"alpha", "beta"}, names)
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)
}

func TestParseAssignments(t *testing.T) {
	patch, err := parseAssignments([]string{"name=a=b", "port:=5432", "sent:=true", "empty="})
	require.NoError(t, err)
	assert.Equal(t, nodetype.Fields{
		"name":  "a=b",
		"port":  float64(5432),
		"sent":  true,
		"empty": "",
	}, patch)

	_, err = parseAssignments([]string{"novalue"})
	assert.True(t, ferrors.Is(err, ferrors.ErrCodeInvalidInput))

	_, err = parseAssignments([]string{"port:={"})
	assert.True(t, ferrors.Is(err, ferrors.ErrCodeInvalidInput))
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		opts renderOpts
		want string
	}{
		{renderOpts{}, formatSVG},
		{renderOpts{output: "a.png"}, formatPNG},
		{renderOpts{output: "a.DOT"}, formatDOT},
		{renderOpts{output: "a.pdf"}, formatSVG},
		{renderOpts{output: "a.svg", format: "png"}, formatPNG},
	}
	for _, tt := range tests {
		got, err := resolveFormat(tt.opts)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%+v", tt.opts)
	}

	_, err := resolveFormat(renderOpts{format: "gif"})
	assert.Error(t, err)
}
