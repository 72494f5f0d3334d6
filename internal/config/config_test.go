package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/matzehuels/flowcraft/pkg/errors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvWorkspaceDir, EnvWorkspace, EnvHistoryLimit, EnvRejectDangling, EnvAddr, EnvLogLevel} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def, cfg)
	assert.Equal(t, "default", cfg.Workspace.Default)
	assert.Equal(t, 100, cfg.Workspace.HistoryLimit)
	assert.False(t, cfg.Import.RejectDanglingEdges)
	assert.Equal(t, log.InfoLevel, cfg.LogLevel())
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[workspace]
dir = "/srv/flows"
default = "onboarding"
history_limit = 5

[import]
reject_dangling_edges = true

[log]
level = "debug"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/flows", cfg.Workspace.Dir)
	assert.Equal(t, "onboarding", cfg.Workspace.Default)
	assert.Equal(t, 5, cfg.Workspace.HistoryLimit)
	assert.True(t, cfg.Import.RejectDanglingEdges)
	assert.Equal(t, log.DebugLevel, cfg.LogLevel())
	assert.Equal(t, Default().Server.Addr, cfg.Server.Addr, "unset keys keep defaults")
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[workspace]\ndefault = \"file\"\n"), 0o600))

	t.Setenv(EnvWorkspace, "env")
	t.Setenv(EnvHistoryLimit, "7")
	t.Setenv(EnvRejectDangling, "true")
	t.Setenv(EnvAddr, ":9999")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env", cfg.Workspace.Default)
	assert.Equal(t, 7, cfg.Workspace.HistoryLimit)
	assert.True(t, cfg.Import.RejectDanglingEdges)
	assert.Equal(t, ":9999", cfg.Server.Addr)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "unknown key", file: "[workspace]\ncolour = \"red\"\n"},
		{name: "bad toml", file: "[workspace\n"},
		{name: "negative limit", file: "[workspace]\nhistory_limit = -1\n"},
		{name: "bad level", file: "[log]\nlevel = \"loud\"\n"},
		{name: "bad workspace name", file: "[workspace]\ndefault = \"../x\"\n"},
		{name: "bad env limit", env: map[string]string{EnvHistoryLimit: "many"}},
		{name: "bad env bool", env: map[string]string{EnvRejectDangling: "perhaps"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.file), 0o600))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestUnknownKeyIsInvalidInput(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 1\n"), 0o600))

	_, err := Load(path)
	assert.True(t, ferrors.Is(err, ferrors.ErrCodeInvalidInput))
	assert.Contains(t, err.Error(), "server.port")
}

func TestWriteRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Workspace.Default = "demo"
	cfg.Import.RejectDanglingEdges = true

	require.NoError(t, Write(path, cfg))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestPathsHonorXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

	assert.Equal(t, filepath.Join("/tmp/xdg-config", "flowcraft", "config.toml"), Path())
	assert.Equal(t, filepath.Join("/tmp/xdg-data", "flowcraft", "workspaces"), Default().Workspace.Dir)
}
