// Package config loads flowcraft's settings.
//
// Settings come from three layers, later ones winning:
//
//  1. built-in defaults ([Default])
//  2. a TOML file, by default $XDG_CONFIG_HOME/flowcraft/config.toml
//  3. FLOWCRAFT_* environment variables
//
// Command-line flags are applied on top by the CLI. A missing config file
// is not an error; an unknown key in it is.
//
// Example file:
//
//	[workspace]
//	dir = "/home/ana/flows"
//	default = "onboarding"
//	history_limit = 200
//
//	[import]
//	reject_dangling_edges = true
//	undoable = true
//
//	[server]
//	addr = "127.0.0.1:7420"
//
//	[log]
//	level = "debug"
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	ferrors "github.com/matzehuels/flowcraft/pkg/errors"
)

const appName = "flowcraft"

// Environment variables that override file settings.
const (
	EnvWorkspaceDir   = "FLOWCRAFT_WORKSPACE_DIR"
	EnvWorkspace      = "FLOWCRAFT_WORKSPACE"
	EnvHistoryLimit   = "FLOWCRAFT_HISTORY_LIMIT"
	EnvRejectDangling = "FLOWCRAFT_REJECT_DANGLING_EDGES"
	EnvAddr           = "FLOWCRAFT_ADDR"
	EnvLogLevel       = "FLOWCRAFT_LOG_LEVEL"
)

// Config holds all settings.
type Config struct {
	Workspace WorkspaceConfig `toml:"workspace"`
	Import    ImportConfig    `toml:"import"`
	Server    ServerConfig    `toml:"server"`
	Log       LogConfig       `toml:"log"`
}

// WorkspaceConfig selects where workspaces live and which one is used.
type WorkspaceConfig struct {
	Dir          string `toml:"dir"`
	Default      string `toml:"default"`
	HistoryLimit int    `toml:"history_limit"`
}

// ImportConfig controls import strictness.
type ImportConfig struct {
	RejectDanglingEdges bool `toml:"reject_dangling_edges"`

	// Undoable records each import as an undo step instead of only
	// replacing the current state.
	Undoable bool `toml:"undoable"`
}

// ServerConfig configures the local API server.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Workspace: WorkspaceConfig{
			Dir:          defaultWorkspaceDir(),
			Default:      "default",
			HistoryLimit: 100,
		},
		Server: ServerConfig{Addr: "127.0.0.1:7420"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads the config file at path over the defaults and applies
// environment overrides. An empty path selects [Path]. The result is
// validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = Path()
	}

	md, err := toml.DecodeFile(path, &cfg)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return Config{}, ferrors.New(ferrors.ErrCodeInvalidInput,
				"config %s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Write encodes cfg as TOML to path, creating parent directories.
func Write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}

// Validate checks that the settings are usable.
func (c Config) Validate() error {
	if c.Workspace.Dir == "" {
		return ferrors.New(ferrors.ErrCodeInvalidInput, "workspace.dir must not be empty")
	}
	if err := ferrors.ValidateWorkspaceName(c.Workspace.Default); err != nil {
		return fmt.Errorf("workspace.default: %w", err)
	}
	if c.Workspace.HistoryLimit < 0 {
		return ferrors.New(ferrors.ErrCodeInvalidInput, "workspace.history_limit must be >= 0")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return ferrors.Wrap(ferrors.ErrCodeInvalidInput, err, "log.level")
	}
	return nil
}

// LogLevel returns the configured log level, or info if it does not parse.
func (c Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvWorkspaceDir); v != "" {
		c.Workspace.Dir = v
	}
	if v := os.Getenv(EnvWorkspace); v != "" {
		c.Workspace.Default = v
	}
	if v := os.Getenv(EnvHistoryLimit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return ferrors.Wrap(ferrors.ErrCodeInvalidInput, err, "%s", EnvHistoryLimit)
		}
		c.Workspace.HistoryLimit = n
	}
	if v := os.Getenv(EnvRejectDangling); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return ferrors.Wrap(ferrors.ErrCodeInvalidInput, err, "%s", EnvRejectDangling)
		}
		c.Import.RejectDanglingEdges = b
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	return nil
}

// =============================================================================
// Paths
// =============================================================================

// Path returns the default config file location using the XDG standard
// (~/.config/flowcraft/config.toml).
func Path() string {
	return filepath.Join(baseDir("XDG_CONFIG_HOME", ".config"), "config.toml")
}

// defaultWorkspaceDir returns ~/.local/share/flowcraft/workspaces, honoring
// XDG_DATA_HOME.
func defaultWorkspaceDir() string {
	return filepath.Join(baseDir("XDG_DATA_HOME", filepath.Join(".local", "share")), "workspaces")
}

func baseDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName)
	}
	return filepath.Join(home, fallback, appName)
}
