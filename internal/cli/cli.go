// Package cli implements the flowcraft command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowcraft/internal/config"
	"github.com/matzehuels/flowcraft/pkg/buildinfo"
	"github.com/matzehuels/flowcraft/pkg/cache"
	ferrors "github.com/matzehuels/flowcraft/pkg/errors"
	flowio "github.com/matzehuels/flowcraft/pkg/io"
	"github.com/matzehuels/flowcraft/pkg/observability"
	"github.com/matzehuels/flowcraft/pkg/session"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "flowcraft"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Set by persistent flags.
	configPath   string
	workspace    string
	workspaceDir string
	verbose      bool

	cfg config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Flowcraft edits workflow graphs from the terminal",
		Long:         `Flowcraft builds workflows out of typed nodes (tasks, conditions, notifications, calendar entries, documents, database queries and emails) joined by edges, with undo/redo, JSON import/export and Graphviz rendering.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "config file (default "+config.Path()+")")
	pf.StringVarP(&c.workspace, "workspace", "w", "", "workspace name (default from config)")
	pf.StringVar(&c.workspaceDir, "workspace-dir", "", "directory holding workspace files")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "log at debug level regardless of config")
	_ = root.RegisterFlagCompletionFunc("workspace", c.completeWorkspaces)

	root.AddGroup(
		&cobra.Group{ID: "edit", Title: "Editing:"},
		&cobra.Group{ID: "view", Title: "Viewing:"},
	)

	for _, cmd := range []*cobra.Command{
		c.addCommand(),
		c.setCommand(),
		c.rmCommand(),
		c.moveCommand(),
		c.connectCommand(),
		c.disconnectCommand(),
		c.selectCommand(),
		c.deleteSelectedCommand(),
		c.undoCommand(),
		c.redoCommand(),
		c.importCommand(),
	} {
		cmd.GroupID = "edit"
		root.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{
		c.lsCommand(),
		c.showCommand(),
		c.typesCommand(),
		c.historyCommand(),
		c.checkCommand(),
		c.exportCommand(),
		c.renderCommand(),
		c.tableCommand(),
	} {
		cmd.GroupID = "view"
		root.AddCommand(cmd)
	}

	root.AddCommand(c.initCommand())
	root.AddCommand(c.workspacesCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file and applies flag overrides.
func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.workspace != "" {
		cfg.Workspace.Default = c.workspace
	}
	if c.workspaceDir != "" {
		cfg.Workspace.Dir = c.workspaceDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg
	if c.verbose {
		c.SetLogLevel(LogDebug)
	} else {
		c.SetLogLevel(cfg.LogLevel())
	}
	return nil
}

// =============================================================================
// Workspace Access
// =============================================================================

// store opens the workspace directory from the loaded config.
func (c *CLI) store() (*session.FileStore, error) {
	return session.NewFileStore(c.cfg.Workspace.Dir)
}

// sessionOptions builds the session options from the loaded config.
func (c *CLI) sessionOptions(name string) session.Options {
	return session.Options{
		ID:            name,
		Notifier:      observability.NewLogNotifier(c.Logger),
		HistoryLimit:  c.cfg.Workspace.HistoryLimit,
		Import:        flowio.Options{RejectDanglingEdges: c.cfg.Import.RejectDanglingEdges},
		RecordImports: c.cfg.Import.Undoable,
	}
}

// view opens the current workspace read-only and passes it to fn.
func (c *CLI) view(ctx context.Context, fn func(*session.Session) error) error {
	_, sess, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()
	return fn(sess)
}

// edit opens the current workspace, runs fn and saves the result. Nothing is
// saved when fn fails.
func (c *CLI) edit(ctx context.Context, fn func(*session.Session) error) error {
	store, sess, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := fn(sess); err != nil {
		return err
	}
	if err := sess.Persist(ctx, store); err != nil {
		return fmt.Errorf("save workspace: %w", err)
	}
	c.Logger.Debug("Saved workspace", "name", sess.ID(), "path", store.Path(sess.ID()))
	return nil
}

func (c *CLI) open(ctx context.Context) (*session.FileStore, *session.Session, error) {
	store, err := c.store()
	if err != nil {
		return nil, nil, err
	}
	name := c.cfg.Workspace.Default
	sess, err := session.Open(ctx, store, name, c.sessionOptions(name))
	if err != nil {
		return nil, nil, fmt.Errorf("open workspace %q: %w", name, err)
	}
	return store, sess, nil
}

// renderCache opens the diagram cache under the user cache directory. Any
// failure to set it up disables caching rather than failing the command.
func (c *CLI) renderCache() cache.Cache {
	dir, err := os.UserCacheDir()
	if err == nil {
		var fc *cache.FileCache
		if fc, err = cache.NewFileCache(filepath.Join(dir, appName, "renders")); err == nil {
			return fc
		}
	}
	c.Logger.Debug("Render cache disabled", "err", err)
	return cache.NewNullCache()
}

// =============================================================================
// Paths
// =============================================================================

// stdinOrFile opens path for reading; "-" selects stdin.
func stdinOrFile(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ferrors.Wrap(ferrors.ErrCodeNotFound, err, "file %s", path)
		}
		return nil, err
	}
	return f, nil
}
