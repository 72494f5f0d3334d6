package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	ferrors "github.com/matzehuels/flowcraft/pkg/errors"
	"github.com/matzehuels/flowcraft/pkg/session"
)

// initCommand creates the init command.
func (c *CLI) initCommand() *cobra.Command {
	var (
		force bool
		from  string
	)

	cmd := &cobra.Command{
		Use:   "init [name]",
		Short: "Create an empty workspace",
		Long: `Create an empty workspace, or one seeded from an exported document with
--from. Without a name the configured default workspace is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := c.cfg.Workspace.Default
			if len(args) == 1 {
				name = args[0]
			}
			if err := ferrors.ValidateWorkspaceName(name); err != nil {
				return err
			}

			store, err := c.store()
			if err != nil {
				return err
			}
			_, err = store.Load(ctx, name)
			switch {
			case err == nil && !force:
				return ferrors.New(ferrors.ErrCodeConflict, "workspace %s already exists (use --force to replace it)", name)
			case err != nil && !errors.Is(err, session.ErrNotFound) && !force:
				return err
			}

			sess := session.New(c.sessionOptions(name))
			defer sess.Close()
			if from != "" {
				r, err := stdinOrFile(from)
				if err != nil {
					return err
				}
				defer r.Close()
				if err := sess.Import(ctx, r); err != nil {
					return err
				}
			}
			if err := sess.Persist(ctx, store); err != nil {
				return fmt.Errorf("save workspace: %w", err)
			}

			printSuccess("Created workspace %s", StyleHighlight.Render(name))
			printFile(store.Path(name))
			if name != c.cfg.Workspace.Default {
				printNextStep("Use it with", fmt.Sprintf("%s -w %s ls", appName, name))
			} else {
				printNextStep("Add a node with", appName+" add task")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "replace an existing workspace")
	cmd.Flags().StringVar(&from, "from", "", "seed the workspace from an exported JSON document")

	return cmd
}

// workspacesCommand creates the workspaces command.
func (c *CLI) workspacesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspaces",
		Short: "List saved workspaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := c.store()
			if err != nil {
				return err
			}
			names, err := store.List(ctx)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				printInfo("No workspaces in %s", store.Dir())
				printNextStep("Create one with", appName+" init")
				return nil
			}

			rows := make([][]string, 0, len(names))
			for _, name := range names {
				st, err := store.Load(ctx, name)
				if err != nil {
					c.Logger.Warn("Skipping unreadable workspace", "name", name, "err", err)
					continue
				}
				rows = append(rows, []string{
					name,
					fmt.Sprint(len(st.Graph.Nodes)),
					fmt.Sprint(len(st.Graph.Edges)),
					formatRelativeTime(st.UpdatedAt),
				})
			}

			current := c.cfg.Workspace.Default
			t := newTable("Workspace", "Nodes", "Edges", "Updated").
				Rows(rows...).
				StyleFunc(func(row, col int) lipgloss.Style {
					switch {
					case row < 0:
						return styleHeader
					case row < len(rows) && rows[row][0] == current:
						return StyleHighlight.Bold(true)
					case col == 3:
						return StyleDim
					}
					return lipgloss.NewStyle()
				})
			fmt.Println(t.Render())
			printDetail("%s", store.Dir())
			return nil
		},
	}

	cmd.AddCommand(c.workspacesRmCommand())

	return cmd
}

// workspacesRmCommand creates the "workspaces rm" subcommand.
func (c *CLI) workspacesRmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>...",
		Short: "Delete saved workspaces",
		Args:  cobra.MinimumNArgs(1),

		ValidArgsFunction: c.completeWorkspaces,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.store()
			if err != nil {
				return err
			}
			for _, name := range args {
				if err := store.Delete(cmd.Context(), name); err != nil {
					return err
				}
				printSuccess("Deleted workspace %s", StyleHighlight.Render(name))
			}
			return nil
		},
	}
}

// formatRelativeTime renders t as "5m ago", "3h ago", "2d ago" or a date.
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Local().Format("Jan 2, 2006")
	}
}
