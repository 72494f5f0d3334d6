package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowcraft/pkg/session"
	"github.com/matzehuels/flowcraft/pkg/workflow"
)

// connectCommand creates the connect command.
func (c *CLI) connectCommand() *cobra.Command {
	var conn workflow.Connection

	cmd := &cobra.Command{
		Use:   "connect <source-id> <target-id>",
		Short: "Connect two nodes with an edge",
		Long: `Connect two nodes with an edge.

Condition nodes route their branches through the "true" and "false" source
handles, selected with --handle.`,
		Example: `  flowcraft connect task-1717000000000 email-1717000000123
  flowcraft connect condition-1717000000456 task-1717000000789 --handle true`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn.Source, conn.Target = args[0], args[1]
			return c.edit(ctx, func(s *session.Session) error {
				e, err := s.Connect(ctx, conn)
				if err != nil {
					return err
				}
				printSuccess("Connected %s %s %s%s", e.Source, iconArrow, e.Target, handleSuffix(e))
				printDetail("edge %s", e.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&conn.ID, "id", "", "edge id (default generated)")
	cmd.Flags().StringVar(&conn.SourceHandle, "handle", "", "source handle, e.g. true or false")
	cmd.Flags().StringVar(&conn.TargetHandle, "target-handle", "", "target handle")

	return cmd
}

// disconnectCommand creates the disconnect command.
func (c *CLI) disconnectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <edge-id>...",
		Short: "Delete edges",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.edit(ctx, func(s *session.Session) error {
				for _, id := range args {
					if !s.DeleteEdge(ctx, id) {
						printWarning("No edge %s", id)
						continue
					}
					printSuccess("Deleted edge %s", StyleHighlight.Render(id))
				}
				return nil
			})
		},
	}
}

// selectCommand creates the select command.
func (c *CLI) selectCommand() *cobra.Command {
	var (
		clearFirst bool
		deselect   bool
	)

	cmd := &cobra.Command{
		Use:   "select [id...]",
		Short: "Select nodes or edges for deletion",
		Long: `Mark nodes or edges as selected, as clicking them on the canvas does.
Selection is cosmetic: it is saved with the workspace but never creates an
undo step. Run delete-selected to remove everything selected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.edit(ctx, func(s *session.Session) error {
				if clearFirst {
					s.ClearSelection(ctx)
				}
				for _, id := range args {
					if !s.Select(ctx, id, !deselect) {
						printWarning("No node or edge %s", id)
					}
				}

				snap := s.Snapshot()
				nodes, edges := 0, 0
				for _, n := range snap.Nodes {
					if n.Selected {
						nodes++
					}
				}
				for _, e := range snap.Edges {
					if e.Selected {
						edges++
					}
				}
				printInfo("%d nodes and %d edges selected", nodes, edges)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearFirst, "clear", false, "clear the selection first")
	cmd.Flags().BoolVar(&deselect, "deselect", false, "deselect the given ids instead")

	return cmd
}

// deleteSelectedCommand creates the delete-selected command.
func (c *CLI) deleteSelectedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-selected",
		Short: "Delete every selected node and edge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.edit(ctx, func(s *session.Session) error {
				nodes, edges := s.DeleteSelected(ctx)
				if nodes == 0 && edges == 0 {
					printInfo("Nothing selected")
					return nil
				}
				printSuccess("Deleted %d nodes and %d edges", nodes, edges)
				return nil
			})
		},
	}
}
