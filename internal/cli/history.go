package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowcraft/pkg/session"
	"github.com/matzehuels/flowcraft/pkg/workflow"
)

// undoCommand creates the undo command.
func (c *CLI) undoCommand() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Undo the last edit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.edit(ctx, func(s *session.Session) error {
				n := 0
				for n < steps && s.Undo(ctx) {
					n++
				}
				if n == 0 {
					printInfo("Nothing to undo")
					return nil
				}
				printSuccess("Undid %d %s", n, plural(n, "edit"))
				printStats(len(s.Nodes()), len(s.Edges()), s.CanUndo(), s.CanRedo())
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "number of edits to undo")

	return cmd
}

// redoCommand creates the redo command.
func (c *CLI) redoCommand() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "redo",
		Short: "Redo the last undone edit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.edit(ctx, func(s *session.Session) error {
				n := 0
				for n < steps && s.Redo(ctx) {
					n++
				}
				if n == 0 {
					printInfo("Nothing to redo")
					return nil
				}
				printSuccess("Redid %d %s", n, plural(n, "edit"))
				printStats(len(s.Nodes()), len(s.Edges()), s.CanUndo(), s.CanRedo())
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "number of edits to redo")

	return cmd
}

// historyCommand creates the history command.
func (c *CLI) historyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the undo and redo stacks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.view(cmd.Context(), func(s *session.Session) error {
				past, future := s.History()

				rows := make([][]string, 0, len(past)+len(future)+1)
				for i, snap := range past {
					rows = append(rows, historyRow(fmt.Sprintf("-%d", len(past)-i), snap))
				}
				rows = append(rows, historyRow("now", s.Snapshot()))
				for i, snap := range future {
					rows = append(rows, historyRow(fmt.Sprintf("+%d", i+1), snap))
				}

				current := len(past)
				t := newTable("Step", "Nodes", "Edges").
					Rows(rows...).
					StyleFunc(func(row, col int) lipgloss.Style {
						switch {
						case row < 0:
							return styleHeader
						case row == current:
							return StyleHighlight.Bold(true)
						case row > current:
							return StyleDim
						}
						return StyleValue
					})
				fmt.Println(t.Render())
				printDetail("%d undo, %d redo", len(past), len(future))
				return nil
			})
		},
	}
}

func historyRow(step string, s workflow.Snapshot) []string {
	return []string{step, fmt.Sprint(len(s.Nodes)), fmt.Sprint(len(s.Edges))}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
