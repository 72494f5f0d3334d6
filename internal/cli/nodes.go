package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	ferrors "github.com/matzehuels/flowcraft/pkg/errors"
	"github.com/matzehuels/flowcraft/pkg/nodetype"
	"github.com/matzehuels/flowcraft/pkg/session"
	"github.com/matzehuels/flowcraft/pkg/workflow"
)

// Grid used to place nodes added without an explicit position.
const (
	gridColumns = 4
	gridStepX   = 250
	gridStepY   = 150
)

// addCommand creates the add command.
func (c *CLI) addCommand() *cobra.Command {
	var x, y float64

	cmd := &cobra.Command{
		Use:   "add <type> [key=value...]",
		Short: "Add a node to the workflow",
		Long: `Add a node of the given type with the type's default data.

Trailing key=value pairs are submitted as the node's config right away and
must pass the type's validation. Use key:=json for non-string values.`,
		Example: `  flowcraft add task
  flowcraft add email name=Welcome to=ana@example.com subject=Hi body=Hello
  flowcraft add database name=Users query="select 1" port:=5432`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: completeKinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			kind := nodetype.Kind(args[0])
			patch, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}

			return c.edit(ctx, func(s *session.Session) error {
				pos := workflow.Position{X: x, Y: y}
				if !cmd.Flags().Changed("x") && !cmd.Flags().Changed("y") {
					pos = gridPosition(len(s.Nodes()))
				}

				n, err := s.AddNode(ctx, kind, pos)
				if err != nil {
					return err
				}
				printSuccess("Added a new %s node %s", kind, StyleHighlight.Render(n.ID))

				if len(patch) == 0 {
					printNextStep("Configure it with", fmt.Sprintf("%s set %s key=value...", appName, n.ID))
					return nil
				}
				if err := s.SubmitConfig(ctx, n.ID, patch); err != nil {
					if printValidation(err) {
						printNextStep("The node keeps its defaults; retry with", fmt.Sprintf("%s set %s key=value...", appName, n.ID))
						return nil
					}
					return err
				}
				printDetail("configured %s", strings.Join(patch.Keys(), ", "))
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&x, "x", 0, "canvas x position")
	cmd.Flags().Float64Var(&y, "y", 0, "canvas y position")

	return cmd
}

// setCommand creates the set command, the terminal's config panel.
func (c *CLI) setCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <node-id> key=value...",
		Short: "Submit config for a node",
		Long: `Merge key=value pairs over a node's data and submit the result.

The merged data must pass the node type's validation, otherwise the node is
left unchanged and every offending field is listed. Use key:=json for
non-string values, for example sent:=true.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			patch, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			return c.edit(ctx, func(s *session.Session) error {
				if err := s.SubmitConfig(ctx, args[0], patch); err != nil {
					if printValidation(err) {
						return fmt.Errorf("node %s unchanged", args[0])
					}
					return err
				}
				printSuccess("Updated %s", StyleHighlight.Render(args[0]))
				return nil
			})
		},
	}
}

// rmCommand creates the rm command.
func (c *CLI) rmCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <node-id>...",
		Aliases: []string{"delete"},
		Short:   "Delete nodes and their edges",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.edit(ctx, func(s *session.Session) error {
				for _, id := range args {
					edges := len(edgesOf(s, id))
					if !s.DeleteNode(ctx, id) {
						printWarning("No node %s", id)
						continue
					}
					printSuccess("Deleted %s", StyleHighlight.Render(id))
					if edges > 0 {
						printDetail("and %d connected edges", edges)
					}
				}
				return nil
			})
		},
	}
}

// moveCommand creates the move command.
func (c *CLI) moveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "move <node-id> <x> <y>",
		Short: "Move a node on the canvas",
		Long:  `Move a node on the canvas. Moves are cosmetic and do not create undo steps.`,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			x, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return ferrors.Wrap(ferrors.ErrCodeInvalidInput, err, "x position %q", args[1])
			}
			y, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return ferrors.Wrap(ferrors.ErrCodeInvalidInput, err, "y position %q", args[2])
			}
			return c.edit(ctx, func(s *session.Session) error {
				if !s.MoveNode(ctx, args[0], workflow.Position{X: x, Y: y}) {
					printWarning("No node %s", args[0])
					return nil
				}
				printSuccess("Moved %s to (%g, %g)", StyleHighlight.Render(args[0]), x, y)
				return nil
			})
		},
	}
}

// showCommand creates the show command.
func (c *CLI) showCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <node-id>",
		Short: "Show a node's data and connections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.view(cmd.Context(), func(s *session.Session) error {
				n, ok := s.Node(args[0])
				if !ok {
					return ferrors.New(ferrors.ErrCodeNodeNotFound, "no node %s", args[0])
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(n)
				}

				printNode(n)

				if err := s.Registry().ValidateData(n.Type, n.Data); err != nil {
					fmt.Println()
					printValidation(err)
				}

				edges := edgesOf(s, n.ID)
				if len(edges) > 0 {
					fmt.Println()
					for _, e := range edges {
						printDetail("%s  %s %s %s%s", e.ID, e.Source, iconArrow, e.Target, handleSuffix(e))
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the node as JSON")

	return cmd
}

// lsCommand creates the ls command.
func (c *CLI) lsCommand() *cobra.Command {
	var (
		search string
		sortBy string
		desc   bool
	)

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := parseColumn(sortBy)
			if err != nil {
				return err
			}
			return c.view(cmd.Context(), func(s *session.Session) error {
				nodes := s.Filter(workflow.Query{Search: search, SortBy: col, Desc: desc})
				if len(nodes) == 0 {
					if search != "" {
						printInfo("No nodes match %q", search)
					} else {
						printInfo("Workspace %s is empty", StyleHighlight.Render(s.ID()))
						printNextStep("Add a node with", appName+" add task")
					}
					return nil
				}

				fmt.Println(nodeTable(nodes, -1).Render())
				printStats(len(s.Nodes()), len(s.Edges()), s.CanUndo(), s.CanRedo())
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "only nodes whose id, type or name contain this")
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort by id, type, name or status")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")

	return cmd
}

// =============================================================================
// Helpers
// =============================================================================

// parseAssignments turns key=value and key:=json arguments into a patch.
func parseAssignments(args []string) (nodetype.Fields, error) {
	patch := make(nodetype.Fields, len(args))
	for _, arg := range args {
		if key, raw, ok := strings.Cut(arg, ":="); ok && key != "" && !strings.Contains(key, "=") {
			var v any
			if err := json.Unmarshal([]byte(raw), &v); err != nil {
				return nil, ferrors.Wrap(ferrors.ErrCodeInvalidInput, err, "value of %s is not JSON", key)
			}
			patch[key] = v
			continue
		}
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, ferrors.New(ferrors.ErrCodeInvalidInput, "expected key=value, got %q", arg)
		}
		patch[key] = value
	}
	return patch, nil
}

func parseColumn(s string) (workflow.Column, error) {
	switch col := workflow.Column(strings.ToLower(s)); col {
	case "", workflow.ColumnID, workflow.ColumnType, workflow.ColumnName, workflow.ColumnStatus:
		return col, nil
	default:
		return "", ferrors.New(ferrors.ErrCodeInvalidInput, "cannot sort by %q", s)
	}
}

func gridPosition(i int) workflow.Position {
	return workflow.Position{
		X: float64(i%gridColumns) * gridStepX,
		Y: float64(i/gridColumns) * gridStepY,
	}
}

// printNode prints a node's header, position and data fields.
func printNode(n workflow.Node) {
	fmt.Println(StyleTitle.Render(orDash(n.Label())) + " " + kindStyle(n.Type).Render(string(n.Type)))
	printKeyValue("id", n.ID)
	printKeyValue("position", fmt.Sprintf("(%g, %g)", n.Position.X, n.Position.Y))
	fields := n.Data.Fields()
	for _, key := range fields.Keys() {
		printKeyValue(key, orDash(fields.String(key)))
	}
}

func edgesOf(s *session.Session, id string) []workflow.Edge {
	var out []workflow.Edge
	for _, e := range s.Edges() {
		if e.Touches(id) {
			out = append(out, e)
		}
	}
	return out
}

func handleSuffix(e workflow.Edge) string {
	if e.SourceHandle == "" {
		return ""
	}
	return " (" + e.SourceHandle + ")"
}

// completeKinds offers the registered node types for shell completion.
func completeKinds(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	kinds := nodetype.Kinds()
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
