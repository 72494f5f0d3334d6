package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	ferrors "github.com/matzehuels/flowcraft/pkg/errors"
	"github.com/matzehuels/flowcraft/pkg/session"
)

// importCommand creates the import command.
func (c *CLI) importCommand() *cobra.Command {
	var rejectDangling, undoable bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the workflow with an exported JSON document",
		Long: `Replace the workflow with an exported JSON document. Use - for stdin.

Missing ids, types, positions and data are filled in. The import is
all-or-nothing: a malformed document leaves the workflow untouched.

An import replaces the current state and keeps the undo and redo stacks as
they were. With --undoable (or [import] undoable in the config file) it is
recorded as an edit instead, so undo brings back the previous workflow.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if cmd.Flags().Changed("reject-dangling") {
				c.cfg.Import.RejectDanglingEdges = rejectDangling
			}
			if cmd.Flags().Changed("undoable") {
				c.cfg.Import.Undoable = undoable
			}

			r, err := stdinOrFile(args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			prog := newProgress(c.Logger)
			return c.edit(ctx, func(s *session.Session) error {
				if err := s.Import(ctx, r); err != nil {
					return err
				}
				prog.done("Imported workflow", "file", args[0])
				printSuccess("Imported %d nodes and %d edges", len(s.Nodes()), len(s.Edges()))
				if err := s.Validate(); err != nil {
					printWarning("The imported workflow has problems")
					printProblems(err)
					printNextStep("Inspect them with", appName+" check")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&rejectDangling, "reject-dangling", false, "fail on edges pointing at missing nodes")
	cmd.Flags().BoolVar(&undoable, "undoable", false, "record the import as an undo step")

	return cmd
}

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the workflow as a JSON document",
		Long:  `Write the workflow as a JSON document. Without a file, or with -, the document goes to stdout.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.view(ctx, func(s *session.Session) error {
				if len(args) == 0 || args[0] == "-" {
					return s.Export(ctx, cmd.OutOrStdout())
				}

				path := args[0]
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return err
				}
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				if err := s.Export(ctx, f); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				printSuccess("Exported %d nodes and %d edges", len(s.Nodes()), len(s.Edges()))
				printFile(path)
				return nil
			})
		},
	}
}

// checkCommand creates the check command.
func (c *CLI) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the workflow for structural and config problems",
		Long: `Check that node and edge ids are unique, that every edge connects existing
nodes, and that every node's data passes its type's validation. Imported
workflows may hold data that was never submitted through the config panel.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.view(cmd.Context(), func(s *session.Session) error {
				problems := 0

				if err := s.Validate(); err != nil {
					problems += printProblems(err)
				}

				for _, n := range s.Nodes() {
					err := s.Registry().ValidateData(n.Type, n.Data)
					if err == nil {
						continue
					}
					var verr *ferrors.ValidationError
					if !errors.As(err, &verr) {
						return err
					}
					problems++
					printWarning("%s (%s): %s", n.ID, n.Type, strings.Join(verr.FieldNames(), ", "))
					for _, f := range verr.Fields {
						printDetail("%s %s", f.Field, f.Message)
					}
				}

				if problems > 0 {
					return fmt.Errorf("%d %s found", problems, plural(problems, "problem"))
				}
				printSuccess("%s", StyleSuccess.Render("Workflow is valid"))
				printStats(len(s.Nodes()), len(s.Edges()), s.CanUndo(), s.CanRedo())
				return nil
			})
		},
	}
}

// printProblems lists the errors joined in err and returns their count.
func printProblems(err error) int {
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		printError("%v", err)
		return 1
	}
	errs := joined.Unwrap()
	for _, e := range errs {
		printError("%v", e)
	}
	return len(errs)
}
