package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowcraft/pkg/cache"
	"github.com/matzehuels/flowcraft/pkg/render"
	"github.com/matzehuels/flowcraft/pkg/session"
)

// Output formats of the render command.
const (
	formatSVG = "svg"
	formatPNG = "png"
	formatDOT = "dot"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output      string // output file path; the extension selects the format when --format is unset
	format      string // svg, png or dot
	detailed    bool   // show node type and data fields in labels
	leftToRight bool   // horizontal layout
	noCache     bool   // always run Graphviz
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Draw the workflow with Graphviz",
		Long: `Draw the workflow as SVG, PNG or DOT.

Nodes are coloured by type, condition nodes are diamonds and their true and
false branches are labelled. Selected nodes and edges are drawn bold.`,
		Example: `  flowcraft render -o workflow.svg
  flowcraft render --format png --detailed -o workflow.png
  flowcraft render --format dot | dot -Tpdf > workflow.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := resolveFormat(opts)
			if err != nil {
				return err
			}
			return c.view(cmd.Context(), func(s *session.Session) error {
				prog := newProgress(c.Logger)
				dot := render.ToDOT(s.Snapshot(), render.Options{
					Detailed:    opts.detailed,
					LeftToRight: opts.leftToRight,
				})

				renders := cache.NewNullCache()
				if !opts.noCache {
					renders = c.renderCache()
				}
				defer renders.Close()

				out := []byte(dot)
				if format != formatDOT {
					var hit bool
					out, hit, err = cache.GetOrCompute(cmd.Context(), renders, cache.RenderKey(format, dot), cache.DefaultTTL,
						func() ([]byte, error) {
							if format == formatPNG {
								return render.RenderPNG(cmd.Context(), dot)
							}
							return render.RenderSVG(cmd.Context(), dot)
						})
					if err != nil {
						return fmt.Errorf("render %s: %w", format, err)
					}
					c.Logger.Debug("Render cache", "format", format, "hit", hit)
				}

				if opts.output == "" || opts.output == "-" {
					_, err := cmd.OutOrStdout().Write(out)
					return err
				}
				if err := os.MkdirAll(filepath.Dir(opts.output), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(opts.output, out, 0o644); err != nil {
					return err
				}
				prog.done("Rendered workflow", "format", format)
				printSuccess("Rendered %d nodes and %d edges", len(s.Nodes()), len(s.Edges()))
				printFile(opts.output)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: svg, png or dot (default from extension, else svg)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show node type and data in labels")
	cmd.Flags().BoolVar(&opts.leftToRight, "lr", false, "lay out left to right")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "render even when a cached diagram exists")

	return cmd
}

// resolveFormat picks the output format from the flag or the file extension.
func resolveFormat(opts renderOpts) (string, error) {
	format := strings.ToLower(opts.format)
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(opts.output)), ".")
		if format != formatPNG && format != formatDOT {
			format = formatSVG
		}
	}
	switch format {
	case formatSVG, formatPNG, formatDOT:
		return format, nil
	default:
		return "", fmt.Errorf("unsupported format %q", opts.format)
	}
}
