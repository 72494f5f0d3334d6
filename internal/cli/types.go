package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowcraft/pkg/nodetype"
)

// typesCommand creates the types command, the terminal's node palette.
func (c *CLI) typesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "types [type]",
		Short: "List node types and their fields",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := nodetype.NewRegistry()

			if len(args) == 1 {
				kind := nodetype.Kind(args[0])
				if !kind.Known() {
					return fmt.Errorf("unknown node type %q", kind)
				}
				spec := reg.Spec(kind)
				fmt.Println(StyleTitle.Render(spec.Title) + " " + StyleDim.Render(spec.Description))
				fields := reg.Defaults(kind).Fields()
				for _, key := range fields.Keys() {
					value := orDash(fields.String(key))
					if contains(spec.Required, key) {
						key += " *"
					}
					printKeyValue(key, value)
				}
				printDetail("* required")
				return nil
			}

			specs := reg.Specs()
			rows := make([][]string, len(specs))
			for i, s := range specs {
				rows[i] = []string{
					string(s.Kind),
					s.Title,
					s.Description,
					strings.Join(s.Required, ", "),
					orDash(strings.Join(s.Handles, ", ")),
				}
			}

			t := newTable("Type", "Title", "Description", "Required", "Handles").
				Rows(rows...).
				StyleFunc(func(row, col int) lipgloss.Style {
					switch {
					case row < 0:
						return styleHeader
					case col == 0 && row < len(specs):
						return kindStyle(specs[row].Kind)
					case col >= 3:
						return StyleDim
					}
					return lipgloss.NewStyle()
				})
			fmt.Println(t.Render())
			return nil
		},
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
