package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowcraft/pkg/session"
	"github.com/matzehuels/flowcraft/pkg/workflow"
)

// List styles
var (
	listDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	listSearchStyle = lipgloss.NewStyle().Foreground(colorYellow)
)

// sortCycle is the order the "s" key steps through.
var sortCycle = []workflow.Column{
	"",
	workflow.ColumnID,
	workflow.ColumnType,
	workflow.ColumnName,
	workflow.ColumnStatus,
}

// =============================================================================
// NodeTableModel - Interactive node table
// =============================================================================

// NodeTableModel is the bubbletea model for browsing a workflow's nodes with
// search, sorting and pagination.
type NodeTableModel struct {
	filter func(workflow.Query) []workflow.Node

	Query    workflow.Query
	Nodes    []workflow.Node
	Cursor   int
	Offset   int
	Height   int
	Selected *workflow.Node

	searching bool
}

// NewNodeTableModel creates a table over filter, usually Session.Filter.
func NewNodeTableModel(filter func(workflow.Query) []workflow.Node) NodeTableModel {
	m := NodeTableModel{filter: filter, Height: 10}
	m.refresh()
	return m
}

func (m NodeTableModel) Init() tea.Cmd {
	return nil
}

func (m NodeTableModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg), nil
		}
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			m.move(-1)
		case "down", "j":
			m.move(1)
		case "left", "h", "pgup":
			m.move(-m.Height)
		case "right", "l", "pgdown":
			m.move(m.Height)
		case "/":
			m.searching = true
		case "s":
			m.Query.SortBy = nextColumn(m.Query.SortBy)
			m.refresh()
		case "r":
			m.Query.Desc = !m.Query.Desc
			m.refresh()
		case "enter":
			if len(m.Nodes) == 0 {
				return m, nil
			}
			n := m.Nodes[m.Cursor]
			m.Selected = &n
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 9
		if m.Height < 3 {
			m.Height = 3
		}
		m.move(0)
	}
	return m, nil
}

func (m NodeTableModel) updateSearch(msg tea.KeyMsg) NodeTableModel {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.searching = false
		m.Query.Search = ""
	case tea.KeyEnter:
		m.searching = false
	case tea.KeyBackspace:
		if r := []rune(m.Query.Search); len(r) > 0 {
			m.Query.Search = string(r[:len(r)-1])
		}
	case tea.KeyRunes, tea.KeySpace:
		m.Query.Search += string(msg.Runes)
	default:
		return m
	}
	m.refresh()
	return m
}

// refresh reruns the query and keeps the cursor in range.
func (m *NodeTableModel) refresh() {
	m.Nodes = m.filter(m.Query)
	m.move(0)
}

// move shifts the cursor by delta, clamped, and scrolls the page with it.
func (m *NodeTableModel) move(delta int) {
	m.Cursor += delta
	if m.Cursor >= len(m.Nodes) {
		m.Cursor = len(m.Nodes) - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m NodeTableModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Workflow Nodes"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ←/→ page  / search  s sort  r reverse  ⏎ show  q quit"))
	b.WriteString("\n")
	switch {
	case m.searching:
		b.WriteString(listSearchStyle.Render("/" + m.Query.Search + "▏"))
	case m.Query.Search != "":
		b.WriteString(listDimStyle.Render("filter: " + m.Query.Search))
	}
	b.WriteString("\n")

	if len(m.Nodes) == 0 {
		b.WriteString(listDimStyle.Render("  no nodes"))
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Nodes))
	b.WriteString(nodeTable(m.Nodes[m.Offset:end], m.Cursor-m.Offset).Render())
	b.WriteString("\n\n")

	pages := (len(m.Nodes) + m.Height - 1) / m.Height
	footer := fmt.Sprintf("  [%d/%d]  page %d/%d", m.Cursor+1, len(m.Nodes), m.Cursor/m.Height+1, pages)
	if m.Query.SortBy != "" {
		dir := "↑"
		if m.Query.Desc {
			dir = "↓"
		}
		footer += fmt.Sprintf("  sort: %s %s", m.Query.SortBy, dir)
	}
	b.WriteString(listDimStyle.Render(footer))

	return b.String()
}

// nodeTable renders nodes as a lipgloss table. A current index >= 0 adds a
// cursor column and highlights that row.
func nodeTable(nodes []workflow.Node, current int) *table.Table {
	withCursor := current >= 0
	shift := 0
	headers := []string{"ID", "Type", "Name", "Status"}
	if withCursor {
		headers = append([]string{""}, headers...)
		shift = 1
	}

	rows := make([][]string, len(nodes))
	for i, n := range nodes {
		row := []string{n.ID, string(n.Type), orDash(n.Label()), orDash(n.Status())}
		if withCursor {
			marker := "  "
			if i == current {
				marker = "▸ "
			}
			row = append([]string{marker}, row...)
		}
		rows[i] = row
	}

	return newTable(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			base := lipgloss.NewStyle()
			if row < 0 || row >= len(nodes) {
				return base
			}
			if col == shift+1 {
				base = kindStyle(nodes[row].Type)
			}
			if row == current {
				return base.Bold(true)
			}
			return base
		})
}

func nextColumn(c workflow.Column) workflow.Column {
	for i, col := range sortCycle {
		if col == c {
			return sortCycle[(i+1)%len(sortCycle)]
		}
	}
	return ""
}

// tableCommand creates the table command.
func (c *CLI) tableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "table",
		Short: "Browse nodes interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.view(cmd.Context(), func(s *session.Session) error {
				p := tea.NewProgram(NewNodeTableModel(s.Filter), tea.WithContext(cmd.Context()))
				final, err := p.Run()
				if err != nil {
					return err
				}

				fm, ok := final.(NodeTableModel)
				if !ok || fm.Selected == nil {
					return nil
				}
				printNode(*fm.Selected)
				return nil
			})
		},
	}
}
