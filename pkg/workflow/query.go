package workflow

import (
	"cmp"
	"slices"
	"strings"
)

// Column names a sortable column of the node table.
type Column string

// Sortable columns.
const (
	ColumnID     Column = "id"
	ColumnType   Column = "type"
	ColumnName   Column = "name"
	ColumnStatus Column = "status"
)

// Query selects and orders nodes for the table view.
type Query struct {
	// Search keeps nodes whose ID, type or name contain it, ignoring case.
	Search string
	// SortBy orders the result; empty keeps graph order.
	SortBy Column
	// Desc reverses the sort order.
	Desc bool
}

// Filter returns copies of the nodes matching q.
func (g *Graph) Filter(q Query) []Node {
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	var out []Node
	for _, n := range g.nodes {
		if needle != "" && !matches(n, needle) {
			continue
		}
		out = append(out, n.Clone())
	}

	if q.SortBy != "" {
		slices.SortStableFunc(out, func(a, b Node) int {
			c := cmp.Compare(columnValue(a, q.SortBy), columnValue(b, q.SortBy))
			if q.Desc {
				return -c
			}
			return c
		})
	}
	return out
}

// Status returns the node's status column value. Only tasks have a status.
func (n Node) Status() string {
	if n.Data == nil {
		return ""
	}
	return n.Data.Fields().String("status")
}

func matches(n Node, needle string) bool {
	for _, hay := range []string{n.ID, string(n.Type), n.Label()} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

func columnValue(n Node, c Column) string {
	switch c {
	case ColumnID:
		return n.ID
	case ColumnType:
		return string(n.Type)
	case ColumnName:
		return strings.ToLower(n.Label())
	case ColumnStatus:
		return n.Status()
	default:
		return ""
	}
}
