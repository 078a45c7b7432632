package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/tether/dialect/sql"
	"github.com/syssam/tether/schema"
	"github.com/syssam/tether/schema/field"
)

// Mode selects the projection of a compiled statement.
type Mode uint8

// Compilation modes.
const (
	// Detail projects every column of every alias.
	Detail Mode = iota
	// Aggregated projects one aggregate expression per aggregate column.
	Aggregated
)

// String returns the mode name.
func (m Mode) String() string {
	if m == Aggregated {
		return "aggregate"
	}
	return "detail"
}

// Clauses are the parts of a statement that are not derived from the
// alias graph. Paths are "alias.field" property paths.
type Clauses struct {
	Where *sql.Condition
	// GroupBy and OrderBy are rendered in detail mode only.
	GroupBy []string
	OrderBy []sql.OrderTerm
	// Aggregates are the projection of aggregate mode.
	Aggregates []*sql.AggregateColumn
	// Limit is rendered when positive.
	Limit int
	// Offset is rendered when set and not negative.
	Offset *int
}

// OutputColumn describes one entry of the SELECT list.
type OutputColumn struct {
	// As is the output alias.
	As string
	// Node is the index of the alias the column belongs to.
	Node int
	// Column is the source column.
	Column *schema.Column
	// Aggregate is set in aggregate mode.
	Aggregate *sql.AggregateColumn
	// Info is the semantic type read from the result set.
	Info field.Info
}

// Compiled is a statement ready for execution. It is immutable.
type Compiled struct {
	SQL     string
	Args    []any
	Mode    Mode
	Columns []OutputColumn

	graph *Graph
}

// Graph returns the alias graph the statement was compiled from.
func (c *Compiled) Graph() *Graph { return c.graph }

// String returns the statement text.
func (c *Compiled) String() string { return c.SQL }

// Compile compiles a detail statement selecting every column of every
// alias of g, root first and joined aliases in join order.
func Compile(g *Graph, c *Clauses) (*Compiled, error) {
	return compile(g, Detail, c)
}

// CompileAggregate compiles a statement selecting the aggregate columns of c.
func CompileAggregate(g *Graph, c *Clauses) (*Compiled, error) {
	return compile(g, Aggregated, c)
}

func compile(g *Graph, mode Mode, c *Clauses) (*Compiled, error) {
	root := g.Root()
	if root == nil {
		return nil, errors.New("query: no root alias declared")
	}
	if c == nil {
		c = &Clauses{}
	}
	out := &Compiled{Mode: mode, graph: g}
	var (
		b     strings.Builder
		lower = cases.Lower(language.Und)
	)
	b.WriteString("SELECT ")
	switch mode {
	case Detail:
		for _, n := range g.nodes {
			for _, col := range n.Columns {
				if len(out.Columns) > 0 {
					b.WriteString(", ")
				}
				as := "this__" + lower.String(n.Entity.Table) + "_" + lower.String(col.Name) + "_"
				if col.Distinct {
					b.WriteString("DISTINCT ")
				}
				b.WriteString(n.Entity.Table + "." + col.Name + " AS " + as)
				out.Columns = append(out.Columns, OutputColumn{As: as, Node: n.index, Column: col.Column, Info: col.Info})
			}
		}
	case Aggregated:
		if len(c.Aggregates) == 0 {
			return nil, errors.New("query: aggregate statement without aggregate columns")
		}
		for i, a := range c.Aggregates {
			n, col, err := g.Resolve(a.Path)
			if err != nil {
				return nil, err
			}
			if i > 0 {
				b.WriteString(", ")
			}
			as := a.As(n.Entity.Table, col.Name)
			b.WriteString(a.Expr(n.Entity.Table+"."+col.Name) + " AS " + as)
			info := col.Info
			if a.Func == sql.FuncCount {
				info = field.Info{Type: field.TypeInt64}
			}
			out.Columns = append(out.Columns, OutputColumn{As: as, Node: n.index, Column: col.Column, Aggregate: a, Info: info})
		}
	default:
		return nil, fmt.Errorf("query: unknown mode %d", mode)
	}
	b.WriteString(" FROM " + root.Entity.Table)
	for _, j := range g.joins {
		for _, e := range j.Edges {
			b.WriteString(" " + e.String())
		}
	}
	if c.Where != nil {
		if err := c.Where.Err(); err != nil {
			return nil, err
		}
		b.WriteString(" WHERE " + c.Where.String())
		out.Args = c.Where.Args()
	}
	if mode == Detail {
		if len(c.GroupBy) > 0 {
			seen := make(map[string]struct{}, len(c.GroupBy))
			b.WriteString(" GROUP BY ")
			for _, p := range c.GroupBy {
				if _, ok := seen[p]; ok {
					continue
				}
				if len(seen) > 0 {
					b.WriteString(", ")
				}
				seen[p] = struct{}{}
				b.WriteString(sql.Path(p))
			}
		}
		for i, o := range c.OrderBy {
			if i == 0 {
				b.WriteString(" ORDER BY ")
			} else {
				b.WriteString(", ")
			}
			b.WriteString(o.String())
		}
	}
	if c.Offset != nil && *c.Offset >= 0 {
		b.WriteString(" OFFSET " + strconv.Itoa(*c.Offset))
	}
	if c.Limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(c.Limit))
	}
	text, err := sql.Expand(b.String(), g.Qualify)
	if err != nil {
		return nil, err
	}
	out.SQL = text
	return out, nil
}
