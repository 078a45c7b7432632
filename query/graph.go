package query

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/syssam/tether"
	"github.com/syssam/tether/dialect/sql"
	"github.com/syssam/tether/schema"
	"github.com/syssam/tether/schema/edge"
)

// Node is one alias of the join tree. Nodes live in the arena of their
// Graph and refer to each other by index.
type Node struct {
	// Alias is the caller-supplied name, unique within the graph.
	Alias string
	// Entity is the metadata of the aliased record type.
	Entity *schema.Entity
	// Path is the property path used to reach the node from the root
	// alias, e.g. "s.faculty". It is empty for the root.
	Path string
	// Parent is the index of the parent node, or -1 for the root.
	Parent int
	// Children are the indexes of the joined nodes, in join order.
	Children []int
	// Columns bound to this node. Distinct columns come first.
	Columns []*Column
	// Relation is the field of the parent holding this node; nil for the root.
	Relation *schema.Relation

	index int
}

// Index returns the position of the node in the graph.
func (n *Node) Index() int { return n.index }

// Root reports whether n is the root alias.
func (n *Node) Root() bool { return n.Parent < 0 }

// Column returns the column bound to the given field, or nil.
func (n *Node) Column(name string) *Column {
	for _, c := range n.Columns {
		if c.Field == name {
			return c
		}
	}
	return nil
}

// Column is a schema column bound to one node, with its query-local flags.
type Column struct {
	*schema.Column
	Distinct bool
}

// Ref is a table-qualified column.
type Ref struct {
	Table  string
	Column string
}

// String returns "table.column".
func (r Ref) String() string { return r.Table + "." + r.Column }

// JoinEdge is one JOIN clause: Left is the column of an already joined
// table, Right the column of the joined one.
type JoinEdge struct {
	Kind  edge.Kind
	Left  Ref
	Right Ref
}

// String renders the clause.
func (e JoinEdge) String() string {
	return e.Kind.Keyword() + " " + e.Right.Table + " ON (" + e.Left.String() + " = " + e.Right.String() + ")"
}

// Join holds the edges that bring one node into the statement: a single
// edge for a direct join, the host-to-bridge and bridge-to-target edges for
// an intermediate one.
type Join struct {
	Node  int
	Edges []JoinEdge
}

// Intermediate reports whether the join goes through a bridge table.
func (j *Join) Intermediate() bool { return len(j.Edges) == 2 }

// Graph is the alias graph of one query: a root alias and the aliases
// joined to it. It is not safe for concurrent mutation.
type Graph struct {
	reg   *schema.Registry
	nodes []*Node
	joins []*Join
}

// NewGraph returns an empty graph resolving entities with reg, or with
// schema.Default if reg is nil.
func NewGraph(reg *schema.Registry) *Graph {
	if reg == nil {
		reg = schema.Default
	}
	return &Graph{reg: reg}
}

// Registry returns the metadata provider of the graph.
func (g *Graph) Registry() *schema.Registry { return g.reg }

// CreateRoot declares the root alias. It fails with a
// *tether.UnmappedEntityError if the entity has no usable metadata.
func (g *Graph) CreateRoot(entity any, alias string) (*Node, error) {
	if len(g.nodes) > 0 {
		return nil, fmt.Errorf("query: root alias already declared as %q", g.nodes[0].Alias)
	}
	e, err := g.reg.Describe(entity)
	if err != nil {
		return nil, tether.NewUnmappedEntityError(entityName(entity), err)
	}
	return g.add(&Node{Alias: alias, Entity: e, Parent: -1})
}

// AddJoin joins the relation named by the trailing segment of path, held
// by the parent alias, as a direct or intermediate join depending on how
// the relation is declared. kind edge.Default takes the declared kind.
func (g *Graph) AddJoin(parent, path, alias string, kind edge.Kind) (*Node, error) {
	p, j, err := g.resolveJoin(parent, path)
	if err != nil {
		return nil, err
	}
	if j.Relation.Bridge != nil {
		return g.addIntermediate(p, j, alias, kind)
	}
	return g.addDirect(p, j, alias, kind)
}

// AddDirectJoin joins a relation declared with a join column. It fails
// with a *tether.JoinNotDeclaredError if the field carries no such
// declaration.
func (g *Graph) AddDirectJoin(parent, path, alias string, kind edge.Kind) (*Node, error) {
	p, j, err := g.resolveJoin(parent, path)
	if err != nil {
		return nil, err
	}
	if j.Relation.Join == nil {
		return nil, tether.NewJoinNotDeclaredError(p.Entity.Name, path, "relationship goes through a bridge table")
	}
	return g.addDirect(p, j, alias, kind)
}

// AddIntermediateJoin joins a relation declared with a bridge table. The
// statement gets two chained JOIN clauses and the graph a single node.
func (g *Graph) AddIntermediateJoin(parent, path, alias string, kind edge.Kind) (*Node, error) {
	p, j, err := g.resolveJoin(parent, path)
	if err != nil {
		return nil, err
	}
	if j.Relation.Bridge == nil {
		return nil, tether.NewJoinNotDeclaredError(p.Entity.Name, path, "no bridge table declared")
	}
	return g.addIntermediate(p, j, alias, kind)
}

func (g *Graph) resolveJoin(parent, path string) (*Node, *schema.Join, error) {
	if len(g.nodes) == 0 {
		return nil, nil, errors.New("query: join before root alias")
	}
	p, ok := g.Lookup(parent)
	if !ok {
		return nil, nil, tether.NewUnresolvedPropertyPathError(path, fmt.Sprintf("no alias %q", parent))
	}
	name := path
	if _, f, ok := sql.SplitPath(path); ok {
		name = f
	}
	j, err := g.reg.ResolveJoin(p.Entity, name)
	if err != nil {
		return nil, nil, err
	}
	return p, j, nil
}

func (g *Graph) addDirect(p *Node, j *schema.Join, alias string, kind edge.Kind) (*Node, error) {
	kind = kind.Or(j.Relation.Kind).Or(edge.Inner)
	n, err := g.addChild(p, j, alias)
	if err != nil {
		return nil, err
	}
	g.joins = append(g.joins, &Join{
		Node: n.index,
		Edges: []JoinEdge{{
			Kind:  kind,
			Left:  Ref{p.Entity.Table, j.Relation.Join.Column},
			Right: Ref{j.Target.Table, j.Relation.Join.References},
		}},
	})
	return n, nil
}

func (g *Graph) addIntermediate(p *Node, j *schema.Join, alias string, kind edge.Kind) (*Node, error) {
	kind = kind.Or(j.Relation.Kind).Or(edge.Inner)
	n, err := g.addChild(p, j, alias)
	if err != nil {
		return nil, err
	}
	b := j.Relation.Bridge
	g.joins = append(g.joins, &Join{
		Node: n.index,
		Edges: []JoinEdge{
			{Kind: kind, Left: Ref{p.Entity.Table, b.Host.Column}, Right: Ref{b.Table, b.Host.References}},
			{Kind: kind, Left: Ref{b.Table, b.Target.Column}, Right: Ref{j.Target.Table, b.Target.References}},
		},
	})
	return n, nil
}

func (g *Graph) addChild(p *Node, j *schema.Join, alias string) (*Node, error) {
	base := p.Path
	if base == "" {
		base = p.Alias
	}
	n, err := g.add(&Node{
		Alias:    alias,
		Entity:   j.Target,
		Path:     base + "." + j.Relation.Field,
		Parent:   p.index,
		Relation: j.Relation,
	})
	if err != nil {
		return nil, err
	}
	p.Children = append(p.Children, n.index)
	return n, nil
}

func (g *Graph) add(n *Node) (*Node, error) {
	if n.Alias == "" {
		return nil, errors.New("query: empty alias name")
	}
	if _, ok := g.Lookup(n.Alias); ok {
		return nil, tether.NewDuplicateAliasError(n.Alias)
	}
	n.index = len(g.nodes)
	n.Columns = make([]*Column, len(n.Entity.Columns))
	for i, c := range n.Entity.Columns {
		n.Columns[i] = &Column{Column: c}
	}
	g.nodes = append(g.nodes, n)
	return n, nil
}

// Lookup returns the node with the given alias or property path.
func (g *Graph) Lookup(name string) (*Node, bool) {
	for _, n := range g.nodes {
		if n.Alias == name || (n.Path != "" && n.Path == name) {
			return n, true
		}
	}
	return nil, false
}

// Root returns the root node, or nil if none was declared.
func (g *Graph) Root() *Node {
	if len(g.nodes) == 0 {
		return nil
	}
	return g.nodes[0]
}

// Node returns the node at index i.
func (g *Graph) Node(i int) *Node { return g.nodes[i] }

// Nodes returns the nodes in declaration order, root first.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Joins returns the joins in declaration order.
func (g *Graph) Joins() []*Join { return g.joins }

// Resolve resolves an "alias.field" property path to its node and column.
// It fails with a *tether.UnresolvedPropertyPathError.
func (g *Graph) Resolve(path string) (*Node, *Column, error) {
	alias, name, ok := sql.SplitPath(path)
	if !ok {
		return nil, nil, tether.NewUnresolvedPropertyPathError(path, "want alias.field")
	}
	n, ok := g.Lookup(alias)
	if !ok {
		return nil, nil, tether.NewUnresolvedPropertyPathError(path, fmt.Sprintf("no alias %q", alias))
	}
	c := n.Column(name)
	if c == nil {
		reason := fmt.Sprintf("%s has no column %q", n.Entity.Name, name)
		if n.Entity.Relation(name) != nil {
			reason = fmt.Sprintf("%s.%s is a relation", n.Entity.Name, name)
		}
		return nil, nil, tether.NewUnresolvedPropertyPathError(path, reason)
	}
	return n, c, nil
}

// Qualify resolves a property path to its "table.column".
func (g *Graph) Qualify(path string) (string, error) {
	n, c, err := g.Resolve(path)
	if err != nil {
		return "", err
	}
	return n.Entity.Table + "." + c.Name, nil
}

// Distinct marks the column at path distinct and moves it to the front of
// its node's columns.
func (g *Graph) Distinct(path string) error {
	n, c, err := g.Resolve(path)
	if err != nil {
		return err
	}
	c.Distinct = true
	i := slices.Index(n.Columns, c)
	n.Columns = slices.Insert(slices.Delete(n.Columns, i, i+1), 0, c)
	return nil
}

func entityName(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case reflect.Type:
		return v.String()
	case *schema.Entity:
		return v.Name
	}
	return fmt.Sprintf("%T", v)
}
