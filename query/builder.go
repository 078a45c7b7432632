package query

import (
	"github.com/syssam/tether/dialect"
	"github.com/syssam/tether/dialect/sql"
	"github.com/syssam/tether/schema"
	"github.com/syssam/tether/schema/edge"
)

// Option configures a builder.
type Option func(*options)

type options struct {
	registry *schema.Registry
}

// WithRegistry sets the metadata provider of a builder. It defaults to
// schema.Default.
func WithRegistry(r *schema.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// builder holds the state shared by the fetch and aggregate builders. The
// first error is recorded and every later call is a no-op; the error is
// returned by the terminal operation.
type builder struct {
	drv    dialect.ExecQuerier
	graph  *Graph
	params *sql.Params
	where  []*sql.Condition
	limit  int
	offset *int
	err    error
}

func newBuilder(drv dialect.ExecQuerier, entity any, alias string, opts []Option) builder {
	o := options{registry: schema.Default}
	for _, opt := range opts {
		opt(&o)
	}
	b := builder{
		drv:    drv,
		graph:  NewGraph(o.registry),
		params: sql.NewParams(),
	}
	if _, err := b.graph.CreateRoot(entity, alias); err != nil {
		b.err = err
	}
	return b
}

// join resolves path against the alias before its last dot, or the root
// alias if it has none.
func (b *builder) join(path, alias string, kinds []edge.Kind, through bool) {
	if b.err != nil {
		return
	}
	parent, _, ok := sql.SplitPath(path)
	if !ok {
		parent = b.graph.Root().Alias
	}
	kind := edge.Default
	if len(kinds) > 0 {
		kind = kinds[0]
	}
	if through {
		_, b.err = b.graph.AddIntermediateJoin(parent, path, alias, kind)
	} else {
		_, b.err = b.graph.AddJoin(parent, path, alias, kind)
	}
}

func (b *builder) clauses() *Clauses {
	return &Clauses{
		Where:  sql.And(b.where...),
		Limit:  b.limit,
		Offset: b.offset,
	}
}
