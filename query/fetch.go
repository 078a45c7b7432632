package query

import (
	"context"
	"fmt"
	"reflect"

	"github.com/syssam/tether"
	"github.com/syssam/tether/dialect"
	"github.com/syssam/tether/dialect/sql"
	"github.com/syssam/tether/schema/edge"
)

// FetchQuery is the builder of detail queries returning records of type T.
type FetchQuery[T any] struct {
	builder
	groupBy []string
	orderBy []sql.OrderTerm
}

// Fetch returns a builder for records of the entity type T, aliased as alias:
//
//	q := query.Fetch[Student](drv, "s")
//	students, err := q.Join("s.faculty", "f").
//		Where(q.P().EQ("s.id", 42)).
//		All(ctx)
func Fetch[T any](drv dialect.ExecQuerier, alias string, opts ...Option) *FetchQuery[T] {
	return FetchEntity[T](drv, reflect.TypeFor[T](), alias, opts...)
}

// FetchEntity is like Fetch for an entity given by name, type, or
// metadata. Dynamic entities are fetched as schema.Record:
//
//	query.FetchEntity[schema.Record](drv, "Student", "s")
func FetchEntity[T any](drv dialect.ExecQuerier, entity any, alias string, opts ...Option) *FetchQuery[T] {
	q := &FetchQuery[T]{builder: newBuilder(drv, entity, alias, opts)}
	if q.err == nil {
		if _, ok := q.graph.Root().Entity.New().(*T); !ok {
			q.err = fmt.Errorf("query: entity %s does not produce *%s", q.graph.Root().Entity.Name, reflect.TypeFor[T]())
		}
	}
	return q
}

// P returns the parameter sequence of the query. Conditions passed to
// Where must be created from it, in the order they appear in the
// statement.
func (q *FetchQuery[T]) P() *sql.Params { return q.params }

// Graph returns the alias graph of the query.
func (q *FetchQuery[T]) Graph() *Graph { return q.graph }

// Err returns the first error recorded by the builder.
func (q *FetchQuery[T]) Err() error { return q.err }

// Join joins the relation at path, "alias.field" or a field of the root,
// under a new alias. Bridge-table relations become intermediate joins.
// The join kind defaults to the declared one.
func (q *FetchQuery[T]) Join(path, alias string, kind ...edge.Kind) *FetchQuery[T] {
	q.join(path, alias, kind, false)
	return q
}

// JoinThrough is like Join, but requires a bridge-table relation.
func (q *FetchQuery[T]) JoinThrough(path, alias string, kind ...edge.Kind) *FetchQuery[T] {
	q.join(path, alias, kind, true)
	return q
}

// Where adds conditions to the query. Conditions of several calls are
// combined with AND.
func (q *FetchQuery[T]) Where(cs ...*sql.Condition) *FetchQuery[T] {
	q.where = append(q.where, cs...)
	return q
}

// GroupBy adds property paths to the GROUP BY clause.
func (q *FetchQuery[T]) GroupBy(paths ...string) *FetchQuery[T] {
	q.groupBy = append(q.groupBy, paths...)
	return q
}

// OrderBy adds a term to the ORDER BY clause.
func (q *FetchQuery[T]) OrderBy(path string, dir sql.Direction) *FetchQuery[T] {
	q.orderBy = append(q.orderBy, sql.OrderTerm{Path: path, Direction: dir})
	return q
}

// Limit limits the number of rows. Non-positive values render no LIMIT.
func (q *FetchQuery[T]) Limit(n int) *FetchQuery[T] {
	q.limit = n
	return q
}

// Offset skips rows. Negative values render no OFFSET.
func (q *FetchQuery[T]) Offset(n int) *FetchQuery[T] {
	q.offset = &n
	return q
}

// Distinct marks the column at path DISTINCT.
func (q *FetchQuery[T]) Distinct(path string) *FetchQuery[T] {
	if q.err == nil {
		q.err = q.graph.Distinct(path)
	}
	return q
}

// Compile compiles the query without executing it.
func (q *FetchQuery[T]) Compile() (*Compiled, error) {
	if q.err != nil {
		return nil, q.err
	}
	return Compile(q.graph, q.detailClauses())
}

func (q *FetchQuery[T]) detailClauses() *Clauses {
	c := q.clauses()
	c.GroupBy = q.groupBy
	c.OrderBy = q.orderBy
	return c
}

// All executes the query and returns the root records.
func (q *FetchQuery[T]) All(ctx context.Context) ([]*T, error) {
	c, err := q.Compile()
	if err != nil {
		return nil, err
	}
	return q.run(ctx, c)
}

func (q *FetchQuery[T]) run(ctx context.Context, c *Compiled) ([]*T, error) {
	recs, err := Run(ctx, q.drv, c)
	if err != nil {
		return nil, err
	}
	out := make([]*T, len(recs))
	for i, r := range recs {
		out[i] = r.(*T)
	}
	return out, nil
}

// AllX is like All, but panics if an error occurs.
func (q *FetchQuery[T]) AllX(ctx context.Context) []*T {
	nodes, err := q.All(ctx)
	if err != nil {
		panic(err)
	}
	return nodes
}

// First returns the first root record. Queries without joins are limited
// to one row; joined rows are all read so collections are complete.
// Returns a *tether.NotFoundError when no record was found.
func (q *FetchQuery[T]) First(ctx context.Context) (*T, error) {
	if q.err != nil {
		return nil, q.err
	}
	c := q.detailClauses()
	if len(q.graph.Joins()) == 0 {
		c.Limit = 1
	}
	compiled, err := Compile(q.graph, c)
	if err != nil {
		return nil, err
	}
	nodes, err := q.run(ctx, compiled)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, tether.NewNotFoundError(q.graph.Root().Entity.Name)
	}
	return nodes[0], nil
}

// Only returns the single root record of the query.
// Returns a *tether.NotSingularError when more than one record is found,
// and a *tether.NotFoundError when none is.
func (q *FetchQuery[T]) Only(ctx context.Context) (*T, error) {
	nodes, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	switch len(nodes) {
	case 1:
		return nodes[0], nil
	case 0:
		return nil, tether.NewNotFoundError(q.graph.Root().Entity.Name)
	default:
		return nil, tether.NewNotSingularError(q.graph.Root().Entity.Name, len(nodes))
	}
}

// OnlyX is like Only, but panics if an error occurs.
func (q *FetchQuery[T]) OnlyX(ctx context.Context) *T {
	node, err := q.Only(ctx)
	if err != nil {
		panic(err)
	}
	return node
}
