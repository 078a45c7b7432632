package query

import (
	"context"

	"github.com/syssam/tether/dialect"
	"github.com/syssam/tether/dialect/sql"
	"github.com/syssam/tether/schema/edge"
)

// AggregateQuery is the builder of aggregate queries.
type AggregateQuery struct {
	builder
	columns []*sql.AggregateColumn
}

// Aggregate returns a builder of aggregates over the entity, given by
// value, type, name, or metadata, aliased as alias:
//
//	q := query.Aggregate(drv, fixture.Student{}, "s").
//		Count("s.id").
//		Avg("s.gpa")
//	rows, err := q.All(ctx)
func Aggregate(drv dialect.ExecQuerier, entity any, alias string, opts ...Option) *AggregateQuery {
	return &AggregateQuery{builder: newBuilder(drv, entity, alias, opts)}
}

// P returns the parameter sequence of the query.
func (q *AggregateQuery) P() *sql.Params { return q.params }

// Graph returns the alias graph of the query.
func (q *AggregateQuery) Graph() *Graph { return q.graph }

// Err returns the first error recorded by the builder.
func (q *AggregateQuery) Err() error { return q.err }

// Join joins the relation at path under a new alias.
func (q *AggregateQuery) Join(path, alias string, kind ...edge.Kind) *AggregateQuery {
	q.join(path, alias, kind, false)
	return q
}

// JoinThrough is like Join, but requires a bridge-table relation.
func (q *AggregateQuery) JoinThrough(path, alias string, kind ...edge.Kind) *AggregateQuery {
	q.join(path, alias, kind, true)
	return q
}

// Where adds conditions to the query.
func (q *AggregateQuery) Where(cs ...*sql.Condition) *AggregateQuery {
	q.where = append(q.where, cs...)
	return q
}

// Limit limits the number of rows.
func (q *AggregateQuery) Limit(n int) *AggregateQuery {
	q.limit = n
	return q
}

// Offset skips rows.
func (q *AggregateQuery) Offset(n int) *AggregateQuery {
	q.offset = &n
	return q
}

// Add appends aggregate columns.
func (q *AggregateQuery) Add(cs ...*sql.AggregateColumn) *AggregateQuery {
	q.columns = append(q.columns, cs...)
	return q
}

// Sum appends SUM(path).
func (q *AggregateQuery) Sum(path string) *AggregateQuery { return q.Add(sql.Sum(path)) }

// Count appends COUNT(path).
func (q *AggregateQuery) Count(path string) *AggregateQuery { return q.Add(sql.Count(path)) }

// Avg appends AVG(path).
func (q *AggregateQuery) Avg(path string) *AggregateQuery { return q.Add(sql.Avg(path)) }

// Min appends MIN(path).
func (q *AggregateQuery) Min(path string) *AggregateQuery { return q.Add(sql.Min(path)) }

// Max appends MAX(path).
func (q *AggregateQuery) Max(path string) *AggregateQuery { return q.Add(sql.Max(path)) }

// First appends FIRST(path).
func (q *AggregateQuery) First(path string) *AggregateQuery { return q.Add(sql.First(path)) }

// Last appends LAST(path).
func (q *AggregateQuery) Last(path string) *AggregateQuery { return q.Add(sql.Last(path)) }

// Compile compiles the query without executing it.
func (q *AggregateQuery) Compile() (*Compiled, error) {
	if q.err != nil {
		return nil, q.err
	}
	c := q.clauses()
	c.Aggregates = q.columns
	return CompileAggregate(q.graph, c)
}

// All executes the query and returns one tuple per row.
func (q *AggregateQuery) All(ctx context.Context) ([]Tuple, error) {
	c, err := q.Compile()
	if err != nil {
		return nil, err
	}
	return RunAggregate(ctx, q.drv, c)
}
