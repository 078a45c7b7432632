package querydoc

import (
	"context"
	"fmt"

	"github.com/syssam/tether/dialect"
	"github.com/syssam/tether/dialect/sql"
	"github.com/syssam/tether/query"
	"github.com/syssam/tether/schema"
	"github.com/syssam/tether/schema/edge"
)

// Result is the outcome of running a document.
type Result struct {
	SQL  string `json:"sql" yaml:"sql" msgpack:"sql"`
	Args []any  `json:"args,omitempty" yaml:"args,omitempty" msgpack:"args,omitempty"`
	// Records holds the detail records, dynamic ones as nested maps.
	Records []any `json:"records,omitempty" yaml:"records,omitempty" msgpack:"records,omitempty"`
	// Columns and Tuples hold the aggregate output.
	Columns []string `json:"columns,omitempty" yaml:"columns,omitempty" msgpack:"columns,omitempty"`
	Tuples  [][]any  `json:"tuples,omitempty" yaml:"tuples,omitempty" msgpack:"tuples,omitempty"`
}

// Compile resolves the document against reg and renders its statement.
func (d *Document) Compile(reg *schema.Registry) (*query.Compiled, error) {
	if d.Aggregated() {
		q, err := d.Aggregate(nil, reg)
		if err != nil {
			return nil, err
		}
		return q.Compile()
	}
	q, err := d.Fetch(nil, reg)
	if err != nil {
		return nil, err
	}
	return q.Compile()
}

// Run compiles the document and executes it on drv.
func (d *Document) Run(ctx context.Context, drv dialect.ExecQuerier, reg *schema.Registry) (*Result, error) {
	c, err := d.Compile(reg)
	if err != nil {
		return nil, err
	}
	res := &Result{SQL: c.SQL, Args: c.Args}
	if c.Mode == query.Aggregated {
		tuples, err := query.RunAggregate(ctx, drv, c)
		if err != nil {
			return nil, err
		}
		for _, col := range c.Columns {
			res.Columns = append(res.Columns, col.As)
		}
		res.Tuples = make([][]any, len(tuples))
		for i, t := range tuples {
			res.Tuples[i] = t.Interface()
		}
		return res, nil
	}
	records, err := query.Run(ctx, drv, c)
	if err != nil {
		return nil, err
	}
	res.Records = make([]any, len(records))
	for i, r := range records {
		if rec, ok := r.(*schema.Record); ok {
			res.Records[i] = rec.Map()
		} else {
			res.Records[i] = r
		}
	}
	return res, nil
}

// Fetch returns the detail builder of the document.
func (d *Document) Fetch(drv dialect.ExecQuerier, reg *schema.Registry) (*query.FetchQuery[schema.Record], error) {
	q := query.FetchEntity[schema.Record](drv, d.Entity, d.Alias, query.WithRegistry(reg))
	for _, j := range d.Joins {
		kind, err := edge.ParseKind(j.Kind)
		if err != nil {
			return nil, fmt.Errorf("querydoc: join %s: %w", j.Alias, err)
		}
		if j.Through {
			q.JoinThrough(j.Path, j.Alias, kind)
		} else {
			q.Join(j.Path, j.Alias, kind)
		}
	}
	if d.Where != nil {
		c, err := d.condition(q.P(), d.Where)
		if err != nil {
			return nil, err
		}
		q.Where(c)
	}
	for _, p := range d.Distinct {
		q.Distinct(p)
	}
	q.GroupBy(d.GroupBy...)
	for _, o := range d.OrderBy {
		dir, err := sql.ParseDirection(o.Dir)
		if err != nil {
			return nil, fmt.Errorf("querydoc: order by %s: %w", o.Path, err)
		}
		q.OrderBy(o.Path, dir)
	}
	if d.Limit > 0 {
		q.Limit(d.Limit)
	}
	if d.Offset != nil {
		q.Offset(*d.Offset)
	}
	return q, q.Err()
}

// Aggregate returns the aggregate builder of the document.
func (d *Document) Aggregate(drv dialect.ExecQuerier, reg *schema.Registry) (*query.AggregateQuery, error) {
	q := query.Aggregate(drv, d.Entity, d.Alias, query.WithRegistry(reg))
	for _, j := range d.Joins {
		kind, err := edge.ParseKind(j.Kind)
		if err != nil {
			return nil, fmt.Errorf("querydoc: join %s: %w", j.Alias, err)
		}
		if j.Through {
			q.JoinThrough(j.Path, j.Alias, kind)
		} else {
			q.Join(j.Path, j.Alias, kind)
		}
	}
	if d.Where != nil {
		c, err := d.condition(q.P(), d.Where)
		if err != nil {
			return nil, err
		}
		q.Where(c)
	}
	for _, a := range d.Aggregates {
		fn, err := sql.ParseFunc(a.Func)
		if err != nil {
			return nil, fmt.Errorf("querydoc: %w", err)
		}
		q.Add(&sql.AggregateColumn{Func: fn, Path: a.Path, Distinct: a.Distinct})
	}
	if d.Limit > 0 {
		q.Limit(d.Limit)
	}
	if d.Offset != nil {
		q.Offset(*d.Offset)
	}
	return q, q.Err()
}

// condition builds c from p. Leaves are created depth first, in document
// order.
func (d *Document) condition(p *sql.Params, c *Condition) (*sql.Condition, error) {
	if len(c.All) > 0 || len(c.Any) > 0 {
		children := c.All
		if len(c.Any) > 0 {
			children = c.Any
		}
		out := make([]*sql.Condition, 0, len(children))
		for _, child := range children {
			cc, err := d.condition(p, child)
			if err != nil {
				return nil, err
			}
			out = append(out, cc)
		}
		if len(c.Any) > 0 {
			return sql.Or(out...), nil
		}
		return sql.And(out...), nil
	}
	op, err := sql.ParseOp(c.Op)
	if err != nil {
		return nil, fmt.Errorf("querydoc: %s: %w", c.Path, err)
	}
	values, err := d.values(c)
	if err != nil {
		return nil, err
	}
	want := func(n int) error {
		if len(values) != n {
			return fmt.Errorf("querydoc: %s %s: want %d values, got %d", c.Path, op, n, len(values))
		}
		return nil
	}
	switch op {
	case sql.OpIsNull, sql.OpNotNull:
		if err := want(0); err != nil {
			return nil, err
		}
		if op == sql.OpIsNull {
			return p.IsNull(c.Path), nil
		}
		return p.NotNull(c.Path), nil
	case sql.OpBetween:
		if err := want(2); err != nil {
			return nil, err
		}
		return p.Between(c.Path, values[0], values[1]), nil
	case sql.OpIn, sql.OpNotIn:
		if len(values) == 0 {
			return nil, fmt.Errorf("querydoc: %s %s: no values", c.Path, op)
		}
		if op == sql.OpIn {
			return p.In(c.Path, values...), nil
		}
		return p.NotIn(c.Path, values...), nil
	case sql.OpLike, sql.OpNotLike:
		if err := want(1); err != nil {
			return nil, err
		}
		s, ok := values[0].(string)
		if !ok {
			return nil, fmt.Errorf("querydoc: %s %s: want a string, got %T", c.Path, op, values[0])
		}
		mode, err := sql.ParseMatchMode(c.Match)
		if err != nil {
			return nil, fmt.Errorf("querydoc: %s: %w", c.Path, err)
		}
		if op == sql.OpLike {
			return p.Like(c.Path, s, mode), nil
		}
		return p.NotLike(c.Path, s, mode), nil
	case sql.OpAnd, sql.OpOr:
		return nil, fmt.Errorf("querydoc: %s: use all or any for %s", c.Path, op)
	}
	if err := want(1); err != nil {
		return nil, err
	}
	switch op {
	case sql.OpEQ:
		return p.EQ(c.Path, values[0]), nil
	case sql.OpNEQ:
		return p.NEQ(c.Path, values[0]), nil
	case sql.OpGT:
		return p.GT(c.Path, values[0]), nil
	case sql.OpGTE:
		return p.GTE(c.Path, values[0]), nil
	case sql.OpLT:
		return p.LT(c.Path, values[0]), nil
	default:
		return p.LTE(c.Path, values[0]), nil
	}
}

// values returns the resolved operands of a leaf: Value when set,
// followed by Values.
func (d *Document) values(c *Condition) ([]any, error) {
	raw := c.Values
	if c.Value != nil {
		raw = append([]any{c.Value}, raw...)
	}
	out := make([]any, len(raw))
	for i, v := range raw {
		r, err := d.value(v)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}
