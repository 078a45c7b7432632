package query

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/syssam/tether"
	"github.com/syssam/tether/dialect/sql"
	"github.com/syssam/tether/schema/field"
)

// Tuple is one row of an aggregate statement: its non-null values in
// aggregate column order.
type Tuple []field.Value

// Interface returns the plain Go values of the tuple.
func (t Tuple) Interface() []any {
	vs := make([]any, len(t))
	for i, v := range t {
		vs[i] = v.Interface()
	}
	return vs
}

// Materialize reads the rows of a detail statement into records of the
// root entity, in the order their keys first appear. Rows repeating a root
// key coalesce into one record, and joined records are attached to their
// parent once per key. The rows are not closed.
//
// Any failure aborts the whole read with a *tether.MaterializationError;
// no partial result is returned.
func Materialize(rows sql.ColumnScanner, c *Compiled) ([]any, error) {
	if c.Mode != Detail {
		return nil, errors.New("query: materializing records from an aggregate statement")
	}
	m := newMaterializer(c)
	for n := 0; rows.Next(); n++ {
		values, err := scanRow(rows, c)
		if err != nil {
			return nil, err
		}
		if err := m.row(n, values); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return m.roots, nil
}

// MaterializeAggregate reads the rows of an aggregate statement into
// tuples. The rows are not closed.
func MaterializeAggregate(rows sql.ColumnScanner, c *Compiled) ([]Tuple, error) {
	if c.Mode != Aggregated {
		return nil, errors.New("query: materializing tuples from a detail statement")
	}
	var tuples []Tuple
	for rows.Next() {
		values, err := scanRow(rows, c)
		if err != nil {
			return nil, err
		}
		t := make(Tuple, 0, len(values))
		for _, v := range values {
			if !field.IsNull(v) {
				t = append(t, v)
			}
		}
		tuples = append(tuples, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tuples, nil
}

// scanRow reads the current row and converts every column to its declared
// semantic type.
func scanRow(rows sql.ColumnScanner, c *Compiled) ([]field.Value, error) {
	raw := make([]any, len(c.Columns))
	dest := make([]any, len(raw))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, tether.NewMaterializationError(c.graph.Root().Alias, "", err)
	}
	values := make([]field.Value, len(raw))
	for i, oc := range c.Columns {
		convert := field.Convert
		if oc.Aggregate != nil {
			convert = field.ConvertAggregate
		}
		v, err := convert(raw[i], oc.Info)
		if err != nil {
			return nil, tether.NewMaterializationError(c.graph.Node(oc.Node).Alias, oc.As, err)
		}
		values[i] = v
	}
	return values, nil
}

// childKey identifies a joined record under one parent record.
type childKey struct {
	parent any
	node   int
	key    string
}

type materializer struct {
	c *Compiled
	// columns holds the output column indexes of each node.
	columns [][]int
	// pks holds the output column index of each node's primary key, or -1.
	pks      []int
	roots    []any
	byKey    map[string]any
	children map[childKey]any
}

func newMaterializer(c *Compiled) *materializer {
	nodes := c.graph.Nodes()
	m := &materializer{
		c:        c,
		columns:  make([][]int, len(nodes)),
		pks:      make([]int, len(nodes)),
		byKey:    make(map[string]any),
		children: make(map[childKey]any),
	}
	for i := range m.pks {
		m.pks[i] = -1
	}
	for i, oc := range c.Columns {
		m.columns[oc.Node] = append(m.columns[oc.Node], i)
		if oc.Column.PK {
			m.pks[oc.Node] = i
		}
	}
	return m
}

// row materializes one row. Nodes are visited in declaration order, so
// every parent is resolved before its children.
func (m *materializer) row(n int, values []field.Value) error {
	nodes := m.c.graph.Nodes()
	objs := make([]any, len(nodes))
	for i, node := range nodes {
		key, ok := m.key(i, n, values)
		if node.Root() {
			if rec, ok := m.byKey[key]; ok {
				objs[i] = rec
				continue
			}
			rec, err := m.record(i, values)
			if err != nil {
				return err
			}
			m.byKey[key] = rec
			m.roots = append(m.roots, rec)
			objs[i] = rec
			continue
		}
		parent := objs[node.Parent]
		if parent == nil || !ok {
			continue
		}
		ck := childKey{parent: parent, node: i, key: key}
		if rec, ok := m.children[ck]; ok {
			objs[i] = rec
			continue
		}
		rec, err := m.record(i, values)
		if err != nil {
			return err
		}
		if err := node.Relation.Attach(parent, rec); err != nil {
			return tether.NewMaterializationError(node.Alias, node.Relation.Field, err)
		}
		m.children[ck] = rec
		objs[i] = rec
	}
	return nil
}

// key returns the identity of node i in row n. It reports false when the
// node has no record in the row: a NULL primary key, or, for entities
// without one, all columns NULL. Records without a primary key are keyed
// by row.
func (m *materializer) key(i, n int, values []field.Value) (string, bool) {
	if pk := m.pks[i]; pk >= 0 {
		v := values[pk]
		if field.IsNull(v) {
			return "#" + strconv.Itoa(n), false
		}
		return field.Key(v), true
	}
	for _, j := range m.columns[i] {
		if !field.IsNull(values[j]) {
			return "#" + strconv.Itoa(n), true
		}
	}
	return "#" + strconv.Itoa(n), m.c.graph.Node(i).Root()
}

// record creates a record of node i and populates its columns.
func (m *materializer) record(i int, values []field.Value) (any, error) {
	node := m.c.graph.Node(i)
	rec := node.Entity.New()
	for _, j := range m.columns[i] {
		oc := m.c.Columns[j]
		if err := oc.Column.Set(rec, values[j]); err != nil {
			return nil, tether.NewMaterializationError(node.Alias, oc.Column.Field, fmt.Errorf("%s: %w", oc.As, err))
		}
	}
	return rec, nil
}
