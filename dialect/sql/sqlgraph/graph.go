// Package sqlgraph writes single records and bridge-table rows.
package sqlgraph

import (
	"context"
	"fmt"
	"strings"

	"github.com/syssam/tether"
	"github.com/syssam/tether/dialect"
	"github.com/syssam/tether/dialect/sql"
	"github.com/syssam/tether/schema/field"
)

// FieldSpec holds the value of one column.
type FieldSpec struct {
	Column string
	Value  field.Value
}

// CreateSpec describes an INSERT of one record.
type CreateSpec struct {
	Table   string
	Dialect string
	// ID is the primary key. A null or zero value is left to the database
	// and read back into ID.Value after the insert.
	ID     *FieldSpec
	Fields []*FieldSpec
}

// Generated reports whether the primary key is left to the database.
func (s *CreateSpec) Generated() bool {
	if s.ID == nil {
		return false
	}
	switch v := s.ID.Value.(type) {
	case nil, field.Null:
		return true
	case field.Int16:
		return v == 0
	case field.Int32:
		return v == 0
	case field.Int64:
		return v == 0
	}
	return false
}

// Insert returns the statement and its parameters.
func (s *CreateSpec) Insert() (string, []any) {
	var (
		columns []string
		args    []any
	)
	if s.ID != nil && !s.Generated() {
		columns = append(columns, s.ID.Column)
		args = append(args, s.ID.Value)
	}
	for _, f := range s.Fields {
		columns = append(columns, f.Column)
		args = append(args, f.Value)
	}
	var b strings.Builder
	b.WriteString("INSERT INTO " + s.Table)
	if len(columns) == 0 {
		b.WriteString(" DEFAULT VALUES")
	} else {
		b.WriteString(" (" + strings.Join(columns, ", ") + ") VALUES (" + placeholders(len(columns)) + ")")
	}
	if s.Generated() && s.Dialect == dialect.Postgres {
		b.WriteString(" RETURNING " + s.ID.Column)
	}
	return b.String(), args
}

// CreateNode inserts the record described by spec. A generated key is read
// from RETURNING on Postgres and from LastInsertId elsewhere.
func CreateNode(ctx context.Context, drv dialect.ExecQuerier, spec *CreateSpec) error {
	query, params := spec.Insert()
	args, err := sql.Bind(params)
	if err != nil {
		return err
	}
	if spec.Generated() && spec.Dialect == dialect.Postgres {
		rows := &sql.Rows{}
		if err := drv.Query(ctx, query, args, rows); err != nil {
			return wrapConstraint(err)
		}
		defer rows.Close()
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return wrapConstraint(err)
			}
			return fmt.Errorf("sqlgraph: insert into %s returned no key", spec.Table)
		}
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		spec.ID.Value = field.Int64(id)
		return rows.Err()
	}
	var res sql.Result
	if err := drv.Exec(ctx, query, args, &res); err != nil {
		return wrapConstraint(err)
	}
	if spec.Generated() {
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlgraph: reading generated key of %s: %w", spec.Table, err)
		}
		spec.ID.Value = field.Int64(id)
	}
	return nil
}

// UpdateSpec describes an UPDATE of one record by primary key.
type UpdateSpec struct {
	Table  string
	ID     *FieldSpec
	Fields []*FieldSpec
}

// Update returns the statement and its parameters.
func (s *UpdateSpec) Update() (string, []any) {
	sets := make([]string, 0, len(s.Fields))
	args := make([]any, 0, len(s.Fields)+1)
	for _, f := range s.Fields {
		sets = append(sets, f.Column+" = ?")
		args = append(args, f.Value)
	}
	args = append(args, s.ID.Value)
	return "UPDATE " + s.Table + " SET " + strings.Join(sets, ", ") + " WHERE " + s.ID.Column + " = ?", args
}

// UpdateNode updates the record described by spec. It fails with a
// *tether.NotFoundError if no row has the key.
func UpdateNode(ctx context.Context, drv dialect.ExecQuerier, spec *UpdateSpec) error {
	if spec.ID == nil {
		return fmt.Errorf("sqlgraph: update of %s without primary key", spec.Table)
	}
	if len(spec.Fields) == 0 {
		return nil
	}
	query, params := spec.Update()
	args, err := sql.Bind(params)
	if err != nil {
		return err
	}
	var res sql.Result
	if err := drv.Exec(ctx, query, args, &res); err != nil {
		return wrapConstraint(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return tether.NewNotFoundError(spec.Table)
	}
	return nil
}

// EdgeSpec describes bridge-table rows linking one host key to target keys.
type EdgeSpec struct {
	Table string
	// Columns are the host and target columns of the bridge table.
	Columns [2]string
	From    field.Value
	To      []field.Value
}

// AddEdges inserts one bridge row per target key.
func AddEdges(ctx context.Context, drv dialect.ExecQuerier, spec *EdgeSpec) error {
	if len(spec.To) == 0 {
		return nil
	}
	var (
		b      strings.Builder
		params = make([]any, 0, 2*len(spec.To))
	)
	b.WriteString("INSERT INTO " + spec.Table + " (" + spec.Columns[0] + ", " + spec.Columns[1] + ") VALUES ")
	for i, to := range spec.To {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?)")
		params = append(params, spec.From, to)
	}
	args, err := sql.Bind(params)
	if err != nil {
		return err
	}
	if err := drv.Exec(ctx, b.String(), args, nil); err != nil {
		return wrapConstraint(err)
	}
	return nil
}

// ClearEdges deletes the bridge rows of the host key.
func ClearEdges(ctx context.Context, drv dialect.ExecQuerier, spec *EdgeSpec) error {
	args, err := sql.Bind([]any{spec.From})
	if err != nil {
		return err
	}
	query := "DELETE FROM " + spec.Table + " WHERE " + spec.Columns[0] + " = ?"
	if err := drv.Exec(ctx, query, args, nil); err != nil {
		return wrapConstraint(err)
	}
	return nil
}

// SetEdges replaces the bridge rows of the host key with spec.To. Callers
// run it inside a transaction.
func SetEdges(ctx context.Context, drv dialect.ExecQuerier, spec *EdgeSpec) error {
	if err := ClearEdges(ctx, drv, spec); err != nil {
		return err
	}
	return AddEdges(ctx, drv, spec)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
