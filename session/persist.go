package session

import (
	"context"
	"fmt"

	"github.com/syssam/tether"
	"github.com/syssam/tether/dialect/sql/sqlgraph"
	"github.com/syssam/tether/schema"
	"github.com/syssam/tether/schema/field"
)

// Save inserts rec. The non-key columns are written together with the
// foreign keys of its direct relations, read from the referenced column of
// the related record. A zero or null integer key is generated by the
// database and written back into rec.
func (s *Session) Save(ctx context.Context, rec any) error {
	e, err := s.entityOf(rec)
	if err != nil {
		return err
	}
	spec := &sqlgraph.CreateSpec{Table: e.Table, Dialect: s.Dialect()}
	pk := e.PrimaryKey()
	if pk != nil {
		v, err := pk.Get(rec)
		if err != nil {
			return tether.NewMutationError(e.Name, "save", err)
		}
		spec.ID = &sqlgraph.FieldSpec{Column: pk.Name, Value: v}
	}
	if spec.Fields, err = fieldSpecs(e, rec); err != nil {
		return tether.NewMutationError(e.Name, "save", err)
	}
	generated := spec.Generated()
	if err := sqlgraph.CreateNode(ctx, s, spec); err != nil {
		return tether.NewMutationError(e.Name, "save", err)
	}
	if generated {
		v, err := field.Convert(spec.ID.Value.Interface(), pk.Info)
		if err == nil {
			err = pk.Set(rec, v)
		}
		if err != nil {
			return tether.NewMutationError(e.Name, "save", fmt.Errorf("setting generated key: %w", err))
		}
	}
	return nil
}

// Update writes the non-key columns and direct foreign keys of rec to the
// row with its primary key. It fails with a *tether.NotFoundError, wrapped
// in a *tether.MutationError, if no such row exists.
func (s *Session) Update(ctx context.Context, rec any) error {
	e, err := s.entityOf(rec)
	if err != nil {
		return err
	}
	pk := e.PrimaryKey()
	if pk == nil {
		return tether.NewMutationError(e.Name, "update", fmt.Errorf("%s has no primary key", e.Name))
	}
	id, err := pk.Get(rec)
	if err != nil {
		return tether.NewMutationError(e.Name, "update", err)
	}
	spec := &sqlgraph.UpdateSpec{Table: e.Table, ID: &sqlgraph.FieldSpec{Column: pk.Name, Value: id}}
	if spec.Fields, err = fieldSpecs(e, rec); err != nil {
		return tether.NewMutationError(e.Name, "update", err)
	}
	if err := sqlgraph.UpdateNode(ctx, s, spec); err != nil {
		return tether.NewMutationError(e.Name, "update", err)
	}
	return nil
}

// SaveBridge inserts one bridge row for every record held by the named
// bridge relation of rec.
func (s *Session) SaveBridge(ctx context.Context, rec any, name string) error {
	e, spec, err := s.edgeSpec(rec, name)
	if err != nil {
		return err
	}
	if err := sqlgraph.AddEdges(ctx, s, spec); err != nil {
		return tether.NewMutationError(e.Name, "save bridge", err)
	}
	return nil
}

// ReplaceBridge deletes the bridge rows of rec for the named relation and
// inserts the rows of the records it currently holds, in one transaction.
func (s *Session) ReplaceBridge(ctx context.Context, rec any, name string) error {
	e, spec, err := s.edgeSpec(rec, name)
	if err != nil {
		return err
	}
	err = s.WithTx(ctx, func(tx *Session) error {
		return sqlgraph.SetEdges(ctx, tx, spec)
	})
	if err != nil {
		return tether.NewMutationError(e.Name, "replace bridge", err)
	}
	return nil
}

func (s *Session) entityOf(rec any) (*schema.Entity, error) {
	var (
		e   *schema.Entity
		err error
	)
	if r, ok := rec.(*schema.Record); ok {
		e, err = s.Registry().Describe(r.Entity())
	} else {
		e, err = s.Registry().Describe(rec)
	}
	if err != nil {
		return nil, tether.NewUnmappedEntityError(fmt.Sprintf("%T", rec), err)
	}
	return e, nil
}

// fieldSpecs returns the non-key columns of rec followed by the foreign
// keys of its direct to-one relations.
func fieldSpecs(e *schema.Entity, rec any) ([]*sqlgraph.FieldSpec, error) {
	specs := make([]*sqlgraph.FieldSpec, 0, len(e.Columns))
	for _, c := range e.Columns {
		if c.PK {
			continue
		}
		v, err := c.Get(rec)
		if err != nil {
			return nil, err
		}
		specs = append(specs, &sqlgraph.FieldSpec{Column: c.Name, Value: v})
	}
	for _, rel := range e.Relations {
		if rel.Join == nil || rel.Collection || e.ColumnByName(rel.Join.Column) != nil {
			continue
		}
		v, err := foreignKey(rel, rec)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", e.Name, rel.Field, err)
		}
		specs = append(specs, &sqlgraph.FieldSpec{Column: rel.Join.Column, Value: v})
	}
	return specs, nil
}

func foreignKey(rel *schema.Relation, rec any) (field.Value, error) {
	related, err := rel.Related(rec)
	if err != nil {
		return nil, err
	}
	if len(related) == 0 {
		return field.Null{}, nil
	}
	target, err := rel.Target()
	if err != nil {
		return nil, err
	}
	ref := target.ColumnByName(rel.Join.References)
	if ref == nil {
		return nil, fmt.Errorf("%s has no column %q", target.Name, rel.Join.References)
	}
	return ref.Get(related[0])
}

func (s *Session) edgeSpec(rec any, name string) (*schema.Entity, *sqlgraph.EdgeSpec, error) {
	e, err := s.entityOf(rec)
	if err != nil {
		return nil, nil, err
	}
	rel := e.Relation(name)
	if rel == nil || rel.Bridge == nil {
		return nil, nil, tether.NewJoinNotDeclaredError(e.Name, name, "no bridge table")
	}
	fail := func(err error) (*schema.Entity, *sqlgraph.EdgeSpec, error) {
		return nil, nil, tether.NewMutationError(e.Name, "save bridge", err)
	}
	b := rel.Bridge
	host := e.ColumnByName(b.Host.Column)
	if host == nil {
		return fail(fmt.Errorf("%s has no column %q", e.Name, b.Host.Column))
	}
	from, err := host.Get(rec)
	if err != nil {
		return fail(err)
	}
	target, err := rel.Target()
	if err != nil {
		return fail(err)
	}
	ref := target.ColumnByName(b.Target.References)
	if ref == nil {
		return fail(fmt.Errorf("%s has no column %q", target.Name, b.Target.References))
	}
	related, err := rel.Related(rec)
	if err != nil {
		return fail(err)
	}
	spec := &sqlgraph.EdgeSpec{
		Table:   b.Table,
		Columns: [2]string{b.Host.References, b.Target.Column},
		From:    from,
		To:      make([]field.Value, 0, len(related)),
	}
	for _, r := range related {
		v, err := ref.Get(r)
		if err != nil {
			return fail(err)
		}
		spec.To = append(spec.To, v)
	}
	return e, spec, nil
}
