package schema

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/syssam/tether"
	"github.com/syssam/tether/schema/edge"
	"github.com/syssam/tether/schema/field"
)

// Model is the persistence marker. Entities embed it and bind their table
// through its struct tag:
//
//	type Student struct {
//	    schema.Model `table:"student"`
//	    ID   int64  `tether:"student_number,pk"`
//	    Name string `tether:"name"`
//	}
type Model struct{}

// Tabler is implemented by entities that compute their table name instead
// of declaring it on the Model tag.
type Tabler interface {
	Table() string
}

// Entity is the metadata of one record type. It is computed once by a
// Registry and never mutated afterwards.
type Entity struct {
	// Name is the Go type name, or the definition name for dynamic entities.
	Name string
	// Table is the bound table.
	Table string
	// Columns in declaration order. Embedded column sets are expanded in place.
	Columns []*Column
	// Relations in declaration order.
	Relations []*Relation

	typ reflect.Type
	new func() any
}

// New returns a new zero record of the entity: a pointer to the struct type,
// or a *Record for dynamic entities.
func (e *Entity) New() any {
	return e.new()
}

// Type returns the struct type of the entity, or nil for dynamic entities.
func (e *Entity) Type() reflect.Type {
	return e.typ
}

// Column returns the column bound to the given field (property) name.
func (e *Entity) Column(name string) *Column {
	for _, c := range e.Columns {
		if c.Field == name {
			return c
		}
	}
	return nil
}

// ColumnByName returns the column with the given SQL column name.
func (e *Entity) ColumnByName(name string) *Column {
	for _, c := range e.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// PrimaryKey returns the primary-key column, or nil if the entity has none.
func (e *Entity) PrimaryKey() *Column {
	for _, c := range e.Columns {
		if c.PK {
			return c
		}
	}
	return nil
}

// Relation returns the relation held by the given field, or nil.
func (e *Entity) Relation(name string) *Relation {
	for _, r := range e.Relations {
		if r.Field == name {
			return r
		}
	}
	return nil
}

// Column describes one mapped column and how to read it from, and write it
// to, a record of the owning entity.
type Column struct {
	// Field is the property name used in property paths.
	Field string
	// Name is the SQL column name.
	Name string
	Info field.Info
	PK   bool

	// Get reads the column value from a record.
	Get func(rec any) (field.Value, error)
	// Set writes a value into a record.
	Set func(rec any, v field.Value) error
}

// Relation describes a field that references other entities. A relation is
// declared when it carries either a direct join column or a bridge table.
type Relation struct {
	// Field is the property name used in property paths.
	Field string
	// Kind is the declared join kind.
	Kind edge.Kind
	// Collection reports a to-many field.
	Collection bool
	// Join is set for direct relationships.
	Join *edge.JoinColumn
	// Bridge is set for bridge-table relationships.
	Bridge *edge.JoinTable

	// Attach sets (or, for collections, appends) child on parent.
	Attach func(parent, child any) error
	// Related returns the records currently held by the field.
	Related func(parent any) ([]any, error)

	target func() (*Entity, error)
}

// Declared reports whether the field carries a relationship declaration.
func (r *Relation) Declared() bool {
	return r.Join != nil || r.Bridge != nil
}

// Target returns the metadata of the referenced entity.
func (r *Relation) Target() (*Entity, error) {
	return r.target()
}

// Join is a relationship resolved against both of its ends.
type Join struct {
	Relation *Relation
	Host     *Entity
	Target   *Entity
}

// Registry is the metadata provider. It describes struct types on first use
// and holds dynamic entities registered from definitions. It is safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[reflect.Type]*Entity
	names map[string]*Entity
	group singleflight.Group
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[reflect.Type]*Entity),
		names: make(map[string]*Entity),
	}
}

// Describe returns the metadata of an entity. v may be a struct value, a
// pointer to one, a reflect.Type, the name of a registered entity, or an
// *Entity (returned as is).
//
// Describe fails with an error wrapping tether.ErrNotAnEntity when the type
// does not embed Model, and tether.ErrNoTableBound when no table is declared.
func (r *Registry) Describe(v any) (*Entity, error) {
	switch v := v.(type) {
	case *Entity:
		return v, nil
	case string:
		r.mu.RLock()
		e, ok := r.names[v]
		r.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %q is not registered", tether.ErrNotAnEntity, v)
		}
		return e, nil
	case reflect.Type:
		return r.describeType(v)
	case nil:
		return nil, fmt.Errorf("%w: nil", tether.ErrNotAnEntity)
	default:
		return r.describeType(reflect.TypeOf(v))
	}
}

func (r *Registry) describeType(typ reflect.Type) (*Entity, error) {
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	r.mu.RLock()
	e, ok := r.types[typ]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}
	res, err, _ := r.group.Do(typ.PkgPath()+"."+typ.String(), func() (any, error) {
		r.mu.RLock()
		e, ok := r.types[typ]
		r.mu.RUnlock()
		if ok {
			return e, nil
		}
		e, err := r.scan(typ)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.types[typ] = e
		if _, ok := r.names[e.Name]; !ok {
			r.names[e.Name] = e
		}
		r.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*Entity), nil
}

// ResolveJoin resolves the relation held by the given field of an entity.
// It fails with a *tether.JoinNotDeclaredError if the field does not exist
// or carries no relationship declaration.
func (r *Registry) ResolveJoin(host *Entity, name string) (*Join, error) {
	rel := host.Relation(name)
	switch {
	case rel == nil && host.Column(name) != nil:
		return nil, tether.NewJoinNotDeclaredError(host.Name, name, "field is a plain column")
	case rel == nil:
		return nil, tether.NewJoinNotDeclaredError(host.Name, name, "no such field")
	case !rel.Declared():
		return nil, tether.NewJoinNotDeclaredError(host.Name, name, "no relationship declared")
	}
	target, err := rel.Target()
	if err != nil {
		return nil, fmt.Errorf("schema: resolving %s.%s: %w", host.Name, name, err)
	}
	return &Join{Relation: rel, Host: host, Target: target}, nil
}

// Entities returns all described and registered entities, sorted by name.
func (r *Registry) Entities() []*Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[*Entity]struct{}, len(r.names))
	all := make([]*Entity, 0, len(r.names))
	add := func(e *Entity) {
		if _, ok := seen[e]; !ok {
			seen[e] = struct{}{}
			all = append(all, e)
		}
	}
	for _, e := range r.names {
		add(e)
	}
	for _, e := range r.types {
		add(e)
	}
	slices.SortFunc(all, func(a, b *Entity) int {
		return strings.Compare(a.Name, b.Name)
	})
	return all
}

// Default is the registry used when none is configured.
var Default = NewRegistry()

// Describe describes an entity with the Default registry.
func Describe(v any) (*Entity, error) {
	return Default.Describe(v)
}
