package schema

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-openapi/inflect"
	"gopkg.in/yaml.v3"

	"github.com/syssam/tether"
	"github.com/syssam/tether/schema/edge"
	"github.com/syssam/tether/schema/field"
)

// Record is the record type of dynamic entities. Column fields hold
// field.Value; relation fields hold *Record or []*Record.
type Record struct {
	entity string
	values map[string]any
}

// NewRecord returns an empty record of the named entity.
func NewRecord(entity string) *Record {
	return &Record{entity: entity, values: make(map[string]any)}
}

// Entity returns the entity name of the record.
func (r *Record) Entity() string { return r.entity }

// Get returns the value held by a field, or nil.
func (r *Record) Get(name string) any { return r.values[name] }

// Set stores a value in a field. Column values are stored as given; callers
// that want them read back through Column.Get should pass a field.Value.
func (r *Record) Set(name string, v any) { r.values[name] = v }

// Fields returns the names of the fields set on the record, sorted.
func (r *Record) Fields() []string {
	names := make([]string, 0, len(r.values))
	for k := range r.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Map returns the record as nested maps of plain Go values, suitable for
// encoding.
func (r *Record) Map() map[string]any {
	m := make(map[string]any, len(r.values))
	for k, v := range r.values {
		switch v := v.(type) {
		case field.Value:
			m[k] = v.Interface()
		case *Record:
			m[k] = v.Map()
		case []*Record:
			list := make([]map[string]any, len(v))
			for i, c := range v {
				list[i] = c.Map()
			}
			m[k] = list
		default:
			m[k] = v
		}
	}
	return m
}

// Definition declares a dynamic entity.
type Definition struct {
	Name      string        `yaml:"name"`
	Table     string        `yaml:"table"`
	Columns   []ColumnDef   `yaml:"columns"`
	Relations []RelationDef `yaml:"relations"`
}

// ColumnDef declares a column of a dynamic entity.
type ColumnDef struct {
	// Field is the property name; it defaults to the camelized column name.
	Field  string `yaml:"field"`
	Column string `yaml:"column"`
	// Type is a field type name ("long", "string", "date", ...).
	Type string `yaml:"type"`
	// Temporal is the subkind of "time" columns.
	Temporal string `yaml:"temporal"`
	PK       bool   `yaml:"pk"`
}

// RelationDef declares a relation of a dynamic entity.
type RelationDef struct {
	Field  string `yaml:"field"`
	Target string `yaml:"target"`
	Many   bool   `yaml:"many"`
	Kind   string `yaml:"kind"`
	// Column and References form the direct join, or the host and target
	// ends of a bridge join.
	Column     string     `yaml:"column"`
	References string     `yaml:"references"`
	Bridge     *BridgeDef `yaml:"bridge"`
}

// BridgeDef names the bridge table and its two linking columns.
type BridgeDef struct {
	Table string `yaml:"table"`
	From  string `yaml:"from"`
	To    string `yaml:"to"`
}

// definitionFile is the YAML document holding definitions.
type definitionFile struct {
	Entities []*Definition `yaml:"entities"`
}

// ReadDefinitions decodes definitions from a YAML document of the form
//
//	entities:
//	  - name: Student
//	    table: student
//	    columns:
//	      - {column: student_number, type: long, pk: true}
func ReadDefinitions(r io.Reader) ([]*Definition, error) {
	var doc definitionFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("schema: decoding definitions: %w", err)
	}
	return doc.Entities, nil
}

// LoadDefinitions reads definitions from a YAML file.
func LoadDefinitions(path string) ([]*Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadDefinitions(f)
}

// Define registers dynamic entities. Relations may reference entities
// defined in the same call or earlier.
func (r *Registry) Define(defs ...*Definition) error {
	entities := make([]*Entity, 0, len(defs))
	for _, d := range defs {
		e, err := r.define(d)
		if err != nil {
			return err
		}
		entities = append(entities, e)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entities {
		if _, ok := r.names[e.Name]; ok {
			return fmt.Errorf("schema: entity %q already registered", e.Name)
		}
	}
	for _, e := range entities {
		r.names[e.Name] = e
	}
	return nil
}

func (r *Registry) define(d *Definition) (*Entity, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("%w: definition without name", tether.ErrNotAnEntity)
	}
	if d.Table == "" {
		return nil, fmt.Errorf("%w: %s", tether.ErrNoTableBound, d.Name)
	}
	name := d.Name
	e := &Entity{
		Name:  name,
		Table: d.Table,
		new:   func() any { return NewRecord(name) },
	}
	seen := make(map[string]struct{})
	for _, cd := range d.Columns {
		c, err := defineColumn(name, cd)
		if err != nil {
			return nil, fmt.Errorf("schema: %s: %w", name, err)
		}
		if _, ok := seen[c.Field]; ok {
			return nil, fmt.Errorf("schema: %s: duplicate field %q", name, c.Field)
		}
		seen[c.Field] = struct{}{}
		e.Columns = append(e.Columns, c)
	}
	for _, rd := range d.Relations {
		rel, err := r.defineRelation(name, rd)
		if err != nil {
			return nil, fmt.Errorf("schema: %s: %w", name, err)
		}
		if _, ok := seen[rel.Field]; ok {
			return nil, fmt.Errorf("schema: %s: duplicate field %q", name, rel.Field)
		}
		seen[rel.Field] = struct{}{}
		e.Relations = append(e.Relations, rel)
	}
	return e, nil
}

func defineColumn(entity string, cd ColumnDef) (*Column, error) {
	if cd.Column == "" {
		return nil, fmt.Errorf("column without name")
	}
	info, err := field.ParseInfo(cd.Type)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", cd.Column, err)
	}
	if cd.Temporal != "" {
		if info.Type != field.TypeTime {
			return nil, fmt.Errorf("column %s: temporal option on %s column", cd.Column, info.Type)
		}
		if info.Subkind, err = field.ParseSubkind(cd.Temporal); err != nil {
			return nil, fmt.Errorf("column %s: %w", cd.Column, err)
		}
	}
	name := cd.Field
	if name == "" {
		name = inflect.CamelizeDownFirst(cd.Column)
	}
	c := &Column{Field: name, Name: cd.Column, Info: info, PK: cd.PK}
	c.Get = func(rec any) (field.Value, error) {
		r, err := recordOf(rec, entity)
		if err != nil {
			return nil, err
		}
		switch v := r.values[name].(type) {
		case nil:
			return field.Null{}, nil
		case field.Value:
			return v, nil
		default:
			fv, err := field.ValueOf(v)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", name, err)
			}
			if ts, ok := fv.(field.Timestamp); ok && info.Subkind != field.SubkindNone {
				return field.Temporal(ts.Time, info.Subkind)
			}
			return fv, nil
		}
	}
	c.Set = func(rec any, v field.Value) error {
		r, err := recordOf(rec, entity)
		if err != nil {
			return err
		}
		if !field.IsNull(v) && v.Type() != info.Type {
			return fmt.Errorf("setting %s: cannot assign %s to %s", name, v.Type(), info)
		}
		r.values[name] = v
		return nil
	}
	return c, nil
}

func (r *Registry) defineRelation(entity string, rd RelationDef) (*Relation, error) {
	if rd.Field == "" || rd.Target == "" {
		return nil, fmt.Errorf("relation needs field and target")
	}
	kind, err := edge.ParseKind(rd.Kind)
	if err != nil {
		return nil, fmt.Errorf("relation %s: %w", rd.Field, err)
	}
	name, target := rd.Field, rd.Target
	rel := &Relation{
		Field:      name,
		Kind:       kind.Or(edge.Inner),
		Collection: rd.Many,
	}
	switch {
	case rd.Bridge != nil:
		b := rd.Bridge
		if b.Table == "" || b.From == "" || b.To == "" || rd.Column == "" || rd.References == "" {
			return nil, fmt.Errorf("relation %s: bridge needs table, from, to, column and references", name)
		}
		rel.Bridge = &edge.JoinTable{
			Table:  b.Table,
			Host:   edge.JoinColumn{Column: rd.Column, References: b.From},
			Target: edge.JoinColumn{Column: b.To, References: rd.References},
		}
	case rd.References != "":
		if rd.Column == "" {
			return nil, fmt.Errorf("relation %s: direct join needs column", name)
		}
		rel.Join = &edge.JoinColumn{Column: rd.Column, References: rd.References}
	}
	rel.target = func() (*Entity, error) {
		return r.Describe(target)
	}
	rel.Attach = func(parent, child any) error {
		p, err := recordOf(parent, entity)
		if err != nil {
			return err
		}
		c, err := recordOf(child, target)
		if err != nil {
			return err
		}
		if !rel.Collection {
			p.values[name] = c
			return nil
		}
		list, _ := p.values[name].([]*Record)
		p.values[name] = append(list, c)
		return nil
	}
	rel.Related = func(parent any) ([]any, error) {
		p, err := recordOf(parent, entity)
		if err != nil {
			return nil, err
		}
		switch v := p.values[name].(type) {
		case *Record:
			return []any{v}, nil
		case []*Record:
			out := make([]any, len(v))
			for i, c := range v {
				out[i] = c
			}
			return out, nil
		}
		return nil, nil
	}
	return rel, nil
}

func recordOf(rec any, entity string) (*Record, error) {
	r, ok := rec.(*Record)
	if !ok || r == nil {
		return nil, fmt.Errorf("record %T is not a *schema.Record", rec)
	}
	if r.entity != entity {
		return nil, fmt.Errorf("record of %s used as %s", r.entity, entity)
	}
	return r, nil
}
