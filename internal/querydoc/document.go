// Package querydoc reads queries written as YAML documents and turns them
// into fetch or aggregate builders:
//
//	entity: Student
//	alias: s
//	params:
//	  min: 3.5
//	joins:
//	  - {path: s.faculty, alias: f, kind: left}
//	  - {path: s.modules, alias: m}
//	where:
//	  all:
//	    - {path: s.gpa, op: gte, value: $min}
//	    - {path: f.name, op: like, value: Sci, match: starts_with}
//	order_by:
//	  - {path: s.name, dir: desc}
//	limit: 10
//
// A document with aggregates compiles to an aggregate statement; all
// others compile to a detail statement. Entities are resolved by name, so
// documents address entities registered from definitions.
package querydoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is one query.
type Document struct {
	Entity string `yaml:"entity"`
	Alias  string `yaml:"alias"`
	// Params are the default values of the $name references in conditions.
	Params     map[string]any `yaml:"params,omitempty"`
	Joins      []Join         `yaml:"joins,omitempty"`
	Where      *Condition     `yaml:"where,omitempty"`
	GroupBy    []string       `yaml:"group_by,omitempty"`
	OrderBy    []Order        `yaml:"order_by,omitempty"`
	Distinct   []string       `yaml:"distinct,omitempty"`
	Aggregates []Aggregate    `yaml:"aggregates,omitempty"`
	Limit      int            `yaml:"limit,omitempty"`
	Offset     *int           `yaml:"offset,omitempty"`
}

// Join adds an alias for the relation at Path.
type Join struct {
	Path  string `yaml:"path"`
	Alias string `yaml:"alias"`
	// Kind is inner, left, right or full. Empty takes the declared kind.
	Kind string `yaml:"kind,omitempty"`
	// Through requires the relation to use a bridge table.
	Through bool `yaml:"through,omitempty"`
}

// Condition is either a compound, with All or Any set, or a leaf
// comparing the column at Path.
type Condition struct {
	All []*Condition `yaml:"all,omitempty"`
	Any []*Condition `yaml:"any,omitempty"`

	Path   string `yaml:"path,omitempty"`
	Op     string `yaml:"op,omitempty"`
	Value  any    `yaml:"value,omitempty"`
	Values []any  `yaml:"values,omitempty"`
	// Match decorates like values: exact, starts_with, ends_with or anywhere.
	Match string `yaml:"match,omitempty"`
}

// Order is one ORDER BY term.
type Order struct {
	Path string `yaml:"path"`
	Dir  string `yaml:"dir,omitempty"`
}

// Aggregate is one aggregate column.
type Aggregate struct {
	Func     string `yaml:"fn"`
	Path     string `yaml:"path"`
	Distinct bool   `yaml:"distinct,omitempty"`
}

// Load reads the document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("querydoc: %w", err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("querydoc: %s: %w", path, err)
	}
	return d, nil
}

// Parse decodes and validates a document. Unknown keys are rejected.
func Parse(data []byte) (*Document, error) {
	var d Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty document")
		}
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Aggregated reports whether the document compiles to an aggregate
// statement.
func (d *Document) Aggregated() bool { return len(d.Aggregates) > 0 }

// Validate reports the first structural error of the document. Paths are
// resolved only when the document is compiled.
func (d *Document) Validate() error {
	switch {
	case d.Entity == "":
		return errors.New("missing entity")
	case d.Alias == "":
		return errors.New("missing alias")
	case d.Limit < 0:
		return errors.New("negative limit")
	case d.Aggregated() && (len(d.GroupBy) > 0 || len(d.OrderBy) > 0 || len(d.Distinct) > 0):
		return errors.New("aggregates cannot be combined with group_by, order_by or distinct")
	}
	for i, j := range d.Joins {
		if j.Path == "" || j.Alias == "" {
			return fmt.Errorf("join %d: needs path and alias", i+1)
		}
	}
	for i, a := range d.Aggregates {
		if a.Func == "" || a.Path == "" {
			return fmt.Errorf("aggregate %d: needs fn and path", i+1)
		}
	}
	if d.Where != nil {
		return d.Where.validate()
	}
	return nil
}

func (c *Condition) validate() error {
	compound := len(c.All) > 0 || len(c.Any) > 0
	switch {
	case len(c.All) > 0 && len(c.Any) > 0:
		return errors.New("condition has both all and any")
	case compound && (c.Path != "" || c.Op != ""):
		return errors.New("compound condition with path or op")
	case !compound && c.Path == "":
		return errors.New("condition needs a path, all or any")
	}
	for _, child := range append(c.All, c.Any...) {
		if child == nil {
			return errors.New("empty condition")
		}
		if err := child.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Bind overrides parameter defaults with values given as text, such as
// "min=3.7" from a command line. Values are read as YAML scalars, so
// numbers and booleans keep their type.
func (d *Document) Bind(assignments []string) error {
	if len(assignments) == 0 {
		return nil
	}
	if d.Params == nil {
		d.Params = make(map[string]any, len(assignments))
	}
	for _, a := range assignments {
		name, text, ok := strings.Cut(a, "=")
		if !ok || name == "" {
			return fmt.Errorf("querydoc: parameter %q: want name=value", a)
		}
		var v any
		if err := yaml.Unmarshal([]byte(text), &v); err != nil {
			return fmt.Errorf("querydoc: parameter %s: %w", name, err)
		}
		if v == nil && text != "" && text != "null" && text != "~" {
			v = text
		}
		d.Params[name] = v
	}
	return nil
}

// value resolves a $name reference against the parameters. "$$" escapes a
// leading dollar sign.
func (d *Document) value(v any) (any, error) {
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, "$") {
		return v, nil
	}
	if strings.HasPrefix(s, "$$") {
		return s[1:], nil
	}
	p, ok := d.Params[s[1:]]
	if !ok {
		return nil, fmt.Errorf("querydoc: unknown parameter %q", s[1:])
	}
	return p, nil
}
