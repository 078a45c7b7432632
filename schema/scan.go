package schema

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-openapi/inflect"
	"github.com/shopspring/decimal"

	"github.com/syssam/tether"
	"github.com/syssam/tether/schema/edge"
	"github.com/syssam/tether/schema/field"
)

var (
	modelType   = reflect.TypeOf(Model{})
	tablerType  = reflect.TypeOf((*Tabler)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

// tag is a parsed `tether` struct tag:
//
//	tether:"<column>[,pk][,temporal=date|time|timestamp][,name=<property>]"
//	tether:"<column>,references=<column>[,kind=<kind>]"
//	tether:"<column>,bridge=<table>,from=<column>,to=<column>,references=<column>[,kind=<kind>]"
type tag struct {
	column     string
	name       string
	pk         bool
	temporal   string
	references string
	bridge     string
	from       string
	to         string
	kind       string
}

func parseTag(s string) (tag, error) {
	var t tag
	parts := strings.Split(s, ",")
	t.column = strings.TrimSpace(parts[0])
	for _, p := range parts[1:] {
		k, v, _ := strings.Cut(strings.TrimSpace(p), "=")
		switch k {
		case "pk":
			t.pk = true
		case "name":
			t.name = v
		case "temporal":
			t.temporal = v
		case "references":
			t.references = v
		case "bridge":
			t.bridge = v
		case "from":
			t.from = v
		case "to":
			t.to = v
		case "kind":
			t.kind = v
		case "":
		default:
			return t, fmt.Errorf("unknown tag option %q", k)
		}
	}
	return t, nil
}

// scan builds the metadata of a struct type from its tags.
func (r *Registry) scan(typ reflect.Type) (*Entity, error) {
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", tether.ErrNotAnEntity, typ)
	}
	marker, ok := findModel(typ)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not embed schema.Model", tether.ErrNotAnEntity, typ)
	}
	e := &Entity{
		Name:  typ.Name(),
		Table: marker.Tag.Get("table"),
		typ:   typ,
		new:   func() any { return reflect.New(typ).Interface() },
	}
	if reflect.PointerTo(typ).Implements(tablerType) {
		e.Table = reflect.New(typ).Interface().(Tabler).Table()
	}
	if e.Table == "" {
		return nil, fmt.Errorf("%w: %s", tether.ErrNoTableBound, typ)
	}
	if err := r.scanFields(e, typ, nil); err != nil {
		return nil, fmt.Errorf("schema: %s: %w", typ, err)
	}
	seen := make(map[string]struct{}, len(e.Columns)+len(e.Relations))
	for _, c := range e.Columns {
		if _, ok := seen[c.Field]; ok {
			return nil, fmt.Errorf("schema: %s: duplicate field %q", typ, c.Field)
		}
		seen[c.Field] = struct{}{}
	}
	for _, rel := range e.Relations {
		if _, ok := seen[rel.Field]; ok {
			return nil, fmt.Errorf("schema: %s: duplicate field %q", typ, rel.Field)
		}
		seen[rel.Field] = struct{}{}
	}
	return e, nil
}

func findModel(typ reflect.Type) (reflect.StructField, bool) {
	for i := 0; i < typ.NumField(); i++ {
		if f := typ.Field(i); f.Anonymous && f.Type == modelType {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

func (r *Registry) scanFields(e *Entity, typ reflect.Type, index []int) error {
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		idx := append(cloneIndex(index), i)
		raw, tagged := f.Tag.Lookup("tether")
		if raw == "-" || f.Type == modelType {
			continue
		}
		// Embedded column sets are expanded in place.
		if f.Anonymous && f.Type.Kind() == reflect.Struct && !tagged && !isScalar(f.Type) {
			if err := r.scanFields(e, f.Type, idx); err != nil {
				return err
			}
			continue
		}
		if !f.IsExported() {
			continue
		}
		t, err := parseTag(raw)
		if err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
		name := t.name
		if name == "" {
			name = PropertyName(f.Name)
		}
		switch {
		case isScalar(f.Type):
			c, err := newColumn(f, idx, name, t)
			if err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
			e.Columns = append(e.Columns, c)
		case isRelation(f.Type):
			rel, err := r.newRelation(e, f, idx, name, t)
			if err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
			e.Relations = append(e.Relations, rel)
		case tagged:
			return fmt.Errorf("field %s: unsupported type %s", f.Name, f.Type)
		}
	}
	return nil
}

func cloneIndex(idx []int) []int {
	return append(make([]int, 0, len(idx)+1), idx...)
}

// PropertyName lowers the leading upper-case run of a Go field name:
// ID becomes id, StudentNumber becomes studentNumber, GPAScore becomes gpaScore.
func PropertyName(s string) string {
	rs := []rune(s)
	n := 0
	for n < len(rs) && unicode.IsUpper(rs[n]) {
		n++
	}
	switch {
	case n == 0:
		return s
	case n == len(rs):
		return strings.ToLower(s)
	case n > 1:
		n--
	}
	for i := 0; i < n; i++ {
		rs[i] = unicode.ToLower(rs[i])
	}
	return string(rs)
}

func indirect(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}

func isScalar(t reflect.Type) bool {
	_, err := infoOf(indirect(t))
	return err == nil
}

func isRelation(t reflect.Type) bool {
	switch {
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		return true
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Pointer && t.Elem().Elem().Kind() == reflect.Struct:
		return true
	}
	return false
}

// infoOf maps a Go type to its semantic column type.
func infoOf(t reflect.Type) (field.Info, error) {
	switch t {
	case timeType:
		return field.Info{Type: field.TypeTime}, nil
	case decimalType:
		return field.Info{Type: field.TypeDecimal}, nil
	}
	switch t.Kind() {
	case reflect.Bool:
		return field.Info{Type: field.TypeBool}, nil
	case reflect.Int8, reflect.Int16, reflect.Uint8:
		return field.Info{Type: field.TypeInt16}, nil
	case reflect.Int32, reflect.Uint16:
		return field.Info{Type: field.TypeInt32}, nil
	case reflect.Int, reflect.Int64, reflect.Uint32:
		return field.Info{Type: field.TypeInt64}, nil
	case reflect.Float32, reflect.Float64:
		return field.Info{Type: field.TypeFloat64}, nil
	case reflect.String:
		return field.Info{Type: field.TypeString}, nil
	}
	return field.Info{}, fmt.Errorf("unsupported column type %s", t)
}

func newColumn(f reflect.StructField, idx []int, name string, t tag) (*Column, error) {
	info, err := infoOf(indirect(f.Type))
	if err != nil {
		return nil, err
	}
	if t.temporal != "" {
		if info.Type != field.TypeTime {
			return nil, fmt.Errorf("temporal option on %s column", info.Type)
		}
		if info.Subkind, err = field.ParseSubkind(t.temporal); err != nil {
			return nil, err
		}
	}
	column := t.column
	if column == "" {
		column = inflect.Underscore(f.Name)
	}
	owner := f.Type
	c := &Column{
		Field: name,
		Name:  column,
		Info:  info,
		PK:    t.pk,
	}
	c.Get = func(rec any) (field.Value, error) {
		fv, err := fieldOf(rec, idx)
		if err != nil {
			return nil, err
		}
		return read(fv, info)
	}
	c.Set = func(rec any, v field.Value) error {
		fv, err := fieldOf(rec, idx)
		if err != nil {
			return err
		}
		if err := assign(fv, v); err != nil {
			return fmt.Errorf("setting %s (%s): %w", name, owner, err)
		}
		return nil
	}
	return c, nil
}

func (r *Registry) newRelation(host *Entity, f reflect.StructField, idx []int, name string, t tag) (*Relation, error) {
	kind, err := edge.ParseKind(t.kind)
	if err != nil {
		return nil, err
	}
	rel := &Relation{
		Field:      name,
		Kind:       kind.Or(edge.Inner),
		Collection: f.Type.Kind() == reflect.Slice,
	}
	elem := f.Type.Elem()
	if rel.Collection {
		elem = elem.Elem()
	}
	switch {
	case t.bridge != "":
		if t.column == "" || t.from == "" || t.to == "" || t.references == "" {
			return nil, fmt.Errorf("bridge relation needs column, from, to and references")
		}
		rel.Bridge = &edge.JoinTable{
			Table:  t.bridge,
			Host:   edge.JoinColumn{Column: t.column, References: t.from},
			Target: edge.JoinColumn{Column: t.to, References: t.references},
		}
	case t.references != "":
		column := t.column
		if column == "" {
			column = inflect.Underscore(f.Name) + "_" + t.references
		}
		rel.Join = &edge.JoinColumn{Column: column, References: t.references}
	}
	rel.target = func() (*Entity, error) {
		return r.describeType(elem)
	}
	rel.Attach = func(parent, child any) error {
		fv, err := fieldOf(parent, idx)
		if err != nil {
			return err
		}
		cv := reflect.ValueOf(child)
		if cv.Type() != reflect.PointerTo(elem) {
			return fmt.Errorf("attaching %T to %s.%s: want *%s", child, host.Name, name, elem)
		}
		if rel.Collection {
			fv.Set(reflect.Append(fv, cv))
		} else {
			fv.Set(cv)
		}
		return nil
	}
	rel.Related = func(parent any) ([]any, error) {
		fv, err := fieldOf(parent, idx)
		if err != nil {
			return nil, err
		}
		if !rel.Collection {
			if fv.IsNil() {
				return nil, nil
			}
			return []any{fv.Interface()}, nil
		}
		out := make([]any, 0, fv.Len())
		for i := 0; i < fv.Len(); i++ {
			if el := fv.Index(i); !el.IsNil() {
				out = append(out, el.Interface())
			}
		}
		return out, nil
	}
	return rel, nil
}

// fieldOf returns the addressable struct field of rec at the index path.
func fieldOf(rec any, idx []int) (reflect.Value, error) {
	rv := reflect.ValueOf(rec)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("record %T is not a non-nil struct pointer", rec)
	}
	return rv.Elem().FieldByIndex(idx), nil
}

func read(fv reflect.Value, info field.Info) (field.Value, error) {
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return field.Null{}, nil
		}
		fv = fv.Elem()
	}
	switch info.Type {
	case field.TypeBool:
		return field.Bool(fv.Bool()), nil
	case field.TypeInt16:
		return field.Int16(intOf(fv)), nil
	case field.TypeInt32:
		return field.Int32(intOf(fv)), nil
	case field.TypeInt64:
		return field.Int64(intOf(fv)), nil
	case field.TypeFloat64:
		return field.Float64(fv.Float()), nil
	case field.TypeString:
		return field.String(fv.String()), nil
	case field.TypeDecimal:
		return field.NewDecimal(fv.Interface().(decimal.Decimal)), nil
	case field.TypeTime:
		t := fv.Interface().(time.Time)
		if info.Subkind == field.SubkindNone {
			return field.NewTimestamp(t), nil
		}
		return field.Temporal(t, info.Subkind)
	}
	return nil, fmt.Errorf("reading %s: unsupported type %s", fv.Type(), info)
}

func intOf(v reflect.Value) int64 {
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint())
	default:
		return v.Int()
	}
}

// assign writes v into dst, converting between compatible Go kinds.
func assign(dst reflect.Value, v field.Value) error {
	if field.IsNull(v) {
		dst.SetZero()
		return nil
	}
	if dst.Kind() == reflect.Pointer {
		p := reflect.New(dst.Type().Elem())
		if err := assign(p.Elem(), v); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	}
	src := reflect.ValueOf(v.Interface())
	switch {
	case src.Type().AssignableTo(dst.Type()):
		dst.Set(src)
	case isInt(src.Kind()) && isInt(dst.Kind()):
		n := src.Int()
		if dst.OverflowInt(n) {
			return fmt.Errorf("%d overflows %s", n, dst.Type())
		}
		dst.SetInt(n)
	case isInt(src.Kind()) && isUint(dst.Kind()):
		n := src.Int()
		if n < 0 || dst.OverflowUint(uint64(n)) {
			return fmt.Errorf("%d overflows %s", n, dst.Type())
		}
		dst.SetUint(uint64(n))
	case isFloat(src.Kind()) && isFloat(dst.Kind()):
		dst.SetFloat(src.Float())
	case isInt(src.Kind()) && isFloat(dst.Kind()):
		dst.SetFloat(float64(src.Int()))
	case src.Kind() == dst.Kind() && src.Type().ConvertibleTo(dst.Type()):
		dst.Set(src.Convert(dst.Type()))
	default:
		return fmt.Errorf("cannot assign %s to %s", v.Type(), dst.Type())
	}
	return nil
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uint64
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
