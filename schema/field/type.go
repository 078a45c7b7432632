package field

import (
	"fmt"
	"strings"
)

// Type is the semantic type of a column.
type Type uint8

// List of semantic column types.
const (
	TypeInvalid Type = iota
	TypeBool
	TypeInt16
	TypeInt32
	TypeInt64
	TypeFloat64
	TypeDecimal
	TypeString
	TypeTime
	TypeNull
	endTypes
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeBool:    "bool",
	TypeInt16:   "int16",
	TypeInt32:   "int32",
	TypeInt64:   "int64",
	TypeFloat64: "float64",
	TypeDecimal: "decimal",
	TypeString:  "string",
	TypeTime:    "time",
	TypeNull:    "null",
}

// String returns the string representation of a type.
func (t Type) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return typeNames[TypeInvalid]
}

// Valid reports if the given type is a column type.
func (t Type) Valid() bool {
	return t > TypeInvalid && t < TypeNull
}

// Numeric reports if the given type is a numeric type.
func (t Type) Numeric() bool {
	return t >= TypeInt16 && t <= TypeDecimal
}

// aliases accepted by ParseType besides the canonical names.
var typeAliases = map[string]Type{
	"boolean":  TypeBool,
	"short":    TypeInt16,
	"smallint": TypeInt16,
	"int":      TypeInt32,
	"integer":  TypeInt32,
	"long":     TypeInt64,
	"bigint":   TypeInt64,
	"double":   TypeFloat64,
	"float":    TypeFloat64,
	"numeric":  TypeDecimal,
	"text":     TypeString,
	"varchar":  TypeString,
}

// ParseType parses a type name as used in schema definitions.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t := TypeBool; t < TypeNull; t++ {
		if typeNames[t] == s {
			return t, nil
		}
	}
	if t, ok := typeAliases[s]; ok {
		return t, nil
	}
	return TypeInvalid, fmt.Errorf("field: unknown type %q", s)
}

// Subkind refines TypeTime columns. A time column without a subkind cannot
// be materialized.
type Subkind uint8

// List of temporal subkinds.
const (
	SubkindNone Subkind = iota
	SubkindDate
	SubkindTime
	SubkindTimestamp
)

// String returns the string representation of a subkind.
func (s Subkind) String() string {
	switch s {
	case SubkindDate:
		return "date"
	case SubkindTime:
		return "time"
	case SubkindTimestamp:
		return "timestamp"
	default:
		return ""
	}
}

// ParseSubkind parses a temporal subkind name.
func ParseSubkind(s string) (Subkind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return SubkindNone, nil
	case "date":
		return SubkindDate, nil
	case "time":
		return SubkindTime, nil
	case "timestamp", "datetime":
		return SubkindTimestamp, nil
	default:
		return SubkindNone, fmt.Errorf("field: unknown temporal subkind %q", s)
	}
}

// ParseInfo parses a type name that may also name a temporal subkind
// directly ("date", "timestamp").
func ParseInfo(s string) (Info, error) {
	if sub, err := ParseSubkind(s); err == nil && sub != SubkindNone && sub != SubkindTime {
		return Info{Type: TypeTime, Subkind: sub}, nil
	}
	t, err := ParseType(s)
	if err != nil {
		return Info{}, err
	}
	return Info{Type: t}, nil
}

// Info describes the semantic type of a column.
type Info struct {
	Type    Type
	Subkind Subkind
}

// String returns the string representation of the type info.
func (i Info) String() string {
	if i.Type == TypeTime && i.Subkind != SubkindNone {
		return i.Subkind.String()
	}
	return i.Type.String()
}
