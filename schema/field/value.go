package field

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Value is a closed union of the values a column or a statement parameter
// can hold. The implementations are Bool, Int16, Int32, Int64, Float64,
// Decimal, String, Date, Time, Timestamp and Null.
type Value interface {
	// Type returns the semantic type of the value (TypeNull for Null).
	Type() Type
	// Interface returns the Go value carried by the union member.
	Interface() any
	// String returns a textual form of the value.
	String() string

	value()
}

type (
	// Bool is a boolean value.
	Bool bool
	// Int16 is a short integer value.
	Int16 int16
	// Int32 is an integer value.
	Int32 int32
	// Int64 is a long integer value.
	Int64 int64
	// Float64 is a double precision value.
	Float64 float64
	// String is a string value.
	String string
	// Decimal is an arbitrary precision decimal value.
	Decimal struct{ decimal.Decimal }
	// Date is a calendar date. The clock part is always midnight.
	Date struct{ time.Time }
	// Time is a time of day. The date part is always year 0, January 1.
	Time struct{ time.Time }
	// Timestamp is an instant with date and clock.
	Timestamp struct{ time.Time }
	// Null is the SQL NULL value.
	Null struct{}
)

func (Bool) Type() Type      { return TypeBool }
func (Int16) Type() Type     { return TypeInt16 }
func (Int32) Type() Type     { return TypeInt32 }
func (Int64) Type() Type     { return TypeInt64 }
func (Float64) Type() Type   { return TypeFloat64 }
func (String) Type() Type    { return TypeString }
func (Decimal) Type() Type   { return TypeDecimal }
func (Date) Type() Type      { return TypeTime }
func (Time) Type() Type      { return TypeTime }
func (Timestamp) Type() Type { return TypeTime }
func (Null) Type() Type      { return TypeNull }

func (v Bool) Interface() any      { return bool(v) }
func (v Int16) Interface() any     { return int16(v) }
func (v Int32) Interface() any     { return int32(v) }
func (v Int64) Interface() any     { return int64(v) }
func (v Float64) Interface() any   { return float64(v) }
func (v String) Interface() any    { return string(v) }
func (v Decimal) Interface() any   { return v.Decimal }
func (v Date) Interface() any      { return v.Time }
func (v Time) Interface() any      { return v.Time }
func (v Timestamp) Interface() any { return v.Time }
func (Null) Interface() any        { return nil }

func (v Bool) String() string      { return strconv.FormatBool(bool(v)) }
func (v Int16) String() string     { return strconv.FormatInt(int64(v), 10) }
func (v Int32) String() string     { return strconv.FormatInt(int64(v), 10) }
func (v Int64) String() string     { return strconv.FormatInt(int64(v), 10) }
func (v Float64) String() string   { return strconv.FormatFloat(float64(v), 'g', -1, 64) }
func (v String) String() string    { return string(v) }
func (v Decimal) String() string   { return v.Decimal.String() }
func (v Date) String() string      { return v.Time.Format(time.DateOnly) }
func (v Time) String() string      { return v.Time.Format("15:04:05.999999999") }
func (v Timestamp) String() string { return v.Time.Format(time.RFC3339Nano) }
func (Null) String() string        { return "NULL" }

func (Bool) value()      {}
func (Int16) value()     {}
func (Int32) value()     {}
func (Int64) value()     {}
func (Float64) value()   {}
func (String) value()    {}
func (Decimal) value()   {}
func (Date) value()      {}
func (Time) value()      {}
func (Timestamp) value() {}
func (Null) value()      {}

// NewDecimal wraps a decimal.Decimal.
func NewDecimal(d decimal.Decimal) Decimal { return Decimal{d} }

// NewDate returns the Date holding the calendar day of t.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, t.Location())}
}

// NewTime returns the Time holding the clock of t.
func NewTime(t time.Time) Time {
	h, m, s := t.Clock()
	return Time{time.Date(0, time.January, 1, h, m, s, t.Nanosecond(), t.Location())}
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp { return Timestamp{t} }

// Temporal wraps t into the union member of the given subkind.
func Temporal(t time.Time, sub Subkind) (Value, error) {
	switch sub {
	case SubkindDate:
		return NewDate(t), nil
	case SubkindTime:
		return NewTime(t), nil
	case SubkindTimestamp:
		return NewTimestamp(t), nil
	default:
		return nil, ErrNoSubkind
	}
}

// IsNull reports whether v is nil or the Null value.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// Key returns a string that identifies v among values of any type. Equal
// keys mean equal values.
func Key(v Value) string {
	if v == nil {
		v = Null{}
	}
	return v.Type().String() + ":" + v.String()
}

// Errors returned by ValueOf and Convert.
var (
	// ErrUnsupported is returned for Go values outside the union.
	ErrUnsupported = errors.New("field: unsupported value type")
	// ErrNoSubkind is returned for time columns without a temporal subkind.
	ErrNoSubkind = errors.New("field: time column has no temporal subkind")
)

// ValueOf converts a Go value into a Value. Plain time.Time values become
// timestamps; pointers are dereferenced (nil pointers become Null); values
// implementing driver.Valuer are converted through their driver value.
func ValueOf(v any) (Value, error) {
	switch v := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return v, nil
	case bool:
		return Bool(v), nil
	case int8:
		return Int16(v), nil
	case int16:
		return Int16(v), nil
	case uint8:
		return Int16(v), nil
	case int32:
		return Int32(v), nil
	case uint16:
		return Int32(v), nil
	case int:
		return Int64(v), nil
	case int64:
		return Int64(v), nil
	case uint32:
		return Int64(v), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d overflows int64", ErrUnsupported, v)
		}
		return Int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d overflows int64", ErrUnsupported, v)
		}
		return Int64(v), nil
	case float32:
		return Float64(v), nil
	case float64:
		return Float64(v), nil
	case string:
		return String(v), nil
	case decimal.Decimal:
		return Decimal{v}, nil
	case time.Time:
		return Timestamp{v}, nil
	case driver.Valuer:
		dv, err := v.Value()
		if err != nil {
			return nil, err
		}
		if dv == nil {
			return Null{}, nil
		}
		if _, ok := dv.(driver.Valuer); ok {
			return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
		}
		return ValueOf(dv)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return Null{}, nil
		}
		return ValueOf(rv.Elem().Interface())
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
}

// MustValueOf is like ValueOf but panics on error.
func MustValueOf(v any) Value {
	fv, err := ValueOf(v)
	if err != nil {
		panic(err)
	}
	return fv
}

// Layouts tried when parsing temporal values that drivers return as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.DateOnly,
	"15:04:05.999999999",
}

// Convert converts a raw driver value into the union member of the given
// column type. NULL becomes Null for every type.
func Convert(raw any, info Info) (Value, error) {
	if info.Type == TypeTime && info.Subkind == SubkindNone {
		return nil, ErrNoSubkind
	}
	if raw == nil {
		return Null{}, nil
	}
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}
	fail := func() (Value, error) {
		return nil, fmt.Errorf("field: cannot convert %T to %s", raw, info)
	}
	switch info.Type {
	case TypeBool:
		switch v := raw.(type) {
		case bool:
			return Bool(v), nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("field: converting %q to bool: %w", v, err)
			}
			return Bool(b), nil
		}
		if i, ok := asInt(raw); ok {
			return Bool(i != 0), nil
		}
		return fail()
	case TypeInt16, TypeInt32, TypeInt64:
		i, ok := asInt(raw)
		if !ok {
			switch v := raw.(type) {
			case float64:
				if v != math.Trunc(v) {
					return nil, fmt.Errorf("field: converting %v to %s: not integral", v, info.Type)
				}
				i, ok = int64(v), true
			case string:
				n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
				if err != nil {
					return nil, fmt.Errorf("field: converting %q to %s: %w", v, info.Type, err)
				}
				i, ok = n, true
			}
		}
		if !ok {
			return fail()
		}
		switch info.Type {
		case TypeInt16:
			if i < math.MinInt16 || i > math.MaxInt16 {
				return nil, fmt.Errorf("field: %d overflows int16", i)
			}
			return Int16(i), nil
		case TypeInt32:
			if i < math.MinInt32 || i > math.MaxInt32 {
				return nil, fmt.Errorf("field: %d overflows int32", i)
			}
			return Int32(i), nil
		default:
			return Int64(i), nil
		}
	case TypeFloat64:
		switch v := raw.(type) {
		case float64:
			return Float64(v), nil
		case float32:
			return Float64(v), nil
		case decimal.Decimal:
			return Float64(v.InexactFloat64()), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("field: converting %q to float64: %w", v, err)
			}
			return Float64(f), nil
		}
		if i, ok := asInt(raw); ok {
			return Float64(i), nil
		}
		return fail()
	case TypeDecimal:
		switch v := raw.(type) {
		case decimal.Decimal:
			return Decimal{v}, nil
		case float64:
			return Decimal{decimal.NewFromFloat(v)}, nil
		case float32:
			return Decimal{decimal.NewFromFloat32(v)}, nil
		case string:
			d, err := decimal.NewFromString(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("field: converting %q to decimal: %w", v, err)
			}
			return Decimal{d}, nil
		}
		if i, ok := asInt(raw); ok {
			return Decimal{decimal.NewFromInt(i)}, nil
		}
		return fail()
	case TypeString:
		if s, ok := raw.(string); ok {
			return String(s), nil
		}
		return fail()
	case TypeTime:
		switch v := raw.(type) {
		case time.Time:
			return Temporal(v, info.Subkind)
		case string:
			t, err := parseTime(v)
			if err != nil {
				return nil, err
			}
			return Temporal(t, info.Subkind)
		}
		return fail()
	default:
		return fail()
	}
}

// ConvertAggregate converts the result of an aggregate function. It
// differs from Convert only for integer types, where a fractional result,
// such as the average of an integer column, is truncated toward zero.
func ConvertAggregate(raw any, info Info) (Value, error) {
	switch info.Type {
	case TypeInt16, TypeInt32, TypeInt64:
	default:
		return Convert(raw, info)
	}
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}
	switch v := raw.(type) {
	case float64:
		raw = math.Trunc(v)
	case float32:
		raw = math.Trunc(float64(v))
	case string:
		if _, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err != nil {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				raw = math.Trunc(f)
			}
		}
	}
	return Convert(raw, info)
}

func asInt(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int16:
		return int64(v), true
	case int8:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("field: cannot parse %q as time", s)
}
