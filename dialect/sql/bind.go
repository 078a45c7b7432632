package sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/tether/dialect"
	"github.com/syssam/tether/schema/field"
)

// BindError reports a parameter that could not be bound.
type BindError struct {
	// Position is 1-based.
	Position int
	Value    any
	Err      error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("sql: binding parameter %d (%T): %v", e.Position, e.Value, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// Bind converts the ordered parameters into driver arguments, dispatching
// on the semantic type of each value: booleans, integers, doubles and
// strings are passed as their Go values, decimals as their exact string
// form, dates, times and timestamps as time.Time, and nulls as nil.
func Bind(params []any) ([]any, error) {
	args := make([]any, len(params))
	for i, p := range params {
		v, err := field.ValueOf(p)
		if err != nil {
			return nil, &BindError{Position: i + 1, Value: p, Err: err}
		}
		args[i] = BindValue(v)
	}
	return args, nil
}

// BindValue returns the driver argument of a single value.
func BindValue(v field.Value) any {
	switch v := v.(type) {
	case field.Null:
		return nil
	case field.Bool:
		return bool(v)
	case field.Int16:
		return int64(v)
	case field.Int32:
		return int64(v)
	case field.Int64:
		return int64(v)
	case field.Float64:
		return float64(v)
	case field.String:
		return string(v)
	case field.Decimal:
		return v.Decimal.String()
	case field.Date:
		return v.Time
	case field.Time:
		return v.Time
	case field.Timestamp:
		return v.Time
	}
	return v.Interface()
}

// Rebind rewrites the positional ? placeholders of query into the form
// expected by the dialect. Only Postgres numbers its placeholders ($1,
// $2, ...); other dialects get the query back unchanged. Question marks
// inside quoted literals and identifiers are left alone.
func Rebind(name, query string) string {
	if name != dialect.Postgres || !strings.Contains(query, "?") {
		return query
	}
	var (
		b     strings.Builder
		n     int
		quote byte
	)
	b.Grow(len(query) + 8)
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
