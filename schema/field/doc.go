// Package field defines the semantic column types and the value union used
// for statement parameters and materialized column values.
//
// # Types
//
// Every column carries an Info: a Type and, for time columns, a Subkind.
//
//	field.Info{Type: field.TypeInt64}
//	field.Info{Type: field.TypeTime, Subkind: field.SubkindDate}
//
// A time column without a subkind is a mapping defect and fails when it is
// materialized.
//
// # Values
//
// Value is a closed union. Each member wraps one Go representation:
//
//	field.Bool(true)
//	field.Int16(3)
//	field.Int32(7)
//	field.Int64(42)
//	field.Float64(3.5)
//	field.NewDecimal(decimal.RequireFromString("12.50"))
//	field.String("CS101")
//	field.NewDate(t), field.NewTime(t), field.NewTimestamp(t)
//	field.Null{}
//
// ValueOf lifts ordinary Go values into the union (time.Time becomes a
// Timestamp). Convert turns raw driver values into the member matching a
// column Info, parsing text where drivers return it.
//
//	v, err := field.Convert(int64(1), field.Info{Type: field.TypeBool})
//	// v == field.Bool(true)
package field
