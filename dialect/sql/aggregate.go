package sql

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Func is an SQL aggregate function.
type Func string

// Aggregate functions.
const (
	FuncAvg   Func = "AVG"
	FuncCount Func = "COUNT"
	FuncFirst Func = "FIRST"
	FuncLast  Func = "LAST"
	FuncMax   Func = "MAX"
	FuncMin   Func = "MIN"
	FuncSum   Func = "SUM"
)

// ParseFunc parses a function name, case-insensitively. "average",
// "maximum" and "minimum" are accepted as long forms.
func ParseFunc(s string) (Func, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AVG", "AVERAGE":
		return FuncAvg, nil
	case "COUNT":
		return FuncCount, nil
	case "FIRST":
		return FuncFirst, nil
	case "LAST":
		return FuncLast, nil
	case "MAX", "MAXIMUM":
		return FuncMax, nil
	case "MIN", "MINIMUM":
		return FuncMin, nil
	case "SUM":
		return FuncSum, nil
	}
	return "", fmt.Errorf("sql: unknown aggregate function %q", s)
}

// AggregateColumn applies an aggregate function to the column at a
// property path.
type AggregateColumn struct {
	Func     Func
	Path     string
	Distinct bool
}

// Sum returns SUM over the column at path.
func Sum(path string) *AggregateColumn { return &AggregateColumn{Func: FuncSum, Path: path} }

// Count returns COUNT over the column at path.
func Count(path string) *AggregateColumn { return &AggregateColumn{Func: FuncCount, Path: path} }

// Avg returns AVG over the column at path.
func Avg(path string) *AggregateColumn { return &AggregateColumn{Func: FuncAvg, Path: path} }

// Min returns MIN over the column at path.
func Min(path string) *AggregateColumn { return &AggregateColumn{Func: FuncMin, Path: path} }

// Max returns MAX over the column at path.
func Max(path string) *AggregateColumn { return &AggregateColumn{Func: FuncMax, Path: path} }

// First returns FIRST over the column at path.
func First(path string) *AggregateColumn { return &AggregateColumn{Func: FuncFirst, Path: path} }

// Last returns LAST over the column at path.
func Last(path string) *AggregateColumn { return &AggregateColumn{Func: FuncLast, Path: path} }

// Unique marks the aggregate as applying to distinct values only.
func (a *AggregateColumn) Unique() *AggregateColumn {
	a.Distinct = true
	return a
}

// Expr returns the select expression over the qualified column.
func (a *AggregateColumn) Expr(column string) string {
	if a.Distinct {
		return string(a.Func) + "(DISTINCT " + column + ")"
	}
	return string(a.Func) + "(" + column + ")"
}

// As returns the output alias of the aggregate over table.column, for
// example this_sum__student__gpa_. Every component is lower-cased, as in
// detail aliases.
func (a *AggregateColumn) As(table, column string) string {
	lower := cases.Lower(language.Und)
	return "this_" + lower.String(string(a.Func)) + "__" + lower.String(table) + "__" + lower.String(column) + "_"
}

// String returns the aggregate with its path placeholder.
func (a *AggregateColumn) String() string {
	return a.Expr(Path(a.Path))
}
