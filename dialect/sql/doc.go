// Package sql implements the dialect.Driver contract over database/sql
// and the building blocks of compiled statements.
//
// # Conditions
//
// Conditions are created from a Params sequence. Each factory appends the
// values it binds, so positions follow creation order:
//
//	p := sql.NewParams()
//	a := p.EQ("student.id", 42)                       // position 1
//	b := p.Between("student.gpa", 3.0, 4.0)           // positions 2, 3
//	c := p.Like("faculty.name", "Sci", sql.StartsWith) // position 4
//	cond := sql.Or(sql.And(a, b), c)
//
//	cond.String()
//	// (((${student.id} = ?) AND (${student.gpa} BETWEEN ? AND ?)) OR (${faculty.name} LIKE ?))
//
// Property paths stay as ${alias.field} placeholders until the query
// compiler expands them with Expand.
//
// # Aggregates and ordering
//
//	sql.Sum("student.gpa").Expr("student.gpa") // SUM(student.gpa)
//	sql.Count("student.id").Unique()           // COUNT(DISTINCT ...)
//	sql.OrderTerm{Path: "student.name", Direction: sql.Desc}
//
// # Binding
//
// Bind dispatches parameters on their semantic type and reports the
// position of the first value it cannot bind. Conn rewrites ? to $n for
// Postgres.
//
// # Decorators
//
// StatsDriver counts statements and reports slow ones; DebugDriver logs
// every statement with log/slog.
package sql
