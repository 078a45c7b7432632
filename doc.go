// Package tether holds the error kinds shared by the packages of the
// module.
//
// Queries are built with package query over entities described by package
// schema, and run on a dialect.Driver, usually through a session:
//
//	q := session.Fetch[Student](s, "s")
//	students, err := q.
//		Join("s.faculty", "f").
//		JoinThrough("s.modules", "m").
//		Where(q.P().EQ("f.name", "Science")).
//		OrderBy("s.name", sql.Asc).
//		All(ctx)
//
// Errors raised while compiling a query (an unmapped entity, an undeclared
// join, a duplicate alias, an unresolved property path) are reported
// before any statement runs. Binding and materialization errors abort the
// fetch and discard partial results.
package tether
