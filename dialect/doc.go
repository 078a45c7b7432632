// Package dialect defines the connection contract the query layer runs on.
//
// Driver and Tx are implemented by dialect/sql over database/sql. Both
// satisfy ExecQuerier, which is all the compiler, executor and
// materializer need:
//
//	type ExecQuerier interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	}
//
// Statements are written with positional ? placeholders. Drivers for
// dialects that number their placeholders (Postgres) rewrite them before
// execution.
//
// Opening a connection:
//
//	drv, err := sql.Open(dialect.SQLite, "file:school.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
// Sub-packages:
//
//   - dialect/sql: driver, predicate and aggregate model, parameter binding
//   - dialect/sql/sqlgraph: single-table writes and bridge persistence
package dialect
