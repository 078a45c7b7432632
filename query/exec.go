package query

import (
	"context"
	"errors"

	"github.com/syssam/tether"
	"github.com/syssam/tether/dialect"
	"github.com/syssam/tether/dialect/sql"
)

// Execute binds the arguments of c and runs it on drv. A value that cannot
// be bound fails with a *tether.ParameterBindingError; driver errors are
// returned as is. The caller closes the returned rows.
func Execute(ctx context.Context, drv dialect.ExecQuerier, c *Compiled) (*sql.Rows, error) {
	args, err := sql.Bind(c.Args)
	if err != nil {
		var be *sql.BindError
		if errors.As(err, &be) {
			return nil, tether.NewParameterBindingError(be.Position, be.Value, be.Err)
		}
		return nil, err
	}
	rows := &sql.Rows{}
	if err := drv.Query(ctx, c.SQL, args, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Run executes a detail statement and materializes its records.
func Run(ctx context.Context, drv dialect.ExecQuerier, c *Compiled) ([]any, error) {
	rows, err := Execute(ctx, drv, c)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return Materialize(rows, c)
}

// RunAggregate executes an aggregate statement and reads its tuples.
func RunAggregate(ctx context.Context, drv dialect.ExecQuerier, c *Compiled) ([]Tuple, error) {
	rows, err := Execute(ctx, drv, c)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return MaterializeAggregate(rows, c)
}
