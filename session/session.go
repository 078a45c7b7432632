// Package session binds a database driver, a metadata registry and a logger
// into the object queries and mutations run against.
//
//	cfg, err := config.Load("tether.yaml")
//	if err != nil {
//		return err
//	}
//	s, err := session.Open(cfg, session.Log(logger))
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	students, err := session.Fetch[Student](s, "s").
//		Join("s.modules", "m").
//		All(ctx)
package session

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/tether"
	"github.com/syssam/tether/config"
	"github.com/syssam/tether/dialect"
	"github.com/syssam/tether/dialect/sql"
	"github.com/syssam/tether/query"
	"github.com/syssam/tether/schema"
)

// Option configures a Session.
type Option func(*options)

type options struct {
	drv   dialect.Driver
	reg   *schema.Registry
	log   *slog.Logger
	debug bool
}

// Driver sets the driver of a session created with New.
func Driver(drv dialect.Driver) Option {
	return func(o *options) {
		o.drv = drv
	}
}

// Registry sets the metadata provider. It defaults to schema.Default.
func Registry(reg *schema.Registry) Option {
	return func(o *options) {
		o.reg = reg
	}
}

// Log sets the logger. It defaults to slog.Default().
func Log(log *slog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// Debug logs every statement with its arguments.
func Debug() Option {
	return func(o *options) {
		o.debug = true
	}
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	return o
}

// Session runs queries and mutations on one driver. A session returned by
// Begin routes every statement to its transaction. A Session without a
// transaction is safe for concurrent use.
type Session struct {
	drv   dialect.Driver
	tx    dialect.Tx
	reg   *schema.Registry
	log   *slog.Logger
	stats *sql.StatsDriver
}

// New returns a session over the driver given with the Driver option.
func New(opts ...Option) (*Session, error) {
	o := newOptions(opts)
	if o.drv == nil {
		return nil, errors.New("session: missing driver")
	}
	drv := o.drv
	if o.debug {
		drv = sql.NewDebugDriver(drv, o.log)
	}
	return &Session{drv: drv, reg: o.reg, log: o.log}, nil
}

// Open connects to the database described by cfg. The database/sql driver
// of the dialect must be registered by the caller. When cfg names a schema
// file, its definitions are added to the registry, or to a new registry if
// none was given.
func Open(cfg *config.Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	db, err := stdsql.Open(cfg.Dialect, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("session: open %s: %w", cfg.Dialect, err)
	}
	base := sql.OpenDB(cfg.Dialect, db)
	base.ConfigurePool(sql.PoolOptions{
		MaxOpen:     cfg.Pool.MaxOpen,
		MaxIdle:     cfg.Pool.MaxIdle,
		MaxLifetime: time.Duration(cfg.Pool.MaxLifetime),
	})
	stats := sql.NewStatsDriver(base,
		sql.WithSlowThreshold(time.Duration(cfg.SlowThreshold)),
		sql.WithSlowQueryLog(o.log),
	)
	var drv dialect.Driver = stats
	if cfg.Debug || o.debug {
		drv = sql.NewDebugDriver(drv, o.log)
	}
	reg := o.reg
	if cfg.Schema != "" {
		defs, err := schema.LoadDefinitions(cfg.Schema)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("session: %w", err)
		}
		if reg == nil {
			reg = schema.NewRegistry()
		}
		if err := reg.Define(defs...); err != nil {
			db.Close()
			return nil, fmt.Errorf("session: %w", err)
		}
	}
	o.log.Debug("session opened", "dialect", cfg.Dialect, "schema", cfg.Schema)
	return &Session{drv: drv, reg: reg, log: o.log, stats: stats}, nil
}

// Dialect returns the dialect of the underlying driver.
func (s *Session) Dialect() string { return s.drv.Dialect() }

// Registry returns the metadata provider of the session.
func (s *Session) Registry() *schema.Registry {
	if s.reg == nil {
		return schema.Default
	}
	return s.reg
}

// Stats returns the statement statistics of a session created with Open,
// or nil.
func (s *Session) Stats() *sql.QueryStats {
	if s.stats == nil {
		return nil
	}
	return s.stats.QueryStats()
}

// InTx reports whether the session is bound to a transaction.
func (s *Session) InTx() bool { return s.tx != nil }

func (s *Session) conn() dialect.ExecQuerier {
	if s.tx != nil {
		return s.tx
	}
	return s.drv
}

// Query implements dialect.ExecQuerier.
func (s *Session) Query(ctx context.Context, query string, args, v any) error {
	return s.run(ctx, "query", query, args, func() error {
		return s.conn().Query(ctx, query, args, v)
	})
}

// Exec implements dialect.ExecQuerier.
func (s *Session) Exec(ctx context.Context, query string, args, v any) error {
	return s.run(ctx, "exec", query, args, func() error {
		return s.conn().Exec(ctx, query, args, v)
	})
}

func (s *Session) run(ctx context.Context, kind, query string, args any, fn func() error) error {
	if !s.log.Enabled(ctx, slog.LevelDebug) {
		return fn()
	}
	argv, _ := args.([]any)
	log := s.log.With("query_id", uuid.NewString(), "tx", s.tx != nil)
	start := time.Now()
	err := fn()
	if err != nil {
		log.DebugContext(ctx, kind+" failed", "sql", query, "params", len(argv), "error", err)
		return err
	}
	log.DebugContext(ctx, kind, "sql", query, "params", len(argv), "elapsed", time.Since(start))
	return nil
}

// Begin starts a transaction and returns a session bound to it.
func (s *Session) Begin(ctx context.Context) (*Session, error) {
	if s.tx != nil {
		return nil, tether.ErrTxStarted
	}
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: starting a transaction: %w", err)
	}
	return &Session{drv: s.drv, tx: tx, reg: s.reg, log: s.log, stats: s.stats}, nil
}

// Commit commits the transaction of the session.
func (s *Session) Commit() error {
	if s.tx == nil {
		return errors.New("session: commit outside a transaction")
	}
	return s.tx.Commit()
}

// Rollback rolls back the transaction of the session.
func (s *Session) Rollback() error {
	if s.tx == nil {
		return errors.New("session: rollback outside a transaction")
	}
	return s.tx.Rollback()
}

// Close closes the driver. Closing a transaction session rolls the
// transaction back instead.
func (s *Session) Close() error {
	if s.tx != nil {
		return s.tx.Rollback()
	}
	return s.drv.Close()
}

// WithTx runs fn in a transaction. If fn returns an error or panics, the
// transaction is rolled back, otherwise it is committed. Inside a
// transaction fn runs on s itself.
func (s *Session) WithTx(ctx context.Context, fn func(tx *Session) error) error {
	if s.tx != nil {
		return fn(s)
	}
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if v := recover(); v != nil {
			tx.Rollback()
			panic(v)
		}
	}()
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return &tether.RollbackError{Err: fmt.Errorf("%w: rolling back transaction: %v", err, rerr)}
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Fetch starts a detail query rooted at the entity T on the session.
func Fetch[T any](s *Session, alias string) *query.FetchQuery[T] {
	return query.Fetch[T](s, alias, query.WithRegistry(s.Registry()))
}

// FetchEntity starts a detail query rooted at the given entity. Use
// FetchEntity[schema.Record] for entities registered from definitions.
func FetchEntity[T any](s *Session, entity any, alias string) *query.FetchQuery[T] {
	return query.FetchEntity[T](s, entity, alias, query.WithRegistry(s.Registry()))
}

// Aggregate starts an aggregate query rooted at the given entity.
func (s *Session) Aggregate(entity any, alias string) *query.AggregateQuery {
	return query.Aggregate(s, entity, alias, query.WithRegistry(s.Registry()))
}

var _ dialect.ExecQuerier = (*Session)(nil)
