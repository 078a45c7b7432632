package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/syssam/tether/config"
	"github.com/syssam/tether/internal/querydoc"
	"github.com/syssam/tether/schema"
	"github.com/syssam/tether/session"
)

// QueryOptions holds flags for the commands taking a query document.
type QueryOptions struct {
	*RootOptions
	Query  string   // query document path
	Params []string // name=value parameter overrides
	Watch  bool     // re-run when an input file changes
}

type queryMode int

const (
	compileOnly queryMode = iota
	detailOnly
	aggregateOnly
)

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	return newQueryCommand(rootOpts, compileOnly, &cobra.Command{
		Use:   "compile",
		Short: "Print the SQL a query document compiles to",
		Long: `Compile a query document against the entity definitions and print the
statement with its arguments. No database connection is made.`,
		Args: cobra.NoArgs,
	})
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	return newQueryCommand(rootOpts, detailOnly, &cobra.Command{
		Use:   "fetch",
		Short: "Run a query document and print the records",
		Args:  cobra.NoArgs,
	})
}

// NewAggregateCommand creates the aggregate command.
func NewAggregateCommand(rootOpts *RootOptions) *cobra.Command {
	return newQueryCommand(rootOpts, aggregateOnly, &cobra.Command{
		Use:   "aggregate",
		Short: "Run an aggregate query document and print the tuples",
		Args:  cobra.NoArgs,
	})
}

func newQueryCommand(rootOpts *RootOptions, mode queryMode, cmd *cobra.Command) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		run := func(ctx context.Context) error {
			return runQuery(ctx, opts, mode, formatter)
		}
		if !opts.Watch {
			return run(cmd.Context())
		}
		return watch(cmd.Context(), opts, run)
	}
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "query document (required)")
	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "parameter override name=value (repeatable)")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "re-run whenever the document, schema or configuration changes")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func runQuery(ctx context.Context, opts *QueryOptions, mode queryMode, formatter *OutputFormatter) error {
	log := opts.Logger()
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	doc, err := querydoc.Load(opts.Query)
	if err != nil {
		return WrapExitError(ExitCommandError, "loading query", err)
	}
	if err := doc.Bind(opts.Params); err != nil {
		return WrapExitError(ExitCommandError, "binding parameters", err)
	}
	switch {
	case mode == detailOnly && doc.Aggregated():
		return NewExitError(ExitCommandError, fmt.Sprintf("%s has aggregates: use the aggregate command", opts.Query))
	case mode == aggregateOnly && !doc.Aggregated():
		return NewExitError(ExitCommandError, fmt.Sprintf("%s has no aggregates: use the fetch command", opts.Query))
	}

	if mode == compileOnly {
		reg, err := loadRegistry(cfg)
		if err != nil {
			return err
		}
		c, err := doc.Compile(reg)
		if err != nil {
			return WrapExitError(ExitCommandError, "compiling query", err)
		}
		log.Debug("compiled query", "entity", doc.Entity, "mode", c.Mode, "params", len(c.Args))
		return formatter.Result(&querydoc.Result{SQL: c.SQL, Args: c.Args})
	}

	if cfg.Schema == "" {
		return NewExitError(ExitCommandError, "no entity definitions: pass --schema or set schema in the configuration")
	}
	sopts := []session.Option{session.Log(log)}
	if opts.Verbose {
		sopts = append(sopts, session.Debug())
	}
	s, err := session.Open(cfg, sopts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening session", err)
	}
	defer s.Close()
	res, err := doc.Run(ctx, s, s.Registry())
	if err != nil {
		return WrapExitError(ExitCommandError, "running query", err)
	}
	log.Debug("query finished", "entity", doc.Entity, "records", len(res.Records), "tuples", len(res.Tuples))
	return formatter.Result(res)
}

// loadConfig reads the configuration file when one is given, or the
// defaults with environment overrides otherwise. The schema flag wins over
// the configured definitions.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	var cfg *config.Config
	if opts.Config != "" {
		c, err := config.Load(opts.Config)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "loading configuration", err)
		}
		cfg = c
	} else {
		cfg = config.Default()
		if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
			return nil, WrapExitError(ExitCommandError, "loading configuration", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, WrapExitError(ExitCommandError, "loading configuration", err)
		}
	}
	if opts.Schema != "" {
		cfg.Schema = opts.Schema
	}
	return cfg, nil
}

// loadRegistry defines the entities of the configured definitions file in
// a fresh registry and checks them.
func loadRegistry(cfg *config.Config) (*schema.Registry, error) {
	if cfg.Schema == "" {
		return nil, NewExitError(ExitCommandError, "no entity definitions: pass --schema or set schema in the configuration")
	}
	defs, err := schema.LoadDefinitions(cfg.Schema)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading definitions", err)
	}
	reg := schema.NewRegistry()
	if err := reg.Define(defs...); err != nil {
		return nil, WrapExitError(ExitCommandError, "defining entities", err)
	}
	return reg, nil
}

// watch runs fn once and then again whenever one of the input files
// changes, until ctx is done. Failed runs are logged and do not stop the
// loop.
func watch(ctx context.Context, opts *QueryOptions, fn func(context.Context) error) error {
	log := opts.Logger()
	if err := fn(ctx); err != nil {
		log.Error("run failed", "error", err)
	}
	paths := []string{opts.Query}
	if opts.Config != "" {
		paths = append(paths, opts.Config)
	}
	if cfg, err := loadConfig(opts.RootOptions); err == nil && cfg.Schema != "" {
		paths = append(paths, cfg.Schema)
	}
	log.Info("watching for changes", "files", paths)
	err := config.WatchFiles(ctx, paths, func(path string) {
		log.Info("change detected", "path", path)
		if err := fn(ctx); err != nil {
			log.Error("run failed", "error", err)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
