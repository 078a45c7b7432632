// Package cli implements the tether command line: compiling and running
// query documents, validating schema definitions and generating entity
// types from them.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	// Drivers selectable through the dialect setting.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // text, json, yaml or msgpack
	LogFormat string // text or json
	Config    string // configuration file
	Schema    string // definitions file, overriding the configured one

	logger *slog.Logger
}

// Logger returns the logger installed for the running command.
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml", "msgpack"}

// NewRootCommand creates the root command of the tether CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tether",
		Short: "Compile and run alias-graph queries",
		Long: `tether compiles query documents over mapped entities into single SQL
statements, runs them and prints the materialized records or aggregates.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			h, err := newHandler(cmd.ErrOrStderr(), opts)
			if err != nil {
				return err
			}
			opts.logger = slog.New(h)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log statements and debug output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml|msgpack)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "text", "log format (text|json)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "configuration file (.yaml or .toml)")
	cmd.PersistentFlags().StringVarP(&opts.Schema, "schema", "s", "", "entity definitions file")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewFetchCommand(opts))
	cmd.AddCommand(NewAggregateCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewGenCommand(opts))

	return cmd
}

func newHandler(w io.Writer, opts *RootOptions) (slog.Handler, error) {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	ho := &slog.HandlerOptions{Level: level}
	switch opts.LogFormat {
	case "text":
		return slog.NewTextHandler(w, ho), nil
	case "json":
		return slog.NewJSONHandler(w, ho), nil
	}
	return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid log format %q: must be text or json", opts.LogFormat))
}
