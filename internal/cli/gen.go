package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/syssam/tether/internal/gen"
)

// GenOptions holds flags for the gen command.
type GenOptions struct {
	*RootOptions
	Output  string // output directory
	Package string // package name, defaulting to the directory name
	Workers int
}

// NewGenCommand creates the gen command.
func NewGenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate Go entity types from definitions",
		Long: `Generate one tagged Go struct per defined entity, so that queries over
them can be written against typed records.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output directory (required)")
	cmd.Flags().StringVarP(&opts.Package, "package", "p", "", "package name (defaults to the output directory name)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "files rendered concurrently (defaults to GOMAXPROCS)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runGen(cmd *cobra.Command, opts *GenOptions) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	if res := reg.Validate(); res.HasErrors() {
		return WrapExitError(ExitFailure, "invalid definitions", res.Err())
	}
	pkg := opts.Package
	if pkg == "" {
		abs, err := filepath.Abs(opts.Output)
		if err != nil {
			return WrapExitError(ExitCommandError, "resolving output directory", err)
		}
		pkg = filepath.Base(abs)
	}
	paths, err := gen.Generate(cmd.Context(), reg.Entities(), gen.Config{
		Package: pkg,
		OutDir:  opts.Output,
		Workers: opts.Workers,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "generating", err)
	}
	opts.Logger().Debug("generated entities", "package", pkg, "files", len(paths))

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if formatter.Format != "text" {
		return formatter.Write(paths)
	}
	for _, p := range paths {
		fmt.Fprintln(formatter.Writer, p)
	}
	return nil
}
