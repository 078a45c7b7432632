package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/tether/schema"
)

// ValidationReport is the structured output of the validate command.
type ValidationReport struct {
	Entities int      `json:"entities" yaml:"entities" msgpack:"entities"`
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty" msgpack:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty" msgpack:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check entity definitions",
		Long: `Load the entity definitions and check that relation columns exist on
their targets, that temporal columns declare a subkind and that entities
have a primary key. Exits with status 1 when errors are found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()})
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, formatter *OutputFormatter) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	res := reg.Validate()
	report := &ValidationReport{
		Entities: len(reg.Entities()),
		Errors:   messages(res.Errors),
		Warnings: messages(res.Warnings),
	}
	opts.Logger().Debug("validated definitions", "path", cfg.Schema, "errors", len(report.Errors), "warnings", len(report.Warnings))

	if formatter.Format == "text" {
		fmt.Fprintf(formatter.Writer, "%d entities\n%s\n", report.Entities, res)
	} else if err := formatter.Write(report); err != nil {
		return err
	}
	if res.HasErrors() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(res.Errors)))
	}
	return nil
}

func messages(errs []*schema.ValidationError) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}
