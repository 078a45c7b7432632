package schema

import (
	"fmt"
	"strings"

	"github.com/syssam/tether"
	"github.com/syssam/tether/schema/field"
)

// ValidationError represents a metadata validation finding.
type ValidationError struct {
	Entity  string
	Table   string
	Column  string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s (%s.%s): %s", e.Entity, e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Entity, e.Table, e.Message)
}

// ValidationResult holds the results of metadata validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Err returns the errors as one error, or nil. Several errors are joined
// in a *tether.AggregateError; warnings are left out.
func (r *ValidationResult) Err() error {
	if !r.HasErrors() {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return fmt.Errorf("schema: validation failed: %w", tether.NewAggregateError(errs...))
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	if len(r.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range r.Errors {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			sb.WriteString("\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - ")
			sb.WriteString(w.Error())
			sb.WriteString("\n")
		}
	}
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

// Validate checks the entities known to the registry:
//
//   - time columns must declare a temporal subkind (error)
//   - column names must be unique per entity (error)
//   - relation targets must resolve, and the referenced columns must exist
//     on the target, and for bridges the host column on the host (error)
//   - relations without a declaration cannot be joined (warning)
//   - entities without a primary key cannot be deduplicated (warning)
func (r *Registry) Validate() *ValidationResult {
	result := &ValidationResult{}
	for _, e := range r.Entities() {
		validateEntity(e, result)
	}
	return result
}

func validateEntity(e *Entity, result *ValidationResult) {
	fail := func(column, format string, args ...any) {
		result.Errors = append(result.Errors, &ValidationError{
			Entity: e.Name, Table: e.Table, Column: column, Message: fmt.Sprintf(format, args...),
		})
	}
	warn := func(column, format string, args ...any) {
		result.Warnings = append(result.Warnings, &ValidationError{
			Entity: e.Name, Table: e.Table, Column: column, Message: fmt.Sprintf(format, args...),
		})
	}
	if e.PrimaryKey() == nil {
		warn("", "no primary key; repeated rows cannot be collapsed")
	}
	seen := make(map[string]struct{}, len(e.Columns))
	for _, c := range e.Columns {
		if _, ok := seen[c.Name]; ok {
			fail(c.Name, "column mapped more than once")
		}
		seen[c.Name] = struct{}{}
		if c.Info.Type == field.TypeTime && c.Info.Subkind == field.SubkindNone {
			fail(c.Name, "time column %q has no temporal subkind", c.Field)
		}
	}
	for _, rel := range e.Relations {
		if !rel.Declared() {
			warn("", "field %q references an entity but declares no relationship", rel.Field)
			continue
		}
		target, err := rel.Target()
		if err != nil {
			fail("", "relation %q: %v", rel.Field, err)
			continue
		}
		switch {
		case rel.Join != nil:
			if target.ColumnByName(rel.Join.References) == nil {
				fail(rel.Join.Column, "relation %q references unknown column %s.%s", rel.Field, target.Table, rel.Join.References)
			}
		case rel.Bridge != nil:
			if e.ColumnByName(rel.Bridge.Host.Column) == nil {
				fail(rel.Bridge.Host.Column, "relation %q joins on unknown host column", rel.Field)
			}
			if target.ColumnByName(rel.Bridge.Target.References) == nil {
				fail("", "relation %q references unknown column %s.%s", rel.Field, target.Table, rel.Bridge.Target.References)
			}
		}
	}
}
