package tether

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors matched by the typed errors below through their Is methods.
var (
	// ErrUnmappedEntity is returned when a type used as a query alias has no
	// usable entity metadata.
	ErrUnmappedEntity = errors.New("tether: unmapped entity")

	// ErrNotAnEntity is returned by the metadata provider when a type does
	// not carry the persistence marker.
	ErrNotAnEntity = errors.New("tether: not an entity")

	// ErrNoTableBound is returned by the metadata provider when an entity
	// declares no table.
	ErrNoTableBound = errors.New("tether: no table bound")

	// ErrJoinNotDeclared is returned when a join names a field without a
	// relationship declaration.
	ErrJoinNotDeclared = errors.New("tether: join not declared")

	// ErrDuplicateAlias is returned when an alias name is used twice in one query.
	ErrDuplicateAlias = errors.New("tether: duplicate alias")

	// ErrUnresolvedPropertyPath is returned when a property path does not
	// resolve against the alias graph.
	ErrUnresolvedPropertyPath = errors.New("tether: unresolved property path")

	// ErrParameterBinding is returned when a parameter cannot be bound.
	ErrParameterBinding = errors.New("tether: parameter binding failed")

	// ErrMaterialization is returned when rows cannot be turned into records.
	ErrMaterialization = errors.New("tether: materialization failed")

	// ErrNotFound is returned when a query expecting a record returns none.
	ErrNotFound = errors.New("tether: entity not found")

	// ErrNotSingular is returned when a query that expects exactly one result
	// returns zero or multiple results.
	ErrNotSingular = errors.New("tether: entity not singular")

	// ErrTxStarted is returned when attempting to start a new transaction
	// within an existing transaction.
	ErrTxStarted = errors.New("tether: cannot start a transaction within a transaction")
)

// UnmappedEntityError reports an entity type that cannot be used as an alias.
type UnmappedEntityError struct {
	Entity string // Entity type name
	Err    error  // Provider error (ErrNotAnEntity, ErrNoTableBound, ...)
}

// Error returns the error string.
func (e *UnmappedEntityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tether: unmapped entity %s: %v", e.Entity, e.Err)
	}
	return fmt.Sprintf("tether: unmapped entity %s", e.Entity)
}

// Is reports whether the target error matches ErrUnmappedEntity.
func (e *UnmappedEntityError) Is(err error) bool {
	return err == ErrUnmappedEntity
}

// Unwrap returns the provider error.
func (e *UnmappedEntityError) Unwrap() error {
	return e.Err
}

// NewUnmappedEntityError returns a new UnmappedEntityError.
func NewUnmappedEntityError(entity string, err error) *UnmappedEntityError {
	return &UnmappedEntityError{Entity: entity, Err: err}
}

// IsUnmappedEntity returns true if the error is an UnmappedEntityError.
func IsUnmappedEntity(err error) bool {
	if err == nil {
		return false
	}
	var e *UnmappedEntityError
	return errors.As(err, &e) || errors.Is(err, ErrUnmappedEntity)
}

// JoinNotDeclaredError reports a join through a field that has no usable
// relationship declaration.
type JoinNotDeclaredError struct {
	Entity string // Host entity name
	Path   string // Property path of the join
	Reason string
}

// Error returns the error string.
func (e *JoinNotDeclaredError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("tether: join %q on %s not declared: %s", e.Path, e.Entity, e.Reason)
	}
	return fmt.Sprintf("tether: join %q on %s not declared", e.Path, e.Entity)
}

// Is reports whether the target error matches ErrJoinNotDeclared.
func (e *JoinNotDeclaredError) Is(err error) bool {
	return err == ErrJoinNotDeclared
}

// NewJoinNotDeclaredError returns a new JoinNotDeclaredError.
func NewJoinNotDeclaredError(entity, path, reason string) *JoinNotDeclaredError {
	return &JoinNotDeclaredError{Entity: entity, Path: path, Reason: reason}
}

// IsJoinNotDeclared returns true if the error is a JoinNotDeclaredError.
func IsJoinNotDeclared(err error) bool {
	if err == nil {
		return false
	}
	var e *JoinNotDeclaredError
	return errors.As(err, &e) || errors.Is(err, ErrJoinNotDeclared)
}

// DuplicateAliasError reports an alias name declared twice in one query.
type DuplicateAliasError struct {
	Alias string
}

// Error returns the error string.
func (e *DuplicateAliasError) Error() string {
	return fmt.Sprintf("tether: alias %q already declared", e.Alias)
}

// Is reports whether the target error matches ErrDuplicateAlias.
func (e *DuplicateAliasError) Is(err error) bool {
	return err == ErrDuplicateAlias
}

// NewDuplicateAliasError returns a new DuplicateAliasError.
func NewDuplicateAliasError(alias string) *DuplicateAliasError {
	return &DuplicateAliasError{Alias: alias}
}

// IsDuplicateAlias returns true if the error is a DuplicateAliasError.
func IsDuplicateAlias(err error) bool {
	if err == nil {
		return false
	}
	var e *DuplicateAliasError
	return errors.As(err, &e) || errors.Is(err, ErrDuplicateAlias)
}

// UnresolvedPropertyPathError reports a property path that does not resolve
// to an alias and field of the query.
type UnresolvedPropertyPathError struct {
	Path   string
	Reason string
}

// Error returns the error string.
func (e *UnresolvedPropertyPathError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("tether: unresolved property path %q: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("tether: unresolved property path %q", e.Path)
}

// Is reports whether the target error matches ErrUnresolvedPropertyPath.
func (e *UnresolvedPropertyPathError) Is(err error) bool {
	return err == ErrUnresolvedPropertyPath
}

// NewUnresolvedPropertyPathError returns a new UnresolvedPropertyPathError.
func NewUnresolvedPropertyPathError(path, reason string) *UnresolvedPropertyPathError {
	return &UnresolvedPropertyPathError{Path: path, Reason: reason}
}

// IsUnresolvedPropertyPath returns true if the error is an UnresolvedPropertyPathError.
func IsUnresolvedPropertyPath(err error) bool {
	if err == nil {
		return false
	}
	var e *UnresolvedPropertyPathError
	return errors.As(err, &e) || errors.Is(err, ErrUnresolvedPropertyPath)
}

// ParameterBindingError reports a parameter that could not be bound to its
// statement position.
type ParameterBindingError struct {
	Position int // 1-based placeholder position
	Value    any // Offending value
	Err      error
}

// Error returns the error string.
func (e *ParameterBindingError) Error() string {
	return fmt.Sprintf("tether: binding parameter %d (%T): %v", e.Position, e.Value, e.Err)
}

// Is reports whether the target error matches ErrParameterBinding.
func (e *ParameterBindingError) Is(err error) bool {
	return err == ErrParameterBinding
}

// Unwrap returns the underlying error.
func (e *ParameterBindingError) Unwrap() error {
	return e.Err
}

// NewParameterBindingError returns a new ParameterBindingError.
func NewParameterBindingError(pos int, value any, err error) *ParameterBindingError {
	return &ParameterBindingError{Position: pos, Value: value, Err: err}
}

// IsParameterBinding returns true if the error is a ParameterBindingError.
func IsParameterBinding(err error) bool {
	if err == nil {
		return false
	}
	var e *ParameterBindingError
	return errors.As(err, &e) || errors.Is(err, ErrParameterBinding)
}

// MaterializationError reports a failure turning result rows into records
// or aggregate tuples. The whole fetch is aborted.
type MaterializationError struct {
	Alias  string // Alias being materialized
	Column string // Column or output alias, if known
	Err    error
}

// Error returns the error string.
func (e *MaterializationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("tether: materializing %s.%s: %v", e.Alias, e.Column, e.Err)
	}
	return fmt.Sprintf("tether: materializing %s: %v", e.Alias, e.Err)
}

// Is reports whether the target error matches ErrMaterialization.
func (e *MaterializationError) Is(err error) bool {
	return err == ErrMaterialization
}

// Unwrap returns the underlying error.
func (e *MaterializationError) Unwrap() error {
	return e.Err
}

// NewMaterializationError returns a new MaterializationError.
func NewMaterializationError(alias, column string, err error) *MaterializationError {
	return &MaterializationError{Alias: alias, Column: column, Err: err}
}

// IsMaterialization returns true if the error is a MaterializationError.
func IsMaterialization(err error) bool {
	if err == nil {
		return false
	}
	var e *MaterializationError
	return errors.As(err, &e) || errors.Is(err, ErrMaterialization)
}

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tether: %s not found", e.label)
}

// Is reports whether the target error matches ErrNotFound.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label.
func (e *NotFoundError) Label() string {
	return e.label
}

// NewNotFoundError returns a new NotFoundError for the given entity type.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// NotSingularError represents an error when a query expects a singular result
// but receives zero or multiple results.
type NotSingularError struct {
	label string
	count int
}

// Error returns the error string.
func (e *NotSingularError) Error() string {
	return fmt.Sprintf("tether: %s not singular (got %d results, expected 1)", e.label, e.count)
}

// Is reports whether the target error matches ErrNotSingular.
func (e *NotSingularError) Is(err error) bool {
	return err == ErrNotSingular
}

// Count returns the number of results.
func (e *NotSingularError) Count() int {
	return e.count
}

// NewNotSingularError returns a new NotSingularError with the result count.
func NewNotSingularError(label string, count int) *NotSingularError {
	return &NotSingularError{label: label, count: count}
}

// IsNotSingular returns true if the error is a NotSingularError.
func IsNotSingular(err error) bool {
	if err == nil {
		return false
	}
	var e *NotSingularError
	return errors.As(err, &e) || errors.Is(err, ErrNotSingular)
}

// ConstraintError represents a database constraint violation error.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e ConstraintError) Error() string {
	return fmt.Sprintf("tether: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) error {
	return ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}

// MutationError wraps a persistence error with the entity and operation.
type MutationError struct {
	Entity string // Entity type being mutated
	Op     string // Operation ("save", "update", "save bridge", ...)
	Err    error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("tether: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// NewMutationError returns a new MutationError.
func NewMutationError(entity, op string, err error) *MutationError {
	return &MutationError{Entity: entity, Op: op, Err: err}
}

// IsMutationError returns true if the error is a MutationError.
func IsMutationError(err error) bool {
	if err == nil {
		return false
	}
	var e *MutationError
	return errors.As(err, &e)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error // Original error that triggered rollback
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("tether: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "tether: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("tether: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
