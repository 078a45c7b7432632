package sql

import (
	"fmt"
	"slices"
	"strings"
)

// Op is a condition operator.
type Op string

// Supported operators.
const (
	OpEQ      Op = "="
	OpNEQ     Op = "!="
	OpGT      Op = ">"
	OpGTE     Op = ">="
	OpLT      Op = "<"
	OpLTE     Op = "<="
	OpLike    Op = "LIKE"
	OpNotLike Op = "NOT LIKE"
	OpBetween Op = "BETWEEN"
	OpIn      Op = "IN"
	OpNotIn   Op = "NOT IN"
	OpIsNull  Op = "IS NULL"
	OpNotNull Op = "IS NOT NULL"
	OpAnd     Op = "AND"
	OpOr      Op = "OR"
)

// ParseOp returns the operator with the given text, accepting the
// lower-case spellings used in query documents (eq, neq, gt, ...).
func ParseOp(s string) (Op, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "=", "eq":
		return OpEQ, nil
	case "!=", "<>", "neq":
		return OpNEQ, nil
	case ">", "gt":
		return OpGT, nil
	case ">=", "gte":
		return OpGTE, nil
	case "<", "lt":
		return OpLT, nil
	case "<=", "lte":
		return OpLTE, nil
	case "like":
		return OpLike, nil
	case "not like", "not_like", "notlike":
		return OpNotLike, nil
	case "between":
		return OpBetween, nil
	case "in":
		return OpIn, nil
	case "not in", "not_in", "notin":
		return OpNotIn, nil
	case "is null", "is_null", "isnull":
		return OpIsNull, nil
	case "is not null", "not_null", "notnull":
		return OpNotNull, nil
	case "and":
		return OpAnd, nil
	case "or":
		return OpOr, nil
	}
	return "", fmt.Errorf("sql: unknown operator %q", s)
}

// MatchMode decorates the value of a LIKE condition.
type MatchMode int

// Match modes.
const (
	Exact MatchMode = iota
	StartsWith
	EndsWith
	Anywhere
)

// Pattern returns v decorated with % wildcards for the mode.
func (m MatchMode) Pattern(v string) string {
	switch m {
	case StartsWith:
		return v + "%"
	case EndsWith:
		return "%" + v
	case Anywhere:
		return "%" + v + "%"
	default:
		return v
	}
}

// String returns the mode name.
func (m MatchMode) String() string {
	switch m {
	case StartsWith:
		return "starts_with"
	case EndsWith:
		return "ends_with"
	case Anywhere:
		return "anywhere"
	default:
		return "exact"
	}
}

// ParseMatchMode parses a mode name. The empty string is Exact.
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "-", "_")) {
	case "", "exact":
		return Exact, nil
	case "starts_with", "prefix":
		return StartsWith, nil
	case "ends_with", "suffix":
		return EndsWith, nil
	case "anywhere", "contains":
		return Anywhere, nil
	}
	return Exact, fmt.Errorf("sql: unknown match mode %q", s)
}

// Params is the ordered positional parameter sequence of one query build.
// Every condition factory appends the values it binds at construction time,
// so the sequence lists parameters in the order conditions were created.
//
// A Params is owned by a single builder and is not safe for concurrent use.
type Params struct {
	values []any
}

// NewParams returns an empty sequence.
func NewParams() *Params { return &Params{} }

// Reset clears the sequence. Conditions created before the reset keep
// their own values.
func (p *Params) Reset() { p.values = p.values[:0] }

// Len returns the number of parameters appended so far.
func (p *Params) Len() int { return len(p.values) }

// Values returns a copy of the sequence. Position i (0-based) holds the
// value of placeholder i+1.
func (p *Params) Values() []any {
	return append([]any(nil), p.values...)
}

// At returns the value at the 1-based position.
func (p *Params) At(pos int) (any, bool) {
	if pos < 1 || pos > len(p.values) {
		return nil, false
	}
	return p.values[pos-1], true
}

func (p *Params) leaf(path string, op Op, args ...any) *Condition {
	c := &Condition{op: op, path: path, args: slices.Clone(args), pos: len(p.values) + 1}
	p.values = append(p.values, args...)
	return c
}

// EQ returns the condition (path = ?).
func (p *Params) EQ(path string, v any) *Condition { return p.leaf(path, OpEQ, v) }

// NEQ returns the condition (path != ?).
func (p *Params) NEQ(path string, v any) *Condition { return p.leaf(path, OpNEQ, v) }

// GT returns the condition (path > ?).
func (p *Params) GT(path string, v any) *Condition { return p.leaf(path, OpGT, v) }

// GTE returns the condition (path >= ?).
func (p *Params) GTE(path string, v any) *Condition { return p.leaf(path, OpGTE, v) }

// LT returns the condition (path < ?).
func (p *Params) LT(path string, v any) *Condition { return p.leaf(path, OpLT, v) }

// LTE returns the condition (path <= ?).
func (p *Params) LTE(path string, v any) *Condition { return p.leaf(path, OpLTE, v) }

// Between returns the condition (path BETWEEN ? AND ?). It appends min
// then max.
func (p *Params) Between(path string, min, max any) *Condition {
	return p.leaf(path, OpBetween, min, max)
}

// In returns the condition (path IN (?, ...)) with one placeholder per value.
func (p *Params) In(path string, vs ...any) *Condition { return p.leaf(path, OpIn, vs...) }

// NotIn returns the condition (path NOT IN (?, ...)).
func (p *Params) NotIn(path string, vs ...any) *Condition { return p.leaf(path, OpNotIn, vs...) }

// Like returns the condition (path LIKE ?) with the value decorated by mode.
func (p *Params) Like(path, v string, mode MatchMode) *Condition {
	return p.leaf(path, OpLike, mode.Pattern(v))
}

// NotLike returns the condition (path NOT LIKE ?).
func (p *Params) NotLike(path, v string, mode MatchMode) *Condition {
	return p.leaf(path, OpNotLike, mode.Pattern(v))
}

// IsNull returns the condition (path IS NULL). It binds no parameter.
func (p *Params) IsNull(path string) *Condition { return p.leaf(path, OpIsNull) }

// NotNull returns the condition (path IS NOT NULL).
func (p *Params) NotNull(path string) *Condition { return p.leaf(path, OpNotNull) }

// Condition is an immutable filter expression: a leaf over one property
// path, or an AND/OR compound. Leaves capture their values when they are
// created; compounds only concatenate text.
type Condition struct {
	op       Op
	path     string
	args     []any
	pos      int
	children []*Condition
}

// And returns the conjunction of the conditions. Nil conditions are
// skipped and a single condition is returned as is.
func And(cs ...*Condition) *Condition { return compound(OpAnd, cs) }

// Or returns the disjunction of the conditions.
func Or(cs ...*Condition) *Condition { return compound(OpOr, cs) }

func compound(op Op, cs []*Condition) *Condition {
	children := make([]*Condition, 0, len(cs))
	for _, c := range cs {
		if c != nil {
			children = append(children, c)
		}
	}
	switch len(children) {
	case 0:
		return nil
	case 1:
		return children[0]
	}
	return &Condition{op: op, children: children}
}

// Op returns the operator of the condition.
func (c *Condition) Op() Op { return c.op }

// Path returns the property path of a leaf, or the empty string.
func (c *Condition) Path() string { return c.path }

// Position returns the 1-based position of the first parameter of a leaf
// in the sequence that created it, or 0 for compounds.
func (c *Condition) Position() int { return c.pos }

// Children returns the operands of a compound.
func (c *Condition) Children() []*Condition { return c.children }

// Leaf reports whether c is a leaf.
func (c *Condition) Leaf() bool { return c.op != OpAnd && c.op != OpOr }

// Args returns the values bound by the condition, in the order their
// placeholders appear in its text.
func (c *Condition) Args() []any {
	if c.Leaf() {
		return append([]any(nil), c.args...)
	}
	var args []any
	for _, child := range c.children {
		args = append(args, child.Args()...)
	}
	return args
}

// Paths returns the property paths referenced by the condition, in text
// order.
func (c *Condition) Paths() []string {
	if c.Leaf() {
		return []string{c.path}
	}
	var paths []string
	for _, child := range c.children {
		paths = append(paths, child.Paths()...)
	}
	return paths
}

// Err reports leaves that cannot be rendered, such as an IN with no values.
func (c *Condition) Err() error {
	if !c.Leaf() {
		for _, child := range c.children {
			if err := child.Err(); err != nil {
				return err
			}
		}
		return nil
	}
	if c.path == "" {
		return fmt.Errorf("sql: %s condition without property path", c.op)
	}
	if (c.op == OpIn || c.op == OpNotIn) && len(c.args) == 0 {
		return fmt.Errorf("sql: %s %s needs at least one value", c.path, c.op)
	}
	return nil
}

// String returns the condition text with property paths written as
// ${alias.field} placeholders.
func (c *Condition) String() string {
	var b strings.Builder
	c.write(&b)
	return b.String()
}

func (c *Condition) write(b *strings.Builder) {
	if !c.Leaf() {
		b.WriteByte('(')
		for i, child := range c.children {
			if i > 0 {
				b.WriteString(" " + string(c.op) + " ")
			}
			child.write(b)
		}
		b.WriteByte(')')
		return
	}
	b.WriteByte('(')
	b.WriteString(Path(c.path))
	b.WriteString(" " + string(c.op))
	switch c.op {
	case OpIsNull, OpNotNull:
	case OpBetween:
		b.WriteString(" ? AND ?")
	case OpIn, OpNotIn:
		b.WriteString(" (")
		b.WriteString(strings.TrimSuffix(strings.Repeat("?, ", len(c.args)), ", "))
		b.WriteByte(')')
	default:
		b.WriteString(" ?")
	}
	b.WriteByte(')')
}
