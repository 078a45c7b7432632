package edge

import (
	"fmt"
	"strings"
)

// Kind is the join kind of a relationship.
type Kind uint8

// Join kinds. Default defers to the kind declared on the relationship,
// which itself defaults to Inner.
const (
	Default Kind = iota
	Inner
	LeftOuter
	RightOuter
	Full
)

// Keyword returns the SQL keyword introducing a join of this kind.
func (k Kind) Keyword() string {
	switch k {
	case LeftOuter:
		return "LEFT OUTER JOIN"
	case RightOuter:
		return "RIGHT OUTER JOIN"
	case Full:
		return "FULL OUTER JOIN"
	default:
		return "INNER JOIN"
	}
}

// String returns the kind name as accepted by ParseKind.
func (k Kind) String() string {
	switch k {
	case Inner:
		return "inner"
	case LeftOuter:
		return "left"
	case RightOuter:
		return "right"
	case Full:
		return "full"
	default:
		return "default"
	}
}

// Or returns k, or d if k is Default.
func (k Kind) Or(d Kind) Kind {
	if k == Default {
		return d
	}
	return k
}

// ParseKind parses a join kind name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return Default, nil
	case "inner", "join":
		return Inner, nil
	case "left", "left_outer", "left outer":
		return LeftOuter, nil
	case "right", "right_outer", "right outer":
		return RightOuter, nil
	case "full", "full_outer", "full outer":
		return Full, nil
	default:
		return Default, fmt.Errorf("edge: unknown join kind %q", s)
	}
}

// JoinColumn is a foreign-key column pair: Column on the left table refers to
// References on the right table.
type JoinColumn struct {
	Column     string
	References string
}

// JoinTable describes a bridge table linking two entities. Host links the
// owning table to the bridge (Host.Column on the owner, Host.References on
// the bridge); Target links the bridge to the related table
// (Target.Column on the bridge, Target.References on the related table).
type JoinTable struct {
	Table  string
	Host   JoinColumn
	Target JoinColumn
}
