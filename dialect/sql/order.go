package sql

import (
	"fmt"
	"strings"
)

// Direction is an ORDER BY direction.
type Direction int

// Directions.
const (
	Asc Direction = iota
	Desc
)

// String returns ASC or DESC.
func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// ParseDirection parses asc or desc, case-insensitively. The empty string
// is Asc.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ASC":
		return Asc, nil
	case "DESC":
		return Desc, nil
	}
	return Asc, fmt.Errorf("sql: unknown order direction %q", s)
}

// OrderTerm orders by the column at a property path.
type OrderTerm struct {
	Path      string
	Direction Direction
}

// String returns the term with its path placeholder.
func (o OrderTerm) String() string {
	return Path(o.Path) + " " + o.Direction.String()
}
