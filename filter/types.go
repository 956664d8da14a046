package filter

import (
	"fmt"
	"strings"
)

// Mode is the combination mode used to merge sibling predicates.
type Mode int

const (
	// ModeAll joins siblings with logical AND.
	ModeAll Mode = iota
	// ModeSome joins siblings with logical OR.
	ModeSome
	// ModeUndefined keeps the expression built so far and drops the new
	// operand. Only the first non-empty sibling survives.
	ModeUndefined
)

var modeNames = [...]string{"All", "Some", "Undefined"}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown filter mode %q", s)
}

// Direction is the sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	switch d {
	case Ascending:
		return "Ascending"
	case Descending:
		return "Descending"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection parses a direction name case-insensitively.
// The short forms "asc" and "desc" are accepted.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ascending", "asc":
		return Ascending, nil
	case "descending", "desc":
		return Descending, nil
	}
	return 0, fmt.Errorf("unknown sort direction %q", s)
}

// Sort selects the ordering of an extracted page.
type Sort struct {
	// Field is matched against the record schema case-insensitively.
	Field     string
	Direction Direction
}

// Group is an ordered collection of variants combined with Mode.
type Group struct {
	Filters []Variant
	Mode    Mode
}

// Query is the top-level filter request.
//
// Groups are each combined internally with their own Mode, then the group
// predicates are combined with each other using Query.Mode. Skip and Take
// of zero mean "no skip" and "no limit".
type Query struct {
	Groups []Group
	Sort   Sort
	Skip   int
	Take   int
	Mode   Mode
}
