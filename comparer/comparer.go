// Package comparer defines the comparison operators that filter kinds accept.
//
// A Comparer is a small value identified by a stable numeric id. Comparers are
// collected into a sealed Registry at startup; the registry is read-only after
// construction and safe for concurrent use.
package comparer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownComparer is returned when an id is not registered.
var ErrUnknownComparer = errors.New("unknown comparer")

// Comparer identifies a comparison operator.
// Two comparers are the same operator when their IDs match.
type Comparer struct {
	ID   int
	Name string
}

// Equal reports whether c and other denote the same operator.
func (c Comparer) Equal(other Comparer) bool { return c.ID == other.ID }

// IsZero reports whether c is the zero value (no comparer chosen).
func (c Comparer) IsZero() bool { return c.ID == 0 }

func (c Comparer) String() string {
	if c.Name == "" {
		return fmt.Sprintf("comparer(%d)", c.ID)
	}
	return c.Name
}

// Built-in comparers. IDs are part of the wire format and must not change.
var (
	Equal              = Comparer{ID: 1, Name: "Equal"}
	NotEqual           = Comparer{ID: 2, Name: "NotEqual"}
	Contains           = Comparer{ID: 3, Name: "Contains"}
	GreaterThan        = Comparer{ID: 4, Name: "GreaterThan"}
	GreaterThanOrEqual = Comparer{ID: 5, Name: "GreaterThanOrEqual"}
	LessThan           = Comparer{ID: 6, Name: "LessThan"}
	LessThanOrEqual    = Comparer{ID: 7, Name: "LessThanOrEqual"}
	Within             = Comparer{ID: 8, Name: "Within"}
)

// Builtins returns the built-in comparers ordered by id.
func Builtins() []Comparer {
	return []Comparer{
		Equal, NotEqual, Contains,
		GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual,
		Within,
	}
}

// Default is the process-wide registry holding the built-in comparers.
var Default = MustRegistry(Builtins()...)

// Registry is a sealed set of comparers keyed by id.
type Registry struct {
	byID map[int]Comparer
	all  []Comparer
}

// NewRegistry builds a sealed registry from cs.
// Ids must be positive and unique, names must not be blank.
func NewRegistry(cs ...Comparer) (*Registry, error) {
	r := &Registry{
		byID: make(map[int]Comparer, len(cs)),
		all:  make([]Comparer, 0, len(cs)),
	}
	for _, c := range cs {
		if c.ID <= 0 {
			return nil, fmt.Errorf("comparer %q: id must be positive, got %d", c.Name, c.ID)
		}
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("comparer %d: name is required", c.ID)
		}
		if prev, ok := r.byID[c.ID]; ok {
			return nil, fmt.Errorf("comparer %q: id %d already used by %q", c.Name, c.ID, prev.Name)
		}
		r.byID[c.ID] = c
		r.all = append(r.all, c)
	}
	sort.Slice(r.all, func(i, j int) bool { return r.all[i].ID < r.all[j].ID })
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error.
// Intended for package-level initialization.
func MustRegistry(cs ...Comparer) *Registry {
	r, err := NewRegistry(cs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the comparer registered under id.
func (r *Registry) Resolve(id int) (Comparer, error) {
	c, ok := r.byID[id]
	if !ok {
		return Comparer{}, fmt.Errorf("%w: identifier %d", ErrUnknownComparer, id)
	}
	return c, nil
}

// All returns every registered comparer ordered by id.
// The returned slice is a copy.
func (r *Registry) All() []Comparer {
	out := make([]Comparer, len(r.all))
	copy(out, r.all)
	return out
}
