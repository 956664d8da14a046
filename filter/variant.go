package filter

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"

	"github.com/hugr-lab/queryfilter/comparer"
	"github.com/hugr-lab/queryfilter/predicate"
	"github.com/hugr-lab/queryfilter/schema"
)

// Kind names. These are the filterType discriminator values on the wire,
// matched case-insensitively.
const (
	KindStringContains = "StringContains"
	KindEquals         = "Equals"
	KindNotEquals      = "NotEquals"
	KindRange          = "Range"
	KindWithinBounds   = "WithinBounds"
)

// Variant is a single filter condition of one concrete kind.
//
// The set of kinds is closed: every implementation lives in this package and
// is registered in the kinds table. Use a type switch to inspect the payload.
type Variant interface {
	// Kind returns the concrete kind name.
	Kind() string

	// Field returns the requested field name, as sent by the caller.
	Field() string

	// Comparer returns the chosen comparer.
	Comparer() comparer.Comparer

	// AllowsComparer reports whether the kind accepts c.
	AllowsComparer(c comparer.Comparer) bool

	// AllowsFieldType reports whether the kind applies to fields of type t.
	AllowsFieldType(t schema.FieldType) bool

	// Build returns the predicate fragment for the resolved field.
	// A nil fragment with a nil error means the payload is empty and the
	// variant must be omitted, not treated as "match nothing".
	Build(field string, t schema.FieldType) (predicate.Expression, error)

	// payload returns the kind-specific wire fields.
	payload() map[string]any
}

// Base holds the fields shared by every kind.
type Base struct {
	Property string
	Cmp      comparer.Comparer
}

// Field returns the requested field name.
func (b Base) Field() string { return b.Property }

// Comparer returns the chosen comparer.
func (b Base) Comparer() comparer.Comparer { return b.Cmp }

// typeSet and comparerSet describe what a kind accepts.
type typeSet map[schema.FieldType]struct{}

func types(ts ...schema.FieldType) typeSet {
	s := make(typeSet, len(ts))
	for _, t := range ts {
		s[t] = struct{}{}
	}
	return s
}

func (s typeSet) has(t schema.FieldType) bool {
	_, ok := s[t]
	return ok
}

func allows(c comparer.Comparer, allowed ...comparer.Comparer) bool {
	for _, a := range allowed {
		if a.Equal(c) {
			return true
		}
	}
	return false
}

var (
	// Approved for substring search: strings plus types with a stable
	// text rendering.
	containsTypes = types(schema.TypeString, schema.TypeInt, schema.TypeFloat, schema.TypeTime)
	equalityTypes = types(schema.TypeString, schema.TypeInt, schema.TypeFloat, schema.TypeBool, schema.TypeTime, schema.TypeUUID)
	rangeTypes    = types(schema.TypeInt, schema.TypeFloat, schema.TypeTime)
	boundsTypes   = types(schema.TypePoint)
)

// textCondition builds a condition over the field's text rendering.
// Blank payloads produce no fragment.
func textCondition(field string, t schema.FieldType, op predicate.Op, value string) predicate.Expression {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &predicate.Condition{Field: field, Type: t, Op: op, Value: value, Text: true}
}

// StringContains matches records whose field rendering contains Value.
// String fields are searched as-is; other fields are rendered first.
type StringContains struct {
	Base
	Value string
}

// NewStringContains returns a StringContains variant using the Contains comparer.
func NewStringContains(field, value string) *StringContains {
	return &StringContains{Base: Base{Property: field, Cmp: comparer.Contains}, Value: value}
}

func (*StringContains) Kind() string { return KindStringContains }

func (*StringContains) AllowsComparer(c comparer.Comparer) bool {
	return allows(c, comparer.Contains)
}

func (*StringContains) AllowsFieldType(t schema.FieldType) bool { return containsTypes.has(t) }

func (v *StringContains) Build(field string, t schema.FieldType) (predicate.Expression, error) {
	return textCondition(field, t, predicate.OpContains, v.Value), nil
}

func (v *StringContains) payload() map[string]any { return map[string]any{"value": v.Value} }

// Equals matches records whose field rendering equals Value.
type Equals struct {
	Base
	Value string
}

// NewEquals returns an Equals variant using the Equal comparer.
func NewEquals(field, value string) *Equals {
	return &Equals{Base: Base{Property: field, Cmp: comparer.Equal}, Value: value}
}

func (*Equals) Kind() string { return KindEquals }

func (*Equals) AllowsComparer(c comparer.Comparer) bool {
	return allows(c, comparer.Equal)
}

func (*Equals) AllowsFieldType(t schema.FieldType) bool { return equalityTypes.has(t) }

func (v *Equals) Build(field string, t schema.FieldType) (predicate.Expression, error) {
	return textCondition(field, t, predicate.OpEqual, v.Value), nil
}

func (v *Equals) payload() map[string]any { return map[string]any{"value": v.Value} }

// NotEquals matches records whose field rendering differs from Value.
type NotEquals struct {
	Base
	Value string
}

// NewNotEquals returns a NotEquals variant using the NotEqual comparer.
func NewNotEquals(field, value string) *NotEquals {
	return &NotEquals{Base: Base{Property: field, Cmp: comparer.NotEqual}, Value: value}
}

func (*NotEquals) Kind() string { return KindNotEquals }

func (*NotEquals) AllowsComparer(c comparer.Comparer) bool {
	return allows(c, comparer.NotEqual)
}

func (*NotEquals) AllowsFieldType(t schema.FieldType) bool { return equalityTypes.has(t) }

func (v *NotEquals) Build(field string, t schema.FieldType) (predicate.Expression, error) {
	return textCondition(field, t, predicate.OpNotEqual, v.Value), nil
}

func (v *NotEquals) payload() map[string]any { return map[string]any{"value": v.Value} }

// Range compares the typed field value against Value, which is parsed to
// the field's type when the query is compiled.
type Range struct {
	Base
	Value string
}

// NewRange returns a Range variant with the given ordering comparer.
func NewRange(field string, c comparer.Comparer, value string) *Range {
	return &Range{Base: Base{Property: field, Cmp: c}, Value: value}
}

var rangeOps = map[int]predicate.Op{
	comparer.GreaterThan.ID:        predicate.OpGreaterThan,
	comparer.GreaterThanOrEqual.ID: predicate.OpGreaterThanOrEqual,
	comparer.LessThan.ID:           predicate.OpLessThan,
	comparer.LessThanOrEqual.ID:    predicate.OpLessThanOrEqual,
}

func (*Range) Kind() string { return KindRange }

func (*Range) AllowsComparer(c comparer.Comparer) bool {
	_, ok := rangeOps[c.ID]
	return ok
}

func (*Range) AllowsFieldType(t schema.FieldType) bool { return rangeTypes.has(t) }

func (v *Range) Build(field string, t schema.FieldType) (predicate.Expression, error) {
	if strings.TrimSpace(v.Value) == "" {
		return nil, nil
	}
	value, err := schema.Parse(t, v.Value)
	if err != nil {
		return nil, err
	}
	op, ok := rangeOps[v.Cmp.ID]
	if !ok {
		return nil, fmt.Errorf("comparer %s is not an ordering comparer", v.Cmp)
	}
	return &predicate.Condition{Field: field, Type: t, Op: op, Value: value}, nil
}

func (v *Range) payload() map[string]any { return map[string]any{"value": v.Value} }

// WithinBounds matches point fields inside an axis-aligned bounding box.
type WithinBounds struct {
	Base
	Bounds orb.Bound
}

// NewWithinBounds returns a WithinBounds variant using the Within comparer.
func NewWithinBounds(field string, bounds orb.Bound) *WithinBounds {
	return &WithinBounds{Base: Base{Property: field, Cmp: comparer.Within}, Bounds: bounds}
}

func (*WithinBounds) Kind() string { return KindWithinBounds }

func (*WithinBounds) AllowsComparer(c comparer.Comparer) bool {
	return allows(c, comparer.Within)
}

func (*WithinBounds) AllowsFieldType(t schema.FieldType) bool { return boundsTypes.has(t) }

func (v *WithinBounds) Build(field string, t schema.FieldType) (predicate.Expression, error) {
	// The zero bound is what an absent payload decodes to.
	if v.Bounds == (orb.Bound{}) {
		return nil, nil
	}
	return &predicate.Condition{Field: field, Type: t, Op: predicate.OpWithin, Value: v.Bounds}, nil
}

func (v *WithinBounds) payload() map[string]any {
	return map[string]any{"bounds": []float64{v.Bounds.Min[0], v.Bounds.Min[1], v.Bounds.Max[0], v.Bounds.Max[1]}}
}
