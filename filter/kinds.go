package filter

import (
	"sort"
	"strings"

	"github.com/paulmach/orb"
)

// kindDecoder builds a concrete variant from its shared fields and the
// kind-specific wire object.
type kindDecoder func(base Base, obj object) (Variant, error)

type kindEntry struct {
	name   string
	decode kindDecoder
}

// kinds maps the lower-cased discriminator to its decoder. It is populated
// once at package initialization and never mutated, so concurrent reads
// need no locking. A new kind is added by implementing Variant and adding
// one entry here.
var kinds = map[string]kindEntry{
	strings.ToLower(KindStringContains): {KindStringContains, func(b Base, o object) (Variant, error) {
		v, err := o.text("value")
		return &StringContains{Base: b, Value: v}, err
	}},
	strings.ToLower(KindEquals): {KindEquals, func(b Base, o object) (Variant, error) {
		v, err := o.text("value")
		return &Equals{Base: b, Value: v}, err
	}},
	strings.ToLower(KindNotEquals): {KindNotEquals, func(b Base, o object) (Variant, error) {
		v, err := o.text("value")
		return &NotEquals{Base: b, Value: v}, err
	}},
	strings.ToLower(KindRange): {KindRange, func(b Base, o object) (Variant, error) {
		v, err := o.text("value")
		return &Range{Base: b, Value: v}, err
	}},
	strings.ToLower(KindWithinBounds): {KindWithinBounds, decodeWithinBounds},
}

func decodeWithinBounds(b Base, o object) (Variant, error) {
	raw, ok := o.get("bounds")
	if !ok || raw == nil {
		return &WithinBounds{Base: b}, nil
	}
	items, ok := raw.([]any)
	if !ok || len(items) != 4 {
		return nil, decodeErrorf(o.path+".bounds", nil, "expected [minX, minY, maxX, maxY]")
	}
	var nums [4]float64
	for i, item := range items {
		f, err := toFloat(item)
		if err != nil {
			return nil, decodeErrorf(o.path+".bounds", err, "element %d is not a number", i)
		}
		nums[i] = f
	}
	bound := orb.Bound{Min: orb.Point{nums[0], nums[1]}, Max: orb.Point{nums[2], nums[3]}}
	return &WithinBounds{Base: b, Bounds: bound}, nil
}

// lookupKind resolves a discriminator case-insensitively.
func lookupKind(name string) (kindEntry, bool) {
	k, ok := kinds[strings.ToLower(strings.TrimSpace(name))]
	return k, ok
}

// Kinds returns the registered kind names in sorted order.
func Kinds() []string {
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, k.name)
	}
	sort.Strings(out)
	return out
}
