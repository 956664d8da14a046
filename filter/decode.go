package filter

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hugr-lab/queryfilter/comparer"
	"github.com/hugr-lab/queryfilter/schema"
)

// Wire field names. Matching is case-insensitive.
const (
	fieldFilterCollections = "filterCollections"
	fieldFilters           = "filters"
	fieldFilterMode        = "filterMode"
	fieldSortFilter        = "sortFilter"
	fieldPropertyName      = "propertyName"
	fieldDirection         = "direction"
	fieldSkip              = "skip"
	fieldTake              = "take"
	fieldFilterType        = "filterType"
	fieldComparer          = "comparer"
	fieldIdentifier        = "identifier"
)

// object is a decoded wire object with case-folded keys.
type object struct {
	path   string
	fields map[string]any
}

func asObject(v any, path string) (object, error) {
	obj := object{path: path}
	switch m := v.(type) {
	case map[string]any:
		obj.fields = make(map[string]any, len(m))
		for k, val := range m {
			if err := obj.set(k, val); err != nil {
				return obj, err
			}
		}
	case map[any]any:
		obj.fields = make(map[string]any, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				return obj, decodeErrorf(path, nil, "object key %v is not a string", k)
			}
			if err := obj.set(key, val); err != nil {
				return obj, err
			}
		}
	default:
		return obj, decodeErrorf(path, nil, "expected object, got %s", describe(v))
	}
	return obj, nil
}

// set stores val under the folded key. Keys differing only by case are
// rejected since the decoded map no longer carries document order.
func (o object) set(key string, val any) error {
	folded := strings.ToLower(key)
	if _, dup := o.fields[folded]; dup {
		return decodeErrorf(o.path, nil, "duplicate key %q (keys are case-insensitive)", folded)
	}
	o.fields[folded] = val
	return nil
}

func (o object) get(name string) (any, bool) {
	v, ok := o.fields[strings.ToLower(name)]
	return v, ok
}

// text reads a scalar field as text. Numbers and booleans are accepted and
// rendered; an absent or null field reads as "".
func (o object) text(name string) (string, error) {
	v, ok := o.get(name)
	if !ok || v == nil {
		return "", nil
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	}
	if _, err := toFloat(v); err == nil {
		return schema.Render(v), nil
	}
	return "", decodeErrorf(o.path+"."+name, nil, "expected scalar, got %s", describe(v))
}

// count reads a non-negative integer field; absent or null reads as 0.
func (o object) count(name string) (int, error) {
	v, ok := o.get(name)
	if !ok || v == nil {
		return 0, nil
	}
	n, err := toInt(v)
	if err != nil {
		return 0, decodeErrorf(o.path+"."+name, err, "expected integer")
	}
	if n < 0 {
		return 0, decodeErrorf(o.path+"."+name, nil, "must be >= 0, got %d", n)
	}
	if n > math.MaxInt32 {
		return 0, decodeErrorf(o.path+"."+name, nil, "value %d out of range", n)
	}
	return int(n), nil
}

func (o object) array(name string) ([]any, bool, error) {
	v, ok := o.get(name)
	if !ok || v == nil {
		return nil, false, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, false, decodeErrorf(o.path+"."+name, nil, "expected array, got %s", describe(v))
	}
	return items, true, nil
}

// mode reads a combination mode given as a name or a number.
func (o object) mode(name string, def Mode) (Mode, error) {
	v, ok := o.get(name)
	if !ok || v == nil {
		return def, nil
	}
	if s, isStr := v.(string); isStr {
		m, err := ParseMode(s)
		if err != nil {
			return 0, decodeErrorf(o.path+"."+name, err, "invalid filter mode")
		}
		return m, nil
	}
	n, err := toInt(v)
	if err != nil || n < 0 || n >= int64(len(modeNames)) {
		return 0, decodeErrorf(o.path+"."+name, err, "invalid filter mode %v", v)
	}
	return Mode(n), nil
}

func (o object) direction(name string) (Direction, error) {
	v, ok := o.get(name)
	if !ok || v == nil {
		return Ascending, nil
	}
	if s, isStr := v.(string); isStr {
		d, err := ParseDirection(s)
		if err != nil {
			return 0, decodeErrorf(o.path+"."+name, err, "invalid sort direction")
		}
		return d, nil
	}
	n, err := toInt(v)
	if err != nil || (n != int64(Ascending) && n != int64(Descending)) {
		return 0, decodeErrorf(o.path+"."+name, err, "invalid sort direction %v", v)
	}
	return Direction(n), nil
}

// decodeQuery interprets a generic wire tree as a Query.
//
// Besides filterCollections, a flat top-level "filters" array is accepted;
// it becomes the first group and is combined using the query's mode.
func decodeQuery(node any) (*Query, error) {
	obj, err := asObject(node, "$")
	if err != nil {
		return nil, err
	}

	q := &Query{}
	if q.Mode, err = obj.mode(fieldFilterMode, ModeAll); err != nil {
		return nil, err
	}
	if q.Skip, err = obj.count(fieldSkip); err != nil {
		return nil, err
	}
	if q.Take, err = obj.count(fieldTake); err != nil {
		return nil, err
	}

	if sortNode, ok := obj.get(fieldSortFilter); ok && sortNode != nil {
		sortObj, err := asObject(sortNode, "$."+fieldSortFilter)
		if err != nil {
			return nil, err
		}
		if q.Sort.Field, err = sortObj.text(fieldPropertyName); err != nil {
			return nil, err
		}
		if q.Sort.Direction, err = sortObj.direction(fieldDirection); err != nil {
			return nil, err
		}
	}

	flat, ok, err := obj.array(fieldFilters)
	if err != nil {
		return nil, err
	}
	if ok {
		g := Group{Mode: q.Mode}
		for i, item := range flat {
			v, err := decodeVariant(item, fmt.Sprintf("$.%s[%d]", fieldFilters, i))
			if err != nil {
				return nil, err
			}
			g.Filters = append(g.Filters, v)
		}
		q.Groups = append(q.Groups, g)
	}

	groups, _, err := obj.array(fieldFilterCollections)
	if err != nil {
		return nil, err
	}
	for i, item := range groups {
		g, err := decodeGroup(item, fmt.Sprintf("$.%s[%d]", fieldFilterCollections, i))
		if err != nil {
			return nil, err
		}
		q.Groups = append(q.Groups, g)
	}
	return q, nil
}

// decodeGroup decodes one filter collection. A missing mode is Undefined.
func decodeGroup(node any, path string) (Group, error) {
	obj, err := asObject(node, path)
	if err != nil {
		return Group{}, err
	}
	g := Group{}
	if g.Mode, err = obj.mode(fieldFilterMode, ModeUndefined); err != nil {
		return Group{}, err
	}
	items, _, err := obj.array(fieldFilters)
	if err != nil {
		return Group{}, err
	}
	for i, item := range items {
		v, err := decodeVariant(item, fmt.Sprintf("%s.%s[%d]", path, fieldFilters, i))
		if err != nil {
			return Group{}, err
		}
		g.Filters = append(g.Filters, v)
	}
	return g, nil
}

// decodeVariant resolves the kind from the filterType discriminator, which
// may appear anywhere in the object, then lets the kind read its payload.
func decodeVariant(node any, path string) (Variant, error) {
	obj, err := asObject(node, path)
	if err != nil {
		return nil, err
	}

	raw, ok := obj.get(fieldFilterType)
	name, isStr := raw.(string)
	if !ok || !isStr || strings.TrimSpace(name) == "" {
		return nil, decodeErrorf(path, nil, "missing or empty %s", fieldFilterType)
	}
	kind, ok := lookupKind(name)
	if !ok {
		return nil, decodeErrorf(path, ErrUnknownKind, "no filter type named %q", name)
	}

	base := Base{}
	if base.Property, err = obj.text(fieldPropertyName); err != nil {
		return nil, err
	}
	if cmpNode, ok := obj.get(fieldComparer); ok && cmpNode != nil {
		if base.Cmp, err = decodeComparer(cmpNode, path+"."+fieldComparer); err != nil {
			return nil, err
		}
	}

	return kind.decode(base, obj)
}

// decodeComparer resolves a comparer object through comparer.Default using
// its identifier discriminator.
func decodeComparer(node any, path string) (comparer.Comparer, error) {
	obj, err := asObject(node, path)
	if err != nil {
		return comparer.Comparer{}, err
	}
	raw, ok := obj.get(fieldIdentifier)
	if !ok || raw == nil {
		return comparer.Comparer{}, decodeErrorf(path, nil, "missing %s", fieldIdentifier)
	}
	id, err := toInt(raw)
	if err != nil {
		return comparer.Comparer{}, decodeErrorf(path+"."+fieldIdentifier, err, "expected integer")
	}
	c, err := comparer.Default.Resolve(int(id))
	if err != nil {
		return comparer.Comparer{}, decodeErrorf(path, err, "cannot resolve comparer")
	}
	return c, nil
}

func toInt(v any) (int64, error) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		f, err := x.Float64()
		if err != nil {
			return 0, err
		}
		return floatToInt(f)
	case float64:
		return floatToInt(x)
	case float32:
		return floatToInt(float64(x))
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", x)
		}
		return int64(x), nil
	}
	if n, ok := schema.Normalize(v).(int64); ok {
		return n, nil
	}
	return 0, fmt.Errorf("not an integer: %s", describe(v))
}

func floatToInt(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	return int64(f), nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case json.Number:
		return x.Float64()
	case string, bool, nil:
		return 0, fmt.Errorf("not a number: %s", describe(v))
	}
	switch n := schema.Normalize(v).(type) {
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	}
	return 0, fmt.Errorf("not a number: %s", describe(v))
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any, map[any]any:
		return "object"
	case json.Number, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

// encodeQuery renders q as a generic wire tree. Modes and directions are
// written as numbers, comparers as {identifier, name} objects.
func encodeQuery(q *Query) map[string]any {
	groups := make([]any, 0, len(q.Groups))
	for _, g := range q.Groups {
		filters := make([]any, 0, len(g.Filters))
		for _, v := range g.Filters {
			filters = append(filters, encodeVariant(v))
		}
		groups = append(groups, map[string]any{
			fieldFilters:    filters,
			fieldFilterMode: int(g.Mode),
		})
	}
	return map[string]any{
		fieldFilterCollections: groups,
		fieldFilterMode:        int(q.Mode),
		fieldSortFilter: map[string]any{
			fieldPropertyName: q.Sort.Field,
			fieldDirection:    int(q.Sort.Direction),
		},
		fieldSkip: q.Skip,
		fieldTake: q.Take,
	}
}

func encodeVariant(v Variant) map[string]any {
	out := v.payload()
	out[fieldFilterType] = v.Kind()
	out[fieldPropertyName] = v.Field()
	if c := v.Comparer(); !c.IsZero() {
		out[fieldComparer] = map[string]any{fieldIdentifier: c.ID, "name": c.Name}
	}
	return out
}
