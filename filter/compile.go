package filter

import (
	"context"
	"fmt"

	"github.com/hugr-lab/queryfilter/predicate"
	"github.com/hugr-lab/queryfilter/schema"
)

// Compile turns the groups of q into a single predicate over records of sch.
//
// Each group folds its variants left to right using the group mode, then the
// group predicates fold using q.Mode. Variants naming unknown fields and
// variants with empty payloads contribute nothing. A nil expression with a
// nil error means the query does not restrict records.
//
// Validation continues past the first failure so that every issue is
// reported in a single *Error.
func Compile[T any](ctx context.Context, sch *schema.Schema[T], q *Query) (predicate.Expression, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	if q == nil || sch == nil {
		return nil, nil
	}

	var (
		issues []Issue
		body   predicate.Expression
	)
	for gi, g := range q.Groups {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
		}

		var groupBody predicate.Expression
		for vi, v := range g.Filters {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
			}
			if v == nil {
				continue
			}
			frag, found := compileVariant(sch, v, gi, vi, &issues)
			if !found || frag == nil {
				continue
			}
			groupBody = combine(g.Mode, groupBody, frag)
		}

		if groupBody != nil {
			body = combine(q.Mode, body, groupBody)
		}
	}

	if len(issues) > 0 {
		return nil, &Error{Issues: issues}
	}
	return body, nil
}

// compileVariant validates v against its resolved field and builds its
// fragment. The second result is false when the field is unknown.
func compileVariant[T any](sch *schema.Schema[T], v Variant, group, index int, issues *[]Issue) (predicate.Expression, bool) {
	f, ok := sch.Lookup(v.Field())
	if !ok {
		return nil, false
	}

	report := func(code IssueCode, msg string) {
		*issues = append(*issues, Issue{
			Code:    code,
			Kind:    v.Kind(),
			Field:   f.Name,
			Group:   group,
			Index:   index,
			Message: fmt.Sprintf("(%s) %s", v.Kind(), msg),
		})
	}

	// One issue per variant: the type check wins over the comparer check.
	if !v.AllowsFieldType(f.Type) {
		report(IssueInvalidFieldType,
			fmt.Sprintf("filter does not allow usage on field %q of type %s", f.Name, f.Type))
		return nil, true
	}
	if !v.AllowsComparer(v.Comparer()) {
		report(IssueInvalidComparer,
			fmt.Sprintf("filter does not allow usage of the %s comparer on field %q", comparerName(v), f.Name))
		return nil, true
	}

	frag, err := v.Build(f.Name, f.Type)
	if err != nil {
		report(IssueInvalidValue,
			fmt.Sprintf("filter value is not valid for field %q of type %s: %v", f.Name, f.Type, err))
		return nil, true
	}
	return frag, true
}

func comparerName(v Variant) string {
	c := v.Comparer()
	if c.IsZero() {
		return "missing"
	}
	return c.Name
}

// combine folds next into acc. The first operand always seeds the
// accumulator; after that Undefined keeps acc unchanged.
func combine(mode Mode, acc, next predicate.Expression) predicate.Expression {
	if acc == nil {
		return next
	}
	switch mode {
	case ModeAll:
		return predicate.And(acc, next)
	case ModeSome:
		return predicate.Or(acc, next)
	default:
		return acc
	}
}
