package queryfilter

import (
	"context"
	"fmt"

	"github.com/hugr-lab/queryfilter/filter"
)

// Filter compiles the filter groups of q against the schema of src and
// applies the resulting predicate. When q places no restriction, src is
// returned unchanged.
//
// Invalid filters fail with a *filter.Error listing every issue.
func Filter[T any](ctx context.Context, src Queryable[T], q *filter.Query) (Queryable[T], error) {
	expr, err := filter.Compile(ctx, src.Schema(), q)
	if err != nil {
		return nil, err
	}
	if expr == nil {
		return src, nil
	}
	return src.Where(expr), nil
}

// Extract orders src by the sort field of q and returns the page selected
// by its skip and take. The total count is taken before paging.
//
// A nil q is treated as an empty query, which has no sort field and fails
// with ErrUnknownSortField.
func Extract[T any](ctx context.Context, src Queryable[T], q *filter.Query) (*Page[T], error) {
	if q == nil {
		q = &filter.Query{}
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}

	field, ok := src.Schema().Lookup(q.Sort.Field)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSortField, q.Sort.Field)
	}

	total, err := src.Count(ctx)
	if err != nil {
		return nil, wrapSourceErr(ctx, "count", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}

	page := src.OrderBy(field.Name, q.Sort.Direction)
	if q.Skip > 0 {
		page = page.Skip(q.Skip)
	}
	if q.Take > 0 {
		page = page.Take(q.Take)
	}

	data, err := page.List(ctx)
	if err != nil {
		return nil, wrapSourceErr(ctx, "list", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	if data == nil {
		data = []T{}
	}
	return &Page[T]{Data: data, TotalCount: total}, nil
}

// Query filters src and extracts the requested page in one call.
func Query[T any](ctx context.Context, src Queryable[T], q *filter.Query) (*Page[T], error) {
	filtered, err := Filter(ctx, src, q)
	if err != nil {
		return nil, err
	}
	return Extract(ctx, filtered, q)
}

func cancelled(err error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}

// wrapSourceErr reports source failures caused by a done context as
// cancellation.
func wrapSourceErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return cancelled(ctxErr)
	}
	return fmt.Errorf("queryfilter: %s: %w", op, err)
}
