package flight

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/queryfilter"
	"github.com/hugr-lab/queryfilter/filter"
)

// Dataset is a named, queryable collection served over Flight.
// Implementations must be safe for concurrent use.
type Dataset interface {
	// Name is the dataset identifier used in tickets and descriptors.
	Name() string

	// ArrowSchema describes the record batches produced by Fetch.
	ArrowSchema() *arrow.Schema

	// Count returns the number of records matching q, ignoring paging.
	Count(ctx context.Context, q *filter.Query) (int, error)

	// Fetch runs q and returns the page as one record batch together with
	// the filtered total. The caller releases the batch.
	Fetch(ctx context.Context, mem memory.Allocator, q *filter.Query) (arrow.RecordBatch, int, error)
}

type queryableDataset[T any] struct {
	name   string
	src    queryfilter.Queryable[T]
	schema *arrow.Schema
}

// NewDataset exposes src under name. The Arrow schema is derived from the
// source's record schema once. Requests without a sort field are ordered by
// the first schema field.
func NewDataset[T any](name string, src queryfilter.Queryable[T]) (Dataset, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: dataset name is required", ErrInvalidConfig)
	}
	if src == nil || src.Schema() == nil {
		return nil, fmt.Errorf("%w: dataset %q has no source", ErrInvalidConfig, name)
	}
	as, err := ArrowSchema(src.Schema())
	if err != nil {
		return nil, fmt.Errorf("dataset %q: %w", name, err)
	}
	return &queryableDataset[T]{name: name, src: src, schema: as}, nil
}

func (d *queryableDataset[T]) Name() string { return d.name }

func (d *queryableDataset[T]) ArrowSchema() *arrow.Schema { return d.schema }

func (d *queryableDataset[T]) Count(ctx context.Context, q *filter.Query) (int, error) {
	q = d.withDefaultSort(q)
	if _, ok := d.src.Schema().Lookup(q.Sort.Field); !ok {
		return 0, fmt.Errorf("%w: %q", queryfilter.ErrUnknownSortField, q.Sort.Field)
	}
	filtered, err := queryfilter.Filter(ctx, d.src, q)
	if err != nil {
		return 0, err
	}
	return filtered.Count(ctx)
}

func (d *queryableDataset[T]) Fetch(ctx context.Context, mem memory.Allocator, q *filter.Query) (arrow.RecordBatch, int, error) {
	page, err := queryfilter.Query(ctx, d.src, d.withDefaultSort(q))
	if err != nil {
		return nil, 0, err
	}
	rec, err := buildRecord(mem, d.src.Schema(), d.schema, page.Data)
	if err != nil {
		return nil, 0, err
	}
	return rec, page.TotalCount, nil
}

// withDefaultSort orders requests without a sort field by the first field
// of the record schema, ascending.
func (d *queryableDataset[T]) withDefaultSort(q *filter.Query) *filter.Query {
	if q != nil && q.Sort.Field != "" {
		return q
	}
	out := &filter.Query{}
	if q != nil {
		*out = *q
	}
	if fields := d.src.Schema().Fields(); len(fields) > 0 {
		out.Sort = filter.Sort{Field: fields[0].Name, Direction: filter.Ascending}
	}
	return out
}
