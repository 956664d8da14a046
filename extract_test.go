package queryfilter

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/paulmach/orb"

	"github.com/hugr-lab/queryfilter/filter"
	"github.com/hugr-lab/queryfilter/predicate"
	"github.com/hugr-lab/queryfilter/schema"
)

type item struct {
	ID   int64  `query:"id"`
	Name string `query:"name"`
}

// sliceSource records the calls Extract makes on it.
type sliceSource struct {
	sch   *schema.Schema[item]
	items []item
	where predicate.Expression
	order string
	desc  bool
	skip  int
	take  int
	calls *[]string
	err   error
}

func newSliceSource(items ...item) *sliceSource {
	return &sliceSource{sch: schema.MustOf[item](), items: items, calls: &[]string{}}
}

func (s *sliceSource) clone() *sliceSource {
	c := *s
	return &c
}

func (s *sliceSource) Schema() *schema.Schema[item] { return s.sch }

func (s *sliceSource) Where(expr predicate.Expression) Queryable[item] {
	*s.calls = append(*s.calls, "where")
	c := s.clone()
	c.where = expr
	return c
}

func (s *sliceSource) OrderBy(field string, dir filter.Direction) Queryable[item] {
	*s.calls = append(*s.calls, "order:"+field)
	c := s.clone()
	c.order, c.desc = field, dir == filter.Descending
	return c
}

func (s *sliceSource) Skip(n int) Queryable[item] {
	*s.calls = append(*s.calls, "skip")
	c := s.clone()
	c.skip = n
	return c
}

func (s *sliceSource) Take(n int) Queryable[item] {
	*s.calls = append(*s.calls, "take")
	c := s.clone()
	c.take = n
	return c
}

func (s *sliceSource) filtered() []item {
	var out []item
	for _, it := range s.items {
		if predicate.EvalRecord(s.where, s.sch, it) {
			out = append(out, it)
		}
	}
	return out
}

func (s *sliceSource) Count(ctx context.Context) (int, error) {
	*s.calls = append(*s.calls, "count")
	if s.err != nil {
		return 0, s.err
	}
	return len(s.filtered()), nil
}

func (s *sliceSource) List(ctx context.Context) ([]item, error) {
	*s.calls = append(*s.calls, "list")
	out := s.filtered()
	if s.order != "" {
		sort.SliceStable(out, func(i, j int) bool {
			a, _ := s.sch.Value(out[i], s.order)
			b, _ := s.sch.Value(out[j], s.order)
			c, _ := schema.Compare(a, b)
			if s.desc {
				return c > 0
			}
			return c < 0
		})
	}
	if s.skip > 0 {
		out = out[min(s.skip, len(out)):]
	}
	if s.take > 0 && s.take < len(out) {
		out = out[:s.take]
	}
	return out, nil
}

var fiveItems = []item{
	{5, "eel"}, {2, "bat"}, {4, "dog"}, {1, "ant"}, {3, "cat"},
}

func ids(items []item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestExtractPaging(t *testing.T) {
	tests := []struct {
		name       string
		skip, take int
		dir        filter.Direction
		want       []int64
	}{
		{"all", 0, 0, filter.Ascending, []int64{1, 2, 3, 4, 5}},
		{"window", 2, 2, filter.Ascending, []int64{3, 4}},
		{"descending", 0, 2, filter.Descending, []int64{5, 4}},
		{"skip past end", 10, 0, filter.Ascending, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newSliceSource(fiveItems...)
			q := &filter.Query{Sort: filter.Sort{Field: "ID", Direction: tt.dir}, Skip: tt.skip, Take: tt.take}
			page, err := Extract[item](context.Background(), src, q)
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			if page.TotalCount != 5 {
				t.Errorf("expected total 5, got %d", page.TotalCount)
			}
			if got := ids(page.Data); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestExtractCallOrder(t *testing.T) {
	src := newSliceSource(fiveItems...)
	if _, err := Extract[item](context.Background(), src, &filter.Query{Sort: filter.Sort{Field: "name"}}); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	want := []string{"count", "order:name", "list"}
	if !reflect.DeepEqual(*src.calls, want) {
		t.Errorf("expected calls %v, got %v", want, *src.calls)
	}
}

func TestExtractUnknownSortField(t *testing.T) {
	for _, field := range []string{"", "colour"} {
		src := newSliceSource(fiveItems...)
		_, err := Extract[item](context.Background(), src, &filter.Query{Sort: filter.Sort{Field: field}})
		if !errors.Is(err, ErrUnknownSortField) {
			t.Errorf("field %q: expected ErrUnknownSortField, got %v", field, err)
		}
		if len(*src.calls) != 0 {
			t.Errorf("field %q: expected no source calls, got %v", field, *src.calls)
		}
	}
}

func TestExtractCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Extract[item](ctx, newSliceSource(fiveItems...), &filter.Query{Sort: filter.Sort{Field: "id"}})
	if !errors.Is(err, ErrCancelled) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
}

func TestExtractSourceError(t *testing.T) {
	boom := errors.New("boom")
	src := newSliceSource(fiveItems...)
	src.err = boom
	_, err := Extract[item](context.Background(), src, &filter.Query{Sort: filter.Sort{Field: "id"}})
	if !errors.Is(err, boom) {
		t.Errorf("expected source error, got %v", err)
	}
}

func TestQuery(t *testing.T) {
	q, err := filter.DecodeJSON([]byte(`{
		"filterCollections": [
			{"filters": [
				{"filterType": "StringContains", "propertyName": "name", "comparer": {"identifier": 3}, "value": "a"},
				{"filterType": "StringContains", "propertyName": "name", "comparer": {"identifier": 3}, "value": "e"},
			], "filterMode": "Some"}
		],
		"sortFilter": {"propertyName": "name", "direction": "Descending"},
		"take": 2,
	}`))
	if err != nil {
		t.Fatalf("DecodeJSON failed: %v", err)
	}

	page, err := Query[item](context.Background(), newSliceSource(fiveItems...), q)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if page.TotalCount != 4 {
		t.Errorf("expected total 4, got %d", page.TotalCount)
	}
	if got := ids(page.Data); !reflect.DeepEqual(got, []int64{5, 3}) {
		t.Errorf("expected [5 3], got %v", got)
	}
}

func TestFilterWithoutRestriction(t *testing.T) {
	src := newSliceSource(fiveItems...)
	got, err := Filter[item](context.Background(), src, &filter.Query{})
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if got != Queryable[item](src) {
		t.Error("expected the source to be returned unchanged")
	}
}

func TestFilterInvalid(t *testing.T) {
	q := &filter.Query{Groups: []filter.Group{{Filters: []filter.Variant{
		filter.NewWithinBounds("name", orb.Bound{Max: orb.Point{1, 1}}),
	}}}}
	_, err := Filter[item](context.Background(), newSliceSource(fiveItems...), q)
	if !errors.Is(err, filter.ErrInvalidFilter) {
		t.Errorf("expected ErrInvalidFilter, got %v", err)
	}
}
