// Package queryfilter compiles client supplied filter, sort and paging
// requests into queries over an arbitrary record type.
//
// A request is decoded by the filter package, compiled against a record
// schema into a predicate, and handed to a Queryable data source together
// with the sort and paging plan:
//
//	type Animal struct {
//	    ID   int64  `query:"id"`
//	    Name string `query:"name"`
//	}
//
//	q, err := filter.DecodeJSON(body)
//	if err != nil {
//	    return err
//	}
//	src := memory.New(schema.MustOf[Animal](), animals)
//	page, err := queryfilter.Query(ctx, src, q)
//	if err != nil {
//	    return err
//	}
//	// page.Data holds the window, page.TotalCount the filtered count.
//
// # Data sources
//
// Two Queryable implementations are provided:
//   - source/memory evaluates predicates over an in-memory slice
//   - source/sqldb renders them as parameterised SQL for SQLite or DuckDB
//
// # Errors
//
// Invalid filters fail with *filter.Error, which lists every issue found.
// Sorting on a field the schema does not declare fails with
// ErrUnknownSortField. A done context yields ErrCancelled wrapping the
// context error.
//
// # Transport
//
// The flight package serves registered datasets over Apache Arrow Flight,
// and cmd/queryfilterd runs such a server from a TOML configuration.
package queryfilter
