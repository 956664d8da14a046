package flight

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"

	"github.com/hugr-lab/queryfilter/schema"
)

// geometryExtension is the Arrow extension name DuckDB and GeoArrow readers
// recognise for WKB encoded geometry columns.
const geometryExtension = "geoarrow.wkb"

// ArrowType maps a schema field type to the Arrow type used on the wire.
// UUIDs travel as canonical strings, points as WKB.
func ArrowType(t schema.FieldType) (arrow.DataType, error) {
	switch t {
	case schema.TypeString, schema.TypeUUID:
		return arrow.BinaryTypes.String, nil
	case schema.TypeInt:
		return arrow.PrimitiveTypes.Int64, nil
	case schema.TypeFloat:
		return arrow.PrimitiveTypes.Float64, nil
	case schema.TypeBool:
		return arrow.FixedWidthTypes.Boolean, nil
	case schema.TypeTime:
		return arrow.FixedWidthTypes.Timestamp_us, nil
	case schema.TypePoint:
		return arrow.BinaryTypes.Binary, nil
	default:
		return nil, fmt.Errorf("no arrow type for field type %s", t)
	}
}

// ArrowSchema builds the Arrow schema for records of sch. Every column is
// nullable since field accessors may report no value.
func ArrowSchema[T any](sch *schema.Schema[T]) (*arrow.Schema, error) {
	fields := sch.Fields()
	out := make([]arrow.Field, 0, len(fields))
	for _, f := range fields {
		dt, err := ArrowType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		af := arrow.Field{Name: f.Name, Type: dt, Nullable: true}
		if f.Type == schema.TypePoint {
			af.Metadata = arrow.NewMetadata(
				[]string{"ARROW:extension:name", "ARROW:extension:metadata"},
				[]string{geometryExtension, "{}"},
			)
		}
		out = append(out, af)
	}
	return arrow.NewSchema(out, nil), nil
}

// buildRecord converts rows into a single record batch.
// The caller owns the returned batch and must release it.
func buildRecord[T any](mem memory.Allocator, sch *schema.Schema[T], as *arrow.Schema, rows []T) (arrow.RecordBatch, error) {
	builder := array.NewRecordBuilder(mem, as)
	defer builder.Release()

	fields := sch.Fields()
	for i, f := range fields {
		fb := builder.Field(i)
		fb.Reserve(len(rows))
		for _, row := range rows {
			if err := appendValue(fb, f.Type, f.Get(row)); err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
		}
	}
	return builder.NewRecordBatch(), nil
}

func appendValue(b array.Builder, t schema.FieldType, raw any) error {
	v := schema.Normalize(raw)
	if v == nil {
		b.AppendNull()
		return nil
	}

	switch t {
	case schema.TypeString:
		b.(*array.StringBuilder).Append(schema.Render(v))
	case schema.TypeUUID:
		switch x := v.(type) {
		case uuid.UUID:
			b.(*array.StringBuilder).Append(x.String())
		case string:
			id, err := uuid.Parse(x)
			if err != nil {
				return err
			}
			b.(*array.StringBuilder).Append(id.String())
		default:
			return fmt.Errorf("unsupported uuid value %T", raw)
		}
	case schema.TypeInt:
		switch x := v.(type) {
		case int64:
			b.(*array.Int64Builder).Append(x)
		case uint64:
			return fmt.Errorf("value %d overflows int64", x)
		default:
			return fmt.Errorf("unsupported int value %T", raw)
		}
	case schema.TypeFloat:
		switch x := v.(type) {
		case float64:
			b.(*array.Float64Builder).Append(x)
		case int64:
			b.(*array.Float64Builder).Append(float64(x))
		default:
			return fmt.Errorf("unsupported float value %T", raw)
		}
	case schema.TypeBool:
		x, ok := v.(bool)
		if !ok {
			return fmt.Errorf("unsupported bool value %T", raw)
		}
		b.(*array.BooleanBuilder).Append(x)
	case schema.TypeTime:
		x, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("unsupported time value %T", raw)
		}
		ts, err := arrow.TimestampFromTime(x, arrow.Microsecond)
		if err != nil {
			return fmt.Errorf("failed to convert time: %w", err)
		}
		b.(*array.TimestampBuilder).Append(ts)
	case schema.TypePoint:
		x, ok := v.(orb.Point)
		if !ok {
			return fmt.Errorf("unsupported point value %T", raw)
		}
		data, err := wkb.Marshal(x)
		if err != nil {
			return fmt.Errorf("failed to encode point as WKB: %w", err)
		}
		b.(*array.BinaryBuilder).Append(data)
	default:
		return fmt.Errorf("unsupported field type %s", t)
	}
	return nil
}
