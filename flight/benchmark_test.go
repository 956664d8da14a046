package flight

import (
	"fmt"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/hugr-lab/queryfilter/schema"
)

// BenchmarkBuildRecord benchmarks converting records to an Arrow batch.
func BenchmarkBuildRecord(b *testing.B) {
	for _, rows := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprintf("rows_%d", rows), func(b *testing.B) {
			sch := schema.MustOf[pet]()
			as, err := ArrowSchema(sch)
			if err != nil {
				b.Fatalf("ArrowSchema failed: %v", err)
			}

			born := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
			data := make([]pet, rows)
			for i := range data {
				data[i] = pet{
					ID:   int64(i),
					Name: "pet_" + string(rune('a'+(i%26))),
					Legs: i % 8,
					Born: born.Add(time.Duration(i) * time.Hour),
					Tag:  uuid.New(),
					Home: orb.Point{float64(i), float64(-i)},
				}
			}
			allocator := memory.DefaultAllocator

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				rec, err := buildRecord(allocator, sch, as, data)
				if err != nil {
					b.Fatalf("buildRecord failed: %v", err)
				}
				rec.Release()
			}

			b.StopTimer()
			b.ReportMetric(float64(rows), "rows/record")
		})
	}
}
