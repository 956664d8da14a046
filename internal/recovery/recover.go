// Package recovery converts panics in dataset code into errors so a faulty
// source cannot take the server down.
package recovery

import (
	"log/slog"
	"runtime/debug"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Value runs fn and returns its results. A panic is logged with its stack
// and reported as an Internal status error naming operation.
//
//	rec, total, err := recovery.Value2(logger, "Fetch", func() (arrow.RecordBatch, int, error) {
//	    return ds.Fetch(ctx, mem, q)
//	})
func Value[T any](logger *slog.Logger, operation string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			logPanic(logger, operation, r)
			var zero T
			result, err = zero, status.Errorf(codes.Internal, "%s panicked: %v", operation, r)
		}
	}()
	return fn()
}

// Value2 is Value for functions returning two results and an error.
func Value2[A, B any](logger *slog.Logger, operation string, fn func() (A, B, error)) (a A, b B, err error) {
	defer func() {
		if r := recover(); r != nil {
			logPanic(logger, operation, r)
			var (
				za A
				zb B
			)
			a, b, err = za, zb, status.Errorf(codes.Internal, "%s panicked: %v", operation, r)
		}
	}()
	return fn()
}

func logPanic(logger *slog.Logger, operation string, r any) {
	logger.Error("Panic recovered",
		"operation", operation,
		"panic", r,
		"stack", string(debug.Stack()),
	)
}
