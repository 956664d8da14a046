package flight

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/metadata"

	"github.com/hugr-lab/queryfilter/auth"
)

type contextKey int

const requestMetaKey contextKey = iota

// Metadata header keys for request correlation.
const (
	// HeaderTraceID is the gRPC metadata header for distributed trace identifier.
	HeaderTraceID = "queryfilter-trace-id"
	// HeaderSessionID is the gRPC metadata header for client session identifier.
	HeaderSessionID = "queryfilter-client-session-id"
)

// RequestMeta holds correlation values read from incoming gRPC metadata.
type RequestMeta struct {
	TraceID   string
	SessionID string
}

func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey, &meta)
}

// RequestMetaFromContext returns the stored metadata, or nil.
func RequestMetaFromContext(ctx context.Context) *RequestMeta {
	meta, _ := ctx.Value(requestMetaKey).(*RequestMeta)
	return meta
}

// EnrichContextMetadata copies correlation headers from the incoming gRPC
// metadata into ctx. An already enriched context is returned unchanged.
func EnrichContextMetadata(ctx context.Context) context.Context {
	if RequestMetaFromContext(ctx) != nil {
		return ctx
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}

	var meta RequestMeta
	if values := md.Get(HeaderTraceID); len(values) > 0 {
		meta.TraceID = values[0]
	}
	if values := md.Get(HeaderSessionID); len(values) > 0 {
		meta.SessionID = values[0]
	}
	return WithRequestMeta(ctx, meta)
}

// requestLogger attaches the caller identity and correlation ids to logger.
func requestLogger(ctx context.Context, logger *slog.Logger) *slog.Logger {
	var attrs []any
	if id := auth.IdentityFromContext(ctx); id != "" {
		attrs = append(attrs, "identity", id)
	}
	if meta := RequestMetaFromContext(ctx); meta != nil {
		if meta.TraceID != "" {
			attrs = append(attrs, "trace_id", meta.TraceID)
		}
		if meta.SessionID != "" {
			attrs = append(attrs, "session_id", meta.SessionID)
		}
	}
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(attrs...)
}
