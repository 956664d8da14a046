package auth

import (
	"context"

	"google.golang.org/grpc"
)

// authenticate resolves the identity of an incoming call. A nil
// authenticator lets every call through unchanged.
func authenticate(ctx context.Context, authenticator Authenticator) (context.Context, error) {
	if authenticator == nil {
		return ctx, nil
	}
	token, err := ExtractToken(ctx)
	if err != nil {
		return ctx, err
	}
	return ValidateToken(ctx, token, authenticator)
}

// UnaryServerInterceptor creates a gRPC unary interceptor for authentication.
// Validates bearer tokens and propagates identity via context.
func UnaryServerInterceptor(authenticator Authenticator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := authenticate(ctx, authenticator)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor creates a gRPC stream interceptor for authentication.
// Validates bearer tokens and propagates identity via the stream context.
func StreamServerInterceptor(authenticator Authenticator) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if authenticator == nil {
			return handler(srv, ss)
		}
		ctx, err := authenticate(ss.Context(), authenticator)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
	}
}

// wrappedServerStream wraps grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

// ServerOptions returns the interceptor options enabling authentication.
// It returns nil for a nil authenticator.
func ServerOptions(authenticator Authenticator) []grpc.ServerOption {
	if authenticator == nil {
		return nil
	}
	return []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(authenticator)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor(authenticator)),
	}
}
