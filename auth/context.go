package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// HeaderAuthorization is the gRPC metadata key carrying the bearer token.
const HeaderAuthorization = "authorization"

// contextKey is a private type for context keys to avoid collisions.
type contextKey int

const (
	identityKey contextKey = iota
)

// WithIdentity returns a new context with the given user identity.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext retrieves the authenticated user identity from context.
// Returns empty string if no identity is set (unauthenticated request).
func IdentityFromContext(ctx context.Context) string {
	identity, ok := ctx.Value(identityKey).(string)
	if !ok {
		return ""
	}
	return identity
}

const bearerPrefix = "Bearer "

// TokenFromAuthorizationHeader extracts the token from a "Bearer <token>" value.
func TokenFromAuthorizationHeader(authHeader string) (string, error) {
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthHeader
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
	if token == "" {
		return "", ErrTokenIsEmpty
	}
	return token, nil
}

// ExtractToken extracts the bearer token from incoming gRPC metadata.
// A missing header yields an empty token and no error.
func ExtractToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}
	headers := md.Get(HeaderAuthorization)
	if len(headers) == 0 {
		return "", nil
	}
	token, err := TokenFromAuthorizationHeader(headers[0])
	if err != nil {
		return "", status.Error(codes.Unauthenticated, err.Error())
	}
	return token, nil
}

// ValidateToken validates a bearer token using the provided Authenticator.
// Returns context with identity set, or error with appropriate gRPC status code.
func ValidateToken(ctx context.Context, token string, authenticator Authenticator) (context.Context, error) {
	if token == "" {
		return ctx, status.Error(codes.Unauthenticated, "missing bearer token")
	}

	identity, err := authenticator.Authenticate(ctx, token)
	if err != nil {
		return ctx, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
	}
	return WithIdentity(ctx, identity), nil
}

// AuthorizeDataset consults authenticator when it implements
// DatasetAuthorizer. Denials carry the PermissionDenied status.
func AuthorizeDataset(ctx context.Context, authenticator Authenticator, dataset string) error {
	az, ok := authenticator.(DatasetAuthorizer)
	if !ok {
		return nil
	}
	if err := az.AuthorizeDataset(ctx, dataset); err != nil {
		return status.Errorf(codes.PermissionDenied, "dataset %q: %v", dataset, err)
	}
	return nil
}
