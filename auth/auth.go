// Package auth provides bearer token authentication for the query service.
package auth

import (
	"context"
	"errors"
)

var (
	// ErrInvalidAuthHeader is returned when the authorization header is malformed.
	ErrInvalidAuthHeader = errors.New("authorization header must use Bearer scheme")

	// ErrTokenIsEmpty is returned when the bearer token is missing or blank.
	ErrTokenIsEmpty = errors.New("authorization token is empty")

	// ErrUnauthenticated is returned when authentication fails.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned by DatasetAuthorizer implementations that
	// deny access.
	ErrForbidden = errors.New("access to dataset denied")
)

// Authenticator validates bearer tokens and returns user identity.
// Implementations MUST be goroutine-safe.
type Authenticator interface {
	// Authenticate validates a bearer token and returns user identity.
	// Context allows timeout for auth backend calls.
	Authenticate(ctx context.Context, token string) (identity string, err error)
}

// DatasetAuthorizer is an optional interface an Authenticator can implement
// to restrict which datasets an identity may query.
//
// It is consulted after Authenticate succeeded, once the dataset named by
// the request is known. A non-nil error is reported as PermissionDenied.
type DatasetAuthorizer interface {
	AuthorizeDataset(ctx context.Context, dataset string) error
}

type noAuthenticator struct{}

// NoAuth returns an Authenticator that allows all requests.
// Useful for development/testing. DO NOT use in production.
func NoAuth() Authenticator {
	return &noAuthenticator{}
}

// Authenticate always returns "anonymous" as the identity.
func (n *noAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	return "anonymous", nil
}
