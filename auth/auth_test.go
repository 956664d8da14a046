package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestNoAuth(t *testing.T) {
	identity, err := NoAuth().Authenticate(context.Background(), "")
	if err != nil {
		t.Errorf("NoAuth should never return error, got: %v", err)
	}
	if identity != "anonymous" {
		t.Errorf("Expected identity 'anonymous', got '%s'", identity)
	}
}

func TestBearerAuth(t *testing.T) {
	auth := BearerAuth(func(token string) (string, error) {
		if token == "valid-token" {
			return "user123", nil
		}
		return "", errors.New("invalid token")
	})

	identity, err := auth.Authenticate(context.Background(), "valid-token")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if identity != "user123" {
		t.Errorf("Expected identity 'user123', got '%s'", identity)
	}
	if _, err := auth.Authenticate(context.Background(), "bogus"); err == nil {
		t.Error("Expected error for invalid token")
	}
}

func TestStaticTokens(t *testing.T) {
	st := NewStaticTokens(
		Grant{Token: "t-ann", Identity: "ann"},
		Grant{Token: "t-bob", Identity: "bob", Datasets: []string{"pets"}},
		Grant{Token: "", Identity: "nobody"},
	)

	tests := []struct {
		token    string
		identity string
		ok       bool
	}{
		{"t-ann", "ann", true},
		{"t-bob", "bob", true},
		{"", "", false},
		{"t-an", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			identity, err := st.Authenticate(context.Background(), tt.token)
			if (err == nil) != tt.ok {
				t.Fatalf("Authenticate(%q) error = %v", tt.token, err)
			}
			if identity != tt.identity {
				t.Errorf("expected identity %q, got %q", tt.identity, identity)
			}
		})
	}

	annCtx := WithIdentity(context.Background(), "ann")
	bobCtx := WithIdentity(context.Background(), "bob")
	if err := st.AuthorizeDataset(annCtx, "orders"); err != nil {
		t.Errorf("ann should see every dataset, got %v", err)
	}
	if err := st.AuthorizeDataset(bobCtx, "pets"); err != nil {
		t.Errorf("bob should see pets, got %v", err)
	}
	if err := st.AuthorizeDataset(bobCtx, "orders"); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if err := st.AuthorizeDataset(context.Background(), "pets"); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden without identity, got %v", err)
	}
}

func TestStaticTokensConcurrency(t *testing.T) {
	var grants []Grant
	for i := range 20 {
		grants = append(grants, Grant{Token: fmt.Sprintf("token-%d", i), Identity: fmt.Sprintf("user-%d", i)})
	}
	st := NewStaticTokens(grants...)

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := range 100 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := n % 20
			identity, err := st.Authenticate(context.Background(), fmt.Sprintf("token-%d", id))
			if err != nil {
				errs <- err
				return
			}
			if want := fmt.Sprintf("user-%d", id); identity != want {
				errs <- fmt.Errorf("expected %s, got %s", want, identity)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestTokenFromAuthorizationHeader(t *testing.T) {
	tests := []struct {
		header string
		token  string
		err    error
	}{
		{"Bearer abc", "abc", nil},
		{"Bearer   abc  ", "abc", nil},
		{"Basic abc", "", ErrInvalidAuthHeader},
		{"Bearer ", "", ErrTokenIsEmpty},
		{"", "", ErrInvalidAuthHeader},
	}
	for _, tt := range tests {
		token, err := TokenFromAuthorizationHeader(tt.header)
		if !errors.Is(err, tt.err) || token != tt.token {
			t.Errorf("TokenFromAuthorizationHeader(%q) = %q, %v", tt.header, token, err)
		}
	}
}

func TestExtractToken(t *testing.T) {
	token, err := ExtractToken(context.Background())
	if err != nil || token != "" {
		t.Errorf("expected no token without metadata, got %q, %v", token, err)
	}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(HeaderAuthorization, "Bearer secret"))
	if token, err = ExtractToken(ctx); err != nil || token != "secret" {
		t.Errorf("expected secret, got %q, %v", token, err)
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs(HeaderAuthorization, "Token secret"))
	if _, err = ExtractToken(ctx); status.Code(err) != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated, got %v", err)
	}
}

func TestValidateToken(t *testing.T) {
	st := NewStaticTokens(Grant{Token: "good", Identity: "ann"})

	ctx, err := ValidateToken(context.Background(), "good", st)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if got := IdentityFromContext(ctx); got != "ann" {
		t.Errorf("expected identity ann, got %q", got)
	}

	for _, token := range []string{"", "bad"} {
		if _, err := ValidateToken(context.Background(), token, st); status.Code(err) != codes.Unauthenticated {
			t.Errorf("token %q: expected Unauthenticated, got %v", token, err)
		}
	}
}

func TestAuthorizeDataset(t *testing.T) {
	st := NewStaticTokens(Grant{Token: "t", Identity: "bob", Datasets: []string{"pets"}})
	ctx := WithIdentity(context.Background(), "bob")

	if err := AuthorizeDataset(ctx, st, "pets"); err != nil {
		t.Errorf("expected access, got %v", err)
	}
	if err := AuthorizeDataset(ctx, st, "orders"); status.Code(err) != codes.PermissionDenied {
		t.Errorf("expected PermissionDenied, got %v", err)
	}
	// Authenticators without dataset rules allow everything.
	if err := AuthorizeDataset(ctx, NoAuth(), "orders"); err != nil {
		t.Errorf("expected access, got %v", err)
	}
}

func TestUnaryServerInterceptor(t *testing.T) {
	st := NewStaticTokens(Grant{Token: "good", Identity: "ann"})
	handler := func(ctx context.Context, req any) (any, error) {
		return IdentityFromContext(ctx), nil
	}

	tests := []struct {
		name     string
		auth     Authenticator
		header   string
		identity string
		code     codes.Code
	}{
		{"no authenticator", nil, "", "", codes.OK},
		{"valid", st, "Bearer good", "ann", codes.OK},
		{"invalid", st, "Bearer bad", "", codes.Unauthenticated},
		{"missing", st, "", "", codes.Unauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.header != "" {
				ctx = metadata.NewIncomingContext(ctx, metadata.Pairs(HeaderAuthorization, tt.header))
			}
			resp, err := UnaryServerInterceptor(tt.auth)(ctx, nil, &grpc.UnaryServerInfo{}, handler)
			if status.Code(err) != tt.code {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
			if err == nil && resp != tt.identity {
				t.Errorf("expected identity %q, got %v", tt.identity, resp)
			}
		})
	}
}

type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeStream) Context() context.Context { return f.ctx }

func TestStreamServerInterceptor(t *testing.T) {
	st := NewStaticTokens(Grant{Token: "good", Identity: "ann"})
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(HeaderAuthorization, "Bearer good"))

	var identity string
	handler := func(srv any, ss grpc.ServerStream) error {
		identity = IdentityFromContext(ss.Context())
		return nil
	}
	if err := StreamServerInterceptor(st)(nil, &fakeStream{ctx: ctx}, &grpc.StreamServerInfo{}, handler); err != nil {
		t.Fatalf("interceptor failed: %v", err)
	}
	if identity != "ann" {
		t.Errorf("expected identity ann, got %q", identity)
	}

	err := StreamServerInterceptor(st)(nil, &fakeStream{ctx: context.Background()}, &grpc.StreamServerInfo{}, handler)
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated, got %v", err)
	}
}

func TestServerOptions(t *testing.T) {
	if opts := ServerOptions(nil); opts != nil {
		t.Errorf("expected no options, got %d", len(opts))
	}
	if opts := ServerOptions(NoAuth()); len(opts) != 2 {
		t.Errorf("expected 2 options, got %d", len(opts))
	}
}
