package auth

import (
	"context"
	"crypto/subtle"
	"slices"
)

// bearerAuthenticator wraps a user-provided validation function.
type bearerAuthenticator struct {
	validateFunc func(token string) (identity string, err error)
}

// BearerAuth creates an Authenticator from a validation function.
//
// Example:
//
//	auth := BearerAuth(func(token string) (string, error) {
//	    user, err := validateWithMyBackend(token)
//	    if err != nil {
//	        return "", auth.ErrUnauthenticated
//	    }
//	    return user.ID, nil
//	})
func BearerAuth(validateFunc func(token string) (identity string, err error)) Authenticator {
	return &bearerAuthenticator{
		validateFunc: validateFunc,
	}
}

func (b *bearerAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	return b.validateFunc(token)
}

// Grant is one entry of a static token table.
type Grant struct {
	Token    string
	Identity string

	// Datasets lists the datasets the identity may query.
	// Empty means all datasets.
	Datasets []string
}

// StaticTokens is an Authenticator and DatasetAuthorizer backed by a fixed
// table of tokens, typically loaded from configuration.
type StaticTokens struct {
	grants []Grant
}

// NewStaticTokens returns a token table. Grants with an empty token are ignored.
func NewStaticTokens(grants ...Grant) *StaticTokens {
	st := &StaticTokens{}
	for _, g := range grants {
		if g.Token != "" {
			st.grants = append(st.grants, g)
		}
	}
	return st
}

func (st *StaticTokens) Authenticate(ctx context.Context, token string) (string, error) {
	if g, ok := st.lookupToken(token); ok {
		return g.Identity, nil
	}
	return "", ErrUnauthenticated
}

// AuthorizeDataset checks the dataset against the grant of the identity in ctx.
func (st *StaticTokens) AuthorizeDataset(ctx context.Context, dataset string) error {
	identity := IdentityFromContext(ctx)
	for _, g := range st.grants {
		if g.Identity != identity {
			continue
		}
		if len(g.Datasets) == 0 || slices.Contains(g.Datasets, dataset) {
			return nil
		}
	}
	return ErrForbidden
}

func (st *StaticTokens) lookupToken(token string) (Grant, bool) {
	var (
		found Grant
		ok    bool
	)
	// Compare against every entry so timing does not reveal which matched.
	for _, g := range st.grants {
		if subtle.ConstantTimeCompare([]byte(g.Token), []byte(token)) == 1 {
			found, ok = g, true
		}
	}
	return found, ok
}
