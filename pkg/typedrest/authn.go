package typedrest

import (
	"context"
	"errors"
	"net/http"
)

type contextKey string

// PrincipalContextKey carries the authenticated principal in the request
// context once any declared authenticator succeeds.
const PrincipalContextKey contextKey = "typedrest.principal"

// Authenticator is a per-request auth hook. Return values:
//
//   - (principal, nil): authenticated, remaining candidates are skipped;
//   - (nil, nil): this hook does not apply, try the next candidate;
//   - (nil, err): fail the request immediately, bypassing the remaining
//     candidates in the chain.
type Authenticator interface {
	Authenticate(r *http.Request) (interface{}, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(r *http.Request) (interface{}, error)

func (f AuthenticatorFunc) Authenticate(r *http.Request) (interface{}, error) {
	return f(r)
}

// SecuritySchemeProvider is implemented by authenticators that describe
// themselves for OpenAPI generation.
type SecuritySchemeProvider interface {
	SecurityScheme() SecurityScheme
}

// SecurityScheme is the declaration-time description of one auth mechanism.
type SecurityScheme struct {
	Name         string
	Type         string
	Scheme       string
	BearerFormat string
	In           string
	ParamName    string
}

// authenticate runs the declared auth chain. One of the hooks must succeed
// before the handler runs; the chain fails closed.
func authenticate(r *http.Request, chain []Authenticator) (context.Context, error) {
	ctx := r.Context()
	if len(chain) == 0 {
		return ctx, nil
	}

	for _, auth := range chain {
		principal, err := auth.Authenticate(r)
		if err != nil {
			var authErr *NotAuthenticatedError
			if errors.As(err, &authErr) {
				return ctx, err
			}
			return ctx, &NotAuthenticatedError{Detail: err.Error()}
		}
		if principal != nil {
			return context.WithValue(ctx, PrincipalContextKey, principal), nil
		}
	}

	return ctx, &NotAuthenticatedError{}
}

// PrincipalFrom extracts the authenticated principal from a request
// context, if any authenticator stored one.
func PrincipalFrom(ctx context.Context) (interface{}, bool) {
	p := ctx.Value(PrincipalContextKey)
	return p, p != nil
}
