package domain

import "context"

// AuthContext is what the bearer authenticator resolves and attaches to
// the request: the authoritative token record, the principal it acts
// for, and the granted scope. It is request-scoped and never shared
// between requests.
type AuthContext struct {
	Token   *Token
	Client  *Client
	Account *Account // nil for client_token
	Scope   []string
}

type authContextKey struct{}

// WithAuthContext returns a context carrying the resolved auth state.
func WithAuthContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, ac)
}

// AuthContextFrom retrieves the resolved auth state, if any.
func AuthContextFrom(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(authContextKey{}).(*AuthContext)
	return ac, ok
}
