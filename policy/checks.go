package policy

import (
	"context"
	"fmt"

	"go.pilab.hu/gatekeeper/domain"
	"go.pilab.hu/gatekeeper/errors"
	"go.pilab.hu/gatekeeper/scope"
)

// Built-in policy names.
const (
	CheckAuthenticated = "gatekeeper.authenticated"
	CheckScope         = "gatekeeper.scope"
)

// RegisterBuiltins registers the checks every deployment gets.
func RegisterBuiltins(r *Registry) {
	r.Register(CheckAuthenticated, func(...any) (Policy, error) {
		return Authenticated(), nil
	})
	r.Register(CheckScope, func(params ...any) (Policy, error) {
		required, err := stringParams(params)
		if err != nil {
			return nil, err
		}
		return RequireScope(required...), nil
	})
}

// Authenticated passes when the request carries a resolved auth
// context, i.e. the bearer authenticator ran and succeeded.
func Authenticated() Policy {
	return Func(func(ctx context.Context) (Result, error) {
		if _, ok := domain.AuthContextFrom(ctx); !ok {
			return Fail(errors.CodeMissingToken, "request is not authenticated"), nil
		}
		return Pass(), nil
	})
}

// RequireScope passes when the resolved token's granted scope satisfies
// every required scope.
func RequireScope(required ...string) Policy {
	return Func(func(ctx context.Context) (Result, error) {
		ac, ok := domain.AuthContextFrom(ctx)
		if !ok {
			return Fail(errors.CodeMissingToken, "request is not authenticated"), nil
		}
		if len(ac.Scope) == 0 && len(required) > 0 {
			return Fail(errors.CodeMissingScope, "token has no granted scope"), nil
		}
		if !scope.MatchesAll(required, ac.Scope) {
			return Fail(errors.CodeInvalidScope, "token scope does not cover the required scope"), nil
		}
		return Pass(), nil
	})
}

func stringParams(params []any) ([]string, error) {
	out := make([]string, 0, len(params))
	for _, p := range params {
		s, ok := p.(string)
		if !ok {
			return nil, fmt.Errorf("expected string parameter, got %T", p)
		}
		out = append(out, s)
	}
	return out, nil
}
