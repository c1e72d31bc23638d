// Package policy implements the composable boolean algebra that gates
// protected operations: leaf checks combined with All/Any (concurrent),
// AllOrdered/AnyOrdered (sequential, short-circuiting) and Negate.
package policy

import "context"

// Policy is a single asynchronous authorization check. Implementations
// read request state (the resolved auth context, request parameters)
// from ctx and must not retain it. The error return is reserved for
// infrastructure failures (store unavailable, broken configuration);
// an authorization verdict, including denial, is always a Result.
type Policy interface {
	RunCheck(ctx context.Context) (Result, error)
}

// Func adapts a plain function to the Policy interface.
type Func func(ctx context.Context) (Result, error)

// RunCheck implements Policy.
func (f Func) RunCheck(ctx context.Context) (Result, error) {
	return f(ctx)
}

// Identity always passes. It is what an optional check resolves to when
// its target policy is not registered.
var Identity Policy = Func(func(context.Context) (Result, error) {
	return Pass(), nil
})
