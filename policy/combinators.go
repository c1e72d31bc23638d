package policy

import (
	"context"
	"sync"
)

type allPolicy struct {
	children []Policy
}

// All passes when every child passes. Children are evaluated
// concurrently; once all have resolved, the result of the first failing
// child in declaration order is returned, regardless of completion
// order. Cancellation of the parent does not stop children that have
// already started.
func All(children ...Policy) Policy {
	return &allPolicy{children: children}
}

func (p *allPolicy) RunCheck(ctx context.Context) (Result, error) {
	results, errs := runConcurrent(ctx, p.children)
	for i := range p.children {
		if errs[i] != nil {
			return Failed(), errs[i]
		}
		if !results[i].Passed() {
			return results[i], nil
		}
	}
	return Pass(), nil
}

type allOrderedPolicy struct {
	children []Policy
}

// AllOrdered passes when every child passes, evaluating strictly in
// sequence and short-circuiting on the first non-pass. Children after a
// failing one are never invoked, which matters when checks have side
// effects or escalating cost.
func AllOrdered(children ...Policy) Policy {
	return &allOrderedPolicy{children: children}
}

func (p *allOrderedPolicy) RunCheck(ctx context.Context) (Result, error) {
	for _, child := range p.children {
		result, err := child.RunCheck(ctx)
		if err != nil {
			return Failed(), err
		}
		if !result.Passed() {
			return result, nil
		}
	}
	return Pass(), nil
}

type anyPolicy struct {
	children []Policy
}

// Any passes when at least one child passes. Children are evaluated
// concurrently and the results reduced; when none passes, the first
// failing child's result in declaration order is returned.
func Any(children ...Policy) Policy {
	return &anyPolicy{children: children}
}

func (p *anyPolicy) RunCheck(ctx context.Context) (Result, error) {
	if len(p.children) == 0 {
		return Pass(), nil
	}
	results, errs := runConcurrent(ctx, p.children)
	for i := range p.children {
		if errs[i] == nil && results[i].Passed() {
			return Pass(), nil
		}
	}
	for i := range p.children {
		if errs[i] != nil {
			return Failed(), errs[i]
		}
	}
	return results[0], nil
}

type anyOrderedPolicy struct {
	children []Policy
}

// AnyOrdered passes when at least one child passes, evaluating strictly
// in sequence and short-circuiting on the first pass.
func AnyOrdered(children ...Policy) Policy {
	return &anyOrderedPolicy{children: children}
}

func (p *anyOrderedPolicy) RunCheck(ctx context.Context) (Result, error) {
	if len(p.children) == 0 {
		return Pass(), nil
	}
	var first Result
	for i, child := range p.children {
		result, err := child.RunCheck(ctx)
		if err != nil {
			return Failed(), err
		}
		if result.Passed() {
			return Pass(), nil
		}
		if i == 0 {
			first = result
		}
	}
	return first, nil
}

type negatePolicy struct {
	child Policy
}

// Negate inverts a boolean result: a passing child fails, a plainly
// failing child passes. A structured failure is not invertible; it
// negates to a pass, not to a new structured failure. The resulting
// plain fail never carries a diagnostic of its own since the child's
// "failure" here is its success.
func Negate(child Policy) Policy {
	return &negatePolicy{child: child}
}

func (p *negatePolicy) RunCheck(ctx context.Context) (Result, error) {
	result, err := p.child.RunCheck(ctx)
	if err != nil {
		return Failed(), err
	}
	if result.Passed() {
		return Failed(), nil
	}
	return Pass(), nil
}

// runConcurrent dispatches every child on its own goroutine and joins.
// Result and error slices are indexed by declaration order so callers
// can report deterministically.
func runConcurrent(ctx context.Context, children []Policy) ([]Result, []error) {
	results := make([]Result, len(children))
	errs := make([]error, len(children))

	var wg sync.WaitGroup
	for i, child := range children {
		wg.Add(1)
		go func(i int, child Policy) {
			defer wg.Done()
			results[i], errs[i] = child.RunCheck(ctx)
		}(i, child)
	}
	wg.Wait()

	return results, errs
}
