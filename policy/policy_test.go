package policy

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/gatekeeper/domain"
	gkerrors "go.pilab.hu/gatekeeper/errors"
)

func pass() Policy {
	return Func(func(context.Context) (Result, error) { return Pass(), nil })
}

func plainFail() Policy {
	return Func(func(context.Context) (Result, error) { return Failed(), nil })
}

func structuredFail(code, msg string) Policy {
	return Func(func(context.Context) (Result, error) { return Fail(code, msg), nil })
}

// counting wraps a policy and records whether it ran.
func counting(p Policy, calls *atomic.Int32) Policy {
	return Func(func(ctx context.Context) (Result, error) {
		calls.Add(1)
		return p.RunCheck(ctx)
	})
}

func TestAll_FirstFailingChildInDeclarationOrder(t *testing.T) {
	// B resolves instantly, A fails after a delay. The reported failure
	// must still be A's, by declaration order, not completion order.
	slowA := Func(func(context.Context) (Result, error) {
		time.Sleep(20 * time.Millisecond)
		return Fail("a_failed", "a denied"), nil
	})
	fastB := structuredFail("b_failed", "b denied")

	result, err := All(slowA, fastB).RunCheck(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Passed())
	require.NotNil(t, result.Failure())
	assert.Equal(t, "a_failed", result.Failure().Code)
}

func TestAll_AllChildrenRunEvenWhenOneFails(t *testing.T) {
	var aCalls, bCalls atomic.Int32

	result, err := All(
		counting(structuredFail("a_failed", "a denied"), &aCalls),
		counting(pass(), &bCalls),
	).RunCheck(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Passed())
	assert.Equal(t, int32(1), aCalls.Load())
	assert.Equal(t, int32(1), bCalls.Load())
}

func TestAll_Pass(t *testing.T) {
	result, err := All(pass(), pass(), pass()).RunCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Passed())

	// An empty All is vacuously true.
	result, err = All().RunCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Passed())
}

func TestAllOrdered_ShortCircuit(t *testing.T) {
	var bCalls atomic.Int32

	result, err := AllOrdered(
		structuredFail("a_failed", "a denied"),
		counting(pass(), &bCalls),
	).RunCheck(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Passed())
	require.NotNil(t, result.Failure())
	assert.Equal(t, "a_failed", result.Failure().Code)
	assert.Equal(t, int32(0), bCalls.Load(), "B must never be invoked after A fails")
}

func TestAllOrdered_RunsInSequence(t *testing.T) {
	result, err := AllOrdered(pass(), pass()).RunCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Passed())
}

func TestAny_PassesOnAnyChild(t *testing.T) {
	result, err := Any(plainFail(), pass()).RunCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Passed())
}

func TestAny_FailsWithFirstChildResult(t *testing.T) {
	result, err := Any(
		structuredFail("a_failed", "a denied"),
		structuredFail("b_failed", "b denied"),
	).RunCheck(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Passed())
	require.NotNil(t, result.Failure())
	assert.Equal(t, "a_failed", result.Failure().Code)
}

func TestAnyOrdered_ShortCircuitsOnFirstPass(t *testing.T) {
	var bCalls atomic.Int32

	result, err := AnyOrdered(
		pass(),
		counting(pass(), &bCalls),
	).RunCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Passed())
	assert.Equal(t, int32(0), bCalls.Load())
}

func TestAnyOrdered_FailsWithFirstChildResult(t *testing.T) {
	result, err := AnyOrdered(
		structuredFail("a_failed", "a denied"),
		plainFail(),
	).RunCheck(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Passed())
	require.NotNil(t, result.Failure())
	assert.Equal(t, "a_failed", result.Failure().Code)
}

func TestNegate(t *testing.T) {
	// Plain false negates to pass.
	result, err := Negate(plainFail()).RunCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Passed())

	// Pass negates to a plain fail with no diagnostic; the caller
	// supplies the failure code and message.
	result, err = Negate(pass()).RunCheck(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Passed())
	assert.Nil(t, result.Failure())

	// A structured failure is not invertible: it negates to a pass,
	// not to a new structured failure.
	result, err = Negate(structuredFail("a_failed", "a denied")).RunCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Passed())
	assert.Nil(t, result.Failure())
}

func TestCombinators_PropagateErrors(t *testing.T) {
	boom := errors.New("store unavailable")
	failing := Func(func(context.Context) (Result, error) { return Failed(), boom })

	for name, p := range map[string]Policy{
		"All":        All(pass(), failing),
		"AllOrdered": AllOrdered(pass(), failing),
		"Any":        Any(plainFail(), failing),
		"AnyOrdered": AnyOrdered(plainFail(), failing),
		"Negate":     Negate(failing),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := p.RunCheck(context.Background())
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestRegistry_Check(t *testing.T) {
	r := NewRegistry()
	r.Register("always.deny", func(params ...any) (Policy, error) {
		return structuredFail("denied", "computer says no"), nil
	})

	p, err := r.Check("always.deny")
	require.NoError(t, err)
	result, err := p.RunCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "denied", result.Failure().Code)

	_, err = r.Check("no.such.policy")
	assert.Error(t, err)
}

func TestRegistry_OptionalCheck(t *testing.T) {
	r := NewRegistry()

	// An optional check whose target is absent is the identity pass.
	p := r.OptionalCheck("no.such.policy")
	result, err := p.RunCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Passed())
}

func TestRequireScope(t *testing.T) {
	authed := func(granted ...string) context.Context {
		return domain.WithAuthContext(context.Background(), &domain.AuthContext{
			Token: &domain.Token{ID: "tok-1"},
			Scope: granted,
		})
	}

	result, err := RequireScope("a.read").RunCheck(authed("a.read"))
	require.NoError(t, err)
	assert.True(t, result.Passed())

	result, err = RequireScope("a.write").RunCheck(authed("a.read"))
	require.NoError(t, err)
	assert.False(t, result.Passed())
	assert.Equal(t, gkerrors.CodeInvalidScope, result.Failure().Code)

	result, err = RequireScope("a.write").RunCheck(authed())
	require.NoError(t, err)
	assert.Equal(t, gkerrors.CodeMissingScope, result.Failure().Code)

	result, err = RequireScope("a.write").RunCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gkerrors.CodeMissingToken, result.Failure().Code)
}

func TestRegisterBuiltins(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)

	p, err := r.Check(CheckScope, "a.read")
	require.NoError(t, err)
	ctx := domain.WithAuthContext(context.Background(), &domain.AuthContext{Scope: []string{"a.*"}})
	result, err := p.RunCheck(ctx)
	require.NoError(t, err)
	assert.True(t, result.Passed())

	_, err = r.Check(CheckScope, 42)
	assert.Error(t, err, "non-string scope parameter is a configuration error")

	p, err = r.Check(CheckAuthenticated)
	require.NoError(t, err)
	result, err = p.RunCheck(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Passed())
}
