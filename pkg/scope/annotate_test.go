package scope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akhildatla/loft/internal/testutil"
	"github.com/akhildatla/loft/pkg/core"
	"github.com/akhildatla/loft/pkg/scope"
)

func TestForAssignsScopeAndBinding(t *testing.T) {
	x := testutil.V("x")
	f := testutil.ForIn(x, testutil.Ints(1, 2), testutil.Ref(x))

	an, err := scope.Annotate(f)
	require.NoError(t, err)

	assert.Equal(t, 1, an.FID(f), "first for gets fid 1")

	info, ok := an.Var(x)
	require.True(t, ok)
	assert.Equal(t, 0, info.VID)
	assert.Equal(t, 1, info.Base, "item variable is based in its own scope")
	assert.True(t, info.Used)
}

func TestUnusedVariableStaysDead(t *testing.T) {
	x := testutil.V("x")
	f := testutil.ForIn(x, testutil.Ints(1, 2), testutil.Int(9))

	an, err := scope.Annotate(f)
	require.NoError(t, err)

	info, ok := an.Var(x)
	require.True(t, ok)
	assert.False(t, info.Used)
}

func TestLetDoesNotOpenScope(t *testing.T) {
	x := testutil.V("x")
	v := testutil.V("v")
	f := testutil.ForIn(x, testutil.Ints(1, 2),
		testutil.LetIn(v, testutil.Ref(x), testutil.Ref(v)))

	an, err := scope.Annotate(f)
	require.NoError(t, err)

	xi, _ := an.Var(x)
	vi, _ := an.Var(v)
	assert.Equal(t, xi.Base, vi.Base, "let binds in the enclosing iteration scope")
	assert.Equal(t, 0, xi.VID)
	assert.Equal(t, 1, vi.VID)
}

func TestPositionalVariableBinding(t *testing.T) {
	x := testutil.V("x")
	p := testutil.V("p")
	f := testutil.ForAt(x, p, testutil.Ints(1, 2), testutil.Ref(p))

	an, err := scope.Annotate(f)
	require.NoError(t, err)

	pi, ok := an.Var(p)
	require.True(t, ok)
	assert.Equal(t, an.FID(f), pi.Base)
	assert.True(t, pi.Used)

	xi, _ := an.Var(x)
	assert.Less(t, xi.VID, pi.VID, "item variable is numbered before the positional")
}

// An outer variable used inside a nested for must be expanded into every
// scope between its base and the use site.
func TestUsageIndexNestedScopes(t *testing.T) {
	a := testutil.V("a")
	b := testutil.V("b")
	c := testutil.V("c")
	tree := testutil.ForIn(a, testutil.Ints(1, 2),
		testutil.ForIn(b, testutil.Ints(3, 4),
			testutil.ForIn(c, testutil.Ints(5, 6),
				testutil.SeqOf(testutil.Ref(a), testutil.Ref(b)))))

	an, err := scope.Annotate(tree)
	require.NoError(t, err)

	// $a (vid 0) crosses fids 2 and 3; $b (vid 1) crosses fid 3 only.
	assert.Equal(t, []int{2, 3, 3}, an.Usage.FIDs)
	assert.Equal(t, []int{0, 0, 1}, an.Usage.VIDs)

	assert.Equal(t, []int{0, 1}, an.Usage.Expanded(3))
	assert.Equal(t, []int{0}, an.Usage.Expanded(2))
	assert.Empty(t, an.Usage.Expanded(1))
}

// Repeated uses of the same variable in the same scope collapse to one
// usage record.
func TestUsageIndexDeduplicates(t *testing.T) {
	a := testutil.V("a")
	b := testutil.V("b")
	tree := testutil.ForIn(a, testutil.Ints(1, 2),
		testutil.ForIn(b, testutil.Ints(3, 4),
			testutil.SeqOf(testutil.Ref(a), testutil.Ref(a), testutil.Ref(a))))

	an, err := scope.Annotate(tree)
	require.NoError(t, err)

	assert.Equal(t, 1, an.Usage.Len())
	assert.Equal(t, []int{0}, an.Usage.Expanded(2))
}

// A for's source belongs to the enclosing scope: using the outer variable
// there does not force an expansion into the inner scope.
func TestSourceEvaluatesInEnclosingScope(t *testing.T) {
	x := testutil.V("x")
	y := testutil.V("y")
	inner := testutil.ForIn(y, testutil.Ref(x), testutil.Ref(y))
	tree := testutil.ForIn(x, testutil.Ints(1, 2), inner)

	an, err := scope.Annotate(tree)
	require.NoError(t, err)

	assert.Zero(t, an.Usage.Len(), "no binding crosses a scope boundary")
	assert.Empty(t, an.Usage.Expanded(an.FID(inner)))
}

func TestUnboundVariable(t *testing.T) {
	_, err := scope.Annotate(testutil.Ref(testutil.V("ghost")))
	require.ErrorIs(t, err, scope.ErrUnboundVariable)
	assert.Contains(t, err.Error(), "ghost")
}

func TestAnnotateIsDeterministic(t *testing.T) {
	build := func() core.Node {
		a := testutil.V("a")
		b := testutil.V("b")
		return testutil.ForIn(a, testutil.Ints(1, 2),
			testutil.ForIn(b, testutil.Ints(3, 4),
				testutil.SeqOf(testutil.Ref(a), testutil.Ref(b))))
	}

	an1, err := scope.Annotate(build())
	require.NoError(t, err)
	an2, err := scope.Annotate(build())
	require.NoError(t, err)

	assert.Equal(t, an1.Usage, an2.Usage)
	assert.Len(t, an1.Vars, len(an2.Vars))
	assert.Len(t, an1.ForIDs, len(an2.ForIDs))
}

// Annotating the same tree object twice yields the same annotation.
func TestAnnotateIsIdempotent(t *testing.T) {
	a := testutil.V("a")
	b := testutil.V("b")
	tree := testutil.ForIn(a, testutil.Ints(1, 2),
		testutil.ForIn(b, testutil.Ints(3, 4), testutil.Ref(a)))

	an1, err := scope.Annotate(tree)
	require.NoError(t, err)
	an2, err := scope.Annotate(tree)
	require.NoError(t, err)

	assert.Equal(t, an1, an2)
}
