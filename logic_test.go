package gospatial_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/gospatial"
)

func TestIfEq_Compiled(t *testing.T) {
	a, b := gospatial.Sym("a"), gospatial.Sym("b")
	e, err := gospatial.IfEq(a, 0, a, b)
	require.NoError(t, err)
	f, err := gospatial.Compile(e)
	require.NoError(t, err)

	for _, tt := range []struct{ a, want float64 }{{0, 0}, {3, 5}} {
		out, err := f.Call(map[string]float64{"a": tt.a, "b": 5})
		require.NoError(t, err)
		assert.Equal(t, tt.want, out[0])
	}
}

func TestIfElse_GeometricBranches(t *testing.T) {
	c := gospatial.Sym("ic")
	p, err := gospatial.IfGreaterZero(c, gospatial.NewPoint3(1, 0, 0), gospatial.NewPoint3(0, 1, 0))
	require.NoError(t, err)
	require.Equal(t, gospatial.KindPoint3, p.Kind())
	assert.Equal(t, []float64{1, 0, 0, 1}, evaluate(t, p, map[string]float64{"ic": 1}))
	assert.Equal(t, []float64{0, 1, 0, 1}, evaluate(t, p, map[string]float64{"ic": -1}))

	_, err = gospatial.IfElse(c, gospatial.NewPoint3(1, 0, 0), gospatial.NewVector3(0, 1, 0))
	var te *gospatial.TypeError
	assert.ErrorAs(t, err, &te)

	_, err = gospatial.IfElse(gospatial.NewVector3(0, 0, 0), 1, 2)
	assert.ErrorAs(t, err, &te)
}

func TestIfElse_ConstantConditionFolds(t *testing.T) {
	x := gospatial.Sym("ifx")
	got, err := gospatial.IfElse(1, x, gospatial.Sin(x))
	require.NoError(t, err)
	assert.True(t, gospatial.Equivalent(x, got))
}

func TestIfEqZero(t *testing.T) {
	x := gospatial.Sym("iz")
	e, err := gospatial.IfEqZero(x, 10, 20)
	require.NoError(t, err)
	assert.Equal(t, 10.0, scalar(t, e, map[string]float64{"iz": 0}))
	assert.Equal(t, 20.0, scalar(t, e, map[string]float64{"iz": 2}))
}

func TestIfCases_FirstMatchWins(t *testing.T) {
	x := gospatial.Sym("cx")
	e, err := gospatial.IfEqCases(x, []gospatial.Case{
		{When: 1, Then: 10},
		{When: 2, Then: 20},
		{When: 1, Then: 30},
	}, -1)
	require.NoError(t, err)
	for in, want := range map[float64]float64{1: 10, 2: 20, 3: -1} {
		assert.Equal(t, want, scalar(t, e, map[string]float64{"cx": in}), "x=%v", in)
	}
}

func TestIfLessEqCases(t *testing.T) {
	x := gospatial.Sym("lx")
	e, err := gospatial.IfLessEqCases(x, []gospatial.Case{
		{When: 1, Then: 10},
		{When: 2, Then: 20},
	}, 30)
	require.NoError(t, err)
	for in, want := range map[float64]float64{0.5: 10, 1: 10, 1.5: 20, 2.5: 30} {
		assert.Equal(t, want, scalar(t, e, map[string]float64{"lx": in}), "x=%v", in)
	}

	_, err = gospatial.IfLessEqCases(x, []gospatial.Case{{When: 2, Then: 1}, {When: 1, Then: 2}}, 0)
	assert.ErrorIs(t, err, gospatial.ErrUnsortedCases)
}

func TestIfEqCasesGrouped(t *testing.T) {
	x := gospatial.Sym("gx")
	cases := []gospatial.Case{
		{When: 1, Then: 10},
		{When: 2, Then: 20},
		{When: 3, Then: 10},
	}
	grouped, err := gospatial.IfEqCasesGrouped(x, cases, 0)
	require.NoError(t, err)
	plain, err := gospatial.IfEqCases(x, cases, 0)
	require.NoError(t, err)
	for _, in := range []float64{0, 1, 2, 3} {
		args := map[string]float64{"gx": in}
		assert.Equal(t, scalar(t, plain, args), scalar(t, grouped, args), "x=%v", in)
	}
}

func TestIfCases_ShapeMismatch(t *testing.T) {
	_, err := gospatial.IfCases([]gospatial.Case{
		{When: gospatial.Expr([]float64{1, 0}), Then: gospatial.Expr([]float64{1, 2, 3})},
	}, 0)
	assert.ErrorIs(t, err, gospatial.ErrShape)
}

func TestLogic_TwoValuedFolding(t *testing.T) {
	x := gospatial.Sym("lgx")
	e, err := gospatial.LogicAnd(gospatial.BinaryTrue(), x)
	require.NoError(t, err)
	assert.True(t, gospatial.Equivalent(x, e))

	e, err = gospatial.LogicAnd(x, gospatial.BinaryFalse(), x)
	require.NoError(t, err)
	assert.True(t, gospatial.IsFalseSymbol(e))

	e, err = gospatial.LogicOr(x, gospatial.BinaryTrue())
	require.NoError(t, err)
	assert.True(t, gospatial.IsTrueSymbol(e))

	_, err = gospatial.LogicAnd(x)
	assert.ErrorIs(t, err, gospatial.ErrTooFewArguments)
}

func TestLogic_AnyAll(t *testing.T) {
	x := gospatial.Sym("anyx")
	v := gospatial.Expr([]any{0, x})
	anyE, err := gospatial.LogicAny(v)
	require.NoError(t, err)
	allE, err := gospatial.LogicAll(v)
	require.NoError(t, err)
	assert.Equal(t, 1.0, scalar(t, anyE, map[string]float64{"anyx": 2}))
	assert.Equal(t, 0.0, scalar(t, anyE, map[string]float64{"anyx": 0}))
	assert.Equal(t, 0.0, scalar(t, allE, map[string]float64{"anyx": 2}))
}

func TestLogic_ThreeValued(t *testing.T) {
	and, err := gospatial.LogicAnd3(gospatial.TrinaryTrue, gospatial.TrinaryUnknown)
	require.NoError(t, err)
	assert.Equal(t, gospatial.TrinaryUnknown, constant(t, and)[0])

	or, err := gospatial.LogicOr3(gospatial.TrinaryFalse, gospatial.TrinaryUnknown)
	require.NoError(t, err)
	assert.Equal(t, gospatial.TrinaryUnknown, constant(t, or)[0])

	not, err := gospatial.LogicNot3(gospatial.TrinaryUnknown)
	require.NoError(t, err)
	assert.Equal(t, gospatial.TrinaryUnknown, constant(t, not)[0])

	x := gospatial.Sym("t3x")
	and, err = gospatial.LogicAnd3(x, gospatial.TrinaryFalse)
	require.NoError(t, err)
	assert.True(t, gospatial.IsFalse3Symbol(and))

	assert.True(t, gospatial.IsUnknown3Symbol(gospatial.Const(0.5)))
	unknown, err := gospatial.IsUnknown3(x)
	require.NoError(t, err)
	assert.Equal(t, 1.0, scalar(t, unknown, map[string]float64{"t3x": 0.5}))
}

func TestReplaceWithThreeLogic(t *testing.T) {
	a, b := gospatial.Sym("ra"), gospatial.Sym("rb")
	and, err := gospatial.LogicAnd(a, b)
	require.NoError(t, err)
	notAnd, err := gospatial.LogicNot(and)
	require.NoError(t, err)

	three, err := gospatial.ReplaceWithThreeLogic(notAnd)
	require.NoError(t, err)
	args := map[string]float64{"ra": gospatial.TrinaryTrue, "rb": gospatial.TrinaryUnknown}
	assert.Equal(t, gospatial.TrinaryUnknown, scalar(t, three, args))

	args = map[string]float64{"ra": gospatial.TrinaryFalse, "rb": gospatial.TrinaryUnknown}
	assert.Equal(t, gospatial.TrinaryTrue, scalar(t, three, args))
}
