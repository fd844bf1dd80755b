package gospatial_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/gospatial"
)

const tol = 1e-9

// evaluate compiles v over its free symbols and calls it with args.
func evaluate(t *testing.T, v gospatial.SymbolicValue, args map[string]float64) []float64 {
	t.Helper()
	f, err := gospatial.Compile(v)
	require.NoError(t, err)
	out, err := f.Call(args)
	require.NoError(t, err)
	return append([]float64(nil), out...)
}

func constant(t *testing.T, v gospatial.SymbolicValue) []float64 {
	t.Helper()
	return evaluate(t, v, nil)
}

func scalar(t *testing.T, v gospatial.SymbolicValue, args map[string]float64) float64 {
	t.Helper()
	out := evaluate(t, v, args)
	require.Len(t, out, 1)
	return out[0]
}

// ============================================================
// Registry
// ============================================================

func TestRegistry_InternsByName(t *testing.T) {
	r := gospatial.NewRegistry()
	a := r.Symbol("a")
	assert.Same(t, a, r.Symbol("a"))
	assert.NotSame(t, a, gospatial.NewRegistry().Symbol("a"))
	assert.Equal(t, 1, r.Len())

	got, ok := r.Lookup("a")
	require.True(t, ok)
	assert.Same(t, a, got)
	_, ok = r.Lookup("b")
	assert.False(t, ok)
}

func TestRegistry_EmptyNamePanics(t *testing.T) {
	assert.Panics(t, func() { gospatial.NewRegistry().Symbol("") })
}

func TestRegistry_VarAndNumbered(t *testing.T) {
	r := gospatial.NewRegistry()
	xs := r.Var("x  y\tz")
	require.Len(t, xs, 3)
	assert.Equal(t, []string{"x", "y", "z"}, []string{xs[0].Name(), xs[1].Name(), xs[2].Name()})

	s := r.CreateNumberedSymbols(3)
	assert.Equal(t, "s_2", s[2].Name())
	assert.Equal(t, 6, r.Len())
}

func TestFreeSymbols_OrderOfAppearance(t *testing.T) {
	x, y, z := gospatial.Sym("fx"), gospatial.Sym("fy"), gospatial.Sym("fz")
	p := gospatial.NewPoint3(y, gospatial.Sin(x), y)
	v := gospatial.Must(gospatial.Add(p, gospatial.NewVector3(z, 0, 0)))
	got := gospatial.FreeSymbols(v)
	require.Len(t, got, 3)
	assert.Same(t, y, got[0])
	assert.Same(t, z, got[1])
	assert.Same(t, x, got[2])
}

// ============================================================
// Expression
// ============================================================

func TestExpressionFrom_Shapes(t *testing.T) {
	tests := []struct {
		name       string
		in         any
		rows, cols int
	}{
		{"nil", nil, 0, 0},
		{"number", 2.5, 1, 1},
		{"column", []float64{1, 2, 3}, 3, 1},
		{"rows", [][]float64{{1, 2}, {3, 4}, {5, 6}}, 3, 2},
		{"symbols", gospatial.Var("ea eb"), 2, 1},
		{"mixed", []any{1, gospatial.Sym("ec")}, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := gospatial.ExpressionFrom(tt.in)
			require.NoError(t, err)
			r, c := e.Shape()
			assert.Equal(t, tt.rows, r)
			assert.Equal(t, tt.cols, c)
		})
	}
}

func TestExpressionFrom_RaggedRows(t *testing.T) {
	_, err := gospatial.ExpressionFrom([][]float64{{1, 2}, {3}})
	assert.ErrorIs(t, err, gospatial.ErrShape)

	_, err = gospatial.ExpressionFrom("text")
	assert.Error(t, err)
}

func TestExpression_CopyIsIndependent(t *testing.T) {
	e := gospatial.Expr([]float64{1, 2})
	c := e.Copy()
	c.Set(0, 0, 9)
	assert.Equal(t, []float64{1, 2}, constant(t, e))
	assert.Equal(t, []float64{9, 2}, constant(t, c))
}

func TestExpression_EvaluateIsRowMajor(t *testing.T) {
	e := gospatial.Expr([][]float64{{1, 2, 3}, {4, 5, 6}})
	got, err := e.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, got)

	_, err = gospatial.Sym("ex").Expression().Evaluate()
	assert.ErrorIs(t, err, gospatial.ErrNotConstant)
}

func TestExpression_SliceReshapeRemove(t *testing.T) {
	e := gospatial.Expr([][]float64{{1, 2, 3}, {4, 5, 6}})
	assert.Equal(t, []float64{4, 5, 6}, constant(t, e.Row(1)))
	assert.Equal(t, []float64{3, 6}, constant(t, e.Col(2)))
	assert.Equal(t, []float64{4, 5, 6}, constant(t, e.SelectRows([]bool{false, true})))
	assert.Panics(t, func() { e.SelectRows([]bool{true}) })

	r, err := e.Reshape(3, 2)
	require.NoError(t, err)
	rows, cols := r.Shape()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 2, cols)
	_, err = e.Reshape(4, 2)
	assert.ErrorIs(t, err, gospatial.ErrShape)

	e.Remove([]int{0}, []int{1})
	assert.Equal(t, []float64{4, 6}, constant(t, e))
}

func TestExpression_Float(t *testing.T) {
	v, err := gospatial.Const(2.5).Float()
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	_, err = gospatial.Expr([]float64{1, 2}).Float()
	assert.ErrorIs(t, err, gospatial.ErrShape)
}

func TestSubstitute_KeepsKind(t *testing.T) {
	x := gospatial.Sym("sx")
	p := gospatial.NewPoint3(x, 1, 2)
	p.ReferenceFrame = "map"
	got, err := gospatial.Substitute(p, []*gospatial.Symbol{x}, []any{5})
	require.NoError(t, err)
	q, ok := got.(*gospatial.Point3)
	require.True(t, ok)
	assert.Equal(t, "map", q.ReferenceFrame)
	assert.Equal(t, []float64{5, 1, 2, 1}, constant(t, q))

	_, err = gospatial.Substitute(p, []*gospatial.Symbol{x}, nil)
	assert.ErrorIs(t, err, gospatial.ErrLengthMismatch)
}

func TestEquivalentIsStructural(t *testing.T) {
	x, y := gospatial.Sym("qx"), gospatial.Sym("qy")
	a := gospatial.Must(gospatial.Add(x, y))
	assert.True(t, gospatial.Equivalent(a, gospatial.Must(gospatial.Add(x, y))))
	assert.False(t, gospatial.Equivalent(a, gospatial.Must(gospatial.Add(y, x))))
}

func TestMath_Elementwise(t *testing.T) {
	x := gospatial.Sym("mx")
	args := map[string]float64{"mx": 0.3}
	assert.InDelta(t, math.Sin(0.3), scalar(t, gospatial.Sin(x), args), tol)
	assert.InDelta(t, 1.0, scalar(t, gospatial.Limit(gospatial.Const(3), -1, 1), nil), tol)
	assert.InDelta(t, math.Acos(1), scalar(t, gospatial.SafeAcos(gospatial.Const(1.5)), nil), tol)
	assert.InDelta(t, 1.24, scalar(t, gospatial.RoundUp(gospatial.Const(1.231), 2), nil), tol)
	assert.InDelta(t, 1.23, scalar(t, gospatial.RoundDown(gospatial.Const(1.239), 2), nil), tol)
	assert.InDelta(t, 10.0, scalar(t, gospatial.Gauss(4), nil), tol)
	assert.InDelta(t, 4.0, scalar(t, gospatial.RGauss(10), nil), tol)
}

func TestMath_Angles(t *testing.T) {
	assert.InDelta(t, math.Pi/2, scalar(t, gospatial.NormalizeAngle(2*math.Pi+math.Pi/2), nil), tol)
	assert.InDelta(t, -math.Pi/2, scalar(t, gospatial.NormalizeAngle(3*math.Pi/2), nil), tol)
	assert.InDelta(t, 3*math.Pi/2, scalar(t, gospatial.NormalizeAnglePositive(-math.Pi/2), nil), tol)
	assert.InDelta(t, -0.2, scalar(t, gospatial.ShortestAngularDistance(0.1, 2*math.Pi-0.1), nil), tol)
}

func TestMath_MatrixHelpers(t *testing.T) {
	a := gospatial.Expr([][]float64{{2, 0}, {1, 3}})
	assert.InDelta(t, 6.0, scalar(t, gospatial.Det(a), nil), tol)
	assert.InDelta(t, 5.0, scalar(t, gospatial.Trace(a), nil), tol)
	assert.Equal(t, []float64{3, 3}, constant(t, gospatial.SumRow(a)))
	assert.Equal(t, []float64{2, 4}, constant(t, gospatial.SumColumn(a)))
	assert.Equal(t, 6.0, constant(t, gospatial.Sum(a))[0])

	inv, err := gospatial.MatrixInverse(a)
	require.NoError(t, err)
	prod := gospatial.Must(gospatial.Dot(a, inv))
	assert.InDeltaSlice(t, []float64{1, 0, 0, 1}, constant(t, prod), tol)

	s, err := gospatial.Vstack(gospatial.Expr([]float64{1}), gospatial.Expr([]float64{2, 3}))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, constant(t, s))
	_, err = gospatial.Hstack(gospatial.Expr([]float64{1}), gospatial.Expr([]float64{2, 3}))
	assert.Error(t, err)

	_, err = gospatial.EntrywiseProduct(a, gospatial.Expr([]float64{1, 2, 3}))
	assert.ErrorIs(t, err, gospatial.ErrShape)
}

func TestIsInfAndIsConstant(t *testing.T) {
	assert.True(t, gospatial.IsInf(gospatial.Const(math.Inf(1))))
	assert.False(t, gospatial.IsInf(gospatial.Sym("ix")))
	assert.True(t, gospatial.IsConstant(3))
	assert.False(t, gospatial.IsConstant(gospatial.NewPoint3(gospatial.Sym("ix"), 0, 0)))
}
