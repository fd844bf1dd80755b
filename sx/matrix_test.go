package sx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/gospatial/sx"
)

func constMatrix(rows, cols int, vals ...float64) *sx.Matrix {
	entries := make([]*sx.Expr, len(vals))
	for i, v := range vals {
		entries[i] = sx.Const(v)
	}
	return sx.MatrixFromSlice(rows, cols, entries)
}

func values(t *testing.T, m *sx.Matrix) []float64 {
	t.Helper()
	v, ok := m.Values()
	require.True(t, ok, "matrix is not constant: %s", m)
	return v
}

func TestMatrixLayoutIsColumnMajor(t *testing.T) {
	m := constMatrix(2, 3, 1, 2, 3, 4, 5, 6)
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, values(t, m))
	assert.Equal(t, 6.0, must(m.Get(1, 2).Eval()))
}

func must(v float64, ok bool) float64 {
	if !ok {
		panic("not constant")
	}
	return v
}

func TestMatrixBoundsPanic(t *testing.T) {
	m := sx.NewMatrix(2, 2)
	assert.Panics(t, func() { m.Get(2, 0) })
	assert.Panics(t, func() { m.Set(0, -1, sx.One()) })
}

func TestMatMulTranspose(t *testing.T) {
	a := constMatrix(2, 2, 1, 2, 3, 4)
	b := constMatrix(2, 2, 5, 6, 7, 8)
	assert.Equal(t, []float64{19, 43, 22, 50}, values(t, a.MatMul(b)))
	assert.Equal(t, []float64{1, 2, 3, 4}, values(t, a.Transpose()))
}

func TestDetInverse(t *testing.T) {
	a := constMatrix(3, 3, 2, 0, 1, 1, 3, 2, 1, 1, 2)
	assert.Equal(t, 6.0, must(a.Det().Eval()))
	inv, err := a.Inverse()
	require.NoError(t, err)
	assert.InDeltaSlice(t, values(t, sx.Identity(3)), values(t, a.MatMul(inv)), 1e-12)

	_, err = constMatrix(2, 2, 1, 2, 2, 4).Inverse()
	assert.Error(t, err)
}

func TestVertcatHorzcat(t *testing.T) {
	a := constMatrix(1, 2, 1, 2)
	b := constMatrix(2, 2, 3, 4, 5, 6)
	v, err := sx.Vertcat(a, sx.NewMatrix(0, 0), b)
	require.NoError(t, err)
	assert.Equal(t, 3, v.Rows())
	assert.Equal(t, []float64{1, 3, 5, 2, 4, 6}, values(t, v))

	_, err = sx.Vertcat(a, constMatrix(1, 3, 1, 2, 3))
	assert.Error(t, err)

	h, err := sx.Horzcat(constMatrix(2, 1, 1, 2), b)
	require.NoError(t, err)
	assert.Equal(t, 3, h.Cols())
}

func TestReshapeRemoveSlice(t *testing.T) {
	m := constMatrix(2, 3, 1, 2, 3, 4, 5, 6)
	r, err := m.Reshape(3, 2)
	require.NoError(t, err)
	assert.Equal(t, values(t, m), values(t, r))
	_, err = m.Reshape(4, 2)
	assert.Error(t, err)

	assert.Equal(t, []float64{1, 3}, values(t, m.Remove([]int{1}, []int{1})))
	assert.Equal(t, []float64{6, 5}, values(t, m.Slice([]int{1}, []int{2, 1})))
}

func TestSparsity(t *testing.T) {
	x := sx.NewSymbol("x")
	m := sx.NewMatrix(3, 2)
	m.Set(0, 0, x)
	m.Set(2, 0, sx.One())
	m.Set(1, 1, sx.Sin(x))
	colPtr, rowIdx := m.Sparsity()
	assert.Equal(t, []int{0, 2, 3}, colPtr)
	assert.Equal(t, []int{0, 2, 1}, rowIdx)
	assert.Equal(t, 3, m.Nnz())
}

func TestJacobianRowsFollowEntries(t *testing.T) {
	x, y := sx.NewSymbol("x"), sx.NewSymbol("y")
	m := sx.Column(sx.Mul(x, y), sx.Add(x, sx.Const(3)))
	j := m.Jacobian([]*sx.Expr{x, y})
	assert.Equal(t, 2, j.Rows())
	assert.Same(t, y, j.Get(0, 0))
	assert.Same(t, x, j.Get(0, 1))
	assert.True(t, j.Get(1, 0).IsOne())
	assert.True(t, j.Get(1, 1).IsZero())
}
