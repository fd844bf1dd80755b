package gospatial_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/gospatial"
)

func sampleOperands() map[gospatial.Kind]any {
	return map[gospatial.Kind]any{
		gospatial.KindNumber:               2.0,
		gospatial.KindSymbol:               gospatial.Sym("dx"),
		gospatial.KindExpression:           gospatial.Const(3),
		gospatial.KindPoint3:               gospatial.NewPoint3(1, 2, 3),
		gospatial.KindVector3:              gospatial.NewVector3(1, 2, 3),
		gospatial.KindQuaternion:           gospatial.IdentityQuaternion(),
		gospatial.KindRotationMatrix:       gospatial.NewRotationMatrix(),
		gospatial.KindTransformationMatrix: gospatial.NewTransformationMatrix(),
	}
}

func TestDispatch_Closure(t *testing.T) {
	operands := sampleOperands()
	for _, op := range gospatial.Operators() {
		for _, lk := range gospatial.Kinds() {
			for _, rk := range gospatial.Kinds() {
				name := fmt.Sprintf("%s %s %s", lk, op, rk)
				want, legal := gospatial.ResultKind(op, lk, rk)
				got, err := gospatial.Apply(op, operands[lk], operands[rk])
				if !legal {
					var te *gospatial.TypeError
					assert.ErrorAs(t, err, &te, name)
					continue
				}
				if assert.NoError(t, err, name) {
					assert.Equal(t, want, got.Kind(), name)
				}
			}
		}
	}
}

func TestDispatch_Table(t *testing.T) {
	K := struct {
		N, S, E, P, V, Q, R, T gospatial.Kind
	}{
		gospatial.KindNumber, gospatial.KindSymbol, gospatial.KindExpression,
		gospatial.KindPoint3, gospatial.KindVector3, gospatial.KindQuaternion,
		gospatial.KindRotationMatrix, gospatial.KindTransformationMatrix,
	}
	const illegal = gospatial.KindUnsupported
	tests := []struct {
		op          gospatial.Operator
		left, right gospatial.Kind
		want        gospatial.Kind
	}{
		{gospatial.OpAdd, K.N, K.S, K.E},
		{gospatial.OpMul, K.E, K.P, K.P},
		{gospatial.OpPow, K.V, K.N, K.V},
		{gospatial.OpAdd, K.P, K.V, K.P},
		{gospatial.OpAdd, K.V, K.P, K.P},
		{gospatial.OpAdd, K.P, K.P, illegal},
		{gospatial.OpSub, K.P, K.P, K.V},
		{gospatial.OpSub, K.P, K.V, K.P},
		{gospatial.OpSub, K.V, K.V, K.V},
		{gospatial.OpMul, K.P, K.V, illegal},
		{gospatial.OpAdd, K.Q, K.Q, illegal},
		{gospatial.OpMul, K.R, K.N, illegal},
		{gospatial.OpDot, K.N, K.N, illegal},
		{gospatial.OpDot, K.P, K.V, K.E},
		{gospatial.OpDot, K.Q, K.Q, K.E},
		{gospatial.OpDot, K.R, K.P, K.P},
		{gospatial.OpDot, K.T, K.V, K.V},
		{gospatial.OpDot, K.R, K.R, K.R},
		{gospatial.OpDot, K.R, K.T, K.T},
		{gospatial.OpDot, K.T, K.R, K.T},
		{gospatial.OpDot, K.T, K.T, K.T},
		{gospatial.OpDot, K.V, K.R, illegal},
		{gospatial.OpDot, K.Q, K.R, illegal},
	}
	for _, tt := range tests {
		got, ok := gospatial.ResultKind(tt.op, tt.left, tt.right)
		name := fmt.Sprintf("%s %s %s", tt.left, tt.op, tt.right)
		if tt.want == illegal {
			assert.False(t, ok, name)
			continue
		}
		assert.True(t, ok, name)
		assert.Equal(t, tt.want, got, name)
	}
}

func TestDispatch_TypeErrorMessage(t *testing.T) {
	_, err := gospatial.Add(gospatial.NewPoint3(0, 0, 0), gospatial.NewPoint3(1, 1, 1))
	require.Error(t, err)
	assert.Equal(t, "gospatial: unsupported operand type(s) for +: 'Point3' and 'Point3'", err.Error())
}

func TestDispatch_ForeignOperands(t *testing.T) {
	ops := map[string]func(a, b any) (gospatial.SymbolicValue, error){
		"+":   gospatial.Add,
		"-":   gospatial.Sub,
		"*":   gospatial.Mul,
		"/":   gospatial.Div,
		"**":  gospatial.Pow,
		"dot": gospatial.Dot,
	}
	known := []any{2.0, gospatial.NewPoint3(1, 2, 3), gospatial.NewTransformationMatrix()}
	for _, foreign := range []any{"text", struct{}{}} {
		for sym, op := range ops {
			for _, k := range known {
				_, err := op(k, foreign)
				var te *gospatial.TypeError
				if assert.ErrorAs(t, err, &te, "%T %s %T", k, sym, foreign) {
					assert.Equal(t, fmt.Sprintf("%T", foreign), te.Right)
					assert.Contains(t, err.Error(), "'"+te.Left+"' and '"+te.Right+"'")
				}

				_, err = op(foreign, k)
				if assert.ErrorAs(t, err, &te, "%T %s %T", foreign, sym, k) {
					assert.Equal(t, fmt.Sprintf("%T", foreign), te.Left)
					assert.Contains(t, err.Error(), "'"+te.Left+"' and '"+te.Right+"'")
				}
			}
		}
	}

	_, err := gospatial.Add(gospatial.NewPoint3(1, 2, 3), "text")
	assert.EqualError(t, err, "gospatial: unsupported operand type(s) for +: 'Point3' and 'string'")
	_, err = gospatial.Neg(struct{}{})
	assert.EqualError(t, err, "gospatial: bad operand type for unary -: 'struct {}'")
}

func TestDispatch_ShapeMismatch(t *testing.T) {
	_, err := gospatial.Add(gospatial.Expr([]float64{1, 2}), gospatial.Expr([]float64{1, 2, 3}))
	assert.ErrorIs(t, err, gospatial.ErrShape)
}

func TestDispatch_HomogeneousEntries(t *testing.T) {
	x := gospatial.Sym("hx")
	p := gospatial.NewPoint3(x, 2, 3)
	v := gospatial.NewVector3(1, x, 3)
	args := map[string]float64{"hx": 0.7}

	values := []gospatial.SymbolicValue{
		p, v,
		gospatial.Must(gospatial.Mul(p, 3)),
		gospatial.Must(gospatial.Add(v, 5)),
		gospatial.Must(gospatial.Div(2, v)),
		gospatial.Must(gospatial.Pow(p, x)),
		gospatial.Must(gospatial.Add(p, v)),
		gospatial.Must(gospatial.Sub(p, p)),
		gospatial.Must(gospatial.Neg(p)),
		gospatial.Must(gospatial.Dot(gospatial.RotationMatrixFromRPY(x, 0.1, 0.2), p)),
		gospatial.Must(gospatial.Dot(gospatial.TransformationFromXYZRPY(1, 2, 3, x, 0, 0), v)),
	}
	for i, val := range values {
		var want float64
		switch val.(type) {
		case *gospatial.Point3:
			want = 1
		case *gospatial.Vector3:
			want = 0
		default:
			t.Fatalf("value %d has kind %s", i, val.Kind())
		}
		out := evaluate(t, val, args)
		require.Len(t, out, 4)
		assert.Equal(t, want, out[3], "value %d", i)
	}
}

func TestDispatch_ComponentArithmetic(t *testing.T) {
	p := gospatial.NewPoint3(1, 2, 3)
	q := gospatial.NewPoint3(4, 6, 8)
	assert.Equal(t, []float64{3, 4, 5, 0}, constant(t, q.SubPoint(p)))
	assert.Equal(t, []float64{2, 4, 6, 1}, constant(t, p.Scale(2)))
	assert.Equal(t, 40.0, constant(t, p.Dot(q))[0])

	v := gospatial.NewVector3(1, 0, 0)
	w := gospatial.NewVector3(0, 1, 0)
	assert.Equal(t, []float64{0, 0, 1, 0}, constant(t, v.Cross(w)))
	assert.Equal(t, []float64{0.5, 0, 0, 0}, constant(t, v.Div(2)))
}

func TestDispatch_FramePropagation(t *testing.T) {
	p := gospatial.NewPoint3(1, 2, 3)
	p.ReferenceFrame = "base"
	v := gospatial.NewVector3(1, 0, 0)
	v.ReferenceFrame = "tool"

	sum, err := gospatial.As[*gospatial.Point3](gospatial.Add(p, v))
	require.NoError(t, err)
	assert.Equal(t, "base", sum.ReferenceFrame)

	v2, err := gospatial.As[*gospatial.Vector3](gospatial.Mul(2, v))
	require.NoError(t, err)
	assert.Equal(t, "tool", v2.ReferenceFrame)

	a := gospatial.NewTransformationMatrix()
	a.ReferenceFrame, a.ChildFrame = "map", "odom"
	b := gospatial.NewTransformationMatrix()
	b.ReferenceFrame, b.ChildFrame = "odom", "base"
	ab := a.DotTransformation(b)
	assert.Equal(t, "map", ab.ReferenceFrame)
	assert.Equal(t, "base", ab.ChildFrame)
}

func TestNeg_RejectsMatrices(t *testing.T) {
	_, err := gospatial.Neg(gospatial.NewRotationMatrix())
	var te *gospatial.TypeError
	assert.ErrorAs(t, err, &te)
}

func TestAs_WrongType(t *testing.T) {
	_, err := gospatial.As[*gospatial.Point3](gospatial.Add(gospatial.NewVector3(0, 0, 0), gospatial.NewVector3(1, 0, 0)))
	assert.Error(t, err)
}

func TestCompare_OnlyScalars(t *testing.T) {
	_, err := gospatial.Less(gospatial.NewPoint3(0, 0, 0), 1)
	var te *gospatial.TypeError
	assert.ErrorAs(t, err, &te)

	lt, err := gospatial.Less(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, constant(t, lt)[0])
}
