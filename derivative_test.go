package gospatial_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/gospatial"
)

func TestJacobian_PointOfRotation(t *testing.T) {
	th := gospatial.Sym("jth")
	p := gospatial.RotationMatrixFromRPY(0, 0, th).DotPoint(gospatial.NewPoint3(1, 0, 0))
	j := gospatial.Jacobian(p, []*gospatial.Symbol{th})
	rows, cols := j.Shape()
	assert.Equal(t, 4, rows)
	assert.Equal(t, 1, cols)

	got := evaluate(t, j, map[string]float64{"jth": 0.3})
	assert.InDeltaSlice(t, []float64{-math.Sin(0.3), math.Cos(0.3), 0, 0}, got, tol)
}

func TestGradientHessian(t *testing.T) {
	x, y := gospatial.Sym("hgx"), gospatial.Sym("hgy")
	// f = x^2 y + sin(y)
	f := gospatial.Must(gospatial.Add(
		gospatial.Must(gospatial.Mul(gospatial.Must(gospatial.Mul(x, x)), y)),
		gospatial.Sin(y),
	))
	syms := []*gospatial.Symbol{x, y}
	args := map[string]float64{"hgx": 2, "hgy": 0.5}

	g, err := gospatial.Gradient(f, syms)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2 * 2 * 0.5, 4 + math.Cos(0.5)}, evaluate(t, g, args), tol)

	h, err := gospatial.Hessian(f, syms)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 4, 4, -math.Sin(0.5)}, evaluate(t, h, args), tol)

	_, err = gospatial.Hessian(gospatial.NewPoint3(x, y, 0), syms)
	assert.ErrorIs(t, err, gospatial.ErrShape)
}

func TestTotalDerivative(t *testing.T) {
	q, qd := gospatial.Sym("tq"), gospatial.Sym("tqd")
	e := gospatial.Sin(q)
	d, err := gospatial.TotalDerivative(e, []*gospatial.Symbol{q}, []*gospatial.Symbol{qd})
	require.NoError(t, err)
	args := map[string]float64{"tq": 0.4, "tqd": 2}
	assert.InDelta(t, math.Cos(0.4)*2, scalar(t, d, args), tol)

	_, err = gospatial.TotalDerivative(e, []*gospatial.Symbol{q}, nil)
	assert.ErrorIs(t, err, gospatial.ErrLengthMismatch)
}

func TestTotalDerivative2(t *testing.T) {
	x, y := gospatial.Sym("t2x"), gospatial.Sym("t2y")
	xd, yd := gospatial.Sym("t2xd"), gospatial.Sym("t2yd")
	xdd, ydd := gospatial.Sym("t2xdd"), gospatial.Sym("t2ydd")
	// f = x*y: H = [[0,1],[1,0]], so the result is 2*xd*yd
	f := gospatial.Must(gospatial.Mul(x, y))
	d2, err := gospatial.TotalDerivative2(f,
		[]*gospatial.Symbol{x, y},
		[]*gospatial.Symbol{xd, yd},
		[]*gospatial.Symbol{xdd, ydd})
	require.NoError(t, err)
	args := map[string]float64{"t2x": 1, "t2y": 2, "t2xd": 3, "t2yd": 5, "t2xdd": 7, "t2ydd": 11}
	assert.InDelta(t, 30.0, scalar(t, d2, args), tol)

	// f = x^2: H = [[2]], so the result is 2*xdd
	sq := gospatial.Must(gospatial.Mul(x, x))
	d2, err = gospatial.TotalDerivative2(sq, []*gospatial.Symbol{x}, []*gospatial.Symbol{xd}, []*gospatial.Symbol{xdd})
	require.NoError(t, err)
	assert.InDelta(t, 14.0, scalar(t, d2, args), tol)
}

func TestJacobianDot(t *testing.T) {
	q, qd := gospatial.Sym("jdq"), gospatial.Sym("jdqd")
	p := gospatial.NewPoint3(gospatial.Cos(q), gospatial.Sin(q), 0)
	jd, err := gospatial.JacobianDot(p, []*gospatial.Symbol{q}, []*gospatial.Symbol{qd})
	require.NoError(t, err)
	got := evaluate(t, jd, map[string]float64{"jdq": 0.2, "jdqd": 3})
	assert.InDeltaSlice(t, []float64{-math.Cos(0.2) * 3, -math.Sin(0.2) * 3, 0, 0}, got, tol)

	jdd, err := gospatial.JacobianDDot(p, []*gospatial.Symbol{q}, []*gospatial.Symbol{qd}, []*gospatial.Symbol{gospatial.Sym("jdqdd")})
	require.NoError(t, err)
	got = evaluate(t, jdd, map[string]float64{"jdq": 0.2, "jdqd": 3, "jdqdd": 100})
	// second derivatives of (-sin q, cos q) contracted with qdd
	assert.InDeltaSlice(t, []float64{math.Sin(0.2) * 100, -math.Cos(0.2) * 100, 0, 0}, got, 1e-9)
}

func TestJacobianDDot_MatchesHandDerivative(t *testing.T) {
	q, qd, qdd := gospatial.Sym("ddq"), gospatial.Sym("ddqd"), gospatial.Sym("ddqdd")
	// e = q sin q, J = sin q + q cos q, d2J/dq2 = -(3 sin q + q cos q)
	e := gospatial.Must(gospatial.Mul(q, gospatial.Sin(q)))
	jdd, err := gospatial.JacobianDDot(e,
		[]*gospatial.Symbol{q}, []*gospatial.Symbol{qd}, []*gospatial.Symbol{qdd})
	require.NoError(t, err)
	f, err := gospatial.Compile(jdd, gospatial.WithParameters([]*gospatial.Symbol{q, qd, qdd}))
	require.NoError(t, err)

	for _, at := range []float64{-1.2, 0, 0.7, 2.5} {
		got := f.FastCall([]float64{at, 1, 3})
		want := -(3*math.Sin(at) + at*math.Cos(at)) * 3
		assert.InDelta(t, want, got[0], tol, "q = %v", at)
	}

	_, err = gospatial.JacobianDDot(e, []*gospatial.Symbol{q}, []*gospatial.Symbol{qd}, nil)
	assert.ErrorIs(t, err, gospatial.ErrLengthMismatch)
}
