package gospatial

import (
	"fmt"
	"math"

	"github.com/njchilds90/gospatial/sx"
)

const Pi = math.Pi

// The elementwise functions accept any operand (numbers, symbols,
// expressions and geometric values) and return an Expression of the same
// shape. They panic on unsupported operands and on shape mismatches.

func mapEntries(v any, f func(*sx.Expr) *sx.Expr) *Expression {
	return FromSX(matrixOf(v).Map(f))
}

func zipEntries(a, b any, f func(x, y *sx.Expr) *sx.Expr) *Expression {
	return FromSX(sx.Zip(matrixOf(a), matrixOf(b), f))
}

func Abs(v any) *Expression   { return mapEntries(v, sx.Fabs) }
func Sign(v any) *Expression  { return mapEntries(v, sx.Sign) }
func Floor(v any) *Expression { return mapEntries(v, sx.Floor) }
func Ceil(v any) *Expression  { return mapEntries(v, sx.Ceil) }
func Sqrt(v any) *Expression  { return mapEntries(v, sx.Sqrt) }
func Sin(v any) *Expression   { return mapEntries(v, sx.Sin) }
func Cos(v any) *Expression   { return mapEntries(v, sx.Cos) }
func Tan(v any) *Expression   { return mapEntries(v, sx.Tan) }
func Asin(v any) *Expression  { return mapEntries(v, sx.Asin) }
func Acos(v any) *Expression  { return mapEntries(v, sx.Acos) }
func Atan(v any) *Expression  { return mapEntries(v, sx.Atan) }
func Exp(v any) *Expression   { return mapEntries(v, sx.Exp) }
func Log(v any) *Expression   { return mapEntries(v, sx.Log) }
func Sinh(v any) *Expression  { return mapEntries(v, sx.Sinh) }
func Cosh(v any) *Expression  { return mapEntries(v, sx.Cosh) }
func Tanh(v any) *Expression  { return mapEntries(v, sx.Tanh) }

func Max(a, b any) *Expression   { return zipEntries(a, b, sx.Fmax) }
func Min(a, b any) *Expression   { return zipEntries(a, b, sx.Fmin) }
func Fmod(a, b any) *Expression  { return zipEntries(a, b, sx.Fmod) }
func Atan2(y, x any) *Expression { return zipEntries(y, x, sx.Atan2) }

// Limit clamps x to [lo, hi].
func Limit(x, lo, hi any) *Expression {
	return Max(lo, Min(hi, x))
}

// SafeAcos is acos with its argument clamped to [-1, 1].
func SafeAcos(v any) *Expression { return Acos(Limit(v, -1, 1)) }

// RoundUp rounds up to the given number of decimal places.
func RoundUp(v any, decimals int) *Expression {
	f := sx.Const(math.Pow(10, float64(decimals)))
	return mapEntries(v, func(e *sx.Expr) *sx.Expr { return sx.Div(sx.Ceil(sx.Mul(e, f)), f) })
}

// RoundDown rounds down to the given number of decimal places.
func RoundDown(v any, decimals int) *Expression {
	f := sx.Const(math.Pow(10, float64(decimals)))
	return mapEntries(v, func(e *sx.Expr) *sx.Expr { return sx.Div(sx.Floor(sx.Mul(e, f)), f) })
}

// ============================================================
// Matrix helpers
// ============================================================

func Zeros(rows, cols int) *Expression { return NewExpression(rows, cols) }
func Ones(rows, cols int) *Expression  { return FromSX(sx.Fill(rows, cols, sx.One())) }
func Eye(n int) *Expression            { return FromSX(sx.Identity(n)) }

// Tri returns the n x n lower-triangular matrix of ones.
func Tri(n int) *Expression {
	m := sx.NewMatrix(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			m.Set(i, j, sx.One())
		}
	}
	return FromSX(m)
}

// Diag turns a vector into a diagonal matrix and extracts the diagonal
// of a square matrix.
func Diag(v any) *Expression {
	m := matrixOf(v)
	if m.IsColumn() || m.Rows() == 1 {
		n := m.Numel()
		out := sx.NewMatrix(n, n)
		for i := 0; i < n; i++ {
			out.Set(i, i, m.At(i))
		}
		return FromSX(out)
	}
	if m.Rows() != m.Cols() {
		panic(fmt.Sprintf("gospatial: Diag of non-square %dx%d matrix", m.Rows(), m.Cols()))
	}
	d := make([]*sx.Expr, m.Rows())
	for i := range d {
		d[i] = m.Get(i, i)
	}
	return FromSX(sx.Column(d...))
}

// Kron is the Kronecker product.
func Kron(a, b any) *Expression {
	am, bm := matrixOf(a), matrixOf(b)
	out := sx.NewMatrix(am.Rows()*bm.Rows(), am.Cols()*bm.Cols())
	for i := 0; i < am.Rows(); i++ {
		for j := 0; j < am.Cols(); j++ {
			for k := 0; k < bm.Rows(); k++ {
				for l := 0; l < bm.Cols(); l++ {
					out.Set(i*bm.Rows()+k, j*bm.Cols()+l, sx.Mul(am.Get(i, j), bm.Get(k, l)))
				}
			}
		}
	}
	return FromSX(out)
}

func Trace(v any) *Expression { return scalarExpression(matrixOf(v).Trace()) }
func Det(v any) *Expression   { return scalarExpression(matrixOf(v).Det()) }

// MatrixInverse inverts a square matrix. Rotations and transforms use
// their closed-form inverses and keep their type.
func MatrixInverse(v any) (SymbolicValue, error) {
	switch x := v.(type) {
	case *TransformationMatrix:
		return x.Inverse(), nil
	case *RotationMatrix:
		return x.Inverse(), nil
	}
	m := matrixOf(v)
	if m.Rows() != m.Cols() {
		return nil, &ShapeError{Op: "MatrixInverse", Want: "square", Got: shapeString(m.Rows(), m.Cols())}
	}
	inv, err := m.Inverse()
	if err != nil {
		return nil, fmt.Errorf("gospatial: %w", err)
	}
	return FromSX(inv), nil
}

func matrices(vs []any) []*sx.Matrix {
	ms := make([]*sx.Matrix, len(vs))
	for i, v := range vs {
		ms[i] = matrixOf(v)
	}
	return ms
}

// Vstack concatenates vertically; empty operands are skipped.
func Vstack(vs ...any) (*Expression, error) {
	if len(vs) == 0 {
		return NewExpression(0, 0), nil
	}
	m, err := sx.Vertcat(matrices(vs)...)
	if err != nil {
		return nil, &ShapeError{Op: "Vstack", Want: "equal column counts", Got: err.Error()}
	}
	return FromSX(m), nil
}

// Hstack concatenates horizontally; empty operands are skipped.
func Hstack(vs ...any) (*Expression, error) {
	if len(vs) == 0 {
		return NewExpression(0, 0), nil
	}
	m, err := sx.Horzcat(matrices(vs)...)
	if err != nil {
		return nil, &ShapeError{Op: "Hstack", Want: "equal row counts", Got: err.Error()}
	}
	return FromSX(m), nil
}

// DiagStack places its operands along the diagonal of a block matrix.
func DiagStack(vs ...any) *Expression {
	ms := matrices(vs)
	rows, cols := 0, 0
	for _, m := range ms {
		rows += m.Rows()
		cols += m.Cols()
	}
	out := sx.NewMatrix(rows, cols)
	r, c := 0, 0
	for _, m := range ms {
		for i := 0; i < m.Rows(); i++ {
			for j := 0; j < m.Cols(); j++ {
				out.Set(r+i, c+j, m.Get(i, j))
			}
		}
		r += m.Rows()
		c += m.Cols()
	}
	return FromSX(out)
}

// Sum adds every entry.
func Sum(v any) *Expression {
	acc := sx.Zero()
	for _, e := range matrixOf(v).Elements() {
		acc = sx.Add(acc, e)
	}
	return scalarExpression(acc)
}

// SumRow sums over rows, giving a 1 x cols result.
func SumRow(v any) *Expression {
	m := matrixOf(v)
	out := sx.NewMatrix(1, m.Cols())
	for j := 0; j < m.Cols(); j++ {
		acc := sx.Zero()
		for i := 0; i < m.Rows(); i++ {
			acc = sx.Add(acc, m.Get(i, j))
		}
		out.Set(0, j, acc)
	}
	return FromSX(out)
}

// SumColumn sums over columns, giving a rows x 1 result.
func SumColumn(v any) *Expression {
	m := matrixOf(v)
	out := sx.NewMatrix(m.Rows(), 1)
	for i := 0; i < m.Rows(); i++ {
		acc := sx.Zero()
		for j := 0; j < m.Cols(); j++ {
			acc = sx.Add(acc, m.Get(i, j))
		}
		out.Set(i, 0, acc)
	}
	return FromSX(out)
}

func EntrywiseProduct(a, b any) (*Expression, error) {
	am, bm := matrixOf(a), matrixOf(b)
	if am.Rows() != bm.Rows() || am.Cols() != bm.Cols() {
		return nil, &ShapeError{Op: "EntrywiseProduct", Want: shapeString(am.Rows(), am.Cols()), Got: shapeString(bm.Rows(), bm.Cols())}
	}
	return FromSX(sx.Zip(am, bm, sx.Mul)), nil
}

// Norm is the Euclidean norm of all entries, or of (x, y, z) for points
// and vectors.
func Norm(v any) *Expression {
	if p, ok := v.(Vec3); ok {
		return scalarExpression(norm3(p.xyz()))
	}
	e := matrixOf(v).Elements()
	return scalarExpression(sx.Sqrt(inner(e, e)))
}

// Scale rescales v to length a. A zero-length v stays zero.
func Scale(v, a any) (SymbolicValue, error) {
	n := Norm(v)
	f := safeDivide(scalarOf(a), n.m.At(0), sx.Zero())
	return Mul(v, scalarExpression(f))
}

// SafeDivision divides num by a scalar den, yielding zero where den is
// zero. Points and vectors keep their type.
func SafeDivision(num, den any) (SymbolicValue, error) {
	d, err := scalarMatrix("safe_division", den)
	if err != nil {
		return nil, err
	}
	if !d.IsScalar() {
		return nil, &ShapeError{Op: "safe_division", Want: "1x1 denominator", Got: shapeString(d.Rows(), d.Cols())}
	}
	return Mul(num, scalarExpression(safeDivide(sx.One(), d.At(0), sx.Zero())))
}

// Substitute replaces symbols by values. The result keeps the kind and
// frames of v; a Symbol becomes an Expression.
func Substitute(v SymbolicValue, old []*Symbol, replacements []any) (SymbolicValue, error) {
	if len(old) != len(replacements) {
		return nil, fmt.Errorf("%w: %d symbols, %d replacements", ErrLengthMismatch, len(old), len(replacements))
	}
	repl := make(map[*sx.Expr]*sx.Expr, len(old))
	for i, s := range old {
		m, k := classify(replacements[i])
		if !k.IsScalar() || !m.IsScalar() {
			return nil, fmt.Errorf("gospatial: replacement %d for %q must be a scalar, got %s", i, s.Name(), typeName(replacements[i]))
		}
		repl[s.node] = m.At(0)
	}
	k := v.Kind()
	if k == KindSymbol {
		k = KindExpression
	}
	return wrap(k, v.SX().Substitute(repl), frameOf(v), childFrameOf(v)), nil
}

// Equivalent reports structural equality. No simplification is applied,
// so algebraically equal but differently built expressions differ.
func Equivalent(a, b any) bool { return matrixEqual(matrixOf(a), matrixOf(b)) }

// IsConstant reports whether v has no free symbols.
func IsConstant(v any) bool {
	if _, ok := number(v); ok {
		return true
	}
	return len(sx.FreeSymbols(matrixOf(v).Elements()...)) == 0
}

// IsInf reports whether any constant inside v is infinite.
func IsInf(v any) bool {
	seen := map[*sx.Expr]bool{}
	var walk func(e *sx.Expr) bool
	walk = func(e *sx.Expr) bool {
		if seen[e] {
			return false
		}
		seen[e] = true
		if e.IsConst() {
			return math.IsInf(e.Value(), 0)
		}
		for i := 0; i < e.NumArgs(); i++ {
			if walk(e.Arg(i)) {
				return true
			}
		}
		return false
	}
	for _, e := range matrixOf(v).Elements() {
		if walk(e) {
			return true
		}
	}
	return false
}

// ============================================================
// Angles and motion helpers
// ============================================================

func normalizeAnglePositive(a *sx.Expr) *sx.Expr {
	twoPi := sx.Const(2 * math.Pi)
	return sx.Fmod(sx.Add(sx.Fmod(a, twoPi), twoPi), twoPi)
}

func normalizeAngle(a *sx.Expr) *sx.Expr {
	p := normalizeAnglePositive(a)
	return sx.IfElse(sx.Gt(p, sx.Const(math.Pi)), sx.Sub(p, sx.Const(2*math.Pi)), p)
}

// NormalizeAnglePositive wraps an angle to [0, 2pi).
func NormalizeAnglePositive(v any) *Expression { return mapEntries(v, normalizeAnglePositive) }

// NormalizeAngle wraps an angle to (-pi, pi].
func NormalizeAngle(v any) *Expression { return mapEntries(v, normalizeAngle) }

// ShortestAngularDistance returns the signed difference to - from
// wrapped to (-pi, pi].
func ShortestAngularDistance(from, to any) *Expression {
	return zipEntries(from, to, func(f, t *sx.Expr) *sx.Expr { return normalizeAngle(sx.Sub(t, f)) })
}

// Gauss is the triangular number (n² + n) / 2.
func Gauss(n any) *Expression {
	return mapEntries(n, func(e *sx.Expr) *sx.Expr {
		return sx.Div(sx.Add(sx.Mul(e, e), e), sx.Const(2))
	})
}

// RGauss inverts Gauss.
func RGauss(integral any) *Expression {
	return mapEntries(integral, func(e *sx.Expr) *sx.Expr {
		return sx.Sub(sx.Sqrt(sx.Add(sx.Mul(sx.Const(2), e), sx.Const(0.25))), sx.Const(0.5))
	})
}

// VelocityLimitFromPositionLimit returns the largest velocity that can
// still be braked to zero at positionLimit with the given acceleration
// limit and control step. eps absorbs rounding when the step count is
// within eps of the next integer.
func VelocityLimitFromPositionLimit(accelerationLimit, positionLimit, currentPosition, stepSize any, eps float64) *Expression {
	dt := scalarOf(stepSize)
	acc := sx.Mul(scalarOf(accelerationLimit), dt)
	dist := sx.Div(sx.Sub(scalarOf(positionLimit), scalarOf(currentPosition)), dt)
	m := sx.Div(sx.One(), acc)
	dist = sx.Mul(dist, m)
	sign := sx.Sign(dist)
	errAbs := sx.Fabs(dist)

	n := sx.Sub(sx.Sqrt(sx.Add(sx.Mul(sx.Const(2), errAbs), sx.Const(0.25))), sx.Const(0.5))
	n = sx.IfElse(sx.Lt(sx.Sub(sx.One(), sx.Sub(n, sx.Floor(n))), sx.Const(eps)), sx.Ceil(n), sx.Floor(n))
	rounded := sx.Div(sx.Add(sx.Mul(n, n), n), sx.Const(2))
	rest := sx.Div(sx.Sub(errAbs, rounded), sx.Add(n, sx.One()))
	v := sx.Div(sx.Mul(sx.Add(n, rest), sign), m)
	return scalarExpression(v)
}
