package gospatial

import (
	"fmt"

	"github.com/njchilds90/gospatial/sx"
)

// Point3 is a 4x1 homogeneous point (x, y, z, 1).
type Point3 struct {
	base
	ReferenceFrame Frame
}

// Vector3 is a 4x1 homogeneous direction (x, y, z, 0).
type Vector3 struct {
	base
	ReferenceFrame Frame
}

func point3FromEntries(x, y, z *sx.Expr) *Point3 {
	return &Point3{base: base{sx.Column(x, y, z, sx.One())}}
}

func vector3FromEntries(x, y, z *sx.Expr) *Vector3 {
	return &Vector3{base: base{sx.Column(x, y, z, sx.Zero())}}
}

// NewPoint3 builds a point from three scalars (numbers, symbols or 1x1
// expressions).
func NewPoint3(x, y, z any) *Point3 {
	return point3FromEntries(scalarOf(x), scalarOf(y), scalarOf(z))
}

// Origin returns (0, 0, 0, 1).
func Origin() *Point3 { return NewPoint3(0, 0, 0) }

// NewVector3 builds a vector from three scalars.
func NewVector3(x, y, z any) *Vector3 {
	return vector3FromEntries(scalarOf(x), scalarOf(y), scalarOf(z))
}

// ZeroVector returns (0, 0, 0, 0).
func ZeroVector() *Vector3 { return NewVector3(0, 0, 0) }

func xyzOf(op string, v any) ([3]*sx.Expr, Frame, error) {
	switch v.(type) {
	case []float64, []any, []*Symbol:
		e, err := ExpressionFrom(v)
		if err != nil {
			return [3]*sx.Expr{}, nil, err
		}
		v = e
	}
	m, k := classify(v)
	switch {
	case k == KindUnsupported:
		return [3]*sx.Expr{}, nil, fmt.Errorf("gospatial: %s: cannot convert %s", op, typeName(v))
	case m.IsColumn() && (m.Rows() == 3 || m.Rows() == 4):
		return [3]*sx.Expr{m.At(0), m.At(1), m.At(2)}, frameOf(v), nil
	}
	return [3]*sx.Expr{}, nil, &ShapeError{Op: op, Want: "3x1 or 4x1", Got: shapeString(m.Rows(), m.Cols())}
}

// Point3From converts a 3x1 or 4x1 column, a slice of 3 or 4 scalars, a
// Point3 or a Vector3. The reference frame of a geometric source is kept.
func Point3From(v any) (*Point3, error) {
	xyz, f, err := xyzOf("Point3", v)
	if err != nil {
		return nil, err
	}
	p := point3FromEntries(xyz[0], xyz[1], xyz[2])
	p.ReferenceFrame = f
	return p, nil
}

// Vector3From is the Vector3 counterpart of Point3From.
func Vector3From(v any) (*Vector3, error) {
	xyz, f, err := xyzOf("Vector3", v)
	if err != nil {
		return nil, err
	}
	out := vector3FromEntries(xyz[0], xyz[1], xyz[2])
	out.ReferenceFrame = f
	return out, nil
}

func (p *Point3) Kind() Kind  { return KindPoint3 }
func (v *Vector3) Kind() Kind { return KindVector3 }

func (p *Point3) xyz() [3]*sx.Expr  { return [3]*sx.Expr{p.m.At(0), p.m.At(1), p.m.At(2)} }
func (v *Vector3) xyz() [3]*sx.Expr { return [3]*sx.Expr{v.m.At(0), v.m.At(1), v.m.At(2)} }

// Vec3 is implemented by Point3 and Vector3.
type Vec3 interface {
	SymbolicValue
	X() *Expression
	Y() *Expression
	Z() *Expression
	xyz() [3]*sx.Expr
}

func (p *Point3) X() *Expression { return p.At(0) }
func (p *Point3) Y() *Expression { return p.At(1) }
func (p *Point3) Z() *Expression { return p.At(2) }

// Set assigns coordinate i (0, 1 or 2). The homogeneous entry is fixed.
func (p *Point3) Set(i int, v any) {
	if i < 0 || i > 2 {
		panic(fmt.Sprintf("gospatial: Point3 index %d out of range [0,3)", i))
	}
	p.m.SetAt(i, scalarOf(v))
}

func (p *Point3) SetX(v any) { p.Set(0, v) }
func (p *Point3) SetY(v any) { p.Set(1, v) }
func (p *Point3) SetZ(v any) { p.Set(2, v) }

func (p *Point3) Copy() *Point3 {
	return &Point3{base: base{p.m.Copy()}, ReferenceFrame: p.ReferenceFrame}
}

// AddVector returns p + v.
func (p *Point3) AddVector(v *Vector3) *Point3 {
	return Must(As[*Point3](Add(p, v)))
}

// SubPoint returns the vector from q to p.
func (p *Point3) SubPoint(q *Point3) *Vector3 {
	return Must(As[*Vector3](Sub(p, q)))
}

// SubVector returns p - v.
func (p *Point3) SubVector(v *Vector3) *Point3 {
	return Must(As[*Point3](Sub(p, v)))
}

// Scale multiplies every coordinate by a scalar.
func (p *Point3) Scale(a any) *Point3 {
	return Must(As[*Point3](Mul(p, scalarExpression(scalarOf(a)))))
}

func (p *Point3) Neg() *Point3 {
	return Must(As[*Point3](Neg(p)))
}

// Norm is the Euclidean length of (x, y, z).
func (p *Point3) Norm() *Expression { return scalarExpression(norm3(p.xyz())) }

// Dot is the inner product of the first three coordinates.
func (p *Point3) Dot(o Vec3) *Expression {
	return scalarExpression(inner(xyzSlice(p), xyzSlice(o)))
}

func xyzSlice(v Vec3) []*sx.Expr {
	a := v.xyz()
	return a[:]
}

func norm3(a [3]*sx.Expr) *sx.Expr {
	return sx.Sqrt(inner(a[:], a[:]))
}

// ============================================================
// Vector3
// ============================================================

func (v *Vector3) X() *Expression { return v.At(0) }
func (v *Vector3) Y() *Expression { return v.At(1) }
func (v *Vector3) Z() *Expression { return v.At(2) }

// Set assigns component i (0, 1 or 2). The homogeneous entry is fixed.
func (v *Vector3) Set(i int, val any) {
	if i < 0 || i > 2 {
		panic(fmt.Sprintf("gospatial: Vector3 index %d out of range [0,3)", i))
	}
	v.m.SetAt(i, scalarOf(val))
}

func (v *Vector3) SetX(val any) { v.Set(0, val) }
func (v *Vector3) SetY(val any) { v.Set(1, val) }
func (v *Vector3) SetZ(val any) { v.Set(2, val) }

func (v *Vector3) Copy() *Vector3 {
	return &Vector3{base: base{v.m.Copy()}, ReferenceFrame: v.ReferenceFrame}
}

func (v *Vector3) Add(o *Vector3) *Vector3 { return Must(As[*Vector3](Add(v, o))) }
func (v *Vector3) Sub(o *Vector3) *Vector3 { return Must(As[*Vector3](Sub(v, o))) }
func (v *Vector3) Neg() *Vector3           { return Must(As[*Vector3](Neg(v))) }

// Mul multiplies every component by a scalar.
func (v *Vector3) Mul(a any) *Vector3 {
	return Must(As[*Vector3](Mul(v, scalarExpression(scalarOf(a)))))
}

// Div divides every component by a scalar.
func (v *Vector3) Div(a any) *Vector3 {
	return Must(As[*Vector3](Div(v, scalarExpression(scalarOf(a)))))
}

func (v *Vector3) Dot(o Vec3) *Expression {
	return scalarExpression(inner(xyzSlice(v), xyzSlice(o)))
}

// Cross returns v x o in v's frame.
func (v *Vector3) Cross(o *Vector3) *Vector3 {
	a, b := v.xyz(), o.xyz()
	out := vector3FromEntries(
		sx.Sub(sx.Mul(a[1], b[2]), sx.Mul(a[2], b[1])),
		sx.Sub(sx.Mul(a[2], b[0]), sx.Mul(a[0], b[2])),
		sx.Sub(sx.Mul(a[0], b[1]), sx.Mul(a[1], b[0])),
	)
	out.ReferenceFrame = v.ReferenceFrame
	return out
}

func (v *Vector3) Norm() *Expression { return scalarExpression(norm3(v.xyz())) }

// Scale rescales v in place to length a. A zero vector stays zero.
func (v *Vector3) Scale(a any) {
	s := scalarOf(a)
	n := norm3(v.xyz())
	f := safeDivide(s, n, sx.Zero())
	xyz := v.xyz()
	v.m = sx.Column(sx.Mul(xyz[0], f), sx.Mul(xyz[1], f), sx.Mul(xyz[2], f), sx.Zero())
}

// Normalized returns a unit-length copy.
func (v *Vector3) Normalized() *Vector3 {
	c := v.Copy()
	c.Scale(1)
	return c
}

// ToPoint reinterprets v as a point.
func (v *Vector3) ToPoint() *Point3 {
	xyz := v.xyz()
	p := point3FromEntries(xyz[0], xyz[1], xyz[2])
	p.ReferenceFrame = v.ReferenceFrame
	return p
}

// ToVector reinterprets p as a vector from the origin.
func (p *Point3) ToVector() *Vector3 {
	xyz := p.xyz()
	v := vector3FromEntries(xyz[0], xyz[1], xyz[2])
	v.ReferenceFrame = p.ReferenceFrame
	return v
}

// safeDivide returns num/den, or ifZero where den is zero. The zero
// branch never divides.
func safeDivide(num, den, ifZero *sx.Expr) *sx.Expr {
	isZero := sx.Eq(den, sx.Zero())
	safeDen := sx.IfElse(isZero, sx.One(), den)
	return sx.IfElse(isZero, ifZero, sx.Div(num, safeDen))
}
