package gospatial

import (
	"fmt"

	"github.com/njchilds90/gospatial/sx"
)

// Quaternion is a 4x1 (x, y, z, w) orientation. Unit norm is expected but
// not enforced.
type Quaternion struct {
	base
	ReferenceFrame Frame
}

func quaternionFromEntries(x, y, z, w *sx.Expr) *Quaternion {
	return &Quaternion{base: base{sx.Column(x, y, z, w)}}
}

func NewQuaternion(x, y, z, w any) *Quaternion {
	return quaternionFromEntries(scalarOf(x), scalarOf(y), scalarOf(z), scalarOf(w))
}

// IdentityQuaternion returns (0, 0, 0, 1).
func IdentityQuaternion() *Quaternion { return NewQuaternion(0, 0, 0, 1) }

// QuaternionFrom converts a 4x1 column or a Quaternion.
func QuaternionFrom(v any) (*Quaternion, error) {
	m, k := classify(v)
	if k == KindUnsupported {
		return nil, fmt.Errorf("gospatial: Quaternion: cannot convert %s", typeName(v))
	}
	if !m.IsColumn() || m.Rows() != 4 {
		return nil, &ShapeError{Op: "Quaternion", Want: "4x1", Got: shapeString(m.Rows(), m.Cols())}
	}
	q := quaternionFromEntries(m.At(0), m.At(1), m.At(2), m.At(3))
	q.ReferenceFrame = frameOf(v)
	return q, nil
}

// QuaternionFromAxisAngle expects a unit axis.
func QuaternionFromAxisAngle(axis *Vector3, angle any) *Quaternion {
	half := sx.Div(scalarOf(angle), sx.Const(2))
	s := sx.Sin(half)
	a := axis.xyz()
	return quaternionFromEntries(sx.Mul(a[0], s), sx.Mul(a[1], s), sx.Mul(a[2], s), sx.Cos(half))
}

func QuaternionFromRPY(roll, pitch, yaw any) *Quaternion {
	half := sx.Const(0.5)
	r, p, y := sx.Mul(scalarOf(roll), half), sx.Mul(scalarOf(pitch), half), sx.Mul(scalarOf(yaw), half)
	cr, sr := sx.Cos(r), sx.Sin(r)
	cp, sp := sx.Cos(p), sx.Sin(p)
	cy, sy := sx.Cos(y), sx.Sin(y)

	cc := sx.Mul(cr, cy)
	cs := sx.Mul(cr, sy)
	sc := sx.Mul(sr, cy)
	ss := sx.Mul(sr, sy)

	return quaternionFromEntries(
		sx.Sub(sx.Mul(cp, sc), sx.Mul(sp, cs)),
		sx.Add(sx.Mul(cp, ss), sx.Mul(sp, cc)),
		sx.Sub(sx.Mul(cp, cs), sx.Mul(sp, sc)),
		sx.Add(sx.Mul(cp, cc), sx.Mul(sp, ss)),
	)
}

// QuaternionFromRotationMatrix picks the largest of the trace and the
// diagonal entries with symbolic conditionals, so the result stays well
// conditioned near half turns.
func QuaternionFromRotationMatrix(r *RotationMatrix) *Quaternion {
	q := quaternionFromMatrix(r.m)
	q.ReferenceFrame = r.ReferenceFrame
	return q
}

func quaternionFromMatrix(r *sx.Matrix) *Quaternion {
	at := r.Get
	gz := func(cond, a, b *sx.Expr) *sx.Expr { return sx.IfElse(sx.Gt(cond, sx.Zero()), a, b) }

	t := r.Trace()
	if0 := sx.Sub(t, at(3, 3))
	if1 := sx.Sub(at(1, 1), at(0, 0))

	mii := gz(if1, at(1, 1), at(0, 0))
	mij := gz(if1, at(1, 2), at(0, 1))
	mik := gz(if1, at(1, 0), at(0, 2))
	mji := gz(if1, at(2, 1), at(1, 0))
	mjj := gz(if1, at(2, 2), at(1, 1))
	mjk := gz(if1, at(2, 0), at(1, 2))
	mki := gz(if1, at(0, 1), at(2, 0))
	mkj := gz(if1, at(0, 2), at(2, 1))
	mkk := gz(if1, at(0, 0), at(2, 2))

	if2 := sx.Sub(at(2, 2), mii)

	mii = gz(if2, at(2, 2), mii)
	mij = gz(if2, at(2, 0), mij)
	mik = gz(if2, at(2, 1), mik)
	mji = gz(if2, at(0, 2), mji)
	mjj = gz(if2, at(0, 0), mjj)
	mjk = gz(if2, at(0, 1), mjk)
	mki = gz(if2, at(1, 2), mki)
	mkj = gz(if2, at(1, 0), mkj)
	mkk = gz(if2, at(1, 1), mkk)

	t = gz(if0, t, sx.Add(sx.Sub(mii, sx.Add(mjj, mkk)), at(3, 3)))
	ijji := sx.Add(mij, mji)
	kiik := sx.Add(mki, mik)

	x := gz(if0, sx.Sub(at(2, 1), at(1, 2)), gz(if2, ijji, gz(if1, kiik, t)))
	y := gz(if0, sx.Sub(at(0, 2), at(2, 0)), gz(if2, kiik, gz(if1, t, ijji)))
	z := gz(if0, sx.Sub(at(1, 0), at(0, 1)), gz(if2, t, gz(if1, ijji, kiik)))
	w := gz(if0, t, sx.Sub(mkj, mjk))

	f := sx.Div(sx.Const(0.5), sx.Sqrt(sx.Mul(t, at(3, 3))))
	return quaternionFromEntries(sx.Mul(x, f), sx.Mul(y, f), sx.Mul(z, f), sx.Mul(w, f))
}

func (q *Quaternion) Kind() Kind { return KindQuaternion }

func (q *Quaternion) X() *Expression { return q.At(0) }
func (q *Quaternion) Y() *Expression { return q.At(1) }
func (q *Quaternion) Z() *Expression { return q.At(2) }
func (q *Quaternion) W() *Expression { return q.At(3) }

// Set assigns component i of (x, y, z, w).
func (q *Quaternion) Set(i int, v any) {
	if i < 0 || i > 3 {
		panic(fmt.Sprintf("gospatial: Quaternion index %d out of range [0,4)", i))
	}
	q.m.SetAt(i, scalarOf(v))
}

func (q *Quaternion) SetX(v any) { q.Set(0, v) }
func (q *Quaternion) SetY(v any) { q.Set(1, v) }
func (q *Quaternion) SetZ(v any) { q.Set(2, v) }
func (q *Quaternion) SetW(v any) { q.Set(3, v) }

func (q *Quaternion) Copy() *Quaternion {
	return &Quaternion{base: base{q.m.Copy()}, ReferenceFrame: q.ReferenceFrame}
}

func (q *Quaternion) entries() (x, y, z, w *sx.Expr) {
	return q.m.At(0), q.m.At(1), q.m.At(2), q.m.At(3)
}

func (q *Quaternion) Neg() *Quaternion {
	return &Quaternion{base: base{q.m.Neg()}, ReferenceFrame: q.ReferenceFrame}
}

func (q *Quaternion) Conjugate() *Quaternion {
	x, y, z, w := q.entries()
	out := quaternionFromEntries(sx.Neg(x), sx.Neg(y), sx.Neg(z), w)
	out.ReferenceFrame = q.ReferenceFrame
	return out
}

// Multiply returns the Hamilton product q*p.
func (q *Quaternion) Multiply(p *Quaternion) *Quaternion {
	x, y, z, w := q.entries()
	px, py, pz, pw := p.entries()
	sum := func(terms ...*sx.Expr) *sx.Expr {
		acc := sx.Zero()
		for _, t := range terms {
			acc = sx.Add(acc, t)
		}
		return acc
	}
	out := quaternionFromEntries(
		sum(sx.Mul(x, pw), sx.Mul(y, pz), sx.Neg(sx.Mul(z, py)), sx.Mul(w, px)),
		sum(sx.Neg(sx.Mul(x, pz)), sx.Mul(y, pw), sx.Mul(z, px), sx.Mul(w, py)),
		sum(sx.Mul(x, py), sx.Neg(sx.Mul(y, px)), sx.Mul(z, pw), sx.Mul(w, pz)),
		sum(sx.Neg(sx.Mul(x, px)), sx.Neg(sx.Mul(y, py)), sx.Neg(sx.Mul(z, pz)), sx.Mul(w, pw)),
	)
	out.ReferenceFrame = q.ReferenceFrame
	return out
}

// Diff returns p such that q*p = other.
func (q *Quaternion) Diff(other *Quaternion) *Quaternion {
	return q.Conjugate().Multiply(other)
}

func (q *Quaternion) Dot(p *Quaternion) *Expression {
	return scalarExpression(inner(q.m.Elements(), p.m.Elements()))
}

func (q *Quaternion) Norm() *Expression {
	e := q.m.Elements()
	return scalarExpression(sx.Sqrt(inner(e, e)))
}

// Normalize divides q by its norm in place.
func (q *Quaternion) Normalize() {
	e := q.m.Elements()
	n := sx.Sqrt(inner(e, e))
	q.m = q.m.Map(func(v *sx.Expr) *sx.Expr { return sx.Div(v, n) })
}

// Normalized returns a unit-norm copy.
func (q *Quaternion) Normalized() *Quaternion {
	c := q.Copy()
	c.Normalize()
	return c
}

// ToAxisAngle works on a normalized copy. Where the rotation is the
// identity the axis defaults to (0, 0, 1) and the angle to 0.
func (q *Quaternion) ToAxisAngle() (*Vector3, *Expression) {
	x, y, z, w := q.Normalized().entries()
	w2 := sx.Sqrt(sx.Sub(sx.One(), sx.Mul(w, w)))
	eqz := func(cond, a, b *sx.Expr) *sx.Expr { return sx.IfElse(cond, b, a) }
	m := eqz(w2, sx.One(), w2)
	angle := eqz(w2, sx.Zero(), sx.Mul(sx.Const(2), sx.Acos(limit(w, sx.Const(-1), sx.One()))))
	axis := vector3FromEntries(
		eqz(w2, sx.Zero(), sx.Div(x, m)),
		eqz(w2, sx.Zero(), sx.Div(y, m)),
		eqz(w2, sx.One(), sx.Div(z, m)),
	)
	axis.ReferenceFrame = q.ReferenceFrame
	return axis, scalarExpression(angle)
}

func (q *Quaternion) ToRotationMatrix() *RotationMatrix {
	return RotationMatrixFromQuaternion(q)
}

// ToRPY returns roll, pitch and yaw.
func (q *Quaternion) ToRPY() (roll, pitch, yaw *Expression) {
	return q.ToRotationMatrix().ToRPY()
}

func limit(x, lo, hi *sx.Expr) *sx.Expr {
	return sx.Fmax(lo, sx.Fmin(hi, x))
}
