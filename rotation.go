package gospatial

import (
	"errors"
	"fmt"

	"github.com/njchilds90/gospatial/sx"
)

// gimbalEpsilon separates the regular and the gimbal-lock branch of
// ToRPY.
const gimbalEpsilon = 4 * 0x1p-52

// RotationMatrix is a 4x4 homogeneous rotation. The last row and column
// are fixed to (0, 0, 0, 1).
type RotationMatrix struct {
	base
	ReferenceFrame Frame
	ChildFrame     Frame
}

// NewRotationMatrix returns the identity.
func NewRotationMatrix() *RotationMatrix {
	return &RotationMatrix{base: base{sx.Identity(4)}}
}

// sanitize re-derives the homogeneous row and column.
func (r *RotationMatrix) sanitize() {
	for i := 0; i < 3; i++ {
		r.m.Set(i, 3, sx.Zero())
		r.m.Set(3, i, sx.Zero())
	}
	r.m.Set(3, 3, sx.One())
}

// RotationMatrixFrom converts a Quaternion, a RotationMatrix, a
// TransformationMatrix (rotation block) or any 4x4 value. Reference
// frames of geometric sources are kept.
func RotationMatrixFrom(v any) (*RotationMatrix, error) {
	switch x := v.(type) {
	case *Quaternion:
		return RotationMatrixFromQuaternion(x), nil
	case *RotationMatrix:
		return &RotationMatrix{base: base{x.m.Copy()}, ReferenceFrame: x.ReferenceFrame, ChildFrame: x.ChildFrame}, nil
	case *TransformationMatrix:
		return x.ToRotation(), nil
	}
	m, k := classify(v)
	if k == KindUnsupported {
		return nil, fmt.Errorf("gospatial: RotationMatrix: cannot convert %s", typeName(v))
	}
	if m.Rows() != 4 || m.Cols() != 4 {
		return nil, &ShapeError{Op: "RotationMatrix", Want: "4x4", Got: shapeString(m.Rows(), m.Cols())}
	}
	r := &RotationMatrix{base: base{m.Copy()}}
	r.sanitize()
	return r, nil
}

func rotationFromBlock(block [3][3]*sx.Expr) *RotationMatrix {
	m := sx.Identity(4)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, block[i][j])
		}
	}
	return &RotationMatrix{base: base{m}}
}

// RotationMatrixFromAxisAngle applies Rodrigues' formula. axis must be a
// unit vector.
func RotationMatrixFromAxisAngle(axis *Vector3, angle any) *RotationMatrix {
	a := axis.xyz()
	th := scalarOf(angle)
	ct, st := sx.Cos(th), sx.Sin(th)
	vt := sx.Sub(sx.One(), ct)

	var mvt, mst [3]*sx.Expr
	for i := range a {
		mvt[i] = sx.Mul(a[i], vt)
		mst[i] = sx.Mul(a[i], st)
	}
	xy := sx.Mul(mvt[0], a[1])
	xz := sx.Mul(mvt[0], a[2])
	yz := sx.Mul(mvt[1], a[2])

	r := rotationFromBlock([3][3]*sx.Expr{
		{sx.Add(ct, sx.Mul(mvt[0], a[0])), sx.Add(sx.Neg(mst[2]), xy), sx.Add(mst[1], xz)},
		{sx.Add(mst[2], xy), sx.Add(ct, sx.Mul(mvt[1], a[1])), sx.Add(sx.Neg(mst[0]), yz)},
		{sx.Add(sx.Neg(mst[1]), xz), sx.Add(mst[0], yz), sx.Add(ct, sx.Mul(mvt[2], a[2]))},
	})
	r.ReferenceFrame = axis.ReferenceFrame
	return r
}

// RotationMatrixFromQuaternion expects a unit quaternion.
func RotationMatrixFromQuaternion(q *Quaternion) *RotationMatrix {
	x, y, z, w := q.entries()
	x2, y2, z2, w2 := sx.Mul(x, x), sx.Mul(y, y), sx.Mul(z, z), sx.Mul(w, w)
	two := sx.Const(2)
	tw := func(a, b *sx.Expr) *sx.Expr { return sx.Mul(two, sx.Mul(a, b)) }

	r := rotationFromBlock([3][3]*sx.Expr{
		{sx.Sub(sx.Sub(sx.Add(w2, x2), y2), z2), sx.Sub(tw(x, y), tw(w, z)), sx.Add(tw(x, z), tw(w, y))},
		{sx.Add(tw(x, y), tw(w, z)), sx.Sub(sx.Add(sx.Sub(w2, x2), y2), z2), sx.Sub(tw(y, z), tw(w, x))},
		{sx.Sub(tw(x, z), tw(w, y)), sx.Add(tw(y, z), tw(w, x)), sx.Add(sx.Sub(sx.Sub(w2, x2), y2), z2)},
	})
	r.ReferenceFrame = q.ReferenceFrame
	return r
}

// RotationMatrixFromRPY composes yaw(z) * pitch(y) * roll(x).
func RotationMatrixFromRPY(roll, pitch, yaw any) *RotationMatrix {
	r, p, y := scalarOf(roll), scalarOf(pitch), scalarOf(yaw)
	cr, sr := sx.Cos(r), sx.Sin(r)
	cp, sp := sx.Cos(p), sx.Sin(p)
	cy, sy := sx.Cos(y), sx.Sin(y)
	mul := func(f ...*sx.Expr) *sx.Expr {
		acc := sx.One()
		for _, e := range f {
			acc = sx.Mul(acc, e)
		}
		return acc
	}
	return rotationFromBlock([3][3]*sx.Expr{
		{mul(cy, cp), sx.Sub(mul(cy, sp, sr), mul(sy, cr)), sx.Add(mul(sy, sr), mul(cy, sp, cr))},
		{mul(sy, cp), sx.Add(mul(cy, cr), mul(sy, sp, sr)), sx.Sub(mul(sy, sp, cr), mul(cy, sr))},
		{sx.Neg(sp), mul(cp, sr), mul(cp, cr)},
	})
}

var errVectorsMissing = errors.New("gospatial: RotationMatrixFromVectors needs at least two axes")

// RotationMatrixFromVectors builds a frame from two or three axes. A nil
// axis is completed with a cross product; all columns are normalized.
// The inputs are not modified.
func RotationMatrixFromVectors(x, y, z *Vector3) (*RotationMatrix, error) {
	norm := func(v *Vector3) *Vector3 {
		if v == nil {
			return nil
		}
		return v.Normalized()
	}
	x, y, z = norm(x), norm(y), norm(z)
	switch {
	case x != nil && y != nil && z == nil:
		z = x.Cross(y).Normalized()
	case x != nil && y == nil && z != nil:
		y = z.Cross(x).Normalized()
	case x == nil && y != nil && z != nil:
		x = y.Cross(z).Normalized()
	case x == nil || y == nil || z == nil:
		return nil, errVectorsMissing
	}
	a, b, c := x.xyz(), y.xyz(), z.xyz()
	r := rotationFromBlock([3][3]*sx.Expr{
		{a[0], b[0], c[0]},
		{a[1], b[1], c[1]},
		{a[2], b[2], c[2]},
	})
	r.Normalize()
	return r, nil
}

func (r *RotationMatrix) Kind() Kind { return KindRotationMatrix }

// Set assigns entry (row, col) of the 3x3 block.
func (r *RotationMatrix) Set(row, col int, v any) {
	if row < 0 || row > 2 || col < 0 || col > 2 {
		panic(fmt.Sprintf("gospatial: RotationMatrix index (%d,%d) outside the 3x3 block", row, col))
	}
	r.m.Set(row, col, scalarOf(v))
}

func (r *RotationMatrix) Copy() *RotationMatrix {
	return &RotationMatrix{base: base{r.m.Copy()}, ReferenceFrame: r.ReferenceFrame, ChildFrame: r.ChildFrame}
}

func (r *RotationMatrix) column(j int) *Vector3 {
	v := vector3FromEntries(r.m.Get(0, j), r.m.Get(1, j), r.m.Get(2, j))
	v.ReferenceFrame = r.ReferenceFrame
	return v
}

func (r *RotationMatrix) XVector() *Vector3 { return r.column(0) }
func (r *RotationMatrix) YVector() *Vector3 { return r.column(1) }
func (r *RotationMatrix) ZVector() *Vector3 { return r.column(2) }

func (r *RotationMatrix) DotVector(v *Vector3) *Vector3 {
	return Must(As[*Vector3](Dot(r, v)))
}

func (r *RotationMatrix) DotPoint(p *Point3) *Point3 {
	return Must(As[*Point3](Dot(r, p)))
}

func (r *RotationMatrix) DotRotation(o *RotationMatrix) *RotationMatrix {
	return Must(As[*RotationMatrix](Dot(r, o)))
}

func (r *RotationMatrix) DotTransformation(t *TransformationMatrix) *TransformationMatrix {
	return Must(As[*TransformationMatrix](Dot(r, t)))
}

// T returns the transpose, which is also the inverse. The frames swap as
// in TransformationMatrix.Inverse.
func (r *RotationMatrix) T() *RotationMatrix {
	return &RotationMatrix{base: base{r.m.Transpose()}, ReferenceFrame: r.ChildFrame, ChildFrame: r.ReferenceFrame}
}

func (r *RotationMatrix) Inverse() *RotationMatrix { return r.T() }

// Normalize rescales each column of the 3x3 block to unit length in
// place.
func (r *RotationMatrix) Normalize() {
	for j := 0; j < 3; j++ {
		col := [3]*sx.Expr{r.m.Get(0, j), r.m.Get(1, j), r.m.Get(2, j)}
		f := safeDivide(sx.One(), norm3(col), sx.Zero())
		for i := 0; i < 3; i++ {
			r.m.Set(i, j, sx.Mul(col[i], f))
		}
	}
}

// ToRPY extracts roll, pitch and yaw, switching to a second formula for
// roll when the pitch is at +-90 degrees.
func (r *RotationMatrix) ToRPY() (roll, pitch, yaw *Expression) {
	return rpyOf(r.m)
}

func rpyOf(m *sx.Matrix) (roll, pitch, yaw *Expression) {
	at := m.Get
	const i, j, k = 0, 1, 2
	gz := func(cond, a, b *sx.Expr) *sx.Expr { return sx.IfElse(sx.Gt(cond, sx.Zero()), a, b) }

	cy := sx.Sqrt(sx.Add(sx.Mul(at(i, i), at(i, i)), sx.Mul(at(j, i), at(j, i))))
	if0 := sx.Sub(cy, sx.Const(gimbalEpsilon))
	ax := gz(if0, sx.Atan2(at(k, j), at(k, k)), sx.Atan2(sx.Neg(at(j, k)), at(j, j)))
	ay := sx.Atan2(sx.Neg(at(k, i)), cy)
	az := gz(if0, sx.Atan2(at(j, i), at(i, i)), sx.Zero())
	return scalarExpression(ax), scalarExpression(ay), scalarExpression(az)
}

func (r *RotationMatrix) ToQuaternion() *Quaternion { return QuaternionFromRotationMatrix(r) }

func (r *RotationMatrix) ToAxisAngle() (*Vector3, *Expression) {
	return r.ToQuaternion().ToAxisAngle()
}

// ToAngle returns the rotation angle. If hint is non-nil the angle is
// negated where hint(axis) is not positive, then wrapped to [-pi, pi].
func (r *RotationMatrix) ToAngle(hint func(axis *Vector3) *Expression) *Expression {
	axis, angle := r.ToAxisAngle()
	if hint == nil {
		return angle
	}
	a := angle.m.At(0)
	signed := sx.IfElse(sx.Gt(scalarOf(hint(axis)), sx.Zero()), a, sx.Neg(a))
	return scalarExpression(normalizeAngle(signed))
}
