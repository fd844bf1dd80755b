package gospatial

import "github.com/njchilds90/gospatial/sx"

// Cross returns u x v; either operand may be a Vector3, a Point3 or a
// 3x1/4x1 column.
func Cross(u, v any) (*Vector3, error) {
	a, err := Vector3From(u)
	if err != nil {
		return nil, err
	}
	b, err := Vector3From(v)
	if err != nil {
		return nil, err
	}
	return a.Cross(b), nil
}

// DistancePointToLineSegment returns the distance from p to the segment
// [start, end] and the nearest point on it.
func DistancePointToLineSegment(p, start, end *Point3) (*Expression, *Point3) {
	lineVec := end.SubPoint(start)
	pntVec := p.SubPoint(start)
	lineLen := lineVec.Norm()
	unit := lineVec.Div(lineLen)
	scaled := pntVec.Div(lineLen)
	t := limit(unit.Dot(scaled).m.At(0), sx.Zero(), sx.One())
	nearest := lineVec.Mul(scalarExpression(t))
	dist := nearest.Sub(pntVec).Norm()
	np := start.AddVector(nearest)
	np.ReferenceFrame = p.ReferenceFrame
	return dist, np
}

// DistancePointToLine returns the distance from p to the infinite line
// through linePoint along direction.
func DistancePointToLine(p, linePoint *Point3, direction *Vector3) *Expression {
	c := p.SubPoint(linePoint).Cross(direction)
	return scalarExpression(sx.Div(norm3(c.xyz()), norm3(direction.xyz())))
}

// DistancePointToPlane returns the distance from p to the plane through
// the origin spanned by v1 and v2, and the nearest point on it.
func DistancePointToPlane(p *Point3, v1, v2 *Vector3) (*Expression, *Point3) {
	normal := v1.Cross(v2)
	d := normal.Dot(p)
	normal.Scale(d)
	nearest := p.SubVector(normal)
	return nearest.SubPoint(p).Norm(), nearest
}

// DistancePointToPlaneSigned is DistancePointToPlane with the distance
// signed by the side of the plane given by v1 x v2.
func DistancePointToPlaneSigned(p *Point3, v1, v2 *Vector3) (*Expression, *Point3) {
	normal := v1.Cross(v2)
	normal = normal.Div(normal.Norm())
	d := normal.Dot(p)
	return d, p.SubVector(normal.Mul(d))
}

// ProjectToCone projects v onto the cone with the given axis and half
// angle theta. Vectors inside the cone are returned unchanged.
func ProjectToCone(v, axis *Vector3, theta any) *Vector3 {
	th := scalarOf(theta)
	a := axis.Div(axis.Norm())
	beta := v.Dot(a).m.At(0)
	normV := norm3(v.xyz())
	perp := v.Sub(a.Mul(scalarExpression(beta)))
	normPerp := norm3(perp.xyz())

	ct, st := sx.Cos(th), sx.Sin(th)
	s := sx.Add(sx.Mul(beta, ct), sx.Mul(normPerp, st))

	collinear := a.Mul(scalarExpression(sx.Mul(normV, ct)))
	boundary := a.Mul(scalarExpression(ct)).
		Add(perp.Div(scalarExpression(normPerp)).Mul(scalarExpression(st))).
		Mul(scalarExpression(s))
	onBoundary := selectVector(sx.Lt(normPerp, sx.Const(1e-8)), collinear, boundary)
	out := selectVector(sx.Ge(beta, sx.Mul(normV, ct)), v, onBoundary)
	out.ReferenceFrame = v.ReferenceFrame
	return out
}

func selectVector(cond *sx.Expr, a, b *Vector3) *Vector3 {
	x, y := a.xyz(), b.xyz()
	return vector3FromEntries(sx.IfElse(cond, x[0], y[0]), sx.IfElse(cond, x[1], y[1]), sx.IfElse(cond, x[2], y[2]))
}

// ProjectToPlane projects p onto the plane through the origin spanned by
// v1 and v2.
func ProjectToPlane(v1, v2 *Vector3, p *Point3) *Point3 {
	normal := v1.Cross(v2)
	normal.Scale(1)
	d := normal.Dot(p)
	out := p.SubVector(normal.Mul(d))
	out.ReferenceFrame = p.ReferenceFrame
	return out
}

// AngleBetweenVector returns the unsigned angle between v1 and v2.
func AngleBetweenVector(v1, v2 *Vector3) *Expression {
	c := sx.Div(v1.Dot(v2).m.At(0), sx.Mul(norm3(v1.xyz()), norm3(v2.xyz())))
	return scalarExpression(sx.Acos(limit(c, sx.Const(-1), sx.One())))
}

// RotationalError is the angle of r1 * r2⁻¹.
func RotationalError(r1, r2 *RotationMatrix) *Expression {
	return r1.DotRotation(r2.Inverse()).ToAngle(nil)
}

// CosineDistance is 1 - cos of the angle between two column vectors,
// ranging from 0 to 2.
func CosineDistance(v0, v1 any) *Expression {
	a, b := matrixOf(v0).Elements(), matrixOf(v1).Elements()
	d := sx.Mul(sx.Sqrt(inner(a, a)), sx.Sqrt(inner(b, b)))
	return scalarExpression(sx.Sub(sx.One(), sx.Div(inner(a, b), d)))
}

// EuclideanDistance is the norm of v1 - v2.
func EuclideanDistance(v1, v2 any) *Expression {
	return Norm(FromSX(sx.Zip(matrixOf(v1), matrixOf(v2), sx.Sub)))
}

// DistanceProjectedOnVector is (p1 - p2) · v.
func DistanceProjectedOnVector(p1, p2 *Point3, v *Vector3) *Expression {
	return p1.SubPoint(p2).Dot(v)
}

// DistanceVectorProjectedOnPlane removes from p1 - p2 its component
// along the plane normal.
func DistanceVectorProjectedOnPlane(p1, p2 *Point3, normal *Vector3) *Vector3 {
	d := p1.SubPoint(p2)
	return d.Sub(normal.Mul(d.Dot(normal)))
}

// NormalizeAxisAngle flips the axis for negative angles so that the
// returned angle is non-negative.
func NormalizeAxisAngle(axis *Vector3, angle any) (*Vector3, *Expression) {
	a := scalarOf(angle)
	neg := sx.Lt(a, sx.Zero())
	out := selectVector(neg, axis.Neg(), axis)
	out.ReferenceFrame = axis.ReferenceFrame
	return out, scalarExpression(sx.Fabs(a))
}

func AxisAngleFromRPY(roll, pitch, yaw any) (*Vector3, *Expression) {
	return QuaternionFromRPY(roll, pitch, yaw).ToAxisAngle()
}

// QuaternionSlerp interpolates between q1 (t=0) and q2 (t=1) along the
// shorter arc, taking q and -q as the same rotation.
func QuaternionSlerp(q1, q2 *Quaternion, t any) *Quaternion {
	tt := scalarOf(t)
	a, b := q1.m.Elements(), q2.m.Elements()
	cosHalf := inner(a, b)

	flip := sx.Gt(sx.Neg(cosHalf), sx.Zero())
	bf := make([]*sx.Expr, 4)
	for i := range b {
		bf[i] = sx.IfElse(flip, sx.Neg(b[i]), b[i])
	}
	cosHalf = sx.IfElse(flip, sx.Neg(cosHalf), cosHalf)

	if1 := sx.Sub(sx.Fabs(cosHalf), sx.One())
	cosHalf = sx.Fmax(sx.Const(-1), sx.Fmin(sx.One(), cosHalf))
	halfTheta := sx.Acos(cosHalf)
	sinHalf := sx.Sqrt(sx.Sub(sx.One(), sx.Mul(cosHalf, cosHalf)))
	if2 := sx.Sub(sx.Const(0.001), sx.Fabs(sinHalf))

	ra := safeDivide(sx.Sin(sx.Mul(sx.Sub(sx.One(), tt), halfTheta)), sinHalf, sx.Zero())
	rb := safeDivide(sx.Sin(sx.Mul(tt, halfTheta)), sinHalf, sx.Zero())
	half := sx.Const(0.5)

	out := make([]*sx.Expr, 4)
	for i := range out {
		mid := sx.Add(sx.Mul(half, a[i]), sx.Mul(half, bf[i]))
		blend := sx.Add(sx.Mul(ra, a[i]), sx.Mul(rb, bf[i]))
		out[i] = sx.IfElse(sx.Ge(if1, sx.Zero()), a[i], sx.IfElse(sx.Gt(if2, sx.Zero()), mid, blend))
	}
	q := quaternionFromEntries(out[0], out[1], out[2], out[3])
	q.ReferenceFrame = q1.ReferenceFrame
	return q
}

// Slerp interpolates between two column vectors of equal length.
func Slerp(v1, v2, t any) *Expression {
	a, b := matrixOf(v1), matrixOf(v2)
	tt := scalarOf(t)
	angle := sx.Acos(limit(inner(a.Elements(), b.Elements()), sx.Const(-1), sx.One()))
	isZero := sx.Eq(angle, sx.Zero())
	angle2 := sx.IfElse(isZero, sx.One(), angle)
	s := sx.Sin(angle2)
	wa := sx.Div(sx.Sin(sx.Mul(sx.Sub(sx.One(), tt), angle2)), s)
	wb := sx.Div(sx.Sin(sx.Mul(tt, angle2)), s)
	out := sx.Zip(a, b, func(x, y *sx.Expr) *sx.Expr {
		return sx.IfElse(isZero, x, sx.Add(sx.Mul(wa, x), sx.Mul(wb, y)))
	})
	return FromSX(out)
}

func QuaternionMultiply(q1, q2 *Quaternion) *Quaternion { return q1.Multiply(q2) }
func QuaternionConjugate(q *Quaternion) *Quaternion     { return q.Conjugate() }
func QuaternionDiff(q1, q2 *Quaternion) *Quaternion     { return q1.Diff(q2) }
