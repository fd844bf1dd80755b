package gospatial

import (
	"fmt"

	"github.com/njchilds90/gospatial/sx"
)

// TransformationMatrix is a 4x4 homogeneous rigid transform mapping
// coordinates in ChildFrame to ReferenceFrame. The last row is fixed to
// (0, 0, 0, 1).
type TransformationMatrix struct {
	base
	ReferenceFrame Frame
	ChildFrame     Frame
}

// NewTransformationMatrix returns the identity.
func NewTransformationMatrix() *TransformationMatrix {
	return &TransformationMatrix{base: base{sx.Identity(4)}}
}

func (t *TransformationMatrix) sanitize() {
	for j := 0; j < 3; j++ {
		t.m.Set(3, j, sx.Zero())
	}
	t.m.Set(3, 3, sx.One())
}

// TransformationMatrixFrom converts a RotationMatrix, a
// TransformationMatrix or any 4x4 value.
func TransformationMatrixFrom(v any) (*TransformationMatrix, error) {
	switch x := v.(type) {
	case *RotationMatrix:
		return &TransformationMatrix{base: base{x.m.Copy()}, ReferenceFrame: x.ReferenceFrame}, nil
	case *TransformationMatrix:
		return x.Copy(), nil
	}
	m, k := classify(v)
	if k == KindUnsupported {
		return nil, fmt.Errorf("gospatial: TransformationMatrix: cannot convert %s", typeName(v))
	}
	if m.Rows() != 4 || m.Cols() != 4 {
		return nil, &ShapeError{Op: "TransformationMatrix", Want: "4x4", Got: shapeString(m.Rows(), m.Cols())}
	}
	t := &TransformationMatrix{base: base{m.Copy()}}
	t.sanitize()
	return t, nil
}

// TransformationFromPointRotation combines a translation and a rotation;
// either may be nil.
func TransformationFromPointRotation(p *Point3, r *RotationMatrix) *TransformationMatrix {
	t := NewTransformationMatrix()
	if r != nil {
		t.m = r.m.Copy()
		t.ReferenceFrame = r.ReferenceFrame
	}
	if p != nil {
		xyz := p.xyz()
		for i := 0; i < 3; i++ {
			t.m.Set(i, 3, xyz[i])
		}
	}
	return t
}

func TransformationFromXYZRPY(x, y, z, roll, pitch, yaw any) *TransformationMatrix {
	return TransformationFromPointRotation(NewPoint3(x, y, z), RotationMatrixFromRPY(roll, pitch, yaw))
}

func TransformationFromXYZQuaternion(x, y, z, qx, qy, qz, qw any) *TransformationMatrix {
	q := NewQuaternion(qx, qy, qz, qw)
	return TransformationFromPointRotation(NewPoint3(x, y, z), RotationMatrixFromQuaternion(q))
}

func (t *TransformationMatrix) Kind() Kind { return KindTransformationMatrix }

// Set assigns entry (row, col) of the upper 3x4 block.
func (t *TransformationMatrix) Set(row, col int, v any) {
	if row < 0 || row > 2 || col < 0 || col > 3 {
		panic(fmt.Sprintf("gospatial: TransformationMatrix index (%d,%d) outside the 3x4 block", row, col))
	}
	t.m.Set(row, col, scalarOf(v))
}

func (t *TransformationMatrix) X() *Expression { return t.Get(0, 3) }
func (t *TransformationMatrix) Y() *Expression { return t.Get(1, 3) }
func (t *TransformationMatrix) Z() *Expression { return t.Get(2, 3) }

func (t *TransformationMatrix) SetX(v any) { t.Set(0, 3, v) }
func (t *TransformationMatrix) SetY(v any) { t.Set(1, 3, v) }
func (t *TransformationMatrix) SetZ(v any) { t.Set(2, 3, v) }

func (t *TransformationMatrix) Copy() *TransformationMatrix {
	return &TransformationMatrix{base: base{t.m.Copy()}, ReferenceFrame: t.ReferenceFrame, ChildFrame: t.ChildFrame}
}

func (t *TransformationMatrix) DotPoint(p *Point3) *Point3 {
	return Must(As[*Point3](Dot(t, p)))
}

func (t *TransformationMatrix) DotVector(v *Vector3) *Vector3 {
	return Must(As[*Vector3](Dot(t, v)))
}

func (t *TransformationMatrix) DotRotation(r *RotationMatrix) *TransformationMatrix {
	return Must(As[*TransformationMatrix](Dot(t, r)))
}

func (t *TransformationMatrix) DotTransformation(o *TransformationMatrix) *TransformationMatrix {
	return Must(As[*TransformationMatrix](Dot(t, o)))
}

// Inverse returns the transform with swapped frames: rotation Rᵀ and
// translation -Rᵀp.
func (t *TransformationMatrix) Inverse() *TransformationMatrix {
	inv := &TransformationMatrix{
		base:           base{sx.Identity(4)},
		ReferenceFrame: t.ChildFrame,
		ChildFrame:     t.ReferenceFrame,
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			inv.m.Set(i, j, t.m.Get(j, i))
		}
	}
	for i := 0; i < 3; i++ {
		acc := sx.Zero()
		for k := 0; k < 3; k++ {
			acc = sx.Sub(acc, sx.Mul(inv.m.Get(i, k), t.m.Get(k, 3)))
		}
		inv.m.Set(i, 3, acc)
	}
	return inv
}

// ToPosition returns the translation as a point.
func (t *TransformationMatrix) ToPosition() *Point3 {
	p := point3FromEntries(t.m.Get(0, 3), t.m.Get(1, 3), t.m.Get(2, 3))
	p.ReferenceFrame = t.ReferenceFrame
	return p
}

// ToTranslation returns t with the rotation replaced by the identity.
func (t *TransformationMatrix) ToTranslation() *TransformationMatrix {
	out := TransformationFromPointRotation(t.ToPosition(), nil)
	out.ReferenceFrame = t.ReferenceFrame
	return out
}

// ToRotation returns the rotation block.
func (t *TransformationMatrix) ToRotation() *RotationMatrix {
	r := &RotationMatrix{base: base{t.m.Copy()}, ReferenceFrame: t.ReferenceFrame, ChildFrame: t.ChildFrame}
	r.sanitize()
	return r
}

func (t *TransformationMatrix) ToQuaternion() *Quaternion {
	q := quaternionFromMatrix(t.m)
	q.ReferenceFrame = t.ReferenceFrame
	return q
}
