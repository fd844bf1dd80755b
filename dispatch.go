package gospatial

import (
	"fmt"

	"github.com/njchilds90/gospatial/sx"
)

// Operator is a binary operator family of the dispatch table.
type Operator uint8

const (
	OpAdd Operator = iota
	OpSub
	OpMul
	OpDiv
	OpPow
	OpDot
)

var operatorSymbols = [...]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpPow: "**",
	OpDot: "dot",
}

func (o Operator) String() string {
	if int(o) < len(operatorSymbols) {
		return operatorSymbols[o]
	}
	return fmt.Sprintf("Operator(%d)", o)
}

// Operators lists every operator family in the table.
func Operators() []Operator { return []Operator{OpAdd, OpSub, OpMul, OpDiv, OpPow, OpDot} }

// Kinds lists every operand kind the table knows about.
func Kinds() []Kind {
	return []Kind{
		KindNumber, KindSymbol, KindExpression, KindPoint3, KindVector3,
		KindQuaternion, KindRotationMatrix, KindTransformationMatrix,
	}
}

type dispatchKey struct {
	op          Operator
	left, right Kind
}

var dispatchTable = buildDispatchTable()

func buildDispatchTable() map[dispatchKey]Kind {
	t := map[dispatchKey]Kind{}
	scalars := []Kind{KindNumber, KindSymbol, KindExpression}
	arith := []Operator{OpAdd, OpSub, OpMul, OpDiv, OpPow}

	for _, op := range arith {
		for _, a := range scalars {
			for _, b := range scalars {
				t[dispatchKey{op, a, b}] = KindExpression
			}
			// scalars act component-wise on points and vectors
			for _, g := range []Kind{KindPoint3, KindVector3} {
				t[dispatchKey{op, a, g}] = g
				t[dispatchKey{op, g, a}] = g
			}
		}
	}

	t[dispatchKey{OpAdd, KindPoint3, KindVector3}] = KindPoint3
	t[dispatchKey{OpAdd, KindVector3, KindPoint3}] = KindPoint3
	t[dispatchKey{OpAdd, KindVector3, KindVector3}] = KindVector3
	t[dispatchKey{OpSub, KindPoint3, KindPoint3}] = KindVector3
	t[dispatchKey{OpSub, KindPoint3, KindVector3}] = KindPoint3
	t[dispatchKey{OpSub, KindVector3, KindPoint3}] = KindPoint3
	t[dispatchKey{OpSub, KindVector3, KindVector3}] = KindVector3

	t[dispatchKey{OpDot, KindExpression, KindExpression}] = KindExpression
	for _, a := range []Kind{KindPoint3, KindVector3} {
		for _, b := range []Kind{KindPoint3, KindVector3} {
			t[dispatchKey{OpDot, a, b}] = KindExpression
		}
	}
	for _, m := range []Kind{KindRotationMatrix, KindTransformationMatrix} {
		t[dispatchKey{OpDot, m, KindPoint3}] = KindPoint3
		t[dispatchKey{OpDot, m, KindVector3}] = KindVector3
	}
	t[dispatchKey{OpDot, KindRotationMatrix, KindRotationMatrix}] = KindRotationMatrix
	t[dispatchKey{OpDot, KindTransformationMatrix, KindTransformationMatrix}] = KindTransformationMatrix
	t[dispatchKey{OpDot, KindRotationMatrix, KindTransformationMatrix}] = KindTransformationMatrix
	t[dispatchKey{OpDot, KindTransformationMatrix, KindRotationMatrix}] = KindTransformationMatrix
	t[dispatchKey{OpDot, KindQuaternion, KindQuaternion}] = KindExpression
	return t
}

// ResultKind reports the kind produced by applying op to operands of the
// given kinds, and false if the combination is illegal.
func ResultKind(op Operator, left, right Kind) (Kind, bool) {
	k, ok := dispatchTable[dispatchKey{op, left, right}]
	return k, ok
}

var elementwise = map[Operator]func(a, b *sx.Expr) *sx.Expr{
	OpAdd: sx.Add,
	OpSub: sx.Sub,
	OpMul: sx.Mul,
	OpDiv: sx.Div,
	OpPow: sx.Pow,
}

func Add(a, b any) (SymbolicValue, error) { return Apply(OpAdd, a, b) }
func Sub(a, b any) (SymbolicValue, error) { return Apply(OpSub, a, b) }
func Mul(a, b any) (SymbolicValue, error) { return Apply(OpMul, a, b) }
func Div(a, b any) (SymbolicValue, error) { return Apply(OpDiv, a, b) }
func Pow(a, b any) (SymbolicValue, error) { return Apply(OpPow, a, b) }
func Dot(a, b any) (SymbolicValue, error) { return Apply(OpDot, a, b) }

// Apply evaluates a op b through the dispatch table. Elementwise
// operators broadcast 1x1 operands.
func Apply(op Operator, a, b any) (SymbolicValue, error) {
	am, ak := classify(a)
	bm, bk := classify(b)
	rk, ok := ResultKind(op, ak, bk)
	if !ok {
		return nil, newTypeError(op.String(), a, b)
	}
	var m *sx.Matrix
	if op == OpDot {
		var err error
		if m, err = dotMatrix(ak, am, bk, bm); err != nil {
			return nil, err
		}
	} else {
		if !sx.Broadcastable(am, bm) {
			return nil, &ShapeError{
				Op:   op.String(),
				Want: shapeString(am.Rows(), am.Cols()) + " or 1x1",
				Got:  shapeString(bm.Rows(), bm.Cols()),
			}
		}
		m = sx.Zip(am, bm, elementwise[op])
	}
	return wrap(rk, m, firstFrame(frameOf(a), frameOf(b)), childFrameOf(b)), nil
}

func dotMatrix(ak Kind, am *sx.Matrix, bk Kind, bm *sx.Matrix) (*sx.Matrix, error) {
	switch {
	case ak == KindExpression && bk == KindExpression:
		if am.IsColumn() && bm.IsColumn() {
			if am.Rows() != bm.Rows() {
				return nil, &ShapeError{Op: "dot", Want: fmt.Sprintf("%dx1", am.Rows()), Got: shapeString(bm.Rows(), bm.Cols())}
			}
			return am.Transpose().MatMul(bm), nil
		}
		if am.Cols() != bm.Rows() {
			return nil, &ShapeError{Op: "dot", Want: fmt.Sprintf("%d rows", am.Cols()), Got: shapeString(bm.Rows(), bm.Cols())}
		}
		return am.MatMul(bm), nil
	case ak == KindQuaternion:
		return sx.Scalar(inner(am.Elements(), bm.Elements())), nil
	case ak == KindPoint3 || ak == KindVector3:
		return sx.Scalar(inner(am.Elements()[:3], bm.Elements()[:3])), nil
	}
	return am.MatMul(bm), nil
}

func inner(a, b []*sx.Expr) *sx.Expr {
	acc := sx.Zero()
	for i := range a {
		acc = sx.Add(acc, sx.Mul(a[i], b[i]))
	}
	return acc
}

// wrap builds a value of kind k around m, re-deriving the homogeneous
// entries of geometric kinds.
func wrap(k Kind, m *sx.Matrix, frame, child Frame) SymbolicValue {
	switch k {
	case KindPoint3:
		p := point3FromEntries(m.At(0), m.At(1), m.At(2))
		p.ReferenceFrame = frame
		return p
	case KindVector3:
		v := vector3FromEntries(m.At(0), m.At(1), m.At(2))
		v.ReferenceFrame = frame
		return v
	case KindQuaternion:
		return &Quaternion{base: base{m}, ReferenceFrame: frame}
	case KindRotationMatrix:
		r := &RotationMatrix{base: base{m}, ReferenceFrame: frame, ChildFrame: child}
		r.sanitize()
		return r
	case KindTransformationMatrix:
		t := &TransformationMatrix{base: base{m}, ReferenceFrame: frame, ChildFrame: child}
		t.sanitize()
		return t
	}
	return FromSX(m)
}

// Neg negates a scalar, point, vector or quaternion.
func Neg(a any) (SymbolicValue, error) {
	m, k := classify(a)
	switch {
	case k.IsScalar():
		return FromSX(m.Neg()), nil
	case k == KindPoint3 || k == KindVector3 || k == KindQuaternion:
		return wrap(k, m.Neg(), frameOf(a), nil), nil
	}
	return nil, &TypeError{Op: "unary -", Left: typeName(a)}
}

// ============================================================
// Comparisons
// ============================================================

func compare(name string, f func(a, b *sx.Expr) *sx.Expr, a, b any) (*Expression, error) {
	am, ak := classify(a)
	bm, bk := classify(b)
	if !ak.IsScalar() || !bk.IsScalar() {
		return nil, newTypeError(name, a, b)
	}
	if !sx.Broadcastable(am, bm) {
		return nil, &ShapeError{Op: name, Want: shapeString(am.Rows(), am.Cols()), Got: shapeString(bm.Rows(), bm.Cols())}
	}
	return FromSX(sx.Zip(am, bm, f)), nil
}

func Less(a, b any) (*Expression, error)         { return compare("<", sx.Lt, a, b) }
func LessEqual(a, b any) (*Expression, error)    { return compare("<=", sx.Le, a, b) }
func Greater(a, b any) (*Expression, error)      { return compare(">", sx.Gt, a, b) }
func GreaterEqual(a, b any) (*Expression, error) { return compare(">=", sx.Ge, a, b) }
func Equal(a, b any) (*Expression, error)        { return compare("==", sx.Eq, a, b) }
func NotEqual(a, b any) (*Expression, error)     { return compare("!=", sx.Ne, a, b) }
