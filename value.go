package gospatial

import (
	"fmt"

	"github.com/njchilds90/gospatial/sx"
)

// Kind identifies the concrete type of an operand for dispatch.
type Kind uint8

const (
	KindUnsupported Kind = iota
	KindNumber
	KindSymbol
	KindExpression
	KindPoint3
	KindVector3
	KindQuaternion
	KindRotationMatrix
	KindTransformationMatrix
)

var kindNames = [...]string{
	KindUnsupported:          "Unsupported",
	KindNumber:               "Number",
	KindSymbol:               "Symbol",
	KindExpression:           "Expression",
	KindPoint3:               "Point3",
	KindVector3:              "Vector3",
	KindQuaternion:           "Quaternion",
	KindRotationMatrix:       "RotationMatrix",
	KindTransformationMatrix: "TransformationMatrix",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsScalar reports whether k is a number, symbol or expression.
func (k Kind) IsScalar() bool {
	return k == KindNumber || k == KindSymbol || k == KindExpression
}

// IsGeometric reports whether k is one of the frame-carrying types.
func (k Kind) IsGeometric() bool {
	return k >= KindPoint3 && k <= KindTransformationMatrix
}

// SymbolicValue is implemented by Symbol, Expression and the geometric types.
type SymbolicValue interface {
	Kind() Kind
	// SX returns the underlying matrix. Mutating it mutates the value.
	SX() *sx.Matrix
	Shape() (rows, cols int)
	String() string
}

// Frame is an opaque coordinate-frame identifier. It is stored and
// propagated but never inspected.
type Frame any

// ============================================================
// Shared matrix behaviour
// ============================================================

type base struct {
	m *sx.Matrix
}

func (b base) SX() *sx.Matrix               { return b.m }
func (b base) Shape() (rows, cols int)      { return b.m.Rows(), b.m.Cols() }
func (b base) String() string               { return b.m.String() }
func (b base) Len() int                     { return b.m.Rows() }
func (b base) Numel() int                   { return b.m.Numel() }
func (b base) IsConstant() bool             { return b.m.IsConstant() }
func (b base) FreeSymbols() []*Symbol       { return defaultRegistry.freeSymbols(b.m) }
func (b base) Get(row, col int) *Expression { return scalarExpression(b.m.Get(row, col)) }

// At returns entry k in column-major order.
func (b base) At(k int) *Expression { return scalarExpression(b.m.At(k)) }

// Slice returns the sub-matrix at the given row and column indices.
func (b base) Slice(rows, cols []int) *Expression {
	return &Expression{base{b.m.Slice(rows, cols)}}
}

// Evaluate returns the entries of a constant value in row-major order.
func (b base) Evaluate() ([]float64, error) {
	out := make([]float64, 0, b.m.Numel())
	for i := 0; i < b.m.Rows(); i++ {
		for j := 0; j < b.m.Cols(); j++ {
			v, ok := b.m.Get(i, j).Eval()
			if !ok {
				return nil, fmt.Errorf("%w: entry (%d,%d) is %s", ErrNotConstant, i, j, b.m.Get(i, j))
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// Compile lowers the value to a CompiledFunction.
func (b base) Compile(opts ...CompileOption) (*CompiledFunction, error) {
	return compileMatrix(b.m, opts...)
}

// ============================================================
// Operand conversion
// ============================================================

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// classify converts an operand to its matrix and kind. Unsupported
// operands, including typed nil pointers, yield KindUnsupported.
func classify(v any) (*sx.Matrix, Kind) {
	if f, ok := number(v); ok {
		return sx.Scalar(sx.Const(f)), KindNumber
	}
	switch x := v.(type) {
	case *Symbol:
		if x != nil {
			return sx.Scalar(x.node), KindSymbol
		}
	case *Expression:
		if x != nil {
			return x.m, KindExpression
		}
	case *Point3:
		if x != nil {
			return x.m, KindPoint3
		}
	case *Vector3:
		if x != nil {
			return x.m, KindVector3
		}
	case *Quaternion:
		if x != nil {
			return x.m, KindQuaternion
		}
	case *RotationMatrix:
		if x != nil {
			return x.m, KindRotationMatrix
		}
	case *TransformationMatrix:
		if x != nil {
			return x.m, KindTransformationMatrix
		}
	case *sx.Expr:
		if x != nil {
			return sx.Scalar(x), KindExpression
		}
	}
	return nil, KindUnsupported
}

// scalarOf converts a number, symbol or 1x1 expression to a scalar node.
// It panics on anything else.
func scalarOf(v any) *sx.Expr {
	m, k := classify(v)
	if !k.IsScalar() || !m.IsScalar() {
		r, c := 0, 0
		if m != nil {
			r, c = m.Rows(), m.Cols()
		}
		panic(fmt.Sprintf("gospatial: expected a scalar, got %s (%dx%d)", typeName(v), r, c))
	}
	return m.At(0)
}

// matrixOf converts any supported operand to a matrix, panicking
// otherwise.
func matrixOf(v any) *sx.Matrix {
	m, k := classify(v)
	if k == KindUnsupported {
		panic(fmt.Sprintf("gospatial: unsupported operand %s", typeName(v)))
	}
	return m
}

func frameOf(v any) Frame {
	switch x := v.(type) {
	case *Point3:
		return x.ReferenceFrame
	case *Vector3:
		return x.ReferenceFrame
	case *Quaternion:
		return x.ReferenceFrame
	case *RotationMatrix:
		return x.ReferenceFrame
	case *TransformationMatrix:
		return x.ReferenceFrame
	}
	return nil
}

func childFrameOf(v any) Frame {
	switch x := v.(type) {
	case *RotationMatrix:
		return x.ChildFrame
	case *TransformationMatrix:
		return x.ChildFrame
	}
	return nil
}

func firstFrame(frames ...Frame) Frame {
	for _, f := range frames {
		if f != nil {
			return f
		}
	}
	return nil
}

// As narrows a dispatch result to a concrete type.
//
//	p, err := gospatial.As[*gospatial.Point3](gospatial.Add(p, v))
func As[T SymbolicValue](v SymbolicValue, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("gospatial: result is %s, not %T", typeName(v), zero)
	}
	return t, nil
}

// Must panics if err is non-nil.
func Must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
