package gospatial

import (
	"errors"
	"fmt"
)

var (
	// ErrShape is matched by every *ShapeError.
	ErrShape = errors.New("gospatial: shape mismatch")

	ErrDuplicateParameter = errors.New("gospatial: duplicate parameter")
	ErrMissingParameter   = errors.New("gospatial: free symbol not declared as parameter")
	ErrMissingArgument    = errors.New("gospatial: missing argument")
	ErrLengthMismatch     = errors.New("gospatial: length mismatch")
	ErrUnsortedCases      = errors.New("gospatial: case thresholds are not sorted ascending")
	ErrNotConstant        = errors.New("gospatial: expression is not constant")
	ErrNoSolution         = errors.New("gospatial: no solution found")
	ErrTooFewArguments    = errors.New("gospatial: too few arguments")
)

// TypeError reports an operator applied to a pair of operand types that
// the dispatch table does not allow.
type TypeError struct {
	Op    string
	Left  string
	Right string
}

func (e *TypeError) Error() string {
	if e.Right == "" {
		return fmt.Sprintf("gospatial: bad operand type for %s: '%s'", e.Op, e.Left)
	}
	return fmt.Sprintf("gospatial: unsupported operand type(s) for %s: '%s' and '%s'", e.Op, e.Left, e.Right)
}

func newTypeError(op string, a, b any) *TypeError {
	return &TypeError{Op: op, Left: typeName(a), Right: typeName(b)}
}

// ShapeError reports data of the wrong shape.
type ShapeError struct {
	Op   string
	Want string
	Got  string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("gospatial: %s: expected %s, got %s", e.Op, e.Want, e.Got)
}

func (e *ShapeError) Is(target error) bool { return target == ErrShape }

func shapeString(rows, cols int) string { return fmt.Sprintf("%dx%d", rows, cols) }

func typeName(v any) string {
	switch v.(type) {
	case *Symbol:
		return "Symbol"
	case *Expression:
		return "Expression"
	case *Point3:
		return "Point3"
	case *Vector3:
		return "Vector3"
	case *Quaternion:
		return "Quaternion"
	case *RotationMatrix:
		return "RotationMatrix"
	case *TransformationMatrix:
		return "TransformationMatrix"
	case nil:
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
