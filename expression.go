package gospatial

import (
	"fmt"

	"github.com/njchilds90/gospatial/sx"
)

// Expression is a rows x cols matrix of symbolic entries. It is the base
// representation behind every geometric type.
type Expression struct {
	base
}

// NewExpression returns a rows x cols matrix of zeros.
func NewExpression(rows, cols int) *Expression {
	return &Expression{base{sx.NewMatrix(rows, cols)}}
}

// Const returns a 1x1 constant.
func Const(v float64) *Expression { return scalarExpression(sx.Const(v)) }

// FromSX wraps m without copying.
func FromSX(m *sx.Matrix) *Expression { return &Expression{base{m}} }

func scalarExpression(e *sx.Expr) *Expression { return &Expression{base{sx.Scalar(e)}} }

// ExpressionFrom converts v to an Expression. Accepted inputs are
// numbers, symbols, any SymbolicValue (copied), []float64 and []any
// (column vectors), [][]float64 and [][]any (row lists) and []*Symbol.
// A nil value yields the empty 0x0 expression.
func ExpressionFrom(v any) (*Expression, error) {
	switch x := v.(type) {
	case nil:
		return NewExpression(0, 0), nil
	case *sx.Matrix:
		return FromSX(x), nil
	case []float64:
		col := make([]any, len(x))
		for i, f := range x {
			col[i] = f
		}
		return columnFrom(col)
	case []*Symbol:
		col := make([]any, len(x))
		for i, s := range x {
			col[i] = s
		}
		return columnFrom(col)
	case []any:
		return columnFrom(x)
	case [][]float64:
		rows := make([][]any, len(x))
		for i, r := range x {
			rows[i] = make([]any, len(r))
			for j, f := range r {
				rows[i][j] = f
			}
		}
		return rowsFrom(rows)
	case [][]any:
		return rowsFrom(x)
	}
	m, k := classify(v)
	if k == KindUnsupported {
		return nil, fmt.Errorf("gospatial: cannot convert %s to Expression", typeName(v))
	}
	return FromSX(m.Copy()), nil
}

// Expr is ExpressionFrom that panics on error.
func Expr(v any) *Expression { return Must(ExpressionFrom(v)) }

func entryOf(v any) (*sx.Expr, error) {
	m, k := classify(v)
	if !k.IsScalar() || !m.IsScalar() {
		return nil, fmt.Errorf("gospatial: entry must be a scalar, got %s", typeName(v))
	}
	return m.At(0), nil
}

func columnFrom(vals []any) (*Expression, error) {
	if len(vals) == 0 {
		return NewExpression(0, 0), nil
	}
	entries := make([]*sx.Expr, len(vals))
	for i, v := range vals {
		e, err := entryOf(v)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		entries[i] = e
	}
	return FromSX(sx.Column(entries...)), nil
}

func rowsFrom(rows [][]any) (*Expression, error) {
	if len(rows) == 0 {
		return NewExpression(0, 0), nil
	}
	cols := len(rows[0])
	m := sx.NewMatrix(len(rows), cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, &ShapeError{Op: "Expression", Want: fmt.Sprintf("%d columns in row %d", cols, i), Got: fmt.Sprint(len(r))}
		}
		for j, v := range r {
			e, err := entryOf(v)
			if err != nil {
				return nil, fmt.Errorf("entry (%d,%d): %w", i, j, err)
			}
			m.Set(i, j, e)
		}
	}
	return FromSX(m), nil
}

func (e *Expression) Kind() Kind { return KindExpression }

func (e *Expression) Copy() *Expression { return FromSX(e.m.Copy()) }

func (e *Expression) IsEmpty() bool  { return e.m.IsEmpty() }
func (e *Expression) IsScalar() bool { return e.m.IsScalar() }

// Set assigns entry (row, col). v must be a scalar.
func (e *Expression) Set(row, col int, v any) { e.m.Set(row, col, scalarOf(v)) }

// SetAt assigns entry k in column-major order.
func (e *Expression) SetAt(k int, v any) { e.m.SetAt(k, scalarOf(v)) }

func (e *Expression) Row(i int) *Expression {
	return FromSX(e.m.Slice([]int{i}, sx.Range(0, e.m.Cols())))
}

func (e *Expression) Col(j int) *Expression {
	return FromSX(e.m.Slice(sx.Range(0, e.m.Rows()), []int{j}))
}

// SelectRows keeps the rows whose mask entry is true.
func (e *Expression) SelectRows(mask []bool) *Expression {
	if len(mask) != e.m.Rows() {
		panic(fmt.Sprintf("gospatial: mask has length %d, want %d", len(mask), e.m.Rows()))
	}
	var rows []int
	for i, keep := range mask {
		if keep {
			rows = append(rows, i)
		}
	}
	return FromSX(e.m.Slice(rows, sx.Range(0, e.m.Cols())))
}

// T returns the transpose.
func (e *Expression) T() *Expression { return FromSX(e.m.Transpose()) }

func (e *Expression) Reshape(rows, cols int) (*Expression, error) {
	m, err := e.m.Reshape(rows, cols)
	if err != nil {
		return nil, &ShapeError{Op: "Reshape", Want: fmt.Sprintf("%d elements", e.m.Numel()), Got: shapeString(rows, cols)}
	}
	return FromSX(m), nil
}

// Remove deletes the given rows and columns in place.
func (e *Expression) Remove(rows, cols []int) {
	e.m = e.m.Remove(rows, cols)
}

// Split returns the operands of the top-level operation of a 1x1
// expression.
func (e *Expression) Split() []*Expression {
	if !e.m.IsScalar() {
		panic("gospatial: Split needs a 1x1 expression")
	}
	n := e.m.At(0)
	parts := make([]*Expression, n.NumArgs())
	for i := range parts {
		parts[i] = scalarExpression(n.Arg(i))
	}
	return parts
}

func (e *Expression) Neg() *Expression { return FromSX(e.m.Neg()) }

// Float returns the value of a constant 1x1 expression.
func (e *Expression) Float() (float64, error) {
	if !e.m.IsScalar() {
		return 0, &ShapeError{Op: "Float", Want: "1x1", Got: shapeString(e.m.Rows(), e.m.Cols())}
	}
	v, ok := e.m.At(0).Eval()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotConstant, e.m.At(0))
	}
	return v, nil
}
