package gospatial

import (
	"fmt"

	"github.com/njchilds90/gospatial/sx"
)

func symbolNodes(syms []*Symbol) []*sx.Expr {
	out := make([]*sx.Expr, len(syms))
	for i, s := range syms {
		out[i] = s.node
	}
	return out
}

func checkLengths(op string, syms []*Symbol, others ...[]*Symbol) error {
	for _, o := range others {
		if len(o) != len(syms) {
			return fmt.Errorf("%w: %s: %d symbols, %d derivatives", ErrLengthMismatch, op, len(syms), len(o))
		}
	}
	return nil
}

// Jacobian has one row per entry of v (column-major) and one column per
// symbol.
func Jacobian(v any, syms []*Symbol) *Expression {
	return FromSX(matrixOf(v).Jacobian(symbolNodes(syms)))
}

// Gradient is the column of partial derivatives of a scalar.
func Gradient(v any, syms []*Symbol) (*Expression, error) {
	e, err := scalarEntry("Gradient", v)
	if err != nil {
		return nil, err
	}
	return FromSX(sx.Column(sx.Gradient(e, symbolNodes(syms))...)), nil
}

// Hessian is the symmetric matrix of second partial derivatives of a
// scalar.
func Hessian(v any, syms []*Symbol) (*Expression, error) {
	e, err := scalarEntry("Hessian", v)
	if err != nil {
		return nil, err
	}
	return FromSX(sx.Hessian(e, symbolNodes(syms))), nil
}

func scalarEntry(op string, v any) (*sx.Expr, error) {
	m := matrixOf(v)
	if !m.IsScalar() {
		return nil, &ShapeError{Op: op, Want: "1x1", Got: shapeString(m.Rows(), m.Cols())}
	}
	return m.At(0), nil
}

func totalDerivative(e *sx.Expr, syms, dots []*sx.Expr) *sx.Expr {
	acc := sx.Zero()
	for i, s := range syms {
		acc = sx.Add(acc, sx.Mul(sx.Diff(e, s), dots[i]))
	}
	return acc
}

// totalDerivative2 contracts the Hessian with ddot on the diagonal and
// dot_i*dot_j off it.
func totalDerivative2(e *sx.Expr, syms, dots, ddots []*sx.Expr) *sx.Expr {
	h := sx.Hessian(e, syms)
	acc := sx.Zero()
	for i := range syms {
		for j := range syms {
			w := ddots[i]
			if i != j {
				w = sx.Mul(dots[i], dots[j])
			}
			acc = sx.Add(acc, sx.Mul(h.Get(i, j), w))
		}
	}
	return acc
}

// TotalDerivative applies the chain rule with the given symbol
// velocities to every entry of v.
func TotalDerivative(v any, syms, dots []*Symbol) (*Expression, error) {
	if err := checkLengths("TotalDerivative", syms, dots); err != nil {
		return nil, err
	}
	s, d := symbolNodes(syms), symbolNodes(dots)
	return FromSX(matrixOf(v).Map(func(e *sx.Expr) *sx.Expr { return totalDerivative(e, s, d) })), nil
}

// TotalDerivative2 is the second time derivative of every entry of v
// given velocities and accelerations, without the first-order
// acceleration term.
func TotalDerivative2(v any, syms, dots, ddots []*Symbol) (*Expression, error) {
	if err := checkLengths("TotalDerivative2", syms, dots, ddots); err != nil {
		return nil, err
	}
	s, d, dd := symbolNodes(syms), symbolNodes(dots), symbolNodes(ddots)
	return FromSX(matrixOf(v).Map(func(e *sx.Expr) *sx.Expr { return totalDerivative2(e, s, d, dd) })), nil
}

// JacobianDot is the total derivative of every Jacobian entry.
func JacobianDot(v any, syms, dots []*Symbol) (*Expression, error) {
	return TotalDerivative(Jacobian(v, syms), syms, dots)
}

// JacobianDDot applies TotalDerivative2 to every Jacobian entry.
func JacobianDDot(v any, syms, dots, ddots []*Symbol) (*Expression, error) {
	return TotalDerivative2(Jacobian(v, syms), syms, dots, ddots)
}
