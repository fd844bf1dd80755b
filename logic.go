package gospatial

import (
	"fmt"

	"github.com/njchilds90/gospatial/sx"
)

// Three-valued logic is encoded algebraically so that composite
// conditions stay differentiable: and3 is min, or3 is max, not3 is 1-x.
const (
	TrinaryFalse   = 0.0
	TrinaryUnknown = 0.5
	TrinaryTrue    = 1.0
)

func BinaryTrue() *Expression  { return Const(1) }
func BinaryFalse() *Expression { return Const(0) }

// ============================================================
// Conditionals
// ============================================================

func broadcastShape(ms ...*sx.Matrix) (rows, cols int, ok bool) {
	rows, cols = 1, 1
	set := false
	for _, m := range ms {
		if m.IsScalar() {
			continue
		}
		if set && (m.Rows() != rows || m.Cols() != cols) {
			return 0, 0, false
		}
		rows, cols, set = m.Rows(), m.Cols(), true
	}
	return rows, cols, true
}

func selectMatrix(op string, cond, a, b *sx.Matrix) (*sx.Matrix, error) {
	if _, _, ok := broadcastShape(cond, a, b); !ok {
		return nil, &ShapeError{
			Op:   op,
			Want: "matching shapes",
			Got:  fmt.Sprintf("%s, %s, %s", shapeString(cond.Rows(), cond.Cols()), shapeString(a.Rows(), a.Cols()), shapeString(b.Rows(), b.Cols())),
		}
	}
	return sx.Zip3(cond, a, b, sx.IfElse), nil
}

// IfElse selects ifResult where cond is non-zero and elseResult
// elsewhere. Both branches stay in the graph. If either branch is a
// geometric type both must have the same type, and so does the result.
func IfElse(cond, ifResult, elseResult any) (SymbolicValue, error) {
	cm, ck := classify(cond)
	am, ak := classify(ifResult)
	bm, bk := classify(elseResult)
	switch {
	case !ck.IsScalar():
		return nil, &TypeError{Op: "if_else condition", Left: typeName(cond)}
	case ak == KindUnsupported || bk == KindUnsupported:
		return nil, newTypeError("if_else", ifResult, elseResult)
	case (ak.IsGeometric() || bk.IsGeometric()) && ak != bk:
		return nil, newTypeError("if_else", ifResult, elseResult)
	}
	m, err := selectMatrix("if_else", cm, am, bm)
	if err != nil {
		return nil, err
	}
	rk := KindExpression
	if ak.IsGeometric() {
		rk = ak
	}
	frame := firstFrame(frameOf(ifResult), frameOf(elseResult))
	child := firstFrame(childFrameOf(ifResult), childFrameOf(elseResult))
	return wrap(rk, m, frame, child), nil
}

func ifCompare(cmp func(a, b any) (*Expression, error), a, b, ifResult, elseResult any) (SymbolicValue, error) {
	c, err := cmp(a, b)
	if err != nil {
		return nil, err
	}
	return IfElse(c, ifResult, elseResult)
}

func IfGreater(a, b, ifResult, elseResult any) (SymbolicValue, error) {
	return ifCompare(Greater, a, b, ifResult, elseResult)
}

func IfGreaterEq(a, b, ifResult, elseResult any) (SymbolicValue, error) {
	return ifCompare(GreaterEqual, a, b, ifResult, elseResult)
}

func IfLess(a, b, ifResult, elseResult any) (SymbolicValue, error) {
	return ifCompare(Less, a, b, ifResult, elseResult)
}

func IfLessEq(a, b, ifResult, elseResult any) (SymbolicValue, error) {
	return ifCompare(LessEqual, a, b, ifResult, elseResult)
}

func IfEq(a, b, ifResult, elseResult any) (SymbolicValue, error) {
	return ifCompare(Equal, a, b, ifResult, elseResult)
}

func IfGreaterZero(cond, ifResult, elseResult any) (SymbolicValue, error) {
	return IfGreater(cond, 0, ifResult, elseResult)
}

func IfGreaterEqZero(cond, ifResult, elseResult any) (SymbolicValue, error) {
	return IfGreaterEq(cond, 0, ifResult, elseResult)
}

// IfEqZero selects ifResult where cond is zero.
func IfEqZero(cond, ifResult, elseResult any) (SymbolicValue, error) {
	return IfElse(cond, elseResult, ifResult)
}

// Case is one row of a case table. For IfCases When is a condition; for
// the other tables it is the value compared against.
type Case struct {
	When any
	Then any
}

func scalarMatrix(op string, v any) (*sx.Matrix, error) {
	m, k := classify(v)
	if !k.IsScalar() {
		return nil, &TypeError{Op: op, Left: typeName(v)}
	}
	return m, nil
}

// foldCases builds cond_0 ? then_0 : (cond_1 ? then_1 : ... else), so
// earlier cases take priority.
func foldCases(op string, cases []Case, elseResult any, cond func(when *sx.Matrix) (*sx.Matrix, error)) (*Expression, error) {
	result, err := scalarMatrix(op, elseResult)
	if err != nil {
		return nil, err
	}
	for i := len(cases) - 1; i >= 0; i-- {
		when, err := scalarMatrix(op, cases[i].When)
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}
		then, err := scalarMatrix(op, cases[i].Then)
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}
		c, err := cond(when)
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}
		if result, err = selectMatrix(op, c, then, result); err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}
	}
	return FromSX(result), nil
}

func zipChecked(op string, a, b *sx.Matrix, f func(x, y *sx.Expr) *sx.Expr) (*sx.Matrix, error) {
	if !sx.Broadcastable(a, b) {
		return nil, &ShapeError{Op: op, Want: shapeString(a.Rows(), a.Cols()), Got: shapeString(b.Rows(), b.Cols())}
	}
	return sx.Zip(a, b, f), nil
}

// IfCases returns the Then of the first case whose When is non-zero, or
// elseResult.
func IfCases(cases []Case, elseResult any) (*Expression, error) {
	return foldCases("if_cases", cases, elseResult, func(when *sx.Matrix) (*sx.Matrix, error) {
		return when, nil
	})
}

// IfEqCases returns the Then of the first case whose When equals a.
func IfEqCases(a any, cases []Case, elseResult any) (*Expression, error) {
	am, err := scalarMatrix("if_eq_cases", a)
	if err != nil {
		return nil, err
	}
	return foldCases("if_eq_cases", cases, elseResult, func(when *sx.Matrix) (*sx.Matrix, error) {
		return zipChecked("if_eq_cases", am, when, sx.Eq)
	})
}

// IfLessEqCases returns the Then of the first case with a <= When. The
// thresholds must be ascending; when they are all constants this is
// checked and ErrUnsortedCases returned.
func IfLessEqCases(a any, cases []Case, elseResult any) (*Expression, error) {
	am, err := scalarMatrix("if_less_eq_cases", a)
	if err != nil {
		return nil, err
	}
	if err := checkAscending(cases); err != nil {
		return nil, err
	}
	return foldCases("if_less_eq_cases", cases, elseResult, func(when *sx.Matrix) (*sx.Matrix, error) {
		return zipChecked("if_less_eq_cases", am, when, sx.Le)
	})
}

func checkAscending(cases []Case) error {
	prev := 0.0
	for i, c := range cases {
		m, k := classify(c.When)
		if !k.IsScalar() || !m.IsScalar() {
			return nil
		}
		v, ok := m.At(0).Eval()
		if !ok {
			return nil
		}
		if i > 0 && v < prev {
			return fmt.Errorf("%w: case %d threshold %g follows %g", ErrUnsortedCases, i, v, prev)
		}
		prev = v
	}
	return nil
}

// IfEqCasesGrouped is IfEqCases with cases sharing a structurally equal
// result merged into one branch whose condition ORs the comparisons.
// Groups keep the order in which their result first appears.
func IfEqCasesGrouped(a any, cases []Case, elseResult any) (*Expression, error) {
	const op = "if_eq_cases_grouped"
	am, err := scalarMatrix(op, a)
	if err != nil {
		return nil, err
	}
	type group struct {
		then *sx.Matrix
		cond *sx.Matrix
	}
	var groups []*group
	for i, c := range cases {
		then, err := scalarMatrix(op, c.Then)
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}
		when, err := scalarMatrix(op, c.When)
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}
		eq, err := zipChecked(op, am, when, sx.Eq)
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}
		var g *group
		for _, candidate := range groups {
			if matrixEqual(candidate.then, then) {
				g = candidate
				break
			}
		}
		if g == nil {
			groups = append(groups, &group{then: then, cond: eq})
			continue
		}
		if g.cond, err = zipChecked(op, g.cond, eq, sx.Or); err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}
	}
	grouped := make([]Case, len(groups))
	for i, g := range groups {
		grouped[i] = Case{When: FromSX(g.cond), Then: FromSX(g.then)}
	}
	return IfCases(grouped, elseResult)
}

func matrixEqual(a, b *sx.Matrix) bool {
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() {
		return false
	}
	for k := 0; k < a.Numel(); k++ {
		if !sx.Equal(a.At(k), b.At(k)) {
			return false
		}
	}
	return true
}

// ============================================================
// Two-valued logic
// ============================================================

func constScalar(v any) (float64, bool) {
	m, k := classify(v)
	if !k.IsScalar() || !m.IsScalar() {
		return 0, false
	}
	return m.At(0).Eval()
}

// IsTrueSymbol reports whether v is the constant 1.
func IsTrueSymbol(v any) bool {
	f, ok := constScalar(v)
	return ok && f == TrinaryTrue
}

// IsFalseSymbol reports whether v is the constant 0.
func IsFalseSymbol(v any) bool {
	f, ok := constScalar(v)
	return ok && f == TrinaryFalse
}

func IsTrue3Symbol(v any) bool  { return IsTrueSymbol(v) }
func IsFalse3Symbol(v any) bool { return IsFalseSymbol(v) }

// IsUnknown3Symbol reports whether v is the constant 0.5.
func IsUnknown3Symbol(v any) bool {
	f, ok := constScalar(v)
	return ok && f == TrinaryUnknown
}

func IsTrue3(v any) (*Expression, error)    { return Equal(v, TrinaryTrue) }
func IsFalse3(v any) (*Expression, error)   { return Equal(v, TrinaryFalse) }
func IsUnknown3(v any) (*Expression, error) { return Equal(v, TrinaryUnknown) }

func logicArgs(op string, args []any) ([]*sx.Matrix, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("%w: %s needs at least 2, got %d", ErrTooFewArguments, op, len(args))
	}
	ms := make([]*sx.Matrix, len(args))
	for i, a := range args {
		m, err := scalarMatrix(op, a)
		if err != nil {
			return nil, err
		}
		ms[i] = m
	}
	return ms, nil
}

// foldRight combines ms as f(ms[0], f(ms[1], ...)).
func foldRight(op string, ms []*sx.Matrix, f func(a, b *sx.Expr) *sx.Expr) (*Expression, error) {
	acc := ms[len(ms)-1]
	for i := len(ms) - 2; i >= 0; i-- {
		var err error
		if acc, err = zipChecked(op, ms[i], acc, f); err != nil {
			return nil, err
		}
	}
	return FromSX(acc), nil
}

// LogicAnd is the two-valued conjunction. Constant operands fold while
// the graph is built: any false operand makes the result false and true
// operands are dropped.
func LogicAnd(args ...any) (*Expression, error) {
	ms, err := logicArgs("&", args)
	if err != nil {
		return nil, err
	}
	var rest []*sx.Matrix
	for i, m := range ms {
		if IsFalseSymbol(args[i]) {
			return BinaryFalse(), nil
		}
		if !IsTrueSymbol(args[i]) {
			rest = append(rest, m)
		}
	}
	switch len(rest) {
	case 0:
		return BinaryTrue(), nil
	case 1:
		return FromSX(rest[0].Copy()), nil
	}
	return foldRight("&", rest, sx.And)
}

// LogicOr is the two-valued disjunction with the same constant folding
// as LogicAnd.
func LogicOr(args ...any) (*Expression, error) {
	ms, err := logicArgs("|", args)
	if err != nil {
		return nil, err
	}
	var rest []*sx.Matrix
	for i, m := range ms {
		if IsTrueSymbol(args[i]) {
			return BinaryTrue(), nil
		}
		if !IsFalseSymbol(args[i]) {
			rest = append(rest, m)
		}
	}
	switch len(rest) {
	case 0:
		return BinaryFalse(), nil
	case 1:
		return FromSX(rest[0].Copy()), nil
	}
	return foldRight("|", rest, sx.Or)
}

func LogicNot(a any) (*Expression, error) {
	m, err := scalarMatrix("~", a)
	if err != nil {
		return nil, err
	}
	return FromSX(m.Map(sx.Not)), nil
}

// LogicAny is true if any entry of v is non-zero.
func LogicAny(v any) (*Expression, error) { return reduceEntries("logic_any", v, sx.Or, sx.Zero()) }

// LogicAll is true if every entry of v is non-zero.
func LogicAll(v any) (*Expression, error) { return reduceEntries("logic_all", v, sx.And, sx.One()) }

func reduceEntries(op string, v any, f func(a, b *sx.Expr) *sx.Expr, empty *sx.Expr) (*Expression, error) {
	m, err := scalarMatrix(op, v)
	if err != nil {
		return nil, err
	}
	e := m.Elements()
	if len(e) == 0 {
		return scalarExpression(empty), nil
	}
	acc := sx.Ne(e[len(e)-1], sx.Zero())
	for i := len(e) - 2; i >= 0; i-- {
		acc = f(e[i], acc)
	}
	return scalarExpression(acc), nil
}

// ============================================================
// Three-valued logic
// ============================================================

func and3(a, b *sx.Expr) *sx.Expr {
	switch {
	case a.IsZero() || b.IsZero():
		return sx.Zero()
	case a.IsOne():
		return b
	case b.IsOne():
		return a
	}
	return sx.Fmin(a, b)
}

func or3(a, b *sx.Expr) *sx.Expr { return sx.Fmax(a, b) }
func not3(a *sx.Expr) *sx.Expr   { return sx.Sub(sx.One(), a) }

// LogicAnd3 is the minimum of its operands. A false operand makes the
// result false; true operands are dropped.
func LogicAnd3(args ...any) (*Expression, error) {
	ms, err := logicArgs("and3", args)
	if err != nil {
		return nil, err
	}
	var rest []*sx.Matrix
	for i, m := range ms {
		if IsFalseSymbol(args[i]) {
			return Const(TrinaryFalse), nil
		}
		if !IsTrueSymbol(args[i]) {
			rest = append(rest, m)
		}
	}
	switch len(rest) {
	case 0:
		return Const(TrinaryTrue), nil
	case 1:
		return FromSX(rest[0].Copy()), nil
	}
	return foldRight("and3", rest, and3)
}

// LogicOr3 is the maximum of a and b.
func LogicOr3(a, b any) (*Expression, error) {
	ms, err := logicArgs("or3", []any{a, b})
	if err != nil {
		return nil, err
	}
	return foldRight("or3", ms, or3)
}

// LogicNot3 is 1 - a.
func LogicNot3(a any) (*Expression, error) {
	m, err := scalarMatrix("not3", a)
	if err != nil {
		return nil, err
	}
	return FromSX(m.Map(not3)), nil
}

// ReplaceWithThreeLogic rewrites the and/or/not nodes at the top of each
// entry of v into their three-valued forms. Any other node is kept as
// is, including everything below it.
func ReplaceWithThreeLogic(v any) (*Expression, error) {
	m, err := scalarMatrix("replace_with_three_logic", v)
	if err != nil {
		return nil, err
	}
	return FromSX(m.Map(threeLogic)), nil
}

func threeLogic(e *sx.Expr) *sx.Expr {
	switch e.Op() {
	case sx.OpNot:
		return not3(threeLogic(e.Arg(0)))
	case sx.OpAnd:
		return and3(threeLogic(e.Arg(0)), threeLogic(e.Arg(1)))
	case sx.OpOr:
		return or3(threeLogic(e.Arg(0)), threeLogic(e.Arg(1)))
	}
	return e
}
