// Package sx is a small scalar symbolic-expression engine.
//
// Expressions are immutable DAG nodes built through constructor functions
// that fold constants and trivial identities at build time. The engine
// supports differentiation, substitution, free-symbol discovery and
// compilation into a flat instruction tape (see Function).
//
// Design goals:
//   - Shared sub-expressions are pointer-shared, never copied
//   - Branches are data-flow selects (IfElse), so every expression stays
//     differentiable
//   - Numeric semantics follow the C math library (fmod, atan2, sign(0)=0)
package sx

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
)

// ============================================================
// Op codes
// ============================================================

// Op identifies the operation of an expression node.
type Op uint8

const (
	OpConst Op = iota
	OpSym
	OpNeg
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpPow
	OpSqrt
	OpSin
	OpCos
	OpTan
	OpAsin
	OpAcos
	OpAtan
	OpExp
	OpLog
	OpSinh
	OpCosh
	OpTanh
	OpFabs
	OpSign
	OpFloor
	OpCeil
	OpAtan2
	OpFmod
	OpFmin
	OpFmax
	OpLt
	OpLe
	OpEq
	OpNe
	OpNot
	OpAnd
	OpOr
	OpIfElse
	numOps
)

var opNames = [numOps]string{
	OpConst: "const", OpSym: "sym", OpNeg: "neg",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpPow: "pow",
	OpSqrt: "sqrt", OpSin: "sin", OpCos: "cos", OpTan: "tan",
	OpAsin: "asin", OpAcos: "acos", OpAtan: "atan",
	OpExp: "exp", OpLog: "log", OpSinh: "sinh", OpCosh: "cosh", OpTanh: "tanh",
	OpFabs: "fabs", OpSign: "sign", OpFloor: "floor", OpCeil: "ceil",
	OpAtan2: "atan2", OpFmod: "fmod", OpFmin: "fmin", OpFmax: "fmax",
	OpLt: "lt", OpLe: "le", OpEq: "eq", OpNe: "ne",
	OpNot: "not", OpAnd: "and", OpOr: "or", OpIfElse: "if_else",
}

var opArity = [numOps]int{
	OpConst: 0, OpSym: 0,
	OpAdd: 2, OpSub: 2, OpMul: 2, OpDiv: 2, OpPow: 2,
	OpAtan2: 2, OpFmod: 2, OpFmin: 2, OpFmax: 2,
	OpLt: 2, OpLe: 2, OpEq: 2, OpNe: 2, OpAnd: 2, OpOr: 2,
	OpIfElse: 3,
}

func init() {
	for op := OpNeg; op < numOps; op++ {
		if opArity[op] == 0 {
			opArity[op] = 1
		}
	}
}

func (o Op) String() string {
	if o < numOps {
		return opNames[o]
	}
	return "op(" + strconv.Itoa(int(o)) + ")"
}

// Arity returns the number of operands the op takes.
func (o Op) Arity() int { return opArity[o] }

// OpByName resolves the name printed by Op.String.
func OpByName(name string) (Op, bool) {
	for op, n := range opNames {
		if n == name {
			return Op(op), true
		}
	}
	return 0, false
}

// ============================================================
// Expr: scalar DAG node
// ============================================================

// Expr is an immutable scalar expression node.
type Expr struct {
	op   Op
	val  float64
	name string
	id   uint64
	args []*Expr
}

var symbolIDs atomic.Uint64

var (
	zero   = &Expr{op: OpConst, val: 0}
	one    = &Expr{op: OpConst, val: 1}
	negOne = &Expr{op: OpConst, val: -1}
	two    = &Expr{op: OpConst, val: 2}
	half   = &Expr{op: OpConst, val: 0.5}
)

// Const returns a numeric constant. Common values are shared.
func Const(v float64) *Expr {
	switch {
	case v == 0 && !math.Signbit(v):
		return zero
	case v == 1:
		return one
	case v == -1:
		return negOne
	case v == 2:
		return two
	case v == 0.5:
		return half
	}
	return &Expr{op: OpConst, val: v}
}

// Zero returns the shared constant 0.
func Zero() *Expr { return zero }

// One returns the shared constant 1.
func One() *Expr { return one }

// NewSymbol creates a fresh symbol. Two calls with the same name yield
// distinct symbols; interning is the caller's job.
func NewSymbol(name string) *Expr {
	return &Expr{op: OpSym, name: name, id: symbolIDs.Add(1)}
}

func (e *Expr) Op() Op            { return e.op }
func (e *Expr) Value() float64    { return e.val }
func (e *Expr) Name() string      { return e.name }
func (e *Expr) ID() uint64        { return e.id }
func (e *Expr) NumArgs() int      { return len(e.args) }
func (e *Expr) Arg(i int) *Expr   { return e.args[i] }
func (e *Expr) IsConst() bool     { return e.op == OpConst }
func (e *Expr) IsSymbol() bool    { return e.op == OpSym }
func (e *Expr) IsZero() bool      { return e.op == OpConst && e.val == 0 }
func (e *Expr) IsOne() bool       { return e.op == OpConst && e.val == 1 }
func (e *Expr) isConstVal(v float64) bool {
	return e.op == OpConst && e.val == v
}

// ============================================================
// Numeric kernel
// ============================================================

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	case x == 0:
		return 0
	}
	return x
}

// evalOp is the single numeric definition of every op. Both constant
// folding and the compiled tape go through it.
func evalOp(op Op, a, b, c float64) float64 {
	switch op {
	case OpNeg:
		return -a
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		return a / b
	case OpPow:
		return math.Pow(a, b)
	case OpSqrt:
		return math.Sqrt(a)
	case OpSin:
		return math.Sin(a)
	case OpCos:
		return math.Cos(a)
	case OpTan:
		return math.Tan(a)
	case OpAsin:
		return math.Asin(a)
	case OpAcos:
		return math.Acos(a)
	case OpAtan:
		return math.Atan(a)
	case OpExp:
		return math.Exp(a)
	case OpLog:
		return math.Log(a)
	case OpSinh:
		return math.Sinh(a)
	case OpCosh:
		return math.Cosh(a)
	case OpTanh:
		return math.Tanh(a)
	case OpFabs:
		return math.Abs(a)
	case OpSign:
		return sign(a)
	case OpFloor:
		return math.Floor(a)
	case OpCeil:
		return math.Ceil(a)
	case OpAtan2:
		return math.Atan2(a, b)
	case OpFmod:
		return math.Mod(a, b)
	case OpFmin:
		return math.Min(a, b)
	case OpFmax:
		return math.Max(a, b)
	case OpLt:
		return b2f(a < b)
	case OpLe:
		return b2f(a <= b)
	case OpEq:
		return b2f(a == b)
	case OpNe:
		return b2f(a != b)
	case OpNot:
		return b2f(a == 0)
	case OpAnd:
		return b2f(a != 0 && b != 0)
	case OpOr:
		return b2f(a != 0 || b != 0)
	case OpIfElse:
		if a != 0 {
			return b
		}
		return c
	}
	panic(fmt.Sprintf("sx: cannot evaluate op %s", op))
}

func node(op Op, args ...*Expr) *Expr {
	folded := true
	for _, a := range args {
		if a.op != OpConst {
			folded = false
			break
		}
	}
	if folded {
		var v [3]float64
		for i, a := range args {
			v[i] = a.val
		}
		return Const(evalOp(op, v[0], v[1], v[2]))
	}
	return &Expr{op: op, args: args}
}

// ============================================================
// Constructors
// ============================================================

func Neg(a *Expr) *Expr {
	if a.op == OpNeg {
		return a.args[0]
	}
	return node(OpNeg, a)
}

func Add(a, b *Expr) *Expr {
	switch {
	case a.IsZero():
		return b
	case b.IsZero():
		return a
	case b.op == OpNeg:
		return Sub(a, b.args[0])
	}
	return node(OpAdd, a, b)
}

func Sub(a, b *Expr) *Expr {
	switch {
	case b.IsZero():
		return a
	case a.IsZero():
		return Neg(b)
	case a == b:
		return zero
	case b.op == OpNeg:
		return Add(a, b.args[0])
	}
	return node(OpSub, a, b)
}

func Mul(a, b *Expr) *Expr {
	switch {
	case a.IsZero() || b.IsZero():
		return zero
	case a.IsOne():
		return b
	case b.IsOne():
		return a
	case a.isConstVal(-1):
		return Neg(b)
	case b.isConstVal(-1):
		return Neg(a)
	}
	return node(OpMul, a, b)
}

func Div(a, b *Expr) *Expr {
	switch {
	case a.IsZero() && !b.IsZero():
		return zero
	case b.IsOne():
		return a
	case b.isConstVal(-1):
		return Neg(a)
	case a == b && a.op != OpConst:
		return one
	}
	return node(OpDiv, a, b)
}

func Pow(a, b *Expr) *Expr {
	switch {
	case b.IsZero():
		return one
	case b.IsOne():
		return a
	}
	return node(OpPow, a, b)
}

func Sqrt(a *Expr) *Expr  { return node(OpSqrt, a) }
func Sin(a *Expr) *Expr   { return node(OpSin, a) }
func Cos(a *Expr) *Expr   { return node(OpCos, a) }
func Tan(a *Expr) *Expr   { return node(OpTan, a) }
func Asin(a *Expr) *Expr  { return node(OpAsin, a) }
func Acos(a *Expr) *Expr  { return node(OpAcos, a) }
func Atan(a *Expr) *Expr  { return node(OpAtan, a) }
func Exp(a *Expr) *Expr   { return node(OpExp, a) }
func Log(a *Expr) *Expr   { return node(OpLog, a) }
func Sinh(a *Expr) *Expr  { return node(OpSinh, a) }
func Cosh(a *Expr) *Expr  { return node(OpCosh, a) }
func Tanh(a *Expr) *Expr  { return node(OpTanh, a) }
func Sign(a *Expr) *Expr  { return node(OpSign, a) }
func Floor(a *Expr) *Expr { return node(OpFloor, a) }
func Ceil(a *Expr) *Expr  { return node(OpCeil, a) }

func Fabs(a *Expr) *Expr {
	if a.op == OpFabs {
		return a
	}
	return node(OpFabs, a)
}

// Atan2 returns atan2(a, b), the angle of the point (b, a).
func Atan2(a, b *Expr) *Expr { return node(OpAtan2, a, b) }

func Fmod(a, b *Expr) *Expr { return node(OpFmod, a, b) }

func Fmin(a, b *Expr) *Expr {
	if a == b {
		return a
	}
	return node(OpFmin, a, b)
}

func Fmax(a, b *Expr) *Expr {
	if a == b {
		return a
	}
	return node(OpFmax, a, b)
}

func Lt(a, b *Expr) *Expr { return node(OpLt, a, b) }
func Le(a, b *Expr) *Expr { return node(OpLe, a, b) }
func Gt(a, b *Expr) *Expr { return node(OpLt, b, a) }
func Ge(a, b *Expr) *Expr { return node(OpLe, b, a) }

func Eq(a, b *Expr) *Expr {
	if a == b {
		return one
	}
	return node(OpEq, a, b)
}

func Ne(a, b *Expr) *Expr {
	if a == b {
		return zero
	}
	return node(OpNe, a, b)
}

func Not(a *Expr) *Expr {
	if a.op == OpNot {
		return Ne(a.args[0], zero)
	}
	return node(OpNot, a)
}

func And(a, b *Expr) *Expr { return node(OpAnd, a, b) }
func Or(a, b *Expr) *Expr  { return node(OpOr, a, b) }

// IfElse selects a when cond is non-zero and b otherwise. Both branches
// are always part of the graph.
func IfElse(cond, a, b *Expr) *Expr {
	if cond.op == OpConst {
		if cond.val != 0 {
			return a
		}
		return b
	}
	if a == b || (a.op == OpConst && b.op == OpConst && a.val == b.val) {
		return a
	}
	return &Expr{op: OpIfElse, args: []*Expr{cond, a, b}}
}

// Apply rebuilds a node of the given op from operands, running the same
// simplifications as the named constructors.
func Apply(op Op, args ...*Expr) *Expr {
	if op == OpConst || op == OpSym || len(args) != opArity[op] {
		panic(fmt.Sprintf("sx: Apply(%s) with %d operands", op, len(args)))
	}
	switch op {
	case OpNeg:
		return Neg(args[0])
	case OpAdd:
		return Add(args[0], args[1])
	case OpSub:
		return Sub(args[0], args[1])
	case OpMul:
		return Mul(args[0], args[1])
	case OpDiv:
		return Div(args[0], args[1])
	case OpPow:
		return Pow(args[0], args[1])
	case OpFabs:
		return Fabs(args[0])
	case OpFmin:
		return Fmin(args[0], args[1])
	case OpFmax:
		return Fmax(args[0], args[1])
	case OpEq:
		return Eq(args[0], args[1])
	case OpNe:
		return Ne(args[0], args[1])
	case OpNot:
		return Not(args[0])
	case OpIfElse:
		return IfElse(args[0], args[1], args[2])
	}
	return node(op, args...)
}

// ============================================================
// Inspection
// ============================================================

// Equal reports structural equality. Symbols compare by identity.
func Equal(a, b *Expr) bool {
	if a == b {
		return true
	}
	if a.op != b.op || len(a.args) != len(b.args) {
		return false
	}
	switch a.op {
	case OpConst:
		return a.val == b.val || (math.IsNaN(a.val) && math.IsNaN(b.val))
	case OpSym:
		return false
	}
	for i := range a.args {
		if !Equal(a.args[i], b.args[i]) {
			return false
		}
	}
	return true
}

// Eval evaluates a constant expression.
func (e *Expr) Eval() (float64, bool) {
	if e.op == OpConst {
		return e.val, true
	}
	return 0, false
}

// Depends reports whether e contains the symbol s.
func Depends(e, s *Expr) bool {
	seen := map[*Expr]bool{}
	var walk func(n *Expr) bool
	walk = func(n *Expr) bool {
		if n == s {
			return true
		}
		if seen[n] {
			return false
		}
		seen[n] = true
		for _, a := range n.args {
			if walk(a) {
				return true
			}
		}
		return false
	}
	return walk(e)
}

// FreeSymbols returns the symbols reachable from roots in order of first
// appearance (depth-first, operands left to right).
func FreeSymbols(roots ...*Expr) []*Expr {
	var out []*Expr
	seen := map[*Expr]bool{}
	var walk func(n *Expr)
	walk = func(n *Expr) {
		if seen[n] {
			return
		}
		seen[n] = true
		if n.op == OpSym {
			out = append(out, n)
			return
		}
		for _, a := range n.args {
			walk(a)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return out
}

// ============================================================
// String
// ============================================================

var infix = map[Op]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpPow: "^",
	OpLt: "<", OpLe: "<=", OpEq: "==", OpNe: "!=", OpAnd: "&&", OpOr: "||",
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (e *Expr) String() string {
	var sb strings.Builder
	e.write(&sb)
	return sb.String()
}

func (e *Expr) write(sb *strings.Builder) {
	switch e.op {
	case OpConst:
		sb.WriteString(formatFloat(e.val))
		return
	case OpSym:
		sb.WriteString(e.name)
		return
	case OpNeg:
		sb.WriteString("(-")
		e.args[0].write(sb)
		sb.WriteString(")")
		return
	case OpNot:
		sb.WriteString("(!")
		e.args[0].write(sb)
		sb.WriteString(")")
		return
	}
	if sym, ok := infix[e.op]; ok {
		sb.WriteString("(")
		e.args[0].write(sb)
		sb.WriteString(sym)
		e.args[1].write(sb)
		sb.WriteString(")")
		return
	}
	sb.WriteString(opNames[e.op])
	sb.WriteString("(")
	for i, a := range e.args {
		if i > 0 {
			sb.WriteString(", ")
		}
		a.write(sb)
	}
	sb.WriteString(")")
}
