package sx

import "fmt"

// ============================================================
// Differentiation
// ============================================================

// Diff returns de/ds. s must be a symbol.
func Diff(e, s *Expr) *Expr {
	return newDiffer(s).diff(e)
}

type differ struct {
	wrt  *Expr
	memo map[*Expr]*Expr
}

func newDiffer(s *Expr) *differ {
	if s.op != OpSym {
		panic(fmt.Sprintf("sx: cannot differentiate with respect to non-symbol %s", s))
	}
	return &differ{wrt: s, memo: map[*Expr]*Expr{}}
}

func (d *differ) diff(e *Expr) *Expr {
	if r, ok := d.memo[e]; ok {
		return r
	}
	r := d.rule(e)
	d.memo[e] = r
	return r
}

func (d *differ) rule(e *Expr) *Expr {
	switch e.op {
	case OpConst:
		return zero
	case OpSym:
		if e == d.wrt {
			return one
		}
		return zero
	case OpSign, OpFloor, OpCeil, OpLt, OpLe, OpEq, OpNe, OpNot, OpAnd, OpOr:
		return zero
	}

	a := e.args[0]
	da := d.diff(a)
	var b, db *Expr
	if len(e.args) > 1 {
		b = e.args[1]
		db = d.diff(b)
	}

	switch e.op {
	case OpNeg:
		return Neg(da)
	case OpAdd:
		return Add(da, db)
	case OpSub:
		return Sub(da, db)
	case OpMul:
		return Add(Mul(da, b), Mul(a, db))
	case OpDiv:
		// (da - e*db) / b
		return Div(Sub(da, Mul(e, db)), b)
	case OpPow:
		if b.op == OpConst {
			if da.IsZero() {
				return zero
			}
			return Mul(Mul(b, Pow(a, Const(b.val-1))), da)
		}
		return Mul(e, Add(Mul(db, Log(a)), Div(Mul(b, da), a)))
	case OpSqrt:
		return Div(da, Mul(two, e))
	case OpSin:
		return Mul(Cos(a), da)
	case OpCos:
		return Neg(Mul(Sin(a), da))
	case OpTan:
		return Mul(Add(one, Mul(e, e)), da)
	case OpAsin:
		return Div(da, Sqrt(Sub(one, Mul(a, a))))
	case OpAcos:
		return Neg(Div(da, Sqrt(Sub(one, Mul(a, a)))))
	case OpAtan:
		return Div(da, Add(one, Mul(a, a)))
	case OpExp:
		return Mul(e, da)
	case OpLog:
		return Div(da, a)
	case OpSinh:
		return Mul(Cosh(a), da)
	case OpCosh:
		return Mul(Sinh(a), da)
	case OpTanh:
		return Mul(Sub(one, Mul(e, e)), da)
	case OpFabs:
		return Mul(Sign(a), da)
	case OpAtan2:
		// d atan2(a, b) = (b*da - a*db) / (a^2 + b^2)
		return Div(Sub(Mul(b, da), Mul(a, db)), Add(Mul(a, a), Mul(b, b)))
	case OpFmod:
		// fmod(a, b) = a - trunc(a/b)*b
		return Add(da, Mul(Div(Sub(e, a), b), db))
	case OpFmin:
		return IfElse(Le(a, b), da, db)
	case OpFmax:
		return IfElse(Le(a, b), db, da)
	case OpIfElse:
		return IfElse(a, db, d.diff(e.args[2]))
	}
	panic(fmt.Sprintf("sx: no derivative rule for %s", e.op))
}

// Gradient returns the partial derivatives of e with respect to each symbol.
func Gradient(e *Expr, syms []*Expr) []*Expr {
	out := make([]*Expr, len(syms))
	for j, s := range syms {
		out[j] = Diff(e, s)
	}
	return out
}

// ============================================================
// Substitution
// ============================================================

// Substitute replaces every occurrence of a key of repl with its value.
// Keys are usually symbols but any node is accepted.
func Substitute(e *Expr, repl map[*Expr]*Expr) *Expr {
	return newSubstituter(repl).sub(e)
}

type substituter struct {
	repl map[*Expr]*Expr
	memo map[*Expr]*Expr
}

func newSubstituter(repl map[*Expr]*Expr) *substituter {
	return &substituter{repl: repl, memo: map[*Expr]*Expr{}}
}

func (s *substituter) sub(e *Expr) *Expr {
	if r, ok := s.repl[e]; ok {
		return r
	}
	if len(e.args) == 0 {
		return e
	}
	if r, ok := s.memo[e]; ok {
		return r
	}
	changed := false
	args := make([]*Expr, len(e.args))
	for i, a := range e.args {
		args[i] = s.sub(a)
		if args[i] != a {
			changed = true
		}
	}
	r := e
	if changed {
		r = Apply(e.op, args...)
	}
	s.memo[e] = r
	return r
}

// Rewrite rebuilds e bottom-up, letting fn replace any node after its
// operands were rewritten. fn returns nil to keep the node.
func Rewrite(e *Expr, fn func(n *Expr, args []*Expr) *Expr) *Expr {
	memo := map[*Expr]*Expr{}
	var walk func(n *Expr) *Expr
	walk = func(n *Expr) *Expr {
		if r, ok := memo[n]; ok {
			return r
		}
		args := make([]*Expr, len(n.args))
		changed := false
		for i, a := range n.args {
			args[i] = walk(a)
			if args[i] != a {
				changed = true
			}
		}
		r := fn(n, args)
		if r == nil {
			r = n
			if changed {
				r = Apply(n.op, args...)
			}
		}
		memo[n] = r
		return r
	}
	return walk(e)
}
