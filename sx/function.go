package sx

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/multierr"
)

// ============================================================
// Function: compiled instruction tape
// ============================================================

type instr struct {
	op      Op
	dst     int32
	a, b, c int32
}

// Function is an expression graph lowered to a flat instruction tape over a
// work vector laid out as [inputs | constants and temporaries]. Identical
// sub-expressions are computed once. A Function is immutable and safe to
// share; evaluation state lives in a Buffer.
type Function struct {
	name      string
	inOffsets []int
	inSizes   []int
	template  []float64
	code      []instr
	outSlots  []int32
}

// Compile lowers outputs to a tape. inputs lists the argument groups; every
// entry must be a distinct symbol, and every free symbol of outputs must be
// among them.
func Compile(name string, inputs [][]*Expr, outputs []*Expr) (*Function, error) {
	c := &compiler{
		slots:   map[*Expr]int32{},
		buckets: map[uint64][]int32{},
	}
	f := &Function{name: name}

	var errs error
	offset := 0
	for g, group := range inputs {
		f.inOffsets = append(f.inOffsets, offset)
		f.inSizes = append(f.inSizes, len(group))
		for i, s := range group {
			switch {
			case s.op != OpSym:
				errs = multierr.Append(errs, fmt.Errorf("sx: %s: input %d[%d] is not a symbol: %s", name, g, i, s))
				c.newSlot(desc{op: OpConst})
			case c.bound(s):
				errs = multierr.Append(errs, fmt.Errorf("sx: %s: duplicate input symbol %q", name, s.name))
				c.newSlot(desc{op: OpConst})
			default:
				c.slots[s] = c.newSlot(desc{op: OpSym, sym: s})
			}
			offset++
		}
	}
	c.nInputs = offset

	for _, s := range FreeSymbols(outputs...) {
		if _, ok := c.slots[s]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("sx: %s: free symbol %q is not an input", name, s.name))
		}
	}
	if errs != nil {
		return nil, errs
	}

	f.outSlots = make([]int32, len(outputs))
	for k, e := range outputs {
		f.outSlots[k] = c.lower(e)
	}
	f.code = c.code
	f.template = make([]float64, len(c.descs))
	for i, d := range c.descs {
		if d.op == OpConst {
			f.template[i] = d.val
		}
	}
	return f, nil
}

func (f *Function) Name() string { return f.name }

// NumInputs returns the number of argument groups.
func (f *Function) NumInputs() int { return len(f.inSizes) }

// InputSize returns the length of argument group i.
func (f *Function) InputSize(i int) int { return f.inSizes[i] }

// NumOutputs returns the number of output scalars.
func (f *Function) NumOutputs() int { return len(f.outSlots) }

// NumInstructions returns the tape length after common-subexpression
// elimination.
func (f *Function) NumInstructions() int { return len(f.code) }

// ============================================================
// Lowering
// ============================================================

type desc struct {
	op      Op
	val     float64
	sym     *Expr
	a, b, c int32
}

type compiler struct {
	nInputs int
	descs   []desc
	slots   map[*Expr]int32
	buckets map[uint64][]int32
	code    []instr
}

func (c *compiler) bound(s *Expr) bool {
	_, ok := c.slots[s]
	return ok
}

func (c *compiler) newSlot(d desc) int32 {
	c.descs = append(c.descs, d)
	return int32(len(c.descs) - 1)
}

func (d desc) hash() uint64 {
	var buf [21]byte
	buf[0] = byte(d.op)
	binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(d.val))
	binary.LittleEndian.PutUint32(buf[9:], uint32(d.a))
	binary.LittleEndian.PutUint32(buf[13:], uint32(d.b))
	binary.LittleEndian.PutUint32(buf[17:], uint32(d.c))
	return xxhash.Sum64(buf[:])
}

// intern returns the slot of an existing identical node, or allocates one.
func (c *compiler) intern(d desc) (int32, bool) {
	h := d.hash()
	for _, s := range c.buckets[h] {
		if c.descs[s] == d {
			return s, false
		}
	}
	s := c.newSlot(d)
	c.buckets[h] = append(c.buckets[h], s)
	return s, true
}

type frame struct {
	e    *Expr
	next int
}

// lower emits code for e with an explicit stack; graphs can be deep.
func (c *compiler) lower(root *Expr) int32 {
	if s, ok := c.slots[root]; ok {
		return s
	}
	stack := []frame{{e: root}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		e := top.e
		if top.next < len(e.args) {
			child := e.args[top.next]
			top.next++
			if _, ok := c.slots[child]; !ok {
				stack = append(stack, frame{e: child})
			}
			continue
		}
		stack = stack[:len(stack)-1]
		if _, ok := c.slots[e]; ok {
			continue
		}
		d := desc{op: e.op}
		switch e.op {
		case OpConst:
			d.val = e.val
		case OpSym:
			panic(fmt.Sprintf("sx: unbound symbol %q", e.name))
		default:
			ops := [3]int32{}
			for i, a := range e.args {
				ops[i] = c.slots[a]
			}
			d.a, d.b, d.c = ops[0], ops[1], ops[2]
		}
		s, fresh := c.intern(d)
		if fresh && e.op != OpConst {
			c.code = append(c.code, instr{op: e.op, dst: s, a: d.a, b: d.b, c: d.c})
		}
		c.slots[e] = s
	}
	return c.slots[root]
}

// ============================================================
// Buffer: reusable evaluation state
// ============================================================

// Buffer holds the work vector and argument/result bindings of one
// Function. Eval performs no allocation. A Buffer is not safe for
// concurrent use.
type Buffer struct {
	f    *Function
	work []float64
	args [][]float64
	res  []float64
}

// Buffer allocates evaluation state for f.
func (f *Function) Buffer() *Buffer {
	b := &Buffer{
		f:    f,
		work: make([]float64, len(f.template)),
		args: make([][]float64, len(f.inSizes)),
	}
	copy(b.work, f.template)
	return b
}

// SetArg binds argument group i. The slice is read on every Eval.
func (b *Buffer) SetArg(i int, arg []float64) {
	if len(arg) != b.f.inSizes[i] {
		panic(fmt.Sprintf("sx: %s: argument %d has length %d, want %d", b.f.name, i, len(arg), b.f.inSizes[i]))
	}
	b.args[i] = arg
}

// SetRes binds the output slice, which receives NumOutputs values.
func (b *Buffer) SetRes(res []float64) {
	if len(res) != len(b.f.outSlots) {
		panic(fmt.Sprintf("sx: %s: result has length %d, want %d", b.f.name, len(res), len(b.f.outSlots)))
	}
	b.res = res
}

// Eval runs the tape with the bound arguments and writes the bound result.
func (b *Buffer) Eval() {
	f, w := b.f, b.work
	for i, arg := range b.args {
		copy(w[f.inOffsets[i]:], arg)
	}
	for _, in := range f.code {
		w[in.dst] = evalOp(in.op, w[in.a], w[in.b], w[in.c])
	}
	for k, s := range f.outSlots {
		b.res[k] = w[s]
	}
}

// Clone returns an independent buffer with the same argument and result
// bindings.
func (b *Buffer) Clone() *Buffer {
	c := b.f.Buffer()
	copy(c.args, b.args)
	c.res = b.res
	return c
}

// Call is a convenience wrapper that allocates a fresh buffer.
func (f *Function) Call(args ...[]float64) []float64 {
	if len(args) != len(f.inSizes) {
		panic(fmt.Sprintf("sx: %s: got %d arguments, want %d", f.name, len(args), len(f.inSizes)))
	}
	b := f.Buffer()
	for i, a := range args {
		b.SetArg(i, a)
	}
	out := make([]float64, len(f.outSlots))
	b.SetRes(out)
	b.Eval()
	return out
}
