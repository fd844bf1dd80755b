package gospatial

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/njchilds90/gospatial/sx"
)

// ============================================================
// Options
// ============================================================

type compileConfig struct {
	name      string
	params    [][]*Symbol
	hasParams bool
	sparse    bool
}

// CompileOption configures Compile.
type CompileOption func(*compileConfig)

// WithParameters declares the ordered argument groups. Without it the
// free symbols of the value form a single group.
func WithParameters(groups ...[]*Symbol) CompileOption {
	return func(c *compileConfig) {
		c.params = groups
		c.hasParams = true
	}
}

// WithSparse stores the result in compressed-sparse-column form.
func WithSparse() CompileOption {
	return func(c *compileConfig) { c.sparse = true }
}

// WithName sets the name used in log and panic messages.
func WithName(name string) CompileOption {
	return func(c *compileConfig) { c.name = name }
}

// ============================================================
// CSC
// ============================================================

// CSC is a compressed-sparse-column matrix. Data holds the structural
// nonzeros column by column, Indices their rows and Indptr the start of
// each column in Data.
type CSC struct {
	Rows, Cols int
	Data       []float64
	Indices    []int
	Indptr     []int
}

func (c CSC) At(row, col int) float64 {
	for k := c.Indptr[col]; k < c.Indptr[col+1]; k++ {
		if c.Indices[k] == row {
			return c.Data[k]
		}
	}
	return 0
}

// Dense returns the matrix in row-major order.
func (c CSC) Dense() []float64 {
	out := make([]float64, c.Rows*c.Cols)
	for j := 0; j < c.Cols; j++ {
		for k := c.Indptr[j]; k < c.Indptr[j+1]; k++ {
			out[c.Indices[k]*c.Cols+j] = c.Data[k]
		}
	}
	return out
}

// ============================================================
// CompiledFunction
// ============================================================

// CompiledFunction evaluates a symbolic value for concrete parameter
// values. It owns its argument bindings and output buffer, so a single
// instance must not be called concurrently; use Clone for each goroutine.
type CompiledFunction struct {
	name       string
	fn         *sx.Function
	buf        *sx.Buffer
	params     [][]*Symbol
	rows, cols int
	sparse     bool
	indices    []int
	indptr     []int
	out        []float64
	constant   bool
}

// Compile lowers v to a CompiledFunction.
func Compile(v SymbolicValue, opts ...CompileOption) (*CompiledFunction, error) {
	if v == nil {
		return nil, fmt.Errorf("gospatial: compile: nil value")
	}
	return compileMatrix(v.SX(), opts...)
}

func compileMatrix(m *sx.Matrix, opts ...CompileOption) (*CompiledFunction, error) {
	cfg := compileConfig{name: "f"}
	for _, o := range opts {
		o(&cfg)
	}
	if !cfg.hasParams {
		if free := defaultRegistry.freeSymbols(m); len(free) > 0 {
			cfg.params = [][]*Symbol{free}
		}
	}
	if err := validateParameters(m, cfg.params); err != nil {
		return nil, fmt.Errorf("gospatial: compile %s: %w", cfg.name, err)
	}

	f := &CompiledFunction{
		name:   cfg.name,
		params: cfg.params,
		rows:   m.Rows(),
		cols:   m.Cols(),
		sparse: cfg.sparse,
	}
	var outputs []*sx.Expr
	if cfg.sparse {
		f.indptr, f.indices = m.Sparsity()
		outputs = make([]*sx.Expr, 0, len(f.indices))
		for j := 0; j < f.cols; j++ {
			for k := f.indptr[j]; k < f.indptr[j+1]; k++ {
				outputs = append(outputs, m.Get(f.indices[k], j))
			}
		}
	} else {
		outputs = make([]*sx.Expr, 0, m.Numel())
		for i := 0; i < f.rows; i++ {
			for j := 0; j < f.cols; j++ {
				outputs = append(outputs, m.Get(i, j))
			}
		}
	}

	inputs := make([][]*sx.Expr, len(cfg.params))
	total := 0
	for g, group := range cfg.params {
		inputs[g] = symbolNodes(group)
		total += len(group)
	}
	fn, err := sx.Compile(cfg.name, inputs, outputs)
	if err != nil {
		return nil, fmt.Errorf("gospatial: compile %s: %w", cfg.name, err)
	}
	f.fn = fn
	f.out = make([]float64, len(outputs))
	f.buf = fn.Buffer()
	f.buf.SetRes(f.out)

	if total == 0 {
		// no parameters: evaluate once, calls return the cached result
		for g := range inputs {
			f.buf.SetArg(g, nil)
		}
		f.buf.Eval()
		f.constant = true
	}

	L().Debug("compiled function",
		zap.String("name", cfg.name),
		zap.Int("rows", f.rows),
		zap.Int("cols", f.cols),
		zap.Int("parameters", total),
		zap.Int("instructions", fn.NumInstructions()),
		zap.Int("outputs", len(outputs)),
		zap.Bool("sparse", cfg.sparse),
		zap.Bool("constant", f.constant),
	)
	return f, nil
}

func validateParameters(m *sx.Matrix, groups [][]*Symbol) error {
	var errs error
	seen := map[*sx.Expr]bool{}
	for g, group := range groups {
		for i, s := range group {
			if s == nil {
				errs = multierr.Append(errs, fmt.Errorf("parameter %d[%d] is nil", g, i))
				continue
			}
			if seen[s.node] {
				errs = multierr.Append(errs, fmt.Errorf("%w: %q", ErrDuplicateParameter, s.name))
				continue
			}
			seen[s.node] = true
		}
	}
	for _, n := range sx.FreeSymbols(m.Elements()...) {
		if !seen[n] {
			errs = multierr.Append(errs, fmt.Errorf("%w: %q", ErrMissingParameter, n.Name()))
		}
	}
	return errs
}

// Parameters returns the declared argument groups.
func (f *CompiledFunction) Parameters() [][]*Symbol {
	out := make([][]*Symbol, len(f.params))
	for i, g := range f.params {
		out[i] = append([]*Symbol(nil), g...)
	}
	return out
}

func (f *CompiledFunction) Name() string            { return f.name }
func (f *CompiledFunction) Shape() (rows, cols int) { return f.rows, f.cols }
func (f *CompiledFunction) Sparse() bool            { return f.sparse }
func (f *CompiledFunction) IsConstant() bool        { return f.constant }
func (f *CompiledFunction) NumInstructions() int    { return f.fn.NumInstructions() }

// CSC returns a view over the output buffer. It panics for dense
// functions.
func (f *CompiledFunction) CSC() CSC {
	if !f.sparse {
		panic(fmt.Sprintf("gospatial: %s: CSC on a dense function", f.name))
	}
	return CSC{Rows: f.rows, Cols: f.cols, Data: f.out, Indices: f.indices, Indptr: f.indptr}
}

// FastCall evaluates with one slice per parameter group and returns the
// output buffer: row-major entries when dense, the CSC values when
// sparse. The returned slice is overwritten by the next call. It panics
// on a group count or length mismatch and does not allocate.
func (f *CompiledFunction) FastCall(args ...[]float64) []float64 {
	if len(args) != len(f.params) {
		panic(fmt.Sprintf("gospatial: %s: got %d argument groups, want %d", f.name, len(args), len(f.params)))
	}
	if f.constant {
		return f.out
	}
	for i, a := range args {
		f.buf.SetArg(i, a)
	}
	f.buf.Eval()
	return f.out
}

// Call evaluates with named values. Every declared parameter must be
// present; extra names are ignored.
func (f *CompiledFunction) Call(values map[string]float64) ([]float64, error) {
	args, err := f.positional(values)
	if err != nil {
		return nil, err
	}
	return f.FastCall(args...), nil
}

func (f *CompiledFunction) positional(values map[string]float64) ([][]float64, error) {
	var errs error
	args := make([][]float64, len(f.params))
	for g, group := range f.params {
		args[g] = make([]float64, len(group))
		for i, s := range group {
			v, ok := values[s.name]
			if !ok {
				errs = multierr.Append(errs, fmt.Errorf("%w: %q", ErrMissingArgument, s.name))
				continue
			}
			args[g][i] = v
		}
	}
	if errs != nil {
		return nil, fmt.Errorf("gospatial: %s: %w", f.name, errs)
	}
	return args, nil
}

// Clone returns an independent function that shares the compiled tape.
func (f *CompiledFunction) Clone() *CompiledFunction {
	c := *f
	c.out = append([]float64(nil), f.out...)
	c.buf = f.fn.Buffer()
	c.buf.SetRes(c.out)
	return &c
}

// checkArgs reports the first argument group whose length is wrong.
func (f *CompiledFunction) checkArgs(args [][]float64) error {
	if len(args) != len(f.params) {
		return fmt.Errorf("%w: %s: got %d argument groups, want %d", ErrLengthMismatch, f.name, len(args), len(f.params))
	}
	for i, a := range args {
		if len(a) != len(f.params[i]) {
			return fmt.Errorf("%w: %s: argument group %d has length %d, want %d", ErrLengthMismatch, f.name, i, len(a), len(f.params[i]))
		}
	}
	return nil
}
