package gospatial

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/njchilds90/gospatial/sx"
)

// CompileAndExecute builds fn over fresh symbols shaped like params,
// compiles the result and evaluates it at params. Each param is a
// float64 (1x1), a []float64 (column) or a [][]float64 (rows). The result
// is returned in row-major order.
func CompileAndExecute(fn func(args ...*Expression) (SymbolicValue, error), params ...any) ([]float64, error) {
	reg := NewRegistry()
	prefix := uuid.NewString()
	args := make([]*Expression, len(params))
	var syms []*Symbol
	var vals []float64
	next := func() *Symbol {
		s := reg.Symbol(fmt.Sprintf("%s_%d", prefix, len(syms)))
		syms = append(syms, s)
		return s
	}

	for i, p := range params {
		switch x := p.(type) {
		case float64:
			args[i] = next().Expression()
			vals = append(vals, x)
		case []float64:
			m := sx.NewMatrix(len(x), 1)
			for k, v := range x {
				m.Set(k, 0, next().node)
				vals = append(vals, v)
			}
			args[i] = FromSX(m)
		case [][]float64:
			cols := 0
			if len(x) > 0 {
				cols = len(x[0])
			}
			m := sx.NewMatrix(len(x), cols)
			for r, row := range x {
				if len(row) != cols {
					return nil, &ShapeError{Op: "CompileAndExecute", Want: fmt.Sprintf("%d columns", cols), Got: fmt.Sprintf("row %d with %d", r, len(row))}
				}
				for c, v := range row {
					m.Set(r, c, next().node)
					vals = append(vals, v)
				}
			}
			args[i] = FromSX(m)
		default:
			return nil, fmt.Errorf("gospatial: CompileAndExecute: unsupported parameter %d of type %T", i, p)
		}
	}

	v, err := fn(args...)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("gospatial: CompileAndExecute: function returned nil")
	}
	f, err := compileMatrix(v.SX(), WithName("compile_and_execute"), WithParameters(syms))
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), f.FastCall(vals)...), nil
}

// ============================================================
// SolveFor
// ============================================================

type solveConfig struct {
	start    float64
	maxTries int
	eps      float64
	maxStep  float64
}

type SolveOption func(*solveConfig)

func WithStart(x float64) SolveOption       { return func(c *solveConfig) { c.start = x } }
func WithMaxTries(n int) SolveOption        { return func(c *solveConfig) { c.maxTries = n } }
func WithTolerance(eps float64) SolveOption { return func(c *solveConfig) { c.eps = eps } }
func WithMaxStep(s float64) SolveOption     { return func(c *solveConfig) { c.maxStep = s } }

// SolveFor finds x such that e(x) = target by damped Newton iteration.
// e must be a scalar with exactly one free symbol.
func SolveFor(e SymbolicValue, target float64, opts ...SolveOption) (float64, error) {
	cfg := solveConfig{start: 0.0001, maxTries: 10000, eps: 1e-10, maxStep: 50}
	for _, o := range opts {
		o(&cfg)
	}
	if r, c := e.Shape(); r != 1 || c != 1 {
		return 0, &ShapeError{Op: "SolveFor", Want: "1x1", Got: shapeString(r, c)}
	}
	free := defaultRegistry.freeSymbols(e.SX())
	if len(free) != 1 {
		return 0, fmt.Errorf("gospatial: SolveFor: need exactly one free symbol, got %d", len(free))
	}
	params := WithParameters(free)
	f, err := compileMatrix(e.SX(), params, WithName("solve_for"))
	if err != nil {
		return 0, err
	}
	df, err := compileMatrix(e.SX().Jacobian(symbolNodes(free)), params, WithName("solve_for_dx"))
	if err != nil {
		return 0, err
	}

	x := cfg.start
	arg := []float64{x}
	for try := 0; try < cfg.maxTries; try++ {
		arg[0] = x
		residual := f.FastCall(arg)[0] - target
		if math.Abs(residual) < cfg.eps {
			return x, nil
		}
		slope := df.FastCall(arg)[0]
		if slope == 0 {
			slope = 0.001
			if cfg.start > 0 {
				slope = -0.001
			}
		}
		x -= math.Max(math.Min(residual/slope, cfg.maxStep), -cfg.maxStep)
	}
	return 0, fmt.Errorf("%w: %s = %g after %d tries", ErrNoSolution, e, target, cfg.maxTries)
}
