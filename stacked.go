package gospatial

import (
	"fmt"

	"github.com/njchilds90/gospatial/sx"
)

// RowRange selects rows [Start, End) of a stacked result.
type RowRange struct {
	Start, End int
}

// StackedCompiledFunction evaluates several values with one call. The
// values are stacked vertically and the result is exposed as one view
// per value followed by one view per extra RowRange. All views alias a
// single row-major output buffer.
type StackedCompiledFunction struct {
	f      *CompiledFunction
	bounds []int
	extra  []RowRange
	views  [][]float64
}

// CompileStacked compiles exprs, which must all have the same number of
// columns. WithSparse is rejected because row views of a sparse result
// are not contiguous.
func CompileStacked(exprs []SymbolicValue, extra []RowRange, opts ...CompileOption) (*StackedCompiledFunction, error) {
	var cfg compileConfig
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.sparse {
		return nil, fmt.Errorf("gospatial: CompileStacked: sparse output is not supported")
	}
	if len(exprs) == 0 {
		return nil, fmt.Errorf("%w: CompileStacked needs at least one value", ErrTooFewArguments)
	}

	mats := make([]*sx.Matrix, len(exprs))
	bounds := make([]int, 0, len(exprs)+1)
	bounds = append(bounds, 0)
	for i, e := range exprs {
		if e == nil {
			return nil, fmt.Errorf("gospatial: CompileStacked: value %d is nil", i)
		}
		mats[i] = e.SX()
		bounds = append(bounds, bounds[i]+mats[i].Rows())
	}
	stacked, err := sx.Vertcat(mats...)
	if err != nil {
		return nil, &ShapeError{Op: "CompileStacked", Want: "equal column counts", Got: err.Error()}
	}
	total := bounds[len(bounds)-1]
	for _, r := range extra {
		if r.Start < 0 || r.End < r.Start || r.End > total {
			return nil, &ShapeError{Op: "CompileStacked", Want: fmt.Sprintf("row range within [0,%d)", total), Got: fmt.Sprintf("[%d,%d)", r.Start, r.End)}
		}
	}

	f, err := compileMatrix(stacked, opts...)
	if err != nil {
		return nil, err
	}
	s := &StackedCompiledFunction{f: f, bounds: bounds, extra: append([]RowRange(nil), extra...)}
	s.bindViews()
	return s, nil
}

func (s *StackedCompiledFunction) bindViews() {
	_, cols := s.f.Shape()
	out := s.f.out
	s.views = make([][]float64, 0, len(s.bounds)-1+len(s.extra))
	for i := 0; i+1 < len(s.bounds); i++ {
		s.views = append(s.views, out[s.bounds[i]*cols:s.bounds[i+1]*cols:s.bounds[i+1]*cols])
	}
	for _, r := range s.extra {
		s.views = append(s.views, out[r.Start*cols:r.End*cols:r.End*cols])
	}
}

// FastCall evaluates and returns the views. The returned slices are
// overwritten by the next call.
func (s *StackedCompiledFunction) FastCall(args ...[]float64) [][]float64 {
	s.f.FastCall(args...)
	return s.views
}

func (s *StackedCompiledFunction) Call(values map[string]float64) ([][]float64, error) {
	if _, err := s.f.Call(values); err != nil {
		return nil, err
	}
	return s.views, nil
}

// Function returns the underlying compiled function over the whole stack.
func (s *StackedCompiledFunction) Function() *CompiledFunction { return s.f }

func (s *StackedCompiledFunction) Parameters() [][]*Symbol { return s.f.Parameters() }

// NumViews is the number of values plus the number of extra ranges.
func (s *StackedCompiledFunction) NumViews() int { return len(s.views) }

func (s *StackedCompiledFunction) Clone() *StackedCompiledFunction {
	c := &StackedCompiledFunction{f: s.f.Clone(), bounds: s.bounds, extra: s.extra}
	c.bindViews()
	return c
}
