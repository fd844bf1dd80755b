// Package gospatial provides symbolic 3D geometry on top of the sx
// expression engine.
//
// Values are built from interned symbols and constants, combined through
// a closed dispatch table (Add, Sub, Mul, Div, Pow, Dot) that preserves
// geometric types, differentiated symbolically, and finally compiled into
// a CompiledFunction that is called repeatedly with numeric parameters.
//
//	x, y := gospatial.Sym("x"), gospatial.Sym("y")
//	p := gospatial.NewPoint3(x, y, 0)
//	r := gospatial.RotationMatrixFromRPY(0, 0, x)
//	f, err := r.DotPoint(p).Compile()
//	out := f.FastCall([]float64{0.5, 1})
//
// Design goals:
//   - Type errors are returned, never panicked; misuse such as bad indices panics
//   - Branches are symbolic if_else nodes, so results stay differentiable
//   - Compiled functions own their buffers and do not allocate per call
//   - Coordinate frames are opaque metadata propagated through arithmetic
package gospatial
