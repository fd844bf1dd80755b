package sx

import (
	"fmt"
	"strings"
)

// ============================================================
// Matrix: dense matrix of scalar expressions
// ============================================================

// Matrix is a rows x cols matrix of expressions stored column-major.
// A constant zero entry is a structural zero.
type Matrix struct {
	rows, cols int
	data       []*Expr
}

// NewMatrix returns a rows x cols matrix of zeros.
func NewMatrix(rows, cols int) *Matrix {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("sx: negative matrix shape %dx%d", rows, cols))
	}
	data := make([]*Expr, rows*cols)
	for i := range data {
		data[i] = zero
	}
	return &Matrix{rows: rows, cols: cols, data: data}
}

// Scalar wraps e as a 1x1 matrix.
func Scalar(e *Expr) *Matrix { return &Matrix{rows: 1, cols: 1, data: []*Expr{e}} }

// Column builds a column vector.
func Column(entries ...*Expr) *Matrix {
	data := make([]*Expr, len(entries))
	copy(data, entries)
	return &Matrix{rows: len(entries), cols: 1, data: data}
}

// MatrixFromSlice builds a matrix from row-major entries.
func MatrixFromSlice(rows, cols int, entries []*Expr) *Matrix {
	if len(entries) != rows*cols {
		panic(fmt.Sprintf("sx: MatrixFromSlice needs %d entries, got %d", rows*cols, len(entries)))
	}
	m := NewMatrix(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.data[j*rows+i] = entries[i*cols+j]
		}
	}
	return m
}

// Identity returns the n x n identity.
func Identity(n int) *Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.data[i*n+i] = one
	}
	return m
}

// Fill returns a rows x cols matrix with every entry set to e.
func Fill(rows, cols int, e *Expr) *Matrix {
	m := NewMatrix(rows, cols)
	for i := range m.data {
		m.data[i] = e
	}
	return m
}

func (m *Matrix) checkBounds(row, col int) {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		panic(fmt.Sprintf("sx: matrix index out of range [%d,%d] for %dx%d", row, col, m.rows, m.cols))
	}
}

func (m *Matrix) Get(row, col int) *Expr {
	m.checkBounds(row, col)
	return m.data[col*m.rows+row]
}

func (m *Matrix) Set(row, col int, val *Expr) {
	m.checkBounds(row, col)
	m.data[col*m.rows+row] = val
}

// At returns the k-th entry in column-major order.
func (m *Matrix) At(k int) *Expr {
	if k < 0 || k >= len(m.data) {
		panic(fmt.Sprintf("sx: element %d out of range for %dx%d", k, m.rows, m.cols))
	}
	return m.data[k]
}

// SetAt sets the k-th entry in column-major order.
func (m *Matrix) SetAt(k int, val *Expr) {
	if k < 0 || k >= len(m.data) {
		panic(fmt.Sprintf("sx: element %d out of range for %dx%d", k, m.rows, m.cols))
	}
	m.data[k] = val
}

func (m *Matrix) Rows() int       { return m.rows }
func (m *Matrix) Cols() int       { return m.cols }
func (m *Matrix) Numel() int      { return len(m.data) }
func (m *Matrix) IsEmpty() bool   { return len(m.data) == 0 }
func (m *Matrix) IsScalar() bool  { return m.rows == 1 && m.cols == 1 }
func (m *Matrix) IsColumn() bool  { return m.cols == 1 }
func (m *Matrix) Elements() []*Expr {
	out := make([]*Expr, len(m.data))
	copy(out, m.data)
	return out
}

// Copy returns a shallow copy; nodes are immutable so this is a full copy.
func (m *Matrix) Copy() *Matrix {
	return &Matrix{rows: m.rows, cols: m.cols, data: m.Elements()}
}

// IsConstant reports whether no entry depends on a symbol.
func (m *Matrix) IsConstant() bool {
	return len(FreeSymbols(m.data...)) == 0
}

// Values returns the entries of a constant matrix, column-major.
func (m *Matrix) Values() ([]float64, bool) {
	out := make([]float64, len(m.data))
	for k, e := range m.data {
		v, ok := e.Eval()
		if !ok {
			return nil, false
		}
		out[k] = v
	}
	return out, true
}

func (m *Matrix) String() string {
	if m.IsScalar() {
		return m.data[0].String()
	}
	var sb strings.Builder
	sb.WriteString("[")
	for i := 0; i < m.rows; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("[")
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(m.data[j*m.rows+i].String())
		}
		sb.WriteString("]")
	}
	sb.WriteString("]")
	return sb.String()
}

// ============================================================
// Elementwise
// ============================================================

// Map applies f to every entry.
func (m *Matrix) Map(f func(*Expr) *Expr) *Matrix {
	out := &Matrix{rows: m.rows, cols: m.cols, data: make([]*Expr, len(m.data))}
	for k, e := range m.data {
		out.data[k] = f(e)
	}
	return out
}

// Broadcastable reports whether a and b can be combined elementwise.
func Broadcastable(a, b *Matrix) bool {
	return (a.rows == b.rows && a.cols == b.cols) || a.IsScalar() || b.IsScalar()
}

// Zip combines a and b entry by entry; a 1x1 operand is broadcast.
func Zip(a, b *Matrix, f func(x, y *Expr) *Expr) *Matrix {
	if !Broadcastable(a, b) {
		panic(fmt.Sprintf("sx: dimension mismatch %dx%d vs %dx%d", a.rows, a.cols, b.rows, b.cols))
	}
	rows, cols := a.rows, a.cols
	if a.IsScalar() {
		rows, cols = b.rows, b.cols
	}
	out := &Matrix{rows: rows, cols: cols, data: make([]*Expr, rows*cols)}
	for k := range out.data {
		x, y := a.data[0], b.data[0]
		if !a.IsScalar() {
			x = a.data[k]
		}
		if !b.IsScalar() {
			y = b.data[k]
		}
		out.data[k] = f(x, y)
	}
	return out
}

// Zip3 combines three matrices entry by entry with broadcasting of 1x1
// operands.
func Zip3(a, b, c *Matrix, f func(x, y, z *Expr) *Expr) *Matrix {
	rows, cols := 1, 1
	for _, m := range []*Matrix{a, b, c} {
		if !m.IsScalar() {
			if (rows != 1 || cols != 1) && (rows != m.rows || cols != m.cols) {
				panic(fmt.Sprintf("sx: dimension mismatch %dx%d vs %dx%d", rows, cols, m.rows, m.cols))
			}
			rows, cols = m.rows, m.cols
		}
	}
	pick := func(m *Matrix, k int) *Expr {
		if m.IsScalar() {
			return m.data[0]
		}
		return m.data[k]
	}
	out := &Matrix{rows: rows, cols: cols, data: make([]*Expr, rows*cols)}
	for k := range out.data {
		out.data[k] = f(pick(a, k), pick(b, k), pick(c, k))
	}
	return out
}

func (m *Matrix) MatAdd(other *Matrix) *Matrix { return Zip(m, other, Add) }
func (m *Matrix) MatSub(other *Matrix) *Matrix { return Zip(m, other, Sub) }
func (m *Matrix) Neg() *Matrix                 { return m.Map(Neg) }

func (m *Matrix) Scale(scalar *Expr) *Matrix {
	return m.Map(func(e *Expr) *Expr { return Mul(scalar, e) })
}

// ============================================================
// Linear algebra
// ============================================================

func (m *Matrix) MatMul(other *Matrix) *Matrix {
	if m.cols != other.rows {
		panic(fmt.Sprintf("sx: dimension mismatch in MatMul %dx%d * %dx%d", m.rows, m.cols, other.rows, other.cols))
	}
	result := NewMatrix(m.rows, other.cols)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < other.cols; j++ {
			acc := zero
			for k := 0; k < m.cols; k++ {
				acc = Add(acc, Mul(m.Get(i, k), other.Get(k, j)))
			}
			result.Set(i, j, acc)
		}
	}
	return result
}

func (m *Matrix) Transpose() *Matrix {
	result := NewMatrix(m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			result.Set(j, i, m.Get(i, j))
		}
	}
	return result
}

func (m *Matrix) Trace() *Expr {
	acc := zero
	for i := 0; i < m.rows && i < m.cols; i++ {
		acc = Add(acc, m.Get(i, i))
	}
	return acc
}

// Det computes the determinant by cofactor expansion.
func (m *Matrix) Det() *Expr {
	if m.rows != m.cols {
		panic("sx: Det requires a square matrix")
	}
	if m.rows == 0 {
		return one
	}
	return matDet(m.rowsOf(), m.rows)
}

func (m *Matrix) rowsOf() [][]*Expr {
	data := make([][]*Expr, m.rows)
	for i := range data {
		data[i] = make([]*Expr, m.cols)
		for j := range data[i] {
			data[i][j] = m.Get(i, j)
		}
	}
	return data
}

func matDet(data [][]*Expr, n int) *Expr {
	if n == 1 {
		return data[0][0]
	}
	if n == 2 {
		return Sub(Mul(data[0][0], data[1][1]), Mul(data[0][1], data[1][0]))
	}
	acc := zero
	for j := 0; j < n; j++ {
		if data[0][j].IsZero() {
			continue
		}
		term := Mul(data[0][j], matDet(makeMinor(data, n, 0, j), n-1))
		if j%2 == 1 {
			acc = Sub(acc, term)
		} else {
			acc = Add(acc, term)
		}
	}
	return acc
}

func makeMinor(data [][]*Expr, n, skipRow, skipCol int) [][]*Expr {
	minor := make([][]*Expr, 0, n-1)
	for i := 0; i < n; i++ {
		if i == skipRow {
			continue
		}
		row := make([]*Expr, 0, n-1)
		for j := 0; j < n; j++ {
			if j != skipCol {
				row = append(row, data[i][j])
			}
		}
		minor = append(minor, row)
	}
	return minor
}

// Inverse computes adj(m)/det(m). A constant zero determinant is an error.
func (m *Matrix) Inverse() (*Matrix, error) {
	if m.rows != m.cols {
		return nil, fmt.Errorf("sx: Inverse requires a square matrix, got %dx%d", m.rows, m.cols)
	}
	det := m.Det()
	if det.IsZero() {
		return nil, fmt.Errorf("sx: matrix is singular")
	}
	n := m.rows
	if n == 1 {
		return Scalar(Div(one, det)), nil
	}
	data := m.rowsOf()
	inv := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			c := matDet(makeMinor(data, n, i, j), n-1)
			if (i+j)%2 == 1 {
				c = Neg(c)
			}
			// adjugate is the transposed cofactor matrix
			inv.Set(j, i, Div(c, det))
		}
	}
	return inv, nil
}

// ============================================================
// Shape manipulation
// ============================================================

// Vertcat stacks matrices with equal column counts. Empty matrices are
// skipped.
func Vertcat(ms ...*Matrix) (*Matrix, error) {
	var parts []*Matrix
	for _, m := range ms {
		if !m.IsEmpty() {
			parts = append(parts, m)
		}
	}
	if len(parts) == 0 {
		return NewMatrix(0, 0), nil
	}
	cols, rows := parts[0].cols, 0
	for _, p := range parts {
		if p.cols != cols {
			return nil, fmt.Errorf("sx: Vertcat column mismatch %d vs %d", cols, p.cols)
		}
		rows += p.rows
	}
	out := NewMatrix(rows, cols)
	r := 0
	for _, p := range parts {
		for i := 0; i < p.rows; i++ {
			for j := 0; j < cols; j++ {
				out.Set(r+i, j, p.Get(i, j))
			}
		}
		r += p.rows
	}
	return out, nil
}

// Horzcat concatenates matrices with equal row counts. Empty matrices are
// skipped.
func Horzcat(ms ...*Matrix) (*Matrix, error) {
	var parts []*Matrix
	for _, m := range ms {
		if !m.IsEmpty() {
			parts = append(parts, m)
		}
	}
	if len(parts) == 0 {
		return NewMatrix(0, 0), nil
	}
	rows := parts[0].rows
	var data []*Expr
	cols := 0
	for _, p := range parts {
		if p.rows != rows {
			return nil, fmt.Errorf("sx: Horzcat row mismatch %d vs %d", rows, p.rows)
		}
		data = append(data, p.data...)
		cols += p.cols
	}
	return &Matrix{rows: rows, cols: cols, data: data}, nil
}

// Reshape reinterprets the column-major entries with a new shape.
func (m *Matrix) Reshape(rows, cols int) (*Matrix, error) {
	if rows*cols != len(m.data) || rows < 0 || cols < 0 {
		return nil, fmt.Errorf("sx: cannot reshape %dx%d into %dx%d", m.rows, m.cols, rows, cols)
	}
	return &Matrix{rows: rows, cols: cols, data: m.Elements()}, nil
}

// Slice selects the given rows and columns, in the given order.
func (m *Matrix) Slice(rows, cols []int) *Matrix {
	out := NewMatrix(len(rows), len(cols))
	for i, r := range rows {
		for j, c := range cols {
			out.Set(i, j, m.Get(r, c))
		}
	}
	return out
}

// Remove deletes the listed rows and columns.
func (m *Matrix) Remove(rows, cols []int) *Matrix {
	drop := func(n int, idx []int) []int {
		skip := map[int]bool{}
		for _, i := range idx {
			if i < 0 || i >= n {
				panic(fmt.Sprintf("sx: Remove index %d out of range for %d", i, n))
			}
			skip[i] = true
		}
		keep := make([]int, 0, n)
		for i := 0; i < n; i++ {
			if !skip[i] {
				keep = append(keep, i)
			}
		}
		return keep
	}
	return m.Slice(drop(m.rows, rows), drop(m.cols, cols))
}

// Range returns [start, start+1, ..., end-1].
func Range(start, end int) []int {
	if end < start {
		return nil
	}
	out := make([]int, end-start)
	for i := range out {
		out[i] = start + i
	}
	return out
}

// ============================================================
// Sparsity
// ============================================================

// Sparsity returns the compressed-column pattern of the structural
// nonzeros: colPtr has cols+1 entries, rowIdx one per nonzero.
func (m *Matrix) Sparsity() (colPtr, rowIdx []int) {
	colPtr = make([]int, m.cols+1)
	for j := 0; j < m.cols; j++ {
		for i := 0; i < m.rows; i++ {
			if !m.data[j*m.rows+i].IsZero() {
				rowIdx = append(rowIdx, i)
			}
		}
		colPtr[j+1] = len(rowIdx)
	}
	return colPtr, rowIdx
}

// Nnz counts the structural nonzeros.
func (m *Matrix) Nnz() int {
	n := 0
	for _, e := range m.data {
		if !e.IsZero() {
			n++
		}
	}
	return n
}

// ============================================================
// Calculus on matrices
// ============================================================

// Jacobian returns the Numel(m) x len(syms) matrix of partials; rows follow
// the column-major entry order of m.
func (m *Matrix) Jacobian(syms []*Expr) *Matrix {
	out := NewMatrix(len(m.data), len(syms))
	for j, s := range syms {
		d := newDiffer(s)
		for i, e := range m.data {
			out.data[j*out.rows+i] = d.diff(e)
		}
	}
	return out
}

// Hessian returns the matrix of second partials of the scalar e.
func Hessian(e *Expr, syms []*Expr) *Matrix {
	return Column(Gradient(e, syms)...).Jacobian(syms)
}

// Substitute applies the replacement to every entry, sharing work between
// entries.
func (m *Matrix) Substitute(repl map[*Expr]*Expr) *Matrix {
	s := newSubstituter(repl)
	return m.Map(s.sub)
}
