package sparse

import (
	"fmt"
	"sort"
)

// Matrix is a column-compressed sparse matrix.
//
// Column j occupies RowIdx[ColPtr[j]:ColPtr[j+1]] and the matching Values
// range. Row indices are 0-based. Entries within a column are kept in the
// order they were supplied; nothing here sorts or deduplicates them.
type Matrix struct {
	Rows   int
	Cols   int
	ColPtr []int
	RowIdx []int
	Values []float64
}

// Dense is a column-major dense matrix. It exists so callers can hand the
// dispatch layer a non-sparse value and get the documented rejection.
type Dense struct {
	Rows int
	Cols int
	Data []float64
}

// Triplet is a single (row, col, value) entry used to assemble a Matrix.
type Triplet struct {
	Row   int
	Col   int
	Value float64
}

// NewMatrix wraps existing column-compressed arrays after checking that they
// are structurally consistent. Symmetry is not checked.
func NewMatrix(rows, cols int, colPtr, rowIdx []int, values []float64) (*Matrix, error) {
	m := &Matrix{
		Rows:   rows,
		Cols:   cols,
		ColPtr: colPtr,
		RowIdx: rowIdx,
		Values: values,
	}
	if err := m.Check(); err != nil {
		return nil, err
	}
	return m, nil
}

// Check verifies the column pointer and row index arrays.
func (m *Matrix) Check() error {
	if m.Rows < 0 || m.Cols < 0 {
		return fmt.Errorf("%w: %dx%d", ErrDimensions, m.Rows, m.Cols)
	}
	if len(m.ColPtr) != m.Cols+1 {
		return fmt.Errorf("%w: column pointer length %d, want %d", ErrMalformed, len(m.ColPtr), m.Cols+1)
	}
	if m.ColPtr[0] != 0 {
		return fmt.Errorf("%w: column pointer must start at 0, got %d", ErrMalformed, m.ColPtr[0])
	}
	for j := 0; j < m.Cols; j++ {
		if m.ColPtr[j+1] < m.ColPtr[j] {
			return fmt.Errorf("%w: column pointer decreases at column %d", ErrMalformed, j)
		}
	}
	nnz := m.ColPtr[m.Cols]
	if len(m.RowIdx) != nnz || len(m.Values) != nnz {
		return fmt.Errorf("%w: nnz %d but %d row indices and %d values", ErrMalformed, nnz, len(m.RowIdx), len(m.Values))
	}
	for k, r := range m.RowIdx {
		if r < 0 || r >= m.Rows {
			return fmt.Errorf("%w: row index %d at position %d outside [0,%d)", ErrIndexOutOfRange, r, k, m.Rows)
		}
	}
	return nil
}

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int {
	if len(m.ColPtr) == 0 {
		return 0
	}
	return m.ColPtr[len(m.ColPtr)-1]
}

// IsSquare reports whether the matrix has as many rows as columns.
func (m *Matrix) IsSquare() bool {
	return m.Rows == m.Cols
}

// At returns the sum of all stored entries at (i, j).
func (m *Matrix) At(i, j int) float64 {
	var v float64
	for k := m.ColPtr[j]; k < m.ColPtr[j+1]; k++ {
		if m.RowIdx[k] == i {
			v += m.Values[k]
		}
	}
	return v
}

// Transpose returns a new matrix holding the transpose. Entries of each
// result column come out in increasing source column order.
func (m *Matrix) Transpose() *Matrix {
	t := &Matrix{
		Rows:   m.Cols,
		Cols:   m.Rows,
		ColPtr: make([]int, m.Rows+1),
		RowIdx: make([]int, m.NNZ()),
		Values: make([]float64, m.NNZ()),
	}
	for _, r := range m.RowIdx {
		t.ColPtr[r+1]++
	}
	for i := 0; i < m.Rows; i++ {
		t.ColPtr[i+1] += t.ColPtr[i]
	}
	next := make([]int, m.Rows)
	copy(next, t.ColPtr[:m.Rows])
	for j := 0; j < m.Cols; j++ {
		for k := m.ColPtr[j]; k < m.ColPtr[j+1]; k++ {
			r := m.RowIdx[k]
			t.RowIdx[next[r]] = j
			t.Values[next[r]] = m.Values[k]
			next[r]++
		}
	}
	return t
}

// StructurallySymmetric reports whether every stored (i, j) has a stored (j, i).
// The dispatch path never calls this; it is offered to callers that want to
// check their input before handing it over.
func (m *Matrix) StructurallySymmetric() bool {
	if !m.IsSquare() {
		return false
	}
	seen := make(map[[2]int]struct{}, m.NNZ())
	for j := 0; j < m.Cols; j++ {
		for k := m.ColPtr[j]; k < m.ColPtr[j+1]; k++ {
			seen[[2]int{m.RowIdx[k], j}] = struct{}{}
		}
	}
	for key := range seen {
		if _, ok := seen[[2]int{key[1], key[0]}]; !ok {
			return false
		}
	}
	return true
}

// FromTriplets assembles a rows x cols matrix. Entries are sorted by column
// then row and duplicates are summed, as a host environment's sparse
// constructor would do. Explicit zeros are kept.
func FromTriplets(rows, cols int, entries []Triplet) (*Matrix, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrDimensions, rows, cols)
	}
	sorted := make([]Triplet, len(entries))
	copy(sorted, entries)
	for _, e := range sorted {
		if e.Row < 0 || e.Row >= rows || e.Col < 0 || e.Col >= cols {
			return nil, fmt.Errorf("%w: (%d,%d) in %dx%d", ErrIndexOutOfRange, e.Row, e.Col, rows, cols)
		}
	}
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].Col != sorted[b].Col {
			return sorted[a].Col < sorted[b].Col
		}
		return sorted[a].Row < sorted[b].Row
	})

	m := &Matrix{
		Rows:   rows,
		Cols:   cols,
		ColPtr: make([]int, cols+1),
		RowIdx: make([]int, 0, len(sorted)),
		Values: make([]float64, 0, len(sorted)),
	}
	for i, e := range sorted {
		if i > 0 && sorted[i-1].Col == e.Col && sorted[i-1].Row == e.Row {
			m.Values[len(m.Values)-1] += e.Value
			continue
		}
		m.RowIdx = append(m.RowIdx, e.Row)
		m.Values = append(m.Values, e.Value)
		m.ColPtr[e.Col+1]++
	}
	for j := 0; j < cols; j++ {
		m.ColPtr[j+1] += m.ColPtr[j]
	}
	return m, nil
}

// FromDense compresses a dense matrix, dropping exact zeros.
func FromDense(d *Dense) (*Matrix, error) {
	if len(d.Data) != d.Rows*d.Cols {
		return nil, fmt.Errorf("%w: %d values for %dx%d", ErrDimensions, len(d.Data), d.Rows, d.Cols)
	}
	m := &Matrix{
		Rows:   d.Rows,
		Cols:   d.Cols,
		ColPtr: make([]int, d.Cols+1),
	}
	for j := 0; j < d.Cols; j++ {
		for i := 0; i < d.Rows; i++ {
			if v := d.Data[j*d.Rows+i]; v != 0 {
				m.RowIdx = append(m.RowIdx, i)
				m.Values = append(m.Values, v)
			}
		}
		m.ColPtr[j+1] = len(m.RowIdx)
	}
	return m, nil
}

// ToDense expands the matrix into column-major dense form, summing duplicates.
func (m *Matrix) ToDense() *Dense {
	d := &Dense{Rows: m.Rows, Cols: m.Cols, Data: make([]float64, m.Rows*m.Cols)}
	for j := 0; j < m.Cols; j++ {
		for k := m.ColPtr[j]; k < m.ColPtr[j+1]; k++ {
			d.Data[j*m.Rows+m.RowIdx[k]] += m.Values[k]
		}
	}
	return d
}
