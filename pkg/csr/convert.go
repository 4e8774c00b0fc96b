package csr

import (
	"github.com/dd0wney/cluso-graphpart/pkg/sparse"
)

// Convert turns a square column-compressed matrix into a CSR graph.
//
// Column i supplies the adjacency of vertex i. A stored entry on row i is the
// vertex weight; every other entry becomes a neighbour whose edge weight is
// the value truncated toward zero. Off-diagonal entries keep their storage
// order. The matrix is assumed structurally symmetric and is not checked: an
// unsymmetric input yields a directed-looking graph. m is never modified.
func Convert(m *sparse.Matrix) *Graph {
	n := m.Cols
	nnz := m.NNZ()

	g := &Graph{
		N:      n,
		Xadj:   make([]int, n+1),
		Adjncy: make([]int, nnz),
		Vwgt:   make([]int, n),
		Adjwgt: make([]int, nnz),
	}

	cursor := 0
	for i := 0; i < n; i++ {
		for k := m.ColPtr[i]; k < m.ColPtr[i+1]; k++ {
			r := m.RowIdx[k]
			if r == i {
				g.Vwgt[i] = int(m.Values[k])
				continue
			}
			g.Adjncy[cursor] = r
			g.Adjwgt[cursor] = int(m.Values[k])
			cursor++
		}
		g.Xadj[i+1] = cursor
	}

	g.Adjncy = g.Adjncy[:cursor:cursor]
	g.Adjwgt = g.Adjwgt[:cursor:cursor]
	return g
}
