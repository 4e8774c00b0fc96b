// Package csr holds the compressed-sparse-row graph handed to partitioning
// engines and the converter that builds it from a host sparse matrix.
package csr

import (
	"github.com/dd0wney/cluso-graphpart/pkg/sparse"
)

// Graph is an adjacency structure in CSR form.
//
// The neighbours of vertex v are Adjncy[Xadj[v]:Xadj[v+1]] with matching
// weights in Adjwgt. Vwgt may be nil when vertex weights are not supplied.
type Graph struct {
	N      int
	Xadj   []int
	Adjncy []int
	Vwgt   []int
	Adjwgt []int
}

// NumArcs returns the number of directed adjacency entries. For a symmetric
// graph this is twice the edge count.
func (g *Graph) NumArcs() int {
	if len(g.Xadj) == 0 {
		return 0
	}
	return g.Xadj[g.N]
}

// Degree returns the number of adjacency entries of v.
func (g *Graph) Degree(v int) int {
	return g.Xadj[v+1] - g.Xadj[v]
}

// Neighbors returns the adjacency range of v. The slice aliases the graph.
func (g *Graph) Neighbors(v int) []int {
	return g.Adjncy[g.Xadj[v]:g.Xadj[v+1]]
}

// VertexWeight returns the weight of v, or 1 when the graph carries none.
func (g *Graph) VertexWeight(v int) int {
	if g.Vwgt == nil {
		return 1
	}
	return g.Vwgt[v]
}

// EdgeWeight returns the weight of the adjacency entry at position j, or 1
// when the graph carries none.
func (g *Graph) EdgeWeight(j int) int {
	if g.Adjwgt == nil {
		return 1
	}
	return g.Adjwgt[j]
}

// TotalVertexWeight sums VertexWeight over all vertices.
func (g *Graph) TotalVertexWeight() int {
	total := 0
	for v := 0; v < g.N; v++ {
		total += g.VertexWeight(v)
	}
	return total
}

// EdgeCut returns the weighted number of edges whose endpoints carry
// different labels. Every arc is visited once and the sum halved, matching
// how partitioning engines report the cut of a symmetric graph.
func (g *Graph) EdgeCut(part []int) int {
	cut := 0
	for v := 0; v < g.N; v++ {
		for j := g.Xadj[v]; j < g.Xadj[v+1]; j++ {
			if part[v] != part[g.Adjncy[j]] {
				cut += g.EdgeWeight(j)
			}
		}
	}
	return cut / 2
}

// WithUnitVertexWeights returns a graph sharing the adjacency arrays of g
// whose vertex weights are all 1.
func (g *Graph) WithUnitVertexWeights() *Graph {
	vwgt := make([]int, g.N)
	for i := range vwgt {
		vwgt[i] = 1
	}
	return &Graph{N: g.N, Xadj: g.Xadj, Adjncy: g.Adjncy, Vwgt: vwgt, Adjwgt: g.Adjwgt}
}

// WithoutVertexWeights returns a graph sharing the adjacency arrays of g with
// Vwgt set to nil.
func (g *Graph) WithoutVertexWeights() *Graph {
	return &Graph{N: g.N, Xadj: g.Xadj, Adjncy: g.Adjncy, Adjwgt: g.Adjwgt}
}

// ToMatrix rebuilds a column-compressed matrix from the graph: adjacency
// entries become off-diagonal values and non-zero vertex weights go on the
// diagonal, ahead of the column's other entries.
func (g *Graph) ToMatrix() *sparse.Matrix {
	m := &sparse.Matrix{
		Rows:   g.N,
		Cols:   g.N,
		ColPtr: make([]int, g.N+1),
		RowIdx: make([]int, 0, g.NumArcs()+g.N),
		Values: make([]float64, 0, g.NumArcs()+g.N),
	}
	for v := 0; v < g.N; v++ {
		if g.Vwgt != nil && g.Vwgt[v] != 0 {
			m.RowIdx = append(m.RowIdx, v)
			m.Values = append(m.Values, float64(g.Vwgt[v]))
		}
		for j := g.Xadj[v]; j < g.Xadj[v+1]; j++ {
			m.RowIdx = append(m.RowIdx, g.Adjncy[j])
			m.Values = append(m.Values, float64(g.EdgeWeight(j)))
		}
		m.ColPtr[v+1] = len(m.RowIdx)
	}
	return m
}
