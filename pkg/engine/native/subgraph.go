package native

import (
	"github.com/dd0wney/cluso-graphpart/pkg/csr"
	"github.com/dd0wney/cluso-graphpart/pkg/pools"
)

// piece is a vertex-induced subgraph with the original id of every vertex.
type piece struct {
	g     *csr.Graph
	label []int
}

func wholeGraph(g *csr.Graph) *piece {
	label := make([]int, g.N)
	for v := range label {
		label[v] = v
	}
	return &piece{g: g, label: label}
}

// induce returns the subgraph on vertices (local ids of p). Edges leaving
// the subset are dropped.
func (p *piece) induce(vertices []int) *piece {
	local := pools.Ints(p.g.N, -1)
	defer pools.PutInts(local)
	for i, v := range vertices {
		local[v] = i
	}

	sub := &csr.Graph{
		N:    len(vertices),
		Xadj: make([]int, len(vertices)+1),
	}
	if p.g.Vwgt != nil {
		sub.Vwgt = make([]int, len(vertices))
	}
	if p.g.Adjwgt != nil {
		sub.Adjwgt = make([]int, 0)
	}
	label := make([]int, len(vertices))

	for i, v := range vertices {
		label[i] = p.label[v]
		if sub.Vwgt != nil {
			sub.Vwgt[i] = p.g.Vwgt[v]
		}
		for j := p.g.Xadj[v]; j < p.g.Xadj[v+1]; j++ {
			u := local[p.g.Adjncy[j]]
			if u < 0 {
				continue
			}
			sub.Adjncy = append(sub.Adjncy, u)
			if sub.Adjwgt != nil {
				sub.Adjwgt = append(sub.Adjwgt, p.g.Adjwgt[j])
			}
		}
		sub.Xadj[i+1] = len(sub.Adjncy)
	}
	return &piece{g: sub, label: label}
}

// split returns the local ids with where[v] == side.
func split(where []int, side int) []int {
	out := make([]int, 0, len(where))
	for v, s := range where {
		if s == side {
			out = append(out, v)
		}
	}
	return out
}

// balancingWeights returns g itself when its vertex weights sum to something
// positive, and a unit-weight view otherwise. A graph without any weight
// would give every bisection target zero.
func balancingWeights(g *csr.Graph) *csr.Graph {
	if g.Vwgt == nil || g.TotalVertexWeight() <= 0 {
		return g.WithUnitVertexWeights()
	}
	return g
}
