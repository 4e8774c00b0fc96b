package native

import (
	"context"
	"math/rand/v2"

	"github.com/emirpasic/gods/trees/binaryheap"

	"github.com/dd0wney/cluso-graphpart/pkg/csr"
)

type degreeEntry struct {
	vertex int
	degree int
}

func byDegree(a, b interface{}) int {
	x, y := a.(degreeEntry), b.(degreeEntry)
	switch {
	case x.degree != y.degree:
		return x.degree - y.degree
	default:
		return x.vertex - y.vertex
	}
}

// minimumDegree returns an elimination order of g built by repeatedly
// removing the vertex of smallest current degree and joining its neighbours
// into a clique. Stale heap entries are skipped on pop.
func minimumDegree(g *csr.Graph) []int {
	adj := make([]map[int]struct{}, g.N)
	for v := 0; v < g.N; v++ {
		adj[v] = make(map[int]struct{}, g.Degree(v))
	}
	for v := 0; v < g.N; v++ {
		for _, u := range g.Neighbors(v) {
			if u == v {
				continue
			}
			adj[v][u] = struct{}{}
			adj[u][v] = struct{}{}
		}
	}

	heap := binaryheap.NewWith(byDegree)
	for v := 0; v < g.N; v++ {
		heap.Push(degreeEntry{vertex: v, degree: len(adj[v])})
	}

	eliminated := make([]bool, g.N)
	order := make([]int, 0, g.N)
	for len(order) < g.N {
		top, ok := heap.Pop()
		if !ok {
			break
		}
		e := top.(degreeEntry)
		if eliminated[e.vertex] || e.degree != len(adj[e.vertex]) {
			continue
		}
		v := e.vertex
		eliminated[v] = true
		order = append(order, v)

		nbrs := make([]int, 0, len(adj[v]))
		for u := range adj[v] {
			nbrs = append(nbrs, u)
			delete(adj[u], v)
		}
		for i, a := range nbrs {
			for _, b := range nbrs[i+1:] {
				adj[a][b] = struct{}{}
				adj[b][a] = struct{}{}
			}
		}
		for _, u := range nbrs {
			heap.Push(degreeEntry{vertex: u, degree: len(adj[u])})
		}
		adj[v] = nil
	}
	return order
}

// dissect orders p into positions [first, first+p.g.N) of iperm, numbering
// separators after the two halves they split.
func (e *Engine) dissect(ctx context.Context, p *piece, first int, iperm []int, trials int, rng *rand.Rand) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g := p.g
	if g.N == 0 {
		return nil
	}

	if g.N > e.leafSize {
		weighted := balancingWeights(g)
		where := bisect(weighted, weighted.TotalVertexWeight()/2, trials, rng)
		sep, left, right := vertexSeparator(g, where)
		if len(left) > 0 && len(right) > 0 {
			if err := e.dissect(ctx, p.induce(left), first, iperm, trials, rng); err != nil {
				return err
			}
			if err := e.dissect(ctx, p.induce(right), first+len(left), iperm, trials, rng); err != nil {
				return err
			}
			pos := first + len(left) + len(right)
			for i, v := range sep {
				iperm[p.label[v]] = pos + i
			}
			return nil
		}
	}

	for i, v := range minimumDegree(g) {
		iperm[p.label[v]] = first + i
	}
	return nil
}
