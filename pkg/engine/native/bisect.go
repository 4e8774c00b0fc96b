package native

import (
	"math/rand/v2"

	"github.com/dd0wney/cluso-graphpart/pkg/csr"
	"github.com/dd0wney/cluso-graphpart/pkg/pools"
)

// bfsOrder visits the component of start breadth first and returns the
// visit order together with the level of the last vertex.
func bfsOrder(g *csr.Graph, start int, seen []bool) ([]int, int) {
	order := []int{start}
	level := pools.Ints(g.N, 0)
	defer pools.PutInts(level)
	seen[start] = true
	for head := 0; head < len(order); head++ {
		v := order[head]
		for _, u := range g.Neighbors(v) {
			if !seen[u] {
				seen[u] = true
				level[u] = level[v] + 1
				order = append(order, u)
			}
		}
	}
	return order, level[order[len(order)-1]]
}

// pseudoPeripheral walks to the far end of successive BFS trees until the
// eccentricity stops growing.
func pseudoPeripheral(g *csr.Graph, start int) int {
	seen := pools.Bools(g.N)
	defer pools.PutBools(seen)

	cur := start
	order, ecc := bfsOrder(g, cur, seen)
	for i := 0; i < g.N; i++ {
		far := order[len(order)-1]
		clear(seen)
		next, e := bfsOrder(g, far, seen)
		if e <= ecc {
			break
		}
		cur, order, ecc = far, next, e
	}
	return cur
}

// grow assigns side 0 to vertices reached breadth first from start until
// their weight reaches target0. Unreached components are entered from the
// lowest unassigned vertex. Everything else stays on side 1.
func grow(g *csr.Graph, start, target0 int) []int {
	where := make([]int, g.N)
	for i := range where {
		where[i] = 1
	}
	if g.N == 0 || target0 <= 0 {
		return where
	}

	queued := pools.Bools(g.N)
	defer pools.PutBools(queued)
	queue := []int{start}
	queued[start] = true
	next := 0
	w0 := 0

	for w0 < target0 {
		if len(queue) == 0 {
			for next < g.N && queued[next] {
				next++
			}
			if next == g.N {
				break
			}
			queue = append(queue, next)
			queued[next] = true
		}
		v := queue[0]
		queue = queue[1:]

		vw := g.VertexWeight(v)
		if w0 > 0 && w0+vw > target0 {
			if w0+vw-target0 < target0-w0 {
				where[v] = 0
			}
			break
		}
		where[v] = 0
		w0 += vw

		for _, u := range g.Neighbors(v) {
			if !queued[u] {
				queued[u] = true
				queue = append(queue, u)
			}
		}
	}
	return where
}

// bisect runs trials graph-growing bisections from random pseudo-peripheral
// starts and keeps the one with the smallest cut. Side 0 aims at target0 of
// the vertex weight.
func bisect(g *csr.Graph, target0, trials int, rng *rand.Rand) []int {
	if g.N == 0 {
		return nil
	}
	if trials < 1 {
		trials = 1
	}

	var best []int
	bestCut := 0
	for trial := 0; trial < trials; trial++ {
		start := pseudoPeripheral(g, rng.IntN(g.N))
		where := grow(g, start, target0)
		cut := g.EdgeCut(where)
		if best == nil || cut < bestCut {
			best, bestCut = where, cut
		}
	}
	return best
}

// vertexSeparator turns an edge bisection into a vertex separator by taking
// the smaller of the two boundary layers. It returns the separator and the
// two remaining sides.
func vertexSeparator(g *csr.Graph, where []int) (sep, left, right []int) {
	var b0, b1 []int
	for v := 0; v < g.N; v++ {
		for _, u := range g.Neighbors(v) {
			if where[u] != where[v] {
				if where[v] == 0 {
					b0 = append(b0, v)
				} else {
					b1 = append(b1, v)
				}
				break
			}
		}
	}

	sep = b0
	if len(b1) < len(b0) {
		sep = b1
	}
	inSep := pools.Bools(g.N)
	defer pools.PutBools(inSep)
	for _, v := range sep {
		inSep[v] = true
	}
	for v := 0; v < g.N; v++ {
		switch {
		case inSep[v]:
		case where[v] == 0:
			left = append(left, v)
		default:
			right = append(right, v)
		}
	}
	return sep, left, right
}
