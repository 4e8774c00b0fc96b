package partition

import (
	"fmt"

	"github.com/dd0wney/cluso-graphpart/pkg/csr"
)

// Metrics describes the quality of a partition.
type Metrics struct {
	Parts       int
	Sizes       []int   // vertices per part, up to the highest label used
	Weights     []int   // vertex weight per part, same length as Sizes
	CutArcs     []int   // arcs leaving each part, same length as Sizes
	EdgeCut     int     // weighted cut, as engines report it
	LoadBalance float64 // 0-1, 1 = perfectly even sizes
	Imbalance   float64 // heaviest part weight over the average
	CutRatio    float64 // fraction of arcs that are cut
	EmptyParts  int
}

// ComputeMetrics analyzes part, a 0-based labelling of g into nparts.
//
// The per-part slices stop at the highest label present, so their length
// is bounded by the vertex count and not by nparts. Parts beyond it are
// empty and are counted in EmptyParts and the balance figures.
func ComputeMetrics(g *csr.Graph, part []int, nparts int) (*Metrics, error) {
	if err := ValidateLabels(part, g.N, nparts); err != nil {
		return nil, err
	}
	used := 0
	for _, p := range part {
		used = max(used, p+1)
	}
	m := &Metrics{
		Parts:   nparts,
		Sizes:   make([]int, used),
		Weights: make([]int, used),
		CutArcs: make([]int, used),
		EdgeCut: g.EdgeCut(part),
	}

	totalWeight, cutArcs := 0, 0
	for v := 0; v < g.N; v++ {
		p := part[v]
		m.Sizes[p]++
		w := g.VertexWeight(v)
		m.Weights[p] += w
		totalWeight += w
		for _, u := range g.Neighbors(v) {
			if part[u] != p {
				m.CutArcs[p]++
				cutArcs++
			}
		}
	}

	// Variance from the perfect size, squashed into (0,1].
	avgSize := float64(g.N) / float64(nparts)
	variance := 0.0
	for _, size := range m.Sizes {
		diff := float64(size) - avgSize
		variance += diff * diff
	}
	variance += float64(nparts-used) * avgSize * avgSize
	variance /= float64(nparts)
	m.LoadBalance = 1
	if variance > 0 {
		m.LoadBalance = 1 / (1 + variance/avgSize)
	}

	if totalWeight > 0 {
		heaviest := 0
		for _, w := range m.Weights {
			heaviest = max(heaviest, w)
		}
		m.Imbalance = float64(heaviest) * float64(nparts) / float64(totalWeight)
	}
	if arcs := g.NumArcs(); arcs > 0 {
		m.CutRatio = float64(cutArcs) / float64(arcs)
	}
	m.EmptyParts = nparts - used
	for _, s := range m.Sizes {
		if s == 0 {
			m.EmptyParts++
		}
	}
	return m, nil
}

// ValidateLabels checks that part labels n vertices with values in [0, nparts).
func ValidateLabels(part []int, n, nparts int) error {
	if nparts < 1 {
		return fmt.Errorf("nparts = %d", nparts)
	}
	if len(part) != n {
		return fmt.Errorf("partition has %d labels, want %d", len(part), n)
	}
	for v, p := range part {
		if p < 0 || p >= nparts {
			return fmt.Errorf("vertex %d has label %d outside [0,%d)", v, p, nparts)
		}
	}
	return nil
}

// ValidatePermutation checks that perm and iperm are mutually inverse
// permutations of base..base+n-1.
func ValidatePermutation(perm, iperm []int, base int) error {
	n := len(perm)
	if len(iperm) != n {
		return fmt.Errorf("perm has %d entries, iperm has %d", n, len(iperm))
	}
	seen := make([]bool, n)
	for i, p := range perm {
		j := p - base
		if j < 0 || j >= n {
			return fmt.Errorf("perm[%d] = %d outside [%d,%d]", i, p, base, base+n-1)
		}
		if seen[j] {
			return fmt.Errorf("perm repeats %d", p)
		}
		seen[j] = true
	}
	for i, p := range perm {
		k := iperm[p-base] - base
		if k != i {
			return fmt.Errorf("iperm[perm[%d]] = %d, want %d", i, k+base, i+base)
		}
	}
	return nil
}
