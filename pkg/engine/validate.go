package engine

import (
	"github.com/dd0wney/cluso-graphpart/pkg/csr"
)

// ValidateGraph checks the array shapes of g and that every neighbour index
// is a vertex. Symmetry is not checked.
func ValidateGraph(g *csr.Graph) error {
	if g == nil {
		return InputError("nil graph")
	}
	if g.N < 0 {
		return InputError("negative vertex count %d", g.N)
	}
	if len(g.Xadj) != g.N+1 {
		return InputError("xadj has %d entries, want %d", len(g.Xadj), g.N+1)
	}
	arcs := g.Xadj[g.N]
	if len(g.Adjncy) != arcs {
		return InputError("adjncy has %d entries, xadj says %d", len(g.Adjncy), arcs)
	}
	if g.Adjwgt != nil && len(g.Adjwgt) != arcs {
		return InputError("adjwgt has %d entries, want %d", len(g.Adjwgt), arcs)
	}
	if g.Vwgt != nil && len(g.Vwgt) != g.N {
		return InputError("vwgt has %d entries, want %d", len(g.Vwgt), g.N)
	}
	for v := 0; v < g.N; v++ {
		if g.Xadj[v+1] < g.Xadj[v] {
			return InputError("xadj decreases at vertex %d", v)
		}
	}
	for j, u := range g.Adjncy {
		if u < 0 || u >= g.N {
			return InputError("adjncy[%d] = %d outside [0,%d)", j, u, g.N)
		}
	}
	return nil
}

// ValidatePartitionArgs checks the scalar arguments shared by the
// partitioning entry points.
func ValidatePartitionArgs(g *csr.Graph, ncon, nparts int) error {
	if err := ValidateGraph(g); err != nil {
		return err
	}
	if ncon != 1 {
		return InputError("ncon = %d, only 1 constraint is supported", ncon)
	}
	if nparts < 1 {
		return InputError("nparts = %d", nparts)
	}
	return nil
}
