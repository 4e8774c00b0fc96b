//go:build metis && cgo

package metis

/*
#cgo LDFLAGS: -lmetis -lm

#include <metis.h>
*/
import "C"
import (
	"context"
	"fmt"

	"github.com/dd0wney/cluso-graphpart/pkg/csr"
	"github.com/dd0wney/cluso-graphpart/pkg/engine"
)

var (
	_ engine.Engine    = (*Engine)(nil)
	_ engine.Separator = (*Engine)(nil)
)

// New returns a libmetis engine.
func New() (*Engine, error) {
	if C.METIS_NOPTIONS != engine.NumOptions {
		return nil, fmt.Errorf("metis: library has %d option slots, want %d", int(C.METIS_NOPTIONS), engine.NumOptions)
	}
	return &Engine{}, nil
}

// Available reports whether libmetis was linked in.
func Available() bool {
	return true
}

// Open is New returning the engine interface.
func Open() (engine.Engine, error) {
	e, err := New()
	if err != nil {
		return nil, err
	}
	return e, nil
}

func toIdx(s []int) []C.idx_t {
	if s == nil {
		return nil
	}
	out := make([]C.idx_t, len(s))
	for i, v := range s {
		out[i] = C.idx_t(v)
	}
	return out
}

func fromIdx(s []C.idx_t) []int {
	out := make([]int, len(s))
	for i, v := range s {
		out[i] = int(v)
	}
	return out
}

// ptr returns a pointer to the first element, or nil for an empty slice,
// which libmetis reads as "not supplied".
func ptr(s []C.idx_t) *C.idx_t {
	if len(s) == 0 {
		return nil
	}
	return &s[0]
}

func cOptions(opts engine.Options) []C.idx_t {
	out := make([]C.idx_t, C.METIS_NOPTIONS)
	for i := range out {
		out[i] = C.idx_t(opts[i])
	}
	return out
}

// cGraph holds the C copies of a graph for the duration of one call.
type cGraph struct {
	nvtxs  C.idx_t
	xadj   []C.idx_t
	adjncy []C.idx_t
	vwgt   []C.idx_t
	adjwgt []C.idx_t
}

func newCGraph(g *csr.Graph) cGraph {
	return cGraph{
		nvtxs:  C.idx_t(g.N),
		xadj:   toIdx(g.Xadj),
		adjncy: toIdx(g.Adjncy),
		vwgt:   toIdx(g.Vwgt),
		adjwgt: toIdx(g.Adjwgt),
	}
}

func (e *Engine) partition(ctx context.Context, name string, g *csr.Graph, ncon int, vsize []int, nparts int, opts engine.Options) (engine.PartitionResult, error) {
	if err := ctx.Err(); err != nil {
		return engine.PartitionResult{}, err
	}
	if err := engine.ValidatePartitionArgs(g, ncon, nparts); err != nil {
		return engine.PartitionResult{}, err
	}
	if vsize != nil && len(vsize) != g.N {
		return engine.PartitionResult{}, engine.InputError("vsize has %d entries, want %d", len(vsize), g.N)
	}
	if g.N == 0 {
		return engine.PartitionResult{Part: []int{}}, nil
	}

	cg := newCGraph(g)
	cvsize := toIdx(vsize)
	cncon := C.idx_t(ncon)
	cnparts := C.idx_t(nparts)
	copts := cOptions(opts)
	var edgecut C.idx_t
	part := make([]C.idx_t, g.N)

	var status C.int
	switch name {
	case "recursive":
		status = C.METIS_PartGraphRecursive(&cg.nvtxs, &cncon, ptr(cg.xadj), ptr(cg.adjncy),
			ptr(cg.vwgt), ptr(cvsize), ptr(cg.adjwgt), &cnparts, nil, nil,
			ptr(copts), &edgecut, ptr(part))
	default:
		status = C.METIS_PartGraphKway(&cg.nvtxs, &cncon, ptr(cg.xadj), ptr(cg.adjncy),
			ptr(cg.vwgt), nil, ptr(cg.adjwgt), &cnparts, nil, nil,
			ptr(copts), &edgecut, ptr(part))
	}
	if err := engine.CheckStatus(int(status), "METIS_PartGraph"+name); err != nil {
		return engine.PartitionResult{}, err
	}
	return engine.PartitionResult{EdgeCut: int(edgecut), Part: fromIdx(part)}, nil
}

// PartGraphRecursive calls METIS_PartGraphRecursive.
func (e *Engine) PartGraphRecursive(ctx context.Context, g *csr.Graph, ncon int, vsize []int, nparts int, opts engine.Options) (engine.PartitionResult, error) {
	return e.partition(ctx, "recursive", g, ncon, vsize, nparts, opts)
}

// PartGraphKway calls METIS_PartGraphKway.
func (e *Engine) PartGraphKway(ctx context.Context, g *csr.Graph, ncon int, nparts int, opts engine.Options) (engine.PartitionResult, error) {
	return e.partition(ctx, "kway", g, ncon, nil, nparts, opts)
}

// NodeND calls METIS_NodeND. libmetis reports perm[new] = old, the same
// convention as engine.OrderingResult.
func (e *Engine) NodeND(ctx context.Context, g *csr.Graph, opts engine.Options) (engine.OrderingResult, error) {
	if err := ctx.Err(); err != nil {
		return engine.OrderingResult{}, err
	}
	if err := engine.ValidateGraph(g); err != nil {
		return engine.OrderingResult{}, err
	}
	if g.N == 0 {
		return engine.OrderingResult{Perm: []int{}, IPerm: []int{}}, nil
	}

	cg := newCGraph(g)
	copts := cOptions(opts)
	perm := make([]C.idx_t, g.N)
	iperm := make([]C.idx_t, g.N)

	status := C.METIS_NodeND(&cg.nvtxs, ptr(cg.xadj), ptr(cg.adjncy), ptr(cg.vwgt),
		ptr(copts), ptr(perm), ptr(iperm))
	if err := engine.CheckStatus(int(status), "METIS_NodeND"); err != nil {
		return engine.OrderingResult{}, err
	}
	return engine.OrderingResult{Perm: fromIdx(perm), IPerm: fromIdx(iperm)}, nil
}

// NodeBisect calls METIS_ComputeVertexSeparator and returns the vertices
// labelled 2.
func (e *Engine) NodeBisect(ctx context.Context, g *csr.Graph, opts engine.Options) (engine.SeparatorResult, error) {
	if err := ctx.Err(); err != nil {
		return engine.SeparatorResult{}, err
	}
	if err := engine.ValidateGraph(g); err != nil {
		return engine.SeparatorResult{}, err
	}
	if g.N < 2 {
		return engine.SeparatorResult{Separator: []int{}}, nil
	}

	cg := newCGraph(g)
	copts := cOptions(opts)
	var sepsize C.idx_t
	part := make([]C.idx_t, g.N)

	status := C.METIS_ComputeVertexSeparator(&cg.nvtxs, ptr(cg.xadj), ptr(cg.adjncy), ptr(cg.vwgt),
		ptr(copts), &sepsize, ptr(part))
	if err := engine.CheckStatus(int(status), "METIS_ComputeVertexSeparator"); err != nil {
		return engine.SeparatorResult{}, err
	}
	sep := make([]int, 0, int(sepsize))
	for v, p := range part {
		if p == 2 {
			sep = append(sep, v)
		}
	}
	return engine.SeparatorResult{Separator: sep}, nil
}
