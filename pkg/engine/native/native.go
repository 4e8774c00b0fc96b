// Package native is a pure-Go partitioning and ordering engine.
//
// It is not multilevel: partitions come from greedy graph-growing bisection
// applied recursively, and orderings from nested dissection on BFS-grown
// separators with minimum-degree ordering of small pieces. It exists so the
// dispatch layer works without libmetis; results are valid but not of METIS
// quality.
package native

import (
	"context"
	"math/rand/v2"
	"sort"

	"github.com/dd0wney/cluso-graphpart/pkg/csr"
	"github.com/dd0wney/cluso-graphpart/pkg/engine"
)

const (
	// Name is reported by Engine.Name.
	Name = "native"

	// DefaultLeafSize is the piece size below which nested dissection
	// switches to minimum degree.
	DefaultLeafSize = 16

	// DefaultTrials is the number of bisection attempts when ncuts is unset.
	DefaultTrials = 4

	// unsetSeed replaces the "engine picks" seed, as GKlib does for -1.
	unsetSeed = 4321
)

// Config tunes the native engine.
type Config struct {
	LeafSize int
	Trials   int
}

// Engine implements engine.Engine and engine.Separator.
type Engine struct {
	leafSize int
	trials   int
}

var (
	_ engine.Engine    = (*Engine)(nil)
	_ engine.Separator = (*Engine)(nil)
)

// New creates a native engine with default settings.
func New() *Engine {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a native engine; zero fields take defaults.
func NewWithConfig(cfg Config) *Engine {
	e := &Engine{leafSize: cfg.LeafSize, trials: cfg.Trials}
	if e.leafSize <= 0 {
		e.leafSize = DefaultLeafSize
	}
	if e.trials <= 0 {
		e.trials = DefaultTrials
	}
	return e
}

// Name returns "native".
func (e *Engine) Name() string {
	return Name
}

// newRand builds the per-call generator from the seed slot.
func newRand(opts engine.Options) *rand.Rand {
	seed := opts.Seed()
	if seed == engine.SeedUnset {
		seed = unsetSeed
	}
	return rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))
}

func (e *Engine) trialsFor(opts engine.Options) int {
	return opts.Get(engine.OptionNCuts, e.trials)
}

// PartGraphRecursive splits g into nparts by recursive bisection. vsize is
// accepted for contract compatibility and does not influence the result.
func (e *Engine) PartGraphRecursive(ctx context.Context, g *csr.Graph, ncon int, vsize []int, nparts int, opts engine.Options) (engine.PartitionResult, error) {
	if err := engine.ValidatePartitionArgs(g, ncon, nparts); err != nil {
		return engine.PartitionResult{}, err
	}
	if vsize != nil && len(vsize) != g.N {
		return engine.PartitionResult{}, engine.InputError("vsize has %d entries, want %d", len(vsize), g.N)
	}
	return e.partition(ctx, g, nparts, opts)
}

// PartGraphKway splits g into nparts. The native engine has no separate
// k-way scheme and uses recursive bisection.
func (e *Engine) PartGraphKway(ctx context.Context, g *csr.Graph, ncon int, nparts int, opts engine.Options) (engine.PartitionResult, error) {
	if err := engine.ValidatePartitionArgs(g, ncon, nparts); err != nil {
		return engine.PartitionResult{}, err
	}
	return e.partition(ctx, g, nparts, opts)
}

func (e *Engine) partition(ctx context.Context, g *csr.Graph, nparts int, opts engine.Options) (engine.PartitionResult, error) {
	part := make([]int, g.N)
	rng := newRand(opts)
	if err := e.recurse(ctx, wholeGraph(balancingWeights(g)), nparts, 0, part, e.trialsFor(opts), rng); err != nil {
		return engine.PartitionResult{}, err
	}
	return engine.PartitionResult{EdgeCut: g.EdgeCut(part), Part: part}, nil
}

// recurse labels the vertices of p with parts [first, first+k).
func (e *Engine) recurse(ctx context.Context, p *piece, k, first int, part []int, trials int, rng *rand.Rand) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Parts beyond the vertex count stay empty at the top of the range.
	k = min(k, p.g.N)
	if k <= 1 {
		for _, v := range p.label {
			part[v] = first
		}
		return nil
	}

	k0 := k / 2
	target0 := int(float64(p.g.TotalVertexWeight()) * float64(k0) / float64(k))
	where := bisect(p.g, target0, trials, rng)

	if err := e.recurse(ctx, p.induce(split(where, 0)), k0, first, part, trials, rng); err != nil {
		return err
	}
	return e.recurse(ctx, p.induce(split(where, 1)), k-k0, first+k0, part, trials, rng)
}

// NodeND computes a nested-dissection ordering of g.
func (e *Engine) NodeND(ctx context.Context, g *csr.Graph, opts engine.Options) (engine.OrderingResult, error) {
	if err := engine.ValidateGraph(g); err != nil {
		return engine.OrderingResult{}, err
	}
	iperm := make([]int, g.N)
	if err := e.dissect(ctx, wholeGraph(g), 0, iperm, e.trialsFor(opts), newRand(opts)); err != nil {
		return engine.OrderingResult{}, err
	}
	perm := make([]int, g.N)
	for v, pos := range iperm {
		perm[pos] = v
	}
	return engine.OrderingResult{Perm: perm, IPerm: iperm}, nil
}

// NodeBisect returns a vertex separator whose removal leaves two halves of
// roughly equal vertex weight with no edge between them.
func (e *Engine) NodeBisect(ctx context.Context, g *csr.Graph, opts engine.Options) (engine.SeparatorResult, error) {
	if err := engine.ValidateGraph(g); err != nil {
		return engine.SeparatorResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return engine.SeparatorResult{}, err
	}
	if g.N == 0 {
		return engine.SeparatorResult{Separator: []int{}}, nil
	}
	weighted := balancingWeights(g)
	where := bisect(weighted, weighted.TotalVertexWeight()/2, e.trialsFor(opts), newRand(opts))
	sep, _, _ := vertexSeparator(g, where)
	sort.Ints(sep)
	if sep == nil {
		sep = []int{}
	}
	return engine.SeparatorResult{Separator: sep}, nil
}
