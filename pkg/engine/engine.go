// Package engine defines the contract between the dispatch layer and a graph
// partitioning/ordering engine.
//
// Engines are black boxes: they receive a CSR graph and an option vector and
// return labels or permutations. Everything here is 0-based.
package engine

import (
	"context"

	"github.com/dd0wney/cluso-graphpart/pkg/csr"
)

// PartitionResult is the outcome of a partitioning call.
type PartitionResult struct {
	EdgeCut int
	Part    []int
}

// OrderingResult is the outcome of a fill-reducing ordering call.
// Perm[i] is the original vertex placed at position i and IPerm[v] is the
// position of original vertex v.
type OrderingResult struct {
	Perm  []int
	IPerm []int
}

// SeparatorResult lists the vertices of a separator splitting the graph in two.
type SeparatorResult struct {
	Separator []int
}

// Engine is the fixed call contract of a partitioning/ordering engine.
type Engine interface {
	// Name identifies the engine in logs and metrics.
	Name() string

	// PartGraphRecursive partitions g into nparts by recursive bisection.
	// vsize carries per-vertex communication sizes and may be nil.
	PartGraphRecursive(ctx context.Context, g *csr.Graph, ncon int, vsize []int, nparts int, opts Options) (PartitionResult, error)

	// PartGraphKway partitions g into nparts with the engine's k-way scheme.
	PartGraphKway(ctx context.Context, g *csr.Graph, ncon int, nparts int, opts Options) (PartitionResult, error)

	// NodeND computes a nested-dissection ordering. g.Vwgt may be nil.
	NodeND(ctx context.Context, g *csr.Graph, opts Options) (OrderingResult, error)
}

// Separator is implemented by engines able to compute a vertex separator.
type Separator interface {
	NodeBisect(ctx context.Context, g *csr.Graph, opts Options) (SeparatorResult, error)
}
