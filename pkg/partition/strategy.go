// Package partition evaluates vertex partitions and orderings produced by an
// engine: quality metrics, label and permutation checks, and the trivial
// hash and range strategies used as baselines.
package partition

import (
	"encoding/binary"
	"hash/fnv"
)

// Strategy assigns a vertex to a part without looking at the graph.
type Strategy interface {
	Part(v int) int
	Parts() int
}

// HashStrategy places vertices by FNV-1a hash of their index.
type HashStrategy struct {
	parts int
}

// NewHashStrategy creates a hash strategy over parts parts.
func NewHashStrategy(parts int) *HashStrategy {
	return &HashStrategy{parts: parts}
}

// Part returns the part of v.
func (h *HashStrategy) Part(v int) int {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	f := fnv.New64a()
	f.Write(b[:])
	return int(f.Sum64() % uint64(h.parts))
}

// Parts returns the part count.
func (h *HashStrategy) Parts() int {
	return h.parts
}

// RangeStrategy places vertices in contiguous index blocks, the natural
// partition of a matrix split by rows.
type RangeStrategy struct {
	parts int
	n     int
}

// NewRangeStrategy creates a range strategy for n vertices.
func NewRangeStrategy(parts, n int) *RangeStrategy {
	return &RangeStrategy{parts: parts, n: n}
}

// Part returns the part of v. Blocks differ in size by at most one.
func (r *RangeStrategy) Part(v int) int {
	if r.n == 0 {
		return 0
	}
	return v * r.parts / r.n
}

// Parts returns the part count.
func (r *RangeStrategy) Parts() int {
	return r.parts
}

// Labels evaluates s for vertices 0..n-1.
func Labels(s Strategy, n int) []int {
	part := make([]int, n)
	for v := range part {
		part[v] = s.Part(v)
	}
	return part
}
