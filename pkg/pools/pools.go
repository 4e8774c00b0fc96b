// Package pools recycles the scratch slices the partitioning engines
// allocate per recursion step.
//
//   - SlicePool: size-classed pooling for slices of any element type
//   - Ints / Bools: default pools for vertex-indexed work arrays
package pools

import "sync"

// Size classes, in elements. Slices longer than MaxPooled are allocated
// directly and dropped on Put.
const (
	SmallSize  = 256
	MediumSize = 4096
	LargeSize  = 65536
	HugeSize   = 1 << 20
	MaxPooled  = HugeSize
)

var classes = [...]int{SmallSize, MediumSize, LargeSize, HugeSize}

// SlicePool hands out slices of T with at least the requested capacity.
type SlicePool[T any] struct {
	pools [len(classes)]sync.Pool
}

// NewSlicePool creates an empty pool.
func NewSlicePool[T any]() *SlicePool[T] {
	p := &SlicePool[T]{}
	for i, size := range classes {
		p.pools[i].New = func() any {
			s := make([]T, 0, size)
			return &s
		}
	}
	return p
}

// Get returns a zero-length slice with capacity >= size.
func (p *SlicePool[T]) Get(size int) []T {
	for i, c := range classes {
		if size <= c {
			sp, ok := p.pools[i].Get().(*[]T)
			if !ok || cap(*sp) < size {
				return make([]T, 0, size)
			}
			return (*sp)[:0]
		}
	}
	return make([]T, 0, size)
}

// Filled returns a slice of length n with every element set to v.
func (p *SlicePool[T]) Filled(n int, v T) []T {
	s := p.Get(n)[:n]
	for i := range s {
		s[i] = v
	}
	return s
}

// Put returns s for reuse. It is filed under the largest class its
// capacity covers, so a later Get never receives a slice that is too small.
func (p *SlicePool[T]) Put(s []T) {
	c := cap(s)
	if c < SmallSize || c > MaxPooled {
		return
	}
	for i := len(classes) - 1; i >= 0; i-- {
		if c >= classes[i] {
			s = s[:0]
			p.pools[i].Put(&s)
			return
		}
	}
}

var (
	defaultInts  = NewSlicePool[int]()
	defaultBools = NewSlicePool[bool]()
)

// Ints returns an int slice of length n filled with v from the default pool.
func Ints(n, v int) []int {
	return defaultInts.Filled(n, v)
}

// PutInts returns s to the default int pool.
func PutInts(s []int) {
	defaultInts.Put(s)
}

// Bools returns an all-false bool slice of length n from the default pool.
func Bools(n int) []bool {
	return defaultBools.Filled(n, false)
}

// PutBools returns s to the default bool pool.
func PutBools(s []bool) {
	defaultBools.Put(s)
}
