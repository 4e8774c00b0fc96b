package dispatch

import (
	"github.com/dd0wney/cluso-graphpart/pkg/engine"
)

// Unset leaves an option at the engine default.
const Unset = engine.Default

// Options are the recognised engine options. Every field maps to exactly
// one engine slot; Unset fields keep the engine default. Start from
// DefaultOptions or the FromVector helpers: 0 is a real value for most
// slots, so a literal that leaves fields out sets them to 0. The zero
// Options as a whole is read as DefaultOptions.
type Options struct {
	ObjType  int // objective: 0 edge cut, 1 communication volume
	CType    int // coarsening: 0 random matching, 1 heavy edge
	IPType   int // initial partitioning scheme
	RType    int // refinement scheme
	DbgLvl   int
	NIter    int // refinement iterations
	NCuts    int // partitionings tried, best kept
	NSeps    int // separators tried per bisection
	UFactor  int // allowed imbalance, in thousandths
	PFactor  int // dense-row pruning factor
	Compress int // 1 to merge identical vertices when ordering
	CCOrder  int // 1 to order connected components separately
	Contig   int
	MinConn  int
	No2Hop   int

	// Seed feeds the engine's random generator. engine.SeedUnset lets
	// the engine pick its fixed default.
	Seed int
}

// DefaultOptions returns options with every field unset.
func DefaultOptions() Options {
	return Options{
		ObjType:  Unset,
		CType:    Unset,
		IPType:   Unset,
		RType:    Unset,
		DbgLvl:   Unset,
		NIter:    Unset,
		NCuts:    Unset,
		NSeps:    Unset,
		UFactor:  Unset,
		PFactor:  Unset,
		Compress: Unset,
		CCOrder:  Unset,
		Contig:   Unset,
		MinConn:  Unset,
		No2Hop:   Unset,
		Seed:     engine.SeedUnset,
	}
}

// legacyPartitionFields are the positional vector's first three entries.
func (o *Options) legacyPartitionFields() []*int {
	return []*int{&o.ObjType, &o.CType, &o.IPType}
}

// legacyOrderingFields extend the partition fields with the second range.
func (o *Options) legacyOrderingFields() []*int {
	return append(o.legacyPartitionFields(), &o.DbgLvl, &o.NIter, &o.NCuts)
}

func fromVector(fields []*int, v []int) {
	for i, f := range fields {
		if i >= len(v) {
			return
		}
		*f = v[i]
	}
}

// PartitionOptionsFromVector reads a legacy 3-entry option vector.
// v[0..2] become ObjType, CType and IPType. Missing entries stay unset and
// extra entries are ignored.
func PartitionOptionsFromVector(v []int) Options {
	o := DefaultOptions()
	fromVector(o.legacyPartitionFields(), v)
	return o
}

// OrderingOptionsFromVector reads a legacy 6-entry option vector.
// v[0..2] become ObjType, CType and IPType; v[3..5] become DbgLvl, NIter
// and NCuts.
func OrderingOptionsFromVector(v []int) Options {
	o := DefaultOptions()
	fromVector(o.legacyOrderingFields(), v)
	return o
}

// effective maps the zero Options to DefaultOptions.
func (o Options) effective() Options {
	if o == (Options{}) {
		return DefaultOptions()
	}
	return o
}

// vector builds the per-call engine option vector. The seed is written
// first so it never depends on the other fields.
func (o Options) vector() engine.Options {
	o = o.effective()
	v := engine.NewOptions(o.Seed)
	v[engine.OptionObjType] = o.ObjType
	v[engine.OptionCType] = o.CType
	v[engine.OptionIPType] = o.IPType
	v[engine.OptionRType] = o.RType
	v[engine.OptionDbgLvl] = o.DbgLvl
	v[engine.OptionNIter] = o.NIter
	v[engine.OptionNCuts] = o.NCuts
	v[engine.OptionNSeps] = o.NSeps
	v[engine.OptionUFactor] = o.UFactor
	v[engine.OptionPFactor] = o.PFactor
	v[engine.OptionCompress] = o.Compress
	v[engine.OptionCCOrder] = o.CCOrder
	v[engine.OptionContig] = o.Contig
	v[engine.OptionMinConn] = o.MinConn
	v[engine.OptionNo2Hop] = o.No2Hop
	return v
}
