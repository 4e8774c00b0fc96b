package engine

import "fmt"

// NumOptions is the length of the engine option vector.
const NumOptions = 40

// Default marks an option slot the engine should fill with its own default.
const Default = -1

// SeedUnset is the seed value meaning "engine picks its own".
const SeedUnset = -1

// Option slots. The layout matches the METIS 5 option vector.
const (
	OptionPType = iota
	OptionObjType
	OptionCType
	OptionIPType
	OptionRType
	OptionDbgLvl
	OptionNIter
	OptionNCuts
	OptionSeed
	OptionNo2Hop
	OptionMinConn
	OptionContig
	OptionCompress
	OptionCCOrder
	OptionPFactor
	OptionNSeps
	OptionUFactor
	OptionNumbering
)

var optionNames = map[int]string{
	OptionPType:     "ptype",
	OptionObjType:   "objtype",
	OptionCType:     "ctype",
	OptionIPType:    "iptype",
	OptionRType:     "rtype",
	OptionDbgLvl:    "dbglvl",
	OptionNIter:     "niter",
	OptionNCuts:     "ncuts",
	OptionSeed:      "seed",
	OptionNo2Hop:    "no2hop",
	OptionMinConn:   "minconn",
	OptionContig:    "contig",
	OptionCompress:  "compress",
	OptionCCOrder:   "ccorder",
	OptionPFactor:   "pfactor",
	OptionNSeps:     "nseps",
	OptionUFactor:   "ufactor",
	OptionNumbering: "numbering",
}

// Options is a fixed-size engine option vector.
type Options [NumOptions]int

// NewOptions returns a vector with every slot at Default and the seed slot
// set to seed. A fresh vector is built for every engine call.
func NewOptions(seed int) Options {
	var o Options
	for i := range o {
		o[i] = Default
	}
	o[OptionSeed] = seed
	return o
}

// Get returns the value of slot, or def when the slot is unset.
func (o Options) Get(slot, def int) int {
	if o[slot] == Default {
		return def
	}
	return o[slot]
}

// IsSet reports whether slot carries a caller value.
func (o Options) IsSet(slot int) bool {
	return o[slot] != Default
}

// Seed returns the seed slot.
func (o Options) Seed() int {
	return o[OptionSeed]
}

// OptionName returns the engine name of slot.
func OptionName(slot int) string {
	if name, ok := optionNames[slot]; ok {
		return name
	}
	return fmt.Sprintf("option%d", slot)
}
