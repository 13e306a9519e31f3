// Package mem implements the memory-inference core: the Mem aggregate,
// its lowering to and from the two RTLIL memory encodings, and the
// transformation primitives used to reshape memories ahead of
// technology mapping.
package mem

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/rtlmem/meminfer/pkg/fourstate"
	"github.com/rtlmem/meminfer/pkg/netlist"
)

// MemRd is one read port of a memory.
type MemRd struct {
	// Cell is the backing $memrd cell when this port's memory is
	// unpacked, or nil otherwise. Nulled by a packed Emit and by Remove
	// — see spec.md §3's note on weak back-references.
	Cell       *netlist.Cell
	Attributes map[string]fourstate.Const

	// Removed is a tombstone: compacted away on the next Emit rather
	// than spliced out immediately, so port indices (and therefore mask
	// columns/rows) stay valid across a batch of transformations.
	Removed bool

	ClkEnable   bool
	ClkPolarity bool
	CeOverSrst  bool

	Clk  fourstate.Signal
	En   fourstate.Signal
	Arst fourstate.Signal
	Srst fourstate.Signal
	Addr fourstate.Signal
	Data fourstate.Signal

	ArstValue fourstate.Const
	SrstValue fourstate.Const
	InitValue fourstate.Const

	WideLog2 int

	// TransparencyMask has one bit per write port: bit j set means this
	// port reads through a same-cycle write by write port j.
	TransparencyMask *bitset.BitSet
}

// MemWr is one write port of a memory.
type MemWr struct {
	Cell       *netlist.Cell
	Attributes map[string]fourstate.Const

	Removed bool

	ClkEnable   bool
	ClkPolarity bool

	Clk  fourstate.Signal
	En   fourstate.Signal
	Addr fourstate.Signal
	Data fourstate.Signal

	WideLog2 int

	// PriorityMask has one bit per write port: bit j set means this port
	// wins over write port j on a same-cycle, same-address conflict. By
	// invariant 6 (spec.md §3) any set bit is at an index below this
	// port's own index.
	PriorityMask *bitset.BitSet
}

// MemInit is one initializer entry.
type MemInit struct {
	Cell       *netlist.Cell
	Attributes map[string]fourstate.Const

	Addr fourstate.Const
	Data fourstate.Const
}

// Mem is the memory aggregate: a named (or anonymous, pre-emit) memory
// array together with its read ports, write ports and initializers. It
// borrows its host Module and is the authoritative representation of the
// memory between Lift and Emit (spec.md §5).
type Mem struct {
	Module *netlist.Module

	// Cell backs the packed ($mem) encoding; MemDecl backs the unpacked
	// encoding. At most one is non-nil at a time, matching which of
	// Packed's two forms is currently materialized.
	Cell    *netlist.Cell
	MemDecl *netlist.MemoryDecl

	MemID       string
	Packed      bool
	Width       int
	StartOffset int
	Size        int
	Attributes  map[string]fourstate.Const

	RdPorts []MemRd
	WrPorts []MemWr
	Inits   []MemInit
}

// NewMem constructs an empty memory aggregate. Callers normally obtain a
// Mem via Lift rather than calling this directly.
func NewMem(module *netlist.Module, memid string, width, startOffset, size int) *Mem {
	return &Mem{
		Module:      module,
		MemID:       memid,
		Width:       width,
		StartOffset: startOffset,
		Size:        size,
		Attributes:  map[string]fourstate.Const{},
	}
}

// newMask allocates a zeroed mask of the given length.
func newMask(n int) *bitset.BitSet {
	return bitset.New(uint(n))
}

// maskFromBools converts a []bool into a mask.
func maskFromBools(bs []bool) *bitset.BitSet {
	m := newMask(len(bs))
	for i, b := range bs {
		if b {
			m.Set(uint(i))
		}
	}

	return m
}

// remapMask builds a new mask of length len(idx) where output bit i is
// old bit idx[i]. Used for compaction-on-emit, which reindexes each
// mask to the surviving write ports (spec.md §4.3).
func remapMask(old *bitset.BitSet, idx []int) *bitset.BitSet {
	out := newMask(len(idx))

	for i, j := range idx {
		if j >= 0 && old != nil && old.Test(uint(j)) {
			out.Set(uint(i))
		}
	}

	return out
}
