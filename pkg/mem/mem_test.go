package mem

import (
	"testing"

	"github.com/rtlmem/meminfer/pkg/fourstate"
	"github.com/rtlmem/meminfer/pkg/netlist"
	"github.com/stretchr/testify/assert"
)

// newTestMem builds a bare Mem with the given shape and no ports, ready
// for a test to attach ports directly (mirrors the boundary scenarios of
// spec.md §8, which start from a hand-built shape rather than a lift).
func newTestMem(module *netlist.Module, width, offset, size int) *Mem {
	m := NewMem(module, "mymem", width, offset, size)
	return m
}

func constSig(v uint64, width int) fourstate.Signal {
	return fourstate.FromConst(fourstate.ConstFromUint(v, width))
}

// Boundary scenario 1 (spec.md §8): an empty memory packed-emits a $mem
// cell with zero ports and an all-x INIT, and lifting it back reproduces
// the same empty shape.
func TestEmptyMemoryPackedRoundTrip(t *testing.T) {
	module := netlist.NewModule("top")
	m := newTestMem(module, 8, 0, 16)
	m.Packed = true

	m.Emit()

	assert.Len(t, module.Cells(), 1)
	cell := module.Cells()[0]
	assert.Equal(t, netlist.CellMem, cell.Type)
	assert.Equal(t, 0, cell.Param(netlist.ParamRdPorts).AsInt())
	assert.Equal(t, 0, cell.Param(netlist.ParamWrPorts).AsInt())

	init := cell.Param(netlist.ParamInit)
	assert.Equal(t, 128, init.Width())
	assert.True(t, init.IsFullyUndef())

	lifted := LiftPacked(cell)
	assert.Equal(t, 8, lifted.Width)
	assert.Equal(t, 16, lifted.Size)
	assert.Equal(t, 0, lifted.StartOffset)
	assert.Empty(t, lifted.RdPorts)
	assert.Empty(t, lifted.WrPorts)
	assert.Empty(t, lifted.Inits)
}

// Boundary scenario 2 (spec.md §8): inits at word 2 (0x12) and word 5
// (0x34 0x56), width=8 size=8, merge to bytes [x,x,0x12,x,x,0x34,0x56,x].
func TestInitMerging(t *testing.T) {
	module := netlist.NewModule("top")
	m := newTestMem(module, 8, 0, 8)
	m.Inits = []MemInit{
		{Addr: fourstate.ConstFromUint(2, 32), Data: fourstate.ConstFromUint(0x12, 8)},
		{Addr: fourstate.ConstFromUint(5, 32), Data: fourstate.ConstFromUint(0x34, 8).Append(fourstate.ConstFromUint(0x56, 8))},
	}

	data := m.GetInitData()
	assert.Equal(t, 64, data.Width())

	wantDefined := map[int]uint64{2: 0x12, 5: 0x34, 6: 0x56}
	for word := 0; word < 8; word++ {
		slice := data.Extract(word*8, 8, fourstate.Sx)
		if want, ok := wantDefined[word]; ok {
			assert.True(t, slice.IsFullyDefined(), "word %d should be defined", word)
			assert.Equal(t, int(want), slice.AsInt())
		} else {
			assert.True(t, slice.IsFullyUndef(), "word %d should be undefined", word)
		}
	}
}

// Boundary scenario 3 (spec.md §8): one wide (wide_log2=1) read port
// transparent to two narrow write ports packs to RD_WIDE_CONTINUATION
// "01" and a compressed transparency row of "11" duplicated over both
// sub-words.
func TestWideReadNarrowWritesPacking(t *testing.T) {
	module := netlist.NewModule("top")
	m := newTestMem(module, 8, 0, 16)
	m.Packed = true

	clk := module.AddWire("clk", 1)

	rdMask := newMask(2)
	rdMask.Set(0)
	rdMask.Set(1)

	m.RdPorts = []MemRd{{
		ClkEnable:        true,
		ClkPolarity:      true,
		Clk:              clk,
		En:               constSig(1, 1),
		Arst:             constSig(0, 1),
		Srst:             constSig(0, 1),
		Addr:             constSig(0b100, 4),
		Data:             module.AddWire("rdata", 16),
		ArstValue:        fourstate.NewConst(16, fourstate.Sx),
		SrstValue:        fourstate.NewConst(16, fourstate.Sx),
		InitValue:        fourstate.NewConst(16, fourstate.Sx),
		WideLog2:         1,
		TransparencyMask: rdMask,
	}}

	for i := 0; i < 2; i++ {
		m.WrPorts = append(m.WrPorts, MemWr{
			ClkEnable:    true,
			ClkPolarity:  true,
			Clk:          clk,
			En:           constSig(0, 8),
			Addr:         module.AddWire("", 3),
			Data:         module.AddWire("", 8),
			WideLog2:     0,
			PriorityMask: newMask(2),
		})
	}

	m.Emit()

	cell := m.Cell
	// RD_PORTS/WR_PORTS count sub-ports: the wide read port occupies two.
	assert.Equal(t, 2, cell.Param(netlist.ParamRdPorts).AsInt())
	assert.Equal(t, 2, cell.Param(netlist.ParamWrPorts).AsInt())

	cont := cell.Param(netlist.ParamRdWideContinuation)
	assert.Equal(t, 2, cont.Width())
	assert.Equal(t, fourstate.S0, cont[0])
	assert.Equal(t, fourstate.S1, cont[1])

	transMask := cell.Param(netlist.ParamRdTransparencyMask)
	assert.Equal(t, 4, transMask.Width())
	assert.True(t, transMask.IsFullyDefined())
	for i := 0; i < 4; i++ {
		assert.Equal(t, fourstate.S1, transMask[i], "bit %d", i)
	}

	lifted := LiftPacked(cell)
	assert.Len(t, lifted.RdPorts, 1)
	assert.Equal(t, 1, lifted.RdPorts[0].WideLog2)
	assert.Equal(t, 2, int(lifted.RdPorts[0].TransparencyMask.Len()))
	assert.True(t, lifted.RdPorts[0].TransparencyMask.Test(0))
	assert.True(t, lifted.RdPorts[0].TransparencyMask.Test(1))
}

// Boundary scenario 4 (spec.md §8): wr[2].priority_mask=110,
// wr[1].priority_mask=100; after EmulatePriority(1,2),
// wr[2].priority_mask=100 and wr[1].en is rewritten.
func TestEmulatePriorityChain(t *testing.T) {
	module := netlist.NewModule("top")
	m := newTestMem(module, 8, 0, 16)

	clk := module.AddWire("clk", 1)

	for i := 0; i < 3; i++ {
		m.WrPorts = append(m.WrPorts, MemWr{
			ClkEnable:    true,
			ClkPolarity:  true,
			Clk:          clk,
			En:           module.AddWire("", 8),
			Addr:         module.AddWire("", 4),
			Data:         module.AddWire("", 8),
			PriorityMask: newMask(3),
		})
	}

	m.WrPorts[1].PriorityMask.Set(0)
	m.WrPorts[2].PriorityMask.Set(0)
	m.WrPorts[2].PriorityMask.Set(1)

	m.Check()

	origEn1 := m.WrPorts[1].En

	m.EmulatePriority(1, 2)

	assert.False(t, m.WrPorts[2].PriorityMask.Test(1))
	assert.True(t, m.WrPorts[2].PriorityMask.Test(0))
	assert.True(t, m.WrPorts[1].PriorityMask.Test(0))
	assert.NotEqual(t, origEn1, m.WrPorts[1].En)

	m.Check()
}

// Boundary scenario 5 (spec.md §8): one write port, a read port
// transparent to it with en=1 and both resets tied to 0 and init
// undefined, address made of 4 signal bits plus 2 constant high bits —
// extract_rdff takes the address-register style and only registers the
// 4 non-constant bits.
func TestExtractRdffAddressStyle(t *testing.T) {
	module := netlist.NewModule("top")
	m := newTestMem(module, 8, 0, 64)

	clk := module.AddWire("clk", 1)
	addr := module.AddWire("araddr", 4).Append(constSig(0, 2))

	rdMask := newMask(1)
	rdMask.Set(0)

	m.RdPorts = []MemRd{{
		ClkEnable:        true,
		ClkPolarity:      true,
		Clk:              clk,
		En:               constSig(1, 1),
		Arst:             constSig(0, 1),
		Srst:             constSig(0, 1),
		Addr:             addr,
		Data:             module.AddWire("rdata", 8),
		ArstValue:        fourstate.NewConst(8, fourstate.Sx),
		SrstValue:        fourstate.NewConst(8, fourstate.Sx),
		InitValue:        fourstate.NewConst(8, fourstate.Sx),
		TransparencyMask: rdMask,
	}}

	m.WrPorts = []MemWr{{
		ClkEnable:    true,
		ClkPolarity:  true,
		Clk:          clk,
		En:           module.AddWire("wen", 8),
		Addr:         module.AddWire("waddr", 6),
		Data:         module.AddWire("wdata", 8),
		PriorityMask: newMask(1),
	}}

	initvals := netlist.NewFfInitVals()
	ff := m.ExtractRdff(0, initvals)

	assert.NotNil(t, ff)
	assert.Equal(t, "$dff", ff.Type)
	assert.Equal(t, 4, ff.Port(netlist.PortKey("D")).Width())

	assert.False(t, m.RdPorts[0].ClkEnable)
	assert.True(t, m.RdPorts[0].En.IsAllConst(fourstate.S1))
	assert.Equal(t, 1, int(m.RdPorts[0].TransparencyMask.Len()))
	assert.False(t, m.RdPorts[0].TransparencyMask.Test(0))
}

// Boundary scenario 6 (spec.md §8): same setup but the read port has a
// non-zero sync reset, so extract_rdff takes the data-register style and
// synthesizes a transparency bypass mux plus a width-bit flip-flop with
// a synchronous reset.
func TestExtractRdffDataStyle(t *testing.T) {
	module := netlist.NewModule("top")
	m := newTestMem(module, 8, 0, 64)

	clk := module.AddWire("clk", 1)

	rdMask := newMask(1)
	rdMask.Set(0)

	m.RdPorts = []MemRd{{
		ClkEnable:        true,
		ClkPolarity:      true,
		Clk:              clk,
		En:               constSig(1, 1),
		Arst:             constSig(0, 1),
		Srst:             module.AddWire("srst", 1),
		Addr:             module.AddWire("raddr", 6),
		Data:             module.AddWire("rdata", 8),
		ArstValue:        fourstate.NewConst(8, fourstate.Sx),
		SrstValue:        fourstate.ConstFromUint(0xAA, 8),
		InitValue:        fourstate.NewConst(8, fourstate.Sx),
		TransparencyMask: rdMask,
	}}

	m.WrPorts = []MemWr{{
		ClkEnable:    true,
		ClkPolarity:  true,
		Clk:          clk,
		En:           module.AddWire("wen", 8),
		Addr:         module.AddWire("waddr", 6),
		Data:         module.AddWire("wdata", 8),
		PriorityMask: newMask(1),
	}}

	before := len(module.Cells())

	initvals := netlist.NewFfInitVals()
	ff := m.ExtractRdff(0, initvals)

	assert.NotNil(t, ff)
	assert.Equal(t, "$sdff", ff.Type)
	assert.Equal(t, 8, ff.Port(netlist.PortKey("D")).Width())
	assert.True(t, len(module.Cells()) > before+1, "expected bypass gates plus the flip-flop")

	assert.False(t, m.RdPorts[0].ClkEnable)
	assert.False(t, m.RdPorts[0].TransparencyMask.Test(0))

	// The port must keep reading the pristine async wire that feeds the
	// bypass muxes, not the mux-accumulated value handed to the flip-flop's
	// D input (mem.cc:669-742's async_d vs sig_d split).
	dWire := ff.Port(netlist.PortKey("D"))[0].Wire
	for i, bit := range m.RdPorts[0].Data {
		assert.False(t, bit.IsConst(), "bit %d should be a wire reference", i)
		assert.NotEqual(t, dWire, bit.Wire, "bit %d should not alias the flip-flop's D input", i)
	}
}

// Narrow splits a wide port into independent narrow ports whose
// transparency/priority rows line up one-to-one with the sub-port
// expansion, and widening each one back by the same factor restores the
// original wide_log2 on every port; the split ports stay separate, so
// the port count remains doubled (spec.md §8's narrow/widen equivalence
// law, loose form: structural round trip rather than full signal
// equivalence).
func TestNarrowThenWidenRestoresWideLog2(t *testing.T) {
	module := netlist.NewModule("top")
	m := newTestMem(module, 8, 0, 16)

	clk := module.AddWire("clk", 1)

	m.WrPorts = []MemWr{{
		ClkEnable:    true,
		ClkPolarity:  true,
		Clk:          clk,
		En:           module.AddWire("wen", 16),
		Addr:         constSig(0, 1).Append(module.AddWire("waddr", 4)),
		Data:         module.AddWire("wdata", 16),
		WideLog2:     1,
		PriorityMask: newMask(1),
	}}

	m.Check()
	m.Narrow()

	assert.Len(t, m.WrPorts, 2)
	assert.Equal(t, 0, m.WrPorts[0].WideLog2)
	assert.Equal(t, 0, m.WrPorts[1].WideLog2)
	m.Check()

	m.WidenWrPort(0, 1)
	m.WidenWrPort(1, 1)

	assert.Len(t, m.WrPorts, 2)
	assert.Equal(t, 1, m.WrPorts[0].WideLog2)
	assert.Equal(t, 1, m.WrPorts[1].WideLog2)
	m.Check()
}

// Check must reject a priority_mask bit pointing at or above its own
// index (invariant 6, spec.md §3) as a programming fault.
func TestCheckRejectsForwardPriority(t *testing.T) {
	module := netlist.NewModule("top")
	m := newTestMem(module, 8, 0, 16)
	clk := module.AddWire("clk", 1)

	m.WrPorts = []MemWr{
		{
			ClkEnable: true, ClkPolarity: true, Clk: clk,
			En: module.AddWire("en0", 8), Addr: module.AddWire("a0", 4), Data: module.AddWire("d0", 8),
			PriorityMask: newMask(2),
		},
		{
			ClkEnable: true, ClkPolarity: true, Clk: clk,
			En: module.AddWire("en1", 8), Addr: module.AddWire("a1", 4), Data: module.AddWire("d1", 8),
			PriorityMask: newMask(2),
		},
	}

	m.WrPorts[0].PriorityMask.Set(1) // forward reference: illegal

	assert.Panics(t, func() { m.Check() })
}

// Check must reject an unclocked read port whose en/arst/srst are not
// tied to their required constants (invariant 3, spec.md §3).
func TestCheckRejectsUnclockedPortWithLiveEnable(t *testing.T) {
	module := netlist.NewModule("top")
	m := newTestMem(module, 8, 0, 16)

	m.RdPorts = []MemRd{{
		ClkEnable: false,
		Clk:       constSig(0, 1),
		En:        module.AddWire("en", 1), // not tied to 1: illegal for an unclocked port
		Arst:      constSig(0, 1),
		Srst:      constSig(0, 1),
		Addr:      module.AddWire("addr", 4),
		Data:      module.AddWire("data", 8),
		ArstValue: fourstate.NewConst(8, fourstate.Sx),
		SrstValue: fourstate.NewConst(8, fourstate.Sx),
		InitValue: fourstate.NewConst(8, fourstate.Sx),
		TransparencyMask: newMask(0),
	}}

	assert.Panics(t, func() { m.Check() })
}

// Emit compacts tombstoned ports out of both port lists and the masks
// that reference them (spec.md §4.3 step 1-2).
func TestEmitCompactsRemovedPorts(t *testing.T) {
	module := netlist.NewModule("top")
	m := newTestMem(module, 8, 0, 16)
	clk := module.AddWire("clk", 1)

	rdMask := newMask(2)
	rdMask.Set(1)

	m.RdPorts = []MemRd{{
		ClkEnable: true, ClkPolarity: true, Clk: clk,
		En: constSig(1, 1), Arst: constSig(0, 1), Srst: constSig(0, 1),
		Addr: module.AddWire("raddr", 4), Data: module.AddWire("rdata", 8),
		ArstValue: fourstate.NewConst(8, fourstate.Sx),
		SrstValue: fourstate.NewConst(8, fourstate.Sx),
		InitValue: fourstate.NewConst(8, fourstate.Sx),
		TransparencyMask: rdMask,
	}}

	m.WrPorts = []MemWr{
		{
			Removed:     true,
			ClkEnable:   true, ClkPolarity: true, Clk: clk,
			En: module.AddWire("en0", 8), Addr: module.AddWire("a0", 4), Data: module.AddWire("d0", 8),
			PriorityMask: newMask(2),
		},
		{
			ClkEnable: true, ClkPolarity: true, Clk: clk,
			En: module.AddWire("en1", 8), Addr: module.AddWire("a1", 4), Data: module.AddWire("d1", 8),
			PriorityMask: newMask(2),
		},
	}

	m.Emit()

	assert.Len(t, m.WrPorts, 1)
	assert.Equal(t, 1, int(m.RdPorts[0].TransparencyMask.Len()))
	assert.True(t, m.RdPorts[0].TransparencyMask.Test(0))
}
