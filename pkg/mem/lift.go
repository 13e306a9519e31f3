package mem

import (
	"fmt"
	"sort"

	"github.com/rtlmem/meminfer/pkg/fourstate"
	"github.com/rtlmem/meminfer/pkg/netlist"
)

// memIndex pre-groups the satellite cells of a module by MEMID so that
// lifting every declared memory in a module costs time linear in the
// cell count rather than quadratic (spec.md §4.1; grounded on the
// original's anonymous-namespace `MemIndex` helper).
type memIndex struct {
	rdPorts map[string][]*netlist.Cell
	wrPorts map[string][]*netlist.Cell
	inits   map[string][]*netlist.Cell
}

func newMemIndex(module *netlist.Module) *memIndex {
	idx := &memIndex{
		rdPorts: map[string][]*netlist.Cell{},
		wrPorts: map[string][]*netlist.Cell{},
		inits:   map[string][]*netlist.Cell{},
	}

	for _, c := range module.Cells() {
		switch c.Type {
		case netlist.CellMemWr:
			id := c.ParamString(netlist.ParamMemID)
			idx.wrPorts[id] = append(idx.wrPorts[id], c)
		case netlist.CellMemRd:
			id := c.ParamString(netlist.ParamMemID)
			idx.rdPorts[id] = append(idx.rdPorts[id], c)
		case netlist.CellMemInit:
			id := c.ParamString(netlist.ParamMemID)
			idx.inits[id] = append(idx.inits[id], c)
		}
	}

	return idx
}

// LiftUnpacked builds a Mem from a named memory declaration plus its
// satellite read-port, write-port and initializer cells (spec.md §4.1).
func LiftUnpacked(module *netlist.Module, decl *netlist.MemoryDecl, idx *memIndex) (*Mem, error) {
	res := NewMem(module, decl.Name, decl.Width, decl.StartOffset, decl.Size)
	res.Packed = false
	res.MemDecl = decl
	res.Attributes = decl.Attributes

	for _, cell := range idx.rdPorts[decl.Name] {
		mrd := MemRd{
			Cell:        cell,
			Attributes:  cell.Attributes,
			ClkEnable:   cell.Param(netlist.ParamClkEnable).AsBool(),
			ClkPolarity: cell.Param(netlist.ParamClkPolarity).AsBool(),
			CeOverSrst:  cell.Param(netlist.ParamCeOverSrst).AsBool(),
			ArstValue:   cell.Param(netlist.ParamArstValue),
			SrstValue:   cell.Param(netlist.ParamSrstValue),
			InitValue:   cell.Param(netlist.ParamInitValue),
			Clk:         cell.Port(netlist.PortClk),
			En:          cell.Port(netlist.PortEn),
			Arst:        cell.Port(netlist.PortArst),
			Srst:        cell.Port(netlist.PortSrst),
			Addr:        cell.Port(netlist.PortAddr),
			Data:        cell.Port(netlist.PortData),
		}
		mrd.WideLog2 = ceilLog2(mrd.Data.Width() / decl.Width)
		res.RdPorts = append(res.RdPorts, mrd)
	}

	type idWr struct {
		portID int
		cell   *netlist.Cell
	}

	var rawWr []idWr

	for _, cell := range idx.wrPorts[decl.Name] {
		rawWr = append(rawWr, idWr{cell.Param(netlist.ParamPortID).AsInt(), cell})
	}

	sort.Slice(rawWr, func(i, j int) bool { return rawWr[i].portID < rawWr[j].portID })

	for _, it := range rawWr {
		cell := it.cell
		mwr := MemWr{
			Cell:        cell,
			Attributes:  cell.Attributes,
			ClkEnable:   cell.Param(netlist.ParamClkEnable).AsBool(),
			ClkPolarity: cell.Param(netlist.ParamClkPolarity).AsBool(),
			Clk:         cell.Port(netlist.PortClk),
			En:          cell.Port(netlist.PortEn),
			Addr:        cell.Port(netlist.PortAddr),
			Data:        cell.Port(netlist.PortData),
		}
		mwr.WideLog2 = ceilLog2(mwr.Data.Width() / decl.Width)
		res.WrPorts = append(res.WrPorts, mwr)
	}

	// Translate each write port's raw, PORTID-indexed priority mask into
	// one indexed by the freshly sorted port order (spec.md §4.1 step 4).
	for i := range res.WrPorts {
		port := &res.WrPorts[i]
		origMask := port.Cell.Param(netlist.ParamPriorityMask)
		port.PriorityMask = newMask(len(res.WrPorts))

		for j, other := range res.WrPorts {
			otherID := other.Cell.Param(netlist.ParamPortID).AsInt()
			if otherID < origMask.Width() && origMask[otherID] == fourstate.S1 {
				port.PriorityMask.Set(uint(j))
			}
		}
	}

	// Same translation for each read port's transparency mask (spec.md
	// §4.1 step 3).
	for i := range res.RdPorts {
		port := &res.RdPorts[i]
		origMask := port.Cell.Param(netlist.ParamTransparencyMask)
		port.TransparencyMask = newMask(len(res.WrPorts))

		for j, other := range res.WrPorts {
			otherID := other.Cell.Param(netlist.ParamPortID).AsInt()
			if otherID < origMask.Width() && origMask[otherID] == fourstate.S1 {
				port.TransparencyMask.Set(uint(j))
			}
		}
	}

	type idInit struct {
		priority int
		cell     *netlist.Cell
	}

	var rawInit []idInit

	for _, cell := range idx.inits[decl.Name] {
		addr := cell.Port(netlist.PortAddr)
		data := cell.Port(netlist.PortData)

		if !addr.IsFullyConst() {
			return nil, fmt.Errorf("non-constant address in memory initialization cell %q of memory %q", cell.Name, decl.Name)
		}

		if !data.IsFullyConst() {
			return nil, fmt.Errorf("non-constant data in memory initialization cell %q of memory %q", cell.Name, decl.Name)
		}

		rawInit = append(rawInit, idInit{cell.Param(netlist.ParamPriorit).AsInt(), cell})
	}

	sort.Slice(rawInit, func(i, j int) bool { return rawInit[i].priority < rawInit[j].priority })

	for _, it := range rawInit {
		res.Inits = append(res.Inits, MemInit{
			Cell:       it.cell,
			Attributes: it.cell.Attributes,
			Addr:       it.cell.Port(netlist.PortAddr).AsConst(),
			Data:       it.cell.Port(netlist.PortData).AsConst(),
		})
	}

	res.Check()

	return res, nil
}

// LiftPacked builds a Mem from a single $mem composite cell (spec.md
// §4.2).
func LiftPacked(cell *netlist.Cell) *Mem {
	width := cell.Param(netlist.ParamWidth).AsInt()
	offset := cell.Param(netlist.ParamOffset).AsInt()
	size := cell.Param(netlist.ParamSize).AsInt()
	abits := cell.Param(netlist.ParamAbits).AsInt()

	res := NewMem(nil, cell.ParamString(netlist.ParamMemID), width, offset, size)
	res.Packed = true
	res.Cell = cell
	res.Attributes = cell.Attributes

	decodeInits(res, cell)

	nRd := cell.Param(netlist.ParamRdPorts).AsInt()
	nWr := cell.Param(netlist.ParamWrPorts).AsInt()
	rdCont := cell.Param(netlist.ParamRdWideContinuation)
	wrCont := cell.Param(netlist.ParamWrWideContinuation)

	rdClk := cell.Port(netlist.PortRdClk)
	rdEn := cell.Port(netlist.PortRdEn)
	rdArst := cell.Port(netlist.PortRdArst)
	rdSrst := cell.Port(netlist.PortRdSrst)
	rdAddr := cell.Port(netlist.PortRdAddr)
	rdData := cell.Port(netlist.PortRdData)
	rdClkEnable := cell.Param(netlist.ParamRdClkEnable)
	rdClkPolarity := cell.Param(netlist.ParamRdClkPolarity)
	rdTransMask := cell.Param(netlist.ParamRdTransparencyMask)
	rdCeOverSrst := cell.Param(netlist.ParamRdCeOverSrst)
	rdArstValueC := cell.Param(netlist.ParamRdArstValue)
	rdSrstValueC := cell.Param(netlist.ParamRdSrstValue)
	rdInitValueC := cell.Param(netlist.ParamRdInitValue)

	for i := 0; i < nRd; {
		ni := i + 1
		for ni < nRd && ni < rdCont.Width() && rdCont[ni] == fourstate.S1 {
			ni++
		}

		span := ni - i
		wideLog2 := ceilLog2(span)
		if 1<<uint(wideLog2) != span {
			panic("packed read port run length is not a power of two")
		}

		mrd := MemRd{
			WideLog2:    wideLog2,
			ClkEnable:   rdClkEnable.Extract(i, 1, fourstate.S0).AsBool(),
			ClkPolarity: rdClkPolarity.Extract(i, 1, fourstate.S0).AsBool(),
			CeOverSrst:  rdCeOverSrst.Extract(i, 1, fourstate.S0).AsBool(),
			ArstValue:   rdArstValueC.Extract(i*width, span*width, fourstate.Sx),
			SrstValue:   rdSrstValueC.Extract(i*width, span*width, fourstate.Sx),
			InitValue:   rdInitValueC.Extract(i*width, span*width, fourstate.Sx),
			Clk:         rdClk.Extract(i, 1),
			En:          rdEn.Extract(i, 1),
			Arst:        rdArst.Extract(i, 1),
			Srst:        rdSrst.Extract(i, 1),
			Addr:        rdAddr.Extract(i*abits, abits),
			Data:        rdData.Extract(i*width, span*width),
		}

		for j := 0; j < wideLog2; j++ {
			if !mrd.Addr[j].IsConst() || mrd.Addr[j].Const != fourstate.S0 {
				panic("packed read port address not aligned to its width")
			}
		}

		rawMask := rdTransMask.Extract(i*nWr, nWr, fourstate.S0)

		var compressed []bool
		for j := 0; j < nWr; j++ {
			if j >= wrCont.Width() || wrCont[j] != fourstate.S1 {
				compressed = append(compressed, rawMask[j] == fourstate.S1)
			}
		}

		mrd.TransparencyMask = maskFromBools(compressed)

		res.RdPorts = append(res.RdPorts, mrd)
		i = ni
	}

	wrClk := cell.Port(netlist.PortWrClk)
	wrEn := cell.Port(netlist.PortWrEn)
	wrAddr := cell.Port(netlist.PortWrAddr)
	wrData := cell.Port(netlist.PortWrData)
	wrClkEnable := cell.Param(netlist.ParamWrClkEnable)
	wrClkPolarity := cell.Param(netlist.ParamWrClkPolarity)
	wrPrioMask := cell.Param(netlist.ParamWrPriorityMask)

	for i := 0; i < nWr; {
		ni := i + 1
		for ni < nWr && ni < wrCont.Width() && wrCont[ni] == fourstate.S1 {
			ni++
		}

		span := ni - i
		wideLog2 := ceilLog2(span)
		if 1<<uint(wideLog2) != span {
			panic("packed write port run length is not a power of two")
		}

		mwr := MemWr{
			WideLog2:    wideLog2,
			ClkEnable:   wrClkEnable.Extract(i, 1, fourstate.S0).AsBool(),
			ClkPolarity: wrClkPolarity.Extract(i, 1, fourstate.S0).AsBool(),
			Clk:         wrClk.Extract(i, 1),
			Addr:        wrAddr.Extract(i*abits, abits),
			En:          wrEn.Extract(i*width, span*width),
			Data:        wrData.Extract(i*width, span*width),
		}

		for j := 0; j < wideLog2; j++ {
			if !mwr.Addr[j].IsConst() || mwr.Addr[j].Const != fourstate.S0 {
				panic("packed write port address not aligned to its width")
			}
		}

		rawMask := wrPrioMask.Extract(i*nWr, nWr, fourstate.S0)

		var compressed []bool
		for j := 0; j < nWr; j++ {
			if j >= wrCont.Width() || wrCont[j] != fourstate.S1 {
				compressed = append(compressed, rawMask[j] == fourstate.S1)
			}
		}

		mwr.PriorityMask = maskFromBools(compressed)

		res.WrPorts = append(res.WrPorts, mwr)
		i = ni
	}

	res.Check()

	return res
}

// decodeInits scans the packed $mem INIT constant word by word,
// emitting one MemInit per maximal run of not-fully-undefined words
// (spec.md §4.2 step 2).
func decodeInits(res *Mem, cell *netlist.Cell) {
	init := cell.Param(netlist.ParamInit)
	if init.IsFullyUndef() {
		return
	}

	pos := 0
	for pos < res.Size {
		word := init.Extract(pos*res.Width, res.Width, fourstate.Sx)
		if word.IsFullyUndef() {
			pos++
			continue
		}

		epos := pos
		for epos < res.Size {
			w := init.Extract(epos*res.Width, res.Width, fourstate.Sx)
			if w.IsFullyUndef() {
				break
			}

			epos++
		}

		res.Inits = append(res.Inits, MemInit{
			Addr: fourstate.ConstFromUint(uint64(res.StartOffset+pos), 64),
			Data: init.Extract(pos*res.Width, (epos-pos)*res.Width, fourstate.Sx),
		})
		pos = epos
	}
}

// GetAllMemories lifts every memory in module: every named declaration
// (unpacked) and every $mem cell (packed).
func GetAllMemories(module *netlist.Module) ([]*Mem, error) {
	return GetMemories(module, module.Cells())
}

// GetMemories lifts every named memory declaration in module plus every
// $mem cell among the given candidate cells — the selection-scoped
// sibling of GetAllMemories (SPEC_FULL.md §D, Supplemented Features).
func GetMemories(module *netlist.Module, candidates []*netlist.Cell) ([]*Mem, error) {
	idx := newMemIndex(module)

	var res []*Mem

	for _, decl := range module.Memories() {
		m, err := LiftUnpacked(module, decl, idx)
		if err != nil {
			return nil, err
		}

		res = append(res, m)
	}

	for _, cell := range candidates {
		if cell.Type == netlist.CellMem {
			m := LiftPacked(cell)
			m.Module = module
			res = append(res, m)
		}
	}

	return res, nil
}

func ceilLog2(n int) int {
	if n <= 1 {
		return 0
	}

	log := 0
	for (1 << uint(log)) < n {
		log++
	}

	return log
}
