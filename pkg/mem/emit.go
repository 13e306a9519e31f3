package mem

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/rtlmem/meminfer/pkg/fourstate"
	"github.com/rtlmem/meminfer/pkg/netlist"
)

// Emit writes the aggregate back to the host module as either a packed
// $mem cell or an unpacked declaration plus satellite cells, compacting
// away every tombstoned port first so the written form never carries
// Removed entries (spec.md §4.3, grounded on Mem::emit).
func (m *Mem) Emit() {
	m.Check()
	m.compact()

	if m.Packed {
		m.emitPacked()
	} else {
		m.emitUnpacked()
	}
}

// compact splices out every tombstoned port, reindexing the surviving
// write ports' mask columns (and every read port's transparency mask) so
// they still line up after the shift. Apart from Narrow, which rebuilds
// the port lists outright, this is the only place port indices change
// (spec.md §4.3 step 1).
func (m *Mem) compact() {
	var rdLeft, wrLeft []int

	for i := range m.RdPorts {
		port := &m.RdPorts[i]
		if port.Removed {
			if port.Cell != nil {
				m.Module.Remove(port.Cell)
			}
		} else {
			rdLeft = append(rdLeft, i)
		}
	}

	for i := range m.WrPorts {
		port := &m.WrPorts[i]
		if port.Removed {
			if port.Cell != nil {
				m.Module.Remove(port.Cell)
			}
		} else {
			wrLeft = append(wrLeft, i)
		}
	}

	newRd := make([]MemRd, len(rdLeft))
	for i, j := range rdLeft {
		newRd[i] = m.RdPorts[j]
	}
	m.RdPorts = newRd

	newWr := make([]MemWr, len(wrLeft))
	for i, j := range wrLeft {
		newWr[i] = m.WrPorts[j]
	}
	m.WrPorts = newWr

	for i := range m.RdPorts {
		m.RdPorts[i].TransparencyMask = remapMask(m.RdPorts[i].TransparencyMask, wrLeft)
	}

	for i := range m.WrPorts {
		m.WrPorts[i].PriorityMask = remapMask(m.WrPorts[i].PriorityMask, wrLeft)
	}
}

// wrPortXlat expands the compact write-port index into one entry per
// sub-port of every wide write port, mirroring the host's wr_port_xlat
// table used to stretch a priority mask across a packed cell's
// sub-addressed write lanes.
func wrPortXlat(wrPorts []MemWr) []int {
	var out []int
	for i := range wrPorts {
		span := 1 << uint(wrPorts[i].WideLog2)
		for j := 0; j < span; j++ {
			out = append(out, i)
		}
	}

	return out
}

func expandMask(mask *bitset.BitSet, xlat []int) fourstate.Const {
	out := fourstate.NewConst(len(xlat), fourstate.S0)
	for i, j := range xlat {
		if mask != nil && mask.Test(uint(j)) {
			out[i] = fourstate.S1
		}
	}

	return out
}

// emitPacked rebuilds (or creates) the single $mem composite cell,
// widening every port's address, enable and transparency/priority
// columns out to one entry per sub-word of its wide_log2 span (spec.md
// §4.3 step 2, grounded on Mem::emit's packed branch).
func (m *Mem) emitPacked() {
	if m.MemDecl != nil {
		m.Module.RemoveMemory(m.MemDecl.Name)
		m.MemDecl = nil
	}

	if m.Cell == nil {
		m.Cell = m.Module.AddCell("", netlist.CellMem)
		if m.MemID == "" {
			m.MemID = m.Cell.Name
		}
	}

	cell := m.Cell
	cell.Attributes = m.Attributes
	cell.SetParamString(netlist.ParamMemID, m.MemID)
	cell.SetParam(netlist.ParamWidth, fourstate.ConstFromUint(uint64(m.Width), 32))
	cell.SetParam(netlist.ParamOffset, fourstate.ConstFromUint(uint64(m.StartOffset), 32))
	cell.SetParam(netlist.ParamSize, fourstate.ConstFromUint(uint64(m.Size), 32))

	abits := 0
	for i := range m.RdPorts {
		if w := m.RdPorts[i].Addr.Width(); w > abits {
			abits = w
		}
	}
	for i := range m.WrPorts {
		if w := m.WrPorts[i].Addr.Width(); w > abits {
			abits = w
		}
	}
	cell.SetParam(netlist.ParamAbits, fourstate.ConstFromUint(uint64(abits), 32))

	xlat := wrPortXlat(m.WrPorts)

	var rdWideCont, rdClkEnable, rdClkPolarity, rdTransMask fourstate.Const
	var rdCeOverSrst, rdArstValue, rdSrstValue, rdInitValue fourstate.Const
	var rdClk, rdEn, rdArst, rdSrst, rdAddr, rdData fourstate.Signal

	for i := range m.RdPorts {
		port := &m.RdPorts[i]
		if port.Cell != nil {
			m.Module.Remove(port.Cell)
			port.Cell = nil
		}

		span := 1 << uint(port.WideLog2)
		portMask := expandMask(port.TransparencyMask, xlat)

		for sub := 0; sub < span; sub++ {
			rdWideCont = append(rdWideCont, fourstate.StateFromBool(sub != 0))
			rdClkEnable = append(rdClkEnable, fourstate.StateFromBool(port.ClkEnable))
			rdClkPolarity = append(rdClkPolarity, fourstate.StateFromBool(port.ClkPolarity))
			rdTransMask = rdTransMask.Append(portMask)
			rdCeOverSrst = append(rdCeOverSrst, fourstate.StateFromBool(port.CeOverSrst))

			rdClk = rdClk.Append(port.Clk)
			rdArst = rdArst.Append(port.Arst)
			rdSrst = rdSrst.Append(port.Srst)
			rdEn = rdEn.Append(port.En)

			addr := port.Addr.ExtendU0(abits, false)
			for b := 0; b < port.WideLog2; b++ {
				addr = addr.SetBit(b, fourstate.StateFromBool(sub>>uint(b)&1 != 0))
			}
			rdAddr = rdAddr.Append(addr)
		}

		rdArstValue = rdArstValue.Append(port.ArstValue)
		rdSrstValue = rdSrstValue.Append(port.SrstValue)
		rdInitValue = rdInitValue.Append(port.InitValue)
		rdData = rdData.Append(port.Data)
	}

	if len(m.RdPorts) == 0 {
		rdWideCont = fourstate.Const{fourstate.S0}
		rdClkEnable = fourstate.Const{fourstate.S0}
		rdClkPolarity = fourstate.Const{fourstate.S0}
		rdTransMask = fourstate.Const{fourstate.S0}
		rdCeOverSrst = fourstate.Const{fourstate.S0}
		rdArstValue = fourstate.Const{fourstate.S0}
		rdSrstValue = fourstate.Const{fourstate.S0}
		rdInitValue = fourstate.Const{fourstate.S0}
	}

	if len(m.WrPorts) == 0 {
		rdTransMask = fourstate.Const{fourstate.S0}
	}

	cell.SetParam(netlist.ParamRdPorts, fourstate.ConstFromUint(uint64(rdClk.Width()), 32))
	cell.SetParam(netlist.ParamRdWideContinuation, rdWideCont)
	cell.SetParam(netlist.ParamRdClkEnable, rdClkEnable)
	cell.SetParam(netlist.ParamRdClkPolarity, rdClkPolarity)
	cell.SetParam(netlist.ParamRdTransparencyMask, rdTransMask)
	cell.SetParam(netlist.ParamRdCeOverSrst, rdCeOverSrst)
	cell.SetParam(netlist.ParamRdArstValue, rdArstValue)
	cell.SetParam(netlist.ParamRdSrstValue, rdSrstValue)
	cell.SetParam(netlist.ParamRdInitValue, rdInitValue)
	cell.SetPort(netlist.PortRdClk, rdClk)
	cell.SetPort(netlist.PortRdEn, rdEn)
	cell.SetPort(netlist.PortRdArst, rdArst)
	cell.SetPort(netlist.PortRdSrst, rdSrst)
	cell.SetPort(netlist.PortRdAddr, rdAddr)
	cell.SetPort(netlist.PortRdData, rdData)

	var wrWideCont, wrClkEnable, wrClkPolarity, wrPrioMask fourstate.Const
	var wrClk, wrEn, wrAddr, wrData fourstate.Signal

	for i := range m.WrPorts {
		port := &m.WrPorts[i]
		if port.Cell != nil {
			m.Module.Remove(port.Cell)
			port.Cell = nil
		}

		span := 1 << uint(port.WideLog2)
		portMask := expandMask(port.PriorityMask, xlat)

		for sub := 0; sub < span; sub++ {
			wrWideCont = append(wrWideCont, fourstate.StateFromBool(sub != 0))
			wrClkEnable = append(wrClkEnable, fourstate.StateFromBool(port.ClkEnable))
			wrClkPolarity = append(wrClkPolarity, fourstate.StateFromBool(port.ClkPolarity))
			wrPrioMask = wrPrioMask.Append(portMask)

			wrClk = wrClk.Append(port.Clk)

			addr := port.Addr.ExtendU0(abits, false)
			for b := 0; b < port.WideLog2; b++ {
				addr = addr.SetBit(b, fourstate.StateFromBool(sub>>uint(b)&1 != 0))
			}
			wrAddr = wrAddr.Append(addr)
		}

		wrEn = wrEn.Append(port.En)
		wrData = wrData.Append(port.Data)
	}

	if len(m.WrPorts) == 0 {
		wrWideCont = fourstate.Const{fourstate.S0}
		wrClkEnable = fourstate.Const{fourstate.S0}
		wrClkPolarity = fourstate.Const{fourstate.S0}
		wrPrioMask = fourstate.Const{fourstate.S0}
	}

	cell.SetParam(netlist.ParamWrPorts, fourstate.ConstFromUint(uint64(wrClk.Width()), 32))
	cell.SetParam(netlist.ParamWrWideContinuation, wrWideCont)
	cell.SetParam(netlist.ParamWrClkEnable, wrClkEnable)
	cell.SetParam(netlist.ParamWrClkPolarity, wrClkPolarity)
	cell.SetParam(netlist.ParamWrPriorityMask, wrPrioMask)
	cell.SetPort(netlist.PortWrClk, wrClk)
	cell.SetPort(netlist.PortWrEn, wrEn)
	cell.SetPort(netlist.PortWrAddr, wrAddr)
	cell.SetPort(netlist.PortWrData, wrData)

	for i := range m.Inits {
		if m.Inits[i].Cell != nil {
			m.Module.Remove(m.Inits[i].Cell)
			m.Inits[i].Cell = nil
		}
	}

	cell.SetParam(netlist.ParamInit, m.GetInitData())
}

// emitUnpacked rebuilds (or creates) the named declaration plus one
// $memrd/$memwr/$meminit satellite cell per surviving port, renumbering
// PORTID and PRIORITY sequentially (spec.md §4.3 step 2, unpacked
// branch).
func (m *Mem) emitUnpacked() {
	if m.Cell != nil {
		m.Module.Remove(m.Cell)
		m.Cell = nil
	}

	if m.MemDecl == nil {
		if m.MemID == "" {
			m.MemID = m.Module.NewAnonID("mem")
		}

		m.MemDecl = &netlist.MemoryDecl{Name: m.MemID}
		m.Module.AddMemory(m.MemDecl)
	}

	m.MemDecl.Width = m.Width
	m.MemDecl.StartOffset = m.StartOffset
	m.MemDecl.Size = m.Size
	m.MemDecl.Attributes = m.Attributes

	for i := range m.RdPorts {
		port := &m.RdPorts[i]
		if port.Cell == nil {
			port.Cell = m.Module.AddCell("", netlist.CellMemRd)
		}

		cell := port.Cell
		cell.Attributes = port.Attributes
		cell.SetParamString(netlist.ParamMemID, m.MemID)
		cell.SetParam(netlist.ParamAbits, fourstate.ConstFromUint(uint64(port.Addr.Width()), 32))
		cell.SetParam(netlist.ParamWidth, fourstate.ConstFromUint(uint64(m.Width<<uint(port.WideLog2)), 32))
		cell.SetParam(netlist.ParamClkEnable, fourstate.Const{fourstate.StateFromBool(port.ClkEnable)})
		cell.SetParam(netlist.ParamClkPolarity, fourstate.Const{fourstate.StateFromBool(port.ClkPolarity)})
		cell.SetParam(netlist.ParamTransparencyMask, maskToConst(port.TransparencyMask, len(m.WrPorts)))
		cell.SetParam(netlist.ParamCeOverSrst, fourstate.Const{fourstate.StateFromBool(port.CeOverSrst)})
		cell.SetParam(netlist.ParamArstValue, port.ArstValue)
		cell.SetParam(netlist.ParamSrstValue, port.SrstValue)
		cell.SetParam(netlist.ParamInitValue, port.InitValue)
		cell.SetPort(netlist.PortClk, port.Clk)
		cell.SetPort(netlist.PortEn, port.En)
		cell.SetPort(netlist.PortArst, port.Arst)
		cell.SetPort(netlist.PortSrst, port.Srst)
		cell.SetPort(netlist.PortAddr, port.Addr)
		cell.SetPort(netlist.PortData, port.Data)
	}

	for i := range m.WrPorts {
		port := &m.WrPorts[i]
		if port.Cell == nil {
			port.Cell = m.Module.AddCell("", netlist.CellMemWr)
		}

		cell := port.Cell
		cell.Attributes = port.Attributes
		cell.SetParamString(netlist.ParamMemID, m.MemID)
		cell.SetParam(netlist.ParamAbits, fourstate.ConstFromUint(uint64(port.Addr.Width()), 32))
		cell.SetParam(netlist.ParamWidth, fourstate.ConstFromUint(uint64(m.Width<<uint(port.WideLog2)), 32))
		cell.SetParam(netlist.ParamClkEnable, fourstate.Const{fourstate.StateFromBool(port.ClkEnable)})
		cell.SetParam(netlist.ParamClkPolarity, fourstate.Const{fourstate.StateFromBool(port.ClkPolarity)})
		cell.SetParam(netlist.ParamPortID, fourstate.ConstFromUint(uint64(i), 32))
		cell.SetParam(netlist.ParamPriorityMask, maskToConst(port.PriorityMask, len(m.WrPorts)))
		cell.SetPort(netlist.PortClk, port.Clk)
		cell.SetPort(netlist.PortEn, port.En)
		cell.SetPort(netlist.PortAddr, port.Addr)
		cell.SetPort(netlist.PortData, port.Data)
	}

	for i := range m.Inits {
		init := &m.Inits[i]
		if init.Cell == nil {
			init.Cell = m.Module.AddCell("", netlist.CellMemInit)
		}

		cell := init.Cell
		cell.Attributes = init.Attributes
		cell.SetParamString(netlist.ParamMemID, m.MemID)
		cell.SetParam(netlist.ParamAbits, fourstate.ConstFromUint(uint64(init.Addr.Width()), 32))
		cell.SetParam(netlist.ParamWidth, fourstate.ConstFromUint(uint64(m.Width), 32))
		cell.SetParam(netlist.ParamWords, fourstate.ConstFromUint(uint64(init.Data.Width()/m.Width), 32))
		cell.SetParam(netlist.ParamPriorit, fourstate.ConstFromUint(uint64(i), 32))
		cell.SetPort(netlist.PortAddr, fourstate.FromConst(init.Addr))
		cell.SetPort(netlist.PortData, fourstate.FromConst(init.Data))
	}
}

// maskToConst renders a write-port mask as a plain per-port Const, the
// representation a $memrd/$memwr satellite cell's TRANSPARENCY_MASK /
// PRIORITY_MASK parameter carries in the unpacked encoding (no sub-port
// expansion — that's a packed-cell-only concern).
func maskToConst(mask *bitset.BitSet, n int) fourstate.Const {
	out := fourstate.NewConst(n, fourstate.S0)
	for i := 0; i < n; i++ {
		if mask != nil && mask.Test(uint(i)) {
			out[i] = fourstate.S1
		}
	}

	return out
}
