package mem

import (
	"fmt"

	"github.com/rtlmem/meminfer/pkg/fourstate"
	"github.com/rtlmem/meminfer/pkg/netlist"
)

// ExtractRdff pulls the register implied by a clocked read port out of
// the memory, leaving the port combinational. It returns the flip-flop
// cell it created, or nil if the port was already unclocked or, in the
// address-register style, every address bit is constant so no register
// is needed (spec.md §4.5, grounded on Mem::extract_rdff).
//
// Two distinct shapes come out of this depending on the port's
// transparency: if the port has no enable/reset/init value and is
// transparent with every write port, the register can sit on the
// address input (cheaper, and the common case for a plain synchronous
// read). Otherwise it has to sit on the data output, with an explicit
// bypass mux synthesized for every write port it used to be transparent
// with.
func (m *Mem) ExtractRdff(idx int, initvals *netlist.FfInitVals) *netlist.Cell {
	port := &m.RdPorts[idx]
	if !port.ClkEnable {
		return nil
	}

	transUseAddr := len(m.WrPorts) > 0 &&
		port.En.IsAllConst(fourstate.S1) &&
		port.Srst.IsAllConst(fourstate.S0) &&
		port.Arst.IsAllConst(fourstate.S0) &&
		port.InitValue.IsFullyUndef()

	if transUseAddr {
		for i := range m.WrPorts {
			if !port.TransparencyMask.Test(uint(i)) {
				transUseAddr = false
				break
			}
		}
	}

	var c *netlist.Cell

	if transUseAddr {
		c = m.extractRdffAddr(idx, port)
	} else {
		c = m.extractRdffData(idx, port, initvals)
	}

	port.En = fourstate.FromConst(fourstate.Const{fourstate.S1})
	port.Clk = fourstate.FromConst(fourstate.Const{fourstate.S0})
	port.Arst = fourstate.FromConst(fourstate.Const{fourstate.S0})
	port.Srst = fourstate.FromConst(fourstate.Const{fourstate.S0})
	port.ClkEnable = false
	port.ClkPolarity = true
	port.CeOverSrst = false
	port.ArstValue = fourstate.NewConst(port.Data.Width(), fourstate.Sx)
	port.SrstValue = fourstate.NewConst(port.Data.Width(), fourstate.Sx)
	port.InitValue = fourstate.NewConst(port.Data.Width(), fourstate.Sx)
	port.TransparencyMask = newMask(len(m.WrPorts))

	return c
}

// extractRdffAddr registers every non-constant address bit, leaving
// constant bits (a wide port's sub-select bits, typically) untouched.
func (m *Mem) extractRdffAddr(idx int, port *MemRd) *netlist.Cell {
	var sigD fourstate.Signal
	positions := make([]int, 0, port.Addr.Width())

	for i, bit := range port.Addr {
		if !bit.IsConst() {
			sigD = append(sigD, bit)
			positions = append(positions, i)
		}
	}

	if len(positions) == 0 {
		return nil
	}

	sigQ := m.Module.AddWire(fmt.Sprintf("$%s$rdreg[%d]$q", m.MemID, idx), len(positions))
	for i, pos := range positions {
		port.Addr = port.Addr.Replace(pos, fourstate.Signal{sigQ[i]})
	}

	return m.Module.Dff(fmt.Sprintf("$%s$rdreg[%d]", m.MemID, idx), port.Clk, sigD, sigQ, port.ClkPolarity)
}

// extractRdffData puts the register on the data output, synthesizing a
// bypass path for every write port the read port used to see
// transparently.
func (m *Mem) extractRdffData(idx int, port *MemRd, initvals *netlist.FfInitVals) *netlist.Cell {
	dataWidth := port.Data.Width()
	asyncD := m.Module.AddWire(fmt.Sprintf("$%s$rdreg[%d]$d", m.MemID, idx), dataWidth)
	sigD := asyncD

	for i := range m.WrPorts {
		wport := &m.WrPorts[i]
		if !port.TransparencyMask.Test(uint(i)) {
			continue
		}

		minWide, maxWide := port.WideLog2, wport.WideLog2
		if minWide > maxWide {
			minWide, maxWide = maxWide, minWide
		}

		wideWrite := wport.WideLog2 > port.WideLog2
		baseWidth := m.Width

		for sub := 0; sub < (1 << uint(maxWide)); sub += 1 << uint(minWide) {
			raddr := port.Addr
			waddr := wport.Addr

			for j := minWide; j < maxWide; j++ {
				bit := fourstate.StateFromBool(sub>>uint(j)&1 != 0)
				if wideWrite {
					waddr = waddr.SetBit(j, bit)
				} else {
					raddr = raddr.SetBit(j, bit)
				}
			}

			var addrEq fourstate.Signal
			addrMatch := raddr.Equals(waddr)
			if !addrMatch {
				addrEq = m.Module.Eq(fmt.Sprintf("$%s$rdtransen[%d][%d][%d]$d", m.MemID, idx, i, sub), raddr, waddr)
			}

			ewidth := baseWidth << uint(minWide)
			wsub, rsub := 0, 0
			if wideWrite {
				wsub = sub
			} else {
				rsub = sub
			}

			pos := 0
			for pos < ewidth {
				epos := pos
				for epos < ewidth && wport.En[epos+wsub*baseWidth].Equals(wport.En[pos+wsub*baseWidth]) {
					epos++
				}

				cur := sigD.Extract(pos+rsub*baseWidth, epos-pos)
				other := wport.Data.Extract(pos+wsub*baseWidth, epos-pos)

				var cond fourstate.Signal
				if !addrMatch {
					cond = m.Module.And(fmt.Sprintf("$%s$rdtransgate[%d][%d][%d][%d]$d", m.MemID, idx, i, sub, pos), wport.En.Extract(pos+wsub*baseWidth, 1), addrEq)
				} else {
					cond = wport.En.Extract(pos+wsub*baseWidth, 1)
				}

				merged := m.Module.Mux(fmt.Sprintf("$%s$rdtransmux[%d][%d][%d][%d]$d", m.MemID, idx, i, sub, pos), cur, other, cond)
				sigD = sigD.Replace(pos+rsub*baseWidth, merged)
				pos = epos
			}
		}
	}

	ff := &netlist.FfData{
		Width:  dataWidth,
		HasClk: true,
		SigClk: port.Clk,
		PolClk: port.ClkPolarity,
	}

	if !port.En.IsAllConst(fourstate.S1) {
		ff.HasEn = true
		ff.PolEn = true
		ff.SigEn = port.En
	}

	if !port.Arst.IsAllConst(fourstate.S0) {
		ff.HasArst = true
		ff.PolArst = true
		ff.SigArst = port.Arst
		ff.ValArst = port.ArstValue
	}

	if !port.Srst.IsAllConst(fourstate.S0) {
		ff.HasSrst = true
		ff.PolSrst = true
		ff.SigSrst = port.Srst
		ff.ValSrst = port.SrstValue
		ff.CeOverSrst = ff.HasEn && port.CeOverSrst
	}

	ff.SigD = sigD
	ff.SigQ = port.Data
	ff.ValInit = port.InitValue

	c := ff.Emit(m.Module, fmt.Sprintf("$%s$rdreg[%d]", m.MemID, idx), initvals)
	port.Data = asyncD

	return c
}
