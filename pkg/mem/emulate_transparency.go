package mem

import (
	"fmt"

	"github.com/rtlmem/meminfer/pkg/fourstate"
)

// EmulateTransparency clears the transparency_mask bit read port ridx
// holds for write port widx by synthesizing an explicit same-cycle
// bypass: a delayed copy of the write port's data and a delayed,
// address-matched copy of its enable, muxed onto the read port's output
// in place of relying on the memory's own read-during-write behavior
// (spec.md §4.9, grounded on Mem::emulate_transparency).
//
// Any write port with higher priority than widx that this read port is
// also transparent with has its transparency emulated first — lower
// down the priority chain a write can be masked by one above it, so the
// cascade has to proceed highest-priority-first or the bypass order
// would be wrong.
func (m *Mem) EmulateTransparency(widx, ridx int) {
	rport := &m.RdPorts[ridx]
	if !rport.TransparencyMask.Test(uint(widx)) {
		return
	}

	for i := len(m.WrPorts) - 1; i > widx; i-- {
		if m.WrPorts[i].PriorityMask.Test(uint(widx)) {
			m.EmulateTransparency(i, ridx)
		}
	}

	wport := &m.WrPorts[widx]

	minWide, maxWide := rport.WideLog2, wport.WideLog2
	if minWide > maxWide {
		minWide, maxWide = maxWide, minWide
	}

	wideWrite := wport.WideLog2 > rport.WideLog2

	wdataQ := m.Module.AddWire("", wport.Data.Width())
	m.Module.Dff(fmt.Sprintf("$%s$transq[%d][%d]", m.MemID, widx, ridx), rport.Clk, wport.Data, wdataQ, rport.ClkPolarity)

	for sub := 0; sub < (1 << uint(maxWide)); sub += 1 << uint(minWide) {
		raddr := rport.Addr
		waddr := wport.Addr

		for j := minWide; j < maxWide; j++ {
			bit := fourstate.StateFromBool(sub>>uint(j)&1 != 0)
			if wideWrite {
				waddr = waddr.SetBit(j, bit)
			} else {
				raddr = raddr.SetBit(j, bit)
			}
		}

		addrMatch := raddr.Equals(waddr)

		var addrEq fourstate.Signal
		if !addrMatch {
			addrEq = m.Module.Eq(fmt.Sprintf("$%s$transeq[%d][%d][%d]", m.MemID, widx, ridx, sub), raddr, waddr)
		}

		ewidth := m.Width << uint(minWide)
		wsub, rsub := 0, 0
		if wideWrite {
			wsub = sub
		} else {
			rsub = sub
		}

		rdataA := m.Module.AddWire("", ewidth)

		pos := 0
		for pos < ewidth {
			epos := pos
			for epos < ewidth && wport.En[epos+wsub*m.Width].Equals(wport.En[pos+wsub*m.Width]) {
				epos++
			}

			var cond fourstate.Signal
			if !addrMatch {
				cond = m.Module.And(fmt.Sprintf("$%s$transcond[%d][%d][%d][%d]", m.MemID, widx, ridx, sub, pos), wport.En.Extract(pos+wsub*m.Width, 1), addrEq)
			} else {
				cond = wport.En.Extract(pos+wsub*m.Width, 1)
			}

			condQ := m.Module.AddWire("", 1)
			m.Module.Dff(fmt.Sprintf("$%s$transcondq[%d][%d][%d][%d]", m.MemID, widx, ridx, sub, pos), rport.Clk, cond, condQ, rport.ClkPolarity)

			cur := rdataA.Extract(pos, epos-pos)
			other := wdataQ.Extract(pos+wsub*m.Width, epos-pos)

			m.Module.AddMux(fmt.Sprintf("$%s$transmux[%d][%d][%d][%d]", m.MemID, widx, ridx, sub, pos), cur, other, condQ, rport.Data.Extract(pos+rsub*m.Width, epos-pos))
			pos = epos
		}

		rport.Data = rport.Data.Replace(rsub*m.Width, rdataA)
	}

	rport.TransparencyMask.Clear(uint(widx))
}
