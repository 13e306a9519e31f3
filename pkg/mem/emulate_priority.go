package mem

import (
	"fmt"

	"github.com/rtlmem/meminfer/pkg/fourstate"
)

// EmulatePriority clears the priority_mask bit write port idx2 holds
// over idx1 (idx1 < idx2: idx2 wins a same-address conflict, so idx1
// must not clobber idx2's write) by gating idx1's every enable bit
// off wherever idx2 is also writing the same address. Once rewired, the
// two ports behave identically with or without RTL's usual "higher
// write-port index always wins" default, so the priority_mask bit can be
// dropped (spec.md §4.8, grounded on Mem::emulate_priority).
func (m *Mem) EmulatePriority(idx1, idx2 int) {
	port1 := &m.WrPorts[idx1]
	port2 := &m.WrPorts[idx2]

	if !port2.PriorityMask.Test(uint(idx1)) {
		return
	}

	minWide, maxWide := port1.WideLog2, port2.WideLog2
	if minWide > maxWide {
		minWide, maxWide = maxWide, minWide
	}

	wide1 := port1.WideLog2 > port2.WideLog2

	// Rewrite a private copy: the old enable slice may still be shared
	// with a cell port or another holder of the signal.
	port1.En = port1.En.Extract(0, port1.En.Width())

	for sub := 0; sub < (1 << uint(maxWide)); sub += 1 << uint(minWide) {
		addr1 := port1.Addr
		addr2 := port2.Addr

		for j := minWide; j < maxWide; j++ {
			bit := fourstate.StateFromBool(sub>>uint(j)&1 != 0)
			if wide1 {
				addr1 = addr1.SetBit(j, bit)
			} else {
				addr2 = addr2.SetBit(j, bit)
			}
		}

		addrEq := m.Module.Eq(fmt.Sprintf("$%s$prio[%d][%d][%d]", m.MemID, idx1, idx2, sub), addr1, addr2)

		ewidth := m.Width << uint(minWide)
		sub1, sub2 := 0, 0
		if wide1 {
			sub1 = sub
		} else {
			sub2 = sub
		}

		type key struct{ en1, en2 fourstate.Bit }
		cache := map[key]fourstate.Bit{}

		for pos := 0; pos < ewidth; pos++ {
			en1 := port1.En[pos+sub1*m.Width]
			en2 := port2.En[pos+sub2*m.Width]
			k := key{en1, en2}

			if cached, ok := cache[k]; ok {
				port1.En[pos+sub1*m.Width] = cached
				continue
			}

			active2 := m.Module.And(fmt.Sprintf("$%s$prioact[%d][%d][%d][%d]", m.MemID, idx1, idx2, sub, pos), addrEq, fourstate.Signal{en2})
			nactive2 := m.Module.Not(fmt.Sprintf("$%s$prionact[%d][%d][%d][%d]", m.MemID, idx1, idx2, sub, pos), active2)
			gated := m.Module.And(fmt.Sprintf("$%s$priogate[%d][%d][%d][%d]", m.MemID, idx1, idx2, sub, pos), fourstate.Signal{en1}, nactive2)

			cache[k] = gated[0]
			port1.En[pos+sub1*m.Width] = gated[0]
		}
	}

	port2.PriorityMask.Clear(uint(idx1))
}
