package mem

import "github.com/rtlmem/meminfer/pkg/fourstate"

// WidenPrep aligns start_offset and size to a port of the given
// wide_log2, growing the memory's bounds (never shrinking them) so a
// write port can be widened to that span without running off either end
// (spec.md §4.7, grounded on Mem::widen_prep).
func (m *Mem) WidenPrep(wideLog2 int) {
	mask := (1 << uint(wideLog2)) - 1
	delta := m.StartOffset & mask

	m.StartOffset -= delta
	m.Size += delta

	if m.Size&mask != 0 {
		m.Size |= mask
		m.Size++
	}
}

// WidenWrPort grows write port idx up to wideLog2, first calling
// WidenPrep to keep the memory's bounds aligned. The port's existing
// (narrower) data and enable lanes are repositioned to the sub-word
// selected by its constant low address bits, and every new lane outside
// that sub-word is driven disabled (spec.md §4.7, grounded on
// Mem::widen_wr_port).
func (m *Mem) WidenWrPort(idx, wideLog2 int) {
	m.WidenPrep(wideLog2)

	port := &m.WrPorts[idx]
	if port.WideLog2 > wideLog2 {
		panic("widen_wr_port: port is already wider than the requested span")
	}

	if port.WideLog2 == wideLog2 {
		return
	}

	subC := port.Addr.Extract(0, wideLog2)
	if !subC.IsFullyConst() {
		panic("widen_wr_port: low address bits are not constant")
	}

	sub := subC.AsConst().AsInt()

	pad := fourstate.NewConst(wideLog2-port.WideLog2, fourstate.S0)
	port.Addr = port.Addr.Replace(port.WideLog2, fourstate.FromConst(pad))

	newData := fourstate.FromConst(fourstate.NewConst(m.Width<<uint(wideLog2), fourstate.Sx))
	newEn := fourstate.FromConst(fourstate.NewConst(m.Width<<uint(wideLog2), fourstate.S0))

	newData = newData.Replace(m.Width*sub, port.Data)
	newEn = newEn.Replace(m.Width*sub, port.En)

	port.Data = newData
	port.En = newEn
	port.WideLog2 = wideLog2
}
