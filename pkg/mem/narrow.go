package mem

import "github.com/rtlmem/meminfer/pkg/fourstate"

// Narrow splits every wide port of the memory into its constituent
// sub-ports, each as narrow as the memory's own word width. The
// resulting port count grows by a port's span (2^wide_log2); every new
// sub-port keeps its parent's backing cell only at sub-index 0, since
// at most one port per (address, data lane) pair can own a given cell
// (spec.md §4.6, grounded on Mem::narrow).
func (m *Mem) Narrow() {
	type subOf struct {
		parent int
		sub    int
	}

	var rdMap, wrMap []subOf

	for i := range m.RdPorts {
		span := 1 << uint(m.RdPorts[i].WideLog2)
		for sub := 0; sub < span; sub++ {
			rdMap = append(rdMap, subOf{i, sub})
		}
	}

	for i := range m.WrPorts {
		span := 1 << uint(m.WrPorts[i].WideLog2)
		for sub := 0; sub < span; sub++ {
			wrMap = append(wrMap, subOf{i, sub})
		}
	}

	newRd := make([]MemRd, 0, len(rdMap))
	for _, it := range rdMap {
		orig := m.RdPorts[it.parent]
		port := orig
		if it.sub != 0 {
			port.Cell = nil
		}

		if port.WideLog2 != 0 {
			port.Data = port.Data.Extract(it.sub*m.Width, m.Width)
			port.InitValue = port.InitValue.Extract(it.sub*m.Width, m.Width, fourstate.Sx)
			port.ArstValue = port.ArstValue.Extract(it.sub*m.Width, m.Width, fourstate.Sx)
			port.SrstValue = port.SrstValue.Extract(it.sub*m.Width, m.Width, fourstate.Sx)

			for j := 0; j < port.WideLog2; j++ {
				port.Addr = port.Addr.SetBit(j, fourstate.StateFromBool(it.sub>>uint(j)&1 != 0))
			}

			port.WideLog2 = 0
		}

		port.TransparencyMask = newMask(len(wrMap))
		for j, wit := range wrMap {
			if orig.TransparencyMask.Test(uint(wit.parent)) {
				port.TransparencyMask.Set(uint(j))
			}
		}

		newRd = append(newRd, port)
	}

	newWr := make([]MemWr, 0, len(wrMap))
	for _, it := range wrMap {
		orig := m.WrPorts[it.parent]
		port := orig
		if it.sub != 0 {
			port.Cell = nil
		}

		if port.WideLog2 != 0 {
			port.Data = port.Data.Extract(it.sub*m.Width, m.Width)
			port.En = port.En.Extract(it.sub*m.Width, m.Width)

			for j := 0; j < port.WideLog2; j++ {
				port.Addr = port.Addr.SetBit(j, fourstate.StateFromBool(it.sub>>uint(j)&1 != 0))
			}

			port.WideLog2 = 0
		}

		port.PriorityMask = newMask(len(wrMap))
		for j, wit := range wrMap {
			if orig.PriorityMask.Test(uint(wit.parent)) {
				port.PriorityMask.Set(uint(j))
			}
		}

		newWr = append(newWr, port)
	}

	m.RdPorts = newRd
	m.WrPorts = newWr
}
