package mem

// Remove tears down every host object backing this memory (its composite
// cell or named declaration, every port cell, every init cell) and
// detaches the aggregate from the module. After Remove, the Mem must not
// be used again (spec.md §4.11).
func (m *Mem) Remove() {
	if m.Cell != nil {
		m.Module.Remove(m.Cell)
		m.Cell = nil
	}

	if m.MemDecl != nil {
		m.Module.RemoveMemory(m.MemDecl.Name)
		m.MemDecl = nil
	}

	for i := range m.RdPorts {
		port := &m.RdPorts[i]
		if port.Cell != nil {
			m.Module.Remove(port.Cell)
			port.Cell = nil
		}
	}

	for i := range m.WrPorts {
		port := &m.WrPorts[i]
		if port.Cell != nil {
			m.Module.Remove(port.Cell)
			port.Cell = nil
		}
	}

	for i := range m.Inits {
		init := &m.Inits[i]
		if init.Cell != nil {
			m.Module.Remove(init.Cell)
			init.Cell = nil
		}
	}
}

// ClearInits deletes every initializer's backing cell (if any) and
// empties the initializer list.
func (m *Mem) ClearInits() {
	for i := range m.Inits {
		if m.Inits[i].Cell != nil {
			m.Module.Remove(m.Inits[i].Cell)
		}
	}

	m.Inits = nil
}
