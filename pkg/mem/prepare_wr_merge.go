package mem

// PrepareWrMerge establishes the preconditions for later folding write
// port idx2 into idx1 (idx1 < idx2): every read port transparent with
// only one of the pair has that transparency emulated away, any
// priority idx2 held over a port before idx1 is extended to idx1, any
// priority idx2 held over a port between idx1 and idx2 is emulated, and
// any priority a later port held over idx2 is extended to idx1 — so that
// once the merge itself happens (deleting idx2 and rewiring its
// enable/data into idx1), nothing downstream notices idx2 is gone
// (spec.md §4.10, grounded on Mem::prepare_wr_merge).
func (m *Mem) PrepareWrMerge(idx1, idx2 int) {
	if idx1 >= idx2 {
		panic("prepare_wr_merge: idx1 must be less than idx2")
	}

	for i := range m.RdPorts {
		rport := &m.RdPorts[i]
		if rport.Removed {
			continue
		}

		t1 := rport.TransparencyMask.Test(uint(idx1))
		t2 := rport.TransparencyMask.Test(uint(idx2))

		if t1 && t2 {
			continue
		}

		if t1 {
			m.EmulateTransparency(idx1, i)
		}

		if t2 {
			m.EmulateTransparency(idx2, i)
		}
	}

	port1 := &m.WrPorts[idx1]
	port2 := &m.WrPorts[idx2]

	for i := 0; i < idx1; i++ {
		if port2.PriorityMask.Test(uint(i)) {
			port1.PriorityMask.Set(uint(i))
		}
	}

	for i := idx1 + 1; i < idx2; i++ {
		if port2.PriorityMask.Test(uint(i)) {
			m.EmulatePriority(i, idx2)
		}
	}

	for i := idx2 + 1; i < len(m.WrPorts); i++ {
		oport := &m.WrPorts[i]
		if oport.PriorityMask.Test(uint(idx2)) {
			oport.PriorityMask.Set(uint(idx1))
		}
	}
}
