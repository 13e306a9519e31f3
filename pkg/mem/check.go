package mem

import "github.com/rtlmem/meminfer/pkg/fourstate"

const (
	stateS0 = fourstate.S0
	stateS1 = fourstate.S1
)

// Check enforces the structural invariants of spec.md §3. Every
// violation is a programming fault: internal corruption or a bug in a
// caller, never a recoverable condition, so it panics rather than
// returning an error (spec.md §7).
func (m *Mem) Check() {
	maxWideLog2 := 0

	for ri := range m.RdPorts {
		port := &m.RdPorts[ri]
		if port.Removed {
			continue
		}

		mustWidth(port.Clk, 1, "read port clk")
		mustWidth(port.En, 1, "read port en")
		mustWidth(port.Arst, 1, "read port arst")
		mustWidth(port.Srst, 1, "read port srst")

		dataWidth := m.Width << port.WideLog2
		mustWidth(port.Data, dataWidth, "read port data")

		if port.InitValue.Width() != dataWidth {
			panic("read port init_value width mismatch")
		}

		if port.ArstValue.Width() != dataWidth {
			panic("read port arst_value width mismatch")
		}

		if port.SrstValue.Width() != dataWidth {
			panic("read port srst_value width mismatch")
		}

		if int(port.TransparencyMask.Len()) != len(m.WrPorts) {
			panic("read port transparency_mask length mismatch")
		}

		if !port.ClkEnable {
			if !port.En.IsAllConst(stateS1) {
				panic("unclocked read port must have en tied to 1")
			}

			if !port.Arst.IsAllConst(stateS0) {
				panic("unclocked read port must have arst tied to 0")
			}

			if !port.Srst.IsAllConst(stateS0) {
				panic("unclocked read port must have srst tied to 0")
			}
		}

		for j := 0; j < port.WideLog2; j++ {
			if !port.Addr[j].IsConst() || port.Addr[j].Const != stateS0 {
				panic("wide read port's low address bits must be constant 0")
			}
		}

		for wi := range m.WrPorts {
			wport := &m.WrPorts[wi]
			if port.TransparencyMask.Test(uint(wi)) && !wport.Removed {
				if !port.ClkEnable || !wport.ClkEnable {
					panic("transparent read/write pair must both be clocked")
				}

				if !port.Clk.Equals(wport.Clk) {
					panic("transparent read/write pair must share a clock")
				}

				if port.ClkPolarity != wport.ClkPolarity {
					panic("transparent read/write pair must share clock polarity")
				}
			}
		}

		if port.WideLog2 > maxWideLog2 {
			maxWideLog2 = port.WideLog2
		}
	}

	for i := range m.WrPorts {
		port := &m.WrPorts[i]
		if port.Removed {
			continue
		}

		mustWidth(port.Clk, 1, "write port clk")

		dataWidth := m.Width << port.WideLog2
		mustWidth(port.En, dataWidth, "write port en")
		mustWidth(port.Data, dataWidth, "write port data")

		for j := 0; j < port.WideLog2; j++ {
			if !port.Addr[j].IsConst() || port.Addr[j].Const != stateS0 {
				panic("wide write port's low address bits must be constant 0")
			}
		}

		if port.WideLog2 > maxWideLog2 {
			maxWideLog2 = port.WideLog2
		}

		if int(port.PriorityMask.Len()) != len(m.WrPorts) {
			panic("write port priority_mask length mismatch")
		}

		for j := range m.WrPorts {
			wport := &m.WrPorts[j]
			if port.PriorityMask.Test(uint(j)) && !wport.Removed {
				if j >= i {
					panic("priority_mask may only point to a lower-index write port")
				}

				if port.ClkEnable != wport.ClkEnable {
					panic("prioritised write pair must agree on clk_enable")
				}

				if port.ClkEnable {
					if !port.Clk.Equals(wport.Clk) {
						panic("prioritised write pair must share a clock")
					}

					if port.ClkPolarity != wport.ClkPolarity {
						panic("prioritised write pair must share clock polarity")
					}
				}
			}
		}
	}

	mask := (1 << maxWideLog2) - 1
	if m.StartOffset&mask != 0 {
		panic("start_offset not aligned to widest port")
	}

	if m.Size&mask != 0 {
		panic("size not aligned to widest port")
	}
}

func mustWidth(s interface{ Width() int }, want int, what string) {
	if s.Width() != want {
		panic(what + ": width mismatch")
	}
}
