package mem

import "github.com/rtlmem/meminfer/pkg/fourstate"

// GetInitData flattens the initializer list into a single width*size-bit
// constant, all-x except where an initializer writes, with a later
// initializer silently overriding an earlier one on overlap (spec.md
// §4.4, §9 Open Question (i)) and silently clipping at either end.
func (m *Mem) GetInitData() fourstate.Const {
	data := fourstate.NewConst(m.Width*m.Size, fourstate.Sx)

	for _, init := range m.Inits {
		offset := (init.Addr.AsInt() - m.StartOffset) * m.Width

		for i := 0; i < init.Data.Width(); i++ {
			pos := i + offset
			if pos >= 0 && pos < len(data) {
				data[pos] = init.Data[i]
			}
		}
	}

	return data
}
