package fourstate

// Bit is a single position in a Signal: either a constant state, or one
// bit of a named wire.
type Bit struct {
	// Wire is the empty string for a constant bit.
	Wire  string
	Index int
	Const State
}

// ConstBit builds a constant bit.
func ConstBit(s State) Bit {
	return Bit{Const: s}
}

// WireBit builds a reference to one bit of a wire.
func WireBit(wire string, index int) Bit {
	return Bit{Wire: wire, Index: index}
}

// IsConst reports whether this bit is a constant rather than a wire
// reference.
func (b Bit) IsConst() bool {
	return b.Wire == ""
}

// Equals compares two bits for structural identity (same wire/index, or
// the same constant state).
func (b Bit) Equals(o Bit) bool {
	if b.IsConst() != o.IsConst() {
		return false
	}

	if b.IsConst() {
		return b.Const == o.Const
	}

	return b.Wire == o.Wire && b.Index == o.Index
}

// Signal is an ordered bit-vector, LSB first, whose bits may be
// constants or wire references. This is the RTL "SigSpec" analogue used
// throughout the memory model for clocks, addresses, data and enables.
type Signal []Bit

// FromConst lifts a Const into a Signal of constant bits.
func FromConst(c Const) Signal {
	s := make(Signal, len(c))
	for i, v := range c {
		s[i] = ConstBit(v)
	}

	return s
}

// NewWire builds a Signal referencing consecutive bits of a wire.
func NewWire(name string, width int) Signal {
	s := make(Signal, width)
	for i := 0; i < width; i++ {
		s[i] = WireBit(name, i)
	}

	return s
}

// Width returns the number of bits in the signal.
func (s Signal) Width() int {
	return len(s)
}

// Extract returns the `length`-bit slice starting at `offset`.
func (s Signal) Extract(offset, length int) Signal {
	out := make(Signal, length)
	copy(out, s[offset:offset+length])

	return out
}

// Append concatenates additional signals after s, LSB-first.
func (s Signal) Append(others ...Signal) Signal {
	out := make(Signal, len(s))
	copy(out, s)

	for _, o := range others {
		out = append(out, o...)
	}

	return out
}

// Replace returns a copy of s with the bits starting at `offset`
// overwritten by `with`. Mirrors the host SigSpec::replace operation;
// since Signal is a value type here, callers reassign the result rather
// than relying on in-place mutation (e.g. `port.Data =
// port.Data.Replace(...)`).
func (s Signal) Replace(offset int, with Signal) Signal {
	out := make(Signal, len(s))
	copy(out, s)
	copy(out[offset:offset+len(with)], with)

	return out
}

// SetBit returns a copy of s with bit i set to the given constant.
func (s Signal) SetBit(i int, v State) Signal {
	return s.Replace(i, Signal{ConstBit(v)})
}

// IsFullyConst reports whether every bit of s is a constant (no wire
// references at all).
func (s Signal) IsFullyConst() bool {
	for _, b := range s {
		if !b.IsConst() {
			return false
		}
	}

	return true
}

// AsConst converts a fully-constant signal to a Const. Panics if any bit
// still references a wire.
func (s Signal) AsConst() Const {
	c := make(Const, len(s))
	for i, b := range s {
		if !b.IsConst() {
			panic("AsConst: signal contains a non-constant bit")
		}

		c[i] = b.Const
	}

	return c
}

// AsInt interprets a fully-constant signal as an unsigned integer.
func (s Signal) AsInt() int {
	return s.AsConst().AsInt()
}

// AsBool interprets a single-bit fully-constant signal as a boolean.
func (s Signal) AsBool() bool {
	return s.AsConst().AsBool()
}

// Equals performs a bit-exact, position-exact comparison of two signals.
func (s Signal) Equals(o Signal) bool {
	if len(s) != len(o) {
		return false
	}

	for i := range s {
		if !s[i].Equals(o[i]) {
			return false
		}
	}

	return true
}

// IsAllConst reports whether every bit of s equals the given state (e.g.
// checking a reset signal is tied to S0).
func (s Signal) IsAllConst(v State) bool {
	for _, b := range s {
		if !b.IsConst() || b.Const != v {
			return false
		}
	}

	return true
}

// ExtendU0 resizes s to `width` bits. When growing, new high bits are
// S0 unless `signed` is set, in which case the sign bit (the current
// MSB) is replicated. When shrinking, s is truncated. Named after the
// host's `extend_u0`.
func (s Signal) ExtendU0(width int, signed bool) Signal {
	if width <= len(s) {
		return s.Extract(0, width)
	}

	out := make(Signal, width)
	copy(out, s)

	fill := ConstBit(S0)
	if signed && len(s) > 0 {
		fill = s[len(s)-1]
	}

	for i := len(s); i < width; i++ {
		out[i] = fill
	}

	return out
}
