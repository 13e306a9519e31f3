package fourstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignalExtractAppend(t *testing.T) {
	a := NewWire("a", 4)
	b := NewWire("b", 2)

	full := a.Append(b)
	assert.Equal(t, 6, full.Width())

	lo := full.Extract(0, 4)
	assert.True(t, lo.Equals(a))

	hi := full.Extract(4, 2)
	assert.True(t, hi.Equals(b))
}

func TestSignalReplace(t *testing.T) {
	a := NewWire("a", 4)
	repl := FromConst(ConstFromUint(0b11, 2))

	out := a.Replace(1, repl)
	assert.Equal(t, 4, out.Width())
	assert.Equal(t, WireBit("a", 0), out[0])
	assert.True(t, out[1].IsConst())
	assert.True(t, out[2].IsConst())
	assert.Equal(t, WireBit("a", 3), out[3])
}

func TestSignalExtendU0(t *testing.T) {
	c := FromConst(ConstFromUint(0b101, 3))

	grown := c.ExtendU0(6, false)
	assert.Equal(t, 6, grown.Width())
	assert.Equal(t, S0, grown[5].Const)

	shrunk := c.ExtendU0(2, false)
	assert.Equal(t, 2, shrunk.Width())

	signExt := FromConst(Const{S1, S1}).ExtendU0(4, true)
	assert.Equal(t, S1, signExt[3].Const)
}

func TestSignalIsFullyConst(t *testing.T) {
	mixed := NewWire("a", 1).Append(FromConst(ConstFromUint(1, 1)))
	assert.False(t, mixed.IsFullyConst())

	allConst := FromConst(ConstFromUint(5, 3))
	assert.True(t, allConst.IsFullyConst())
	assert.Equal(t, 5, allConst.AsInt())
}

func TestConstAppendExtract(t *testing.T) {
	word := ConstFromUint(0x12, 8)
	words := word.Append(ConstFromUint(0x34, 8), ConstFromUint(0x56, 8))
	assert.Equal(t, 24, words.Width())

	mid := words.Extract(8, 8, Sx)
	assert.Equal(t, 0x34, mid.AsInt())

	past := words.Extract(20, 8, Sx)
	assert.False(t, past.IsFullyDefined())
}
