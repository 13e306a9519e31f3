package netlist

import (
	"testing"

	"github.com/rtlmem/meminfer/pkg/fourstate"
	"github.com/stretchr/testify/assert"
)

func TestModuleAddRemoveCell(t *testing.T) {
	m := NewModule("top")
	c := m.AddCell("", CellMemRd)
	assert.Len(t, m.Cells(), 1)

	m.Remove(c)
	assert.Len(t, m.Cells(), 0)
}

func TestModuleGateConstructors(t *testing.T) {
	m := NewModule("top")
	a := m.AddWire("a", 4)
	b := m.AddWire("b", 4)

	eq := m.Eq("", a, b)
	assert.Equal(t, 1, eq.Width())

	and := m.And("", a, b)
	assert.Equal(t, 4, and.Width())

	notA := m.Not("", a)
	assert.Equal(t, 4, notA.Width())

	sel := m.AddWire("sel", 1)
	mux := m.Mux("", a, b, sel)
	assert.Equal(t, 4, mux.Width())

	// four gates plus two wire-declaring cells? wires don't create cells.
	assert.Len(t, m.Cells(), 4)
}

func TestModuleDffRecordsInitVal(t *testing.T) {
	m := NewModule("top")
	initvals := NewFfInitVals()
	d := m.AddWire("d", 2)
	q := m.AddWire("q", 2)

	ff := &FfData{
		Width:   2,
		HasClk:  true,
		SigClk:  m.AddWire("clk", 1),
		PolClk:  true,
		SigD:    d,
		SigQ:    q,
		ValInit: fourstate.ConstFromUint(0b10, 2),
	}
	c := ff.Emit(m, "myff", initvals)
	assert.Equal(t, "$dff", c.Type)
	assert.Equal(t, 0b10, initvals.Get("q", 2).AsInt())
}
