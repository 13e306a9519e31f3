package memio

import (
	"bytes"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/rtlmem/meminfer/pkg/mem"
	"github.com/rtlmem/meminfer/pkg/netlist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTripsPackedMemory(t *testing.T) {
	module := netlist.NewModule("top")
	m := mem.NewMem(module, "mymem", 8, 0, 16)
	m.Packed = true
	m.Emit()

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, module))

	loaded, err := Load(&buf)
	require.NoError(t, err)

	assert.Equal(t, "top", loaded.Name())
	assert.Len(t, loaded.Cells(), 1)
	assert.Equal(t, netlist.CellMem, loaded.Cells()[0].Type)
	assert.Equal(t, 8, loaded.Cells()[0].Param(netlist.ParamWidth).AsInt())
	assert.Equal(t, 16, loaded.Cells()[0].Param(netlist.ParamSize).AsInt())

	lifted := mem.LiftPacked(loaded.Cells()[0])
	assert.Equal(t, 8, lifted.Width)
	assert.Equal(t, 16, lifted.Size)
}

func TestSaveLoadRoundTripsUnpackedMemoryWithPorts(t *testing.T) {
	module := netlist.NewModule("top")
	m := mem.NewMem(module, "rf", 8, 0, 16)

	clk := module.AddWire("clk", 1)

	m.WrPorts = []mem.MemWr{{
		ClkEnable:    true,
		ClkPolarity:  true,
		Clk:          clk,
		En:           module.AddWire("wen", 8),
		Addr:         module.AddWire("waddr", 4),
		Data:         module.AddWire("wdata", 8),
		PriorityMask: bitset.New(1),
	}}

	m.Emit()

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, module))

	loaded, err := Load(&buf)
	require.NoError(t, err)

	assert.Len(t, loaded.Memories(), 1)
	decl := loaded.Memories()["rf"]
	require.NotNil(t, decl)
	assert.Equal(t, 8, decl.Width)
	assert.Equal(t, 16, decl.Size)

	var wrCell *netlist.Cell
	for _, c := range loaded.Cells() {
		if c.Type == netlist.CellMemWr {
			wrCell = c
		}
	}
	require.NotNil(t, wrCell)
	assert.Equal(t, 4, wrCell.Port(netlist.PortAddr).Width())
	assert.Equal(t, "clk", wrCell.Port(netlist.PortClk)[0].Wire)
}
