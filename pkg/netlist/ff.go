package netlist

import (
	"fmt"

	"github.com/rtlmem/meminfer/pkg/fourstate"
)

// FfInitVals tracks the initial value of every wire driven by a
// synthesized flip-flop, the same role the host's FfInitVals store plays
// (spec.md §6): something downstream (simulation, further passes) can
// query without re-deriving it from the cell that produced the wire.
type FfInitVals struct {
	values map[string]fourstate.Const
}

// NewFfInitVals constructs an empty store.
func NewFfInitVals() *FfInitVals {
	return &FfInitVals{values: map[string]fourstate.Const{}}
}

// Set records the initial value of a wire.
func (f *FfInitVals) Set(wire string, v fourstate.Const) {
	f.values[wire] = v
}

// Get returns the initial value of a wire, or an all-x constant of the
// given width if none was recorded.
func (f *FfInitVals) Get(wire string, width int) fourstate.Const {
	if v, ok := f.values[wire]; ok {
		return v
	}

	return fourstate.NewConst(width, fourstate.Sx)
}

// FfData describes a flip-flop to be synthesized: which of clock,
// enable, async reset and sync reset are present, their polarities, and
// the initial value of its output. This mirrors the shape of the
// argument the host's generic FF-emission helper takes (spec.md §1, §6)
// — collecting the fields into one struct lets ExtractRdff build up the
// flip-flop's semantics incrementally and then hand it to Emit in one
// shot, rather than open-coding several near-identical addXXDff calls.
type FfData struct {
	Width int

	HasClk bool
	SigClk fourstate.Signal
	PolClk bool

	HasEn bool
	SigEn fourstate.Signal
	PolEn bool

	HasArst bool
	SigArst fourstate.Signal
	PolArst bool
	ValArst fourstate.Const

	HasSrst    bool
	SigSrst    fourstate.Signal
	PolSrst    bool
	ValSrst    fourstate.Const
	CeOverSrst bool

	SigD    fourstate.Signal
	SigQ    fourstate.Signal
	ValInit fourstate.Const
}

// Emit materializes the described flip-flop as a single cell on the
// given module, records its initial value and returns the cell. The
// cell type name encodes exactly which of enable/arst/srst are present,
// matching the host's own family of $dff/$adff/$sdff/$dffe/... cells.
func (ff *FfData) Emit(m *Module, name string, initvals *FfInitVals) *Cell {
	typ := "$dff"

	switch {
	case ff.HasArst && ff.HasSrst:
		typ = "$fsm_ff" // both reset styles at once: no single canonical type, keep generic
	case ff.HasArst:
		typ = "$adff"
	case ff.HasSrst:
		typ = "$sdff"
	}

	if ff.HasEn {
		typ += "e"
	}

	c := m.AddCell(name, typ)
	c.SetParam(ParamClkPolarity, fourstate.Const{fourstate.StateFromBool(ff.PolClk)})
	c.SetPort(PortClk, ff.SigClk)
	c.SetPort(PortKey("D"), ff.SigD)
	c.SetPort(PortKey("Q"), ff.SigQ)

	if ff.HasEn {
		c.SetParam(ParamKey("EN_POLARITY"), fourstate.Const{fourstate.StateFromBool(ff.PolEn)})
		c.SetPort(PortEn, ff.SigEn)
	}

	if ff.HasArst {
		c.SetParam(ParamKey("ARST_POLARITY"), fourstate.Const{fourstate.StateFromBool(ff.PolArst)})
		c.SetParam(ParamKey("ARST_VALUE"), ff.ValArst)
		c.SetPort(PortArst, ff.SigArst)
	}

	if ff.HasSrst {
		c.SetParam(ParamKey("SRST_POLARITY"), fourstate.Const{fourstate.StateFromBool(ff.PolSrst)})
		c.SetParam(ParamKey("SRST_VALUE"), ff.ValSrst)
		c.SetParam(ParamKey("CE_OVER_SRST"), fourstate.Const{fourstate.StateFromBool(ff.CeOverSrst)})
		c.SetPort(PortSrst, ff.SigSrst)
	}

	if initvals != nil && len(ff.SigQ) > 0 && !ff.SigQ[0].IsConst() {
		initvals.Set(ff.SigQ[0].Wire, ff.ValInit)
	}

	return c
}

// String gives a short human-readable label for logging.
func (ff *FfData) String() string {
	return fmt.Sprintf("ff(width=%d en=%v arst=%v srst=%v)", ff.Width, ff.HasEn, ff.HasArst, ff.HasSrst)
}
