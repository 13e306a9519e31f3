package netlist

import "github.com/rtlmem/meminfer/pkg/fourstate"

// Cell is one primitive instance in a module: attributes (free-form
// metadata), parameters (its static configuration) and ports (its
// wiring). The four memory-related cell types ($mem, $memrd, $memwr,
// $meminit) and the handful of gate cells built by Module's gate
// constructors (Eq/And/Not/Mux/Dff) are all represented uniformly this
// way, matching the host's own cell model (spec.md §6).
type Cell struct {
	Name       string
	Type       string
	Attributes map[string]fourstate.Const
	Parameters map[ParamKey]fourstate.Const
	Ports      map[PortKey]fourstate.Signal

	// StringParams holds the handful of parameters that are inherently
	// identifiers (MEMID) rather than bit vectors. Kept as plain Go
	// strings instead of ASCII-packed Consts: idiomatic Go has no need
	// to mirror the host format's single Const representation for both
	// numeric and textual parameters.
	StringParams map[ParamKey]string
}

func newCell(name, typ string) *Cell {
	return &Cell{
		Name:         name,
		Type:         typ,
		Attributes:   map[string]fourstate.Const{},
		Parameters:   map[ParamKey]fourstate.Const{},
		Ports:        map[PortKey]fourstate.Signal{},
		StringParams: map[ParamKey]string{},
	}
}

// Param fetches a parameter, returning an empty Const if unset.
func (c *Cell) Param(k ParamKey) fourstate.Const {
	return c.Parameters[k]
}

// ParamString fetches a string-valued parameter such as MEMID.
func (c *Cell) ParamString(k ParamKey) string {
	return c.StringParams[k]
}

// Port fetches a port's signal, returning an empty Signal if unset.
func (c *Cell) Port(k PortKey) fourstate.Signal {
	return c.Ports[k]
}

// SetParam sets a cell parameter.
func (c *Cell) SetParam(k ParamKey, v fourstate.Const) {
	c.Parameters[k] = v
}

// SetParamString sets a string-valued parameter.
func (c *Cell) SetParamString(k ParamKey, v string) {
	c.StringParams[k] = v
}

// SetPort connects a cell port.
func (c *Cell) SetPort(k PortKey, v fourstate.Signal) {
	c.Ports[k] = v
}
