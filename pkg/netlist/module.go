package netlist

import (
	"fmt"

	"github.com/rtlmem/meminfer/pkg/fourstate"
)

// MemoryDecl is a named memory declaration: the "unpacked form"
// counterpart of a $mem cell (spec.md §3, §4.1). It carries only the
// shape of the memory; ports and initializers live in satellite cells
// indexed by the same name.
type MemoryDecl struct {
	Name        string
	Width       int
	StartOffset int
	Size        int
	Attributes  map[string]fourstate.Const
}

// Module is the host netlist container a Mem borrows from. It owns
// cells, wires and named memory declarations, and exposes the gate
// constructors the transformation primitives need to materialize new
// logic (spec.md §6).
type Module struct {
	name      string
	cells     map[string]*Cell
	order     []string // insertion order, for deterministic iteration
	selected  map[string]bool
	memories  map[string]*MemoryDecl
	wireWidth map[string]int
	idCounter int
}

// NewModule constructs an empty module.
func NewModule(name string) *Module {
	return &Module{
		name:      name,
		cells:     map[string]*Cell{},
		selected:  map[string]bool{},
		memories:  map[string]*MemoryDecl{},
		wireWidth: map[string]int{},
	}
}

// Name returns the module's name.
func (m *Module) Name() string {
	return m.name
}

// Cells returns every cell in the module, in insertion order.
func (m *Module) Cells() []*Cell {
	out := make([]*Cell, 0, len(m.order))
	for _, n := range m.order {
		out = append(out, m.cells[n])
	}

	return out
}

// SelectedCells returns only the cells marked selected. With nothing
// explicitly selected, every cell counts as selected (the conventional
// "nothing selected means everything selected" default).
func (m *Module) SelectedCells() []*Cell {
	if len(m.selected) == 0 {
		return m.Cells()
	}

	out := make([]*Cell, 0, len(m.selected))
	for _, n := range m.order {
		if m.selected[n] {
			out = append(out, m.cells[n])
		}
	}

	return out
}

// Select marks a cell as selected.
func (m *Module) Select(c *Cell) {
	m.selected[c.Name] = true
}

// Memories returns the named memory declarations of this module.
func (m *Module) Memories() map[string]*MemoryDecl {
	return m.memories
}

// AddMemory registers a named memory declaration.
func (m *Module) AddMemory(decl *MemoryDecl) {
	m.memories[decl.Name] = decl
}

// RemoveMemory deletes a named memory declaration.
func (m *Module) RemoveMemory(name string) {
	delete(m.memories, name)
}

// AddCell creates and registers a new cell of the given type.
func (m *Module) AddCell(name, typ string) *Cell {
	if name == "" {
		name = m.newID("cell")
	}

	c := newCell(name, typ)
	m.cells[name] = c
	m.order = append(m.order, name)

	return c
}

// Remove deletes a cell from the module.
func (m *Module) Remove(c *Cell) {
	if c == nil {
		return
	}

	delete(m.cells, c.Name)
	delete(m.selected, c.Name)

	for i, n := range m.order {
		if n == c.Name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// AddWire allocates a fresh wire of the given width and returns a signal
// referencing it. If name is empty, a unique internal name is generated.
func (m *Module) AddWire(name string, width int) fourstate.Signal {
	if name == "" {
		name = m.newID("wire")
	}

	m.wireWidth[name] = width

	return fourstate.NewWire(name, width)
}

func (m *Module) newID(prefix string) string {
	m.idCounter++
	return fmt.Sprintf("$%s$%s$%d", m.name, prefix, m.idCounter)
}

// NewAnonID allocates a fresh unique name with the given prefix, the way
// the host mints a NEW_ID for an anonymous memory or cell. Exposed so
// callers outside this package (Emit, in particular) can name an
// anonymous memory before any cell backs it.
func (m *Module) NewAnonID(prefix string) string {
	return m.newID(prefix)
}

// Eq builds an equality comparator cell and returns its 1-bit output.
func (m *Module) Eq(name string, a, b fourstate.Signal) fourstate.Signal {
	width := a.Width()
	if b.Width() > width {
		width = b.Width()
	}

	c := m.AddCell(name, "$eq")
	c.SetPort(PortKey("A"), a.ExtendU0(width, false))
	c.SetPort(PortKey("B"), b.ExtendU0(width, false))
	out := m.AddWire("", 1)
	c.SetPort(PortKey("Y"), out)

	return out
}

// And builds a bitwise AND cell and returns its output, as wide as the
// wider of its two inputs.
func (m *Module) And(name string, a, b fourstate.Signal) fourstate.Signal {
	width := a.Width()
	if b.Width() > width {
		width = b.Width()
	}

	c := m.AddCell(name, "$and")
	c.SetPort(PortKey("A"), a.ExtendU0(width, false))
	c.SetPort(PortKey("B"), b.ExtendU0(width, false))
	out := m.AddWire("", width)
	c.SetPort(PortKey("Y"), out)

	return out
}

// Not builds a bitwise NOT cell and returns its output.
func (m *Module) Not(name string, a fourstate.Signal) fourstate.Signal {
	c := m.AddCell(name, "$not")
	c.SetPort(PortKey("A"), a)
	out := m.AddWire("", a.Width())
	c.SetPort(PortKey("Y"), out)

	return out
}

// Mux builds a 2:1 multiplexer cell (sel == 0 selects a, sel == 1
// selects b) and returns its output.
func (m *Module) Mux(name string, a, b, sel fourstate.Signal) fourstate.Signal {
	width := a.Width()
	if b.Width() > width {
		width = b.Width()
	}

	c := m.AddCell(name, "$mux")
	c.SetPort(PortKey("A"), a.ExtendU0(width, false))
	c.SetPort(PortKey("B"), b.ExtendU0(width, false))
	c.SetPort(PortKey("S"), sel)
	out := m.AddWire("", width)
	c.SetPort(PortKey("Y"), out)

	return out
}

// AddMux is the statement form of Mux: it wires its output directly into
// an existing signal rather than allocating a fresh wire, matching the
// host's `addMux(name, a, b, sel, y)` convenience used when the
// destination signal already exists (e.g. a port's data lane).
func (m *Module) AddMux(name string, a, b, sel, y fourstate.Signal) {
	c := m.AddCell(name, "$mux")
	c.SetPort(PortKey("A"), a)
	c.SetPort(PortKey("B"), b)
	c.SetPort(PortKey("S"), sel)
	c.SetPort(PortKey("Y"), y)
}

// Dff builds a plain D flip-flop cell (no reset, no enable) and returns
// it. `polarity` true means the clock is active on the rising edge.
func (m *Module) Dff(name string, clk, d, q fourstate.Signal, polarity bool) *Cell {
	c := m.AddCell(name, "$dff")
	c.SetParam(ParamClkPolarity, fourstate.Const{fourstate.StateFromBool(polarity)})
	c.SetPort(PortClk, clk)
	c.SetPort(PortKey("D"), d)
	c.SetPort(PortKey("Q"), q)

	return c
}
