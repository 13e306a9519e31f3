// Package memio is a JSON wire format for a netlist plus its memory
// cells, used by cmd/meminfer to load and save test cases without
// requiring a full synthesis front end (spec.md §1's "external
// collaborators" are assumed to exist; this is the thin stand-in that
// lets the CLI exercise pkg/mem end to end). It is not part of the
// memory-inference core itself.
package memio

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rtlmem/meminfer/pkg/fourstate"
	"github.com/rtlmem/meminfer/pkg/netlist"
	"github.com/segmentio/encoding/json"
)

// Document is the on-disk shape of a module snapshot: named wires (so a
// signal's bit count is known without re-deriving it from every cell
// that touches the wire), the memory declarations belonging to the
// unpacked encoding, and every cell (gate or memory primitive) in the
// module.
type Document struct {
	Module   string          `json:"module"`
	Wires    map[string]int  `json:"wires"`
	Memories []MemoryDeclDoc `json:"memories,omitempty"`
	Cells    []CellDoc       `json:"cells"`
}

// MemoryDeclDoc is the unpacked-form named memory declaration.
type MemoryDeclDoc struct {
	Name        string            `json:"name"`
	Width       int               `json:"width"`
	StartOffset int               `json:"start_offset"`
	Size        int               `json:"size"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// CellDoc is one cell instance: its type, attributes, parameters (both
// bit-vector and string-valued) and port connections.
type CellDoc struct {
	Name         string              `json:"name"`
	Type         string              `json:"type"`
	Attributes   map[string]string   `json:"attributes,omitempty"`
	Parameters   map[string]string   `json:"parameters,omitempty"`
	StringParams map[string]string   `json:"string_parameters,omitempty"`
	Ports        map[string][]string `json:"ports,omitempty"`
}

// Load parses a Document from r and builds the netlist.Module it
// describes.
func Load(r io.Reader) (*netlist.Module, error) {
	var doc Document

	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("memio: decoding document: %w", err)
	}

	module := netlist.NewModule(doc.Module)

	// Register every named wire up front so later signal references
	// resolve to a consistent width regardless of cell iteration order.
	wireNames := make([]string, 0, len(doc.Wires))
	for name := range doc.Wires {
		wireNames = append(wireNames, name)
	}
	sort.Strings(wireNames)

	for _, name := range wireNames {
		module.AddWire(name, doc.Wires[name])
	}

	for _, md := range doc.Memories {
		attrs, err := decodeConstMap(md.Attributes)
		if err != nil {
			return nil, fmt.Errorf("memio: memory %q attributes: %w", md.Name, err)
		}

		module.AddMemory(&netlist.MemoryDecl{
			Name:        md.Name,
			Width:       md.Width,
			StartOffset: md.StartOffset,
			Size:        md.Size,
			Attributes:  attrs,
		})
	}

	for _, cd := range doc.Cells {
		cell := module.AddCell(cd.Name, cd.Type)

		attrs, err := decodeConstMap(cd.Attributes)
		if err != nil {
			return nil, fmt.Errorf("memio: cell %q attributes: %w", cd.Name, err)
		}
		cell.Attributes = attrs

		for k, v := range cd.Parameters {
			c, err := decodeConst(v)
			if err != nil {
				return nil, fmt.Errorf("memio: cell %q parameter %q: %w", cd.Name, k, err)
			}
			cell.SetParam(netlist.ParamKey(k), c)
		}

		for k, v := range cd.StringParams {
			cell.SetParamString(netlist.ParamKey(k), v)
		}

		for k, toks := range cd.Ports {
			sig, err := decodeSignal(toks)
			if err != nil {
				return nil, fmt.Errorf("memio: cell %q port %q: %w", cd.Name, k, err)
			}
			cell.SetPort(netlist.PortKey(k), sig)
		}
	}

	return module, nil
}

// Save renders module as a Document and writes it to w.
func Save(w io.Writer, module *netlist.Module) error {
	doc := Document{
		Module: module.Name(),
		Wires:  collectWireWidths(module),
	}

	memNames := make([]string, 0, len(module.Memories()))
	for name := range module.Memories() {
		memNames = append(memNames, name)
	}
	sort.Strings(memNames)

	for _, name := range memNames {
		md := module.Memories()[name]
		doc.Memories = append(doc.Memories, MemoryDeclDoc{
			Name:        md.Name,
			Width:       md.Width,
			StartOffset: md.StartOffset,
			Size:        md.Size,
			Attributes:  encodeConstMap(md.Attributes),
		})
	}

	for _, cell := range module.Cells() {
		cd := CellDoc{
			Name:         cell.Name,
			Type:         cell.Type,
			Attributes:   encodeConstMap(cell.Attributes),
			Parameters:   map[string]string{},
			StringParams: map[string]string{},
			Ports:        map[string][]string{},
		}

		for k, v := range cell.Parameters {
			cd.Parameters[string(k)] = encodeConst(v)
		}

		for k, v := range cell.StringParams {
			cd.StringParams[string(k)] = v
		}

		for k, v := range cell.Ports {
			cd.Ports[string(k)] = encodeSignal(v)
		}

		doc.Cells = append(doc.Cells, cd)
	}

	sort.Slice(doc.Cells, func(i, j int) bool { return doc.Cells[i].Name < doc.Cells[j].Name })

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("memio: encoding document: %w", err)
	}

	return nil
}

// collectWireWidths scans every cell's ports for named wire bits,
// recording the widest index seen per wire. Module keeps its own
// wire-width table internally but doesn't expose it; reconstructing it
// from port usage is sufficient for a
// round trip since an unreferenced wire carries no information worth
// persisting.
func collectWireWidths(module *netlist.Module) map[string]int {
	widths := map[string]int{}

	for _, cell := range module.Cells() {
		for _, sig := range cell.Ports {
			for _, bit := range sig {
				if bit.IsConst() {
					continue
				}

				if bit.Index+1 > widths[bit.Wire] {
					widths[bit.Wire] = bit.Index + 1
				}
			}
		}
	}

	return widths
}

// encodeSignal renders a Signal as one token per bit: a bare state
// character for a constant bit, or "wire#index" for a wire reference.
func encodeSignal(sig fourstate.Signal) []string {
	out := make([]string, len(sig))
	for i, bit := range sig {
		if bit.IsConst() {
			out[i] = bit.Const.String()
		} else {
			out[i] = fmt.Sprintf("%s#%d", bit.Wire, bit.Index)
		}
	}

	return out
}

func decodeSignal(toks []string) (fourstate.Signal, error) {
	sig := make(fourstate.Signal, len(toks))

	for i, tok := range toks {
		if hash := strings.LastIndexByte(tok, '#'); hash >= 0 {
			var idx int
			if _, err := fmt.Sscanf(tok[hash+1:], "%d", &idx); err != nil {
				return nil, fmt.Errorf("bit %d: malformed wire reference %q: %w", i, tok, err)
			}

			sig[i] = fourstate.WireBit(tok[:hash], idx)

			continue
		}

		st, err := decodeState(tok)
		if err != nil {
			return nil, fmt.Errorf("bit %d: %w", i, err)
		}

		sig[i] = fourstate.ConstBit(st)
	}

	return sig, nil
}

// encodeConst renders a Const MSB-first, the conventional RTLIL dump
// order (Const.String() already does this).
func encodeConst(c fourstate.Const) string {
	return c.String()
}

func decodeConst(s string) (fourstate.Const, error) {
	c := make(fourstate.Const, len(s))
	for i, r := range s {
		st, err := decodeState(string(r))
		if err != nil {
			return nil, err
		}

		// s is MSB-first; Const is LSB-first.
		c[len(s)-1-i] = st
	}

	return c, nil
}

func decodeState(s string) (fourstate.State, error) {
	switch s {
	case "0":
		return fourstate.S0, nil
	case "1":
		return fourstate.S1, nil
	case "x":
		return fourstate.Sx, nil
	case "z":
		return fourstate.Sz, nil
	default:
		return 0, fmt.Errorf("invalid 4-valued state %q", s)
	}
}

func encodeConstMap(m map[string]fourstate.Const) map[string]string {
	if len(m) == 0 {
		return nil
	}

	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = encodeConst(v)
	}

	return out
}

func decodeConstMap(m map[string]string) (map[string]fourstate.Const, error) {
	out := make(map[string]fourstate.Const, len(m))

	for k, v := range m {
		c, err := decodeConst(v)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", k, err)
		}

		out[k] = c
	}

	return out, nil
}
