// Package asm implements a two-pass Z80 assembler: labels and EQU symbols
// are collected in pass 1, and operands and branch displacements are
// resolved and encoded against the completed symbol table in pass 2.
package asm

import (
	"fmt"
	"sort"
	"strings"
)

// Segment is a contiguous run of assembled bytes starting at Addr, produced
// by one or more ORG-delimited regions of source.
type Segment struct {
	Addr uint16
	Data []byte
}

// ListingLine pairs one source line with the bytes it assembled to, for
// human-readable listings.
type ListingLine struct {
	LineNo int
	Addr   uint16
	Bytes  []byte
	Source string
}

// Program is the result of a successful assembly.
type Program struct {
	Segments []Segment
	Labels   map[string]uint16
	Listing  []ListingLine
	// LineMap maps the start address of every assembled statement back to
	// its 1-based source line, for breakpoints and step highlighting.
	LineMap map[uint16]int
}

// Load copies every segment of the program into mem, byte by byte.
func (p *Program) Load(mem interface {
	Write(addr uint16, v uint8)
}) {
	for _, seg := range p.Segments {
		addr := seg.Addr
		for _, b := range seg.Data {
			mem.Write(addr, b)
			addr++
		}
	}
}

// Text renders the listing as one line per source statement, in
// "addr  bytes  line  source" form, where line is the 1-based source line.
func (p *Program) Text() string {
	var b strings.Builder
	for _, l := range p.Listing {
		hex := make([]string, len(l.Bytes))
		for i, by := range l.Bytes {
			hex[i] = fmt.Sprintf("%02X", by)
		}
		fmt.Fprintf(&b, "%04X  %-12s %4d  %s\n", l.Addr, strings.Join(hex, " "), l.LineNo, l.Source)
	}
	return b.String()
}

// Assembler holds the symbol table built up across the two passes of a
// single Assemble call. It is not safe for concurrent use and is not meant
// to be reused across unrelated sources.
type Assembler struct {
	labels map[string]uint16
}

// New returns a ready-to-use Assembler.
func New() *Assembler {
	return &Assembler{labels: make(map[string]uint16)}
}

type sourceLine struct {
	no  int
	raw rawLine
	src string
}

// Assemble runs both passes over source and returns the assembled program.
// The first error of either pass is returned immediately. Pass 1 tolerates
// forward label references (needed to size instructions) but already fails
// on duplicate labels, malformed directives, and any mnemonic or operand
// the encoder rejects; pass 2 also fails on labels that remain undefined
// and on relative branches out of range.
func (a *Assembler) Assemble(source string) (*Program, error) {
	a.labels = make(map[string]uint16)

	var lines []sourceLine
	for i, raw := range strings.Split(source, "\n") {
		src := strings.TrimRight(raw, "\r\n")
		for _, stmt := range splitStatements(src) {
			lines = append(lines, sourceLine{no: i + 1, raw: splitLine(stmt), src: src})
		}
	}

	if err := a.pass1(lines); err != nil {
		return nil, err
	}
	return a.pass2(lines)
}

// pass1 walks the source once, assigning an address to every label and
// EQU symbol. Instruction lengths are syntax-determined (operand count and
// form, never operand value), so pass 1 can size every line without a
// complete symbol table.
func (a *Assembler) pass1(lines []sourceLine) error {
	var pc uint16
	for _, sl := range lines {
		rl := sl.raw

		if rl.label != "" {
			key := strings.ToUpper(rl.label)
			if rl.mnemonic != "EQU" {
				if _, dup := a.labels[key]; dup {
					return &Error{Kind: ErrDuplicateLabel, Line: sl.no, Source: sl.src, Message: "label " + rl.label + " already defined"}
				}
				a.labels[key] = pc
			}
		}

		if rl.mnemonic == "" {
			continue
		}

		switch rl.mnemonic {
		case "EQU":
			if rl.label == "" || len(rl.operands) != 1 {
				return &Error{Kind: ErrSyntax, Line: sl.no, Source: sl.src, Message: "EQU needs a label and one value"}
			}
			v, _, err := a.resolve(rl.operands[0], pc)
			if err != nil {
				return err
			}
			a.labels[strings.ToUpper(rl.label)] = v
			continue
		case "ORG":
			if len(rl.operands) != 1 {
				return &Error{Kind: ErrSyntax, Line: sl.no, Source: sl.src, Message: "ORG needs one operand"}
			}
			v, _, err := a.resolve(rl.operands[0], pc)
			if err != nil {
				return err
			}
			pc = v
			continue
		case "END":
			continue
		}

		n, err := a.directiveOrInstrLength(rl, pc, 1, sl.no, sl.src)
		if err != nil {
			return err
		}
		pc += n
	}
	return nil
}

// pass2 re-walks the source with the completed symbol table, emitting
// bytes and the listing. Unresolved labels are now a hard error.
func (a *Assembler) pass2(lines []sourceLine) (*Program, error) {
	prog := &Program{Labels: a.labels, LineMap: make(map[uint16]int)}
	var pc uint16
	var cur *Segment

	startSeg := func(addr uint16) {
		prog.Segments = append(prog.Segments, Segment{Addr: addr})
		cur = &prog.Segments[len(prog.Segments)-1]
	}
	startSeg(0)

	for _, sl := range lines {
		rl := sl.raw
		if rl.mnemonic == "" {
			continue
		}

		switch rl.mnemonic {
		case "EQU":
			continue
		case "ORG":
			v, _, err := a.resolve(rl.operands[0], pc)
			if err != nil {
				return nil, err
			}
			pc = v
			if len(cur.Data) == 0 {
				cur.Addr = pc
			} else {
				startSeg(pc)
			}
			continue
		case "END":
			continue
		}

		bytes, err := a.assembleLine(rl, pc, 2, sl.no, sl.src)
		if err != nil {
			return nil, err
		}
		if len(bytes) > 0 {
			prog.Listing = append(prog.Listing, ListingLine{LineNo: sl.no, Addr: pc, Bytes: bytes, Source: sl.src})
			if _, seen := prog.LineMap[pc]; !seen {
				prog.LineMap[pc] = sl.no
			}
			cur.Data = append(cur.Data, bytes...)
		}
		pc += uint16(len(bytes))
	}

	return prog, nil
}

// directiveOrInstrLength sizes a line in pass 1 by actually encoding it
// (tolerating unresolved labels) and keeping only the byte count.
func (a *Assembler) directiveOrInstrLength(rl rawLine, pc uint16, pass int, lineNo int, src string) (uint16, error) {
	bytes, err := a.assembleLine(rl, pc, pass, lineNo, src)
	if err != nil {
		return 0, err
	}
	return uint16(len(bytes)), nil
}

// assembleLine dispatches a parsed line to directive handling or to the
// instruction encoder.
func (a *Assembler) assembleLine(rl rawLine, pc uint16, pass int, lineNo int, src string) ([]byte, error) {
	switch rl.mnemonic {
	case "DB", "DEFB":
		return a.encodeDB(rl.operands, pc, pass, lineNo, src)
	case "DW", "DEFW":
		return a.encodeDW(rl.operands, pc, pass, lineNo, src)
	case "DS", "DEFS":
		return a.encodeDS(rl.operands, pc, pass, lineNo, src)
	}
	return a.encodeInstruction(rl.mnemonic, rl.operands, pc, pass, lineNo, src)
}

func (a *Assembler) encodeDB(ops []string, pc uint16, pass int, lineNo int, src string) ([]byte, error) {
	var out []byte
	for _, op := range ops {
		if len(op) >= 2 && op[0] == '"' && op[len(op)-1] == '"' {
			out = append(out, []byte(op[1:len(op)-1])...)
			continue
		}
		n, err := a.value8(op, pc, pass, lineNo, src)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (a *Assembler) encodeDW(ops []string, pc uint16, pass int, lineNo int, src string) ([]byte, error) {
	var out []byte
	for _, op := range ops {
		n, err := a.value16(op, pc, pass, lineNo, src)
		if err != nil {
			return nil, err
		}
		out = append(out, le16(n)...)
	}
	return out, nil
}

func (a *Assembler) encodeDS(ops []string, pc uint16, pass int, lineNo int, src string) ([]byte, error) {
	if len(ops) == 0 || len(ops) > 2 {
		return nil, &Error{Kind: ErrSyntax, Line: lineNo, Source: src, Message: "DS needs a count and optional fill value"}
	}
	count, err := a.value16(ops[0], pc, pass, lineNo, src)
	if err != nil {
		return nil, err
	}
	var fill uint8
	if len(ops) == 2 {
		fill, err = a.value8(ops[1], pc, pass, lineNo, src)
		if err != nil {
			return nil, err
		}
	}
	out := make([]byte, count)
	for i := range out {
		out[i] = fill
	}
	return out, nil
}

// SortedLabels returns the label table sorted by address, handy for
// listings and verifier tooling that wants to name addresses.
func (p *Program) SortedLabels() []string {
	names := make([]string, 0, len(p.Labels))
	for name := range p.Labels {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return p.Labels[names[i]] < p.Labels[names[j]] })
	return names
}
