// Package disasm renders Z80 machine code back to assembly text using the
// register/condition tables in pkg/inst, in a syntax the assembler in
// pkg/asm reads back: anything the assembler emits disassembles back to an
// equivalent mnemonic line.
package disasm

import (
	"fmt"

	"github.com/kaboofactory/z80sim/pkg/inst"
)

// ByteReader is the minimal read surface Disassemble needs. *mem.Memory
// satisfies it directly; Bytes wraps a plain slice for disassembling a
// standalone buffer (e.g. assembler output) that isn't loaded into memory.
type ByteReader interface {
	Read(addr uint16) uint8
}

// Bytes adapts a byte slice to ByteReader, treating index 0 as address
// base. Reads past the end return 0, matching an uninitialized ROM cell.
type Bytes struct {
	Base uint16
	Data []byte
}

func (b Bytes) Read(addr uint16) uint8 {
	i := int(addr - b.Base)
	if i < 0 || i >= len(b.Data) {
		return 0
	}
	return b.Data[i]
}

// Line is one disassembled instruction.
type Line struct {
	Addr uint16
	Raw  []byte
	Text string
	// BranchTarget is the resolved absolute address for the JP nn, JR,
	// CALL, RST and DJNZ forms (conditional or not); HasBranchTarget is
	// false for every other instruction.
	BranchTarget   uint16
	HasBranchTarget bool
}

// Disassemble decodes count instructions starting at addr.
func Disassemble(r ByteReader, addr uint16, count int) []Line {
	lines := make([]Line, 0, count)
	for i := 0; i < count; i++ {
		line := disasmOne(r, addr)
		lines = append(lines, line)
		addr += uint16(len(line.Raw))
	}
	return lines
}

type cursor struct {
	r      ByteReader
	addr   uint16
	cursor uint16
	raw    []byte
}

func newCursor(r ByteReader, addr uint16) *cursor {
	return &cursor{r: r, addr: addr, cursor: addr}
}

func (c *cursor) fetch8() uint8 {
	v := c.r.Read(c.cursor)
	c.raw = append(c.raw, v)
	c.cursor++
	return v
}

func (c *cursor) fetch16() uint16 {
	lo := c.fetch8()
	hi := c.fetch8()
	return uint16(hi)<<8 | uint16(lo)
}

func (c *cursor) line(text string) Line {
	return Line{Addr: c.addr, Raw: c.raw, Text: text}
}

func (c *cursor) branchLine(text string, target uint16) Line {
	l := c.line(text)
	l.BranchTarget = target
	l.HasBranchTarget = true
	return l
}

func disasmOne(r ByteReader, addr uint16) Line {
	c := newCursor(r, addr)
	op := c.fetch8()

	ix := 0
	for op == 0xDD || op == 0xFD {
		if op == 0xDD {
			ix = 1
		} else {
			ix = 2
		}
		op = c.fetch8()
	}

	if op == 0xCB {
		if ix != 0 {
			return disasmDDFDCB(c, ix)
		}
		return disasmCB(c, c.fetch8())
	}
	if op == 0xED {
		return disasmED(c, c.fetch8())
	}
	return disasmBase(c, op, ix)
}

func disasmCB(c *cursor, op uint8) Line {
	xx := op >> 6
	y := (op >> 3) & 0x07
	z := op & 0x07
	operand := inst.Reg8Name(z, 0, 0)
	switch xx {
	case 0:
		return c.line(fmt.Sprintf("%s %s", inst.RotNames[y], operand))
	case 1:
		return c.line(fmt.Sprintf("BIT %d,%s", y, operand))
	case 2:
		return c.line(fmt.Sprintf("RES %d,%s", y, operand))
	default:
		return c.line(fmt.Sprintf("SET %d,%s", y, operand))
	}
}

func disasmDDFDCB(c *cursor, ix int) Line {
	disp := int8(c.fetch8())
	op := c.fetch8()
	xx := op >> 6
	y := (op >> 3) & 0x07
	operand := fmt.Sprintf("(%s%+d)", inst.IndexName(ix), disp)
	switch xx {
	case 0:
		return c.line(fmt.Sprintf("%s %s", inst.RotNames[y], operand))
	case 1:
		return c.line(fmt.Sprintf("BIT %d,%s", y, operand))
	case 2:
		return c.line(fmt.Sprintf("RES %d,%s", y, operand))
	default:
		return c.line(fmt.Sprintf("SET %d,%s", y, operand))
	}
}

func disasmED(c *cursor, op uint8) Line {
	xx := op >> 6
	y := (op >> 3) & 0x07
	z := op & 0x07
	p := y >> 1
	q := y & 1

	if xx == 2 && y >= 4 && z <= 3 {
		names := [4][4]string{
			{"LDI", "CPI", "INI", "OUTI"},
			{"LDD", "CPD", "IND", "OUTD"},
			{"LDIR", "CPIR", "INIR", "OTIR"},
			{"LDDR", "CPDR", "INDR", "OTDR"},
		}
		return c.line(names[y-4][z])
	}
	if xx != 1 {
		// Unrecognized ED form: render the raw bytes so a listing never dies
		// partway and re-assembling reproduces the image. The CPU runs these
		// as the chip's 8 T-state NOP.
		return c.line(fmt.Sprintf("DB 0EDh,%s", inst.Hex8(op)))
	}

	switch z {
	case 0:
		if y == 6 {
			return c.line("IN (C)")
		}
		return c.line(fmt.Sprintf("IN %s,(C)", inst.Reg8Names[y]))
	case 1:
		if y == 6 {
			return c.line("OUT (C),0")
		}
		return c.line(fmt.Sprintf("OUT (C),%s", inst.Reg8Names[y]))
	case 2:
		if q == 0 {
			return c.line(fmt.Sprintf("SBC HL,%s", inst.Reg16Names[p]))
		}
		return c.line(fmt.Sprintf("ADC HL,%s", inst.Reg16Names[p]))
	case 3:
		nn := c.fetch16()
		if q == 0 {
			return c.line(fmt.Sprintf("LD (%s),%s", inst.Hex16(nn), inst.Reg16Names[p]))
		}
		return c.line(fmt.Sprintf("LD %s,(%s)", inst.Reg16Names[p], inst.Hex16(nn)))
	case 4:
		return c.line("NEG")
	case 5:
		if y == 1 {
			return c.line("RETI")
		}
		return c.line("RETN")
	case 6:
		imTable := [8]uint8{0, 0, 1, 2, 0, 0, 1, 2}
		return c.line(fmt.Sprintf("IM %d", imTable[y]))
	default:
		if y >= 6 {
			return c.line(fmt.Sprintf("DB 0EDh,%s", inst.Hex8(op)))
		}
		names := [6]string{"LD I,A", "LD R,A", "LD A,I", "LD A,R", "RRD", "RLD"}
		return c.line(names[y])
	}
}

func disasmBase(c *cursor, op uint8, ix int) Line {
	xx := op >> 6
	y := (op >> 3) & 0x07
	z := op & 0x07
	p := y >> 1
	q := y & 1

	switch xx {
	case 0:
		return disasmBaseX0(c, y, z, p, q, ix)
	case 1:
		if y == 6 && z == 6 {
			return c.line("HALT")
		}
		dst := regOperand(c, y, ix)
		src := regOperand(c, z, ix)
		return c.line(fmt.Sprintf("LD %s,%s", dst, src))
	case 2:
		return c.line(inst.AluOperand(y, regOperand(c, z, ix)))
	default:
		return disasmBaseX3(c, op, y, z, p, q, ix)
	}
}

// regOperand fetches a displacement byte only when idx selects the memory
// operand under an index prefix; every other slot renders the r[idx] name.
func regOperand(c *cursor, idx uint8, ix int) string {
	if idx == 6 && ix != 0 {
		disp := int8(c.fetch8())
		return fmt.Sprintf("(%s%+d)", inst.IndexName(ix), disp)
	}
	return inst.Reg8Names[idx]
}

func disasmBaseX0(c *cursor, y, z, p, q uint8, ix int) Line {
	switch z {
	case 0:
		switch {
		case y == 0:
			return c.line("NOP")
		case y == 1:
			return c.line("EX AF,AF'")
		case y == 2:
			d := int8(c.fetch8())
			target := uint16(int32(c.cursor) + int32(d))
			return c.branchLine(fmt.Sprintf("DJNZ %s", inst.Hex16(target)), target)
		case y == 3:
			d := int8(c.fetch8())
			target := uint16(int32(c.cursor) + int32(d))
			return c.branchLine(fmt.Sprintf("JR %s", inst.Hex16(target)), target)
		default:
			d := int8(c.fetch8())
			target := uint16(int32(c.cursor) + int32(d))
			return c.branchLine(fmt.Sprintf("JR %s,%s", inst.CondNames[y-4], inst.Hex16(target)), target)
		}
	case 1:
		if q == 0 {
			nn := c.fetch16()
			return c.line(fmt.Sprintf("LD %s,%s", inst.Reg16Name(p, ix), inst.Hex16(nn)))
		}
		return c.line(fmt.Sprintf("ADD %s,%s", indexOrHL(ix), inst.Reg16Name(p, ix)))
	case 2:
		switch {
		case q == 0 && p == 0:
			return c.line("LD (BC),A")
		case q == 0 && p == 1:
			return c.line("LD (DE),A")
		case q == 0 && p == 2:
			nn := c.fetch16()
			return c.line(fmt.Sprintf("LD (%s),%s", inst.Hex16(nn), indexOrHL(ix)))
		case q == 0:
			nn := c.fetch16()
			return c.line(fmt.Sprintf("LD (%s),A", inst.Hex16(nn)))
		case q == 1 && p == 0:
			return c.line("LD A,(BC)")
		case q == 1 && p == 1:
			return c.line("LD A,(DE)")
		case q == 1 && p == 2:
			nn := c.fetch16()
			return c.line(fmt.Sprintf("LD %s,(%s)", indexOrHL(ix), inst.Hex16(nn)))
		default:
			nn := c.fetch16()
			return c.line(fmt.Sprintf("LD A,(%s)", inst.Hex16(nn)))
		}
	case 3:
		if q == 0 {
			return c.line(fmt.Sprintf("INC %s", inst.Reg16Name(p, ix)))
		}
		return c.line(fmt.Sprintf("DEC %s", inst.Reg16Name(p, ix)))
	case 4:
		return c.line(fmt.Sprintf("INC %s", regOperand(c, y, ix)))
	case 5:
		return c.line(fmt.Sprintf("DEC %s", regOperand(c, y, ix)))
	case 6:
		dst := regOperand(c, y, ix)
		n := c.fetch8()
		return c.line(fmt.Sprintf("LD %s,%s", dst, inst.Hex8(n)))
	default:
		names := [8]string{"RLCA", "RRCA", "RLA", "RRA", "DAA", "CPL", "SCF", "CCF"}
		return c.line(names[y])
	}
}

func indexOrHL(ix int) string {
	if ix != 0 {
		return inst.IndexName(ix)
	}
	return "HL"
}

func disasmBaseX3(c *cursor, op uint8, y, z, p, q uint8, ix int) Line {
	switch z {
	case 0:
		return c.line(fmt.Sprintf("RET %s", inst.CondNames[y]))
	case 1:
		switch {
		case q == 0:
			return c.line(fmt.Sprintf("POP %s", inst.Reg16PushName(p, ix)))
		case p == 0:
			return c.line("RET")
		case p == 1:
			return c.line("EXX")
		case p == 2:
			return c.line(fmt.Sprintf("JP (%s)", indexOrHL(ix)))
		default:
			return c.line(fmt.Sprintf("LD SP,%s", indexOrHL(ix)))
		}
	case 2:
		nn := c.fetch16()
		return c.branchLine(fmt.Sprintf("JP %s,%s", inst.CondNames[y], inst.Hex16(nn)), nn)
	case 3:
		switch y {
		case 0:
			nn := c.fetch16()
			return c.branchLine(fmt.Sprintf("JP %s", inst.Hex16(nn)), nn)
		case 2:
			n := c.fetch8()
			return c.line(fmt.Sprintf("OUT (%s),A", inst.Hex8(n)))
		case 3:
			n := c.fetch8()
			return c.line(fmt.Sprintf("IN A,(%s)", inst.Hex8(n)))
		case 4:
			return c.line(fmt.Sprintf("EX (SP),%s", indexOrHL(ix)))
		case 5:
			return c.line("EX DE,HL")
		case 6:
			return c.line("DI")
		default:
			return c.line("EI")
		}
	case 4:
		nn := c.fetch16()
		return c.branchLine(fmt.Sprintf("CALL %s,%s", inst.CondNames[y], inst.Hex16(nn)), nn)
	case 5:
		switch {
		case q == 0:
			return c.line(fmt.Sprintf("PUSH %s", inst.Reg16PushName(p, ix)))
		case p == 0:
			nn := c.fetch16()
			return c.branchLine(fmt.Sprintf("CALL %s", inst.Hex16(nn)), nn)
		default:
			return c.line("NOP") // DD/ED/FD consumed as a prefix earlier
		}
	case 6:
		n := c.fetch8()
		return c.line(inst.AluOperand(y, inst.Hex8(n)))
	default:
		target := uint16(y) * 8
		return c.branchLine(fmt.Sprintf("RST %s", inst.Hex8(uint8(target))), target)
	}
}
