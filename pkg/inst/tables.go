// Package inst holds the register/condition name tables and mnemonic
// formatting helpers used by the disassembler. The assembler does not
// import it: pkg/asm keeps its own name-to-index maps in the same bitfield
// order. It mirrors the
// standard Z80 opcode layout (x/y/z/p/q bitfields over xxyyyzzz) used by
// pkg/cpu's decoder, but as names rather than executable dispatch.
package inst

import "fmt"

// Reg8Names is the r[z] table: B,C,D,E,H,L,(HL),A.
var Reg8Names = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}

// Reg16Names is the rp[p] table used by INC/DEC/ADD HL,/LD rp,nn: BC,DE,HL,SP.
var Reg16Names = [4]string{"BC", "DE", "HL", "SP"}

// Reg16PushNames is the rp2[p] table used by PUSH/POP: BC,DE,HL,AF.
var Reg16PushNames = [4]string{"BC", "DE", "HL", "AF"}

// CondNames is the cc[y] table: NZ,Z,NC,C,PO,PE,P,M.
var CondNames = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}

// AluNames is the alu[y] table used by the ADD/ADC/SUB/SBC/AND/XOR/OR/CP
// family sharing an operand. ADD, ADC and SBC take an explicit "A,"
// operand; SUB, AND, XOR, OR and CP are single-operand forms with an
// implicit A.
var AluNames = [8]string{"ADD A", "ADC A", "SUB", "SBC A", "AND", "XOR", "OR", "CP"}

// AluHasExplicitA reports whether alu[y]'s mnemonic needs ",operand" rather
// than " operand" (ADD A,r / ADC A,r / SBC A,r vs SUB r / AND r / etc).
func AluHasExplicitA(y uint8) bool {
	return y == 0 || y == 1 || y == 3
}

// AluOperand formats an ALU instruction's mnemonic and operand together.
func AluOperand(y uint8, operand string) string {
	if AluHasExplicitA(y) {
		return AluNames[y] + "," + operand
	}
	return AluNames[y] + " " + operand
}

// RotNames is the rot[y] table used by CB-prefixed shifts/rotates.
var RotNames = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SLL", "SRL"}

// IndexName returns "IX" or "IY" for ix 1 or 2, or "" for 0 (no prefix).
func IndexName(ix int) string {
	switch ix {
	case 1:
		return "IX"
	case 2:
		return "IY"
	default:
		return ""
	}
}

// Reg8Name returns the r[z] mnemonic fragment, substituting an indexed
// memory reference for (HL) when ix is nonzero and z selects (HL).
func Reg8Name(z uint8, ix int, disp int8) string {
	if z == 6 && ix != 0 {
		return fmt.Sprintf("(%s%+d)", IndexName(ix), disp)
	}
	return Reg8Names[z]
}

// Reg16Name returns the rp[p] mnemonic fragment, substituting IX/IY for the
// HL slot (p==2) when ix is nonzero.
func Reg16Name(p uint8, ix int) string {
	if p == 2 && ix != 0 {
		return IndexName(ix)
	}
	return Reg16Names[p]
}

// Reg16PushName returns the rp2[p] mnemonic fragment, substituting IX/IY
// for the HL slot (p==2) when ix is nonzero. AF (p==3) is never substituted.
func Reg16PushName(p uint8, ix int) string {
	if p == 2 && ix != 0 {
		return IndexName(ix)
	}
	return Reg16PushNames[p]
}

// Hex8 formats a byte the way the assembler accepts it back: trailing 'h',
// leading '0' added when the first hex digit would otherwise read as a
// letter. This is the disassembly form; the assembler's own input syntax
// also accepts a 0x-prefixed form (see pkg/asm), an intentional asymmetry
// matching real Z80 assembler convention (output always trailing-h,
// input accepts either).
func Hex8(v uint8) string {
	return hexLiteral(fmt.Sprintf("%02X", v))
}

// Hex16 formats a word the same way as Hex8.
func Hex16(v uint16) string {
	return hexLiteral(fmt.Sprintf("%04X", v))
}

func hexLiteral(digits string) string {
	if digits[0] >= 'A' && digits[0] <= 'F' {
		return "0" + digits + "h"
	}
	return digits + "h"
}
