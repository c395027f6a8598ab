package disasm

import (
	"bytes"
	"testing"

	"github.com/kaboofactory/z80sim/pkg/asm"
)

// TestDecodeText checks one rendering per decoder family.
func TestDecodeText(t *testing.T) {
	tests := []struct {
		raw  []byte
		want string
	}{
		{[]byte{0x00}, "NOP"},
		{[]byte{0x76}, "HALT"},
		{[]byte{0x41}, "LD B,C"},
		{[]byte{0x3E, 0x0A}, "LD A,0Ah"},
		{[]byte{0x01, 0x34, 0x12}, "LD BC,1234h"},
		{[]byte{0x22, 0x00, 0x80}, "LD (8000h),HL"},
		{[]byte{0x86}, "ADD A,(HL)"},
		{[]byte{0xD6, 0x05}, "SUB 05h"},
		{[]byte{0xBE}, "CP (HL)"},
		{[]byte{0xC9}, "RET"},
		{[]byte{0xE8}, "RET PE"},
		{[]byte{0xE9}, "JP (HL)"},
		{[]byte{0xF5}, "PUSH AF"},
		{[]byte{0xD3, 0x17}, "OUT (17h),A"},
		{[]byte{0xDB, 0x40}, "IN A,(40h)"},
		{[]byte{0xEF}, "RST 28h"},
		{[]byte{0x08}, "EX AF,AF'"},
		{[]byte{0xEB}, "EX DE,HL"},

		{[]byte{0xCB, 0x00}, "RLC B"},
		{[]byte{0xCB, 0x7E}, "BIT 7,(HL)"},
		{[]byte{0xCB, 0xC7}, "SET 0,A"},

		{[]byte{0xED, 0x44}, "NEG"},
		{[]byte{0xED, 0x45}, "RETN"},
		{[]byte{0xED, 0x4D}, "RETI"},
		{[]byte{0xED, 0x56}, "IM 1"},
		{[]byte{0xED, 0x4A}, "ADC HL,BC"},
		{[]byte{0xED, 0x52}, "SBC HL,DE"},
		{[]byte{0xED, 0x53, 0x00, 0x80}, "LD (8000h),DE"},
		{[]byte{0xED, 0xB0}, "LDIR"},
		{[]byte{0xED, 0x67}, "RRD"},
		{[]byte{0xED, 0x00}, "DB 0EDh,00h"},

		{[]byte{0xDD, 0x7E, 0x05}, "LD A,(IX+5)"},
		{[]byte{0xFD, 0x70, 0xFE}, "LD (IY-2),B"},
		{[]byte{0xDD, 0x36, 0x01, 0x7F}, "LD (IX+1),7Fh"},
		{[]byte{0xDD, 0x34, 0x01}, "INC (IX+1)"},
		{[]byte{0xDD, 0x86, 0x03}, "ADD A,(IX+3)"},
		{[]byte{0xDD, 0xE9}, "JP (IX)"},
		{[]byte{0xDD, 0xE1}, "POP IX"},
		{[]byte{0xDD, 0x21, 0x00, 0x40}, "LD IX,4000h"},
		{[]byte{0xDD, 0xCB, 0x02, 0xC6}, "SET 0,(IX+2)"},
		{[]byte{0xFD, 0xCB, 0x00, 0x06}, "RLC (IY+0)"},
	}

	for _, tc := range tests {
		line := Disassemble(Bytes{Data: tc.raw}, 0, 1)[0]
		if line.Text != tc.want {
			t.Errorf("% X decoded to %q, want %q", tc.raw, line.Text, tc.want)
		}
		if len(line.Raw) != len(tc.raw) {
			t.Errorf("% X consumed %d bytes, want %d", tc.raw, len(line.Raw), len(tc.raw))
		}
	}
}

func TestBranchTargets(t *testing.T) {
	tests := []struct {
		raw    []byte
		base   uint16
		target uint16
	}{
		{[]byte{0xC3, 0x34, 0x12}, 0, 0x1234},       // JP
		{[]byte{0xCD, 0x00, 0x80}, 0x4000, 0x8000},  // CALL
		{[]byte{0x18, 0x02}, 0x4000, 0x4004},        // JR +2
		{[]byte{0x20, 0xFC}, 0x4000, 0x3FFE},        // JR NZ,-4
		{[]byte{0x10, 0xFE}, 0x4000, 0x4000},        // DJNZ self
		{[]byte{0xEF}, 0x4000, 0x0028},              // RST 28h
	}
	for _, tc := range tests {
		line := Disassemble(Bytes{Base: tc.base, Data: tc.raw}, tc.base, 1)[0]
		if !line.HasBranchTarget {
			t.Errorf("% X at %04X has no branch target", tc.raw, tc.base)
			continue
		}
		if line.BranchTarget != tc.target {
			t.Errorf("% X at %04X resolved %04X, want %04X", tc.raw, tc.base, line.BranchTarget, tc.target)
		}
	}

	if Disassemble(Bytes{Data: []byte{0x00}}, 0, 1)[0].HasBranchTarget {
		t.Error("NOP should not carry a branch target")
	}
}

// TestRoundTrip assembles a program, disassembles the image, re-assembles
// the disassembly, and expects the identical byte image.
func TestRoundTrip(t *testing.T) {
	sources := []string{
		"LD A,10\nADD A,20\nOUT (017h),A\nHALT\n",
		"LD IX,9000h\nLD (IX+2),05h\nINC (IX+2)\nBIT 0,(IX+2)\nSET 7,(IX+2)\nHALT\n",
		"LD HL,9000h\nLD DE,9100h\nLD BC,4\nLDIR\nCPL\nDAA\nHALT\n",
		"PUSH AF\nPOP BC\nEX DE,HL\nEXX\nRLCA\nRRA\nSCF\nCCF\nHALT\n",
	}
	for _, src := range sources {
		prog, err := asm.New().Assemble(src)
		if err != nil {
			t.Fatalf("assemble: %v", err)
		}
		image := prog.Segments[0].Data

		var text string
		r := Bytes{Data: image}
		for addr := uint16(0); int(addr) < len(image); {
			line := Disassemble(r, addr, 1)[0]
			text += line.Text + "\n"
			addr += uint16(len(line.Raw))
		}

		prog2, err := asm.New().Assemble(text)
		if err != nil {
			t.Fatalf("re-assemble:\n%s\n%v", text, err)
		}
		if !bytes.Equal(image, prog2.Segments[0].Data) {
			t.Errorf("round trip changed image:\n  was  % X\n  now  % X\n%s", image, prog2.Segments[0].Data, text)
		}
	}
}

func TestBytesReaderBounds(t *testing.T) {
	b := Bytes{Base: 0x100, Data: []byte{0xAA}}
	if b.Read(0x100) != 0xAA {
		t.Error("in-range read failed")
	}
	if b.Read(0x101) != 0 || b.Read(0x0FF) != 0 {
		t.Error("out-of-range reads should return 0")
	}
}
