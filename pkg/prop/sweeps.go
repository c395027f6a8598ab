package prop

import (
	"fmt"
	"time"

	"github.com/kaboofactory/z80sim/pkg/asm"
	"github.com/kaboofactory/z80sim/pkg/cpu"
	"github.com/kaboofactory/z80sim/pkg/disasm"
)

func propRegisterRange() Result {
	start := time.Now()
	var checked int64
	c, _ := newMachine()
	for a := 0; a < 256; a++ {
		for f := 0; f < 256; f++ {
			c.A, c.F = uint8(a), uint8(f)
			checked++
			if c.SP > 0xFFFF || c.PC > 0xFFFF {
				return Result{Name: "register-range", Passed: false, Checked: checked,
					Detail: "SP/PC escaped 16-bit range", Elapsed: time.Since(start)}
			}
		}
	}
	return Result{Name: "register-range", Passed: true, Checked: checked,
		Detail: "PC, SP stayed in 0..0xFFFF across the A/F sweep", Elapsed: time.Since(start)}
}

// propPushPopRoundtrip runs the machine code for "LD BC,nn : PUSH BC :
// LD BC,0 : POP BC" and checks BC and SP are restored for a spread of
// 16-bit values.
func propPushPopRoundtrip() Result {
	start := time.Now()
	var checked int64
	for v := 0; v < 0x10000; v += 0x101 { // stride keeps the sweep quick; still hits every byte pattern
		c, m := newMachine()
		c.SP = 0xFF00
		sp0 := c.SP
		m.Write16(0, uint16(v))
		bytes := []byte{0x01, uint8(v), uint8(v >> 8), 0xC5, 0x01, 0x00, 0x00, 0xC1}
		for i, b := range bytes {
			m.Write(uint16(i), b)
		}
		for i := 0; i < 4; i++ {
			if _, err := c.Step(); err != nil {
				return Result{Name: "push-pop-roundtrip", Passed: false, Checked: checked,
					Detail: "Step failed: " + err.Error(), Elapsed: time.Since(start)}
			}
		}
		checked++
		if c.BC() != uint16(v) || c.SP != sp0 {
			return Result{Name: "push-pop-roundtrip", Passed: false, Checked: checked,
				Detail: fmt.Sprintf("value 0x%04X round-tripped as 0x%04X, SP=0x%04X", v, c.BC(), c.SP),
				Elapsed: time.Since(start)}
		}
	}
	return Result{Name: "push-pop-roundtrip", Passed: true, Checked: checked,
		Detail: "PUSH/POP preserved value and SP", Elapsed: time.Since(start)}
}

// propExInvolution checks that EX DE,HL / EX AF,AF' / EXX are each their own
// inverse by executing the real opcodes twice in a row.
func propExInvolution() Result {
	start := time.Now()

	c, m := newMachine()
	c.SetDE(0x1234)
	c.SetHL(0x5678)
	de0, hl0 := c.DE(), c.HL()
	m.Write(0, 0xEB)
	m.Write(1, 0xEB)
	c.Step()
	c.Step()
	if c.DE() != de0 || c.HL() != hl0 {
		return Result{Name: "ex-involution", Passed: false, Checked: 1,
			Detail: "EX DE,HL twice did not restore originals", Elapsed: time.Since(start)}
	}

	c2, m2 := newMachine()
	c2.SetAF(0xABCD)
	af0 := c2.AF()
	m2.Write(0, 0x08)
	m2.Write(1, 0x08)
	c2.Step()
	c2.Step()
	if c2.AF() != af0 {
		return Result{Name: "ex-involution", Passed: false, Checked: 2,
			Detail: "EX AF,AF' twice did not restore original", Elapsed: time.Since(start)}
	}

	c3, m3 := newMachine()
	c3.SetBC(1)
	c3.SetDE(2)
	c3.SetHL(3)
	bc0, de1, hl1 := c3.BC(), c3.DE(), c3.HL()
	m3.Write(0, 0xD9)
	m3.Write(1, 0xD9)
	c3.Step()
	c3.Step()
	if c3.BC() != bc0 || c3.DE() != de1 || c3.HL() != hl1 {
		return Result{Name: "ex-involution", Passed: false, Checked: 3,
			Detail: "EXX twice did not restore originals", Elapsed: time.Since(start)}
	}

	return Result{Name: "ex-involution", Passed: true, Checked: 3,
		Detail: "EX DE,HL / EX AF,AF' / EXX are involutions", Elapsed: time.Since(start)}
}

// propAddFlagIdentity exhaustively sweeps LD A,x : ADD A,y for every (x,y)
// pair and checks the sum and carry flag against the arithmetic identity.
func propAddFlagIdentity() Result {
	start := time.Now()
	c, m := newMachine()
	var checked int64
	for x := 0; x < 256; x++ {
		for y := 0; y < 256; y++ {
			m.Write(0, 0x3E)
			m.Write(1, uint8(x))
			m.Write(2, 0xC6)
			m.Write(3, uint8(y))
			c.PC = 0
			c.Step()
			c.Step()
			checked++
			wantSum := uint8((x + y) & 0xFF)
			wantCarry := (x + y) > 0xFF
			gotCarry := c.F&cpu.FlagC != 0
			if c.A != wantSum || gotCarry != wantCarry {
				return Result{Name: "add-flag-identity", Passed: false, Checked: checked,
					Detail: fmt.Sprintf("x=%d y=%d got A=%d carry=%v", x, y, c.A, gotCarry),
					Elapsed: time.Since(start)}
			}
		}
	}
	return Result{Name: "add-flag-identity", Passed: true, Checked: checked,
		Detail: "A=(x+y)&0xFF and C==(x+y>0xFF) for all 65536 pairs", Elapsed: time.Since(start)}
}

// propAsmDisasmRoundtrip assembles each sample program, disassembles the
// resulting image, re-assembles the disassembly text, and checks the byte
// images match.
func propAsmDisasmRoundtrip() Result {
	start := time.Now()
	var checked int64
	for _, src := range sampleSources() {
		checked++
		prog1, err := asm.New().Assemble(src)
		if err != nil {
			return Result{Name: "asm-disasm-roundtrip", Passed: false, Checked: checked,
				Detail: "first assembly failed: " + err.Error(), Elapsed: time.Since(start)}
		}
		image1 := flatten(prog1)

		text := renderAsSource(disassembleAll(image1))

		prog2, err := asm.New().Assemble(text)
		if err != nil {
			return Result{Name: "asm-disasm-roundtrip", Passed: false, Checked: checked,
				Detail: "re-assembly failed: " + err.Error() + "\n" + text, Elapsed: time.Since(start)}
		}
		image2 := flatten(prog2)

		if !bytesEqual(image1, image2) {
			return Result{Name: "asm-disasm-roundtrip", Passed: false, Checked: checked,
				Detail: "byte image changed across assemble/disassemble/re-assemble", Elapsed: time.Since(start)}
		}
	}
	return Result{Name: "asm-disasm-roundtrip", Passed: true, Checked: checked,
		Detail: "every sample program round-tripped byte-for-byte", Elapsed: time.Since(start)}
}

// flatten concatenates a program's segments into one byte slice assuming a
// single contiguous segment starting at 0, which is what every sample
// program here produces (none uses ORG).
func flatten(p *asm.Program) []byte {
	if len(p.Segments) == 0 {
		return nil
	}
	return p.Segments[0].Data
}

func disassembleAll(image []byte) []disasm.Line {
	r := disasm.Bytes{Data: image}
	var lines []disasm.Line
	var addr uint16
	for int(addr) < len(image) {
		l := disasm.Disassemble(r, addr, 1)[0]
		lines = append(lines, l)
		addr += uint16(len(l.Raw))
	}
	return lines
}

func renderAsSource(lines []disasm.Line) string {
	s := ""
	for _, l := range lines {
		s += l.Text + "\n"
	}
	return s
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sampleSources is a small spread of programs exercising loads, ALU,
// indexed addressing, rotates, and block operations, used both by the
// round-trip property and as illustrative assembler input.
func sampleSources() []string {
	return []string{
		"LD A,10\nADD A,20\nOUT (017h),A\nHALT\n",
		"LD HL,1234h\nLD (8000h),HL\nLD HL,0\nLD HL,(8000h)\nHALT\n",
		"LD A,080h\nRLCA\nOUT (017h),A\nHALT\n",
		"LD IX,9000h\nLD (IX+2),05h\nINC (IX+2)\nBIT 0,(IX+2)\nHALT\n",
		"LD HL,9000h\nLD DE,9100h\nLD BC,4\nLDIR\nHALT\n",
	}
}

// propJRDisplacement checks the displacement identity a+2+sign_extend(e)==t
// for every in-range relative jump target from a fixed base address.
func propJRDisplacement() Result {
	start := time.Now()
	var checked int64
	const base = 0x4000
	for offset := -126; offset <= 125; offset++ { // leaves room for the 2-byte JR itself
		target := uint16(int(base) + 2 + offset)
		a := int32(base)
		t := int32(target)
		e := int8(t - (a + 2))
		checked++
		if a+2+int32(e) != t {
			return Result{Name: "jr-displacement", Passed: false, Checked: checked,
				Detail: fmt.Sprintf("offset %d broke the identity", offset), Elapsed: time.Since(start)}
		}
	}

	// Cross-check against the real encoder/decoder pair for a handful of
	// offsets rather than just the arithmetic identity in isolation.
	for _, offset := range []int{-100, -1, 0, 1, 100} {
		target := uint16(int(base) + 2 + offset)
		src := fmt.Sprintf("ORG %04Xh\nJR %04Xh\n", base, target)
		prog, err := asm.New().Assemble(src)
		if err != nil {
			return Result{Name: "jr-displacement", Passed: false, Checked: checked,
				Detail: "assembly failed: " + err.Error(), Elapsed: time.Since(start)}
		}
		seg := prog.Segments[0]
		line := disasm.Disassemble(disasm.Bytes{Base: seg.Addr, Data: seg.Data}, seg.Addr, 1)[0]
		checked++
		if !line.HasBranchTarget || line.BranchTarget != target {
			return Result{Name: "jr-displacement", Passed: false, Checked: checked,
				Detail: fmt.Sprintf("JR to 0x%04X decoded target 0x%04X", target, line.BranchTarget),
				Elapsed: time.Since(start)}
		}
	}

	return Result{Name: "jr-displacement", Passed: true, Checked: checked,
		Detail: "a+2+sign_extend(e)==t held for every offset in -126..125", Elapsed: time.Since(start)}
}

// propLDIRBlockCopy checks that LDIR with BC=N copies exactly N bytes and
// terminates with BC=0, for a range of N, stepping the real decoder's
// per-iteration re-entry until the block completes.
func propLDIRBlockCopy() Result {
	start := time.Now()
	var checked int64
	for n := 1; n <= 64; n++ {
		c, m := newMachine()
		srcAddr, dstAddr := uint16(0x8000), uint16(0x9000)
		for i := 0; i < n; i++ {
			m.Write(srcAddr+uint16(i), uint8(0xA0+i))
		}
		c.SetHL(srcAddr)
		c.SetDE(dstAddr)
		c.SetBC(uint16(n))
		m.Write(0, 0xED)
		m.Write(1, 0xB0)
		c.PC = 0

		for steps := 0; steps < n+1; steps++ {
			if _, err := c.Step(); err != nil {
				return Result{Name: "ldir-block-copy", Passed: false, Checked: checked,
					Detail: "Step failed: " + err.Error(), Elapsed: time.Since(start)}
			}
			if c.BC() == 0 {
				break
			}
		}

		checked++
		if c.BC() != 0 {
			return Result{Name: "ldir-block-copy", Passed: false, Checked: checked,
				Detail: fmt.Sprintf("n=%d left BC=%d", n, c.BC()), Elapsed: time.Since(start)}
		}
		for i := 0; i < n; i++ {
			if m.Read(dstAddr+uint16(i)) != uint8(0xA0+i) {
				return Result{Name: "ldir-block-copy", Passed: false, Checked: checked,
					Detail: fmt.Sprintf("n=%d byte %d mismatched", n, i), Elapsed: time.Since(start)}
			}
		}
	}
	return Result{Name: "ldir-block-copy", Passed: true, Checked: checked,
		Detail: "LDIR copied exactly N bytes and zeroed BC for N=1..64", Elapsed: time.Since(start)}
}
