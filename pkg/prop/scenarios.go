package prop

import (
	"fmt"
	"time"

	"github.com/kaboofactory/z80sim/pkg/asm"
	"github.com/kaboofactory/z80sim/pkg/bus"
	"github.com/kaboofactory/z80sim/pkg/cpu"
	"github.com/kaboofactory/z80sim/pkg/mem"
)

// machine is a fully wired simulator instance: CPU, memory, I/O bus, and
// the reference peripherals the documented port map names.
type machine struct {
	cpu  *cpu.CPU
	mem  *mem.Memory
	bus  *bus.Bus
	leds *bus.LEDs
	segs *bus.SevenSegment
}

// runProgram assembles src, loads it at its ORG addresses, and steps until
// the CPU halts (or the step limit runs out, which is reported as an
// error so a scenario with a broken loop fails instead of hanging).
func runProgram(src string) (*machine, error) {
	prog, err := asm.New().Assemble(src)
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}

	m := &machine{
		mem:  mem.New(),
		bus:  bus.New(),
		leds: &bus.LEDs{},
		segs: &bus.SevenSegment{},
	}
	m.leds.Attach(m.bus, 0x00)
	m.segs.Attach(m.bus, 0x10)
	m.cpu = cpu.New(m.mem, m.bus)
	m.bus.AttachCPU(m.cpu)
	prog.Load(m.mem)

	for steps := 0; steps < 100000; steps++ {
		if _, err := m.cpu.Step(); err != nil {
			return m, fmt.Errorf("step: %w", err)
		}
		if m.cpu.Halted {
			return m, nil
		}
	}
	return m, fmt.Errorf("program did not halt within the step limit")
}

func scenarioResult(name string, start time.Time, err error) Result {
	if err != nil {
		return Result{Name: name, Passed: false, Checked: 1, Detail: err.Error(), Elapsed: time.Since(start)}
	}
	return Result{Name: name, Passed: true, Checked: 1, Detail: "observables matched after HALT", Elapsed: time.Since(start)}
}

// scenarioAdd: LD A,10 : ADD A,20 : OUT (0x17),A : HALT.
// Digit 7 of the seven-segment bank captures 30; A=30; carry clear.
func scenarioAdd() Result {
	start := time.Now()
	m, err := runProgram("LD A, 10 : ADD A, 20 : OUT (0x17), A : HALT\n")
	if err == nil {
		switch {
		case m.cpu.A != 30:
			err = fmt.Errorf("A=%d, want 30", m.cpu.A)
		case m.segs.Get()[7] != 30:
			err = fmt.Errorf("port 0x17 captured %d, want 30", m.segs.Get()[7])
		case m.cpu.F&cpu.FlagC != 0:
			err = fmt.Errorf("carry set after 10+20")
		}
	}
	return scenarioResult("scenario-add", start, err)
}

// scenarioOverflow: LD A,0xFF : ADD A,0x01 : OUT (0x00),A : HALT.
// The LEDs capture 0; Z, C, and H all come out set.
func scenarioOverflow() Result {
	start := time.Now()
	m, err := runProgram("LD A, 0xFF : ADD A, 0x01 : OUT (0x00), A : HALT\n")
	if err == nil {
		f := m.cpu.F
		switch {
		case m.leds.Get() != 0:
			err = fmt.Errorf("port 0x00 captured 0x%02X, want 0", m.leds.Get())
		case f&cpu.FlagZ == 0:
			err = fmt.Errorf("Z clear after 0xFF+1")
		case f&cpu.FlagC == 0:
			err = fmt.Errorf("C clear after 0xFF+1")
		case f&cpu.FlagH == 0:
			err = fmt.Errorf("H clear after 0xFF+1")
		}
	}
	return scenarioResult("scenario-overflow", start, err)
}

// scenarioDJNZLoop: a three-iteration DJNZ loop leaves A=3 on digit 7.
func scenarioDJNZLoop() Result {
	start := time.Now()
	m, err := runProgram("LD B, 3 : LD A, 0 :L: INC A : DJNZ L : OUT (0x17), A : HALT\n")
	if err == nil && m.segs.Get()[7] != 3 {
		err = fmt.Errorf("port 0x17 captured %d, want 3", m.segs.Get()[7])
	}
	return scenarioResult("scenario-djnz-loop", start, err)
}

// scenarioLD16Roundtrip: a 16-bit store and reload through memory, checking
// both the little-endian cell layout and the reloaded register halves.
func scenarioLD16Roundtrip() Result {
	start := time.Now()
	m, err := runProgram("LD HL, 0x1234 : LD (0x8000), HL : LD HL, 0 : LD HL, (0x8000) : HALT\n")
	if err == nil {
		switch {
		case m.cpu.H != 0x12 || m.cpu.L != 0x34:
			err = fmt.Errorf("HL=0x%02X%02X, want 0x1234", m.cpu.H, m.cpu.L)
		case m.mem.Read(0x8000) != 0x34 || m.mem.Read(0x8001) != 0x12:
			err = fmt.Errorf("mem[0x8000..1]=%02X %02X, want 34 12", m.mem.Read(0x8000), m.mem.Read(0x8001))
		}
	}
	return scenarioResult("scenario-ld16-roundtrip", start, err)
}

// scenarioRLCA: rotating 0x80 left wraps bit 7 into bit 0 and the carry.
func scenarioRLCA() Result {
	start := time.Now()
	m, err := runProgram("LD A, 0x80 : RLCA : OUT (0x17), A : HALT\n")
	if err == nil {
		switch {
		case m.segs.Get()[7] != 0x01:
			err = fmt.Errorf("port 0x17 captured 0x%02X, want 0x01", m.segs.Get()[7])
		case m.cpu.F&cpu.FlagC == 0:
			err = fmt.Errorf("carry clear after RLCA of 0x80")
		}
	}
	return scenarioResult("scenario-rlca", start, err)
}

// scenarioLDIR: a four-byte LDIR block copy, with the source bytes laid
// down by DB and the destination reserved by DS.
func scenarioLDIR() Result {
	start := time.Now()
	src := "LD HL, src : LD DE, dst : LD BC, 4 : LDIR : HALT\n" +
		"src: DB 0xAA, 0xBB, 0xCC, 0xDD\n" +
		"dst: DS 4\n"
	m, err := runProgram(src)
	if err == nil {
		prog, _ := asm.New().Assemble(src)
		dst := prog.Labels["DST"]
		want := []uint8{0xAA, 0xBB, 0xCC, 0xDD}
		for i, w := range want {
			if got := m.mem.Read(dst + uint16(i)); got != w {
				err = fmt.Errorf("dst[%d]=0x%02X, want 0x%02X", i, got, w)
				break
			}
		}
		if err == nil && m.cpu.BC() != 0 {
			err = fmt.Errorf("BC=%d after LDIR, want 0", m.cpu.BC())
		}
		if err == nil && m.cpu.F&cpu.FlagP != 0 {
			err = fmt.Errorf("P/V set after LDIR ran BC to 0")
		}
	}
	return scenarioResult("scenario-ldir", start, err)
}
