// Package cpu implements the Z80 instruction interpreter: register file,
// flag computation, opcode decoding across the base/CB/ED/DD/FD/DDCB/FDCB
// tables, and the maskable-interrupt state machine.
package cpu

import "sync"

// Memory is the byte-addressable store a CPU executes against.
type Memory interface {
	Read(addr uint16) uint8
	Write(addr uint16, v uint8)
	Read16(addr uint16) uint16
	Write16(addr uint16, v uint16)
}

// IOBus is the port-addressed I/O surface a CPU drives IN/OUT against.
type IOBus interface {
	In(port uint8) uint8
	Out(port uint8, v uint8)
}

// CPU interprets Z80 machine code against a Memory and an IOBus. Zero value
// is not usable; construct with New.
type CPU struct {
	Registers

	Mem Memory
	IO  IOBus

	// Cycles counts T-states executed since the last Reset.
	Cycles uint64

	// Logf, when non-nil, receives diagnostics for non-fatal decode events
	// (unknown ED sub-opcodes executed as NOPs).
	Logf func(format string, args ...any)

	intMu      sync.Mutex
	intPending bool
	fault      *Fault
}

// New returns a CPU wired to the given memory and I/O bus, reset to its
// power-on state.
func New(mem Memory, io IOBus) *CPU {
	c := &CPU{Mem: mem, IO: io}
	c.Reset()
	return c
}

// Reset restores the register file and clears pending interrupt state.
func (c *CPU) Reset() {
	c.Registers.Reset()
	c.Cycles = 0
	c.fault = nil
	c.intMu.Lock()
	c.intPending = false
	c.intMu.Unlock()
}

// Interrupt latches a maskable interrupt request. Implements
// bus.InterruptSink, so a Bus can call this from any goroutine representing
// an asynchronous peripheral event; the latch is consumed at the start of
// the next Step.
func (c *CPU) Interrupt() {
	c.intMu.Lock()
	c.intPending = true
	c.intMu.Unlock()
	if c.IFF1 {
		c.Halted = false
	}
}

func (c *CPU) takeInterrupt() bool {
	c.intMu.Lock()
	pending := c.intPending
	c.intPending = false
	c.intMu.Unlock()
	return pending
}

// Step executes exactly one instruction (or services one pending interrupt)
// and returns the T-states it consumed. A non-nil error is a *Fault: the
// CPU is left halted with registers preserved for inspection.
func (c *CPU) Step() (int, error) {
	if c.IFF1 && c.takeInterrupt() {
		t := c.serviceInterrupt()
		c.Cycles += uint64(t)
		return t, c.surfaceFault()
	}

	if c.Halted {
		c.bumpR(1)
		c.Cycles += 4
		return 4, nil
	}

	t, err := c.decodeExecute()
	c.Cycles += uint64(t)
	if err == nil {
		err = c.surfaceFault()
	}
	return t, err
}

// surfaceFault hands a fault recorded mid-instruction (stack out of range)
// to the caller exactly once.
func (c *CPU) surfaceFault() error {
	if c.fault == nil {
		return nil
	}
	f := c.fault
	c.fault = nil
	return f
}

// serviceInterrupt implements the maskable-interrupt acceptance sequence:
// IFF1/IFF2 both cleared, HALT released, and control transferred per IM.
// IM2's indirect vector table lookup is accepted syntactically (SetIM) but,
// absent a documented peripheral vector byte, resolves to the IM1 entry
// point like IM0/IM1 do.
func (c *CPU) serviceInterrupt() int {
	c.IFF1, c.IFF2 = false, false
	c.Halted = false
	c.bumpR(1)
	c.push16(c.PC)
	c.PC = 0x0038
	return 13
}

func (c *CPU) fetch8() uint8 {
	v := c.Mem.Read(c.PC)
	c.PC++
	return v
}

func (c *CPU) fetch16() uint16 {
	v := c.Mem.Read16(c.PC)
	c.PC += 2
	return v
}

// push16 and pop16 treat SP escaping 0..0xFFFF as a fatal fault rather than
// wrapping: the CPU halts and Step surfaces the error.
func (c *CPU) push16(v uint16) {
	if c.SP < 2 {
		c.fail(FaultStackOverflow)
		return
	}
	c.SP -= 2
	c.Mem.Write16(c.SP, v)
}

func (c *CPU) pop16() uint16 {
	if c.SP > 0xFFFF-2 {
		c.fail(FaultStackUnderflow)
		return 0
	}
	v := c.Mem.Read16(c.SP)
	c.SP += 2
	return v
}

func (c *CPU) fail(kind FaultKind) {
	if c.fault == nil {
		c.fault = &Fault{Kind: kind, PC: c.PC, SP: c.SP}
	}
	c.Halted = true
}

func int8FromByte(b uint8) int { return int(int8(b)) }
