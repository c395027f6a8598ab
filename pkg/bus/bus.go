// Package bus implements the 256-port I/O dispatcher and interrupt trigger
// surface that sits between the CPU and peripheral handlers.
package bus

// InFunc produces the byte a peripheral presents when the CPU reads its port.
type InFunc func() uint8

// OutFunc consumes the byte the CPU writes to a peripheral's port.
type OutFunc func(v uint8)

// InterruptSink is the CPU-side surface the Bus drives when a peripheral
// raises a maskable interrupt. CPU implements this with a mutex-guarded
// latch so TriggerInterrupt is safe to call from any goroutine.
type InterruptSink interface {
	Interrupt()
}

// Bus maps 256 port addresses to input producers and output consumers.
// Unmapped input reads return 0xFF; unmapped output writes are discarded.
type Bus struct {
	ins  [256]InFunc
	outs [256]OutFunc
	sink InterruptSink
}

// New returns an empty Bus with no ports registered and no interrupt sink.
func New() *Bus {
	return &Bus{}
}

// AttachCPU wires the bus's interrupt trigger to the given sink (normally a
// *cpu.CPU). Must be called once before TriggerInterrupt is used.
func (b *Bus) AttachCPU(sink InterruptSink) {
	b.sink = sink
}

// RegisterIn installs an input producer for port.
func (b *Bus) RegisterIn(port uint8, fn InFunc) {
	b.ins[port] = fn
}

// RegisterOut installs an output consumer for port.
func (b *Bus) RegisterOut(port uint8, fn OutFunc) {
	b.outs[port] = fn
}

// In reads a byte from port, synchronously invoking the registered handler.
// An unmapped port returns 0xFF.
func (b *Bus) In(port uint8) uint8 {
	if fn := b.ins[port]; fn != nil {
		return fn()
	}
	return 0xFF
}

// Out writes v to port, synchronously invoking the registered handler.
// An unmapped port silently discards the write.
func (b *Bus) Out(port uint8, v uint8) {
	if fn := b.outs[port]; fn != nil {
		fn(v)
	}
}

// TriggerInterrupt latches a pending maskable interrupt on the attached CPU.
// It is the sole cross-boundary mutation point for interrupt state and is
// safe to call at any instant relative to CPU.Step, including from another
// goroutine representing an asynchronous peripheral event.
func (b *Bus) TriggerInterrupt() {
	if b.sink != nil {
		b.sink.Interrupt()
	}
}
