package cpu

import (
	"encoding/gob"
	"io"
)

// Snapshot is a self-contained copy of the CPU's execution state, suitable
// for an embedder's save-state feature. Memory is snapshotted separately by
// the owner of the Memory.
type Snapshot struct {
	Registers
	Cycles     uint64
	IntPending bool
}

// Snapshot captures the current execution state.
func (c *CPU) Snapshot() Snapshot {
	c.intMu.Lock()
	pending := c.intPending
	c.intMu.Unlock()
	return Snapshot{Registers: c.Registers, Cycles: c.Cycles, IntPending: pending}
}

// Restore replaces the CPU's execution state with a previously captured
// snapshot. Any in-flight fault is discarded.
func (c *CPU) Restore(s Snapshot) {
	c.Registers = s.Registers
	c.Cycles = s.Cycles
	c.fault = nil
	c.intMu.Lock()
	c.intPending = s.IntPending
	c.intMu.Unlock()
}

// Save writes the snapshot to w in gob form.
func (s Snapshot) Save(w io.Writer) error {
	return gob.NewEncoder(w).Encode(s)
}

// LoadSnapshot reads a snapshot previously written by Save.
func LoadSnapshot(r io.Reader) (Snapshot, error) {
	var s Snapshot
	err := gob.NewDecoder(r).Decode(&s)
	return s, err
}
