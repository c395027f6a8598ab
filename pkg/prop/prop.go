// Package prop proves the testable properties a conforming Z80 simulator
// must satisfy: quantified invariants swept exhaustively across a worker
// pool, and direct scenario runners for complete sample programs.
package prop

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kaboofactory/z80sim/pkg/cpu"
	"github.com/kaboofactory/z80sim/pkg/mem"
)

// Result is the outcome of one property check.
type Result struct {
	Name     string
	Passed   bool
	Checked  int64
	Failures int64
	Detail   string
	Elapsed  time.Duration
}

// Property is a single named check. Run executes the check and reports a
// Result; checks that sweep a space report how many cases they examined.
type Property struct {
	Name string
	Run  func() Result
}

// Pool runs a batch of properties concurrently, one goroutine per property,
// capped at runtime.NumCPU() in flight; the sweeps themselves are the
// expensive part, not the dispatch, so a worker per property is enough
// parallelism for the set of properties this package defines.
type Pool struct {
	NumWorkers int
	checked    atomic.Int64
	passed     atomic.Int64
}

// NewPool returns a Pool sized to NumCPU unless numWorkers is positive.
func NewPool(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Pool{NumWorkers: numWorkers}
}

// RunAll executes every property, printing a progress line as each
// completes when verbose is set and a summary line at the end, and returns
// all results in Property order.
func (p *Pool) RunAll(props []Property, verbose bool) []Result {
	results := make([]Result, len(props))
	sem := make(chan struct{}, p.NumWorkers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	start := time.Now()

	for i, prop := range props {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, prop Property) {
			defer wg.Done()
			defer func() { <-sem }()
			r := prop.Run()
			p.checked.Add(r.Checked)
			if r.Passed {
				p.passed.Add(1)
			}
			mu.Lock()
			results[i] = r
			mu.Unlock()
			if verbose {
				status := "FAIL"
				if r.Passed {
					status = "PASS"
				}
				fmt.Printf("  [%s] %-28s %s\n", status, r.Name, r.Detail)
			}
		}(i, prop)
	}
	wg.Wait()

	fmt.Printf("%d/%d properties passed in %s (%d cases checked)\n",
		p.passed.Load(), len(props), time.Since(start).Round(time.Millisecond), p.checked.Load())
	return results
}

func newMachine() (*cpu.CPU, *mem.Memory) {
	m := mem.New()
	c := cpu.New(m, noopBus{})
	c.Reset()
	return c, m
}

type noopBus struct{}

func (noopBus) In(port uint8) uint8        { return 0xFF }
func (noopBus) Out(port uint8, v uint8)    {}

// AllProperties returns the quantified invariants plus the assemble →
// disassemble round trip and the end-to-end scenarios, in the order they
// are documented.
func AllProperties() []Property {
	return []Property{
		{Name: "register-range", Run: propRegisterRange},
		{Name: "push-pop-roundtrip", Run: propPushPopRoundtrip},
		{Name: "ex-involution", Run: propExInvolution},
		{Name: "add-flag-identity", Run: propAddFlagIdentity},
		{Name: "asm-disasm-roundtrip", Run: propAsmDisasmRoundtrip},
		{Name: "jr-displacement", Run: propJRDisplacement},
		{Name: "ldir-block-copy", Run: propLDIRBlockCopy},
		{Name: "scenario-add", Run: scenarioAdd},
		{Name: "scenario-overflow", Run: scenarioOverflow},
		{Name: "scenario-djnz-loop", Run: scenarioDJNZLoop},
		{Name: "scenario-ld16-roundtrip", Run: scenarioLD16Roundtrip},
		{Name: "scenario-rlca", Run: scenarioRLCA},
		{Name: "scenario-ldir", Run: scenarioLDIR},
	}
}
