package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/kaboofactory/z80sim/pkg/asm"
	"github.com/kaboofactory/z80sim/pkg/bus"
	"github.com/kaboofactory/z80sim/pkg/cpu"
	"github.com/kaboofactory/z80sim/pkg/disasm"
	"github.com/kaboofactory/z80sim/pkg/mem"
	"github.com/kaboofactory/z80sim/pkg/prop"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "z80sim",
		Short: "Z80 simulator — assemble, run, disassemble, verify",
	}

	rootCmd.AddCommand(assembleCmd(), runCmd(), disasmCmd(), verifyCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// assembleResult is the machine-readable form of an assembly, written when
// --json is given: the label table, line map, and per-line listing.
type assembleResult struct {
	Labels  map[string]uint16 `json:"labels"`
	LineMap map[uint16]int    `json:"line_map"`
	Listing []asm.ListingLine `json:"listing"`
}

func assembleCmd() *cobra.Command {
	var output string
	var jsonOut string

	cmd := &cobra.Command{
		Use:   "assemble [source.asm]",
		Short: "Assemble a source file, print the listing, and write a flat image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			prog, err := asm.New().Assemble(string(src))
			if err != nil {
				return err
			}
			fmt.Print(prog.Text())

			if output == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".bin"
			}
			image := flattenImage(prog)
			if err := os.WriteFile(output, image, 0o644); err != nil {
				return err
			}
			fmt.Printf("%d bytes written to %s\n", len(image), output)

			if jsonOut != "" {
				f, err := os.Create(jsonOut)
				if err != nil {
					return err
				}
				defer f.Close()
				enc := json.NewEncoder(f)
				enc.SetIndent("", "  ")
				if err := enc.Encode(assembleResult{Labels: prog.Labels, LineMap: prog.LineMap, Listing: prog.Listing}); err != nil {
					return err
				}
				fmt.Printf("Symbol table written to %s\n", jsonOut)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output image path (default: source with .bin)")
	cmd.Flags().StringVar(&jsonOut, "json", "", "Also write labels, line map, and listing as JSON")
	return cmd
}

// flattenImage lays every segment into one image spanning from the lowest
// segment base to the high-water mark.
func flattenImage(p *asm.Program) []byte {
	if len(p.Segments) == 0 {
		return nil
	}
	lo, hi := int(p.Segments[0].Addr), 0
	for _, s := range p.Segments {
		if int(s.Addr) < lo {
			lo = int(s.Addr)
		}
		if end := int(s.Addr) + len(s.Data); end > hi {
			hi = end
		}
	}
	out := make([]byte, hi-lo)
	for _, s := range p.Segments {
		copy(out[int(s.Addr)-lo:], s.Data)
	}
	return out
}

func runCmd() *cobra.Command {
	var maxSteps int
	var trace bool

	cmd := &cobra.Command{
		Use:   "run [source.asm]",
		Short: "Assemble, load, and step until HALT or the step limit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			prog, err := asm.New().Assemble(string(src))
			if err != nil {
				return err
			}

			m := mem.New()
			b := bus.New()
			leds := &bus.LEDs{}
			segs := &bus.SevenSegment{}
			lcd := &bus.LCD{}
			leds.Attach(b, 0x00)
			segs.Attach(b, 0x10)
			lcd.Attach(b, 0x20, 0x21)
			c := cpu.New(m, b)
			b.AttachCPU(c)
			c.Logf = log.Printf
			prog.Load(m)

			// Ctrl-C cancels a runaway program without killing the process
			// mid-print; the CPU keeps its state for the final dump.
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			executed := 0
			for executed < maxSteps {
				if ctx.Err() != nil {
					fmt.Println("interrupted")
					break
				}
				if trace {
					line := disasm.Disassemble(m, c.PC, 1)[0]
					fmt.Printf("%04X  %s\n", line.Addr, line.Text)
				}
				_, err := c.Step()
				executed++
				if err != nil {
					fmt.Printf("fault: %v\n", err)
					break
				}
				if c.Halted {
					break
				}
			}

			fmt.Printf("halted=%v after %d steps (%d T-states)\n", c.Halted, executed, c.Cycles)
			printRegisters(c)
			if v := leds.Get(); v != 0 {
				fmt.Printf("LEDs: %08b\n", v)
			}
			for i, d := range segs.Get() {
				if d != 0 {
					fmt.Printf("7seg[%d] (port %02Xh): %02Xh\n", i, 0x10+i, d)
				}
			}
			if text := strings.TrimRight(lcd.Text(), "\x00"); text != "" {
				fmt.Printf("LCD: %q\n", text)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxSteps, "steps", 1_000_000, "Maximum instructions to execute")
	cmd.Flags().BoolVarP(&trace, "trace", "t", false, "Disassemble each instruction before executing it")
	return cmd
}

func printRegisters(c *cpu.CPU) {
	fmt.Printf("A=%02X F=%02X BC=%04X DE=%04X HL=%04X IX=%04X IY=%04X\n",
		c.A, c.F, c.BC(), c.DE(), c.HL(), c.IX, c.IY)
	fmt.Printf("PC=%04X SP=%04X I=%02X R=%02X IFF1=%v IM=%d\n",
		c.PC, c.SP, c.I, c.R, c.IFF1, c.IM)
	fmt.Printf("flags: S=%d Z=%d H=%d P/V=%d N=%d C=%d\n",
		flag(c.F, cpu.FlagS), flag(c.F, cpu.FlagZ), flag(c.F, cpu.FlagH),
		flag(c.F, cpu.FlagP), flag(c.F, cpu.FlagN), flag(c.F, cpu.FlagC))
}

func flag(f, bit uint8) int {
	if f&bit != 0 {
		return 1
	}
	return 0
}

func disasmCmd() *cobra.Command {
	var org uint16
	var count int

	cmd := &cobra.Command{
		Use:   "disasm [image.bin]",
		Short: "Disassemble a raw binary image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			n := count
			if n <= 0 {
				n = len(data) // one instruction is at least one byte
			}
			r := disasm.Bytes{Base: org, Data: data}
			addr := org
			for i := 0; i < n && int(addr-org) < len(data); i++ {
				line := disasm.Disassemble(r, addr, 1)[0]
				hex := make([]string, len(line.Raw))
				for j, b := range line.Raw {
					hex[j] = fmt.Sprintf("%02X", b)
				}
				fmt.Printf("%04X  %-12s  %s\n", line.Addr, strings.Join(hex, " "), line.Text)
				addr += uint16(len(line.Raw))
			}
			return nil
		},
	}
	cmd.Flags().Uint16Var(&org, "org", 0, "Load address of the image")
	cmd.Flags().IntVar(&count, "count", 0, "Instructions to decode (0 = whole image)")
	return cmd
}

func verifyCmd() *cobra.Command {
	var numWorkers int
	var verbose bool
	var jsonOut string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run the documented invariant sweeps and end-to-end scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool := prop.NewPool(numWorkers)
			results := pool.RunAll(prop.AllProperties(), verbose)

			if jsonOut != "" {
				f, err := os.Create(jsonOut)
				if err != nil {
					return err
				}
				defer f.Close()
				enc := json.NewEncoder(f)
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
				fmt.Printf("Report written to %s\n", jsonOut)
			}

			for _, r := range results {
				if !r.Passed {
					return fmt.Errorf("property %s failed: %s", r.Name, r.Detail)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&numWorkers, "workers", 0, "Concurrent properties (0 = NumCPU)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print each property as it completes")
	cmd.Flags().StringVar(&jsonOut, "json", "", "Write the verification report as JSON")
	return cmd
}
