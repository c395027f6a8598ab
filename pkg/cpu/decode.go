package cpu

// Opcode decoding follows the standard Z80 bitfield layout: a byte splits
// into x (bits 7-6), y (bits 5-3), z (bits 2-0), with p = y>>1 and q = y&1
// selecting register-pair and push/pop tables. This keeps the ~1500-entry
// instruction space (base/CB/ED/DD/FD/DDCB/FDCB) in a handful of tables
// instead of a 1500-case switch.

// ctx carries the per-instruction decoding state needed for IX/IY
// substitution: which index register (if any) stands in for HL, and the
// displacement byte once it has been fetched for a memory reference.
type ctx struct {
	c           *CPU
	ix          int // 0 = none, 1 = IX, 2 = IY
	dispFetched bool
	disp        int8
}

// hlAddr returns the address an (HL)-shaped operand resolves to: HL itself
// with no prefix, or IX+d / IY+d under a DD/FD prefix, fetching the
// displacement byte (once) the first time it's needed.
func (x *ctx) hlAddr() uint16 {
	switch x.ix {
	case 1:
		x.fetchDisp()
		return uint16(int32(x.c.IX) + int32(x.disp))
	case 2:
		x.fetchDisp()
		return uint16(int32(x.c.IY) + int32(x.disp))
	default:
		return x.c.HL()
	}
}

func (x *ctx) fetchDisp() {
	if !x.dispFetched {
		x.disp = int8(x.c.fetch8())
		x.dispFetched = true
	}
}

// hlValue returns the 16-bit value standing in for HL in register-pair
// contexts (ADD HL,rp; JP (HL); LD SP,HL; EX (SP),HL): IX or IY under a
// prefix, HL otherwise. Unlike hlAddr, this never dereferences memory.
func (x *ctx) hlValue() uint16 {
	switch x.ix {
	case 1:
		return x.c.IX
	case 2:
		return x.c.IY
	default:
		return x.c.HL()
	}
}

func (x *ctx) setHLValue(v uint16) {
	switch x.ix {
	case 1:
		x.c.IX = v
	case 2:
		x.c.IY = v
	default:
		x.c.SetHL(v)
	}
}

// readR/writeR implement the r[z] table. Index 6 means the memory operand
// (HL)/(IX+d)/(IY+d); all other indices are plain 8-bit registers. Under a
// DD/FD prefix, r[4] and r[5] (H and L) deliberately remain the real H and
// L registers rather than the undocumented IXH/IXL halves.
func (x *ctx) readR(z uint8) uint8 {
	if z == 6 {
		return x.c.Mem.Read(x.hlAddr())
	}
	return x.c.reg8(z)
}

func (x *ctx) writeR(z uint8, v uint8) {
	if z == 6 {
		x.c.Mem.Write(x.hlAddr(), v)
		return
	}
	x.c.setReg8(z, v)
}

func (c *CPU) reg8(z uint8) uint8 {
	switch z {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	default:
		return c.A
	}
}

func (c *CPU) setReg8(z uint8, v uint8) {
	switch z {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.H = v
	case 5:
		c.L = v
	default:
		c.A = v
	}
}

// getRP/setRP implement the rp[p] table used by INC rp, DEC rp, ADD HL,rp
// and LD rp,nn: BC, DE, HL (or IX/IY under prefix), SP.
func (x *ctx) getRP(p uint8) uint16 {
	switch p {
	case 0:
		return x.c.BC()
	case 1:
		return x.c.DE()
	case 2:
		return x.hlValue()
	default:
		return x.c.SP
	}
}

func (x *ctx) setRP(p uint8, v uint16) {
	switch p {
	case 0:
		x.c.SetBC(v)
	case 1:
		x.c.SetDE(v)
	case 2:
		x.setHLValue(v)
	default:
		x.c.SP = v
	}
}

// getRP2/setRP2 implement the rp2[p] table used by PUSH/POP: BC, DE,
// HL (or IX/IY), AF. AF is never substituted by a prefix.
func (x *ctx) getRP2(p uint8) uint16 {
	if p == 3 {
		return x.c.AF()
	}
	return x.getRP(p)
}

func (x *ctx) setRP2(p uint8, v uint16) {
	if p == 3 {
		x.c.SetAF(v)
		return
	}
	x.setRP(p, v)
}

func (c *CPU) condTrue(cc uint8) bool {
	switch cc {
	case 0:
		return c.F&FlagZ == 0
	case 1:
		return c.F&FlagZ != 0
	case 2:
		return c.F&FlagC == 0
	case 3:
		return c.F&FlagC != 0
	case 4:
		return c.F&FlagP == 0
	case 5:
		return c.F&FlagP != 0
	case 6:
		return c.F&FlagS == 0
	default:
		return c.F&FlagS != 0
	}
}

func (c *CPU) aluOp(y uint8, v uint8) {
	switch y {
	case 0:
		c.add8(v, 0)
	case 1:
		c.add8(v, c.F&FlagC)
	case 2:
		c.sub8(v, 0)
	case 3:
		c.sub8(v, c.F&FlagC)
	case 4:
		c.and8(v)
	case 5:
		c.xor8(v)
	case 6:
		c.or8(v)
	default:
		c.compare(v)
	}
}

func (c *CPU) rotOp(y uint8, v uint8) uint8 {
	switch y {
	case 0:
		return c.rlc8(v)
	case 1:
		return c.rrc8(v)
	case 2:
		return c.rl8(v)
	case 3:
		return c.rr8(v)
	case 4:
		return c.sla8(v)
	case 5:
		return c.sra8(v)
	case 6:
		return c.sll8(v)
	default:
		return c.srl8(v)
	}
}

// decodeExecute fetches and runs exactly one instruction, honoring any
// DD/FD prefix chain, and returns its T-state cost.
func (c *CPU) decodeExecute() (int, error) {
	x := &ctx{c: c}
	// The per-instruction costs below already include their own opcode
	// fetches; only DD/FD prefix bytes add 4 T-states each here.
	t := 0
	op := c.fetch8()
	c.bumpR(1)

	for op == 0xDD || op == 0xFD {
		if op == 0xDD {
			x.ix = 1
		} else {
			x.ix = 2
		}
		x.dispFetched = false
		op = c.fetch8()
		c.bumpR(1)
		t += 4
	}

	if op == 0xCB {
		if x.ix != 0 {
			return t + c.execDDFDCB(x), nil
		}
		op = c.fetch8()
		c.bumpR(1)
		return t + c.execCB(op), nil
	}

	if op == 0xED {
		op = c.fetch8()
		c.bumpR(1)
		tt, err := c.execED(op)
		return t + tt, err
	}

	tt, err := c.execBase(op, x)
	return t + tt, err
}

func (c *CPU) execCB(op uint8) int {
	xx := op >> 6
	y := (op >> 3) & 0x07
	z := op & 0x07
	x := &ctx{c: c}

	switch xx {
	case 0:
		v := c.rotOp(y, x.readR(z))
		x.writeR(z, v)
		if z == 6 {
			return 15
		}
		return 8
	case 1:
		v := x.readR(z)
		c.bitTest(v, y, v)
		if z == 6 {
			return 12
		}
		return 8
	case 2:
		v := x.readR(z) &^ (1 << y)
		x.writeR(z, v)
		if z == 6 {
			return 15
		}
		return 8
	default:
		v := x.readR(z) | (1 << y)
		x.writeR(z, v)
		if z == 6 {
			return 15
		}
		return 8
	}
}

// execDDFDCB executes a DDCB/FDCB-form instruction: displacement, then
// opcode, always operating on (IX+d)/(IY+d). The real chip also copies the
// result into an r[z] != 6 register as an undocumented side effect; that
// copy-back is intentionally not modeled here.
func (c *CPU) execDDFDCB(x *ctx) int {
	x.fetchDisp()
	op := c.fetch8()
	xx := op >> 6
	y := (op >> 3) & 0x07

	addr := x.hlAddr()
	v := c.Mem.Read(addr)

	switch xx {
	case 0:
		c.Mem.Write(addr, c.rotOp(y, v))
	case 1:
		c.bitTest(v, y, uint8(addr>>8))
	case 2:
		c.Mem.Write(addr, v&^(1<<y))
	default:
		c.Mem.Write(addr, v|(1<<y))
	}
	return 20
}

func (c *CPU) execBase(op uint8, x *ctx) (int, error) {
	xx := op >> 6
	y := (op >> 3) & 0x07
	z := op & 0x07
	p := y >> 1
	q := y & 1

	switch xx {
	case 0:
		return c.execBaseX0(op, x, y, z, p, q)
	case 1:
		if y == 6 && z == 6 {
			c.Halted = true
			return 4, nil
		}
		x.writeR(y, x.readR(z))
		if y == 6 || z == 6 {
			return 7, nil
		}
		return 4, nil
	case 2:
		v := x.readR(z)
		c.aluOp(y, v)
		if z == 6 {
			return 7, nil
		}
		return 4, nil
	default:
		return c.execBaseX3(op, x, y, z, p, q)
	}
}

func (c *CPU) execBaseX0(op uint8, x *ctx, y, z, p, q uint8) (int, error) {
	switch z {
	case 0:
		switch {
		case y == 0:
			return 4, nil // NOP
		case y == 1:
			c.ExAF()
			return 4, nil
		case y == 2:
			c.B--
			d := int8FromByte(c.fetch8())
			if c.B != 0 {
				c.PC = uint16(int32(c.PC) + int32(d))
				return 13, nil
			}
			return 8, nil
		case y == 3:
			d := int8FromByte(c.fetch8())
			c.PC = uint16(int32(c.PC) + int32(d))
			return 12, nil
		default:
			d := int8FromByte(c.fetch8())
			if c.condTrue(y - 4) {
				c.PC = uint16(int32(c.PC) + int32(d))
				return 12, nil
			}
			return 7, nil
		}
	case 1:
		if q == 0 {
			x.setRP(p, c.fetch16())
			return 10, nil
		}
		x.setHLValue(c.add16(x.hlValue(), x.getRP(p)))
		return 11, nil
	case 2:
		switch {
		case q == 0 && p == 0:
			c.Mem.Write(c.BC(), c.A)
			return 7, nil
		case q == 0 && p == 1:
			c.Mem.Write(c.DE(), c.A)
			return 7, nil
		case q == 0 && p == 2:
			addr := c.fetch16()
			c.Mem.Write16(addr, x.hlValue())
			return 16, nil
		case q == 0:
			addr := c.fetch16()
			c.Mem.Write(addr, c.A)
			return 13, nil
		case q == 1 && p == 0:
			c.A = c.Mem.Read(c.BC())
			return 7, nil
		case q == 1 && p == 1:
			c.A = c.Mem.Read(c.DE())
			return 7, nil
		case q == 1 && p == 2:
			addr := c.fetch16()
			x.setHLValue(c.Mem.Read16(addr))
			return 16, nil
		default:
			addr := c.fetch16()
			c.A = c.Mem.Read(addr)
			return 13, nil
		}
	case 3:
		if q == 0 {
			x.setRP(p, x.getRP(p)+1)
		} else {
			x.setRP(p, x.getRP(p)-1)
		}
		return 6, nil
	case 4:
		if y == 6 {
			addr := x.hlAddr()
			c.Mem.Write(addr, c.inc8(c.Mem.Read(addr)))
			return 11, nil
		}
		x.writeR(y, c.inc8(x.readR(y)))
		return 4, nil
	case 5:
		if y == 6 {
			addr := x.hlAddr()
			c.Mem.Write(addr, c.dec8(c.Mem.Read(addr)))
			return 11, nil
		}
		x.writeR(y, c.dec8(x.readR(y)))
		return 4, nil
	case 6:
		if y == 6 {
			addr := x.hlAddr()
			n := c.fetch8()
			c.Mem.Write(addr, n)
			return 10, nil
		}
		n := c.fetch8()
		x.writeR(y, n)
		return 7, nil
	default:
		switch y {
		case 0:
			c.A = (c.A << 1) | (c.A >> 7)
			c.F = (c.F & (FlagP | FlagZ | FlagS)) | (c.A & (FlagC | Flag3 | Flag5))
		case 1:
			c.F = (c.F & (FlagP | FlagZ | FlagS)) | (c.A & FlagC)
			c.A = (c.A >> 1) | (c.A << 7)
			c.F |= c.A & (Flag3 | Flag5)
		case 2:
			old := c.A
			c.A = (c.A << 1) | (c.F & FlagC)
			c.F = (c.F & (FlagP | FlagZ | FlagS)) | (c.A & (Flag3 | Flag5)) | (old >> 7)
		case 3:
			old := c.A
			c.A = (c.A >> 1) | (c.F << 7)
			c.F = (c.F & (FlagP | FlagZ | FlagS)) | (c.A & (Flag3 | Flag5)) | (old & FlagC)
		case 4:
			c.daa()
		case 5:
			c.A ^= 0xFF
			c.F = (c.F & (FlagC | FlagP | FlagZ | FlagS)) | (c.A & (Flag3 | Flag5)) | FlagN | FlagH
		case 6:
			c.F = (c.F & (FlagP | FlagZ | FlagS)) | (c.A & (Flag3 | Flag5)) | FlagC
		default:
			oldC := c.F & FlagC
			c.F = (c.F & (FlagP | FlagZ | FlagS)) | (c.A & (Flag3 | Flag5))
			if oldC != 0 {
				c.F |= FlagH
			} else {
				c.F |= FlagC
			}
		}
		return 4, nil
	}
}

func (c *CPU) execBaseX3(op uint8, x *ctx, y, z, p, q uint8) (int, error) {
	switch z {
	case 0:
		if c.condTrue(y) {
			c.PC = c.pop16()
			return 11, nil
		}
		return 5, nil
	case 1:
		switch {
		case q == 0:
			x.setRP2(p, c.pop16())
			return 10, nil
		case p == 0:
			c.PC = c.pop16()
			return 10, nil
		case p == 1:
			c.Exx()
			return 4, nil
		case p == 2:
			c.PC = x.hlValue()
			return 4, nil
		default:
			c.SP = x.hlValue()
			return 6, nil
		}
	case 2:
		addr := c.fetch16()
		if c.condTrue(y) {
			c.PC = addr
		}
		return 10, nil
	case 3:
		switch y {
		case 0:
			c.PC = c.fetch16()
			return 10, nil
		case 1:
			// handled by caller (CB prefix consumed earlier); unreachable
			return 4, nil
		case 2:
			port := c.fetch8()
			c.IO.Out(port, c.A)
			return 11, nil
		case 3:
			port := c.fetch8()
			c.A = c.IO.In(port)
			return 11, nil
		case 4:
			addr := c.SP
			v := c.Mem.Read16(addr)
			c.Mem.Write16(addr, x.hlValue())
			x.setHLValue(v)
			return 19, nil
		case 5:
			c.D, c.H = c.H, c.D
			c.E, c.L = c.L, c.E
			return 4, nil
		case 6:
			c.IFF1, c.IFF2 = false, false
			return 4, nil
		default:
			c.IFF1, c.IFF2 = true, true
			return 4, nil
		}
	case 4:
		addr := c.fetch16()
		if c.condTrue(y) {
			c.push16(c.PC)
			c.PC = addr
			return 17, nil
		}
		return 10, nil
	case 5:
		switch {
		case q == 0:
			c.push16(x.getRP2(p))
			return 11, nil
		case p == 0:
			addr := c.fetch16()
			c.push16(c.PC)
			c.PC = addr
			return 17, nil
		default:
			// p==1 DD, p==2 ED, p==3 FD: unreachable, consumed as prefixes
			return 4, nil
		}
	case 6:
		n := c.fetch8()
		c.aluOp(y, n)
		return 7, nil
	default:
		c.push16(c.PC)
		c.PC = uint16(y) * 8
		return 11, nil
	}
}
