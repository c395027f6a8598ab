package cpu

// execED decodes and runs an ED-prefixed instruction. Unrecognized ED
// opcodes (the bulk of 0x00-0x3F and 0xA0-0xFF outside the block-op rows)
// behave as an 8 T-state NOP on real hardware, so that's the default case.
func (c *CPU) execED(op uint8) (int, error) {
	xx := op >> 6
	y := (op >> 3) & 0x07
	z := op & 0x07
	p := y >> 1
	q := y & 1

	switch {
	case xx == 1:
		return c.execEDx1(y, z, p, q)
	case xx == 2 && y >= 4 && z <= 3:
		return c.execEDBlock(y, z), nil
	default:
		if c.Logf != nil {
			c.Logf("ignoring unknown ED sub-opcode %02Xh at %04Xh", op, c.PC-2)
		}
		return 8, nil
	}
}

func (c *CPU) execEDx1(y, z, p, q uint8) (int, error) {
	switch z {
	case 0:
		if y == 6 {
			v := c.IO.In(c.C)
			c.setINFlags(v)
			return 12, nil
		}
		v := c.IO.In(c.C)
		x := &ctx{c: c}
		x.writeR(y, v)
		c.setINFlags(v)
		return 12, nil
	case 1:
		if y == 6 {
			c.IO.Out(c.C, 0)
			return 12, nil
		}
		x := &ctx{c: c}
		c.IO.Out(c.C, x.readR(y))
		return 12, nil
	case 2:
		x := &ctx{c: c}
		hl := c.HL()
		if q == 0 {
			c.SetHL(c.sbc16(hl, x.getRP(p)))
		} else {
			c.SetHL(c.adc16(hl, x.getRP(p)))
		}
		return 15, nil
	case 3:
		x := &ctx{c: c}
		addr := c.fetch16()
		if q == 0 {
			c.Mem.Write16(addr, x.getRP(p))
		} else {
			x.setRP(p, c.Mem.Read16(addr))
		}
		return 20, nil
	case 4:
		old := c.A
		c.A = 0
		c.sub8(old, 0)
		return 8, nil
	case 5:
		c.IFF1 = c.IFF2
		c.Halted = false
		c.PC = c.pop16()
		return 14, nil
	case 6:
		imTable := [8]uint8{0, 0, 1, 2, 0, 0, 1, 2}
		c.IM = imTable[y]
		return 8, nil
	default:
		switch y {
		case 0:
			c.I = c.A
		case 1:
			c.R = c.A
		case 2:
			c.A = c.I
			c.F = (c.F & FlagC) | szTable[c.A]
			if c.IFF2 {
				c.F |= FlagP
			}
		case 3:
			c.A = c.R
			c.F = (c.F & FlagC) | szTable[c.A]
			if c.IFF2 {
				c.F |= FlagP
			}
		case 4:
			c.rrd()
		case 5:
			c.rld()
		}
		return 9, nil
	}
}

func (c *CPU) setINFlags(v uint8) {
	c.F = (c.F & FlagC) | szpTable[v]
}

func (c *CPU) rld() {
	addr := c.HL()
	val := c.Mem.Read(addr)
	newA := (c.A & 0xF0) | (val >> 4)
	newVal := (val << 4) | (c.A & 0x0F)
	c.Mem.Write(addr, newVal)
	c.A = newA
	c.F = (c.F & FlagC) | szpTable[c.A]
}

func (c *CPU) rrd() {
	addr := c.HL()
	val := c.Mem.Read(addr)
	newA := (c.A & 0xF0) | (val & 0x0F)
	newVal := (c.A << 4) | (val >> 4)
	c.Mem.Write(addr, newVal)
	c.A = newA
	c.F = (c.F & FlagC) | szpTable[c.A]
}

// execEDBlock implements LDI/LDD/LDIR/LDDR, CPI/CPD/CPIR/CPDR,
// INI/IND/INIR/INDR and OUTI/OUTD/OTIR/OTDR. y selects the family (4=single
// transfer, 5=single reverse, 6=repeating, 7=repeating reverse); z selects
// the operation (0=LD,1=CP,2=IN,3=OUT).
func (c *CPU) execEDBlock(y, z uint8) int {
	dir := int16(1)
	repeat := false
	switch y {
	case 5:
		dir = -1
	case 6:
		repeat = true
	case 7:
		dir = -1
		repeat = true
	}

	var t int
	switch z {
	case 0:
		t = c.blockLD(dir)
	case 1:
		t = c.blockCP(dir)
	case 2:
		t = c.blockIN(dir)
	default:
		t = c.blockOUT(dir)
	}

	if repeat && !c.blockDone(z) {
		c.PC -= 2
		return t + 5
	}
	return t
}

// blockDone reports whether the repeating condition has been satisfied:
// BC==0 for LD, B==0 for IN/OUT (B is their byte count), or BC==0 or a
// match for CP (CPIR/CPDR stop on BC==0 or A==(HL); the caller already
// decremented BC, so this just re-reads it alongside the Z flag CPI/CPD
// just set).
func (c *CPU) blockDone(z uint8) bool {
	if z >= 2 {
		return c.B == 0
	}
	if c.BC() == 0 {
		return true
	}
	if z == 1 {
		return c.F&FlagZ != 0
	}
	return false
}

func (c *CPU) blockLD(dir int16) int {
	hl, de := c.HL(), c.DE()
	val := c.Mem.Read(hl)
	c.Mem.Write(de, val)
	c.SetHL(uint16(int32(hl) + int32(dir)))
	c.SetDE(uint16(int32(de) + int32(dir)))
	c.SetBC(c.BC() - 1)

	n := val + c.A
	f := (c.F & (FlagS | FlagZ | FlagC)) | (n & Flag3)
	if c.BC() != 0 {
		f |= FlagP
	}
	if n&0x02 != 0 {
		f |= Flag5
	}
	c.F = f
	return 16
}

func (c *CPU) blockCP(dir int16) int {
	hl := c.HL()
	val := c.Mem.Read(hl)
	c.SetHL(uint16(int32(hl) + int32(dir)))
	c.SetBC(c.BC() - 1)

	r := c.A - val
	h := halfCarry(c.A, val, r)
	n := r
	if h != 0 {
		n--
	}
	f := (c.F & FlagC) | FlagN | (szTable[r] & (FlagS | FlagZ)) | h | (n & Flag3)
	if c.BC() != 0 {
		f |= FlagP
	}
	if n&0x02 != 0 {
		f |= Flag5
	}
	c.F = f
	return 16
}

func (c *CPU) blockIN(dir int16) int {
	val := c.IO.In(c.C)
	hl := c.HL()
	c.Mem.Write(hl, val)
	c.SetHL(uint16(int32(hl) + int32(dir)))
	c.B--

	k := uint16(val) + uint16((uint16(c.C)+uint16(dir))&0xFF)
	c.F = c.blockIOFlags(val, k)
	return 16
}

func (c *CPU) blockOUT(dir int16) int {
	hl := c.HL()
	val := c.Mem.Read(hl)
	c.SetHL(uint16(int32(hl) + int32(dir)))
	c.B--
	c.IO.Out(c.C, val)

	k := uint16(val) + uint16(c.L)
	c.F = c.blockIOFlags(val, k)
	return 16
}

// blockIOFlags assembles the INI/OUTI-family flags: S/Z from the new B,
// N from the transferred byte's top bit, H and C from the port-plus-
// pointer sum, and P from the parity of that sum folded into B.
func (c *CPU) blockIOFlags(val uint8, k uint16) uint8 {
	f := szTable[c.B]
	if val&0x80 != 0 {
		f |= FlagN
	}
	if k > 0xFF {
		f |= FlagH | FlagC
	}
	if parityEven(uint8(k&0x07) ^ c.B) {
		f |= FlagP
	}
	return f
}
