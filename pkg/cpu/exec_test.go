package cpu

import "testing"

// TestFlagTables verifies the precomputed tables match expected values.
func TestFlagTables(t *testing.T) {
	if szTable[0]&FlagZ == 0 {
		t.Error("szTable[0] should have Z flag")
	}
	if szpTable[0]&FlagZ == 0 {
		t.Error("szpTable[0] should have Z flag")
	}
	if szTable[0x80]&FlagS == 0 {
		t.Error("szTable[0x80] should have S flag")
	}
	if szpTable[0]&FlagP == 0 {
		t.Error("szpTable[0] should have P flag (even parity)")
	}
	if szpTable[1]&FlagP != 0 {
		t.Error("szpTable[1] should NOT have P flag (odd parity)")
	}
	if szpTable[0xFF]&FlagP == 0 {
		t.Error("szpTable[0xFF] should have P flag")
	}
	if szTable[0xFF]&FlagP != 0 {
		t.Error("szTable must not carry parity")
	}
}

// TestAddFlags verifies ADD A flag behavior for key cases.
func TestAddFlags(t *testing.T) {
	tests := []struct {
		a, val       uint8
		wantA        uint8
		wantCarry    bool
		wantZero     bool
		wantSign     bool
		wantHalf     bool
		wantOverflow bool
	}{
		{0, 0, 0, false, true, false, false, false},
		{1, 1, 2, false, false, false, false, false},
		{0xFF, 1, 0, true, true, false, true, false},
		{0x0F, 1, 0x10, false, false, false, true, false},
		{0x7F, 1, 0x80, false, false, true, true, true}, // pos + pos = neg
		{0x80, 0x80, 0, true, true, false, false, true}, // neg + neg = pos
	}

	for _, tc := range tests {
		c := &CPU{}
		c.A = tc.a
		c.add8(tc.val, 0)

		if c.A != tc.wantA {
			t.Errorf("ADD %02X+%02X: got A=%02X, want %02X", tc.a, tc.val, c.A, tc.wantA)
		}
		if (c.F&FlagC != 0) != tc.wantCarry {
			t.Errorf("ADD %02X+%02X: carry=%v, want %v", tc.a, tc.val, c.F&FlagC != 0, tc.wantCarry)
		}
		if (c.F&FlagZ != 0) != tc.wantZero {
			t.Errorf("ADD %02X+%02X: zero=%v, want %v", tc.a, tc.val, c.F&FlagZ != 0, tc.wantZero)
		}
		if (c.F&FlagS != 0) != tc.wantSign {
			t.Errorf("ADD %02X+%02X: sign=%v, want %v", tc.a, tc.val, c.F&FlagS != 0, tc.wantSign)
		}
		if (c.F&FlagH != 0) != tc.wantHalf {
			t.Errorf("ADD %02X+%02X: half=%v, want %v", tc.a, tc.val, c.F&FlagH != 0, tc.wantHalf)
		}
		if (c.F&FlagV != 0) != tc.wantOverflow {
			t.Errorf("ADD %02X+%02X: overflow=%v, want %v", tc.a, tc.val, c.F&FlagV != 0, tc.wantOverflow)
		}
	}
}

// TestAdcCarryIn verifies the incoming carry participates in both the sum
// and the half-carry.
func TestAdcCarryIn(t *testing.T) {
	c := &CPU{}
	c.A = 0x0F
	c.F = FlagC
	c.add8(0x00, c.F&FlagC)
	if c.A != 0x10 {
		t.Errorf("ADC 0F+00+carry: got A=%02X, want 10", c.A)
	}
	if c.F&FlagH == 0 {
		t.Error("ADC 0F+00+carry should set H")
	}
}

// TestSubFlags verifies SUB flag behavior.
func TestSubFlags(t *testing.T) {
	tests := []struct {
		a, val    uint8
		wantA     uint8
		wantCarry bool
		wantN     bool
	}{
		{5, 3, 2, false, true},
		{0, 1, 0xFF, true, true},     // borrow
		{0x80, 1, 0x7F, false, true}, // overflow case
	}

	for _, tc := range tests {
		c := &CPU{}
		c.A = tc.a
		c.sub8(tc.val, 0)
		if c.A != tc.wantA {
			t.Errorf("SUB %02X-%02X: got A=%02X, want %02X", tc.a, tc.val, c.A, tc.wantA)
		}
		if (c.F&FlagC != 0) != tc.wantCarry {
			t.Errorf("SUB %02X-%02X: carry=%v, want %v", tc.a, tc.val, c.F&FlagC != 0, tc.wantCarry)
		}
		if (c.F&FlagN != 0) != tc.wantN {
			t.Errorf("SUB %02X-%02X: N=%v, want %v", tc.a, tc.val, c.F&FlagN != 0, tc.wantN)
		}
	}
}

// TestAndOrXor verifies logic operations set flags correctly.
func TestAndOrXor(t *testing.T) {
	c := &CPU{}
	c.A = 0xFF
	c.and8(0x0F)
	if c.A != 0x0F {
		t.Errorf("AND: got A=%02X, want 0F", c.A)
	}
	if c.F&FlagH == 0 {
		t.Error("AND should set H")
	}
	if c.F&FlagN != 0 || c.F&FlagC != 0 {
		t.Error("AND should clear N and C")
	}

	c = &CPU{}
	c.A = 0xF0
	c.or8(0x0F)
	if c.A != 0xFF {
		t.Errorf("OR: got A=%02X, want FF", c.A)
	}
	if c.F&FlagP == 0 {
		t.Error("OR 0xFF result has even parity, P should be set")
	}

	c = &CPU{}
	c.A = 0xAA
	c.xor8(0xAA)
	if c.A != 0 {
		t.Errorf("XOR: got A=%02X, want 00", c.A)
	}
	if c.F&FlagZ == 0 {
		t.Error("XOR to zero should set Z")
	}
}

// TestCpPreservesA verifies CP computes subtraction flags without writing A.
func TestCpPreservesA(t *testing.T) {
	c := &CPU{}
	c.A = 0x42
	c.compare(0x42)
	if c.A != 0x42 {
		t.Errorf("CP changed A to %02X", c.A)
	}
	if c.F&FlagZ == 0 {
		t.Error("CP equal values should set Z")
	}
	if c.F&FlagN == 0 {
		t.Error("CP should set N")
	}

	c.A = 0x10
	c.compare(0x20)
	if c.F&FlagC == 0 {
		t.Error("CP with borrow should set C")
	}
}

// TestIncDecFlags verifies INC/DEC set H and P/V (overflow at the signed
// boundary) and leave C alone.
func TestIncDecFlags(t *testing.T) {
	c := &CPU{}
	c.F = FlagC
	v := c.inc8(0x7F)
	if v != 0x80 {
		t.Errorf("INC 7F: got %02X, want 80", v)
	}
	if c.F&FlagV == 0 {
		t.Error("INC 7F->80 should set overflow")
	}
	if c.F&FlagH == 0 {
		t.Error("INC 7F->80 should set half-carry")
	}
	if c.F&FlagS == 0 {
		t.Error("INC 7F->80 should set sign")
	}
	if c.F&FlagC == 0 {
		t.Error("INC must not touch carry")
	}

	c = &CPU{}
	v = c.dec8(0x80)
	if v != 0x7F {
		t.Errorf("DEC 80: got %02X, want 7F", v)
	}
	if c.F&FlagV == 0 {
		t.Error("DEC 80->7F should set overflow")
	}
	if c.F&FlagH == 0 {
		t.Error("DEC 80->7F should set half-borrow")
	}
	if c.F&FlagN == 0 {
		t.Error("DEC should set N")
	}

	c = &CPU{}
	c.dec8(0x01)
	if c.F&FlagZ == 0 {
		t.Error("DEC 01->00 should set Z")
	}
}

// TestDaa adjusts a BCD sum: 15 + 27 = 42 in packed BCD.
func TestDaa(t *testing.T) {
	c := &CPU{}
	c.A = 0x15
	c.add8(0x27, 0) // binary 0x3C
	c.daa()
	if c.A != 0x42 {
		t.Errorf("DAA after 15+27: got A=%02X, want 42", c.A)
	}
	if c.F&FlagC != 0 {
		t.Error("DAA of in-range sum should not carry")
	}

	c = &CPU{}
	c.A = 0x99
	c.add8(0x01, 0) // binary 0x9A
	c.daa()
	if c.A != 0x00 {
		t.Errorf("DAA after 99+01: got A=%02X, want 00", c.A)
	}
	if c.F&FlagC == 0 {
		t.Error("DAA wrapping past 99 should set carry")
	}
}

// TestRotateHelpers verifies the CB-page shift/rotate core: carry from the
// rotated-out bit and parity of the result.
func TestRotateHelpers(t *testing.T) {
	c := &CPU{}
	if v := c.rlc8(0x80); v != 0x01 {
		t.Errorf("RLC 80: got %02X, want 01", v)
	}
	if c.F&FlagC == 0 {
		t.Error("RLC 80 should set carry")
	}
	if c.F&FlagP != 0 {
		t.Error("RLC result 01 has odd parity, P should be clear")
	}

	c = &CPU{}
	if v := c.srl8(0x01); v != 0x00 {
		t.Errorf("SRL 01: got %02X, want 00", v)
	}
	if c.F&FlagC == 0 || c.F&FlagZ == 0 {
		t.Error("SRL 01 should set carry and zero")
	}

	c = &CPU{}
	if v := c.sra8(0x81); v != 0xC0 {
		t.Errorf("SRA 81: got %02X, want C0 (sign preserved)", v)
	}
	if c.F&FlagC == 0 {
		t.Error("SRA 81 should set carry from bit 0")
	}

	c = &CPU{}
	c.F = FlagC
	if v := c.rl8(0x00); v != 0x01 {
		t.Errorf("RL 00 with carry in: got %02X, want 01", v)
	}
}

// TestAddHL16 verifies ADD HL,ss touches only H, N, C.
func TestAddHL16(t *testing.T) {
	c := &CPU{}
	c.F = FlagZ | FlagS
	r := c.add16(0x0FFF, 0x0001)
	if r != 0x1000 {
		t.Errorf("ADD HL 0FFF+0001: got %04X, want 1000", r)
	}
	if c.F&FlagH == 0 {
		t.Error("carry out of bit 11 should set H")
	}
	if c.F&FlagC != 0 {
		t.Error("no carry out of bit 15, C should be clear")
	}
	if c.F&FlagZ == 0 || c.F&FlagS == 0 {
		t.Error("ADD HL must preserve S and Z")
	}

	c = &CPU{}
	if r := c.add16(0xFFFF, 0x0001); r != 0 {
		t.Errorf("ADD HL FFFF+0001: got %04X, want 0000", r)
	} else if c.F&FlagC == 0 {
		t.Error("carry out of bit 15 should set C")
	}
}

// TestAdcSbcHL16 verifies the fully flagged ED-prefixed 16-bit forms.
func TestAdcSbcHL16(t *testing.T) {
	c := &CPU{}
	r := c.adc16(0xFFFF, 0x0001)
	if r != 0 {
		t.Errorf("ADC HL FFFF+0001: got %04X, want 0000", r)
	}
	if c.F&FlagC == 0 || c.F&FlagZ == 0 {
		t.Error("ADC HL FFFF+0001 should set C and Z")
	}
	if c.F&FlagS != 0 || c.F&FlagV != 0 {
		t.Error("ADC HL FFFF+0001 should clear S and V")
	}

	c = &CPU{}
	r = c.adc16(0x7FFF, 0x0001)
	if r != 0x8000 {
		t.Errorf("ADC HL 7FFF+0001: got %04X, want 8000", r)
	}
	if c.F&FlagV == 0 || c.F&FlagS == 0 {
		t.Error("ADC HL 7FFF+0001 should set V and S")
	}

	c = &CPU{}
	r = c.sbc16(0x1234, 0x1234)
	if r != 0 {
		t.Errorf("SBC HL equal: got %04X, want 0000", r)
	}
	if c.F&FlagZ == 0 || c.F&FlagN == 0 {
		t.Error("SBC HL equal should set Z and N")
	}
	if c.F&FlagC != 0 {
		t.Error("SBC HL equal should clear C")
	}

	c = &CPU{}
	r = c.sbc16(0x0000, 0x0001)
	if r != 0xFFFF {
		t.Errorf("SBC HL 0-1: got %04X, want FFFF", r)
	}
	if c.F&FlagC == 0 {
		t.Error("SBC HL 0-1 should borrow")
	}
}

// TestBit verifies BIT's Z-from-complement rule and fixed H/N.
func TestBit(t *testing.T) {
	c := &CPU{}
	c.F = FlagC
	c.bitTest(0x80, 7, 0x80)
	if c.F&FlagZ != 0 {
		t.Error("BIT 7 of 0x80: bit set, Z should be clear")
	}
	if c.F&FlagS == 0 {
		t.Error("BIT 7 of a set top bit should show S")
	}
	if c.F&FlagH == 0 {
		t.Error("BIT should set H")
	}
	if c.F&FlagC == 0 {
		t.Error("BIT should preserve C")
	}

	c.bitTest(0x80, 0, 0x80)
	if c.F&FlagZ == 0 {
		t.Error("BIT 0 of 0x80: bit clear, Z should be set")
	}
}
