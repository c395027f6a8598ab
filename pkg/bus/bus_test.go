package bus

import "testing"

type countingSink struct{ n int }

func (s *countingSink) Interrupt() { s.n++ }

func TestDispatch(t *testing.T) {
	b := New()
	if got := b.In(0x40); got != 0xFF {
		t.Errorf("unmapped In returned %02X, want FF", got)
	}
	b.Out(0x40, 0x12) // unmapped: discarded, must not panic

	var captured uint8
	b.RegisterOut(0x10, func(v uint8) { captured = v })
	b.RegisterIn(0x20, func() uint8 { return 0x5A })

	b.Out(0x10, 0x99)
	if captured != 0x99 {
		t.Errorf("out handler saw %02X, want 99", captured)
	}
	if got := b.In(0x20); got != 0x5A {
		t.Errorf("in handler returned %02X, want 5A", got)
	}
}

func TestTriggerInterrupt(t *testing.T) {
	b := New()
	b.TriggerInterrupt() // no sink attached: must not panic

	sink := &countingSink{}
	b.AttachCPU(sink)
	b.TriggerInterrupt()
	b.TriggerInterrupt()
	if sink.n != 2 {
		t.Errorf("sink saw %d interrupts, want 2", sink.n)
	}
}

func TestLEDsAndSevenSegment(t *testing.T) {
	b := New()
	leds := &LEDs{}
	leds.Attach(b, 0x00)
	b.Out(0x00, 0b10100101)
	if leds.Get() != 0b10100101 {
		t.Errorf("LEDs captured %08b", leds.Get())
	}

	segs := &SevenSegment{}
	segs.Attach(b, 0x10)
	b.Out(0x17, 30)
	b.Out(0x10, 7)
	d := segs.Get()
	if d[7] != 30 || d[0] != 7 {
		t.Errorf("digits captured %v", d)
	}
}

func TestLCD(t *testing.T) {
	b := New()
	lcd := &LCD{}
	lcd.Attach(b, 0x20, 0x21)

	for _, ch := range []byte("HI") {
		b.Out(0x21, ch)
	}
	if lcd.Text()[:2] != "HI" {
		t.Errorf("LCD text %q", lcd.Text()[:2])
	}

	b.Out(0x20, 0x80|5) // set DDRAM cursor to 5
	b.Out(0x21, 'X')
	if lcd.Text()[5] != 'X' {
		t.Error("set-cursor command ignored")
	}

	b.Out(0x20, 0x01) // clear
	if lcd.Text()[0] != 0 || lcd.Text()[5] != 0 {
		t.Error("clear command ignored")
	}
}

func TestKeypad(t *testing.T) {
	b := New()
	k := &Keypad{}
	k.Attach(b, 0x40)
	if got := b.In(0x40); got != 0xFF {
		t.Errorf("idle keypad read %02X, want FF", got)
	}
	k.Press(9)
	if got := b.In(0x40); got != 9 {
		t.Errorf("pressed keypad read %02X, want 09", got)
	}
	if got := b.In(0x40); got != 0xFF {
		t.Errorf("key should be consumed by the first read, got %02X", got)
	}
}

func TestSwitchesAndButtons(t *testing.T) {
	b := New()
	d := &DIPSwitches{}
	d.Attach(b, 0x50)
	d.Set(3, true)
	if b.In(0x53) != 1 || b.In(0x50) != 0 {
		t.Error("DIP switch state wrong")
	}

	p := &PushButtons{}
	p.Attach(b, 0x60)
	p.SetPressed(2, true)
	if b.In(0x60) != 0b100 {
		t.Errorf("button mask %08b", b.In(0x60))
	}
	p.SetPressed(2, false)
	if b.In(0x60) != 0 {
		t.Error("button release ignored")
	}
}

func TestDotMatrixAndRTC(t *testing.T) {
	b := New()
	m := &DotMatrix{}
	m.Attach(b, 0x80)
	b.Out(0x80+2*3, 0xAA)   // row 3, columns 0-7
	b.Out(0x80+2*3+1, 0x55) // row 3, columns 8-15
	if got := m.Get()[3]; got != 0x55AA {
		t.Errorf("row 3 = %04X, want 55AA", got)
	}

	c := &RTC{}
	c.Attach(b, 0xC0)
	c.Set(13, 45, 59)
	if b.In(0xC0) != 59 || b.In(0xC1) != 45 || b.In(0xC2) != 13 {
		t.Errorf("RTC read %d:%d:%d", b.In(0xC2), b.In(0xC1), b.In(0xC0))
	}
}
