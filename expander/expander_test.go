package expander

import (
	"errors"
	"testing"

	"periph.io/x/conn/v3/physic"
)

// regBus is an in-memory bus holding one register file per address.
type regBus struct {
	regs map[uint16]map[byte]byte
	txs  int
	fail error
}

func newRegBus() *regBus {
	return &regBus{regs: map[uint16]map[byte]byte{}}
}

func (b *regBus) String() string { return "regbus" }

func (b *regBus) SetSpeed(physic.Frequency) error { return nil }

func (b *regBus) Tx(addr uint16, w, r []byte) error {
	b.txs++
	if b.fail != nil {
		return b.fail
	}
	file, ok := b.regs[addr]
	if !ok {
		file = map[byte]byte{}
		b.regs[addr] = file
	}
	if len(w) == 0 {
		return errors.New("no command byte")
	}
	cmd := w[0]
	for i, v := range w[1:] {
		file[cmd+byte(i)] = v
	}
	for i := range r {
		r[i] = file[cmd+byte(i)]
	}
	return nil
}

func TestBits(t *testing.T) {
	for bit := uint(0); bit < 8; bit++ {
		for _, v := range []byte{0x00, 0xFF, 0xA5, 0x5A} {
			if got := ClearBit(SetBit(v, bit), bit); got != v&^(1<<bit) {
				t.Errorf("clear(set(0x%02X,%d)) = 0x%02X", v, bit, got)
			}
			if got := ToggleBit(ToggleBit(v, bit), bit); got != v {
				t.Errorf("toggle twice 0x%02X,%d = 0x%02X", v, bit, got)
			}
			if !TestBit(SetBit(v, bit), bit) || TestBit(ClearBit(v, bit), bit) {
				t.Errorf("TestBit mismatch for 0x%02X,%d", v, bit)
			}
		}
	}
}

func TestMaskOff(t *testing.T) {
	lsb := []byte{0xFF, 0xFE, 0xFC, 0xF8, 0xF0, 0xE0, 0xC0, 0x80, 0x00}
	msb := []byte{0xFF, 0x7F, 0x3F, 0x1F, 0x0F, 0x07, 0x03, 0x01, 0x00}
	for n := uint(0); n <= 8; n++ {
		if got := MaskOffLSBs(0xFF, n); got != lsb[n] {
			t.Errorf("MaskOffLSBs(0xFF, %d) = 0x%02X, want 0x%02X", n, got, lsb[n])
		}
		if got := MaskOffMSBs(0xFF, n); got != msb[n] {
			t.Errorf("MaskOffMSBs(0xFF, %d) = 0x%02X, want 0x%02X", n, got, msb[n])
		}
	}
}

func TestPowerPin(t *testing.T) {
	tests := []struct {
		id   int
		addr uint16
		port int
		bit  uint
	}{
		{1, 0x20, 0, 0},
		{8, 0x20, 0, 7},
		{9, 0x20, 1, 0},
		{16, 0x20, 1, 7},
		{17, 0x21, 0, 0},
		{26, 0x21, 1, 1},
		{48, 0x22, 1, 7},
	}
	for _, tt := range tests {
		pin, err := PowerPin(tt.id)
		if err != nil {
			t.Fatalf("PowerPin(%d): %v", tt.id, err)
		}
		if pin.Addr != tt.addr || pin.Port != tt.port || pin.Bit != tt.bit {
			t.Errorf("PowerPin(%d) = %v", tt.id, pin)
		}
	}
	for _, id := range []int{0, 49} {
		if _, err := PowerPin(id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("PowerPin(%d) err = %v", id, err)
		}
	}
}

func TestSetPin_ChangesOnlyTargetBit(t *testing.T) {
	bus := newRegBus()
	bus.regs[MiscAddr] = map[byte]byte{CmdOutput + 1: 0xFF}
	d := New(bus, MiscAddr)

	// Status LED is active-low on port 1 bit 0.
	if err := d.SetPin(StatusLedPin, true); err != nil {
		t.Fatal(err)
	}
	if got := bus.regs[MiscAddr][CmdOutput+1]; got != 0xFE {
		t.Fatalf("output = 0x%02X, want 0xFE", got)
	}
	on, err := d.OutputState(StatusLedPin)
	if err != nil || !on {
		t.Fatalf("OutputState = %v, %v", on, err)
	}

	if err := d.SetPin(WatchdogEnablePin, true); err != nil {
		t.Fatal(err)
	}
	if got := bus.regs[MiscAddr][CmdOutput+1]; got != 0xFE {
		t.Fatalf("output = 0x%02X, want 0xFE", got)
	}
	if err := d.SetPin(StatusLedPin, false); err != nil {
		t.Fatal(err)
	}
	if got := bus.regs[MiscAddr][CmdOutput+1]; got != 0xFF {
		t.Fatalf("output = 0x%02X, want 0xFF", got)
	}
}

func TestInputState_FanCage(t *testing.T) {
	bus := newRegBus()
	bus.regs[FanCageAddr] = map[byte]byte{CmdInput: 0xFD}
	d := New(bus, FanCageAddr)
	for id := 1; id <= MaxFanCageID; id++ {
		pin, _ := FanCagePin(id)
		open, err := d.InputState(pin)
		if err != nil {
			t.Fatal(err)
		}
		if open != (id == 2) {
			t.Errorf("cage %d open = %v", id, open)
		}
	}
}

func TestConfigureOutputs(t *testing.T) {
	t.Run("power-on default", func(t *testing.T) {
		bus := newRegBus()
		bus.regs[0x20] = map[byte]byte{CmdConfig: 0xFF, CmdConfig + 1: 0xFF}
		ok, err := New(bus, 0x20).ConfigureOutputs()
		if err != nil || !ok {
			t.Fatalf("ConfigureOutputs = %v, %v", ok, err)
		}
		if bus.regs[0x20][CmdConfig] != 0 || bus.regs[0x20][CmdConfig+1] != 0 {
			t.Fatalf("config not written: %v", bus.regs[0x20])
		}
	})
	t.Run("already configured", func(t *testing.T) {
		bus := newRegBus()
		bus.regs[0x20] = map[byte]byte{CmdConfig: 0x00, CmdConfig + 1: 0xFF}
		ok, err := New(bus, 0x20).ConfigureOutputs()
		if err != nil || ok {
			t.Fatalf("ConfigureOutputs = %v, %v", ok, err)
		}
		if bus.regs[0x20][CmdConfig+1] != 0xFF {
			t.Fatal("config rewritten")
		}
	})
	t.Run("bus error", func(t *testing.T) {
		bus := newRegBus()
		bus.fail = errors.New("nack")
		if _, err := New(bus, 0x20).ConfigureOutputs(); err == nil {
			t.Fatal("expected error")
		}
	})
}
