package fanctl

import (
	"errors"
	"testing"

	"periph.io/x/conn/v3/physic"
)

type fakeBus struct {
	regs   map[uint16]map[byte]byte
	writes [][]byte
	err    error
}

func (b *fakeBus) String() string                  { return "fake" }
func (b *fakeBus) SetSpeed(physic.Frequency) error { return nil }

func (b *fakeBus) Tx(addr uint16, w, r []byte) error {
	if b.err != nil {
		return b.err
	}
	if len(r) == 0 {
		b.writes = append(b.writes, append([]byte{byte(addr)}, w...))
		if b.regs[addr] == nil {
			b.regs[addr] = map[byte]byte{}
		}
		b.regs[addr][w[0]] = w[1]
		return nil
	}
	r[0] = b.regs[addr][w[0]]
	return nil
}

func TestRPM(t *testing.T) {
	tests := []struct {
		combined uint16
		want     uint32
		err      error
	}{
		{0xFFFF, 0, nil},
		{0, 0, ErrNoReading},
		{1, 5400000, nil},
		{16, 337500, nil},
		{7, 771428, nil},
		{0xFFFE, 82, nil},
	}
	for _, tt := range tests {
		got, err := RPM(tt.combined)
		if !errors.Is(err, tt.err) {
			t.Errorf("RPM(%d) err = %v, want %v", tt.combined, err, tt.err)
			continue
		}
		if got != tt.want {
			t.Errorf("RPM(%d) = %d, want %d", tt.combined, got, tt.want)
		}
	}
}

func TestScalePWM(t *testing.T) {
	tests := []struct {
		in   int
		want byte
	}{
		{0, 0},
		{1, 3},
		{50, 128},
		{99, 254},
		{100, 0xFF},
	}
	for _, tt := range tests {
		got, err := ScalePWM(tt.in)
		if err != nil {
			t.Fatalf("ScalePWM(%d): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ScalePWM(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
	for _, in := range []int{-1, 101} {
		if _, err := ScalePWM(in); !errors.Is(err, ErrPWMRange) {
			t.Errorf("ScalePWM(%d) err = %v", in, err)
		}
	}
}

func TestRegistersFor_Aliasing(t *testing.T) {
	r1, _ := RegistersFor(1)
	r5, _ := RegistersFor(5)
	if r1.Addr != AddrPrimary || r5.Addr != AddrSecondary {
		t.Fatalf("addresses %#x %#x", r1.Addr, r5.Addr)
	}
	if r1.TachLow != r5.TachLow || r1.TachHigh != r5.TachHigh || r1.PWM != r5.PWM {
		t.Fatal("fan 5 must use fan 1 registers")
	}
	r4, _ := RegistersFor(4)
	if r4.TachLow != 0x30 || r4.TachHigh != 0x31 || r4.PWM != 0x35 {
		t.Fatalf("fan 4 registers %+v", r4)
	}
	for _, id := range []int{0, 7} {
		if _, err := RegistersFor(id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("RegistersFor(%d) err = %v", id, err)
		}
	}
}

func TestController_Speed(t *testing.T) {
	bus := &fakeBus{regs: map[uint16]map[byte]byte{
		AddrPrimary:   {0x2C: 0x10, 0x2D: 0x00},
		AddrSecondary: {0x2A: 0xFF, 0x2B: 0xFF},
	}}
	c := New(bus)
	rpm, err := c.Speed(2)
	if err != nil || rpm != 337500 {
		t.Fatalf("Speed(2) = %d, %v", rpm, err)
	}
	rpm, err = c.Speed(5)
	if err != nil || rpm != 0 {
		t.Fatalf("Speed(5) = %d, %v", rpm, err)
	}
	if _, err := c.Speed(3); !errors.Is(err, ErrNoReading) {
		t.Fatalf("Speed(3) err = %v", err)
	}
}

func TestController_SetAllMax(t *testing.T) {
	bus := &fakeBus{regs: map[uint16]map[byte]byte{}}
	if err := New(bus).SetAllMax(); err != nil {
		t.Fatal(err)
	}
	if len(bus.writes) != MaxID {
		t.Fatalf("writes = %d", len(bus.writes))
	}
	if bus.regs[AddrPrimary][0x35] != 0xFF || bus.regs[AddrSecondary][0x33] != 0xFF {
		t.Fatalf("registers %v", bus.regs)
	}

	bus.err = errors.New("nack")
	if err := New(bus).SetAllMax(); err == nil {
		t.Fatal("expected error")
	}
}
