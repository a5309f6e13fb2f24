package transports

import (
	"bytes"
	"testing"

	"github.com/hipsterbrown/chassis-comm/bridge"
	"github.com/hipsterbrown/chassis-comm/console"
)

func TestSimBridge_ResetAck(t *testing.T) {
	sim := NewSimBridge()
	chip := bridge.NewChip("sim", sim)

	sim.SetDTR(true)
	sim.SetDTR(false)
	if err := chip.ReadAck(); err != nil {
		t.Fatal(err)
	}
	if sim.Resets() != 1 {
		t.Fatalf("Resets = %d", sim.Resets())
	}
}

func TestSimBridge_RegisterFile(t *testing.T) {
	sim := NewSimBridge()
	chip := bridge.NewChip("sim", sim)
	f := NewRegisterFile(1)
	f.Set(0x2A, 0x10, 0x00)
	sim.Attach(0x2C, f)

	got, err := chip.ReadAfterWrite(0x2C, []byte{0x2A}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{0x10, 0x00}) {
		t.Fatalf("read % X", got)
	}

	if err := chip.WriteBytes(0x2C, []byte{0x32, 0xFF}); err != nil {
		t.Fatal(err)
	}
	if f.Get(0x32) != 0xFF || f.Writes() != 1 {
		t.Fatalf("register 0x32 = 0x%02X, writes %d", f.Get(0x32), f.Writes())
	}
}

func TestSimBridge_TwoBytePointer(t *testing.T) {
	sim := NewSimBridge()
	chip := bridge.NewChip("sim", sim)
	f := NewRegisterFile(2)
	sim.Attach(0x50, f)

	if err := chip.WriteBytes(0x50, []byte{0x01, 0x02, 0xAB, 0xCD}); err != nil {
		t.Fatal(err)
	}
	if f.Get(0x0102) != 0xAB || f.Get(0x0103) != 0xCD {
		t.Fatal("two-byte pointer write misplaced")
	}
}

func TestSimBridge_MissingDeviceNacks(t *testing.T) {
	sim := NewSimBridge()
	chip := bridge.NewChip("sim", sim)

	if err := chip.WriteBytes(0x40, []byte{0x00}); !bridge.IsI2CError(err) {
		t.Fatalf("write err = %v", err)
	}
	if _, err := chip.ReadBytes(0x40, 1); !bridge.IsI2CError(err) {
		t.Fatalf("read err = %v", err)
	}
}

func TestSimBridge_Segments(t *testing.T) {
	sim := NewSimBridge()
	chip := bridge.NewChip("sim", sim)
	a, b := NewRegisterFile(1), NewRegisterFile(1)
	a.Set(0x00, 0x11)
	b.Set(0x00, 0x22)
	sim.AttachSegment(0x58, 1, a)
	sim.AttachSegment(0x58, 2, b)

	if _, err := chip.ReadAfterWrite(0x58, []byte{0x00}, 1); !bridge.IsI2CError(err) {
		t.Fatalf("disconnected segment err = %v", err)
	}
	for code, want := range map[byte]byte{1: 0x11, 2: 0x22} {
		if err := chip.WriteGPIO(code); err != nil {
			t.Fatal(err)
		}
		got, err := chip.ReadAfterWrite(0x58, []byte{0x00}, 1)
		if err != nil {
			t.Fatal(err)
		}
		if got[0] != want {
			t.Errorf("segment %d read 0x%02X", code, got[0])
		}
	}
}

func TestSimBridge_BaudMismatchDropsCommands(t *testing.T) {
	sim := NewSimBridge()
	chip := bridge.NewChip("sim", sim)
	sim.SetBaudRate(115200)
	if _, err := chip.ReadGPIO(); !bridge.IsTimeout(err) {
		t.Fatalf("err = %v", err)
	}

	sim.SetBaudRate(9600)
	if err := chip.WriteRegisters(bridge.BaudDivisor(115200)...); err != nil {
		t.Fatal(err)
	}
	sim.SetBaudRate(115200)
	if _, err := chip.ReadGPIO(); err != nil {
		t.Fatalf("after baud change: %v", err)
	}
}

func TestSimBridge_GPIOFaults(t *testing.T) {
	sim := NewSimBridge()
	chip := bridge.NewChip("sim", sim)

	sim.FailGPIOReads(1)
	if _, err := chip.ReadGPIO(); !bridge.IsTimeout(err) {
		t.Fatalf("err = %v", err)
	}

	sim.StickGPIO(0x01)
	if err := chip.WriteGPIO(0x03); err != nil {
		t.Fatal(err)
	}
	if v, _ := chip.ReadGPIO(); v != 0x02 {
		t.Fatalf("gpio = 0x%02X", v)
	}
}

func TestSimBridge_DriveInputs(t *testing.T) {
	sim := NewSimBridge()
	chip := bridge.NewChip("sim", sim)
	level := byte(0)
	sim.DriveInputs(0xC0, func() byte {
		level ^= 0x40
		return level
	})

	if err := chip.WriteGPIO(0x05); err != nil {
		t.Fatal(err)
	}
	for _, want := range []byte{0x45, 0x05} {
		if v, err := chip.ReadGPIO(); err != nil || v != want {
			t.Fatalf("gpio = 0x%02X (%v), want 0x%02X", v, err, want)
		}
	}
}

func TestSimBridge_ServerMode(t *testing.T) {
	sim := NewSimBridge()
	sim.SetGPIO(0x04)
	var gotSlot int
	sim.SetServer(func(slot int, req []byte) []byte {
		gotSlot = slot
		return EchoServer(slot, req)
	})
	sim.SetRTS(true)

	req := console.Message{Dst: 0x20, NetFn: 0x06, Src: 0x81, Seq: 0x09, Cmd: 0x01}.Marshal()
	sim.Write([]byte("hi"))
	sim.Write(console.Encode(req))

	frame, err := console.NewDecoder(sim).ReadFrame(0x09)
	if err != nil {
		t.Fatal(err)
	}
	m, err := console.Parse(frame)
	if err != nil {
		t.Fatal(err)
	}
	if gotSlot != 5 || m.NetFn != 0x07 || m.Data[0] != 0x00 {
		t.Fatalf("slot %d response %+v", gotSlot, m)
	}
	if string(sim.ConsoleBytes(5)) != "hi" {
		t.Fatalf("console bytes %q", sim.ConsoleBytes(5))
	}
}

func TestMockTransport_ControlLines(t *testing.T) {
	m := &MockTransport{ReadData: []byte{0x01}}
	m.SetDTR(true)
	m.SetDTR(false)
	m.SetRTS(true)
	m.SetBaudRate(115200)
	if m.DTRPulses != 1 || !m.RTS || m.BaudRate != 115200 {
		t.Fatalf("mock state %+v", m)
	}
	buf := make([]byte, 4)
	if n, _ := m.Read(buf); n != 1 {
		t.Fatalf("first read %d", n)
	}
	if n, err := m.Read(buf); n != 0 || err != nil {
		t.Fatalf("second read %d, %v", n, err)
	}
}
