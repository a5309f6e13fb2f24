package bridge

import (
	"bytes"
	"errors"
	"testing"
)

func TestWriteBytes(t *testing.T) {
	got, err := WriteBytes(0x20, []byte{0x02, 0xFF})
	if err != nil {
		t.Fatalf("WriteBytes failed: %v", err)
	}
	want := []byte{'S', 0x40, 0x02, 0x02, 0xFF, 'P'}
	if !bytes.Equal(got, want) {
		t.Errorf("WriteBytes: got %X, want %X", got, want)
	}
}

func TestReadBytes(t *testing.T) {
	got, err := ReadBytes(0x50, 4)
	if err != nil {
		t.Fatalf("ReadBytes failed: %v", err)
	}
	want := []byte{'S', 0xA1, 0x04, 'P'}
	if !bytes.Equal(got, want) {
		t.Errorf("ReadBytes: got %X, want %X", got, want)
	}
}

func TestReadAfterWrite(t *testing.T) {
	got, err := ReadAfterWrite(0x2C, []byte{0x2A}, 1)
	if err != nil {
		t.Fatalf("ReadAfterWrite failed: %v", err)
	}
	want := []byte{'S', 0x58, 0x01, 0x2A, 'S', 0x59, 0x01, 'P'}
	if !bytes.Equal(got, want) {
		t.Errorf("ReadAfterWrite: got %X, want %X", got, want)
	}
}

func TestWriteAfterWrite(t *testing.T) {
	got, err := WriteAfterWrite(0x20, []byte{0x02}, 0x21, []byte{0x03, 0x01})
	if err != nil {
		t.Fatalf("WriteAfterWrite failed: %v", err)
	}
	want := []byte{'S', 0x40, 0x01, 0x02, 'S', 0x42, 0x02, 0x03, 0x01, 'P'}
	if !bytes.Equal(got, want) {
		t.Errorf("WriteAfterWrite: got %X, want %X", got, want)
	}
}

func TestGPIOAndRegisterCommands(t *testing.T) {
	if got := ReadGPIO(); !bytes.Equal(got, []byte{'I', 'P'}) {
		t.Errorf("ReadGPIO: got %X", got)
	}
	if got := WriteGPIO(0x2A); !bytes.Equal(got, []byte{'O', 0x2A, 'P'}) {
		t.Errorf("WriteGPIO: got %X", got)
	}

	rd, err := ReadRegisters(RegI2CStat, RegIOState)
	if err != nil {
		t.Fatalf("ReadRegisters failed: %v", err)
	}
	if !bytes.Equal(rd, []byte{'R', 0x0A, 0x04, 'P'}) {
		t.Errorf("ReadRegisters: got %X", rd)
	}

	wr, err := WriteRegisters(RegValue{RegBRG0, 0x30}, RegValue{RegBRG1, 0x00})
	if err != nil {
		t.Fatalf("WriteRegisters failed: %v", err)
	}
	if !bytes.Equal(wr, []byte{'W', 0x00, 0x30, 0x01, 0x00, 'P'}) {
		t.Errorf("WriteRegisters: got %X", wr)
	}
}

func TestCommandValidation(t *testing.T) {
	tests := []struct {
		name string
		fn   func() ([]byte, error)
		want error
	}{
		{"write nil data", func() ([]byte, error) { return WriteBytes(0x20, nil) }, ErrEmptyData},
		{"write too long", func() ([]byte, error) { return WriteBytes(0x20, make([]byte, 256)) }, ErrCount},
		{"write bad address", func() ([]byte, error) { return WriteBytes(0x80, []byte{1}) }, ErrAddress},
		{"read zero", func() ([]byte, error) { return ReadBytes(0x20, 0) }, ErrCount},
		{"read after write empty", func() ([]byte, error) { return ReadAfterWrite(0x20, nil, 1) }, ErrEmptyData},
		{"read after write zero read", func() ([]byte, error) { return ReadAfterWrite(0x20, []byte{1}, 0) }, ErrCount},
		{"write after write empty", func() ([]byte, error) { return WriteAfterWrite(0x20, []byte{1}, 0x21, nil) }, ErrEmptyData},
		{"registers empty", func() ([]byte, error) { return ReadRegisters() }, ErrEmptyData},
		{"register writes empty", func() ([]byte, error) { return WriteRegisters() }, ErrEmptyData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := tt.fn()
			if cmd != nil {
				t.Errorf("expected no command, got %X", cmd)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error: got %v, want %v", err, tt.want)
			}
			var cmdErr *CommandError
			if !errors.As(err, &cmdErr) {
				t.Errorf("expected *CommandError, got %T", err)
			}
		})
	}
}

func TestBaudDivisor(t *testing.T) {
	regs := BaudDivisor(115200)
	if regs[0].Value != 0x30 || regs[1].Value != 0x00 {
		t.Errorf("115200: got %+v", regs)
	}

	regs = BaudDivisor(9600)
	if regs[0].Value != 0xF0 || regs[1].Value != 0x02 {
		t.Errorf("9600: got %+v", regs)
	}
}

func TestClockRegisters(t *testing.T) {
	regs := ClockRegisters(100000)
	if regs[0].Value != 5 || regs[1].Value != 5 {
		t.Errorf("100kHz: got %+v", regs)
	}

	regs = ClockRegisters(10000)
	if regs[0].Value != 47 || regs[1].Value != 47 {
		t.Errorf("10kHz: got %+v", regs)
	}
}

func TestPortConfig(t *testing.T) {
	got := PortConfig([4]byte{PinPushPull, PinPushPull, PinInputOnly, PinQuasiBidirectional})
	if got != 0x1A {
		t.Errorf("PortConfig: got 0x%02X, want 0x1A", got)
	}
}

func TestCheckStatus(t *testing.T) {
	if err := CheckStatus(0x20, StatusOK); err != nil {
		t.Errorf("StatusOK: unexpected error %v", err)
	}
	for _, st := range []byte{StatusNackAddr, StatusNackData, StatusTimeout} {
		err := CheckStatus(0x20, st)
		if !IsI2CError(err) {
			t.Errorf("status 0x%02X: expected I2C error, got %v", st, err)
		}
	}
}
