package bridge

import (
	"bytes"
	"errors"
	"testing"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// scriptPort answers reads from a queue of chunks; an empty queue reads as a timeout.
type scriptPort struct {
	writes  [][]byte
	replies [][]byte
	flushed int
}

func (p *scriptPort) Write(b []byte) (int, error) {
	p.writes = append(p.writes, append([]byte(nil), b...))
	return len(b), nil
}

func (p *scriptPort) Read(b []byte) (int, error) {
	if len(p.replies) == 0 {
		return 0, nil
	}
	n := copy(b, p.replies[0])
	p.replies[0] = p.replies[0][n:]
	if len(p.replies[0]) == 0 {
		p.replies = p.replies[1:]
	}
	return n, nil
}

func (p *scriptPort) Flush() error {
	p.flushed++
	return nil
}

func TestChip_ReadAfterWriteChecksStatus(t *testing.T) {
	port := &scriptPort{replies: [][]byte{{0x7E}, {StatusOK}}}
	chip := NewChip("test", port)

	data, err := chip.ReadAfterWrite(0x20, []byte{0x02}, 1)
	if err != nil {
		t.Fatalf("ReadAfterWrite failed: %v", err)
	}
	if data[0] != 0x7E {
		t.Errorf("data: got %X, want 7E", data)
	}
	if len(port.writes) != 2 {
		t.Fatalf("writes: got %d, want 2", len(port.writes))
	}
	if !bytes.Equal(port.writes[1], []byte{'R', RegI2CStat, 'P'}) {
		t.Errorf("status read: got %X", port.writes[1])
	}
}

func TestChip_WriteBytesNack(t *testing.T) {
	port := &scriptPort{replies: [][]byte{{StatusNackAddr}}}
	chip := NewChip("test", port)

	err := chip.WriteBytes(0x24, []byte{0x01})
	var i2cErr *I2CError
	if !errors.As(err, &i2cErr) {
		t.Fatalf("expected I2CError, got %v", err)
	}
	if i2cErr.Addr != 0x24 || i2cErr.Status != StatusNackAddr {
		t.Errorf("I2CError: got %+v", i2cErr)
	}
}

func TestChip_SilentReadReportsBusStatus(t *testing.T) {
	// A NACKed read returns no data; the status read that follows still answers.
	chip := NewChip("test", &statusAfterSilence{scriptPort: &scriptPort{}, status: StatusNackAddr})

	_, err := chip.ReadBytes(0x58, 2)
	if !IsI2CError(err) {
		t.Fatalf("expected I2C error, got %v", err)
	}
}

// statusAfterSilence times out on the first read and answers the status register after.
type statusAfterSilence struct {
	*scriptPort
	status byte
	reads  int
}

func (p *statusAfterSilence) Read(b []byte) (int, error) {
	p.reads++
	if p.reads == 1 {
		return 0, nil
	}
	b[0] = p.status
	return 1, nil
}

func TestChip_Timeout(t *testing.T) {
	chip := NewChip("test", &scriptPort{})

	_, err := chip.ReadGPIO()
	if !IsTimeout(err) {
		t.Errorf("expected timeout, got %v", err)
	}
}

func TestChip_ReadAck(t *testing.T) {
	chip := NewChip("test", &scriptPort{replies: [][]byte{{'O', 'K'}}})
	if err := chip.ReadAck(); err != nil {
		t.Errorf("ReadAck failed: %v", err)
	}

	chip = NewChip("test", &scriptPort{replies: [][]byte{{'N', 'O'}}})
	if err := chip.ReadAck(); !errors.Is(err, ErrNoAck) {
		t.Errorf("expected ErrNoAck, got %v", err)
	}
}

func TestBus_Tx(t *testing.T) {
	port := &scriptPort{replies: [][]byte{{0x12, 0x34}, {StatusOK}}}
	chip := NewChip("chassis", port)
	dev := &i2c.Dev{Bus: chip.Bus(), Addr: 0x50}

	r := make([]byte, 2)
	if err := dev.Tx([]byte{0x00, 0x10}, r); err != nil {
		t.Fatalf("Tx failed: %v", err)
	}
	if !bytes.Equal(r, []byte{0x12, 0x34}) {
		t.Errorf("read: got %X", r)
	}
	want := []byte{'S', 0xA0, 0x02, 0x00, 0x10, 'S', 0xA1, 0x02, 'P'}
	if !bytes.Equal(port.writes[0], want) {
		t.Errorf("command: got %X, want %X", port.writes[0], want)
	}

	if err := chip.Bus().Tx(0x50, nil, nil); !errors.Is(err, ErrEmptyData) {
		t.Errorf("empty Tx: got %v", err)
	}
	if chip.Bus().String() != "bridge:chassis" {
		t.Errorf("String: got %q", chip.Bus().String())
	}
}

func TestBus_SetSpeed(t *testing.T) {
	port := &scriptPort{}
	chip := NewChip("test", port)

	if err := chip.Bus().SetSpeed(100 * physic.KiloHertz); err != nil {
		t.Fatalf("SetSpeed failed: %v", err)
	}
	want := []byte{'W', RegI2CClkL, 5, RegI2CClkH, 5, 'P'}
	if !bytes.Equal(port.writes[0], want) {
		t.Errorf("SetSpeed: got %X, want %X", port.writes[0], want)
	}
}
