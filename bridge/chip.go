package bridge

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Port is the serial connection the chip is reached through.
// A Read returning zero bytes without an error means the read timed out.
type Port interface {
	io.ReadWriter

	// Flush discards any buffered input and output data.
	Flush() error
}

// Chip executes bridge commands over a serial port.
type Chip struct {
	name string
	port Port

	mu sync.Mutex
}

// NewChip creates a chip bound to port. name is reported by Bus.String.
func NewChip(name string, port Port) *Chip {
	return &Chip{name: name, port: port}
}

// Name returns the chip name.
func (c *Chip) Name() string {
	return c.name
}

// Exec writes cmd and reads exactly respLen response bytes.
func (c *Chip) Exec(cmd []byte, respLen int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.execLocked(cmd, respLen)
}

func (c *Chip) execLocked(cmd []byte, respLen int) ([]byte, error) {
	n, err := c.port.Write(cmd)
	if err != nil {
		return nil, fmt.Errorf("write failed: %w", err)
	}
	if n != len(cmd) {
		return nil, fmt.Errorf("incomplete write: %d of %d bytes", n, len(cmd))
	}
	if respLen == 0 {
		return nil, nil
	}
	return c.readFullLocked(respLen)
}

func (c *Chip) readFullLocked(n int) ([]byte, error) {
	buf := make([]byte, n)
	total := 0
	for total < n {
		k, err := c.port.Read(buf[total:])
		if err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		if k == 0 {
			return nil, fmt.Errorf("%w: read %d of %d expected bytes", ErrTimeout, total, n)
		}
		total += k
	}
	return buf, nil
}

// ReadAck waits for the two-byte acknowledgement sent after a reset.
func (c *Chip) ReadAck() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.readFullLocked(len(ResetAck))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoAck, err)
	}
	if resp[0] != ResetAck[0] || resp[1] != ResetAck[1] {
		return fmt.Errorf("%w: got %X", ErrNoAck, resp)
	}
	return nil
}

// ReadGPIO reads the GPIO port.
func (c *Chip) ReadGPIO() (byte, error) {
	resp, err := c.Exec(ReadGPIO(), 1)
	if err != nil {
		return 0, err
	}
	return resp[0], nil
}

// WriteGPIO writes the GPIO port.
func (c *Chip) WriteGPIO(value byte) error {
	_, err := c.Exec(WriteGPIO(value), 0)
	return err
}

// ReadRegisters reads internal registers in order.
func (c *Chip) ReadRegisters(regs ...byte) ([]byte, error) {
	cmd, err := ReadRegisters(regs...)
	if err != nil {
		return nil, err
	}
	return c.Exec(cmd, len(regs))
}

// WriteRegisters writes internal registers.
func (c *Chip) WriteRegisters(values ...RegValue) error {
	cmd, err := WriteRegisters(values...)
	if err != nil {
		return err
	}
	_, err = c.Exec(cmd, 0)
	return err
}

// Status reads the I2C status register.
func (c *Chip) Status() (byte, error) {
	resp, err := c.ReadRegisters(RegI2CStat)
	if err != nil {
		return 0, err
	}
	return resp[0], nil
}

// WriteBytes writes data to the device at addr and checks the bus status.
func (c *Chip) WriteBytes(addr uint16, data []byte) error {
	cmd, err := WriteBytes(addr, data)
	if err != nil {
		return err
	}
	return c.transact(addr, cmd, nil)
}

// ReadBytes reads n bytes from the device at addr and checks the bus status.
func (c *Chip) ReadBytes(addr uint16, n int) ([]byte, error) {
	cmd, err := ReadBytes(addr, n)
	if err != nil {
		return nil, err
	}
	r := make([]byte, n)
	if err := c.transact(addr, cmd, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ReadAfterWrite writes data and reads n bytes back in one transaction.
func (c *Chip) ReadAfterWrite(addr uint16, data []byte, n int) ([]byte, error) {
	cmd, err := ReadAfterWrite(addr, data, n)
	if err != nil {
		return nil, err
	}
	r := make([]byte, n)
	if err := c.transact(addr, cmd, r); err != nil {
		return nil, err
	}
	return r, nil
}

// WriteAfterWrite writes to two devices joined by a repeated start.
func (c *Chip) WriteAfterWrite(addr1 uint16, data1 []byte, addr2 uint16, data2 []byte) error {
	cmd, err := WriteAfterWrite(addr1, data1, addr2, data2)
	if err != nil {
		return err
	}
	return c.transact(addr2, cmd, nil)
}

// transact runs one I2C command, copies the response into r and then reads back the
// bus status. When the chip stays silent on a read, a failed status takes precedence
// over the timeout since a NACKed read returns no data.
func (c *Chip) transact(addr uint16, cmd []byte, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, txErr := c.execLocked(cmd, len(r))
	if txErr != nil && !errors.Is(txErr, ErrTimeout) {
		return txErr
	}

	statCmd, _ := ReadRegisters(RegI2CStat)
	stat, err := c.execLocked(statCmd, 1)
	if err != nil {
		if txErr != nil {
			return txErr
		}
		return fmt.Errorf("status read: %w", err)
	}
	if err := CheckStatus(addr, stat[0]); err != nil {
		return err
	}
	if txErr != nil {
		return txErr
	}
	copy(r, resp)
	return nil
}

// Bus returns an i2c.Bus view of the chip's I2C master.
func (c *Chip) Bus() *Bus {
	return &Bus{chip: c}
}

// Bus adapts a Chip to periph's i2c.Bus so that peripheral drivers can address
// devices with i2c.Dev.
type Bus struct {
	chip *Chip
}

var _ i2c.Bus = (*Bus)(nil)

func (b *Bus) String() string {
	return "bridge:" + b.chip.name
}

// Tx performs a write, a read, or a read after write depending on which buffers are set.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	switch {
	case len(w) > 0 && len(r) > 0:
		data, err := b.chip.ReadAfterWrite(addr, w, len(r))
		if err != nil {
			return err
		}
		copy(r, data)
		return nil
	case len(w) > 0:
		return b.chip.WriteBytes(addr, w)
	case len(r) > 0:
		data, err := b.chip.ReadBytes(addr, len(r))
		if err != nil {
			return err
		}
		copy(r, data)
		return nil
	default:
		return &CommandError{Op: "tx", Err: ErrEmptyData}
	}
}

// SetSpeed programs the I2C clock registers.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	hz := int(f / physic.Hertz)
	if hz <= 0 {
		return &CommandError{Op: "set speed", Err: fmt.Errorf("invalid frequency %s", f)}
	}
	return b.chip.WriteRegisters(ClockRegisters(hz)...)
}
