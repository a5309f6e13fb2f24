// Package fanctl reads fan tachometers and sets PWM duty on the chassis fan
// controllers.
package fanctl

import (
	"errors"
	"fmt"
	"math"

	"periph.io/x/conn/v3/i2c"
)

// Controller addresses. Fans 1-4 sit on the first controller, fans 5-6 on the
// second one where they use the registers of fans 1-2.
const (
	AddrPrimary   uint16 = 0x2C
	AddrSecondary uint16 = 0x2F
)

// MaxID is the highest fan id.
const MaxID = 6

// Stalled is the tach value reported when the fan is not turning.
const Stalled uint16 = 0xFFFF

// tachClock is the tach counter clock (90 kHz) multiplied by 60 s/min.
const tachClock = 90000 * 60

var (
	ErrInvalidID = errors.New("fanctl: invalid fan id")
	ErrNoReading = errors.New("fanctl: tach reading not available")
	ErrPWMRange  = errors.New("fanctl: pwm out of range")
)

type channel struct {
	tachLow  byte
	tachHigh byte
	pwm      byte
}

var channels = [4]channel{
	{tachLow: 0x2A, tachHigh: 0x2B, pwm: 0x32},
	{tachLow: 0x2C, tachHigh: 0x2D, pwm: 0x33},
	{tachLow: 0x2E, tachHigh: 0x2F, pwm: 0x34},
	{tachLow: 0x30, tachHigh: 0x31, pwm: 0x35},
}

// Registers locates one fan.
type Registers struct {
	Addr     uint16
	TachLow  byte
	TachHigh byte
	PWM      byte
}

// RegistersFor returns the controller address and register numbers of fan id.
func RegistersFor(id int) (Registers, error) {
	if id < 1 || id > MaxID {
		return Registers{}, fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	addr := AddrPrimary
	idx := id - 1
	if id > 4 {
		addr = AddrSecondary
		idx = id - 5
	}
	ch := channels[idx]
	return Registers{Addr: addr, TachLow: ch.tachLow, TachHigh: ch.tachHigh, PWM: ch.pwm}, nil
}

// RPM converts a combined 16-bit tach count to revolutions per minute.
func RPM(combined uint16) (uint32, error) {
	switch combined {
	case Stalled:
		return 0, nil
	case 0:
		return 0, ErrNoReading
	}
	return tachClock / uint32(combined), nil
}

// ScalePWM converts a duty cycle in percent to the register value.
func ScalePWM(percent int) (byte, error) {
	if percent < 0 || percent > 100 {
		return 0, fmt.Errorf("%w: %d", ErrPWMRange, percent)
	}
	if percent == 100 {
		return 0xFF, nil
	}
	return byte(math.Round(float64(percent) / 0.39)), nil
}

// Controller drives the fan controllers on one I2C bus.
type Controller struct {
	bus i2c.Bus
}

// New returns a controller on bus.
func New(bus i2c.Bus) *Controller {
	return &Controller{bus: bus}
}

func (c *Controller) readReg(addr uint16, reg byte) (byte, error) {
	d := i2c.Dev{Bus: c.bus, Addr: addr}
	r := make([]byte, 1)
	if err := d.Tx([]byte{reg}, r); err != nil {
		return 0, err
	}
	return r[0], nil
}

// Tach reads the combined tach count of fan id. The low byte must be read
// first; it latches the high byte.
func (c *Controller) Tach(id int) (uint16, error) {
	regs, err := RegistersFor(id)
	if err != nil {
		return 0, err
	}
	lo, err := c.readReg(regs.Addr, regs.TachLow)
	if err != nil {
		return 0, err
	}
	hi, err := c.readReg(regs.Addr, regs.TachHigh)
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// Speed returns the speed of fan id in RPM.
func (c *Controller) Speed(id int) (uint32, error) {
	combined, err := c.Tach(id)
	if err != nil {
		return 0, err
	}
	return RPM(combined)
}

// SetPWM sets the duty cycle of fan id in percent.
func (c *Controller) SetPWM(id int, percent int) error {
	regs, err := RegistersFor(id)
	if err != nil {
		return err
	}
	v, err := ScalePWM(percent)
	if err != nil {
		return err
	}
	d := i2c.Dev{Bus: c.bus, Addr: regs.Addr}
	return d.Tx([]byte{regs.PWM, v}, nil)
}

// SetAllMax drives every fan to full duty. It stops at the first failure.
func (c *Controller) SetAllMax() error {
	for id := 1; id <= MaxID; id++ {
		if err := c.SetPWM(id, 100); err != nil {
			return fmt.Errorf("fan %d: %w", id, err)
		}
	}
	return nil
}
