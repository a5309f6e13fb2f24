// Package expander drives 16-bit I2C GPIO expanders made of two 8-bit ports.
package expander

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// Command bytes. Add the port number (0 or 1) to select the port.
const (
	CmdInput    byte = 0x00
	CmdOutput   byte = 0x02
	CmdPolarity byte = 0x04
	CmdConfig   byte = 0x06
)

// ConfigDefault is the power-on value of the configuration registers (all inputs).
const ConfigDefault byte = 0xFF

// Device is one expander on an I2C bus.
type Device struct {
	dev *i2c.Dev
}

// New returns the expander at addr on bus.
func New(bus i2c.Bus, addr uint16) *Device {
	return &Device{dev: &i2c.Dev{Bus: bus, Addr: addr}}
}

// Addr returns the expander's bus address.
func (d *Device) Addr() uint16 {
	return d.dev.Addr
}

func command(base byte, port int) (byte, error) {
	if port != 0 && port != 1 {
		return 0, fmt.Errorf("expander: invalid port %d", port)
	}
	return base + byte(port), nil
}

func (d *Device) readReg(base byte, port int) (byte, error) {
	cmd, err := command(base, port)
	if err != nil {
		return 0, err
	}
	r := make([]byte, 1)
	if err := d.dev.Tx([]byte{cmd}, r); err != nil {
		return 0, err
	}
	return r[0], nil
}

func (d *Device) writeReg(base byte, port int, v byte) error {
	cmd, err := command(base, port)
	if err != nil {
		return err
	}
	return d.dev.Tx([]byte{cmd, v}, nil)
}

// ReadInput reads the input register of port.
func (d *Device) ReadInput(port int) (byte, error) {
	return d.readReg(CmdInput, port)
}

// ReadOutput reads the output register of port.
func (d *Device) ReadOutput(port int) (byte, error) {
	return d.readReg(CmdOutput, port)
}

// WriteOutput writes the output register of port.
func (d *Device) WriteOutput(port int, v byte) error {
	return d.writeReg(CmdOutput, port, v)
}

// ReadConfig reads the configuration register of port.
func (d *Device) ReadConfig(port int) (byte, error) {
	return d.readReg(CmdConfig, port)
}

// WriteConfig writes the configuration register of port.
func (d *Device) WriteConfig(port int, v byte) error {
	return d.writeReg(CmdConfig, port, v)
}

// SetPin reads the output register holding pin, changes exactly that bit to put
// the function in the requested state, and writes the register back.
func (d *Device) SetPin(pin Pin, on bool) error {
	cur, err := d.ReadOutput(pin.Port)
	if err != nil {
		return err
	}
	next := ApplyBit(cur, pin.Bit, pin.Polarity.Level(on))
	return d.WriteOutput(pin.Port, next)
}

// OutputState reports whether the function driven by pin is on.
func (d *Device) OutputState(pin Pin) (bool, error) {
	v, err := d.ReadOutput(pin.Port)
	if err != nil {
		return false, err
	}
	return pin.Polarity.On(TestBit(v, pin.Bit)), nil
}

// InputState reports whether the function sensed by pin is on.
func (d *Device) InputState(pin Pin) (bool, error) {
	v, err := d.ReadInput(pin.Port)
	if err != nil {
		return false, err
	}
	return pin.Polarity.On(TestBit(v, pin.Bit)), nil
}

// ConfigureOutputs switches both ports to output mode. An expander whose
// configuration is no longer at its power-on default was already set up and
// is left alone; configured reports whether registers were written.
func (d *Device) ConfigureOutputs() (configured bool, err error) {
	for port := 0; port < 2; port++ {
		v, err := d.ReadConfig(port)
		if err != nil {
			return false, err
		}
		if v != ConfigDefault {
			return false, nil
		}
	}
	for port := 0; port < 2; port++ {
		if err := d.WriteConfig(port, 0x00); err != nil {
			return false, err
		}
	}
	return true, nil
}
