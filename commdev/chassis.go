package commdev

import (
	"encoding/binary"
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/hipsterbrown/chassis-comm/expander"
)

// Chassis FRU EEPROM geometry.
const (
	eepromAddr     uint16 = 0x50
	eepromPageSize        = 32
	eepromSize            = 0x10000
	eepromMaxRead         = 1024
	eepromReadStep        = 128
)

func (w *SerialPortWorker) fan(id int, req Request) ([]byte, error) {
	p := req.Payload()
	switch req.FunctionCode() {
	case FanGetSpeed:
		rpm, err := w.fans.Speed(id)
		if err != nil {
			return nil, err
		}
		// The response field is 16 bits wide; faster readings wrap.
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(rpm))
		return buf, nil
	case FanSetSpeed:
		if len(p) != 1 {
			return nil, invalidLength("set fan speed", "1", len(p))
		}
		return nil, w.fans.SetPWM(id, int(p[0]))
	}
	return nil, invalidFunction(req.FunctionCode())
}

func pinFor(t DeviceType, id int) (expander.Pin, error) {
	switch t {
	case Power:
		return expander.PowerPin(id)
	case PowerSwitch:
		return expander.PowerSwitchPin(id)
	case StatusLed:
		return expander.StatusLedPin, nil
	case RearAttentionLed:
		return expander.RearAttentionLedPin, nil
	}
	return expander.Pin{}, fmt.Errorf("%w: %s has no output pin", expander.ErrInvalidID, t)
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// outputPin reads or changes one expander output bit.
func (w *SerialPortWorker) outputPin(t DeviceType, id int, req Request) ([]byte, error) {
	pin, err := pinFor(t, id)
	if err != nil {
		return nil, err
	}
	dev := expander.New(w.bus, pin.Addr)
	switch req.FunctionCode() {
	case GetState:
		on, err := dev.OutputState(pin)
		if err != nil {
			return nil, err
		}
		return []byte{boolByte(on)}, nil
	case TurnOn:
		return nil, dev.SetPin(pin, true)
	case TurnOff:
		return nil, dev.SetPin(pin, false)
	}
	return nil, invalidFunction(req.FunctionCode())
}

func (w *SerialPortWorker) watchdog(req Request) ([]byte, error) {
	dev := expander.New(w.bus, expander.MiscAddr)
	switch req.FunctionCode() {
	case WatchdogEnable:
		return nil, dev.SetPin(expander.WatchdogEnablePin, true)
	case WatchdogDisable:
		return nil, dev.SetPin(expander.WatchdogEnablePin, false)
	case WatchdogReset:
		if err := dev.SetPin(expander.WatchdogResetPin, true); err != nil {
			return nil, err
		}
		time.Sleep(w.cfg.WatchdogPulse)
		return nil, dev.SetPin(expander.WatchdogResetPin, false)
	}
	return nil, invalidFunction(req.FunctionCode())
}

func (w *SerialPortWorker) fanCage(id int, req Request) ([]byte, error) {
	if req.FunctionCode() != GetIntrusion {
		return nil, invalidFunction(req.FunctionCode())
	}
	pin, err := expander.FanCagePin(id)
	if err != nil {
		return nil, err
	}
	open, err := expander.New(w.bus, pin.Addr).InputState(pin)
	if err != nil {
		return nil, err
	}
	return []byte{boolByte(open)}, nil
}

func (w *SerialPortWorker) eeprom(req Request) ([]byte, error) {
	p := req.Payload()
	dev := &i2c.Dev{Bus: w.bus, Addr: eepromAddr}
	switch req.FunctionCode() {
	case EepromRead:
		if len(p) != 4 {
			return nil, invalidLength("eeprom read", "4", len(p))
		}
		off := int(binary.LittleEndian.Uint16(p[0:2]))
		n := int(binary.LittleEndian.Uint16(p[2:4]))
		if n == 0 || n > eepromMaxRead || off+n > eepromSize {
			return nil, newError("eeprom read", InvalidDataFieldInRequest, fmt.Errorf("offset %d count %d", off, n))
		}
		return readEEPROM(dev, off, n)
	case EepromWrite:
		if len(p) < 3 {
			return nil, invalidLength("eeprom write", "at least 3", len(p))
		}
		off := int(binary.LittleEndian.Uint16(p[0:2]))
		data := p[2:]
		if off+len(data) > eepromSize {
			return nil, newError("eeprom write", InvalidDataFieldInRequest, fmt.Errorf("offset %d count %d", off, len(data)))
		}
		return nil, w.writeEEPROM(dev, off, data)
	}
	return nil, invalidFunction(req.FunctionCode())
}

func eepromOffset(off int) []byte {
	return []byte{byte(off >> 8), byte(off)}
}

func readEEPROM(dev *i2c.Dev, off, n int) ([]byte, error) {
	out := make([]byte, n)
	for done := 0; done < n; {
		step := min(eepromReadStep, n-done)
		if err := dev.Tx(eepromOffset(off+done), out[done:done+step]); err != nil {
			return nil, err
		}
		done += step
	}
	return out, nil
}

// writeEEPROM splits data on page boundaries; a page write that crosses one
// wraps around inside the page.
func (w *SerialPortWorker) writeEEPROM(dev *i2c.Dev, off int, data []byte) error {
	for len(data) > 0 {
		n := min(eepromPageSize-off%eepromPageSize, len(data))
		if err := dev.Tx(append(eepromOffset(off), data[:n]...), nil); err != nil {
			return err
		}
		time.Sleep(w.cfg.EEPROMWriteCycle)
		off += n
		data = data[n:]
	}
	return nil
}
