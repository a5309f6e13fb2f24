package commdev

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/hipsterbrown/chassis-comm/bridge"
	"github.com/hipsterbrown/chassis-comm/expander"
)

// Bridge chip GPIO assignments.
const (
	psuSelectBits      = 3 // chassis GPIO0..2
	gpioForceMaxFanBit = 3 // chassis GPIO3, 1 forces full fan speed
	serverSelectBits   = 6 // servers GPIO0..5
	serverSelectMask   = 1<<serverSelectBits - 1
)

var (
	pushPull4 = bridge.PortConfig([4]byte{bridge.PinPushPull, bridge.PinPushPull, bridge.PinPushPull, bridge.PinPushPull})
	input4    = bridge.PortConfig([4]byte{bridge.PinInputOnly, bridge.PinInputOnly, bridge.PinInputOnly, bridge.PinInputOnly})
	servers47 = bridge.PortConfig([4]byte{bridge.PinPushPull, bridge.PinPushPull, bridge.PinInputOnly, bridge.PinInputOnly})
)

// initBridge runs the full start-up sequence. On the chassis port the fans
// are driven to full speed before the force-max-fan override is released.
func (w *SerialPortWorker) initBridge() error {
	if err := w.resetBridge(); err != nil {
		return err
	}
	if w.role == RoleChassis {
		if err := w.holdSharedPins(); err != nil {
			return err
		}
		if err := w.fans.SetAllMax(); err != nil {
			w.log.WithError(err).Warn("could not drive fans to full speed")
		}
	}
	if err := w.configurePins(); err != nil {
		return err
	}
	if w.role == RoleChassis {
		w.configureExpanders()
	}
	w.log.Info("bridge chip initialized")
	return nil
}

// reinit repeats the reset and pin configuration after repeated failures and
// forgets every remembered sequence id.
func (w *SerialPortWorker) reinit() error {
	w.seqs = [MaxServers]byte{}
	if err := w.resetBridge(); err != nil {
		return err
	}
	if w.role == RoleChassis {
		if err := w.holdSharedPins(); err != nil {
			return err
		}
	}
	return w.configurePins()
}

// resetBridge pulses the reset line, waits for the acknowledgement and
// programs the I2C clock and the new baud rate.
func (w *SerialPortWorker) resetBridge() error {
	w.mode = modeUnknown
	if err := w.setBusMode(modeBridge); err != nil {
		return err
	}
	if err := w.t.SetBaudRate(w.pc.ResetBaud); err != nil {
		return fmt.Errorf("set reset baud: %w", err)
	}
	if err := w.t.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	if err := w.t.SetDTR(true); err != nil {
		return fmt.Errorf("assert reset: %w", err)
	}
	time.Sleep(w.cfg.ResetPulse)
	if err := w.t.SetDTR(false); err != nil {
		return fmt.Errorf("release reset: %w", err)
	}

	if err := w.t.SetReadTimeout(w.cfg.AckTimeout); err != nil {
		return fmt.Errorf("set read timeout: %w", err)
	}
	err := w.chip.ReadAck()
	if terr := w.t.SetReadTimeout(w.pc.ReadTimeout); terr != nil && err == nil {
		err = fmt.Errorf("set read timeout: %w", terr)
	}
	if err != nil {
		return err
	}

	// The chip switches speed as soon as the divisor is written, so the clock
	// registers go first.
	regs := bridge.ClockRegisters(int(w.cfg.I2CSpeed / physic.Hertz))
	regs = append(regs, bridge.BaudDivisor(w.pc.BaudRate)...)
	if err := w.chip.WriteRegisters(regs...); err != nil {
		return fmt.Errorf("program registers: %w", err)
	}
	time.Sleep(w.cfg.BaudSettle)
	if err := w.t.SetBaudRate(w.pc.BaudRate); err != nil {
		return fmt.Errorf("set baud: %w", err)
	}
	w.log.WithField("baud", w.pc.BaudRate).Debug("bridge chip reset")
	return nil
}

// holdSharedPins parks the PSU demux in its cleared state with the fans
// forced to full speed and makes GPIO0..3 outputs.
func (w *SerialPortWorker) holdSharedPins() error {
	if err := w.chip.WriteGPIO(expander.SetBit(0, gpioForceMaxFanBit)); err != nil {
		return fmt.Errorf("park shared pins: %w", err)
	}
	if err := w.chip.WriteRegisters(bridge.RegValue{Reg: bridge.RegPortConf1, Value: pushPull4}); err != nil {
		return fmt.Errorf("configure shared pins: %w", err)
	}
	return nil
}

// configurePins sets the remaining pin directions. Output values are written
// before directions change so that outputs never glitch.
func (w *SerialPortWorker) configurePins() error {
	switch w.role {
	case RoleChassis:
		if err := w.chip.WriteRegisters(bridge.RegValue{Reg: bridge.RegPortConf2, Value: input4}); err != nil {
			return fmt.Errorf("configure pins: %w", err)
		}
		cur, err := w.chip.ReadGPIO()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		if err := w.chip.WriteGPIO(expander.ClearBit(cur, gpioForceMaxFanBit)); err != nil {
			return fmt.Errorf("release fan override: %w", err)
		}
	case RoleServers:
		if err := w.chip.WriteGPIO(0); err != nil {
			return fmt.Errorf("clear server select: %w", err)
		}
		err := w.chip.WriteRegisters(
			bridge.RegValue{Reg: bridge.RegPortConf1, Value: pushPull4},
			bridge.RegValue{Reg: bridge.RegPortConf2, Value: servers47},
		)
		if err != nil {
			return fmt.Errorf("configure pins: %w", err)
		}
	}
	return nil
}

// configureExpanders switches every output expander to output mode. Failures
// are logged and do not fail initialization.
func (w *SerialPortWorker) configureExpanders() {
	for _, addr := range expander.OutputExpanders {
		log := w.log.WithField("expander", fmt.Sprintf("0x%02X", addr))
		configured, err := expander.New(w.bus, addr).ConfigureOutputs()
		switch {
		case err != nil:
			log.WithError(err).Warn("expander configuration failed")
		case configured:
			log.Debug("expander configured")
		default:
			log.Debug("expander already configured")
		}
	}
}
