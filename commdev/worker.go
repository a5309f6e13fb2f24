package commdev

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"periph.io/x/conn/v3/i2c"

	"github.com/hipsterbrown/chassis-comm/bridge"
	"github.com/hipsterbrown/chassis-comm/fanctl"
)

// busMode is the current routing of a shared UART.
type busMode int

const (
	modeUnknown busMode = iota
	modeBridge
	modeServer
)

// SerialPortWorker executes requests on one physical serial port. All of its
// state is owned by the port's worker goroutine.
type SerialPortWorker struct {
	port int
	role PortRole
	pc   PortConfig
	cfg  *Config
	t    Transport
	log  *logrus.Entry

	chip *bridge.Chip
	bus  i2c.Bus
	fans *fanctl.Controller

	mode       busMode
	gpioErrors atomic.Int32
	seqs       [MaxServers]byte

	// enableSafeMode is called when a server is told to hand its console
	// over to the system side.
	enableSafeMode func()
}

var _ Executor = (*SerialPortWorker)(nil)

// NewSerialPortWorker binds a worker for logical port to an open transport.
func NewSerialPortWorker(port int, t Transport, cfg *Config, log *logrus.Entry, enableSafeMode func()) *SerialPortWorker {
	w := &SerialPortWorker{
		port:           port,
		role:           RoleOf(port),
		pc:             cfg.Ports[port],
		cfg:            cfg,
		t:              t,
		log:            log,
		enableSafeMode: enableSafeMode,
	}
	if w.role != RoleConsole {
		w.chip = bridge.NewChip(fmt.Sprintf("port%d", port), t)
		w.bus = w.chip.Bus()
		w.fans = fanctl.New(w.bus)
	}
	return w
}

// Init brings the port to a known state: the bridge chip is reset and
// programmed, and on the chassis port the fans and expanders are set up.
func (w *SerialPortWorker) Init() error {
	if w.role == RoleConsole {
		if err := w.t.SetBaudRate(w.pc.BaudRate); err != nil {
			return newError("init", CommDevFailedToInit, err)
		}
		return nil
	}
	if err := w.initBridge(); err != nil {
		return newError("init", CommDevFailedToInit, err)
	}
	return nil
}

// Close closes the transport.
func (w *SerialPortWorker) Close() error {
	if err := w.t.Close(); err != nil {
		return newError("close", FailToCloseSerialPort, err)
	}
	return nil
}

// Execute runs env and builds its response. Failures are reported through
// the completion code; Execute itself never fails.
func (w *SerialPortWorker) Execute(env *Envelope) Response {
	log := w.log.WithFields(logrus.Fields{
		"device_type": env.DeviceType,
		"device_id":   env.DeviceID,
		"session":     env.Session,
	})
	start := time.Now()

	payload, err := w.execute(env)
	code := CodeOf(err)
	switch {
	case err == nil:
		log.WithField("elapsed", time.Since(start)).Debug("transaction complete")
	case code == CannotExecuteRequestInSafeMode:
		log.Debug("request denied in safe mode")
	default:
		log.WithError(err).WithField("code", code).Warn("transaction failed")
	}
	return NewResponse(code, payload)
}

func (w *SerialPortWorker) execute(env *Envelope) ([]byte, error) {
	if PortFor(env.DeviceType, env.DeviceID) != w.port {
		return nil, newError("route", InvalidCommand, fmt.Errorf("%s not served by port %d", env.DeviceType, w.port))
	}

	switch env.DeviceType {
	case Server:
		return w.server(env.DeviceID, env.Request)
	case BladeConsole:
		return w.bladeConsole(env.DeviceID, Request(env.Request))
	case SerialPortConsole:
		return w.rawConsole(Request(env.Request))
	}

	if err := w.setBusMode(modeBridge); err != nil {
		return nil, err
	}
	if err := w.t.Flush(); err != nil {
		return nil, newError("flush", SerialPortOtherErrors, err)
	}

	req := Request(env.Request)
	switch env.DeviceType {
	case Fan:
		return w.fan(env.DeviceID, req)
	case PSU:
		return w.psu(env.DeviceID, req)
	case Power, PowerSwitch, StatusLed, RearAttentionLed:
		return w.outputPin(env.DeviceType, env.DeviceID, req)
	case WatchdogTimer:
		return w.watchdog(req)
	case FanCage:
		return w.fanCage(env.DeviceID, req)
	case ChassisFruEeprom:
		return w.eeprom(req)
	}
	return nil, newError("dispatch", InvalidCommand, fmt.Errorf("unsupported device type %s", env.DeviceType))
}

// setBusMode routes the shared UART to the bridge chip or to the selected
// server and waits for the line to settle.
func (w *SerialPortWorker) setBusMode(mode busMode) error {
	if w.mode == mode {
		return nil
	}
	if err := w.t.SetRTS(mode == modeServer); err != nil {
		w.mode = modeUnknown
		return newError("bus select", SerialPortOtherErrors, err)
	}
	time.Sleep(w.cfg.SelectSettle)
	w.mode = mode
	return nil
}

var errFunctionCode = errors.New("unknown function code")

func invalidFunction(fc byte) error {
	return newError("request", InvalidCommand, fmt.Errorf("%w 0x%02X", errFunctionCode, fc))
}

func invalidLength(op string, want string, got int) error {
	return newError(op, InvalidRequestDataLength, fmt.Errorf("payload must be %s bytes, got %d", want, got))
}
