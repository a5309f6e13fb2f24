// Package transports provides the serial connections used by the chassis
// communication layer: hardware ports, a scripted mock and a simulated
// bridge chip with its peripherals.
package transports

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// SerialTransport is a hardware serial port. A Read that times out returns
// zero bytes and no error.
type SerialTransport struct {
	port     serial.Port
	portName string
	mode     serial.Mode
}

// SerialConfig holds configuration for opening a serial port.
type SerialConfig struct {
	Port     string
	BaudRate int
	Timeout  time.Duration
}

// OpenSerial opens a serial port with the given configuration.
func OpenSerial(cfg SerialConfig) (*SerialTransport, error) {
	if cfg.Port == "" {
		return nil, errors.New("serial port path is required")
	}

	if cfg.BaudRate == 0 {
		cfg.BaudRate = 9600
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 100 * time.Millisecond
	}

	mode := serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
		InitialStatusBits: &serial.ModemOutputBits{
			RTS: false,
			DTR: false,
		},
	}

	port, err := serial.Open(cfg.Port, &mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}

	if err := port.SetReadTimeout(cfg.Timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return &SerialTransport{
		port:     port,
		portName: cfg.Port,
		mode:     mode,
	}, nil
}

func (t *SerialTransport) Read(p []byte) (int, error) {
	return t.port.Read(p)
}

func (t *SerialTransport) Write(p []byte) (int, error) {
	return t.port.Write(p)
}

func (t *SerialTransport) Close() error {
	return t.port.Close()
}

func (t *SerialTransport) SetReadTimeout(timeout time.Duration) error {
	return t.port.SetReadTimeout(timeout)
}

// Flush discards unread input and untransmitted output.
func (t *SerialTransport) Flush() error {
	if err := t.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("reset input buffer: %w", err)
	}
	if err := t.port.ResetOutputBuffer(); err != nil {
		return fmt.Errorf("reset output buffer: %w", err)
	}
	return nil
}

func (t *SerialTransport) SetRTS(on bool) error {
	return t.port.SetRTS(on)
}

func (t *SerialTransport) SetDTR(on bool) error {
	return t.port.SetDTR(on)
}

// SetBaudRate changes the line speed, keeping the framing settings.
func (t *SerialTransport) SetBaudRate(baud int) error {
	if baud == t.mode.BaudRate {
		return nil
	}
	mode := t.mode
	mode.BaudRate = baud
	mode.InitialStatusBits = nil
	if err := t.port.SetMode(&mode); err != nil {
		return fmt.Errorf("set baud rate %d: %w", baud, err)
	}
	t.mode.BaudRate = baud
	return nil
}

// PortName returns the serial port name.
func (t *SerialTransport) PortName() string {
	return t.portName
}
