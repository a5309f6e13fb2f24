package commdev

import (
	"io"
	"time"

	"github.com/hipsterbrown/chassis-comm/transports"
)

// Transport is the serial connection of one physical port. A Read that
// returns no bytes and no error has timed out.
type Transport interface {
	io.ReadWriteCloser

	// SetReadTimeout sets the read timeout duration.
	SetReadTimeout(timeout time.Duration) error

	// Flush discards any buffered input and output data.
	Flush() error

	// SetRTS drives the bus-select line. Asserted routes the UART to the
	// selected server, deasserted to the bridge chip.
	SetRTS(on bool) error

	// SetDTR drives the bridge chip reset line. Asserted holds the chip in reset.
	SetDTR(on bool) error

	// SetBaudRate changes the line speed.
	SetBaudRate(baud int) error
}

// TransportOpener opens the transport of a configured port.
type TransportOpener func(port int, cfg PortConfig) (Transport, error)

// OpenSerial opens a hardware serial port.
func OpenSerial(_ int, cfg PortConfig) (Transport, error) {
	return transports.OpenSerial(transports.SerialConfig{
		Port:     cfg.Device,
		BaudRate: cfg.InitialBaud(),
		Timeout:  cfg.ReadTimeout,
	})
}
