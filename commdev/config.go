package commdev

import (
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"

	"github.com/hipsterbrown/chassis-comm/console"
)

// PortConfig describes one physical port.
type PortConfig struct {
	// Device is the serial device path. An empty path leaves the port unused.
	Device string

	// BaudRate is the line speed after initialization. Default is 115200.
	BaudRate int

	// ResetBaud is the bridge chip's speed after reset. Default is 9600.
	// Ports without a bridge chip ignore it.
	ResetBaud int

	// ReadTimeout bounds every read. Default is 100ms.
	ReadTimeout time.Duration
}

// InitialBaud returns the speed the port is opened with.
func (c PortConfig) InitialBaud() int {
	if c.ResetBaud != 0 {
		return c.ResetBaud
	}
	return c.BaudRate
}

// Config holds configuration for the communication subsystem.
type Config struct {
	// Ports is indexed by logical port id.
	Ports [NumPorts]PortConfig

	// QueueCapacity bounds every priority queue. Default is 64.
	QueueCapacity int

	// Population is the number of server slots. Default is 24, maximum 48.
	Population int

	// GPIOErrorThreshold is the number of consecutive GPIO read failures
	// tolerated before the bridge chip is reinitialized. Default is 3.
	GPIOErrorThreshold int

	// I2CSpeed is the bridge chip's I2C clock. Default is 100kHz.
	I2CSpeed physic.Frequency

	// ResetPulse is how long the reset line is held. Default is 2ms.
	ResetPulse time.Duration

	// AckTimeout bounds the wait for the reset acknowledgement. Default is 500ms.
	AckTimeout time.Duration

	// BaudSettle is the wait after a baud rate change. Default is 10ms.
	BaudSettle time.Duration

	// SelectSettle is the wait after toggling the bus-select line. Default is 1ms.
	SelectSettle time.Duration

	// WatchdogPulse is the width of the watchdog reset pulse. Default is 10ms.
	WatchdogPulse time.Duration

	// EEPROMWriteCycle is the wait after each EEPROM page write. Default is 5ms.
	EEPROMWriteCycle time.Duration

	// GarbageLimit and FrameLimit bound console response decoding.
	GarbageLimit int
	FrameLimit   int

	// PollInterval bounds a worker's wait for new work. Default is 100ms.
	PollInterval time.Duration

	// JoinTimeout bounds the wait for a worker to exit on release. Default is 5s.
	JoinTimeout time.Duration

	// Opener opens port transports. Default is OpenSerial.
	Opener TransportOpener

	// Logger receives all log output. Default is the logrus standard logger.
	Logger *logrus.Logger
}

func (c *Config) setDefaults() {
	for i := range c.Ports {
		p := &c.Ports[i]
		if p.BaudRate == 0 {
			p.BaudRate = 115200
		}
		if p.ResetBaud == 0 && RoleOf(i) != RoleConsole {
			p.ResetBaud = 9600
		}
		if p.ReadTimeout == 0 {
			p.ReadTimeout = 100 * time.Millisecond
		}
	}
	if c.QueueCapacity == 0 {
		c.QueueCapacity = 64
	}
	if c.Population == 0 {
		c.Population = DefaultPopulation
	}
	if c.Population > MaxServers {
		c.Population = MaxServers
	}
	if c.GPIOErrorThreshold == 0 {
		c.GPIOErrorThreshold = 3
	}
	if c.I2CSpeed == 0 {
		c.I2CSpeed = 100 * physic.KiloHertz
	}
	if c.ResetPulse == 0 {
		c.ResetPulse = 2 * time.Millisecond
	}
	if c.AckTimeout == 0 {
		c.AckTimeout = 500 * time.Millisecond
	}
	if c.BaudSettle == 0 {
		c.BaudSettle = 10 * time.Millisecond
	}
	if c.SelectSettle == 0 {
		c.SelectSettle = time.Millisecond
	}
	if c.WatchdogPulse == 0 {
		c.WatchdogPulse = 10 * time.Millisecond
	}
	if c.EEPROMWriteCycle == 0 {
		c.EEPROMWriteCycle = 5 * time.Millisecond
	}
	if c.GarbageLimit == 0 {
		c.GarbageLimit = console.DefaultGarbageLimit
	}
	if c.FrameLimit == 0 {
		c.FrameLimit = console.DefaultFrameLimit
	}
	if c.PollInterval == 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.JoinTimeout == 0 {
		c.JoinTimeout = 5 * time.Second
	}
	if c.Opener == nil {
		c.Opener = OpenSerial
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
}
