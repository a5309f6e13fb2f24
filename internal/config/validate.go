package config

import (
	"fmt"

	"github.com/hipsterbrown/chassis-comm/commdev"
)

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate cfg.
// Zero values are legal and select defaults.
func Validate(cfg *Config) error {
	c := cfg.Chassis

	if c.Population < 0 || c.Population > commdev.MaxServers {
		return fmt.Errorf("population %d out of range 0..%d", c.Population, commdev.MaxServers)
	}

	// ------------------------------------------------------------
	// PORTS
	// ------------------------------------------------------------

	seenID := make(map[int]bool)
	seenDev := make(map[string]int)

	for _, p := range c.Ports {
		if p.ID < 0 || p.ID >= commdev.NumPorts {
			return fmt.Errorf("port %d: id out of range 0..%d", p.ID, commdev.NumPorts-1)
		}
		if seenID[p.ID] {
			return fmt.Errorf("port %d: declared more than once", p.ID)
		}
		seenID[p.ID] = true

		if p.Device == "" {
			return fmt.Errorf("port %d: device is required", p.ID)
		}
		if other, ok := seenDev[p.Device]; ok {
			return fmt.Errorf("port %d: device %q already used by port %d", p.ID, p.Device, other)
		}
		seenDev[p.Device] = p.ID

		if p.BaudRate < 0 || p.ResetBaudRate < 0 {
			return fmt.Errorf("port %d: baud rate must not be negative", p.ID)
		}
		if p.ReadTimeoutMs < 0 {
			return fmt.Errorf("port %d: read_timeout_ms must not be negative", p.ID)
		}
		if p.ResetBaudRate != 0 && commdev.RoleOf(p.ID) == commdev.RoleConsole {
			return fmt.Errorf("port %d: reset_baud_rate is only valid on bridge ports", p.ID)
		}
	}

	// ------------------------------------------------------------
	// SCALARS
	// ------------------------------------------------------------

	nonNegative := []struct {
		name string
		v    int
	}{
		{"queue.capacity", c.Queue.Capacity},
		{"queue.poll_interval_ms", c.Queue.PollIntervalMs},
		{"queue.join_timeout_ms", c.Queue.JoinTimeoutMs},
		{"bridge.i2c_speed_khz", c.Bridge.I2CSpeedKHz},
		{"bridge.gpio_error_threshold", c.Bridge.GPIOErrorThreshold},
		{"bridge.reset_pulse_ms", c.Bridge.ResetPulseMs},
		{"bridge.ack_timeout_ms", c.Bridge.AckTimeoutMs},
		{"bridge.baud_settle_ms", c.Bridge.BaudSettleMs},
		{"bridge.select_settle_ms", c.Bridge.SelectSettleMs},
		{"console.garbage_limit", c.Console.GarbageLimit},
		{"console.frame_limit", c.Console.FrameLimit},
		{"timing.watchdog_pulse_ms", c.Timing.WatchdogPulseMs},
		{"timing.eeprom_write_cycle_ms", c.Timing.EEPROMWriteCycleMs},
	}
	for _, f := range nonNegative {
		if f.v < 0 {
			return fmt.Errorf("%s must not be negative", f.name)
		}
	}

	if c.Bridge.I2CSpeedKHz > 400 {
		return fmt.Errorf("bridge.i2c_speed_khz %d exceeds 400", c.Bridge.I2CSpeedKHz)
	}
	if c.Console.FrameLimit != 0 && c.Console.FrameLimit < 10 {
		return fmt.Errorf("console.frame_limit %d is shorter than a response frame", c.Console.FrameLimit)
	}

	return nil
}
