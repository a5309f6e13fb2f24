package config

import (
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"

	"github.com/hipsterbrown/chassis-comm/commdev"
)

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// ToCommdev converts a validated configuration. Unset fields stay zero so
// that commdev applies its own defaults.
func (cfg *Config) ToCommdev(log *logrus.Logger) commdev.Config {
	c := cfg.Chassis

	out := commdev.Config{
		QueueCapacity:      c.Queue.Capacity,
		Population:         c.Population,
		GPIOErrorThreshold: c.Bridge.GPIOErrorThreshold,
		I2CSpeed:           physic.Frequency(c.Bridge.I2CSpeedKHz) * physic.KiloHertz,
		ResetPulse:         ms(c.Bridge.ResetPulseMs),
		AckTimeout:         ms(c.Bridge.AckTimeoutMs),
		BaudSettle:         ms(c.Bridge.BaudSettleMs),
		SelectSettle:       ms(c.Bridge.SelectSettleMs),
		WatchdogPulse:      ms(c.Timing.WatchdogPulseMs),
		EEPROMWriteCycle:   ms(c.Timing.EEPROMWriteCycleMs),
		GarbageLimit:       c.Console.GarbageLimit,
		FrameLimit:         c.Console.FrameLimit,
		PollInterval:       ms(c.Queue.PollIntervalMs),
		JoinTimeout:        ms(c.Queue.JoinTimeoutMs),
		Logger:             log,
	}

	for _, p := range c.Ports {
		out.Ports[p.ID] = commdev.PortConfig{
			Device:      p.Device,
			BaudRate:    p.BaudRate,
			ResetBaud:   p.ResetBaudRate,
			ReadTimeout: ms(p.ReadTimeoutMs),
		}
	}
	return out
}
