// Package config loads the chassisctl YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Chassis ChassisConfig `yaml:"chassis"`
}

type ChassisConfig struct {
	Population int           `yaml:"population"`
	Ports      []PortConfig  `yaml:"ports"`
	Queue      QueueConfig   `yaml:"queue"`
	Bridge     BridgeConfig  `yaml:"bridge"`
	Console    ConsoleConfig `yaml:"console"`
	Timing     TimingConfig  `yaml:"timing"`
}

// ---- PORTS ----

type PortConfig struct {
	ID            int    `yaml:"id"`
	Device        string `yaml:"device"`
	BaudRate      int    `yaml:"baud_rate"`
	ResetBaudRate int    `yaml:"reset_baud_rate"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
}

// ---- QUEUES ----

type QueueConfig struct {
	Capacity       int `yaml:"capacity"`
	PollIntervalMs int `yaml:"poll_interval_ms"`
	JoinTimeoutMs  int `yaml:"join_timeout_ms"`
}

// ---- BRIDGE CHIP ----

type BridgeConfig struct {
	I2CSpeedKHz        int `yaml:"i2c_speed_khz"`
	GPIOErrorThreshold int `yaml:"gpio_error_threshold"`
	ResetPulseMs       int `yaml:"reset_pulse_ms"`
	AckTimeoutMs       int `yaml:"ack_timeout_ms"`
	BaudSettleMs       int `yaml:"baud_settle_ms"`
	SelectSettleMs     int `yaml:"select_settle_ms"`
}

// ---- CONSOLE FRAMING ----

type ConsoleConfig struct {
	GarbageLimit int `yaml:"garbage_limit"`
	FrameLimit   int `yaml:"frame_limit"`
}

// ---- DEVICE TIMING ----

type TimingConfig struct {
	WatchdogPulseMs    int `yaml:"watchdog_pulse_ms"`
	EEPROMWriteCycleMs int `yaml:"eeprom_write_cycle_ms"`
}

// Load reads and decodes a YAML file. Unknown fields are rejected.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &cfg, nil
}
