package commdev

import (
	"fmt"
	"strings"
)

// DeviceType identifies the kind of endpoint a request is addressed to.
type DeviceType byte

const (
	Fan DeviceType = iota + 1
	PSU
	Power
	Server
	BladeConsole
	SerialPortConsole
	WatchdogTimer
	StatusLed
	RearAttentionLed
	PowerSwitch
	FanCage
	ChassisFruEeprom
)

var deviceNames = map[DeviceType]string{
	Fan:               "fan",
	PSU:               "psu",
	Power:             "power",
	Server:            "server",
	BladeConsole:      "bladeconsole",
	SerialPortConsole: "serialconsole",
	WatchdogTimer:     "watchdog",
	StatusLed:         "statusled",
	RearAttentionLed:  "rearled",
	PowerSwitch:       "powerswitch",
	FanCage:           "fancage",
	ChassisFruEeprom:  "eeprom",
}

func (t DeviceType) String() string {
	if s, ok := deviceNames[t]; ok {
		return s
	}
	return fmt.Sprintf("devicetype(%d)", byte(t))
}

// Valid reports whether t is a known device type.
func (t DeviceType) Valid() bool {
	_, ok := deviceNames[t]
	return ok
}

// ParseDeviceType returns the device type with the given name.
func ParseDeviceType(s string) (DeviceType, error) {
	s = strings.ToLower(s)
	for t, name := range deviceNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown device type %q", s)
}

// Device id limits.
const (
	MaxFans           = 6
	MaxPSUs           = 6
	MaxServers        = 48
	MaxConsolePorts   = 4
	MaxPowerSwitches  = 3
	MaxFanCages       = 4
	DefaultPopulation = 24
)

// MaxID returns the highest valid id of t for a chassis populated with
// population server slots.
func MaxID(t DeviceType, population int) int {
	switch t {
	case Fan:
		return MaxFans
	case PSU:
		return MaxPSUs
	case Power, Server, BladeConsole:
		return population
	case SerialPortConsole:
		return MaxConsolePorts
	case PowerSwitch:
		return MaxPowerSwitches
	case FanCage:
		return MaxFanCages
	case WatchdogTimer, StatusLed, RearAttentionLed, ChassisFruEeprom:
		return 1
	}
	return 0
}

// Logical ports.
const (
	PortServers = 0
	PortChassis = 5
	NumPorts    = 6
)

// PortRole describes what is attached to a logical port.
type PortRole int

const (
	RoleServers PortRole = iota
	RoleConsole
	RoleChassis
)

func (r PortRole) String() string {
	switch r {
	case RoleServers:
		return "servers"
	case RoleConsole:
		return "console"
	case RoleChassis:
		return "chassis"
	}
	return "unknown"
}

// RoleOf returns the role of logical port id.
func RoleOf(port int) PortRole {
	switch port {
	case PortServers:
		return RoleServers
	case PortChassis:
		return RoleChassis
	}
	return RoleConsole
}

// PortFor returns the logical port serving device id of type t. Serial
// console ids select one of the console ports directly.
func PortFor(t DeviceType, id int) int {
	switch t {
	case Server, BladeConsole:
		return PortServers
	case SerialPortConsole:
		return id
	}
	return PortChassis
}

// BlockedInSafeMode reports whether safe mode denies t on port.
func BlockedInSafeMode(port int, t DeviceType) bool {
	return port == PortServers && t != BladeConsole
}

// Priority is a queue rank; lower values are served first.
type Priority int

const (
	System Priority = iota
	User
	NumPriorities
)

func (p Priority) String() string {
	switch p {
	case System:
		return "system"
	case User:
		return "user"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// ParsePriority returns the priority with the given name.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(s) {
	case "system":
		return System, nil
	case "user":
		return User, nil
	}
	return 0, fmt.Errorf("unknown priority %q", s)
}
