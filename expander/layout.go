package expander

import (
	"errors"
	"fmt"
)

// ErrInvalidID is returned when a device id has no pin assignment.
var ErrInvalidID = errors.New("expander: invalid device id")

// Expander addresses on the chassis I2C bus.
const (
	PowerBaseAddr uint16 = 0x20 // 0x20..0x22, 16 blades each
	MiscAddr      uint16 = 0x23
	FanCageAddr   uint16 = 0x24 // input only
)

const (
	MaxPowerID       = 48
	MaxPowerSwitchID = 3
	MaxFanCageID     = 4
)

// OutputExpanders lists every expander that drives outputs and needs its
// configuration registers programmed at start-up.
var OutputExpanders = []uint16{PowerBaseAddr, PowerBaseAddr + 1, PowerBaseAddr + 2, MiscAddr}

// Polarity describes which electrical level turns a function on.
type Polarity int

const (
	ActiveHigh Polarity = iota
	ActiveLow
)

// Level returns the bit level that puts the function in the requested state.
func (p Polarity) Level(on bool) bool {
	if p == ActiveLow {
		return !on
	}
	return on
}

// On interprets a bit level.
func (p Polarity) On(level bool) bool {
	if p == ActiveLow {
		return !level
	}
	return level
}

// Pin locates one function on an expander.
type Pin struct {
	Addr     uint16
	Port     int
	Bit      uint
	Polarity Polarity
}

func (p Pin) String() string {
	return fmt.Sprintf("0x%02X/%d.%d", p.Addr, p.Port, p.Bit)
}

// Fixed pins on the misc expander.
var (
	StatusLedPin        = Pin{Addr: MiscAddr, Port: 1, Bit: 0, Polarity: ActiveLow}
	RearAttentionLedPin = Pin{Addr: MiscAddr, Port: 1, Bit: 1, Polarity: ActiveLow}
	WatchdogEnablePin   = Pin{Addr: MiscAddr, Port: 1, Bit: 2, Polarity: ActiveHigh}
	WatchdogResetPin    = Pin{Addr: MiscAddr, Port: 1, Bit: 3, Polarity: ActiveLow}
)

// PortOf returns the 8-bit port that serves id within its 16-id group.
func PortOf(id int) int {
	if (id-1)%16 < 8 {
		return 0
	}
	return 1
}

// BitOf returns the bit position of id within its port.
func BitOf(id int) uint {
	return uint((id - 1) % 8)
}

// PowerPin returns the blade-enable pin for a physical blade id.
func PowerPin(id int) (Pin, error) {
	if id < 1 || id > MaxPowerID {
		return Pin{}, fmt.Errorf("%w: power %d", ErrInvalidID, id)
	}
	return Pin{
		Addr:     PowerBaseAddr + uint16((id-1)/16),
		Port:     PortOf(id),
		Bit:      BitOf(id),
		Polarity: ActiveHigh,
	}, nil
}

// PowerSwitchPin returns the pin driving an AC power switch.
func PowerSwitchPin(id int) (Pin, error) {
	if id < 1 || id > MaxPowerSwitchID {
		return Pin{}, fmt.Errorf("%w: power switch %d", ErrInvalidID, id)
	}
	return Pin{Addr: MiscAddr, Port: 0, Bit: BitOf(id), Polarity: ActiveHigh}, nil
}

// FanCagePin returns the intrusion input of a fan cage. The input reads low when
// the cage is open.
func FanCagePin(id int) (Pin, error) {
	if id < 1 || id > MaxFanCageID {
		return Pin{}, fmt.Errorf("%w: fan cage %d", ErrInvalidID, id)
	}
	return Pin{Addr: FanCageAddr, Port: 0, Bit: BitOf(id), Polarity: ActiveLow}, nil
}
