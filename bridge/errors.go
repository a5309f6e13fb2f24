package bridge

import (
	"errors"
	"fmt"
)

// Sentinel errors for command building and transport failures.
var (
	ErrTimeout   = errors.New("bridge: response timeout")
	ErrEmptyData = errors.New("bridge: empty data")
	ErrCount     = errors.New("bridge: byte count out of range")
	ErrAddress   = errors.New("bridge: invalid i2c address")
	ErrNoAck     = errors.New("bridge: reset acknowledgement not received")
)

// CommandError reports a rejected command before anything is written.
type CommandError struct {
	Op  string
	Err error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("bridge %s: %v", e.Op, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// I2CError reports a non-OK I2C bus status after a transaction.
type I2CError struct {
	Addr   uint16
	Status byte
}

func (e *I2CError) Error() string {
	var reason string
	switch e.Status {
	case StatusNackAddr:
		reason = "nack on address"
	case StatusNackData:
		reason = "nack on data"
	case StatusTimeout:
		reason = "bus timeout"
	default:
		reason = "bus error"
	}
	return fmt.Sprintf("i2c 0x%02X: %s (status 0x%02X)", e.Addr, reason, e.Status)
}

// CheckStatus maps an I2CStat value to an error. A non-zero low nibble is a failure.
func CheckStatus(addr uint16, status byte) error {
	if status&0x0F != 0 {
		return &I2CError{Addr: addr, Status: status}
	}
	return nil
}

// IsTimeout returns true if the error is a response timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsI2CError returns true if the error carries a failed bus status.
func IsI2CError(err error) bool {
	var e *I2CError
	return errors.As(err, &e)
}
