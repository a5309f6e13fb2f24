package commdev

import (
	"encoding/binary"
	"fmt"
)

// HeaderLen is the size of the function or completion code plus the
// little-endian payload length that start every request and response.
const HeaderLen = 3

// NewRequest builds a request buffer.
func NewRequest(fc byte, payload []byte) []byte {
	buf := make([]byte, HeaderLen, HeaderLen+len(payload))
	buf[0] = fc
	binary.LittleEndian.PutUint16(buf[1:], uint16(len(payload)))
	return append(buf, payload...)
}

// Request is a request buffer: function code, payload length, payload.
type Request []byte

// FunctionCode returns the first byte.
func (r Request) FunctionCode() byte {
	if len(r) == 0 {
		return 0
	}
	return r[0]
}

// Payload returns the bytes following the header.
func (r Request) Payload() []byte {
	if len(r) < HeaderLen {
		return nil
	}
	return r[HeaderLen:]
}

// Validate checks the declared payload length against the buffer length.
func (r Request) Validate() error {
	if len(r) < HeaderLen {
		return fmt.Errorf("request too short: %d bytes", len(r))
	}
	declared := int(binary.LittleEndian.Uint16(r[1:HeaderLen]))
	if declared != len(r)-HeaderLen {
		return fmt.Errorf("declared payload length %d, have %d", declared, len(r)-HeaderLen)
	}
	return nil
}

// Response is a response buffer: completion code, payload length, payload.
type Response []byte

// NewResponse builds a response buffer.
func NewResponse(code CompletionCode, payload []byte) Response {
	buf := make([]byte, HeaderLen, HeaderLen+len(payload))
	buf[0] = byte(code)
	binary.LittleEndian.PutUint16(buf[1:], uint16(len(payload)))
	return append(buf, payload...)
}

// Code returns the completion code.
func (r Response) Code() CompletionCode {
	if len(r) == 0 {
		return UnspecifiedError
	}
	return CompletionCode(r[0])
}

// Payload returns the bytes following the header.
func (r Response) Payload() []byte {
	if len(r) < HeaderLen {
		return nil
	}
	return r[HeaderLen:]
}

// Function codes, interpreted per device type.
const (
	FanGetSpeed byte = 0x01
	FanSetSpeed byte = 0x02

	PsuRead  byte = 0x01
	PsuWrite byte = 0x02

	GetState byte = 0x01 // Power, PowerSwitch, StatusLed, RearAttentionLed
	TurnOn   byte = 0x02
	TurnOff  byte = 0x03

	WatchdogEnable  byte = 0x01
	WatchdogDisable byte = 0x02
	WatchdogReset   byte = 0x03

	GetIntrusion byte = 0x01

	EepromRead  byte = 0x01
	EepromWrite byte = 0x02

	ConsoleSend    byte = 0x01
	ConsoleReceive byte = 0x02
	ConsoleFlush   byte = 0x03
)
