// Package console implements the start/stop framed protocol spoken by server
// management controllers on the shared console UART: byte escaping, checksums,
// request validation and a response decoder that drops stale frames.
package console

import (
	"errors"
	"fmt"
)

// Framing bytes.
const (
	ByteStart     byte = 0xA0
	ByteStop      byte = 0xA5
	ByteHandshake byte = 0xA6
	ByteEscape    byte = 0xAA
	byteEsc       byte = 0x1B
)

// Frame layout. Offsets count the start byte and refer to unescaped frames.
const (
	HeaderLen      = 5
	SeqOffset      = 5
	cmdOffset      = 6
	MinRequestLen  = 9
	MinResponseLen = 10
)

// Mux switch command: OEM network function, switch-to-system selector.
const (
	NetFnOEM        byte = 0x30
	CmdMuxSwitch    byte = 0x34
	MuxSelectSystem byte = 0x01
)

var (
	ErrInvalidRequest = errors.New("console: invalid request frame")
	ErrBadEscape      = errors.New("console: invalid escape sequence")
	ErrChecksum       = errors.New("console: checksum mismatch")
)

var escapes = map[byte]byte{
	ByteStart:     0xB0,
	ByteStop:      0xB5,
	ByteHandshake: 0xB6,
	ByteEscape:    0xBA,
	byteEsc:       0x3B,
}

var unescapes = map[byte]byte{
	0xB0: ByteStart,
	0xB5: ByteStop,
	0xB6: ByteHandshake,
	0xBA: ByteEscape,
	0x3B: byteEsc,
}

// Escape replaces every reserved byte in b with its two-byte escape sequence.
func Escape(b []byte) []byte {
	out := make([]byte, 0, len(b)+4)
	for _, c := range b {
		if e, ok := escapes[c]; ok {
			out = append(out, ByteEscape, e)
			continue
		}
		out = append(out, c)
	}
	return out
}

// Unescape reverses Escape.
func Unescape(b []byte) ([]byte, error) {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != ByteEscape {
			out = append(out, b[i])
			continue
		}
		if i+1 >= len(b) {
			return nil, fmt.Errorf("%w: trailing escape", ErrBadEscape)
		}
		c, ok := unescapes[b[i+1]]
		if !ok {
			return nil, fmt.Errorf("%w: 0x%02X", ErrBadEscape, b[i+1])
		}
		out = append(out, c)
		i++
	}
	return out, nil
}

// Checksum returns the two's-complement checksum of b.
func Checksum(b []byte) byte {
	var sum byte
	for _, c := range b {
		sum += c
	}
	return -sum
}

// Encode escapes the body of an unescaped frame for transmission. The start
// and stop bytes are kept as-is.
func Encode(frame []byte) []byte {
	out := make([]byte, 0, len(frame)+4)
	out = append(out, ByteStart)
	out = append(out, Escape(frame[1:len(frame)-1])...)
	return append(out, ByteStop)
}

// Message is one request or response. For responses the completion code is
// the first data byte.
type Message struct {
	Dst   byte // rsSA for requests, rqSA for responses
	NetFn byte
	LUN   byte
	Src   byte
	Seq   byte
	Cmd   byte
	Data  []byte
}

// Marshal builds the unescaped frame including start and stop bytes.
func (m Message) Marshal() []byte {
	buf := make([]byte, 0, MinRequestLen+len(m.Data))
	buf = append(buf, ByteStart, m.Dst, m.NetFn<<2|m.LUN&0x3)
	buf = append(buf, Checksum(buf[1:3]))
	buf = append(buf, m.Src, m.Seq, m.Cmd)
	buf = append(buf, m.Data...)
	buf = append(buf, Checksum(buf[4:]))
	return append(buf, ByteStop)
}

// Parse decodes an unescaped frame and verifies both checksums.
func Parse(frame []byte) (Message, error) {
	if len(frame) < MinRequestLen || frame[0] != ByteStart || frame[len(frame)-1] != ByteStop {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrInvalidRequest, len(frame))
	}
	if Checksum(frame[1:3]) != frame[3] {
		return Message{}, fmt.Errorf("%w: header", ErrChecksum)
	}
	end := len(frame) - 2
	if Checksum(frame[4:end]) != frame[end] {
		return Message{}, fmt.Errorf("%w: body", ErrChecksum)
	}
	return Message{
		Dst:   frame[1],
		NetFn: frame[2] >> 2,
		LUN:   frame[2] & 0x3,
		Src:   frame[4],
		Seq:   frame[SeqOffset],
		Cmd:   frame[cmdOffset],
		Data:  append([]byte(nil), frame[cmdOffset+1:end]...),
	}, nil
}

// ValidateRequest checks that req has the fixed request shape: start byte,
// header, sequence and command bytes, checksum and stop byte.
func ValidateRequest(req []byte) error {
	if len(req) < MinRequestLen {
		return fmt.Errorf("%w: %d bytes", ErrInvalidRequest, len(req))
	}
	if req[0] != ByteStart || req[len(req)-1] != ByteStop {
		return fmt.Errorf("%w: missing start or stop byte", ErrInvalidRequest)
	}
	return nil
}

// Seq returns the sequence byte of a validated frame.
func Seq(frame []byte) byte {
	return frame[SeqOffset]
}

// IsMuxSwitchToSystem reports whether req asks the server to hand its console
// mux over to the system side.
func IsMuxSwitchToSystem(req []byte) bool {
	if ValidateRequest(req) != nil || len(req) < MinRequestLen+1 {
		return false
	}
	return req[2]>>2 == NetFnOEM && req[cmdOffset] == CmdMuxSwitch && req[cmdOffset+1] == MuxSelectSystem
}

// StripMuxMarker removes the chassis-side marker byte that may follow the mux
// selector and recomputes the body checksum. Other requests are returned unchanged.
func StripMuxMarker(req []byte) []byte {
	if !IsMuxSwitchToSystem(req) || len(req) != MinRequestLen+2 {
		return req
	}
	out := make([]byte, 0, len(req)-1)
	out = append(out, req[:cmdOffset+2]...)
	out = append(out, Checksum(out[4:]), ByteStop)
	return out
}
