package console

import (
	"errors"
	"fmt"
	"io"
)

// Default decoder limits.
const (
	DefaultGarbageLimit = 256
	DefaultFrameLimit   = 1024
)

var (
	ErrTimeout      = errors.New("console: response timeout")
	ErrGarbageLimit = errors.New("console: too many bytes before start of frame")
	ErrFrameTooLong = errors.New("console: frame exceeds size limit")
	ErrShortFrame   = errors.New("console: response frame too short")
)

// Decoder extracts response frames from a console byte stream. A Read on the
// underlying reader that returns no bytes and no error is a timeout.
type Decoder struct {
	r            io.Reader
	GarbageLimit int
	FrameLimit   int

	buf  []byte
	pos  int
	read [64]byte
}

// NewDecoder returns a decoder with the default limits.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, GarbageLimit: DefaultGarbageLimit, FrameLimit: DefaultFrameLimit}
}

func (d *Decoder) next() (byte, error) {
	if d.pos >= len(d.buf) {
		n, err := d.r.Read(d.read[:])
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, ErrTimeout
		}
		d.buf = d.read[:n]
		d.pos = 0
	}
	c := d.buf[d.pos]
	d.pos++
	return c, nil
}

// ReadFrame returns the next unescaped response frame, start and stop bytes
// included, whose sequence byte equals seq. Frames carrying another sequence
// byte are stale answers to earlier requests and are skipped, whatever their
// length. Frames that cannot be unescaped are skipped too; if nothing follows
// them the escape error is returned instead of the timeout. A frame that is
// stop-terminated but shorter than a response, and whose sequence byte is
// missing or matches, is returned with ErrShortFrame.
func (d *Decoder) ReadFrame(seq byte) ([]byte, error) {
	var badFrame error
	for {
		raw, err := d.readRaw()
		if err != nil {
			if badFrame != nil && errors.Is(err, ErrTimeout) {
				return nil, badFrame
			}
			return nil, err
		}
		frame, err := d.unescapeFrame(raw)
		if err != nil {
			badFrame = err
			continue
		}
		if len(frame) > SeqOffset && frame[SeqOffset] != seq {
			continue
		}
		if len(frame) < MinResponseLen {
			return frame, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(frame))
		}
		return frame, nil
	}
}

func (d *Decoder) unescapeFrame(raw []byte) ([]byte, error) {
	body, err := Unescape(raw[1 : len(raw)-1])
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 0, len(body)+2)
	frame = append(frame, ByteStart)
	frame = append(frame, body...)
	return append(frame, ByteStop), nil
}

// readRaw returns the next escaped frame between a start and a stop byte.
func (d *Decoder) readRaw() ([]byte, error) {
	garbage := 0
	for {
		c, err := d.next()
		if err != nil {
			return nil, err
		}
		if c == ByteStart {
			break
		}
		garbage++
		if d.GarbageLimit > 0 && garbage > d.GarbageLimit {
			return nil, fmt.Errorf("%w: %d bytes", ErrGarbageLimit, garbage)
		}
	}

	frame := []byte{ByteStart}
	for {
		c, err := d.next()
		if err != nil {
			return nil, err
		}
		switch c {
		case ByteStart:
			// An unterminated frame was abandoned; start over.
			frame = frame[:1]
			continue
		case ByteStop:
			return append(frame, ByteStop), nil
		}
		frame = append(frame, c)
		if d.FrameLimit > 0 && len(frame) >= d.FrameLimit {
			return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLong, len(frame))
		}
	}
}
