package transports

import (
	"sync"
	"time"

	"github.com/hipsterbrown/chassis-comm/bridge"
	"github.com/hipsterbrown/chassis-comm/console"
)

// SimDevice is an I2C peripheral behind a SimBridge.
type SimDevice interface {
	// WriteI2C receives the data of a write transaction. False NACKs it.
	WriteI2C(data []byte) bool

	// ReadI2C returns n bytes for a read transaction. False NACKs it.
	ReadI2C(n int) ([]byte, bool)
}

// RegisterFile is a SimDevice with an auto-incrementing register pointer of
// one or two bytes (most significant first) at the start of every write.
type RegisterFile struct {
	mu       sync.Mutex
	ptrWidth int
	ptr      int
	regs     map[int]byte
	writes   int
	nack     bool
}

// NewRegisterFile creates an empty register file.
func NewRegisterFile(ptrWidth int) *RegisterFile {
	return &RegisterFile{ptrWidth: ptrWidth, regs: map[int]byte{}}
}

// Set stores values starting at reg.
func (f *RegisterFile) Set(reg int, values ...byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, v := range values {
		f.regs[reg+i] = v
	}
}

// Get returns the value of reg.
func (f *RegisterFile) Get(reg int) byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regs[reg]
}

// SetNack makes the device stop acknowledging its address.
func (f *RegisterFile) SetNack(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nack = on
}

// Writes returns the number of writes that carried data beyond the pointer.
func (f *RegisterFile) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *RegisterFile) WriteI2C(data []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nack || len(data) < f.ptrWidth {
		return false
	}
	f.ptr = 0
	for _, b := range data[:f.ptrWidth] {
		f.ptr = f.ptr<<8 | int(b)
	}
	data = data[f.ptrWidth:]
	if len(data) > 0 {
		f.writes++
	}
	for _, b := range data {
		f.regs[f.ptr] = b
		f.ptr++
	}
	return true
}

func (f *RegisterFile) ReadI2C(n int) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nack {
		return nil, false
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = f.regs[f.ptr]
		f.ptr++
	}
	return out, true
}

// ServerFunc answers an unescaped request frame sent to server slot. A nil
// result leaves the request unanswered. It runs with the bridge locked and
// must not call back into it.
type ServerFunc func(slot int, req []byte) []byte

// EchoServer answers every request with a success response carrying the
// request's sequence byte.
func EchoServer(slot int, req []byte) []byte {
	m, err := console.Parse(req)
	if err != nil {
		return nil
	}
	return console.Message{
		Dst:   m.Src,
		NetFn: m.NetFn + 1,
		LUN:   m.LUN,
		Src:   m.Dst,
		Seq:   m.Seq,
		Cmd:   m.Cmd,
		Data:  []byte{0x00},
	}.Marshal()
}

type segmentDevice struct {
	code byte
	dev  SimDevice
}

const (
	simCrystalHz = 7372800
	simResetBaud = 9600
	segmentMask  = 0x07
	slotMask     = 0x3F
)

// SimBridge emulates a bridge chip on a serial line: its command set,
// internal registers and GPIO port, the I2C devices behind it and, while RTS
// is asserted, the server selected by GPIO0..5. Reads never block; an empty
// output buffer reads as a timeout.
type SimBridge struct {
	mu sync.Mutex

	regs     [bridge.RegI2CStat + 1]byte
	gpio     byte
	stuck    byte
	failGPIO int

	inputMask byte
	inputs    func() byte

	devices  map[uint16]SimDevice
	segments map[uint16][]segmentDevice

	server   ServerFunc
	frame    []byte
	inFrame  bool
	consoles map[int][]byte

	out          []byte
	rts, dtr     bool
	baud         int
	readTimeout  time.Duration
	transactions int
	resets       int
	closed       bool
}

// NewSimBridge returns a bridge fresh out of reset whose servers run EchoServer.
func NewSimBridge() *SimBridge {
	s := &SimBridge{
		devices:  map[uint16]SimDevice{},
		segments: map[uint16][]segmentDevice{},
		consoles: map[int][]byte{},
		server:   EchoServer,
		baud:     simResetBaud,
	}
	s.reset()
	return s
}

func (s *SimBridge) reset() {
	s.regs = [bridge.RegI2CStat + 1]byte{}
	for _, rv := range bridge.BaudDivisor(simResetBaud) {
		s.regs[rv.Reg] = rv.Value
	}
	s.regs[bridge.RegI2CStat] = bridge.StatusOK
	s.gpio = 0
}

// Attach places dev at addr.
func (s *SimBridge) Attach(addr uint16, dev SimDevice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[addr] = dev
}

// AttachSegment places dev at addr on the bus segment connected while
// GPIO0..2 equal code.
func (s *SimBridge) AttachSegment(addr uint16, code byte, dev SimDevice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments[addr] = append(s.segments[addr], segmentDevice{code: code, dev: dev})
}

// SetServer replaces the server responder.
func (s *SimBridge) SetServer(fn ServerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.server = fn
}

// Transactions returns the number of writes the line has carried.
func (s *SimBridge) Transactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactions
}

// Resets returns the number of completed reset pulses.
func (s *SimBridge) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

// GPIO returns the GPIO port value.
func (s *SimBridge) GPIO() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gpio
}

// SetGPIO overrides the GPIO port value.
func (s *SimBridge) SetGPIO(v byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gpio = v
}

// StickGPIO makes the bits in mask ignore GPIO writes.
func (s *SimBridge) StickGPIO(mask byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stuck = mask
}

// DriveInputs makes the bits in mask report the levels returned by fn on
// every GPIO read, as pins configured as inputs would.
func (s *SimBridge) DriveInputs(mask byte, fn func() byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputMask = mask
	s.inputs = fn
}

// FailGPIOReads makes the next n GPIO reads go unanswered.
func (s *SimBridge) FailGPIOReads(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failGPIO = n
}

// Register returns an internal register value.
func (s *SimBridge) Register(reg byte) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[reg]
}

// ConsoleBytes returns the raw bytes sent to server slot outside of frames.
func (s *SimBridge) ConsoleBytes(slot int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.consoles[slot]...)
}

// QueueOutput appends bytes for the host to read.
func (s *SimBridge) QueueOutput(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = append(s.out, b...)
}

// RTS reports the state of the bus-select line.
func (s *SimBridge) RTS() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rts
}

// Closed reports whether Close was called.
func (s *SimBridge) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *SimBridge) chipBaud() int {
	brg := int(s.regs[bridge.RegBRG1])<<8 | int(s.regs[bridge.RegBRG0])
	return simCrystalHz / (brg + 16)
}

func (s *SimBridge) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

func (s *SimBridge) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions++
	switch {
	case s.dtr:
		// Held in reset.
	case s.rts:
		s.serverWrite(p)
	case s.baud == s.chipBaud():
		s.bridgeWrite(p)
	}
	return len(p), nil
}

func (s *SimBridge) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *SimBridge) SetReadTimeout(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readTimeout = timeout
	return nil
}

func (s *SimBridge) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = nil
	return nil
}

func (s *SimBridge) SetRTS(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rts = on
	s.frame = nil
	s.inFrame = false
	return nil
}

// SetDTR holds the chip in reset while asserted. Releasing it resets the
// registers and sends the acknowledgement at the reset baud rate.
func (s *SimBridge) SetDTR(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dtr && !on {
		s.reset()
		s.resets++
		s.out = append(s.out, bridge.ResetAck...)
	}
	s.dtr = on
	return nil
}

func (s *SimBridge) SetBaudRate(baud int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baud = baud
	return nil
}

func (s *SimBridge) bridgeWrite(p []byte) {
	for i := 0; i < len(p); {
		switch p[i] {
		case bridge.CmdStart:
			i = s.i2c(p, i)
		case bridge.CmdReadReg:
			i++
			for i < len(p) && p[i] != bridge.CmdStop {
				if int(p[i]) < len(s.regs) {
					s.out = append(s.out, s.regs[p[i]])
				}
				i++
			}
			i++
		case bridge.CmdWriteReg:
			i++
			for i+1 < len(p) && p[i] != bridge.CmdStop {
				if int(p[i]) < len(s.regs) {
					s.regs[p[i]] = p[i+1]
				}
				i += 2
			}
			i++
		case bridge.CmdReadGPIO:
			if s.failGPIO > 0 {
				s.failGPIO--
			} else {
				s.out = append(s.out, s.readGPIO())
			}
			i += 2
		case bridge.CmdWriteGPIO:
			if i+1 < len(p) {
				s.gpio = s.gpio&s.stuck | p[i+1]&^s.stuck
			}
			i += 3
		default:
			i++
		}
	}
}

func (s *SimBridge) readGPIO() byte {
	if s.inputs == nil {
		return s.gpio
	}
	return s.gpio&^s.inputMask | s.inputs()&s.inputMask
}

func (s *SimBridge) device(addr uint16) SimDevice {
	if dev, ok := s.devices[addr]; ok {
		return dev
	}
	for _, sd := range s.segments[addr] {
		if sd.code == s.gpio&segmentMask {
			return sd.dev
		}
	}
	return nil
}

// i2c runs one I2C command starting at p[i] and returns the index after it.
func (s *SimBridge) i2c(p []byte, i int) int {
	status := bridge.StatusOK
	for i+2 < len(p) && p[i] == bridge.CmdStart {
		addrByte, n := p[i+1], int(p[i+2])
		i += 3
		dev := s.device(uint16(addrByte >> 1))
		if addrByte&1 == 0 {
			end := min(i+n, len(p))
			data := p[i:end]
			i = end
			if status == bridge.StatusOK && (dev == nil || !dev.WriteI2C(data)) {
				status = bridge.StatusNackAddr
			}
			continue
		}
		if status != bridge.StatusOK {
			continue
		}
		if dev == nil {
			status = bridge.StatusNackAddr
			continue
		}
		data, ok := dev.ReadI2C(n)
		if !ok {
			status = bridge.StatusNackAddr
			continue
		}
		s.out = append(s.out, data...)
	}
	if i < len(p) && p[i] == bridge.CmdStop {
		i++
	}
	s.regs[bridge.RegI2CStat] = status
	return i
}

// serverWrite delivers bytes to the selected server. Framed requests are
// answered through the server responder; anything else is console input.
func (s *SimBridge) serverWrite(p []byte) {
	slot := int(s.gpio&slotMask) + 1
	for _, c := range p {
		switch {
		case c == console.ByteStart:
			s.frame = append(s.frame[:0], c)
			s.inFrame = true
		case s.inFrame && c == console.ByteStop:
			s.inFrame = false
			body, err := console.Unescape(s.frame[1:])
			if err != nil || s.server == nil {
				continue
			}
			req := append(append([]byte{console.ByteStart}, body...), console.ByteStop)
			if resp := s.server(slot, req); resp != nil {
				s.out = append(s.out, console.Encode(resp)...)
			}
		case s.inFrame:
			s.frame = append(s.frame, c)
		default:
			s.consoles[slot] = append(s.consoles[slot], c)
		}
	}
}
