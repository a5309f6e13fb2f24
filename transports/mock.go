package transports

import (
	"time"
)

// MockTransport is a scripted transport for tests. Reads return queued
// ReadData and then time out with zero bytes.
type MockTransport struct {
	ReadData    []byte
	ReadErr     error
	WriteData   []byte
	WriteErr    error
	Closed      bool
	ReadTimeout time.Duration
	Flushes     int
	RTS         bool
	DTR         bool
	DTRPulses   int
	BaudRate    int

	// ReadFunc allows custom read behavior for complex tests
	ReadFunc func(p []byte) (int, error)
}

func (m *MockTransport) Read(p []byte) (int, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(p)
	}
	if m.ReadErr != nil {
		return 0, m.ReadErr
	}
	n := copy(p, m.ReadData)
	m.ReadData = m.ReadData[n:]
	return n, nil
}

func (m *MockTransport) Write(p []byte) (int, error) {
	if m.WriteErr != nil {
		return 0, m.WriteErr
	}
	m.WriteData = append(m.WriteData, p...)
	return len(p), nil
}

func (m *MockTransport) Close() error {
	m.Closed = true
	return nil
}

func (m *MockTransport) SetReadTimeout(timeout time.Duration) error {
	m.ReadTimeout = timeout
	return nil
}

// Flush counts calls. Queued ReadData is kept so tests can preload responses.
func (m *MockTransport) Flush() error {
	m.Flushes++
	return nil
}

func (m *MockTransport) SetRTS(on bool) error {
	m.RTS = on
	return nil
}

func (m *MockTransport) SetDTR(on bool) error {
	if m.DTR && !on {
		m.DTRPulses++
	}
	m.DTR = on
	return nil
}

func (m *MockTransport) SetBaudRate(baud int) error {
	m.BaudRate = baud
	return nil
}
