package commdev

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// PortManager owns the request queues of one physical port.
type PortManager interface {
	// Enqueue adds env to the queue of priority p without blocking.
	Enqueue(p Priority, env *Envelope) error

	// Terminate drains the queues, stops the worker and waits up to timeout
	// for it to exit. It reports whether the worker exited in time.
	Terminate(timeout time.Duration) bool

	SetSafeMode(on bool)
	SafeMode() bool

	// Status returns a snapshot of the queue state.
	Status() PortStatus
}

// Executor runs one request against the hardware of a port.
type Executor interface {
	Execute(env *Envelope) Response
}

// PortStatus is a diagnostic snapshot of one port.
type PortStatus struct {
	Port     int
	Role     PortRole
	Device   string
	Depth    [NumPriorities]int
	SafeMode bool
	Running  bool
}

type queue struct {
	mu    sync.Mutex
	items []*Envelope
}

// QueueManager is the PortManager of a port: bounded strict-priority FIFOs
// drained by a single worker goroutine.
type QueueManager struct {
	port     int
	device   string
	exec     Executor
	capacity int
	poll     time.Duration
	log      *logrus.Entry

	queues [NumPriorities]queue
	wake   chan struct{}
	exited chan struct{}

	// closing is held for writing while shutdown is set so that no envelope
	// is appended after Terminate started.
	closing sync.RWMutex

	shutdown atomic.Bool
	safeMode atomic.Bool
	running  atomic.Bool
}

var _ PortManager = (*QueueManager)(nil)

// NewQueueManager creates the manager of port. Start launches its worker.
func NewQueueManager(port int, device string, exec Executor, capacity int, poll time.Duration, log *logrus.Entry) *QueueManager {
	return &QueueManager{
		port:     port,
		device:   device,
		exec:     exec,
		capacity: capacity,
		poll:     poll,
		log:      log,
		wake:     make(chan struct{}, 1),
		exited:   make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (m *QueueManager) Start() {
	m.running.Store(true)
	go m.run()
}

// Enqueue adds env to the queue of priority p. A full queue or an unknown
// priority fails with OutOfSpace and leaves the queues unchanged.
func (m *QueueManager) Enqueue(p Priority, env *Envelope) error {
	if p < 0 || p >= NumPriorities {
		return newError("enqueue", OutOfSpace, fmt.Errorf("unknown priority %d", p))
	}
	m.closing.RLock()
	defer m.closing.RUnlock()
	if m.shutdown.Load() {
		return newError("enqueue", ServiceTerminating, nil)
	}

	q := &m.queues[p]
	q.mu.Lock()
	if len(q.items) >= m.capacity {
		q.mu.Unlock()
		return newError("enqueue", OutOfSpace, fmt.Errorf("%s queue full", p))
	}
	q.items = append(q.items, env)
	q.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return nil
}

// dequeue pops the head of the highest priority non-empty queue.
func (m *QueueManager) dequeue() (*Envelope, bool) {
	for i := range m.queues {
		q := &m.queues[i]
		q.mu.Lock()
		if len(q.items) > 0 {
			env := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()
			return env, true
		}
		q.mu.Unlock()
	}
	return nil, false
}

func (m *QueueManager) run() {
	defer close(m.exited)
	defer m.running.Store(false)

	timer := time.NewTimer(m.poll)
	defer timer.Stop()

	for {
		if env, ok := m.dequeue(); ok {
			m.execute(env)
			continue
		}
		if m.shutdown.Load() {
			m.log.Debug("queues drained, worker exiting")
			return
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(m.poll)
		select {
		case <-m.wake:
		case <-timer.C:
		}
	}
}

func (m *QueueManager) execute(env *Envelope) {
	defer func() {
		if r := recover(); r != nil {
			m.log.WithFields(logrus.Fields{
				"device_type": env.DeviceType,
				"device_id":   env.DeviceID,
				"session":     env.Session,
				"panic":       r,
			}).Error("worker recovered from panic")
			env.Complete(NewResponse(UnspecifiedError, nil))
		}
	}()

	if m.safeMode.Load() && BlockedInSafeMode(m.port, env.DeviceType) {
		m.log.WithField("device_type", env.DeviceType).Debug("request denied in safe mode")
		env.Complete(NewResponse(CannotExecuteRequestInSafeMode, nil))
		return
	}
	env.Complete(m.exec.Execute(env))
}

// Terminate stops accepting work, lets the worker drain the queues and waits
// up to timeout for it to exit. Envelopes still queued after that are answered
// with ServiceTerminating.
func (m *QueueManager) Terminate(timeout time.Duration) bool {
	m.closing.Lock()
	m.shutdown.Store(true)
	m.closing.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}

	joined := true
	if m.running.Load() {
		select {
		case <-m.exited:
		case <-time.After(timeout):
			joined = false
			m.log.WithField("timeout", timeout).Warn("worker did not exit in time, abandoning it")
		}
	}
	if joined {
		for {
			env, ok := m.dequeue()
			if !ok {
				break
			}
			env.Complete(NewResponse(ServiceTerminating, nil))
		}
	}
	return joined
}

func (m *QueueManager) SetSafeMode(on bool) {
	m.safeMode.Store(on)
}

func (m *QueueManager) SafeMode() bool {
	return m.safeMode.Load()
}

func (m *QueueManager) Status() PortStatus {
	st := PortStatus{
		Port:     m.port,
		Role:     RoleOf(m.port),
		Device:   m.device,
		SafeMode: m.safeMode.Load(),
		Running:  m.running.Load(),
	}
	for i := range m.queues {
		q := &m.queues[i]
		q.mu.Lock()
		st.Depth[i] = len(q.items)
		q.mu.Unlock()
	}
	return st
}
