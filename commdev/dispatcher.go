// Package commdev routes requests from many callers to the few physical
// serial ports of a chassis manager. Each port has bounded priority queues
// drained by one worker goroutine that owns all I/O on that port.
package commdev

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

type portSet struct {
	managers [NumPorts]*QueueManager
	workers  [NumPorts]*SerialPortWorker
}

// Dispatcher is the entry point of the subsystem.
type Dispatcher struct {
	cfg Config
	log *logrus.Entry

	mu    sync.Mutex // serializes Init and Release
	ports atomic.Pointer[portSet]

	shutdown atomic.Bool
	safeMode atomic.Bool
	session  atomic.Uint32
}

// New creates a dispatcher. Init must be called before requests are sent.
func New(cfg Config) *Dispatcher {
	cfg.setDefaults()
	return &Dispatcher{
		cfg: cfg,
		log: cfg.Logger.WithField("component", "commdev"),
	}
}

// Init opens and initializes every configured port and starts the workers.
// On failure every port opened so far is closed again.
func (d *Dispatcher) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ports.Load() != nil {
		return nil
	}

	set := &portSet{}
	fail := func(err error) error {
		for _, w := range set.workers {
			if w != nil {
				w.Close()
			}
		}
		d.log.WithError(err).Error("initialization failed")
		return err
	}

	for port, pc := range d.cfg.Ports {
		if err := ctx.Err(); err != nil {
			return fail(newError("init", CommDevFailedToInit, err))
		}
		if pc.Device == "" {
			continue
		}
		log := d.log.WithFields(logrus.Fields{"port": port, "device": pc.Device, "role": RoleOf(port)})

		t, err := d.cfg.Opener(port, pc)
		if err != nil {
			return fail(newError(fmt.Sprintf("open %s", pc.Device), FailToOpenSerialPort, err))
		}
		w := NewSerialPortWorker(port, t, &d.cfg, log, d.EnableSafeMode)
		set.workers[port] = w
		if err := w.Init(); err != nil {
			return fail(err)
		}
		set.managers[port] = NewQueueManager(port, pc.Device, w, d.cfg.QueueCapacity, d.cfg.PollInterval, log)
		log.Info("port ready")
	}

	d.safeMode.Store(false)
	d.shutdown.Store(false)
	for _, m := range set.managers {
		if m != nil {
			m.Start()
		}
	}
	d.ports.Store(set)
	return nil
}

// Release stops accepting requests, lets every worker drain its queues and
// closes the ports. Workers that do not exit within the join timeout are
// abandoned.
func (d *Dispatcher) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	set := d.ports.Load()
	if set == nil {
		return nil
	}
	d.shutdown.Store(true)

	var errs []error
	for port, m := range set.managers {
		if m == nil {
			continue
		}
		if !m.Terminate(d.cfg.JoinTimeout) {
			d.log.WithField("port", port).Warn("worker abandoned")
		}
		if err := set.workers[port].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.ports.Store(nil)
	d.log.Info("released")
	return errors.Join(errs...)
}

// SendReceive executes req on device id of type t and blocks until the owning
// port worker answers or ctx ends. The returned response always carries a
// completion code.
func (d *Dispatcher) SendReceive(ctx context.Context, p Priority, t DeviceType, id int, req []byte) Response {
	if d.shutdown.Load() {
		return NewResponse(ServiceTerminating, nil)
	}
	set := d.ports.Load()
	if set == nil {
		return NewResponse(CommDevFailedToInit, nil)
	}

	if !t.Valid() || id < 1 || id > MaxID(t, d.cfg.Population) {
		return NewResponse(InvalidCommand, nil)
	}
	if t != Server {
		if err := Request(req).Validate(); err != nil {
			d.log.WithError(err).WithField("device_type", t).Debug("malformed request")
			return NewResponse(InvalidCommand, nil)
		}
	}

	port := PortFor(t, id)
	if d.safeMode.Load() && BlockedInSafeMode(port, t) {
		return NewResponse(CannotExecuteRequestInSafeMode, nil)
	}
	m := set.managers[port]
	if m == nil {
		return NewResponse(CommDevFailedToInit, nil)
	}

	env := NewEnvelope(t, PhysicalID(t, id), req, uint16(d.session.Inc()))
	if err := m.Enqueue(p, env); err != nil {
		return NewResponse(CodeOf(err), nil)
	}
	resp, err := env.Wait(ctx)
	if err != nil {
		d.log.WithFields(logrus.Fields{"session": env.Session, "device_type": t}).
			WithError(err).Debug("caller stopped waiting")
		return NewResponse(Timeout, nil)
	}
	return resp
}

// EnableSafeMode blocks all server traffic except blade console requests.
func (d *Dispatcher) EnableSafeMode() {
	d.setSafeMode(true)
}

// DisableSafeMode lifts safe mode.
func (d *Dispatcher) DisableSafeMode() {
	d.setSafeMode(false)
}

func (d *Dispatcher) setSafeMode(on bool) {
	if d.safeMode.Swap(on) != on {
		d.log.WithField("safe_mode", on).Info("safe mode changed")
	}
	if set := d.ports.Load(); set != nil {
		for _, m := range set.managers {
			if m != nil {
				m.SetSafeMode(on)
			}
		}
	}
}

// IsSafeMode reports whether safe mode is enabled.
func (d *Dispatcher) IsSafeMode() bool {
	return d.safeMode.Load()
}

// PortStatus returns a snapshot of every configured port.
func (d *Dispatcher) PortStatus() []PortStatus {
	set := d.ports.Load()
	if set == nil {
		return nil
	}
	var out []PortStatus
	for _, m := range set.managers {
		if m != nil {
			out = append(out, m.Status())
		}
	}
	return out
}

// Population returns the configured number of server slots.
func (d *Dispatcher) Population() int {
	return d.cfg.Population
}
