package commdev

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hipsterbrown/chassis-comm/console"
	"github.com/hipsterbrown/chassis-comm/expander"
)

const consoleReadChunk = 256

// selectServer points the shared UART at physical server slot id. The bridge
// GPIO is only rewritten when it selects another slot, and the write is read
// back once to confirm it.
func (w *SerialPortWorker) selectServer(id int) error {
	if err := w.setBusMode(modeBridge); err != nil {
		return err
	}
	if err := w.t.Flush(); err != nil {
		return newError("flush", SerialPortOtherErrors, err)
	}

	cur, err := w.chip.ReadGPIO()
	if err != nil {
		n := int(w.gpioErrors.Inc())
		if n > w.cfg.GPIOErrorThreshold {
			w.log.WithField("errors", n).Warn("repeated gpio read failures, reinitializing bridge chip")
			if rerr := w.reinit(); rerr != nil {
				w.log.WithError(rerr).Error("bridge chip reinitialization failed")
			}
			w.gpioErrors.Store(0)
		}
		return fmt.Errorf("server select: %w", err)
	}
	w.gpioErrors.Store(0)

	sel := byte(id-1) & serverSelectMask
	if cur&serverSelectMask != sel {
		next := expander.MaskOffLSBs(cur, serverSelectBits) | sel
		if err := w.chip.WriteGPIO(next); err != nil {
			return fmt.Errorf("server select: %w", err)
		}
		got, err := w.chip.ReadGPIO()
		if err != nil {
			return fmt.Errorf("server select confirm: %w", err)
		}
		// GPIO6..7 are inputs and may change level between the two reads.
		if got&serverSelectMask != sel {
			return newError("server select", SerialPortOtherErrors,
				fmt.Errorf("gpio reads 0x%02X after writing 0x%02X", got, next))
		}
	}
	return w.setBusMode(modeServer)
}

// server forwards one framed request to server slot id and returns the
// matching response frame.
func (w *SerialPortWorker) server(id int, req []byte) ([]byte, error) {
	if err := console.ValidateRequest(req); err != nil {
		return nil, newError("server", InvalidRequestDataLength, err)
	}
	if err := w.selectServer(id); err != nil {
		return nil, err
	}

	w.seqs[id-1] = console.Seq(req)
	if console.IsMuxSwitchToSystem(req) {
		w.log.WithField("device_id", id).Info("console mux switched to system, entering safe mode")
		if w.enableSafeMode != nil {
			w.enableSafeMode()
		}
		req = console.StripMuxMarker(req)
	}

	if _, err := w.t.Write(console.Encode(req)); err != nil {
		return nil, newError("server write", SerialPortOtherErrors, err)
	}

	dec := console.NewDecoder(w.t)
	dec.GarbageLimit = w.cfg.GarbageLimit
	dec.FrameLimit = w.cfg.FrameLimit
	frame, err := dec.ReadFrame(w.seqs[id-1])
	if errors.Is(err, console.ErrShortFrame) {
		return frame, newError("server read", ResponseNotProvided, err)
	}
	if err != nil {
		return nil, fmt.Errorf("server read: %w", err)
	}
	return frame, nil
}

// bladeConsole carries raw console bytes to and from server slot id.
func (w *SerialPortWorker) bladeConsole(id int, req Request) ([]byte, error) {
	if err := checkConsoleRequest(req); err != nil {
		return nil, err
	}
	if err := w.selectServer(id); err != nil {
		return nil, err
	}
	return w.rawConsole(req)
}

func checkConsoleRequest(req Request) error {
	p := req.Payload()
	switch req.FunctionCode() {
	case ConsoleSend:
		if len(p) == 0 {
			return invalidLength("console send", "at least 1", 0)
		}
	case ConsoleReceive:
		if len(p) != 2 {
			return invalidLength("console receive", "2", len(p))
		}
		if binary.LittleEndian.Uint16(p) == 0 {
			return newError("console receive", InvalidDataFieldInRequest, errors.New("zero byte limit"))
		}
	case ConsoleFlush:
	default:
		return invalidFunction(req.FunctionCode())
	}
	return nil
}

// rawConsole sends, receives or discards console bytes on the port as it is
// currently routed.
func (w *SerialPortWorker) rawConsole(req Request) ([]byte, error) {
	if err := checkConsoleRequest(req); err != nil {
		return nil, err
	}
	p := req.Payload()
	switch req.FunctionCode() {
	case ConsoleSend:
		if _, err := w.t.Write(p); err != nil {
			return nil, newError("console send", SerialPortOtherErrors, err)
		}
		return nil, nil
	case ConsoleReceive:
		return w.receive(int(binary.LittleEndian.Uint16(p)))
	default:
		if err := w.t.Flush(); err != nil {
			return nil, newError("console flush", SerialPortOtherErrors, err)
		}
		return nil, nil
	}
}

// receive reads until limit bytes arrived or the port times out.
func (w *SerialPortWorker) receive(limit int) ([]byte, error) {
	out := make([]byte, 0, limit)
	chunk := make([]byte, consoleReadChunk)
	for len(out) < limit {
		n, err := w.t.Read(chunk[:min(len(chunk), limit-len(out))])
		if err != nil {
			return nil, newError("console receive", SerialPortOtherErrors, err)
		}
		if n == 0 {
			break
		}
		out = append(out, chunk[:n]...)
	}
	return out, nil
}
