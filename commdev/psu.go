package commdev

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"

	"github.com/hipsterbrown/chassis-comm/expander"
)

// PSU bus segment select codes on the chassis bridge GPIO, indexed by
// (id-1)/2. Zero leaves every segment disconnected.
var psuSelectCodes = [MaxPSUs / 2]byte{1, 2, 4}

const psuBaseAddr uint16 = 0x58

func psuAddr(id int) uint16 {
	return psuBaseAddr + uint16((id-1)%2)
}

func (w *SerialPortWorker) psu(id int, req Request) ([]byte, error) {
	p := req.Payload()
	switch req.FunctionCode() {
	case PsuRead:
		if len(p) != 2 {
			return nil, invalidLength("psu read", "2", len(p))
		}
		if p[1] == 0 {
			return nil, newError("psu read", InvalidDataFieldInRequest, fmt.Errorf("zero byte count"))
		}
	case PsuWrite:
		if len(p) < 1 {
			return nil, invalidLength("psu write", "at least 1", len(p))
		}
	default:
		return nil, invalidFunction(req.FunctionCode())
	}

	defer w.clearPSUSelect()
	if err := w.selectPSU(id); err != nil {
		return nil, err
	}

	dev := i2c.Dev{Bus: w.bus, Addr: psuAddr(id)}
	if req.FunctionCode() == PsuWrite {
		return nil, dev.Tx(p, nil)
	}
	r := make([]byte, p[1])
	if err := dev.Tx(p[:1], r); err != nil {
		return nil, err
	}
	return r, nil
}

func (w *SerialPortWorker) selectPSU(id int) error {
	cur, err := w.chip.ReadGPIO()
	if err != nil {
		return err
	}
	return w.chip.WriteGPIO(expander.MaskOffLSBs(cur, psuSelectBits) | psuSelectCodes[(id-1)/2])
}

// clearPSUSelect disconnects every PSU segment. It is best effort; failures
// are logged and never override the result of the transaction.
func (w *SerialPortWorker) clearPSUSelect() {
	cur, err := w.chip.ReadGPIO()
	if err != nil {
		w.log.WithError(err).Warn("psu demux read failed, clearing all outputs")
		cur = 0
	}
	if err := w.chip.WriteGPIO(expander.MaskOffLSBs(cur, psuSelectBits)); err != nil {
		w.log.WithError(err).Warn("psu demux reset failed")
	}
}
