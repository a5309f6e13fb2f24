// Package bridge implements the serial command set of a UART-to-I2C/GPIO bridge chip.
//
// The builders in this file are pure: they validate their inputs and return the raw
// command bytes to put on the wire. Chip executes them against a serial port.
package bridge

func addrByte(addr uint16, read bool) (byte, error) {
	if addr > 0x7F {
		return 0, ErrAddress
	}
	b := byte(addr) << 1
	if read {
		b |= 1
	}
	return b, nil
}

func checkCount(n int) error {
	if n <= 0 || n > maxCount {
		return ErrCount
	}
	return nil
}

// WriteBytes builds a write of data to the I2C device at addr.
func WriteBytes(addr uint16, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, &CommandError{Op: "write", Err: ErrEmptyData}
	}
	if err := checkCount(len(data)); err != nil {
		return nil, &CommandError{Op: "write", Err: err}
	}
	a, err := addrByte(addr, false)
	if err != nil {
		return nil, &CommandError{Op: "write", Err: err}
	}

	buf := make([]byte, 0, 4+len(data))
	buf = append(buf, CmdStart, a, byte(len(data)))
	buf = append(buf, data...)
	buf = append(buf, CmdStop)
	return buf, nil
}

// ReadBytes builds a read of n bytes from the I2C device at addr.
func ReadBytes(addr uint16, n int) ([]byte, error) {
	if err := checkCount(n); err != nil {
		return nil, &CommandError{Op: "read", Err: err}
	}
	a, err := addrByte(addr, true)
	if err != nil {
		return nil, &CommandError{Op: "read", Err: err}
	}
	return []byte{CmdStart, a, byte(n), CmdStop}, nil
}

// ReadAfterWrite builds a write of data followed by a repeated-start read of n bytes,
// in a single bus transaction.
func ReadAfterWrite(addr uint16, data []byte, n int) ([]byte, error) {
	if len(data) == 0 {
		return nil, &CommandError{Op: "read after write", Err: ErrEmptyData}
	}
	if err := checkCount(len(data)); err != nil {
		return nil, &CommandError{Op: "read after write", Err: err}
	}
	if err := checkCount(n); err != nil {
		return nil, &CommandError{Op: "read after write", Err: err}
	}
	wa, err := addrByte(addr, false)
	if err != nil {
		return nil, &CommandError{Op: "read after write", Err: err}
	}
	ra, _ := addrByte(addr, true)

	buf := make([]byte, 0, 7+len(data))
	buf = append(buf, CmdStart, wa, byte(len(data)))
	buf = append(buf, data...)
	buf = append(buf, CmdStart, ra, byte(n), CmdStop)
	return buf, nil
}

// WriteAfterWrite builds two writes joined by a repeated start.
func WriteAfterWrite(addr1 uint16, data1 []byte, addr2 uint16, data2 []byte) ([]byte, error) {
	if len(data1) == 0 || len(data2) == 0 {
		return nil, &CommandError{Op: "write after write", Err: ErrEmptyData}
	}
	if err := checkCount(len(data1)); err != nil {
		return nil, &CommandError{Op: "write after write", Err: err}
	}
	if err := checkCount(len(data2)); err != nil {
		return nil, &CommandError{Op: "write after write", Err: err}
	}
	a1, err := addrByte(addr1, false)
	if err != nil {
		return nil, &CommandError{Op: "write after write", Err: err}
	}
	a2, err := addrByte(addr2, false)
	if err != nil {
		return nil, &CommandError{Op: "write after write", Err: err}
	}

	buf := make([]byte, 0, 7+len(data1)+len(data2))
	buf = append(buf, CmdStart, a1, byte(len(data1)))
	buf = append(buf, data1...)
	buf = append(buf, CmdStart, a2, byte(len(data2)))
	buf = append(buf, data2...)
	buf = append(buf, CmdStop)
	return buf, nil
}

// ReadGPIO builds a GPIO port read. The chip answers with one byte.
func ReadGPIO() []byte {
	return []byte{CmdReadGPIO, CmdStop}
}

// WriteGPIO builds a GPIO port write.
func WriteGPIO(value byte) []byte {
	return []byte{CmdWriteGPIO, value, CmdStop}
}

// ReadRegisters builds an internal register read. The chip answers with one byte per register.
func ReadRegisters(regs ...byte) ([]byte, error) {
	if len(regs) == 0 {
		return nil, &CommandError{Op: "read registers", Err: ErrEmptyData}
	}
	buf := make([]byte, 0, 2+len(regs))
	buf = append(buf, CmdReadReg)
	buf = append(buf, regs...)
	buf = append(buf, CmdStop)
	return buf, nil
}

// WriteRegisters builds an internal register write.
func WriteRegisters(values ...RegValue) ([]byte, error) {
	if len(values) == 0 {
		return nil, &CommandError{Op: "write registers", Err: ErrEmptyData}
	}
	buf := make([]byte, 0, 2+2*len(values))
	buf = append(buf, CmdWriteReg)
	for _, v := range values {
		buf = append(buf, v.Reg, v.Value)
	}
	buf = append(buf, CmdStop)
	return buf, nil
}
