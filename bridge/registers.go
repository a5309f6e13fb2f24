package bridge

// Command characters of the bridge chip's serial command set.
const (
	CmdStart     byte = 'S'
	CmdStop      byte = 'P'
	CmdReadReg   byte = 'R'
	CmdWriteReg  byte = 'W'
	CmdReadGPIO  byte = 'I'
	CmdWriteGPIO byte = 'O'
)

// Internal registers.
const (
	RegBRG0      byte = 0x00
	RegBRG1      byte = 0x01
	RegPortConf1 byte = 0x02 // GPIO0..GPIO3, two bits each
	RegPortConf2 byte = 0x03 // GPIO4..GPIO7, two bits each
	RegIOState   byte = 0x04
	RegI2CAdr    byte = 0x06
	RegI2CClkL   byte = 0x07
	RegI2CClkH   byte = 0x08
	RegI2CTO     byte = 0x09
	RegI2CStat   byte = 0x0A
)

// I2CStat values.
const (
	StatusOK       byte = 0xF0
	StatusNackAddr byte = 0xF1
	StatusNackData byte = 0xF2
	StatusTimeout  byte = 0xF8
)

// Pin modes written into PortConf1/PortConf2.
const (
	PinQuasiBidirectional byte = 0x0
	PinInputOnly          byte = 0x1
	PinPushPull           byte = 0x2
	PinOpenDrain          byte = 0x3
)

// ResetAck is sent by the chip once it leaves reset.
var ResetAck = []byte{'O', 'K'}

const (
	crystalHz  = 7372800
	minClkHalf = 5
	maxCount   = 255
)

// RegValue is one register/value pair of a register write.
type RegValue struct {
	Reg   byte
	Value byte
}

// BaudDivisor returns the BRG0/BRG1 register writes for the given baud rate.
func BaudDivisor(baud int) []RegValue {
	if baud <= 0 {
		baud = 9600
	}
	brg := crystalHz/baud - 16
	if brg < 0 {
		brg = 0
	}
	return []RegValue{
		{Reg: RegBRG0, Value: byte(brg & 0xFF)},
		{Reg: RegBRG1, Value: byte((brg >> 8) & 0xFF)},
	}
}

// ClockRegisters returns the I2CClkL/I2CClkH writes for the requested SCL frequency.
// fSCL = crystal / (8 * (ClkH + ClkL)), each half at least 5.
func ClockRegisters(hz int) []RegValue {
	if hz <= 0 {
		hz = 100000
	}
	total := (crystalHz + 8*hz - 1) / (8 * hz)
	half := (total + 1) / 2
	if half < minClkHalf {
		half = minClkHalf
	}
	if half > 0xFF {
		half = 0xFF
	}
	return []RegValue{
		{Reg: RegI2CClkL, Value: byte(half)},
		{Reg: RegI2CClkH, Value: byte(half)},
	}
}

// PortConfig packs four two-bit pin modes (pin 0 in the low bits).
func PortConfig(modes [4]byte) byte {
	var v byte
	for i, m := range modes {
		v |= (m & 0x3) << (2 * uint(i))
	}
	return v
}
