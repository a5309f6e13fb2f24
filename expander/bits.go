package expander

// SetBit returns v with bit set.
func SetBit(v byte, bit uint) byte {
	return v | 1<<bit
}

// ClearBit returns v with bit cleared.
func ClearBit(v byte, bit uint) byte {
	return v &^ (1 << bit)
}

// ToggleBit returns v with bit inverted.
func ToggleBit(v byte, bit uint) byte {
	return v ^ 1<<bit
}

// TestBit reports whether bit is set in v.
func TestBit(v byte, bit uint) bool {
	return v&(1<<bit) != 0
}

// ApplyBit sets bit when level is true and clears it otherwise.
func ApplyBit(v byte, bit uint, level bool) byte {
	if level {
		return SetBit(v, bit)
	}
	return ClearBit(v, bit)
}

// lowMask returns a mask with the n low bits set.
func lowMask(n uint) byte {
	if n >= 8 {
		return 0xFF
	}
	return byte(uint16(1)<<n - 1)
}

// MaskOffLSBs clears the n least significant bits of v.
func MaskOffLSBs(v byte, n uint) byte {
	return v &^ lowMask(n)
}

// MaskOffMSBs clears the n most significant bits of v.
func MaskOffMSBs(v byte, n uint) byte {
	if n >= 8 {
		return 0
	}
	return v & lowMask(8-n)
}
