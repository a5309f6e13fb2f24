package commdev

// logicalToPhysical maps logical server slots 1..48 to physical slots: the
// first half of the logical ids sit in odd physical slots, the second half in
// even ones.
var logicalToPhysical = [MaxServers]int{
	1, 3, 5, 7, 9, 11, 13, 15, 17, 19, 21, 23,
	25, 27, 29, 31, 33, 35, 37, 39, 41, 43, 45, 47,
	2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 22, 24,
	26, 28, 30, 32, 34, 36, 38, 40, 42, 44, 46, 48,
}

var physicalToLogical [MaxServers]int

func init() {
	for i, p := range logicalToPhysical {
		physicalToLogical[p-1] = i + 1
	}
}

func usesAddressTable(t DeviceType) bool {
	return t == Server || t == BladeConsole || t == Power
}

// PhysicalID resolves the logical id of a device to the id used on the bus.
func PhysicalID(t DeviceType, id int) int {
	if !usesAddressTable(t) || id < 1 || id > MaxServers {
		return id
	}
	return logicalToPhysical[id-1]
}

// LogicalID is the inverse of PhysicalID.
func LogicalID(t DeviceType, id int) int {
	if !usesAddressTable(t) || id < 1 || id > MaxServers {
		return id
	}
	return physicalToLogical[id-1]
}
