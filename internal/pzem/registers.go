// internal/pzem/registers.go
package pzem

// Input registers (FC 0x04).
const (
	RegVoltage     uint16 = 0x0000 // 0.1 V
	RegCurrentLow  uint16 = 0x0001 // 0.001 A
	RegCurrentHigh uint16 = 0x0002
	RegPowerLow    uint16 = 0x0003 // 0.1 W
	RegPowerHigh   uint16 = 0x0004
	RegEnergyLow   uint16 = 0x0005 // 1 Wh
	RegEnergyHigh  uint16 = 0x0006
	RegFrequency   uint16 = 0x0007 // 0.1 Hz
	RegPowerFactor uint16 = 0x0008 // 0.01
	RegAlarm       uint16 = 0x0009 // 0xFFFF alarm, 0x0000 none

	// FrameRegisters is the size of one measurement frame.
	FrameRegisters = 10
)

// Holding registers (FC 0x03 / 0x06).
const (
	RegAlarmThreshold uint16 = 0x0001 // 1 W
	RegSlaveAddress   uint16 = 0x0002
)

// Vendor function codes.
const (
	FuncCalibrate   byte = 0x41
	FuncResetEnergy byte = 0x42
)

// Slave addresses.
const (
	GeneralAddress byte = 0xF8
	MinAddress     byte = 0x01
	MaxAddress     byte = 0xF7
)

// Sentinels for integer getters whose read failed.
const (
	InvalidAlarm   = -1
	InvalidAddress = -1
)
