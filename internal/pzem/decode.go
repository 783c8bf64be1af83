// internal/pzem/decode.go
package pzem

import (
	"github.com/tamzrod/pzem004t/internal/rtu"
)

// Measurement is one decoded register frame.
type Measurement struct {
	Voltage     float64 `json:"voltage"`      // V
	Current     float64 `json:"current"`      // A
	Power       float64 `json:"power"`        // W
	Energy      uint32  `json:"energy"`       // Wh
	Frequency   float64 `json:"frequency"`    // Hz
	PowerFactor float64 `json:"power_factor"` // 0..1
	Alarm       uint16  `json:"alarm"`
}

// Alarmed reports whether the power alarm is active.
func (m Measurement) Alarmed() bool {
	return m.Alarm != 0
}

// Decode converts the input registers 0x00..0x09 into a Measurement.
// Two register quantities are stored low word first.
func Decode(regs []uint16) (Measurement, error) {
	if len(regs) < FrameRegisters {
		return Measurement{}, &rtu.FrameError{
			Reason: "short register frame",
			Want:   FrameRegisters,
			Got:    len(regs),
		}
	}

	return Measurement{
		Voltage:     float64(regs[RegVoltage]) / 10,
		Current:     float64(join(regs[RegCurrentLow], regs[RegCurrentHigh])) / 1000,
		Power:       float64(join(regs[RegPowerLow], regs[RegPowerHigh])) / 10,
		Energy:      join(regs[RegEnergyLow], regs[RegEnergyHigh]),
		Frequency:   float64(regs[RegFrequency]) / 10,
		PowerFactor: float64(regs[RegPowerFactor]) / 100,
		Alarm:       regs[RegAlarm],
	}, nil
}

func join(low, high uint16) uint32 {
	return uint32(low) | uint32(high)<<16
}
