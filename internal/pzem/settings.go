// internal/pzem/settings.go
package pzem

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Address reads the configured slave address from the device, or
// InvalidAddress on failure.
func (c *Client) Address() int {
	regs, err := c.tr.ReadHoldingRegisters(RegSlaveAddress, 1)
	if err != nil {
		c.fail("address", err)
		return InvalidAddress
	}
	return int(regs[0])
}

// SetAddress writes a new slave address. On success the client talks to the
// new address from then on.
func (c *Client) SetAddress(addr byte) bool {
	if addr < MinAddress || addr > MaxAddress {
		c.fail("set_address", fmt.Errorf("pzem: address 0x%02x out of range 0x%02x..0x%02x", addr, MinAddress, MaxAddress))
		return false
	}

	if err := c.tr.WriteSingleRegister(RegSlaveAddress, uint16(addr)); err != nil {
		c.fail("set_address", err)
		return false
	}

	c.tr.SetAddress(addr)
	c.log.Info("slave address changed", zap.Uint8("address", addr))
	return true
}

// AlarmThreshold reads the power alarm threshold in watts, or NaN on failure.
func (c *Client) AlarmThreshold() float64 {
	regs, err := c.tr.ReadHoldingRegisters(RegAlarmThreshold, 1)
	if err != nil {
		c.fail("alarm_threshold", err)
		return math.NaN()
	}
	return float64(regs[0])
}

// SetAlarmThreshold writes the power alarm threshold in watts.
func (c *Client) SetAlarmThreshold(watts uint16) bool {
	if err := c.tr.WriteSingleRegister(RegAlarmThreshold, watts); err != nil {
		c.fail("set_alarm_threshold", err)
		return false
	}
	return true
}
