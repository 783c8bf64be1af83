// internal/pzem/client.go
package pzem

import (
	"math"

	"go.uber.org/zap"

	"github.com/tamzrod/pzem004t/internal/rtu"
)

// Transport is the subset of *rtu.Transport the client needs.
type Transport interface {
	ReadInputRegisters(start, count uint16) ([]uint16, error)
	ReadHoldingRegisters(start, count uint16) ([]uint16, error)
	WriteSingleRegister(reg, value uint16) error
	WriteCommand(fc byte, payload []byte) error
	SetAddress(addr byte)
	Address() byte
	Close() error
}

// Client talks to one PZEM-004T. Every getter performs a fresh bus read.
// Getters never return errors: a failed read yields NaN (or a negative
// sentinel for integer values) and is logged.
type Client struct {
	tr  Transport
	log *zap.Logger
}

func New(tr Transport, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{tr: tr, log: logger}
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	return c.tr.Close()
}

// Read performs one frame round trip and returns the typed error on failure.
func (c *Client) Read() (Measurement, error) {
	regs, err := c.tr.ReadInputRegisters(RegVoltage, FrameRegisters)
	if err != nil {
		return Measurement{}, err
	}
	return Decode(regs)
}

// Update reads a whole frame and reports success as a bool.
func (c *Client) Update() (Measurement, bool) {
	m, err := c.Read()
	if err != nil {
		c.fail("update", err)
		return Measurement{}, false
	}
	return m, true
}

// ---- getters ----

func (c *Client) Voltage() float64 {
	return c.float("voltage", func(m Measurement) float64 { return m.Voltage })
}

func (c *Client) Current() float64 {
	return c.float("current", func(m Measurement) float64 { return m.Current })
}

func (c *Client) Power() float64 {
	return c.float("power", func(m Measurement) float64 { return m.Power })
}

func (c *Client) Energy() float64 {
	return c.float("energy", func(m Measurement) float64 { return float64(m.Energy) })
}

func (c *Client) Frequency() float64 {
	return c.float("frequency", func(m Measurement) float64 { return m.Frequency })
}

func (c *Client) PowerFactor() float64 {
	return c.float("power_factor", func(m Measurement) float64 { return m.PowerFactor })
}

// Alarm returns the alarm register, or InvalidAlarm on failure.
func (c *Client) Alarm() int {
	m, err := c.Read()
	if err != nil {
		c.fail("alarm", err)
		return InvalidAlarm
	}
	return int(m.Alarm)
}

func (c *Client) float(op string, pick func(Measurement) float64) float64 {
	m, err := c.Read()
	if err != nil {
		c.fail(op, err)
		return math.NaN()
	}
	return pick(m)
}

// ---- commands ----

// ResetEnergy clears the device energy counter.
func (c *Client) ResetEnergy() bool {
	if err := c.tr.WriteCommand(FuncResetEnergy, nil); err != nil {
		c.fail("reset_energy", err)
		return false
	}
	c.log.Info("energy counter reset", zap.Uint8("address", c.tr.Address()))
	return true
}

func (c *Client) fail(op string, err error) {
	c.log.Warn("pzem operation failed",
		zap.String("op", op),
		zap.String("kind", rtu.Kind(err)),
		zap.Error(err),
	)
}
