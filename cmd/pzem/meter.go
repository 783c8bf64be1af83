// cmd/pzem/meter.go
package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/pzem004t/internal/config"
	"github.com/tamzrod/pzem004t/internal/pzem"
	"github.com/tamzrod/pzem004t/internal/pzemsim"
	"github.com/tamzrod/pzem004t/internal/rtu"
)

// openMeter opens the serial link (or the simulator) and wraps it in a client.
func openMeter(c config.Config, logger *zap.Logger, instrument *rtu.Instrument) (*pzem.Client, error) {
	m := c.Meter

	rcfg := rtu.Config{
		Port:       m.Port,
		BaudRate:   m.BaudRate,
		DataBits:   m.DataBits,
		Parity:     m.Parity,
		StopBits:   m.StopBits,
		RS485:      m.RS485,
		Address:    m.SlaveAddress(),
		Timeout:    time.Duration(m.TimeoutMs) * time.Millisecond,
		Logger:     logger,
		Instrument: instrument,
	}

	if m.Simulate {
		rcfg.Port = "simulator"
		dev := pzemsim.New(pzemsim.WithAddress(m.SlaveAddress()))
		logger.Info("using simulated meter", zap.Uint8("address", m.SlaveAddress()))
		return pzem.New(rtu.New(dev, rcfg), logger), nil
	}

	tr, err := rtu.Open(rcfg)
	if err != nil {
		return nil, err
	}
	return pzem.New(tr, logger), nil
}
