// internal/poller/poller.go
package poller

import (
	"errors"
	"time"

	"github.com/tamzrod/pzem004t/internal/pzem"
)

// Reader abstracts the meter operation the poller needs.
type Reader interface {
	Read() (pzem.Measurement, error)
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	MeterID  string
	Interval time.Duration

	// Timeout is the meter response timeout. A read cannot be issued while
	// the previous one is in flight, so Interval must not be shorter.
	Timeout time.Duration
}

// Poller is a dumb, clock-driven reader.
type Poller struct {
	cfg    Config
	reader Reader
}

// New creates a poller with immutable config.
func New(cfg Config, reader Reader) (*Poller, error) {
	if cfg.MeterID == "" {
		return nil, errors.New("poller: meter id required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if cfg.Interval < cfg.Timeout {
		return nil, errors.New("poller: interval must not be shorter than the meter timeout")
	}
	if reader == nil {
		return nil, errors.New("poller: reader required")
	}
	return &Poller{cfg: cfg, reader: reader}, nil
}

// PollOnce performs exactly one frame read.
// All-or-nothing: a failed read carries no measurement.
func (p *Poller) PollOnce() PollResult {
	res := PollResult{
		MeterID: p.cfg.MeterID,
		At:      time.Now(),
	}

	m, err := p.reader.Read()
	if err != nil {
		res.Err = err
		return res
	}

	res.Measurement = &m
	return res
}
