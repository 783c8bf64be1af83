// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}

	m := cfg.Meter

	// ------------------------------------------------------------
	// METER IDENTITY
	// ------------------------------------------------------------

	if m.ID == "" {
		return errors.New("meter: id is required")
	}
	for i := 0; i < len(m.ID); i++ {
		if m.ID[i] > 0x7F {
			return fmt.Errorf("meter %q: id must contain ASCII characters only", m.ID)
		}
	}

	// ------------------------------------------------------------
	// SERIAL LINK
	// ------------------------------------------------------------

	if strings.TrimSpace(m.Port) == "" && !m.Simulate {
		return fmt.Errorf("meter %q: port is required unless simulate is set", m.ID)
	}
	if m.BaudRate <= 0 {
		return fmt.Errorf("meter %q: baud_rate must be > 0, got %d", m.ID, m.BaudRate)
	}
	if m.DataBits < 5 || m.DataBits > 8 {
		return fmt.Errorf("meter %q: data_bits must be 5..8, got %d", m.ID, m.DataBits)
	}
	switch strings.ToUpper(m.Parity) {
	case "N", "E", "O":
	default:
		return fmt.Errorf("meter %q: parity must be N, E or O, got %q", m.ID, m.Parity)
	}
	if m.StopBits != 1 && m.StopBits != 2 {
		return fmt.Errorf("meter %q: stop_bits must be 1 or 2, got %d", m.ID, m.StopBits)
	}

	// ------------------------------------------------------------
	// MODBUS
	// ------------------------------------------------------------

	// 0xF8 is the general address every PZEM answers to
	if m.Address < 0x01 || m.Address > 0xF8 {
		return fmt.Errorf("meter %q: address must be 0x01..0xF8, got 0x%02x", m.ID, m.Address)
	}
	if m.TimeoutMs <= 0 {
		return fmt.Errorf("meter %q: timeout_ms must be > 0, got %d", m.ID, m.TimeoutMs)
	}

	return nil
}

// ValidatePoll checks the rules that only apply to periodic polling.
// It MUST NOT mutate configuration.
func ValidatePoll(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}

	m := cfg.Meter

	if cfg.Poll.IntervalMs <= 0 {
		return fmt.Errorf("poll: interval_ms must be > 0, got %d", cfg.Poll.IntervalMs)
	}
	if cfg.Poll.IntervalMs < m.TimeoutMs {
		return fmt.Errorf(
			"poll: interval_ms=%d must not be shorter than meter timeout_ms=%d",
			cfg.Poll.IntervalMs,
			m.TimeoutMs,
		)
	}

	return nil
}
