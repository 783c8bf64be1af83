// internal/config/config.go
package config

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel string       `mapstructure:"log_level" yaml:"log_level"`
	Meter    MeterConfig  `mapstructure:"meter" yaml:"meter"`
	Poll     PollConfig   `mapstructure:"poll" yaml:"poll"`
	Server   ServerConfig `mapstructure:"server" yaml:"server"`
}

// ---- METER ----

type MeterConfig struct {
	// ID labels logs and metrics (ASCII, max 16 characters after Normalize).
	ID string `mapstructure:"id" yaml:"id"`

	Port     string `mapstructure:"port" yaml:"port"`
	BaudRate int    `mapstructure:"baud_rate" yaml:"baud_rate"`
	DataBits int    `mapstructure:"data_bits" yaml:"data_bits"`
	Parity   string `mapstructure:"parity" yaml:"parity"`
	StopBits int    `mapstructure:"stop_bits" yaml:"stop_bits"`
	RS485    bool   `mapstructure:"rs485" yaml:"rs485"`

	// Address is decoded wide so out of range values fail Validate
	// instead of wrapping.
	Address   int `mapstructure:"address" yaml:"address"`
	TimeoutMs int `mapstructure:"timeout_ms" yaml:"timeout_ms"`

	// Simulate replaces the serial port with an in-memory meter.
	Simulate bool `mapstructure:"simulate" yaml:"simulate"`
}

// SlaveAddress is Address narrowed to a wire byte. Only meaningful after
// Validate.
func (m MeterConfig) SlaveAddress() byte {
	return byte(m.Address)
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `mapstructure:"interval_ms" yaml:"interval_ms"`
}

// ---- SERVER ----

type ServerConfig struct {
	// Listen is the health/metrics address. Empty disables the server.
	Listen  string `mapstructure:"listen" yaml:"listen"`
	HTTPLog bool   `mapstructure:"http_log" yaml:"http_log"`
}

// Level maps LogLevel to a zap level. Unknown values fall back to info.
func (c Config) Level() zapcore.Level {
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
