// internal/config/load.go
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g.
// PZEM_METER_PORT or PZEM_POLL_INTERVAL_MS.
const EnvPrefix = "pzem"

var defaults = map[string]any{
	"log_level":        "info",
	"meter.id":         "pzem",
	"meter.port":       "",
	"meter.baud_rate":  9600,
	"meter.data_bits":  8,
	"meter.parity":     "N",
	"meter.stop_bits":  1,
	"meter.rs485":      false,
	"meter.address":    0xF8,
	"meter.timeout_ms": 2000,
	"meter.simulate":   false,
	"poll.interval_ms": 5000,
	"server.listen":    "",
	"server.http_log":  false,
}

// Default returns the built-in configuration.
func Default() Config {
	c, err := decode(newViper(false))
	if err != nil {
		// defaults are static
		panic(err)
	}
	return c
}

// Load layers defaults, the YAML file at path (optional) and PZEM_*
// environment variables, in that order. The result is not validated.
func Load(path string) (Config, error) {
	v := newViper(true)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	return decode(v)
}

// Dump renders the effective configuration as YAML.
func Dump(c Config) ([]byte, error) {
	return yaml.Marshal(c)
}

func newViper(env bool) *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	if !env {
		return v
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return c, nil
}
