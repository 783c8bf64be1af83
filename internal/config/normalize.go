// internal/config/normalize.go
package config

import "strings"

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	m := &cfg.Meter

	// ASCII already validated; truncate to max 16 characters
	if len(m.ID) > 16 {
		m.ID = m.ID[:16]
	}

	m.Port = strings.TrimSpace(m.Port)
	m.Parity = strings.ToUpper(m.Parity)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
}
