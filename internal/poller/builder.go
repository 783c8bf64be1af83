// internal/poller/builder.go
package poller

import (
	"time"

	cfg "github.com/tamzrod/pzem004t/internal/config"
)

// Build constructs a Poller for the configured meter.
// The reader's lifecycle stays with the caller.
func Build(c cfg.Config, r Reader) (*Poller, error) {
	return New(
		Config{
			MeterID:  c.Meter.ID,
			Interval: time.Duration(c.Poll.IntervalMs) * time.Millisecond,
			Timeout:  time.Duration(c.Meter.TimeoutMs) * time.Millisecond,
		},
		r,
	)
}
