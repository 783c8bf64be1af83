// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/pzem004t/internal/pzem"
)

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	MeterID string
	At      time.Time

	// Measurement is nil when the cycle failed.
	Measurement *pzem.Measurement
	Err         error // non-nil means the poll cycle failed
}

// OK reports whether the cycle produced a measurement.
func (r PollResult) OK() bool {
	return r.Err == nil && r.Measurement != nil
}
