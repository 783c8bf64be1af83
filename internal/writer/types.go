// internal/writer/types.go
package writer

import (
	"github.com/tamzrod/pzem004t/internal/poller"
	"github.com/tamzrod/pzem004t/internal/pzem"
)

// Writer delivers poll results.
type Writer interface {
	Write(res poller.PollResult) error
}

// MeasurementSink receives decoded measurements and poll failures.
type MeasurementSink interface {
	ObserveMeasurement(meter string, m pzem.Measurement)
	ObservePollError(meter string, err error)
}

// StatusSink receives individual status fields.
type StatusSink interface {
	SetHealth(meter string, v uint16)
	SetLastErrorCode(meter string, v uint16)
	SetSecondsInError(meter string, v uint16)
}
