// internal/writer/status_writer.go
package writer

import (
	"errors"

	"go.uber.org/zap"

	"github.com/tamzrod/pzem004t/internal/status"
)

// StatusWriter is the delivery-only contract for meter status.
// It receives a snapshot and writes it verbatim.
// No logic, no interpretation.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// meterStatusWriter pushes only changed fields after the first full write.
type meterStatusWriter struct {
	meter string
	sink  StatusSink
	log   *zap.Logger

	needFull bool
	last     status.Snapshot
}

// NewStatusWriter builds a status writer. A nil sink disables it.
func NewStatusWriter(meter string, sink StatusSink, logger *zap.Logger) (StatusWriter, bool) {
	if sink == nil {
		return nil, false
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &meterStatusWriter{
		meter:    meter,
		sink:     sink,
		log:      logger,
		needFull: true, // full assert on first write
		last:     status.Snapshot{Health: status.HealthUnknown},
	}, true
}

func (sw *meterStatusWriter) WriteStatus(s status.Snapshot) error {
	if sw == nil || sw.sink == nil {
		return errors.New("status writer: disabled")
	}

	if sw.needFull {
		sw.sink.SetHealth(sw.meter, s.Health)
		sw.sink.SetLastErrorCode(sw.meter, s.LastErrorCode)
		sw.sink.SetSecondsInError(sw.meter, s.SecondsInError)
		sw.needFull = false
		sw.last = s
		return nil
	}

	if sw.last.Health != s.Health {
		sw.log.Info("meter health changed",
			zap.String("meter", sw.meter),
			zap.String("from", status.HealthName(sw.last.Health)),
			zap.String("to", status.HealthName(s.Health)),
			zap.Uint16("last_error_code", s.LastErrorCode),
		)
		sw.sink.SetHealth(sw.meter, s.Health)
	}
	if sw.last.LastErrorCode != s.LastErrorCode {
		sw.sink.SetLastErrorCode(sw.meter, s.LastErrorCode)
	}
	if sw.last.SecondsInError != s.SecondsInError {
		sw.sink.SetSecondsInError(sw.meter, s.SecondsInError)
	}

	sw.last = s
	return nil
}
