// internal/writer/builder.go
package writer

import (
	"go.uber.org/zap"

	"github.com/tamzrod/pzem004t/internal/metrics"
)

// Build wires the data and status writers of one meter onto the metrics
// registry and the logger. Without metrics only the log writer is built and
// the status writer is nil.
func Build(meterID string, m *metrics.Metrics, logger *zap.Logger) (Writer, StatusWriter) {
	if m == nil {
		return New(NewLogWriter(logger)), nil
	}

	data := New(
		NewSinkWriter(m),
		NewLogWriter(logger),
	)

	sw, ok := NewStatusWriter(meterID, m, logger)
	if !ok {
		return data, nil
	}
	return data, sw
}
