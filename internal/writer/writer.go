// internal/writer/writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tamzrod/pzem004t/internal/poller"
	"github.com/tamzrod/pzem004t/internal/rtu"
	"github.com/tamzrod/pzem004t/internal/status"
)

var errEmptyResult = errors.New("writer: poll result has neither measurement nor error")

// fanOut delivers every result to all writers; one failing writer does not
// stop the others.
type fanOut struct {
	writers []Writer
}

func New(writers ...Writer) Writer {
	return &fanOut{writers: writers}
}

func (w *fanOut) Write(res poller.PollResult) error {
	var errs []string

	for i, wr := range w.writers {
		if err := wr.Write(res); err != nil {
			errs = append(errs, fmt.Sprintf("writer[%d]: %v", i, err))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, " | "))
	}
	return nil
}

// ---- sink writer ----

type sinkWriter struct {
	sink MeasurementSink
}

// NewSinkWriter feeds results into a MeasurementSink (metrics).
func NewSinkWriter(sink MeasurementSink) Writer {
	return &sinkWriter{sink: sink}
}

func (w *sinkWriter) Write(res poller.PollResult) error {
	switch {
	case res.Err != nil:
		w.sink.ObservePollError(res.MeterID, res.Err)
	case res.Measurement != nil:
		w.sink.ObserveMeasurement(res.MeterID, *res.Measurement)
	default:
		return errEmptyResult
	}
	return nil
}

// ---- log writer ----

type logWriter struct {
	log *zap.Logger
}

// NewLogWriter logs measurements at debug and failures at warn.
func NewLogWriter(logger *zap.Logger) Writer {
	return &logWriter{log: logger}
}

func (w *logWriter) Write(res poller.PollResult) error {
	if res.Err != nil {
		w.log.Warn("poll failed",
			zap.String("meter", res.MeterID),
			zap.String("kind", rtu.Kind(res.Err)),
			zap.Uint16("code", status.ErrorCode(res.Err)),
			zap.Error(res.Err),
		)
		return nil
	}
	if res.Measurement == nil {
		return errEmptyResult
	}

	m := res.Measurement
	w.log.Debug("measurement",
		zap.String("meter", res.MeterID),
		zap.Float64("voltage", m.Voltage),
		zap.Float64("current", m.Current),
		zap.Float64("power", m.Power),
		zap.Uint32("energy", m.Energy),
		zap.Float64("frequency", m.Frequency),
		zap.Float64("power_factor", m.PowerFactor),
		zap.Uint16("alarm", m.Alarm),
	)
	return nil
}
