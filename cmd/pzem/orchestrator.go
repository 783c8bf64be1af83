// cmd/pzem/orchestrator.go
package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/pzem004t/internal/poller"
	"github.com/tamzrod/pzem004t/internal/status"
	"github.com/tamzrod/pzem004t/internal/writer"
)

// orchestrator owns the health tracker of one meter: it delivers every poll
// result and keeps the status writer in sync, ticking at 1 Hz.
type orchestrator struct {
	tracker      *status.Tracker
	dataWriter   writer.Writer
	statusWriter writer.StatusWriter
	log          *zap.Logger

	tick <-chan time.Time
}

func (o *orchestrator) run(ctx context.Context, in <-chan poller.PollResult) {
	if o.tick == nil {
		t := time.NewTicker(time.Second)
		defer t.Stop()
		o.tick = t.C
	}

	// Full write on start (boot state).
	o.writeStatus(o.tracker.Snapshot(), "start")

	for {
		select {
		case <-ctx.Done():
			return

		case res := <-in:
			// --- data delivery ---
			if err := o.dataWriter.Write(res); err != nil {
				o.log.Error("writer error", zap.Error(err))
			}

			// --- status update ---
			if snap, changed := o.tracker.Observe(res.Err); changed {
				o.writeStatus(snap, "poll")
			}

		case <-o.tick:
			if snap, changed := o.tracker.Tick(); changed {
				o.writeStatus(snap, "tick")
			}
		}
	}
}

func (o *orchestrator) writeStatus(s status.Snapshot, cause string) {
	if o.statusWriter == nil {
		return
	}
	if err := o.statusWriter.WriteStatus(s); err != nil {
		o.log.Error("status write failed", zap.String("cause", cause), zap.Error(err))
	}
}
