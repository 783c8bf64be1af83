// internal/status/tracker.go
package status

import (
	"sync"
	"time"
)

// Tracker owns the health snapshot of one meter.
// Observe is fed every poll result; Tick is driven at 1 Hz.
type Tracker struct {
	mu   sync.Mutex
	snap Snapshot

	lastSeen   time.Time
	staleAfter time.Duration
	now        func() time.Time
}

// NewTracker starts in HealthUnknown. Once results are flowing, going
// staleAfter without any result (a wedged poller) turns HealthStale; zero
// disables staleness.
func NewTracker(staleAfter time.Duration) *Tracker {
	return &Tracker{
		snap:       Snapshot{Health: HealthUnknown},
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// Observe applies one poll outcome and reports whether the snapshot changed.
func (t *Tracker) Observe(err error) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := false
	t.lastSeen = t.now()

	if err == nil {

		// Recovery / OK
		if t.snap.Health != HealthOK {
			t.snap.Health = HealthOK
			changed = true
		}
		// Reset last error code when healthy.
		if t.snap.LastErrorCode != CodeOK {
			t.snap.LastErrorCode = CodeOK
			changed = true
		}
		// Reset seconds-in-error on recovery.
		if t.snap.SecondsInError != 0 {
			t.snap.SecondsInError = 0
			changed = true
		}
		return t.snap, changed
	}

	if t.snap.Health != HealthError {
		t.snap.Health = HealthError
		changed = true
	}

	code := ErrorCode(err)
	if t.snap.LastErrorCode != code {
		t.snap.LastErrorCode = code
		changed = true
	}

	// NOTE: seconds_in_error increments on Tick only.
	return t.snap, changed
}

// Tick advances the 1 Hz clock and reports whether the snapshot changed.
// Every state but OK counts seconds in error.
func (t *Tracker) Tick() (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.isStale() {
		t.snap.Health = HealthStale
		return t.snap, true
	}

	if t.snap.Health == HealthOK {
		return t.snap, false
	}

	if t.snap.SecondsInError >= MaxSecondsInError {
		return t.snap, false
	}
	t.snap.SecondsInError++
	return t.snap, true
}

func (t *Tracker) isStale() bool {
	if t.staleAfter <= 0 || t.lastSeen.IsZero() || t.snap.Health == HealthStale {
		return false
	}
	return t.now().Sub(t.lastSeen) >= t.staleAfter
}
