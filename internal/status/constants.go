// internal/status/constants.go
package status

// Meter health codes.
// These values are exported as metrics and MUST NOT be renumbered.

// HealthUnknown represents the boot state before the first read.
const HealthUnknown uint16 = 0

// HealthOK represents a meter whose last read succeeded.
const HealthOK uint16 = 1

// HealthError represents a meter whose last read failed.
const HealthError uint16 = 2

// HealthStale represents a meter whose poller has produced no result, failed
// or not, for too long.
const HealthStale uint16 = 3

// ---- ERROR CODES ----

// CodeOK is reported while healthy.
const CodeOK uint16 = 0

// CodeGeneric is reported for errors that expose no code.
const CodeGeneric uint16 = 1

// ---- LIMITS ----

// MaxSecondsInError is where SecondsInError saturates.
const MaxSecondsInError = 65535

// HealthName returns the lowercase name of a health code.
func HealthName(h uint16) string {
	switch h {
	case HealthUnknown:
		return "unknown"
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	case HealthStale:
		return "stale"
	default:
		return "invalid"
	}
}
