// internal/status/snapshot.go
package status

// Snapshot represents exactly what the writers are allowed to deliver.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health         uint16 `json:"health"`
	LastErrorCode  uint16 `json:"last_error_code"`
	SecondsInError uint16 `json:"seconds_in_error"`
}

// Healthy reports whether the meter is in HealthOK.
func (s Snapshot) Healthy() bool {
	return s.Health == HealthOK
}
