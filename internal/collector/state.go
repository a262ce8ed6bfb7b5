// Package collector polls the compositor's latency history while a
// benchmark runs and turns the collected frames into per-loop statistics.
package collector

// State represents the current state of a collector.
type State int

const (
	// StateIdle is the initial state before Start.
	StateIdle State = iota

	// StateWaitingForLayer indicates polling has started but no dump has
	// carried a frame yet.
	StateWaitingForLayer

	// StateSampling indicates frames are being recorded.
	StateSampling

	// StateStopped indicates the run ended normally.
	StateStopped

	// StateErrored indicates the run ended with a fatal error.
	StateErrored
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaitingForLayer:
		return "waiting_for_layer"
	case StateSampling:
		return "sampling"
	case StateStopped:
		return "stopped"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// IsActive returns true while the collector is polling.
func (s State) IsActive() bool {
	return s == StateWaitingForLayer || s == StateSampling
}

// IsTerminal returns true if the state is a terminal state.
func (s State) IsTerminal() bool {
	return s == StateStopped || s == StateErrored
}
