package collector

import "testing"

func TestState(t *testing.T) {
	tests := []struct {
		state    State
		name     string
		active   bool
		terminal bool
	}{
		{StateIdle, "idle", false, false},
		{StateWaitingForLayer, "waiting_for_layer", true, false},
		{StateSampling, "sampling", true, false},
		{StateStopped, "stopped", false, true},
		{StateErrored, "errored", false, true},
		{State(99), "unknown", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.String(); got != tt.name {
				t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.name)
			}
			if got := tt.state.IsActive(); got != tt.active {
				t.Errorf("State(%d).IsActive() = %v, want %v", tt.state, got, tt.active)
			}
			if got := tt.state.IsTerminal(); got != tt.terminal {
				t.Errorf("State(%d).IsTerminal() = %v, want %v", tt.state, got, tt.terminal)
			}
		})
	}
}
