package tui

import (
	"strings"
	"testing"
)

// =============================================================================
// Tests: GetOverlapStatus
// =============================================================================

func TestGetOverlapStatus(t *testing.T) {
	tests := []struct {
		name       string
		missedRate float64
		want       OverlapStatus
	}{
		{"every poll overlapped", 0, OverlapOK},
		{"tiny", 0.001, OverlapDegraded},
		{"10%", 0.10, OverlapDegraded},
		{"11%", 0.11, OverlapSeverelyDegraded},
		{"all", 1, OverlapSeverelyDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetOverlapStatus(tt.missedRate); got != tt.want {
				t.Errorf("GetOverlapStatus(%v) = %v, want %v", tt.missedRate, got, tt.want)
			}
		})
	}
}

// =============================================================================
// Tests: State and rate styling
// =============================================================================

func TestGetStateLabel(t *testing.T) {
	for _, state := range []string{"idle", "waiting_for_layer", "sampling", "stopped", "errored"} {
		t.Run(state, func(t *testing.T) {
			if got := GetStateLabel(state); !strings.Contains(got, state) {
				t.Errorf("GetStateLabel(%q) = %q", state, got)
			}
		})
	}
}

func TestGetFPSStyle_RendersValue(t *testing.T) {
	tests := []struct {
		fps, target float64
	}{
		{60, 0},
		{0, 60},
		{59, 60},
		{50, 60},
		{20, 60},
	}
	for _, tt := range tests {
		if got := GetFPSStyle(tt.fps, tt.target).Render("x"); !strings.Contains(got, "x") {
			t.Errorf("GetFPSStyle(%v, %v) lost the value: %q", tt.fps, tt.target, got)
		}
	}
}

// =============================================================================
// Tests: Helpers
// =============================================================================

func TestRenderKeyValue(t *testing.T) {
	got := RenderKeyValue("Frames", "600")
	if !strings.Contains(got, "Frames:") || !strings.Contains(got, "600") {
		t.Errorf("RenderKeyValue = %q", got)
	}
}

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		name     string
		progress float64
		width    int
		filled   int
		percent  string
	}{
		{"empty", 0, 20, 0, "0%"},
		{"half", 0.5, 20, 10, "50%"},
		{"full", 1, 20, 20, "100%"},
		{"over", 1.5, 20, 20, "150%"},
		{"negative", -0.5, 20, 0, "-50%"},
		{"min_width", 0.5, 4, 5, "50%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderProgressBar(tt.progress, tt.width)
			if n := strings.Count(got, "█"); n != tt.filled {
				t.Errorf("filled = %d, want %d", n, tt.filled)
			}
			if !strings.Contains(got, tt.percent) {
				t.Errorf("bar %q missing %q", got, tt.percent)
			}
		})
	}
}

func TestRepeatChar(t *testing.T) {
	if got := repeatChar('x', 3); got != "xxx" {
		t.Errorf("repeatChar = %q", got)
	}
	if got := repeatChar('x', 0); got != "" {
		t.Errorf("repeatChar(0) = %q", got)
	}
	if got := repeatChar('x', -1); got != "" {
		t.Errorf("repeatChar(-1) = %q", got)
	}
}
