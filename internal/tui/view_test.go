package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/randomizedcoder/go-fps-collector/internal/collector"
)

func TestModel_View(t *testing.T) {
	tests := []struct {
		name     string
		status   *collector.Status
		duration time.Duration
		detailed bool
		want     []string
		dontWant []string
	}{
		{
			name:     "before_first_status",
			want:     []string{"go-fps-collector", "idle", "Starting...", "q: stop"},
			dontWant: []string{"Poll Health"},
		},
		{
			name:   "waiting",
			status: &collector.Status{State: "waiting_for_layer", Polls: 3},
			want:   []string{"waiting_for_layer", "Waiting for the layer"},
		},
		{
			name:   "sampling_open_ended",
			status: ptr(samplingStatus()),
			want:   []string{"sampling", "Sampling until Ctrl+C", "Frames", "60.0 fps", "60.0 Hz", "16.67ms", "Poll Health", "frames may be missing"},
		},
		{
			name:     "sampling_timed",
			status:   ptr(samplingStatus()),
			duration: time.Minute,
			want:     []string{"00:00:12 of 00:01:00", "20%"},
		},
		{
			name:     "details",
			status:   ptr(samplingStatus()),
			detailed: true,
			want:     []string{"Details", "SurfaceView#0", "123456789 ns"},
		},
		{
			name:   "errored",
			status: &collector.Status{State: "errored", Error: "app was terminated"},
			want:   []string{"Sampling failed: app was terminated"},
		},
		{
			name:     "healthy_polls",
			status:   &collector.Status{State: "stopped", Frames: 10, Polls: 10},
			want:     []string{"Sampling finished"},
			dontWant: []string{"frames may be missing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := New(Config{
				Layer:             "SurfaceView#0",
				SourceName:        "adb",
				MetricsAddr:       "localhost:17092",
				Interval:          time.Second,
				Duration:          tt.duration,
				TargetFrameTimeNs: 16_666_667,
			})
			model.width = 160
			model.status = tt.status
			model.detailedView = tt.detailed

			view := model.View()
			for _, want := range tt.want {
				if !strings.Contains(view, want) {
					t.Errorf("view missing %q:\n%s", want, view)
				}
			}
			for _, dont := range tt.dontWant {
				if strings.Contains(view, dont) {
					t.Errorf("view should not contain %q", dont)
				}
			}
		})
	}
}

func TestRenderFooter_MetricsAddr(t *testing.T) {
	with := New(Config{MetricsAddr: "localhost:17092"}).renderFooter()
	if !strings.Contains(with, "http://localhost:17092/metrics") {
		t.Errorf("footer = %q", with)
	}
	without := New(Config{}).renderFooter()
	if strings.Contains(without, "metrics:") {
		t.Errorf("footer without metrics = %q", without)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s     string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"much longer text", 8, "much lo…"},
		{"abcdef", 1, "abc…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.s, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.width, got, tt.want)
		}
	}
}

func ptr[T any](v T) *T { return &v }
