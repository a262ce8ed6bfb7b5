package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/randomizedcoder/go-fps-collector/internal/artifacts"
	"github.com/randomizedcoder/go-fps-collector/internal/collector"
	"github.com/randomizedcoder/go-fps-collector/internal/config"
)

// =============================================================================
// Test Helpers
// =============================================================================

const vsync60 = int64(16_666_666)

// scriptSource replays dumps and then repeats the last one.
type scriptSource struct {
	mu     sync.Mutex
	script []string
	calls  int
}

func (s *scriptSource) Dump(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	return s.script[i], nil
}

func (s *scriptSource) Name() string { return "script" }

// dumpOf builds a 60 Hz latency dump holding frames [from, to], starting
// one second into the compositor clock.
func dumpOf(from, to int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d\n", vsync60)
	for i := from; i <= to; i++ {
		p := 1_000_000_000 + int64(i)*vsync60
		fmt.Fprintf(&b, "%d\t%d\t%d\n", p-vsync60, p, p-2_000_000)
	}
	return b.String()
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Layer = "SurfaceView"
	cfg.SkipPreflight = true
	cfg.MetricsAddr = ""
	cfg.Interval = 5 * time.Millisecond
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	return cfg
}

func newTestOrchestrator(cfg *config.Config, src *scriptSource) (*Orchestrator, *bytes.Buffer, *bytes.Buffer) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	o := NewWithSource(cfg, logger, src)
	var stdout, stderr bytes.Buffer
	o.SetOutput(&stdout, &stderr)
	return o, &stdout, &stderr
}

func writeEvents(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func assertFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("artifact %s: %v", name, err)
		}
	}
}

// =============================================================================
// Tests: Run
// =============================================================================

func TestRun_DurationElapsed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Duration = 150 * time.Millisecond
	cfg.EventsFile = writeEvents(t,
		`{"type":"app_launch","timestamp_ms":500}`,
		`{"type":"start_loop","timestamp_ms":1000}`,
	)
	o, stdout, _ := newTestOrchestrator(cfg, &scriptSource{script: []string{dumpOf(0, 59)}})

	res, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Records != 60 {
		t.Errorf("records = %d, want 60", res.Records)
	}
	if res.Summary.LoopCount != 1 || res.Summary.LoadTimeMs != 500 {
		t.Errorf("loops = %d load = %d, want 1 and 500", res.Summary.LoopCount, res.Summary.LoadTimeMs)
	}
	if o.Collector().State() != collector.StateStopped {
		t.Errorf("state = %v, want stopped", o.Collector().State())
	}

	assertFiles(t, cfg.OutputDir,
		artifacts.RawSamplesFile,
		artifacts.FrameTimesFile,
		artifacts.ReportJSONFile,
		artifacts.ReportPromFile,
		artifacts.HistogramTextFile(0),
		artifacts.HistogramHTMLFile(0),
	)
	if !strings.Contains(stdout.String(), "Exit Summary") {
		t.Errorf("stdout missing exit summary:\n%s", stdout.String())
	}
	if strings.Contains(stdout.String(), "Metrics endpoint") {
		t.Error("no metrics endpoint was configured")
	}

	families, err := o.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var found bool
	for _, f := range families {
		if f.GetName() == "fps_collector_frames_total" {
			found = true
			if got := f.GetMetric()[0].GetCounter().GetValue(); got != 60 {
				t.Errorf("frames_total = %v, want 60", got)
			}
		}
	}
	if !found {
		t.Error("fps_collector_frames_total not registered")
	}
}

func TestRun_AppTerminated(t *testing.T) {
	cfg := testConfig(t)
	src := &scriptSource{script: []string{dumpOf(0, 9), fmt.Sprintf("%d\n", vsync60)}}
	o, _, stderr := newTestOrchestrator(cfg, src)

	done := make(chan struct{})
	var err error
	go func() {
		defer close(done)
		_, err = o.Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the layer went away")
	}

	if !errors.Is(err, collector.ErrAppTerminated) {
		t.Fatalf("err = %v, want ErrAppTerminated", err)
	}
	if !strings.Contains(stderr.String(), "raw dump lines") {
		t.Errorf("stderr missing raw dump context:\n%s", stderr.String())
	}
	assertFiles(t, cfg.OutputDir, artifacts.RawSamplesFile)
}

func TestRun_NoMetrics(t *testing.T) {
	cfg := testConfig(t)
	cfg.Duration = 50 * time.Millisecond
	o, stdout, stderr := newTestOrchestrator(cfg, &scriptSource{script: []string{fmt.Sprintf("%d\n", vsync60)}})

	res, err := o.Run(context.Background())
	if !errors.Is(err, collector.ErrNoMetrics) {
		t.Fatalf("err = %v, want ErrNoMetrics", err)
	}
	if res == nil || res.Summary.LoopCount != 0 {
		t.Fatalf("result = %+v, want empty result", res)
	}
	if stderr.Len() != 0 {
		t.Errorf("no raw dump context expected, got:\n%s", stderr.String())
	}
	if stdout.Len() == 0 {
		t.Error("exit summary not printed")
	}
	assertFiles(t, cfg.OutputDir, artifacts.ReportJSONFile, artifacts.ReportPromFile)
}

func TestRun_MissingEventsFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Duration = 50 * time.Millisecond
	cfg.EventsFile = filepath.Join(t.TempDir(), "missing.jsonl")
	o, _, _ := newTestOrchestrator(cfg, &scriptSource{script: []string{dumpOf(0, 29)}})

	res, err := o.Run(context.Background())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want a not-exist error", err)
	}
	if res == nil || res.Summary.LoopCount != 1 {
		t.Fatalf("result = %+v, want one loop", res)
	}
	assertFiles(t, cfg.OutputDir, artifacts.ReportJSONFile)
}

func TestRun_ContextCancelled(t *testing.T) {
	cfg := testConfig(t)
	o, _, _ := newTestOrchestrator(cfg, &scriptSource{script: []string{dumpOf(0, 29)}})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, err := o.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Records != 30 {
		t.Errorf("records = %d, want 30", res.Records)
	}
}

func TestRun_MetricsServer(t *testing.T) {
	cfg := testConfig(t)
	cfg.Duration = 50 * time.Millisecond
	cfg.MetricsAddr = "127.0.0.1:0"
	o, stdout, _ := newTestOrchestrator(cfg, &scriptSource{script: []string{dumpOf(0, 29)}})

	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(stdout.String(), "Metrics endpoint was: http://127.0.0.1:") {
		t.Errorf("stdout missing metrics endpoint:\n%s", stdout.String())
	}
}

func TestRun_SetupErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *config.Config)
		wantErr string
	}{
		{
			name:    "bad_schedule",
			mutate:  func(cfg *config.Config) { cfg.Schedule = "sometimes" },
			wantErr: "sometimes",
		},
		{
			name: "preflight",
			mutate: func(cfg *config.Config) {
				cfg.SkipPreflight = false
				cfg.ADBPath = "/nonexistent/adb"
			},
			wantErr: "preflight checks failed",
		},
		{
			name: "output_dir_is_file",
			mutate: func(cfg *config.Config) {
				file := filepath.Join(filepath.Dir(cfg.OutputDir), "file")
				if err := os.WriteFile(file, nil, 0o644); err != nil {
					panic(err)
				}
				cfg.OutputDir = filepath.Join(file, "out")
			},
			wantErr: "file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			o, _, _ := newTestOrchestrator(cfg, &scriptSource{script: []string{dumpOf(0, 9)}})

			res, err := o.Run(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want it to mention %q", err, tt.wantErr)
			}
			if res != nil {
				t.Errorf("result = %+v, want nil", res)
			}
			if o.Collector() != nil {
				t.Error("collector should not be created")
			}
		})
	}
}

func TestSetOutput_IgnoresNil(t *testing.T) {
	o := NewWithSource(config.DefaultConfig(), nil, &scriptSource{script: []string{""}})
	o.SetOutput(nil, nil)
	if o.stdout != os.Stdout || o.stderr != os.Stderr {
		t.Error("nil writers should keep the defaults")
	}
	if o.logger == nil {
		t.Error("nil logger should fall back to the default")
	}
}
