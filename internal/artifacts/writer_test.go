package artifacts

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/randomizedcoder/go-fps-collector/internal/collector"
	"github.com/randomizedcoder/go-fps-collector/internal/histogram"
	"github.com/randomizedcoder/go-fps-collector/internal/metrics"
	"github.com/randomizedcoder/go-fps-collector/internal/report"
	"github.com/randomizedcoder/go-fps-collector/internal/stats"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// twoLoopResult builds a result with two loops of steady 60 Hz frames.
func twoLoopResult(t *testing.T) *collector.Result {
	t.Helper()
	const vsync = 16_666_666

	present := [][]int64{
		{vsync, vsync, 2 * vsync, vsync},
		{vsync, vsync, vsync},
	}
	b := stats.NewMetricSummaryBuilder().SetLoadTimeMs(420)
	newBuilder := func() *stats.LoopSummaryBuilder { return stats.NewLoopSummaryBuilder(vsync, vsync) }
	for _, kind := range stats.TimeKinds {
		for _, s := range stats.SummarizeLoops(present, newBuilder) {
			b.AddLoopSummary(kind, s)
		}
	}
	summary, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	res := &collector.Result{
		Summary:         summary,
		Report:          summary.ToReport(),
		FrameTimes:      present,
		ReadyFrameTimes: present,
		VsyncPeriodNs:   vsync,
		Records:         9,
	}
	for _, loop := range present {
		ms := make([]int64, len(loop))
		for i, v := range loop {
			ms[i] = (v + 500_000) / 1_000_000
		}
		res.Histograms = append(res.Histograms, histogram.New(ms, 1, nil, nil))
	}
	return res
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	w, err := New(dir, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("output dir not created: %v", err)
	}
	if w.Dir() != dir || w.Path("x") != filepath.Join(dir, "x") {
		t.Errorf("Dir/Path mismatch: %q %q", w.Dir(), w.Path("x"))
	}
}

func TestNew_FailsOnFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(filepath.Join(file, "sub"), testLogger()); err == nil {
		t.Error("New under a regular file should fail")
	}
}

func TestWriteResult(t *testing.T) {
	w, err := New(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res := twoLoopResult(t)

	if err := w.WriteResult(res, Options{HistogramWidth: 10, Title: "demo"}); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}

	wantFiles := []string{
		FrameTimesFile,
		HistogramTextFile(0), HistogramHTMLFile(0),
		HistogramTextFile(1), HistogramHTMLFile(1),
		ReportJSONFile, ReportPromFile,
	}
	got := w.Files()
	if len(got) != len(wantFiles) {
		t.Fatalf("files = %v, want %d", got, len(wantFiles))
	}
	for i, name := range wantFiles {
		if got[i] != w.Path(name) {
			t.Errorf("file %d = %s, want %s", i, got[i], w.Path(name))
		}
	}

	t.Run("frame_table", func(t *testing.T) {
		text := readFile(t, w.Path(FrameTimesFile))
		for _, want := range []string{"Loop 0 frame times", "Loop 1 frame times", "33333332", "present", "ready"} {
			if !strings.Contains(text, want) {
				t.Errorf("frame table missing %q", want)
			}
		}
	})

	t.Run("ascii_histogram", func(t *testing.T) {
		text := readFile(t, w.Path(HistogramTextFile(0)))
		if !strings.Contains(text, "==========") {
			t.Errorf("widest bar should be 10 wide:\n%s", text)
		}
		if strings.Contains(text, "===========") {
			t.Errorf("bar wider than configured width:\n%s", text)
		}
	})

	t.Run("html_histogram", func(t *testing.T) {
		text := readFile(t, w.Path(HistogramHTMLFile(1)))
		if !strings.Contains(text, "demo, loop 1") {
			t.Error("chart title missing")
		}
	})

	t.Run("report_json", func(t *testing.T) {
		var back report.Report
		if err := json.Unmarshal([]byte(readFile(t, w.Path(ReportJSONFile))), &back); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		summary, err := stats.FromReport(back)
		if err != nil {
			t.Fatalf("FromReport: %v", err)
		}
		if summary.LoopCount != 2 || summary.LoadTimeMs != 420 {
			t.Errorf("summary = %d loops, load %d", summary.LoopCount, summary.LoadTimeMs)
		}
		if summary.Loop(stats.TimePresent, 0) != res.Summary.Loop(stats.TimePresent, 0) {
			t.Error("loop 0 does not round trip through report.json")
		}
	})

	t.Run("report_prom", func(t *testing.T) {
		f, err := os.Open(w.Path(ReportPromFile))
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()
		families, err := metrics.DecodeText(f)
		if err != nil {
			t.Fatalf("DecodeText: %v", err)
		}
		if _, ok := families["fps_report_loop_count"]; !ok {
			t.Errorf("loop count family missing, got %d families", len(families))
		}
	})
}

func TestWriteResult_Nil(t *testing.T) {
	w, err := New(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteResult(nil, Options{}); err == nil {
		t.Error("nil result should fail")
	}
}

func TestCreateRawLog(t *testing.T) {
	w, err := New(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	f, err := w.CreateRawLog()
	if err != nil {
		t.Fatalf("CreateRawLog: %v", err)
	}
	if _, err := f.WriteString("16666666\n"); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, w.Path(RawSamplesFile)); got != "16666666\n" {
		t.Errorf("raw log = %q", got)
	}
	if files := w.Files(); len(files) != 1 || files[0] != w.Path(RawSamplesFile) {
		t.Errorf("files = %v", files)
	}
}
