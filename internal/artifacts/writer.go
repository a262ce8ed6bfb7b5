// Package artifacts writes the files a benchmark run leaves behind in its
// output directory.
package artifacts

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/randomizedcoder/go-fps-collector/internal/collector"
	"github.com/randomizedcoder/go-fps-collector/internal/metrics"
	"github.com/randomizedcoder/go-fps-collector/internal/stats"
)

// Artifact file names.
const (
	RawSamplesFile = "raw_samples.log"
	FrameTimesFile = "frame_times.txt"
	ReportJSONFile = "report.json"
	ReportPromFile = "report.prom"
)

// DefaultHistogramWidth is the widest ASCII histogram bar.
const DefaultHistogramWidth = 60

// HistogramTextFile returns the ASCII histogram file name of loop i.
func HistogramTextFile(i int) string {
	return fmt.Sprintf("histogram_loop_%d.txt", i)
}

// HistogramHTMLFile returns the HTML chart file name of loop i.
func HistogramHTMLFile(i int) string {
	return fmt.Sprintf("histogram_loop_%d.html", i)
}

// Writer creates artifact files under one directory.
type Writer struct {
	dir    string
	logger *slog.Logger

	mu      sync.Mutex
	written []string
}

// New creates the output directory if needed.
func New(dir string, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Writer{dir: dir, logger: logger}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Path returns the full path of an artifact.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// Files returns the paths written so far, in order.
func (w *Writer) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.written...)
}

// CreateRawLog opens raw_samples.log for the collector. The caller closes it.
func (w *Writer) CreateRawLog() (*os.File, error) {
	f, err := os.Create(w.Path(RawSamplesFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", RawSamplesFile, err)
	}
	w.record(f.Name())
	return f, nil
}

// Options controls how results are rendered.
type Options struct {
	// HistogramWidth is the widest ASCII bar (0 = DefaultHistogramWidth).
	HistogramWidth int

	// Title prefixes every HTML chart title.
	Title string
}

// WriteResult writes the frame table, per-loop histograms and the report.
// Every artifact is attempted; failures are joined.
func (w *Writer) WriteResult(res *collector.Result, opts Options) error {
	if res == nil {
		return errors.New("no result to write")
	}
	width := opts.HistogramWidth
	if width <= 0 {
		width = DefaultHistogramWidth
	}
	title := opts.Title
	if title == "" {
		title = "Frame times"
	}

	var errs []error
	errs = append(errs, w.writeFile(FrameTimesFile, func(out io.Writer) error {
		return stats.WriteFrameTable(out, res.Summary, res.FrameTimes, res.ReadyFrameTimes)
	}))

	for i, h := range res.Histograms {
		errs = append(errs, w.writeFile(HistogramTextFile(i), func(out io.Writer) error {
			return h.PlotASCII(out, width)
		}))
		errs = append(errs, w.writeFile(HistogramHTMLFile(i), func(out io.Writer) error {
			return h.RenderHTML(out, fmt.Sprintf("%s, loop %d", title, i), "ms")
		}))
	}

	errs = append(errs, w.WriteReport(res))
	return errors.Join(errs...)
}

// WriteReport writes report.json and report.prom.
func (w *Writer) WriteReport(res *collector.Result) error {
	jsonErr := w.writeFile(ReportJSONFile, func(out io.Writer) error {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Report)
	})
	promErr := w.writeFile(ReportPromFile, func(out io.Writer) error {
		return metrics.WriteReport(out, res.Report)
	})
	return errors.Join(jsonErr, promErr)
}

// writeFile creates name, runs fn against a buffered writer and closes it.
func (w *Writer) writeFile(name string, fn func(io.Writer) error) (err error) {
	path := w.Path(name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", name, cerr)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	w.record(path)
	w.logger.Debug("artifact_written", "path", path)
	return nil
}

func (w *Writer) record(path string) {
	w.mu.Lock()
	w.written = append(w.written, path)
	w.mu.Unlock()
}
