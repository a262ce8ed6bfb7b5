package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/go-fps-collector/internal/artifacts"
	"github.com/randomizedcoder/go-fps-collector/internal/collector"
	"github.com/randomizedcoder/go-fps-collector/internal/config"
	"github.com/randomizedcoder/go-fps-collector/internal/logging"
	"github.com/randomizedcoder/go-fps-collector/internal/metrics"
	"github.com/randomizedcoder/go-fps-collector/internal/preflight"
	"github.com/randomizedcoder/go-fps-collector/internal/process"
	"github.com/randomizedcoder/go-fps-collector/internal/sampler"
	"github.com/randomizedcoder/go-fps-collector/internal/stats"
	"github.com/randomizedcoder/go-fps-collector/internal/tui"
)

// recentDumpLines is how much of the raw log is echoed after a fatal error.
const recentDumpLines = 20

// shutdownTimeout bounds the metrics server shutdown.
const shutdownTimeout = 10 * time.Second

// Orchestrator coordinates all components of one collection run.
type Orchestrator struct {
	config *config.Config
	logger *slog.Logger

	source        process.DumpSource
	registry      *prometheus.Registry
	metrics       *metrics.Collector
	metricsServer *metrics.Server
	collector     *collector.Collector
	artifacts     *artifacts.Writer
	program       *tea.Program

	stdout io.Writer
	stderr io.Writer

	startTime time.Time
}

// New creates an Orchestrator that polls the device described by cfg.
func New(cfg *config.Config, logger *slog.Logger) *Orchestrator {
	return NewWithSource(cfg, logger, process.NewCommandSource(cfg.SourceConfig()))
}

// NewWithSource creates an Orchestrator around an existing dump source.
func NewWithSource(cfg *config.Config, logger *slog.Logger, source process.DumpSource) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		config: cfg,
		logger: logger,
		source: source,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// SetOutput redirects the preflight report, exit summary and failure
// context. Nil writers are ignored.
func (o *Orchestrator) SetOutput(stdout, stderr io.Writer) {
	if stdout != nil {
		o.stdout = stdout
	}
	if stderr != nil {
		o.stderr = stderr
	}
}

// Run executes one collection run. It blocks until the duration elapses,
// a signal arrives, the app goes away or ctx is cancelled, then writes the
// artifacts and prints the exit summary.
//
// The returned result is non-nil whenever sampling was started, including
// runs that end with collector.ErrNoMetrics.
func (o *Orchestrator) Run(ctx context.Context) (*collector.Result, error) {
	o.startTime = time.Now()

	// Run preflight checks
	if !o.config.SkipPreflight {
		opts := preflight.Options{
			Source:    o.config.SourceConfig(),
			OutputDir: o.config.OutputDir,
		}
		if lister, ok := o.source.(preflight.LayerLister); ok {
			opts.Layers = lister
		}
		result := preflight.RunAll(ctx, opts)
		preflight.PrintResults(o.stdout, result)
		if !result.Passed {
			return nil, fmt.Errorf("preflight checks failed (use --skip-preflight to override)")
		}
	}

	mode, err := sampler.ParseMode(o.config.Schedule)
	if err != nil {
		return nil, err
	}

	// Artifacts and the raw sample log
	writer, err := artifacts.New(o.config.OutputDir, o.logger)
	if err != nil {
		return nil, err
	}
	o.artifacts = writer

	rawFile, err := writer.CreateRawLog()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rawFile.Close(); err != nil {
			o.logger.Warn("raw_log_close_failed", "error", err)
		}
	}()
	rawLog := logging.NewRawSampleLog(rawFile, o.logger)

	// Metrics on a private registry
	o.registry = prometheus.NewRegistry()
	o.metrics = metrics.NewCollectorWithRegistry(metrics.CollectorConfig{
		Version:         o.config.Version,
		Layer:           o.config.Layer,
		Source:          o.source.Name(),
		Schedule:        mode.String(),
		TargetFrameTime: time.Duration(o.config.TargetFrameTimeNs()),
	}, o.registry)

	o.collector = collector.New(collector.Config{
		Source:            o.source,
		Interval:          o.config.Interval,
		Mode:              mode,
		ClearOnStart:      o.config.ClearOnStart,
		TargetFrameTimeNs: o.config.TargetFrameTimeNs(),
		HistogramBucketMs: o.config.HistogramBucketMs,
		HistogramMinMs:    o.config.HistogramMinMs,
		HistogramMaxMs:    o.config.HistogramMaxMs,
		RawLog:            rawLog,
		Metrics:           o.metrics,
		Logger:            o.logger,
		Callbacks: collector.Callbacks{
			OnStateChange: o.onStateChange,
		},
	})

	// Start metrics server
	if o.config.MetricsAddr != "" {
		o.metricsServer = metrics.NewServer(o.config.MetricsAddr, o.registry, o.status, o.logger)
		if err := o.metricsServer.Start(); err != nil {
			return nil, fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	// Setup signal handling
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	// The TUI is running before the first state change is reported.
	tuiDone := o.startTUI()

	if err := o.collector.Start(ctx); err != nil {
		o.stopTUI(tuiDone)
		o.shutdownServer()
		return nil, fmt.Errorf("failed to start sampling: %w", err)
	}

	o.logger.Info("sampling_started",
		"layer", o.config.Layer,
		"source", o.source.Name(),
		"interval", o.config.Interval.String(),
		"schedule", mode.String(),
		"duration", o.config.Duration.String(),
	)

	// Setup duration timer if configured
	var durationTimer <-chan time.Time
	if o.config.Duration > 0 {
		timer := time.NewTimer(o.config.Duration)
		defer timer.Stop()
		durationTimer = timer.C
	}

	// Wait for completion signal
	select {
	case sig := <-sigCh:
		o.logger.Info("received_signal", "signal", sig.String())
	case <-durationTimer:
		o.logger.Info("duration_elapsed", "duration", o.config.Duration.String())
	case <-o.collector.Done():
		o.logger.Info("sampling_ended", "state", o.collector.State().String())
	case <-tuiDone:
		o.logger.Info("tui_closed")
	case <-ctx.Done():
		o.logger.Info("context_cancelled")
	}

	events, eventsErr := o.readEvents()
	res, runErr := o.collector.Stop(events)
	cancel()

	o.stopTUI(tuiDone)

	var writeErr error
	if res != nil {
		writeErr = writer.WriteResult(res, artifacts.Options{
			HistogramWidth: o.config.HistogramWidth,
			Title:          o.config.Layer,
		})
	}
	if err := rawLog.Err(); err != nil {
		o.logger.Warn("raw_log_incomplete", "error", err)
	}

	if runErr != nil && !errors.Is(runErr, collector.ErrNoMetrics) {
		o.printRecentDumps(rawLog)
	}

	o.shutdownServer()
	o.printExitSummary(res, runErr)

	return res, errors.Join(runErr, eventsErr, writeErr)
}

// readEvents loads the workload's loop events. A missing events file
// means the whole run is one loop.
func (o *Orchestrator) readEvents() ([]stats.LoopEvent, error) {
	if o.config.EventsFile == "" {
		return nil, nil
	}
	f, err := os.Open(o.config.EventsFile)
	if err != nil {
		o.logger.Warn("events_unavailable", "path", o.config.EventsFile, "error", err)
		return nil, fmt.Errorf("read events: %w", err)
	}
	defer f.Close()

	events, err := stats.ParseLoopEvents(f)
	if err != nil {
		o.logger.Warn("events_invalid", "path", o.config.EventsFile, "error", err)
		return nil, fmt.Errorf("parse events %s: %w", o.config.EventsFile, err)
	}
	o.logger.Debug("events_loaded", "path", o.config.EventsFile, "count", len(events))
	return events, nil
}

// status feeds /status and /ready.
func (o *Orchestrator) status() (any, bool) {
	s := o.collector.Status()
	return s, s.State == collector.StateSampling.String()
}

func (o *Orchestrator) onStateChange(oldState, newState collector.State) {
	o.logger.Info("state_change", "from", oldState.String(), "to", newState.String())
	if o.program != nil {
		tui.SendStatus(o.program, o.collector.Status())
	}
}

// startTUI launches the dashboard when enabled. The returned channel is
// closed when the program exits; it is nil without a TUI.
func (o *Orchestrator) startTUI() <-chan struct{} {
	if !o.config.TUIEnabled {
		return nil
	}

	model := tui.New(tui.Config{
		Layer:             o.config.Layer,
		SourceName:        o.source.Name(),
		MetricsAddr:       o.config.MetricsAddr,
		Interval:          o.config.Interval,
		Duration:          o.config.Duration,
		TargetFrameTimeNs: o.config.TargetFrameTimeNs(),
		StatusSource:      o.collector,
	})
	o.program = tea.NewProgram(model, tea.WithAltScreen())

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := o.program.Run(); err != nil {
			o.logger.Warn("tui_failed", "error", err)
		}
	}()
	return done
}

func (o *Orchestrator) stopTUI(done <-chan struct{}) {
	if o.program == nil {
		return
	}
	o.program.Quit()
	<-done
}

func (o *Orchestrator) shutdownServer() {
	if o.metricsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := o.metricsServer.Shutdown(ctx); err != nil {
		o.logger.Warn("metrics_server_shutdown_error", "error", err)
	}
}

// printRecentDumps echoes the tail of the raw log so a failed run can be
// diagnosed without opening the artifacts.
func (o *Orchestrator) printRecentDumps(rawLog *logging.RawSampleLog) {
	lines := rawLog.RecentLines(recentDumpLines)
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(o.stderr, "Last %d raw dump lines:\n", len(lines))
	fmt.Fprintln(o.stderr, strings.Join(lines, "\n"))
}

// printExitSummary prints a summary of the collection run.
func (o *Orchestrator) printExitSummary(res *collector.Result, runErr error) {
	summary := &stats.MetricSummary{}
	cfg := stats.SummaryConfig{
		Duration:          time.Since(o.startTime),
		Layer:             o.config.Layer,
		TargetFrameTimeNs: o.config.TargetFrameTimeNs(),
		Err:               runErr,
	}
	if res != nil {
		summary = &res.Summary
		cfg.VsyncPeriodNs = res.VsyncPeriodNs
		cfg.Frames = res.Records
		cfg.SkippedRows = res.SkippedRows
		cfg.MissedOverlaps = res.MissedOverlaps
	}
	if o.artifacts != nil {
		cfg.ArtifactsDir = o.artifacts.Dir()
	}
	fmt.Fprint(o.stdout, stats.FormatExitSummary(summary, cfg))
	if o.metricsServer != nil {
		fmt.Fprintf(o.stdout, "Metrics endpoint was: http://%s/metrics\n", o.metricsServer.Addr())
	}
}

// Collector returns the frame collector, nil before Run.
func (o *Orchestrator) Collector() *collector.Collector {
	return o.collector
}

// Metrics returns the live metrics collector, nil before Run.
func (o *Orchestrator) Metrics() *metrics.Collector {
	return o.metrics
}

// Registry returns the run's Prometheus registry, nil before Run.
func (o *Orchestrator) Registry() *prometheus.Registry {
	return o.registry
}
