// Package metrics provides Prometheus telemetry for go-fps-collector.
//
// Live metrics describe the sampling process itself (polls, rows, frames,
// collector state). Frame-time statistics are only computed once, at the
// end of a run, and are exported separately as a text exposition file (see
// exposition.go).
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector manages the live Prometheus metrics of one collection run.
// A nil *Collector is valid and records nothing.
type Collector struct {
	// --- Panel 1: Run Overview ---
	info              *prometheus.GaugeVec
	state             *prometheus.GaugeVec
	targetFrameTime   prometheus.Gauge
	vsyncPeriod       prometheus.Gauge
	runElapsedSeconds prometheus.Gauge

	// --- Panel 2: Polling ---
	pollsTotal      prometheus.Counter
	pollErrorsTotal prometheus.Counter
	pollDuration    prometheus.Histogram

	// --- Panel 3: Rows & Frames ---
	framesTotal         prometheus.Counter
	pendingRowsTotal    prometheus.Counter
	staleRowsTotal      prometheus.Counter
	skippedRowsTotal    prometheus.Counter
	missedOverlapsTotal prometheus.Counter

	// --- Panel 4: Result ---
	loopCount       prometheus.Gauge
	loadTimeSeconds prometheus.Gauge

	startTime time.Time

	// For the exit summary
	mu             sync.Mutex
	polls          int64
	pollErrors     int64
	frames         int64
	skippedRows    int64
	missedOverlaps int64
	currentState   string
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	Version         string
	Layer           string
	Source          string
	Schedule        string
	TargetFrameTime time.Duration
}

// SampleUpdate is the outcome of one parsed and deduplicated poll.
type SampleUpdate struct {
	Accepted      int
	Pending       int
	Stale         int
	Skipped       int
	MissedOverlap bool
}

// NewCollector creates a new metrics collector on the default registry.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector with a custom registry.
// Useful for testing.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	c := &Collector{
		info: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fps_collector_info",
				Help: "Information about the collection run (value always 1)",
			},
			[]string{"version", "layer", "source", "schedule"},
		),
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fps_collector_state",
				Help: "Collector state (1 for the current state)",
			},
			[]string{"state"},
		),
		targetFrameTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fps_collector_target_frame_time_seconds",
			Help: "Configured target frame time (0 = none)",
		}),
		vsyncPeriod: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fps_collector_vsync_period_seconds",
			Help: "Display refresh period read from the first data dump",
		}),
		runElapsedSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fps_collector_run_elapsed_seconds",
			Help: "Seconds since the collector was created",
		}),

		pollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fps_collector_polls_total",
			Help: "Total latency dumps requested",
		}),
		pollErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fps_collector_poll_errors_total",
			Help: "Total latency dumps that failed",
		}),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fps_collector_poll_duration_seconds",
			Help:    "Time taken to obtain one latency dump",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		framesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fps_collector_frames_total",
			Help: "Total unique frames recorded",
		}),
		pendingRowsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fps_collector_pending_rows_total",
			Help: "Rows ignored because the frame was not yet presented",
		}),
		staleRowsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fps_collector_stale_rows_total",
			Help: "Rows ignored because they were already seen",
		}),
		skippedRowsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fps_collector_skipped_rows_total",
			Help: "Malformed rows skipped by the parser",
		}),
		missedOverlapsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fps_collector_missed_overlaps_total",
			Help: "Polls that did not overlap the previous poll (frames may be lost)",
		}),

		loopCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fps_collector_loop_count",
			Help: "Loops found at the end of the run",
		}),
		loadTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fps_collector_load_time_seconds",
			Help: "Time from launch to the first loop (-1 = unknown)",
		}),

		startTime: time.Now(),
	}

	registry.MustRegister(
		// Panel 1: Run Overview
		c.info,
		c.state,
		c.targetFrameTime,
		c.vsyncPeriod,
		c.runElapsedSeconds,

		// Panel 2: Polling
		c.pollsTotal,
		c.pollErrorsTotal,
		c.pollDuration,

		// Panel 3: Rows & Frames
		c.framesTotal,
		c.pendingRowsTotal,
		c.staleRowsTotal,
		c.skippedRowsTotal,
		c.missedOverlapsTotal,

		// Panel 4: Result
		c.loopCount,
		c.loadTimeSeconds,
	)

	// Set initial values
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	c.info.WithLabelValues(version, cfg.Layer, cfg.Source, cfg.Schedule).Set(1)
	c.targetFrameTime.Set(cfg.TargetFrameTime.Seconds())
	c.loadTimeSeconds.Set(-1)

	return c
}

// =============================================================================
// Update Methods
// =============================================================================

// RecordPoll records one dump request and its latency.
func (c *Collector) RecordPoll(d time.Duration, err error) {
	if c == nil {
		return
	}
	c.pollsTotal.Inc()
	c.pollDuration.Observe(d.Seconds())
	c.runElapsedSeconds.Set(time.Since(c.startTime).Seconds())

	c.mu.Lock()
	c.polls++
	if err != nil {
		c.pollErrors++
	}
	c.mu.Unlock()

	if err != nil {
		c.pollErrorsTotal.Inc()
	}
}

// RecordSample records the row outcomes of one poll.
func (c *Collector) RecordSample(u SampleUpdate) {
	if c == nil {
		return
	}
	c.framesTotal.Add(float64(u.Accepted))
	c.pendingRowsTotal.Add(float64(u.Pending))
	c.staleRowsTotal.Add(float64(u.Stale))
	c.skippedRowsTotal.Add(float64(u.Skipped))
	if u.MissedOverlap {
		c.missedOverlapsTotal.Inc()
	}

	c.mu.Lock()
	c.frames += int64(u.Accepted)
	c.skippedRows += int64(u.Skipped)
	if u.MissedOverlap {
		c.missedOverlaps++
	}
	c.mu.Unlock()
}

// SetState marks state as the current collector state.
func (c *Collector) SetState(state string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	prev := c.currentState
	c.currentState = state
	c.mu.Unlock()

	if prev != "" {
		c.state.WithLabelValues(prev).Set(0)
	}
	c.state.WithLabelValues(state).Set(1)
}

// SetVsyncPeriod records the refresh period once it is known.
func (c *Collector) SetVsyncPeriod(ns int64) {
	if c == nil {
		return
	}
	c.vsyncPeriod.Set(float64(ns) / 1e9)
}

// RecordResult records the loop count and load time of a finished run.
// A negative load time means unknown.
func (c *Collector) RecordResult(loopCount int, loadTimeMs int64) {
	if c == nil {
		return
	}
	c.loopCount.Set(float64(loopCount))
	if loadTimeMs < 0 {
		c.loadTimeSeconds.Set(-1)
	} else {
		c.loadTimeSeconds.Set(float64(loadTimeMs) / 1e3)
	}
}

// =============================================================================
// Summary Generation
// =============================================================================

// Summary holds the telemetry shown in the exit summary.
type Summary struct {
	Duration       time.Duration
	Polls          int64
	PollErrors     int64
	Frames         int64
	SkippedRows    int64
	MissedOverlaps int64
	State          string
}

// GenerateSummary creates a summary of the run.
func (c *Collector) GenerateSummary() *Summary {
	if c == nil {
		return &Summary{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return &Summary{
		Duration:       time.Since(c.startTime),
		Polls:          c.polls,
		PollErrors:     c.pollErrors,
		Frames:         c.frames,
		SkippedRows:    c.skippedRows,
		MissedOverlaps: c.missedOverlaps,
		State:          c.currentState,
	}
}
