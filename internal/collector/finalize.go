package collector

import (
	"github.com/randomizedcoder/go-fps-collector/internal/histogram"
	"github.com/randomizedcoder/go-fps-collector/internal/report"
	"github.com/randomizedcoder/go-fps-collector/internal/stats"
)

// Result is the outcome of a finished run.
type Result struct {
	// Summary holds per-loop statistics for both time kinds.
	Summary stats.MetricSummary

	// Report is Summary flattened for the harness.
	Report report.Report

	// Histograms holds one histogram per loop over present-time frame
	// times, in milliseconds.
	Histograms []*histogram.Histogram

	// FrameTimes and ReadyFrameTimes hold each loop's deltas in ns.
	FrameTimes      [][]int64
	ReadyFrameTimes [][]int64

	VsyncPeriodNs  int64
	Records        int
	Polls          int64
	SkippedRows    int64
	MissedOverlaps int64
}

// Stop cancels polling, waits for any in-flight poll to finish and builds
// the result. events are the workload's loop events; nil means the whole
// run is one loop.
//
// A run that never observed a frame returns an empty result together with
// ErrNoMetrics. A run that failed while polling returns its fatal error.
// Calling Stop again returns the same result and error.
func (c *Collector) Stop(events []stats.LoopEvent) (*Result, error) {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil, ErrNotStarted
	}
	if c.stopped {
		result, err := c.result, c.err
		c.mu.Unlock()
		return result, err
	}
	c.stopped = true
	scheduler := c.scheduler
	c.mu.Unlock()

	// No tick may touch the buffer once finalization starts.
	if err := scheduler.Stop(); err != nil {
		c.logger.Debug("scheduler_stopped_with_error", "error", err)
	}

	c.mu.Lock()
	oldState := c.state
	switch c.state {
	case StateWaitingForLayer:
		c.result = c.emptyResult()
		c.fail(ErrNoMetrics)
	case StateSampling:
		if len(c.records) == 0 {
			c.result = c.emptyResult()
			c.fail(ErrNoMetrics)
			break
		}
		result, err := c.finalize(events)
		if err != nil {
			c.fail(err)
			break
		}
		c.result = result
		c.setState(StateStopped)
	}
	newState, result, err := c.state, c.result, c.err
	c.mu.Unlock()

	c.notify(oldState, newState)
	return result, err
}

// emptyResult must be called with mu held.
func (c *Collector) emptyResult() *Result {
	summary, _ := stats.NewMetricSummaryBuilder().Build()
	return &Result{
		Summary:        summary,
		Report:         summary.ToReport(),
		VsyncPeriodNs:  c.vsyncPeriodNs,
		Polls:          c.polls,
		SkippedRows:    c.skippedRows,
		MissedOverlaps: c.missedOverlaps,
	}
}

// finalize segments the records into loops and summarises them. Must be
// called with mu held.
func (c *Collector) finalize(events []stats.LoopEvent) (*Result, error) {
	boundaries := stats.LoopBoundariesNs(events)
	loadTimeMs := stats.LoadTimeMs(events)

	newBuilder := func() *stats.LoopSummaryBuilder {
		return stats.NewLoopSummaryBuilder(c.cfg.TargetFrameTimeNs, c.vsyncPeriodNs)
	}

	b := stats.NewMetricSummaryBuilder().SetLoadTimeMs(loadTimeMs)
	frameTimes := make(map[stats.TimeKind][][]int64, len(stats.TimeKinds))
	for _, kind := range stats.TimeKinds {
		loops := stats.SegmentFrameTimes(c.records, boundaries, kind)
		frameTimes[kind] = loops
		for _, s := range stats.SummarizeLoops(loops, newBuilder) {
			b.AddLoopSummary(kind, s)
		}
	}

	summary, err := b.Build()
	if err != nil {
		return nil, err
	}

	present := frameTimes[stats.TimePresent]
	histograms := make([]*histogram.Histogram, 0, len(present))
	for _, loop := range present {
		histograms = append(histograms, histogram.New(
			nsToMs(loop), c.cfg.HistogramBucketMs, c.cfg.HistogramMinMs, c.cfg.HistogramMaxMs))
	}

	c.cfg.Metrics.RecordResult(summary.LoopCount, summary.LoadTimeMs)
	c.logger.Info("collector_finalized",
		"loops", summary.LoopCount,
		"boundaries", len(boundaries),
		"load_time_ms", summary.LoadTimeMs,
		"frames", len(c.records),
		"missed_overlaps", c.missedOverlaps,
	)

	return &Result{
		Summary:         summary,
		Report:          summary.ToReport(),
		Histograms:      histograms,
		FrameTimes:      present,
		ReadyFrameTimes: frameTimes[stats.TimeReady],
		VsyncPeriodNs:   c.vsyncPeriodNs,
		Records:         len(c.records),
		Polls:           c.polls,
		SkippedRows:     c.skippedRows,
		MissedOverlaps:  c.missedOverlaps,
	}, nil
}

// nsToMs converts frame times to whole milliseconds, rounding half up.
func nsToMs(ns []int64) []int64 {
	out := make([]int64, len(ns))
	for i, v := range ns {
		out[i] = (v + 500_000) / 1_000_000
	}
	return out
}
