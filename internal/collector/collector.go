package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/randomizedcoder/go-fps-collector/internal/logging"
	"github.com/randomizedcoder/go-fps-collector/internal/metrics"
	"github.com/randomizedcoder/go-fps-collector/internal/parser"
	"github.com/randomizedcoder/go-fps-collector/internal/process"
	"github.com/randomizedcoder/go-fps-collector/internal/sampler"
)

var (
	// ErrNoMetrics means no dump ever carried a frame.
	ErrNoMetrics = errors.New("unable to retrieve any metrics: no frame was observed")

	// ErrAppTerminated means the layer disappeared after frames were seen.
	ErrAppTerminated = errors.New("app was terminated: layer stopped reporting frames")

	// ErrDumpFailed wraps a failure of the dump source.
	ErrDumpFailed = errors.New("latency dump failed")

	// ErrNotCleared means records were left over from a previous run.
	ErrNotCleared = errors.New("records were not cleared before start")

	// ErrAlreadyStarted is returned by a second Start without Reset.
	ErrAlreadyStarted = errors.New("collector already started")

	// ErrNotStarted is returned by Stop before Start.
	ErrNotStarted = errors.New("collector not started")
)

const (
	// DefaultHistogramBucketMs is the histogram bucket width in milliseconds.
	DefaultHistogramBucketMs int64 = 1

	// DefaultInterval is the poll interval used when none is configured.
	DefaultInterval = time.Second
)

// Callbacks contains optional callback functions for collector events.
// Callbacks run outside the collector's lock.
type Callbacks struct {
	// OnStateChange is called when the collector state changes.
	OnStateChange func(oldState, newState State)
}

// Config holds configuration for creating a new Collector.
type Config struct {
	// Source produces one latency dump per tick.
	Source process.DumpSource

	// Interval between polls.
	Interval time.Duration

	// Mode selects fixed-delay or fixed-rate polling.
	Mode sampler.Mode

	// ClearOnStart resets the layer's latency history before the first
	// poll, when the source supports it.
	ClearOnStart bool

	// TargetFrameTimeNs is the on-time threshold (0 = none).
	TargetFrameTimeNs int64

	// Histogram bucket width and optional cutoffs, in milliseconds.
	HistogramBucketMs int64
	HistogramMinMs    *int64
	HistogramMaxMs    *int64

	// RawLog receives every dump verbatim (optional).
	RawLog *logging.RawSampleLog

	// Metrics receives live telemetry (optional).
	Metrics *metrics.Collector

	Logger    *slog.Logger
	Callbacks Callbacks
}

// Collector polls a DumpSource and accumulates unique frames.
//
// All mutable state is guarded by mu. Dumps are fetched outside the lock
// and processed inside it, so Stop can never observe a half-applied poll.
type Collector struct {
	cfg       Config
	logger    *slog.Logger
	rawLog    *logging.RawSampleLog
	scheduler *sampler.Scheduler

	mu             sync.Mutex
	started        bool
	stopped        bool
	state          State
	err            error
	watermark      parser.Watermark
	records        []parser.ElapsedRecord
	vsyncPeriodNs  int64
	polls          int64
	skippedRows    int64
	missedOverlaps int64
	startTime      time.Time
	firstFrameTime time.Time
	result         *Result
}

// New creates a new Collector with the given configuration.
func New(cfg Config) *Collector {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.HistogramBucketMs <= 0 {
		cfg.HistogramBucketMs = DefaultHistogramBucketMs
	}

	rawLog := cfg.RawLog
	if rawLog == nil {
		rawLog = logging.NewRawSampleLog(nil, cfg.Logger)
	}

	return &Collector{
		cfg:    cfg,
		logger: cfg.Logger,
		rawLog: rawLog,
		state:  StateIdle,
	}
}

// Start begins polling. The first poll runs immediately.
func (c *Collector) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started || c.state != StateIdle {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	if len(c.records) != 0 || c.watermark.LatestSeen() != 0 {
		c.mu.Unlock()
		return ErrNotCleared
	}
	c.started = true
	c.scheduler = sampler.New(task{c}, c.cfg.Interval, c.cfg.Mode, c.logger)
	scheduler := c.scheduler
	c.mu.Unlock()

	if err := scheduler.Start(ctx); err != nil {
		c.mu.Lock()
		c.started = false
		c.mu.Unlock()
		return err
	}
	return nil
}

// Done is closed when polling stops, either after Stop or after a fatal
// error. It returns nil before Start.
func (c *Collector) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scheduler == nil {
		return nil
	}
	return c.scheduler.Done()
}

// State returns the current state of the collector.
func (c *Collector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the fatal error of the run, if any.
func (c *Collector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Reset returns a stopped collector to Idle, discarding all records.
func (c *Collector) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started && !c.stopped {
		return fmt.Errorf("cannot reset while %s: call Stop first", c.state)
	}
	c.started = false
	c.stopped = false
	c.state = StateIdle
	c.err = nil
	c.watermark.Reset()
	c.records = nil
	c.vsyncPeriodNs = 0
	c.polls = 0
	c.skippedRows = 0
	c.missedOverlaps = 0
	c.startTime = time.Time{}
	c.firstFrameTime = time.Time{}
	c.result = nil
	c.scheduler = nil
	return nil
}

// Status is a point-in-time snapshot for telemetry and the dashboard.
type Status struct {
	State           string        `json:"state"`
	Frames          int           `json:"frames"`
	Polls           int64         `json:"polls"`
	SkippedRows     int64         `json:"skipped_rows"`
	MissedOverlaps  int64         `json:"missed_overlaps"`
	VsyncPeriodNs   int64         `json:"vsync_period_ns"`
	LatestSeenNs    int64         `json:"latest_seen_ns"`
	Elapsed         time.Duration `json:"elapsed_ns"`
	SinceFirstFrame time.Duration `json:"since_first_frame_ns"`
	Error           string        `json:"error,omitempty"`
}

// Status returns a snapshot of the collector.
func (c *Collector) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{
		State:          c.state.String(),
		Frames:         len(c.records),
		Polls:          c.polls,
		SkippedRows:    c.skippedRows,
		MissedOverlaps: c.missedOverlaps,
		VsyncPeriodNs:  c.vsyncPeriodNs,
		LatestSeenNs:   c.watermark.LatestSeen(),
	}
	if !c.startTime.IsZero() {
		s.Elapsed = time.Since(c.startTime)
	}
	if !c.firstFrameTime.IsZero() {
		s.SinceFirstFrame = time.Since(c.firstFrameTime)
	}
	if c.err != nil {
		s.Error = c.err.Error()
	}
	return s
}

// setState must be called with mu held. It returns the previous state.
func (c *Collector) setState(newState State) State {
	old := c.state
	c.state = newState
	c.cfg.Metrics.SetState(newState.String())
	return old
}

// fail moves to Errored and keeps err. Must be called with mu held.
func (c *Collector) fail(err error) State {
	c.err = err
	c.logger.Error("collector_failed", "error", err, "state", c.state.String(), "frames", len(c.records))
	return c.setState(StateErrored)
}

func (c *Collector) notify(oldState, newState State) {
	if c.cfg.Callbacks.OnStateChange != nil && oldState != newState {
		c.cfg.Callbacks.OnStateChange(oldState, newState)
	}
}

// =============================================================================
// Scheduled task
// =============================================================================

// task adapts the collector to sampler.Task without exporting the hooks.
type task struct {
	c *Collector
}

func (t task) OnStart(ctx context.Context) error {
	c := t.c
	if c.cfg.ClearOnStart {
		if clearer, ok := c.cfg.Source.(process.Clearer); ok {
			if err := clearer.Clear(ctx); err != nil {
				return fmt.Errorf("%w: clear: %w", ErrDumpFailed, err)
			}
			c.rawLog.Annotate("latency history cleared")
		} else {
			c.logger.Warn("clear_unsupported", "source", c.cfg.Source.Name())
		}
	}

	c.mu.Lock()
	c.startTime = time.Now()
	old := c.setState(StateWaitingForLayer)
	c.mu.Unlock()

	c.logger.Info("collector_started",
		"source", c.cfg.Source.Name(),
		"interval", c.cfg.Interval,
		"mode", c.cfg.Mode.String(),
	)
	c.notify(old, StateWaitingForLayer)
	return nil
}

func (t task) OnTick(ctx context.Context) error {
	c := t.c

	start := time.Now()
	text, err := c.cfg.Source.Dump(ctx)
	c.cfg.Metrics.RecordPoll(time.Since(start), err)

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.mu.Lock()
		err = fmt.Errorf("%w: %w", ErrDumpFailed, err)
		old := c.fail(err)
		c.mu.Unlock()
		c.notify(old, StateErrored)
		return err
	}

	c.mu.Lock()
	old, newState, err := c.process(text)
	c.mu.Unlock()

	c.notify(old, newState)
	return err
}

func (t task) OnEnd() {
	c := t.c
	c.mu.Lock()
	frames := len(c.records)
	polls := c.polls
	c.mu.Unlock()
	c.logger.Debug("sampling_ended", "frames", frames, "polls", polls)
}

// process applies one dump. Must be called with mu held.
func (c *Collector) process(text string) (oldState, newState State, err error) {
	oldState = c.state
	if !c.state.IsActive() {
		// Stop won the race with this tick.
		return oldState, oldState, nil
	}

	c.polls++
	c.rawLog.AppendDump(text)
	dump := parser.ParseDump(text)

	if !dump.HasData() {
		if c.state == StateSampling {
			c.rawLog.Annotate("layer returned no frames after %d recorded; app terminated", len(c.records))
			err = ErrAppTerminated
			c.fail(err)
			return oldState, StateErrored, err
		}
		// Layer not composited yet.
		return oldState, oldState, nil
	}

	if c.state == StateWaitingForLayer {
		vsync, verr := dump.VsyncPeriod()
		if verr != nil {
			err = fmt.Errorf("%w: %w", ErrDumpFailed, verr)
			c.fail(err)
			return oldState, StateErrored, err
		}
		c.vsyncPeriodNs = vsync
		c.firstFrameTime = time.Now()
		c.cfg.Metrics.SetVsyncPeriod(vsync)
		c.setState(StateSampling)
		c.logger.Info("layer_found", "vsync_period_ns", vsync, "rows", len(dump.Rows))
	}

	hadRecords := len(c.records) > 0
	latest := c.watermark.LatestSeen()
	res := c.watermark.Sample(dump.Rows)

	missed := hadRecords && !res.Overlap
	if missed {
		c.missedOverlaps++
		c.rawLog.Annotate("no overlap between polls: latest seen %d not present in this dump, frames may be missing", latest)
		c.logger.Warn("no_overlap_between_polls",
			"latest_seen_ns", latest,
			"accepted", len(res.Accepted),
			"interval", c.cfg.Interval,
		)
	} else if hadRecords {
		c.rawLog.Annotate("overlap at %d, %d new frames", latest, len(res.Accepted))
	}

	c.records = append(c.records, res.Accepted...)
	c.skippedRows += int64(dump.Skipped)
	if dump.Skipped > 0 {
		c.logger.Debug("dump_rows_skipped", "skipped", dump.Skipped)
	}

	c.cfg.Metrics.RecordSample(metrics.SampleUpdate{
		Accepted:      len(res.Accepted),
		Pending:       res.Pending,
		Stale:         res.Stale,
		Skipped:       dump.Skipped,
		MissedOverlap: missed,
	})
	return oldState, c.state, nil
}
