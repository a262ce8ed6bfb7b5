// Package config provides configuration management for go-fps-collector.
package config

import (
	"math"
	"time"

	"github.com/randomizedcoder/go-fps-collector/internal/process"
)

// Config holds all configuration options for one benchmark run.
type Config struct {
	// Device / dump source
	ADBPath      string        `json:"adb_path"`
	Serial       string        `json:"serial"`
	Layer        string        `json:"layer"`
	DumpCmd      string        `json:"dump_cmd"` // overrides adb when set
	DumpTimeout  time.Duration `json:"dump_timeout"`
	ClearOnStart bool          `json:"clear_on_start"`

	// Sampling
	Interval   time.Duration `json:"interval"`
	Schedule   string        `json:"schedule"`   // fixed-delay, fixed-rate
	TargetFPS  float64       `json:"target_fps"` // 0 = no target
	Duration   time.Duration `json:"duration"`   // 0 = until signal or app exit
	EventsFile string        `json:"events_file"`

	// Output
	OutputDir         string `json:"output_dir"`
	HistogramBucketMs int64  `json:"histogram_bucket_ms"`
	HistogramMinMs    *int64 `json:"histogram_min_ms,omitempty"`
	HistogramMaxMs    *int64 `json:"histogram_max_ms,omitempty"`
	HistogramWidth    int    `json:"histogram_width"`

	// Observability
	MetricsAddr string `json:"metrics_addr"`
	Verbose     bool   `json:"verbose"`
	LogFormat   string `json:"log_format"` // json, text
	TUIEnabled  bool   `json:"tui_enabled"`

	// Diagnostic modes
	PrintCmd      bool `json:"print_cmd"`
	ListLayers    bool `json:"list_layers"`
	Check         bool `json:"check"`
	SkipPreflight bool `json:"skip_preflight"`

	// Version is the build version, set by main rather than a flag.
	Version string `json:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		// Device
		ADBPath:     "adb",
		DumpTimeout: 5 * time.Second,

		// Sampling
		Interval:  time.Second,
		Schedule:  "fixed-delay",
		TargetFPS: 60,
		Duration:  0, // Until signal or app exit

		// Output
		OutputDir:         "fps-results",
		HistogramBucketMs: 1,
		HistogramWidth:    60,

		// Observability
		MetricsAddr: "0.0.0.0:17092",
		Verbose:     false,
		LogFormat:   "json",
		TUIEnabled:  false,
	}
}

// TargetFrameTimeNs converts TargetFPS into a frame time, rounded to the
// nearest nanosecond. Zero or negative FPS means no target.
func (c *Config) TargetFrameTimeNs() int64 {
	if c.TargetFPS <= 0 {
		return 0
	}
	return int64(math.Round(1e9 / c.TargetFPS))
}

// SourceConfig returns the dump source settings.
func (c *Config) SourceConfig() *process.SourceConfig {
	src := process.DefaultSourceConfig(c.Layer)
	src.BinaryPath = c.ADBPath
	src.Serial = c.Serial
	src.ShellCommand = c.DumpCmd
	if c.DumpTimeout > 0 {
		src.Timeout = c.DumpTimeout
	}
	return src
}

// ApplyCheckMode modifies config for --check mode: a short, verbose run
// without the dashboard.
func ApplyCheckMode(cfg *Config) {
	cfg.Duration = 5 * time.Second
	cfg.Verbose = true
	cfg.TUIEnabled = false
}
