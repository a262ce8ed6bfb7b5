package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// optionalInt64 is a flag that is nil until set, for cutoffs that default
// to "none".
type optionalInt64 struct {
	p **int64
}

func (o optionalInt64) String() string {
	if o.p == nil || *o.p == nil {
		return ""
	}
	return strconv.FormatInt(**o.p, 10)
}

func (o optionalInt64) Set(value string) error {
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return err
	}
	*o.p = &v
	return nil
}

// ParseFlags parses os.Args and returns a Config.
func ParseFlags() (*Config, error) {
	return ParseArgs(os.Args[1:], os.Stderr)
}

// ParseArgs parses args into a Config. Usage and errors go to output.
// A single positional argument names the layer when -layer is not set.
func ParseArgs(args []string, output io.Writer) (*Config, error) {
	cfg := DefaultConfig()
	fs := flag.NewFlagSet("go-fps-collector", flag.ContinueOnError)
	fs.SetOutput(output)

	// Custom usage message
	fs.Usage = func() {
		fmt.Fprintf(output, `go-fps-collector - frame timing collection from the compositor latency history

Usage:
  go-fps-collector [flags] [LAYER]

Device Flags:
`)
		// Print flags by category
		printFlagCategory(fs, output, []string{"adb", "serial", "layer", "dump-cmd", "dump-timeout", "clear"})

		fmt.Fprintf(output, "\nSampling:\n")
		printFlagCategory(fs, output, []string{"interval", "schedule", "target-fps", "duration", "events"})

		fmt.Fprintf(output, "\nOutput:\n")
		printFlagCategory(fs, output, []string{"out", "bucket", "hist-min", "hist-max", "hist-width"})

		fmt.Fprintf(output, "\nObservability:\n")
		printFlagCategory(fs, output, []string{"metrics", "v", "log-format", "tui"})

		fmt.Fprintf(output, "\nSafety & Diagnostics:\n")
		printFlagCategory(fs, output, []string{"print-cmd", "list-layers", "check", "skip-preflight"})

		fmt.Fprintf(output, `
Flag Convention:
  Single-dash flags (-layer, -interval) are normal options.
  Double-dash flags (--clear, --check) change device state or are diagnostic modes.

Examples:
  # Sample a layer until Ctrl-C
  go-fps-collector -layer 'SurfaceView - com.example.game/com.example.game.MainActivity#0'

  # Two minutes on a specific device with loop events
  go-fps-collector -serial emulator-5554 -duration 2m -events events.jsonl com.example.game

  # Replay a captured dump
  go-fps-collector -dump-cmd 'cat testdata/dump.txt' -duration 3s

`)
	}

	// Device
	fs.StringVar(&cfg.ADBPath, "adb", cfg.ADBPath, "Path to adb binary")
	fs.StringVar(&cfg.Serial, "serial", cfg.Serial, "Device serial (adb -s)")
	fs.StringVar(&cfg.Layer, "layer", cfg.Layer, "Compositor layer to sample")
	fs.StringVar(&cfg.DumpCmd, "dump-cmd", cfg.DumpCmd, "Shell command printing a latency dump (replaces adb)")
	fs.DurationVar(&cfg.DumpTimeout, "dump-timeout", cfg.DumpTimeout, "Timeout for one dump")
	fs.BoolVar(&cfg.ClearOnStart, "clear", cfg.ClearOnStart, "Clear the layer's latency history before sampling")

	// Sampling
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "Poll interval")
	fs.StringVar(&cfg.Schedule, "schedule", cfg.Schedule, `Poll schedule: "fixed-delay" or "fixed-rate"`)
	fs.Float64Var(&cfg.TargetFPS, "target-fps", cfg.TargetFPS, "Target frame rate for jank and on-target scoring (0 = none)")
	fs.DurationVar(&cfg.Duration, "duration", cfg.Duration, "Run duration (0 = until Ctrl-C or app exit)")
	fs.StringVar(&cfg.EventsFile, "events", cfg.EventsFile, "Loop events file, one JSON event per line, read at stop")

	// Output
	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "Artifact output directory")
	fs.Int64Var(&cfg.HistogramBucketMs, "bucket", cfg.HistogramBucketMs, "Histogram bucket width in ms")
	fs.Var(optionalInt64{&cfg.HistogramMinMs}, "hist-min", "Histogram lower cutoff in ms")
	fs.Var(optionalInt64{&cfg.HistogramMaxMs}, "hist-max", "Histogram upper cutoff in ms")
	fs.IntVar(&cfg.HistogramWidth, "hist-width", cfg.HistogramWidth, "Widest ASCII histogram bar")

	// Observability
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics address (empty = disabled)")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)
	fs.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Enable live terminal dashboard")

	// Safety & Diagnostics (double-dash convention)
	fs.BoolVar(&cfg.PrintCmd, "print-cmd", cfg.PrintCmd, "Print the dump command and exit")
	fs.BoolVar(&cfg.ListLayers, "list-layers", cfg.ListLayers, "List compositor layers and exit")
	fs.BoolVar(&cfg.Check, "check", cfg.Check, "Validate config and sample for 5 seconds")
	fs.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip preflight checks")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Positional argument: layer
	rest := fs.Args()
	if len(rest) > 1 {
		return nil, fmt.Errorf("expected at most one layer argument, got %d", len(rest))
	}
	if len(rest) == 1 && cfg.Layer == "" {
		cfg.Layer = rest[0]
	}

	return cfg, nil
}

// printFlagCategory prints flags matching the given names (helper for usage).
func printFlagCategory(fs *flag.FlagSet, w io.Writer, names []string) {
	for _, name := range names {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		fmt.Fprintf(w, "  -%s %s\n    \t%s", f.Name, flagType(f), f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "0s" {
			fmt.Fprintf(w, " (default %s)", f.DefValue)
		}
		fmt.Fprintln(w)
	}
}

// flagType returns a type hint for the flag value.
func flagType(f *flag.Flag) string {
	// Infer type from default value format
	switch f.DefValue {
	case "true", "false":
		return ""
	}

	// Check if it looks like a duration
	if strings.HasSuffix(f.DefValue, "s") || strings.HasSuffix(f.DefValue, "m") || strings.HasSuffix(f.DefValue, "h") {
		return "duration"
	}

	// Check if numeric
	if _, err := fmt.Sscanf(f.DefValue, "%d", new(int)); err == nil {
		return "int"
	}

	return "string"
}
