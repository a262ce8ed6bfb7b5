// Package main provides the go-fps-collector CLI entry point.
//
// go-fps-collector polls the compositor's per-layer latency history on an
// Android device, turns it into per-frame timings and writes frame-time
// statistics, histograms and a harness report at the end of the run.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/randomizedcoder/go-fps-collector/internal/config"
	"github.com/randomizedcoder/go-fps-collector/internal/logging"
	"github.com/randomizedcoder/go-fps-collector/internal/orchestrator"
	"github.com/randomizedcoder/go-fps-collector/internal/process"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/go-fps-collector
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Handle version flag early (before flag parsing)
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("go-fps-collector %s\n", version)
			return 0
		}
	}

	// Parse command-line flags
	cfg, err := config.ParseFlags()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}
	cfg.Version = version

	// Initialize logger
	// When TUI is enabled, suppress logs to avoid interfering with TUI rendering
	var logger *slog.Logger
	if cfg.TUIEnabled {
		logger = logging.NewLoggerWithWriter(io.Discard, "json", "info")
	} else {
		logger = logging.NewLogger(cfg.LogFormat, "info", cfg.Verbose)
	}
	logging.SetDefault(logger)

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	// Apply --check mode modifications
	if cfg.Check {
		config.ApplyCheckMode(cfg)
		logger.Info("check_mode_enabled", "duration", cfg.Duration)
	}

	source := process.NewCommandSource(cfg.SourceConfig())

	// Handle --print-cmd mode
	if cfg.PrintCmd {
		fmt.Println("# Command that would be run on every poll:")
		fmt.Println()
		fmt.Println(source.CommandString())
		return 0
	}

	// Handle --list-layers mode
	if cfg.ListLayers {
		return listLayers(source, cfg.Layer)
	}

	// Log startup
	logger.Info("starting",
		"version", version,
		"layer", cfg.Layer,
		"source", source.Name(),
		"interval", cfg.Interval.String(),
		"schedule", cfg.Schedule,
		"target_fps", cfg.TargetFPS,
		"output_dir", cfg.OutputDir,
		"metrics_addr", cfg.MetricsAddr,
	)

	// Print startup banner
	if !cfg.TUIEnabled {
		printBanner(cfg)
	}

	// Create and run orchestrator
	orch := orchestrator.NewWithSource(cfg, logger, source)
	if _, err := orch.Run(context.Background()); err != nil {
		logger.Error("collection_failed", "error", err)
		return 1
	}

	return 0
}

// listLayers prints the composited layers, filtered by pattern when set.
func listLayers(source *process.CommandSource, pattern string) int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*source.Config().Timeout)
	defer cancel()

	layers, err := source.ListLayers(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list layers: %v\n", err)
		return 1
	}
	if pattern != "" {
		layers = process.MatchLayers(layers, pattern)
	}
	for _, layer := range layers {
		fmt.Println(layer)
	}
	if len(layers) == 0 {
		fmt.Fprintln(os.Stderr, "No matching layers.")
		return 1
	}
	return 0
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                        go-fps-collector                           ║")
	fmt.Println("║        Frame Timing from the Compositor Latency History           ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Println()
	if cfg.DumpCmd != "" {
		fmt.Printf("  Source:      %s\n", cfg.DumpCmd)
	} else {
		device := cfg.Serial
		if device == "" {
			device = "(default device)"
		}
		fmt.Printf("  Device:      %s via %s\n", device, cfg.ADBPath)
	}
	fmt.Printf("  Layer:       %s\n", cfg.Layer)
	fmt.Printf("  Polling:     every %s (%s)\n", cfg.Interval, cfg.Schedule)
	if cfg.TargetFPS > 0 {
		fmt.Printf("  Target:      %.0f fps (%s per frame)\n", cfg.TargetFPS, time.Duration(cfg.TargetFrameTimeNs()))
	}
	if cfg.Duration > 0 {
		fmt.Printf("  Duration:    %s\n", cfg.Duration)
	}
	fmt.Printf("  Output:      %s\n", cfg.OutputDir)
	if cfg.MetricsAddr != "" {
		fmt.Printf("  Metrics:     http://%s/metrics\n", cfg.MetricsAddr)
	}
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()
}
