package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// SourceConfig holds configuration for polling the compositor.
type SourceConfig struct {
	// BinaryPath is the path to the adb binary.
	BinaryPath string

	// Serial selects a device when more than one is attached (adb -s).
	Serial string

	// Layer is the compositor layer whose latency history is dumped.
	// Empty dumps the default layer.
	Layer string

	// ShellCommand replaces the adb invocation with a local shell command
	// whose stdout is the dump. Used for replays and non-adb devices.
	ShellCommand string

	// Timeout bounds a single poll. Zero means no per-poll timeout.
	Timeout time.Duration
}

// DefaultSourceConfig returns a SourceConfig with sensible defaults.
func DefaultSourceConfig(layer string) *SourceConfig {
	return &SourceConfig{
		BinaryPath: "adb",
		Layer:      layer,
		Timeout:    5 * time.Second,
	}
}

// waitDelay bounds how long a killed poll may hold its output pipes.
const waitDelay = 500 * time.Millisecond

// ErrClearUnsupported is returned by Clear when a custom shell command is
// configured.
var ErrClearUnsupported = errors.New("latency clear is not supported with a custom dump command")

// CommandSource implements DumpSource by running
// "adb shell dumpsys SurfaceFlinger --latency <layer>" once per poll.
type CommandSource struct {
	config *SourceConfig
}

// NewCommandSource creates a new command source with the given configuration.
func NewCommandSource(cfg *SourceConfig) *CommandSource {
	return &CommandSource{
		config: cfg,
	}
}

// Name returns "adb" or "shell" depending on the configuration.
func (s *CommandSource) Name() string {
	if s.config.ShellCommand != "" {
		return "shell"
	}
	return "adb"
}

// Config returns the source configuration.
func (s *CommandSource) Config() *SourceConfig {
	return s.config
}

// BuildCommand creates an exec.Cmd for one poll, or for clearing the
// latency history when clear is set. The command is not started.
func (s *CommandSource) BuildCommand(ctx context.Context, clear bool) (*exec.Cmd, error) {
	if s.config.ShellCommand != "" {
		if clear {
			return nil, ErrClearUnsupported
		}
		return exec.CommandContext(ctx, "sh", "-c", s.config.ShellCommand), nil
	}
	return exec.CommandContext(ctx, s.config.BinaryPath, s.buildArgs(clear)...), nil
}

// buildArgs constructs the adb arguments.
func (s *CommandSource) buildArgs(clear bool) []string {
	args := make([]string, 0, 8)
	if s.config.Serial != "" {
		args = append(args, "-s", s.config.Serial)
	}

	flag := "--latency"
	if clear {
		flag = "--latency-clear"
	}
	args = append(args, "shell", "dumpsys", "SurfaceFlinger", flag)

	// adb shell joins its arguments into one remote command line, so layer
	// names with spaces or '#' must be quoted for the device shell.
	if s.config.Layer != "" {
		args = append(args, shellQuote(s.config.Layer))
	}
	return args
}

// Dump runs one poll and returns stdout verbatim.
func (s *CommandSource) Dump(ctx context.Context) (string, error) {
	out, err := s.run(ctx, false)
	if err != nil {
		return "", err
	}
	return out, nil
}

// Clear resets the layer's latency history on the device.
func (s *CommandSource) Clear(ctx context.Context) error {
	_, err := s.run(ctx, true)
	return err
}

func (s *CommandSource) run(ctx context.Context, clear bool) (string, error) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	cmd, err := s.BuildCommand(ctx, clear)
	if err != nil {
		return "", err
	}

	// Children of sh may keep stdout open after the shell is killed.
	cmd.WaitDelay = waitDelay

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s failed: %w: %s", s.Name(), err, msg)
		}
		return "", fmt.Errorf("%s failed: %w", s.Name(), err)
	}
	return string(out), nil
}

// CommandString returns the command that would be executed (for logging).
func (s *CommandSource) CommandString() string {
	if s.config.ShellCommand != "" {
		return "sh -c " + shellQuote(s.config.ShellCommand)
	}
	return s.config.BinaryPath + " " + strings.Join(s.buildArgs(false), " ")
}

// shellQuote wraps v in single quotes for a POSIX shell.
func shellQuote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}
