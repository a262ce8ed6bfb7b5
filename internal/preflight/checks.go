// Package preflight provides startup validation checks.
package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/randomizedcoder/go-fps-collector/internal/process"
)

// Check represents the result of a single preflight check.
type Check struct {
	Name     string // Name of the check
	Required int    // Required value (if applicable)
	Actual   int    // Actual value found
	Passed   bool   // Whether the check passed
	Warning  bool   // True if it's a warning (non-fatal)
	Message  string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}

	if c.Required > 0 {
		return fmt.Sprintf("  %s %s: %d available (need %d)", status, c.Name, c.Actual, c.Required)
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// LayerLister lists the compositor's layers. *process.CommandSource
// implements it when talking to adb.
type LayerLister interface {
	ListLayers(ctx context.Context) ([]string, error)
}

// Options selects what RunAll checks.
type Options struct {
	// Source is the dump source configuration.
	Source *process.SourceConfig

	// OutputDir must be creatable and writable.
	OutputDir string

	// Layers, when set, is asked whether Source.Layer exists yet.
	Layers LayerLister
}

// requiredFDs covers artifact files, the raw log, the metrics server and
// the per-poll pipes.
const requiredFDs = 64

// checkTimeout bounds each external command run by a check.
const checkTimeout = 10 * time.Second

// RunAll executes all preflight checks.
func RunAll(ctx context.Context, opts Options) *Result {
	result := &Result{
		Checks: make([]Check, 0, 4),
		Passed: true,
	}
	add := func(c Check) {
		result.Checks = append(result.Checks, c)
		if !c.Passed {
			result.Passed = false
		}
	}

	add(checkFileDescriptors())
	add(checkOutputDir(opts.OutputDir))

	if opts.Source == nil {
		return result
	}
	if opts.Source.ShellCommand != "" {
		add(checkShell())
		return result
	}

	adbCheck := checkADB(ctx, opts.Source.BinaryPath)
	add(adbCheck)
	if !adbCheck.Passed {
		return result
	}

	deviceCheck := checkDevice(ctx, opts.Source.BinaryPath, opts.Source.Serial)
	add(deviceCheck)
	if deviceCheck.Passed && opts.Layers != nil && opts.Source.Layer != "" {
		// Warning only: the app may not be launched yet.
		add(checkLayer(ctx, opts.Layers, opts.Source.Layer))
	}

	return result
}

// checkFileDescriptors verifies sufficient file descriptors are available.
func checkFileDescriptors() Check {
	var limit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		return Check{
			Name:    "file_descriptors",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("unable to check: %v", err),
		}
	}
	actual := int(limit.Cur)

	return Check{
		Name:     "file_descriptors",
		Required: requiredFDs,
		Actual:   actual,
		Passed:   actual >= requiredFDs,
		Message:  fmt.Sprintf("ulimit -n %d (need %d)", actual, requiredFDs),
	}
}

// checkOutputDir verifies the artifact directory can be written.
func checkOutputDir(dir string) Check {
	if dir == "" {
		return Check{Name: "output_dir", Passed: false, Message: "no output directory configured"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Check{Name: "output_dir", Passed: false, Message: fmt.Sprintf("cannot create %s: %v", dir, err)}
	}

	f, err := os.CreateTemp(dir, ".preflight-*")
	if err != nil {
		return Check{Name: "output_dir", Passed: false, Message: fmt.Sprintf("%s is not writable: %v", dir, err)}
	}
	name := f.Name()
	f.Close()
	os.Remove(name)

	return Check{Name: "output_dir", Passed: true, Message: fmt.Sprintf("%s is writable", dir)}
}

// checkShell verifies sh is available for a custom dump command.
func checkShell() Check {
	if !process.BinaryAvailable("sh") {
		return Check{Name: "shell", Passed: false, Message: "sh not found on PATH"}
	}
	return Check{Name: "shell", Passed: true, Message: "sh found for custom dump command"}
}

// checkADB verifies adb is available and working.
func checkADB(ctx context.Context, path string) Check {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, "version").Output()
	if err != nil {
		return Check{
			Name:    "adb",
			Passed:  false,
			Message: fmt.Sprintf("not found at %s: %v", path, err),
		}
	}

	return Check{
		Name:    "adb",
		Passed:  true,
		Message: fmt.Sprintf("found at %s (version %s)", path, parseADBVersion(string(output))),
	}
}

// parseADBVersion extracts the version from the first line of
// "adb version": "Android Debug Bridge version 1.0.41".
func parseADBVersion(output string) string {
	first, _, _ := strings.Cut(output, "\n")
	parts := strings.Fields(first)
	if len(parts) >= 5 && parts[3] == "version" {
		return parts[4]
	}
	return "unknown"
}

// checkDevice verifies a device is attached and online.
func checkDevice(ctx context.Context, path, serial string) Check {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	args := []string{"get-state"}
	if serial != "" {
		args = append([]string{"-s", serial}, args...)
	}
	output, err := exec.CommandContext(ctx, path, args...).CombinedOutput()
	state := strings.TrimSpace(string(output))
	if err != nil || state != "device" {
		msg := state
		if msg == "" && err != nil {
			msg = err.Error()
		}
		return Check{Name: "device", Passed: false, Message: fmt.Sprintf("not ready: %s", msg)}
	}

	name := serial
	if name == "" {
		name = "default device"
	}
	return Check{Name: "device", Passed: true, Message: fmt.Sprintf("%s online", name)}
}

// checkLayer reports whether the layer is currently composited.
func checkLayer(ctx context.Context, lister LayerLister, layer string) Check {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	layers, err := lister.ListLayers(ctx)
	if err != nil {
		return Check{Name: "layer", Passed: true, Warning: true, Message: fmt.Sprintf("unable to list layers: %v", err)}
	}

	matches := process.MatchLayers(layers, layer)
	switch {
	case len(matches) == 1 && matches[0] == layer:
		return Check{Name: "layer", Passed: true, Message: fmt.Sprintf("%q is composited", layer)}
	case len(matches) > 0:
		return Check{
			Name:    "layer",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("no exact match for %q; similar: %s", layer, strings.Join(matches, ", ")),
		}
	default:
		return Check{
			Name:    "layer",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("%q not composited yet (sampling waits for it)", layer),
		}
	}
}

// PrintResults prints the preflight check results.
func PrintResults(w io.Writer, result *Result) {
	fmt.Fprintln(w, "Preflight checks:")
	for _, check := range result.Checks {
		fmt.Fprintln(w, check.String())
		if !check.Passed {
			fmt.Fprintf(w, "    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Fprintln(w)
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "file_descriptors":
		return "ulimit -n 1024 (or edit /etc/security/limits.conf)"
	case "output_dir":
		return "choose a writable directory with -out"
	case "adb":
		return "install platform-tools (apt install adb / brew install android-platform-tools) or pass -adb"
	case "device":
		return "connect a device, enable USB debugging, or pass -serial (see adb devices)"
	case "shell":
		return "install a POSIX shell or drop -dump-cmd"
	default:
		return "see documentation"
	}
}
