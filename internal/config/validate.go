package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/randomizedcoder/go-fps-collector/internal/sampler"
)

// Limits on sampling settings.
const (
	MinInterval  = 10 * time.Millisecond
	MaxTargetFPS = 1000
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or an error describing the problem.
func Validate(cfg *Config) error {
	var errs []error

	// A layer is required unless the dump comes from a custom command or
	// only the layer list is wanted.
	if cfg.Layer == "" && cfg.DumpCmd == "" && !cfg.ListLayers {
		errs = append(errs, ValidationError{
			Field:   "layer",
			Message: "layer name is required (use --list-layers to find it)",
		})
	}

	// -serial only applies to adb
	if cfg.DumpCmd != "" && cfg.Serial != "" {
		errs = append(errs, ValidationError{
			Field:   "serial",
			Message: "-serial cannot be combined with -dump-cmd",
		})
	}

	if cfg.DumpCmd == "" && cfg.ADBPath == "" {
		errs = append(errs, ValidationError{
			Field:   "adb_path",
			Message: "must not be empty",
		})
	}

	if cfg.DumpTimeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "dump_timeout",
			Message: "must be positive",
		})
	}

	if cfg.Interval < MinInterval {
		errs = append(errs, ValidationError{
			Field:   "interval",
			Message: fmt.Sprintf("must be at least %v (got %v)", MinInterval, cfg.Interval),
		})
	}

	if _, err := sampler.ParseMode(cfg.Schedule); err != nil {
		errs = append(errs, ValidationError{
			Field:   "schedule",
			Message: err.Error(),
		})
	}

	if cfg.TargetFPS < 0 || cfg.TargetFPS > MaxTargetFPS {
		errs = append(errs, ValidationError{
			Field:   "target_fps",
			Message: fmt.Sprintf("must be between 0 and %d (got %g)", MaxTargetFPS, cfg.TargetFPS),
		})
	}

	if cfg.Duration < 0 {
		errs = append(errs, ValidationError{
			Field:   "duration",
			Message: "must not be negative",
		})
	}

	if cfg.OutputDir == "" {
		errs = append(errs, ValidationError{
			Field:   "output_dir",
			Message: "must not be empty",
		})
	}

	// Histogram settings
	if cfg.HistogramBucketMs < 1 {
		errs = append(errs, ValidationError{
			Field:   "histogram_bucket_ms",
			Message: "must be at least 1",
		})
	}
	if cfg.HistogramMinMs != nil && cfg.HistogramMaxMs != nil && *cfg.HistogramMinMs >= *cfg.HistogramMaxMs {
		errs = append(errs, ValidationError{
			Field:   "histogram_max_ms",
			Message: fmt.Sprintf("must be greater than histogram_min_ms (got %d <= %d)", *cfg.HistogramMaxMs, *cfg.HistogramMinMs),
		})
	}
	if cfg.HistogramWidth < 1 {
		errs = append(errs, ValidationError{
			Field:   "histogram_width",
			Message: "must be at least 1",
		})
	}

	// Log format must be valid
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	// Return combined errors
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
