// This file implements the exit summary printed at the end of a run and the
// per-loop frame-time table written as an artifact.

package stats

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
)

// SummaryConfig holds run information shown alongside the statistics.
type SummaryConfig struct {
	// Duration is the wall-clock sampling duration
	Duration time.Duration

	// Layer is the compositor layer that was sampled
	Layer string

	// VsyncPeriodNs is the display refresh period read from the first dump
	VsyncPeriodNs int64

	// TargetFrameTimeNs is the configured on-time threshold (0 = none)
	TargetFrameTimeNs int64

	// Frames is the number of unique frames recorded
	Frames int

	// SkippedRows counts malformed dump rows
	SkippedRows int64

	// MissedOverlaps counts polls that did not overlap the previous one
	MissedOverlaps int64

	// ArtifactsDir is where artifacts were written (empty = none)
	ArtifactsDir string

	// Err is the terminal error of a failed run
	Err error
}

const (
	heavyRule = "═══════════════════════════════════════════════════════════════════════════════\n"
	lightRule = "───────────────────────────────────────────────────────────────────────────────\n"
)

// FormatExitSummary formats the run result for display at program exit.
func FormatExitSummary(m *MetricSummary, cfg SummaryConfig) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(heavyRule)
	b.WriteString("                         go-fps-collector Exit Summary\n")
	b.WriteString(heavyRule + "\n")

	if cfg.Err != nil {
		fmt.Fprintf(&b, "⚠️  RUN FAILED: %v\n\n", cfg.Err)
	}

	fmt.Fprintf(&b, "Sampling Duration:      %s\n", FormatDuration(cfg.Duration))
	if cfg.Layer != "" {
		fmt.Fprintf(&b, "Layer:                  %s\n", cfg.Layer)
	}
	if cfg.VsyncPeriodNs > 0 {
		fmt.Fprintf(&b, "Vsync Period:           %s (%.1f Hz)\n",
			FormatNs(cfg.VsyncPeriodNs), 1e9/float64(cfg.VsyncPeriodNs))
	}
	if cfg.TargetFrameTimeNs > 0 {
		fmt.Fprintf(&b, "Target Frame Time:      %s\n", FormatNs(cfg.TargetFrameTimeNs))
	}
	fmt.Fprintf(&b, "Frames Recorded:        %s\n\n", FormatNumber(int64(cfg.Frames)))

	if m != nil && m.LoopCount > 0 {
		b.WriteString(lightRule)
		b.WriteString("                              Loop Statistics\n")
		b.WriteString(lightRule + "\n")

		if m.LoadTimeMs != UnknownLoadTime {
			fmt.Fprintf(&b, "  Load Time:            %d ms\n\n", m.LoadTimeMs)
		}

		fmt.Fprintf(&b, "  %-6s %-8s %8s %10s %10s %10s %10s %8s\n",
			"Loop", "Kind", "Frames", "Avg", "P90", "P99", "Jank/s", "OnTime")
		b.WriteString("  " + strings.Repeat("─", 76) + "\n")
		for i := 0; i < m.LoopCount; i++ {
			for _, kind := range TimeKinds {
				s := m.Loop(kind, i)
				fmt.Fprintf(&b, "  %-6d %-8s %8d %10s %10s %10s %10.2f %7.1f%%\n",
					i, kind, s.Count,
					FormatNs(s.AvgFrameTimeNs),
					FormatNs(s.P90Ns),
					FormatNs(s.P99Ns),
					s.JankRatePerSecond,
					s.TargetFraction*100,
				)
			}
		}
		b.WriteString("\n")
	}

	footnotes := renderFootnotes(cfg)
	if footnotes != "" {
		b.WriteString(footnotes)
	}

	if cfg.ArtifactsDir != "" {
		fmt.Fprintf(&b, "Artifacts written to: %s\n", cfg.ArtifactsDir)
	}

	b.WriteString(heavyRule)

	return b.String()
}

// renderFootnotes adds diagnostic info that doesn't belong in main metrics.
func renderFootnotes(cfg SummaryConfig) string {
	var footnotes []string

	if cfg.SkippedRows > 0 {
		footnotes = append(footnotes, fmt.Sprintf(
			"[1] Malformed dump rows skipped: %d", cfg.SkippedRows))
	}
	if cfg.MissedOverlaps > 0 {
		footnotes = append(footnotes, fmt.Sprintf(
			"[2] Polls without overlap: %d (frames may have been dropped; lower -interval)",
			cfg.MissedOverlaps))
	}

	if len(footnotes) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(lightRule)
	b.WriteString("                                 Footnotes\n")
	b.WriteString(lightRule + "\n")
	for _, fn := range footnotes {
		fmt.Fprintf(&b, "  %s\n", fn)
	}
	b.WriteString("\n")
	return b.String()
}

// WriteFrameTable writes the per-loop statistics table followed by every
// loop's frame times. present and ready hold one slice of deltas per loop.
func WriteFrameTable(w io.Writer, m MetricSummary, present, ready [][]int64) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Loop", "Kind", "Frames", "Duration", "Jank/s",
		"Min", "Avg", "P90", "P95", "P99", "Max", "On target"})
	table.SetAutoFormatHeaders(false)
	for i := 0; i < m.LoopCount; i++ {
		for _, kind := range TimeKinds {
			s := m.Loop(kind, i)
			table.Append([]string{
				strconv.Itoa(i),
				kind.String(),
				strconv.FormatInt(s.Count, 10),
				FormatNs(s.TotalDurationNs),
				strconv.FormatFloat(s.JankRatePerSecond, 'f', 3, 64),
				FormatNs(s.MinFrameTimeNs),
				FormatNs(s.AvgFrameTimeNs),
				FormatNs(s.P90Ns),
				FormatNs(s.P95Ns),
				FormatNs(s.P99Ns),
				FormatNs(s.MaxFrameTimeNs),
				strconv.FormatFloat(s.TargetFraction*100, 'f', 1, 64) + "%",
			})
		}
	}
	table.Render()

	for i := range present {
		if _, err := fmt.Fprintf(w, "\nLoop %d frame times (ns)\n", i); err != nil {
			return err
		}
		frames := tablewriter.NewWriter(w)
		frames.SetHeader([]string{"#", "Present", "Ready"})
		frames.SetBorder(false)
		for j, p := range present[i] {
			row := []string{strconv.Itoa(j), strconv.FormatInt(p, 10), ""}
			if i < len(ready) && j < len(ready[i]) {
				row[2] = strconv.FormatInt(ready[i][j], 10)
			}
			frames.Append(row)
		}
		frames.Render()
	}
	return nil
}

// =============================================================================
// Formatting Helper Functions (exported for reuse)
// =============================================================================

// FormatDuration formats a duration as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatNumber formats a number with K/M suffixes for readability.
func FormatNumber(n int64) string {
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// FormatNs formats a nanosecond frame time as milliseconds with two
// decimals.
func FormatNs(ns int64) string {
	return fmt.Sprintf("%.2f ms", float64(ns)/1e6)
}
