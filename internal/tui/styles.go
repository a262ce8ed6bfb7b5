// Package tui provides a live terminal dashboard for frame-timing
// collection.
//
// The dashboard is a Bubble Tea program styled with Lipgloss. It shows the
// collector state, run progress, the live and average frame rate against
// the target, the display refresh rate and poll health.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette (dark theme).
var (
	colorAccent = lipgloss.Color("#7C3AED")
	colorHeader = lipgloss.Color("#06B6D4")

	colorGood  = lipgloss.Color("#10B981")
	colorWarn  = lipgloss.Color("#F59E0B")
	colorBad   = lipgloss.Color("#EF4444")
	colorState = lipgloss.Color("#3B82F6")

	colorFg     = lipgloss.Color("#E5E7EB")
	colorFgSoft = lipgloss.Color("#9CA3AF")
	colorFgDim  = lipgloss.Color("#6B7280")
	colorRule   = lipgloss.Color("#374151")
)

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

func strong(c lipgloss.Color) lipgloss.Style { return fg(c).Bold(true) }

var (
	mutedStyle = fg(colorFgSoft)
	dimStyle   = fg(colorFgDim)

	statusOK      = strong(colorGood)
	statusWarning = strong(colorWarn)
	statusError   = strong(colorBad)
	statusInfo    = strong(colorState)

	valueStyle     = strong(colorFg)
	valueGoodStyle = strong(colorGood)
	valueWarnStyle = strong(colorWarn)
	valueBadStyle  = strong(colorBad)
	labelStyle     = fg(colorFgSoft).Width(20)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorRule).
			Padding(0, 1)

	headerStyle = strong(colorFg).
			Background(colorAccent).
			Padding(0, 1).
			MarginBottom(1)

	sectionHeaderStyle = strong(colorHeader).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(colorRule).
				MarginTop(1)

	footerStyle = fg(colorFgSoft).MarginTop(1)

	barFilledStyle = fg(colorAccent)
	barEmptyStyle  = fg(colorRule)
	barLabelStyle  = strong(colorFg)
)

// GetStateStyle returns the style for a collector state name.
func GetStateStyle(state string) lipgloss.Style {
	switch state {
	case "sampling", "stopped":
		return statusOK
	case "waiting_for_layer":
		return statusWarning
	case "errored":
		return statusError
	default:
		return statusInfo
	}
}

// GetStateLabel returns a styled state indicator.
func GetStateLabel(state string) string {
	return GetStateStyle(state).Render("● " + state)
}

// OverlapStatus summarises how often consecutive polls failed to overlap.
type OverlapStatus int

const (
	OverlapOK OverlapStatus = iota
	OverlapDegraded
	OverlapSeverelyDegraded
)

// severeMissedRate is the fraction of polls without overlap above which
// the run is considered badly under-sampled.
const severeMissedRate = 0.10

// GetOverlapStatus returns the status for the fraction of polls that may
// have lost frames.
func GetOverlapStatus(missedRate float64) OverlapStatus {
	switch {
	case missedRate > severeMissedRate:
		return OverlapSeverelyDegraded
	case missedRate > 0:
		return OverlapDegraded
	default:
		return OverlapOK
	}
}

// GetOverlapStyle returns the style for an overlap status.
func GetOverlapStyle(status OverlapStatus) lipgloss.Style {
	switch status {
	case OverlapSeverelyDegraded:
		return valueBadStyle
	case OverlapDegraded:
		return valueWarnStyle
	default:
		return valueGoodStyle
	}
}

// GetFPSStyle returns a style comparing a frame rate with the target.
// Without a target every rate renders neutrally.
func GetFPSStyle(fps, targetFPS float64) lipgloss.Style {
	switch {
	case targetFPS <= 0 || fps <= 0:
		return valueStyle
	case fps >= 0.95*targetFPS:
		return valueGoodStyle
	case fps >= 0.8*targetFPS:
		return valueWarnStyle
	default:
		return valueBadStyle
	}
}

// RenderKeyValue renders a label-value pair.
func RenderKeyValue(label, value string) string {
	return renderStyledKeyValue(label, valueStyle.Render(value))
}

// renderStyledKeyValue renders a label with a pre-styled value.
func renderStyledKeyValue(label, styled string) string {
	return lipgloss.JoinHorizontal(lipgloss.Left, labelStyle.Render(label+":"), styled)
}

// RenderProgressBar renders a bar of at least 10 cells followed by the
// percentage. The bar is clamped; the percentage is not.
func RenderProgressBar(progress float64, width int) string {
	width = max(width, 10)
	filled := min(max(int(progress*float64(width)), 0), width)

	return barFilledStyle.Render(repeatChar('█', filled)) +
		barEmptyStyle.Render(repeatChar('░', width-filled)) +
		barLabelStyle.Render(fmt.Sprintf(" %3.0f%%", progress*100))
}

func repeatChar(char rune, count int) string {
	if count <= 0 {
		return ""
	}
	return strings.Repeat(string(char), count)
}
